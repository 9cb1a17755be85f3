package chat

import (
	"context"
	"sync"
)

// SentMessage is one message currently live on a Recorder surface.
type SentMessage struct {
	ChatID    int64
	MessageID int64
	Prompt    Prompt
}

// Recorder is an in-memory Messenger that records outbound traffic. It backs
// tests and local development runs without a real messaging surface.
type Recorder struct {
	mutex  sync.Mutex
	nextID int64
	live   map[int64]SentMessage
	log    []SentMessage
}

func NewRecorder() *Recorder {
	return &Recorder{
		live: make(map[int64]SentMessage),
	}
}

func (r *Recorder) Send(ctx context.Context, chatID int64, prompt Prompt) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.nextID++
	msg := SentMessage{ChatID: chatID, MessageID: r.nextID, Prompt: prompt}
	r.live[msg.MessageID] = msg
	r.log = append(r.log, msg)
	return msg.MessageID, nil
}

func (r *Recorder) Edit(ctx context.Context, chatID, messageID int64, prompt Prompt) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	msg := SentMessage{ChatID: chatID, MessageID: messageID, Prompt: prompt}
	r.live[messageID] = msg
	r.log = append(r.log, msg)
	return nil
}

func (r *Recorder) Delete(ctx context.Context, chatID, messageID int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.live, messageID)
	return nil
}

// Live returns the messages not yet deleted.
func (r *Recorder) Live() []SentMessage {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]SentMessage, 0, len(r.live))
	for _, msg := range r.live {
		out = append(out, msg)
	}
	return out
}

// Log returns every send and edit in order.
func (r *Recorder) Log() []SentMessage {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	out := make([]SentMessage, len(r.log))
	copy(out, r.log)
	return out
}

// Last returns the most recent send or edit, or false if none happened.
func (r *Recorder) Last() (SentMessage, bool) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	if len(r.log) == 0 {
		return SentMessage{}, false
	}
	return r.log[len(r.log)-1], true
}
