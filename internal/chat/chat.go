package chat

import "context"

// Event is one inbound messaging-surface event, keyed by (chat, user). It
// carries either free text or an opaque button payload, never both.
type Event struct {
	ChatID    int64  `json:"chat_id"`
	UserID    int64  `json:"user_id"`
	UserName  string `json:"user_name"`
	MessageID int64  `json:"message_id"`
	Text      string `json:"text,omitempty"`
	Payload   string `json:"payload,omitempty"`
}

// IsButton reports whether the event is a button press rather than free text.
func (e Event) IsButton() bool {
	return e.Payload != ""
}

// Button is one keyboard button; the payload round-trips exactly, the label
// does not matter to the core.
type Button struct {
	Label   string `json:"label"`
	Payload string `json:"payload"`
}

// Keyboard is rows of buttons.
type Keyboard [][]Button

// Prompt is one outbound message: text plus an optional keyboard.
type Prompt struct {
	Text     string   `json:"text"`
	Keyboard Keyboard `json:"keyboard,omitempty"`
}

// Messenger lets the core send, edit and delete messages on the messaging
// surface. The rendering of prompts and keyboards is the surface's business.
type Messenger interface {
	Send(ctx context.Context, chatID int64, prompt Prompt) (int64, error)
	Edit(ctx context.Context, chatID, messageID int64, prompt Prompt) error
	Delete(ctx context.Context, chatID, messageID int64) error
}
