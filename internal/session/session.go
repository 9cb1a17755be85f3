package session

import (
	"sync"
	"time"

	"github.com/Omni-crm/talpan-bot-sub000/models"
	"github.com/Omni-crm/talpan-bot-sub000/pkg/logger"
)

// Key identifies a builder session. The messaging surface delivers a given
// (chat, user) pair's events serially, so a session is effectively
// single-threaded and its draft needs no lock of its own.
type Key struct {
	ChatID int64
	UserID int64
}

// Session holds the in-progress draft for one (chat, user) pair, the
// navigation stack behind it, and the id of the last prompt shown so cleanup
// can delete stray messages.
type Session struct {
	Key       Key
	UserName  string
	Draft     models.DraftOrder
	Nav       *NavStack
	PromptID  int64
	StartedAt time.Time
	LastSeen  time.Time
}

// Touch marks the session as active now.
func (s *Session) Touch() {
	s.LastSeen = time.Now()
}

// Store is the arena of live builder sessions with explicit create/expire
// lifecycle. Many units of work may run concurrently across different
// (chat, user) pairs; the store's own map is the only shared state.
type Store struct {
	mutex    sync.Mutex
	sessions map[Key]*Session
	navDepth int
	timeout  time.Duration
	logger   *logger.Logger
}

// NewStore creates a session store. navDepth bounds each session's
// navigation stack; timeout is the idle window after which a session expires.
func NewStore(navDepth int, timeout time.Duration, log *logger.Logger) *Store {
	return &Store{
		sessions: make(map[Key]*Session),
		navDepth: navDepth,
		timeout:  timeout,
		logger:   log.WithComponent("session_store"),
	}
}

// Create starts a fresh session for key, replacing any existing one.
func (s *Store) Create(key Key, userName string) *Session {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	sess := &Session{
		Key:       key,
		UserName:  userName,
		Draft:     models.DraftOrder{Cursor: models.StateCustomerName},
		Nav:       NewNavStack(s.navDepth),
		StartedAt: now,
		LastSeen:  now,
	}
	s.sessions[key] = sess

	s.logger.Info("Session created", "chat_id", key.ChatID, "user_id", key.UserID)
	return sess
}

// Get returns the session for key, or nil when none exists. A session idle
// past the timeout is removed on access and returned with expired true so
// the caller can clean up its stray prompt; a live session comes back with
// expired false.
func (s *Store) Get(key Key) (sess *Session, expired bool) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	sess, ok := s.sessions[key]
	if !ok {
		return nil, false
	}
	if s.timeout > 0 && time.Since(sess.LastSeen) > s.timeout {
		delete(s.sessions, key)
		s.logger.Info("Session expired on access", "chat_id", key.ChatID, "user_id", key.UserID)
		return sess, true
	}
	return sess, false
}

// Delete destroys the session for key, discarding the draft.
func (s *Store) Delete(key Key) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, ok := s.sessions[key]; ok {
		delete(s.sessions, key)
		s.logger.Info("Session destroyed", "chat_id", key.ChatID, "user_id", key.UserID)
	}
}

// Count returns the number of live sessions.
func (s *Store) Count() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return len(s.sessions)
}

// CollectExpired removes every session idle past the timeout and returns
// them so the caller can clean up stray prompts.
func (s *Store) CollectExpired() []*Session {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.timeout <= 0 {
		return nil
	}

	var expired []*Session
	now := time.Now()
	for key, sess := range s.sessions {
		if now.Sub(sess.LastSeen) > s.timeout {
			expired = append(expired, sess)
			delete(s.sessions, key)
		}
	}

	if len(expired) > 0 {
		s.logger.Info("Collected expired sessions", "count", len(expired))
	}
	return expired
}
