package store

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Message is one entry of a session's in-memory log.
type Message struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Session represents the active user session state in memory. Fields are
// guarded by the embedded mutex; callers outside the session manager should
// only read a Snapshot.
type Session struct {
	mu sync.Mutex

	UserID uuid.UUID
	Email  string
	Role   string

	// Key identifies the conversation this session will create on its first
	// persisted turn. It is regenerated on every reset.
	Key            uuid.UUID
	ConversationID *uuid.UUID
	Messages       []Message

	Page    int
	HasMore bool

	// Generation changes whenever the session is reset, reloaded or
	// destroyed; a turn started under an older generation is stale.
	Generation uint64
	InFlight   bool
}

func (s *Session) Lock()   { s.mu.Lock() }
func (s *Session) Unlock() { s.mu.Unlock() }

// View is an immutable copy of a Session.
type View struct {
	UserID         uuid.UUID
	ConversationID *uuid.UUID
	Messages       []Message
	Page           int
	HasMore        bool
}

func (s *Session) Snapshot() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := View{
		UserID:   s.UserID,
		Messages: append([]Message(nil), s.Messages...),
		Page:     s.Page,
		HasMore:  s.HasMore,
	}
	if s.ConversationID != nil {
		id := *s.ConversationID
		v.ConversationID = &id
	}
	return v
}
