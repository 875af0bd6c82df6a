package entity

import (
	"time"

	"github.com/google/uuid"
)

type Conversation struct {
	Id          uuid.UUID
	UserId      uuid.UUID
	SessionKey  uuid.UUID
	Title       string
	Status      string
	LastMessage string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Message struct {
	Id             uuid.UUID
	ConversationId uuid.UUID
	Role           string
	Content        string
	Meta           map[string]interface{}
	CreatedAt      time.Time
}

// ConversationPage is one zero-indexed page of a user's conversations,
// newest activity first.
type ConversationPage struct {
	Items   []*Conversation `json:"items"`
	Page    int             `json:"page"`
	Size    int             `json:"size"`
	Total   int64           `json:"total"`
	HasMore bool            `json:"has_more"`
}
