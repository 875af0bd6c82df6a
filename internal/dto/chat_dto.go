package dto

import (
	"time"

	"github.com/google/uuid"
)

type SendMessageRequest struct {
	Prompt string `json:"prompt" validate:"required,max=20000"`
}

type ChatMessageResponse struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	// Display is the timestamp rendered in the configured zone, e.g.
	// "[2024-03-05 10:00:00]".
	Display string `json:"display"`
}

type SessionResponse struct {
	ConversationId *uuid.UUID            `json:"conversation_id"`
	Messages       []ChatMessageResponse `json:"messages"`
	Page           int                   `json:"page"`
}

type SendMessageResponse struct {
	ConversationId uuid.UUID           `json:"conversation_id"`
	Title          string              `json:"title"`
	Mode           string              `json:"mode"`
	Sent           ChatMessageResponse `json:"sent"`
	Reply          ChatMessageResponse `json:"reply"`
}

type ConversationSummaryResponse struct {
	Id          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	LastMessage string    `json:"last_message"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type ConversationListResponse struct {
	Items   []ConversationSummaryResponse `json:"items"`
	Page    int                           `json:"page"`
	Size    int                           `json:"size"`
	Total   int64                         `json:"total"`
	HasMore bool                          `json:"has_more"`
	// HasPrevious mirrors the Previous button: shown only past the first page.
	HasPrevious bool `json:"has_previous"`
}
