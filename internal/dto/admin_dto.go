package dto

import (
	"time"

	"essay-coach-be/pkg/coach/export"

	"github.com/google/uuid"
)

type DashboardStatsResponse struct {
	TotalUsers         int64 `json:"total_users"`
	TotalConversations int64 `json:"total_conversations"`
	ActiveSessions     int   `json:"active_sessions"`
}

type AdminUserResponse struct {
	Id         uuid.UUID  `json:"id"`
	Email      string     `json:"email"`
	Role       string     `json:"role"`
	CreatedAt  time.Time  `json:"created_at"`
	LastActive *time.Time `json:"last_active"`
}

type AdminCreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type AdminConversationResponse struct {
	Id           uuid.UUID `json:"id"`
	UserId       uuid.UUID `json:"user_id"`
	Title        string    `json:"title"`
	Status       string    `json:"status"`
	LastMessage  string    `json:"last_message"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	MessageCount int64     `json:"message_count"`
}

type TranscriptResponse struct {
	Conversation AdminConversationResponse `json:"conversation"`
	Rows         []export.Row              `json:"rows"`
}

type BulkDeleteConversationsRequest struct {
	Ids []uuid.UUID `json:"ids" validate:"required,min=1,max=500"`
}

type DeleteResultResponse struct {
	Deleted int `json:"deleted"`
}
