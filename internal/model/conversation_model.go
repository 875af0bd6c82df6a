package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type Conversation struct {
	Id          uuid.UUID `gorm:"type:uuid;primaryKey"`
	UserId      uuid.UUID `gorm:"type:uuid;not null;index:idx_conversations_user_updated,priority:1"`
	SessionKey  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	Title       string    `gorm:"type:varchar(255);not null"`
	Status      string    `gorm:"type:varchar(20);not null;default:'active'"`
	LastMessage string    `gorm:"type:varchar(400)"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null;index:idx_conversations_user_updated,priority:2"`
}

func (Conversation) TableName() string {
	return "conversations"
}

type Message struct {
	Id             uuid.UUID         `gorm:"type:uuid;primaryKey"`
	ConversationId uuid.UUID         `gorm:"type:uuid;not null;index:idx_messages_conversation_created,priority:1"`
	Role           string            `gorm:"type:varchar(20);not null"`
	Content        string            `gorm:"type:text;not null"`
	Meta           datatypes.JSONMap `json:"meta"`
	CreatedAt      time.Time         `gorm:"not null;index:idx_messages_conversation_created,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}
