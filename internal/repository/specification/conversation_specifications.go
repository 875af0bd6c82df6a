package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ByConversationID struct {
	ConversationID uuid.UUID
}

func (s ByConversationID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("conversation_id = ?", s.ConversationID)
}

type BySessionKey struct {
	SessionKey uuid.UUID
}

func (s BySessionKey) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("session_key = ?", s.SessionKey)
}

// Chronological orders messages oldest first.
var Chronological = OrderBy{Field: "created_at"}

// RecentlyUpdated orders conversations newest activity first.
var RecentlyUpdated = OrderBy{Field: "updated_at", Desc: true}
