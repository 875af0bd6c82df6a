package contract

import (
	"context"

	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/repository/specification"

	"github.com/google/uuid"
)

type ConversationRepository interface {
	// CreateIfAbsent inserts conversation unless one with the same session key
	// exists. Either way conversation is overwritten with the stored row.
	CreateIfAbsent(ctx context.Context, conversation *entity.Conversation) (bool, error)
	UpdateFields(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Conversation, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Conversation, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}

type MessageRepository interface {
	Create(ctx context.Context, message *entity.Message) error
	CreateBatch(ctx context.Context, messages []*entity.Message) error
	DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) (int64, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)
}
