package implementation

import (
	"context"

	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/mapper"
	"essay-coach-be/internal/model"
	"essay-coach-be/internal/repository/contract"
	"essay-coach-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.ConversationMapper
}

func NewMessageRepository(db *gorm.DB) contract.MessageRepository {
	return &MessageRepositoryImpl{
		db:     db,
		mapper: mapper.NewConversationMapper(),
	}
}

func (r *MessageRepositoryImpl) Create(ctx context.Context, message *entity.Message) error {
	m := r.mapper.MessageToModel(message)
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return err
	}
	*message = *r.mapper.MessageToEntity(m)
	return nil
}

func (r *MessageRepositoryImpl) CreateBatch(ctx context.Context, messages []*entity.Message) error {
	if len(messages) == 0 {
		return nil
	}
	models := make([]*model.Message, len(messages))
	for i, msg := range messages {
		models[i] = r.mapper.MessageToModel(msg)
	}
	return r.db.WithContext(ctx).Create(models).Error
}

func (r *MessageRepositoryImpl) DeleteByConversationId(ctx context.Context, conversationId uuid.UUID) (int64, error) {
	res := r.db.WithContext(ctx).Where("conversation_id = ?", conversationId).Delete(&model.Message{})
	return res.RowsAffected, res.Error
}

func (r *MessageRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Message, error) {
	var models []*model.Message
	query := specification.Apply(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.MessagesToEntities(models), nil
}

func (r *MessageRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := specification.Apply(r.db.WithContext(ctx).Model(&model.Message{}), specs...)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
