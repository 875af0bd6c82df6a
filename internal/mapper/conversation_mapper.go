package mapper

import (
	"essay-coach-be/internal/entity"
	"essay-coach-be/internal/model"

	"gorm.io/datatypes"
)

type ConversationMapper struct{}

func NewConversationMapper() *ConversationMapper {
	return &ConversationMapper{}
}

func (m *ConversationMapper) ConversationToEntity(c *model.Conversation) *entity.Conversation {
	if c == nil {
		return nil
	}
	return &entity.Conversation{
		Id:          c.Id,
		UserId:      c.UserId,
		SessionKey:  c.SessionKey,
		Title:       c.Title,
		Status:      c.Status,
		LastMessage: c.LastMessage,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

func (m *ConversationMapper) ConversationToModel(c *entity.Conversation) *model.Conversation {
	if c == nil {
		return nil
	}
	return &model.Conversation{
		Id:          c.Id,
		UserId:      c.UserId,
		SessionKey:  c.SessionKey,
		Title:       c.Title,
		Status:      c.Status,
		LastMessage: c.LastMessage,
		CreatedAt:   c.CreatedAt.UTC(),
		UpdatedAt:   c.UpdatedAt.UTC(),
	}
}

func (m *ConversationMapper) MessageToEntity(msg *model.Message) *entity.Message {
	if msg == nil {
		return nil
	}
	var meta map[string]interface{}
	if msg.Meta != nil {
		meta = map[string]interface{}(msg.Meta)
	}
	return &entity.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Meta:           meta,
		CreatedAt:      msg.CreatedAt,
	}
}

func (m *ConversationMapper) MessageToModel(msg *entity.Message) *model.Message {
	if msg == nil {
		return nil
	}
	var meta datatypes.JSONMap
	if msg.Meta != nil {
		meta = datatypes.JSONMap(msg.Meta)
	}
	return &model.Message{
		Id:             msg.Id,
		ConversationId: msg.ConversationId,
		Role:           msg.Role,
		Content:        msg.Content,
		Meta:           meta,
		CreatedAt:      msg.CreatedAt.UTC(),
	}
}

func (m *ConversationMapper) MessagesToEntities(models []*model.Message) []*entity.Message {
	out := make([]*entity.Message, len(models))
	for i, msg := range models {
		out[i] = m.MessageToEntity(msg)
	}
	return out
}
