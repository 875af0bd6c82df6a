package service

import (
	"context"
	"fmt"

	"essay-coach-be/internal/pkg/logger"
	"essay-coach-be/pkg/coach/session"
	"essay-coach-be/pkg/events"

	"github.com/google/uuid"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService reacts to domain events published on the in-process bus.
type consumerService struct {
	bus      *events.Bus
	sessions *session.Manager
	logger   logger.ILogger
}

func NewConsumerService(bus *events.Bus, sessions *session.Manager, log logger.ILogger) IConsumerService {
	return &consumerService{
		bus:      bus,
		sessions: sessions,
		logger:   log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	onError := func(err error) {
		cs.logger.Error("EVENTS", "Event handling failed", map[string]interface{}{"error": err.Error()})
	}

	if err := cs.bus.Subscribe(ctx, events.TypeConversationDeleted, cs.handleConversationDeleted, onError); err != nil {
		return err
	}
	return cs.bus.Subscribe(ctx, events.TypeTurnCompleted, cs.handleTurnCompleted, onError)
}

// handleConversationDeleted detaches the owner's live session when it is
// positioned on the deleted conversation.
func (cs *consumerService) handleConversationDeleted(ctx context.Context, event events.Event) error {
	conversationId, err := payloadUUID(event, "conversation_id")
	if err != nil {
		cs.logger.Warn("EVENTS", "Dropping malformed delete event", map[string]interface{}{"error": err.Error()})
		return nil
	}
	userId, err := payloadUUID(event, "user_id")
	if err != nil {
		cs.logger.Warn("EVENTS", "Dropping malformed delete event", map[string]interface{}{"error": err.Error()})
		return nil
	}

	if cs.sessions.DetachConversation(ctx, userId, conversationId) {
		cs.logger.Info("EVENTS", "Live session reset after conversation delete", map[string]interface{}{
			"user_id":         userId.String(),
			"conversation_id": conversationId.String(),
		})
	}
	return nil
}

func (cs *consumerService) handleTurnCompleted(ctx context.Context, event events.Event) error {
	cs.logger.Debug("EVENTS", "Turn completed", event.Payload())
	return nil
}

func payloadUUID(event events.Event, key string) (uuid.UUID, error) {
	raw, ok := event.Payload()[key].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("%s event is missing %s", event.EventType(), key)
	}
	return uuid.Parse(raw)
}
