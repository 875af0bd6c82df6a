package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type Handler func(ctx context.Context, event Event) error

// Bus is the in-process event bus. Topics are event types.
type Bus struct {
	pubSub *gochannel.GoChannel
}

func NewBus(logger watermill.LoggerAdapter) *Bus {
	return &Bus{
		pubSub: gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger),
	}
}

func (b *Bus) Publish(_ context.Context, event Event) error {
	payload, err := json.Marshal(toEnvelope(event))
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	return b.pubSub.Publish(event.EventType(), msg)
}

// Subscribe runs handler for every event of eventType until ctx is done.
// Malformed payloads are acked and dropped; handler errors are nacked.
func (b *Bus) Subscribe(ctx context.Context, eventType string, handler Handler, onError func(error)) error {
	messages, err := b.pubSub.Subscribe(ctx, eventType)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var env envelope
			if err := json.Unmarshal(msg.Payload, &env); err != nil {
				onError(fmt.Errorf("decode %s event: %w", eventType, err))
				msg.Ack()
				continue
			}
			event := BaseEvent{Type: env.Type, Data: env.Data, OccurredAt: env.OccurredAt}
			if err := handler(msg.Context(), event); err != nil {
				onError(fmt.Errorf("handle %s event: %w", eventType, err))
				msg.Nack()
				continue
			}
			msg.Ack()
		}
	}()

	return nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
