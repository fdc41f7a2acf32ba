package events

import (
	"context"
	"encoding/json"
	"fmt"

	"ai-assistant-client/internal/pkg/logger"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

const moduleName = "EventBus"

// Bus is an in-process publish/subscribe bus. Each event type is a topic.
type Bus struct {
	pubSub *gochannel.GoChannel
	logger logger.ILogger
}

func NewBus(log logger.ILogger) *Bus {
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 64},
		watermill.NewStdLogger(false, false),
	)
	return &Bus{pubSub: pubSub, logger: logger.OrNop(log)}
}

func (b *Bus) Publish(e Event) error {
	payload, err := json.Marshal(BaseEvent{
		Type:       e.EventType(),
		Data:       e.Payload(),
		OccurredAt: e.Timestamp(),
	})
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", e.EventType(), err)
	}
	return b.pubSub.Publish(e.EventType(), message.NewMessage(watermill.NewUUID(), payload))
}

// Subscribe calls handler for every event of eventType until ctx is done.
// Handlers run on a dedicated goroutine per subscription.
func (b *Bus) Subscribe(ctx context.Context, eventType string, handler func(Event)) error {
	messages, err := b.pubSub.Subscribe(ctx, eventType)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			var e BaseEvent
			if err := json.Unmarshal(msg.Payload, &e); err != nil {
				b.logger.Error(moduleName, "Dropping malformed event", map[string]interface{}{
					"topic": eventType,
					"error": err.Error(),
				})
				msg.Ack()
				continue
			}
			handler(e)
			msg.Ack()
		}
	}()
	return nil
}

func (b *Bus) Close() error {
	return b.pubSub.Close()
}
