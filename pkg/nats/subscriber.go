package nats

import (
	"context"
	"fmt"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Target receives relayed events, normally the local bus.
type Target interface {
	Publish(e events.Event) error
}

// Subscriber feeds events from the stream into a local target.
type Subscriber struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
}

func NewSubscriber(url string, log logger.ILogger) (*Subscriber, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	return &Subscriber{nc: nc, js: js, logger: logger.OrNop(log)}, nil
}

// Forward publishes every new event of the given types to target until ctx is
// done. Each instance gets its own ordered consumer, so all of them see every
// event.
func (s *Subscriber) Forward(ctx context.Context, target Target, eventTypes ...string) error {
	subjects := make([]string, 0, len(eventTypes))
	for _, t := range eventTypes {
		subjects = append(subjects, Subject(t))
	}

	consumer, err := s.js.OrderedConsumer(ctx, StreamName, jetstream.OrderedConsumerConfig{
		FilterSubjects: subjects,
		DeliverPolicy:  jetstream.DeliverNewPolicy,
	})
	if err != nil {
		return fmt.Errorf("nats: consumer: %w", err)
	}

	consumeCtx, err := consumer.Consume(func(msg jetstream.Msg) {
		e, err := Decode(msg.Subject(), msg.Data())
		if err != nil {
			s.logger.Error(moduleName, "Dropping malformed event", map[string]interface{}{"subject": msg.Subject(), "error": err.Error()})
			return
		}
		if err := target.Publish(e); err != nil {
			s.logger.Error(moduleName, "Could not forward event", map[string]interface{}{"type": e.Type, "error": err.Error()})
		}
	})
	if err != nil {
		return fmt.Errorf("nats: consume: %w", err)
	}

	go func() {
		<-ctx.Done()
		consumeCtx.Stop()
	}()
	s.logger.Info(moduleName, "Forwarding events", map[string]interface{}{"subjects": subjects})
	return nil
}

func (s *Subscriber) Close() {
	s.nc.Close()
}
