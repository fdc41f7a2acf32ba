// Package nats relays bus events between dev backend instances through a
// JetStream stream, so a socket client sees channel messages no matter which
// instance produced them.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/events"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	moduleName = "NATS"

	// StreamName holds every relayed event for MaxAge.
	StreamName    = "ASSISTANT_EVENTS"
	subjectPrefix = "assistant.events."
	MaxAge        = 10 * time.Minute

	publishTimeout = 5 * time.Second
)

// Subject is where events of eventType are published.
func Subject(eventType string) string {
	return subjectPrefix + eventType
}

func connect(url string) (*nats.Conn, jetstream.JetStream, error) {
	nc, err := nats.Connect(url,
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(5),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("nats: connect: %w", err)
	}
	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, nil, fmt.Errorf("nats: jetstream: %w", err)
	}
	return nc, js, nil
}

// Publisher sends events to the stream.
type Publisher struct {
	nc     *nats.Conn
	js     jetstream.JetStream
	logger logger.ILogger
}

// NewPublisher connects to url and makes sure the stream exists.
func NewPublisher(url string, log logger.ILogger) (*Publisher, error) {
	nc, js, err := connect(url)
	if err != nil {
		return nil, err
	}
	log = logger.OrNop(log)

	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	_, err = js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      StreamName,
		Subjects:  []string{subjectPrefix + ">"},
		Storage:   jetstream.MemoryStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    MaxAge,
	})
	if err != nil {
		// The stream may be managed elsewhere.
		log.Warn(moduleName, "Could not ensure stream", map[string]interface{}{"stream": StreamName, "error": err.Error()})
	}
	return &Publisher{nc: nc, js: js, logger: log}, nil
}

// Publish implements the bus publisher interface.
func (p *Publisher) Publish(e events.Event) error {
	data, err := Encode(e)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	if _, err := p.js.Publish(ctx, Subject(e.EventType()), data); err != nil {
		return fmt.Errorf("nats: publish %s: %w", e.EventType(), err)
	}
	return nil
}

func (p *Publisher) Close() {
	p.nc.Close()
}

// Encode is the wire form of e.
func Encode(e events.Event) ([]byte, error) {
	data, err := json.Marshal(events.BaseEvent{Type: e.EventType(), Data: e.Payload(), OccurredAt: e.Timestamp()})
	if err != nil {
		return nil, fmt.Errorf("nats: marshal %s: %w", e.EventType(), err)
	}
	return data, nil
}

// Decode reverses Encode. Events without a type take it from subject.
func Decode(subject string, data []byte) (events.BaseEvent, error) {
	var e events.BaseEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return events.BaseEvent{}, fmt.Errorf("nats: unmarshal %s: %w", subject, err)
	}
	if e.Type == "" && len(subject) > len(subjectPrefix) {
		e.Type = subject[len(subjectPrefix):]
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now()
	}
	return e, nil
}
