package service

import (
	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/events"
)

// Socket channels the dev backend publishes on.
const (
	ChannelJobs     = "jobs"
	ChannelSessions = "sessions"
)

type IPublisherService interface {
	PublishToChannel(channel string, data interface{})
}

// EventPublisher is the local bus, or the NATS relay when instances share
// their socket channels.
type EventPublisher interface {
	Publish(e events.Event) error
}

type publisherService struct {
	bus    EventPublisher
	logger logger.ILogger
}

func NewPublisherService(bus EventPublisher, log logger.ILogger) IPublisherService {
	return &publisherService{bus: bus, logger: logger.OrNop(log)}
}

func (p *publisherService) PublishToChannel(channel string, data interface{}) {
	if err := p.bus.Publish(events.ChannelMessage(channel, data)); err != nil {
		p.logger.Error("PublisherService", "Failed to publish channel message", map[string]interface{}{
			"channel": channel,
			"error":   err.Error(),
		})
	}
}
