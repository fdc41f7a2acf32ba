package events

import "time"

// Event is something one manager announces for others to react to.
type Event interface {
	EventType() string
	Payload() map[string]interface{}
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string                 `json:"type"`
	Data       map[string]interface{} `json:"data,omitempty"`
	OccurredAt time.Time              `json:"occurred_at"`
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

const (
	// TypeKnowledgeInvalidated is published when background jobs finished and
	// knowledge listings (collections, blobs) are stale.
	TypeKnowledgeInvalidated = "knowledge.invalidated"
	// TypeSessionsChanged is published after a chat created or removed a session.
	TypeSessionsChanged = "chat.sessions_changed"
	// TypeChannelMessage carries a message for WebSocket subscribers of a
	// channel: {"channel": name, "data": payload}.
	TypeChannelMessage = "socket.channel_message"
)

func New(eventType string, data map[string]interface{}) BaseEvent {
	return BaseEvent{Type: eventType, Data: data, OccurredAt: time.Now()}
}

// ChannelMessage builds a TypeChannelMessage event.
func ChannelMessage(channel string, data interface{}) BaseEvent {
	return New(TypeChannelMessage, map[string]interface{}{"channel": channel, "data": data})
}
