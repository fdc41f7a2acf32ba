package websocket

import (
	"context"
	"encoding/json"
	"sync"

	"ai-assistant-client/internal/pkg/logger"
	"ai-assistant-client/pkg/events"
)

const moduleName = "Hub"

const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
)

// Hub routes channel messages from the event bus to subscribed clients.
type Hub struct {
	// Registered clients and the channels each one listens to.
	clients map[*Client]map[string]bool

	// Register requests from the clients.
	register chan *Client

	// Unregister requests from clients.
	unregister chan *Client

	// Lock for safe map access
	mu sync.RWMutex

	// done is closed when Run returns.
	done chan struct{}

	bus    *events.Bus
	logger logger.ILogger
}

func NewHub(bus *events.Bus, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[*Client]map[string]bool),
		done:       make(chan struct{}),
		bus:        bus,
		logger:     logger.OrNop(log),
	}
}

// Run processes registrations until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	if err := h.bus.Subscribe(ctx, events.TypeChannelMessage, h.onChannelMessage); err != nil {
		return err
	}

	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for client := range h.clients {
				close(client.Send)
				delete(h.clients, client)
			}
			h.mu.Unlock()
			return nil

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = make(map[string]bool)
			h.mu.Unlock()
			h.logger.Info(moduleName, "Client registered", map[string]interface{}{"user_id": client.UserID})

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.Send)
				h.logger.Info(moduleName, "Client unregistered", map[string]interface{}{"user_id": client.UserID})
			}
			h.mu.Unlock()
		}
	}
}

// add registers c, reporting false once the hub has stopped.
func (h *Hub) add(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) remove(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) subscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.clients[c]; ok {
		subs[channel] = true
	}
}

func (h *Hub) unsubscribe(c *Client, channel string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.clients[c]; ok {
		delete(subs, channel)
	}
}

// Subscribers counts the clients listening to channel.
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.clients {
		if subs[channel] {
			n++
		}
	}
	return n
}

// send queues raw for c. Messages to a client whose buffer is full are dropped.
func (h *Hub) send(c *Client, raw []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.Send <- raw:
	default:
		h.logger.Warn(moduleName, "Client Send buffer full, dropping message", map[string]interface{}{"user_id": c.UserID})
	}
}

// Publish sends data to every subscriber of channel.
func (h *Hub) Publish(channel string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(moduleName, "Cannot encode channel message", map[string]interface{}{"channel": channel, "error": err.Error()})
		return
	}
	raw, err := json.Marshal(Message{Type: channel, Data: payload})
	if err != nil {
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client, subs := range h.clients {
		if !subs[channel] {
			continue
		}
		select {
		case client.Send <- raw:
		default:
			h.logger.Warn(moduleName, "Client Send buffer full, dropping message", map[string]interface{}{"user_id": client.UserID})
		}
	}
}

func (h *Hub) onChannelMessage(e events.Event) {
	channel, _ := e.Payload()["channel"].(string)
	if channel == "" {
		h.logger.Warn(moduleName, "Channel message without channel", nil)
		return
	}
	h.Publish(channel, e.Payload()["data"])
}
