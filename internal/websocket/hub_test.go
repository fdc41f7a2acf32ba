package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"ai-assistant-client/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startHub(t *testing.T) (*Hub, *events.Bus) {
	t.Helper()
	bus := events.NewBus(nil)
	hub := NewHub(bus, nil)
	ctx, cancel := context.WithCancel(context.Background())
	go func() { _ = hub.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		_ = bus.Close()
	})
	return hub, bus
}

func receive(t *testing.T, c *Client) Message {
	t.Helper()
	select {
	case raw, ok := <-c.Send:
		require.True(t, ok, "send channel closed")
		var msg Message
		require.NoError(t, json.Unmarshal(raw, &msg))
		return msg
	case <-time.After(time.Second):
		t.Fatal("no message received")
		return Message{}
	}
}

func TestHubRoutesBusMessagesToSubscribers(t *testing.T) {
	hub, bus := startHub(t)

	jobs := &Client{Hub: hub, UserID: "a", Send: make(chan []byte, 4)}
	other := &Client{Hub: hub, UserID: "b", Send: make(chan []byte, 4)}
	require.True(t, hub.add(jobs))
	require.True(t, hub.add(other))
	hub.subscribe(jobs, "jobs")
	hub.subscribe(other, "sessions")
	assert.Equal(t, 1, hub.Subscribers("jobs"))

	require.NoError(t, bus.Publish(events.ChannelMessage("jobs", map[string]interface{}{"id": "job-1"})))

	msg := receive(t, jobs)
	assert.Equal(t, "jobs", msg.Type)
	assert.JSONEq(t, `{"id":"job-1"}`, string(msg.Data))
	assert.Empty(t, other.Send)

	hub.unsubscribe(jobs, "jobs")
	assert.Equal(t, 0, hub.Subscribers("jobs"))
}

func TestHubClosesClientsOnRemove(t *testing.T) {
	hub, _ := startHub(t)

	c := &Client{Hub: hub, UserID: "a", Send: make(chan []byte, 1)}
	require.True(t, hub.add(c))
	hub.subscribe(c, "jobs")
	hub.remove(c)

	_, ok := <-c.Send
	assert.False(t, ok)
	assert.Equal(t, 0, hub.Subscribers("jobs"))

	// Messages to removed clients are dropped.
	hub.send(c, []byte(`{}`))
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	hub, _ := startHub(t)

	c := &Client{Hub: hub, UserID: "a", Send: make(chan []byte, 1)}
	require.True(t, hub.add(c))
	hub.subscribe(c, "jobs")

	hub.Publish("jobs", 1)
	hub.Publish("jobs", 2)

	msg := receive(t, c)
	assert.Equal(t, "1", string(msg.Data))
	assert.Empty(t, c.Send)
}
