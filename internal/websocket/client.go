package websocket

import (
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Message is the envelope of every frame in both directions.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type channelData struct {
	Channel string `json:"channel"`
}

// Client is a middleman between the websocket connection and the hub.
type Client struct {
	Hub *Hub

	// The websocket connection.
	Conn *websocket.Conn

	UserID string

	// Buffered channel of outbound messages.
	Send chan []byte
}

// readPump handles ping, subscribe and unsubscribe messages until the
// connection fails.
func (c *Client) readPump() {
	defer func() {
		c.Hub.remove(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.Hub.logger.Warn(moduleName, "Unexpected close", map[string]interface{}{"user_id": c.UserID, "error": err.Error()})
			}
			return
		}
		// Any application message proves the peer is alive.
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.Hub.logger.Warn(moduleName, "Ignoring malformed message", map[string]interface{}{"user_id": c.UserID})
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg Message) {
	switch msg.Type {
	case TypePing:
		c.enqueue(Message{Type: TypePong})
	case TypeSubscribe, TypeUnsubscribe:
		var data channelData
		if err := json.Unmarshal(msg.Data, &data); err != nil || data.Channel == "" {
			c.Hub.logger.Warn(moduleName, "Subscription without channel", map[string]interface{}{"user_id": c.UserID})
			return
		}
		if msg.Type == TypeSubscribe {
			c.Hub.subscribe(c, data.Channel)
		} else {
			c.Hub.unsubscribe(c, data.Channel)
		}
	}
}

func (c *Client) enqueue(msg Message) {
	raw, err := json.Marshal(msg)
	if err != nil {
		return
	}
	c.Hub.send(c, raw)
}

// writePump pumps messages from the hub to the websocket connection. Every
// message goes out as its own frame since peers decode one JSON value per
// frame.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// The hub closed the channel.
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
