// Package socket is a client for the platform's pub/sub WebSocket channel.
//
// One connection is shared by all subscribers. Subscriptions are reference
// counted per channel, a ping/pong heartbeat detects dead connections and
// forces a reconnect that restores the active subscriptions.
package socket

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"ai-assistant-client/internal/pkg/logger"

	"github.com/gorilla/websocket"
)

const (
	moduleName = "Socket"

	DefaultHeartbeatInterval = 30 * time.Second
	DefaultHeartbeatTimeout  = 20 * time.Second

	writeWait = 10 * time.Second
	wsPath    = "/api/v1/ws"
)

// Message types understood by the server.
const (
	TypePing        = "ping"
	TypePong        = "pong"
	TypeSubscribe   = "subscribe"
	TypeUnsubscribe = "unsubscribe"
	TypeAppRun      = "app_run_updates"
)

var ErrNotConnected = errors.New("socket: not connected")

type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

type channelData struct {
	Channel string `json:"channel"`
}

// Handler receives the data of a message.
type Handler func(data json.RawMessage)

type Options struct {
	BaseURL string
	Token   string
	// Protocol is offered next to the auth subprotocol. Defaults to "intric".
	Protocol             string
	DefaultSubscriptions []string
	HeartbeatInterval    time.Duration
	HeartbeatTimeout     time.Duration
	Dialer               *websocket.Dialer
	Logger               logger.ILogger
}

type Socket struct {
	url       string
	protocols []string
	defaults  []string
	interval  time.Duration
	timeout   time.Duration
	dialer    *websocket.Dialer
	logger    logger.ILogger

	mu          sync.Mutex
	conn        *websocket.Conn
	done        chan struct{}
	closed      bool
	handlers    map[string]map[int]Handler
	nextHandler int
	subs        map[string]int
	pongTimer   *time.Timer

	writeMu sync.Mutex
}

func New(opts Options) (*Socket, error) {
	target, err := socketURL(opts.BaseURL)
	if err != nil {
		return nil, err
	}
	s := &Socket{
		url:       target,
		protocols: []string{opts.Protocol, "auth_" + opts.Token},
		defaults:  opts.DefaultSubscriptions,
		interval:  opts.HeartbeatInterval,
		timeout:   opts.HeartbeatTimeout,
		dialer:    opts.Dialer,
		logger:    logger.OrNop(opts.Logger),
		handlers:  make(map[string]map[int]Handler),
		subs:      make(map[string]int),
	}
	if s.protocols[0] == "" {
		s.protocols[0] = "intric"
	}
	if s.interval <= 0 {
		s.interval = DefaultHeartbeatInterval
	}
	if s.timeout <= 0 {
		s.timeout = DefaultHeartbeatTimeout
	}
	if s.dialer == nil {
		s.dialer = websocket.DefaultDialer
	}
	return s, nil
}

func socketURL(base string) (string, error) {
	u, err := url.Parse(base)
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("socket: invalid base url %q", base)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	default:
		u.Scheme = "wss"
	}
	u.Path = strings.TrimRight(u.Path, "/") + wsPath
	u.RawQuery = ""
	return u.String(), nil
}

// Connect opens the connection, starts the heartbeat and restores
// subscriptions, or applies the default ones on a first connect.
func (s *Socket) Connect(ctx context.Context) error {
	s.mu.Lock()
	s.closed = false
	s.mu.Unlock()
	return s.dial(ctx)
}

func (s *Socket) dial(ctx context.Context) error {
	dialer := *s.dialer
	dialer.Subprotocols = s.protocols
	conn, _, err := dialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("socket: dial: %w", err)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return ErrNotConnected
	}
	s.closeLocked()
	done := make(chan struct{})
	s.conn = conn
	s.done = done
	s.mu.Unlock()

	go s.readLoop(conn, done)
	go s.heartbeat(done)

	s.initSubscriptions()
	s.logger.Info(moduleName, "Connected", map[string]interface{}{"url": s.url})
	return nil
}

// Disconnect unsubscribes from everything, drops all handlers and closes the
// connection. Reconnects stop until Connect is called again.
func (s *Socket) Disconnect() {
	s.mu.Lock()
	if s.conn == nil {
		s.closed = true
		s.mu.Unlock()
		return
	}
	channels := make([]string, 0, len(s.subs))
	for ch := range s.subs {
		channels = append(channels, ch)
	}
	s.mu.Unlock()

	for _, ch := range channels {
		s.sendLogged(TypeUnsubscribe, channelData{Channel: ch})
	}

	s.mu.Lock()
	s.subs = make(map[string]int)
	s.handlers = make(map[string]map[int]Handler)
	s.closed = true
	s.closeLocked()
	s.mu.Unlock()
}

// closeLocked stops the current connection's goroutines and closes it.
func (s *Socket) closeLocked() {
	if s.pongTimer != nil {
		s.pongTimer.Stop()
		s.pongTimer = nil
	}
	if s.done != nil {
		close(s.done)
		s.done = nil
	}
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
}

// RegisterHandler adds a handler for a message type without subscribing.
func (s *Socket) RegisterHandler(msgType string, h Handler) (remove func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.nextHandler
	s.nextHandler++
	if s.handlers[msgType] == nil {
		s.handlers[msgType] = make(map[int]Handler)
	}
	s.handlers[msgType][id] = h

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.handlers[msgType], id)
	}
}

// Subscribe counts the subscriber and sends a subscribe message when it is
// the first one on channel. The returned function removes the handler and
// sends unsubscribe once the last subscriber of the channel is gone. h may be
// nil.
func (s *Socket) Subscribe(channel string, h Handler) (unsubscribe func()) {
	var remove func()
	if h != nil {
		remove = s.RegisterHandler(channel, h)
	}

	s.mu.Lock()
	s.subs[channel]++
	first := s.subs[channel] == 1
	s.mu.Unlock()
	if first {
		s.sendLogged(TypeSubscribe, channelData{Channel: channel})
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if remove != nil {
				remove()
			}
			s.mu.Lock()
			remaining := s.subs[channel]
			if remaining > 1 {
				s.subs[channel] = remaining - 1
				s.mu.Unlock()
				return
			}
			delete(s.subs, channel)
			s.mu.Unlock()
			s.sendLogged(TypeUnsubscribe, channelData{Channel: channel})
		})
	}
}

// Subscriptions returns the subscriber count per channel.
func (s *Socket) Subscriptions() map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]int, len(s.subs))
	for k, v := range s.subs {
		out[k] = v
	}
	return out
}

// Send writes a message on the current connection.
func (s *Socket) Send(msgType string, data any) error {
	msg := Message{Type: msgType}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		msg.Data = raw
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

func (s *Socket) sendLogged(msgType string, data any) {
	if err := s.Send(msgType, data); err != nil {
		s.logger.Warn(moduleName, "Could not send message", map[string]interface{}{
			"type":  msgType,
			"error": err.Error(),
		})
	}
}

func (s *Socket) initSubscriptions() {
	s.mu.Lock()
	channels := make([]string, 0, len(s.subs))
	for ch := range s.subs {
		channels = append(channels, ch)
	}
	s.mu.Unlock()

	if len(channels) > 0 {
		// Resend without touching the counts held from before the reconnect.
		for _, ch := range channels {
			s.sendLogged(TypeSubscribe, channelData{Channel: ch})
		}
		return
	}
	for _, ch := range s.defaults {
		s.Subscribe(ch, nil)
	}
}

func (s *Socket) readLoop(conn *websocket.Conn, done chan struct{}) {
	for {
		var msg Message
		if err := conn.ReadJSON(&msg); err != nil {
			var syntaxErr *json.SyntaxError
			if errors.As(err, &syntaxErr) {
				s.logger.Error(moduleName, "Failed to parse message", map[string]interface{}{"error": err.Error()})
				continue
			}
			select {
			case <-done:
			default:
				// Recovery is left to the heartbeat.
				s.logger.Warn(moduleName, "Read failed", map[string]interface{}{"error": err.Error()})
			}
			return
		}
		s.dispatch(msg)
	}
}

func (s *Socket) dispatch(msg Message) {
	s.mu.Lock()
	if msg.Type == TypePong && s.pongTimer != nil {
		s.pongTimer.Stop()
		s.pongTimer = nil
	}
	handlers := make([]Handler, 0, len(s.handlers[msg.Type]))
	for _, h := range s.handlers[msg.Type] {
		handlers = append(handlers, h)
	}
	s.mu.Unlock()

	for _, h := range handlers {
		h(msg.Data)
	}
}

func (s *Socket) heartbeat(done chan struct{}) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			// Armed before the ping goes out so a fast pong always finds it.
			s.mu.Lock()
			if s.done != done {
				s.mu.Unlock()
				return
			}
			if s.pongTimer == nil {
				s.pongTimer = time.AfterFunc(s.timeout, func() { s.reconnect(done) })
			}
			s.mu.Unlock()
			s.sendLogged(TypePing, nil)
		}
	}
}

// reconnect replaces a connection whose heartbeat timed out. Failed dials are
// retried every heartbeat interval until Disconnect.
func (s *Socket) reconnect(stale chan struct{}) {
	s.mu.Lock()
	if s.closed || s.done != stale {
		s.mu.Unlock()
		return
	}
	s.closeLocked()
	s.mu.Unlock()

	s.logger.Warn(moduleName, "Heartbeat timed out, reconnecting", nil)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), s.interval)
		err := s.dial(ctx)
		cancel()
		if err == nil || errors.Is(err, ErrNotConnected) {
			return
		}
		s.logger.Error(moduleName, "Reconnect failed", map[string]interface{}{"error": err.Error()})

		time.Sleep(s.interval)
		s.mu.Lock()
		stop := s.closed
		s.mu.Unlock()
		if stop {
			return
		}
	}
}
