package realtime

import (
	"fmt"
	"log"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rpattn/fleetline/internal/domain"
)

// WebSocketFactory creates channels backed by one websocket connection each,
// dialed against the upstream change-stream endpoint with the channel name as
// a query parameter.
type WebSocketFactory struct {
	baseURL string
	dialer  *websocket.Dialer
}

// NewWebSocketFactory creates a factory dialing baseURL (ws:// or wss://).
func NewWebSocketFactory(baseURL string) *WebSocketFactory {
	return &WebSocketFactory{
		baseURL: baseURL,
		dialer: &websocket.Dialer{
			HandshakeTimeout: 10 * time.Second,
		},
	}
}

// Channel creates an unopened channel for the given scoped name.
func (f *WebSocketFactory) Channel(name string) Channel {
	return &wsChannel{
		url:      f.baseURL + "?channel=" + url.QueryEscape(name),
		dialer:   f.dialer,
		handlers: make(map[domain.ChangeType][]ChangeHandler),
	}
}

// wsFrame is one wire message: a change event with its payload.
type wsFrame struct {
	Event   string               `json:"event"`
	Payload domain.ChangePayload `json:"payload"`
}

type wsChannel struct {
	url    string
	dialer *websocket.Dialer

	mu       sync.Mutex
	handlers map[domain.ChangeType][]ChangeHandler
	conn     *websocket.Conn
	closed   bool
}

func (c *wsChannel) On(change domain.ChangeType, handler ChangeHandler) Channel {
	c.mu.Lock()
	c.handlers[change] = append(c.handlers[change], handler)
	c.mu.Unlock()
	return c
}

func (c *wsChannel) Subscribe(status StatusHandler) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fmt.Errorf("channel already closed")
	}
	if c.conn != nil {
		c.mu.Unlock()
		return fmt.Errorf("channel already subscribed")
	}
	c.mu.Unlock()

	status(StatusConnecting)

	conn, _, err := c.dialer.Dial(c.url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.url, err)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		_ = conn.Close()
		return fmt.Errorf("channel closed during dial")
	}
	c.conn = conn
	c.mu.Unlock()

	status(StatusSubscribed)
	go c.readLoop(conn, status)
	return nil
}

// readLoop delivers frames until the connection drops. A read failure after
// Unsubscribe stays silent; any other failure is reported as CLOSED so the
// owning subscription can enter its reconnection path.
func (c *wsChannel) readLoop(conn *websocket.Conn, status StatusHandler) {
	for {
		var frame wsFrame
		if err := conn.ReadJSON(&frame); err != nil {
			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if !closed {
				log.Printf("[realtime] websocket read failed: %v", err)
				status(StatusClosed)
			}
			return
		}

		c.mu.Lock()
		handlers := append([]ChangeHandler(nil), c.handlers[domain.ChangeType(frame.Event)]...)
		c.mu.Unlock()

		if len(handlers) == 0 {
			log.Printf("[realtime] no handler for websocket event %q", frame.Event)
			continue
		}
		for _, handler := range handlers {
			handler(frame.Payload)
		}
	}
}

func (c *wsChannel) Unsubscribe() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	deadline := time.Now().Add(time.Second)
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), deadline)
	return conn.Close()
}
