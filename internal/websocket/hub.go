package websocket

import (
	"sync"
	"time"

	"github.com/examforge/examforge-backend/internal/exam"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const sendBuffer = 32

// Client is one WebSocket connection of a session. All writes go through
// its send queue so that the write pump is the only writer.
type Client struct {
	sessionID string
	conn      *websocket.Conn
	send      chan interface{}
	done      chan struct{}
	once      sync.Once
}

// SessionID returns the session the client is attached to.
func (c *Client) SessionID() string { return c.sessionID }

// Send queues v without blocking. It returns false when the client is
// closed or too slow to keep up.
func (c *Client) Send(v interface{}) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- v:
		return true
	default:
		return false
	}
}

// Close stops the write pump and closes the connection.
func (c *Client) Close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}

// WritePump drains the send queue and keeps the connection alive with
// pings until the client is closed or a write fails.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case v := <-c.send:
			if err := WriteTyped(c.conn, v); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Hub tracks the connected clients of every session and fans session
// notifications out to them. It implements exam.Notifier.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[*Client]struct{}
	log     zerolog.Logger
}

// NewHub creates a new Hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[*Client]struct{}),
		log:     log.With().Str("component", "ws_hub").Logger(),
	}
}

// Register attaches conn to sessionID.
func (h *Hub) Register(sessionID string, conn *websocket.Conn) *Client {
	c := &Client{
		sessionID: sessionID,
		conn:      conn,
		send:      make(chan interface{}, sendBuffer),
		done:      make(chan struct{}),
	}
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	h.mu.Lock()
	set, ok := h.clients[sessionID]
	if !ok {
		set = make(map[*Client]struct{})
		h.clients[sessionID] = set
	}
	set[c] = struct{}{}
	h.mu.Unlock()
	return c
}

// Unregister detaches and closes c.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if set, ok := h.clients[c.sessionID]; ok {
		delete(set, c)
		if len(set) == 0 {
			delete(h.clients, c.sessionID)
		}
	}
	h.mu.Unlock()
	c.Close()
}

// Count returns the number of connected clients of sessionID.
func (h *Hub) Count(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[sessionID])
}

// Notify implements exam.Notifier. It never blocks: a client whose queue is
// full misses the notification.
func (h *Hub) Notify(sessionID string, n exam.Notification) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for c := range h.clients[sessionID] {
		if !c.Send(NotificationResponse{Event: EventNotification, Notification: n}) {
			h.log.Warn().
				Str("session_id", sessionID).
				Str("kind", string(n.Kind)).
				Msg("Client queue full, dropping notification")
		}
	}
}
