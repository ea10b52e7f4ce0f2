// Package broadcast is the process-wide event bus: a set of connected
// WebSocket clients, each with an optional repoId subscription, fanned out
// to from scan/plan/branch mutations, per spec.md §4.8. Grounded on
// gateway.SessionManager's connection registry and gateway.Router's
// message envelope.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const maxConsecutiveSendFailures = 2

// Client is one connected WebSocket subscriber.
type Client struct {
	ID   string
	conn *websocket.Conn

	mu             sync.Mutex
	repoID         string // empty means "receive everything"
	subscribed     bool
	sendFailures   int
}

func newClient(conn *websocket.Conn) *Client {
	return &Client{ID: uuid.New().String(), conn: conn}
}

// Subscribe narrows this client to messages scoped to repoID, per the
// `{type:"subscribe", repoId}` client frame.
func (c *Client) Subscribe(repoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.repoID = repoID
	c.subscribed = true
}

// HandleClientFrame applies an incoming client frame if it's a subscribe
// request, reporting whether it was one.
func (c *Client) HandleClientFrame(data []byte) bool {
	repoID, ok := decodeSubscribe(data)
	if !ok {
		return false
	}
	c.Subscribe(repoID)
	return true
}

func (c *Client) matches(m Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subscribed || c.repoID == "" {
		return true
	}
	if m.RepoID != "" && m.RepoID == c.repoID {
		return true
	}
	if m.SessionID != "" && m.SessionID == c.repoID {
		return true
	}
	return m.RepoID == "" && m.SessionID == ""
}

func (c *Client) send(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Hub owns every live bus connection. Zero value is not usable; use New.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *slog.Logger
}

// New creates an empty Hub.
func New(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

// Register adds a new connection to the hub and returns its Client handle.
func (h *Hub) Register(conn *websocket.Conn) *Client {
	c := newClient(conn)
	h.mu.Lock()
	h.clients[c.ID] = c
	h.mu.Unlock()
	return c
}

// Unregister removes a client, e.g. on disconnect.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.ID)
	h.mu.Unlock()
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends msg to every client whose subscription is absent or
// matches, per spec.md §4.8. Delivery is fire-and-forget: a client whose
// send fails twice in a row is dropped.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("broadcast: failed to marshal message", "type", msg.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.matches(msg) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	var dropped []*Client
	for _, c := range targets {
		if err := c.send(data); err != nil {
			c.mu.Lock()
			c.sendFailures++
			failures := c.sendFailures
			c.mu.Unlock()
			h.logger.Warn("broadcast: send failed", "client", c.ID, "error", err, "consecutiveFailures", failures)
			if failures >= maxConsecutiveSendFailures {
				dropped = append(dropped, c)
			}
			continue
		}
		c.mu.Lock()
		c.sendFailures = 0
		c.mu.Unlock()
	}

	for _, c := range dropped {
		h.Unregister(c)
	}
}
