package live

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Client is one connected player socket. Outbound messages flow through a
// buffered channel drained by the transport's write pump; if the buffer
// fills the message is dropped rather than blocking the runtime.
type Client struct {
	UserID    string
	CompanyID string

	mu     sync.Mutex
	closed bool
	send   chan []byte
}

// NewClient creates a client for the given player.
func NewClient(userID, companyID string) *Client {
	return &Client{
		UserID:    userID,
		CompanyID: companyID,
		send:      make(chan []byte, 256),
	}
}

// Outbound exposes the client's outbound message stream.
func (c *Client) Outbound() <-chan []byte {
	return c.send
}

// Send marshals and queues a message for this client. Safe to call after
// the client has been removed from its hub.
func (c *Client) Send(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal outbound message", "err", err)
		return
	}
	c.deliver(data)
}

func (c *Client) deliver(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		// Drop if buffer full to avoid blocking the phase loop.
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub fans messages out to every client of one session. Clients may be
// added or removed concurrently with a broadcast.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*Client]struct{})}
}

// Add registers a client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

// Remove drops a client and closes its outbound channel.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		c.close()
	}
}

// Len reports the number of attached clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends a message to every attached client.
func (h *Hub) Broadcast(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("marshal broadcast message", "err", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		c.deliver(data)
	}
}
