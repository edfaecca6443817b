package ws

import (
	"encoding/json"
	"sync"
)

// Client represents a single WebSocket connection with user context.
type Client struct {
	UserID uint
	Send   chan []byte
	Hub    *Hub // set so Close() can unregister
	mu     sync.Mutex
	closed bool
}

func NewClient(userID uint) *Client {
	return &Client{UserID: userID, Send: make(chan []byte, 64)}
}

func (c *Client) Close() {
	if c.Hub != nil {
		c.Hub.unregister(c)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.Send)
}

// trySend queues data without blocking. Slow clients drop messages.
func (c *Client) trySend(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// Hub maintains the set of active clients and broadcasts to them.
type Hub struct {
	mu sync.RWMutex
	// userID -> clients (one user can have multiple connections)
	byUser map[uint]map[*Client]struct{}
}

func NewHub() *Hub {
	return &Hub{byUser: make(map[uint]map[*Client]struct{})}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c.Hub = h
	if h.byUser[c.UserID] == nil {
		h.byUser[c.UserID] = make(map[*Client]struct{})
	}
	h.byUser[c.UserID][c] = struct{}{}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if m := h.byUser[c.UserID]; m != nil {
		delete(m, c)
		if len(m) == 0 {
			delete(h.byUser, c.UserID)
		}
	}
}

// BroadcastToUser sends payload to every connection of userID and reports how many accepted it.
func (h *Hub) BroadcastToUser(userID uint, payload interface{}) int {
	data, err := json.Marshal(payload)
	if err != nil {
		return 0
	}
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.byUser[userID]))
	for c := range h.byUser[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()
	sent := 0
	for _, c := range clients {
		if c.trySend(data) {
			sent++
		}
	}
	return sent
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, m := range h.byUser {
		n += len(m)
	}
	return n
}
