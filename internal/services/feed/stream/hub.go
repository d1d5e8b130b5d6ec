// Package stream pushes composed feed snapshots to websocket subscribers
package stream

import (
	"sync"

	"github.com/gorilla/websocket"
)

const sendBuffer = 32

// Hub fans payloads out to the clients of each session
// Broadcast never blocks, a client whose buffer is full is dropped
type Hub struct {
	mu      sync.Mutex
	clients map[string]map[*Client]struct{}
	last    map[string][]byte
}

// NewHub builds an empty hub
func NewHub() *Hub {
	return &Hub{
		clients: map[string]map[*Client]struct{}{},
		last:    map[string][]byte{},
	}
}

// Register subscribes c to its session and replays the latest payload
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.session]
	if !ok {
		set = map[*Client]struct{}{}
		h.clients[c.session] = set
	}
	set[c] = struct{}{}
	if p, ok := h.last[c.session]; ok {
		h.deliverLocked(c, p)
	}
}

// Unregister removes c and closes its send channel
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

// Broadcast sends payload to every client of sessionID
func (h *Hub) Broadcast(sessionID string, payload []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.last[sessionID] = payload
	for c := range h.clients[sessionID] {
		h.deliverLocked(c, payload)
	}
}

// CloseSession disconnects every client of sessionID
func (h *Hub) CloseSession(sessionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.last, sessionID)
	for c := range h.clients[sessionID] {
		h.dropLocked(c)
	}
}

// Subscribers counts the clients of sessionID
func (h *Hub) Subscribers(sessionID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients[sessionID])
}

func (h *Hub) deliverLocked(c *Client, payload []byte) {
	select {
	case c.Send <- payload:
	default:
		h.dropLocked(c)
	}
}

func (h *Hub) dropLocked(c *Client) {
	set, ok := h.clients[c.session]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(h.clients, c.session)
	}
	close(c.Send)
}

// Client is one websocket subscriber of a session
type Client struct {
	Conn    *websocket.Conn
	Hub     *Hub
	Send    chan []byte
	session string
}

// NewClient returns a client ready for registration
func NewClient(hub *Hub, conn *websocket.Conn, sessionID string) *Client {
	return &Client{
		Conn:    conn,
		Hub:     hub,
		Send:    make(chan []byte, sendBuffer),
		session: sessionID,
	}
}

// SessionID returns the session the client follows
func (c *Client) SessionID() string { return c.session }
