package stream

import (
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
)

// Upgrader returns a websocket upgrader accepting the given origins
// An empty list or "*" accepts any origin, a request without Origin is always accepted
func Upgrader(origins []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" || len(origins) == 0 || slices.Contains(origins, "*") {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil || u.Host == "" {
				return false
			}
			if strings.EqualFold(u.Host, r.Host) {
				return true
			}
			return slices.ContainsFunc(origins, func(o string) bool {
				return strings.EqualFold(strings.TrimRight(o, "/"), origin)
			})
		},
	}
}

// Serve upgrades the request and streams sessionID until either side hangs up
func (h *Hub) Serve(up *websocket.Upgrader, w http.ResponseWriter, r *http.Request, sessionID string) error {
	conn, err := up.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := NewClient(h, conn, sessionID)
	h.Register(c)
	go c.WritePump()
	c.ReadPump()
	return nil
}

// ReadPump discards inbound frames and keeps the read deadline alive
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			return
		}
	}
}

// WritePump writes queued payloads and pings until Send closes
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
