package stream

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustReceiveMessage(t *testing.T, ch <-chan []byte, timeout time.Duration) []byte {
	t.Helper()
	select {
	case payload, ok := <-ch:
		if !ok {
			t.Fatalf("channel closed while waiting for payload")
		}
		return payload
	case <-time.After(timeout):
		t.Fatalf("timed out waiting for websocket payload")
		return nil
	}
}

func mustNotReceiveMessage(t *testing.T, ch <-chan []byte, timeout time.Duration) {
	t.Helper()
	select {
	case payload := <-ch:
		t.Fatalf("expected no payload, got %q", string(payload))
	case <-time.After(timeout):
	}
}

func TestHubBroadcastFiltersBySession(t *testing.T) {
	hub := NewHub()
	a := NewClient(hub, nil, "s1")
	b := NewClient(hub, nil, "s1")
	other := NewClient(hub, nil, "s2")
	hub.Register(a)
	hub.Register(b)
	hub.Register(other)
	assert.Equal(t, 2, hub.Subscribers("s1"))

	hub.Broadcast("s1", []byte("v1"))
	assert.Equal(t, "v1", string(mustReceiveMessage(t, a.Send, 200*time.Millisecond)))
	assert.Equal(t, "v1", string(mustReceiveMessage(t, b.Send, 200*time.Millisecond)))
	mustNotReceiveMessage(t, other.Send, 50*time.Millisecond)
}

func TestHubReplaysLatestToLateSubscriber(t *testing.T) {
	hub := NewHub()
	hub.Broadcast("s1", []byte("v1"))
	hub.Broadcast("s1", []byte("v2"))

	late := NewClient(hub, nil, "s1")
	hub.Register(late)
	assert.Equal(t, "v2", string(mustReceiveMessage(t, late.Send, 200*time.Millisecond)))
	mustNotReceiveMessage(t, late.Send, 50*time.Millisecond)
}

func TestHubCloseSession(t *testing.T) {
	hub := NewHub()
	c := NewClient(hub, nil, "s1")
	hub.Register(c)
	hub.Broadcast("s1", []byte("v1"))
	<-c.Send

	hub.CloseSession("s1")
	_, ok := <-c.Send
	assert.False(t, ok, "send channel closed")
	assert.Zero(t, hub.Subscribers("s1"))

	hub.Unregister(c)
	late := NewClient(hub, nil, "s1")
	hub.Register(late)
	mustNotReceiveMessage(t, late.Send, 50*time.Millisecond)
}

func TestHubDropsSlowClient(t *testing.T) {
	hub := NewHub()
	slow := NewClient(hub, nil, "s1")
	hub.Register(slow)
	for i := 0; i <= sendBuffer; i++ {
		hub.Broadcast("s1", []byte("x"))
	}
	assert.Zero(t, hub.Subscribers("s1"))
	n := 0
	for range slow.Send {
		n++
	}
	assert.Equal(t, sendBuffer, n)
}

func TestServeStreamsOverWebsocket(t *testing.T) {
	hub := NewHub()
	up := Upgrader([]string{"https://app.example"})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.Serve(up, w, r, "s1")
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")

	hdr := http.Header{"Origin": []string{"https://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, hdr)
	require.Error(t, err)
	if resp != nil {
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	}

	hdr = http.Header{"Origin": []string{"https://app.example"}}
	conn, _, err := websocket.DefaultDialer.Dial(url, hdr)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Subscribers("s1") == 1 }, time.Second, 5*time.Millisecond)
	hub.Broadcast("s1", []byte(`{"version":1}`))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.JSONEq(t, `{"version":1}`, string(msg))

	hub.CloseSession("s1")
	_, _, err = conn.ReadMessage()
	assert.Error(t, err, "server hangs up once the session closes")
}
