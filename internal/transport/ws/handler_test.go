package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func send(t *testing.T, c *websocket.Conn, text string) {
	t.Helper()
	require.NoError(t, c.WriteMessage(websocket.TextMessage, []byte(text)))
}

func read(t *testing.T, c *websocket.Conn) string {
	t.Helper()
	require.NoError(t, c.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := c.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestHandler_Protocol(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Handler(hub, []string{"*"}))
	defer srv.Close()
	c := dial(t, srv)

	send(t, c, "ping")
	assert.Equal(t, "pong", read(t, c))

	send(t, c, "hello")
	assert.Equal(t, "Unhandled message format.", read(t, c))

	send(t, c, "subscribe:")
	assert.Equal(t, "Unhandled message format.", read(t, c))

	send(t, c, "subscribe:+919876543210")
	assert.Equal(t, "Subscribed to OTP updates for +919876543210.", read(t, c))
}

func TestHandler_TwoSubscribersReceiveSameSequence(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Handler(hub, []string{"*"}))
	defer srv.Close()

	a := dial(t, srv)
	b := dial(t, srv)
	for _, c := range []*websocket.Conn{a, b} {
		send(t, c, "subscribe:+919876543210")
		require.Equal(t, "Subscribed to OTP updates for +919876543210.", read(t, c))
	}

	statuses := []string{"queued", "processing", "retrying attempt 1", "success"}
	for _, s := range statuses {
		hub.SendTaskStatus(context.Background(), "+919876543210", s)
	}

	for _, c := range []*websocket.Conn{a, b} {
		for _, s := range statuses {
			assert.Equal(t, `{"phone_no":"+919876543210","status":"`+s+`"}`, read(t, c))
		}
	}
}

func TestHandler_DisconnectUnsubscribes(t *testing.T) {
	hub := NewHub()
	srv := httptest.NewServer(Handler(hub, []string{"*"}))
	defer srv.Close()

	c := dial(t, srv)
	send(t, c, "subscribe:asha@example.com")
	read(t, c)
	require.Equal(t, 1, hub.Subscribers("asha@example.com"))

	_ = c.Close()
	assert.Eventually(t, func() bool { return hub.Subscribers("asha@example.com") == 0 },
		2*time.Second, 10*time.Millisecond)
	hub.SendTaskStatus(context.Background(), "asha@example.com", "queued")
}

func TestOriginChecker(t *testing.T) {
	check := originChecker([]string{"https://tickets.example.com"})

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://tickets.example.com")
	assert.True(t, check(r))
	r.Header.Set("Origin", "https://evil.example.com")
	assert.False(t, check(r))
}
