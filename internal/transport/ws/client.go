package ws

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 32

	subscribePrefix = "subscribe:"
)

// Client is one WebSocket connection. Writes happen only on its writer goroutine.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newClient(conn *websocket.Conn, buffer int) *Client {
	return &Client{
		conn: conn,
		send: make(chan []byte, buffer),
		done: make(chan struct{}),
	}
}

// enqueue reports false when the buffer is full or the client is closed.
func (c *Client) enqueue(msg []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		h.Unsubscribe(c)
		c.close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("status socket read", "err", err)
			}
			return
		}
		c.handle(h, strings.TrimSpace(string(data)))
	}
}

func (c *Client) handle(h *Hub, msg string) {
	switch {
	case strings.HasPrefix(msg, subscribePrefix) && strings.TrimSpace(msg[len(subscribePrefix):]) != "":
		recipient := strings.TrimSpace(msg[len(subscribePrefix):])
		h.Subscribe(recipient, c, []byte("Subscribed to OTP updates for "+recipient+"."))
		slog.Info("status subscription", "recipient", recipient)
	case msg == "ping":
		c.reply(h, "pong")
	default:
		c.reply(h, "Unhandled message format.")
	}
}

func (c *Client) reply(h *Hub, text string) {
	if !c.enqueue([]byte(text)) {
		h.Unsubscribe(c)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return
		}
	}
}
