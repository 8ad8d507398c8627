// Package ws pushes delivery task statuses to browsers over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/go-ticket-otp/internal/pkg/email"
)

// Hub maps recipients to the connections subscribed to them. It implements
// domain.StatusNotifier.
type Hub struct {
	mu    sync.Mutex
	subs  map[string]map[*Client]struct{}
	conns map[*Client]map[string]struct{}
}

func NewHub() *Hub {
	return &Hub{
		subs:  make(map[string]map[*Client]struct{}),
		conns: make(map[*Client]map[string]struct{}),
	}
}

// Subscribe adds c to recipient's set and queues reply ahead of any status
// sent afterwards.
func (h *Hub) Subscribe(recipient string, c *Client, reply []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.subs[recipient]
	if !ok {
		set = make(map[*Client]struct{})
		h.subs[recipient] = set
	}
	set[c] = struct{}{}
	rs, ok := h.conns[c]
	if !ok {
		rs = make(map[string]struct{})
		h.conns[c] = rs
	}
	rs[recipient] = struct{}{}
	if reply != nil && !c.enqueue(reply) {
		h.removeLocked(c)
	}
}

// Unsubscribe removes c from every recipient set.
func (h *Hub) Unsubscribe(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

// Subscribers reports how many clients follow recipient.
func (h *Hub) Subscribers(recipient string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs[recipient])
}

// SendTaskStatus never blocks. A client whose buffer is full is dropped;
// the others still receive the status.
func (h *Hub) SendTaskStatus(_ context.Context, recipient, status string) {
	msg, err := statusPayload(recipient, status)
	if err != nil {
		slog.Warn("encode status", "recipient", recipient, "err", err)
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.subs[recipient] {
		if !c.enqueue(msg) {
			slog.Warn("status subscriber too slow, dropping", "recipient", recipient)
			h.removeLocked(c)
		}
	}
}

func (h *Hub) removeLocked(c *Client) {
	for r := range h.conns[c] {
		if set, ok := h.subs[r]; ok {
			delete(set, c)
			if len(set) == 0 {
				delete(h.subs, r)
			}
		}
	}
	delete(h.conns, c)
	c.close()
}

func statusPayload(recipient, status string) ([]byte, error) {
	key := "phone_no"
	if email.Looks(recipient) {
		key = "email"
	}
	return json.Marshal(map[string]string{key: recipient, "status": status})
}
