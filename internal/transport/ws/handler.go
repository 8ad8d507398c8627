package ws

import (
	"log/slog"
	"net/http"

	"github.com/go-ticket-otp/internal/metrics"
	"github.com/gorilla/websocket"
)

// Handler upgrades GET requests and serves the status protocol:
// "subscribe:<recipient>", "ping", anything else is answered as unhandled.
func Handler(h *Hub, allowedOrigins []string) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowedOrigins),
	}
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			slog.Warn("status socket upgrade", "err", err)
			return
		}
		metrics.StatusSubscribers.Inc()
		defer metrics.StatusSubscribers.Dec()

		c := newClient(conn, sendBuffer)
		go c.writePump()
		c.readPump(h)
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
