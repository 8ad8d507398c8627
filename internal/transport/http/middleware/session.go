package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-ticket-otp/internal/pkg/token"
)

const sessionKey contextKey = "session"

type sessionStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// SessionKey is the cache key a browser session is recorded under.
func SessionKey(id string) string {
	return "session:" + id
}

// Session makes sure every request carries a session id. A new id is issued as
// an HttpOnly cookie and recorded in store for ttl.
func Session(store sessionStore, cookieName string, ttl time.Duration, secure bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c, err := r.Cookie(cookieName); err == nil && c.Value != "" {
				next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, c.Value)))
				return
			}
			id, err := token.NewSessionID()
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "could not create session")
				return
			}
			payload, _ := json.Marshal(map[string]string{"created_at": time.Now().UTC().Format(time.RFC3339)})
			if err := store.Set(r.Context(), SessionKey(id), payload, ttl); err != nil {
				slog.Warn("store session", "err", err)
			}
			http.SetCookie(w, &http.Cookie{
				Name:     cookieName,
				Value:    id,
				Path:     "/",
				MaxAge:   int(ttl / time.Second),
				HttpOnly: true,
				Secure:   secure,
				SameSite: http.SameSiteLaxMode,
			})
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey, id)))
		})
	}
}

// SessionFromContext returns the session id set by Session.
func SessionFromContext(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}
