package handler

import (
	"net/http"

	"github.com/go-ticket-otp/internal/transport/http/middleware"
)

// MeEnvelope echoes the verified identity carried by the access token.
type MeEnvelope struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Phone     string `json:"phone_no"`
	SessionID string `json:"session_id,omitempty"`
}

// Me returns the caller's identity. Requires middleware.Auth.
func Me(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	writeJSON(w, http.StatusOK, MeEnvelope{
		UserID:    claims.UserID,
		Email:     claims.Email,
		Phone:     claims.Phone,
		SessionID: claims.SessionID,
	})
}
