package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	jwtinfra "github.com/go-ticket-otp/internal/infrastructure/jwt"
	"github.com/go-ticket-otp/internal/transport/http/middleware"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMe_ReturnsClaimsWithSession(t *testing.T) {
	claims := &jwtinfra.Claims{
		UserID:    "01HZX",
		Email:     "asha@example.com",
		Phone:     "+919876543210",
		SessionID: "sess-1",
	}
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req = req.WithContext(context.WithValue(req.Context(), middleware.ClaimsKey, claims))
	rr := httptest.NewRecorder()

	Me(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var got map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	assert.Equal(t, map[string]string{
		"user_id":    "01HZX",
		"email":      "asha@example.com",
		"phone_no":   "+919876543210",
		"session_id": "sess-1",
	}, got)
}

func TestMe_NoClaims(t *testing.T) {
	rr := httptest.NewRecorder()
	Me(rr, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
