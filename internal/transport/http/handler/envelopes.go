package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-ticket-otp/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// RegisterEnvelope answers POST /register. RedisKey repeats CacheKey for older clients.
type RegisterEnvelope struct {
	Message     string `json:"message"`
	CacheKey    string `json:"cache_key"`
	RedisKey    string `json:"redis_key"`
	TaskID      string `json:"task_id"`
	EmailTaskID string `json:"email_task_id"`
}

// VerifyEnvelope answers POST /otpVerify.
type VerifyEnvelope struct {
	Message  string                       `json:"message"`
	UserData *domain.VerifiedRegistration `json:"user_data,omitempty"`
	UserID   string                       `json:"user_id,omitempty"`
	Bearer   string                       `json:"Bearer,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg, ErrorCode: status})
}

// httpError maps a service error to a status code and a client-safe message.
func httpError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidPhoneFormat):
		writeError(w, http.StatusBadRequest, "Invalid phone number format.")
	case errors.Is(err, domain.ErrInvalidEmailFormat):
		writeError(w, http.StatusBadRequest, "Invalid email format.")
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrBadRequest):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrExpiredOrUnknownKey), errors.Is(err, domain.ErrInvalidCode):
		writeError(w, http.StatusBadRequest, "Invalid or expired OTP.")
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrQueuePublish):
		slog.Error("queue publish", "err", err)
		writeError(w, http.StatusInternalServerError, "Failed to send OTP.")
	default:
		slog.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
