package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
	ErrBadRequest   = errors.New("bad request")
)

// OTP pipeline errors.
var (
	ErrValidation         = errors.New("validation error")
	ErrInvalidPhoneFormat = fmt.Errorf("invalid phone format: %w", ErrValidation)
	ErrInvalidEmailFormat = fmt.Errorf("invalid email format: %w", ErrValidation)

	// ErrQueuePublish is fatal for the caller and never retried at dispatch time.
	ErrQueuePublish = errors.New("queue publish error")

	ErrMalformedMessage      = errors.New("malformed message")
	ErrDeliveryAttemptFailed = errors.New("delivery attempt failed")
	ErrExpiredOrUnknownKey   = errors.New("expired or unknown key")
	ErrInvalidCode           = errors.New("invalid code")
	ErrNoProvider            = errors.New("no provider for channel")
)
