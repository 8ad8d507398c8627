// Package console provides log-only adapters for local development.
package console

import (
	"context"
	"log/slog"

	"github.com/go-ticket-otp/internal/domain"
)

// SMSSender logs instead of sending.
type SMSSender struct{}

func (SMSSender) SendSMS(ctx context.Context, to, message string) error {
	slog.Info("sms (console)", "to", to, "message", message)
	return nil
}

// Mailer logs instead of sending.
type Mailer struct{}

func (Mailer) SendEmail(to, subject, body string) error {
	slog.Info("email (console)", "to", to, "subject", subject, "body", body)
	return nil
}

// DeadLetters logs rejected messages.
type DeadLetters struct{}

func (DeadLetters) Archive(ctx context.Context, dl domain.DeadLetter) error {
	slog.Warn("message dead-lettered", "queue", dl.Queue, "reason", dl.Reason, "body", dl.Body)
	return nil
}
