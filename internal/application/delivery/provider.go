package delivery

import (
	"context"
	"fmt"

	"github.com/go-ticket-otp/internal/domain"
)

// EmailSubject is the subject line of every code email.
const EmailSubject = "Your One-Time Password (OTP)"

// Provider sends one job to its recipient. A nil error means the provider accepted it.
type Provider interface {
	Send(ctx context.Context, job domain.DeliveryJob) error
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(ctx context.Context, job domain.DeliveryJob) error

func (f ProviderFunc) Send(ctx context.Context, job domain.DeliveryJob) error { return f(ctx, job) }

// Message renders the text the recipient receives.
func Message(job domain.DeliveryJob) string {
	return fmt.Sprintf("Dear %s, Your One-Time Password (OTP) is: %s", job.DisplayName, job.Code)
}

type smsSender interface {
	SendSMS(ctx context.Context, to, message string) error
}

type mailer interface {
	SendEmail(to, subject, body string) error
}

// SMSProvider delivers jobs through an SMS gateway.
func SMSProvider(s smsSender) Provider {
	return ProviderFunc(func(ctx context.Context, job domain.DeliveryJob) error {
		return s.SendSMS(ctx, job.Recipient, Message(job))
	})
}

// EmailProvider delivers jobs through a mailer.
func EmailProvider(m mailer) Provider {
	return ProviderFunc(func(ctx context.Context, job domain.DeliveryJob) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		return m.SendEmail(job.Recipient, EmailSubject, Message(job))
	})
}
