package domain

import (
	"context"
	"fmt"
	"time"
)

// Channel identifies how a code reaches the recipient.
type Channel string

const (
	ChannelSMS   Channel = "sms"
	ChannelEmail Channel = "email"
)

// Valid reports whether c is a known channel.
func (c Channel) Valid() bool {
	return c == ChannelSMS || c == ChannelEmail
}

// DeliveryJob is one notification to send. TaskID only correlates status events;
// providers never see it as a dedup key.
type DeliveryJob struct {
	Channel     Channel `json:"channel"`
	Recipient   string  `json:"recipient"`
	DisplayName string  `json:"name"`
	Code        string  `json:"code"`
	TaskID      string  `json:"task_id"`
	IsRetry     bool    `json:"is_retry"`
}

// Task status strings pushed to live subscribers.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// StatusRetrying is emitted after a failed non-final attempt.
func StatusRetrying(attempt int) string {
	return fmt.Sprintf("retrying attempt %d", attempt)
}

// StatusNotifier pushes task status strings to whoever is listening for recipient.
// Delivery is fire-and-forget.
type StatusNotifier interface {
	SendTaskStatus(ctx context.Context, recipient, status string)
}

// DeadLetter is a message the worker refused to process.
type DeadLetter struct {
	Queue      string    `json:"queue"`
	Body       string    `json:"body"`
	Reason     string    `json:"reason"`
	ReceivedAt time.Time `json:"received_at"`
}
