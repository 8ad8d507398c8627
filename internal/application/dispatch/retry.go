package dispatch

import (
	"context"
	"strconv"
	"time"

	"github.com/go-ticket-otp/internal/domain"
)

type counterStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, key string) error
}

// RetryTracker counts failed deliveries per recipient. A recipient with a live
// counter has its next job routed to the retry queue.
type RetryTracker struct {
	kv  counterStore
	ttl time.Duration
}

func NewRetryTracker(kv counterStore, ttl time.Duration) *RetryTracker {
	return &RetryTracker{kv: kv, ttl: ttl}
}

// RetryKey returns the counter key for recipient on ch.
func RetryKey(ch domain.Channel, recipient string) string {
	if ch == domain.ChannelEmail {
		return "email_otp_retry_" + recipient
	}
	return "otp_retry_" + recipient
}

// Attempts returns the recorded failure count, zero when none is recorded.
func (t *RetryTracker) Attempts(ctx context.Context, ch domain.Channel, recipient string) (int, error) {
	b, ok, err := t.kv.Get(ctx, RetryKey(ch, recipient))
	if err != nil || !ok {
		return 0, err
	}
	n, err := strconv.Atoi(string(b))
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Record adds one failure for recipient. The counter expires after the tracker ttl.
func (t *RetryTracker) Record(ctx context.Context, ch domain.Channel, recipient string) error {
	_, err := t.kv.Incr(ctx, RetryKey(ch, recipient), t.ttl)
	return err
}

// Clear drops the counter after a successful delivery.
func (t *RetryTracker) Clear(ctx context.Context, ch domain.Channel, recipient string) error {
	return t.kv.Del(ctx, RetryKey(ch, recipient))
}
