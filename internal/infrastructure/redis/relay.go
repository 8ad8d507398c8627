package redisstore

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/redis/go-redis/v9"
)

type statusEvent struct {
	Recipient string `json:"recipient"`
	Status    string `json:"status"`
}

// StatusRelay carries task statuses from standalone workers to every API
// instance over a Redis pub/sub channel. Workers use it as their
// domain.StatusNotifier; API instances Run it into their local hub.
type StatusRelay struct {
	rdb     *redis.Client
	channel string
}

func NewStatusRelay(rdb *redis.Client, channel string) *StatusRelay {
	return &StatusRelay{rdb: rdb, channel: channel}
}

// SendTaskStatus publishes the status. Failures are logged, never returned.
func (r *StatusRelay) SendTaskStatus(ctx context.Context, recipient, status string) {
	payload, err := json.Marshal(statusEvent{Recipient: recipient, Status: status})
	if err != nil {
		slog.Warn("encode status event", "recipient", recipient, "err", err)
		return
	}
	if err := r.rdb.Publish(ctx, r.channel, payload).Err(); err != nil {
		slog.Warn("publish status event", "channel", r.channel, "recipient", recipient, "status", status, "err", err)
	}
}

// Run forwards every event on the channel to sink until ctx is done.
func (r *StatusRelay) Run(ctx context.Context, sink domain.StatusNotifier) error {
	sub := r.rdb.Subscribe(ctx, r.channel)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	slog.Info("status relay subscribed", "channel", r.channel)

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			var ev statusEvent
			if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil || ev.Recipient == "" {
				slog.Warn("dropping bad status event", "payload", msg.Payload, "err", err)
				continue
			}
			sink.SendTaskStatus(ctx, ev.Recipient, ev.Status)
		}
	}
}
