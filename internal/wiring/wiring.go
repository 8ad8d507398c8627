// Package wiring selects infrastructure backends from configuration. It is
// shared by the api and worker binaries.
package wiring

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-ticket-otp/internal/application/delivery"
	"github.com/go-ticket-otp/internal/application/dispatch"
	"github.com/go-ticket-otp/internal/config"
	"github.com/go-ticket-otp/internal/domain"
	"github.com/go-ticket-otp/internal/infrastructure/console"
	memorystore "github.com/go-ticket-otp/internal/infrastructure/memory"
	"github.com/go-ticket-otp/internal/infrastructure/rabbitmq"
	redisstore "github.com/go-ticket-otp/internal/infrastructure/redis"
	s3infra "github.com/go-ticket-otp/internal/infrastructure/s3"
	"github.com/go-ticket-otp/internal/infrastructure/smtp"
	"github.com/go-ticket-otp/internal/infrastructure/sns"
	"github.com/go-ticket-otp/internal/infrastructure/twilio"
	"github.com/go-ticket-otp/internal/queue"
	"github.com/redis/go-redis/v9"
)

// KV is the cache contract both the Redis and the in-memory store satisfy.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}

// Cache returns the configured KV. rdb is nil for the memory backend.
func Cache(ctx context.Context, cfg *config.Config) (KV, *redis.Client, error) {
	switch cfg.CacheBackend {
	case "memory":
		return memorystore.NewKV(), nil, nil
	case "redis", "":
		rdb, err := redisstore.NewClient(ctx, cfg)
		if err != nil {
			return nil, nil, err
		}
		return redisstore.NewKV(rdb), rdb, nil
	default:
		return nil, nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}
}

// QueueNames lists every queue the pipeline uses.
func QueueNames(cfg *config.Config) []string {
	q := cfg.Queues
	return []string{q.SMSPrimary, q.SMSRetry, q.EmailPrimary, q.EmailRetry}
}

// Broker returns the configured queue broker with every queue declared.
func Broker(cfg *config.Config) (queue.Broker, error) {
	switch cfg.QueueBackend {
	case "memory":
		return memorystore.NewBroker(), nil
	case "rabbitmq", "":
		b, err := rabbitmq.Dial(cfg.RabbitMQURL)
		if err != nil {
			return nil, err
		}
		if err := b.Declare(QueueNames(cfg)...); err != nil {
			_ = b.Close()
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}
}

// ChannelQueues maps each channel to its primary and retry queue.
func ChannelQueues(cfg *config.Config) map[domain.Channel]dispatch.Queues {
	return map[domain.Channel]dispatch.Queues{
		domain.ChannelSMS:   {Primary: cfg.Queues.SMSPrimary, Retry: cfg.Queues.SMSRetry},
		domain.ChannelEmail: {Primary: cfg.Queues.EmailPrimary, Retry: cfg.Queues.EmailRetry},
	}
}

// Bindings ties every queue to the channel its messages are delivered on.
func Bindings(cfg *config.Config) []delivery.Binding {
	q := cfg.Queues
	return []delivery.Binding{
		{Queue: q.SMSPrimary, Channel: domain.ChannelSMS},
		{Queue: q.SMSRetry, Channel: domain.ChannelSMS},
		{Queue: q.EmailPrimary, Channel: domain.ChannelEmail},
		{Queue: q.EmailRetry, Channel: domain.ChannelEmail},
	}
}

// Providers builds one provider per channel. A provider that cannot be built
// falls back to the console adapter with a warning.
func Providers(cfg *config.Config) map[domain.Channel]delivery.Provider {
	var smsSender interface {
		SendSMS(ctx context.Context, to, message string) error
	} = console.SMSSender{}
	switch cfg.SMSProvider {
	case "sns":
		if s, err := sns.NewSender(cfg); err == nil {
			smsSender = s
		} else {
			log.Printf("WARN: SNS sender not available, logging SMS instead: %v", err)
		}
	case "twilio":
		if s, err := twilio.NewSender(cfg); err == nil {
			smsSender = s
		} else {
			log.Printf("WARN: Twilio sender not available, logging SMS instead: %v", err)
		}
	}

	var mailer smtp.Mailer = console.Mailer{}
	if cfg.EmailProvider == "smtp" {
		mailer = smtp.NewMailer(cfg)
	}

	return map[domain.Channel]delivery.Provider{
		domain.ChannelSMS:   delivery.SMSProvider(smsSender),
		domain.ChannelEmail: delivery.EmailProvider(mailer),
	}
}

// DeadLetterSink archives messages the worker refuses to process.
type DeadLetterSink interface {
	Archive(ctx context.Context, dl domain.DeadLetter) error
}

// DeadLetters returns the configured dead-letter archive.
func DeadLetters(ctx context.Context, cfg *config.Config) DeadLetterSink {
	if cfg.DeadLetterBackend != "s3" {
		return console.DeadLetters{}
	}
	store := s3infra.NewStore(s3infra.NewClient(cfg), cfg.S3BucketName)
	if err := store.EnsureBucket(ctx); err != nil {
		log.Printf("WARN: dead-letter bucket unavailable: %v", err)
	}
	return s3infra.NewDeadLetterStore(store)
}

// Worker assembles a delivery worker that reports statuses to notifier.
func Worker(ctx context.Context, cfg *config.Config, kv KV, notifier domain.StatusNotifier) *delivery.Worker {
	return delivery.NewWorker(delivery.WorkerDeps{
		Providers:   Providers(cfg),
		Bindings:    Bindings(cfg),
		Notifier:    notifier,
		DeadLetters: DeadLetters(ctx, cfg),
		Retries:     dispatch.NewRetryTracker(kv, cfg.RegistrationTTL),
		MaxAttempts: cfg.DeliveryMaxAttempts,
		RetryDelay:  cfg.DeliveryRetryDelay,
	})
}
