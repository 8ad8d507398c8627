// Package delivery consumes delivery jobs and drives each one to a terminal status.
package delivery

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/go-ticket-otp/internal/metrics"
	"github.com/go-ticket-otp/internal/pkg/wire"
	"github.com/go-ticket-otp/internal/queue"
)

const (
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = 2 * time.Second
)

// Binding ties a queue to the channel its messages are delivered on.
type Binding struct {
	Queue   string
	Channel domain.Channel
}

type deadLetterSink interface {
	Archive(ctx context.Context, dl domain.DeadLetter) error
}

type retryRecorder interface {
	Record(ctx context.Context, ch domain.Channel, recipient string) error
	Clear(ctx context.Context, ch domain.Channel, recipient string) error
}

type Worker struct {
	providers   map[domain.Channel]Provider
	bindings    []Binding
	notifier    domain.StatusNotifier
	deadLetters deadLetterSink
	retries     retryRecorder
	maxAttempts int
	retryDelay  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	now         func() time.Time
}

type WorkerDeps struct {
	Providers   map[domain.Channel]Provider
	Bindings    []Binding
	Notifier    domain.StatusNotifier
	DeadLetters deadLetterSink
	Retries     retryRecorder // optional
	MaxAttempts int
	RetryDelay  time.Duration
	// Sleep and Now are replaced in tests.
	Sleep func(ctx context.Context, d time.Duration) error
	Now   func() time.Time
}

func NewWorker(deps WorkerDeps) *Worker {
	w := &Worker{
		providers:   deps.Providers,
		bindings:    deps.Bindings,
		notifier:    deps.Notifier,
		deadLetters: deps.DeadLetters,
		retries:     deps.Retries,
		maxAttempts: deps.MaxAttempts,
		retryDelay:  deps.RetryDelay,
		sleep:       deps.Sleep,
		now:         deps.Now,
	}
	if w.maxAttempts < 1 {
		w.maxAttempts = DefaultMaxAttempts
	}
	if w.retryDelay < 0 {
		w.retryDelay = DefaultRetryDelay
	}
	if w.sleep == nil {
		w.sleep = sleepCtx
	}
	if w.now == nil {
		w.now = time.Now
	}
	return w
}

// Bindings returns the queues this worker serves.
func (w *Worker) Bindings() []Binding {
	return w.bindings
}

// Handle settles d exactly once: ack after a terminal status or dead-lettering,
// nack with requeue when ctx is cancelled before a terminal status.
func (w *Worker) Handle(ctx context.Context, d queue.Delivery) {
	var (
		job      domain.DeliveryJob
		decoded  bool
		terminal bool
	)
	defer func() {
		if r := recover(); r != nil {
			slog.Error("delivery handler panic", "queue", d.Queue, "panic", r)
			if decoded && !terminal {
				w.notify(ctx, job.Recipient, domain.StatusFailed)
			}
			w.deadLetter(ctx, d, fmt.Sprintf("panic: %v", r))
		}
	}()

	job, err := wire.Decode(d.Body)
	if err != nil {
		slog.Warn("malformed message", "queue", d.Queue, "err", err)
		w.deadLetter(ctx, d, err.Error())
		return
	}
	decoded = true
	if job.Channel == "" {
		job.Channel = w.channelFor(d.Queue)
	}
	p, ok := w.providers[job.Channel]
	if !ok {
		slog.Error("no provider", "queue", d.Queue, "channel", job.Channel, "task_id", job.TaskID)
		w.notify(ctx, job.Recipient, domain.StatusFailed)
		terminal = true
		w.deadLetter(ctx, d, fmt.Sprintf("%v: %q", domain.ErrNoProvider, job.Channel))
		return
	}

	if err := w.deliver(ctx, p, job, &terminal); err != nil {
		slog.Warn("delivery interrupted, requeueing", "queue", d.Queue, "task_id", job.TaskID, "err", err)
		if nerr := d.Nack(true); nerr != nil {
			slog.Error("nack", "queue", d.Queue, "task_id", job.TaskID, "err", nerr)
		}
		return
	}
	if err := d.Ack(); err != nil {
		slog.Error("ack", "queue", d.Queue, "task_id", job.TaskID, "err", err)
	}
}

// deliver returns an error only when ctx ends before a terminal status.
func (w *Worker) deliver(ctx context.Context, p Provider, job domain.DeliveryJob, terminal *bool) error {
	start := w.now()
	channel := string(job.Channel)
	w.notify(ctx, job.Recipient, domain.StatusProcessing)

	var lastErr error
	for attempt := 1; attempt <= w.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = p.Send(ctx, job)
		if lastErr == nil {
			metrics.DeliveryAttempts.WithLabelValues(channel, "success").Inc()
			*terminal = true
			w.finish(ctx, job, domain.StatusSuccess, start)
			if w.retries != nil {
				if err := w.retries.Clear(context.WithoutCancel(ctx), job.Channel, job.Recipient); err != nil {
					slog.Warn("clear retry counter", "recipient", job.Recipient, "err", err)
				}
			}
			slog.Info("delivered", "task_id", job.TaskID, "channel", channel, "attempt", attempt)
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		metrics.DeliveryAttempts.WithLabelValues(channel, "failure").Inc()
		slog.Warn("delivery attempt failed", "task_id", job.TaskID, "channel", channel, "attempt", attempt, "err", lastErr)
		if w.retries != nil {
			if err := w.retries.Record(ctx, job.Channel, job.Recipient); err != nil {
				slog.Warn("record retry counter", "recipient", job.Recipient, "err", err)
			}
		}
		if attempt == w.maxAttempts {
			break
		}
		w.notify(ctx, job.Recipient, domain.StatusRetrying(attempt))
		if err := w.sleep(ctx, w.retryDelay); err != nil {
			return err
		}
	}

	*terminal = true
	w.finish(ctx, job, domain.StatusFailed, start)
	slog.Error("delivery exhausted", "task_id", job.TaskID, "channel", channel,
		"attempts", w.maxAttempts, "err", fmt.Errorf("%w: %w", domain.ErrDeliveryAttemptFailed, lastErr))
	return nil
}

func (w *Worker) finish(ctx context.Context, job domain.DeliveryJob, status string, start time.Time) {
	metrics.DeliveryOutcomes.WithLabelValues(string(job.Channel), status).Inc()
	metrics.DeliveryDuration.WithLabelValues(string(job.Channel)).Observe(w.now().Sub(start).Seconds())
	w.notify(ctx, job.Recipient, status)
}

// deadLetter archives d and acks it. If the archive is unavailable the message
// is requeued once; a redelivered message is dropped instead.
func (w *Worker) deadLetter(ctx context.Context, d queue.Delivery, reason string) {
	dl := domain.DeadLetter{
		Queue:      d.Queue,
		Body:       string(d.Body),
		Reason:     reason,
		ReceivedAt: w.now().UTC(),
	}
	if w.deadLetters != nil {
		if err := w.deadLetters.Archive(context.WithoutCancel(ctx), dl); err != nil {
			requeue := !d.Redelivered
			slog.Error("archive dead letter", "queue", d.Queue, "requeue", requeue, "err", err)
			if nerr := d.Nack(requeue); nerr != nil {
				slog.Error("nack", "queue", d.Queue, "err", nerr)
			}
			return
		}
	}
	metrics.DeadLettered.WithLabelValues(d.Queue).Inc()
	if err := d.Ack(); err != nil {
		slog.Error("ack", "queue", d.Queue, "err", err)
	}
}

func (w *Worker) notify(ctx context.Context, recipient, status string) {
	if w.notifier != nil {
		w.notifier.SendTaskStatus(context.WithoutCancel(ctx), recipient, status)
	}
}

func (w *Worker) channelFor(queueName string) domain.Channel {
	for _, b := range w.bindings {
		if b.Queue == queueName {
			return b.Channel
		}
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
