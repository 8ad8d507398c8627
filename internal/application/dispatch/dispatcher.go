// Package dispatch turns issued codes into queued delivery jobs.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-ticket-otp/internal/domain"
	"github.com/go-ticket-otp/internal/metrics"
	"github.com/go-ticket-otp/internal/pkg/id"
	"github.com/go-ticket-otp/internal/pkg/wire"
)

// Queues names the primary and retry queue of one channel.
type Queues struct {
	Primary string
	Retry   string
}

type publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

type Dispatcher struct {
	pub      publisher
	queues   map[domain.Channel]Queues
	retries  *RetryTracker
	notifier domain.StatusNotifier
}

type DispatcherDeps struct {
	Publisher publisher
	Queues    map[domain.Channel]Queues
	Retries   *RetryTracker // nil routes everything to the primary queue
	Notifier  domain.StatusNotifier
}

func NewDispatcher(deps DispatcherDeps) *Dispatcher {
	return &Dispatcher{
		pub:      deps.Publisher,
		queues:   deps.Queues,
		retries:  deps.Retries,
		notifier: deps.Notifier,
	}
}

// QueueFor returns the queue a job for ch lands on.
func (d *Dispatcher) QueueFor(ch domain.Channel, isRetry bool) (string, error) {
	q, ok := d.queues[ch]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrNoProvider, ch)
	}
	if isRetry && q.Retry != "" {
		return q.Retry, nil
	}
	return q.Primary, nil
}

// Submit creates a job for a freshly issued code and dispatches it.
// It returns the task id that status events for this job correlate with.
func (d *Dispatcher) Submit(ctx context.Context, ch domain.Channel, recipient, name, code string) (string, error) {
	d.notify(ctx, recipient, domain.StatusQueued)

	job := domain.DeliveryJob{
		Channel:     ch,
		Recipient:   recipient,
		DisplayName: name,
		Code:        code,
		TaskID:      id.New(),
	}
	if d.retries != nil {
		n, err := d.retries.Attempts(ctx, ch, recipient)
		if err != nil {
			slog.Warn("read retry counter", "channel", ch, "recipient", recipient, "err", err)
		}
		job.IsRetry = n > 0
	}
	if err := d.Dispatch(ctx, job); err != nil {
		d.notify(context.WithoutCancel(ctx), recipient, domain.StatusFailed)
		return "", err
	}
	return job.TaskID, nil
}

// Dispatch publishes job exactly once. Broker failures wrap domain.ErrQueuePublish.
func (d *Dispatcher) Dispatch(ctx context.Context, job domain.DeliveryJob) error {
	queue, err := d.QueueFor(job.Channel, job.IsRetry)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrQueuePublish, err)
	}
	body, err := wire.Encode(job)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrQueuePublish, err)
	}
	if err := d.pub.Publish(ctx, queue, body); err != nil {
		metrics.PublishFailures.WithLabelValues(queue).Inc()
		slog.Error("publish delivery job", "queue", queue, "task_id", job.TaskID, "err", err)
		return fmt.Errorf("%w: %s: %w", domain.ErrQueuePublish, queue, err)
	}
	metrics.JobsPublished.WithLabelValues(queue).Inc()
	slog.Info("delivery job queued", "queue", queue, "task_id", job.TaskID, "channel", job.Channel, "retry", job.IsRetry)
	return nil
}

func (d *Dispatcher) notify(ctx context.Context, recipient, status string) {
	if d.notifier != nil {
		d.notifier.SendTaskStatus(ctx, recipient, status)
	}
}
