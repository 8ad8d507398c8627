package delivery

import (
	"context"
	"log/slog"
	"sync"

	"github.com/go-ticket-otp/internal/queue"
)

// Pool runs a Worker against every queue it is bound to.
type Pool struct {
	consumer    queue.Consumer
	worker      *Worker
	concurrency int
}

func NewPool(consumer queue.Consumer, worker *Worker, concurrency int) *Pool {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Pool{consumer: consumer, worker: worker, concurrency: concurrency}
}

// Run blocks until ctx is cancelled or a consumer fails. The first consumer
// error stops the others and is returned.
func (p *Pool) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg       sync.WaitGroup
		once     sync.Once
		firstErr error
	)
	for _, b := range p.worker.Bindings() {
		wg.Add(1)
		go func(b Binding) {
			defer wg.Done()
			slog.Info("worker started", "queue", b.Queue, "channel", b.Channel, "concurrency", p.concurrency)
			if err := p.consumer.Consume(ctx, b.Queue, p.concurrency, p.worker.Handle); err != nil {
				slog.Error("consumer stopped", "queue", b.Queue, "err", err)
				once.Do(func() { firstErr = err })
				cancel()
			}
		}(b)
	}
	wg.Wait()
	return firstErr
}
