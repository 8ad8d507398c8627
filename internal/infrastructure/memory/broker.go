package memorystore

import (
	"context"
	"errors"
	"sync"

	"github.com/go-ticket-otp/internal/queue"
)

const defaultQueueDepth = 1024

var (
	// ErrBrokerClosed is returned by Publish after Close.
	ErrBrokerClosed = errors.New("broker closed")
	// ErrQueueFull is returned by a requeueing Nack when the queue has no room.
	// The message is dropped.
	ErrQueueFull = errors.New("queue full")
)

type message struct {
	body        []byte
	redelivered bool
}

// Broker is an in-process queue.Broker. Nack with requeue puts the message back
// on the same queue marked as redelivered. Requeueing never blocks.
type Broker struct {
	mu     sync.Mutex
	queues map[string]chan message
	depth  int
	closed bool
}

func NewBroker() *Broker {
	return newBroker(defaultQueueDepth)
}

func newBroker(depth int) *Broker {
	return &Broker{queues: make(map[string]chan message), depth: depth}
}

func (b *Broker) queue(name string) (chan message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, ErrBrokerClosed
	}
	q, ok := b.queues[name]
	if !ok {
		q = make(chan message, b.depth)
		b.queues[name] = q
	}
	return q, nil
}

func (b *Broker) Publish(ctx context.Context, name string, body []byte) error {
	return b.push(ctx, name, message{body: append([]byte(nil), body...)})
}

func (b *Broker) push(ctx context.Context, name string, m message) error {
	q, err := b.queue(name)
	if err != nil {
		return err
	}
	select {
	case q <- m:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *Broker) requeue(name string, m message) error {
	q, err := b.queue(name)
	if err != nil {
		return err
	}
	select {
	case q <- m:
		return nil
	default:
		return ErrQueueFull
	}
}

// Len reports how many messages are waiting on name.
func (b *Broker) Len(name string) int {
	q, err := b.queue(name)
	if err != nil {
		return 0
	}
	return len(q)
}

func (b *Broker) Consume(ctx context.Context, name string, concurrency int, h queue.Handler) error {
	q, err := b.queue(name)
	if err != nil {
		return err
	}
	if concurrency < 1 {
		concurrency = 1
	}
	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case m := <-q:
					h(ctx, b.delivery(name, m))
				}
			}
		}()
	}
	wg.Wait()
	return nil
}

func (b *Broker) delivery(name string, m message) queue.Delivery {
	var once sync.Once
	settle := func(fn func() error) error {
		err := errors.New("delivery already settled")
		once.Do(func() { err = fn() })
		return err
	}
	return queue.Delivery{
		Queue:       name,
		Body:        m.body,
		Redelivered: m.redelivered,
		Ack:         func() error { return settle(func() error { return nil }) },
		Nack: func(requeue bool) error {
			return settle(func() error {
				if !requeue {
					return nil
				}
				return b.push(context.Background(), name, message{body: m.body, redelivered: true})
			})
		},
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	return nil
}
