// Package queue defines the broker contract shared by the dispatcher and the workers.
package queue

import "context"

// Delivery is one message handed to a Handler. Exactly one of Ack or Nack
// must be called.
type Delivery struct {
	Queue       string
	Body        []byte
	Redelivered bool
	Ack         func() error
	Nack        func(requeue bool) error
}

// Handler processes a single delivery.
type Handler func(ctx context.Context, d Delivery)

// Publisher publishes persistent messages to a named durable queue.
type Publisher interface {
	Publish(ctx context.Context, queue string, body []byte) error
}

// Consumer delivers messages from queue to h using concurrency goroutines.
// Consume blocks until ctx is cancelled or the broker connection is lost.
type Consumer interface {
	Consume(ctx context.Context, queue string, concurrency int, h Handler) error
}

// Broker is implemented by infrastructure/rabbitmq and infrastructure/memory.
type Broker interface {
	Publisher
	Consumer
	Close() error
}
