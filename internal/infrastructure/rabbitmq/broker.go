package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-ticket-otp/internal/queue"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ErrConsumerClosed is returned by Consume when the broker closes the delivery channel.
var ErrConsumerClosed = errors.New("rabbitmq: delivery channel closed")

// channel is the subset of *amqp.Channel the broker uses.
type channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
	IsClosed() bool
	Close() error
}

type connection interface {
	Channel() (channel, error)
	IsClosed() bool
	Close() error
}

type dialFunc func(url string) (connection, error)

type amqpConn struct{ *amqp.Connection }

func (c amqpConn) Channel() (channel, error) {
	ch, err := c.Connection.Channel()
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func dialAMQP(url string) (connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	return amqpConn{conn}, nil
}

// Broker publishes to and consumes from durable queues on the default exchange.
// Publishing shares one channel guarded by mu; each Consume call opens its own.
// A closed connection or publishing channel is reopened on the next Publish.
type Broker struct {
	url  string
	dial dialFunc

	mu       sync.Mutex
	conn     connection
	pub      channel
	declared map[string]bool
	closed   bool
}

// Dial connects to url and opens the publishing channel.
func Dial(url string) (*Broker, error) {
	return dial(url, dialAMQP)
}

func dial(url string, fn dialFunc) (*Broker, error) {
	b := &Broker{url: url, dial: fn, declared: make(map[string]bool)}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := b.publisherLocked(); err != nil {
		return nil, err
	}
	return b, nil
}

func (b *Broker) connLocked() (connection, error) {
	if b.conn != nil && !b.conn.IsClosed() {
		return b.conn, nil
	}
	conn, err := b.dial(b.url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	if b.conn != nil {
		slog.Info("rabbitmq reconnected")
	}
	b.conn = conn
	b.pub = nil
	return conn, nil
}

func (b *Broker) publisherLocked() (channel, error) {
	if b.closed {
		return nil, amqp.ErrClosed
	}
	if b.pub != nil && !b.pub.IsClosed() {
		return b.pub, nil
	}
	conn, err := b.connLocked()
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	b.pub = ch
	// Queues are redeclared on the new channel.
	b.declared = make(map[string]bool)
	return ch, nil
}

// Declare makes sure every named queue exists and is durable.
func (b *Broker) Declare(names ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	ch, err := b.publisherLocked()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := b.declareLocked(ch, name); err != nil {
			return err
		}
	}
	return nil
}

func (b *Broker) declareLocked(ch channel, name string) error {
	if b.declared[name] {
		return nil
	}
	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	b.declared[name] = true
	return nil
}

// Publish sends body to name with persistent delivery mode. If the publishing
// channel turns out to be closed, it is reopened and the publish tried once more.
func (b *Broker) Publish(ctx context.Context, name string, body []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	err := b.publishLocked(ctx, name, body)
	if errors.Is(err, amqp.ErrClosed) && !b.closed {
		slog.Warn("rabbitmq publish channel closed, reopening", "queue", name)
		b.pub = nil
		err = b.publishLocked(ctx, name, body)
	}
	return err
}

func (b *Broker) publishLocked(ctx context.Context, name string, body []byte) error {
	ch, err := b.publisherLocked()
	if err != nil {
		return err
	}
	if err := b.declareLocked(ch, name); err != nil {
		return err
	}
	return ch.PublishWithContext(ctx, "", name, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
}

func (b *Broker) consumerChannel() (channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, amqp.ErrClosed
	}
	conn, err := b.connLocked()
	if err != nil {
		return nil, err
	}
	return conn.Channel()
}

// Consume opens a channel with prefetch = concurrency and hands deliveries to h
// from concurrency goroutines. Messages are acknowledged only by the handler.
func (b *Broker) Consume(ctx context.Context, name string, concurrency int, h queue.Handler) error {
	if concurrency < 1 {
		concurrency = 1
	}
	ch, err := b.consumerChannel()
	if err != nil {
		return fmt.Errorf("rabbitmq consumer channel: %w", err)
	}
	defer ch.Close()

	if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue %s: %w", name, err)
	}
	if err := ch.Qos(concurrency, 0, false); err != nil {
		return fmt.Errorf("set qos on %s: %w", name, err)
	}
	deliveries, err := ch.Consume(name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", name, err)
	}
	slog.Info("consuming", "queue", name, "concurrency", concurrency)

	var (
		wg     sync.WaitGroup
		lostMu sync.Mutex
		lost   bool
	)
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case d, ok := <-deliveries:
					if !ok {
						lostMu.Lock()
						lost = true
						lostMu.Unlock()
						return
					}
					h(ctx, toDelivery(name, d))
				}
			}
		}()
	}
	wg.Wait()
	if lost && ctx.Err() == nil {
		return ErrConsumerClosed
	}
	return nil
}

func toDelivery(name string, d amqp.Delivery) queue.Delivery {
	return queue.Delivery{
		Queue:       name,
		Body:        d.Body,
		Redelivered: d.Redelivered,
		Ack:         func() error { return d.Ack(false) },
		Nack:        func(requeue bool) error { return d.Nack(false, requeue) },
	}
}

func (b *Broker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	if b.pub != nil {
		_ = b.pub.Close()
	}
	if b.conn == nil {
		return nil
	}
	return b.conn.Close()
}
