package memorystore

import (
	"context"
	"testing"
	"time"

	"github.com/go-ticket-otp/internal/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroker_PublishConsumeAck(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, b.Publish(ctx, "q", []byte("hello")))
	got := make(chan queue.Delivery, 1)
	go func() {
		_ = b.Consume(ctx, "q", 1, func(_ context.Context, d queue.Delivery) {
			assert.NoError(t, d.Ack())
			got <- d
		})
	}()

	select {
	case d := <-got:
		assert.Equal(t, "q", d.Queue)
		assert.Equal(t, []byte("hello"), d.Body)
		assert.False(t, d.Redelivered)
	case <-time.After(2 * time.Second):
		t.Fatal("message not consumed")
	}
	assert.Equal(t, 0, b.Len("q"))
}

func TestBroker_NackRequeueRedelivers(t *testing.T) {
	b := NewBroker()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, b.Publish(ctx, "q", []byte("x")))
	seen := make(chan bool, 2)
	go func() {
		_ = b.Consume(ctx, "q", 1, func(_ context.Context, d queue.Delivery) {
			seen <- d.Redelivered
			if !d.Redelivered {
				_ = d.Nack(true)
				return
			}
			_ = d.Ack()
		})
	}()

	for _, want := range []bool{false, true} {
		select {
		case r := <-seen:
			assert.Equal(t, want, r)
		case <-time.After(2 * time.Second):
			t.Fatal("message not delivered")
		}
	}
}

func TestBroker_NackRequeueOnFullQueueDoesNotBlock(t *testing.T) {
	b := newBroker(1)
	ctx := context.Background()
	require.NoError(t, b.Publish(ctx, "q", []byte("waiting")))

	d := b.delivery("q", message{body: []byte("in-flight")})
	done := make(chan error, 1)
	go func() { done <- d.Nack(true) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrQueueFull)
	case <-time.After(2 * time.Second):
		t.Fatal("requeue blocked on a full queue")
	}
	assert.Equal(t, 1, b.Len("q"))
}

func TestBroker_SettleTwiceFails(t *testing.T) {
	b := NewBroker()
	d := b.delivery("q", message{body: []byte("x")})
	require.NoError(t, d.Ack())
	assert.Error(t, d.Nack(true))
	assert.Equal(t, 0, b.Len("q"))
}

func TestBroker_PublishAfterClose(t *testing.T) {
	b := NewBroker()
	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Publish(context.Background(), "q", []byte("x")), ErrBrokerClosed)
}
