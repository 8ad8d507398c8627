package redisstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/go-ticket-otp/internal/pkg/id"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// These tests talk to a real server and are skipped unless REDIS_TEST_ADDR is set.
func testClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestKV_SetGetDel(t *testing.T) {
	ctx := context.Background()
	kv := NewKV(testClient(t))
	key := "test_" + id.New()

	require.NoError(t, kv.Set(ctx, key, []byte("v"), time.Minute))
	got, ok, err := kv.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, kv.Del(ctx, key))
	_, ok, err = kv.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestKV_IncrSetsTTLOnce(t *testing.T) {
	ctx := context.Background()
	rdb := testClient(t)
	kv := NewKV(rdb)
	key := "otp_retry_" + id.New()
	t.Cleanup(func() { _ = kv.Del(ctx, key) })

	n, err := kv.Incr(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = kv.Incr(ctx, key, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ttl, err := rdb.TTL(ctx, key).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Duration(0))
}

type recordedStatus struct{ recipient, status string }

type sinkRecorder struct {
	mu  sync.Mutex
	got []recordedStatus
}

func (s *sinkRecorder) SendTaskStatus(_ context.Context, recipient, status string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.got = append(s.got, recordedStatus{recipient, status})
}

func (s *sinkRecorder) snapshot() []recordedStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]recordedStatus(nil), s.got...)
}

func TestStatusRelay_ForwardsToSink(t *testing.T) {
	rdb := testClient(t)
	relay := NewStatusRelay(rdb, "otp_status_"+id.New())
	sink := &sinkRecorder{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- relay.Run(ctx, sink) }()

	// Publishing before the subscription is live would be lost.
	require.Eventually(t, func() bool {
		n, err := rdb.PubSubNumSub(ctx, relay.channel).Result()
		return err == nil && n[relay.channel] > 0
	}, 2*time.Second, 10*time.Millisecond)

	relay.SendTaskStatus(ctx, "+919876543210", "processing")
	require.NoError(t, rdb.Publish(ctx, relay.channel, "not json").Err())
	relay.SendTaskStatus(ctx, "+919876543210", "success")

	require.Eventually(t, func() bool { return len(sink.snapshot()) == 2 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, []recordedStatus{
		{"+919876543210", "processing"},
		{"+919876543210", "success"},
	}, sink.snapshot())

	cancel()
	assert.NoError(t, <-done)
}
