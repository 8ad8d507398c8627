// Package memorystore holds in-process adapters for development and tests.
package memorystore

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type kvItem struct {
	value   []byte
	expires time.Time
}

// KV is a simple in-memory key-value store with TTL support.
// It is only safe for single-process deployments.
type KV struct {
	mu    sync.Mutex
	items map[string]kvItem
	now   func() time.Time
}

func NewKV() *KV {
	return NewKVWithClock(time.Now)
}

// NewKVWithClock lets tests drive expiry with a simulated clock.
func NewKVWithClock(now func() time.Time) *KV {
	return &KV{items: make(map[string]kvItem), now: now}
}

func (k *KV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	it, ok := k.live(key)
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), it.value...), true, nil
}

func (k *KV) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	k.items[key] = kvItem{value: append([]byte(nil), value...), expires: k.expiry(ttl)}
	return nil
}

func (k *KV) Del(ctx context.Context, key string) error {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.items, key)
	return nil
}

// Incr increments the integer at key and, when the key is new, sets its ttl.
func (k *KV) Incr(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	_ = ctx
	k.mu.Lock()
	defer k.mu.Unlock()
	var n int64
	it, ok := k.live(key)
	if ok {
		v, err := strconv.ParseInt(string(it.value), 10, 64)
		if err != nil {
			return 0, err
		}
		n = v
	} else {
		it.expires = k.expiry(ttl)
	}
	n++
	k.items[key] = kvItem{value: []byte(strconv.FormatInt(n, 10)), expires: it.expires}
	return n, nil
}

// live returns the item for key, evicting it when expired. Caller holds mu.
func (k *KV) live(key string) (kvItem, bool) {
	it, ok := k.items[key]
	if !ok {
		return kvItem{}, false
	}
	if !it.expires.IsZero() && !k.now().Before(it.expires) {
		delete(k.items, key)
		return kvItem{}, false
	}
	return it, true
}

func (k *KV) expiry(ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return k.now().Add(ttl)
}
