package registration

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-ticket-otp/internal/domain"
)

// CacheKey derives the pending-registration key from the normalized identity.
// Registering the same identity twice yields the same key.
func CacheKey(name, email, phone string) string {
	sum := sha256.Sum256([]byte(name + "_" + email + "_" + phone))
	return "user_data_" + hex.EncodeToString(sum[:])
}

type kv interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// PendingStore keeps pending registrations as JSON in a TTL cache.
type PendingStore struct {
	kv kv
}

func NewPendingStore(kv kv) *PendingStore {
	return &PendingStore{kv: kv}
}

// Save overwrites any record under p.CacheKey.
func (s *PendingStore) Save(ctx context.Context, p *domain.PendingRegistration, ttl time.Duration) error {
	p.TTL = int64(ttl / time.Second)
	b, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode pending registration: %w", err)
	}
	return s.kv.Set(ctx, p.CacheKey, b, ttl)
}

// Load returns domain.ErrNotFound when the key is absent or has expired.
func (s *PendingStore) Load(ctx context.Context, key string) (*domain.PendingRegistration, error) {
	b, ok, err := s.kv.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrNotFound
	}
	var p domain.PendingRegistration
	if err := json.Unmarshal(b, &p); err != nil {
		return nil, fmt.Errorf("decode pending registration %s: %w", key, err)
	}
	p.CacheKey = key
	return &p, nil
}

func (s *PendingStore) Delete(ctx context.Context, key string) error {
	return s.kv.Del(ctx, key)
}
