package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// NonceStore remembers request nonces for a while.
type NonceStore interface {
	// Claim records key for ttl. It reports false when key is already held.
	Claim(ctx context.Context, key string, ttl time.Duration) (bool, error)
}

var (
	_ NonceStore = (*MemoryNonceStore)(nil)
	_ NonceStore = (*RedisNonceStore)(nil)
)

// MemoryNonceStore holds nonces in process. Only suitable for a single replica.
type MemoryNonceStore struct {
	mu      sync.Mutex
	expires map[string]time.Time
	clock   func() time.Time
	swept   time.Time
}

// NewMemoryNonceStore creates an empty store. A nil clock uses time.Now.
func NewMemoryNonceStore(clock func() time.Time) *MemoryNonceStore {
	if clock == nil {
		clock = time.Now
	}
	return &MemoryNonceStore{expires: make(map[string]time.Time), clock: clock}
}

func (m *MemoryNonceStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock()
	if now.Sub(m.swept) >= ttl {
		for k, exp := range m.expires {
			if !now.Before(exp) {
				delete(m.expires, k)
			}
		}
		m.swept = now
	}

	if exp, ok := m.expires[key]; ok && now.Before(exp) {
		return false, nil
	}
	m.expires[key] = now.Add(ttl)
	return true, nil
}

// Len returns the number of nonces held, expired or not.
func (m *MemoryNonceStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.expires)
}

// RedisNonceStore shares nonces between replicas through SET NX.
type RedisNonceStore struct {
	client *redis.Client
	prefix string
}

// NewRedisNonceStore creates a store keeping nonces under "nonce:".
func NewRedisNonceStore(client *redis.Client) *RedisNonceStore {
	return &RedisNonceStore{client: client, prefix: "nonce:"}
}

func (r *RedisNonceStore) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.SetNX(ctx, r.prefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("redis setnx: %w", err)
	}
	return ok, nil
}
