package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// CandleStore is an in-memory implementation of storage.CandleStore.
type CandleStore struct {
	mu   sync.RWMutex
	data map[string]*domain.PoolCandle // keyed by (pool, timestamp)
}

// NewCandleStore creates a new in-memory candle store.
func NewCandleStore() *CandleStore {
	return &CandleStore{
		data: make(map[string]*domain.PoolCandle),
	}
}

// candleKey generates a unique key for a candle.
func candleKey(pool string, timestamp int64) string {
	return fmt.Sprintf("%s|%d", pool, timestamp)
}

// Upsert stores the current state of a candle.
func (s *CandleStore) Upsert(_ context.Context, c *domain.PoolCandle) error {
	if c == nil || c.Pool == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	candle := *c
	s.data[candleKey(c.Pool, c.Timestamp)] = &candle
	return nil
}

// GetByTimeRange retrieves candles for a pool within [start, end] (inclusive).
func (s *CandleStore) GetByTimeRange(_ context.Context, pool string, start, end int64) ([]*domain.PoolCandle, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.PoolCandle
	for _, c := range s.data {
		if c.Pool == pool && c.Timestamp >= start && c.Timestamp <= end {
			candle := *c
			result = append(result, &candle)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Timestamp < result[j].Timestamp
	})

	return result, nil
}

var _ storage.CandleStore = (*CandleStore)(nil)
