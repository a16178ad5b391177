package memory

import (
	"context"
	"sort"
	"sync"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/storage"
)

// SwapLogStore is an in-memory implementation of storage.SwapLogStore.
type SwapLogStore struct {
	mu     sync.RWMutex
	data   map[string]*domain.SwapReceipt // keyed by swap_id
	nextID int64
}

// NewSwapLogStore creates a new in-memory swap log store.
func NewSwapLogStore() *SwapLogStore {
	return &SwapLogStore{
		data: make(map[string]*domain.SwapReceipt),
	}
}

// Insert adds a receipt. Returns ErrDuplicateKey if swap_id exists.
func (s *SwapLogStore) Insert(_ context.Context, r *domain.SwapReceipt) error {
	if r == nil || r.SwapID == "" || r.Pool == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.data[r.SwapID]; exists {
		return storage.ErrDuplicateKey
	}

	s.nextID++
	receipt := *r
	receipt.ID = s.nextID
	s.data[r.SwapID] = &receipt
	return nil
}

// GetByPool retrieves the most recent receipts for a pool, ordered by timestamp ASC.
func (s *SwapLogStore) GetByPool(_ context.Context, pool string, limit int) ([]*domain.SwapReceipt, error) {
	result := s.filter(func(r *domain.SwapReceipt) bool { return r.Pool == pool })
	if limit > 0 && len(result) > limit {
		result = result[len(result)-limit:]
	}
	return result, nil
}

// GetByTimeRange retrieves receipts for a pool within [start, end] (inclusive).
func (s *SwapLogStore) GetByTimeRange(_ context.Context, pool string, start, end int64) ([]*domain.SwapReceipt, error) {
	return s.filter(func(r *domain.SwapReceipt) bool {
		return r.Pool == pool && r.Timestamp >= start && r.Timestamp <= end
	}), nil
}

func (s *SwapLogStore) filter(keep func(*domain.SwapReceipt) bool) []*domain.SwapReceipt {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*domain.SwapReceipt
	for _, r := range s.data {
		if keep(r) {
			receipt := *r
			result = append(result, &receipt)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Timestamp != result[j].Timestamp {
			return result[i].Timestamp < result[j].Timestamp
		}
		return result[i].ID < result[j].ID
	})
	return result
}

var _ storage.SwapLogStore = (*SwapLogStore)(nil)
