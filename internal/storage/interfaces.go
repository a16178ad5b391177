package storage

import (
	"context"

	"token-launchpad/internal/domain"
)

// SwapLogStore provides access to the swap_receipts journal.
type SwapLogStore interface {
	// Insert adds a receipt. Returns ErrDuplicateKey if swap_id exists.
	Insert(ctx context.Context, r *domain.SwapReceipt) error

	// GetByPool retrieves the most recent receipts for a pool (up to limit), ordered by timestamp ASC.
	GetByPool(ctx context.Context, pool string, limit int) ([]*domain.SwapReceipt, error)

	// GetByTimeRange retrieves receipts for a pool within [start, end] (inclusive, unix seconds).
	GetByTimeRange(ctx context.Context, pool string, start, end int64) ([]*domain.SwapReceipt, error)
}

// CandleStore provides access to exported pool candles.
// The latest write for a (pool, timestamp) wins.
type CandleStore interface {
	// Upsert stores the current state of a candle.
	Upsert(ctx context.Context, c *domain.PoolCandle) error

	// GetByTimeRange retrieves candles for a pool within [start, end] (inclusive), ordered by timestamp ASC.
	GetByTimeRange(ctx context.Context, pool string, start, end int64) ([]*domain.PoolCandle, error)
}
