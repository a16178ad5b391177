package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// SwapLogStore implements storage.SwapLogStore using PostgreSQL.
type SwapLogStore struct {
	pool *Pool
}

// NewSwapLogStore creates a new SwapLogStore.
func NewSwapLogStore(pool *Pool) *SwapLogStore {
	return &SwapLogStore{pool: pool}
}

// Compile-time interface check.
var _ storage.SwapLogStore = (*SwapLogStore)(nil)

const swapColumns = `
	id, swap_id, pool, user_key, side, amount_in, amount_net, transfer_fee, pool_fee,
	amount_out, scaled, price, base_reserve, quote_reserve, timestamp, reward_day, created_at
`

// Insert adds a receipt and sets its ID. Returns ErrDuplicateKey if swap_id exists.
func (s *SwapLogStore) Insert(ctx context.Context, r *domain.SwapReceipt) (err error) {
	if r.SwapID == "" || r.Pool == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "swap_insert", time.Since(start).Seconds(), err)
	}(time.Now())

	query := `
		INSERT INTO swap_receipts (
			swap_id, pool, user_key, side, amount_in, amount_net, transfer_fee, pool_fee,
			amount_out, scaled, price, base_reserve, quote_reserve, timestamp, reward_day, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`

	var rewardDay *int32
	if r.RewardDay != nil {
		d := int32(*r.RewardDay)
		rewardDay = &d
	}

	err = s.pool.QueryRow(ctx, query,
		r.SwapID,
		r.Pool,
		r.User,
		int16(r.Side),
		r.AmountIn,
		r.AmountNet,
		r.TransferFee,
		r.PoolFee,
		r.AmountOut,
		r.Scaled,
		r.Price,
		r.BaseReserve,
		r.QuoteReserve,
		r.Timestamp,
		rewardDay,
		r.CreatedAt,
	).Scan(&r.ID)
	if err != nil {
		if isDuplicateKeyError(err) {
			return storage.ErrDuplicateKey
		}
		return fmt.Errorf("insert swap receipt: %w", err)
	}
	return nil
}

// GetByPool retrieves the most recent receipts for a pool (up to limit), ordered by timestamp ASC.
func (s *SwapLogStore) GetByPool(ctx context.Context, pool string, limit int) ([]*domain.SwapReceipt, error) {
	query := `
		SELECT ` + swapColumns + `
		FROM (
			SELECT ` + swapColumns + `
			FROM swap_receipts
			WHERE pool = $1
			ORDER BY timestamp DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, pool, limit)
	if err != nil {
		return nil, fmt.Errorf("get swap receipts by pool: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

// GetByTimeRange retrieves receipts for a pool within [start, end] (inclusive).
func (s *SwapLogStore) GetByTimeRange(ctx context.Context, pool string, start, end int64) ([]*domain.SwapReceipt, error) {
	query := `
		SELECT ` + swapColumns + `
		FROM swap_receipts
		WHERE pool = $1 AND timestamp >= $2 AND timestamp <= $3
		ORDER BY timestamp ASC, id ASC
	`

	rows, err := s.pool.Query(ctx, query, pool, start, end)
	if err != nil {
		return nil, fmt.Errorf("get swap receipts by time range: %w", err)
	}
	defer rows.Close()

	return scanReceipts(rows)
}

// scanReceipts scans multiple rows into a slice of SwapReceipt.
func scanReceipts(rows pgx.Rows) ([]*domain.SwapReceipt, error) {
	var receipts []*domain.SwapReceipt

	for rows.Next() {
		var (
			r         domain.SwapReceipt
			side      int16
			rewardDay *int32
		)
		err := rows.Scan(
			&r.ID,
			&r.SwapID,
			&r.Pool,
			&r.User,
			&side,
			&r.AmountIn,
			&r.AmountNet,
			&r.TransferFee,
			&r.PoolFee,
			&r.AmountOut,
			&r.Scaled,
			&r.Price,
			&r.BaseReserve,
			&r.QuoteReserve,
			&r.Timestamp,
			&rewardDay,
			&r.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan swap receipt row: %w", err)
		}
		r.Side = domain.Side(side)
		if rewardDay != nil {
			d := uint32(*rewardDay)
			r.RewardDay = &d
		}
		receipts = append(receipts, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap receipt rows: %w", err)
	}

	return receipts, nil
}
