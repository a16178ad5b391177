package clickhouse

import (
	"context"
	"fmt"
	"time"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// CandleStore implements storage.CandleStore using ClickHouse.
// Rows live in a ReplacingMergeTree keyed by (pool, timestamp); every upsert
// inserts a new row with a higher version and reads collapse with FINAL.
type CandleStore struct {
	conn *Conn
	now  func() time.Time
}

// NewCandleStore creates a new CandleStore.
func NewCandleStore(conn *Conn) *CandleStore {
	return &CandleStore{conn: conn, now: time.Now}
}

// Compile-time interface check.
var _ storage.CandleStore = (*CandleStore)(nil)

// Upsert stores the current state of a candle.
func (s *CandleStore) Upsert(ctx context.Context, c *domain.PoolCandle) (err error) {
	if c == nil || c.Pool == "" {
		return storage.ErrInvalidInput
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("clickhouse", "candle_upsert", time.Since(start).Seconds(), err)
	}(time.Now())

	batch, err := s.conn.PrepareBatch(ctx, `
		INSERT INTO pool_candles (
			pool, timestamp, open, high, low, close, volume, version
		)
	`)
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	err = batch.Append(
		c.Pool,
		c.Timestamp,
		c.Open,
		c.High,
		c.Low,
		c.Close,
		c.Volume,
		uint64(s.now().UnixNano()),
	)
	if err != nil {
		return fmt.Errorf("append to batch: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// GetByTimeRange retrieves candles for a pool within [start, end] (inclusive), ordered by timestamp ASC.
func (s *CandleStore) GetByTimeRange(ctx context.Context, pool string, start, end int64) ([]*domain.PoolCandle, error) {
	query := `
		SELECT pool, timestamp, open, high, low, close, volume
		FROM pool_candles FINAL
		WHERE pool = ? AND timestamp >= ? AND timestamp <= ?
		ORDER BY timestamp ASC
	`

	rows, err := s.conn.Query(ctx, query, pool, start, end)
	if err != nil {
		return nil, fmt.Errorf("query pool candles: %w", err)
	}
	defer rows.Close()

	var result []*domain.PoolCandle
	for rows.Next() {
		var c domain.PoolCandle
		if err := rows.Scan(&c.Pool, &c.Timestamp, &c.Open, &c.High, &c.Low, &c.Close, &c.Volume); err != nil {
			return nil, fmt.Errorf("scan pool candle: %w", err)
		}
		result = append(result, &c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pool candles: %w", err)
	}
	return result, nil
}
