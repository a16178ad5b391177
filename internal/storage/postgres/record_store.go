package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"token-launchpad/internal/ledger"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// RecordStore implements ledger.Store using PostgreSQL.
// Writes compare-and-swap on the record version inside one transaction.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a new RecordStore.
func NewRecordStore(pool *Pool) *RecordStore {
	return &RecordStore{pool: pool}
}

// Compile-time interface check.
var _ ledger.Store = (*RecordStore)(nil)

// Get retrieves a record by identity. Returns ledger.ErrNotFound if absent.
func (s *RecordStore) Get(ctx context.Context, id string) (rec *ledger.Record, err error) {
	defer func(start time.Time) {
		failed := err
		if errors.Is(failed, ledger.ErrNotFound) {
			failed = nil
		}
		observability.RecordDBQuery("postgres", "record_get", time.Since(start).Seconds(), failed)
	}(time.Now())

	query := `
		SELECT data, lamports, version
		FROM ledger_records
		WHERE id = $1
	`

	r := ledger.Record{ID: id}
	err = s.pool.QueryRow(ctx, query, id).Scan(&r.Data, &r.Lamports, &r.Version)
	if err != nil {
		if isNotFoundError(err) {
			return nil, ledger.ErrNotFound
		}
		return nil, fmt.Errorf("get record %s: %w", id, err)
	}
	return &r, nil
}

// Apply writes all changes atomically. Returns ledger.ErrConflict if any
// record's stored version differs from the change's expected version.
func (s *RecordStore) Apply(ctx context.Context, changes []ledger.Change) (err error) {
	if len(changes) == 0 {
		return nil
	}
	defer func(start time.Time) {
		observability.RecordDBQuery("postgres", "record_apply", time.Since(start).Seconds(), err)
	}(time.Now())

	return s.pool.InTx(ctx, func(tx pgx.Tx) error {
		for _, ch := range changes {
			if err := applyChange(ctx, tx, ch); err != nil {
				return err
			}
		}
		return nil
	})
}

func applyChange(ctx context.Context, tx pgx.Tx, ch ledger.Change) error {
	var (
		query string
		args  []any
	)
	switch {
	case ch.Kind == ledger.ChangeDelete:
		query = `DELETE FROM ledger_records WHERE id = $1 AND version = $2`
		args = []any{ch.Record.ID, ch.ExpectedVersion}
	case ch.ExpectedVersion == 0:
		query = `
			INSERT INTO ledger_records (id, data, lamports, version)
			VALUES ($1, $2, $3, 1)
			ON CONFLICT (id) DO NOTHING
		`
		args = []any{ch.Record.ID, nonNil(ch.Record.Data), ch.Record.Lamports}
	default:
		query = `
			UPDATE ledger_records
			SET data = $2, lamports = $3, version = version + 1, updated_at = now()
			WHERE id = $1 AND version = $4
		`
		args = []any{ch.Record.ID, nonNil(ch.Record.Data), ch.Record.Lamports, ch.ExpectedVersion}
	}

	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		if isRangeError(err) {
			return fmt.Errorf("record %s: %w", ch.Record.ID, storage.ErrInvalidInput)
		}
		return fmt.Errorf("apply record %s: %w", ch.Record.ID, err)
	}
	if tag.RowsAffected() != 1 {
		return fmt.Errorf("record %s at version %d: %w", ch.Record.ID, ch.ExpectedVersion, ledger.ErrConflict)
	}
	return nil
}

// nonNil maps empty wallet data to an empty BYTEA rather than NULL.
func nonNil(b []byte) []byte {
	if b == nil {
		return []byte{}
	}
	return b
}
