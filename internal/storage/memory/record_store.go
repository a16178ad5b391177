package memory

import (
	"context"
	"fmt"
	"sync"

	"token-launchpad/internal/ledger"
)

// RecordStore is an in-memory implementation of ledger.Store.
type RecordStore struct {
	mu   sync.RWMutex
	data map[string]*ledger.Record
}

// NewRecordStore creates a new in-memory record store.
func NewRecordStore() *RecordStore {
	return &RecordStore{
		data: make(map[string]*ledger.Record),
	}
}

// Get retrieves a record. Returns ErrNotFound if it does not exist.
func (s *RecordStore) Get(_ context.Context, id string) (*ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.data[id]
	if !ok {
		return nil, ledger.ErrNotFound
	}
	return copyRecord(rec), nil
}

// Apply applies all changes atomically with per-record version checks.
func (s *RecordStore) Apply(_ context.Context, changes []ledger.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// First pass: verify versions
	for _, ch := range changes {
		var current uint64
		if rec, ok := s.data[ch.Record.ID]; ok {
			current = rec.Version
		}
		if current != ch.ExpectedVersion {
			return fmt.Errorf("record %s at version %d, expected %d: %w",
				ch.Record.ID, current, ch.ExpectedVersion, ledger.ErrConflict)
		}
	}

	// Second pass: apply all
	for _, ch := range changes {
		switch ch.Kind {
		case ledger.ChangeDelete:
			delete(s.data, ch.Record.ID)
		default:
			rec := copyRecord(&ch.Record)
			rec.Version = ch.ExpectedVersion + 1
			s.data[rec.ID] = rec
		}
	}

	return nil
}

// Len returns the number of stored records.
func (s *RecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func copyRecord(rec *ledger.Record) *ledger.Record {
	data := make([]byte, len(rec.Data))
	copy(data, rec.Data)
	return &ledger.Record{
		ID:       rec.ID,
		Data:     data,
		Lamports: rec.Lamports,
		Version:  rec.Version,
	}
}

var _ ledger.Store = (*RecordStore)(nil)
