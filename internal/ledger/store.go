package ledger

import "context"

// Record is an identity-addressed state blob.
type Record struct {
	ID       string
	Data     []byte
	Lamports uint64
	Version  uint64 // 0 until first stored
}

// ChangeKind is the type of a staged record change.
type ChangeKind int

// Change kinds.
const (
	ChangeUpsert ChangeKind = iota
	ChangeDelete
)

// Change is one record mutation applied by Store.Apply.
// ExpectedVersion 0 means the record must not exist yet.
type Change struct {
	Kind            ChangeKind
	Record          Record
	ExpectedVersion uint64
}

// Store persists records.
type Store interface {
	// Get retrieves a record. Returns ErrNotFound if it does not exist.
	Get(ctx context.Context, id string) (*Record, error)

	// Apply applies all changes atomically. Returns ErrConflict if any record's
	// stored version differs from ExpectedVersion; nothing is applied in that case.
	Apply(ctx context.Context, changes []Change) error
}
