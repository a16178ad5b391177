package ledger

import "errors"

// Record storage errors.
var (
	// ErrNotFound is returned when a record identity has no stored record.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when creating a record that already exists.
	ErrAlreadyExists = errors.New("record already exists")

	// ErrConflict is returned by Store.Apply when a record changed since it was read.
	// The invocation had no effect and may be resubmitted.
	ErrConflict = errors.New("record version conflict")

	// ErrInsufficientLamports is returned when a payer cannot fund rent.
	ErrInsufficientLamports = errors.New("insufficient lamports for rent")

	// ErrSizeMismatch is returned when written data does not match the allocated size.
	ErrSizeMismatch = errors.New("data size does not match record size")

	// ErrCommitted is returned when using an invocation after Commit.
	ErrCommitted = errors.New("invocation already committed")

	// ErrInvalidIdentity is returned for identities that are not 32-byte base58 keys.
	ErrInvalidIdentity = errors.New("invalid record identity")

	// ErrSeedTooLong is returned when a derivation seed exceeds MaxSeedLen.
	ErrSeedTooLong = errors.New("derivation seed too long")

	// ErrNoOffCurveIdentity is returned when no bump yields an off-curve identity.
	ErrNoOffCurveIdentity = errors.New("unable to find off-curve identity")
)
