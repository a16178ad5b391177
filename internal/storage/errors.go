package storage

import "errors"

var (
	// ErrDuplicateKey is returned when a swap receipt with the same swap ID
	// was already journaled.
	ErrDuplicateKey = errors.New("swap already journaled")

	// ErrInvalidInput is returned for receipts or candles missing required fields.
	ErrInvalidInput = errors.New("invalid storage input")
)
