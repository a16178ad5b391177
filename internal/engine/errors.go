package engine

import (
	"errors"
	"fmt"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/codec"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/rewards"
	"token-launchpad/internal/timeseries"
	"token-launchpad/internal/transferfee"
)

// Validation errors.
var (
	// ErrPoolNotFound is returned when no pool exists at the given identity.
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPoolExists is returned when initializing a pool that already exists.
	ErrPoolExists = errors.New("pool already exists")

	// ErrUnauthorized is returned when the caller is not the pool creator.
	ErrUnauthorized = errors.New("caller lacks authority")

	// ErrInvalidKey is returned for identities that are not 32-byte base58 keys.
	ErrInvalidKey = errors.New("invalid key")

	// ErrSameMint is returned when base and quote mints are equal.
	ErrSameMint = errors.New("base and quote mints are equal")

	// ErrInvalidAmount is returned for zero or out-of-range amounts.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrInvalidFeeRate is returned for fee rates of 100% or more.
	ErrInvalidFeeRate = errors.New("invalid fee rate")

	// ErrInvalidPlugin is returned for malformed plugin parameters.
	ErrInvalidPlugin = errors.New("invalid plugin parameters")

	// ErrPluginExists is returned when attaching a plugin twice.
	ErrPluginExists = errors.New("plugin already attached")

	// ErrPluginMissing is returned when an operation needs a plugin the pool lacks.
	ErrPluginMissing = errors.New("plugin not attached")

	// ErrInsufficientBalance is returned when a token account cannot cover a debit.
	ErrInsufficientBalance = errors.New("insufficient token balance")

	// ErrFaucetDisabled is returned by faucet operations on networks without a faucet.
	ErrFaucetDisabled = errors.New("faucet disabled on this network")
)

// Temporal errors.
var (
	// ErrDayNotClosed is returned when claiming the current day or a future day.
	ErrDayNotClosed = errors.New("reward day has not ended")

	// ErrRewardDayNotFound is returned when no reward-day record was opened for the day.
	ErrRewardDayNotFound = errors.New("reward day not found")
)

// Category classifies a rejected operation.
type Category string

// Rejection categories.
const (
	CategoryValidation Category = "validation"
	CategoryArithmetic Category = "arithmetic"
	CategoryTemporal   Category = "temporal"
	CategoryConflict   Category = "conflict"
)

// Rejection is a failed operation that committed nothing.
type Rejection struct {
	Category Category
	Op       string
	Err      error
}

func (r *Rejection) Error() string {
	return fmt.Sprintf("%s rejected (%s): %v", r.Op, r.Category, r.Err)
}

func (r *Rejection) Unwrap() error {
	return r.Err
}

// CategoryOf returns the rejection category of err, or "" if err is not a rejection.
func CategoryOf(err error) Category {
	var rej *Rejection
	if errors.As(err, &rej) {
		return rej.Category
	}
	return ""
}

var (
	temporalErrors = []error{
		ErrDayNotClosed,
		ErrRewardDayNotFound,
		timeseries.ErrStaleMinute,
	}

	arithmeticErrors = []error{
		rewards.ErrNoVolume,
		rewards.ErrNonFinite,
		rewards.ErrFractionDecreased,
		rewards.ErrScheduleOverflow,
		timeseries.ErrInvalidPrice,
		timeseries.ErrVolumeOverflow,
	}

	validationErrors = []error{
		ErrPoolNotFound,
		ErrPoolExists,
		ErrUnauthorized,
		ErrInvalidKey,
		ErrSameMint,
		ErrInvalidAmount,
		ErrInvalidFeeRate,
		ErrInvalidPlugin,
		ErrPluginExists,
		ErrPluginMissing,
		ErrInsufficientBalance,
		ErrFaucetDisabled,
		amm.ErrZeroInput,
		amm.ErrInvalidSide,
		amm.ErrInvalidFeeRate,
		amm.ErrEmptyReserves,
		amm.ErrSlippage,
		amm.ErrInvalidPlugin,
		codec.ErrWrongKind,
		codec.ErrShortBuffer,
		codec.ErrInvalidKey,
		ledger.ErrNotFound,
		ledger.ErrAlreadyExists,
		ledger.ErrInsufficientLamports,
		ledger.ErrSizeMismatch,
		ledger.ErrInvalidIdentity,
		ledger.ErrSeedTooLong,
		ledger.ErrNoOffCurveIdentity,
		rewards.ErrDayRegression,
		transferfee.ErrFeeExceedsAmount,
		transferfee.ErrMintNotFound,
		transferfee.ErrUnsupportedMint,
	}
)

// classify wraps err in a Rejection. Errors that are not rejections, such as
// storage or network failures, are returned unchanged.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var rej *Rejection
	if errors.As(err, &rej) {
		return err
	}

	category := Category("")
	switch {
	case errors.Is(err, ledger.ErrConflict):
		category = CategoryConflict
	case matchAny(err, temporalErrors):
		category = CategoryTemporal
	case amm.IsArithmetic(err) || matchAny(err, arithmeticErrors):
		category = CategoryArithmetic
	case matchAny(err, validationErrors):
		category = CategoryValidation
	default:
		return err
	}
	return &Rejection{Category: category, Op: op, Err: err}
}

func matchAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
