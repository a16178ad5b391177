package amm

import "errors"

// Validation errors.
var (
	// ErrZeroInput is returned for a zero input amount.
	ErrZeroInput = errors.New("input amount is zero")

	// ErrInvalidSide is returned for an unknown swap side.
	ErrInvalidSide = errors.New("invalid swap side")

	// ErrInvalidFeeRate is returned when the fee rate is 100% or more.
	ErrInvalidFeeRate = errors.New("invalid fee rate")

	// ErrEmptyReserves is returned when either reserve is zero.
	ErrEmptyReserves = errors.New("pool reserves are empty")

	// ErrSlippage is returned when the output is below the caller's minimum.
	ErrSlippage = errors.New("output below minimum")

	// ErrInvalidPlugin is returned for a scaling plugin with a zero threshold.
	ErrInvalidPlugin = errors.New("invalid liquidity scaling plugin")
)

// Arithmetic errors.
var (
	// ErrZeroOutput is returned when the output rounds to zero.
	ErrZeroOutput = errors.New("output rounds to zero")

	// ErrDustFloor is returned when a swap would drain a reserve below the dust floor.
	ErrDustFloor = errors.New("reserve would fall below dust floor")

	// ErrDivisionByZero is returned for a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrOverflow is returned when a u64 computation overflows.
	ErrOverflow = errors.New("arithmetic overflow")

	// ErrUnderflow is returned when a checked subtraction would go negative.
	ErrUnderflow = errors.New("arithmetic underflow")

	// ErrNonFinite is returned when a floating-point intermediate is NaN or infinite.
	ErrNonFinite = errors.New("non-finite value")
)

// IsArithmetic reports whether err is an arithmetic failure.
func IsArithmetic(err error) bool {
	for _, target := range []error{ErrZeroOutput, ErrDustFloor, ErrDivisionByZero, ErrOverflow, ErrUnderflow, ErrNonFinite} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
