// Package amm implements constant-product pricing with a pool fee,
// transfer-fee-aware inputs, and chunked liquidity scaling for shallow pools.
package amm

import (
	"context"
	"fmt"

	"token-launchpad/internal/domain"
)

// Result is the outcome of a curve computation. It never mutates reserves.
type Result struct {
	AmountIn       uint64 // amount entering the pool
	PoolFee        uint64 // pool fee taken from AmountIn
	AmountAfterFee uint64 // AmountIn - PoolFee
	AmountOut      uint64
	Scaled         bool // liquidity scaling simulator was used
}

// SwapOutput prices a swap on the constant-product curve.
// The pool fee is deducted from the input before the curve is applied.
//
//	buy:  out = after * base / (quote + after)
//	sell: out = after * quote / (after + base)
func SwapOutput(input uint64, side domain.Side, baseReserve, quoteReserve uint64, feeRate uint16) (Result, error) {
	if err := validate(input, side, baseReserve, quoteReserve, feeRate); err != nil {
		return Result{}, err
	}

	fee, after, err := splitFee(input, feeRate)
	if err != nil {
		return Result{}, err
	}

	reserveIn, reserveOut := orient(side, baseReserve, quoteReserve)
	out, err := curveOutput(after, reserveIn, reserveOut)
	if err != nil {
		return Result{}, err
	}
	if err := checkOutput(out, reserveOut); err != nil {
		return Result{}, err
	}

	return Result{
		AmountIn:       input,
		PoolFee:        fee,
		AmountAfterFee: after,
		AmountOut:      out,
	}, nil
}

func validate(input uint64, side domain.Side, baseReserve, quoteReserve uint64, feeRate uint16) error {
	switch {
	case input == 0:
		return ErrZeroInput
	case !side.IsValid():
		return fmt.Errorf("%w: %d", ErrInvalidSide, side)
	case feeRate >= domain.PoolFeeDenominator:
		return fmt.Errorf("%w: %d", ErrInvalidFeeRate, feeRate)
	case baseReserve == 0 || quoteReserve == 0:
		return ErrEmptyReserves
	}
	return nil
}

// splitFee returns fee = input*rate/10000 and input - fee.
func splitFee(input uint64, feeRate uint16) (uint64, uint64, error) {
	fee, err := MulDiv(input, uint64(feeRate), domain.PoolFeeDenominator)
	if err != nil {
		return 0, 0, fmt.Errorf("pool fee: %w", err)
	}
	after, err := CheckedSub(input, fee)
	if err != nil {
		return 0, 0, fmt.Errorf("pool fee: %w", err)
	}
	return fee, after, nil
}

// orient returns (reserve receiving the input, reserve paying the output).
func orient(side domain.Side, baseReserve, quoteReserve uint64) (uint64, uint64) {
	if side == domain.SideBuy {
		return quoteReserve, baseReserve
	}
	return baseReserve, quoteReserve
}

func curveOutput(amount, reserveIn, reserveOut uint64) (uint64, error) {
	if amount == 0 {
		return 0, nil
	}
	denom, err := CheckedAdd(reserveIn, amount)
	if err != nil {
		return 0, fmt.Errorf("curve denominator: %w", err)
	}
	return MulDiv(amount, reserveOut, denom)
}

func checkOutput(out, reserveOut uint64) error {
	if out == 0 {
		return ErrZeroOutput
	}
	if reserveOut-out < domain.DustFloor {
		return fmt.Errorf("%w: %d - %d < %d", ErrDustFloor, reserveOut, out, domain.DustFloor)
	}
	return nil
}

// MinOutput rejects outputs below the caller's minimum. A zero minimum accepts anything.
func MinOutput(out, min uint64) error {
	if out < min {
		return fmt.Errorf("%w: %d < %d", ErrSlippage, out, min)
	}
	return nil
}

// FeeLookup returns the amount a token transfer withholds.
type FeeLookup interface {
	FeeFor(ctx context.Context, amount uint64, mint string) (uint64, error)
}

// Quote is a fully priced swap against a pool.
type Quote struct {
	Side        domain.Side
	AmountIn    uint64 // nominal amount debited from the trader
	TransferFee uint64 // withheld by the token program on the way in
	AmountNet   uint64 // AmountIn - TransferFee, credited to the pool
	PoolFee     uint64
	AmountOut   uint64
	Scaled      bool
}

// Calculator prices swaps against pool state.
type Calculator struct {
	fees FeeLookup
}

// NewCalculator creates a calculator. A nil lookup disables transfer fees.
func NewCalculator(fees FeeLookup) *Calculator {
	return &Calculator{fees: fees}
}

// Quote prices a swap of amountIn against pool. When feeAware is set the
// input is first reduced by the input mint's transfer fee. The liquidity
// scaling simulator is used while the pool's scaling plugin is active.
func (c *Calculator) Quote(ctx context.Context, pool *domain.Pool, side domain.Side, amountIn uint64, feeAware bool) (*Quote, error) {
	if !side.IsValid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSide, side)
	}
	if amountIn == 0 {
		return nil, ErrZeroInput
	}

	var transferFee uint64
	if feeAware && c.fees != nil {
		fee, err := c.fees.FeeFor(ctx, amountIn, pool.InputMint(side))
		if err != nil {
			return nil, fmt.Errorf("transfer fee: %w", err)
		}
		transferFee = fee
	}

	net, err := CheckedSub(amountIn, transferFee)
	if err != nil {
		return nil, fmt.Errorf("transfer fee: %w", err)
	}

	res, err := Simulate(net, side, pool.BaseReserve, pool.QuoteReserve, pool.FeeRate, pool.LiquidityScaling())
	if err != nil {
		return nil, err
	}

	return &Quote{
		Side:        side,
		AmountIn:    amountIn,
		TransferFee: transferFee,
		AmountNet:   net,
		PoolFee:     res.PoolFee,
		AmountOut:   res.AmountOut,
		Scaled:      res.Scaled,
	}, nil
}
