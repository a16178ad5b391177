package amm

import (
	"fmt"
	"math"

	"token-launchpad/internal/domain"
)

// Liquidity scaling constants.
const (
	MaxChunks        = 50
	MinChunkBuy      = 100     // quote units
	MinChunkSell     = 100_000 // base units
	MinScalingFactor = 0.0002
	MaxScalingFactor = 1.0
)

// ScalingFactor returns the price-impact damping for a quote reserve:
// 1.0 at or above threshold, otherwise quote*scalar/10/threshold clamped
// to [0.0002, 1.0].
func ScalingFactor(quoteReserve, scalar, threshold uint64) float64 {
	if threshold == 0 || quoteReserve >= threshold {
		return MaxScalingFactor
	}
	f := float64(quoteReserve) * float64(scalar) / 10 / float64(threshold)
	return math.Min(MaxScalingFactor, math.Max(MinScalingFactor, f))
}

// ChunkCount returns how many chunks the simulator splits input into.
func ChunkCount(input uint64, side domain.Side) uint64 {
	minChunk := uint64(MinChunkBuy)
	if side == domain.SideSell {
		minChunk = MinChunkSell
	}
	return min(input/minChunk+1, MaxChunks)
}

// Simulate prices a swap while a liquidity scaling plugin is active. The
// input is split into chunks; each chunk's effective input is damped by the
// scaling factor of the provisional quote reserve, and the provisional
// reserves advance chunk by chunk. Inactive or absent plugins, and pools
// already at the threshold, price exactly like SwapOutput.
func Simulate(input uint64, side domain.Side, baseReserve, quoteReserve uint64, feeRate uint16, plugin *domain.LiquidityScalingPlugin) (Result, error) {
	if plugin == nil || !plugin.Active || quoteReserve >= plugin.Threshold {
		return SwapOutput(input, side, baseReserve, quoteReserve, feeRate)
	}
	if err := validate(input, side, baseReserve, quoteReserve, feeRate); err != nil {
		return Result{}, err
	}

	chunks := ChunkCount(input, side)
	chunkSize := input / chunks

	base, quote := baseReserve, quoteReserve
	res := Result{AmountIn: input, Scaled: true}

	for i := uint64(0); i < chunks; i++ {
		chunk := chunkSize
		if i == chunks-1 {
			chunk = input - chunkSize*(chunks-1)
		}

		fee, after, err := splitFee(chunk, feeRate)
		if err != nil {
			return Result{}, err
		}

		factor := ScalingFactor(quote, plugin.Scalar, plugin.Threshold)
		effective, err := scaleInput(after, factor, side)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %d: %w", i, err)
		}

		reserveIn, reserveOut := orient(side, base, quote)
		out, err := curveOutput(effective, reserveIn, reserveOut)
		if err != nil {
			return Result{}, fmt.Errorf("chunk %d: %w", i, err)
		}

		if side == domain.SideBuy {
			if quote, err = CheckedAdd(quote, chunk); err != nil {
				return Result{}, fmt.Errorf("chunk %d quote reserve: %w", i, err)
			}
			if base, err = CheckedSub(base, out); err != nil {
				return Result{}, fmt.Errorf("chunk %d base reserve: %w", i, err)
			}
		} else {
			if base, err = CheckedAdd(base, chunk); err != nil {
				return Result{}, fmt.Errorf("chunk %d base reserve: %w", i, err)
			}
			if quote, err = CheckedSub(quote, out); err != nil {
				return Result{}, fmt.Errorf("chunk %d quote reserve: %w", i, err)
			}
		}

		res.PoolFee += fee
		res.AmountAfterFee += after
		res.AmountOut += out
	}

	_, reserveOut := orient(side, baseReserve, quoteReserve)
	if err := checkOutput(res.AmountOut, reserveOut); err != nil {
		return Result{}, err
	}
	return res, nil
}

// scaleInput applies the scaling factor: buys multiply, sells divide.
func scaleInput(amount uint64, factor float64, side domain.Side) (uint64, error) {
	if math.IsNaN(factor) || math.IsInf(factor, 0) || factor <= 0 {
		return 0, fmt.Errorf("scaling factor %v: %w", factor, ErrNonFinite)
	}

	var scaled float64
	if side == domain.SideBuy {
		scaled = float64(amount) * factor
	} else {
		scaled = float64(amount) / factor
	}

	if math.IsNaN(scaled) || math.IsInf(scaled, 0) {
		return 0, fmt.Errorf("scaled input %v: %w", scaled, ErrNonFinite)
	}
	if scaled >= math.MaxUint64 {
		return 0, fmt.Errorf("scaled input %v: %w", scaled, ErrOverflow)
	}
	return uint64(scaled), nil
}
