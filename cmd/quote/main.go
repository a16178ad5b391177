// Package main prices a swap offline against flag-supplied pool state,
// using the same calculator and liquidity scaling simulator as the engine.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/transferfee"
)

const (
	baseMint  = "base"
	quoteMint = "quote"
)

// output is the machine-readable form of a quote.
type output struct {
	Side         string  `json:"side"`
	AmountIn     uint64  `json:"amount_in"`
	TransferFee  uint64  `json:"transfer_fee"`
	AmountNet    uint64  `json:"amount_net"`
	PoolFee      uint64  `json:"pool_fee"`
	AmountOut    uint64  `json:"amount_out"`
	Scaled       bool    `json:"scaled"`
	PriceBefore  float64 `json:"price_before"`
	PriceAfter   float64 `json:"price_after"`
	BaseReserve  uint64  `json:"base_reserve_after"`
	QuoteReserve uint64  `json:"quote_reserve_after"`
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("quote", flag.ContinueOnError)
	side := fs.String("side", "buy", "Swap side (buy spends quote, sell spends base)")
	amount := fs.Uint64("amount", 0, "Input amount in smallest units")
	baseReserve := fs.Uint64("base-reserve", 0, "Pool base reserve")
	quoteReserve := fs.Uint64("quote-reserve", 0, "Pool quote reserve")
	feeRate := fs.Uint("fee-rate", 25, "Pool fee in hundredths of a percent")
	scalar := fs.Uint64("scalar", 0, "Liquidity scaling scalar (0 disables scaling)")
	threshold := fs.Uint64("threshold", 0, "Liquidity scaling quote threshold")
	transferBps := fs.Uint("transfer-fee-bps", 0, "Transfer fee on the input mint in basis points")
	transferMax := fs.Uint64("transfer-fee-max", ^uint64(0), "Maximum transfer fee on the input mint")
	asJSON := fs.Bool("json", false, "Print the quote as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	s, ok := domain.ParseSide(*side)
	if !ok {
		return fmt.Errorf("unknown side %q", *side)
	}
	if *feeRate >= domain.PoolFeeDenominator {
		return fmt.Errorf("fee rate %d must be below %d", *feeRate, domain.PoolFeeDenominator)
	}
	if *transferBps > transferfee.MaxBasisPoints {
		return fmt.Errorf("transfer fee %d bps exceeds %d", *transferBps, transferfee.MaxBasisPoints)
	}

	pool := &domain.Pool{
		BaseMint:     baseMint,
		QuoteMint:    quoteMint,
		BaseReserve:  *baseReserve,
		QuoteReserve: *quoteReserve,
		FeeRate:      uint16(*feeRate),
	}
	if *scalar > 0 {
		pool.Plugins = append(pool.Plugins, domain.Plugin{
			Tag: domain.PluginLiquidityScaling,
			LiquidityScaling: &domain.LiquidityScalingPlugin{
				Scalar:    *scalar,
				Threshold: *threshold,
				Active:    *quoteReserve < *threshold,
			},
		})
	}

	fees := transferfee.NewLookup(transferfee.NewStaticSource(map[string]transferfee.Schedule{
		pool.InputMint(s): {BasisPoints: uint16(*transferBps), MaximumFee: *transferMax},
	}))

	q, err := amm.NewCalculator(fees).Quote(context.Background(), pool, s, *amount, *transferBps > 0)
	if err != nil {
		return err
	}

	out, err := summarize(pool, q)
	if err != nil {
		return err
	}

	if *asJSON {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	fmt.Fprintf(stdout, "Side:          %s\n", out.Side)
	fmt.Fprintf(stdout, "Amount in:     %d\n", out.AmountIn)
	fmt.Fprintf(stdout, "Transfer fee:  %d\n", out.TransferFee)
	fmt.Fprintf(stdout, "Pool fee:      %d\n", out.PoolFee)
	fmt.Fprintf(stdout, "Amount out:    %d\n", out.AmountOut)
	fmt.Fprintf(stdout, "Scaled:        %v\n", out.Scaled)
	fmt.Fprintf(stdout, "Price:         %.9f -> %.9f\n", out.PriceBefore, out.PriceAfter)
	fmt.Fprintf(stdout, "Reserves:      %d base / %d quote\n", out.BaseReserve, out.QuoteReserve)
	return nil
}

// summarize applies the quote to a copy of the reserves.
func summarize(pool *domain.Pool, q *amm.Quote) (*output, error) {
	before, err := amm.SpotPrice(pool.BaseReserve, pool.QuoteReserve)
	if err != nil {
		return nil, err
	}

	base, quote := pool.BaseReserve, pool.QuoteReserve
	if q.Side == domain.SideBuy {
		quote, err = amm.CheckedAdd(quote, q.AmountNet)
		if err == nil {
			base, err = amm.CheckedSub(base, q.AmountOut)
		}
	} else {
		base, err = amm.CheckedAdd(base, q.AmountNet)
		if err == nil {
			quote, err = amm.CheckedSub(quote, q.AmountOut)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("apply quote: %w", err)
	}

	after, err := amm.SpotPrice(base, quote)
	if err != nil {
		return nil, err
	}

	return &output{
		Side:         q.Side.String(),
		AmountIn:     q.AmountIn,
		TransferFee:  q.TransferFee,
		AmountNet:    q.AmountNet,
		PoolFee:      q.PoolFee,
		AmountOut:    q.AmountOut,
		Scaled:       q.Scaled,
		PriceBefore:  before,
		PriceAfter:   after,
		BaseReserve:  base,
		QuoteReserve: quote,
	}, nil
}
