package engine

import (
	"context"
	"fmt"
	"time"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/codec"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/idhash"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/rewards"
	"token-launchpad/internal/timeseries"
)

// SwapRequest trades one side of a pool for the other.
type SwapRequest struct {
	Pool             string
	User             string
	Side             domain.Side
	AmountIn         uint64
	MinAmountOut     uint64 // slippage bound, 0 accepts any output
	TransferFeeAware bool   // deduct the input mint's transfer fee before pricing
}

// SwapResult is the outcome of an accepted swap.
type SwapResult struct {
	Receipt        *domain.SwapReceipt
	Candle         domain.Candle // latest candle after the swap
	CandleAppended bool
	ScalingEnded   bool // liquidity scaling deactivated by this swap
}

// QuoteRequest prices a swap without executing it.
type QuoteRequest struct {
	Pool             string
	Side             domain.Side
	AmountIn         uint64
	TransferFeeAware bool
}

// Quote prices a swap against the current pool state. Nothing is written.
func (e *Engine) Quote(ctx context.Context, req QuoteRequest) (q *amm.Quote, err error) {
	const op = "quote"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if err := requireKeys(req.Pool); err != nil {
		return nil, err
	}
	pool, err := e.begin().loadPool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	return e.calculator.Quote(ctx, pool, req.Side, req.AmountIn, req.TransferFeeAware)
}

// Swap executes a trade:
//
//  1. validate and price the trade (through the scaling simulator while active)
//  2. move tokens between the user and the pool reserves
//  3. refresh price and plugin state on the real reserves
//  4. fold the trade into the price series
//  5. on buys, record volume in the day's reward buckets
//
// All records are committed together after the last step.
func (e *Engine) Swap(ctx context.Context, req SwapRequest) (res *SwapResult, err error) {
	const op = "swap"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if err := requireKeys(req.Pool, req.User); err != nil {
		return nil, err
	}

	t := e.begin()
	pool, err := t.loadPool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}

	quote, err := e.calculator.Quote(ctx, pool, req.Side, req.AmountIn, req.TransferFeeAware)
	if err != nil {
		return nil, err
	}
	if err := amm.MinOutput(quote.AmountOut, req.MinAmountOut); err != nil {
		return nil, err
	}

	if err := t.debitToken(ctx, req.User, pool.InputMint(req.Side), req.AmountIn); err != nil {
		return nil, err
	}
	if err := e.applyReserves(req.Pool, pool, quote); err != nil {
		return nil, err
	}
	if err := t.creditToken(ctx, req.User, pool.OutputMint(req.Side), quote.AmountOut, req.User); err != nil {
		return nil, err
	}

	price, err := amm.SpotPrice(pool.BaseReserve, pool.QuoteReserve)
	if err != nil {
		return nil, err
	}
	pool.LastPrice = price

	scalingEnded := false
	if ls := pool.LiquidityScaling(); ls != nil && ls.Active && pool.QuoteReserve >= ls.Threshold {
		ls.Active = false
		scalingEnded = true
	}

	now, err := t.tradeTime(ctx, req.Pool, e.now().Unix())
	if err != nil {
		return nil, err
	}
	candle, appended, err := t.updateSeries(ctx, req.Pool, req.User, now, price, baseVolume(quote))
	if err != nil {
		return nil, err
	}

	var rewardDay *uint32
	opened := false
	if req.Side == domain.SideBuy {
		rewardDay, opened, err = t.trackBuy(ctx, req.Pool, pool, req.User, quote.AmountNet, now)
		if err != nil {
			return nil, err
		}
	}

	if err := t.savePool(ctx, req.Pool, pool, req.User); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}

	observability.RecordSwap(req.Side.String(), req.AmountIn, quote.Scaled)
	if appended {
		observability.RecordCandleAppended()
	}
	if opened {
		observability.RecordRewardDayOpened()
	}
	if scalingEnded {
		observability.RecordScalingDeactivated()
		e.logger.Printf("pool %s: liquidity scaling deactivated at quote reserve %d", req.Pool, pool.QuoteReserve)
	}

	receipt := &domain.SwapReceipt{
		SwapID:       idhash.ComputeSwapID(req.Pool, req.User, req.Side, req.AmountIn, pool.BaseReserve, pool.QuoteReserve, now),
		Pool:         req.Pool,
		User:         req.User,
		Side:         req.Side,
		AmountIn:     req.AmountIn,
		AmountNet:    quote.AmountNet,
		TransferFee:  quote.TransferFee,
		PoolFee:      quote.PoolFee,
		AmountOut:    quote.AmountOut,
		Scaled:       quote.Scaled,
		Price:        price,
		BaseReserve:  pool.BaseReserve,
		QuoteReserve: pool.QuoteReserve,
		Timestamp:    now,
		RewardDay:    rewardDay,
		CreatedAt:    e.now().UnixMilli(),
	}
	e.publish(ctx, domain.Event{
		Kind:   domain.EventSwap,
		Pool:   req.Pool,
		Swap:   receipt,
		Candle: &domain.PoolCandle{Pool: req.Pool, Candle: candle},
	})

	return &SwapResult{
		Receipt:        receipt,
		Candle:         candle,
		CandleAppended: appended,
		ScalingEnded:   scalingEnded,
	}, nil
}

// applyReserves moves the net input into the pool and the output out of it.
// The pool fee stays in the input reserve.
func (e *Engine) applyReserves(poolID string, pool *domain.Pool, q *amm.Quote) error {
	var err error
	switch q.Side {
	case domain.SideBuy:
		if pool.QuoteReserve, err = amm.CheckedAdd(pool.QuoteReserve, q.AmountNet); err != nil {
			return fmt.Errorf("quote reserve: %w", err)
		}
		pool.BaseReserve, err = e.checkedDecrement(poolID, "base_reserve", pool.BaseReserve, q.AmountOut)
	default:
		if pool.BaseReserve, err = amm.CheckedAdd(pool.BaseReserve, q.AmountNet); err != nil {
			return fmt.Errorf("base reserve: %w", err)
		}
		pool.QuoteReserve, err = e.checkedDecrement(poolID, "quote_reserve", pool.QuoteReserve, q.AmountOut)
	}
	return err
}

// baseVolume is the base-token side of a trade.
func baseVolume(q *amm.Quote) uint64 {
	if q.Side == domain.SideBuy {
		return q.AmountOut
	}
	return q.AmountNet
}

// tradeTime returns now, or the latest candle's minute when the wall clock
// has stepped back behind it. Series minutes and reward days never regress.
func (t *txn) tradeTime(ctx context.Context, poolID string, now int64) (int64, error) {
	seriesID, err := ledger.SeriesIdentity(t.e.params.ProgramID, poolID)
	if err != nil {
		return 0, err
	}
	series, err := t.loadSeries(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	latest := series.Latest()
	if latest == nil || now >= latest.Timestamp {
		return now, nil
	}
	t.e.logger.Printf("anomaly: pool %s clock %d behind latest candle %d, using candle minute", poolID, now, latest.Timestamp)
	observability.RecordClockRegression()
	return latest.Timestamp, nil
}

// updateSeries folds a trade into the pool's price series. The payer funds
// the storage of an appended candle.
func (t *txn) updateSeries(ctx context.Context, poolID, payer string, now int64, price float64, volume uint64) (domain.Candle, bool, error) {
	seriesID, err := ledger.SeriesIdentity(t.e.params.ProgramID, poolID)
	if err != nil {
		return domain.Candle{}, false, err
	}
	series, err := t.loadSeries(ctx, seriesID)
	if err != nil {
		return domain.Candle{}, false, err
	}
	appended, err := timeseries.Update(series, timeseries.MinuteOf(now), price, volume)
	if err != nil {
		return domain.Candle{}, false, err
	}
	if err := t.saveSeries(ctx, seriesID, series, payer); err != nil {
		return domain.Candle{}, false, err
	}
	return *series.Latest(), appended, nil
}

// trackBuy adds quote volume to the pool-day and user-day reward records of
// the current day, opening the pool-day record with its budget on the first
// buy of the day. Returns the day tracked, or nil when the buy earns nothing.
func (t *txn) trackBuy(ctx context.Context, poolID string, pool *domain.Pool, user string, volume uint64, now int64) (*uint32, bool, error) {
	plugin := pool.TradeToEarn()
	if plugin == nil || volume == 0 {
		return nil, false, nil
	}
	day, started := rewards.DayIndex(now, plugin.FirstRewardDay)
	if !started || day >= domain.NoRewardDay {
		return nil, false, nil
	}

	program := t.e.params.ProgramID
	dayID, err := ledger.RewardDayIdentity(program, poolID, day)
	if err != nil {
		return nil, false, err
	}
	exists, err := t.iv.Exists(ctx, dayID)
	if err != nil {
		return nil, false, err
	}

	opened := false
	var rd *domain.RewardDay
	if exists {
		data, err := t.iv.Read(ctx, dayID)
		if err != nil {
			return nil, false, err
		}
		if rd, err = codec.DecodeRewardDay(data); err != nil {
			return nil, false, err
		}
	} else {
		// A missing record for an already opened day was paid out and closed.
		if plugin.HasOpenedDay() && day <= plugin.LastRewardDay {
			return nil, false, nil
		}
		budget, err := rewards.ScheduleBudget(plugin.LastRewardDay, day, plugin.TotalTokens)
		if err != nil {
			return nil, false, err
		}
		if budget == 0 {
			return nil, false, nil
		}
		if err := t.iv.Create(ctx, dayID, codec.RewardDaySize, user); err != nil {
			return nil, false, err
		}
		rd = &domain.RewardDay{Day: day, TokenRewards: budget}
		plugin.LastRewardDay = day
		opened = true
	}

	if rd.TotalBuyVolume, err = amm.CheckedAdd(rd.TotalBuyVolume, volume); err != nil {
		return nil, false, fmt.Errorf("day %d buy volume: %w", day, err)
	}
	if err := t.iv.Write(ctx, dayID, codec.EncodeRewardDay(rd)); err != nil {
		return nil, false, err
	}

	userDayID, err := ledger.UserRewardDayIdentity(program, poolID, user, day)
	if err != nil {
		return nil, false, err
	}
	data, _, err := ledger.GetOrCreate(ctx, t.iv, userDayID, user, func() []byte {
		return codec.EncodeUserRewardDay(&domain.UserRewardDay{Day: day})
	})
	if err != nil {
		return nil, false, err
	}
	ud, err := codec.DecodeUserRewardDay(data)
	if err != nil {
		return nil, false, err
	}
	if ud.BuyVolume, err = amm.CheckedAdd(ud.BuyVolume, volume); err != nil {
		return nil, false, fmt.Errorf("user day %d buy volume: %w", day, err)
	}
	if err := t.iv.Write(ctx, userDayID, codec.EncodeUserRewardDay(ud)); err != nil {
		return nil, false, err
	}
	return &day, opened, nil
}
