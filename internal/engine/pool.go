package engine

import (
	"context"
	"fmt"
	"time"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/codec"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/rewards"
	"token-launchpad/internal/timeseries"
)

// PoolInfo is a pool together with its record identities.
type PoolInfo struct {
	ID     string
	Series string
	Pool   *domain.Pool
}

// InitializePoolRequest creates a pool seeded with the creator's tokens.
type InitializePoolRequest struct {
	Creator     string
	BaseMint    string
	QuoteMint   string
	BaseAmount  uint64
	QuoteAmount uint64
	FeeRate     *uint16 // nil selects the network default
}

// InitializePool creates a pool and its price series. The creator funds
// both records and deposits the initial reserves.
func (e *Engine) InitializePool(ctx context.Context, req InitializePoolRequest) (info *PoolInfo, err error) {
	const op = "initialize_pool"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if err := requireKeys(req.Creator, req.BaseMint, req.QuoteMint); err != nil {
		return nil, err
	}
	if req.BaseMint == req.QuoteMint {
		return nil, ErrSameMint
	}
	if req.BaseAmount == 0 || req.QuoteAmount == 0 {
		return nil, fmt.Errorf("%w: initial reserves must be nonzero", ErrInvalidAmount)
	}
	feeRate := e.params.DefaultFeeRate
	if req.FeeRate != nil {
		feeRate = *req.FeeRate
	}
	if feeRate >= domain.PoolFeeDenominator {
		return nil, fmt.Errorf("%w: %d", ErrInvalidFeeRate, feeRate)
	}

	poolID, err := ledger.PoolIdentity(e.params.ProgramID, req.BaseMint, req.QuoteMint)
	if err != nil {
		return nil, err
	}
	seriesID, err := ledger.SeriesIdentity(e.params.ProgramID, poolID)
	if err != nil {
		return nil, err
	}

	t := e.begin()
	exists, err := t.iv.Exists(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, poolID)
	}

	if err := t.debitToken(ctx, req.Creator, req.BaseMint, req.BaseAmount); err != nil {
		return nil, err
	}
	if err := t.debitToken(ctx, req.Creator, req.QuoteMint, req.QuoteAmount); err != nil {
		return nil, err
	}

	price, err := amm.SpotPrice(req.BaseAmount, req.QuoteAmount)
	if err != nil {
		return nil, err
	}
	now := e.now().Unix()
	pool := &domain.Pool{
		Creator:      req.Creator,
		BaseMint:     req.BaseMint,
		QuoteMint:    req.QuoteMint,
		BaseReserve:  req.BaseAmount,
		QuoteReserve: req.QuoteAmount,
		FeeRate:      feeRate,
		LastPrice:    price,
		CreatedAt:    now,
	}
	poolData, err := codec.EncodePool(pool)
	if err != nil {
		return nil, err
	}
	if err := t.iv.Create(ctx, poolID, len(poolData), req.Creator); err != nil {
		return nil, err
	}
	if err := t.iv.Write(ctx, poolID, poolData); err != nil {
		return nil, err
	}

	series, err := timeseries.Seed(timeseries.MinuteOf(now), price)
	if err != nil {
		return nil, err
	}
	if err := t.iv.Create(ctx, seriesID, codec.SeriesSize(len(series.Candles)), req.Creator); err != nil {
		return nil, err
	}
	if err := t.iv.Write(ctx, seriesID, codec.EncodeSeries(series)); err != nil {
		return nil, err
	}

	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.logger.Printf("pool %s created: %s/%s reserves %d/%d fee %d",
		poolID, req.BaseMint, req.QuoteMint, req.BaseAmount, req.QuoteAmount, feeRate)

	e.publish(ctx, domain.Event{
		Kind:   domain.EventPoolCreated,
		Pool:   poolID,
		Candle: &domain.PoolCandle{Pool: poolID, Candle: series.Candles[0]},
	})
	return &PoolInfo{ID: poolID, Series: seriesID, Pool: pool}, nil
}

// AttachLiquidityScalingRequest adds the anti-impact plugin to a pool.
type AttachLiquidityScalingRequest struct {
	Pool      string
	Creator   string
	Scalar    uint64
	Threshold uint64 // quote reserve at which scaling switches off for good
}

// AttachLiquidityScaling adds the liquidity scaling plugin. Creator only.
func (e *Engine) AttachLiquidityScaling(ctx context.Context, req AttachLiquidityScalingRequest) (info *PoolInfo, err error) {
	const op = "attach_liquidity_scaling"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if req.Scalar == 0 || req.Threshold == 0 {
		return nil, fmt.Errorf("%w: scalar and threshold must be nonzero", ErrInvalidPlugin)
	}

	t := e.begin()
	pool, err := t.loadAuthorized(ctx, req.Pool, req.Creator, domain.PluginLiquidityScaling)
	if err != nil {
		return nil, err
	}

	pool.Plugins = append(pool.Plugins, domain.Plugin{
		Tag: domain.PluginLiquidityScaling,
		LiquidityScaling: &domain.LiquidityScalingPlugin{
			Scalar:    req.Scalar,
			Threshold: req.Threshold,
			Active:    pool.QuoteReserve < req.Threshold,
		},
	})
	if err := t.savePool(ctx, req.Pool, pool, req.Creator); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.logger.Printf("pool %s: liquidity scaling attached (scalar %d threshold %d)", req.Pool, req.Scalar, req.Threshold)
	return e.poolInfo(req.Pool, pool)
}

// AttachTradeToEarnRequest adds the buy-volume rewards plugin to a pool.
type AttachTradeToEarnRequest struct {
	Pool        string
	Creator     string
	TotalTokens uint64 // base tokens escrowed from the creator
}

// AttachTradeToEarn adds the trade-to-earn plugin and escrows the reward
// tokens into the pool's reward vault. Day 0 is the current day. Creator only.
func (e *Engine) AttachTradeToEarn(ctx context.Context, req AttachTradeToEarnRequest) (info *PoolInfo, err error) {
	const op = "attach_trade_to_earn"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if req.TotalTokens == 0 {
		return nil, fmt.Errorf("%w: total tokens must be nonzero", ErrInvalidPlugin)
	}

	t := e.begin()
	pool, err := t.loadAuthorized(ctx, req.Pool, req.Creator, domain.PluginTradeToEarn)
	if err != nil {
		return nil, err
	}

	if err := t.debitToken(ctx, req.Creator, pool.BaseMint, req.TotalTokens); err != nil {
		return nil, err
	}
	if err := t.creditToken(ctx, req.Pool, pool.BaseMint, req.TotalTokens, req.Creator); err != nil {
		return nil, err
	}

	pool.Plugins = append(pool.Plugins, domain.Plugin{
		Tag: domain.PluginTradeToEarn,
		TradeToEarn: &domain.TradeToEarnPlugin{
			TotalTokens:    req.TotalTokens,
			FirstRewardDay: rewards.AbsoluteDay(e.now().Unix()),
			LastRewardDay:  domain.NoRewardDay,
		},
	})
	if err := t.savePool(ctx, req.Pool, pool, req.Creator); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.logger.Printf("pool %s: trade-to-earn attached (%d tokens)", req.Pool, req.TotalTokens)
	return e.poolInfo(req.Pool, pool)
}

// loadAuthorized loads a pool for a creator-only plugin attach.
func (t *txn) loadAuthorized(ctx context.Context, poolID, creator string, tag domain.PluginTag) (*domain.Pool, error) {
	if err := requireKeys(poolID, creator); err != nil {
		return nil, err
	}
	pool, err := t.loadPool(ctx, poolID)
	if err != nil {
		return nil, err
	}
	if pool.Creator != creator {
		return nil, fmt.Errorf("%w: %s is not the creator of %s", ErrUnauthorized, creator, poolID)
	}
	if pool.Plugin(tag) != nil {
		return nil, fmt.Errorf("%w: %s", ErrPluginExists, tag)
	}
	return pool, nil
}

func (e *Engine) poolInfo(poolID string, pool *domain.Pool) (*PoolInfo, error) {
	seriesID, err := ledger.SeriesIdentity(e.params.ProgramID, poolID)
	if err != nil {
		return nil, err
	}
	return &PoolInfo{ID: poolID, Series: seriesID, Pool: pool}, nil
}
