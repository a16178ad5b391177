package engine

import (
	"context"
	"errors"
	"fmt"

	"token-launchpad/internal/codec"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/timeseries"
)

// Read models load committed state directly from the store and are not
// counted as operations.

// GetPool returns a pool by identity.
func (e *Engine) GetPool(ctx context.Context, poolID string) (*PoolInfo, error) {
	if err := requireKeys(poolID); err != nil {
		return nil, classify("get_pool", err)
	}
	pool, err := e.begin().loadPool(ctx, poolID)
	if err != nil {
		return nil, classify("get_pool", err)
	}
	return e.poolInfo(poolID, pool)
}

// GetCandles returns the pool's candles with timestamps in [from, to].
// A zero to means no upper bound.
func (e *Engine) GetCandles(ctx context.Context, poolID string, from, to int64) ([]domain.Candle, error) {
	if err := requireKeys(poolID); err != nil {
		return nil, classify("get_candles", err)
	}
	seriesID, err := ledger.SeriesIdentity(e.params.ProgramID, poolID)
	if err != nil {
		return nil, err
	}
	series, err := e.begin().loadSeries(ctx, seriesID)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, classify("get_candles", fmt.Errorf("%w: %s", ErrPoolNotFound, poolID))
	}
	if err != nil {
		return nil, err
	}
	return timeseries.Window(series, from, to), nil
}

// GetRewardDay returns the pool-day reward record of a day.
func (e *Engine) GetRewardDay(ctx context.Context, poolID string, day uint32) (*domain.RewardDay, error) {
	if err := requireKeys(poolID); err != nil {
		return nil, classify("get_reward_day", err)
	}
	id, err := ledger.RewardDayIdentity(e.params.ProgramID, poolID, day)
	if err != nil {
		return nil, err
	}
	data, err := e.begin().iv.Read(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, classify("get_reward_day", fmt.Errorf("%w: day %d", ErrRewardDayNotFound, day))
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeRewardDay(data)
}

// GetUserRewardDay returns a user's unclaimed buy volume for a day.
// A missing record reads as zero volume.
func (e *Engine) GetUserRewardDay(ctx context.Context, poolID, user string, day uint32) (*domain.UserRewardDay, error) {
	if err := requireKeys(poolID, user); err != nil {
		return nil, classify("get_user_reward_day", err)
	}
	id, err := ledger.UserRewardDayIdentity(e.params.ProgramID, poolID, user, day)
	if err != nil {
		return nil, err
	}
	data, err := e.begin().iv.Read(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return &domain.UserRewardDay{Day: day}, nil
	}
	if err != nil {
		return nil, err
	}
	return codec.DecodeUserRewardDay(data)
}

// TokenBalance returns owner's balance of mint, zero if it has no account.
func (e *Engine) TokenBalance(ctx context.Context, owner, mint string) (uint64, error) {
	if err := requireKeys(owner, mint); err != nil {
		return 0, classify("token_balance", err)
	}
	id, err := ledger.TokenAccountIdentity(e.params.ProgramID, owner, mint)
	if err != nil {
		return 0, err
	}
	data, err := e.begin().iv.Read(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	acct, err := codec.DecodeTokenAccount(data)
	if err != nil {
		return 0, err
	}
	return acct.Amount, nil
}

// Lamports returns the lamport balance of a record, zero if it does not exist.
func (e *Engine) Lamports(ctx context.Context, id string) (uint64, error) {
	v, err := e.begin().iv.Lamports(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return 0, nil
	}
	return v, err
}
