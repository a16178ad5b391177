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
)

// ClaimRequest claims a user's trade-to-earn reward for one past day.
type ClaimRequest struct {
	Pool string
	User string
	Day  uint32 // relative to the plugin's first reward day
}

// ClaimResult is the outcome of an accepted claim.
type ClaimResult struct {
	Receipt *domain.ClaimReceipt
}

// ClaimReward pays the user's pro-rata share of a closed day's budget from
// the pool's reward vault. The user's day record is closed, so a repeated
// claim pays zero. The pool day record is closed once fully paid out.
func (e *Engine) ClaimReward(ctx context.Context, req ClaimRequest) (res *ClaimResult, err error) {
	const op = "claim_reward"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if err := requireKeys(req.Pool, req.User); err != nil {
		return nil, err
	}

	t := e.begin()
	pool, err := t.loadPool(ctx, req.Pool)
	if err != nil {
		return nil, err
	}
	plugin := pool.TradeToEarn()
	if plugin == nil {
		return nil, fmt.Errorf("%w: trade_to_earn", ErrPluginMissing)
	}

	now := e.now().Unix()
	today, started := rewards.DayIndex(now, plugin.FirstRewardDay)
	if !started || req.Day >= today {
		return nil, fmt.Errorf("%w: day %d", ErrDayNotClosed, req.Day)
	}
	if !plugin.HasOpenedDay() || req.Day > plugin.LastRewardDay {
		return nil, fmt.Errorf("%w: day %d", ErrRewardDayNotFound, req.Day)
	}

	receipt := &domain.ClaimReceipt{
		ClaimID:   idhash.ComputeClaimID(req.Pool, req.User, req.Day),
		Pool:      req.Pool,
		User:      req.User,
		Day:       req.Day,
		Timestamp: now,
	}

	program := e.params.ProgramID
	userDayID, err := ledger.UserRewardDayIdentity(program, req.Pool, req.User, req.Day)
	if err != nil {
		return nil, err
	}
	userExists, err := t.iv.Exists(ctx, userDayID)
	if err != nil {
		return nil, err
	}
	if !userExists {
		// Nothing bought that day, or already claimed.
		return &ClaimResult{Receipt: receipt}, nil
	}

	dayID, err := ledger.RewardDayIdentity(program, req.Pool, req.Day)
	if err != nil {
		return nil, err
	}
	dayExists, err := t.iv.Exists(ctx, dayID)
	if err != nil {
		return nil, err
	}
	if !dayExists {
		return e.closeOrphanedClaim(ctx, t, req, receipt, userDayID)
	}

	data, err := t.iv.Read(ctx, dayID)
	if err != nil {
		return nil, err
	}
	rd, err := codec.DecodeRewardDay(data)
	if err != nil {
		return nil, err
	}
	if rd.TokenRewards == 0 {
		return nil, fmt.Errorf("%w: day %d has no budget", ErrRewardDayNotFound, req.Day)
	}
	if data, err = t.iv.Read(ctx, userDayID); err != nil {
		return nil, err
	}
	ud, err := codec.DecodeUserRewardDay(data)
	if err != nil {
		return nil, err
	}

	payout, err := rewards.Distribute(rd, ud)
	if err != nil {
		return nil, err
	}

	if payout > 0 {
		if err := e.payReward(ctx, t, req.Pool, pool, req.User, payout); err != nil {
			return nil, err
		}
	}

	if err := t.iv.Close(ctx, userDayID, req.User); err != nil {
		return nil, err
	}
	dayClosed := rd.Exhausted()
	if dayClosed {
		if err := t.iv.Close(ctx, dayID, req.Pool); err != nil {
			return nil, err
		}
	} else if err := t.iv.Write(ctx, dayID, codec.EncodeRewardDay(rd)); err != nil {
		return nil, err
	}

	if err := t.savePool(ctx, req.Pool, pool, req.User); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}

	observability.RecordRewardPaid(payout, dayClosed)
	if dayClosed {
		e.logger.Printf("pool %s: reward day %d fully distributed (%d tokens)", req.Pool, req.Day, rd.AmountDistributed)
	}

	receipt.Payout = payout
	receipt.Fraction = rd.DistributedFraction
	receipt.DayClosed = dayClosed
	e.publish(ctx, domain.Event{Kind: domain.EventClaim, Pool: req.Pool, Claim: receipt})
	return &ClaimResult{Receipt: receipt}, nil
}

// closeOrphanedClaim settles a user day whose pool day was already paid out
// and closed: nothing is left to pay, so the user record is closed and its
// rent returned to the user.
func (e *Engine) closeOrphanedClaim(ctx context.Context, t *txn, req ClaimRequest, receipt *domain.ClaimReceipt, userDayID string) (*ClaimResult, error) {
	if err := t.iv.Close(ctx, userDayID, req.User); err != nil {
		return nil, err
	}
	if err := t.commit(ctx); err != nil {
		return nil, err
	}
	e.logger.Printf("pool %s: day %d already exhausted, closed user record of %s with no payout", req.Pool, req.Day, req.User)

	receipt.DayClosed = true
	e.publish(ctx, domain.Event{Kind: domain.EventClaim, Pool: req.Pool, Claim: receipt})
	return &ClaimResult{Receipt: receipt}, nil
}

// payReward moves payout from the reward vault to the user's base token account.
func (e *Engine) payReward(ctx context.Context, t *txn, poolID string, pool *domain.Pool, user string, payout uint64) error {
	plugin := pool.TradeToEarn()
	paid, err := amm.CheckedAdd(plugin.Paid, payout)
	if err != nil || paid > plugin.TotalTokens {
		e.logger.Printf("anomaly: pool %s paid %d + %d exceeds escrow %d", poolID, plugin.Paid, payout, plugin.TotalTokens)
		observability.RecordArithmeticAnomaly("reward_paid")
		return fmt.Errorf("reward escrow: %w", amm.ErrOverflow)
	}
	plugin.Paid = paid

	if err := t.debitToken(ctx, poolID, pool.BaseMint, payout); err != nil {
		e.logger.Printf("anomaly: pool %s reward vault cannot cover %d: %v", poolID, payout, err)
		observability.RecordArithmeticAnomaly("reward_vault")
		return fmt.Errorf("reward vault: %w", amm.ErrUnderflow)
	}
	return t.creditToken(ctx, user, pool.BaseMint, payout, user)
}
