package engine

import (
	"context"
	"fmt"
	"time"
)

// Airdrop deposits lamports into a wallet, creating it if needed.
// Only available on networks with a faucet.
func (e *Engine) Airdrop(ctx context.Context, wallet string, lamports uint64) (err error) {
	const op = "airdrop"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if !e.params.FaucetEnabled {
		return fmt.Errorf("%w: %s", ErrFaucetDisabled, e.params.Network)
	}
	if err := requireKeys(wallet); err != nil {
		return err
	}
	if lamports == 0 {
		return fmt.Errorf("%w: zero lamports", ErrInvalidAmount)
	}

	t := e.begin()
	if err := t.iv.Deposit(ctx, wallet, lamports); err != nil {
		return err
	}
	return t.commit(ctx)
}

// MintTo credits tokens of mint to owner. The owner funds the token
// account if it does not exist yet. Only available on networks with a faucet.
func (e *Engine) MintTo(ctx context.Context, owner, mint string, amount uint64) (err error) {
	const op = "mint_to"
	defer func(start time.Time) { err = e.finish(op, start, err) }(time.Now())

	if !e.params.FaucetEnabled {
		return fmt.Errorf("%w: %s", ErrFaucetDisabled, e.params.Network)
	}
	if err := requireKeys(owner, mint); err != nil {
		return err
	}
	if amount == 0 {
		return fmt.Errorf("%w: zero amount", ErrInvalidAmount)
	}

	t := e.begin()
	if err := t.creditToken(ctx, owner, mint, amount, owner); err != nil {
		return err
	}
	return t.commit(ctx)
}
