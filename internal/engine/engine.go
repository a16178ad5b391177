// Package engine executes launchpad operations against the record ledger.
// Each operation runs as one ledger invocation: records are loaded once,
// mutated in memory and committed together, or not at all.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/codec"
	"token-launchpad/internal/config"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/observability"
)

// Engine runs pool, swap and reward operations.
type Engine struct {
	params     config.NetworkParams
	store      ledger.Store
	calculator *amm.Calculator
	sinks      []Sink
	now        func() time.Time
	logger     *log.Logger
}

// Options for creating an Engine.
type Options struct {
	// Required
	Params config.NetworkParams
	Store  ledger.Store

	// Transfer fee lookup for fee-aware swaps. Nil disables transfer fees.
	Fees amm.FeeLookup

	// Post-commit consumers of operation events
	Sinks []Sink

	// Defaults to time.Now
	Clock func() time.Time

	Logger *log.Logger
}

// New creates a new Engine.
func New(opts Options) (*Engine, error) {
	if opts.Store == nil {
		return nil, errors.New("engine: store is required")
	}
	if !ledger.ValidKey(opts.Params.ProgramID) {
		return nil, fmt.Errorf("engine: program id %q: %w", opts.Params.ProgramID, ErrInvalidKey)
	}

	e := &Engine{
		params:     opts.Params,
		store:      opts.Store,
		calculator: amm.NewCalculator(opts.Fees),
		sinks:      opts.Sinks,
		now:        opts.Clock,
		logger:     opts.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.logger == nil {
		e.logger = log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile)
	}
	return e, nil
}

// Params returns the network parameters the engine runs with.
func (e *Engine) Params() config.NetworkParams {
	return e.params
}

// finish classifies err and records the outcome of op.
func (e *Engine) finish(op string, start time.Time, err error) error {
	seconds := time.Since(start).Seconds()
	if err == nil {
		observability.RecordOperation(op, "ok", seconds)
		return nil
	}

	err = classify(op, err)
	if category := CategoryOf(err); category != "" {
		observability.RecordOperation(op, "rejected", seconds)
		observability.RecordRejection(op, string(category))
		return err
	}

	e.logger.Printf("%s failed: %v", op, err)
	observability.RecordOperation(op, "error", seconds)
	return err
}

// checkedDecrement subtracts b from a. An underflow is an operator-visible
// anomaly and rejects the operation.
func (e *Engine) checkedDecrement(pool, field string, a, b uint64) (uint64, error) {
	v, err := amm.CheckedSub(a, b)
	if err != nil {
		e.logger.Printf("anomaly: pool %s %s %d - %d underflows", pool, field, a, b)
		observability.RecordArithmeticAnomaly(field)
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return v, nil
}

func requireKeys(keys ...string) error {
	for _, k := range keys {
		if !ledger.ValidKey(k) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, k)
		}
	}
	return nil
}

// PoolID returns the pool identity for a mint pair. Order does not matter.
func (e *Engine) PoolID(mintA, mintB string) (string, error) {
	if err := requireKeys(mintA, mintB); err != nil {
		return "", err
	}
	return ledger.PoolIdentity(e.params.ProgramID, mintA, mintB)
}

// txn is one ledger invocation with typed record helpers.
type txn struct {
	e  *Engine
	iv *ledger.Invocation
}

func (e *Engine) begin() *txn {
	return &txn{e: e, iv: ledger.Begin(e.store, e.params.Rent)}
}

func (t *txn) commit(ctx context.Context) error {
	return t.iv.Commit(ctx)
}

func (t *txn) loadPool(ctx context.Context, id string) (*domain.Pool, error) {
	data, err := t.iv.Read(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	pool, err := codec.DecodePool(data)
	if err != nil {
		return nil, fmt.Errorf("decode pool %s: %w", id, err)
	}
	return pool, nil
}

// savePool writes pool back, growing the record first when plugins were added.
func (t *txn) savePool(ctx context.Context, id string, pool *domain.Pool, payer string) error {
	data, err := codec.EncodePool(pool)
	if err != nil {
		return fmt.Errorf("encode pool %s: %w", id, err)
	}
	current, err := t.iv.Read(ctx, id)
	if err != nil {
		return err
	}
	if len(data) > len(current) {
		if err := t.iv.Grow(ctx, id, len(data), payer); err != nil {
			return err
		}
	}
	return t.iv.Write(ctx, id, data)
}

func (t *txn) loadSeries(ctx context.Context, id string) (*domain.PriceSeries, error) {
	data, err := t.iv.Read(ctx, id)
	if err != nil {
		return nil, err
	}
	series, err := codec.DecodeSeries(data)
	if err != nil {
		return nil, fmt.Errorf("decode series %s: %w", id, err)
	}
	return series, nil
}

// saveSeries writes series back, growing the record by one candle per append.
func (t *txn) saveSeries(ctx context.Context, id string, series *domain.PriceSeries, payer string) error {
	size := codec.SeriesSize(len(series.Candles))
	current, err := t.iv.Read(ctx, id)
	if err != nil {
		return err
	}
	if size > len(current) {
		if err := t.iv.Grow(ctx, id, size, payer); err != nil {
			return err
		}
	}
	return t.iv.Write(ctx, id, codec.EncodeSeries(series))
}

func (t *txn) tokenAccountID(owner, mint string) (string, error) {
	return ledger.TokenAccountIdentity(t.e.params.ProgramID, owner, mint)
}

// debitToken removes amount of mint from owner's token account.
func (t *txn) debitToken(ctx context.Context, owner, mint string, amount uint64) error {
	id, err := t.tokenAccountID(owner, mint)
	if err != nil {
		return err
	}
	data, err := t.iv.Read(ctx, id)
	if errors.Is(err, ledger.ErrNotFound) {
		return fmt.Errorf("%w: %s holds no %s", ErrInsufficientBalance, owner, mint)
	}
	if err != nil {
		return err
	}
	acct, err := codec.DecodeTokenAccount(data)
	if err != nil {
		return err
	}
	if acct.Amount < amount {
		return fmt.Errorf("%w: %s holds %d of %s, needs %d", ErrInsufficientBalance, owner, acct.Amount, mint, amount)
	}
	acct.Amount -= amount
	return t.writeToken(ctx, id, acct)
}

// creditToken adds amount of mint to owner's token account, creating it
// with rent from payer if needed.
func (t *txn) creditToken(ctx context.Context, owner, mint string, amount uint64, payer string) error {
	id, err := t.tokenAccountID(owner, mint)
	if err != nil {
		return err
	}
	var initErr error
	data, _, err := ledger.GetOrCreate(ctx, t.iv, id, payer, func() []byte {
		b, err := codec.EncodeTokenAccount(&domain.TokenAccount{Mint: mint, Owner: owner})
		initErr = err
		return b
	})
	if initErr != nil {
		return initErr
	}
	if err != nil {
		return err
	}
	acct, err := codec.DecodeTokenAccount(data)
	if err != nil {
		return err
	}
	acct.Amount, err = amm.CheckedAdd(acct.Amount, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", id, err)
	}
	return t.writeToken(ctx, id, acct)
}

func (t *txn) writeToken(ctx context.Context, id string, acct *domain.TokenAccount) error {
	data, err := codec.EncodeTokenAccount(acct)
	if err != nil {
		return err
	}
	return t.iv.Write(ctx, id, data)
}
