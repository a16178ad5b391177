package engine_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/codec"
	"token-launchpad/internal/config"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/engine"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/storage/memory"
)

func testKey(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, 32))
}

var (
	creator   = testKey(1)
	alice     = testKey(2)
	bob       = testKey(3)
	baseMint  = testKey(10)
	quoteMint = testKey(11)
)

const (
	// 2023-11-14 22:13:20 UTC
	startUnix     = 1_700_000_000
	walletFunding = 1_000_000_000_000
	mintSupply    = 10_000_000_000
	initReserve   = 1_000_000
)

type fixture struct {
	t      *testing.T
	ctx    context.Context
	store  *memory.RecordStore
	swaps  *memory.SwapLogStore
	eng    *engine.Engine
	now    time.Time
	params config.NetworkParams
	pool   string
}

func newFixture(t *testing.T, sinks ...engine.Sink) *fixture {
	t.Helper()
	f := &fixture{
		t:      t,
		ctx:    context.Background(),
		store:  memory.NewRecordStore(),
		swaps:  memory.NewSwapLogStore(),
		now:    time.Unix(startUnix, 0),
		params: config.Localnet.Params(),
	}
	f.eng = f.newEngine(f.store, append([]engine.Sink{engine.NewSwapLogSink(f.swaps)}, sinks...)...)

	for _, w := range []string{creator, alice, bob} {
		require.NoError(t, f.eng.Airdrop(f.ctx, w, walletFunding))
	}
	require.NoError(t, f.eng.MintTo(f.ctx, creator, baseMint, mintSupply))
	require.NoError(t, f.eng.MintTo(f.ctx, creator, quoteMint, mintSupply))
	return f
}

func (f *fixture) newEngine(store ledger.Store, sinks ...engine.Sink) *engine.Engine {
	f.t.Helper()
	eng, err := engine.New(engine.Options{
		Params: f.params,
		Store:  store,
		Sinks:  sinks,
		Clock:  func() time.Time { return f.now },
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(f.t, err)
	return eng
}

// withPool creates a 1,000,000/1,000,000 pool at 0.25% fee.
func (f *fixture) withPool() *fixture {
	f.t.Helper()
	fee := uint16(25)
	info, err := f.eng.InitializePool(f.ctx, engine.InitializePoolRequest{
		Creator:     creator,
		BaseMint:    baseMint,
		QuoteMint:   quoteMint,
		BaseAmount:  initReserve,
		QuoteAmount: initReserve,
		FeeRate:     &fee,
	})
	require.NoError(f.t, err)
	f.pool = info.ID
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) balance(owner, mint string) uint64 {
	f.t.Helper()
	v, err := f.eng.TokenBalance(f.ctx, owner, mint)
	require.NoError(f.t, err)
	return v
}

func (f *fixture) poolState() *domain.Pool {
	f.t.Helper()
	info, err := f.eng.GetPool(f.ctx, f.pool)
	require.NoError(f.t, err)
	return info.Pool
}

func TestNew_RequiresStore(t *testing.T) {
	_, err := engine.New(engine.Options{Params: config.Localnet.Params()})
	assert.Error(t, err)
}

func TestNew_RejectsInvalidProgramID(t *testing.T) {
	params := config.Localnet.Params()
	params.ProgramID = "not-a-key"
	_, err := engine.New(engine.Options{Params: params, Store: memory.NewRecordStore()})
	assert.ErrorIs(t, err, engine.ErrInvalidKey)
}

func TestInitializePool(t *testing.T) {
	f := newFixture(t).withPool()

	pool := f.poolState()
	assert.Equal(t, creator, pool.Creator)
	assert.Equal(t, uint64(initReserve), pool.BaseReserve)
	assert.Equal(t, uint64(initReserve), pool.QuoteReserve)
	assert.Equal(t, uint16(25), pool.FeeRate)
	assert.Equal(t, 1.0, pool.LastPrice)
	assert.Equal(t, int64(startUnix), pool.CreatedAt)

	assert.Equal(t, uint64(mintSupply-initReserve), f.balance(creator, baseMint))
	assert.Equal(t, uint64(mintSupply-initReserve), f.balance(creator, quoteMint))

	candles, err := f.eng.GetCandles(f.ctx, f.pool, 0, 0)
	require.NoError(t, err)
	require.Len(t, candles, 1)
	assert.Equal(t, int64(startUnix-startUnix%60), candles[0].Timestamp)
	assert.Equal(t, 1.0, candles[0].Open)
	assert.Zero(t, candles[0].Volume)

	// Pool identity does not depend on mint order.
	id, err := f.eng.PoolID(quoteMint, baseMint)
	require.NoError(t, err)
	assert.Equal(t, f.pool, id)
}

func TestInitializePool_DefaultFeeRate(t *testing.T) {
	f := newFixture(t)
	info, err := f.eng.InitializePool(f.ctx, engine.InitializePoolRequest{
		Creator:     creator,
		BaseMint:    baseMint,
		QuoteMint:   quoteMint,
		BaseAmount:  initReserve,
		QuoteAmount: initReserve,
	})
	require.NoError(t, err)
	assert.Equal(t, f.params.DefaultFeeRate, info.Pool.FeeRate)
}

func TestInitializePool_Rejections(t *testing.T) {
	f := newFixture(t).withPool()
	badFee := uint16(domain.PoolFeeDenominator)

	tests := []struct {
		name string
		req  engine.InitializePoolRequest
		want error
	}{
		{
			name: "exists",
			req:  engine.InitializePoolRequest{Creator: creator, BaseMint: quoteMint, QuoteMint: baseMint, BaseAmount: 1, QuoteAmount: 1},
			want: engine.ErrPoolExists,
		},
		{
			name: "same mint",
			req:  engine.InitializePoolRequest{Creator: creator, BaseMint: baseMint, QuoteMint: baseMint, BaseAmount: 1, QuoteAmount: 1},
			want: engine.ErrSameMint,
		},
		{
			name: "zero reserve",
			req:  engine.InitializePoolRequest{Creator: creator, BaseMint: testKey(20), QuoteMint: quoteMint, BaseAmount: 0, QuoteAmount: 1},
			want: engine.ErrInvalidAmount,
		},
		{
			name: "fee rate",
			req:  engine.InitializePoolRequest{Creator: creator, BaseMint: testKey(20), QuoteMint: quoteMint, BaseAmount: 1, QuoteAmount: 1, FeeRate: &badFee},
			want: engine.ErrInvalidFeeRate,
		},
		{
			name: "invalid key",
			req:  engine.InitializePoolRequest{Creator: "nope", BaseMint: testKey(20), QuoteMint: quoteMint, BaseAmount: 1, QuoteAmount: 1},
			want: engine.ErrInvalidKey,
		},
		{
			name: "no tokens",
			req:  engine.InitializePoolRequest{Creator: alice, BaseMint: testKey(20), QuoteMint: quoteMint, BaseAmount: 1, QuoteAmount: 1},
			want: engine.ErrInsufficientBalance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.eng.InitializePool(f.ctx, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, engine.CategoryValidation, engine.CategoryOf(err))
		})
	}
}

func TestAttachLiquidityScaling(t *testing.T) {
	f := newFixture(t).withPool()

	info, err := f.eng.AttachLiquidityScaling(f.ctx, engine.AttachLiquidityScalingRequest{
		Pool: f.pool, Creator: creator, Scalar: 5, Threshold: 2_000_000,
	})
	require.NoError(t, err)
	ls := info.Pool.LiquidityScaling()
	require.NotNil(t, ls)
	assert.True(t, ls.Active)

	// Persisted and grown.
	ls = f.poolState().LiquidityScaling()
	require.NotNil(t, ls)
	assert.Equal(t, uint64(2_000_000), ls.Threshold)

	_, err = f.eng.AttachLiquidityScaling(f.ctx, engine.AttachLiquidityScalingRequest{
		Pool: f.pool, Creator: creator, Scalar: 5, Threshold: 2_000_000,
	})
	assert.ErrorIs(t, err, engine.ErrPluginExists)
}

func TestAttachLiquidityScaling_InactiveWhenDeep(t *testing.T) {
	f := newFixture(t).withPool()

	info, err := f.eng.AttachLiquidityScaling(f.ctx, engine.AttachLiquidityScalingRequest{
		Pool: f.pool, Creator: creator, Scalar: 5, Threshold: initReserve,
	})
	require.NoError(t, err)
	assert.False(t, info.Pool.LiquidityScaling().Active)
}

func TestAttach_Unauthorized(t *testing.T) {
	f := newFixture(t).withPool()

	_, err := f.eng.AttachLiquidityScaling(f.ctx, engine.AttachLiquidityScalingRequest{
		Pool: f.pool, Creator: alice, Scalar: 5, Threshold: 2_000_000,
	})
	assert.ErrorIs(t, err, engine.ErrUnauthorized)

	_, err = f.eng.AttachTradeToEarn(f.ctx, engine.AttachTradeToEarnRequest{
		Pool: f.pool, Creator: alice, TotalTokens: 1_000,
	})
	assert.ErrorIs(t, err, engine.ErrUnauthorized)
	assert.Empty(t, f.poolState().Plugins)
}

func TestAttachTradeToEarn_EscrowsRewards(t *testing.T) {
	f := newFixture(t).withPool()
	before := f.balance(creator, baseMint)

	info, err := f.eng.AttachTradeToEarn(f.ctx, engine.AttachTradeToEarnRequest{
		Pool: f.pool, Creator: creator, TotalTokens: 1_000_000,
	})
	require.NoError(t, err)

	tte := info.Pool.TradeToEarn()
	require.NotNil(t, tte)
	assert.Equal(t, uint32(startUnix/domain.SecondsPerDay), tte.FirstRewardDay)
	assert.Equal(t, domain.NoRewardDay, tte.LastRewardDay)
	assert.Equal(t, before-1_000_000, f.balance(creator, baseMint))
	assert.Equal(t, uint64(1_000_000), f.balance(f.pool, baseMint))
}

func TestFaucet_DisabledOnMainnet(t *testing.T) {
	eng, err := engine.New(engine.Options{
		Params: config.Mainnet.Params(),
		Store:  memory.NewRecordStore(),
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	err = eng.Airdrop(context.Background(), alice, 1)
	assert.ErrorIs(t, err, engine.ErrFaucetDisabled)
	err = eng.MintTo(context.Background(), alice, baseMint, 1)
	assert.ErrorIs(t, err, engine.ErrFaucetDisabled)
	assert.Equal(t, engine.CategoryValidation, engine.CategoryOf(err))
}

func TestMintTo_FundsTokenAccountFromOwner(t *testing.T) {
	f := newFixture(t)
	before, err := f.eng.Lamports(f.ctx, alice)
	require.NoError(t, err)

	require.NoError(t, f.eng.MintTo(f.ctx, alice, baseMint, 500))
	require.NoError(t, f.eng.MintTo(f.ctx, alice, baseMint, 500))

	after, err := f.eng.Lamports(f.ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000), f.balance(alice, baseMint))
	assert.Equal(t, before-f.params.Rent.MinimumBalance(codec.TokenAccountSize), after)
}

// conflictStore loses every commit race.
type conflictStore struct {
	ledger.Store
}

func (s conflictStore) Apply(context.Context, []ledger.Change) error {
	return ledger.ErrConflict
}

func TestConflictIsClassified(t *testing.T) {
	f := newFixture(t).withPool()
	eng := f.newEngine(conflictStore{Store: f.store})

	require.NoError(t, f.eng.MintTo(f.ctx, alice, quoteMint, 10_000))
	_, err := eng.Swap(f.ctx, engine.SwapRequest{
		Pool: f.pool, User: alice, Side: domain.SideBuy, AmountIn: 10_000,
	})
	assert.ErrorIs(t, err, ledger.ErrConflict)
	assert.Equal(t, engine.CategoryConflict, engine.CategoryOf(err))
}

// failingStore fails every read like an unreachable database.
type failingStore struct {
	ledger.Store
}

var errUnavailable = errors.New("connection refused")

func (failingStore) Get(context.Context, string) (*ledger.Record, error) {
	return nil, errUnavailable
}

func TestInfrastructureErrorsAreNotRejections(t *testing.T) {
	f := newFixture(t).withPool()
	eng := f.newEngine(failingStore{Store: f.store})

	_, err := eng.Swap(f.ctx, engine.SwapRequest{
		Pool: f.pool, User: alice, Side: domain.SideBuy, AmountIn: 10_000,
	})
	assert.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, engine.Category(""), engine.CategoryOf(err))
}
