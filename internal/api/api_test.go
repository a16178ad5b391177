package api

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"token-launchpad/internal/config"
	"token-launchpad/internal/engine"
	"token-launchpad/internal/storage/memory"
)

type wallet struct {
	key ed25519.PrivateKey
	pub string
}

func newWallet(seed byte) wallet {
	key := ed25519.NewKeyFromSeed(bytes.Repeat([]byte{seed}, ed25519.SeedSize))
	return wallet{key: key, pub: base58.Encode(key.Public().(ed25519.PublicKey))}
}

func mintKey(b byte) string {
	return base58.Encode(bytes.Repeat([]byte{b}, 32))
}

var (
	creatorWallet = newWallet(1)
	traderWallet  = newWallet(2)
	baseMint      = mintKey(10)
	quoteMint     = mintKey(11)
)

type testAPI struct {
	t      *testing.T
	srv    *httptest.Server
	now    time.Time
	nonces *MemoryNonceStore
	seq    int
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	a := &testAPI{t: t, now: time.Unix(1_700_000_000, 0)}
	swaps := memory.NewSwapLogStore()
	eng, err := engine.New(engine.Options{
		Params: config.Localnet.Params(),
		Store:  memory.NewRecordStore(),
		Sinks:  []engine.Sink{engine.NewSwapLogSink(swaps)},
		Clock:  func() time.Time { return a.now },
		Logger: log.New(io.Discard, "", 0),
	})
	require.NoError(t, err)

	clock := func() time.Time { return a.now }
	a.nonces = NewMemoryNonceStore(clock)
	s := NewServer(Options{
		Engine: eng,
		Swaps:  swaps,
		Nonces: a.nonces,
		Clock:  clock,
		Logger: log.New(io.Discard, "", 0),
	})
	a.srv = httptest.NewServer(s.Handler())
	t.Cleanup(a.srv.Close)
	return a
}

// signHeaders signs raw for method and path with a fresh nonce at a.now.
func (a *testAPI) signHeaders(signer wallet, method, path string, raw []byte) http.Header {
	a.seq++
	nonce := fmt.Sprintf("n-%d", a.seq)
	ts := a.now.Unix()
	h := http.Header{}
	h.Set(TimestampHeader, strconv.FormatInt(ts, 10))
	h.Set(NonceHeader, nonce)
	h.Set(SignatureHeader, SignRequest(signer.key, method, path, ts, nonce, raw))
	return h
}

// send posts raw with the given headers and decodes the response into out.
func (a *testAPI) send(method, path string, raw []byte, h http.Header, out any) int {
	a.t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, a.srv.URL+path, bytes.NewReader(raw))
	require.NoError(a.t, err)
	for k, v := range h {
		req.Header[k] = v
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(a.t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(a.t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func (a *testAPI) marshal(body any) []byte {
	a.t.Helper()
	if body == nil {
		return nil
	}
	raw, err := json.Marshal(body)
	require.NoError(a.t, err)
	return raw
}

// do sends body as JSON, signed by signer when non-nil, and decodes the response into out.
func (a *testAPI) do(method, path string, body any, signer *wallet, out any) int {
	a.t.Helper()
	raw := a.marshal(body)
	var h http.Header
	if signer != nil {
		h = a.signHeaders(*signer, method, path, raw)
	}
	return a.send(method, path, raw, h, out)
}

func (a *testAPI) fund(w wallet, mint string, amount uint64) {
	a.t.Helper()
	require.Equal(a.t, http.StatusOK, a.do("POST", "/v1/faucet/airdrop", airdropRequest{Wallet: w.pub, Lamports: 1_000_000_000_000}, nil, nil))
	require.Equal(a.t, http.StatusOK, a.do("POST", "/v1/faucet/mint", mintRequest{Owner: w.pub, Mint: mint, Amount: amount}, nil, nil))
}

func (a *testAPI) createPool() string {
	a.t.Helper()
	a.fund(creatorWallet, baseMint, 10_000_000)
	a.fund(creatorWallet, quoteMint, 10_000_000)

	fee := uint16(25)
	var pool poolResponse
	status := a.do("POST", "/v1/pools", initializePoolRequest{
		Creator:     creatorWallet.pub,
		BaseMint:    baseMint,
		QuoteMint:   quoteMint,
		BaseAmount:  1_000_000,
		QuoteAmount: 1_000_000,
		FeeRate:     &fee,
	}, &creatorWallet, &pool)
	require.Equal(a.t, http.StatusCreated, status)
	return pool.ID
}

func TestAPI_Health(t *testing.T) {
	a := newTestAPI(t)
	var body map[string]string
	assert.Equal(t, http.StatusOK, a.do("GET", "/health", nil, nil, &body))
	assert.Equal(t, "localnet", body["network"])
}

func TestAPI_PoolLifecycle(t *testing.T) {
	a := newTestAPI(t)
	poolID := a.createPool()

	var pool poolResponse
	require.Equal(t, http.StatusOK, a.do("GET", "/v1/pools/"+poolID, nil, nil, &pool))
	assert.Equal(t, uint64(1_000_000), pool.BaseReserve)
	assert.Equal(t, 1.0, pool.LastPrice)
	assert.Empty(t, pool.Plugins)

	var quote quoteResponse
	require.Equal(t, http.StatusOK, a.do("POST", "/v1/pools/"+poolID+"/quote",
		quoteRequest{Side: "buy", AmountIn: 10_000}, nil, &quote))
	assert.Equal(t, uint64(9_876), quote.AmountOut)

	a.fund(traderWallet, quoteMint, 100_000)
	var swap swapResponse
	require.Equal(t, http.StatusOK, a.do("POST", "/v1/pools/"+poolID+"/swap",
		swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 10_000}, &traderWallet, &swap))
	assert.Equal(t, uint64(9_876), swap.AmountOut)
	assert.Equal(t, "buy", swap.Side)

	var swaps []swapResponse
	require.Equal(t, http.StatusOK, a.do("GET", "/v1/pools/"+poolID+"/swaps", nil, nil, &swaps))
	require.Len(t, swaps, 1)
	assert.Equal(t, swap.SwapID, swaps[0].SwapID)

	var candles []candleResponse
	require.Equal(t, http.StatusOK, a.do("GET", "/v1/pools/"+poolID+"/candles?from=0", nil, nil, &candles))
	require.Len(t, candles, 1)
	assert.Equal(t, uint64(9_876), candles[0].Volume)

	var bal balanceResponse
	require.Equal(t, http.StatusOK, a.do("GET", "/v1/balances/"+traderWallet.pub+"/"+baseMint, nil, nil, &bal))
	assert.Equal(t, uint64(9_876), bal.Amount)
}

func TestAPI_SignatureRequired(t *testing.T) {
	a := newTestAPI(t)
	poolID := a.createPool()
	a.fund(traderWallet, quoteMint, 100_000)
	req := swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 10_000}

	var errResp errorResponse
	assert.Equal(t, http.StatusUnauthorized, a.do("POST", "/v1/pools/"+poolID+"/swap", req, nil, &errResp))
	assert.Contains(t, errResp.Error, "missing")

	// Signed by someone other than the user.
	assert.Equal(t, http.StatusUnauthorized, a.do("POST", "/v1/pools/"+poolID+"/swap", req, &creatorWallet, nil))
}

func TestAPI_RejectionStatus(t *testing.T) {
	a := newTestAPI(t)
	poolID := a.createPool()
	a.fund(traderWallet, quoteMint, 100_000)

	tests := []struct {
		name     string
		path     string
		body     any
		signer   *wallet
		status   int
		category string
	}{
		{
			name:     "slippage",
			path:     "/v1/pools/" + poolID + "/swap",
			body:     swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 10_000, MinAmountOut: 9_877},
			signer:   &traderWallet,
			status:   http.StatusBadRequest,
			category: "validation",
		},
		{
			name:     "zero output",
			path:     "/v1/pools/" + poolID + "/swap",
			body:     swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 1},
			signer:   &traderWallet,
			status:   http.StatusUnprocessableEntity,
			category: "arithmetic",
		},
		{
			name:   "bad side",
			path:   "/v1/pools/" + poolID + "/quote",
			body:   quoteRequest{Side: "hold", AmountIn: 1},
			status: http.StatusBadRequest,
		},
		{
			name:     "unauthorized attach",
			path:     "/v1/pools/" + poolID + "/plugins/trade-to-earn",
			body:     attachTradeToEarnRequest{Creator: traderWallet.pub, TotalTokens: 1_000},
			signer:   &traderWallet,
			status:   http.StatusBadRequest,
			category: "validation",
		},
		{
			name:     "unknown pool",
			path:     "/v1/pools/" + mintKey(99) + "/quote",
			body:     quoteRequest{Side: "buy", AmountIn: 1_000},
			status:   http.StatusNotFound,
			category: "validation",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var errResp errorResponse
			assert.Equal(t, tt.status, a.do("POST", tt.path, tt.body, tt.signer, &errResp))
			assert.Equal(t, tt.category, errResp.Category)
			assert.NotEmpty(t, errResp.Error)
		})
	}
}

func TestAPI_ClaimBeforeDayEnds(t *testing.T) {
	a := newTestAPI(t)
	poolID := a.createPool()

	require.Equal(t, http.StatusOK, a.do("POST", "/v1/pools/"+poolID+"/plugins/trade-to-earn",
		attachTradeToEarnRequest{Creator: creatorWallet.pub, TotalTokens: 1_000_000}, &creatorWallet, nil))

	a.fund(traderWallet, quoteMint, 100_000)
	require.Equal(t, http.StatusOK, a.do("POST", "/v1/pools/"+poolID+"/swap",
		swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 10_000}, &traderWallet, nil))

	var errResp errorResponse
	assert.Equal(t, http.StatusConflict, a.do("POST", "/v1/pools/"+poolID+"/claim",
		claimRequest{User: traderWallet.pub, Day: 0}, &traderWallet, &errResp))
	assert.Equal(t, "temporal", errResp.Category)

	var user userRewardDayResponse
	require.Equal(t, http.StatusOK, a.do("GET", "/v1/pools/"+poolID+"/rewards/0/"+traderWallet.pub, nil, nil, &user))
	assert.Equal(t, uint64(10_000), user.BuyVolume)

	a.now = a.now.Add(24 * time.Hour)
	var claim claimResponse
	require.Equal(t, http.StatusOK, a.do("POST", "/v1/pools/"+poolID+"/claim",
		claimRequest{User: traderWallet.pub, Day: 0}, &traderWallet, &claim))
	assert.Equal(t, uint64(50_000), claim.Payout)
	assert.True(t, claim.DayClosed)

	assert.Equal(t, http.StatusNotFound, a.do("GET", "/v1/pools/"+poolID+"/rewards/0", nil, nil, nil))
}

func (a *testAPI) balance(owner, mint string) uint64 {
	a.t.Helper()
	var bal balanceResponse
	require.Equal(a.t, http.StatusOK, a.do("GET", "/v1/balances/"+owner+"/"+mint, nil, nil, &bal))
	return bal.Amount
}

func TestAPI_SignedSwapCannotBeReplayed(t *testing.T) {
	a := newTestAPI(t)
	poolA := a.createPool()
	otherMint := mintKey(12)
	a.fund(creatorWallet, otherMint, 10_000_000)
	var other poolResponse
	require.Equal(t, http.StatusCreated, a.do("POST", "/v1/pools", initializePoolRequest{
		Creator:     creatorWallet.pub,
		BaseMint:    otherMint,
		QuoteMint:   quoteMint,
		BaseAmount:  2_000_000,
		QuoteAmount: 1_000_000,
	}, &creatorWallet, &other))
	poolB := other.ID
	require.NotEqual(t, poolA, poolB)

	a.fund(traderWallet, quoteMint, 100_000)
	path := "/v1/pools/" + poolA + "/swap"
	raw := a.marshal(swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 10_000})
	h := a.signHeaders(traderWallet, "POST", path, raw)

	require.Equal(t, http.StatusOK, a.send("POST", path, raw, h, nil))
	spent := a.balance(traderWallet.pub, quoteMint)
	assert.Equal(t, uint64(90_000), spent)

	var errResp errorResponse
	assert.Equal(t, http.StatusConflict, a.send("POST", path, raw, h, &errResp))
	assert.Contains(t, errResp.Error, "already processed")

	// Same body and headers aimed at another pool.
	assert.Equal(t, http.StatusUnauthorized, a.send("POST", "/v1/pools/"+poolB+"/swap", raw, h, nil))

	assert.Equal(t, spent, a.balance(traderWallet.pub, quoteMint))
}

func TestAPI_SignedRequestTimestampWindow(t *testing.T) {
	a := newTestAPI(t)
	poolID := a.createPool()
	a.fund(traderWallet, quoteMint, 100_000)
	path := "/v1/pools/" + poolID + "/swap"
	raw := a.marshal(swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 10_000})

	// Signed now, delivered after the window.
	h := a.signHeaders(traderWallet, "POST", path, raw)
	a.now = a.now.Add(DefaultMaxSkew + time.Second)
	var errResp errorResponse
	assert.Equal(t, http.StatusUnauthorized, a.send("POST", path, raw, h, &errResp))
	assert.Contains(t, errResp.Error, "window")

	// Signed too far ahead of the server clock.
	a.now = a.now.Add(DefaultMaxSkew + time.Second)
	h = a.signHeaders(traderWallet, "POST", path, raw)
	a.now = a.now.Add(-2 * (DefaultMaxSkew + time.Second))
	assert.Equal(t, http.StatusUnauthorized, a.send("POST", path, raw, h, nil))

	// A tampered timestamp breaks the signature.
	h = a.signHeaders(traderWallet, "POST", path, raw)
	h.Set(TimestampHeader, strconv.FormatInt(a.now.Unix()+1, 10))
	assert.Equal(t, http.StatusUnauthorized, a.send("POST", path, raw, h, nil))

	h = a.signHeaders(traderWallet, "POST", path, raw)
	h.Del(NonceHeader)
	assert.Equal(t, http.StatusUnauthorized, a.send("POST", path, raw, h, nil))

	assert.Equal(t, uint64(100_000), a.balance(traderWallet.pub, quoteMint))
}

func TestAPI_RejectedRequestStillSpendsNonce(t *testing.T) {
	a := newTestAPI(t)
	poolID := a.createPool()
	path := "/v1/pools/" + poolID + "/swap"
	raw := a.marshal(swapRequest{User: traderWallet.pub, Side: "buy", AmountIn: 10_000})
	h := a.signHeaders(traderWallet, "POST", path, raw)

	// No quote tokens yet, so the engine rejects the swap.
	assert.NotEqual(t, http.StatusOK, a.send("POST", path, raw, h, nil))

	a.fund(traderWallet, quoteMint, 100_000)
	assert.Equal(t, http.StatusConflict, a.send("POST", path, raw, h, nil))
	assert.Equal(t, uint64(100_000), a.balance(traderWallet.pub, quoteMint))
}
