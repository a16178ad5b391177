package solana

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync/atomic"
	"time"

	"token-launchpad/internal/observability"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultAttempts   = 4
	defaultBackoff    = 500 * time.Millisecond
	defaultMaxBackoff = 8 * time.Second
)

// HTTPClient talks JSON-RPC 2.0 over HTTP. Transport failures, 5xx and 429
// responses are retried with doubling backoff; node errors are returned as is.
type HTTPClient struct {
	endpoint   string
	commitment string
	http       *http.Client
	attempts   int
	backoff    time.Duration
	maxBackoff time.Duration
	nextID     atomic.Uint64
}

// ClientOption configures HTTPClient.
type ClientOption func(*HTTPClient)

// WithCommitment sets the commitment used for account reads.
func WithCommitment(level string) ClientOption {
	return func(c *HTTPClient) { c.commitment = level }
}

// WithAttempts sets the total number of attempts per call (minimum 1).
func WithAttempts(n int) ClientOption {
	return func(c *HTTPClient) {
		if n < 1 {
			n = 1
		}
		c.attempts = n
	}
}

// WithBackoff sets the first retry delay and its cap.
func WithBackoff(initial, limit time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.backoff = initial
		c.maxBackoff = limit
	}
}

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *HTTPClient) { c.http = hc }
}

// NewHTTPClient creates a client for endpoint.
func NewHTTPClient(endpoint string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		endpoint:   endpoint,
		commitment: CommitmentConfirmed,
		http:       &http.Client{Timeout: defaultTimeout},
		attempts:   defaultAttempts,
		backoff:    defaultBackoff,
		maxBackoff: defaultMaxBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type response struct {
	ID     uint64          `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *RPCError       `json:"error"`
}

// retryable marks a failed attempt that may succeed if repeated.
type retryable struct {
	err   error
	after time.Duration // server supplied delay, zero if none
}

func (r *retryable) Error() string { return r.err.Error() }
func (r *retryable) Unwrap() error { return r.err }

func (c *HTTPClient) call(ctx context.Context, method string, params []any, out any) error {
	start := time.Now()
	defer func() {
		observability.RecordRPCLatency(method, time.Since(start).Seconds())
	}()

	body, err := json.Marshal(request{JSONRPC: "2.0", ID: c.nextID.Add(1), Method: method, Params: params})
	if err != nil {
		return fmt.Errorf("encode %s: %w", method, err)
	}

	delay := c.backoff
	var last error
	for attempt := 0; attempt < c.attempts; attempt++ {
		if attempt > 0 {
			wait := delay
			var r *retryable
			if errors.As(last, &r) && r.after > wait {
				wait = r.after
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
			delay = min(delay*2, c.maxBackoff)
		}

		raw, err := c.post(ctx, body)
		if err == nil {
			return decodeResult(method, raw, out)
		}
		var r *retryable
		if !errors.As(err, &r) {
			return err
		}
		last = err
	}
	return fmt.Errorf("%s after %d attempts: %w", method, c.attempts, last)
}

// post sends one request and returns the raw result on success.
func (c *HTTPClient) post(ctx context.Context, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryable{err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryable{err: fmt.Errorf("read body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryable{err: ErrRateLimited, after: retryAfter(resp.Header.Get("Retry-After"))}
	case resp.StatusCode >= 500:
		return nil, &retryable{err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("status %d: %s", resp.StatusCode, bytes.TrimSpace(payload))
	}

	var rr response
	if err := json.Unmarshal(payload, &rr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if rr.Error != nil {
		return nil, rr.Error
	}
	return rr.Result, nil
}

func decodeResult(method string, raw json.RawMessage, out any) error {
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s result: %w", method, err)
	}
	return nil
}

// retryAfter parses a Retry-After header given in seconds.
func retryAfter(v string) time.Duration {
	secs, err := strconv.Atoi(v)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

type accountResult struct {
	Context struct {
		Slot uint64 `json:"slot"`
	} `json:"context"`
	Value *struct {
		Lamports   uint64    `json:"lamports"`
		Owner      string    `json:"owner"`
		Data       [2]string `json:"data"`
		Executable bool      `json:"executable"`
	} `json:"value"`
}

// GetAccountInfo fetches an account with base64 encoding and decodes its data.
func (c *HTTPClient) GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error) {
	params := []any{pubkey, map[string]string{
		"encoding":   "base64",
		"commitment": c.commitment,
	}}

	var res accountResult
	if err := c.call(ctx, "getAccountInfo", params, &res); err != nil {
		return nil, err
	}
	if res.Value == nil {
		return nil, nil
	}
	if enc := res.Value.Data[1]; enc != "base64" {
		return nil, fmt.Errorf("account %s returned %q encoding", pubkey, enc)
	}

	data, err := base64.StdEncoding.DecodeString(res.Value.Data[0])
	if err != nil {
		return nil, fmt.Errorf("account %s data: %w", pubkey, err)
	}
	return &AccountInfo{
		Lamports:   res.Value.Lamports,
		Owner:      res.Value.Owner,
		Data:       data,
		Executable: res.Value.Executable,
		Slot:       res.Context.Slot,
	}, nil
}

// GetEpochInfo returns the epoch at the client's commitment level.
func (c *HTTPClient) GetEpochInfo(ctx context.Context) (*EpochInfo, error) {
	var info EpochInfo
	params := []any{map[string]string{"commitment": c.commitment}}
	if err := c.call(ctx, "getEpochInfo", params, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

var _ RPCClient = (*HTTPClient)(nil)
