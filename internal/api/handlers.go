package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/engine"
)

const (
	maxBodyBytes     = 1 << 20
	defaultSwapLimit = 100
	maxSwapLimit     = 1000
)

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Rejections carry their category.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	category := engine.CategoryOf(err)
	switch {
	case errors.Is(err, errBadSignature):
		status = http.StatusUnauthorized
	case errors.Is(err, errReplayed):
		status = http.StatusConflict
	case errors.Is(err, errBadRequest):
		status = http.StatusBadRequest
	case errors.Is(err, engine.ErrPoolNotFound):
		status = http.StatusNotFound
	case category == engine.CategoryValidation:
		status = http.StatusBadRequest
	case category == engine.CategoryArithmetic:
		status = http.StatusUnprocessableEntity
	case category == engine.CategoryTemporal, category == engine.CategoryConflict:
		status = http.StatusConflict
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Printf("internal error: %v", err)
		msg = "internal error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Category: string(category)})
}

func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", errBadRequest, err)
	}
	return body, nil
}

func decode(body []byte, dst any) error {
	if err := json.Unmarshal(body, dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

// decodeSigned decodes a request signed by the key signer returns.
func decodeSigned[T any](s *Server, r *http.Request, signer func(*T) string) (*T, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	req := new(T)
	if err := decode(body, req); err != nil {
		return nil, err
	}
	if err := s.authenticate(r, signer(req), body); err != nil {
		return nil, err
	}
	return req, nil
}

func decodeUnsigned[T any](r *http.Request) (*T, error) {
	body, err := readBody(r)
	if err != nil {
		return nil, err
	}
	req := new(T)
	if err := decode(body, req); err != nil {
		return nil, err
	}
	return req, nil
}

func parseSide(v string) (domain.Side, error) {
	side, ok := domain.ParseSide(v)
	if !ok {
		return 0, fmt.Errorf("%w: side %q", errBadRequest, v)
	}
	return side, nil
}

func parseDay(r *http.Request) (uint32, error) {
	day, err := strconv.ParseUint(r.PathValue("day"), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: day %q", errBadRequest, r.PathValue("day"))
	}
	return uint32(day), nil
}

func queryInt64(r *http.Request, key string, def int64) (int64, error) {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", errBadRequest, key, v)
	}
	return n, nil
}

func (s *Server) handleInitializePool(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSigned(s, r, func(q *initializePoolRequest) string { return q.Creator })
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.engine.InitializePool(r.Context(), engine.InitializePoolRequest{
		Creator:     req.Creator,
		BaseMint:    req.BaseMint,
		QuoteMint:   req.QuoteMint,
		BaseAmount:  req.BaseAmount,
		QuoteAmount: req.QuoteAmount,
		FeeRate:     req.FeeRate,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPoolResponse(info))
}

func (s *Server) handleGetPool(w http.ResponseWriter, r *http.Request) {
	info, err := s.engine.GetPool(r.Context(), r.PathValue("pool"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPoolResponse(info))
}

func (s *Server) handleAttachScaling(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSigned(s, r, func(q *attachScalingRequest) string { return q.Creator })
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.engine.AttachLiquidityScaling(r.Context(), engine.AttachLiquidityScalingRequest{
		Pool:      r.PathValue("pool"),
		Creator:   req.Creator,
		Scalar:    req.Scalar,
		Threshold: req.Threshold,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPoolResponse(info))
}

func (s *Server) handleAttachTradeToEarn(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSigned(s, r, func(q *attachTradeToEarnRequest) string { return q.Creator })
	if err != nil {
		s.writeError(w, err)
		return
	}
	info, err := s.engine.AttachTradeToEarn(r.Context(), engine.AttachTradeToEarnRequest{
		Pool:        r.PathValue("pool"),
		Creator:     req.Creator,
		TotalTokens: req.TotalTokens,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPoolResponse(info))
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUnsigned[quoteRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	q, err := s.engine.Quote(r.Context(), engine.QuoteRequest{
		Pool:             r.PathValue("pool"),
		Side:             side,
		AmountIn:         req.AmountIn,
		TransferFeeAware: req.TransferFeeAware,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toQuoteResponse(q))
}

func (s *Server) handleSwap(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSigned(s, r, func(q *swapRequest) string { return q.User })
	if err != nil {
		s.writeError(w, err)
		return
	}
	side, err := parseSide(req.Side)
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.engine.Swap(r.Context(), engine.SwapRequest{
		Pool:             r.PathValue("pool"),
		User:             req.User,
		Side:             side,
		AmountIn:         req.AmountIn,
		MinAmountOut:     req.MinAmountOut,
		TransferFeeAware: req.TransferFeeAware,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSwapResponse(res.Receipt))
}

func (s *Server) handleClaim(w http.ResponseWriter, r *http.Request) {
	req, err := decodeSigned(s, r, func(q *claimRequest) string { return q.User })
	if err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.engine.ClaimReward(r.Context(), engine.ClaimRequest{
		Pool: r.PathValue("pool"),
		User: req.User,
		Day:  req.Day,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClaimResponse(res.Receipt))
}

func (s *Server) handleCandles(w http.ResponseWriter, r *http.Request) {
	from, err := queryInt64(r, "from", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	to, err := queryInt64(r, "to", 0)
	if err != nil {
		s.writeError(w, err)
		return
	}
	candles, err := s.engine.GetCandles(r.Context(), r.PathValue("pool"), from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]candleResponse, 0, len(candles))
	for _, c := range candles {
		out = append(out, candleResponse{
			Timestamp: c.Timestamp,
			Open:      c.Open,
			High:      c.High,
			Low:       c.Low,
			Close:     c.Close,
			Volume:    c.Volume,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSwaps(w http.ResponseWriter, r *http.Request) {
	if s.swaps == nil {
		writeJSON(w, http.StatusNotImplemented, errorResponse{Error: "swap journal disabled"})
		return
	}
	limit, err := queryInt64(r, "limit", defaultSwapLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if limit <= 0 || limit > maxSwapLimit {
		s.writeError(w, fmt.Errorf("%w: limit must be in [1, %d]", errBadRequest, maxSwapLimit))
		return
	}
	receipts, err := s.swaps.GetByPool(r.Context(), r.PathValue("pool"), int(limit))
	if err != nil {
		s.writeError(w, err)
		return
	}
	out := make([]swapResponse, 0, len(receipts))
	for _, rc := range receipts {
		out = append(out, toSwapResponse(rc))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleRewardDay(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	rd, err := s.engine.GetRewardDay(r.Context(), r.PathValue("pool"), day)
	if errors.Is(err, engine.ErrRewardDayNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rewardDayResponse{
		Day:                 rd.Day,
		TotalBuyVolume:      rd.TotalBuyVolume,
		TokenRewards:        rd.TokenRewards,
		AmountDistributed:   rd.AmountDistributed,
		DistributedFraction: rd.DistributedFraction,
	})
}

func (s *Server) handleUserRewardDay(w http.ResponseWriter, r *http.Request) {
	day, err := parseDay(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	ud, err := s.engine.GetUserRewardDay(r.Context(), r.PathValue("pool"), r.PathValue("user"), day)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, userRewardDayResponse{Day: ud.Day, BuyVolume: ud.BuyVolume})
}

func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	owner, mint := r.PathValue("owner"), r.PathValue("mint")
	amount, err := s.engine.TokenBalance(r.Context(), owner, mint)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Owner: owner, Mint: mint, Amount: amount})
}

func (s *Server) handleAirdrop(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUnsigned[airdropRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.Airdrop(r.Context(), req.Wallet, req.Lamports); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"wallet": req.Wallet, "lamports": req.Lamports})
}

func (s *Server) handleMintTo(w http.ResponseWriter, r *http.Request) {
	req, err := decodeUnsigned[mintRequest](r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.engine.MintTo(r.Context(), req.Owner, req.Mint, req.Amount); err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, balanceResponse{Owner: req.Owner, Mint: req.Mint, Amount: req.Amount})
}
