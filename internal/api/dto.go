package api

import (
	"token-launchpad/internal/amm"
	"token-launchpad/internal/domain"
	"token-launchpad/internal/engine"
)

type initializePoolRequest struct {
	Creator     string  `json:"creator"`
	BaseMint    string  `json:"base_mint"`
	QuoteMint   string  `json:"quote_mint"`
	BaseAmount  uint64  `json:"base_amount"`
	QuoteAmount uint64  `json:"quote_amount"`
	FeeRate     *uint16 `json:"fee_rate,omitempty"`
}

type attachScalingRequest struct {
	Creator   string `json:"creator"`
	Scalar    uint64 `json:"scalar"`
	Threshold uint64 `json:"threshold"`
}

type attachTradeToEarnRequest struct {
	Creator     string `json:"creator"`
	TotalTokens uint64 `json:"total_tokens"`
}

type quoteRequest struct {
	Side             string `json:"side"`
	AmountIn         uint64 `json:"amount_in"`
	TransferFeeAware bool   `json:"transfer_fee_aware"`
}

type swapRequest struct {
	User             string `json:"user"`
	Side             string `json:"side"`
	AmountIn         uint64 `json:"amount_in"`
	MinAmountOut     uint64 `json:"min_amount_out"`
	TransferFeeAware bool   `json:"transfer_fee_aware"`
}

type claimRequest struct {
	User string `json:"user"`
	Day  uint32 `json:"day"`
}

type airdropRequest struct {
	Wallet   string `json:"wallet"`
	Lamports uint64 `json:"lamports"`
}

type mintRequest struct {
	Owner  string `json:"owner"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`
}

type errorResponse struct {
	Error    string `json:"error"`
	Category string `json:"category,omitempty"`
}

type pluginResponse struct {
	Tag              string                   `json:"tag"`
	LiquidityScaling *liquidityScalingPayload `json:"liquidity_scaling,omitempty"`
	TradeToEarn      *tradeToEarnPayload      `json:"trade_to_earn,omitempty"`
}

type liquidityScalingPayload struct {
	Scalar    uint64 `json:"scalar"`
	Threshold uint64 `json:"threshold"`
	Active    bool   `json:"active"`
}

type tradeToEarnPayload struct {
	TotalTokens    uint64 `json:"total_tokens"`
	FirstRewardDay uint32 `json:"first_reward_day"`
	LastRewardDay  uint32 `json:"last_reward_day"`
	Paid           uint64 `json:"paid"`
}

type poolResponse struct {
	ID           string           `json:"id"`
	Series       string           `json:"series"`
	Creator      string           `json:"creator"`
	BaseMint     string           `json:"base_mint"`
	QuoteMint    string           `json:"quote_mint"`
	BaseReserve  uint64           `json:"base_reserve"`
	QuoteReserve uint64           `json:"quote_reserve"`
	FeeRate      uint16           `json:"fee_rate"`
	LastPrice    float64          `json:"last_price"`
	CreatedAt    int64            `json:"created_at"`
	Plugins      []pluginResponse `json:"plugins"`
}

func toPoolResponse(info *engine.PoolInfo) poolResponse {
	p := info.Pool
	resp := poolResponse{
		ID:           info.ID,
		Series:       info.Series,
		Creator:      p.Creator,
		BaseMint:     p.BaseMint,
		QuoteMint:    p.QuoteMint,
		BaseReserve:  p.BaseReserve,
		QuoteReserve: p.QuoteReserve,
		FeeRate:      p.FeeRate,
		LastPrice:    p.LastPrice,
		CreatedAt:    p.CreatedAt,
		Plugins:      make([]pluginResponse, 0, len(p.Plugins)),
	}
	for _, pl := range p.Plugins {
		out := pluginResponse{Tag: pl.Tag.String()}
		if ls := pl.LiquidityScaling; ls != nil {
			out.LiquidityScaling = &liquidityScalingPayload{Scalar: ls.Scalar, Threshold: ls.Threshold, Active: ls.Active}
		}
		if tte := pl.TradeToEarn; tte != nil {
			out.TradeToEarn = &tradeToEarnPayload{
				TotalTokens:    tte.TotalTokens,
				FirstRewardDay: tte.FirstRewardDay,
				LastRewardDay:  tte.LastRewardDay,
				Paid:           tte.Paid,
			}
		}
		resp.Plugins = append(resp.Plugins, out)
	}
	return resp
}

type quoteResponse struct {
	Side        string `json:"side"`
	AmountIn    uint64 `json:"amount_in"`
	TransferFee uint64 `json:"transfer_fee"`
	AmountNet   uint64 `json:"amount_net"`
	PoolFee     uint64 `json:"pool_fee"`
	AmountOut   uint64 `json:"amount_out"`
	Scaled      bool   `json:"scaled"`
}

func toQuoteResponse(q *amm.Quote) quoteResponse {
	return quoteResponse{
		Side:        q.Side.String(),
		AmountIn:    q.AmountIn,
		TransferFee: q.TransferFee,
		AmountNet:   q.AmountNet,
		PoolFee:     q.PoolFee,
		AmountOut:   q.AmountOut,
		Scaled:      q.Scaled,
	}
}

type swapResponse struct {
	SwapID       string  `json:"swap_id"`
	Pool         string  `json:"pool"`
	User         string  `json:"user"`
	Side         string  `json:"side"`
	AmountIn     uint64  `json:"amount_in"`
	AmountNet    uint64  `json:"amount_net"`
	TransferFee  uint64  `json:"transfer_fee"`
	PoolFee      uint64  `json:"pool_fee"`
	AmountOut    uint64  `json:"amount_out"`
	Scaled       bool    `json:"scaled"`
	Price        float64 `json:"price"`
	BaseReserve  uint64  `json:"base_reserve"`
	QuoteReserve uint64  `json:"quote_reserve"`
	Timestamp    int64   `json:"timestamp"`
	RewardDay    *uint32 `json:"reward_day,omitempty"`
}

func toSwapResponse(r *domain.SwapReceipt) swapResponse {
	return swapResponse{
		SwapID:       r.SwapID,
		Pool:         r.Pool,
		User:         r.User,
		Side:         r.Side.String(),
		AmountIn:     r.AmountIn,
		AmountNet:    r.AmountNet,
		TransferFee:  r.TransferFee,
		PoolFee:      r.PoolFee,
		AmountOut:    r.AmountOut,
		Scaled:       r.Scaled,
		Price:        r.Price,
		BaseReserve:  r.BaseReserve,
		QuoteReserve: r.QuoteReserve,
		Timestamp:    r.Timestamp,
		RewardDay:    r.RewardDay,
	}
}

type claimResponse struct {
	ClaimID   string  `json:"claim_id"`
	Pool      string  `json:"pool"`
	User      string  `json:"user"`
	Day       uint32  `json:"day"`
	Payout    uint64  `json:"payout"`
	Fraction  float64 `json:"fraction"`
	DayClosed bool    `json:"day_closed"`
	Timestamp int64   `json:"timestamp"`
}

func toClaimResponse(r *domain.ClaimReceipt) claimResponse {
	return claimResponse{
		ClaimID:   r.ClaimID,
		Pool:      r.Pool,
		User:      r.User,
		Day:       r.Day,
		Payout:    r.Payout,
		Fraction:  r.Fraction,
		DayClosed: r.DayClosed,
		Timestamp: r.Timestamp,
	}
}

type candleResponse struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    uint64  `json:"volume"`
}

type rewardDayResponse struct {
	Day                 uint32  `json:"day"`
	TotalBuyVolume      uint64  `json:"total_buy_volume"`
	TokenRewards        uint64  `json:"token_rewards"`
	AmountDistributed   uint64  `json:"amount_distributed"`
	DistributedFraction float64 `json:"distributed_fraction"`
}

type userRewardDayResponse struct {
	Day       uint32 `json:"day"`
	BuyVolume uint64 `json:"buy_volume"`
}

type balanceResponse struct {
	Owner  string `json:"owner"`
	Mint   string `json:"mint"`
	Amount uint64 `json:"amount"`
}
