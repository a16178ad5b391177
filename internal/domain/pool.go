package domain

// Pool is the AMM record for one base/quote asset pair.
// Identity is derived from the sorted pair of mint identities.
type Pool struct {
	Creator      string   // authority allowed to attach plugins
	BaseMint     string   // launched token mint
	QuoteMint    string   // quote asset mint (e.g. wrapped SOL)
	BaseReserve  uint64   // smallest units
	QuoteReserve uint64   // smallest units
	FeeRate      uint16   // hundredths of a percent, fixed at creation
	LastPrice    float64  // quote per base, display value only
	CreatedAt    int64    // unix seconds
	Plugins      []Plugin // ordered, searchable by tag
}

// PoolFeeDenominator is the divisor for FeeRate (1 unit = 0.01%).
const PoolFeeDenominator = 10_000

// DustFloor is the minimum reserve a swap may leave on the withdrawn side.
const DustFloor = 100

// Side is the direction of a swap.
type Side uint8

// Swap side constants
const (
	SideBuy  Side = 0 // spend quote, receive base
	SideSell Side = 1 // spend base, receive quote
)

// Swap side names used on the wire.
const (
	SwapSideBuy  = "buy"
	SwapSideSell = "sell"
)

// String returns the wire name of the side.
func (s Side) String() string {
	switch s {
	case SideBuy:
		return SwapSideBuy
	case SideSell:
		return SwapSideSell
	default:
		return "unknown"
	}
}

// IsValid checks if the side is a known value.
func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// ParseSide accepts "buy"/"sell" or the numeric forms "0"/"1".
func ParseSide(v string) (Side, bool) {
	switch v {
	case SwapSideBuy, "0":
		return SideBuy, true
	case SwapSideSell, "1":
		return SideSell, true
	default:
		return 0, false
	}
}

// InputMint returns the mint the trader spends for the given side.
func (p *Pool) InputMint(side Side) string {
	if side == SideBuy {
		return p.QuoteMint
	}
	return p.BaseMint
}

// OutputMint returns the mint the trader receives for the given side.
func (p *Pool) OutputMint(side Side) string {
	if side == SideBuy {
		return p.BaseMint
	}
	return p.QuoteMint
}

// Plugin returns the first plugin with the given tag, or nil.
func (p *Pool) Plugin(tag PluginTag) *Plugin {
	for i := range p.Plugins {
		if p.Plugins[i].Tag == tag {
			return &p.Plugins[i]
		}
	}
	return nil
}

// LiquidityScaling returns the attached liquidity scaling plugin, or nil.
func (p *Pool) LiquidityScaling() *LiquidityScalingPlugin {
	if pl := p.Plugin(PluginLiquidityScaling); pl != nil {
		return pl.LiquidityScaling
	}
	return nil
}

// TradeToEarn returns the attached trade-to-earn plugin, or nil.
func (p *Pool) TradeToEarn() *TradeToEarnPlugin {
	if pl := p.Plugin(PluginTradeToEarn); pl != nil {
		return pl.TradeToEarn
	}
	return nil
}
