package domain

// PluginTag discriminates plugin variants attached to a pool.
// Tags 1..63 are reserved for engine-defined variants; anything else
// is carried through untouched as Raw bytes.
type PluginTag uint8

// Known plugin tags.
const (
	PluginLiquidityScaling PluginTag = 1
	PluginTradeToEarn      PluginTag = 2
)

// String returns a human readable tag name.
func (t PluginTag) String() string {
	switch t {
	case PluginLiquidityScaling:
		return "liquidity_scaling"
	case PluginTradeToEarn:
		return "trade_to_earn"
	default:
		return "unknown"
	}
}

// Plugin is a closed tagged union. Exactly one variant pointer is set for
// known tags; unknown tags keep their serialized payload in Raw.
type Plugin struct {
	Tag              PluginTag
	LiquidityScaling *LiquidityScalingPlugin
	TradeToEarn      *TradeToEarnPlugin
	Raw              []byte
}

// LiquidityScalingPlugin damps price impact while the pool is shallow.
// Active only ever transitions true -> false.
type LiquidityScalingPlugin struct {
	Scalar    uint64 // scaling coefficient
	Threshold uint64 // quote reserve at which scaling switches off
	Active    bool
}

// TradeToEarnPlugin schedules day-bucketed buy rewards.
type TradeToEarnPlugin struct {
	TotalTokens    uint64 // reward tokens escrowed at attach time
	FirstRewardDay uint32 // absolute day index (unix / 86400)
	LastRewardDay  uint32 // relative day of the newest reward-day record
	Paid           uint64 // reward tokens paid out so far
}

// NoRewardDay marks LastRewardDay before any reward-day record was opened.
const NoRewardDay uint32 = 100

// HasOpenedDay reports whether any reward-day record has been opened.
func (p *TradeToEarnPlugin) HasOpenedDay() bool {
	return p.LastRewardDay != NoRewardDay
}
