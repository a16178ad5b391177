package domain

// RewardDay is the pool-level reward bucket for one relative day.
type RewardDay struct {
	Day                 uint32  // relative to the plugin's FirstRewardDay
	TotalBuyVolume      uint64  // quote volume bought by all users
	TokenRewards        uint64  // budget, assigned once at creation
	AmountDistributed   uint64  // cumulative paid out, <= TokenRewards
	DistributedFraction float64 // cumulative fraction paid, monotonic, <= 1.0
}

// Exhausted reports whether the whole budget has been paid out.
func (d *RewardDay) Exhausted() bool {
	return d.AmountDistributed >= d.TokenRewards
}

// UserRewardDay is one user's buy volume in a pool for one relative day.
type UserRewardDay struct {
	Day       uint32
	BuyVolume uint64
}

// Reward schedule constants.
const (
	SecondsPerDay  = 86400
	ScheduleDays   = 30 // rate is zero from this relative day on
	RateTier1      = 0.05
	RateTier2      = 0.03
	RateTier3      = 0.02
	RateTier1Until = 10
	RateTier2Until = 20
	RateTier3Until = 30
)

// ClaimReceipt is the outcome of a successful reward claim.
type ClaimReceipt struct {
	ClaimID   string
	Pool      string
	User      string
	Day       uint32
	Payout    uint64
	Fraction  float64 // pool-day distributed fraction after the claim
	DayClosed bool    // pool-day record was closed by this claim
	Timestamp int64   // unix seconds
}
