package rewards

import (
	"errors"
	"fmt"
	"math"

	"token-launchpad/internal/domain"
)

var (
	// ErrNoVolume is returned when a pool day has no buy volume to share.
	ErrNoVolume = errors.New("reward day has no buy volume")

	// ErrNonFinite is returned when a fraction is NaN or infinite.
	ErrNonFinite = errors.New("non-finite reward fraction")

	// ErrFractionDecreased is returned when rounding would move a bucket backwards.
	ErrFractionDecreased = errors.New("distributed amount would decrease")
)

// Distribute pays a user's pro-rata share of a pool day:
//
//	user_fraction = user volume / day volume
//	fraction      = min(1, distributed fraction + user_fraction)
//	distributed   = floor(fraction * token rewards + 0.5)
//	payout        = distributed - previously distributed
//
// Both records are updated in place and the user's volume is zeroed, so a
// repeated claim pays nothing.
func Distribute(day *domain.RewardDay, user *domain.UserRewardDay) (uint64, error) {
	if user.BuyVolume == 0 {
		return 0, nil
	}
	if day.TotalBuyVolume == 0 {
		return 0, ErrNoVolume
	}

	userFraction := float64(user.BuyVolume) / float64(day.TotalBuyVolume)
	fraction := math.Min(1.0, day.DistributedFraction+userFraction)
	if math.IsNaN(fraction) || math.IsInf(fraction, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFinite, fraction)
	}

	total := math.Floor(fraction*float64(day.TokenRewards) + 0.5)
	if math.IsNaN(total) || math.IsInf(total, 0) {
		return 0, fmt.Errorf("%w: %v", ErrNonFinite, total)
	}

	distributed := day.TokenRewards
	if total < float64(day.TokenRewards) {
		distributed = uint64(total)
	}
	if distributed < day.AmountDistributed {
		return 0, fmt.Errorf("%w: %d < %d", ErrFractionDecreased, distributed, day.AmountDistributed)
	}

	payout := distributed - day.AmountDistributed
	day.DistributedFraction = fraction
	day.AmountDistributed = distributed
	user.BuyVolume = 0
	return payout, nil
}
