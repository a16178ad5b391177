// Package rewards implements the trade-to-earn schedule and pro-rata distribution.
package rewards

import (
	"errors"
	"fmt"
	"math/bits"

	"token-launchpad/internal/domain"
)

// rateDenominator expresses daily rates in basis points of total tokens.
const rateDenominator = 10_000

var (
	// ErrDayRegression is returned when a new day precedes the last opened day.
	ErrDayRegression = errors.New("reward day precedes last opened day")

	// ErrScheduleOverflow is returned when a budget does not fit in u64.
	ErrScheduleOverflow = errors.New("reward budget overflow")
)

// rateBasisPoints is the step-function daily rate in basis points.
func rateBasisPoints(day uint32) uint64 {
	switch {
	case day < domain.RateTier1Until:
		return 500
	case day < domain.RateTier2Until:
		return 300
	case day < domain.RateTier3Until:
		return 200
	default:
		return 0
	}
}

// DailyRate returns the share of total tokens assigned to a relative day.
func DailyRate(day uint32) float64 {
	return float64(rateBasisPoints(day)) / rateDenominator
}

// scheduleRange returns the inclusive day range a new bucket covers.
func scheduleRange(lastRewardDay, newDay uint32) (uint32, error) {
	if lastRewardDay == domain.NoRewardDay {
		return 0, nil
	}
	if newDay <= lastRewardDay {
		return 0, fmt.Errorf("%w: %d <= %d", ErrDayRegression, newDay, lastRewardDay)
	}
	return lastRewardDay + 1, nil
}

func sumBasisPoints(start, end uint32) uint64 {
	var sum uint64
	for d := start; d <= end && d < domain.ScheduleDays; d++ {
		sum += rateBasisPoints(d)
	}
	return sum
}

// ScheduleFraction returns the share of total tokens a new bucket for newDay
// receives: the sum of daily rates over [lastRewardDay+1, newDay], or over
// [0, newDay] before any bucket was opened.
func ScheduleFraction(lastRewardDay, newDay uint32) (float64, error) {
	start, err := scheduleRange(lastRewardDay, newDay)
	if err != nil {
		return 0, err
	}
	return float64(sumBasisPoints(start, newDay)) / rateDenominator, nil
}

// ScheduleBudget returns the token budget of a new bucket for newDay.
// Budgets are floored so the sum over all buckets never exceeds totalTokens.
func ScheduleBudget(lastRewardDay, newDay uint32, totalTokens uint64) (uint64, error) {
	start, err := scheduleRange(lastRewardDay, newDay)
	if err != nil {
		return 0, err
	}
	hi, lo := bits.Mul64(totalTokens, sumBasisPoints(start, newDay))
	if hi >= rateDenominator {
		return 0, ErrScheduleOverflow
	}
	budget, _ := bits.Div64(hi, lo, rateDenominator)
	return budget, nil
}

// AbsoluteDay returns the day index of a unix timestamp.
func AbsoluteDay(unix int64) uint32 {
	if unix < 0 {
		return 0
	}
	return uint32(unix / domain.SecondsPerDay)
}

// DayIndex returns the day of unix relative to firstDay.
// ok is false before the first reward day.
func DayIndex(unix int64, firstDay uint32) (day uint32, ok bool) {
	abs := AbsoluteDay(unix)
	if abs < firstDay {
		return 0, false
	}
	return abs - firstDay, true
}
