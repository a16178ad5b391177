package rewards

import (
	"errors"
	"testing"

	"token-launchpad/internal/domain"
)

func TestDailyRate(t *testing.T) {
	tests := []struct {
		day  uint32
		want float64
	}{
		{0, 0.05},
		{9, 0.05},
		{10, 0.03},
		{19, 0.03},
		{20, 0.02},
		{29, 0.02},
		{30, 0},
		{99, 0},
	}
	for _, tt := range tests {
		if got := DailyRate(tt.day); got != tt.want {
			t.Errorf("DailyRate(%d) = %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestScheduleFraction_FirstTenDays(t *testing.T) {
	got, err := ScheduleFraction(domain.NoRewardDay, 9)
	if err != nil {
		t.Fatalf("ScheduleFraction failed: %v", err)
	}
	if got != 0.5 {
		t.Errorf("ScheduleFraction([0,9]) = %v, want 0.5", got)
	}
}

func TestScheduleBudget(t *testing.T) {
	tests := []struct {
		name  string
		last  uint32
		day   uint32
		total uint64
		want  uint64
	}{
		{"first bucket day 0", domain.NoRewardDay, 0, 1_000_000, 50_000},
		{"first bucket day 9", domain.NoRewardDay, 9, 1_000_000, 500_000},
		{"next day", 9, 10, 1_000_000, 30_000},
		{"rollover across gap", 3, 12, 1_000_000, 6*50_000 + 3*30_000},
		{"past schedule", 29, 40, 1_000_000, 0},
		{"whole schedule", domain.NoRewardDay, 29, 1_000_000, 1_000_000},
		{"floors", domain.NoRewardDay, 0, 19, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScheduleBudget(tt.last, tt.day, tt.total)
			if err != nil {
				t.Fatalf("ScheduleBudget failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("ScheduleBudget = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestScheduleBudget_NeverExceedsTotal(t *testing.T) {
	const total = 999_999_937
	var sum uint64
	last := domain.NoRewardDay
	for day := uint32(0); day < 35; day += 3 {
		b, err := ScheduleBudget(last, day, total)
		if err != nil {
			t.Fatalf("ScheduleBudget failed: %v", err)
		}
		sum += b
		last = day
	}
	if sum > total {
		t.Errorf("Budgets sum to %d, exceeding total %d", sum, total)
	}
}

func TestScheduleBudget_Regression(t *testing.T) {
	if _, err := ScheduleBudget(5, 5, 100); !errors.Is(err, ErrDayRegression) {
		t.Errorf("Expected ErrDayRegression, got %v", err)
	}
}

func TestDayIndex(t *testing.T) {
	first := uint32(19723)
	if _, ok := DayIndex(int64(first-1)*domain.SecondsPerDay, first); ok {
		t.Error("Day before first reward day should not be eligible")
	}
	day, ok := DayIndex(int64(first+2)*domain.SecondsPerDay+3600, first)
	if !ok || day != 2 {
		t.Errorf("DayIndex = %d, %v; want 2, true", day, ok)
	}
}

func TestDistribute_ThirtySeventy(t *testing.T) {
	day := &domain.RewardDay{TotalBuyVolume: 100, TokenRewards: 1_001}
	alice := &domain.UserRewardDay{BuyVolume: 30}
	bob := &domain.UserRewardDay{BuyVolume: 70}

	first, err := Distribute(day, alice)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if first != 300 {
		t.Errorf("First payout = %d, want 300", first)
	}

	second, err := Distribute(day, bob)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if second != 1_001-first {
		t.Errorf("Second payout = %d, want remaining %d", second, 1_001-first)
	}
	if first+second > day.TokenRewards {
		t.Errorf("Payouts %d exceed budget %d", first+second, day.TokenRewards)
	}
	if day.DistributedFraction != 1.0 {
		t.Errorf("DistributedFraction = %v, want 1.0", day.DistributedFraction)
	}
	if !day.Exhausted() {
		t.Error("Day should be exhausted")
	}
}

func TestDistribute_Idempotent(t *testing.T) {
	day := &domain.RewardDay{TotalBuyVolume: 100, TokenRewards: 1_000}
	user := &domain.UserRewardDay{BuyVolume: 40}

	first, err := Distribute(day, user)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	fraction := day.DistributedFraction

	second, err := Distribute(day, user)
	if err != nil {
		t.Fatalf("Distribute failed: %v", err)
	}
	if first != 400 || second != 0 {
		t.Errorf("Payouts = %d, %d; want 400, 0", first, second)
	}
	if day.DistributedFraction != fraction {
		t.Error("Repeated claim changed the distributed fraction")
	}
}

func TestDistribute_FractionMonotonicAndCapped(t *testing.T) {
	// Volumes over-report the pool total; the fraction must still cap at 1
	day := &domain.RewardDay{TotalBuyVolume: 100, TokenRewards: 500}
	prev := 0.0
	var paid uint64
	for _, v := range []uint64{60, 60, 60} {
		payout, err := Distribute(day, &domain.UserRewardDay{BuyVolume: v})
		if err != nil {
			t.Fatalf("Distribute failed: %v", err)
		}
		paid += payout
		if day.DistributedFraction < prev || day.DistributedFraction > 1.0 {
			t.Errorf("Fraction moved from %v to %v", prev, day.DistributedFraction)
		}
		prev = day.DistributedFraction
	}
	if paid != 500 {
		t.Errorf("Paid %d, want whole budget 500", paid)
	}
}

func TestDistribute_NoVolume(t *testing.T) {
	_, err := Distribute(&domain.RewardDay{TokenRewards: 10}, &domain.UserRewardDay{BuyVolume: 1})
	if !errors.Is(err, ErrNoVolume) {
		t.Errorf("Expected ErrNoVolume, got %v", err)
	}
}
