// Package transferfee resolves the fee a token program withholds on transfer.
package transferfee

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// MaxBasisPoints is the largest transfer fee rate (100%).
const MaxBasisPoints = 10_000

// ErrFeeExceedsAmount is returned when a schedule would withhold more than the transfer.
var ErrFeeExceedsAmount = errors.New("transfer fee exceeds amount")

// Schedule is a transfer fee in effect for one mint.
type Schedule struct {
	BasisPoints uint16 `json:"basis_points"`
	MaximumFee  uint64 `json:"maximum_fee"`
}

// Fee returns ceil(amount * bps / 10000) capped at MaximumFee.
func (s Schedule) Fee(amount uint64) uint64 {
	if s.BasisPoints == 0 || amount == 0 {
		return 0
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(amount), big.NewInt(int64(s.BasisPoints)))
	num.Add(num, big.NewInt(MaxBasisPoints-1))
	num.Quo(num, big.NewInt(MaxBasisPoints))
	if !num.IsUint64() || num.Uint64() > s.MaximumFee {
		return s.MaximumFee
	}
	return num.Uint64()
}

// Source resolves the schedule currently in effect for a mint.
type Source interface {
	Schedule(ctx context.Context, mint string) (Schedule, error)
}

// ExpiringSource also reports how long a schedule stays in effect.
// A zero duration means it does not change on its own.
type ExpiringSource interface {
	Source
	ScheduleWithExpiry(ctx context.Context, mint string) (Schedule, time.Duration, error)
}

// Lookup computes transfer fees from a Source.
type Lookup struct {
	source Source
}

// NewLookup creates a Lookup over source.
func NewLookup(source Source) *Lookup {
	return &Lookup{source: source}
}

// FeeFor returns the amount withheld when transferring amount of mint.
func (l *Lookup) FeeFor(ctx context.Context, amount uint64, mint string) (uint64, error) {
	sched, err := l.source.Schedule(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("resolve transfer fee for %s: %w", mint, err)
	}
	fee := sched.Fee(amount)
	if fee > amount {
		return 0, fmt.Errorf("fee %d on %d of %s: %w", fee, amount, mint, ErrFeeExceedsAmount)
	}
	return fee, nil
}

// StaticSource serves fixed schedules. Mints without an entry have no fee.
type StaticSource struct {
	schedules map[string]Schedule
}

// NewStaticSource creates a source from a mint -> schedule map.
func NewStaticSource(schedules map[string]Schedule) *StaticSource {
	m := make(map[string]Schedule, len(schedules))
	for k, v := range schedules {
		m[k] = v
	}
	return &StaticSource{schedules: m}
}

// Schedule returns the configured schedule for mint.
func (s *StaticSource) Schedule(_ context.Context, mint string) (Schedule, error) {
	return s.schedules[mint], nil
}

// ParseSchedules parses "mint:bps:max" entries separated by commas.
// An empty string yields an empty map.
func ParseSchedules(s string) (map[string]Schedule, error) {
	out := make(map[string]Schedule)
	for _, entry := range strings.Split(s, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.Split(entry, ":")
		if len(parts) != 3 {
			return nil, fmt.Errorf("transfer fee entry %q: want mint:bps:max", entry)
		}
		bps, err := strconv.ParseUint(parts[1], 10, 16)
		if err != nil || bps > MaxBasisPoints {
			return nil, fmt.Errorf("transfer fee entry %q: invalid basis points", entry)
		}
		maxFee, err := strconv.ParseUint(parts[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("transfer fee entry %q: invalid maximum fee: %w", entry, err)
		}
		out[parts[0]] = Schedule{BasisPoints: uint16(bps), MaximumFee: maxFee}
	}
	return out, nil
}

var (
	_ Source = (*StaticSource)(nil)
	_ Source = (*RPCSource)(nil)
	_ Source = (*RedisCache)(nil)
)
