// Package timeseries maintains the append-only minute candle series of a pool.
package timeseries

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"token-launchpad/internal/domain"
)

var (
	// ErrInvalidPrice is returned for NaN, infinite or non-positive prices.
	ErrInvalidPrice = errors.New("invalid candle price")

	// ErrStaleMinute is returned when an update targets a minute before the latest candle.
	ErrStaleMinute = errors.New("minute precedes latest candle")

	// ErrVolumeOverflow is returned when a candle's volume would overflow.
	ErrVolumeOverflow = errors.New("candle volume overflow")
)

// MinuteOf returns the candle timestamp containing unix.
func MinuteOf(unix int64) int64 {
	m := unix % domain.CandleSeconds
	if m < 0 {
		m += domain.CandleSeconds
	}
	return unix - m
}

// Seed creates a series holding one flat candle.
func Seed(minute int64, price float64) (*domain.PriceSeries, error) {
	if !validPrice(price) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	return &domain.PriceSeries{
		Candles: []domain.Candle{flat(minute, price, 0)},
	}, nil
}

// Update folds a trade into the series.
//
// Same minute as the latest candle: low=min, high=max, close=price, volume+=base volume.
// Later minute: append open=high=low=close=price, volume=base volume.
//
// Returns true when a candle was appended.
func Update(series *domain.PriceSeries, minute int64, price float64, volume uint64) (bool, error) {
	if !validPrice(price) {
		return false, fmt.Errorf("%w: %v", ErrInvalidPrice, price)
	}
	if minute%domain.CandleSeconds != 0 {
		return false, fmt.Errorf("timestamp %d is not minute aligned", minute)
	}

	latest := series.Latest()
	if latest == nil || minute > latest.Timestamp {
		series.Candles = append(series.Candles, flat(minute, price, volume))
		return true, nil
	}
	if minute < latest.Timestamp {
		return false, fmt.Errorf("%w: %d < %d", ErrStaleMinute, minute, latest.Timestamp)
	}

	if latest.Volume > math.MaxUint64-volume {
		return false, fmt.Errorf("%w: %d + %d", ErrVolumeOverflow, latest.Volume, volume)
	}
	latest.Low = math.Min(latest.Low, price)
	latest.High = math.Max(latest.High, price)
	latest.Close = price
	latest.Volume += volume
	return false, nil
}

// Window returns the candles with timestamps in [from, to].
// A zero to means no upper bound.
func Window(series *domain.PriceSeries, from, to int64) []domain.Candle {
	candles := series.Candles
	start := sort.Search(len(candles), func(i int) bool { return candles[i].Timestamp >= from })
	end := len(candles)
	if to > 0 {
		end = sort.Search(len(candles), func(i int) bool { return candles[i].Timestamp > to })
	}
	if start >= end {
		return nil
	}
	out := make([]domain.Candle, end-start)
	copy(out, candles[start:end])
	return out
}

func flat(minute int64, price float64, volume uint64) domain.Candle {
	return domain.Candle{
		Timestamp: minute,
		Open:      price,
		High:      price,
		Low:       price,
		Close:     price,
		Volume:    volume,
	}
}

func validPrice(p float64) bool {
	return !math.IsNaN(p) && !math.IsInf(p, 0) && p > 0
}
