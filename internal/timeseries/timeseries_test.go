package timeseries

import (
	"errors"
	"math"
	"testing"

	"token-launchpad/internal/domain"
)

func TestMinuteOf(t *testing.T) {
	tests := []struct {
		unix int64
		want int64
	}{
		{0, 0},
		{59, 0},
		{60, 60},
		{1704067265, 1704067260},
		{-1, -60},
	}
	for _, tt := range tests {
		if got := MinuteOf(tt.unix); got != tt.want {
			t.Errorf("MinuteOf(%d) = %d, want %d", tt.unix, got, tt.want)
		}
	}
}

func TestUpdate_SameMinuteInPlace(t *testing.T) {
	series, err := Seed(60, 1.0)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	updates := []struct {
		price  float64
		volume uint64
	}{
		{1.5, 10},
		{0.5, 20},
		{1.2, 5},
	}
	for _, u := range updates {
		appended, err := Update(series, 60, u.price, u.volume)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if appended {
			t.Errorf("Same-minute update appended a candle")
		}
	}

	if len(series.Candles) != 1 {
		t.Fatalf("Expected 1 candle, got %d", len(series.Candles))
	}
	c := series.Candles[0]
	if c.Open != 1.0 || c.High != 1.5 || c.Low != 0.5 || c.Close != 1.2 || c.Volume != 35 {
		t.Errorf("Unexpected candle: %+v", c)
	}
}

func TestUpdate_NewMinuteAppends(t *testing.T) {
	series, _ := Seed(60, 1.0)

	appended, err := Update(series, 180, 2.0, 7)
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if !appended {
		t.Error("New minute should append")
	}
	if len(series.Candles) != 2 {
		t.Fatalf("Expected 2 candles, got %d", len(series.Candles))
	}

	want := domain.Candle{Timestamp: 180, Open: 2, High: 2, Low: 2, Close: 2, Volume: 7}
	if series.Candles[1] != want {
		t.Errorf("Appended candle = %+v, want %+v", series.Candles[1], want)
	}
	if series.Candles[0].Close != 1.0 {
		t.Error("Earlier candle mutated")
	}
}

func TestUpdate_Rejections(t *testing.T) {
	series, _ := Seed(120, 1.0)

	if _, err := Update(series, 60, 1.0, 1); !errors.Is(err, ErrStaleMinute) {
		t.Errorf("Expected ErrStaleMinute, got %v", err)
	}
	if _, err := Update(series, 120, math.NaN(), 1); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Expected ErrInvalidPrice, got %v", err)
	}
	if _, err := Update(series, 120, math.Inf(1), 1); !errors.Is(err, ErrInvalidPrice) {
		t.Errorf("Expected ErrInvalidPrice, got %v", err)
	}
	if _, err := Update(series, 121, 1.0, 1); err == nil {
		t.Error("Expected error for unaligned timestamp")
	}

	series.Candles[0].Volume = math.MaxUint64
	if _, err := Update(series, 120, 1.0, 1); !errors.Is(err, ErrVolumeOverflow) {
		t.Errorf("Expected ErrVolumeOverflow, got %v", err)
	}
	if len(series.Candles) != 1 {
		t.Error("Rejected updates must not change candle count")
	}
}

func TestWindow(t *testing.T) {
	series, _ := Seed(60, 1.0)
	for _, m := range []int64{120, 180, 240} {
		_, _ = Update(series, m, 1.0, 1)
	}

	got := Window(series, 120, 180)
	if len(got) != 2 || got[0].Timestamp != 120 || got[1].Timestamp != 180 {
		t.Errorf("Window(120, 180) = %+v", got)
	}
	if len(Window(series, 0, 0)) != 4 {
		t.Error("Open window should return every candle")
	}
	if Window(series, 300, 0) != nil {
		t.Error("Window past the end should be empty")
	}
}
