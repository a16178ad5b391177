package memory

import (
	"context"
	"testing"

	"token-launchpad/internal/domain"
)

func TestCandleStore_UpsertReplaces(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	first := &domain.PoolCandle{Pool: "pool1", Candle: domain.Candle{Timestamp: 60, Open: 1, High: 1, Low: 1, Close: 1, Volume: 5}}
	if err := store.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	updated := &domain.PoolCandle{Pool: "pool1", Candle: domain.Candle{Timestamp: 60, Open: 1, High: 2, Low: 1, Close: 2, Volume: 9}}
	if err := store.Upsert(ctx, updated); err != nil {
		t.Fatalf("Upsert failed: %v", err)
	}

	result, err := store.GetByTimeRange(ctx, "pool1", 0, 120)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("Expected 1 candle, got %d", len(result))
	}
	if result[0].High != 2 || result[0].Volume != 9 {
		t.Errorf("Expected updated candle, got %+v", result[0].Candle)
	}
}

func TestCandleStore_GetByTimeRangeOrdered(t *testing.T) {
	store := NewCandleStore()
	ctx := context.Background()

	for _, ts := range []int64{180, 60, 120, 240} {
		_ = store.Upsert(ctx, &domain.PoolCandle{Pool: "pool1", Candle: domain.Candle{Timestamp: ts}})
	}
	_ = store.Upsert(ctx, &domain.PoolCandle{Pool: "pool2", Candle: domain.Candle{Timestamp: 120}})

	result, err := store.GetByTimeRange(ctx, "pool1", 60, 180)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(result) != 3 {
		t.Fatalf("Expected 3 candles, got %d", len(result))
	}
	for i := 1; i < len(result); i++ {
		if result[i].Timestamp <= result[i-1].Timestamp {
			t.Errorf("Candles not ordered at index %d", i)
		}
	}
}
