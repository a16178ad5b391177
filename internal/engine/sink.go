package engine

import (
	"context"
	"fmt"

	"token-launchpad/internal/domain"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/storage"
)

// Sink consumes events after their operation committed.
// Sink failures are logged and counted; the ledger is never rolled back.
type Sink interface {
	Name() string
	Publish(ctx context.Context, ev domain.Event) error
}

func (e *Engine) publish(ctx context.Context, ev domain.Event) {
	for _, s := range e.sinks {
		if err := s.Publish(ctx, ev); err != nil {
			e.logger.Printf("sink %s: %s event for pool %s: %v", s.Name(), ev.Kind, ev.Pool, err)
			observability.RecordSinkError(s.Name())
		}
	}
}

// SwapLogSink journals swap receipts.
type SwapLogSink struct {
	store storage.SwapLogStore
}

// NewSwapLogSink creates a sink writing to store.
func NewSwapLogSink(store storage.SwapLogStore) *SwapLogSink {
	return &SwapLogSink{store: store}
}

func (s *SwapLogSink) Name() string { return "swap_log" }

// Publish inserts the receipt of swap events and ignores the rest.
func (s *SwapLogSink) Publish(ctx context.Context, ev domain.Event) error {
	if ev.Kind != domain.EventSwap || ev.Swap == nil {
		return nil
	}
	if err := s.store.Insert(ctx, ev.Swap); err != nil {
		return fmt.Errorf("insert swap %s: %w", ev.Swap.SwapID, err)
	}
	return nil
}

// CandleSink exports the latest candle of every event that carries one.
type CandleSink struct {
	store storage.CandleStore
}

// NewCandleSink creates a sink writing to store.
func NewCandleSink(store storage.CandleStore) *CandleSink {
	return &CandleSink{store: store}
}

func (s *CandleSink) Name() string { return "candles" }

// Publish upserts the event's candle.
func (s *CandleSink) Publish(ctx context.Context, ev domain.Event) error {
	if ev.Candle == nil {
		return nil
	}
	if err := s.store.Upsert(ctx, ev.Candle); err != nil {
		return fmt.Errorf("upsert candle %s@%d: %w", ev.Pool, ev.Candle.Timestamp, err)
	}
	return nil
}

var (
	_ Sink = (*SwapLogSink)(nil)
	_ Sink = (*CandleSink)(nil)
)
