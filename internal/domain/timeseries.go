package domain

// Candle is one minute of OHLCV data for a pool.
type Candle struct {
	Timestamp int64   // unix seconds, minute aligned
	Open      float64 // quote per base
	High      float64
	Low       float64
	Close     float64
	Volume    uint64 // base units traded in the minute
}

// PriceSeries is the append-only candle sequence of a pool.
type PriceSeries struct {
	Candles []Candle
}

// Latest returns the most recent candle, or nil for an empty series.
func (s *PriceSeries) Latest() *Candle {
	if len(s.Candles) == 0 {
		return nil
	}
	return &s.Candles[len(s.Candles)-1]
}

// CandleSeconds is the fixed candle duration.
const CandleSeconds = 60

// PoolCandle couples a candle with its pool for export and streaming.
type PoolCandle struct {
	Pool string
	Candle
}
