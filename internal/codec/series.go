package codec

import (
	"fmt"

	"token-launchpad/internal/domain"
)

// CandleSize is the serialized size of one candle.
const CandleSize = 8 + 4*8 + 8

// SeriesHeaderSize is the serialized size of an empty price series.
const SeriesHeaderSize = 1 + 4

// SeriesSize returns the record size of a series holding n candles.
func SeriesSize(n int) int {
	return SeriesHeaderSize + n*CandleSize
}

// EncodeSeries serializes a price series as kind u8 | count u32 | candles.
func EncodeSeries(s *domain.PriceSeries) []byte {
	w := newWriter(KindPriceSeries, SeriesSize(len(s.Candles)))
	w.u32(uint32(len(s.Candles)))
	for _, c := range s.Candles {
		w.i64(c.Timestamp)
		w.f64(c.Open)
		w.f64(c.High)
		w.f64(c.Low)
		w.f64(c.Close)
		w.u64(c.Volume)
	}
	return w.buf
}

// DecodeSeries deserializes a price series.
func DecodeSeries(data []byte) (*domain.PriceSeries, error) {
	r := newReader(data, KindPriceSeries)
	count := int(r.u32())
	if r.err == nil && len(data) < SeriesSize(count) {
		return nil, fmt.Errorf("decode series: %d candles in %d bytes: %w", count, len(data), ErrShortBuffer)
	}

	s := &domain.PriceSeries{Candles: make([]domain.Candle, 0, count)}
	for i := 0; i < count && r.err == nil; i++ {
		s.Candles = append(s.Candles, domain.Candle{
			Timestamp: r.i64(),
			Open:      r.f64(),
			High:      r.f64(),
			Low:       r.f64(),
			Close:     r.f64(),
			Volume:    r.u64(),
		})
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode series: %w", r.err)
	}
	return s, nil
}
