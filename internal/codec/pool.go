package codec

import (
	"fmt"
	"math"

	"token-launchpad/internal/domain"
)

// Pool layout:
//
//	kind u8 | creator [32] | base mint [32] | quote mint [32] |
//	base reserve u64 | quote reserve u64 | fee rate u16 | last price f64 |
//	created at i64 | plugin count u8 | plugins...
//
// Each plugin is tag u8 | payload length u16 | payload.
const poolHeaderSize = 1 + 3*keySize + 8 + 8 + 2 + 8 + 8 + 1

// Plugin payload sizes.
const (
	LiquidityScalingSize = 8 + 8 + 1
	TradeToEarnSize      = 8 + 4 + 4 + 8
)

// MaxPlugins is the largest number of plugins a pool record can carry.
const MaxPlugins = math.MaxUint8

// EncodePool serializes a pool.
func EncodePool(p *domain.Pool) ([]byte, error) {
	if len(p.Plugins) > MaxPlugins {
		return nil, fmt.Errorf("encode pool: %d plugins exceeds %d", len(p.Plugins), MaxPlugins)
	}

	w := newWriter(KindPool, poolHeaderSize+len(p.Plugins)*(3+TradeToEarnSize))
	for _, k := range []string{p.Creator, p.BaseMint, p.QuoteMint} {
		if err := w.key(k); err != nil {
			return nil, fmt.Errorf("encode pool: %w", err)
		}
	}
	w.u64(p.BaseReserve)
	w.u64(p.QuoteReserve)
	w.u16(p.FeeRate)
	w.f64(p.LastPrice)
	w.i64(p.CreatedAt)
	w.u8(uint8(len(p.Plugins)))

	for i := range p.Plugins {
		payload, err := encodePlugin(&p.Plugins[i])
		if err != nil {
			return nil, fmt.Errorf("encode pool plugin %d: %w", i, err)
		}
		if len(payload) > math.MaxUint16 {
			return nil, fmt.Errorf("encode pool plugin %d: payload of %d bytes", i, len(payload))
		}
		w.u8(uint8(p.Plugins[i].Tag))
		w.u16(uint16(len(payload)))
		w.bytes(payload)
	}
	return w.buf, nil
}

func encodePlugin(pl *domain.Plugin) ([]byte, error) {
	switch pl.Tag {
	case domain.PluginLiquidityScaling:
		if pl.LiquidityScaling == nil {
			return nil, fmt.Errorf("liquidity scaling plugin without payload")
		}
		w := &writer{buf: make([]byte, 0, LiquidityScalingSize)}
		w.u64(pl.LiquidityScaling.Scalar)
		w.u64(pl.LiquidityScaling.Threshold)
		w.bool(pl.LiquidityScaling.Active)
		return w.buf, nil
	case domain.PluginTradeToEarn:
		if pl.TradeToEarn == nil {
			return nil, fmt.Errorf("trade-to-earn plugin without payload")
		}
		w := &writer{buf: make([]byte, 0, TradeToEarnSize)}
		w.u64(pl.TradeToEarn.TotalTokens)
		w.u32(pl.TradeToEarn.FirstRewardDay)
		w.u32(pl.TradeToEarn.LastRewardDay)
		w.u64(pl.TradeToEarn.Paid)
		return w.buf, nil
	default:
		return pl.Raw, nil
	}
}

// DecodePool deserializes a pool. Unknown plugin tags keep their payload in Raw.
func DecodePool(data []byte) (*domain.Pool, error) {
	r := newReader(data, KindPool)
	p := &domain.Pool{
		Creator:      r.key(),
		BaseMint:     r.key(),
		QuoteMint:    r.key(),
		BaseReserve:  r.u64(),
		QuoteReserve: r.u64(),
		FeeRate:      r.u16(),
		LastPrice:    r.f64(),
		CreatedAt:    r.i64(),
	}
	count := int(r.u8())
	if r.err != nil {
		return nil, fmt.Errorf("decode pool: %w", r.err)
	}

	p.Plugins = make([]domain.Plugin, 0, count)
	for i := 0; i < count; i++ {
		tag := domain.PluginTag(r.u8())
		size := int(r.u16())
		payload := r.bytes(size)
		if r.err != nil {
			return nil, fmt.Errorf("decode pool plugin %d: %w", i, r.err)
		}
		pl, err := decodePlugin(tag, payload)
		if err != nil {
			return nil, fmt.Errorf("decode pool plugin %d: %w", i, err)
		}
		p.Plugins = append(p.Plugins, pl)
	}
	return p, nil
}

func decodePlugin(tag domain.PluginTag, payload []byte) (domain.Plugin, error) {
	pl := domain.Plugin{Tag: tag}
	r := &reader{buf: payload}
	switch tag {
	case domain.PluginLiquidityScaling:
		pl.LiquidityScaling = &domain.LiquidityScalingPlugin{
			Scalar:    r.u64(),
			Threshold: r.u64(),
			Active:    r.bool(),
		}
	case domain.PluginTradeToEarn:
		pl.TradeToEarn = &domain.TradeToEarnPlugin{
			TotalTokens:    r.u64(),
			FirstRewardDay: r.u32(),
			LastRewardDay:  r.u32(),
			Paid:           r.u64(),
		}
	default:
		pl.Raw = payload
	}
	return pl, r.err
}
