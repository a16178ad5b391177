package codec

import (
	"fmt"

	"token-launchpad/internal/domain"
)

// Serialized record sizes.
const (
	RewardDaySize     = 1 + 4 + 8 + 8 + 8 + 8
	UserRewardDaySize = 1 + 4 + 8
	TokenAccountSize  = 1 + keySize + keySize + 8
)

// EncodeRewardDay serializes a pool reward-day record.
func EncodeRewardDay(d *domain.RewardDay) []byte {
	w := newWriter(KindRewardDay, RewardDaySize)
	w.u32(d.Day)
	w.u64(d.TotalBuyVolume)
	w.u64(d.TokenRewards)
	w.u64(d.AmountDistributed)
	w.f64(d.DistributedFraction)
	return w.buf
}

// DecodeRewardDay deserializes a pool reward-day record.
func DecodeRewardDay(data []byte) (*domain.RewardDay, error) {
	r := newReader(data, KindRewardDay)
	d := &domain.RewardDay{
		Day:                 r.u32(),
		TotalBuyVolume:      r.u64(),
		TokenRewards:        r.u64(),
		AmountDistributed:   r.u64(),
		DistributedFraction: r.f64(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode reward day: %w", r.err)
	}
	return d, nil
}

// EncodeUserRewardDay serializes a per-user reward-day record.
func EncodeUserRewardDay(d *domain.UserRewardDay) []byte {
	w := newWriter(KindUserRewardDay, UserRewardDaySize)
	w.u32(d.Day)
	w.u64(d.BuyVolume)
	return w.buf
}

// DecodeUserRewardDay deserializes a per-user reward-day record.
func DecodeUserRewardDay(data []byte) (*domain.UserRewardDay, error) {
	r := newReader(data, KindUserRewardDay)
	d := &domain.UserRewardDay{
		Day:       r.u32(),
		BuyVolume: r.u64(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode user reward day: %w", r.err)
	}
	return d, nil
}

// EncodeTokenAccount serializes a token account.
func EncodeTokenAccount(a *domain.TokenAccount) ([]byte, error) {
	w := newWriter(KindTokenAccount, TokenAccountSize)
	if err := w.key(a.Mint); err != nil {
		return nil, fmt.Errorf("encode token account: %w", err)
	}
	if err := w.key(a.Owner); err != nil {
		return nil, fmt.Errorf("encode token account: %w", err)
	}
	w.u64(a.Amount)
	return w.buf, nil
}

// DecodeTokenAccount deserializes a token account.
func DecodeTokenAccount(data []byte) (*domain.TokenAccount, error) {
	r := newReader(data, KindTokenAccount)
	a := &domain.TokenAccount{
		Mint:   r.key(),
		Owner:  r.key(),
		Amount: r.u64(),
	}
	if r.err != nil {
		return nil, fmt.Errorf("decode token account: %w", r.err)
	}
	return a, nil
}
