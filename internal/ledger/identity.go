package ledger

import (
	"bytes"
	"crypto/sha256"
	"encoding/binary"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// MaxSeedLen is the longest single seed accepted by DeriveIdentity.
const MaxSeedLen = 32

// derivationMarker is appended to every derivation preimage.
const derivationMarker = "ProgramDerivedAddress"

// Record namespaces used as the first derivation seed.
const (
	NamespacePool          = "pool"
	NamespaceSeries        = "series"
	NamespaceRewardDay     = "reward_day"
	NamespaceUserRewardDay = "user_reward_day"
	NamespaceToken         = "token"
)

// DeriveIdentity derives a stable record identity from a namespace and seeds.
// Formula: first bump in 255..0 such that
// SHA256(namespace|seeds...|bump|programID|"ProgramDerivedAddress") is off the ed25519 curve.
// Returns the base58 identity and the bump used.
func DeriveIdentity(programID string, namespace string, seeds ...[]byte) (string, uint8, error) {
	program, err := DecodeKey(programID)
	if err != nil {
		return "", 0, fmt.Errorf("decode program id: %w", err)
	}
	if len(namespace) > MaxSeedLen {
		return "", 0, ErrSeedTooLong
	}
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return "", 0, ErrSeedTooLong
		}
	}

	for bump := 255; bump >= 0; bump-- {
		data := make([]byte, 0, 256)
		data = append(data, namespace...)
		for _, seed := range seeds {
			data = append(data, seed...)
		}
		data = append(data, byte(bump))
		data = append(data, program...)
		data = append(data, derivationMarker...)

		hash := sha256.Sum256(data)
		if !isOnCurve(hash[:]) {
			return base58.Encode(hash[:]), uint8(bump), nil
		}
	}

	return "", 0, ErrNoOffCurveIdentity
}

func isOnCurve(point []byte) bool {
	if len(point) != 32 {
		return false
	}
	_, err := new(edwards25519.Point).SetBytes(point)
	return err == nil
}

// DecodeKey decodes a base58 32-byte key.
func DecodeKey(key string) ([]byte, error) {
	raw, err := base58.Decode(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIdentity, err)
	}
	if len(raw) != 32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidIdentity, len(raw))
	}
	return raw, nil
}

// ValidKey reports whether key is a base58 32-byte key.
func ValidKey(key string) bool {
	_, err := DecodeKey(key)
	return err == nil
}

// SeedDay encodes a day index seed.
func SeedDay(day uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], day)
	return b[:]
}

// PoolIdentity derives the pool identity from the sorted pair of mints,
// so both orderings of the pair resolve to the same pool.
func PoolIdentity(programID, mintA, mintB string) (string, error) {
	a, err := DecodeKey(mintA)
	if err != nil {
		return "", fmt.Errorf("decode mint %s: %w", mintA, err)
	}
	b, err := DecodeKey(mintB)
	if err != nil {
		return "", fmt.Errorf("decode mint %s: %w", mintB, err)
	}
	if bytes.Compare(a, b) > 0 {
		a, b = b, a
	}
	id, _, err := DeriveIdentity(programID, NamespacePool, a, b)
	return id, err
}

// SeriesIdentity derives the price series record of a pool.
func SeriesIdentity(programID, pool string) (string, error) {
	p, err := DecodeKey(pool)
	if err != nil {
		return "", err
	}
	id, _, err := DeriveIdentity(programID, NamespaceSeries, p)
	return id, err
}

// RewardDayIdentity derives the pool-level reward-day record.
func RewardDayIdentity(programID, pool string, day uint32) (string, error) {
	p, err := DecodeKey(pool)
	if err != nil {
		return "", err
	}
	id, _, err := DeriveIdentity(programID, NamespaceRewardDay, p, SeedDay(day))
	return id, err
}

// UserRewardDayIdentity derives the per-user reward-day record.
func UserRewardDayIdentity(programID, pool, user string, day uint32) (string, error) {
	p, err := DecodeKey(pool)
	if err != nil {
		return "", err
	}
	u, err := DecodeKey(user)
	if err != nil {
		return "", err
	}
	id, _, err := DeriveIdentity(programID, NamespaceUserRewardDay, p, u, SeedDay(day))
	return id, err
}

// TokenAccountIdentity derives the token account of owner for mint.
func TokenAccountIdentity(programID, owner, mint string) (string, error) {
	o, err := DecodeKey(owner)
	if err != nil {
		return "", err
	}
	m, err := DecodeKey(mint)
	if err != nil {
		return "", err
	}
	id, _, err := DeriveIdentity(programID, NamespaceToken, o, m)
	return id, err
}
