// Package idhash derives deterministic identifiers for journaled events.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"token-launchpad/internal/domain"
)

// digest joins parts with '|' and returns the hex SHA-256 of the result.
func digest(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}

// ComputeSwapID hashes pool|user|side|amount_in|base_reserve|quote_reserve|timestamp.
// Reserves are taken before the swap, so two swaps never share pool state.
func ComputeSwapID(pool, user string, side domain.Side, amountIn, baseReserve, quoteReserve uint64, timestamp int64) string {
	return digest(pool, user, side.String(),
		strconv.FormatUint(amountIn, 10),
		strconv.FormatUint(baseReserve, 10),
		strconv.FormatUint(quoteReserve, 10),
		strconv.FormatInt(timestamp, 10),
	)
}

// ComputeClaimID hashes pool|user|day. One claim per user, pool and day.
func ComputeClaimID(pool, user string, day uint32) string {
	return digest(pool, user, strconv.FormatUint(uint64(day), 10))
}
