// Package solana reads mint and epoch state from a Solana JSON-RPC node.
package solana

import (
	"context"
	"errors"
	"fmt"
)

// Commitment levels accepted by the node.
const (
	CommitmentProcessed = "processed"
	CommitmentConfirmed = "confirmed"
	CommitmentFinalized = "finalized"
)

// ErrRateLimited is returned when every attempt was answered with HTTP 429.
var ErrRateLimited = errors.New("rpc rate limited")

// RPCClient is the subset of the node API needed to resolve transfer fees.
type RPCClient interface {
	// GetAccountInfo returns the account, or nil if it does not exist.
	GetAccountInfo(ctx context.Context, pubkey string) (*AccountInfo, error)

	GetEpochInfo(ctx context.Context) (*EpochInfo, error)
}

// AccountInfo is an account as seen at the client's commitment level.
type AccountInfo struct {
	Lamports   uint64
	Owner      string
	Data       []byte
	Executable bool
	Slot       uint64 // context slot of the response
}

// EpochInfo is the result of getEpochInfo.
type EpochInfo struct {
	AbsoluteSlot uint64 `json:"absoluteSlot"`
	BlockHeight  uint64 `json:"blockHeight"`
	Epoch        uint64 `json:"epoch"`
	SlotIndex    uint64 `json:"slotIndex"`
	SlotsInEpoch uint64 `json:"slotsInEpoch"`
}

// RPCError is an error object returned by the node. It is never retried.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}
