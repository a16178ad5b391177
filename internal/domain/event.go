package domain

// EventKind discriminates committed engine events.
type EventKind string

// Event kinds.
const (
	EventPoolCreated EventKind = "pool_created"
	EventSwap        EventKind = "swap"
	EventClaim       EventKind = "claim"
)

// Event is published after an engine operation commits.
type Event struct {
	Kind   EventKind     `json:"kind"`
	Pool   string        `json:"pool"`
	Swap   *SwapReceipt  `json:"swap,omitempty"`
	Claim  *ClaimReceipt `json:"claim,omitempty"`
	Candle *PoolCandle   `json:"candle,omitempty"`
}
