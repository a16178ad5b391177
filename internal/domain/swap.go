package domain

// SwapReceipt records an executed swap.
// Corresponds to swap_receipts table in PostgreSQL.
type SwapReceipt struct {
	ID           int64  // BIGSERIAL primary key
	SwapID       string // deterministic hash
	Pool         string // pool identity
	User         string // trader identity
	Side         Side
	AmountIn     uint64  // nominal amount debited from the trader
	AmountNet    uint64  // amount received by the pool after transfer fee
	TransferFee  uint64  // external token transfer fee withheld
	PoolFee      uint64  // pool fee charged on the net input
	AmountOut    uint64  // amount credited to the trader
	Scaled       bool    // liquidity scaling simulator was used
	Price        float64 // pool price after the swap
	BaseReserve  uint64  // reserves after the swap
	QuoteReserve uint64
	Timestamp    int64 // unix seconds
	RewardDay    *uint32
	CreatedAt    int64 // record creation timestamp (ms)
}
