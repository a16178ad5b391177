package domain

// TokenAccount holds one owner's balance of one mint.
// Layout mirrors the leading fields of an SPL token account.
type TokenAccount struct {
	Mint   string
	Owner  string
	Amount uint64
}
