package ledger

// AccountStorageOverhead is charged on top of the data size of every record.
const AccountStorageOverhead = 128

// Rent computes the lamport balance a record must hold for its size.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionYears      uint64
}

// DefaultRent matches the public network rent parameters.
var DefaultRent = Rent{LamportsPerByteYear: 3480, ExemptionYears: 2}

// MinimumBalance returns the rent-exempt balance for a record of size bytes.
func (r Rent) MinimumBalance(size int) uint64 {
	return (uint64(size) + AccountStorageOverhead) * r.LamportsPerByteYear * r.ExemptionYears
}
