package amm

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// PricePrecision is the number of decimal places kept when deriving prices.
const PricePrecision = 18

// SpotPrice returns quote per base from reserves.
func SpotPrice(baseReserve, quoteReserve uint64) (float64, error) {
	if baseReserve == 0 {
		return 0, fmt.Errorf("spot price: %w", ErrDivisionByZero)
	}
	ratio := fromUint64(quoteReserve).DivRound(fromUint64(baseReserve), PricePrecision)
	price, _ := ratio.Float64()
	return price, nil
}

func fromUint64(v uint64) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(v), 0)
}
