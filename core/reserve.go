package core

import (
	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 2 // whole currency units plus cents

var hundred = decimal.NewFromInt(100)

// MeetsReserve returns true if amount meets or exceeds the reserve price.
// Uses decimal arithmetic with monetaryPrecision to avoid floating-point errors.
func MeetsReserve(amount, reserve decimal.Decimal) bool {
	return amount.Round(monetaryPrecision).GreaterThanOrEqual(reserve.Round(monetaryPrecision))
}

// PerformancePercent expresses price as a percentage of reserve, rounded to two places.
// A zero reserve yields zero.
func PerformancePercent(price, reserve decimal.Decimal) decimal.Decimal {
	if reserve.IsZero() {
		return decimal.Zero
	}
	return price.Div(reserve).Mul(hundred).Round(monetaryPrecision)
}

// ClampIncrement returns current+delta, never below MinBidIncrement.
func ClampIncrement(current, delta decimal.Decimal) decimal.Decimal {
	return decimal.Max(MinBidIncrement, current.Add(delta))
}
