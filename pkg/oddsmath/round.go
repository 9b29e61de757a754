package oddsmath

import "github.com/shopspring/decimal"

// Round2 rounds to cents, half away from zero. Stakes and payouts are
// advisory, so two-decimal rounding at instruction boundaries is enough.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Round4 rounds to four decimal places, used for odds and percentages.
func Round4(v float64) float64 {
	return decimal.NewFromFloat(v).Round(4).InexactFloat64()
}
