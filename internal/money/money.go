// Package money centralises monetary rounding for the ledger.
// Amounts travel as float64 between components; every figure that is
// persisted or compared goes through Round2 first.
package money

import "github.com/shopspring/decimal"

// Tolerance is the maximum absolute difference two monetary amounts may
// show and still count as equal.
const Tolerance = 0.01

// Round2 rounds to two decimal places, half away from zero.
func Round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// Round6 rounds to six decimal places, used for FX rates.
func Round6(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(6).Float64()
	return f
}

// RoundN rounds to n decimal places, half away from zero.
func RoundN(v float64, n int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(n).Float64()
	return f
}

// Equal reports whether two amounts agree within Tolerance.
func Equal(a, b float64) bool {
	diff := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Abs()
	return diff.LessThanOrEqual(decimal.NewFromFloat(Tolerance))
}

// IsZero reports whether the amount is zero within Tolerance.
func IsZero(v float64) bool {
	return Abs(v) <= Tolerance
}

// Abs avoids importing math for a single call site pattern.
func Abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
