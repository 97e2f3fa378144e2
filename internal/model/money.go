package model

import "math"

// All demo-money amounts (balance, pool, stake, payout, fee) are held
// in int64 cents to avoid floating-point drift in the cycle accounting.
// Prices remain float64 because they come from the exchange feed and
// are only displayed, never settled against.

// CentsFromFloat converts a currency amount to cents, rounding to the
// nearest cent.
func CentsFromFloat(v float64) int64 {
	return int64(math.Round(v * 100))
}

// CentsToFloat converts cents back to a display amount.
func CentsToFloat(c int64) float64 {
	return float64(c) / 100.0
}
