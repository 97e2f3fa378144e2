package session

import (
	"strings"
	"unicode"
)

// NormalizeDigits rewrites any Unicode decimal digits (Arabic-Indic,
// Eastern Arabic-Indic, Devanagari, ...) to their ASCII equivalents so
// localized numeral entry parses like Latin digits.
func NormalizeDigits(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
			continue
		}
		if d := digitValue(r); d >= 0 {
			b.WriteRune(rune('0' + d))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// digitValue returns the decimal value of a non-ASCII digit rune, or
// -1 when r is not a decimal digit.
func digitValue(r rune) int {
	if !unicode.IsDigit(r) {
		return -1
	}
	// unicode.IsDigit guarantees membership in a contiguous Nd run
	// whose value is the offset from the run's zero.
	for _, zero := range digitZeros {
		if r >= zero && r <= zero+9 {
			return int(r - zero)
		}
	}
	return -1
}

// Zero code points of the digit blocks localized users actually type.
var digitZeros = []rune{
	0x0660, // Arabic-Indic
	0x06F0, // Eastern Arabic-Indic (Persian)
	0x0966, // Devanagari
	0x09E6, // Bengali
	0x0E50, // Thai
}

// ParseStake turns raw user input into a whole-unit stake in cents.
// Digits are normalized, everything else is stripped, and the result
// floors to a non-negative integer amount. Returns 0 for unusable
// input.
func ParseStake(input string) int64 {
	normalized := NormalizeDigits(input)

	var b strings.Builder
	for _, r := range normalized {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if digits == "" {
		return 0
	}
	// Bound the amount before conversion so absurd input cannot
	// overflow.
	digits = strings.TrimLeft(digits, "0")
	if len(digits) > 12 {
		return 0
	}

	var units int64
	for _, r := range digits {
		units = units*10 + int64(r-'0')
	}
	return units * 100
}
