package session

import "testing"

func TestParseStake(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want int64 // cents
	}{
		{"plain", "100", 10_000},
		{"arabic-indic", "١٢٣", 12_300}, // ١٢٣
		{"eastern arabic", "۵۰", 5_000},      // ۵۰
		{"devanagari", "१०", 1_000},          // १०
		{"mixed digits", "1٢0", 12_000},
		{"letters stripped", "1a2b3", 12_300},
		{"symbols stripped", "$1,000", 100_000},
		{"decimal floors", "99.9", 99_900}, // dot stripped, digits concatenate
		{"empty", "", 0},
		{"no digits", "abc!", 0},
		{"zero", "0", 0},
		{"leading zeros", "007", 700},
		{"absurdly long", "99999999999999999999", 0},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ParseStake(tc.in); got != tc.want {
				t.Errorf("ParseStake(%q) = %d, want %d", tc.in, got, tc.want)
			}
		})
	}
}

func TestNormalizeDigits(t *testing.T) {
	if got := NormalizeDigits("١٢٣"); got != "123" {
		t.Errorf("arabic-indic: got %q, want 123", got)
	}
	if got := NormalizeDigits("abc123"); got != "abc123" {
		t.Errorf("latin passthrough: got %q", got)
	}
	if got := NormalizeDigits("๕๐"); got != "50" {
		t.Errorf("thai: got %q, want 50", got)
	}
}
