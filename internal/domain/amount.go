// Package domain defines the core types shared across the galabot engine:
// fixed-point amounts, token pairs, quotes, opportunities, trade records, and
// the store/cache/gateway contracts implemented by the infrastructure packages.
package domain

import (
	"fmt"
	"math"
	"strings"
)

// Amount is a fixed-point token amount with 8 fractional digits, matching
// GalaChain token precision. Values are stored as integer units of 1e-8 so
// that profit arithmetic does not accumulate binary floating-point drift
// across many trades.
type Amount int64

// AmountScale is the number of integer units per whole token.
const AmountScale = 100_000_000

// AmountFromFloat converts a float64 to an Amount, rounding half away from
// zero at the eighth fractional digit.
func AmountFromFloat(f float64) Amount {
	return Amount(math.Round(f * AmountScale))
}

// ParseAmount parses a decimal string such as "12.5" or "-0.00000001" into an
// Amount. Digits beyond the eighth fractional place are rejected rather than
// silently rounded, since gateway amounts are never finer than 1e-8.
func ParseAmount(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("amount: empty string")
	}

	neg := false
	switch s[0] {
	case '-':
		neg = true
		s = s[1:]
	case '+':
		s = s[1:]
	}
	if s == "" || s == "." {
		return 0, fmt.Errorf("amount: invalid value %q", s)
	}

	intPart := s
	fracPart := ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		intPart = s[:i]
		fracPart = s[i+1:]
	}
	if len(fracPart) > 8 {
		return 0, fmt.Errorf("amount: %q exceeds 8 fractional digits", s)
	}
	// Right-pad the fraction to exactly 8 digits.
	fracPart += strings.Repeat("0", 8-len(fracPart))

	var units int64
	for _, r := range intPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("amount: invalid character in %q", s)
		}
		d := int64(r - '0')
		if units > (math.MaxInt64-d)/10 {
			return 0, fmt.Errorf("amount: %q overflows", s)
		}
		units = units*10 + d
	}
	if units > math.MaxInt64/AmountScale {
		return 0, fmt.Errorf("amount: %q overflows", s)
	}
	units *= AmountScale

	var frac int64
	for _, r := range fracPart {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("amount: invalid character in %q", s)
		}
		frac = frac*10 + int64(r-'0')
	}
	units += frac

	if neg {
		units = -units
	}
	return Amount(units), nil
}

// MustParseAmount is ParseAmount that panics on error. Intended for constants
// and tests.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Float64 returns the amount as a float64 for display and percentage math.
func (a Amount) Float64() float64 {
	return float64(a) / AmountScale
}

// String renders the amount as a decimal string with trailing fractional
// zeros trimmed, e.g. "12.5", "-0.00000001", "3".
func (a Amount) String() string {
	units := int64(a)
	neg := units < 0
	if neg {
		units = -units
	}
	whole := units / AmountScale
	frac := units % AmountScale

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	fmt.Fprintf(&b, "%d", whole)
	if frac != 0 {
		fs := fmt.Sprintf("%08d", frac)
		fs = strings.TrimRight(fs, "0")
		b.WriteByte('.')
		b.WriteString(fs)
	}
	return b.String()
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount { return a + b }

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount { return a - b }

// MulFloat returns a scaled by f, rounded half away from zero at the eighth
// fractional digit. Used for slippage and stop-loss/take-profit bounds.
func (a Amount) MulFloat(f float64) Amount {
	return Amount(math.Round(float64(a) * f))
}

// Cmp compares a and b, returning -1, 0, or +1.
func (a Amount) Cmp(b Amount) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive reports whether the amount is strictly greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsNegative reports whether the amount is strictly less than zero.
func (a Amount) IsNegative() bool { return a < 0 }

// PctOf returns a as a percentage of base (a / base * 100). A zero base
// yields zero rather than NaN.
func (a Amount) PctOf(base Amount) float64 {
	if base == 0 {
		return 0
	}
	return float64(a) / float64(base) * 100
}

// MarshalText implements encoding.TextMarshaler so Amounts serialize as
// decimal strings in JSON payloads sent to dashboards and the gateway.
func (a Amount) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Amount) UnmarshalText(text []byte) error {
	v, err := ParseAmount(string(text))
	if err != nil {
		return err
	}
	*a = v
	return nil
}
