// Package core provides money parsing and handling utilities.
//
// Amounts are kept as integer cents everywhere. Decimal conversion goes
// through shopspring/decimal so that parsing and percentage math never touch
// binary floating point.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// SplitPolicy selects how a purchase total is divided into installments.
type SplitPolicy string

const (
	// SplitEven gives every installment floor(total/n) cents. The remainder
	// is dropped, so the slices may not add up to the total.
	SplitEven SplitPolicy = "even"
	// SplitLargestRemainder spreads the remainder one cent at a time over the
	// first installments so the slices always add up to the total.
	SplitLargestRemainder SplitPolicy = "largest_remainder"
)

var hundred = decimal.NewFromInt(100)

// ParseMoney converts a positive decimal string to Money with half-up
// rounding on the third decimal place.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators.
//
// Examples:
//
//	ParseMoney("12.34")  -> 1234 cents
//	ParseMoney("12,345") -> 1235 cents
func ParseMoney(s string) (Money, error) {
	m, err := ParseSignedMoney(s)
	if err != nil {
		return Money{}, err
	}
	if err := m.Validate(); err != nil {
		return Money{}, err
	}
	return m, nil
}

// ParseSignedMoney is like ParseMoney but accepts zero and negative values.
// It is used for opening balances, which may be overdrawn.
func ParseSignedMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Abs().GreaterThan(decimal.NewFromInt(maxCents)) {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents.IntPart()}, nil
}

// maxCents keeps sums of a few million rows well inside int64.
const maxCents = 1 << 50

// Cents is a shorthand constructor.
func Cents(c int64) Money { return Money{Cents: c} }

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// String formats the amount with exactly two decimals, e.g. "-12.30".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }
func (m Money) Sub(o Money) Money { return Money{Cents: m.Cents - o.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

// Split divides m into n installment amounts according to policy.
func (m Money) Split(n int, policy SplitPolicy) ([]Money, error) {
	if n < 1 {
		return nil, ErrInvalidInstallmentCount
	}
	base := m.Cents / int64(n)
	rem := m.Cents % int64(n)
	out := make([]Money, n)
	for i := range out {
		out[i] = Money{Cents: base}
		if policy == SplitLargestRemainder && int64(i) < rem {
			out[i].Cents++
		}
	}
	return out, nil
}

// Percent returns part/whole*100 rounded to two decimals. A non-positive
// whole yields zero.
func Percent(part, whole Money) decimal.Decimal {
	if whole.Cents <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(part.Cents).
		Mul(hundred).
		Div(decimal.NewFromInt(whole.Cents)).
		Round(2)
}
