// Package types provides the monetary value type shared by every fiscal computation.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors; rounding happens only
// when a value is presented or stored.
type Money = decimal.Decimal

// DisplayPlaces is the number of decimals shown on documents and reports.
const DisplayPlaces int32 = 2

var hundred = decimal.NewFromInt(100)

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// Percent returns amount * pct / 100 without rounding.
func Percent(amount Money, pct decimal.Decimal) Money {
	return amount.Mul(pct).Div(hundred)
}

// Round2 rounds half away from zero to DisplayPlaces.
func Round2(m Money) Money {
	return m.Round(DisplayPlaces)
}

// Fixed formats m with exactly DisplayPlaces decimals.
func Fixed(m Money) string {
	return m.StringFixed(DisplayPlaces)
}

// Sum adds every value.
func Sum(values ...Money) Money {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}
