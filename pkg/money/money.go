// Package money provides integer minor-unit monetary arithmetic.
//
// All amounts are int64 values in minor currency units (cents) to avoid
// floating point error. Rounding is round half away from zero, applied at
// the point a quantity is first computed, never deferred to an aggregate.
package money

import (
	"fmt"
	"math"
)

// RoundHalfAway rounds v to the nearest integer, resolving halves away
// from zero (1.5 -> 2, -1.5 -> -2).
func RoundHalfAway(v float64) int64 {
	if v >= 0 {
		return int64(math.Floor(v + 0.5))
	}
	return int64(math.Ceil(v - 0.5))
}

// Money represents a monetary value in a specific currency.
type Money struct {
	AmountMinor int64  `json:"amount_minor"`
	Currency    string `json:"currency"` // ISO 4217 code
}

// New creates a Money value in minor units.
func New(amount int64, currency string) Money {
	return Money{AmountMinor: amount, Currency: currency}
}

// Add adds two Money amounts. Returns error on currency mismatch.
func (m Money) Add(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{AmountMinor: m.AmountMinor + other.AmountMinor, Currency: m.Currency}, nil
}

// Sub subtracts other from m. Returns error on currency mismatch.
func (m Money) Sub(other Money) (Money, error) {
	if m.Currency != other.Currency {
		return Money{}, fmt.Errorf("currency mismatch: %s vs %s", m.Currency, other.Currency)
	}
	return Money{AmountMinor: m.AmountMinor - other.AmountMinor, Currency: m.Currency}, nil
}

// MulQuantity multiplies a unit amount by a quantity.
func (m Money) MulQuantity(qty int64) Money {
	return Money{AmountMinor: m.AmountMinor * qty, Currency: m.Currency}
}

// IsNegative returns true if the amount is < 0.
func (m Money) IsNegative() bool {
	return m.AmountMinor < 0
}

// IsZero returns true if the amount is 0.
func (m Money) IsZero() bool {
	return m.AmountMinor == 0
}
