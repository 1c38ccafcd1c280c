package domain

import (
	"github.com/shopspring/decimal"

	"github.com/kshinn/x402toolkit/internal/x402err"
)

// amountExponent is the fixed fractional precision amounts are rounded
// to, matching the USDC atomic-unit convention (6 decimal places).
const amountExponent = 6

// Amount is a non-negative, fixed-precision decimal quantity paired with
// a currency. Binary floating point is never used for amount arithmetic
// — decimal.Decimal backs every value.
type Amount struct {
	value    decimal.Decimal
	currency Currency
}

// NewAmount parses raw as a decimal string and validates it is
// non-negative, rounding to amountExponent places.
func NewAmount(raw string, currency Currency) (Amount, error) {
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return Amount{}, &x402err.InvalidDomainValue{
			Field: "amount",
			Value: raw,
			Cause: "not a valid decimal",
		}
	}
	if d.IsNegative() {
		return Amount{}, &x402err.InvalidDomainValue{
			Field: "amount",
			Value: raw,
			Cause: "must be non-negative",
		}
	}
	return Amount{value: d.Round(amountExponent), currency: currency}, nil
}

// MustAmount is NewAmount for callers with a known-good literal, such as
// configured defaults. It panics on invalid input.
func MustAmount(raw string, currency Currency) Amount {
	a, err := NewAmount(raw, currency)
	if err != nil {
		panic(err)
	}
	return a
}

// Currency returns the amount's paired currency.
func (a Amount) Currency() Currency { return a.currency }

// String renders the amount in plain decimal form, e.g. "100" or
// "0.0001" (trailing zeros are dropped) — the wire form used by the challenge grammar.
func (a Amount) String() string { return a.value.String() }

// Cmp compares two amounts of the same currency. Comparing amounts of
// differing currencies panics — callers must check Currency first.
func (a Amount) Cmp(other Amount) int {
	if !a.currency.Equal(other.currency) {
		panic("domain: comparing amounts of different currencies")
	}
	return a.value.Cmp(other.value)
}

// Add returns a + other. Both must share a currency.
func (a Amount) Add(other Amount) Amount {
	if !a.currency.Equal(other.currency) {
		panic("domain: adding amounts of different currencies")
	}
	return Amount{value: a.value.Add(other.value).Round(amountExponent), currency: a.currency}
}

// IsZero reports whether the amount is exactly zero.
func (a Amount) IsZero() bool { return a.value.IsZero() }
