// Package money provides exact decimal arithmetic helpers for currency
// amounts. All amounts are shopspring decimals with two fractional digits;
// binary floating point never touches money.
package money

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// ErrInvalidAmount is returned when an amount is zero, negative, or malformed.
var ErrInvalidAmount = errors.New("amount must be a positive decimal")

var hundred = decimal.NewFromInt(100)

// Percent returns amount * pct / 100 rounded to two decimal places.
// Rounding is half-up for the non-negative amounts used throughout the
// system (decimal.Round rounds half away from zero).
func Percent(amount, pct decimal.Decimal) decimal.Decimal {
	return amount.Mul(pct).Div(hundred).Round(2)
}

// Parse converts a string such as "10.01" into a validated positive amount.
func Parse(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrap(ErrInvalidAmount, s)
	}
	if err := Validate(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// Validate reports ErrInvalidAmount for non-positive amounts. Decimals are
// finite by construction, so no NaN/Inf check is needed here; malformed text
// is rejected by Parse.
func Validate(d decimal.Decimal) error {
	if d.Sign() <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Format renders an amount with exactly two decimal places, e.g. "7.40".
func Format(d decimal.Decimal) string {
	return d.StringFixed(2)
}
