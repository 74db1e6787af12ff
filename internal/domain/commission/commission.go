// Package commission computes the three-way revenue split applied to every
// confirmed order: merchant, platform, and hotel each receive a fixed
// percentage of the order total.
package commission

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/herevemarket/orders-api/internal/domain/money"
)

// ErrInvalidAmount is returned when a split is requested for a non-positive
// order total. Totals are never clamped.
var ErrInvalidAmount = money.ErrInvalidAmount

// Policy holds the percentage of an order total allocated to each party.
// The three percentages must sum to 100.
type Policy struct {
	MerchantPct decimal.Decimal
	PlatformPct decimal.Decimal
	HotelPct    decimal.Decimal
}

// DefaultPolicy is the platform-wide split: merchant 75%, platform 20%,
// hotel 5%.
func DefaultPolicy() Policy {
	return Policy{
		MerchantPct: decimal.NewFromInt(75),
		PlatformPct: decimal.NewFromInt(20),
		HotelPct:    decimal.NewFromInt(5),
	}
}

// Validate checks that the policy percentages are non-negative and sum to 100.
func (p Policy) Validate() error {
	for _, pct := range []decimal.Decimal{p.MerchantPct, p.PlatformPct, p.HotelPct} {
		if pct.IsNegative() {
			return errors.New("commission percentages must not be negative")
		}
	}
	sum := p.MerchantPct.Add(p.PlatformPct).Add(p.HotelPct)
	if !sum.Equal(decimal.NewFromInt(100)) {
		return errors.Errorf("commission percentages must sum to 100, got %s", sum)
	}
	return nil
}

// Split is the computed three-way division of an order total.
// Merchant + Platform + Hotel always reconstruct the total exactly.
type Split struct {
	Merchant decimal.Decimal
	Platform decimal.Decimal
	Hotel    decimal.Decimal
}

// Total returns the sum of the three shares.
func (s Split) Total() decimal.Decimal {
	return s.Merchant.Add(s.Platform).Add(s.Hotel)
}

// Calculator derives commission splits from a fixed policy.
type Calculator struct {
	policy Policy
}

// NewCalculator creates a Calculator for the given policy. The policy must
// already be validated.
func NewCalculator(policy Policy) *Calculator {
	return &Calculator{policy: policy}
}

// Calculate splits total into merchant, platform, and hotel shares.
//
// Merchant and platform shares are rounded independently (half-up, 2dp);
// the hotel share is the remainder total - merchant - platform, so
// independent-rounding drift is absorbed by the smallest share and the
// invariant merchant + platform + hotel == total holds for every input.
func (c *Calculator) Calculate(total decimal.Decimal) (Split, error) {
	if err := money.Validate(total); err != nil {
		return Split{}, errors.Wrap(ErrInvalidAmount, total.String())
	}

	merchant := money.Percent(total, c.policy.MerchantPct)
	platform := money.Percent(total, c.policy.PlatformPct)
	hotel := total.Sub(merchant).Sub(platform)

	return Split{
		Merchant: merchant,
		Platform: platform,
		Hotel:    hotel,
	}, nil
}
