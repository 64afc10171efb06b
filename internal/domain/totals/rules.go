// Package totals turns line items and document settings into fiscal totals.
//
// Everything here is pure: no I/O, no shared state. Values are kept at full
// precision; rounding is a presentation concern.
package totals

import (
	"slices"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
)

// BaseCurrency is the accounting currency (Angolan kwanza).
const BaseCurrency = "AOA"

// Rules holds the regulatory parameters. All of them come from configuration
// so a change in the law does not require a release.
type Rules struct {
	// TaxTiers are the legal VAT rates, in percent
	TaxTiers []decimal.Decimal

	// WithholdingThreshold is the AOA service total from which withholding applies (inclusive)
	WithholdingThreshold decimal.Decimal

	// WithholdingRate is the withholding-at-source fraction (0.065 = 6.5%)
	WithholdingRate decimal.Decimal

	// SimplifiedRate is the flat simplified-regime fraction (0.07 = 7%)
	SimplifiedRate decimal.Decimal
}

// DefaultRules returns the rates in force: tiers 0/5/7/14, withholding 6.5% from 20000 AOA, simplified 7%.
func DefaultRules() Rules {
	return Rules{
		TaxTiers: []decimal.Decimal{
			decimal.NewFromInt(0),
			decimal.NewFromInt(5),
			decimal.NewFromInt(7),
			decimal.NewFromInt(14),
		},
		WithholdingThreshold: decimal.NewFromInt(20000),
		WithholdingRate:      decimal.RequireFromString("0.065"),
		SimplifiedRate:       decimal.RequireFromString("0.07"),
	}
}

// IsAllowedRate reports whether rate is one of the configured tiers.
func (r Rules) IsAllowedRate(rate decimal.Decimal) bool {
	return slices.ContainsFunc(r.TaxTiers, func(t decimal.Decimal) bool {
		return t.Equal(rate)
	})
}

// CheckRate returns InvalidTaxRateError when rate is not a configured tier.
func (r Rules) CheckRate(rate decimal.Decimal) error {
	if r.IsAllowedRate(rate) {
		return nil
	}
	allowed := make([]string, len(r.TaxTiers))
	for i, t := range r.TaxTiers {
		allowed[i] = t.String()
	}
	return apperror.NewInvalidTaxRate(rate.String(), allowed)
}

// Validate checks the configuration itself.
func (r Rules) Validate() error {
	if len(r.TaxTiers) == 0 {
		return apperror.NewValidation("at least one tax tier is required").WithDetail("field", "taxTiers")
	}
	for _, t := range r.TaxTiers {
		if t.IsNegative() || t.GreaterThan(decimal.NewFromInt(100)) {
			return apperror.NewValidation("tax tier must be between 0 and 100").
				WithDetail("field", "taxTiers").
				WithDetail("value", t.String())
		}
	}
	if r.WithholdingThreshold.IsNegative() {
		return apperror.NewValidation("withholding threshold must not be negative").WithDetail("field", "withholdingThreshold")
	}
	if r.WithholdingRate.IsNegative() || r.WithholdingRate.GreaterThan(decimal.NewFromInt(1)) {
		return apperror.NewValidation("withholding rate must be a fraction between 0 and 1").WithDetail("field", "withholdingRate")
	}
	if r.SimplifiedRate.IsNegative() || r.SimplifiedRate.GreaterThan(decimal.NewFromInt(1)) {
		return apperror.NewValidation("simplified rate must be a fraction between 0 and 1").WithDetail("field", "simplifiedRate")
	}
	return nil
}
