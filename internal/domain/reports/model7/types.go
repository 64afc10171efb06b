// Package model7 computes the periodic VAT declaration (Modelo 7) for the
// general and simplified regimes.
package model7

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/types"
	"kitanda/internal/domain/documents"
)

// Regime is the VAT regime the declaration is computed for.
type Regime string

const (
	RegimeGeneral    Regime = "GENERAL"
	RegimeSimplified Regime = "SIMPLIFIED"
)

// ParseRegime accepts the regime name in any case.
func ParseRegime(s string) (Regime, error) {
	switch r := Regime(strings.ToUpper(strings.TrimSpace(s))); r {
	case RegimeGeneral, RegimeSimplified:
		return r, nil
	case "":
		return RegimeGeneral, nil
	}
	return "", apperror.NewValidation("regime must be GENERAL or SIMPLIFIED").
		WithDetail("field", "regime").
		WithDetail("value", s)
}

// Period is one declaration month.
type Period struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

// Validate checks the period.
func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return apperror.NewValidation("month must be between 1 and 12").
			WithDetail("field", "month").
			WithDetail("value", p.Month)
	}
	if p.Year < 2000 || p.Year > 9999 {
		return apperror.NewValidation("year is out of range").
			WithDetail("field", "year").
			WithDetail("value", p.Year)
	}
	return nil
}

// Bounds returns [from, to) as Angolan midnights.
func (p Period) Bounds() (time.Time, time.Time) {
	from := documents.MonthStart(p.Year, time.Month(p.Month))
	return from, from.AddDate(0, 1, 0)
}

// Contains reports whether t falls in the period on the Angolan calendar.
func (p Period) Contains(t time.Time) bool {
	from, to := p.Bounds()
	return !t.Before(from) && t.Before(to)
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}

// RateBucket aggregates sales lines sharing one VAT rate.
type RateBucket struct {
	Rate decimal.Decimal `json:"rate"`
	Base types.Money     `json:"base"`
	Tax  types.Money     `json:"tax"`
}

// GeneralSummary is the general-regime declaration.
type GeneralSummary struct {
	// Buckets holds every configured tier, highest rate first
	Buckets []RateBucket `json:"buckets"`

	// DeductibleTaxGross is the input VAT of valid purchases before captivation
	DeductibleTaxGross types.Money `json:"deductibleTaxGross"`
	RetainedTax        types.Money `json:"retainedTax"`
	DeductibleTax      types.Money `json:"deductibleTax"`

	Regularizations types.Money `json:"regularizationsInFavorOfTaxpayer"`

	TotalFavorState    types.Money `json:"totalFavorState"`
	TotalFavorTaxpayer types.Money `json:"totalFavorTaxpayer"`
	AmountPayable      types.Money `json:"amountPayable"`
	AmountRecoverable  types.Money `json:"amountRecoverable"`

	SalesDocuments          int `json:"salesDocuments"`
	PurchaseDocuments       int `json:"purchaseDocuments"`
	RegularizationDocuments int `json:"regularizationDocuments"`
}

// SimplifiedSummary is the simplified-regime declaration.
type SimplifiedSummary struct {
	Rate decimal.Decimal `json:"rate"`

	CashBasisDocuments int `json:"cashBasisDocuments"`

	Turnover   types.Money `json:"turnover"`
	TaxDue     types.Money `json:"taxDue"`
	ExemptBase types.Money `json:"exemptBase"`
	// ExemptTax applies the flat rate to 0% lines as well
	ExemptTax    types.Money `json:"exemptTax"`
	TotalPayable types.Money `json:"totalPayable"`
}

// Report is a derived, never persisted, declaration. Amounts are in AOA.
type Report struct {
	Period      Period             `json:"period"`
	Regime      Regime             `json:"regime"`
	General     *GeneralSummary    `json:"general,omitempty"`
	Simplified  *SimplifiedSummary `json:"simplified,omitempty"`
	Documents   int                `json:"documents"`
	GeneratedAt time.Time          `json:"generatedAt"`
}
