package model7

import (
	"sort"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/types"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/totals"
)

// Compute builds the declaration for period from docs. Documents dated
// outside the period, and unissued sales documents, are ignored.
func Compute(docs []*documents.Document, period Period, regime Regime, rules totals.Rules) (*Report, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	if _, err := ParseRegime(string(regime)); err != nil {
		return nil, err
	}

	inPeriod := make([]*documents.Document, 0, len(docs))
	for _, d := range docs {
		if !period.Contains(d.Date) {
			continue
		}
		if d.Kind() == totals.KindSales && !d.IsCertified {
			continue
		}
		inPeriod = append(inPeriod, d)
	}

	report := &Report{Period: period, Regime: regime, Documents: len(inPeriod)}
	if regime == RegimeSimplified {
		report.Simplified = computeSimplified(inPeriod, rules)
	} else {
		report.Regime = RegimeGeneral
		report.General = computeGeneral(inPeriod, rules)
	}
	return report, nil
}

// toBase converts a document amount into AOA.
func toBase(d *documents.Document, amount types.Money) types.Money {
	if d.Currency == "" || d.Currency == totals.BaseCurrency || !d.ExchangeRate.IsPositive() {
		return amount
	}
	return amount.Mul(d.ExchangeRate)
}

func computeGeneral(docs []*documents.Document, rules totals.Rules) *GeneralSummary {
	buckets := make(map[string]*RateBucket, len(rules.TaxTiers))
	for _, tier := range rules.TaxTiers {
		buckets[tier.String()] = &RateBucket{Rate: tier, Base: decimal.Zero, Tax: decimal.Zero}
	}

	s := &GeneralSummary{
		DeductibleTaxGross: decimal.Zero,
		RetainedTax:        decimal.Zero,
		Regularizations:    decimal.Zero,
	}

	for _, d := range docs {
		if d.Kind() == totals.KindPurchase {
			// only settled purchases are deductible
			if d.Status == documents.StatusPending {
				continue
			}
			s.PurchaseDocuments++
			s.DeductibleTaxGross = s.DeductibleTaxGross.Add(toBase(d, d.Totals.TaxAmount))
			s.RetainedTax = s.RetainedTax.Add(toBase(d, d.Totals.RetentionAmount))
			continue
		}

		if d.Type == documents.TypeCreditNote || (d.IsCancelled() && d.Type.TaxBearing()) {
			s.RegularizationDocuments++
			s.Regularizations = s.Regularizations.Add(toBase(d, d.Totals.TaxAmount))
		}

		if d.IsCancelled() || !d.Type.TaxBearing() {
			continue
		}
		s.SalesDocuments++
		for _, item := range d.Items {
			key := item.TaxRatePercent.String()
			b, ok := buckets[key]
			if !ok {
				b = &RateBucket{Rate: item.TaxRatePercent, Base: decimal.Zero, Tax: decimal.Zero}
				buckets[key] = b
			}
			lineTotal := toBase(d, item.Total)
			b.Base = b.Base.Add(lineTotal)
			b.Tax = b.Tax.Add(types.Percent(lineTotal, item.TaxRatePercent))
		}
	}

	s.Buckets = make([]RateBucket, 0, len(buckets))
	s.TotalFavorState = decimal.Zero
	for _, b := range buckets {
		s.Buckets = append(s.Buckets, *b)
		if b.Rate.IsPositive() {
			s.TotalFavorState = s.TotalFavorState.Add(b.Tax)
		}
	}
	sort.Slice(s.Buckets, func(i, j int) bool { return s.Buckets[i].Rate.GreaterThan(s.Buckets[j].Rate) })

	s.DeductibleTax = s.DeductibleTaxGross.Sub(s.RetainedTax)
	s.TotalFavorTaxpayer = s.DeductibleTax.Add(s.Regularizations)
	s.AmountPayable = decimal.Max(decimal.Zero, s.TotalFavorState.Sub(s.TotalFavorTaxpayer))
	s.AmountRecoverable = decimal.Max(decimal.Zero, s.TotalFavorTaxpayer.Sub(s.TotalFavorState))
	return s
}

func computeSimplified(docs []*documents.Document, rules totals.Rules) *SimplifiedSummary {
	s := &SimplifiedSummary{
		Rate:       rules.SimplifiedRate,
		Turnover:   decimal.Zero,
		ExemptBase: decimal.Zero,
	}
	for _, d := range docs {
		if d.Kind() != totals.KindSales || !d.Type.CashBasis() || d.IsCancelled() {
			continue
		}
		s.CashBasisDocuments++
		s.Turnover = s.Turnover.Add(toBase(d, d.Totals.Total))
		for _, item := range d.Items {
			if item.TaxRatePercent.IsZero() {
				s.ExemptBase = s.ExemptBase.Add(toBase(d, item.Total))
			}
		}
	}
	s.TaxDue = s.Turnover.Mul(rules.SimplifiedRate)
	s.ExemptTax = s.ExemptBase.Mul(rules.SimplifiedRate)
	s.TotalPayable = s.TaxDue.Add(s.ExemptTax)
	return s
}
