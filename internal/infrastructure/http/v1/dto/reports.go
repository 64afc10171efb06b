package dto

import (
	"time"

	"kitanda/internal/domain/reports/model7"
)

// Model7Query selects the declaration month and regime.
type Model7Query struct {
	Year   int    `form:"year" binding:"required"`
	Month  int    `form:"month" binding:"required"`
	Regime string `form:"regime"`
}

// Model7Response is the presentation view of a Modelo 7 report.
type Model7Response struct {
	Period      string              `json:"period"`
	Regime      string              `json:"regime"`
	General     *GeneralResponse    `json:"general,omitempty"`
	Simplified  *SimplifiedResponse `json:"simplified,omitempty"`
	Documents   int                 `json:"documents"`
	GeneratedAt time.Time           `json:"generatedAt"`
}

// GeneralResponse mirrors model7.GeneralSummary.
type GeneralResponse struct {
	Buckets                 []RateBucketResponse `json:"buckets"`
	DeductibleTaxGross      string               `json:"deductibleTaxGross"`
	RetainedTax             string               `json:"retainedTax"`
	DeductibleTax           string               `json:"deductibleTax"`
	Regularizations         string               `json:"regularizationsInFavorOfTaxpayer"`
	TotalFavorState         string               `json:"totalFavorState"`
	TotalFavorTaxpayer      string               `json:"totalFavorTaxpayer"`
	AmountPayable           string               `json:"amountPayable"`
	AmountRecoverable       string               `json:"amountRecoverable"`
	SalesDocuments          int                  `json:"salesDocuments"`
	PurchaseDocuments       int                  `json:"purchaseDocuments"`
	RegularizationDocuments int                  `json:"regularizationDocuments"`
}

// SimplifiedResponse mirrors model7.SimplifiedSummary.
type SimplifiedResponse struct {
	Rate               string `json:"rate"`
	CashBasisDocuments int    `json:"cashBasisDocuments"`
	Turnover           string `json:"turnover"`
	TaxDue             string `json:"taxDue"`
	ExemptBase         string `json:"exemptBase"`
	ExemptTax          string `json:"exemptTax"`
	TotalPayable       string `json:"totalPayable"`
}

// FromModel7 converts a report to DTO.
func FromModel7(r *model7.Report) Model7Response {
	out := Model7Response{
		Period:      r.Period.String(),
		Regime:      string(r.Regime),
		Documents:   r.Documents,
		GeneratedAt: r.GeneratedAt,
	}
	if g := r.General; g != nil {
		resp := &GeneralResponse{
			Buckets:                 make([]RateBucketResponse, len(g.Buckets)),
			DeductibleTaxGross:      money(g.DeductibleTaxGross),
			RetainedTax:             money(g.RetainedTax),
			DeductibleTax:           money(g.DeductibleTax),
			Regularizations:         money(g.Regularizations),
			TotalFavorState:         money(g.TotalFavorState),
			TotalFavorTaxpayer:      money(g.TotalFavorTaxpayer),
			AmountPayable:           money(g.AmountPayable),
			AmountRecoverable:       money(g.AmountRecoverable),
			SalesDocuments:          g.SalesDocuments,
			PurchaseDocuments:       g.PurchaseDocuments,
			RegularizationDocuments: g.RegularizationDocuments,
		}
		for i, b := range g.Buckets {
			resp.Buckets[i] = RateBucketResponse{Rate: plain(b.Rate), Base: money(b.Base), Tax: money(b.Tax)}
		}
		out.General = resp
	}
	if s := r.Simplified; s != nil {
		out.Simplified = &SimplifiedResponse{
			Rate:               plain(s.Rate),
			CashBasisDocuments: s.CashBasisDocuments,
			Turnover:           money(s.Turnover),
			TaxDue:             money(s.TaxDue),
			ExemptBase:         money(s.ExemptBase),
			ExemptTax:          money(s.ExemptTax),
			TotalPayable:       money(s.TotalPayable),
		}
	}
	return out
}
