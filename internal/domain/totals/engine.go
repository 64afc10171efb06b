package totals

import (
	"sort"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/types"
)

// Kind selects the sales or purchase variant of the computation.
type Kind string

const (
	KindSales    Kind = "SALES"
	KindPurchase Kind = "PURCHASE"
)

// RetentionMode is the VAT captivation applied to the document.
type RetentionMode string

const (
	RetentionNone RetentionMode = "NONE"
	Retention50   RetentionMode = "CAT_50"
	Retention100  RetentionMode = "CAT_100"
)

// Factor returns the share of VAT captivated by the mode.
func (m RetentionMode) Factor() (decimal.Decimal, bool) {
	switch m {
	case RetentionNone, "":
		return zero, true
	case Retention50:
		return decimal.RequireFromString("0.5"), true
	case Retention100:
		return decimal.NewFromInt(1), true
	default:
		return zero, false
	}
}

// Input is an immutable snapshot of everything the totals depend on.
type Input struct {
	Kind                  Kind
	Currency              string
	ExchangeRate          decimal.Decimal
	GlobalDiscountPercent decimal.Decimal
	Retention             RetentionMode
	Lines                 []Line
}

// Totals is the result of Engine.Compute. Values are unrounded.
type Totals struct {
	Subtotal             types.Money `json:"subtotal"`
	TaxAmount            types.Money `json:"taxAmount"`
	GlobalDiscountAmount types.Money `json:"globalDiscountAmount"`
	WithholdingAmount    types.Money `json:"withholdingAmount"`
	RetentionAmount      types.Money `json:"retentionAmount"`
	Total                types.Money `json:"total"`
	ContraValue          types.Money `json:"contraValue"`

	// ServiceTotal is the sum of SERVICE line totals in document currency
	ServiceTotal types.Money `json:"serviceTotal"`

	// Negative flags a total below zero. Valid (refunds), but callers should warn.
	Negative bool `json:"negative"`
}

// RateBucket aggregates lines sharing one VAT rate.
type RateBucket struct {
	Rate decimal.Decimal `json:"rate"`
	Base types.Money     `json:"base"`
	Tax  types.Money     `json:"tax"`
}

// Engine computes document totals under a set of Rules.
// It is stateless and safe for concurrent use.
type Engine struct {
	rules Rules
}

// NewEngine creates an engine for the given rules.
func NewEngine(rules Rules) *Engine {
	return &Engine{rules: rules}
}

// Rules returns the rules the engine applies.
func (e *Engine) Rules() Rules {
	return e.rules
}

// Compute applies, in order:
//  1. subtotal = Σ line totals
//  2. tax = Σ line total * rate/100 (global discount does not reduce the tax base)
//  3. global discount = subtotal * pct/100
//  4. withholding (sales only) = service total * rate, when service total in AOA >= threshold
//  5. retention = tax * {0, 0.5, 1}
//  6. total = subtotal + tax - discount - withholding - retention (never clamped)
//  7. contra value = total in AOA
func (e *Engine) Compute(in Input) (Totals, error) {
	if err := e.checkInput(in); err != nil {
		return Totals{}, err
	}

	subtotal := zero
	tax := zero
	services := zero
	for i, line := range in.Lines {
		if err := e.rules.CheckRate(line.TaxRatePercent); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("lineNo", i+1)
			}
			return Totals{}, err
		}
		lineTotal, err := line.Total()
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("lineNo", i+1)
			}
			return Totals{}, err
		}
		subtotal = subtotal.Add(lineTotal)
		tax = tax.Add(types.Percent(lineTotal, line.TaxRatePercent))
		if line.Kind == ItemService {
			services = services.Add(lineTotal)
		}
	}

	globalDiscount := types.Percent(subtotal, in.GlobalDiscountPercent)

	withholding := zero
	if in.Kind == KindSales {
		servicesAOA := services.Mul(in.ExchangeRate)
		if servicesAOA.GreaterThanOrEqual(e.rules.WithholdingThreshold) {
			withholding = services.Mul(e.rules.WithholdingRate)
		}
	}

	factor, _ := in.Retention.Factor()
	retention := tax.Mul(factor)

	total := subtotal.Add(tax).Sub(globalDiscount).Sub(withholding).Sub(retention)

	contra := total
	if in.Currency != BaseCurrency {
		contra = total.Mul(in.ExchangeRate)
	}

	return Totals{
		Subtotal:             subtotal,
		TaxAmount:            tax,
		GlobalDiscountAmount: globalDiscount,
		WithholdingAmount:    withholding,
		RetentionAmount:      retention,
		Total:                total,
		ContraValue:          contra,
		ServiceTotal:         services,
		Negative:             total.IsNegative(),
	}, nil
}

func (e *Engine) checkInput(in Input) error {
	if in.Kind != KindSales && in.Kind != KindPurchase {
		return apperror.NewValidation("document kind must be SALES or PURCHASE").
			WithDetail("field", "kind").
			WithDetail("value", string(in.Kind))
	}
	if !in.ExchangeRate.IsPositive() {
		return apperror.NewInvalidCurrency(in.Currency, "exchange rate must be positive").
			WithDetail("exchangeRate", in.ExchangeRate.String())
	}
	if in.GlobalDiscountPercent.IsNegative() || in.GlobalDiscountPercent.GreaterThan(hundred) {
		return apperror.NewValidation("global discount must be between 0 and 100").
			WithDetail("field", "globalDiscountPercent").
			WithDetail("value", in.GlobalDiscountPercent.String())
	}
	if _, ok := in.Retention.Factor(); !ok {
		return apperror.NewValidation("unknown retention mode").
			WithDetail("field", "retentionMode").
			WithDetail("value", string(in.Retention))
	}
	for i, line := range in.Lines {
		if !line.Kind.Valid() {
			return apperror.NewInvalidLineItem("kind", string(line.Kind)).WithDetail("lineNo", i+1)
		}
	}
	return nil
}

// TaxBreakdown groups lines by VAT rate, highest rate first.
func (e *Engine) TaxBreakdown(lines []Line) ([]RateBucket, error) {
	byRate := make(map[string]*RateBucket)
	for i, line := range lines {
		if err := e.rules.CheckRate(line.TaxRatePercent); err != nil {
			return nil, err
		}
		lineTotal, err := line.Total()
		if err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("lineNo", i+1)
			}
			return nil, err
		}
		key := line.TaxRatePercent.String()
		b, ok := byRate[key]
		if !ok {
			b = &RateBucket{Rate: line.TaxRatePercent, Base: zero, Tax: zero}
			byRate[key] = b
		}
		b.Base = b.Base.Add(lineTotal)
		b.Tax = b.Tax.Add(types.Percent(lineTotal, line.TaxRatePercent))
	}

	out := make([]RateBucket, 0, len(byRate))
	for _, b := range byRate {
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rate.GreaterThan(out[j].Rate) })
	return out, nil
}
