package totals

import (
	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/types"
)

// ItemKind separates goods from services; only services are subject to withholding.
type ItemKind string

const (
	ItemProduct ItemKind = "PRODUCT"
	ItemService ItemKind = "SERVICE"
)

// Valid reports whether k is a known kind.
func (k ItemKind) Valid() bool {
	return k == ItemProduct || k == ItemService
}

var (
	zero    = decimal.Zero
	hundred = decimal.NewFromInt(100)
)

// Line is the arithmetic view of a line item.
type Line struct {
	Quantity        types.Money
	UnitPrice       types.Money
	DiscountPercent decimal.Decimal
	TaxRatePercent  decimal.Decimal
	Kind            ItemKind
}

// ComputeLineTotal returns quantity * unitPrice * (1 - discountPercent/100).
//
// No rounding is applied. Negative quantity or price and a discount outside
// [0,100] are rejected with INVALID_LINE_ITEM.
func ComputeLineTotal(quantity, unitPrice types.Money, discountPercent decimal.Decimal) (types.Money, error) {
	if quantity.IsNegative() {
		return zero, apperror.NewInvalidLineItem("quantity", quantity.String())
	}
	if unitPrice.IsNegative() {
		return zero, apperror.NewInvalidLineItem("unitPrice", unitPrice.String())
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return zero, apperror.NewInvalidLineItem("discountPercent", discountPercent.String())
	}

	return quantity.Mul(unitPrice).Mul(hundred.Sub(discountPercent)).Div(hundred), nil
}

// Total is ComputeLineTotal for l.
func (l Line) Total() (types.Money, error) {
	return ComputeLineTotal(l.Quantity, l.UnitPrice, l.DiscountPercent)
}
