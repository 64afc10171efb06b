// Package documents implements the fiscal document aggregate and its lifecycle.
package documents

import (
	"time"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/core/types"
	"kitanda/internal/domain/totals"
)

// DocType is the fiscal document code printed in the number.
type DocType string

const (
	TypeInvoice         DocType = "FT"
	TypeInvoiceReceipt  DocType = "FR"
	TypeCreditNote      DocType = "NC"
	TypeDebitNote       DocType = "ND"
	TypeReceipt         DocType = "RC"
	TypeProForma        DocType = "PP"
	TypeCashSale        DocType = "VD"
	TypeDeliveryNote    DocType = "GR"
	TypeTransportGuide  DocType = "GT"
	TypePurchaseInvoice DocType = "FC"
)

var docTypeNames = map[DocType]string{
	TypeInvoice:         "Invoice",
	TypeInvoiceReceipt:  "Invoice/Receipt",
	TypeCreditNote:      "Credit Note",
	TypeDebitNote:       "Debit Note",
	TypeReceipt:         "Receipt",
	TypeProForma:        "Pro-forma",
	TypeCashSale:        "Cash Sale",
	TypeDeliveryNote:    "Delivery Note",
	TypeTransportGuide:  "Transport Guide",
	TypePurchaseInvoice: "Purchase Invoice",
}

// Valid reports whether t is a known document type.
func (t DocType) Valid() bool {
	_, ok := docTypeNames[t]
	return ok
}

// Name returns the human-readable type name.
func (t DocType) Name() string {
	return docTypeNames[t]
}

// Kind returns PURCHASE for supplier invoices and SALES otherwise.
func (t DocType) Kind() totals.Kind {
	if t == TypePurchaseInvoice {
		return totals.KindPurchase
	}
	return totals.KindSales
}

// TaxBearing reports whether the type declares output VAT in the general regime.
func (t DocType) TaxBearing() bool {
	switch t {
	case TypeInvoice, TypeInvoiceReceipt, TypeCashSale, TypeDebitNote:
		return true
	}
	return false
}

// CashBasis reports whether the type evidences cash received (simplified regime).
func (t DocType) CashBasis() bool {
	switch t {
	case TypeReceipt, TypeCashSale, TypeInvoiceReceipt:
		return true
	}
	return false
}

// SettledOnIssue reports whether the document is paid the moment it is issued.
func (t DocType) SettledOnIssue() bool {
	return t.CashBasis()
}

// Status is the document lifecycle state.
type Status string

const (
	StatusDraft     Status = "DRAFT"
	StatusPending   Status = "PENDING"
	StatusPaid      Status = "PAID"
	StatusOverdue   Status = "OVERDUE"
	StatusCancelled Status = "CANCELLED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPending, StatusPaid, StatusOverdue, StatusCancelled:
		return true
	}
	return false
}

// DraftNumberPrefix marks the placeholder number of an unissued document.
const DraftNumberPrefix = "RASCUNHO-"

// LineItem is one row of a document.
type LineItem struct {
	ID              id.ID           `json:"id"`
	Description     string          `json:"description"`
	Quantity        types.Money     `json:"quantity"`
	UnitPrice       types.Money     `json:"unitPrice"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
	TaxRatePercent  decimal.Decimal `json:"taxRate"`
	Kind            totals.ItemKind `json:"kind"`

	// Total is derived; Recalculate keeps it in sync
	Total types.Money `json:"total"`
}

// NewLineItem returns a row with the form defaults: one unit, no discount, 14% VAT, product.
func NewLineItem(description string, unitPrice types.Money) LineItem {
	return LineItem{
		ID:              id.New(),
		Description:     description,
		Quantity:        decimal.NewFromInt(1),
		UnitPrice:       unitPrice,
		DiscountPercent: decimal.Zero,
		TaxRatePercent:  decimal.NewFromInt(14),
		Kind:            totals.ItemProduct,
	}
}

// Line returns the arithmetic view of the item.
func (li LineItem) Line() totals.Line {
	return totals.Line{
		Quantity:        li.Quantity,
		UnitPrice:       li.UnitPrice,
		DiscountPercent: li.DiscountPercent,
		TaxRatePercent:  li.TaxRatePercent,
		Kind:            li.Kind,
	}
}

// Recalculate recomputes Total. On error the item is left unchanged.
func (li *LineItem) Recalculate() error {
	total, err := li.Line().Total()
	if err != nil {
		return err
	}
	li.Total = total
	return nil
}

// Document is a sales or purchase fiscal document.
type Document struct {
	ID       id.ID   `json:"id"`
	Type     DocType `json:"type"`
	SeriesID id.ID   `json:"seriesId"`

	// Number is the formatted fiscal number, or a RASCUNHO- placeholder while drafting.
	// Purchases carry the supplier's number.
	Number   string `json:"number"`
	Sequence int64  `json:"sequence"`

	Date    time.Time  `json:"date"`
	DueDate *time.Time `json:"dueDate,omitempty"`

	CounterpartyName string `json:"counterpartyName"`
	CounterpartyNIF  string `json:"counterpartyNif"`

	Currency              string               `json:"currency"`
	ExchangeRate          decimal.Decimal      `json:"exchangeRate"`
	GlobalDiscountPercent decimal.Decimal      `json:"globalDiscountPercent"`
	RetentionMode         totals.RetentionMode `json:"retentionMode"`
	Items                 []LineItem           `json:"items"`

	Totals totals.Totals `json:"totals"`

	Status      Status     `json:"status"`
	IsCertified bool       `json:"isCertified"`
	CertifiedAt *time.Time `json:"certifiedAt,omitempty"`
	Hash        string     `json:"hash,omitempty"`

	// IssueDate is Date as it stood at certification. The hash covers it,
	// so Date stays editable without breaking the chain.
	IssueDate *time.Time `json:"issueDate,omitempty"`

	CancelReason string     `json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`

	// SourceID links a credit note or receipt to the document it derives from
	SourceID *id.ID `json:"sourceId,omitempty"`

	// Fields that stay editable after certification
	WorkLocation  string `json:"workLocation"`
	PaymentMethod string `json:"paymentMethod"`
	CashRegister  string `json:"cashRegister"`

	CreatedBy string    `json:"createdBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	// Version is the optimistic lock counter
	Version int `json:"version"`
}

// Kind returns the totals variant of the document.
func (d *Document) Kind() totals.Kind {
	return d.Type.Kind()
}

// IsDraft reports whether the document is still being edited.
func (d *Document) IsDraft() bool {
	return d.Status == StatusDraft && !d.IsCertified
}

// IsCancelled reports whether the document was cancelled.
func (d *Document) IsCancelled() bool {
	return d.Status == StatusCancelled
}

// TotalsInput snapshots the document for the totals engine.
func (d *Document) TotalsInput() totals.Input {
	lines := make([]totals.Line, len(d.Items))
	for i, item := range d.Items {
		lines[i] = item.Line()
	}
	return totals.Input{
		Kind:                  d.Kind(),
		Currency:              d.Currency,
		ExchangeRate:          d.ExchangeRate,
		GlobalDiscountPercent: d.GlobalDiscountPercent,
		Retention:             d.RetentionMode,
		Lines:                 lines,
	}
}

// Validate checks the header before issue or registration.
func (d *Document) Validate() error {
	if !d.Type.Valid() {
		return apperror.NewValidation("unknown document type").
			WithDetail("field", "type").
			WithDetail("value", string(d.Type))
	}
	if d.Date.IsZero() {
		return apperror.NewValidation("document date is required").WithDetail("field", "date")
	}
	if d.DueDate != nil && d.DueDate.Before(truncateDay(d.Date)) {
		return apperror.NewValidation("due date is before the document date").WithDetail("field", "dueDate")
	}
	if len(d.Items) == 0 {
		return apperror.NewValidation("document has no items").WithDetail("field", "items")
	}
	for i := range d.Items {
		if err := d.Items[i].Recalculate(); err != nil {
			if appErr, ok := apperror.AsAppError(err); ok {
				appErr.WithDetail("lineNo", i+1)
			}
			return err
		}
	}
	return nil
}

// Clone returns a deep copy.
func (d *Document) Clone() *Document {
	c := *d
	c.Items = append([]LineItem(nil), d.Items...)
	if d.DueDate != nil {
		v := *d.DueDate
		c.DueDate = &v
	}
	if d.CertifiedAt != nil {
		v := *d.CertifiedAt
		c.CertifiedAt = &v
	}
	if d.IssueDate != nil {
		v := *d.IssueDate
		c.IssueDate = &v
	}
	if d.CancelledAt != nil {
		v := *d.CancelledAt
		c.CancelledAt = &v
	}
	if d.SourceID != nil {
		v := *d.SourceID
		c.SourceID = &v
	}
	return &c
}
