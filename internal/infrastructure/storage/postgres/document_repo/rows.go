package document_repo

import (
	"time"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/id"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/totals"
)

// documentRow is the documents table. Totals are stored so reports and
// listings never recompute them.
type documentRow struct {
	ID       id.ID  `db:"id"`
	DocType  string `db:"doc_type"`
	SeriesID *id.ID `db:"series_id"`
	Number   string `db:"number"`
	Sequence int64  `db:"sequence"`

	DocDate time.Time  `db:"doc_date"`
	DueDate *time.Time `db:"due_date"`

	CounterpartyName string `db:"counterparty_name"`
	CounterpartyNIF  string `db:"counterparty_nif"`

	Currency              string          `db:"currency"`
	ExchangeRate          decimal.Decimal `db:"exchange_rate"`
	GlobalDiscountPercent decimal.Decimal `db:"global_discount_percent"`
	RetentionMode         string          `db:"retention_mode"`

	Subtotal             decimal.Decimal `db:"subtotal"`
	TaxAmount            decimal.Decimal `db:"tax_amount"`
	GlobalDiscountAmount decimal.Decimal `db:"global_discount_amount"`
	WithholdingAmount    decimal.Decimal `db:"withholding_amount"`
	RetentionAmount      decimal.Decimal `db:"retention_amount"`
	Total                decimal.Decimal `db:"total"`
	ContraValue          decimal.Decimal `db:"contra_value"`
	ServiceTotal         decimal.Decimal `db:"service_total"`

	Status       string     `db:"status"`
	IsCertified  bool       `db:"is_certified"`
	CertifiedAt  *time.Time `db:"certified_at"`
	Hash         string     `db:"hash"`
	IssueDate    *time.Time `db:"issue_date"`
	CancelReason string     `db:"cancel_reason"`
	CancelledAt  *time.Time `db:"cancelled_at"`
	SourceID     *id.ID     `db:"source_id"`

	WorkLocation  string `db:"work_location"`
	PaymentMethod string `db:"payment_method"`
	CashRegister  string `db:"cash_register"`

	CreatedBy string    `db:"created_by"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
	Version   int       `db:"version"`
}

type itemRow struct {
	ID              id.ID           `db:"id"`
	DocumentID      id.ID           `db:"document_id"`
	LineNo          int             `db:"line_no"`
	Description     string          `db:"description"`
	Quantity        decimal.Decimal `db:"quantity"`
	UnitPrice       decimal.Decimal `db:"unit_price"`
	DiscountPercent decimal.Decimal `db:"discount_percent"`
	TaxRatePercent  decimal.Decimal `db:"tax_rate_percent"`
	Kind            string          `db:"kind"`
	Total           decimal.Decimal `db:"total"`
}

func toRow(d *documents.Document) documentRow {
	return documentRow{
		ID:                    d.ID,
		DocType:               string(d.Type),
		SeriesID:              nullableID(d.SeriesID),
		Number:                d.Number,
		Sequence:              d.Sequence,
		DocDate:               d.Date,
		DueDate:               d.DueDate,
		CounterpartyName:      d.CounterpartyName,
		CounterpartyNIF:       d.CounterpartyNIF,
		Currency:              d.Currency,
		ExchangeRate:          d.ExchangeRate,
		GlobalDiscountPercent: d.GlobalDiscountPercent,
		RetentionMode:         string(d.RetentionMode),
		Subtotal:              d.Totals.Subtotal,
		TaxAmount:             d.Totals.TaxAmount,
		GlobalDiscountAmount:  d.Totals.GlobalDiscountAmount,
		WithholdingAmount:     d.Totals.WithholdingAmount,
		RetentionAmount:       d.Totals.RetentionAmount,
		Total:                 d.Totals.Total,
		ContraValue:           d.Totals.ContraValue,
		ServiceTotal:          d.Totals.ServiceTotal,
		Status:                string(d.Status),
		IsCertified:           d.IsCertified,
		CertifiedAt:           d.CertifiedAt,
		Hash:                  d.Hash,
		IssueDate:             d.IssueDate,
		CancelReason:          d.CancelReason,
		CancelledAt:           d.CancelledAt,
		SourceID:              d.SourceID,
		WorkLocation:          d.WorkLocation,
		PaymentMethod:         d.PaymentMethod,
		CashRegister:          d.CashRegister,
		CreatedBy:             d.CreatedBy,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
		Version:               d.Version,
	}
}

func (r documentRow) toDocument(items []itemRow) *documents.Document {
	d := &documents.Document{
		ID:                    r.ID,
		Type:                  documents.DocType(r.DocType),
		Number:                r.Number,
		Sequence:              r.Sequence,
		Date:                  r.DocDate,
		DueDate:               r.DueDate,
		CounterpartyName:      r.CounterpartyName,
		CounterpartyNIF:       r.CounterpartyNIF,
		Currency:              r.Currency,
		ExchangeRate:          r.ExchangeRate,
		GlobalDiscountPercent: r.GlobalDiscountPercent,
		RetentionMode:         totals.RetentionMode(r.RetentionMode),
		Totals: totals.Totals{
			Subtotal:             r.Subtotal,
			TaxAmount:            r.TaxAmount,
			GlobalDiscountAmount: r.GlobalDiscountAmount,
			WithholdingAmount:    r.WithholdingAmount,
			RetentionAmount:      r.RetentionAmount,
			Total:                r.Total,
			ContraValue:          r.ContraValue,
			ServiceTotal:         r.ServiceTotal,
			Negative:             r.Total.IsNegative(),
		},
		Status:        documents.Status(r.Status),
		IsCertified:   r.IsCertified,
		CertifiedAt:   r.CertifiedAt,
		Hash:          r.Hash,
		IssueDate:     r.IssueDate,
		CancelReason:  r.CancelReason,
		CancelledAt:   r.CancelledAt,
		SourceID:      r.SourceID,
		WorkLocation:  r.WorkLocation,
		PaymentMethod: r.PaymentMethod,
		CashRegister:  r.CashRegister,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
		UpdatedAt:     r.UpdatedAt,
		Version:       r.Version,
	}
	if r.SeriesID != nil {
		d.SeriesID = *r.SeriesID
	}
	d.Items = make([]documents.LineItem, len(items))
	for i, it := range items {
		d.Items[i] = documents.LineItem{
			ID:              it.ID,
			Description:     it.Description,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			TaxRatePercent:  it.TaxRatePercent,
			Kind:            totals.ItemKind(it.Kind),
			Total:           it.Total,
		}
	}
	return d
}

func toItemRows(d *documents.Document) []itemRow {
	rows := make([]itemRow, len(d.Items))
	for i, it := range d.Items {
		rows[i] = itemRow{
			ID:              it.ID,
			DocumentID:      d.ID,
			LineNo:          i + 1,
			Description:     it.Description,
			Quantity:        it.Quantity,
			UnitPrice:       it.UnitPrice,
			DiscountPercent: it.DiscountPercent,
			TaxRatePercent:  it.TaxRatePercent,
			Kind:            string(it.Kind),
			Total:           it.Total,
		}
	}
	return rows
}

// nullableID stores purchases, which have no series, as NULL.
func nullableID(v id.ID) *id.ID {
	if id.IsNil(v) {
		return nil
	}
	return &v
}
