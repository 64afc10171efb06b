package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/totals"
)

// --- Request DTOs ---

// LineItemRequest is one document row.
type LineItemRequest struct {
	Description     string           `json:"description" binding:"required"`
	Quantity        *decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal  `json:"unitPrice"`
	DiscountPercent *decimal.Decimal `json:"discountPercent"`
	TaxRate         *decimal.Decimal `json:"taxRate"`
	Kind            totals.ItemKind  `json:"kind"`
}

// ToItem applies the form defaults for omitted fields. An explicit zero is
// kept as sent.
func (r LineItemRequest) ToItem() documents.LineItem {
	item := documents.NewLineItem(r.Description, r.UnitPrice)
	if r.Quantity != nil {
		item.Quantity = *r.Quantity
	}
	if r.DiscountPercent != nil {
		item.DiscountPercent = *r.DiscountPercent
	}
	if r.TaxRate != nil {
		item.TaxRatePercent = *r.TaxRate
	}
	if r.Kind != "" {
		item.Kind = r.Kind
	}
	return item
}

func toItems(in []LineItemRequest) []documents.LineItem {
	items := make([]documents.LineItem, len(in))
	for i, r := range in {
		items[i] = r.ToItem()
	}
	return items
}

// TotalsRequest previews totals without storing anything.
type TotalsRequest struct {
	Kind                  totals.Kind          `json:"kind"`
	Currency              string               `json:"currency"`
	ExchangeRate          decimal.Decimal      `json:"exchangeRate"`
	GlobalDiscountPercent decimal.Decimal      `json:"globalDiscountPercent"`
	RetentionMode         totals.RetentionMode `json:"retentionMode"`
	Items                 []LineItemRequest    `json:"items"`
}

// ToInput converts the request into an engine snapshot.
func (r *TotalsRequest) ToInput() totals.Input {
	kind := r.Kind
	if kind == "" {
		kind = totals.KindSales
	}
	lines := make([]totals.Line, len(r.Items))
	for i, it := range r.Items {
		lines[i] = it.ToItem().Line()
	}
	return totals.Input{
		Kind:                  kind,
		Currency:              r.Currency,
		ExchangeRate:          r.ExchangeRate,
		GlobalDiscountPercent: r.GlobalDiscountPercent,
		Retention:             r.RetentionMode,
		Lines:                 lines,
	}
}

// CreateDocumentRequest creates a sales draft.
type CreateDocumentRequest struct {
	Type     documents.DocType `json:"type" binding:"required"`
	SeriesID string            `json:"seriesId" binding:"required"`
	Date     *time.Time        `json:"date"`
	DueDate  *time.Time        `json:"dueDate"`

	CounterpartyName string `json:"counterpartyName"`
	CounterpartyNIF  string `json:"counterpartyNif"`

	Currency              string               `json:"currency"`
	ExchangeRate          decimal.Decimal      `json:"exchangeRate"`
	GlobalDiscountPercent decimal.Decimal      `json:"globalDiscountPercent"`
	RetentionMode         totals.RetentionMode `json:"retentionMode"`
	Items                 []LineItemRequest    `json:"items"`

	WorkLocation  string `json:"workLocation"`
	PaymentMethod string `json:"paymentMethod"`
	CashRegister  string `json:"cashRegister"`
}

// ToInput converts DTO to the service input.
func (r *CreateDocumentRequest) ToInput() (documents.DraftInput, error) {
	seriesID, err := id.Parse(r.SeriesID)
	if err != nil {
		return documents.DraftInput{}, apperror.NewValidation("invalid seriesId").WithDetail("field", "seriesId")
	}
	in := documents.DraftInput{
		Type:                  r.Type,
		SeriesID:              seriesID,
		DueDate:               r.DueDate,
		CounterpartyName:      r.CounterpartyName,
		CounterpartyNIF:       r.CounterpartyNIF,
		Currency:              r.Currency,
		ExchangeRate:          r.ExchangeRate,
		GlobalDiscountPercent: r.GlobalDiscountPercent,
		RetentionMode:         r.RetentionMode,
		Items:                 toItems(r.Items),
		WorkLocation:          r.WorkLocation,
		PaymentMethod:         r.PaymentMethod,
		CashRegister:          r.CashRegister,
	}
	if r.Date != nil {
		in.Date = *r.Date
	}
	return in, nil
}

// UpdateDocumentRequest edits a stored document. Omitted fields are left as
// they are. Certified documents accept only the editable fields and date.
type UpdateDocumentRequest struct {
	Date    *time.Time `json:"date"`
	DueDate *time.Time `json:"dueDate"`

	CounterpartyName *string `json:"counterpartyName"`
	CounterpartyNIF  *string `json:"counterpartyNif"`

	Currency              *string               `json:"currency"`
	ExchangeRate          decimal.Decimal       `json:"exchangeRate"`
	GlobalDiscountPercent *decimal.Decimal      `json:"globalDiscountPercent"`
	RetentionMode         *totals.RetentionMode `json:"retentionMode"`

	// Items replaces every row when present
	Items *[]LineItemRequest `json:"items"`

	WorkLocation  *string `json:"workLocation"`
	PaymentMethod *string `json:"paymentMethod"`
	CashRegister  *string `json:"cashRegister"`
}

// RateResolver returns the rate to use for code, honouring a positive override.
type RateResolver func(code string, override decimal.Decimal) (decimal.Decimal, error)

// Apply replays the request on a draft builder.
func (r *UpdateDocumentRequest) Apply(d *documents.Draft, resolve RateResolver) error {
	if r.Items != nil {
		for range len(d.Document().Items) {
			if err := d.RemoveItem(0); err != nil {
				return err
			}
		}
		for _, it := range *r.Items {
			if err := d.AddItem(it.ToItem()); err != nil {
				return err
			}
		}
	}
	if r.Currency != nil {
		rate, err := resolve(*r.Currency, r.ExchangeRate)
		if err != nil {
			return err
		}
		if err := d.SetCurrency(*r.Currency, rate); err != nil {
			return err
		}
	}
	if r.GlobalDiscountPercent != nil {
		if err := d.SetGlobalDiscount(*r.GlobalDiscountPercent); err != nil {
			return err
		}
	}
	if r.RetentionMode != nil {
		if err := d.SetRetention(*r.RetentionMode); err != nil {
			return err
		}
	}
	if r.CounterpartyName != nil || r.CounterpartyNIF != nil {
		doc := d.Document()
		name, nif := doc.CounterpartyName, doc.CounterpartyNIF
		if r.CounterpartyName != nil {
			name = *r.CounterpartyName
		}
		if r.CounterpartyNIF != nil {
			nif = *r.CounterpartyNIF
		}
		if err := d.SetCounterparty(name, nif); err != nil {
			return err
		}
	}
	if r.DueDate != nil {
		if err := d.SetDueDate(r.DueDate); err != nil {
			return err
		}
	}
	return d.SetEditableFields(documents.EditableFields{
		WorkLocation:  r.WorkLocation,
		PaymentMethod: r.PaymentMethod,
		CashRegister:  r.CashRegister,
		Date:          r.Date,
	})
}

// PurchaseRequest registers a supplier invoice.
type PurchaseRequest struct {
	SupplierNumber string     `json:"supplierNumber" binding:"required"`
	Date           time.Time  `json:"date" binding:"required"`
	DueDate        *time.Time `json:"dueDate"`

	SupplierName string `json:"supplierName"`
	SupplierNIF  string `json:"supplierNif" binding:"required"`

	Currency              string               `json:"currency"`
	ExchangeRate          decimal.Decimal      `json:"exchangeRate"`
	GlobalDiscountPercent decimal.Decimal      `json:"globalDiscountPercent"`
	RetentionMode         totals.RetentionMode `json:"retentionMode"`
	Items                 []LineItemRequest    `json:"items"`

	Status documents.Status `json:"status"`
}

// ToInput converts DTO to the service input.
func (r *PurchaseRequest) ToInput() documents.PurchaseInput {
	return documents.PurchaseInput{
		SupplierNumber:        r.SupplierNumber,
		Date:                  r.Date,
		DueDate:               r.DueDate,
		SupplierName:          r.SupplierName,
		SupplierNIF:           r.SupplierNIF,
		Currency:              r.Currency,
		ExchangeRate:          r.ExchangeRate,
		GlobalDiscountPercent: r.GlobalDiscountPercent,
		RetentionMode:         r.RetentionMode,
		Items:                 toItems(r.Items),
		Status:                r.Status,
	}
}

// CancelRequest carries the mandatory cancellation reason.
type CancelRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// ListDocumentsQuery filters GET /documents. Year without month lists the whole year.
type ListDocumentsQuery struct {
	Year   int                 `form:"year"`
	Month  int                 `form:"month" binding:"omitempty,min=1,max=12"`
	Kind   totals.Kind         `form:"kind"`
	Type   []documents.DocType `form:"type"`
	Status []documents.Status  `form:"status"`
	Limit  int                 `form:"limit" binding:"omitempty,min=1,max=1000"`
}

// ToFilter converts the query into a repository filter.
func (q *ListDocumentsQuery) ToFilter() documents.ListFilter {
	f := documents.ListFilter{
		Kind:     q.Kind,
		Types:    q.Type,
		Statuses: q.Status,
		Limit:    q.Limit,
	}
	switch {
	case q.Year != 0 && q.Month != 0:
		f.From = documents.MonthStart(q.Year, time.Month(q.Month))
		f.To = f.From.AddDate(0, 1, 0)
	case q.Year != 0:
		f.From = documents.MonthStart(q.Year, time.January)
		f.To = f.From.AddDate(1, 0, 0)
	}
	return f
}

// --- Response DTOs ---

// TotalsResponse is the presentation view of totals.Totals.
type TotalsResponse struct {
	Subtotal             string `json:"subtotal"`
	TaxAmount            string `json:"taxAmount"`
	GlobalDiscountAmount string `json:"globalDiscountAmount"`
	WithholdingAmount    string `json:"withholdingAmount"`
	RetentionAmount      string `json:"retentionAmount"`
	Total                string `json:"total"`
	ContraValue          string `json:"contraValue"`
	Negative             bool   `json:"negative"`
}

// FromTotals rounds for display only.
func FromTotals(t totals.Totals) TotalsResponse {
	return TotalsResponse{
		Subtotal:             money(t.Subtotal),
		TaxAmount:            money(t.TaxAmount),
		GlobalDiscountAmount: money(t.GlobalDiscountAmount),
		WithholdingAmount:    money(t.WithholdingAmount),
		RetentionAmount:      money(t.RetentionAmount),
		Total:                money(t.Total),
		ContraValue:          money(t.ContraValue),
		Negative:             t.Negative,
	}
}

// RateBucketResponse is one line of the VAT breakdown.
type RateBucketResponse struct {
	Rate string `json:"rate"`
	Base string `json:"base"`
	Tax  string `json:"tax"`
}

// PreviewResponse is returned by POST /documents/totals.
type PreviewResponse struct {
	Totals    TotalsResponse       `json:"totals"`
	Breakdown []RateBucketResponse `json:"breakdown"`
}

// FromPreview builds the preview body.
func FromPreview(t totals.Totals, buckets []totals.RateBucket) PreviewResponse {
	out := PreviewResponse{Totals: FromTotals(t), Breakdown: make([]RateBucketResponse, len(buckets))}
	for i, b := range buckets {
		out.Breakdown[i] = RateBucketResponse{Rate: plain(b.Rate), Base: money(b.Base), Tax: money(b.Tax)}
	}
	return out
}

// LineItemResponse is one row of a document.
type LineItemResponse struct {
	ID              string `json:"id"`
	Description     string `json:"description"`
	Quantity        string `json:"quantity"`
	UnitPrice       string `json:"unitPrice"`
	DiscountPercent string `json:"discountPercent"`
	TaxRate         string `json:"taxRate"`
	Kind            string `json:"kind"`
	Total           string `json:"total"`
}

// DocumentResponse is the API view of a document.
type DocumentResponse struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	TypeName string `json:"typeName"`
	SeriesID string `json:"seriesId,omitempty"`
	Number   string `json:"number"`

	Date    time.Time  `json:"date"`
	DueDate *time.Time `json:"dueDate,omitempty"`

	CounterpartyName string `json:"counterpartyName"`
	CounterpartyNIF  string `json:"counterpartyNif"`

	Currency              string             `json:"currency"`
	ExchangeRate          string             `json:"exchangeRate"`
	GlobalDiscountPercent string             `json:"globalDiscountPercent"`
	RetentionMode         string             `json:"retentionMode"`
	Items                 []LineItemResponse `json:"items"`
	Totals                TotalsResponse     `json:"totals"`
	DisplayTotal          string             `json:"displayTotal"`

	Status       string     `json:"status"`
	IsCertified  bool       `json:"isCertified"`
	CertifiedAt  *time.Time `json:"certifiedAt,omitempty"`
	Hash         string     `json:"hash,omitempty"`
	CancelReason string     `json:"cancelReason,omitempty"`
	CancelledAt  *time.Time `json:"cancelledAt,omitempty"`
	SourceID     string     `json:"sourceId,omitempty"`

	WorkLocation  string `json:"workLocation,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`
	CashRegister  string `json:"cashRegister,omitempty"`

	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int       `json:"version"`
}

// FromDocument converts domain document to DTO.
func FromDocument(d *documents.Document) DocumentResponse {
	out := DocumentResponse{
		ID:                    d.ID.String(),
		Type:                  string(d.Type),
		TypeName:              d.Type.Name(),
		Number:                d.Number,
		Date:                  d.Date,
		DueDate:               d.DueDate,
		CounterpartyName:      d.CounterpartyName,
		CounterpartyNIF:       d.CounterpartyNIF,
		Currency:              d.Currency,
		ExchangeRate:          plain(d.ExchangeRate),
		GlobalDiscountPercent: plain(d.GlobalDiscountPercent),
		RetentionMode:         string(d.RetentionMode),
		Items:                 make([]LineItemResponse, len(d.Items)),
		Totals:                FromTotals(d.Totals),
		DisplayTotal:          currency.Format(d.Totals.Total, d.Currency),
		Status:                string(d.Status),
		IsCertified:           d.IsCertified,
		CertifiedAt:           d.CertifiedAt,
		Hash:                  d.Hash,
		CancelReason:          d.CancelReason,
		CancelledAt:           d.CancelledAt,
		WorkLocation:          d.WorkLocation,
		PaymentMethod:         d.PaymentMethod,
		CashRegister:          d.CashRegister,
		CreatedBy:             d.CreatedBy,
		CreatedAt:             d.CreatedAt,
		UpdatedAt:             d.UpdatedAt,
		Version:               d.Version,
	}
	if !id.IsNil(d.SeriesID) {
		out.SeriesID = d.SeriesID.String()
	}
	if d.SourceID != nil {
		out.SourceID = d.SourceID.String()
	}
	for i, it := range d.Items {
		out.Items[i] = LineItemResponse{
			ID:              it.ID.String(),
			Description:     it.Description,
			Quantity:        plain(it.Quantity),
			UnitPrice:       plain(it.UnitPrice),
			DiscountPercent: plain(it.DiscountPercent),
			TaxRate:         plain(it.TaxRatePercent),
			Kind:            string(it.Kind),
			Total:           money(it.Total),
		}
	}
	return out
}

// FromDocuments converts a slice.
func FromDocuments(docs []*documents.Document) []DocumentResponse {
	out := make([]DocumentResponse, len(docs))
	for i, d := range docs {
		out[i] = FromDocument(d)
	}
	return out
}
