package documents

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/domain/totals"
)

// EditableFields are the header fields that may change after certification.
type EditableFields struct {
	WorkLocation  *string
	PaymentMethod *string
	CashRegister  *string
	Date          *time.Time
}

// Draft is the aggregate under construction. Every mutation that affects
// the fiscal content fails with DOCUMENT_CERTIFIED once the document is
// certified, and with DOCUMENT_CANCELLED once it is cancelled.
type Draft struct {
	doc *Document
}

// NewDraft starts a document in kwanza with a placeholder number.
func NewDraft(docType DocType, seriesID id.ID, date time.Time) *Draft {
	docID := id.New()
	now := time.Now().UTC()
	return &Draft{doc: &Document{
		ID:                    docID,
		Type:                  docType,
		SeriesID:              seriesID,
		Number:                DraftNumberPrefix + strings.ToUpper(id.Short(docID)),
		Date:                  date,
		Currency:              totals.BaseCurrency,
		ExchangeRate:          decimal.NewFromInt(1),
		GlobalDiscountPercent: decimal.Zero,
		RetentionMode:         totals.RetentionNone,
		Status:                StatusDraft,
		CreatedAt:             now,
		UpdatedAt:             now,
	}}
}

// Edit wraps a copy of doc for modification.
func Edit(doc *Document) *Draft {
	return &Draft{doc: doc.Clone()}
}

// Document returns the document being built.
func (d *Draft) Document() *Document {
	return d.doc
}

func (d *Draft) guard(field string) error {
	if d.doc.IsCancelled() {
		return apperror.NewDocumentCancelled(d.doc.Number)
	}
	if d.doc.IsCertified {
		return apperror.NewDocumentCertified(d.doc.Number, field)
	}
	return nil
}

func (d *Draft) touch() {
	d.doc.UpdatedAt = time.Now().UTC()
}

// AddItem recalculates item and appends it.
func (d *Draft) AddItem(item LineItem) error {
	if err := d.guard("items"); err != nil {
		return err
	}
	if err := item.Recalculate(); err != nil {
		return withLineNo(err, len(d.doc.Items)+1)
	}
	if id.IsNil(item.ID) {
		item.ID = id.New()
	}
	d.doc.Items = append(d.doc.Items, item)
	d.touch()
	return nil
}

// UpdateItem replaces the item at index (0-based).
func (d *Draft) UpdateItem(index int, item LineItem) error {
	if err := d.guard("items"); err != nil {
		return err
	}
	if err := d.checkIndex(index); err != nil {
		return err
	}
	if err := item.Recalculate(); err != nil {
		return withLineNo(err, index+1)
	}
	item.ID = d.doc.Items[index].ID
	d.doc.Items[index] = item
	d.touch()
	return nil
}

// RemoveItem deletes the item at index (0-based).
func (d *Draft) RemoveItem(index int) error {
	if err := d.guard("items"); err != nil {
		return err
	}
	if err := d.checkIndex(index); err != nil {
		return err
	}
	d.doc.Items = append(d.doc.Items[:index], d.doc.Items[index+1:]...)
	d.touch()
	return nil
}

func (d *Draft) checkIndex(index int) error {
	if index < 0 || index >= len(d.doc.Items) {
		return apperror.NewValidation("line item does not exist").
			WithDetail("field", "items").
			WithDetail("lineNo", index+1)
	}
	return nil
}

// SetCurrency sets the document currency and its AOA rate. AOA always uses 1.
func (d *Draft) SetCurrency(code string, rate decimal.Decimal) error {
	if err := d.guard("currency"); err != nil {
		return err
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == totals.BaseCurrency {
		rate = decimal.NewFromInt(1)
	}
	if !rate.IsPositive() {
		return apperror.NewInvalidCurrency(code, "exchange rate must be positive").
			WithDetail("exchangeRate", rate.String())
	}
	d.doc.Currency = code
	d.doc.ExchangeRate = rate
	d.touch()
	return nil
}

// SetGlobalDiscount sets the document-level discount percent.
func (d *Draft) SetGlobalDiscount(percent decimal.Decimal) error {
	if err := d.guard("globalDiscountPercent"); err != nil {
		return err
	}
	if percent.IsNegative() || percent.GreaterThan(decimal.NewFromInt(100)) {
		return apperror.NewValidation("global discount must be between 0 and 100").
			WithDetail("field", "globalDiscountPercent").
			WithDetail("value", percent.String())
	}
	d.doc.GlobalDiscountPercent = percent
	d.touch()
	return nil
}

// SetRetention sets the VAT captivation mode.
func (d *Draft) SetRetention(mode totals.RetentionMode) error {
	if err := d.guard("retentionMode"); err != nil {
		return err
	}
	if mode == "" {
		mode = totals.RetentionNone
	}
	if _, ok := mode.Factor(); !ok {
		return apperror.NewValidation("unknown retention mode").
			WithDetail("field", "retentionMode").
			WithDetail("value", string(mode))
	}
	d.doc.RetentionMode = mode
	d.touch()
	return nil
}

// SetCounterparty sets the customer or supplier.
func (d *Draft) SetCounterparty(name, nif string) error {
	if err := d.guard("counterparty"); err != nil {
		return err
	}
	d.doc.CounterpartyName = strings.TrimSpace(name)
	d.doc.CounterpartyNIF = strings.TrimSpace(nif)
	d.touch()
	return nil
}

// SetDueDate sets or clears the payment due date.
func (d *Draft) SetDueDate(due *time.Time) error {
	if err := d.guard("dueDate"); err != nil {
		return err
	}
	d.doc.DueDate = due
	d.touch()
	return nil
}

// SetEditableFields applies the fields that stay open after certification.
func (d *Draft) SetEditableFields(f EditableFields) error {
	if d.doc.IsCancelled() {
		return apperror.NewDocumentCancelled(d.doc.Number)
	}
	if f.WorkLocation != nil {
		d.doc.WorkLocation = *f.WorkLocation
	}
	if f.PaymentMethod != nil {
		d.doc.PaymentMethod = *f.PaymentMethod
	}
	if f.CashRegister != nil {
		d.doc.CashRegister = *f.CashRegister
	}
	if f.Date != nil {
		d.doc.Date = *f.Date
	}
	d.touch()
	return nil
}

func withLineNo(err error, lineNo int) error {
	if appErr, ok := apperror.AsAppError(err); ok {
		appErr.WithDetail("lineNo", lineNo)
	}
	return err
}
