package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"kitanda/internal/core/apperror"
	appctx "kitanda/internal/core/context"
	"kitanda/internal/core/id"
	"kitanda/internal/core/tx"
	"kitanda/internal/core/types"
	"kitanda/internal/domain/audit"
	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/series"
	"kitanda/internal/domain/totals"
	"kitanda/pkg/logger"
)

// EntityType names documents in the audit log.
const EntityType = "document"

// Observer receives lifecycle events.
type Observer interface {
	DocumentIssued(docType string)
	DocumentCancelled(docType string)
}

type nopObserver struct{}

func (nopObserver) DocumentIssued(string)    {}
func (nopObserver) DocumentCancelled(string) {}

// DraftInput describes a new sales document.
type DraftInput struct {
	Type     DocType
	SeriesID id.ID
	Date     time.Time
	DueDate  *time.Time

	CounterpartyName string
	CounterpartyNIF  string

	Currency string
	// ExchangeRate overrides the table rate when positive
	ExchangeRate          decimal.Decimal
	GlobalDiscountPercent decimal.Decimal
	RetentionMode         totals.RetentionMode
	Items                 []LineItem

	WorkLocation  string
	PaymentMethod string
	CashRegister  string
}

// PurchaseInput describes a supplier invoice.
type PurchaseInput struct {
	SupplierNumber string
	Date           time.Time
	DueDate        *time.Time

	SupplierName string
	SupplierNIF  string

	Currency              string
	ExchangeRate          decimal.Decimal
	GlobalDiscountPercent decimal.Decimal
	RetentionMode         totals.RetentionMode
	Items                 []LineItem

	// Status is PENDING (default) or PAID
	Status Status
}

// Service runs the document lifecycle: drafting, issue, cancellation,
// derived documents, payment tracking and purchase registration.
type Service struct {
	repo      Repository
	allocator *series.Allocator
	engine    *totals.Engine
	converter *currency.Converter
	txManager tx.Manager
	audit     audit.Logger
	observer  Observer
	now       func() time.Time
}

// NewService creates a new document service.
func NewService(
	repo Repository,
	allocator *series.Allocator,
	engine *totals.Engine,
	converter *currency.Converter,
	txManager tx.Manager,
	auditLog audit.Logger,
) *Service {
	if auditLog == nil {
		auditLog = audit.Nop{}
	}
	if txManager == nil {
		txManager = tx.NoopManager{}
	}
	return &Service{
		repo:      repo,
		allocator: allocator,
		engine:    engine,
		converter: converter,
		txManager: txManager,
		audit:     auditLog,
		observer:  nopObserver{},
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// SetObserver registers the lifecycle observer.
func (s *Service) SetObserver(o Observer) {
	if o != nil {
		s.observer = o
	}
}

// SetClock replaces the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// PreviewTotals computes totals and the per-rate breakdown without storing anything.
func (s *Service) PreviewTotals(in totals.Input) (totals.Totals, []totals.RateBucket, error) {
	if in.Currency == "" {
		in.Currency = totals.BaseCurrency
	}
	rate, err := s.converter.ResolveRate(in.Currency, in.ExchangeRate)
	if err != nil {
		return totals.Totals{}, nil, err
	}
	in.ExchangeRate = rate

	computed, err := s.engine.Compute(in)
	if err != nil {
		return totals.Totals{}, nil, err
	}
	breakdown, err := s.engine.TaxBreakdown(in.Lines)
	if err != nil {
		return totals.Totals{}, nil, err
	}
	return computed, breakdown, nil
}

// CreateDraft stores a new unnumbered sales document.
func (s *Service) CreateDraft(ctx context.Context, in DraftInput) (*Document, error) {
	if !in.Type.Valid() || in.Type == TypePurchaseInvoice {
		return nil, apperror.NewValidation("unknown sales document type").
			WithDetail("field", "type").
			WithDetail("value", string(in.Type))
	}
	if id.IsNil(in.SeriesID) {
		return nil, apperror.NewValidation("series is required").WithDetail("field", "seriesId")
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	draft := NewDraft(in.Type, in.SeriesID, in.Date)
	if err := s.fill(draft, in.Currency, in.ExchangeRate, in.GlobalDiscountPercent, in.RetentionMode, in.Items); err != nil {
		return nil, err
	}
	if err := draft.SetCounterparty(in.CounterpartyName, in.CounterpartyNIF); err != nil {
		return nil, err
	}
	if err := draft.SetDueDate(in.DueDate); err != nil {
		return nil, err
	}
	if err := draft.SetEditableFields(EditableFields{
		WorkLocation:  &in.WorkLocation,
		PaymentMethod: &in.PaymentMethod,
		CashRegister:  &in.CashRegister,
	}); err != nil {
		return nil, err
	}

	return s.storeDraft(ctx, draft.Document())
}

// UpdateDraft loads a document, applies edit and stores the result.
// Certified documents accept only the edits the Draft allows.
func (s *Service) UpdateDraft(ctx context.Context, docID id.ID, edit func(*Draft) error) (*Document, error) {
	current, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}

	draft := Edit(current)
	if err := edit(draft); err != nil {
		return nil, err
	}
	doc := draft.Document()
	if !doc.IsCertified {
		if doc.Totals, err = s.engine.Compute(doc.TotalsInput()); err != nil {
			return nil, err
		}
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, EntityType, doc.ID, audit.ActionUpdate,
			audit.Diff(auditState(current), auditState(doc)))
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Get returns a document.
func (s *Service) Get(ctx context.Context, docID id.ID) (*Document, error) {
	return s.repo.GetByID(ctx, docID)
}

// List returns documents matching filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Document, error) {
	return s.repo.List(ctx, filter)
}

// Issue numbers and certifies a draft.
//
// Allocation, hash chaining and the document write share one transaction,
// so a number becomes durable exactly when the certified document does.
func (s *Service) Issue(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.IsCancelled() {
		return nil, apperror.NewDocumentCancelled(doc.Number)
	}
	if doc.IsCertified {
		return nil, apperror.NewDocumentCertified(doc.Number, "number")
	}
	if doc.Kind() == totals.KindPurchase {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "purchases keep the supplier's number and are not issued")
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	computed, err := s.engine.Compute(doc.TotalsInput())
	if err != nil {
		return nil, err
	}
	if computed.Negative {
		logger.Warn(ctx, "document total is negative",
			"id", doc.ID,
			"type", doc.Type,
			"total", computed.Total.String())
	}

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		// Allocate first: the counter row lock orders concurrent issuers,
		// so LastHash below always sees the previous document.
		alloc, err := s.allocator.Allocate(ctx, doc.SeriesID, string(doc.Type), FiscalYear(doc.Date))
		if err != nil {
			return err
		}
		prevHash, err := s.repo.LastHash(ctx, doc.SeriesID, doc.Type)
		if err != nil {
			return fmt.Errorf("load previous hash: %w", err)
		}

		now := s.now()
		issueDate := doc.Date
		doc.IssueDate = &issueDate
		doc.Number = alloc.Formatted
		doc.Sequence = alloc.Sequence
		doc.Totals = computed
		doc.IsCertified = true
		doc.CertifiedAt = &now
		doc.Status = StatusPending
		if doc.Type.SettledOnIssue() {
			doc.Status = StatusPaid
		}
		doc.Hash = ComputeHash(doc, prevHash)
		doc.UpdatedAt = now

		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("store certified document: %w", err)
		}
		if doc.Type == TypeReceipt && doc.SourceID != nil {
			if err := s.settleSource(ctx, *doc.SourceID); err != nil {
				return err
			}
		}
		return s.audit.LogChange(ctx, EntityType, doc.ID, audit.ActionIssue, map[string]any{
			"number": doc.Number,
			"hash":   doc.Hash,
			"total":  types.Fixed(types.Round2(doc.Totals.Total)),
		})
	})
	if err != nil {
		return nil, err
	}

	s.observer.DocumentIssued(string(doc.Type))
	logger.Info(ctx, "document issued",
		"id", doc.ID,
		"number", doc.Number,
		"total", types.Fixed(types.Round2(doc.Totals.Total)))
	return doc, nil
}

// Cancel voids a certified sales document. The number is kept and never reused.
func (s *Service) Cancel(ctx context.Context, docID id.ID, reason string) (*Document, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperror.NewValidation("cancellation reason is required").WithDetail("field", "reason")
	}

	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	if doc.IsCancelled() {
		return nil, apperror.NewDocumentCancelled(doc.Number)
	}
	if doc.Kind() == totals.KindPurchase {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "purchases cannot be cancelled")
	}
	if !doc.IsCertified {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "only issued documents can be cancelled").
			WithDetail("number", doc.Number)
	}

	now := s.now()
	doc.Status = StatusCancelled
	doc.CancelReason = reason
	doc.CancelledAt = &now
	doc.UpdatedAt = now

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("store cancellation: %w", err)
		}
		return s.audit.LogChange(ctx, EntityType, doc.ID, audit.ActionCancel, map[string]any{
			"number": doc.Number,
			"reason": reason,
		})
	})
	if err != nil {
		return nil, err
	}

	s.observer.DocumentCancelled(string(doc.Type))
	logger.Info(ctx, "document cancelled", "id", doc.ID, "number", doc.Number, "reason", reason)
	return doc, nil
}

// CreateCreditNote drafts a credit note that reverses sourceID.
func (s *Service) CreateCreditNote(ctx context.Context, sourceID id.ID) (*Document, error) {
	source, err := s.issuedSource(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if !source.Type.TaxBearing() {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("cannot credit a %s", source.Type.Name())).
			WithDetail("number", source.Number)
	}
	return s.derive(ctx, source, TypeCreditNote)
}

// CreateReceipt drafts a receipt settling an open invoice.
func (s *Service) CreateReceipt(ctx context.Context, invoiceID id.ID) (*Document, error) {
	source, err := s.issuedSource(ctx, invoiceID)
	if err != nil {
		return nil, err
	}
	if source.Type != TypeInvoice && source.Type != TypeDebitNote {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("a %s is not settled by receipt", source.Type.Name())).
			WithDetail("number", source.Number)
	}
	if source.Status != StatusPending && source.Status != StatusOverdue {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "invoice is already settled").
			WithDetail("number", source.Number)
	}
	return s.derive(ctx, source, TypeReceipt)
}

// MarkPaid settles a pending or overdue document. Paying a paid document is a no-op.
func (s *Service) MarkPaid(ctx context.Context, docID id.ID) (*Document, error) {
	doc, err := s.repo.GetByID(ctx, docID)
	if err != nil {
		return nil, err
	}
	switch {
	case doc.IsCancelled():
		return nil, apperror.NewDocumentCancelled(doc.Number)
	case doc.Status == StatusPaid:
		return doc, nil
	case doc.Kind() == totals.KindSales && !doc.IsCertified:
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "draft documents cannot be paid")
	case doc.Status != StatusPending && doc.Status != StatusOverdue:
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "document is not awaiting payment")
	}

	doc.Status = StatusPaid
	doc.UpdatedAt = s.now()
	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, doc); err != nil {
			return fmt.Errorf("store payment: %w", err)
		}
		return s.audit.LogChange(ctx, EntityType, doc.ID, audit.ActionPay, map[string]any{"number": doc.Number})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// RefreshOverdue moves pending sales documents whose due date is before
// the day of now to OVERDUE. Returns how many changed.
func (s *Service) RefreshOverdue(ctx context.Context, now time.Time) (int, error) {
	day := truncateDay(now)
	docs, err := s.repo.List(ctx, ListFilter{
		Kind:      totals.KindSales,
		Statuses:  []Status{StatusPending},
		DueBefore: &day,
	})
	if err != nil {
		return 0, fmt.Errorf("list pending documents: %w", err)
	}

	changed := 0
	for _, doc := range docs {
		doc.Status = StatusOverdue
		doc.UpdatedAt = s.now()
		if err := s.repo.Update(ctx, doc); err != nil {
			if apperror.HasCode(err, apperror.CodeConcurrentModification) {
				logger.Warn(ctx, "overdue refresh skipped a concurrently modified document", "id", doc.ID)
				continue
			}
			return changed, fmt.Errorf("mark overdue: %w", err)
		}
		changed++
	}
	if changed > 0 {
		logger.Info(ctx, "documents marked overdue", "count", changed)
	}
	return changed, nil
}

// VerifyChain recomputes the certification hashes of one series and type.
// It returns how many certified documents were checked.
func (s *Service) VerifyChain(ctx context.Context, seriesID id.ID, docType DocType) (int, error) {
	if !docType.Valid() || docType == TypePurchaseInvoice {
		return 0, apperror.NewValidation("unknown sales document type").
			WithDetail("field", "type").
			WithDetail("value", string(docType))
	}
	docs, err := s.repo.List(ctx, ListFilter{SeriesID: seriesID, Types: []DocType{docType}})
	if err != nil {
		return 0, fmt.Errorf("list chain: %w", err)
	}
	if err := VerifyChain(docs); err != nil {
		logger.Error(ctx, "hash chain verification failed", "series", seriesID, "type", docType, "error", err)
		return 0, err
	}
	checked := 0
	for _, d := range docs {
		if d.IsCertified {
			checked++
		}
	}
	return checked, nil
}

// RegisterPurchase records a supplier invoice. It keeps the supplier's number
// and never touches the series counters.
func (s *Service) RegisterPurchase(ctx context.Context, in PurchaseInput) (*Document, error) {
	number := strings.TrimSpace(in.SupplierNumber)
	if number == "" {
		return nil, apperror.NewValidation("supplier document number is required").WithDetail("field", "number")
	}
	if strings.TrimSpace(in.SupplierName) == "" && strings.TrimSpace(in.SupplierNIF) == "" {
		return nil, apperror.NewValidation("supplier is required").WithDetail("field", "supplier")
	}
	status := in.Status
	if status == "" {
		status = StatusPending
	}
	if status != StatusPending && status != StatusPaid {
		return nil, apperror.NewValidation("purchase status must be PENDING or PAID").
			WithDetail("field", "status").
			WithDetail("value", string(status))
	}
	if in.Date.IsZero() {
		in.Date = s.now()
	}

	draft := NewDraft(TypePurchaseInvoice, id.ID{}, in.Date)
	if err := s.fill(draft, in.Currency, in.ExchangeRate, in.GlobalDiscountPercent, in.RetentionMode, in.Items); err != nil {
		return nil, err
	}
	if err := draft.SetCounterparty(in.SupplierName, in.SupplierNIF); err != nil {
		return nil, err
	}
	if err := draft.SetDueDate(in.DueDate); err != nil {
		return nil, err
	}

	doc := draft.Document()
	doc.Number = number
	doc.Status = status
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.storeDraft(ctx, doc)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "purchase registered", "id", stored.ID, "number", stored.Number, "supplier", stored.CounterpartyNIF)
	return stored, nil
}

func (s *Service) fill(draft *Draft, code string, rate, discount decimal.Decimal, retention totals.RetentionMode, items []LineItem) error {
	if code == "" {
		code = totals.BaseCurrency
	}
	resolved, err := s.converter.ResolveRate(code, rate)
	if err != nil {
		return err
	}
	if err := draft.SetCurrency(code, resolved); err != nil {
		return err
	}
	if err := draft.SetGlobalDiscount(discount); err != nil {
		return err
	}
	if err := draft.SetRetention(retention); err != nil {
		return err
	}
	for _, item := range items {
		if item.Kind == "" {
			item.Kind = totals.ItemProduct
		}
		if err := draft.AddItem(item); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) storeDraft(ctx context.Context, doc *Document) (*Document, error) {
	computed, err := s.engine.Compute(doc.TotalsInput())
	if err != nil {
		return nil, err
	}
	doc.Totals = computed
	doc.CreatedBy = appctx.GetUserID(ctx)

	err = s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		if err := s.repo.Create(ctx, doc); err != nil {
			return err
		}
		return s.audit.LogChange(ctx, EntityType, doc.ID, audit.ActionCreate, map[string]any{
			"type":   doc.Type,
			"number": doc.Number,
			"total":  types.Fixed(types.Round2(doc.Totals.Total)),
		})
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *Service) issuedSource(ctx context.Context, sourceID id.ID) (*Document, error) {
	source, err := s.repo.GetByID(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	if source.IsCancelled() {
		return nil, apperror.NewDocumentCancelled(source.Number)
	}
	if !source.IsCertified {
		return nil, apperror.NewBusinessRule(apperror.CodeBusinessRule, "source document is not issued").
			WithDetail("number", source.Number)
	}
	return source, nil
}

func (s *Service) derive(ctx context.Context, source *Document, docType DocType) (*Document, error) {
	draft := NewDraft(docType, source.SeriesID, s.now())
	items := make([]LineItem, len(source.Items))
	for i, item := range source.Items {
		item.ID = id.New()
		items[i] = item
	}
	if err := s.fill(draft, source.Currency, source.ExchangeRate, source.GlobalDiscountPercent, source.RetentionMode, items); err != nil {
		return nil, err
	}
	if err := draft.SetCounterparty(source.CounterpartyName, source.CounterpartyNIF); err != nil {
		return nil, err
	}

	doc := draft.Document()
	sourceID := source.ID
	doc.SourceID = &sourceID
	doc.PaymentMethod = source.PaymentMethod
	doc.WorkLocation = source.WorkLocation

	stored, err := s.storeDraft(ctx, doc)
	if err != nil {
		return nil, err
	}
	logger.Info(ctx, "derived document drafted", "type", docType, "source", source.Number, "id", stored.ID)
	return stored, nil
}

func (s *Service) settleSource(ctx context.Context, sourceID id.ID) error {
	source, err := s.repo.GetByID(ctx, sourceID)
	if err != nil {
		return fmt.Errorf("load settled invoice: %w", err)
	}
	if source.Status != StatusPending && source.Status != StatusOverdue {
		return nil
	}
	source.Status = StatusPaid
	source.UpdatedAt = s.now()
	if err := s.repo.Update(ctx, source); err != nil {
		return fmt.Errorf("settle invoice: %w", err)
	}
	return nil
}

// auditState is the flat view of a document compared on update.
func auditState(doc *Document) map[string]any {
	state := map[string]any{
		"number":        doc.Number,
		"date":          doc.Date.Format(time.DateOnly),
		"currency":      doc.Currency,
		"exchangeRate":  doc.ExchangeRate.String(),
		"counterparty":  doc.CounterpartyNIF,
		"items":         len(doc.Items),
		"total":         types.Fixed(doc.Totals.Total),
		"workLocation":  doc.WorkLocation,
		"paymentMethod": doc.PaymentMethod,
		"cashRegister":  doc.CashRegister,
	}
	if doc.DueDate != nil {
		state["dueDate"] = doc.DueDate.Format(time.DateOnly)
	}
	return state
}
