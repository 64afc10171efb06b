package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"kitanda/internal/core/id"
	"kitanda/internal/domain/audit"
	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/documents"
	"kitanda/internal/infrastructure/http/v1/dto"
)

const historyLimit = 100

// DocumentHandler serves sales documents and supplier invoices.
type DocumentHandler struct {
	*BaseHandler
	service   *documents.Service
	converter *currency.Converter
	history   audit.Reader
}

// NewDocumentHandler creates a document handler. history may be nil.
func NewDocumentHandler(base *BaseHandler, service *documents.Service, converter *currency.Converter, history audit.Reader) *DocumentHandler {
	return &DocumentHandler{
		BaseHandler: base,
		service:     service,
		converter:   converter,
		history:     history,
	}
}

// Totals handles POST /documents/totals
func (h *DocumentHandler) Totals(c *gin.Context) {
	var req dto.TotalsRequest
	if !h.BindJSON(c, &req) {
		return
	}
	computed, breakdown, err := h.service.PreviewTotals(req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromPreview(computed, breakdown))
}

// Create handles POST /documents
func (h *DocumentHandler) Create(c *gin.Context) {
	var req dto.CreateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	in, err := req.ToInput()
	if err != nil {
		h.Error(c, err)
		return
	}
	doc, err := h.service.CreateDraft(c.Request.Context(), in)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(doc))
}

// Get handles GET /documents/:id
func (h *DocumentHandler) Get(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}
	doc, err := h.service.Get(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// Update handles PATCH /documents/:id
func (h *DocumentHandler) Update(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.UpdateDocumentRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.service.UpdateDraft(c.Request.Context(), docID, func(d *documents.Draft) error {
		return req.Apply(d, h.converter.ResolveRate)
	})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// List handles GET /documents
func (h *DocumentHandler) List(c *gin.Context) {
	var q dto.ListDocumentsQuery
	if !h.BindQuery(c, &q) {
		return
	}
	docs, err := h.service.List(c.Request.Context(), q.ToFilter())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(dto.FromDocuments(docs)))
}

// Issue handles POST /documents/:id/issue
func (h *DocumentHandler) Issue(c *gin.Context) {
	h.transition(c, h.service.Issue)
}

// Pay handles POST /documents/:id/pay
func (h *DocumentHandler) Pay(c *gin.Context) {
	h.transition(c, h.service.MarkPaid)
}

// CreditNote handles POST /documents/:id/credit-note
func (h *DocumentHandler) CreditNote(c *gin.Context) {
	h.derive(c, h.service.CreateCreditNote)
}

// Receipt handles POST /documents/:id/receipt
func (h *DocumentHandler) Receipt(c *gin.Context) {
	h.derive(c, h.service.CreateReceipt)
}

// Cancel handles POST /documents/:id/cancel
func (h *DocumentHandler) Cancel(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}
	var req dto.CancelRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.service.Cancel(c.Request.Context(), docID, req.Reason)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

// History handles GET /documents/:id/history
func (h *DocumentHandler) History(c *gin.Context) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}
	if h.history == nil {
		h.OK(c, dto.NewListResponse[audit.Entry](nil))
		return
	}
	limit, ok := h.QueryInt(c, "limit", historyLimit)
	if !ok {
		return
	}
	entries, err := h.history.History(c.Request.Context(), documents.EntityType, docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.NewListResponse(entries))
}

// RegisterPurchase handles POST /purchases
func (h *DocumentHandler) RegisterPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if !h.BindJSON(c, &req) {
		return
	}
	doc, err := h.service.RegisterPurchase(c.Request.Context(), req.ToInput())
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(doc))
}

type docOp func(ctx context.Context, docID id.ID) (*documents.Document, error)

func (h *DocumentHandler) transition(c *gin.Context, op docOp) {
	docID, ok := h.PathID(c)
	if !ok {
		return
	}
	doc, err := op(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromDocument(doc))
}

func (h *DocumentHandler) derive(c *gin.Context, op docOp) {
	sourceID, ok := h.PathID(c)
	if !ok {
		return
	}
	doc, err := op(c.Request.Context(), sourceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromDocument(doc))
}
