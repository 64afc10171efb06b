package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/domain/documents"
)

// DocumentRepo is a map-backed documents.Repository.
type DocumentRepo struct {
	mu   sync.RWMutex
	byID map[id.ID]*documents.Document
}

var _ documents.Repository = (*DocumentRepo)(nil)

// NewDocumentRepo creates an empty repository.
func NewDocumentRepo() *DocumentRepo {
	return &DocumentRepo{byID: make(map[id.ID]*documents.Document)}
}

// conflicts reports whether a and b would violate a number uniqueness constraint.
func conflicts(a, b *documents.Document) bool {
	if a.ID == b.ID || a.Number != b.Number {
		return false
	}
	if a.Type == documents.TypePurchaseInvoice || b.Type == documents.TypePurchaseInvoice {
		return a.Type == b.Type && a.CounterpartyNIF == b.CounterpartyNIF
	}
	return a.Type == b.Type
}

func (r *DocumentRepo) checkUnique(doc *documents.Document) error {
	for _, other := range r.byID {
		if conflicts(doc, other) {
			return apperror.NewDuplicate("document", "number", doc.Number)
		}
	}
	return nil
}

// Create implements documents.Repository.
func (r *DocumentRepo) Create(_ context.Context, doc *documents.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[doc.ID]; ok {
		return apperror.NewDuplicate("document", "id", doc.ID.String())
	}
	if err := r.checkUnique(doc); err != nil {
		return err
	}
	doc.Version = 1
	r.byID[doc.ID] = doc.Clone()
	return nil
}

// Update implements documents.Repository.
func (r *DocumentRepo) Update(_ context.Context, doc *documents.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.byID[doc.ID]
	if !ok {
		return apperror.NewNotFound("document", doc.ID)
	}
	if stored.Version != doc.Version {
		return apperror.NewConcurrentModification("document", doc.ID)
	}
	if err := r.checkUnique(doc); err != nil {
		return err
	}
	doc.Version++
	r.byID[doc.ID] = doc.Clone()
	return nil
}

// GetByID implements documents.Repository.
func (r *DocumentRepo) GetByID(_ context.Context, docID id.ID) (*documents.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.byID[docID]
	if !ok {
		return nil, apperror.NewNotFound("document", docID)
	}
	return doc.Clone(), nil
}

func matches(doc *documents.Document, f documents.ListFilter) bool {
	if !f.From.IsZero() && doc.Date.Before(f.From) {
		return false
	}
	if !f.To.IsZero() && !doc.Date.Before(f.To) {
		return false
	}
	if !id.IsNil(f.SeriesID) && doc.SeriesID != f.SeriesID {
		return false
	}
	if f.Kind != "" && doc.Kind() != f.Kind {
		return false
	}
	if len(f.Types) > 0 && !slices.Contains(f.Types, doc.Type) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, doc.Status) {
		return false
	}
	if f.DueBefore != nil && (doc.DueDate == nil || !doc.DueDate.Before(*f.DueBefore)) {
		return false
	}
	return true
}

// List implements documents.Repository.
func (r *DocumentRepo) List(_ context.Context, filter documents.ListFilter) ([]*documents.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*documents.Document, 0)
	for _, doc := range r.byID {
		if matches(doc, filter) {
			out = append(out, doc.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].Number < out[j].Number
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// LastHash implements documents.Repository.
func (r *DocumentRepo) LastHash(_ context.Context, seriesID id.ID, docType documents.DocType) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var last *documents.Document
	for _, doc := range r.byID {
		if doc.SeriesID != seriesID || doc.Type != docType || !doc.IsCertified || doc.CertifiedAt == nil {
			continue
		}
		if last == nil || doc.CertifiedAt.After(*last.CertifiedAt) ||
			(doc.CertifiedAt.Equal(*last.CertifiedAt) && doc.Sequence > last.Sequence) {
			last = doc
		}
	}
	if last == nil {
		return "", nil
	}
	return last.Hash, nil
}
