package series

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"kitanda/internal/core/apperror"
	appctx "kitanda/internal/core/context"
	"kitanda/internal/core/id"
	"kitanda/internal/core/numerator"
	"kitanda/pkg/logger"
)

var tracer = otel.Tracer("kitanda/series")

// Allocation is a number handed out by the Allocator.
type Allocation struct {
	SeriesID  id.ID  `json:"seriesId"`
	DocType   string `json:"docType"`
	Year      int    `json:"year"`
	Sequence  int64  `json:"sequence"`
	Formatted string `json:"formatted"`
}

// Observer receives allocation outcomes.
type Observer interface {
	NumberAllocated(docType string)
	AllocationFailed(reason string)
}

type nopObserver struct{}

func (nopObserver) NumberAllocated(string)  {}
func (nopObserver) AllocationFailed(string) {}

// Failure reasons reported to Observer.
const (
	ReasonNotFound     = "not_found"
	ReasonInactive     = "inactive"
	ReasonUnauthorized = "unauthorized"
	ReasonManual       = "manual_series"
	ReasonStore        = "store"
	ReasonInvalid      = "invalid"
)

// Allocator hands out gap-free numbers per (series, document type, year).
//
// Preconditions are checked before the counter is touched, so a refused
// request never consumes a number. The increment itself is delegated to the
// numerator.Store, which joins the transaction in ctx when there is one.
type Allocator struct {
	repo     Repository
	store    numerator.Store
	observer Observer
}

// NewAllocator creates an allocator. observer may be nil.
func NewAllocator(repo Repository, store numerator.Store, observer Observer) *Allocator {
	if observer == nil {
		observer = nopObserver{}
	}
	return &Allocator{repo: repo, store: store, observer: observer}
}

// Allocate returns lastIssued+1 for the key and records it before returning.
// The acting user is read from ctx.
func (a *Allocator) Allocate(ctx context.Context, seriesID id.ID, docType string, year int) (Allocation, error) {
	ctx, span := tracer.Start(ctx, "series.allocate")
	defer span.End()
	span.SetAttributes(
		attribute.String("series.id", seriesID.String()),
		attribute.String("doc.type", docType),
		attribute.Int("doc.year", year),
	)

	s, err := a.usableSeries(ctx, seriesID, docType, year)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return Allocation{}, err
	}
	if s.Manual {
		a.observer.AllocationFailed(ReasonManual)
		return Allocation{}, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("series %s is manual; the number must be supplied", s.Code)).
			WithDetail("series", s.Code)
	}

	seq, err := a.store.Next(ctx, s.Key(docType, year))
	if err != nil {
		a.observer.AllocationFailed(ReasonStore)
		span.SetStatus(codes.Error, err.Error())
		return Allocation{}, fmt.Errorf("allocate %s on series %s: %w", docType, s.Code, err)
	}

	alloc := Allocation{
		SeriesID:  s.ID,
		DocType:   docType,
		Year:      year,
		Sequence:  seq,
		Formatted: numerator.FormatNumber(s.Format(docType, year), seq),
	}
	a.observer.NumberAllocated(docType)
	span.SetAttributes(attribute.Int64("doc.sequence", seq))

	logger.Debug(ctx, "number allocated", "series", s.Code, "number", alloc.Formatted)
	return alloc, nil
}

// RecordManual accepts an operator-supplied number on a manual series and
// raises the high-water mark so automatic allocation never collides with it.
func (a *Allocator) RecordManual(ctx context.Context, seriesID id.ID, docType string, year int, number int64) (Allocation, error) {
	if number <= 0 {
		a.observer.AllocationFailed(ReasonInvalid)
		return Allocation{}, apperror.NewValidation("manual number must be positive").
			WithDetail("field", "number").
			WithDetail("value", number)
	}

	s, err := a.usableSeries(ctx, seriesID, docType, year)
	if err != nil {
		return Allocation{}, err
	}
	if !s.Manual {
		a.observer.AllocationFailed(ReasonManual)
		return Allocation{}, apperror.NewBusinessRule(apperror.CodeBusinessRule,
			fmt.Sprintf("series %s numbers automatically", s.Code)).
			WithDetail("series", s.Code)
	}

	if _, err := a.store.Raise(ctx, s.Key(docType, year), number); err != nil {
		a.observer.AllocationFailed(ReasonStore)
		return Allocation{}, fmt.Errorf("record manual number on series %s: %w", s.Code, err)
	}

	return Allocation{
		SeriesID:  s.ID,
		DocType:   docType,
		Year:      year,
		Sequence:  number,
		Formatted: numerator.FormatNumber(s.Format(docType, year), number),
	}, nil
}

// SetNext moves the counter so the next allocation returns at least value.
// Used when migrating from another billing system; it never lowers a counter.
func (a *Allocator) SetNext(ctx context.Context, seriesID id.ID, docType string, year int, value int64) (int64, error) {
	if value < 1 {
		return 0, apperror.NewValidation("next number must be at least 1").
			WithDetail("field", "value").
			WithDetail("value", value)
	}
	s, err := a.repo.GetByID(ctx, seriesID)
	if err != nil {
		return 0, err
	}
	docType, err = normalizeDocType(docType)
	if err != nil {
		return 0, err
	}

	last, err := a.store.Raise(ctx, s.Key(docType, year), value-1)
	if err != nil {
		return 0, fmt.Errorf("set next on series %s: %w", s.Code, err)
	}
	logger.Info(ctx, "series counter raised", "series", s.Code, "type", docType, "year", year, "last", last)
	return last + 1, nil
}

// Current returns the last issued sequence for the key.
func (a *Allocator) Current(ctx context.Context, seriesID id.ID, docType string, year int) (int64, error) {
	return a.store.Current(ctx, numerator.Key{SeriesID: seriesID, DocType: docType, Year: year})
}

func (a *Allocator) usableSeries(ctx context.Context, seriesID id.ID, docType string, year int) (*Series, error) {
	if norm, err := normalizeDocType(docType); err != nil || norm != docType {
		a.observer.AllocationFailed(ReasonInvalid)
		return nil, apperror.NewValidation("document type must be an upper-case code").
			WithDetail("field", "docType").
			WithDetail("value", docType)
	}
	if year < 2000 || year > 9999 {
		a.observer.AllocationFailed(ReasonInvalid)
		return nil, apperror.NewValidation("year is out of range").
			WithDetail("field", "year").
			WithDetail("value", year)
	}

	s, err := a.repo.GetByID(ctx, seriesID)
	if err != nil {
		if apperror.IsNotFound(err) {
			a.observer.AllocationFailed(ReasonNotFound)
		}
		return nil, err
	}

	if err := s.CheckUsable(appctx.GetUserID(ctx)); err != nil {
		if apperror.HasCode(err, apperror.CodeSeriesInactive) {
			a.observer.AllocationFailed(ReasonInactive)
		} else {
			a.observer.AllocationFailed(ReasonUnauthorized)
		}
		logger.Warn(ctx, "allocation refused", "series", s.Code, "type", docType, "error", err)
		return nil, err
	}
	return s, nil
}

func normalizeDocType(docType string) (string, error) {
	docType = strings.ToUpper(strings.TrimSpace(docType))
	if docType == "" || strings.Contains(docType, "/") {
		return "", apperror.NewValidation("document type code is required").WithDetail("field", "docType")
	}
	return docType, nil
}
