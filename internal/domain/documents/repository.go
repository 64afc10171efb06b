package documents

import (
	"context"
	"time"

	"kitanda/internal/core/id"
	"kitanda/internal/domain/totals"
)

// ListFilter narrows List results. Zero values mean "any".
type ListFilter struct {
	// From and To bound the document date: From <= date < To
	From time.Time
	To   time.Time

	// SeriesID restricts to one numbering series when set
	SeriesID id.ID

	Kind     totals.Kind
	Types    []DocType
	Statuses []Status

	// DueBefore keeps documents whose due date is strictly earlier
	DueBefore *time.Time

	Limit int
}

// Repository persists documents with their items.
type Repository interface {
	// Create stores a new document. Fiscal numbers are unique per type;
	// supplier numbers are unique per supplier NIF.
	Create(ctx context.Context, doc *Document) error

	// Update replaces the document when doc.Version matches the stored one,
	// then increments doc.Version. A mismatch is CONCURRENT_MODIFICATION.
	Update(ctx context.Context, doc *Document) error

	GetByID(ctx context.Context, docID id.ID) (*Document, error)

	// List returns matching documents ordered by date, then number.
	List(ctx context.Context, filter ListFilter) ([]*Document, error)

	// LastHash returns the hash of the most recently certified document
	// of the series and type, or "" for the first one.
	LastHash(ctx context.Context, seriesID id.ID, docType DocType) (string, error)
}
