package series

import (
	"context"

	"kitanda/internal/core/id"
)

// ListFilter narrows List results.
type ListFilter struct {
	Year       int
	ActiveOnly bool
}

// Repository persists series definitions.
type Repository interface {
	Create(ctx context.Context, s *Series) error
	GetByID(ctx context.Context, seriesID id.ID) (*Series, error)
	GetByCode(ctx context.Context, code string, year int) (*Series, error)
	List(ctx context.Context, filter ListFilter) ([]*Series, error)
	Update(ctx context.Context, s *Series) error
}
