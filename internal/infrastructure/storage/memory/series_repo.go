// Package memory provides in-process repositories for tests and dev mode.
package memory

import (
	"context"
	"slices"
	"sort"
	"sync"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/domain/series"
)

// SeriesRepo is a map-backed series.Repository.
type SeriesRepo struct {
	mu   sync.RWMutex
	byID map[id.ID]*series.Series
}

var _ series.Repository = (*SeriesRepo)(nil)

// NewSeriesRepo creates an empty repository.
func NewSeriesRepo() *SeriesRepo {
	return &SeriesRepo{byID: make(map[id.ID]*series.Series)}
}

func cloneSeries(s *series.Series) *series.Series {
	c := *s
	c.AllowedUserIDs = slices.Clone(s.AllowedUserIDs)
	return &c
}

// Create implements series.Repository.
func (r *SeriesRepo) Create(_ context.Context, s *series.Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.byID {
		if existing.Code == s.Code && existing.Year == s.Year {
			return apperror.NewDuplicate("series", "code", s.Code)
		}
	}
	r.byID[s.ID] = cloneSeries(s)
	return nil
}

// GetByID implements series.Repository.
func (r *SeriesRepo) GetByID(_ context.Context, seriesID id.ID) (*series.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byID[seriesID]
	if !ok {
		return nil, apperror.NewNotFound("series", seriesID)
	}
	return cloneSeries(s), nil
}

// GetByCode implements series.Repository.
func (r *SeriesRepo) GetByCode(_ context.Context, code string, year int) (*series.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, s := range r.byID {
		if s.Code == code && s.Year == year {
			return cloneSeries(s), nil
		}
	}
	return nil, apperror.NewNotFound("series", code)
}

// List implements series.Repository.
func (r *SeriesRepo) List(_ context.Context, filter series.ListFilter) ([]*series.Series, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*series.Series, 0, len(r.byID))
	for _, s := range r.byID {
		if filter.Year != 0 && s.Year != filter.Year {
			continue
		}
		if filter.ActiveOnly && !s.IsActive {
			continue
		}
		out = append(out, cloneSeries(s))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		return out[i].Code < out[j].Code
	})
	return out, nil
}

// Update implements series.Repository.
func (r *SeriesRepo) Update(_ context.Context, s *series.Series) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[s.ID]; !ok {
		return apperror.NewNotFound("series", s.ID)
	}
	r.byID[s.ID] = cloneSeries(s)
	return nil
}
