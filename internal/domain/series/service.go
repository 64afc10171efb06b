package series

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/pkg/logger"
)

// Service provides series administration.
type Service struct {
	repo Repository
}

// NewService creates a new series service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Create validates and stores a new series. Code and year must be unique.
func (s *Service) Create(ctx context.Context, series *Series) error {
	if err := series.Validate(); err != nil {
		return err
	}

	existing, err := s.repo.GetByCode(ctx, series.Code, series.Year)
	if err != nil && !apperror.IsNotFound(err) {
		return fmt.Errorf("check series code: %w", err)
	}
	if existing != nil {
		return apperror.NewDuplicate("series", "code", fmt.Sprintf("%s/%d", series.Code, series.Year))
	}

	if err := s.repo.Create(ctx, series); err != nil {
		return fmt.Errorf("create series: %w", err)
	}

	logger.Info(ctx, "series created", "id", series.ID, "code", series.Code, "year", series.Year, "manual", series.Manual)
	return nil
}

// Get returns a series by id.
func (s *Service) Get(ctx context.Context, seriesID id.ID) (*Series, error) {
	return s.repo.GetByID(ctx, seriesID)
}

// GetByCode returns the series with code in year.
func (s *Service) GetByCode(ctx context.Context, code string, year int) (*Series, error) {
	return s.repo.GetByCode(ctx, strings.ToUpper(strings.TrimSpace(code)), year)
}

// List returns series matching filter ordered by year and code.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Series, error) {
	return s.repo.List(ctx, filter)
}

// SetActive enables or disables issuing on a series.
func (s *Service) SetActive(ctx context.Context, seriesID id.ID, active bool) (*Series, error) {
	series, err := s.repo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}
	if series.IsActive == active {
		return series, nil
	}

	series.IsActive = active
	series.UpdatedAt = time.Now().UTC()
	if err := s.repo.Update(ctx, series); err != nil {
		return nil, fmt.Errorf("update series: %w", err)
	}

	logger.Info(ctx, "series activity changed", "code", series.Code, "active", active)
	return series, nil
}

// SetAllowedUsers replaces the allow-list. An empty list opens the series to everyone.
func (s *Service) SetAllowedUsers(ctx context.Context, seriesID id.ID, userIDs []string) (*Series, error) {
	series, err := s.repo.GetByID(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	cleaned := make([]string, 0, len(userIDs))
	for _, u := range userIDs {
		if u = strings.TrimSpace(u); u != "" {
			cleaned = append(cleaned, u)
		}
	}
	slices.Sort(cleaned)
	series.AllowedUserIDs = slices.Compact(cleaned)
	series.UpdatedAt = time.Now().UTC()

	if err := s.repo.Update(ctx, series); err != nil {
		return nil, fmt.Errorf("update series: %w", err)
	}
	return series, nil
}
