// Package series manages numbering authorities and allocates fiscal document numbers.
package series

import (
	"slices"
	"strings"
	"time"

	"kitanda/internal/core/apperror"
	"kitanda/internal/core/id"
	"kitanda/internal/core/numerator"
)

// Series is a numbering authority. It keeps one counter per document type
// and year; the counters themselves live in a numerator.Store.
type Series struct {
	ID   id.ID  `db:"id" json:"id"`
	Code string `db:"code" json:"code"`
	Name string `db:"name" json:"name"`
	Year int    `db:"year" json:"year"`

	IsActive bool `db:"is_active" json:"isActive"`

	// Manual series take numbers supplied by the operator (pre-printed books).
	Manual bool `db:"manual" json:"manual"`

	// PadWidth zero-pads the sequence in formatted numbers; 0 disables padding.
	PadWidth int `db:"pad_width" json:"padWidth"`

	// AllowedUserIDs restricts who may issue on the series. Empty means everyone.
	AllowedUserIDs []string `db:"allowed_user_ids" json:"allowedUserIds"`

	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// NewSeries creates an active, automatic series.
func NewSeries(code, name string, year int) *Series {
	now := time.Now().UTC()
	return &Series{
		ID:        id.New(),
		Code:      strings.ToUpper(strings.TrimSpace(code)),
		Name:      name,
		Year:      year,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Validate checks the series attributes.
func (s *Series) Validate() error {
	if s.Code == "" {
		return apperror.NewValidation("series code is required").WithDetail("field", "code")
	}
	if strings.ContainsAny(s.Code, "/ ") {
		return apperror.NewValidation("series code must not contain '/' or spaces").
			WithDetail("field", "code").
			WithDetail("value", s.Code)
	}
	if s.Year < 2000 || s.Year > 9999 {
		return apperror.NewValidation("series year is out of range").
			WithDetail("field", "year").
			WithDetail("value", s.Year)
	}
	if s.PadWidth < 0 || s.PadWidth > 10 {
		return apperror.NewValidation("pad width must be between 0 and 10").
			WithDetail("field", "padWidth").
			WithDetail("value", s.PadWidth)
	}
	return nil
}

// Allows reports whether userID may issue on this series.
func (s *Series) Allows(userID string) bool {
	if len(s.AllowedUserIDs) == 0 {
		return true
	}
	return slices.Contains(s.AllowedUserIDs, userID)
}

// CheckUsable returns the first precondition that forbids issuing on the series.
func (s *Series) CheckUsable(userID string) error {
	if !s.IsActive {
		return apperror.NewSeriesInactive(s.Code)
	}
	if !s.Allows(userID) {
		return apperror.NewSeriesNotAuthorized(s.Code, userID)
	}
	return nil
}

// Key returns the counter key for docType in year.
func (s *Series) Key(docType string, year int) numerator.Key {
	return numerator.Key{SeriesID: s.ID, DocType: docType, Year: year}
}

// Format returns the number format for docType in year.
func (s *Series) Format(docType string, year int) numerator.Format {
	return numerator.Format{
		TypeCode:   docType,
		SeriesCode: s.Code,
		Year:       year,
		PadWidth:   s.PadWidth,
	}
}
