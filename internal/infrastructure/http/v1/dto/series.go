package dto

import (
	"time"

	"kitanda/internal/domain/series"
)

// CreateSeriesRequest is the request body for creating a series.
type CreateSeriesRequest struct {
	Code           string   `json:"code" binding:"required"`
	Name           string   `json:"name"`
	Year           int      `json:"year" binding:"required"`
	Manual         bool     `json:"manual"`
	PadWidth       int      `json:"padWidth"`
	AllowedUserIDs []string `json:"allowedUserIds"`
}

// ToEntity converts DTO to domain entity.
func (r *CreateSeriesRequest) ToEntity() *series.Series {
	s := series.NewSeries(r.Code, r.Name, r.Year)
	s.Manual = r.Manual
	s.PadWidth = r.PadWidth
	s.AllowedUserIDs = r.AllowedUserIDs
	return s
}

// ListSeriesQuery filters GET /series.
type ListSeriesQuery struct {
	Year       int  `form:"year"`
	ActiveOnly bool `form:"activeOnly"`
}

// AllocateRequest asks for the next number of a document type.
type AllocateRequest struct {
	DocType string `json:"docType" binding:"required"`
	Year    int    `json:"year"`
}

// ManualNumberRequest records a number taken from a manual series.
type ManualNumberRequest struct {
	DocType string `json:"docType" binding:"required"`
	Year    int    `json:"year"`
	Number  int64  `json:"number" binding:"required,min=1"`
}

// SetNextRequest raises a counter during migration from another system.
type SetNextRequest struct {
	DocType string `json:"docType" binding:"required"`
	Year    int    `json:"year"`
	Value   int64  `json:"value" binding:"required,min=1"`
}

// SetActiveRequest toggles a series.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// AllowedUsersRequest replaces the series allow-list.
type AllowedUsersRequest struct {
	UserIDs []string `json:"userIds"`
}

// SeriesResponse is the API view of a series.
type SeriesResponse struct {
	ID             string    `json:"id"`
	Code           string    `json:"code"`
	Name           string    `json:"name"`
	Year           int       `json:"year"`
	IsActive       bool      `json:"isActive"`
	Manual         bool      `json:"manual"`
	PadWidth       int       `json:"padWidth"`
	AllowedUserIDs []string  `json:"allowedUserIds"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// FromSeries converts domain entity to DTO.
func FromSeries(s *series.Series) SeriesResponse {
	allowed := s.AllowedUserIDs
	if allowed == nil {
		allowed = []string{}
	}
	return SeriesResponse{
		ID:             s.ID.String(),
		Code:           s.Code,
		Name:           s.Name,
		Year:           s.Year,
		IsActive:       s.IsActive,
		Manual:         s.Manual,
		PadWidth:       s.PadWidth,
		AllowedUserIDs: allowed,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

// AllocationResponse is a number handed out by a series.
type AllocationResponse struct {
	SeriesID string `json:"seriesId"`
	DocType  string `json:"docType"`
	Year     int    `json:"year"`
	Sequence int64  `json:"sequence"`
	Number   string `json:"number"`
}

// FromAllocation converts an allocation to DTO.
func FromAllocation(a series.Allocation) AllocationResponse {
	return AllocationResponse{
		SeriesID: a.SeriesID.String(),
		DocType:  a.DocType,
		Year:     a.Year,
		Sequence: a.Sequence,
		Number:   a.Formatted,
	}
}

// CounterResponse reports a counter: the last sequence handed out and the next one.
type CounterResponse struct {
	DocType string `json:"docType"`
	Year    int    `json:"year"`
	Last    int64  `json:"last"`
	Next    int64  `json:"next"`
}

// NewCounterResponse builds the response from the last sequence.
func NewCounterResponse(docType string, year int, last int64) CounterResponse {
	return CounterResponse{DocType: docType, Year: year, Last: last, Next: last + 1}
}
