// Package dto provides Data Transfer Objects for API requests/responses.
// Amounts travel as decimal strings; responses carry them rounded to two places.
package dto

import (
	"github.com/shopspring/decimal"

	"kitanda/internal/core/types"
)

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}

// NewListResponse builds a list envelope; nil becomes an empty array.
func NewListResponse[T any](items []T) ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{Items: items, TotalCount: len(items)}
}

func money(m types.Money) string {
	return types.Fixed(m)
}

func plain(d decimal.Decimal) string {
	return d.String()
}
