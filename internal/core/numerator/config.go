// Package numerator provides domain contracts for fiscal document numbering.
package numerator

import (
	"fmt"

	"kitanda/internal/core/id"
)

// Key identifies one gap-free counter: one per series, document type and year.
type Key struct {
	SeriesID id.ID
	DocType  string
	Year     int
}

// String renders the key for logs and metric labels.
func (k Key) String() string {
	return fmt.Sprintf("%s:%s:%d", k.SeriesID, k.DocType, k.Year)
}

// Format describes how an allocated sequence is rendered.
type Format struct {
	// TypeCode is the fiscal document code (e.g. "FT", "NC")
	TypeCode string

	// SeriesCode is the series' declared code (e.g. "A", "2026LDA")
	SeriesCode string

	// Year is the counter year
	Year int

	// PadWidth zero-pads the sequence; 0 disables padding
	PadWidth int
}

// FormatNumber creates the final number string.
// Pattern: TYPE/SERIES/YEAR/SEQ (e.g. FT/A/2026/15)
func FormatNumber(f Format, seq int64) string {
	if f.PadWidth > 0 {
		return fmt.Sprintf("%s/%s/%d/%0*d", f.TypeCode, f.SeriesCode, f.Year, f.PadWidth, seq)
	}
	return fmt.Sprintf("%s/%s/%d/%d", f.TypeCode, f.SeriesCode, f.Year, seq)
}
