// Package id provides identifiers for documents, series and audit entries.
// UUIDv7 keeps documents of a period physically close in the documents index.
package id

import (
	"github.com/google/uuid"
)

// ID is a type alias for UUID.
type ID = uuid.UUID

// New generates a new UUIDv7, falling back to V4.
func New() ID {
	v, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return v
}

// Parse converts string to ID with validation.
func Parse(s string) (ID, error) {
	return uuid.Parse(s)
}

// MustParse converts string to ID, panics on error.
// Use only for tests.
func MustParse(s string) ID {
	return uuid.MustParse(s)
}

// IsNil checks if ID is zero-value.
func IsNil(v ID) bool {
	return v == uuid.Nil
}

// Short returns the last 12 hex characters, used for draft placeholder
// numbers. The leading digits of a UUIDv7 are its timestamp, the tail is random.
func Short(v ID) string {
	s := v.String()
	return s[len(s)-12:]
}
