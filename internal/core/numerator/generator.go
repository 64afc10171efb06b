// Package numerator provides domain contracts for fiscal document numbering.
// Implementations live in infrastructure layer.
package numerator

import (
	"context"
)

// Store keeps the last issued number per Key.
//
// Every implementation must make Next an atomic read-modify-write: two
// concurrent callers for the same Key never observe the same value, and a
// value is durable before it is returned. When a transaction is present in ctx
// the increment joins it, so the number becomes visible exactly when the
// document carrying it commits.
type Store interface {
	// Next increments the counter and returns the new last-issued value (first call returns 1).
	Next(ctx context.Context, key Key) (int64, error)

	// Raise moves the high-water mark up to value; it never lowers it.
	// Returns the resulting high-water mark.
	Raise(ctx context.Context, key Key, value int64) (int64, error)

	// Current returns the last issued value, 0 when nothing was issued.
	Current(ctx context.Context, key Key) (int64, error)
}
