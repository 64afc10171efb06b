// Package tx provides transaction management abstractions.
// Domain services depend on these interfaces, not on a concrete database.
package tx

import (
	"context"
)

// Manager defines the contract for transaction management.
//
// The actual implementations live in infrastructure/storage/postgres
// and infrastructure/storage/memory.
type Manager interface {
	// RunInTransaction executes fn within a database transaction.
	// If fn returns an error, the transaction is rolled back.
	// Nested calls reuse the existing transaction from context.
	RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// ReadOnlyRunner runs fn against a consistent read-only snapshot.
type ReadOnlyRunner interface {
	ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error
}

// NoopManager runs fn directly. Used by pure in-memory setups where every
// store is already internally synchronised.
type NoopManager struct{}

// RunInTransaction implements Manager.
func (NoopManager) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ReadOnly implements ReadOnlyRunner.
func (NoopManager) ReadOnly(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var (
	_ Manager        = NoopManager{}
	_ ReadOnlyRunner = NoopManager{}
)
