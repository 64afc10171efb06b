package numerator

import (
	"context"
)

// MockStore is a test implementation of Store.
// Use in unit tests to avoid database dependencies.
type MockStore struct {
	NextFunc    func(ctx context.Context, key Key) (int64, error)
	RaiseFunc   func(ctx context.Context, key Key, value int64) (int64, error)
	CurrentFunc func(ctx context.Context, key Key) (int64, error)
}

// Next implements Store.
func (m *MockStore) Next(ctx context.Context, key Key) (int64, error) {
	if m.NextFunc != nil {
		return m.NextFunc(ctx, key)
	}
	return 1, nil
}

// Raise implements Store.
func (m *MockStore) Raise(ctx context.Context, key Key, value int64) (int64, error) {
	if m.RaiseFunc != nil {
		return m.RaiseFunc(ctx, key, value)
	}
	return value, nil
}

// Current implements Store.
func (m *MockStore) Current(ctx context.Context, key Key) (int64, error) {
	if m.CurrentFunc != nil {
		return m.CurrentFunc(ctx, key)
	}
	return 0, nil
}

// Ensure compile-time interface compliance.
var _ Store = (*MockStore)(nil)
