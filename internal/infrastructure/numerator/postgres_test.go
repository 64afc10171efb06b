package numerator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitanda/internal/core/id"
	corenumerator "kitanda/internal/core/numerator"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

// mockQuerier simulates the fiscal_counters table.
type mockQuerier struct {
	mu       sync.Mutex
	counters map[string]int64
	calls    int

	// failures are returned, in order, before the table is touched
	failures []error
}

func newMockQuerier(failures ...error) *mockQuerier {
	return &mockQuerier{counters: map[string]int64{}, failures: failures}
}

func (m *mockQuerier) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++

	if len(m.failures) > 0 {
		err := m.failures[0]
		m.failures = m.failures[1:]
		return &mockRow{err: err}
	}

	key := fmt.Sprint(args[0], args[1], args[2])
	switch {
	case strings.Contains(sql, "SELECT"):
		v, ok := m.counters[key]
		if !ok {
			return &mockRow{err: pgx.ErrNoRows}
		}
		return &mockRow{val: v}
	case strings.Contains(sql, "GREATEST"):
		if v := args[3].(int64); v > m.counters[key] {
			m.counters[key] = v
		}
	default:
		m.counters[key]++
	}
	return &mockRow{val: m.counters[key]}
}

var fastRetry = RetryPolicy{Attempts: 3, BaseDelay: time.Millisecond}

func testKey() corenumerator.Key {
	return corenumerator.Key{SeriesID: id.New(), DocType: "FT", Year: 2026}
}

func TestNext(t *testing.T) {
	store := New(newMockQuerier(), fastRetry)
	ctx := context.Background()
	key := testKey()

	for want := int64(1); want <= 3; want++ {
		got, err := store.Next(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	other := key
	other.Year = 2027
	got, err := store.Next(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestRaiseAndCurrent(t *testing.T) {
	store := New(newMockQuerier(), fastRetry)
	ctx := context.Background()
	key := testKey()

	cur, err := store.Current(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, cur)

	got, err := store.Raise(ctx, key, 40)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got)

	got, err = store.Raise(ctx, key, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(40), got)

	next, err := store.Next(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(41), next)

	cur, err = store.Current(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(41), cur)
}

func TestNext_RetriesTransientContention(t *testing.T) {
	q := newMockQuerier(&pgconn.PgError{Code: "40001"}, &pgconn.PgError{Code: "40P01"})
	store := New(q, fastRetry)

	got, err := store.Next(context.Background(), testKey())
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	assert.Equal(t, 3, q.calls)
}

func TestNext_GivesUpAfterAttempts(t *testing.T) {
	lock := &pgconn.PgError{Code: "55P03"}
	q := newMockQuerier(lock, lock, lock, lock)
	store := New(q, fastRetry)

	_, err := store.Next(context.Background(), testKey())
	require.Error(t, err)
	var pgErr *pgconn.PgError
	assert.True(t, errors.As(err, &pgErr))
	assert.Equal(t, 3, q.calls)
}

func TestNext_DoesNotRetryOtherErrors(t *testing.T) {
	q := newMockQuerier(&pgconn.PgError{Code: "23503"})
	store := New(q, fastRetry)

	_, err := store.Next(context.Background(), testKey())
	require.Error(t, err)
	assert.Equal(t, 1, q.calls)
}

type txSource struct{ q Querier }

func (s txSource) QuerierFor(context.Context) (Querier, bool) { return s.q, true }

func TestNext_InsideTransactionIsNotRetried(t *testing.T) {
	q := newMockQuerier(&pgconn.PgError{Code: "40001"})
	store := NewWithSource(txSource{q: q}, fastRetry)

	_, err := store.Next(context.Background(), testKey())
	require.Error(t, err)
	assert.Equal(t, 1, q.calls)
}

func TestNext_Concurrent(t *testing.T) {
	store := New(newMockQuerier(), fastRetry)
	key := testKey()
	const n = 100

	results := make(chan int64, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.Next(context.Background(), key)
			assert.NoError(t, err)
			results <- v
		}()
	}
	wg.Wait()
	close(results)

	seen := map[int64]bool{}
	for v := range results {
		assert.False(t, seen[v], "duplicate %d", v)
		seen[v] = true
	}
	assert.Len(t, seen, n)
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	key := testKey()

	v, err := store.Next(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)

	v, err = store.Raise(ctx, key, 9)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)

	v, err = store.Raise(ctx, key, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(9), v)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = store.Next(cancelled, key)
	assert.ErrorIs(t, err, context.Canceled)
}
