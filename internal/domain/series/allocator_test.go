package series_test

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kitanda/internal/core/apperror"
	appctx "kitanda/internal/core/context"
	"kitanda/internal/core/id"
	corenumerator "kitanda/internal/core/numerator"
	"kitanda/internal/domain/series"
	"kitanda/internal/infrastructure/numerator"
	"kitanda/internal/infrastructure/storage/memory"
)

type countingObserver struct {
	mu       sync.Mutex
	ok       int
	failures map[string]int
}

func (o *countingObserver) NumberAllocated(string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.ok++
}

func (o *countingObserver) AllocationFailed(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.failures == nil {
		o.failures = map[string]int{}
	}
	o.failures[reason]++
}

type fixture struct {
	repo      *memory.SeriesRepo
	store     *numerator.MemoryStore
	observer  *countingObserver
	allocator *series.Allocator
	series    *series.Series
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repo:     memory.NewSeriesRepo(),
		store:    numerator.NewMemoryStore(),
		observer: &countingObserver{},
	}
	f.allocator = series.NewAllocator(f.repo, f.store, f.observer)
	f.series = series.NewSeries("A", "Main", 2026)
	require.NoError(t, f.repo.Create(context.Background(), f.series))
	return f
}

func asUser(userID string) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: userID})
}

func TestAllocate_FormatsNumber(t *testing.T) {
	f := newFixture(t)
	ctx := asUser("u1")

	first, err := f.allocator.Allocate(ctx, f.series.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Sequence)
	assert.Equal(t, "FT/A/2026/1", first.Formatted)

	second, err := f.allocator.Allocate(ctx, f.series.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Equal(t, "FT/A/2026/2", second.Formatted)

	// counters are independent per type and per year
	nc, err := f.allocator.Allocate(ctx, f.series.ID, "NC", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), nc.Sequence)

	next, err := f.allocator.Allocate(ctx, f.series.ID, "FT", 2027)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next.Sequence)
	assert.Equal(t, 4, f.observer.ok)
}

func TestAllocate_PadWidth(t *testing.T) {
	f := newFixture(t)
	padded := series.NewSeries("B", "Padded", 2026)
	padded.PadWidth = 5
	require.NoError(t, f.repo.Create(context.Background(), padded))

	alloc, err := f.allocator.Allocate(context.Background(), padded.ID, "FR", 2026)
	require.NoError(t, err)
	assert.Equal(t, "FR/B/2026/00001", alloc.Formatted)
}

func TestAllocate_ConcurrentIsGapFree(t *testing.T) {
	f := newFixture(t)
	const n = 200

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seqs []int64
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			alloc, err := f.allocator.Allocate(context.Background(), f.series.ID, "FT", 2026)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seqs = append(seqs, alloc.Sequence)
			mu.Unlock()
		}()
	}
	wg.Wait()

	require.Len(t, seqs, n)
	sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
	for i, s := range seqs {
		assert.Equal(t, int64(i+1), s)
	}
}

func TestAllocate_InactiveConsumesNothing(t *testing.T) {
	f := newFixture(t)
	svc := series.NewService(f.repo)
	ctx := context.Background()

	_, err := f.allocator.Allocate(ctx, f.series.ID, "FT", 2026)
	require.NoError(t, err)

	_, err = svc.SetActive(ctx, f.series.ID, false)
	require.NoError(t, err)

	_, err = f.allocator.Allocate(ctx, f.series.ID, "FT", 2026)
	assert.True(t, apperror.HasCode(err, apperror.CodeSeriesInactive))
	assert.Equal(t, 1, f.observer.failures[series.ReasonInactive])

	_, err = svc.SetActive(ctx, f.series.ID, true)
	require.NoError(t, err)

	alloc, err := f.allocator.Allocate(ctx, f.series.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(2), alloc.Sequence)
}

func TestAllocate_AllowList(t *testing.T) {
	f := newFixture(t)
	svc := series.NewService(f.repo)

	_, err := svc.SetAllowedUsers(context.Background(), f.series.ID, []string{"alice", " ", "alice"})
	require.NoError(t, err)

	_, err = f.allocator.Allocate(asUser("bob"), f.series.ID, "FT", 2026)
	require.Error(t, err)
	assert.True(t, apperror.HasCode(err, apperror.CodeSeriesNotAuthorized))
	assert.Equal(t, 403, apperror.GetHTTPStatus(err))

	cur, err := f.allocator.Current(context.Background(), f.series.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Zero(t, cur)

	alloc, err := f.allocator.Allocate(asUser("alice"), f.series.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(1), alloc.Sequence)
}

func TestAllocate_UnknownSeries(t *testing.T) {
	f := newFixture(t)
	_, err := f.allocator.Allocate(context.Background(), id.New(), "FT", 2026)
	assert.True(t, apperror.IsNotFound(err))
	assert.Equal(t, 1, f.observer.failures[series.ReasonNotFound])
}

func TestAllocate_RejectsBadInput(t *testing.T) {
	f := newFixture(t)
	_, err := f.allocator.Allocate(context.Background(), f.series.ID, "ft", 2026)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))

	_, err = f.allocator.Allocate(context.Background(), f.series.ID, "FT", 26)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestAllocate_StoreFailureIsWrapped(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("connection reset")
	store := &corenumerator.MockStore{
		NextFunc: func(context.Context, corenumerator.Key) (int64, error) { return 0, boom },
	}
	alloc := series.NewAllocator(f.repo, store, f.observer)

	_, err := alloc.Allocate(context.Background(), f.series.ID, "FT", 2026)
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, f.observer.failures[series.ReasonStore])
}

func TestRecordManual_RaisesHighWaterMark(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	book := series.NewSeries("M", "Manual book", 2026)
	book.Manual = true
	require.NoError(t, f.repo.Create(ctx, book))

	_, err := f.allocator.Allocate(ctx, book.ID, "FT", 2026)
	assert.True(t, apperror.HasCode(err, apperror.CodeBusinessRule))

	got, err := f.allocator.RecordManual(ctx, book.ID, "FT", 2026, 40)
	require.NoError(t, err)
	assert.Equal(t, "FT/M/2026/40", got.Formatted)

	_, err = f.allocator.RecordManual(ctx, book.ID, "FT", 2026, 12)
	require.NoError(t, err)

	cur, err := f.allocator.Current(ctx, book.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(40), cur)

	// switching the book to automatic numbering continues after the highest manual number
	book.Manual = false
	require.NoError(t, f.repo.Update(ctx, book))
	alloc, err := f.allocator.Allocate(ctx, book.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(41), alloc.Sequence)

	_, err = f.allocator.RecordManual(ctx, book.ID, "FT", 2026, 0)
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestSetNext_NeverLowers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	next, err := f.allocator.SetNext(ctx, f.series.ID, "ft", 2026, 100)
	require.NoError(t, err)
	assert.Equal(t, int64(100), next)

	alloc, err := f.allocator.Allocate(ctx, f.series.ID, "FT", 2026)
	require.NoError(t, err)
	assert.Equal(t, int64(100), alloc.Sequence)

	next, err = f.allocator.SetNext(ctx, f.series.ID, "FT", 2026, 50)
	require.NoError(t, err)
	assert.Equal(t, int64(101), next)
}
