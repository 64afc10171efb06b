// Package numerator provides the counter stores behind fiscal numbering.
// This is the infrastructure layer - it implements core/numerator.Store.
package numerator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	corenumerator "kitanda/internal/core/numerator"
	"kitanda/internal/infrastructure/storage/postgres"
	"kitanda/pkg/logger"
)

// Querier interface for database operations.
type Querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Source resolves the querier for ctx and reports whether it is a transaction.
type Source interface {
	QuerierFor(ctx context.Context) (Querier, bool)
}

type staticSource struct{ q Querier }

func (s staticSource) QuerierFor(context.Context) (Querier, bool) { return s.q, false }

// TxSource uses the transaction in ctx when there is one, the pool otherwise.
type TxSource struct {
	Manager *postgres.TxManager
}

// QuerierFor implements Source.
func (s TxSource) QuerierFor(ctx context.Context) (Querier, bool) {
	if tx := s.Manager.GetTx(ctx); tx != nil {
		return tx.Tx, true
	}
	return s.Manager.GetQuerier(ctx), false
}

// RetryPolicy bounds retries on transient contention.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
}

// DefaultRetryPolicy returns 5 attempts with linear 20ms backoff.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Attempts: 5, BaseDelay: 20 * time.Millisecond}
}

// PostgresStore keeps counters in the fiscal_counters table.
//
// Every increment is a single UPSERT ... RETURNING: the row lock taken by
// the conflicting update serialises concurrent callers for one key. There is
// no in-memory range cache; a cached range would leave gaps on restart.
type PostgresStore struct {
	source Source
	retry  RetryPolicy
}

var _ corenumerator.Store = (*PostgresStore)(nil)

// New creates a store over a fixed querier (pool or test double).
func New(querier Querier, retry RetryPolicy) *PostgresStore {
	return NewWithSource(staticSource{q: querier}, retry)
}

// NewWithSource creates a store that resolves its querier per call.
func NewWithSource(source Source, retry RetryPolicy) *PostgresStore {
	if retry.Attempts < 1 {
		retry.Attempts = 1
	}
	return &PostgresStore{source: source, retry: retry}
}

const (
	nextSQL = `
		INSERT INTO fiscal_counters (series_id, doc_type, year, last_value)
		VALUES ($1, $2, $3, 1)
		ON CONFLICT (series_id, doc_type, year)
		DO UPDATE SET last_value = fiscal_counters.last_value + 1, updated_at = now()
		RETURNING last_value`

	raiseSQL = `
		INSERT INTO fiscal_counters (series_id, doc_type, year, last_value)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (series_id, doc_type, year)
		DO UPDATE SET last_value = GREATEST(fiscal_counters.last_value, EXCLUDED.last_value), updated_at = now()
		RETURNING last_value`

	currentSQL = `
		SELECT last_value FROM fiscal_counters
		WHERE series_id = $1 AND doc_type = $2 AND year = $3`
)

// Next implements corenumerator.Store.
func (s *PostgresStore) Next(ctx context.Context, key corenumerator.Key) (int64, error) {
	n, err := s.scalar(ctx, "next", nextSQL, key.SeriesID, key.DocType, key.Year)
	if err != nil {
		return 0, fmt.Errorf("next %s: %w", key, err)
	}
	return n, nil
}

// Raise implements corenumerator.Store.
func (s *PostgresStore) Raise(ctx context.Context, key corenumerator.Key, value int64) (int64, error) {
	if value < 0 {
		value = 0
	}
	n, err := s.scalar(ctx, "raise", raiseSQL, key.SeriesID, key.DocType, key.Year, value)
	if err != nil {
		return 0, fmt.Errorf("raise %s: %w", key, err)
	}
	return n, nil
}

// Current implements corenumerator.Store.
func (s *PostgresStore) Current(ctx context.Context, key corenumerator.Key) (int64, error) {
	n, err := s.scalar(ctx, "current", currentSQL, key.SeriesID, key.DocType, key.Year)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("current %s: %w", key, err)
	}
	return n, nil
}

// scalar runs a single-value query. Transient contention is retried with
// backoff, except inside a transaction: an aborted transaction cannot run
// another statement, so the error goes back to the transaction owner.
func (s *PostgresStore) scalar(ctx context.Context, op, sql string, args ...any) (int64, error) {
	var lastErr error
	for attempt := 1; attempt <= s.retry.Attempts; attempt++ {
		querier, inTx := s.source.QuerierFor(ctx)

		var n int64
		err := querier.QueryRow(ctx, sql, args...).Scan(&n)
		if err == nil {
			return n, nil
		}
		if inTx || !postgres.IsTransient(err) {
			return 0, err
		}

		lastErr = err
		logger.Warn(ctx, "counter contention, retrying",
			"op", op,
			"attempt", attempt,
			"reason", postgres.Classify(err))

		if attempt == s.retry.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(s.retry.BaseDelay * time.Duration(attempt)):
		}
	}
	return 0, fmt.Errorf("gave up after %d attempts: %w", s.retry.Attempts, lastErr)
}
