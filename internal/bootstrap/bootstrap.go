// Package bootstrap wires storage, numbering and the fiscal services from
// configuration. cmd/server and cmd/seriesctl share it.
package bootstrap

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	corenumerator "kitanda/internal/core/numerator"
	"kitanda/internal/core/tx"
	"kitanda/internal/config"
	"kitanda/internal/domain/audit"
	"kitanda/internal/domain/currency"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/reports/model7"
	"kitanda/internal/domain/series"
	"kitanda/internal/domain/totals"
	"kitanda/internal/infrastructure/metrics"
	"kitanda/internal/infrastructure/numerator"
	"kitanda/internal/infrastructure/storage/memory"
	"kitanda/internal/infrastructure/storage/postgres"
	"kitanda/internal/infrastructure/storage/postgres/document_repo"
	"kitanda/internal/infrastructure/storage/postgres/migrations"
	"kitanda/internal/infrastructure/storage/postgres/series_repo"
	"kitanda/pkg/logger"
)

// Deps is the wired application.
type Deps struct {
	Documents *documents.Service
	Series    *series.Service
	Allocator *series.Allocator
	Converter *currency.Converter
	Model7    *model7.Service
	History   audit.Reader
	Metrics   *metrics.Fiscal

	// TxManager is nil in memory mode
	TxManager *postgres.TxManager

	pool *postgres.Pool
}

// LogPoolStats logs connection pool usage. No-op in memory mode.
func (d *Deps) LogPoolStats(ctx context.Context) {
	if d.pool != nil {
		postgres.LogPoolStats(ctx, d.pool.Unwrap())
	}
}

// Close releases the database pool.
func (d *Deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
}

// Open builds every service for cfg. registerer receives the fiscal
// metrics; nil uses the default registry.
func Open(ctx context.Context, cfg *config.Config, registerer prometheus.Registerer) (*Deps, error) {
	rules, err := cfg.Rules()
	if err != nil {
		return nil, err
	}
	rates, err := cfg.ExchangeRates()
	if err != nil {
		return nil, err
	}
	converter, err := currency.NewConverter(rates)
	if err != nil {
		return nil, fmt.Errorf("exchange rates: %w", err)
	}

	d := &Deps{Converter: converter, Metrics: metrics.New(registerer)}

	var (
		seriesRepo series.Repository
		docRepo    documents.Repository
		store      corenumerator.Store
		txManager  tx.Manager
		auditLog   audit.Logger
	)

	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.Storage.DSN)
		poolCfg.MaxConns = cfg.Storage.MaxConns
		poolCfg.MinConns = cfg.Storage.MinConns
		poolCfg.LockTimeout = cfg.Storage.LockTimeout
		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, err
		}
		d.pool = pool

		if cfg.Storage.MigrateOnStart {
			if err := migrations.UpFromPool(pool.Unwrap()); err != nil {
				pool.Close()
				return nil, err
			}
			logger.Info(ctx, "database migrations applied")
		}

		txm := postgres.NewTxManager(pool)
		txm.SetAttempts(cfg.Storage.TxAttempts)
		pgAudit, err := postgres.NewAuditLog(txm)
		if err != nil {
			pool.Close()
			return nil, err
		}

		d.TxManager = txm
		seriesRepo = series_repo.New(txm)
		docRepo = document_repo.New(txm)
		retry := numerator.DefaultRetryPolicy()
		if cfg.Numbers.RetryAttempts > 0 {
			retry.Attempts = cfg.Numbers.RetryAttempts
		}
		if cfg.Numbers.RetryDelay > 0 {
			retry.BaseDelay = cfg.Numbers.RetryDelay
		}
		store = numerator.NewWithSource(numerator.TxSource{Manager: txm}, retry)
		txManager = txm
		auditLog = pgAudit
		d.History = pgAudit

	case config.StorageMemory:
		memAudit := &audit.Memory{}
		seriesRepo = memory.NewSeriesRepo()
		docRepo = memory.NewDocumentRepo()
		store = numerator.NewMemoryStore()
		txManager = tx.NoopManager{}
		auditLog = memAudit
		d.History = memAudit
		logger.Warn(ctx, "using in-memory storage; data is lost on restart")

	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}

	d.Series = series.NewService(seriesRepo)
	d.Allocator = series.NewAllocator(seriesRepo, store, d.Metrics)
	d.Documents = documents.NewService(docRepo, d.Allocator, totals.NewEngine(rules), converter, txManager, auditLog)
	d.Documents.SetObserver(d.Metrics)
	d.Model7 = model7.NewService(docRepo, rules, d.Metrics)
	if d.TxManager != nil {
		d.Model7.SetSnapshot(d.TxManager)
	}
	return d, nil
}
