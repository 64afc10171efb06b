package model7

import (
	"context"
	"fmt"
	"time"

	"kitanda/internal/core/tx"
	"kitanda/internal/domain/documents"
	"kitanda/internal/domain/totals"
	"kitanda/pkg/logger"
)

// Observer receives report generation timings.
type Observer interface {
	ReportGenerated(regime string, elapsed time.Duration)
}

// Service loads a period's documents and computes the declaration.
type Service struct {
	repo     documents.Repository
	rules    totals.Rules
	observer Observer
	snapshot tx.ReadOnlyRunner
	now      func() time.Time
}

// NewService creates a report service. observer may be nil.
func NewService(repo documents.Repository, rules totals.Rules, observer Observer) *Service {
	return &Service{
		repo:     repo,
		rules:    rules,
		observer: observer,
		snapshot: tx.NoopManager{},
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SetSnapshot makes Generate read the period inside runner's read-only
// transaction.
func (s *Service) SetSnapshot(runner tx.ReadOnlyRunner) {
	s.snapshot = runner
}

// Generate computes the declaration for period under regime.
func (s *Service) Generate(ctx context.Context, period Period, regime Regime) (*Report, error) {
	if err := period.Validate(); err != nil {
		return nil, err
	}
	started := time.Now()

	from, to := period.Bounds()
	var docs []*documents.Document
	err := s.snapshot.ReadOnly(ctx, func(ctx context.Context) error {
		var err error
		docs, err = s.repo.List(ctx, documents.ListFilter{From: from, To: to})
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("load documents for %s: %w", period, err)
	}

	report, err := Compute(docs, period, regime, s.rules)
	if err != nil {
		return nil, err
	}
	report.GeneratedAt = s.now()

	elapsed := time.Since(started)
	if s.observer != nil {
		s.observer.ReportGenerated(string(report.Regime), elapsed)
	}
	logger.Info(ctx, "model 7 generated",
		"period", period.String(),
		"regime", report.Regime,
		"documents", report.Documents,
		"elapsed", elapsed)
	return report, nil
}
