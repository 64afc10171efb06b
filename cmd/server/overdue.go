package main

import (
	"context"
	"time"

	"kitanda/pkg/logger"
)

// overdueRefresher is the part of documents.Service the job needs.
type overdueRefresher interface {
	RefreshOverdue(ctx context.Context, now time.Time) (int, error)
}

// overdueJob moves pending invoices past their due date to OVERDUE.
type overdueJob struct {
	docs     overdueRefresher
	interval time.Duration
	log      *logger.Logger
	now      func() time.Time
}

func newOverdueJob(docs overdueRefresher, interval time.Duration, log *logger.Logger) *overdueJob {
	if interval <= 0 {
		interval = time.Hour
	}
	return &overdueJob{
		docs:     docs,
		interval: interval,
		log:      log.WithComponent("overdue"),
		now:      time.Now,
	}
}

// Run refreshes once at start and then every interval until ctx ends.
func (j *overdueJob) Run(ctx context.Context) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.log.Infow("overdue job started", "interval", j.interval)
	j.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			j.log.Info("overdue job stopped")
			return
		case <-ticker.C:
			j.tick(ctx)
		}
	}
}

func (j *overdueJob) tick(ctx context.Context) {
	n, err := j.docs.RefreshOverdue(ctx, j.now())
	if err != nil {
		if ctx.Err() == nil {
			j.log.Errorw("overdue refresh failed", "error", err)
		}
		return
	}
	if n > 0 {
		j.log.Infow("documents marked overdue", "count", n)
	}
}
