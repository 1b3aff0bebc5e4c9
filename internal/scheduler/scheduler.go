package scheduler

import (
	"context"
	"log/slog"
	"time"

	"order_syncer/internal/domain"
)

// Runner is one schedulable unit of work, typically a channel's sync or
// its cancellation purge.
type Runner interface {
	Run(ctx context.Context) (*domain.SyncStats, error)
}

// RunnerFunc adapts a plain function to the Runner interface.
type RunnerFunc func(ctx context.Context) (*domain.SyncStats, error)

func (f RunnerFunc) Run(ctx context.Context) (*domain.SyncStats, error) { return f(ctx) }

// Scheduler fires one Runner on a fixed interval, with an immediate
// first run and a per-run timeout.
type Scheduler struct {
	name       string
	runner     Runner
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func New(name string, runner Runner, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		name:       name,
		runner:     runner,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("job", name),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval)

	s.run(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.run(ctx)
		}
	}
}

func (s *Scheduler) run(ctx context.Context) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	if _, err := s.runner.Run(runCtx); err != nil {
		s.logger.Error("scheduled run failed", "error", err)
	}
}
