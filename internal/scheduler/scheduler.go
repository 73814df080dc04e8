// Package scheduler repeats submission batches on a fixed interval.
// The first batch runs immediately so a freshly started service drains
// its backlog without waiting out the interval.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/jonesrussell/goindexer/internal/runner"
)

// Scheduler owns the periodic batch loop.
type Scheduler struct {
	runner *runner.Runner
	opts   runner.Options
	logger logger.Interface
}

// Params configures a Scheduler.
type Params struct {
	// Runner executes the batches.
	Runner *runner.Runner
	// Options is applied to every batch.
	Options runner.Options
	// Logger is optional and can be nil.
	Logger logger.Interface
}

// New creates a Scheduler from p.
func New(p Params) (*Scheduler, error) {
	if p.Runner == nil {
		return nil, fmt.Errorf("scheduler: runner is required")
	}
	if p.Logger == nil {
		p.Logger = logger.NewNoOp()
	}
	return &Scheduler{
		runner: p.Runner,
		opts:   p.Options,
		logger: p.Logger,
	}, nil
}

// RunOnce executes a single batch with the scheduler's options.
func (s *Scheduler) RunOnce(ctx context.Context) (*runner.Summary, error) {
	return s.runner.Run(ctx, s.opts)
}

// RunLoop executes a batch immediately, then repeats at interval until
// ctx is canceled. A failed batch is logged and the loop keeps going;
// overlapping runs are skipped rather than stacked. Returns nil on a
// graceful stop.
func (s *Scheduler) RunLoop(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		return fmt.Errorf("scheduler: interval must be positive, got %s", interval)
	}

	s.runBatch(ctx)
	if ctx.Err() != nil {
		return nil
	}

	parser := cron.NewParser(
		cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	c := cron.New(
		cron.WithParser(parser),
		cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
			cron.Recover(cron.DefaultLogger),
		),
	)

	if _, err := c.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		s.runBatch(ctx)
	}); err != nil {
		return fmt.Errorf("schedule submission batches: %w", err)
	}

	c.Start()
	s.logger.Info("Scheduler started", "interval", interval)

	<-ctx.Done()

	s.logger.Info("Stopping scheduler")
	stopCtx := c.Stop()
	<-stopCtx.Done()
	s.logger.Info("Scheduler stopped")
	return nil
}

// runBatch executes one batch, swallowing cancellation and logging any
// other failure.
func (s *Scheduler) runBatch(ctx context.Context) {
	if _, err := s.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("Submission batch failed", "error", err)
	}
}
