// Package run implements the command that submits queued URLs to the
// indexing API, either as a single batch or on a repeating schedule.
package run

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/config"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/indexing"
	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/jonesrussell/goindexer/internal/resultlog"
	"github.com/jonesrussell/goindexer/internal/runner"
	"github.com/jonesrussell/goindexer/internal/scheduler"
	"github.com/spf13/cobra"
)

const (
	signalChannelBufferSize = 1
	errorChannelBufferSize  = 1
)

var (
	runOnce      bool
	batchSize    int
	retryFailed  bool
	intervalMins int
	maxAttempts  int
	minPriority  int
)

// Command returns the run command for use in the root command.
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Submit queued URLs to the indexing API",
		Long: `Submit pending URLs to the indexing API in batches. By default the
command runs continuously, submitting one batch per interval until
interrupted with Ctrl+C. With --run-once a single batch is submitted
and the command exits.`,
		RunE: runRunCmd,
	}

	cmd.Flags().BoolVar(&runOnce, "run-once", false, "Submit a single batch and exit")
	cmd.Flags().IntVar(&batchSize, "batch-size", 0,
		"Override the scheduler.batch_size setting (0 means use config)")
	cmd.Flags().BoolVar(&retryFailed, "retry-failed", false,
		"Include previously failed URLs in each batch")
	cmd.Flags().IntVar(&intervalMins, "interval", 0,
		"Override the scheduler.interval setting, in minutes (0 means use config)")
	cmd.Flags().IntVar(&maxAttempts, "max-attempts", -1,
		"Override the queue.max_attempts setting (-1 means use config, 0 disables the cap)")
	cmd.Flags().IntVar(&minPriority, "min-priority", 0,
		"Only submit URLs at or above this priority (0 means use config)")

	return cmd
}

// runRunCmd executes the run command
func runRunCmd(cmd *cobra.Command, _ []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	// Apply flag overrides before anything reads the configuration
	applyFlagOverrides(deps.Config, deps.Logger)

	sched, err := constructScheduler(deps)
	if err != nil {
		return err
	}

	if runOnce {
		summary, runErr := sched.RunOnce(cmd.Context())
		if runErr != nil {
			return fmt.Errorf("batch run failed: %w", runErr)
		}
		printSummary(summary)
		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Run the loop in a goroutine so the command can react to signals
	interval := deps.Config.GetSchedulerConfig().Interval
	errChan := make(chan error, errorChannelBufferSize)
	go func() {
		errChan <- sched.RunLoop(ctx, interval)
	}()

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, signalChannelBufferSize)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	// Wait for interrupt signal or loop error
	select {
	case loopErr := <-errChan:
		if loopErr != nil {
			return fmt.Errorf("run loop failed: %w", loopErr)
		}
	case sig := <-sigChan:
		deps.Logger.Info("Shutdown signal received", "signal", sig.String())
		cancel()
		if loopErr := <-errChan; loopErr != nil {
			return fmt.Errorf("run loop failed: %w", loopErr)
		}
	}

	deps.Logger.Info("Run loop stopped")
	return nil
}

// applyFlagOverrides applies command-line overrides on top of the
// loaded configuration.
func applyFlagOverrides(cfg config.Interface, log logger.Interface) {
	schedulerCfg := cfg.GetSchedulerConfig()
	if batchSize > 0 {
		log.Info("Overriding scheduler.batch_size with flag value", "batch_size", batchSize)
		schedulerCfg.BatchSize = batchSize
	}
	if intervalMins > 0 {
		log.Info("Overriding scheduler.interval with flag value", "interval_minutes", intervalMins)
		schedulerCfg.Interval = time.Duration(intervalMins) * time.Minute
	}
	if retryFailed {
		schedulerCfg.RetryFailed = true
	}
	if minPriority > 0 {
		log.Info("Overriding scheduler.min_priority with flag value", "min_priority", minPriority)
		schedulerCfg.MinPriority = minPriority
	}
	if maxAttempts >= 0 {
		log.Info("Overriding queue.max_attempts with flag value", "max_attempts", maxAttempts)
		cfg.GetQueueConfig().MaxAttempts = maxAttempts
	}
}

// constructScheduler builds the queue, credential store, indexing
// client, and result log, and wires them into a scheduler.
func constructScheduler(deps cmdcommon.CommandDeps) (*scheduler.Scheduler, error) {
	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return nil, err
	}

	store, err := cmdcommon.OpenCredentials(deps.Config, deps.Logger)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return nil, fmt.Errorf("no API keys found in %s: use 'key add' to install a service account key",
				deps.Config.GetIndexerConfig().APIKeysDir)
		}
		return nil, fmt.Errorf("failed to load API keys: %w", err)
	}

	client, err := indexing.New(indexing.Params{
		Config: deps.Config.GetIndexerConfig(),
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create indexing client: %w", err)
	}

	results := resultlog.NewWriter(deps.Config.GetLogsConfig().ResultDir, deps.Logger)

	runnerInstance, err := runner.New(runner.Params{
		Queue:           q,
		Credentials:     store,
		Client:          client,
		Results:         results,
		SubmissionDelay: deps.Config.GetIndexerConfig().SubmissionDelay,
		Logger:          deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create runner: %w", err)
	}

	schedulerCfg := deps.Config.GetSchedulerConfig()
	sched, err := scheduler.New(scheduler.Params{
		Runner: runnerInstance,
		Options: runner.Options{
			BatchSize:     schedulerCfg.BatchSize,
			IncludeFailed: schedulerCfg.RetryFailed,
			MinPriority:   schedulerCfg.MinPriority,
		},
		Logger: deps.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return sched, nil
}

// printSummary writes a one-line batch summary to stdout
func printSummary(summary *runner.Summary) {
	fmt.Printf("Batch complete: %d selected, %d submitted, %d failed, %d permanently failed, %d skipped (%s)\n",
		summary.Selected,
		summary.Succeeded,
		summary.Failed,
		summary.PermanentlyFailed,
		summary.Skipped,
		summary.Duration.Round(time.Millisecond),
	)
}
