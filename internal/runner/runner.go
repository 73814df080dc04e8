// Package runner drives submission batches: it selects due URLs from
// the queue, paces requests, rotates credentials around quota limits,
// and records every attempt in the queue and the result log.
package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/indexing"
	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/jonesrussell/goindexer/internal/resultlog"
)

// Submitter sends one URL notification using one credential.
type Submitter interface {
	Submit(ctx context.Context, url string, cred *credentials.Credential) indexing.Result
}

// Runner executes submission batches against the queue.
type Runner struct {
	queue   *queue.Queue
	creds   *credentials.Store
	client  Submitter
	results *resultlog.Writer
	delay   time.Duration
	logger  logger.Interface
}

// Params configures a Runner.
type Params struct {
	// Queue supplies and records the URLs to submit.
	Queue *queue.Queue
	// Credentials supplies the rotating service accounts.
	Credentials *credentials.Store
	// Client performs the API submissions.
	Client Submitter
	// Results receives one entry per submission attempt. Optional.
	Results *resultlog.Writer
	// SubmissionDelay paces consecutive API requests. Zero disables
	// pacing.
	SubmissionDelay time.Duration
	// Logger is optional and can be nil.
	Logger logger.Interface
}

// Options selects which URLs a batch covers.
type Options struct {
	// BatchSize caps how many URLs are submitted. Zero means no cap.
	BatchSize int
	// IncludeFailed also selects previously failed URLs, after all
	// pending ones.
	IncludeFailed bool
	// MinPriority drops URLs below this priority. Zero selects all.
	MinPriority int
}

// Summary reports what one batch did.
type Summary struct {
	// RunID tags the batch's log lines.
	RunID string
	// Selected is how many URLs the batch set out to submit.
	Selected int
	// Succeeded is how many notifications the API accepted.
	Succeeded int
	// Failed is how many URLs hit a retriable error.
	Failed int
	// PermanentlyFailed is how many URLs were rejected for good or ran
	// out of attempts.
	PermanentlyFailed int
	// Skipped is how many selected URLs were not attempted, because
	// quota ran out across every account or the run was canceled.
	Skipped int
	// Duration is how long the batch took.
	Duration time.Duration
}

// New creates a Runner from p.
func New(p Params) (*Runner, error) {
	if p.Queue == nil {
		return nil, fmt.Errorf("runner: queue is required")
	}
	if p.Credentials == nil {
		return nil, fmt.Errorf("runner: credentials are required")
	}
	if p.Client == nil {
		return nil, fmt.Errorf("runner: client is required")
	}
	if p.Logger == nil {
		p.Logger = logger.NewNoOp()
	}
	return &Runner{
		queue:   p.Queue,
		creds:   p.Credentials,
		client:  p.Client,
		results: p.Results,
		delay:   p.SubmissionDelay,
		logger:  p.Logger,
	}, nil
}

// Run executes one batch and persists the queue afterwards. The batch
// stops early when the context is canceled or when every account is
// out of quota; both leave the remaining URLs untouched for the next
// run. Cancellation is returned as the context's error alongside the
// partial summary.
func (r *Runner) Run(ctx context.Context, opts Options) (*Summary, error) {
	start := time.Now()
	summary := &Summary{RunID: uuid.New().String()}
	log := r.logger.With("run_id", summary.RunID)

	selected := r.selectRecords(opts)
	summary.Selected = len(selected)
	if len(selected) == 0 {
		log.Info("No URLs due for submission")
		summary.Duration = time.Since(start)
		return summary, nil
	}

	log.Info("Starting submission batch",
		"selected", len(selected),
		"batch_size", opts.BatchSize,
		"include_failed", opts.IncludeFailed,
	)

	limiter := rate.NewLimiter(rate.Every(r.delay), 1)

	var runErr error
	for i, rec := range selected {
		quotaExhausted, err := r.submitOne(ctx, log, limiter, rec)
		if err != nil {
			summary.Skipped = len(selected) - i
			runErr = err
			break
		}
		if quotaExhausted {
			log.Warn("Quota exhausted across all accounts, stopping batch",
				"accounts", r.creds.Len(),
				"remaining", len(selected)-i,
			)
			summary.Skipped = len(selected) - i
			break
		}

		switch rec.Status {
		case queue.StatusSubmitted:
			summary.Succeeded++
		case queue.StatusFailed:
			summary.Failed++
		case queue.StatusPermanentlyFailed:
			summary.PermanentlyFailed++
		}
	}

	if persistErr := r.queue.Persist(); persistErr != nil {
		return summary, fmt.Errorf("persist queue after batch: %w", persistErr)
	}

	summary.Duration = time.Since(start)
	counts := r.queue.Counts()
	log.Info("Submission batch finished",
		"selected", summary.Selected,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"permanently_failed", summary.PermanentlyFailed,
		"skipped", summary.Skipped,
		"pending_remaining", counts[queue.StatusPending],
		"duration", summary.Duration,
	)
	return summary, runErr
}

// selectRecords picks the batch's URLs: pending first, then failed when
// requested, both in insertion order, filtered by priority and capped
// by batch size.
func (r *Runner) selectRecords(opts Options) []*queue.Record {
	candidates := r.queue.List(queue.StatusPending)
	if opts.IncludeFailed {
		candidates = append(candidates, r.queue.List(queue.StatusFailed)...)
	}

	selected := make([]*queue.Record, 0, len(candidates))
	for _, rec := range candidates {
		if opts.MinPriority > 0 && rec.Priority < opts.MinPriority {
			continue
		}
		selected = append(selected, rec)
		if opts.BatchSize > 0 && len(selected) == opts.BatchSize {
			break
		}
	}
	return selected
}

// submitOne submits a single URL, rotating to the next credential on
// each quota rejection. It reports quota exhaustion once every account
// rejected the URL in a row; the record is left untouched in that case
// so a later batch retries it.
func (r *Runner) submitOne(
	ctx context.Context,
	log logger.Interface,
	limiter *rate.Limiter,
	rec *queue.Record,
) (quotaExhausted bool, err error) {
	for attempt := 0; attempt < r.creds.Len(); attempt++ {
		if waitErr := limiter.Wait(ctx); waitErr != nil {
			return false, waitErr
		}

		cred := r.creds.Next()
		result := r.client.Submit(ctx, rec.URL, cred)
		r.appendResult(log, result)

		if result.Outcome == queue.OutcomeQuotaExceeded {
			log.Warn("Account out of quota, rotating",
				"url", rec.URL,
				"account", cred.ID(),
			)
			continue
		}

		if markErr := r.queue.MarkResult(rec.URL, result.Outcome, result.ErrorMessage()); markErr != nil {
			log.Error("Failed to record submission result",
				"url", rec.URL,
				"error", markErr,
			)
		}
		return false, nil
	}
	return true, nil
}

// appendResult writes one attempt to the result log. Logging failures
// never fail the batch.
func (r *Runner) appendResult(log logger.Interface, result indexing.Result) {
	if r.results == nil {
		return
	}

	entry := resultlog.Entry{
		URL:      result.URL,
		Action:   result.Action,
		Success:  result.Succeeded(),
		Account:  result.Account,
		Response: result.Response,
		Error:    result.ErrorMessage(),
	}
	if appendErr := r.results.Append(entry); appendErr != nil {
		log.Warn("Failed to append result log entry",
			"url", result.URL,
			"error", appendErr,
		)
	}
}
