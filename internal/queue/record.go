package queue

import "time"

// Status represents the submission state of a tracked URL.
type Status string

const (
	// StatusPending marks a URL waiting for its first submission.
	StatusPending Status = "pending"

	// StatusSubmitted marks a URL accepted by the indexing API.
	StatusSubmitted Status = "submitted"

	// StatusFailed marks a URL whose last attempt hit a retriable error.
	StatusFailed Status = "failed"

	// StatusPermanentlyFailed marks a URL that will not be retried,
	// either because the API rejected it outright or because the
	// attempt cap was exhausted.
	StatusPermanentlyFailed Status = "permanently_failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSubmitted, StatusFailed, StatusPermanentlyFailed:
		return true
	default:
		return false
	}
}

// Outcome classifies the result of one submission attempt. The batch
// runner feeds outcomes into MarkResult; quota-exceeded is the one
// outcome that is never recorded on a URL, since a quota miss says
// nothing about the URL itself.
type Outcome string

const (
	// OutcomeSuccess means the API accepted the notification.
	OutcomeSuccess Outcome = "success"

	// OutcomeQuotaExceeded means the credential used for the attempt is
	// out of quota. Retriable with another credential.
	OutcomeQuotaExceeded Outcome = "quota_exceeded"

	// OutcomeTransientError means a network or server hiccup. Retriable.
	OutcomeTransientError Outcome = "transient_error"

	// OutcomePermanentError means the request itself was rejected, for
	// example a malformed URL or an unverified site. Not retriable.
	OutcomePermanentError Outcome = "permanent_error"
)

// Source identifies how a URL entered the queue.
const (
	// SourceManual marks URLs added one at a time from the command line.
	SourceManual = "manual"
	// SourceFile marks URLs imported from a text file.
	SourceFile = "file"
	// SourceSitemap marks URLs extracted from a sitemap.
	SourceSitemap = "sitemap"
)

// DefaultPriority is the priority assigned to URLs added without an
// explicit priority.
const DefaultPriority = 1

// Record tracks one URL through its submission lifecycle. The URL string
// is the unique key; records are never deleted automatically, so the
// queue doubles as a submission history.
type Record struct {
	// URL is the tracked URL and the record's unique key.
	URL string `json:"url"`
	// Priority orders nothing by itself; it is a selection filter for
	// batches restricted to high-priority URLs.
	Priority int `json:"priority"`
	// Status is the record's current submission state.
	Status Status `json:"status"`
	// Source identifies how the URL entered the queue.
	Source string `json:"source,omitempty"`
	// Metadata carries optional free-form annotations, such as the
	// lastmod date extracted from a sitemap.
	Metadata map[string]string `json:"metadata,omitempty"`
	// Attempts counts completed submission attempts.
	Attempts int `json:"attempts"`
	// AddedAt is when the URL was first added. Re-adding an existing
	// URL never changes it.
	AddedAt time.Time `json:"added_at"`
	// LastAttemptAt is when the URL was last submitted, if ever.
	LastAttemptAt *time.Time `json:"last_attempt_at,omitempty"`
	// LastError is the message from the most recent failed attempt.
	LastError string `json:"last_error,omitempty"`
}

// Retriable reports whether the record is eligible for a retry pass.
// Only failed records are; permanently failed ones are excluded.
func (r *Record) Retriable() bool {
	return r.Status == StatusFailed
}
