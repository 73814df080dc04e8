// Package queue tracks URLs through their indexing submission lifecycle.
// The queue is a persisted mapping from URL to submission record, loaded
// fully into memory and written back as a single JSON snapshot with an
// atomic replace so a crash mid-write never corrupts the previous
// snapshot.
package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonesrussell/goindexer/internal/logger"
)

// snapshotFileMode is the permission mode for freshly written snapshots.
const snapshotFileMode = 0o644

// Queue holds the URL records for one snapshot file. It is not safe for
// concurrent use; the scheduler drives one batch at a time, and only one
// process should own a snapshot file.
type Queue struct {
	path        string
	maxAttempts int
	records     []*Record
	index       map[string]*Record
	logger      logger.Interface
}

// Params configures a queue.
type Params struct {
	// Path is the snapshot file location.
	Path string
	// MaxAttempts caps submission attempts per URL before a transient
	// failure is upgraded to permanently failed. Zero disables the cap.
	MaxAttempts int
	// Logger is optional and can be nil.
	Logger logger.Interface
}

// Load reads the snapshot at p.Path into a new Queue. A missing file
// yields an empty queue; a file that exists but cannot be parsed is an
// error, so a corrupt snapshot is never silently discarded.
func Load(p Params) (*Queue, error) {
	if p.Logger == nil {
		p.Logger = logger.NewNoOp()
	}
	if p.MaxAttempts < 0 {
		return nil, fmt.Errorf("%w: negative max attempts", ErrInvalidRecord)
	}

	q := &Queue{
		path:        p.Path,
		maxAttempts: p.MaxAttempts,
		index:       make(map[string]*Record),
		logger:      p.Logger,
	}

	data, err := os.ReadFile(p.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			q.logger.Info("URLs file not found, starting with an empty queue", "path", p.Path)
			return q, nil
		}
		return nil, fmt.Errorf("read queue snapshot: %w", err)
	}

	var records []*Record
	if unmarshalErr := json.Unmarshal(data, &records); unmarshalErr != nil {
		return nil, fmt.Errorf("parse queue snapshot %s: %w", p.Path, unmarshalErr)
	}

	for _, rec := range records {
		if addErr := q.restore(rec); addErr != nil {
			return nil, addErr
		}
	}

	q.logger.Info("Loaded URL queue", "path", p.Path, "count", len(q.records))
	return q, nil
}

// restore validates and indexes one record from a loaded snapshot.
func (q *Queue) restore(rec *Record) error {
	if rec == nil || rec.URL == "" {
		return fmt.Errorf("%w: missing url", ErrInvalidRecord)
	}
	if _, exists := q.index[rec.URL]; exists {
		return fmt.Errorf("%w: duplicate url %s", ErrInvalidRecord, rec.URL)
	}

	// Older snapshots may predate some fields.
	if rec.Status == "" {
		rec.Status = StatusPending
	}
	if !rec.Status.Valid() {
		return fmt.Errorf("%w: url %s has unknown status %q", ErrInvalidRecord, rec.URL, rec.Status)
	}
	if rec.Priority == 0 {
		rec.Priority = DefaultPriority
	}

	q.records = append(q.records, rec)
	q.index[rec.URL] = rec
	return nil
}

// AddOptions carries the optional attributes of a new record.
type AddOptions struct {
	// Priority for the new record; zero means DefaultPriority.
	Priority int
	// Metadata for the new record, such as a sitemap lastmod date.
	Metadata map[string]string
}

// Add inserts a new pending record for url. It reports whether the
// insertion occurred: re-adding a tracked URL is a no-op that keeps the
// original record untouched, including its first-added timestamp.
func (q *Queue) Add(url, source string) bool {
	return q.AddWith(url, source, AddOptions{})
}

// AddWith inserts a new pending record with explicit options.
func (q *Queue) AddWith(url, source string, opts AddOptions) bool {
	if url == "" {
		return false
	}
	if _, exists := q.index[url]; exists {
		q.logger.Debug("URL already tracked", "url", url)
		return false
	}

	priority := opts.Priority
	if priority == 0 {
		priority = DefaultPriority
	}

	rec := &Record{
		URL:      url,
		Priority: priority,
		Status:   StatusPending,
		Source:   source,
		Metadata: opts.Metadata,
		AddedAt:  time.Now().UTC(),
	}

	q.records = append(q.records, rec)
	q.index[url] = rec
	q.logger.Debug("Added URL to queue", "url", url, "source", source, "priority", priority)
	return true
}

// AddAll inserts every URL in urls and returns how many were new.
func (q *Queue) AddAll(urls []string, source string) int {
	count := 0
	for _, u := range urls {
		if q.Add(u, source) {
			count++
		}
	}
	return count
}

// List returns the tracked records in insertion order. A non-empty
// filter restricts the result to records with that status. The returned
// slice is freshly allocated but shares the underlying records.
func (q *Queue) List(filter Status) []*Record {
	result := make([]*Record, 0, len(q.records))
	for _, rec := range q.records {
		if filter != "" && rec.Status != filter {
			continue
		}
		result = append(result, rec)
	}
	return result
}

// Get returns the record for url, or nil when it is not tracked.
func (q *Queue) Get(url string) *Record {
	return q.index[url]
}

// Len returns the number of tracked records.
func (q *Queue) Len() int {
	return len(q.records)
}

// MarkResult records the outcome of one submission attempt for url. It
// increments the attempt count, stamps the attempt time, and moves the
// record through the status transitions: success lands on submitted, a
// permanent error on permanently failed, and a transient error on
// failed unless the attempt cap is exhausted, in which case the record
// is also marked permanently failed. Returns ErrUnknownURL when the URL
// is not tracked and ErrInvalidOutcome for outcomes that are never
// recorded, such as quota-exceeded.
func (q *Queue) MarkResult(url string, outcome Outcome, errMsg string) error {
	rec, ok := q.index[url]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownURL, url)
	}

	now := time.Now().UTC()
	rec.Attempts++
	rec.LastAttemptAt = &now

	switch outcome {
	case OutcomeSuccess:
		rec.Status = StatusSubmitted
		rec.LastError = ""
	case OutcomePermanentError:
		rec.Status = StatusPermanentlyFailed
		rec.LastError = errMsg
	case OutcomeTransientError:
		if q.maxAttempts > 0 && rec.Attempts >= q.maxAttempts {
			rec.Status = StatusPermanentlyFailed
			rec.LastError = fmt.Sprintf("%s (gave up after %d attempts)", errMsg, rec.Attempts)
		} else {
			rec.Status = StatusFailed
			rec.LastError = errMsg
		}
	default:
		rec.Attempts--
		rec.LastAttemptAt = nil
		return fmt.Errorf("%w: %s", ErrInvalidOutcome, outcome)
	}

	q.logger.Debug("Recorded submission result",
		"url", url,
		"outcome", string(outcome),
		"status", string(rec.Status),
		"attempts", rec.Attempts,
	)
	return nil
}

// Remove deletes the record for url. It reports whether a record was
// removed.
func (q *Queue) Remove(url string) bool {
	if _, ok := q.index[url]; !ok {
		return false
	}

	delete(q.index, url)
	for i, rec := range q.records {
		if rec.URL == url {
			q.records = append(q.records[:i], q.records[i+1:]...)
			break
		}
	}
	q.logger.Debug("Removed URL from queue", "url", url)
	return true
}

// ResetFailed moves every failed record back to pending, clearing its
// last error, and returns how many records were reset. Permanently
// failed records are left alone.
func (q *Queue) ResetFailed() int {
	count := 0
	for _, rec := range q.records {
		if rec.Status != StatusFailed {
			continue
		}
		rec.Status = StatusPending
		rec.LastError = ""
		count++
	}
	if count > 0 {
		q.logger.Info("Reset failed URLs to pending", "count", count)
	}
	return count
}

// Persist writes the full snapshot to the queue's path. The snapshot is
// written to a temporary file in the same directory and renamed into
// place, so a crash mid-write leaves the previous snapshot intact.
func (q *Queue) Persist() error {
	data, err := json.MarshalIndent(q.records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode queue snapshot: %w", err)
	}

	dir := filepath.Dir(q.path)
	if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil {
		return fmt.Errorf("create queue directory: %w", mkErr)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(q.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, writeErr := tmp.Write(data); writeErr != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", writeErr)
	}
	if closeErr := tmp.Close(); closeErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", closeErr)
	}

	if chmodErr := os.Chmod(tmpName, snapshotFileMode); chmodErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod temp snapshot: %w", chmodErr)
	}

	if renameErr := os.Rename(tmpName, q.path); renameErr != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace queue snapshot: %w", renameErr)
	}

	q.logger.Debug("Persisted URL queue", "path", q.path, "count", len(q.records))
	return nil
}

// Counts returns the number of records per status.
func (q *Queue) Counts() map[Status]int {
	counts := make(map[Status]int, 4)
	for _, rec := range q.records {
		counts[rec.Status]++
	}
	return counts
}
