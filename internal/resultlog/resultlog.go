// Package resultlog appends submission results to per-day JSON Lines
// files, one file per calendar day. The files are an audit trail of
// every submission attempt, kept separate from the queue snapshot so
// history survives queue edits.
package resultlog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jonesrussell/goindexer/internal/logger"
)

const (
	// timestampLayout is the human-readable timestamp written to each
	// entry.
	timestampLayout = "2006-01-02 15:04:05"

	// fileLayout names the per-day file, as indexing_2006-01-02.log.
	fileLayout = "2006-01-02"

	dirMode  = 0o755
	fileMode = 0o644
)

// Entry is one logged submission attempt.
type Entry struct {
	// Timestamp is the attempt time, formatted for reading rather than
	// parsing.
	Timestamp string `json:"timestamp"`
	// URL is the submitted URL.
	URL string `json:"url"`
	// Action is the notification type that was sent.
	Action string `json:"action"`
	// Success reports whether the API accepted the notification.
	Success bool `json:"success"`
	// Account identifies the credential used for the attempt.
	Account string `json:"account,omitempty"`
	// Response is the API response body, or an error description when
	// the request never completed.
	Response map[string]any `json:"response,omitempty"`
	// Error is the failure message for unsuccessful attempts.
	Error string `json:"error,omitempty"`
}

// Writer appends entries to the day's log file. Safe for concurrent
// use.
type Writer struct {
	dir    string
	mu     sync.Mutex
	now    func() time.Time
	logger logger.Interface
}

// NewWriter creates a Writer that logs under dir. The logger is
// optional and can be nil.
func NewWriter(dir string, log logger.Interface) *Writer {
	if log == nil {
		log = logger.NewNoOp()
	}
	return &Writer{
		dir:    dir,
		now:    time.Now,
		logger: log,
	}
}

// Append stamps e and writes it as one JSON line to today's file,
// creating the directory and file as needed.
func (w *Writer) Append(e Entry) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.now()
	if e.Timestamp == "" {
		e.Timestamp = now.Format(timestampLayout)
	}

	line, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode result entry: %w", err)
	}

	if mkErr := os.MkdirAll(w.dir, dirMode); mkErr != nil {
		return fmt.Errorf("create result log directory: %w", mkErr)
	}

	path := w.pathFor(now)
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, fileMode)
	if err != nil {
		return fmt.Errorf("open result log: %w", err)
	}
	defer f.Close()

	if _, writeErr := f.Write(append(line, '\n')); writeErr != nil {
		return fmt.Errorf("append result entry: %w", writeErr)
	}

	w.logger.Debug("Logged submission result", "url", e.URL, "success", e.Success, "file", path)
	return nil
}

// pathFor returns the log file path for the day of t.
func (w *Writer) pathFor(t time.Time) string {
	return filepath.Join(w.dir, "indexing_"+t.Format(fileLayout)+".log")
}
