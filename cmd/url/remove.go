// Package url implements the command-line interface for managing the
// URL submission queue. This file contains the implementation of the
// remove command that deletes a URL from the queue, optionally
// notifying the indexing API first.
package url

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/config"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/indexing"
	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var (
	// ErrRemovalCancelled is returned when the user cancels the removal
	ErrRemovalCancelled = errors.New("removal cancelled by user")
)

// Remover implements the url remove command
type Remover struct {
	config config.Interface
	logger logger.Interface
	queue  *queue.Queue
	url    string
	notify bool
	force  bool
}

// NewRemover creates a new remover instance
func NewRemover(
	cfg config.Interface,
	log logger.Interface,
	q *queue.Queue,
	targetURL string,
	notify, force bool,
) *Remover {
	return &Remover{
		config: cfg,
		logger: log,
		queue:  q,
		url:    targetURL,
		notify: notify,
		force:  force,
	}
}

// Start executes the remove operation
func (r *Remover) Start(ctx context.Context) error {
	if r.queue.Get(r.url) == nil {
		return fmt.Errorf("URL not tracked: %s", r.url)
	}

	if err := r.confirmRemoval(); err != nil {
		return err
	}

	if r.notify {
		if err := r.notifyDeleted(ctx); err != nil {
			return err
		}
	}

	r.queue.Remove(r.url)
	if err := r.queue.Persist(); err != nil {
		return fmt.Errorf("failed to persist queue: %w", err)
	}

	r.logger.Info("Removed URL from queue", "url", r.url)
	fmt.Printf("Removed %s\n", r.url)
	return nil
}

// confirmRemoval asks for user confirmation before removal
func (r *Remover) confirmRemoval() error {
	if _, err := os.Stdout.WriteString("The following URL will be removed:\n" + r.url + "\n"); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}

	// If force flag is set or stdin is not a terminal, skip confirmation
	if r.force || !isatty.IsTerminal(os.Stdin.Fd()) {
		return nil
	}

	if _, err := os.Stdout.WriteString("Are you sure you want to continue? (y/N): "); err != nil {
		return fmt.Errorf("failed to write to stdout: %w", err)
	}

	var response string
	if _, err := fmt.Scanln(&response); err != nil {
		// If we get an EOF or empty input, treat it as 'N'
		if errors.Is(err, io.EOF) || response == "" {
			return ErrRemovalCancelled
		}
		return fmt.Errorf("failed to read user input: %w", err)
	}

	if !strings.EqualFold(response, "y") {
		return ErrRemovalCancelled
	}

	return nil
}

// notifyDeleted tells the indexing API the URL has been removed. The
// local record is kept when notification fails so the removal can be
// retried.
func (r *Remover) notifyDeleted(ctx context.Context) error {
	store, err := cmdcommon.OpenCredentials(r.config, r.logger)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			return errors.New("no API keys found: re-run without --notify to remove the URL locally")
		}
		return fmt.Errorf("failed to load API keys: %w", err)
	}

	client, err := indexing.New(indexing.Params{
		Config: r.config.GetIndexerConfig(),
		Logger: r.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create indexing client: %w", err)
	}

	result := client.NotifyDeleted(ctx, r.url, store.Next())
	if !result.Succeeded() {
		return fmt.Errorf("deletion notification failed: %s", result.ErrorMessage())
	}

	r.logger.Info("Notified indexing API of deletion", "url", r.url, "account", result.Account)
	return nil
}

// runRemoveCmd executes the remove command
func runRemoveCmd(cmd *cobra.Command, args []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return err
	}

	remover := NewRemover(deps.Config, deps.Logger, q, args[0], removeNotify, removeForce)
	return remover.Start(cmd.Context())
}
