// Package url implements the command-line interface for managing the
// URL submission queue. This file contains the implementation of the
// status command that shows a URL's local record and the indexing
// API's stored notification metadata.
package url

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/indexing"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/spf13/cobra"
)

// runStatusCmd executes the status command
func runStatusCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return err
	}

	rec := q.Get(args[0])
	if rec == nil {
		fmt.Printf("Not tracked locally: %s\n", args[0])
	} else {
		printRecord(rec)
	}

	// The remote lookup needs a credential; skip it quietly when none
	// are configured.
	store, err := cmdcommon.OpenCredentials(deps.Config, deps.Logger)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			deps.Logger.Info("No API keys found, skipping remote status lookup")
			return nil
		}
		return fmt.Errorf("failed to load API keys: %w", err)
	}

	client, err := indexing.New(indexing.Params{
		Config: deps.Config.GetIndexerConfig(),
		Logger: deps.Logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create indexing client: %w", err)
	}

	metadata, err := client.Metadata(ctx, args[0], store.Next())
	if err != nil {
		return fmt.Errorf("failed to fetch remote status: %w", err)
	}

	encoded, err := json.MarshalIndent(metadata, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to format remote status: %w", err)
	}

	fmt.Printf("\nRemote notification metadata:\n%s\n", encoded)
	return nil
}

// printRecord writes the local record fields to stdout
func printRecord(rec *queue.Record) {
	fmt.Printf("URL:      %s\n", rec.URL)
	fmt.Printf("Status:   %s\n", rec.Status)
	fmt.Printf("Priority: %d\n", rec.Priority)
	fmt.Printf("Attempts: %d\n", rec.Attempts)
	fmt.Printf("Source:   %s\n", rec.Source)
	fmt.Printf("Added:    %s\n", rec.AddedAt.Format(timeLayout))
	if rec.LastAttemptAt != nil {
		fmt.Printf("Last attempt: %s\n", rec.LastAttemptAt.Format(timeLayout))
	}
	if rec.LastError != "" {
		fmt.Printf("Last error:   %s\n", rec.LastError)
	}

	if len(rec.Metadata) > 0 {
		keys := make([]string, 0, len(rec.Metadata))
		for k := range rec.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("%s: %s\n", k, rec.Metadata[k])
		}
	}
}
