// Package key implements the command-line interface for managing the
// service account keys used to authenticate indexing submissions. This
// file contains the implementation of the test command that verifies
// each configured key can obtain an access token.
package key

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/indexing"
	"github.com/spf13/cobra"
)

// runTestCmd executes the test command
func runTestCmd(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	store, err := cmdcommon.OpenCredentials(deps.Config, deps.Logger)
	if err != nil {
		if errors.Is(err, credentials.ErrNoCredentials) {
			deps.Logger.Info("No API keys found. Use 'key add' to install a service account key.")
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

	deps.Logger.Info("Testing API keys", "count", store.Len())

	// Initialize table writer with stdout as output
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Account", "Status", "Details"})

	failed := 0
	for _, cred := range store.List() {
		status := "OK"
		details := ""
		if verifyErr := client.VerifyCredential(ctx, cred); verifyErr != nil {
			status = "FAILED"
			details = truncateError(verifyErr)
			failed++
			deps.Logger.Warn("API key failed verification", "account", cred.ID(), "error", verifyErr)
		}
		t.AppendRow(table.Row{cred.ID(), status, details})
	}

	t.Render()

	if failed > 0 {
		return fmt.Errorf("%d of %d API keys failed verification", failed, store.Len())
	}
	return nil
}

// truncateError shortens an error message for table display
func truncateError(err error) string {
	const maxDetailsLength = 60

	msg := err.Error()
	if len(msg) > maxDetailsLength {
		msg = msg[:maxDetailsLength] + "..."
	}
	return msg
}
