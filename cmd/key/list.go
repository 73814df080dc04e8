// Package key implements the command-line interface for managing the
// service account keys used to authenticate indexing submissions. This
// file contains the implementation of the list command that displays
// the configured keys in a formatted table.
package key

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/jedib0t/go-pretty/v6/table"
	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/spf13/cobra"
)

// TableRenderer handles the display of key data in a table format
type TableRenderer struct {
	logger logger.Interface
}

// NewTableRenderer creates a new TableRenderer instance
func NewTableRenderer(log logger.Interface) *TableRenderer {
	return &TableRenderer{
		logger: log,
	}
}

// RenderTable formats and displays the keys in a table format
func (r *TableRenderer) RenderTable(creds []*credentials.Credential) error {
	// Initialize table writer with stdout as output
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)

	// Add table headers
	t.AppendHeader(table.Row{"Account", "Project", "Key File"})

	// Process each key
	for _, cred := range creds {
		t.AppendRow(table.Row{
			cred.ID(),
			cred.ProjectID,
			filepath.Base(cred.Path),
		})
	}

	// Render the table
	t.Render()
	return nil
}

// runListCmd executes the list command
func runListCmd(cmd *cobra.Command, args []string) error {
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

	renderer := NewTableRenderer(deps.Logger)
	return renderer.RenderTable(store.List())
}
