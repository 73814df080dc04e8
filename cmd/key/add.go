// Package key implements the command-line interface for managing the
// service account keys used to authenticate indexing submissions. This
// file contains the implementation of the add command that validates a
// key file and installs it into the API keys directory.
package key

import (
	"fmt"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/spf13/cobra"
)

// runAddCmd executes the add command
func runAddCmd(cmd *cobra.Command, args []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	dir := deps.Config.GetIndexerConfig().APIKeysDir
	cred, err := credentials.Add(dir, args[0], deps.Logger)
	if err != nil {
		return fmt.Errorf("failed to add API key: %w", err)
	}

	fmt.Printf("Added API key for %s\n", cred.ID())
	return nil
}
