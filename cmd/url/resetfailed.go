// Package url implements the command-line interface for managing the
// URL submission queue. This file contains the implementation of the
// reset-failed command that moves failed URLs back to pending.
package url

import (
	"fmt"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/spf13/cobra"
)

// runResetFailedCmd executes the reset-failed command
func runResetFailedCmd(cmd *cobra.Command, args []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return err
	}

	reset := q.ResetFailed()
	if reset == 0 {
		deps.Logger.Info("No failed URLs to reset")
		return nil
	}

	if persistErr := q.Persist(); persistErr != nil {
		return fmt.Errorf("failed to persist queue: %w", persistErr)
	}

	deps.Logger.Info("Reset failed URLs to pending", "count", reset)
	fmt.Printf("Reset %d failed URLs to pending\n", reset)
	return nil
}
