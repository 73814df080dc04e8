// Package url implements the command-line interface for managing the
// URL submission queue. This file contains the implementation of the
// add command that inserts a single URL into the queue.
package url

import (
	"fmt"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/spf13/cobra"
)

// runAddCmd executes the add command
func runAddCmd(cmd *cobra.Command, args []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return err
	}

	added := q.AddWith(args[0], queue.SourceManual, queue.AddOptions{Priority: addPriority})
	if persistErr := q.Persist(); persistErr != nil {
		return fmt.Errorf("failed to persist queue: %w", persistErr)
	}

	if added {
		fmt.Printf("Added %s\n", args[0])
	} else {
		fmt.Printf("Already tracked: %s\n", args[0])
	}
	return nil
}
