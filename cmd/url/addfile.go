// Package url implements the command-line interface for managing the
// URL submission queue. This file contains the implementation of the
// add-from-file command that bulk-loads URLs from a text file.
package url

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/spf13/cobra"
)

// runAddFromFileCmd executes the add-from-file command
func runAddFromFileCmd(cmd *cobra.Command, args []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	urls, err := readURLFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read URL file: %w", err)
	}
	if len(urls) == 0 {
		deps.Logger.Info("No URLs found in file", "path", args[0])
		return nil
	}

	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return err
	}

	added := q.AddAll(urls, queue.SourceFile)
	if persistErr := q.Persist(); persistErr != nil {
		return fmt.Errorf("failed to persist queue: %w", persistErr)
	}

	deps.Logger.Info("Added URLs from file", "path", args[0], "found", len(urls), "added", added)
	fmt.Printf("Added %d of %d URLs from %s\n", added, len(urls), args[0])
	return nil
}

// readURLFile reads one URL per line, skipping blank lines and # comments
func readURLFile(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var urls []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if scanErr := scanner.Err(); scanErr != nil {
		return nil, scanErr
	}
	return urls, nil
}
