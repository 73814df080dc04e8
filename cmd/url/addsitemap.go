// Package url implements the command-line interface for managing the
// URL submission queue. This file contains the implementation of the
// add-from-sitemap command that bulk-loads URLs from a sitemap.
package url

import (
	"fmt"

	cmdcommon "github.com/jonesrussell/goindexer/cmd/common"
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/jonesrussell/goindexer/internal/sitemap"
	"github.com/spf13/cobra"
)

// runAddFromSitemapCmd executes the add-from-sitemap command
func runAddFromSitemapCmd(cmd *cobra.Command, args []string) error {
	// Get dependencies
	deps, err := cmdcommon.NewCommandDeps()
	if err != nil {
		return fmt.Errorf("failed to initialize dependencies: %w", err)
	}

	fetcher := sitemap.NewFetcher(sitemap.Params{Logger: deps.Logger})
	urls, err := fetcher.Fetch(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("failed to fetch sitemap: %w", err)
	}
	if len(urls) == 0 {
		deps.Logger.Info("Sitemap contained no URLs", "sitemap", args[0])
		return nil
	}

	q, err := cmdcommon.OpenQueue(deps.Config, deps.Logger)
	if err != nil {
		return err
	}

	added := 0
	for _, u := range urls {
		opts := queue.AddOptions{}
		if u.LastMod != "" {
			opts.Metadata = map[string]string{"lastmod": u.LastMod}
		}
		if q.AddWith(u.Loc, queue.SourceSitemap, opts) {
			added++
		}
	}
	if persistErr := q.Persist(); persistErr != nil {
		return fmt.Errorf("failed to persist queue: %w", persistErr)
	}

	deps.Logger.Info("Added URLs from sitemap",
		"sitemap", args[0],
		"found", len(urls),
		"added", added,
	)
	fmt.Printf("Added %d of %d URLs from %s\n", added, len(urls), args[0])
	return nil
}
