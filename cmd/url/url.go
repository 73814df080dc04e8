// Package url implements the command-line interface for managing the
// URL submission queue. It provides commands for adding, listing,
// removing, and inspecting the URLs tracked for indexing submission.
package url

import (
	"github.com/jonesrussell/goindexer/internal/queue"
	"github.com/spf13/cobra"
)

var (
	addPriority  int
	listStatus   string
	removeNotify bool
	removeForce  bool
)

// Command returns the url command for use in the root command
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "url",
		Short: "Manage the URL submission queue",
		Long:  `Manage the queue of URLs tracked for indexing API submission`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(
		createAddCmd(),
		createAddFromFileCmd(),
		createAddFromSitemapCmd(),
		createListCmd(),
		createRemoveCmd(),
		createResetFailedCmd(),
		createStatusCmd(),
	)
	return cmd
}

// createAddCmd creates the add command
func createAddCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add [url]",
		Short: "Add a URL to the queue",
		Args:  cobra.ExactArgs(1),
		RunE:  runAddCmd,
	}
	cmd.Flags().IntVar(&addPriority, "priority", queue.DefaultPriority,
		"Priority for the URL (higher priorities can be selected with run --min-priority)")
	return cmd
}

// createAddFromFileCmd creates the add-from-file command
func createAddFromFileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-from-file [path]",
		Short: "Add URLs from a text file",
		Long: `Add every URL listed in a text file, one per line. Blank lines
and lines starting with # are skipped.`,
		Args: cobra.ExactArgs(1),
		RunE: runAddFromFileCmd,
	}
}

// createAddFromSitemapCmd creates the add-from-sitemap command
func createAddFromSitemapCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add-from-sitemap [sitemap-url]",
		Short: "Add URLs from a sitemap",
		Long: `Fetch a sitemap and add every URL it lists. Sitemap index
documents are followed to their child sitemaps.`,
		Args: cobra.ExactArgs(1),
		RunE: runAddFromSitemapCmd,
	}
}

// createListCmd creates the list command
func createListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked URLs",
		RunE:  runListCmd,
	}
	cmd.Flags().StringVar(&listStatus, "status", "",
		"Only show URLs with this status (pending, submitted, failed, permanently_failed)")
	return cmd
}

// createRemoveCmd creates the remove command
func createRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove [url]",
		Short: "Remove a URL from the queue",
		Args:  cobra.ExactArgs(1),
		RunE:  runRemoveCmd,
	}
	cmd.Flags().BoolVar(&removeNotify, "notify", false,
		"Notify the indexing API that the URL was deleted before removing it")
	cmd.Flags().BoolVarP(&removeForce, "force", "f", false, "Force removal without confirmation")
	return cmd
}

// createResetFailedCmd creates the reset-failed command
func createResetFailedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-failed",
		Short: "Reset failed URLs back to pending",
		RunE:  runResetFailedCmd,
	}
}

// createStatusCmd creates the status command
func createStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status [url]",
		Short: "Show the local and remote status of a URL",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatusCmd,
	}
}
