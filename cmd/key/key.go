// Package key implements the command-line interface for managing the
// service account keys used to authenticate indexing submissions. It
// provides commands for adding, listing, and testing keys.
package key

import (
	"github.com/spf13/cobra"
)

// Command returns the key command for use in the root command
func Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage service account API keys",
		Long:  `Manage the service account key files used to authenticate indexing API submissions`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	cmd.AddCommand(createAddCmd(), createListCmd(), createTestCmd())
	return cmd
}

// createAddCmd creates the add command
func createAddCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "add [key-file]",
		Short: "Add a service account key",
		Long: `Validate a service account JSON key file and copy it into the
configured API keys directory.`,
		Args: cobra.ExactArgs(1),
		RunE: runAddCmd,
	}
}

// createListCmd creates the list command
func createListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List configured API keys",
		RunE:  runListCmd,
	}
}

// createTestCmd creates the test command
func createTestCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Verify each API key can obtain an access token",
		RunE:  runTestCmd,
	}
}
