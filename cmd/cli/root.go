// Package cli is the inbox-agent command line: the server plus operator maintenance commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "inbox-agent",
	Short: "Drafts replies to new Gmail messages from a knowledge base",
	// serve is the default command
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, watchCmd, cursorCmd, ingestCmd, retryCmd, hashPasswordCmd)
}

// Execute runs the root command and exits non-zero on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
