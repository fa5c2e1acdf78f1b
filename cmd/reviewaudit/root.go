package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/nao1215/reviewaudit/internal/log"
)

// NewRootCmd creates the root command for reviewaudit.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reviewaudit",
		Short: "Integrity auditor for the customer reviews of a locksmith site",
		Long: `reviewaudit audits the customer reviews published on a locksmith site, read
from a directory of static pages or crawled from the live site.

It reports customer names that appear on several pages, review texts that are
near-duplicates of each other, and pages whose reviews mention services that do
not belong there. Reports are printed as text, JSON or Markdown and kept in a
local database for later inspection.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	cmd.AddCommand(NewAuditCmd())
	cmd.AddCommand(NewExtractCmd())
	cmd.AddCommand(NewReportsCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// newLogger creates the redacting logger writing to the command's stderr.
func newLogger(cmd *cobra.Command, verbose bool) *slog.Logger {
	return log.NewLogger(cmd.ErrOrStderr(), verbose)
}
