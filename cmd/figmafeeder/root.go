// Package main provides the entry point for the figmafeeder CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for figmafeeder.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "figmafeeder",
		Short: "Incremental crawler and reporter for Figma files",
		Long: `figmafeeder crawls the node tree of a Figma file through the REST API.

It fetches nodes in parallel batches, normalizes them into a compact
representation, and renders the result as Markdown, JSON, or plain text.
Completed feeds are stored as snapshots so runs can be compared.

A Figma personal access token is required; set FIGMA_TOKEN or use --token.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewFeedCmd())
	cmd.AddCommand(NewCompareCmd())
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
