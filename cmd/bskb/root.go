package main

import (
	"bskb/internal/version"

	"github.com/spf13/cobra"
)

var (
	// formatFlag is the CLI --format flag value
	formatFlag string
	// logLevelFlag is the CLI --log-level flag value
	logLevelFlag string
)

var rootCmd = &cobra.Command{
	Use:   "bskb",
	Short: "BSKB - BSL Knowledge Backend",
	Long: `BSKB (BSL Knowledge Backend) is a retrieval and comprehension layer over
an indexed 1C:Enterprise (BSL) codebase. It combines embedding similarity,
call-graph structure, and optional LLM ranking into ordered, deduplicated
search results, context bundles, and call-graph analytics.`,
	Version: version.Version,
}

func init() {
	rootCmd.SetVersionTemplate("BSKB version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "json",
		"Output format (json, human)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "info",
		"Log level: debug, info, warn, or error")
}
