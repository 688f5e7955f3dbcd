package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bskb/internal/model"
)

var (
	contextType         string
	contextMaxResults   int
	contextDeps         bool
	contextHistory      bool
	contextWindowDays   int
	contextMinRelevance float64
	contextPreferred    string
	contextExclude      string
)

var contextCmd = &cobra.Command{
	Use:   "context <query>",
	Short: "Assemble a context bundle for a query",
	Long: `Assemble an LLM-ready context bundle: intent analysis, multi-dimensional
retrieval, precision ranking, and a primary/supporting split with optional
dependency records.

Examples:
  bskb context "how is VAT calculated"
  bskb context "posting fails on empty date" --type=debugging
  bskb context ПроведениеДокумента --deps --max-results=5`,
	Args: cobra.ExactArgs(1),
	Run:  runContext,
}

func init() {
	contextCmd.Flags().StringVar(&contextType, "type", "",
		"Context type (code_search, code_understanding, debugging, examples, documentation); empty detects from intent")
	contextCmd.Flags().IntVar(&contextMaxResults, "max-results", model.DefaultLimit, "Primary result count")
	contextCmd.Flags().BoolVar(&contextDeps, "deps", false, "Include dependency records")
	contextCmd.Flags().BoolVar(&contextHistory, "history", false, "Include recently changed units")
	contextCmd.Flags().IntVar(&contextWindowDays, "window-days", 0, "Temporal window in days")
	contextCmd.Flags().Float64Var(&contextMinRelevance, "min-relevance", 0, "Minimum relevance threshold")
	contextCmd.Flags().StringVar(&contextPreferred, "prefer-types", "",
		"Preferred unit kinds (comma-separated)")
	contextCmd.Flags().StringVar(&contextExclude, "exclude", "",
		"File path patterns to exclude (comma-separated)")
	rootCmd.AddCommand(contextCmd)
}

func runContext(cmd *cobra.Command, args []string) {
	logger := newLogger(formatFlag)
	app := mustBuildApp(logger)
	defer app.Close()

	req := model.ContextRequest{
		Query:               args[0],
		ContextType:         model.ContextType(contextType),
		MaxResults:          contextMaxResults,
		IncludeDependencies: contextDeps,
		IncludeHistory:      contextHistory,
		TemporalWindowDays:  contextWindowDays,
		MinRelevance:        contextMinRelevance,
	}
	if contextPreferred != "" {
		req.PreferredModuleTypes = strings.Split(contextPreferred, ",")
	}
	if contextExclude != "" {
		req.ExcludePatterns = strings.Split(contextExclude, ",")
	}

	bundle, err := app.assembler.Assemble(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error assembling context: %v\n", err)
		os.Exit(1)
	}

	if formatFlag == "human" {
		printContext(bundle)
		return
	}
	printJSON(bundle)
}
