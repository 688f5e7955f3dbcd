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
	searchMode        string
	searchLimit       int
	searchMinScore    float64
	searchModuleTypes string
	searchPathPattern string
	searchRerank      bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the indexed codebase",
	Long: `Search the indexed codebase across the configured retrieval signals.

Modes:
  semantic_only  embedding similarity only
  graph_only     call-graph name match only
  hybrid         both signals, fused (default)
  intelligent    adds intent classification and optional LLM reranking
  multi_stage    wide recall, graph enrichment, refusion, LLM reranking

Examples:
  bskb search "расчет НДС"
  bskb search ОбщийМодуль --mode=graph_only
  bskb search "document posting" --mode=intelligent --rerank
  bskb search pricing --module-types=module --limit=5`,
	Args: cobra.ExactArgs(1),
	Run:  runSearch,
}

func init() {
	searchCmd.Flags().StringVar(&searchMode, "mode", string(model.ModeHybrid),
		"Search mode (semantic_only, graph_only, hybrid, intelligent, multi_stage)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", model.DefaultLimit, "Maximum number of results")
	searchCmd.Flags().Float64Var(&searchMinScore, "min-score", 0, "Minimum score threshold")
	searchCmd.Flags().StringVar(&searchModuleTypes, "module-types", "",
		"Filter by unit kinds (comma-separated: module,function,procedure)")
	searchCmd.Flags().StringVar(&searchPathPattern, "path", "", "Filter by file path pattern")
	searchCmd.Flags().BoolVar(&searchRerank, "rerank", false, "Apply LLM reranking (intelligent mode)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	logger := newLogger(formatFlag)
	app := mustBuildApp(logger)
	defer app.Close()

	var moduleTypes []string
	if searchModuleTypes != "" {
		moduleTypes = strings.Split(searchModuleTypes, ",")
	}

	req := model.SearchRequest{
		Query:           args[0],
		Mode:            model.SearchMode(searchMode),
		Limit:           searchLimit,
		MinScore:        searchMinScore,
		ModuleTypes:     moduleTypes,
		FilePathPattern: searchPathPattern,
		UseLLMReranking: searchRerank,
	}

	resp, err := app.searcher.Search(context.Background(), req)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error searching: %v\n", err)
		os.Exit(1)
	}

	if formatFlag == "human" {
		printSearchResults(resp)
		return
	}
	printJSON(resp)
}
