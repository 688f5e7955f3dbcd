package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cyclesMaxDepth  int
	cyclesMinLength int

	hotspotsTop      int
	hotspotsMinCalls int

	deadcodeExports bool

	complexityModule string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run call-graph analytics",
	Long: `Run call-graph analytics over the indexed codebase: circular
dependencies, call hotspots, dead code candidates, per-module complexity,
and a combined summary.`,
}

var cyclesCmd = &cobra.Command{
	Use:   "cycles",
	Short: "Find circular dependencies",
	Run: func(cmd *cobra.Command, args []string) {
		app := mustAnalyzeApp()
		defer app.Close()

		cycles, err := app.analyzer.FindCircularDependencies(context.Background(), cyclesMaxDepth, cyclesMinLength)
		exitOnAnalyzeError(err)
		printJSON(map[string]interface{}{"cycles": cycles, "total": len(cycles)})
	},
}

var hotspotsCmd = &cobra.Command{
	Use:   "hotspots",
	Short: "Find heavily called units",
	Run: func(cmd *cobra.Command, args []string) {
		app := mustAnalyzeApp()
		defer app.Close()

		hotspots, err := app.analyzer.FindHotspots(context.Background(), hotspotsTop, hotspotsMinCalls)
		exitOnAnalyzeError(err)
		printJSON(map[string]interface{}{"hotspots": hotspots, "total": len(hotspots)})
	},
}

var deadcodeCmd = &cobra.Command{
	Use:   "deadcode",
	Short: "Find units with no incoming calls",
	Run: func(cmd *cobra.Command, args []string) {
		app := mustAnalyzeApp()
		defer app.Close()

		entries, err := app.analyzer.FindDeadCode(context.Background(), deadcodeExports)
		exitOnAnalyzeError(err)
		printJSON(map[string]interface{}{"deadCode": entries, "total": len(entries)})
	},
}

var complexityCmd = &cobra.Command{
	Use:   "complexity",
	Short: "Calculate per-module complexity metrics",
	Run: func(cmd *cobra.Command, args []string) {
		app := mustAnalyzeApp()
		defer app.Close()

		metrics, err := app.analyzer.CalculateModuleComplexity(context.Background(), complexityModule)
		exitOnAnalyzeError(err)
		printJSON(map[string]interface{}{"modules": metrics, "total": len(metrics)})
	},
}

var summaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Run all analytics and summarize",
	Run: func(cmd *cobra.Command, args []string) {
		app := mustAnalyzeApp()
		defer app.Close()

		summary, err := app.analyzer.AnalyticsSummary(context.Background())
		exitOnAnalyzeError(err)
		printJSON(summary)
	},
}

func init() {
	cyclesCmd.Flags().IntVar(&cyclesMaxDepth, "max-depth", 0, "Maximum cycle search depth (0 = default)")
	cyclesCmd.Flags().IntVar(&cyclesMinLength, "min-length", 0, "Minimum cycle length (0 = default)")

	hotspotsCmd.Flags().IntVar(&hotspotsTop, "top", 0, "Number of hotspots to report (0 = default)")
	hotspotsCmd.Flags().IntVar(&hotspotsMinCalls, "min-calls", 0, "Minimum call count floor (0 = default)")

	deadcodeCmd.Flags().BoolVar(&deadcodeExports, "include-exports", false,
		"Include exported units with no internal callers")

	complexityCmd.Flags().StringVar(&complexityModule, "module", "", "Restrict to one module")

	analyzeCmd.AddCommand(cyclesCmd, hotspotsCmd, deadcodeCmd, complexityCmd, summaryCmd)
	rootCmd.AddCommand(analyzeCmd)
}

func mustAnalyzeApp() *app {
	logger := newLogger(formatFlag)
	return mustBuildApp(logger)
}

func exitOnAnalyzeError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error analyzing: %v\n", err)
		os.Exit(1)
	}
}
