package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"bskb/internal/model"
)

// printJSON writes indented JSON to stdout.
func printJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error formatting output: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}

// printSearchResults renders a search response for terminals.
func printSearchResults(resp *model.SearchResponse) {
	if len(resp.Results) == 0 {
		fmt.Printf("No results for %q (mode %s)\n", resp.Query, resp.Mode)
	}
	for i, r := range resp.Results {
		sources := make([]string, 0, len(r.Sources))
		for _, s := range r.Sources {
			sources = append(sources, string(s))
		}
		fmt.Printf("%2d. [%.2f] %s (%s) %s [%s]\n",
			i+1, r.Score, r.Name, r.Kind, r.FilePath, strings.Join(sources, ","))
		if r.Reasoning != "" {
			fmt.Printf("      %s\n", r.Reasoning)
		}
	}
	if len(resp.Degraded) > 0 {
		fmt.Printf("degraded: %s\n", strings.Join(resp.Degraded, "; "))
	}
	fmt.Printf("%d result(s) in %dms\n", resp.TotalFound, resp.DurationMs)
}

// printContext renders an assembled context bundle for terminals.
func printContext(bundle *model.AssembledContext) {
	fmt.Printf("Context for %q (%s, strategy %s)\n", bundle.Query, bundle.ContextType, bundle.Strategy)
	fmt.Printf("Intent: %s (confidence %.2f)\n", bundle.Intent.Intent, bundle.Intent.Confidence)

	fmt.Println("Primary:")
	for _, r := range bundle.Primary {
		fmt.Printf("  [%.2f] %s (%s) %s\n", r.Score, r.Name, r.Kind, r.FilePath)
	}
	if len(bundle.Supporting) > 0 {
		fmt.Println("Supporting:")
		for _, r := range bundle.Supporting {
			fmt.Printf("  [%.2f] %s (%s) %s\n", r.Score, r.Name, r.Kind, r.FilePath)
		}
	}
	if len(bundle.Dependencies) > 0 {
		fmt.Println("Dependencies:")
		for _, d := range bundle.Dependencies {
			fmt.Printf("  %s imports=%s importedBy=%s\n",
				d.Module, strings.Join(d.Imports, ","), strings.Join(d.ImportedBy, ","))
		}
	}
	if len(bundle.SuggestedActions) > 0 {
		fmt.Println("Suggested:")
		for _, a := range bundle.SuggestedActions {
			fmt.Printf("  - %s\n", a)
		}
	}
	fmt.Printf("avg relevance %.2f, %dms\n", bundle.AvgRelevance, bundle.DurationMs)
}
