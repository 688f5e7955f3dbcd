package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"bskb/internal/model"
	"bskb/internal/storage"
)

var indexEmbed bool

var indexCmd = &cobra.Command{
	Use:   "index <fixture.json>",
	Short: "Load an index fixture into the store",
	Long: `Load a fixture produced by the upstream indexer: code units, call
edges, and optionally precomputed embedding vectors.

With --embed, units that carry no vector in the fixture are embedded
through the configured embedding endpoint.`,
	Args: cobra.ExactArgs(1),
	Run:  runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexEmbed, "embed", false,
		"Compute embeddings for units without vectors")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) {
	logger := newLogger(formatFlag)
	app := mustBuildApp(logger)
	defer app.Close()

	fixture, err := storage.LoadFixture(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading fixture: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if err := app.db.Import(ctx, fixture); err != nil {
		fmt.Fprintf(os.Stderr, "Error importing fixture: %v\n", err)
		os.Exit(1)
	}

	embedded := 0
	if indexEmbed {
		embedded = embedMissing(ctx, app, fixture)
	}

	fmt.Printf("Imported %d unit(s), %d edge(s), %d fixture vector(s)",
		len(fixture.Units), len(fixture.Edges), len(fixture.Embeddings))
	if indexEmbed {
		fmt.Printf(", embedded %d unit(s)", embedded)
	}
	fmt.Println()
}

// embedMissing computes vectors for fixture units that carried none.
// Embedding failures skip the unit; the index stays usable for graph
// search either way.
func embedMissing(ctx context.Context, a *app, fixture *storage.Fixture) int {
	have := make(map[string]bool, len(fixture.Embeddings))
	for _, e := range fixture.Embeddings {
		have[e.UnitID] = true
	}

	embedded := 0
	for _, unit := range fixture.Units {
		if have[unit.ID] {
			continue
		}
		vector, err := a.embedder.Embed(ctx, embeddingText(unit))
		if err != nil {
			a.logger.Warn("Embedding failed, skipping unit", map[string]interface{}{
				"unit":  unit.ID,
				"error": err.Error(),
			})
			continue
		}
		if err := a.db.UpsertEmbedding(ctx, unit.ID, vector); err != nil {
			a.logger.Warn("Failed to store embedding", map[string]interface{}{
				"unit":  unit.ID,
				"error": err.Error(),
			})
			continue
		}
		embedded++
	}
	return embedded
}

// embeddingText builds the text a unit is embedded under.
func embeddingText(unit model.CodeUnit) string {
	parts := []string{string(unit.Kind), unit.Name, unit.Module}
	if len(unit.Parameters) > 0 {
		parts = append(parts, strings.Join(unit.Parameters, " "))
	}
	return strings.Join(parts, " ")
}
