package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"bskb/internal/model"
)

// Fixture is a JSON snapshot of an indexed corpus: units, call edges,
// and optional precomputed embeddings. The upstream indexer exports this
// shape; tests and the `bskb index` command load it.
type Fixture struct {
	Units      []model.CodeUnit `json:"units"`
	Edges      []model.CallEdge `json:"edges"`
	Embeddings []FixtureVector  `json:"embeddings,omitempty"`
}

// FixtureVector pairs a unit id with its embedding.
type FixtureVector struct {
	UnitID string    `json:"unitId"`
	Vector []float32 `json:"vector"`
}

// LoadFixture reads a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture: %w", err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture: %w", err)
	}
	return &f, nil
}

// Import writes a fixture into the store. Edges referencing unknown
// units are rejected so the call graph stays closed over the unit set.
func (db *DB) Import(ctx context.Context, f *Fixture) error {
	known := make(map[string]bool, len(f.Units))
	for _, u := range f.Units {
		if u.ID == "" {
			return fmt.Errorf("unit %q has no id", u.Name)
		}
		if known[u.ID] {
			return fmt.Errorf("duplicate unit id %s", u.ID)
		}
		known[u.ID] = true
	}
	for _, e := range f.Edges {
		if !known[e.SourceID] || !known[e.TargetID] {
			return fmt.Errorf("edge %s->%s references unknown unit", e.SourceID, e.TargetID)
		}
	}

	if err := db.UpsertUnits(ctx, f.Units); err != nil {
		return err
	}
	if err := db.UpsertEdges(ctx, f.Edges); err != nil {
		return err
	}
	for _, v := range f.Embeddings {
		if !known[v.UnitID] {
			return fmt.Errorf("embedding references unknown unit %s", v.UnitID)
		}
		if err := db.UpsertEmbedding(ctx, v.UnitID, v.Vector); err != nil {
			return err
		}
	}

	db.logger.Info("Imported fixture", map[string]interface{}{
		"units":      len(f.Units),
		"edges":      len(f.Edges),
		"embeddings": len(f.Embeddings),
	})
	return nil
}
