package storage

import (
	"context"
	"testing"
	"time"

	"bskb/internal/logging"
	"bskb/internal/model"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenMemory(logging.Nop())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// twoModuleFixture builds the M1/M2 corpus: M1 exports F1 and calls F2,
// M2 exports F2.
func twoModuleFixture() *Fixture {
	return &Fixture{
		Units: []model.CodeUnit{
			{ID: "m1", Name: "M1", Kind: model.KindModule, Module: "M1", FilePath: "src/M1/Module.bsl"},
			{ID: "m1.f1", Name: "F1", Kind: model.KindFunction, Module: "M1", FilePath: "src/M1/Module.bsl", IsExport: true, StartLine: 3, EndLine: 12},
			{ID: "m2", Name: "M2", Kind: model.KindModule, Module: "M2", FilePath: "src/M2/Module.bsl"},
			{ID: "m2.f2", Name: "F2", Kind: model.KindFunction, Module: "M2", FilePath: "src/M2/Module.bsl", IsExport: true, StartLine: 5, EndLine: 20},
		},
		Edges: []model.CallEdge{
			{SourceID: "m1.f1", TargetID: "m2.f2", CallCount: 2, Lines: []int{7, 9}},
		},
		Embeddings: []FixtureVector{
			{UnitID: "m1", Vector: []float32{1, 0, 0}},
			{UnitID: "m2", Vector: []float32{0, 1, 0}},
		},
	}
}

func TestImportAndReadBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if err := db.Import(ctx, twoModuleFixture()); err != nil {
		t.Fatalf("import: %v", err)
	}

	units, err := db.Units(ctx)
	if err != nil {
		t.Fatalf("units: %v", err)
	}
	if len(units) != 4 {
		t.Fatalf("got %d units, want 4", len(units))
	}

	edges, err := db.Edges(ctx)
	if err != nil {
		t.Fatalf("edges: %v", err)
	}
	if len(edges) != 1 || edges[0].CallCount != 2 || len(edges[0].Lines) != 2 {
		t.Errorf("unexpected edges: %+v", edges)
	}

	u, err := db.GetUnit(ctx, "m1.f1")
	if err != nil {
		t.Fatalf("get unit: %v", err)
	}
	if u == nil || !u.IsExport || u.Kind != model.KindFunction {
		t.Errorf("unexpected unit: %+v", u)
	}

	missing, err := db.GetUnit(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("expected nil for missing unit, got %+v err %v", missing, err)
	}
}

func TestImportRejectsDanglingEdge(t *testing.T) {
	db := openTestDB(t)
	f := twoModuleFixture()
	f.Edges = append(f.Edges, model.CallEdge{SourceID: "m1.f1", TargetID: "ghost"})

	if err := db.Import(context.Background(), f); err == nil {
		t.Fatal("expected error for edge referencing unknown unit")
	}
}

func TestSearchByNameExactMatchRollsUpToModule(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.Import(ctx, twoModuleFixture()); err != nil {
		t.Fatalf("import: %v", err)
	}

	results, err := db.SearchByName(ctx, "F1", 10, model.SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected results for literal F1")
	}
	top := results[0]
	if top.UnitID != "m1" {
		t.Errorf("exact match should roll up to module m1, got %s", top.UnitID)
	}
	if top.Score < 0.9 {
		t.Errorf("exact-name match score = %v, want >= 0.9", top.Score)
	}
	if top.Source != model.SourceGraph {
		t.Errorf("source = %s, want graph", top.Source)
	}
}

func TestSearchByNameFilters(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.Import(ctx, twoModuleFixture()); err != nil {
		t.Fatalf("import: %v", err)
	}

	results, err := db.SearchByName(ctx, "M", 10, model.SearchFilter{FilePathPattern: "src/M2/*"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	for _, r := range results {
		if r.Module != "M2" {
			t.Errorf("filter leaked module %s", r.Module)
		}
	}
}

func TestSearchEmbeddingsOrdersByCosine(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.Import(ctx, twoModuleFixture()); err != nil {
		t.Fatalf("import: %v", err)
	}

	// Query vector near M1's embedding
	results, err := db.SearchEmbeddings(ctx, []float32{0.9, 0.1, 0}, 10, 0, model.SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].UnitID != "m1" || results[1].UnitID != "m2" {
		t.Errorf("order = %s, %s; want m1, m2", results[0].UnitID, results[1].UnitID)
	}
	if results[0].Score <= results[1].Score {
		t.Errorf("scores not descending: %v <= %v", results[0].Score, results[1].Score)
	}
	for _, r := range results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %v outside [0,1]", r.Score)
		}
		if r.Source != model.SourceSemantic {
			t.Errorf("source = %s, want semantic", r.Source)
		}
	}
}

func TestSearchEmbeddingsMinScore(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	if err := db.Import(ctx, twoModuleFixture()); err != nil {
		t.Fatalf("import: %v", err)
	}

	results, err := db.SearchEmbeddings(ctx, []float32{1, 0, 0}, 10, 0.5, model.SearchFilter{})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].UnitID != "m1" {
		t.Errorf("minScore should keep only m1, got %+v", results)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 1.0},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0.0},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1.0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("CosineSimilarity() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEmbeddingRoundTrip(t *testing.T) {
	in := []float32{0.25, -1.5, 3.75, 0}
	out := bytesToEmbedding(embeddingToBytes(in))
	if len(out) != len(in) {
		t.Fatalf("length %d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("index %d: %v != %v", i, in[i], out[i])
		}
	}
}

func TestCacheSetGetExpiry(t *testing.T) {
	db := openTestDB(t)
	cache := NewCache(db)

	if err := cache.Set("k1", `{"v":1}`, 5*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	val, ok, err := cache.Get("k1")
	if err != nil || !ok || val != `{"v":1}` {
		t.Errorf("get = %q, %v, %v", val, ok, err)
	}

	// Already-expired entry must read as a miss
	if err := cache.Set("k2", "stale", -time.Second); err != nil {
		t.Fatalf("set: %v", err)
	}
	_, ok, err = cache.Get("k2")
	if err != nil || ok {
		t.Errorf("expired entry should miss, got ok=%v err=%v", ok, err)
	}

	_, ok, err = cache.Get("absent")
	if err != nil || ok {
		t.Errorf("absent key should miss, got ok=%v err=%v", ok, err)
	}
}

func TestCacheCleanup(t *testing.T) {
	db := openTestDB(t)
	cache := NewCache(db)

	cache.Set("live", "v", time.Minute)
	cache.Set("dead", "v", -time.Minute)

	if err := cache.CleanupExpired(); err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	entries, _, err := cache.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if entries != 1 {
		t.Errorf("entries = %d, want 1", entries)
	}
}
