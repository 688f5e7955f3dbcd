package search

import (
	"context"
	"errors"
	"testing"
	"time"

	bskberrors "bskb/internal/errors"
	"bskb/internal/logging"
	"bskb/internal/model"
)

type stubEmbedder struct {
	vector []float32
	err    error
}

func (s *stubEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return s.vector, s.err
}

type stubVector struct {
	results []model.RetrievalResult
	err     error
	calls   int
}

func (s *stubVector) SearchEmbeddings(ctx context.Context, vector []float32, limit int, minScore float64, filter model.SearchFilter) ([]model.RetrievalResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if len(s.results) > limit {
		return s.results[:limit], nil
	}
	return s.results, nil
}

type stubGraph struct {
	results []model.RetrievalResult
	err     error
	calls   int
}

func (s *stubGraph) SearchByName(ctx context.Context, query string, limit int, filter model.SearchFilter) ([]model.RetrievalResult, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.results, nil
}

type stubMetrics struct {
	fan map[string][2]int
	err error
}

func (s *stubMetrics) FanDegrees(ctx context.Context) (map[string][2]int, error) {
	return s.fan, s.err
}

type stubRanker struct {
	intent       model.IntentClassification
	rerankCalled bool
}

func (s *stubRanker) ClassifyIntent(ctx context.Context, query string) model.IntentClassification {
	return s.intent
}

func (s *stubRanker) RerankResults(ctx context.Context, query string, results []model.FusedResult, topK int) []model.RankedResult {
	s.rerankCalled = true
	ranked := make([]model.RankedResult, 0, len(results))
	// Reverse the fused order so reranking is observable
	for i := len(results) - 1; i >= 0; i-- {
		ranked = append(ranked, model.RankedResult{
			FusedResult: results[i],
			LLMScore:    float64(len(results)-i) / float64(len(results)+1),
			Reasoning:   "stub",
			Reranked:    true,
		})
	}
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

type memCache struct {
	entries map[string]string
}

func (c *memCache) Get(key string) (string, bool, error) {
	v, ok := c.entries[key]
	return v, ok, nil
}

func (c *memCache) Set(key string, valueJSON string, ttl time.Duration) error {
	if c.entries == nil {
		c.entries = map[string]string{}
	}
	c.entries[key] = valueJSON
	return nil
}

func newTestOrchestrator(embedder Embedder, vector VectorSearcher, graph GraphSearcher, metrics GraphMetrics, ranker IntentRanker, cache ResponseCache) *Orchestrator {
	return NewOrchestrator(embedder, vector, graph, metrics, ranker, cache, Options{}, logging.Nop())
}

func semanticResults(pairs ...interface{}) []model.RetrievalResult {
	var out []model.RetrievalResult
	for i := 0; i < len(pairs); i += 2 {
		out = append(out, retrieval(pairs[i].(string), pairs[i+1].(float64), model.SourceSemantic))
	}
	return out
}

func TestSearchRejectsInvalidRequest(t *testing.T) {
	o := newTestOrchestrator(&stubEmbedder{}, &stubVector{}, &stubGraph{}, nil, nil, nil)

	_, err := o.Search(context.Background(), model.SearchRequest{Query: ""})
	if err == nil {
		t.Fatal("expected error for empty query")
	}
	if !bskberrors.IsInvalidRequest(err) {
		t.Errorf("error code = %s, want INVALID_REQUEST", bskberrors.CodeOf(err))
	}
}

func TestSearchSemanticOnly(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.9, "m2", 0.7)}
	graph := &stubGraph{}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1, 0}}, vector, graph, nil, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeSemanticOnly})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 2 || resp.TotalFound != 2 {
		t.Fatalf("got %d results (total %d), want 2", len(resp.Results), resp.TotalFound)
	}
	if resp.Results[0].UnitID != "m1" || resp.Results[0].Score != 0.9 {
		t.Errorf("top = %s/%v, want m1/0.9 (raw score, no fusion weighting)", resp.Results[0].UnitID, resp.Results[0].Score)
	}
	if graph.calls != 0 {
		t.Errorf("graph searched %d times in semantic_only mode", graph.calls)
	}
	if len(resp.Degraded) != 0 {
		t.Errorf("unexpected degradation: %v", resp.Degraded)
	}
}

func TestSearchGraphOnly(t *testing.T) {
	vector := &stubVector{}
	graph := &stubGraph{results: []model.RetrievalResult{retrieval("m1", 0.95, model.SourceGraph)}}
	o := newTestOrchestrator(&stubEmbedder{}, vector, graph, nil, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "m1", Mode: model.ModeGraphOnly})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Score != 0.95 {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if vector.calls != 0 {
		t.Errorf("vector searched %d times in graph_only mode", vector.calls)
	}
}

func TestSearchHybridFusesBothSignals(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.8)}
	graph := &stubGraph{results: []model.RetrievalResult{retrieval("m1", 0.5, model.SourceGraph)}}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, graph, nil, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeHybrid})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want 1 (deduplicated)", len(resp.Results))
	}
	got := resp.Results[0]
	if got.Score < 0.679 || got.Score > 0.681 {
		t.Errorf("fused score = %v, want 0.68", got.Score)
	}
	if len(got.Sources) != 2 {
		t.Errorf("sources = %v, want both", got.Sources)
	}
}

func TestSearchHybridDegradesOnSingleBranchFailure(t *testing.T) {
	vector := &stubVector{err: errors.New("store offline")}
	graph := &stubGraph{results: []model.RetrievalResult{retrieval("m1", 0.9, model.SourceGraph)}}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, graph, nil, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeHybrid})
	if err != nil {
		t.Fatalf("partial failure must not surface as error: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].UnitID != "m1" {
		t.Fatalf("unexpected results: %+v", resp.Results)
	}
	if len(resp.Degraded) != 1 {
		t.Fatalf("degraded = %v, want one semantic entry", resp.Degraded)
	}
}

func TestSearchTotalFailureReturnsEmptyNotError(t *testing.T) {
	vector := &stubVector{err: errors.New("store offline")}
	graph := &stubGraph{err: errors.New("also offline")}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, graph, nil, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeHybrid})
	if err != nil {
		t.Fatalf("total backend failure must not surface as error: %v", err)
	}
	if len(resp.Results) != 0 || resp.TotalFound != 0 {
		t.Errorf("got %d results (total %d), want 0", len(resp.Results), resp.TotalFound)
	}
	if len(resp.Degraded) != 2 {
		t.Errorf("degraded = %v, want two entries", resp.Degraded)
	}
}

func TestSearchRespectsLimit(t *testing.T) {
	var many []model.RetrievalResult
	for i := 0; i < 30; i++ {
		many = append(many, retrieval(string(rune('a'+i)), 0.9-float64(i)*0.01, model.SourceSemantic))
	}
	vector := &stubVector{results: many}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, &stubGraph{}, nil, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeSemanticOnly, Limit: 3})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) > 3 {
		t.Errorf("got %d results, want at most 3", len(resp.Results))
	}
}

func TestSearchScoresStayInRange(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 1.0)}
	graph := &stubGraph{results: []model.RetrievalResult{retrieval("m1", 1.0, model.SourceGraph)}}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, graph, nil, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeHybrid})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	for _, r := range resp.Results {
		if r.Score < 0 || r.Score > 1 {
			t.Errorf("score %v out of [0,1]", r.Score)
		}
	}
}

func TestSearchIntelligentReranksWhenRequested(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.9, "m2", 0.8)}
	ranker := &stubRanker{intent: model.IntentClassification{Intent: "find_module", Confidence: 0.9}}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, &stubGraph{}, nil, ranker, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{
		Query: "q", Mode: model.ModeIntelligent, UseLLMReranking: true,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !ranker.rerankCalled {
		t.Fatal("expected reranking to run")
	}
	// Stub ranker reverses the fused order
	if resp.Results[0].UnitID != "m2" {
		t.Errorf("top = %s, want m2 after rerank", resp.Results[0].UnitID)
	}
	if !resp.Results[0].Reranked {
		t.Error("expected reranked flag on results")
	}
}

func TestSearchIntelligentLoosensThresholdWhenEmpty(t *testing.T) {
	vector := &stubVector{}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, &stubGraph{}, nil, nil, nil)

	_, err := o.Search(context.Background(), model.SearchRequest{
		Query: "q", Mode: model.ModeIntelligent, MinScore: 0.9,
	})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if vector.calls != 2 {
		t.Errorf("vector searched %d times, want 2 (initial + loosened retry)", vector.calls)
	}
}

func TestSearchMultiStageEnrichesAndReranks(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.6, "m2", 0.5)}
	metrics := &stubMetrics{fan: map[string][2]int{
		"m2": {30, 25}, // saturated, graph share 0.4
	}}
	ranker := &stubRanker{}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, &stubGraph{}, metrics, ranker, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeMultiStage, Limit: 5})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if !ranker.rerankCalled {
		t.Error("expected multi_stage to rerank")
	}
	if len(resp.Results) == 0 {
		t.Fatal("expected results")
	}
}

func TestSearchMultiStageSurvivesEnrichmentFailure(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.6)}
	metrics := &stubMetrics{err: errors.New("graph offline")}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, &stubGraph{}, metrics, nil, nil)

	resp, err := o.Search(context.Background(), model.SearchRequest{Query: "q", Mode: model.ModeMultiStage})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(resp.Results) != 1 {
		t.Fatalf("got %d results, want semantic-only fallback", len(resp.Results))
	}
	if len(resp.Degraded) != 1 {
		t.Errorf("degraded = %v, want enrichment entry", resp.Degraded)
	}
}

func TestSearchUsesCacheOnRepeat(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.9)}
	cache := &memCache{}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, &stubGraph{}, nil, nil, cache)

	req := model.SearchRequest{Query: "q", Mode: model.ModeSemanticOnly}
	if _, err := o.Search(context.Background(), req); err != nil {
		t.Fatalf("first search: %v", err)
	}
	first := vector.calls

	resp, err := o.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("second search: %v", err)
	}
	if vector.calls != first {
		t.Errorf("vector searched again on cache hit")
	}
	if len(resp.Results) != 1 || resp.Results[0].UnitID != "m1" {
		t.Errorf("cached response corrupted: %+v", resp.Results)
	}
}

func TestSearchFilteredRequestBypassesCache(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.9)}
	cache := &memCache{}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, &stubGraph{}, nil, nil, cache)

	req := model.SearchRequest{Query: "q", Mode: model.ModeSemanticOnly, FilePathPattern: "src/*"}
	if _, err := o.Search(context.Background(), req); err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(cache.entries) != 0 {
		t.Errorf("filtered request was cached: %v", cache.entries)
	}
}

func TestSearchIsIdempotent(t *testing.T) {
	vector := &stubVector{results: semanticResults("m1", 0.8, "m2", 0.6)}
	graph := &stubGraph{results: []model.RetrievalResult{retrieval("m2", 0.9, model.SourceGraph)}}
	o := newTestOrchestrator(&stubEmbedder{vector: []float32{1}}, vector, graph, nil, nil, nil)

	req := model.SearchRequest{Query: "q", Mode: model.ModeHybrid}
	first, err := o.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	second, err := o.Search(context.Background(), req)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(first.Results) != len(second.Results) {
		t.Fatalf("result counts differ: %d vs %d", len(first.Results), len(second.Results))
	}
	for i := range first.Results {
		if first.Results[i].UnitID != second.Results[i].UnitID || first.Results[i].Score != second.Results[i].Score {
			t.Errorf("result %d differs between identical requests", i)
		}
	}
}
