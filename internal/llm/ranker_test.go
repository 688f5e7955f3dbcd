package llm

import (
	"context"
	"fmt"
	"testing"

	"bskb/internal/logging"
	"bskb/internal/model"
)

// stubGenerator returns a canned response or error.
type stubGenerator struct {
	response string
	err      error
	prompts  []string
}

func (s *stubGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	s.prompts = append(s.prompts, prompt)
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func fused(id string, score float64) model.FusedResult {
	return model.FusedResult{
		RetrievalResult: model.RetrievalResult{
			UnitID: id, Name: id, Kind: model.KindModule, Module: id,
			FilePath: "src/" + id + "/Module.bsl",
		},
		CombinedScore: score,
		Sources:       []model.RetrievalSource{model.SourceSemantic},
	}
}

func TestClassifyIntentParsesResponse(t *testing.T) {
	gen := &stubGenerator{response: `{"intent": "debug_issue", "confidence": 0.85, "reasoning": "mentions an error", "suggested_filters": {"kind": "function"}}`}
	ranker := NewRanker(gen, logging.Nop())

	got := ranker.ClassifyIntent(context.Background(), "why does posting fail")
	if got.Intent != IntentDebugIssue {
		t.Errorf("intent = %s", got.Intent)
	}
	if got.Confidence != 0.85 {
		t.Errorf("confidence = %v", got.Confidence)
	}
	if got.SuggestedFilters["kind"] != "function" {
		t.Errorf("filters = %v", got.SuggestedFilters)
	}
}

func TestClassifyIntentFallbacks(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"collaborator error", &stubGenerator{err: fmt.Errorf("connection refused")}},
		{"prose response", &stubGenerator{response: "this looks like a search for a function"}},
		{"unknown intent", &stubGenerator{response: `{"intent": "write_code", "confidence": 0.9}`}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewRanker(tt.gen, logging.Nop()).ClassifyIntent(context.Background(), "query")
			if got.Intent != IntentGeneralSearch || got.Confidence != 0.5 || got.Reasoning != "fallback" {
				t.Errorf("expected documented fallback, got %+v", got)
			}
			if got.SuggestedFilters == nil {
				t.Error("fallback filters must be an empty map, not nil")
			}
		})
	}
}

func TestClassifyIntentClampsConfidence(t *testing.T) {
	gen := &stubGenerator{response: `{"intent": "find_module", "confidence": 3.5}`}
	got := NewRanker(gen, logging.Nop()).ClassifyIntent(context.Background(), "q")
	if got.Confidence != 1.0 {
		t.Errorf("confidence = %v, want clamped to 1.0", got.Confidence)
	}
}

func TestRerankResultsOrdersByLLMScore(t *testing.T) {
	gen := &stubGenerator{response: `[{"index": 1, "score": 0.9, "reasoning": "direct match"}, {"index": 0, "score": 0.4, "reasoning": "related"}]`}
	ranker := NewRanker(gen, logging.Nop())

	in := []model.FusedResult{fused("m1", 0.8), fused("m2", 0.5)}
	out := ranker.RerankResults(context.Background(), "q", in, 10)

	if len(out) != 2 {
		t.Fatalf("got %d results, want 2", len(out))
	}
	if out[0].UnitID != "m2" || out[1].UnitID != "m1" {
		t.Errorf("order = %s, %s; want m2, m1", out[0].UnitID, out[1].UnitID)
	}
	for _, r := range out {
		if !r.Reranked {
			t.Errorf("result %s not marked reranked", r.UnitID)
		}
	}
}

func TestRerankResultsDropsOutOfRangeIndices(t *testing.T) {
	gen := &stubGenerator{response: `[{"index": 7, "score": 0.9}, {"index": -1, "score": 0.8}, {"index": 0, "score": 0.6, "reasoning": "ok"}]`}
	in := []model.FusedResult{fused("m1", 0.8), fused("m2", 0.5)}

	out := NewRanker(gen, logging.Nop()).RerankResults(context.Background(), "q", in, 10)
	if len(out) != 1 || out[0].UnitID != "m1" {
		t.Errorf("expected only the valid index, got %+v", out)
	}
}

func TestRerankResultsClampsScores(t *testing.T) {
	gen := &stubGenerator{response: `[{"index": 0, "score": 2.5}, {"index": 1, "score": -1}]`}
	in := []model.FusedResult{fused("m1", 0.8), fused("m2", 0.5)}

	out := NewRanker(gen, logging.Nop()).RerankResults(context.Background(), "q", in, 10)
	if len(out) != 2 {
		t.Fatalf("got %d results", len(out))
	}
	if out[0].LLMScore != 1.0 || out[1].LLMScore != 0.0 {
		t.Errorf("scores = %v, %v; want 1.0, 0.0", out[0].LLMScore, out[1].LLMScore)
	}
}

func TestRerankResultsFallbackPreservesOrder(t *testing.T) {
	tests := []struct {
		name string
		gen  *stubGenerator
	}{
		{"collaborator error", &stubGenerator{err: fmt.Errorf("timeout")}},
		{"unparseable", &stubGenerator{response: "I think the first one is best"}},
		{"empty array", &stubGenerator{response: "[]"}},
	}
	in := []model.FusedResult{fused("m1", 0.8), fused("m2", 0.5)}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := NewRanker(tt.gen, logging.Nop()).RerankResults(context.Background(), "q", in, 10)
			if len(out) != 2 {
				t.Fatalf("got %d results, want 2", len(out))
			}
			for i, r := range out {
				if r.UnitID != in[i].UnitID {
					t.Errorf("order changed at %d: %s", i, r.UnitID)
				}
				if r.LLMScore != in[i].CombinedScore {
					t.Errorf("score changed at %d: %v", i, r.LLMScore)
				}
				if r.Reranked {
					t.Error("fallback must not claim reranked")
				}
				if r.Reasoning == "" {
					t.Error("fallback reasoning must be non-empty")
				}
			}
		})
	}
}

func TestRerankResultsTruncatesCandidatesAndTopK(t *testing.T) {
	var in []model.FusedResult
	for i := 0; i < 30; i++ {
		in = append(in, fused(fmt.Sprintf("m%02d", i), 0.5))
	}
	// Index 25 lies beyond the 20-candidate guard and is dropped;
	// index 3 survives.
	gen := &stubGenerator{response: `[{"index": 25, "score": 0.9}, {"index": 3, "score": 0.8}]`}

	out := NewRanker(gen, logging.Nop()).RerankResults(context.Background(), "q", in, 10)
	if len(out) != 1 || out[0].UnitID != "m03" {
		t.Errorf("got %+v, want only m03", out)
	}

	// topK truncation on the fallback path
	out = NewRanker(&stubGenerator{response: "garbage"}, logging.Nop()).RerankResults(context.Background(), "q", in, 4)
	if len(out) != 4 {
		t.Errorf("topK fallback length = %d, want 4", len(out))
	}
}

func TestRerankResultsEmptyInput(t *testing.T) {
	out := NewRanker(&stubGenerator{response: "[]"}, logging.Nop()).RerankResults(context.Background(), "q", nil, 5)
	if len(out) != 0 {
		t.Errorf("expected empty output, got %+v", out)
	}
}
