package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"bskb/internal/model"
)

// maxRerankCandidates guards the model's context window.
const maxRerankCandidates = 20

// neutralReasoning is attached when ranking falls back to the fused order.
const neutralReasoning = "llm ranking unavailable, fused order preserved"

type rerankEntry struct {
	Index     int     `json:"index"`
	Score     float64 `json:"score"`
	Reasoning string  `json:"reasoning"`
}

// RerankResults asks the model to re-score up to 20 candidates and
// returns at most topK, best first. On any failure the input order is
// preserved with Reranked=false and a neutral reasoning string, so the
// caller always gets a usable ranking.
func (r *Ranker) RerankResults(ctx context.Context, query string, results []model.FusedResult, topK int) []model.RankedResult {
	if len(results) == 0 {
		return []model.RankedResult{}
	}
	if topK <= 0 {
		topK = len(results)
	}

	candidates := results
	if len(candidates) > maxRerankCandidates {
		candidates = candidates[:maxRerankCandidates]
	}

	if r.generator == nil {
		return passthrough(results, topK)
	}

	response, err := r.generator.Generate(ctx, buildRerankPrompt(query, candidates))
	if err != nil {
		r.logger.Warn("Rerank failed, preserving fused order", map[string]interface{}{
			"error": err.Error(),
		})
		return passthrough(results, topK)
	}

	raw, err := ExtractJSON(response)
	if err != nil {
		r.logger.Warn("Rerank response not parseable, preserving fused order", map[string]interface{}{
			"error": err.Error(),
		})
		return passthrough(results, topK)
	}

	var entries []rerankEntry
	if err := json.Unmarshal(raw, &entries); err != nil || len(entries) == 0 {
		return passthrough(results, topK)
	}

	var ranked []model.RankedResult
	seen := make(map[int]bool)
	for _, e := range entries {
		// Out-of-range indices are silently dropped
		if e.Index < 0 || e.Index >= len(candidates) || seen[e.Index] {
			continue
		}
		seen[e.Index] = true
		ranked = append(ranked, model.RankedResult{
			FusedResult: candidates[e.Index],
			LLMScore:    model.Clamp01(e.Score),
			Reasoning:   e.Reasoning,
			Reranked:    true,
		})
	}
	if len(ranked) == 0 {
		return passthrough(results, topK)
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].LLMScore > ranked[j].LLMScore })
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}
	return ranked
}

// passthrough keeps the fused order unchanged.
func passthrough(results []model.FusedResult, topK int) []model.RankedResult {
	n := len(results)
	if n > topK {
		n = topK
	}
	ranked := make([]model.RankedResult, 0, n)
	for _, f := range results[:n] {
		ranked = append(ranked, model.RankedResult{
			FusedResult: f,
			LLMScore:    f.CombinedScore,
			Reasoning:   neutralReasoning,
			Reranked:    false,
		})
	}
	return ranked
}

func buildRerankPrompt(query string, candidates []model.FusedResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Rank these code search candidates by relevance to the query %q.\n\nCandidates:\n", query)
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. path=%s type=%s summary=%q functions=%d score=%.3f\n",
			i, c.FilePath, c.Kind, c.Summary, c.FunctionsCount, c.CombinedScore)
	}
	b.WriteString(`
Respond with a JSON array only, no commentary. One entry per relevant candidate:
[{"index": 0, "score": 0.95, "reasoning": "..."}]
Scores are relevance in [0,1]; index refers to the list above.`)
	return b.String()
}
