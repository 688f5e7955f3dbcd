package assemble

import (
	"context"
	"path"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	bskberrors "bskb/internal/errors"
	"bskb/internal/llm"
	"bskb/internal/logging"
	"bskb/internal/model"
	"bskb/internal/search"
)

const (
	// dependencyUnitLimit bounds the dependency lookup to the strongest
	// primary results
	dependencyUnitLimit = 5
	// reasoningLimit truncates the intent reasoning folded into the
	// rerank query
	reasoningLimit = 100
	// recallMultiplier widens retrieval before the primary/supporting split
	recallMultiplier = 2
)

// Searcher executes one retrieval sub-request.
type Searcher interface {
	Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error)
}

// DependencyResolver looks up module-level dependency records.
type DependencyResolver interface {
	DependencyRecords(ctx context.Context, unitIDs []string) ([]model.DependencyRecord, error)
}

// TemporalSearcher retrieves recently changed units. Optional; nil
// disables the temporal dimension.
type TemporalSearcher interface {
	SearchRecent(ctx context.Context, query string, windowDays, limit int) ([]model.RetrievalResult, error)
}

// Assembler runs the four-stage context pipeline: intent analysis,
// multi-dimensional retrieval, precision ranking, and assembly. Every
// stage degrades on failure; only a malformed request is a hard error.
type Assembler struct {
	searcher Searcher
	deps     DependencyResolver
	ranker   search.IntentRanker
	temporal TemporalSearcher
	logger   *logging.Logger
}

// NewAssembler wires the pipeline. ranker, deps, and temporal may be
// nil, which disables the corresponding stage or dimension.
func NewAssembler(searcher Searcher, deps DependencyResolver, ranker search.IntentRanker, temporal TemporalSearcher, logger *logging.Logger) *Assembler {
	return &Assembler{
		searcher: searcher,
		deps:     deps,
		ranker:   ranker,
		temporal: temporal,
		logger:   logger,
	}
}

// Assemble builds one context bundle for the query.
func (a *Assembler) Assemble(ctx context.Context, req model.ContextRequest) (*model.AssembledContext, error) {
	start := time.Now()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, bskberrors.New(bskberrors.InvalidRequest, "context request rejected", err)
	}

	// Stage 1: intent analysis
	intent := llm.FallbackIntent()
	if a.ranker != nil {
		intent = a.ranker.ClassifyIntent(ctx, req.Query)
	}
	strategy := chooseStrategy(intent)
	contextType := req.ContextType
	if contextType == "" {
		contextType = contextTypeFor(intent.Intent)
	}

	a.logger.Debug("context strategy selected", map[string]interface{}{
		"intent":   intent.Intent,
		"strategy": strategy,
	})

	// Stage 2: multi-dimensional retrieval
	merged := a.retrieve(ctx, req, strategy)

	// Stage 3: precision ranking
	ranked := a.rank(ctx, req, intent, merged)

	// Stage 4: assembly
	primary, supporting := split(ranked, req.MaxResults)

	var dependencies []model.DependencyRecord
	if req.IncludeDependencies && a.deps != nil && len(primary) > 0 {
		n := len(primary)
		if n > dependencyUnitLimit {
			n = dependencyUnitLimit
		}
		ids := make([]string, 0, n)
		for _, r := range primary[:n] {
			ids = append(ids, r.UnitID)
		}
		records, err := a.deps.DependencyRecords(ctx, ids)
		if err != nil {
			a.logger.Warn("dependency lookup failed", map[string]interface{}{"error": err.Error()})
		} else {
			dependencies = records
		}
	}

	elapsed := time.Since(start)
	return &model.AssembledContext{
		Query:            req.Query,
		ContextType:      contextType,
		Strategy:         strategy,
		Primary:          primary,
		Supporting:       supporting,
		Dependencies:     dependencies,
		AvgRelevance:     averageScore(ranked),
		Intent:           intent,
		SuggestedActions: suggestedActions(intent.Intent, len(ranked) > 0),
		ProcessingTime:   elapsed,
		DurationMs:       elapsed.Milliseconds(),
	}, nil
}

// retrieve fans the query out across the retrieval dimensions the
// strategy calls for and merges the result lists, deduplicating by unit
// id with score averaging.
func (a *Assembler) retrieve(ctx context.Context, req model.ContextRequest, strategy string) []model.SearchResult {
	recallLimit := req.MaxResults * recallMultiplier
	if recallLimit > model.MaxLimit {
		recallLimit = model.MaxLimit
	}

	base := model.SearchRequest{
		Query:       req.Query,
		Limit:       recallLimit,
		MinScore:    req.MinRelevance,
		ModuleTypes: req.PreferredModuleTypes,
	}

	modes := []model.SearchMode{model.ModeSemanticOnly}
	if req.IncludeDependencies || strategy == StrategyGraphFocused {
		modes = append(modes, model.ModeGraphOnly)
	}
	if strategy == StrategyComprehensive || strategy == StrategyAdaptive {
		modes = append(modes, model.ModeHybrid)
	}

	withTemporal := req.IncludeHistory && a.temporal != nil
	lists := make([][]model.SearchResult, len(modes)+1)

	g, gctx := errgroup.WithContext(ctx)
	for i, mode := range modes {
		i, mode := i, mode
		g.Go(func() error {
			sub := base
			sub.Mode = mode
			resp, err := a.searcher.Search(gctx, sub)
			if err != nil {
				a.logger.Warn("retrieval dimension failed", map[string]interface{}{
					"mode":  string(mode),
					"error": err.Error(),
				})
				return nil
			}
			lists[i] = resp.Results
			return nil
		})
	}
	if withTemporal {
		g.Go(func() error {
			recent, err := a.temporal.SearchRecent(gctx, req.Query, req.TemporalWindowDays, recallLimit)
			if err != nil {
				a.logger.Warn("temporal dimension failed", map[string]interface{}{"error": err.Error()})
				return nil
			}
			converted := make([]model.SearchResult, 0, len(recent))
			for _, r := range recent {
				converted = append(converted, model.SearchResult{
					UnitID:   r.UnitID,
					Name:     r.Name,
					Kind:     r.Kind,
					Module:   r.Module,
					FilePath: r.FilePath,
					Score:    model.Clamp01(r.Score),
					Summary:  r.Summary,
					Sources:  []model.RetrievalSource{model.SourceTemporal},
				})
			}
			lists[len(modes)] = converted
			return nil
		})
	}
	// Dimension failures are absorbed above; Wait never reports one
	_ = g.Wait()

	return mergeByAverage(lists, req)
}

type aggregate struct {
	result model.SearchResult
	sum    float64
	count  int
}

// mergeByAverage deduplicates results across dimensions. A unit found
// by several dimensions gets the mean of its per-dimension scores and
// the union of their provenance tags.
func mergeByAverage(lists [][]model.SearchResult, req model.ContextRequest) []model.SearchResult {
	byUnit := make(map[string]*aggregate)
	var order []string

	for _, list := range lists {
		for _, r := range list {
			if excluded(r.FilePath, req.ExcludePatterns) {
				continue
			}
			agg, seen := byUnit[r.UnitID]
			if !seen {
				byUnit[r.UnitID] = &aggregate{result: r, sum: r.Score, count: 1}
				order = append(order, r.UnitID)
				continue
			}
			agg.sum += r.Score
			agg.count++
			for _, s := range r.Sources {
				if !hasSource(agg.result.Sources, s) {
					agg.result.Sources = append(agg.result.Sources, s)
				}
			}
		}
	}

	merged := make([]model.SearchResult, 0, len(order))
	for _, id := range order {
		agg := byUnit[id]
		r := agg.result
		r.Score = agg.sum / float64(agg.count)
		if r.Score < req.MinRelevance {
			continue
		}
		merged = append(merged, r)
	}
	sort.SliceStable(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].UnitID < merged[j].UnitID
	})
	return merged
}

// rank applies LLM precision ranking with the detected intent and its
// reasoning folded into the query. The intent reasoning is truncated so
// a verbose classification cannot crowd the candidates out of the
// prompt.
func (a *Assembler) rank(ctx context.Context, req model.ContextRequest, intent model.IntentClassification, merged []model.SearchResult) []model.SearchResult {
	if a.ranker == nil || len(merged) == 0 {
		return merged
	}

	query := req.Query
	if intent.Intent != "" {
		query = req.Query + " [intent: " + intent.Intent
		if intent.Reasoning != "" {
			query += "; reasoning: " + truncateReasoning(intent.Reasoning)
		}
		query += "]"
	}

	fused := make([]model.FusedResult, 0, len(merged))
	for _, r := range merged {
		fused = append(fused, model.FusedResult{
			RetrievalResult: model.RetrievalResult{
				UnitID:         r.UnitID,
				Name:           r.Name,
				Kind:           r.Kind,
				Module:         r.Module,
				FilePath:       r.FilePath,
				Score:          r.Score,
				Summary:        r.Summary,
				FunctionsCount: r.FunctionsCount,
				VariablesCount: r.VariablesCount,
			},
			CombinedScore: r.Score,
			Sources:       r.Sources,
		})
	}

	ranked := a.ranker.RerankResults(ctx, query, fused, len(fused))
	out := make([]model.SearchResult, 0, len(ranked))
	for _, r := range ranked {
		out = append(out, model.SearchResult{
			UnitID:         r.UnitID,
			Name:           r.Name,
			Kind:           r.Kind,
			Module:         r.Module,
			FilePath:       r.FilePath,
			Score:          model.Clamp01(r.LLMScore),
			Summary:        r.Summary,
			FunctionsCount: r.FunctionsCount,
			VariablesCount: r.VariablesCount,
			Sources:        r.Sources,
			Reranked:       r.Reranked,
			Reasoning:      r.Reasoning,
		})
	}
	return out
}

// split takes the strongest maxResults as primary and the next
// maxResults as supporting; anything beyond that is dropped.
func split(ranked []model.SearchResult, maxResults int) (primary, supporting []model.SearchResult) {
	if len(ranked) <= maxResults {
		return ranked, nil
	}
	end := 2 * maxResults
	if end > len(ranked) {
		end = len(ranked)
	}
	return ranked[:maxResults], ranked[maxResults:end]
}

func averageScore(results []model.SearchResult) float64 {
	if len(results) == 0 {
		return 0
	}
	var sum float64
	for _, r := range results {
		sum += r.Score
	}
	return sum / float64(len(results))
}

func truncateReasoning(s string) string {
	if len(s) <= reasoningLimit {
		return s
	}
	return s[:reasoningLimit]
}

func excluded(filePath string, patterns []string) bool {
	for _, p := range patterns {
		if ok, err := path.Match(p, filePath); err == nil && ok {
			return true
		}
		if strings.Contains(filePath, p) {
			return true
		}
	}
	return false
}

func hasSource(sources []model.RetrievalSource, s model.RetrievalSource) bool {
	for _, have := range sources {
		if have == s {
			return true
		}
	}
	return false
}
