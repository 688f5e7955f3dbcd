package search

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	bskberrors "bskb/internal/errors"
	"bskb/internal/logging"
	"bskb/internal/model"
)

// Multi-stage tuning. Recall widens the candidate pool before graph
// enrichment narrows it back down; totals at or above fanSaturation
// map to a full graph score.
const (
	recallMultiplier = 5
	rerankMultiplier = 2
	fanSaturation    = 50.0
)

// Embedder turns query text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorSearcher retrieves candidates by embedding similarity.
type VectorSearcher interface {
	SearchEmbeddings(ctx context.Context, vector []float32, limit int, minScore float64, filter model.SearchFilter) ([]model.RetrievalResult, error)
}

// GraphSearcher retrieves candidates by structural name match.
type GraphSearcher interface {
	SearchByName(ctx context.Context, query string, limit int, filter model.SearchFilter) ([]model.RetrievalResult, error)
}

// GraphMetrics exposes per-unit fan degrees for multi-stage enrichment.
type GraphMetrics interface {
	FanDegrees(ctx context.Context) (map[string][2]int, error)
}

// IntentRanker classifies queries and reranks fused candidates. Both
// operations degrade internally and never return errors.
type IntentRanker interface {
	ClassifyIntent(ctx context.Context, query string) model.IntentClassification
	RerankResults(ctx context.Context, query string, results []model.FusedResult, topK int) []model.RankedResult
}

// ResponseCache is a best-effort response cache. Failures are ignored.
type ResponseCache interface {
	Get(key string) (string, bool, error)
	Set(key string, valueJSON string, ttl time.Duration) error
}

// Options tunes the orchestrator's per-branch timeouts and fusion
// weights.
type Options struct {
	VectorTimeout time.Duration
	GraphTimeout  time.Duration
	Weights       Weights
	CacheTTL      time.Duration
}

// Orchestrator fans a search request out to the retrieval
// collaborators, fuses their results, and applies optional LLM
// precision ranking. All collaborators are injected; any of ranker,
// metrics, and cache may be nil, which disables the corresponding
// stage.
type Orchestrator struct {
	embedder Embedder
	vector   VectorSearcher
	graph    GraphSearcher
	metrics  GraphMetrics
	ranker   IntentRanker
	cache    ResponseCache
	fuser    *Fuser

	vectorTimeout time.Duration
	graphTimeout  time.Duration
	cacheTTL      time.Duration

	logger *logging.Logger
}

// NewOrchestrator wires the orchestrator. Zero timeouts fall back to
// 3s per branch; a zero cache TTL falls back to 5 minutes.
func NewOrchestrator(embedder Embedder, vector VectorSearcher, graph GraphSearcher, metrics GraphMetrics, ranker IntentRanker, cache ResponseCache, opts Options, logger *logging.Logger) *Orchestrator {
	if opts.VectorTimeout <= 0 {
		opts.VectorTimeout = 3 * time.Second
	}
	if opts.GraphTimeout <= 0 {
		opts.GraphTimeout = 3 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	return &Orchestrator{
		embedder:      embedder,
		vector:        vector,
		graph:         graph,
		metrics:       metrics,
		ranker:        ranker,
		cache:         cache,
		fuser:         NewFuser(opts.Weights),
		vectorTimeout: opts.VectorTimeout,
		graphTimeout:  opts.GraphTimeout,
		cacheTTL:      opts.CacheTTL,
		logger:        logger,
	}
}

// Search executes one search request. A malformed request is the only
// hard error; every backend failure degrades to fewer (possibly zero)
// results with the failed branches listed in the response.
func (o *Orchestrator) Search(ctx context.Context, req model.SearchRequest) (*model.SearchResponse, error) {
	start := time.Now()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, bskberrors.New(bskberrors.InvalidRequest, "search request rejected", err)
	}

	key := cacheKey(req)
	if cached := o.cacheGet(req, key); cached != nil {
		cached.DurationMs = time.Since(start).Milliseconds()
		return cached, nil
	}

	var (
		results  []model.SearchResult
		found    int
		degraded []string
	)
	switch req.Mode {
	case model.ModeSemanticOnly:
		results, found, degraded = o.searchSingle(ctx, req, o.semanticBranch)
	case model.ModeGraphOnly:
		results, found, degraded = o.searchSingle(ctx, req, o.graphBranch)
	case model.ModeHybrid:
		results, found, degraded = o.searchHybrid(ctx, req)
	case model.ModeIntelligent:
		results, found, degraded = o.searchIntelligent(ctx, req)
	case model.ModeMultiStage:
		results, found, degraded = o.searchMultiStage(ctx, req)
	}
	if results == nil {
		results = []model.SearchResult{}
	}

	resp := &model.SearchResponse{
		Query:      req.Query,
		Mode:       req.Mode,
		Results:    results,
		TotalFound: found,
		Degraded:   degraded,
		DurationMs: time.Since(start).Milliseconds(),
	}

	o.logger.Debug("search completed", map[string]interface{}{
		"mode":     string(req.Mode),
		"results":  len(results),
		"degraded": len(degraded),
		"ms":       resp.DurationMs,
	})

	if len(degraded) == 0 {
		o.cacheSet(req, key, resp)
	}
	return resp, nil
}

type branchFn func(ctx context.Context, req model.SearchRequest, limit int) Outcome

// searchSingle runs one retrieval branch and returns its raw scores.
func (o *Orchestrator) searchSingle(ctx context.Context, req model.SearchRequest, branch branchFn) ([]model.SearchResult, int, []string) {
	out := branch(ctx, req, req.Limit)
	degraded := degradedReasons(out)

	results := make([]model.SearchResult, 0, len(out.Results))
	for _, r := range out.Results {
		results = append(results, fromRetrieval(r))
	}
	total := len(results)
	return truncate(results, req.Limit), total, degraded
}

// searchHybrid fans out to both branches concurrently and fuses.
func (o *Orchestrator) searchHybrid(ctx context.Context, req model.SearchRequest) ([]model.SearchResult, int, []string) {
	fused, degraded := o.fanOut(ctx, req, req.Limit)

	results := make([]model.SearchResult, 0, len(fused))
	for _, f := range fused {
		results = append(results, fromFused(f))
	}
	total := len(results)
	return truncate(results, req.Limit), total, degraded
}

// searchIntelligent classifies the query intent, runs a hybrid pass,
// loosens the score threshold when the pass comes back empty, and
// applies LLM reranking when requested.
func (o *Orchestrator) searchIntelligent(ctx context.Context, req model.SearchRequest) ([]model.SearchResult, int, []string) {
	if o.ranker != nil {
		intent := o.ranker.ClassifyIntent(ctx, req.Query)
		o.logger.Debug("query intent classified", map[string]interface{}{
			"intent":     intent.Intent,
			"confidence": intent.Confidence,
		})
	}

	fused, degraded := o.fanOut(ctx, req, req.Limit)

	if len(fused) == 0 && req.MinScore > 0 {
		// The threshold may have filtered everything; retry without it
		loosened := req
		loosened.MinScore = 0
		out := o.semanticBranch(ctx, loosened, req.Limit)
		degraded = append(degraded, degradedReasons(out)...)
		fused = o.fuser.Fuse(out.Results)
	}

	total := len(fused)
	if req.UseLLMReranking && o.ranker != nil && len(fused) > 0 {
		ranked := o.ranker.RerankResults(ctx, req.Query, fused, req.Limit)
		results := make([]model.SearchResult, 0, len(ranked))
		for _, r := range ranked {
			results = append(results, fromRanked(r))
		}
		return results, total, degraded
	}

	results := make([]model.SearchResult, 0, len(fused))
	for _, f := range fused {
		results = append(results, fromFused(f))
	}
	return truncate(results, req.Limit), total, degraded
}

// searchMultiStage runs wide semantic recall, enriches the candidates
// with call-graph fan degrees, refuses the two signals, and reranks the
// top candidates.
func (o *Orchestrator) searchMultiStage(ctx context.Context, req model.SearchRequest) ([]model.SearchResult, int, []string) {
	recallLimit := req.Limit * recallMultiplier
	if recallLimit > model.MaxLimit {
		recallLimit = model.MaxLimit
	}

	out := o.semanticBranch(ctx, req, recallLimit)
	degraded := degradedReasons(out)

	graphSignal := o.enrichWithFanDegrees(ctx, out.Results, &degraded)
	fused := o.fuser.Fuse(out.Results, graphSignal)
	total := len(fused)

	if len(fused) > req.Limit*rerankMultiplier {
		fused = fused[:req.Limit*rerankMultiplier]
	}

	if o.ranker != nil && len(fused) > 0 {
		ranked := o.ranker.RerankResults(ctx, req.Query, fused, req.Limit)
		results := make([]model.SearchResult, 0, len(ranked))
		for _, r := range ranked {
			results = append(results, fromRanked(r))
		}
		return results, total, degraded
	}

	results := make([]model.SearchResult, 0, len(fused))
	for _, f := range fused {
		results = append(results, fromFused(f))
	}
	return truncate(results, req.Limit), total, degraded
}

// fanOut runs the semantic and graph branches concurrently and fuses
// whatever they produced.
func (o *Orchestrator) fanOut(ctx context.Context, req model.SearchRequest, limit int) ([]model.FusedResult, []string) {
	branches := []branchFn{o.semanticBranch, o.graphBranch}
	outcomes := make([]Outcome, len(branches))

	var wg sync.WaitGroup
	for i, branch := range branches {
		wg.Add(1)
		go func(i int, branch branchFn) {
			defer wg.Done()
			outcomes[i] = branch(ctx, req, limit)
		}(i, branch)
	}
	wg.Wait()

	degraded := degradedReasons(outcomes...)
	lists := make([][]model.RetrievalResult, 0, len(outcomes))
	for _, out := range outcomes {
		lists = append(lists, out.Results)
	}
	return o.fuser.Fuse(lists...), degraded
}

// semanticBranch embeds the query and searches the vector store under
// the vector timeout.
func (o *Orchestrator) semanticBranch(ctx context.Context, req model.SearchRequest, limit int) Outcome {
	const branch = "semantic"
	if o.embedder == nil || o.vector == nil {
		return Degraded(branch, "vector retrieval not configured")
	}

	tctx, cancel := context.WithTimeout(ctx, o.vectorTimeout)
	defer cancel()

	vector, err := o.embedder.Embed(tctx, req.Query)
	if err != nil {
		o.logger.Warn("query embedding failed", map[string]interface{}{"error": err.Error()})
		return Degraded(branch, "embedding failed: "+err.Error())
	}

	results, err := o.vector.SearchEmbeddings(tctx, vector, limit, req.MinScore, filterOf(req))
	if err != nil {
		o.logger.Warn("vector retrieval failed", map[string]interface{}{"error": err.Error()})
		return Degraded(branch, "vector retrieval failed: "+err.Error())
	}
	return Ok(branch, results)
}

// graphBranch searches by structural name match under the graph
// timeout. The store has no score threshold, so MinScore is applied
// here.
func (o *Orchestrator) graphBranch(ctx context.Context, req model.SearchRequest, limit int) Outcome {
	const branch = "graph"
	if o.graph == nil {
		return Degraded(branch, "graph retrieval not configured")
	}

	tctx, cancel := context.WithTimeout(ctx, o.graphTimeout)
	defer cancel()

	results, err := o.graph.SearchByName(tctx, req.Query, limit, filterOf(req))
	if err != nil {
		o.logger.Warn("graph retrieval failed", map[string]interface{}{"error": err.Error()})
		return Degraded(branch, "graph retrieval failed: "+err.Error())
	}

	if req.MinScore > 0 {
		kept := results[:0]
		for _, r := range results {
			if r.Score >= req.MinScore {
				kept = append(kept, r)
			}
		}
		results = kept
	}
	return Ok(branch, results)
}

// enrichWithFanDegrees converts call-graph fan degrees of the recalled
// candidates into a second score signal.
func (o *Orchestrator) enrichWithFanDegrees(ctx context.Context, candidates []model.RetrievalResult, degraded *[]string) []model.RetrievalResult {
	if o.metrics == nil || len(candidates) == 0 {
		return nil
	}

	tctx, cancel := context.WithTimeout(ctx, o.graphTimeout)
	defer cancel()

	fan, err := o.metrics.FanDegrees(tctx)
	if err != nil {
		o.logger.Warn("fan degree enrichment failed", map[string]interface{}{"error": err.Error()})
		*degraded = append(*degraded, "graph enrichment failed: "+err.Error())
		return nil
	}

	enriched := make([]model.RetrievalResult, 0, len(candidates))
	for _, c := range candidates {
		degrees, ok := fan[c.UnitID]
		if !ok {
			continue
		}
		total := degrees[0] + degrees[1]
		if total == 0 {
			continue
		}
		g := c
		g.Source = model.SourceGraph
		g.Score = model.Clamp01(float64(total) / fanSaturation)
		enriched = append(enriched, g)
	}
	return enriched
}

func filterOf(req model.SearchRequest) model.SearchFilter {
	return model.SearchFilter{
		ModuleTypes:     req.ModuleTypes,
		FilePathPattern: req.FilePathPattern,
		MinFunctions:    req.MinFunctions,
		MaxFunctions:    req.MaxFunctions,
		MinVariables:    req.MinVariables,
		MaxVariables:    req.MaxVariables,
	}
}

func degradedReasons(outcomes ...Outcome) []string {
	var reasons []string
	for _, out := range outcomes {
		if out.State == StateDegraded {
			reasons = append(reasons, out.Branch+": "+out.Reason)
		}
	}
	return reasons
}

func truncate(results []model.SearchResult, limit int) []model.SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}

func fromRetrieval(r model.RetrievalResult) model.SearchResult {
	return model.SearchResult{
		UnitID:         r.UnitID,
		Name:           r.Name,
		Kind:           r.Kind,
		Module:         r.Module,
		FilePath:       r.FilePath,
		Score:          model.Clamp01(r.Score),
		Summary:        r.Summary,
		FunctionsCount: r.FunctionsCount,
		VariablesCount: r.VariablesCount,
		Sources:        []model.RetrievalSource{r.Source},
	}
}

func fromFused(f model.FusedResult) model.SearchResult {
	return model.SearchResult{
		UnitID:         f.UnitID,
		Name:           f.Name,
		Kind:           f.Kind,
		Module:         f.Module,
		FilePath:       f.FilePath,
		Score:          model.Clamp01(f.CombinedScore),
		Summary:        f.Summary,
		FunctionsCount: f.FunctionsCount,
		VariablesCount: f.VariablesCount,
		Sources:        f.Sources,
	}
}

func fromRanked(r model.RankedResult) model.SearchResult {
	result := fromFused(r.FusedResult)
	result.Score = model.Clamp01(r.LLMScore)
	result.Reranked = r.Reranked
	result.Reasoning = r.Reasoning
	return result
}

// cacheKey identifies one cacheable request. Requests carrying filters
// or reranking bypass the cache entirely.
func cacheKey(req model.SearchRequest) string {
	return fmt.Sprintf("search:%s|%s|%d", req.Query, req.Mode, req.Limit)
}

func cacheable(req model.SearchRequest) bool {
	return len(req.ModuleTypes) == 0 &&
		req.FilePathPattern == "" &&
		req.MinScore == 0 &&
		req.MinFunctions == 0 && req.MaxFunctions == 0 &&
		req.MinVariables == 0 && req.MaxVariables == 0 &&
		!req.UseLLMReranking
}

func (o *Orchestrator) cacheGet(req model.SearchRequest, key string) *model.SearchResponse {
	if o.cache == nil || !cacheable(req) {
		return nil
	}
	raw, found, err := o.cache.Get(key)
	if err != nil || !found {
		return nil
	}
	var resp model.SearchResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return nil
	}
	return &resp
}

func (o *Orchestrator) cacheSet(req model.SearchRequest, key string, resp *model.SearchResponse) {
	if o.cache == nil || !cacheable(req) {
		return
	}
	raw, err := json.Marshal(resp)
	if err != nil {
		return
	}
	if err := o.cache.Set(key, string(raw), o.cacheTTL); err != nil {
		o.logger.Debug("cache write failed", map[string]interface{}{"error": err.Error()})
	}
}
