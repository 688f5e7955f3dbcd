package graph

import (
	"context"
	"sort"

	"bskb/internal/model"
)

// Fixed parameters for the combined analytics run.
const (
	summaryCycleDepth  = 5
	summaryMinCycleLen = 2
	summaryHotspotTopN = 10
	summaryMinCalls    = 5
	summaryExamples    = 5
)

// Summary is the combined output of all analyses with fixed parameters.
type Summary struct {
	TotalCycles   int            `json:"totalCycles"`
	CycleSeverity map[string]int `json:"cycleSeverity"`
	TopCycles     []model.Cycle  `json:"topCycles"`

	TotalHotspots   int             `json:"totalHotspots"`
	HotspotSeverity map[string]int  `json:"hotspotSeverity"`
	TopHotspots     []model.Hotspot `json:"topHotspots"`

	TotalDeadCode int                   `json:"totalDeadCode"`
	TopDeadCode   []model.DeadCodeEntry `json:"topDeadCode"`

	ModuleCount   int                       `json:"moduleCount"`
	TopComplexity []model.ComplexityMetrics `json:"topComplexity"`

	CommunityCount int               `json:"communityCount"`
	TopCentrality  []CentralityScore `json:"topCentrality"`
}

// AnalyticsSummary runs every analysis with fixed parameters (cycle depth
// 5 / min length 2, hotspot top 10 / min calls 5, exports excluded) and
// returns counts, severity breakdowns, and top examples per category.
func (a *Analyzer) AnalyticsSummary(ctx context.Context) (*Summary, error) {
	cycles, err := a.FindCircularDependencies(ctx, summaryCycleDepth, summaryMinCycleLen)
	if err != nil {
		return nil, err
	}
	hotspots, err := a.FindHotspots(ctx, summaryHotspotTopN, summaryMinCalls)
	if err != nil {
		return nil, err
	}
	deadCode, err := a.FindDeadCode(ctx, false)
	if err != nil {
		return nil, err
	}
	complexity, err := a.CalculateModuleComplexity(ctx, "")
	if err != nil {
		return nil, err
	}
	centrality, err := a.DegreeCentrality(ctx, summaryExamples)
	if err != nil {
		return nil, err
	}
	communities, err := a.DetectCommunities(ctx)
	if err != nil {
		return nil, err
	}

	summary := &Summary{
		TotalCycles:     len(cycles),
		CycleSeverity:   make(map[string]int),
		TopCycles:       topCycles(cycles),
		TotalHotspots:   len(hotspots),
		HotspotSeverity: make(map[string]int),
		TopHotspots:     topHotspots(hotspots),
		TotalDeadCode:   len(deadCode),
		TopDeadCode:     topDeadCode(deadCode),
		ModuleCount:     len(complexity),
		TopComplexity:   topComplexity(complexity),
		CommunityCount:  len(communities),
		TopCentrality:   centrality,
	}
	for _, c := range cycles {
		summary.CycleSeverity[string(c.Severity)]++
	}
	for _, h := range hotspots {
		summary.HotspotSeverity[string(h.Severity)]++
	}

	a.logger.Info("Analytics summary computed", map[string]interface{}{
		"cycles":      summary.TotalCycles,
		"hotspots":    summary.TotalHotspots,
		"deadCode":    summary.TotalDeadCode,
		"modules":     summary.ModuleCount,
		"communities": summary.CommunityCount,
	})
	return summary, nil
}

func topCycles(cycles []model.Cycle) []model.Cycle {
	if len(cycles) > summaryExamples {
		return cycles[:summaryExamples]
	}
	return cycles
}

func topHotspots(hotspots []model.Hotspot) []model.Hotspot {
	if len(hotspots) > summaryExamples {
		return hotspots[:summaryExamples]
	}
	return hotspots
}

func topDeadCode(entries []model.DeadCodeEntry) []model.DeadCodeEntry {
	if len(entries) > summaryExamples {
		return entries[:summaryExamples]
	}
	return entries
}

// topComplexity picks the highest-cyclomatic modules.
func topComplexity(metrics []model.ComplexityMetrics) []model.ComplexityMetrics {
	picked := make([]model.ComplexityMetrics, len(metrics))
	copy(picked, metrics)
	sort.Slice(picked, func(i, j int) bool {
		if picked[i].CyclomaticComplexity != picked[j].CyclomaticComplexity {
			return picked[i].CyclomaticComplexity > picked[j].CyclomaticComplexity
		}
		return picked[i].Module < picked[j].Module
	})
	if len(picked) > summaryExamples {
		picked = picked[:summaryExamples]
	}
	return picked
}
