package search

import (
	"sort"

	"bskb/internal/model"
)

// Weights maps each retrieval source to its fixed fusion weight.
type Weights map[model.RetrievalSource]float64

// DefaultWeights returns the calibrated per-source weights. A hybrid
// source is already internally combined, so it fuses at full weight.
func DefaultWeights() Weights {
	return Weights{
		model.SourceSemantic: 0.6,
		model.SourceGraph:    0.4,
		model.SourceHybrid:   1.0,
	}
}

// Fuser merges per-source retrieval lists into one deduplicated,
// weighted ranking.
type Fuser struct {
	weights Weights
}

// NewFuser creates a fuser. Nil weights fall back to the defaults.
func NewFuser(weights Weights) *Fuser {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Fuser{weights: weights}
}

// Fuse merges result lists keyed by unit id. The first occurrence seeds
// combined = raw x weight; every later occurrence for the same unit adds
// its own weighted share and unions provenance. There is no
// normalization beyond the fixed weights: two-source agreement can
// exceed either single-source score, which up-ranks units confirmed by
// multiple signals.
func (f *Fuser) Fuse(lists ...[]model.RetrievalResult) []model.FusedResult {
	byUnit := make(map[string]*model.FusedResult)
	var order []string

	for _, list := range lists {
		for _, r := range list {
			weight, ok := f.weights[r.Source]
			if !ok {
				weight = 1.0
			}
			share := r.Score * weight

			existing, seen := byUnit[r.UnitID]
			if !seen {
				fr := &model.FusedResult{
					RetrievalResult: r,
					CombinedScore:   share,
					ScoreBreakdown:  map[model.RetrievalSource]float64{r.Source: share},
					Sources:         []model.RetrievalSource{r.Source},
				}
				byUnit[r.UnitID] = fr
				order = append(order, r.UnitID)
				continue
			}

			existing.CombinedScore += share
			existing.ScoreBreakdown[r.Source] += share
			if !hasSource(existing.Sources, r.Source) {
				existing.Sources = append(existing.Sources, r.Source)
			}
			// Keep the richer summary when the seed source had none
			if existing.Summary == "" {
				existing.Summary = r.Summary
			}
		}
	}

	fused := make([]model.FusedResult, 0, len(order))
	for _, id := range order {
		fused = append(fused, *byUnit[id])
	}
	sort.SliceStable(fused, func(i, j int) bool {
		if fused[i].CombinedScore != fused[j].CombinedScore {
			return fused[i].CombinedScore > fused[j].CombinedScore
		}
		return fused[i].UnitID < fused[j].UnitID
	})
	return fused
}

func hasSource(sources []model.RetrievalSource, s model.RetrievalSource) bool {
	for _, have := range sources {
		if have == s {
			return true
		}
	}
	return false
}
