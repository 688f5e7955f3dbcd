package graph

import (
	"context"
	"sort"

	"bskb/internal/model"
)

// DependencyRecords resolves module-level imports / imported-by for the
// given units. Used by the context assembler to enrich primary results.
func (a *Analyzer) DependencyRecords(ctx context.Context, unitIDs []string) ([]model.DependencyRecord, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	// Module adjacency: which modules call into / out of each module
	imports := make(map[string]map[string]bool)
	importedBy := make(map[string]map[string]bool)
	for _, id := range s.order {
		from := s.moduleOf(id)
		for _, e := range s.out[id] {
			to := s.moduleOf(e.TargetID)
			if from == "" || to == "" || from == to {
				continue
			}
			if imports[from] == nil {
				imports[from] = make(map[string]bool)
			}
			imports[from][to] = true
			if importedBy[to] == nil {
				importedBy[to] = make(map[string]bool)
			}
			importedBy[to][from] = true
		}
	}

	records := make([]model.DependencyRecord, 0, len(unitIDs))
	for _, id := range unitIDs {
		u, ok := s.units[id]
		if !ok {
			continue
		}
		records = append(records, model.DependencyRecord{
			UnitID:     id,
			Module:     u.Module,
			Imports:    sortedKeys(imports[u.Module]),
			ImportedBy: sortedKeys(importedBy[u.Module]),
		})
	}
	return records, nil
}

// FanDegrees returns distinct incoming/outgoing edge counts per unit.
// The multi-stage search pipeline uses this for graph-metric enrichment.
func (a *Analyzer) FanDegrees(ctx context.Context) (map[string][2]int, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	degrees := make(map[string][2]int, len(s.order))
	for _, id := range s.order {
		degrees[id] = [2]int{len(s.in[id]), len(s.out[id])}
	}
	return degrees, nil
}

func sortedKeys(set map[string]bool) []string {
	if len(set) == 0 {
		return nil
	}
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
