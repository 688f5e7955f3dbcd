package graph

import (
	"context"
	"sort"
	"strings"

	"bskb/internal/model"
)

// maxReportedCycles caps the cycle list.
const maxReportedCycles = 100

// FindCircularDependencies searches for directed cycles of up to maxDepth
// hops and at least minCycleLen distinct units. Two cycles over the same
// node set are reported once: the dedup key is the sorted node-id set,
// which intentionally merges topologically distinct cycles touching the
// same units.
func (a *Analyzer) FindCircularDependencies(ctx context.Context, maxDepth, minCycleLen int) ([]model.Cycle, error) {
	if maxDepth <= 0 {
		maxDepth = 5
	}
	if minCycleLen <= 0 {
		minCycleLen = 2
	}

	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var cycles []model.Cycle

	for _, start := range s.order {
		path := []string{start}
		onPath := map[string]bool{start: true}
		a.walkCycles(s, start, start, maxDepth, minCycleLen, path, onPath, seen, &cycles)
	}

	// Longest first; equal lengths ordered by node set for stability
	sort.Slice(cycles, func(i, j int) bool {
		if cycles[i].Length != cycles[j].Length {
			return cycles[i].Length > cycles[j].Length
		}
		return cycleKey(cycles[i].Nodes[:cycles[i].Length]) < cycleKey(cycles[j].Nodes[:cycles[j].Length])
	})
	if len(cycles) > maxReportedCycles {
		cycles = cycles[:maxReportedCycles]
	}

	a.logger.Debug("Cycle search completed", map[string]interface{}{
		"cycles":   len(cycles),
		"maxDepth": maxDepth,
	})
	return cycles, nil
}

func (a *Analyzer) walkCycles(s *snapshot, start, current string, depthLeft, minLen int,
	path []string, onPath map[string]bool, seen map[string]bool, cycles *[]model.Cycle) {
	if depthLeft == 0 {
		return
	}

	for _, e := range s.out[current] {
		next := e.TargetID

		if next == start {
			if len(path) >= minLen {
				key := cycleKey(path)
				if !seen[key] {
					seen[key] = true
					nodes := make([]string, len(path)+1)
					copy(nodes, path)
					nodes[len(path)] = start
					*cycles = append(*cycles, model.Cycle{
						Nodes:    nodes,
						Length:   len(path),
						Severity: cycleSeverity(len(path)),
					})
				}
			}
			continue
		}

		// Only walk forward to larger ids than the start node; every
		// cycle is still found once, rooted at its smallest member.
		if next < start || onPath[next] {
			continue
		}

		onPath[next] = true
		a.walkCycles(s, start, next, depthLeft-1, minLen, append(path, next), onPath, seen, cycles)
		delete(onPath, next)
	}
}

// cycleKey is the sorted node-id set of a cycle.
func cycleKey(nodes []string) string {
	sorted := make([]string, len(nodes))
	copy(sorted, nodes)
	sort.Strings(sorted)
	return strings.Join(sorted, "\x00")
}

func cycleSeverity(length int) model.CycleSeverity {
	switch {
	case length >= 5:
		return model.CycleCritical
	case length >= 3:
		return model.CycleWarning
	default:
		return model.CycleInfo
	}
}
