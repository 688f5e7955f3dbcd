package graph

import (
	"context"
	"fmt"
	"sort"

	"bskb/internal/logging"
	"bskb/internal/model"
)

// Store is the graph-query collaborator: it serves the indexed units and
// call edges.
type Store interface {
	Units(ctx context.Context) ([]model.CodeUnit, error)
	Edges(ctx context.Context) ([]model.CallEdge, error)
}

// Analyzer runs deterministic analyses over the call graph: cycles,
// hotspots, dead code, complexity, centrality, and communities.
type Analyzer struct {
	store  Store
	logger *logging.Logger
}

// NewAnalyzer creates a graph analyzer over a store.
func NewAnalyzer(store Store, logger *logging.Logger) *Analyzer {
	return &Analyzer{store: store, logger: logger}
}

// snapshot is one consistent in-memory view of the call graph, built per
// analysis call. Unit ids are iterated in sorted order so every analysis
// is deterministic.
type snapshot struct {
	units map[string]model.CodeUnit
	order []string

	out map[string][]model.CallEdge
	in  map[string][]model.CallEdge
}

func (a *Analyzer) load(ctx context.Context) (*snapshot, error) {
	units, err := a.store.Units(ctx)
	if err != nil {
		return nil, fmt.Errorf("load units: %w", err)
	}
	edges, err := a.store.Edges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load edges: %w", err)
	}

	s := &snapshot{
		units: make(map[string]model.CodeUnit, len(units)),
		order: make([]string, 0, len(units)),
		out:   make(map[string][]model.CallEdge),
		in:    make(map[string][]model.CallEdge),
	}
	for _, u := range units {
		s.units[u.ID] = u
		s.order = append(s.order, u.ID)
	}
	sort.Strings(s.order)

	for _, e := range edges {
		if _, ok := s.units[e.SourceID]; !ok {
			continue
		}
		if _, ok := s.units[e.TargetID]; !ok {
			continue
		}
		s.out[e.SourceID] = append(s.out[e.SourceID], e)
		s.in[e.TargetID] = append(s.in[e.TargetID], e)
	}
	for id := range s.out {
		sort.Slice(s.out[id], func(i, j int) bool { return s.out[id][i].TargetID < s.out[id][j].TargetID })
	}
	for id := range s.in {
		sort.Slice(s.in[id], func(i, j int) bool { return s.in[id][i].SourceID < s.in[id][j].SourceID })
	}

	return s, nil
}

// moduleOf returns the module name containing a unit, or "" when unknown.
func (s *snapshot) moduleOf(id string) string {
	if u, ok := s.units[id]; ok {
		return u.Module
	}
	return ""
}
