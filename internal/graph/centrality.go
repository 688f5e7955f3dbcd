package graph

import (
	"context"
	"sort"

	"bskb/internal/model"
)

// CentralityScore is a unit's normalized degree centrality.
type CentralityScore struct {
	UnitID string  `json:"unitId"`
	Name   string  `json:"name"`
	Module string  `json:"module"`
	Score  float64 `json:"score"`
}

// Community is one connected component of the undirected call graph.
type Community struct {
	Size    int      `json:"size"`
	Members []string `json:"members"`
}

// DegreeCentrality scores each unit by (in + out) / (2 * (n - 1)) and
// returns the topN, highest first.
func (a *Analyzer) DegreeCentrality(ctx context.Context, topN int) ([]CentralityScore, error) {
	if topN <= 0 {
		topN = 10
	}

	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	n := len(s.order)
	if n < 2 {
		return []CentralityScore{}, nil
	}

	scores := make([]CentralityScore, 0, n)
	for _, id := range s.order {
		u := s.units[id]
		degree := len(s.in[id]) + len(s.out[id])
		scores = append(scores, CentralityScore{
			UnitID: id,
			Name:   u.Name,
			Module: u.Module,
			Score:  model.Clamp01(float64(degree) / float64(2*(n-1))),
		})
	}

	sort.Slice(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].UnitID < scores[j].UnitID
	})
	if len(scores) > topN {
		scores = scores[:topN]
	}
	return scores, nil
}

// DetectCommunities finds connected components over the undirected view
// of the call graph using union-find with path compression.
func (a *Analyzer) DetectCommunities(ctx context.Context) ([]Community, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	uf := newUnionFind(s.order)
	for _, id := range s.order {
		for _, e := range s.out[id] {
			uf.union(e.SourceID, e.TargetID)
		}
	}

	groups := make(map[string][]string)
	for _, id := range s.order {
		root := uf.find(id)
		groups[root] = append(groups[root], id)
	}

	communities := make([]Community, 0, len(groups))
	for _, members := range groups {
		sort.Strings(members)
		communities = append(communities, Community{Size: len(members), Members: members})
	}
	sort.Slice(communities, func(i, j int) bool {
		if communities[i].Size != communities[j].Size {
			return communities[i].Size > communities[j].Size
		}
		return communities[i].Members[0] < communities[j].Members[0]
	})
	return communities, nil
}

// unionFind implements union-find with path compression and union by rank.
type unionFind struct {
	parent map[string]string
	rank   map[string]int
}

func newUnionFind(ids []string) *unionFind {
	uf := &unionFind{
		parent: make(map[string]string, len(ids)),
		rank:   make(map[string]int, len(ids)),
	}
	for _, id := range ids {
		uf.parent[id] = id
	}
	return uf
}

func (uf *unionFind) find(id string) string {
	parent, ok := uf.parent[id]
	if !ok {
		return id
	}
	if parent != id {
		root := uf.find(parent)
		uf.parent[id] = root
		return root
	}
	return id
}

func (uf *unionFind) union(a, b string) {
	rootA, rootB := uf.find(a), uf.find(b)
	if rootA == rootB {
		return
	}
	switch {
	case uf.rank[rootA] < uf.rank[rootB]:
		uf.parent[rootA] = rootB
	case uf.rank[rootA] > uf.rank[rootB]:
		uf.parent[rootB] = rootA
	default:
		uf.parent[rootB] = rootA
		uf.rank[rootA]++
	}
}
