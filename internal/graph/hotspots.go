package graph

import (
	"context"
	"sort"

	"bskb/internal/model"
)

// FindHotspots returns the topN units whose distinct incoming or outgoing
// call-edge count reaches minCalls, ordered by total call volume.
func (a *Analyzer) FindHotspots(ctx context.Context, topN, minCalls int) ([]model.Hotspot, error) {
	if topN <= 0 {
		topN = 10
	}
	if minCalls <= 0 {
		minCalls = 5
	}

	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	var hotspots []model.Hotspot
	for _, id := range s.order {
		incoming := len(s.in[id])
		outgoing := len(s.out[id])
		if incoming < minCalls && outgoing < minCalls {
			continue
		}

		u := s.units[id]
		hotspots = append(hotspots, model.Hotspot{
			UnitID:        id,
			Name:          u.Name,
			Module:        u.Module,
			FilePath:      u.FilePath,
			IncomingCalls: incoming,
			OutgoingCalls: outgoing,
			FanIn:         s.distinctOtherModules(s.in[id], u.Module, edgeSource),
			FanOut:        s.distinctOtherModules(s.out[id], u.Module, edgeTarget),
			Severity:      hotspotSeverity(incoming + outgoing),
		})
	}

	sort.Slice(hotspots, func(i, j int) bool {
		ti := hotspots[i].IncomingCalls + hotspots[i].OutgoingCalls
		tj := hotspots[j].IncomingCalls + hotspots[j].OutgoingCalls
		if ti != tj {
			return ti > tj
		}
		return hotspots[i].UnitID < hotspots[j].UnitID
	})
	if len(hotspots) > topN {
		hotspots = hotspots[:topN]
	}
	return hotspots, nil
}

type edgeEnd int

const (
	edgeSource edgeEnd = iota
	edgeTarget
)

// distinctOtherModules counts distinct modules, excluding the unit's own,
// at the chosen end of the given edges.
func (s *snapshot) distinctOtherModules(edges []model.CallEdge, ownModule string, end edgeEnd) int {
	modules := make(map[string]bool)
	for _, e := range edges {
		id := e.SourceID
		if end == edgeTarget {
			id = e.TargetID
		}
		if m := s.moduleOf(id); m != "" && m != ownModule {
			modules[m] = true
		}
	}
	return len(modules)
}

func hotspotSeverity(totalCalls int) model.HotspotSeverity {
	switch {
	case totalCalls >= 50:
		return model.HotspotHigh
	case totalCalls >= 20:
		return model.HotspotMedium
	default:
		return model.HotspotLow
	}
}
