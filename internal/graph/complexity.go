package graph

import (
	"context"
	"sort"

	"bskb/internal/model"
)

// CalculateModuleComplexity aggregates complexity metrics per module.
// When module is non-empty, only that module is reported.
//
// The cyclomatic and cohesion formulas are calibrated approximations
// carried over unchanged: cyclomatic = (functions + procedures) +
// total outgoing calls, cohesion = outgoing / (n * (n - 1)). The severity
// thresholds downstream were tuned against exactly these values.
func (a *Analyzer) CalculateModuleComplexity(ctx context.Context, module string) ([]model.ComplexityMetrics, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	type agg struct {
		functions  int
		procedures int
		incoming   int
		outgoing   int
		neighbors  map[string]bool
		unitCount  int
	}
	byModule := make(map[string]*agg)

	get := func(name string) *agg {
		m, ok := byModule[name]
		if !ok {
			m = &agg{neighbors: make(map[string]bool)}
			byModule[name] = m
		}
		return m
	}

	for _, id := range s.order {
		u := s.units[id]
		if module != "" && u.Module != module {
			continue
		}
		m := get(u.Module)
		switch u.Kind {
		case model.KindFunction:
			m.functions++
			m.unitCount++
		case model.KindProcedure:
			m.procedures++
			m.unitCount++
		}

		for _, e := range s.out[id] {
			m.outgoing++
			if other := s.moduleOf(e.TargetID); other != "" && other != u.Module {
				m.neighbors[other] = true
			}
		}
		m.incoming += len(s.in[id])
	}

	metrics := make([]model.ComplexityMetrics, 0, len(byModule))
	for name, m := range byModule {
		cohesion := 1.0
		if m.unitCount > 1 {
			cohesion = model.Clamp01(float64(m.outgoing) / float64(m.unitCount*(m.unitCount-1)))
		}
		metrics = append(metrics, model.ComplexityMetrics{
			Module:               name,
			FunctionsCount:       m.functions,
			ProceduresCount:      m.procedures,
			TotalIncomingCalls:   m.incoming,
			TotalOutgoingCalls:   m.outgoing,
			CyclomaticComplexity: (m.functions + m.procedures) + m.outgoing,
			Coupling:             len(m.neighbors),
			Cohesion:             cohesion,
		})
	}

	sort.Slice(metrics, func(i, j int) bool { return metrics[i].Module < metrics[j].Module })
	return metrics, nil
}
