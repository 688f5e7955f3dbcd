package graph

import (
	"context"
	"sort"

	"bskb/internal/model"
)

// FindDeadCode reports callable units with zero incoming call edges.
// Exported units are only included when includeExports is set; they get a
// distinct reason code since an exported unit may be an external entry
// point rather than dead.
func (a *Analyzer) FindDeadCode(ctx context.Context, includeExports bool) ([]model.DeadCodeEntry, error) {
	s, err := a.load(ctx)
	if err != nil {
		return nil, err
	}

	var entries []model.DeadCodeEntry
	for _, id := range s.order {
		u := s.units[id]
		// Module units are containers, not call targets
		if u.Kind == model.KindModule {
			continue
		}
		if len(s.in[id]) > 0 {
			continue
		}

		reason := model.ReasonNotExported
		if u.IsExport {
			if !includeExports {
				continue
			}
			reason = model.ReasonButExported
		}

		entries = append(entries, model.DeadCodeEntry{
			UnitID:   id,
			Name:     u.Name,
			Module:   u.Module,
			IsExport: u.IsExport,
			Reason:   reason,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Module != entries[j].Module {
			return entries[i].Module < entries[j].Module
		}
		return entries[i].Name < entries[j].Name
	})
	return entries, nil
}
