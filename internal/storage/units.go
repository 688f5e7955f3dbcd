package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"

	"bskb/internal/model"
)

// UpsertUnits writes a batch of code units.
func (db *DB) UpsertUnits(ctx context.Context, units []model.CodeUnit) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin units tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO units
			(id, name, kind, module, file_path, params_json, is_export, start_line, end_line, variables_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare units insert: %w", err)
	}
	defer stmt.Close()

	for _, u := range units {
		params, err := json.Marshal(u.Parameters)
		if err != nil {
			return fmt.Errorf("marshal parameters for %s: %w", u.ID, err)
		}
		if _, err := stmt.ExecContext(ctx, u.ID, u.Name, string(u.Kind), u.Module,
			u.FilePath, string(params), boolToInt(u.IsExport), u.StartLine, u.EndLine, u.VariablesCount); err != nil {
			return fmt.Errorf("insert unit %s: %w", u.ID, err)
		}
	}

	return tx.Commit()
}

// UpsertEdges writes a batch of call edges.
func (db *DB) UpsertEdges(ctx context.Context, edges []model.CallEdge) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin edges tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO call_edges
			(source_id, target_id, call_count, lines_json, conditional)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare edges insert: %w", err)
	}
	defer stmt.Close()

	for _, e := range edges {
		lines, err := json.Marshal(e.Lines)
		if err != nil {
			return fmt.Errorf("marshal lines for %s->%s: %w", e.SourceID, e.TargetID, err)
		}
		count := e.CallCount
		if count <= 0 {
			count = 1
		}
		if _, err := stmt.ExecContext(ctx, e.SourceID, e.TargetID, count, string(lines), boolToInt(e.Conditional)); err != nil {
			return fmt.Errorf("insert edge %s->%s: %w", e.SourceID, e.TargetID, err)
		}
	}

	return tx.Commit()
}

const unitColumns = "id, name, kind, module, file_path, params_json, is_export, start_line, end_line, variables_count"

func scanUnit(scanner interface{ Scan(...interface{}) error }) (model.CodeUnit, error) {
	var u model.CodeUnit
	var kind, paramsJSON string
	var isExport int
	err := scanner.Scan(&u.ID, &u.Name, &kind, &u.Module, &u.FilePath,
		&paramsJSON, &isExport, &u.StartLine, &u.EndLine, &u.VariablesCount)
	if err != nil {
		return u, err
	}
	u.Kind = model.UnitKind(kind)
	u.IsExport = isExport != 0
	if err := json.Unmarshal([]byte(paramsJSON), &u.Parameters); err != nil {
		return u, fmt.Errorf("unmarshal parameters for %s: %w", u.ID, err)
	}
	return u, nil
}

// Units returns every indexed code unit.
func (db *DB) Units(ctx context.Context) ([]model.CodeUnit, error) {
	rows, err := db.conn.QueryContext(ctx, "SELECT "+unitColumns+" FROM units ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("query units: %w", err)
	}
	defer rows.Close()

	var units []model.CodeUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		units = append(units, u)
	}
	return units, rows.Err()
}

// Edges returns every call edge.
func (db *DB) Edges(ctx context.Context) ([]model.CallEdge, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT source_id, target_id, call_count, lines_json, conditional
		FROM call_edges ORDER BY source_id, target_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query edges: %w", err)
	}
	defer rows.Close()

	var edges []model.CallEdge
	for rows.Next() {
		var e model.CallEdge
		var linesJSON string
		var conditional int
		if err := rows.Scan(&e.SourceID, &e.TargetID, &e.CallCount, &linesJSON, &conditional); err != nil {
			return nil, err
		}
		e.Conditional = conditional != 0
		if err := json.Unmarshal([]byte(linesJSON), &e.Lines); err != nil {
			return nil, fmt.Errorf("unmarshal lines for %s->%s: %w", e.SourceID, e.TargetID, err)
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// GetUnit returns one unit by id, or (nil, nil) when absent.
func (db *DB) GetUnit(ctx context.Context, id string) (*model.CodeUnit, error) {
	row := db.conn.QueryRowContext(ctx, "SELECT "+unitColumns+" FROM units WHERE id = ?", id)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get unit %s: %w", id, err)
	}
	return &u, nil
}

// ModuleFunctionCounts returns, per module name, the number of function
// and procedure units it contains.
func (db *DB) ModuleFunctionCounts(ctx context.Context) (map[string]int, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT module, COUNT(*) FROM units
		WHERE kind IN ('function', 'procedure')
		GROUP BY module
	`)
	if err != nil {
		return nil, fmt.Errorf("query module counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var module string
		var n int
		if err := rows.Scan(&module, &n); err != nil {
			return nil, err
		}
		counts[module] = n
	}
	return counts, rows.Err()
}

// Graph name-match scores. An exact name hit must clear the 0.9 relevance
// bar; weaker matches rank below any exact one.
const (
	scoreExactMatch  = 0.95
	scorePrefixMatch = 0.85
	scoreSubstring   = 0.70
)

// SearchByName is the graph retrieval collaborator: it matches units by
// literal name against the indexed corpus. Matches on functions and
// procedures are rolled up to their containing module unit so results
// stay at the granularity the fusion layer expects.
func (db *DB) SearchByName(ctx context.Context, query string, limit int, filter model.SearchFilter) ([]model.RetrievalResult, error) {
	if strings.TrimSpace(query) == "" {
		return []model.RetrievalResult{}, nil
	}

	pattern := "%" + escapeLike(query) + "%"
	rows, err := db.conn.QueryContext(ctx,
		"SELECT "+unitColumns+" FROM units WHERE name LIKE ? ESCAPE '\\' COLLATE NOCASE", pattern)
	if err != nil {
		return nil, fmt.Errorf("name search: %w", err)
	}
	defer rows.Close()

	var matches []model.CodeUnit
	for rows.Next() {
		u, err := scanUnit(rows)
		if err != nil {
			return nil, err
		}
		matches = append(matches, u)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	funcCounts, err := db.ModuleFunctionCounts(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[string]model.RetrievalResult)
	for _, u := range matches {
		score := nameMatchScore(u.Name, query)
		target := u
		summary := unitSummary(u)

		if u.Kind != model.KindModule {
			if mod, err := db.moduleUnit(ctx, u.Module); err != nil {
				return nil, err
			} else if mod != nil {
				target = *mod
				summary = fmt.Sprintf("module %s contains %s %s", mod.Name, u.Kind, u.Name)
			}
		}

		r := model.RetrievalResult{
			UnitID:         target.ID,
			Name:           target.Name,
			Kind:           target.Kind,
			Module:         target.Module,
			FilePath:       target.FilePath,
			Score:          score,
			Source:         model.SourceGraph,
			Summary:        summary,
			FunctionsCount: funcCounts[target.Module],
			VariablesCount: target.VariablesCount,
		}
		if prev, ok := best[r.UnitID]; !ok || r.Score > prev.Score {
			best[r.UnitID] = r
		}
	}

	results := make([]model.RetrievalResult, 0, len(best))
	for _, r := range best {
		if matchesFilter(r, filter) {
			results = append(results, r)
		}
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Name < results[j].Name
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (db *DB) moduleUnit(ctx context.Context, module string) (*model.CodeUnit, error) {
	row := db.conn.QueryRowContext(ctx,
		"SELECT "+unitColumns+" FROM units WHERE module = ? AND kind = 'module' LIMIT 1", module)
	u, err := scanUnit(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("module unit %s: %w", module, err)
	}
	return &u, nil
}

func nameMatchScore(name, query string) float64 {
	n, q := strings.ToLower(name), strings.ToLower(query)
	switch {
	case n == q:
		return scoreExactMatch
	case strings.HasPrefix(n, q):
		return scorePrefixMatch
	default:
		return scoreSubstring
	}
}

func unitSummary(u model.CodeUnit) string {
	switch u.Kind {
	case model.KindModule:
		return fmt.Sprintf("module %s (%s)", u.Name, u.FilePath)
	default:
		return fmt.Sprintf("%s %s in module %s", u.Kind, u.Name, u.Module)
	}
}

func matchesFilter(r model.RetrievalResult, f model.SearchFilter) bool {
	if len(f.ModuleTypes) > 0 {
		ok := false
		for _, t := range f.ModuleTypes {
			if strings.EqualFold(t, string(r.Kind)) {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.FilePathPattern != "" {
		matched, err := path.Match(f.FilePathPattern, r.FilePath)
		if err != nil || !matched {
			if !strings.Contains(r.FilePath, f.FilePathPattern) {
				return false
			}
		}
	}
	if r.FunctionsCount < f.MinFunctions {
		return false
	}
	if f.MaxFunctions > 0 && r.FunctionsCount > f.MaxFunctions {
		return false
	}
	if r.VariablesCount < f.MinVariables {
		return false
	}
	if f.MaxVariables > 0 && r.VariablesCount > f.MaxVariables {
		return false
	}
	return true
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	s = strings.ReplaceAll(s, "_", `\_`)
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
