package storage

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"bskb/internal/model"
)

// UpsertEmbedding stores one unit's embedding vector.
func (db *DB) UpsertEmbedding(ctx context.Context, unitID string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty embedding for %s", unitID)
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT OR REPLACE INTO embeddings (unit_id, vector, dims)
		VALUES (?, ?, ?)
	`, unitID, embeddingToBytes(vector), len(vector))
	if err != nil {
		return fmt.Errorf("upsert embedding for %s: %w", unitID, err)
	}
	return nil
}

// SearchEmbeddings is the vector retrieval collaborator: cosine
// similarity of the query vector against every stored embedding. The
// corpus fits in memory at the scale this store serves, so a linear scan
// is deliberate.
func (db *DB) SearchEmbeddings(ctx context.Context, vector []float32, limit int, minScore float64, filter model.SearchFilter) ([]model.RetrievalResult, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT u.id, u.name, u.kind, u.module, u.file_path, u.params_json,
		       u.is_export, u.start_line, u.end_line, u.variables_count, e.vector
		FROM embeddings e
		JOIN units u ON u.id = e.unit_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query embeddings: %w", err)
	}
	defer rows.Close()

	funcCounts, err := db.ModuleFunctionCounts(ctx)
	if err != nil {
		return nil, err
	}

	var results []model.RetrievalResult
	for rows.Next() {
		var u model.CodeUnit
		var kind, paramsJSON string
		var isExport int
		var blob []byte
		if err := rows.Scan(&u.ID, &u.Name, &kind, &u.Module, &u.FilePath, &paramsJSON,
			&isExport, &u.StartLine, &u.EndLine, &u.VariablesCount, &blob); err != nil {
			return nil, err
		}
		u.Kind = model.UnitKind(kind)
		u.IsExport = isExport != 0

		score := model.Clamp01(CosineSimilarity(vector, bytesToEmbedding(blob)))
		if score < minScore {
			continue
		}

		r := model.RetrievalResult{
			UnitID:         u.ID,
			Name:           u.Name,
			Kind:           u.Kind,
			Module:         u.Module,
			FilePath:       u.FilePath,
			Score:          score,
			Source:         model.SourceSemantic,
			Summary:        unitSummary(u),
			FunctionsCount: funcCounts[u.Module],
			VariablesCount: u.VariablesCount,
		}
		if matchesFilter(r, filter) {
			results = append(results, r)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UnitID < results[j].UnitID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// CosineSimilarity computes the cosine of the angle between two vectors.
// Mismatched lengths compare over the shorter prefix; zero vectors score 0.
func CosineSimilarity(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// embeddingToBytes serializes a vector as little-endian float32s.
func embeddingToBytes(vector []float32) []byte {
	out := make([]byte, len(vector)*4)
	for i, v := range vector {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

// bytesToEmbedding converts a little-endian byte slice back to []float32.
func bytesToEmbedding(data []byte) []float32 {
	n := len(data) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4 : i*4+4]))
	}
	return out
}
