package storage

import (
	"cmp"
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"slices"
	"strings"
)

// searchVector performs vector similarity search using cosine similarity
func searchVector(ctx context.Context, q querier, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	if limit <= 0 {
		return []VectorResult{}, nil
	}
	// Use SQL-side distance when sqlite-vec is available
	if VectorExtensionAvailable {
		return searchVectorOptimized(ctx, q, collectionID, queryVector, limit, filters)
	}
	return searchVectorFallback(ctx, q, collectionID, queryVector, limit, filters)
}

// searchVectorOptimized uses the sqlite-vec extension to rank in SQL
func searchVectorOptimized(ctx context.Context, q querier, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	queryVectorBlob := SerializeVector(queryVector)

	// vec_distance_cosine returns a distance (lower is better); convert to similarity
	query := `
		SELECT
			c.id as chunk_id,
			1.0 - vec_distance_cosine(e.vector, ?) as similarity
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE c.collection_id = ?
		AND e.dimension = ?
	`
	args := []any{queryVectorBlob, collectionID, len(queryVector)}

	query, args = applyChunkFilters(query, args, filters)

	if filters != nil && filters.MinRelevance > 0 {
		query += " AND (1.0 - vec_distance_cosine(e.vector, ?)) >= ?"
		args = append(args, queryVectorBlob, filters.MinRelevance)
	}

	query += " ORDER BY similarity DESC, c.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute vector search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	results := make([]VectorResult, 0, limit)
	for rows.Next() {
		var result VectorResult
		if err := rows.Scan(&result.ChunkID, &result.SimilarityScore); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		results = append(results, result)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// searchVectorFallback computes cosine similarity in Go (purego builds)
func searchVectorFallback(ctx context.Context, q querier, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	query := `
		SELECT
			c.id as chunk_id,
			e.vector
		FROM chunks c
		INNER JOIN embeddings e ON c.id = e.chunk_id
		WHERE c.collection_id = ?
	`
	args := []any{collectionID}

	query, args = applyChunkFilters(query, args, filters)
	query += " ORDER BY c.id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scored, err := scoreRows(rows, queryVector, filters)
	if err != nil {
		return nil, err
	}
	return topVectorResults(scored, limit), nil
}

// searchText performs BM25 full-text search using FTS5
func searchText(ctx context.Context, q querier, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	sanitized := sanitizeFTSQuery(query)
	if sanitized == "" {
		return nil, ErrEmptyQuery
	}
	if limit <= 0 {
		return []TextResult{}, nil
	}

	sqlQuery := `
		SELECT
			c.id as chunk_id,
			bm25(chunks_fts) as score
		FROM chunks_fts
		INNER JOIN chunks c ON chunks_fts.rowid = c.id
		WHERE chunks_fts MATCH ?
		AND c.collection_id = ?
	`
	args := []any{sanitized, collectionID}

	sqlQuery, args = applyChunkFilters(sqlQuery, args, filters)

	// BM25 is lower-is-better
	sqlQuery += " ORDER BY score, c.id LIMIT ?"
	args = append(args, limit)

	rows, err := q.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FTS search: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return scanTextResults(rows, filters)
}

// applyChunkFilters adds WHERE clause filters on chunk columns
func applyChunkFilters(query string, args []any, filters *SearchFilters) (string, []any) {
	if filters == nil {
		return query, args
	}
	query, args = appendInClause(query, args, "c.chunk_type", filters.ChunkTypes)
	query, args = appendInClause(query, args, "c.data_type", filters.DataTypes)
	return query, args
}

func appendInClause(query string, args []any, column string, values []string) (string, []any) {
	if len(values) == 0 || values[0] == "" {
		return query, args
	}
	placeholders := make([]string, len(values))
	for i, v := range values {
		placeholders[i] = "?"
		args = append(args, v)
	}
	return query + " AND " + column + " IN (" + strings.Join(placeholders, ",") + ")", args
}

// scoreRows reads (chunk id, vector blob) rows and scores each vector
// against query. Vectors of another dimension are skipped.
func scoreRows(rows *sql.Rows, query []float32, filters *SearchFilters) ([]scoredChunk, error) {
	scored := make([]scoredChunk, 0, 256)
	for rows.Next() {
		var (
			id   int64
			blob []byte
		)
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, err
		}
		vec := DeserializeVector(blob)
		if len(vec) != len(query) {
			continue
		}
		score := CosineSimilarity(query, vec)
		if filters != nil && filters.MinRelevance > 0 && score < filters.MinRelevance {
			continue
		}
		scored = append(scored, scoredChunk{id: id, score: score})
	}
	return scored, rows.Err()
}

// topVectorResults ranks scored by descending score and keeps limit
// entries. Equal scores keep row order, which is chunk id order.
func topVectorResults(scored []scoredChunk, limit int) []VectorResult {
	slices.SortStableFunc(scored, func(a, b scoredChunk) int {
		return cmp.Compare(b.score, a.score)
	})
	limit = min(max(limit, 0), len(scored))
	results := make([]VectorResult, 0, limit)
	for _, c := range scored[:limit] {
		results = append(results, VectorResult{ChunkID: c.id, SimilarityScore: c.score})
	}
	return results
}

// scanTextResults maps raw bm25 values into (0, 1]. FTS5 reports bm25 as a
// negative number, lower is better, usually no lower than -50.
func scanTextResults(rows *sql.Rows, filters *SearchFilters) ([]TextResult, error) {
	var results []TextResult
	for rows.Next() {
		var (
			id  int64
			raw float64
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		score := 1.0 / (1.0 + math.Abs(raw)/50.0)
		if filters != nil && filters.MinRelevance > 0 && score < filters.MinRelevance {
			continue
		}
		results = append(results, TextResult{ChunkID: id, BM25Score: score})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if results == nil {
		results = []TextResult{}
	}
	return results, nil
}

type scoredChunk struct {
	id    int64
	score float64
}

// sanitizeFTSQuery turns free text into an FTS5 expression. Each
// whitespace-separated term becomes a quoted phrase and terms are OR-ed, so
// operators and special characters in user input are matched literally.
func sanitizeFTSQuery(query string) string {
	terms := strings.Fields(query)
	phrases := make([]string, 0, len(terms))
	for _, term := range terms {
		term = strings.ReplaceAll(term, `"`, "")
		if term == "" {
			continue
		}
		phrases = append(phrases, `"`+term+`"`)
	}
	return strings.Join(phrases, " OR ")
}

// SerializeVector encodes vector as little-endian float32 values, the
// layout stored in embeddings.vector
func SerializeVector(vector []float32) []byte {
	blob := make([]byte, 0, len(vector)*4)
	for _, v := range vector {
		blob = binary.LittleEndian.AppendUint32(blob, math.Float32bits(v))
	}
	return blob
}

// DeserializeVector decodes a blob written by SerializeVector. Trailing
// bytes that do not form a full float are ignored.
func DeserializeVector(blob []byte) []float32 {
	vector := make([]float32, len(blob)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[4*i:]))
	}
	return vector
}

// CosineSimilarity returns the cosine of the angle between a and b, or 0
// when the lengths differ or either vector is zero
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, sumA, sumB float64
	for i, x := range a {
		y := float64(b[i])
		dot += float64(x) * y
		sumA += float64(x) * float64(x)
		sumB += y * y
	}
	if sumA == 0 || sumB == 0 {
		return 0
	}
	return dot / math.Sqrt(sumA*sumB)
}
