package storage

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned when a requested entity doesn't exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when trying to create a duplicate entity
	ErrAlreadyExists = errors.New("already exists")
	// ErrEmptyQuery is returned when a text search has nothing to match
	ErrEmptyQuery = errors.New("empty search query")
)

// SQLiteStorage implements the Storage interface using SQLite
type SQLiteStorage struct {
	db *sql.DB
}

// openDatabase opens a SQLite database with appropriate settings
func openDatabase(dbPath string) (*sql.DB, error) {
	db, err := sql.Open(DriverName, dbPath)
	if err != nil {
		return nil, err
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite benefits from single writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return db, nil
}

// NewSQLiteStorage creates a new SQLite storage instance
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := ApplyMigrations(context.Background(), db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

// Close closes the database connection
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// SchemaVersion reports the applied schema version
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (string, error) {
	return SchemaVersion(ctx, s.db)
}

// BeginTx starts a new transaction
func (s *SQLiteStorage) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &sqliteTx{tx: tx, storage: s}, nil
}

// querier is an interface that both *sql.DB and *sql.Tx implement
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// sqliteTx wraps a SQL transaction
type sqliteTx struct {
	tx      *sql.Tx
	storage *SQLiteStorage
}

func (t *sqliteTx) Commit() error {
	return t.tx.Commit()
}

func (t *sqliteTx) Rollback() error {
	return t.tx.Rollback()
}

// querier returns the transaction querier
func (t *sqliteTx) querier() querier {
	return t.tx
}

// querier returns the DB querier
func (s *SQLiteStorage) querier() querier {
	return s.db
}

// HashContent returns the SHA-256 digest stored with each chunk
func HashContent(content string) [32]byte {
	return sha256.Sum256([]byte(content))
}

// Collection operations

func (s *SQLiteStorage) createCollectionWithQuerier(ctx context.Context, q querier, collection *Collection) error {
	if collection.Name == "" {
		return fmt.Errorf("failed to create collection: name is empty")
	}
	now := time.Now()
	result, err := q.ExecContext(ctx,
		`INSERT INTO collections (name, created_at, updated_at) VALUES (?, ?, ?)`,
		collection.Name, now, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("collection %s: %w", collection.Name, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to create collection: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	collection.ID = id
	collection.CreatedAt = now
	collection.UpdatedAt = now
	return nil
}

func (s *SQLiteStorage) CreateCollection(ctx context.Context, collection *Collection) error {
	return s.createCollectionWithQuerier(ctx, s.querier(), collection)
}

func (s *SQLiteStorage) getCollectionWithQuerier(ctx context.Context, q querier, name string) (*Collection, error) {
	var c Collection
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM collections WHERE name = ?`, name,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLiteStorage) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return s.getCollectionWithQuerier(ctx, s.querier(), name)
}

func (s *SQLiteStorage) listCollectionsWithQuerier(ctx context.Context, q querier) ([]*Collection, error) {
	rows, err := q.QueryContext(ctx, `SELECT id, name, created_at, updated_at FROM collections ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	collections := make([]*Collection, 0)
	for rows.Next() {
		var c Collection
		if err := rows.Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		collections = append(collections, &c)
	}
	return collections, rows.Err()
}

func (s *SQLiteStorage) ListCollections(ctx context.Context) ([]*Collection, error) {
	return s.listCollectionsWithQuerier(ctx, s.querier())
}

func (s *SQLiteStorage) deleteCollectionWithQuerier(ctx context.Context, q querier, name string) error {
	result, err := q.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStorage) DeleteCollection(ctx context.Context, name string) error {
	return s.deleteCollectionWithQuerier(ctx, s.querier(), name)
}

// Chunk operations

// upsertChunkWithQuerier inserts a chunk or replaces the one with the same key
func (s *SQLiteStorage) upsertChunkWithQuerier(ctx context.Context, q querier, chunk *Chunk) error {
	if chunk.Metadata == "" {
		chunk.Metadata = "{}"
	}

	query := `
		INSERT INTO chunks (
			collection_id, chunk_key, content, metadata, content_hash,
			chunk_type, data_type, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection_id, chunk_key)
		DO UPDATE SET
			content = excluded.content,
			metadata = excluded.metadata,
			content_hash = excluded.content_hash,
			chunk_type = excluded.chunk_type,
			data_type = excluded.data_type,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		chunk.CollectionID, chunk.ChunkKey, chunk.Content, chunk.Metadata,
		chunk.ContentHash[:], chunk.ChunkType, chunk.DataType, now, now,
	).Scan(&chunk.ID, &chunk.CreatedAt, &chunk.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert chunk: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return s.upsertChunkWithQuerier(ctx, s.querier(), chunk)
}

const chunkColumns = `id, collection_id, chunk_key, content, metadata, content_hash,
		       chunk_type, data_type, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanChunk(row rowScanner) (*Chunk, error) {
	var chunk Chunk
	var hash []byte
	err := row.Scan(
		&chunk.ID, &chunk.CollectionID, &chunk.ChunkKey, &chunk.Content, &chunk.Metadata,
		&hash, &chunk.ChunkType, &chunk.DataType, &chunk.CreatedAt, &chunk.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	copy(chunk.ContentHash[:], hash)
	return &chunk, nil
}

func (s *SQLiteStorage) getChunkWithQuerier(ctx context.Context, q querier, chunkID int64) (*Chunk, error) {
	row := q.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM chunks WHERE id = ?`, chunkID)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return chunk, err
}

func (s *SQLiteStorage) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return s.getChunkWithQuerier(ctx, s.querier(), chunkID)
}

// getChunksWithQuerier loads chunks by id. The result follows chunkIDs order;
// ids that no longer exist are skipped.
func (s *SQLiteStorage) getChunksWithQuerier(ctx context.Context, q querier, chunkIDs []int64) ([]*Chunk, error) {
	if len(chunkIDs) == 0 {
		return []*Chunk{}, nil
	}

	placeholders := make([]string, len(chunkIDs))
	args := make([]interface{}, len(chunkIDs))
	for i, id := range chunkIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := q.QueryContext(ctx,
		`SELECT `+chunkColumns+` FROM chunks WHERE id IN (`+strings.Join(placeholders, ",")+`)`,
		args...)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	byID := make(map[int64]*Chunk, len(chunkIDs))
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, err
		}
		byID[chunk.ID] = chunk
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	chunks := make([]*Chunk, 0, len(byID))
	for _, id := range chunkIDs {
		if chunk, ok := byID[id]; ok {
			chunks = append(chunks, chunk)
		}
	}
	return chunks, nil
}

func (s *SQLiteStorage) GetChunks(ctx context.Context, chunkIDs []int64) ([]*Chunk, error) {
	return s.getChunksWithQuerier(ctx, s.querier(), chunkIDs)
}

func (s *SQLiteStorage) countChunksWithQuerier(ctx context.Context, q querier, collectionID int64) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE collection_id = ?`, collectionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}

func (s *SQLiteStorage) CountChunks(ctx context.Context, collectionID int64) (int, error) {
	return s.countChunksWithQuerier(ctx, s.querier(), collectionID)
}

// clearCollectionWithQuerier removes every chunk of a collection. Embeddings
// go with them through the foreign key cascade.
func (s *SQLiteStorage) clearCollectionWithQuerier(ctx context.Context, q querier, collectionID int64) (int, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM chunks WHERE collection_id = ?`, collectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to clear collection: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	_, err = q.ExecContext(ctx, `UPDATE collections SET updated_at = ? WHERE id = ?`, time.Now(), collectionID)
	if err != nil {
		return 0, fmt.Errorf("failed to touch collection: %w", err)
	}
	return int(affected), nil
}

func (s *SQLiteStorage) ClearCollection(ctx context.Context, collectionID int64) (int, error) {
	return s.clearCollectionWithQuerier(ctx, s.querier(), collectionID)
}

// Embedding operations

func (s *SQLiteStorage) upsertEmbeddingWithQuerier(ctx context.Context, q querier, embedding *Embedding) error {
	query := `
		INSERT INTO embeddings (chunk_id, vector, dimension, provider, model, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id)
		DO UPDATE SET
			vector = excluded.vector,
			dimension = excluded.dimension,
			provider = excluded.provider,
			model = excluded.model,
			created_at = excluded.created_at
		RETURNING id
	`
	now := time.Now()
	err := q.QueryRowContext(ctx, query,
		embedding.ChunkID, embedding.Vector, embedding.Dimension,
		embedding.Provider, embedding.Model, now,
	).Scan(&embedding.ID)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	embedding.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return s.upsertEmbeddingWithQuerier(ctx, s.querier(), embedding)
}

func (s *SQLiteStorage) getEmbeddingWithQuerier(ctx context.Context, q querier, chunkID int64) (*Embedding, error) {
	var e Embedding
	err := q.QueryRowContext(ctx, `
		SELECT id, chunk_id, vector, dimension, provider, model, created_at
		FROM embeddings WHERE chunk_id = ?
	`, chunkID).Scan(&e.ID, &e.ChunkID, &e.Vector, &e.Dimension, &e.Provider, &e.Model, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *SQLiteStorage) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return s.getEmbeddingWithQuerier(ctx, s.querier(), chunkID)
}

// Search operations

func (s *SQLiteStorage) SearchVector(ctx context.Context, collectionID int64, queryVector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, s.querier(), collectionID, queryVector, limit, filters)
}

func (s *SQLiteStorage) SearchText(ctx context.Context, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, s.querier(), collectionID, query, limit, filters)
}

// Benchmark run operations

func (s *SQLiteStorage) saveBenchmarkRunWithQuerier(ctx context.Context, q querier, run *BenchmarkRun) error {
	now := time.Now()
	result, err := q.ExecContext(ctx, `
		INSERT INTO benchmark_runs (run_id, mode, top_k, report, report_path, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, run.RunID, run.Mode, run.TopK, run.Report, run.ReportPath, now)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("benchmark run %s: %w", run.RunID, ErrAlreadyExists)
		}
		return fmt.Errorf("failed to save benchmark run: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	run.ID = id
	run.CreatedAt = now
	return nil
}

func (s *SQLiteStorage) SaveBenchmarkRun(ctx context.Context, run *BenchmarkRun) error {
	return s.saveBenchmarkRunWithQuerier(ctx, s.querier(), run)
}

func (s *SQLiteStorage) listBenchmarkRunsWithQuerier(ctx context.Context, q querier, limit int) ([]*BenchmarkRun, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	rows, err := q.QueryContext(ctx, `
		SELECT id, run_id, mode, top_k, report, report_path, created_at
		FROM benchmark_runs
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	runs := make([]*BenchmarkRun, 0)
	for rows.Next() {
		var run BenchmarkRun
		var path sql.NullString
		if err := rows.Scan(&run.ID, &run.RunID, &run.Mode, &run.TopK, &run.Report, &path, &run.CreatedAt); err != nil {
			return nil, err
		}
		run.ReportPath = path.String
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

func (s *SQLiteStorage) ListBenchmarkRuns(ctx context.Context, limit int) ([]*BenchmarkRun, error) {
	return s.listBenchmarkRunsWithQuerier(ctx, s.querier(), limit)
}

// Status operations

func (s *SQLiteStorage) getStatusWithQuerier(ctx context.Context, q querier, collectionID int64) (*CollectionStatus, error) {
	var c Collection
	err := q.QueryRowContext(ctx,
		`SELECT id, name, created_at, updated_at FROM collections WHERE id = ?`, collectionID,
	).Scan(&c.ID, &c.Name, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	status := &CollectionStatus{
		Collection: &c,
		ChunkTypes: make(map[string]int),
	}

	rows, err := q.QueryContext(ctx, `
		SELECT chunk_type, COUNT(*) FROM chunks
		WHERE collection_id = ?
		GROUP BY chunk_type
	`, collectionID)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var chunkType string
		var count int
		if err := rows.Scan(&chunkType, &count); err != nil {
			_ = rows.Close()
			return nil, err
		}
		status.ChunkTypes[chunkType] = count
		status.ChunksCount += count
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	err = q.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM embeddings e
		JOIN chunks c ON e.chunk_id = c.id
		WHERE c.collection_id = ?
	`, collectionID).Scan(&status.EmbeddingsCount)
	if err != nil {
		return nil, err
	}

	// Calculate database size
	var pageCount, pageSize int
	if err := q.QueryRowContext(ctx, "PRAGMA page_count").Scan(&pageCount); err == nil {
		_ = q.QueryRowContext(ctx, "PRAGMA page_size").Scan(&pageSize)
		status.IndexSizeMB = float64(pageCount*pageSize) / (1024 * 1024)
	}

	status.Health = HealthStatus{
		DatabaseAccessible:  true,
		EmbeddingsAvailable: status.EmbeddingsCount > 0,
		FTSIndexesBuilt:     true, // created with migrations
	}
	return status, nil
}

func (s *SQLiteStorage) GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error) {
	return s.getStatusWithQuerier(ctx, s.querier(), collectionID)
}

// isUniqueViolation matches the constraint message of both SQLite drivers
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Transaction implementations route every call through the transaction

func (t *sqliteTx) CreateCollection(ctx context.Context, collection *Collection) error {
	return t.storage.createCollectionWithQuerier(ctx, t.querier(), collection)
}

func (t *sqliteTx) GetCollection(ctx context.Context, name string) (*Collection, error) {
	return t.storage.getCollectionWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) ListCollections(ctx context.Context) ([]*Collection, error) {
	return t.storage.listCollectionsWithQuerier(ctx, t.querier())
}

func (t *sqliteTx) DeleteCollection(ctx context.Context, name string) error {
	return t.storage.deleteCollectionWithQuerier(ctx, t.querier(), name)
}

func (t *sqliteTx) UpsertChunk(ctx context.Context, chunk *Chunk) error {
	return t.storage.upsertChunkWithQuerier(ctx, t.querier(), chunk)
}

func (t *sqliteTx) GetChunk(ctx context.Context, chunkID int64) (*Chunk, error) {
	return t.storage.getChunkWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) GetChunks(ctx context.Context, chunkIDs []int64) ([]*Chunk, error) {
	return t.storage.getChunksWithQuerier(ctx, t.querier(), chunkIDs)
}

func (t *sqliteTx) CountChunks(ctx context.Context, collectionID int64) (int, error) {
	return t.storage.countChunksWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) ClearCollection(ctx context.Context, collectionID int64) (int, error) {
	return t.storage.clearCollectionWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) UpsertEmbedding(ctx context.Context, embedding *Embedding) error {
	return t.storage.upsertEmbeddingWithQuerier(ctx, t.querier(), embedding)
}

func (t *sqliteTx) GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error) {
	return t.storage.getEmbeddingWithQuerier(ctx, t.querier(), chunkID)
}

func (t *sqliteTx) SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error) {
	return searchVector(ctx, t.querier(), collectionID, vector, limit, filters)
}

func (t *sqliteTx) SearchText(ctx context.Context, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error) {
	return searchText(ctx, t.querier(), collectionID, query, limit, filters)
}

func (t *sqliteTx) SaveBenchmarkRun(ctx context.Context, run *BenchmarkRun) error {
	return t.storage.saveBenchmarkRunWithQuerier(ctx, t.querier(), run)
}

func (t *sqliteTx) ListBenchmarkRuns(ctx context.Context, limit int) ([]*BenchmarkRun, error) {
	return t.storage.listBenchmarkRunsWithQuerier(ctx, t.querier(), limit)
}

func (t *sqliteTx) GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error) {
	return t.storage.getStatusWithQuerier(ctx, t.querier(), collectionID)
}

func (t *sqliteTx) Close() error {
	// Transactions don't close the underlying connection
	return nil
}

func (t *sqliteTx) BeginTx(ctx context.Context) (Tx, error) {
	// SQLite does not support true nested transactions
	return nil, errors.New("nested transactions not supported")
}
