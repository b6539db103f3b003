// Package storage provides SQLite-based persistence for chunk collections.
//
// The storage layer manages:
//   - Collections (one isolated namespace per index)
//   - Chunks with their JSON metadata
//   - Vector embeddings
//   - Full-text search indexes
//   - Benchmark run history
//
// # Database Schema
//
// Tables:
//   - collections: named chunk sets
//   - chunks: chunk text, metadata and content hash, unique per (collection, key)
//   - chunks_fts: FTS5 index over chunk text (trigram tokenizer)
//   - embeddings: vector embeddings for chunks
//   - benchmark_runs: persisted benchmark reports
//
// Schema changes are applied through semver-ordered migrations recorded in
// schema_version.
//
// # Basic Usage
//
//	db, err := storage.NewSQLiteStorage("chroma_db/ragbench.db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
//	c := &storage.Collection{Name: "products_granular"}
//	if err := db.CreateCollection(ctx, c); err != nil {
//	    return err
//	}
//
// # Transactions
//
// Use transactions for atomic batch writes:
//
//	tx, err := db.BeginTx(ctx)
//	if err != nil {
//	    return err
//	}
//	defer tx.Rollback()
//
//	chunk := &storage.Chunk{CollectionID: c.ID, ChunkKey: "P001_unified", Content: text}
//	if err := tx.UpsertChunk(ctx, chunk); err != nil {
//	    return err
//	}
//	if err := tx.UpsertEmbedding(ctx, &storage.Embedding{ChunkID: chunk.ID, ...}); err != nil {
//	    return err
//	}
//	return tx.Commit()
//
// Upserting a chunk key that already exists in the collection replaces the
// stored text and metadata.
//
// # Vector Operations
//
// Vector search uses cosine similarity via the sqlite-vec extension (CGO build)
// or a pure Go implementation (purego build). Vectors are stored as
// little-endian float32 blobs.
//
//	results, err := db.SearchVector(ctx, c.ID, queryVector, 5, nil)
//
// # Full-Text Search
//
// Query using BM25 ranking. Every whitespace-separated term is matched as a
// literal phrase and terms are OR-ed together:
//
//	results, err := db.SearchText(ctx, c.ID, "ワイヤレスマウス 電池", 5, nil)
//
// FTS5 indexes are kept in sync by triggers.
//
// # Build Tags
//
// CGO Build (sqlite_vec tag):
//
//   - Uses github.com/mattn/go-sqlite3 driver
//
//   - Includes sqlite-vec extension for fast vector operations
//
//     CGO_ENABLED=1 go build -tags "sqlite_vec,fts5"
//
// Pure Go Build (default):
//
//   - Uses modernc.org/sqlite driver
//
//   - Pure Go vector operations
//
//     CGO_ENABLED=0 go build -tags "purego"
package storage
