package storage

import (
	"context"
	"time"
)

// Storage defines the interface for persisting chunk collections and querying them
type Storage interface {
	// Collection operations
	CreateCollection(ctx context.Context, collection *Collection) error
	GetCollection(ctx context.Context, name string) (*Collection, error)
	ListCollections(ctx context.Context) ([]*Collection, error)
	DeleteCollection(ctx context.Context, name string) error

	// Chunk operations
	UpsertChunk(ctx context.Context, chunk *Chunk) error
	GetChunk(ctx context.Context, chunkID int64) (*Chunk, error)
	GetChunks(ctx context.Context, chunkIDs []int64) ([]*Chunk, error)
	CountChunks(ctx context.Context, collectionID int64) (int, error)
	ClearCollection(ctx context.Context, collectionID int64) (deletedCount int, err error)

	// Embedding operations
	UpsertEmbedding(ctx context.Context, embedding *Embedding) error
	GetEmbedding(ctx context.Context, chunkID int64) (*Embedding, error)

	// Search operations
	SearchVector(ctx context.Context, collectionID int64, vector []float32, limit int, filters *SearchFilters) ([]VectorResult, error)
	SearchText(ctx context.Context, collectionID int64, query string, limit int, filters *SearchFilters) ([]TextResult, error)

	// Benchmark run history
	SaveBenchmarkRun(ctx context.Context, run *BenchmarkRun) error
	ListBenchmarkRuns(ctx context.Context, limit int) ([]*BenchmarkRun, error)

	// Status operations
	GetStatus(ctx context.Context, collectionID int64) (*CollectionStatus, error)

	// Database operations
	Close() error
	BeginTx(ctx context.Context) (Tx, error)
}

// Tx represents a database transaction
type Tx interface {
	Commit() error
	Rollback() error
	Storage // Embed Storage interface for transaction operations
}

// Collection is a named, isolated set of chunks. Each strategy under
// comparison writes into its own collection.
type Collection struct {
	ID        int64
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Chunk is a stored chunk of catalog text
type Chunk struct {
	ID           int64
	CollectionID int64
	ChunkKey     string // caller-supplied id, unique within a collection
	Content      string
	Metadata     string // JSON object
	ContentHash  [32]byte
	ChunkType    string
	DataType     string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Embedding represents a vector embedding for a chunk
type Embedding struct {
	ID        int64
	ChunkID   int64
	Vector    []byte // Serialized float32 array
	Dimension int
	Provider  string
	Model     string
	CreatedAt time.Time
}

// BenchmarkRun is a persisted benchmark report
type BenchmarkRun struct {
	ID         int64
	RunID      string
	Mode       string
	TopK       int
	Report     string // JSON document
	ReportPath string
	CreatedAt  time.Time
}

// SearchFilters contains filters for narrowing search results
type SearchFilters struct {
	ChunkTypes   []string // Filter by chunk_type metadata
	DataTypes    []string // Filter by data_type metadata
	MinRelevance float64  // Minimum relevance score
}

// VectorResult represents a result from vector similarity search
type VectorResult struct {
	ChunkID         int64
	SimilarityScore float64
}

// TextResult represents a result from full-text search
type TextResult struct {
	ChunkID   int64
	BM25Score float64
}

// CollectionStatus contains statistics about a stored collection
type CollectionStatus struct {
	Collection      *Collection
	ChunksCount     int
	EmbeddingsCount int
	ChunkTypes      map[string]int
	IndexSizeMB     float64
	Health          HealthStatus
}

// HealthStatus represents the health of the index
type HealthStatus struct {
	DatabaseAccessible  bool
	EmbeddingsAvailable bool
	FTSIndexesBuilt     bool
}
