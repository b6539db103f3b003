package vectorindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/gapraoguy/rag-advance/internal/embedder"
	"github.com/gapraoguy/rag-advance/internal/storage"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

var (
	// ErrLengthMismatch is returned when texts, metadatas and ids differ in length
	ErrLengthMismatch = errors.New("texts, metadatas and ids must have the same length")
	// ErrEmptyQuery is returned for blank query text
	ErrEmptyQuery = errors.New("query text cannot be empty")
	// ErrInvalidK is returned when fewer than one result is requested
	ErrInvalidK = errors.New("k must be at least 1")
	// ErrEmptyName is returned when opening an index without a collection name
	ErrEmptyName = errors.New("collection name cannot be empty")
)

const (
	// DefaultTimeout bounds each embedding and storage call
	DefaultTimeout = 60 * time.Second
	// DefaultCacheSize is the number of cached query responses
	DefaultCacheSize = 1000
	// DefaultCacheTTL is how long a cached response stays valid
	DefaultCacheTTL = time.Hour
	// DefaultRRFConstant is the k of reciprocal rank fusion
	DefaultRRFConstant = 60
	// DefaultConcurrency bounds parallel embedding batches during Insert
	DefaultConcurrency = 4
)

// Options configures an Index
type Options struct {
	Mode        SearchMode
	Timeout     time.Duration
	CacheSize   int
	CacheTTL    time.Duration
	RRFConstant float64
	Concurrency int
	Logger      *zap.Logger
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = SearchModeVector
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultTimeout
	}
	if o.CacheSize <= 0 {
		o.CacheSize = DefaultCacheSize
	}
	if o.CacheTTL <= 0 {
		o.CacheTTL = DefaultCacheTTL
	}
	if o.RRFConstant <= 0 {
		o.RRFConstant = DefaultRRFConstant
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

// Index is a named chunk collection backed by SQLite storage and an embedder.
// Each Index owns exactly one collection.
type Index struct {
	name     string
	storage  storage.Storage
	embedder embedder.Embedder
	opts     Options
	logger   *zap.Logger

	mu           sync.Mutex // guards collectionID
	collectionID int64

	cache   *lru.Cache[[32]byte, *cacheEntry]
	cacheMu sync.RWMutex
}

// Open returns the index for the named collection, creating the collection
// if it does not exist yet.
func Open(ctx context.Context, store storage.Storage, emb embedder.Embedder, name string, opts Options) (*Index, error) {
	if name == "" {
		return nil, ErrEmptyName
	}
	if store == nil || emb == nil {
		return nil, fmt.Errorf("storage and embedder are required")
	}
	opts = opts.withDefaults()
	if _, err := ParseSearchMode(string(opts.Mode)); err != nil {
		return nil, err
	}

	cache, err := lru.New[[32]byte, *cacheEntry](opts.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create query cache: %w", err)
	}

	idx := &Index{
		name:     name,
		storage:  store,
		embedder: emb,
		opts:     opts,
		logger:   opts.Logger.Named("vectorindex").With(zap.String("collection", name)),
		cache:    cache,
	}

	if _, err := idx.ensureCollection(ctx); err != nil {
		return nil, err
	}
	return idx, nil
}

// Name returns the collection name
func (i *Index) Name() string {
	return i.name
}

// Mode returns the configured search mode
func (i *Index) Mode() SearchMode {
	return i.opts.Mode
}

// ensureCollection resolves the collection id, recreating the collection if
// it was dropped underneath us.
func (i *Index) ensureCollection(ctx context.Context) (int64, error) {
	i.mu.Lock()
	defer i.mu.Unlock()

	c, err := i.storage.GetCollection(ctx, i.name)
	if err == nil {
		i.collectionID = c.ID
		return c.ID, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return 0, fmt.Errorf("failed to get collection %s: %w", i.name, err)
	}

	c = &storage.Collection{Name: i.name}
	if err := i.storage.CreateCollection(ctx, c); err != nil {
		return 0, fmt.Errorf("failed to create collection %s: %w", i.name, err)
	}
	i.logger.Debug("collection created", zap.Int64("collection_id", c.ID))
	i.collectionID = c.ID
	return c.ID, nil
}

func (i *Index) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, i.opts.Timeout)
}

// Insert embeds and stores chunks. texts, metadatas and ids are parallel
// sequences; a length mismatch writes nothing. An id already present in
// the collection is replaced.
func (i *Index) Insert(ctx context.Context, texts []string, metadatas []types.Metadata, ids []string) error {
	if len(texts) != len(ids) || len(texts) != len(metadatas) {
		return fmt.Errorf("%w: %d texts, %d metadatas, %d ids", ErrLengthMismatch, len(texts), len(metadatas), len(ids))
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := i.embedAll(ctx, texts)
	if err != nil {
		return err
	}

	collectionID, err := i.ensureCollection(ctx)
	if err != nil {
		return err
	}

	writeCtx, cancel := i.withTimeout(ctx)
	defer cancel()

	tx, err := i.storage.BeginTx(writeCtx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for n, text := range texts {
		metadata := metadatas[n]
		if metadata == nil {
			metadata = types.Metadata{}
		}
		encoded, err := json.Marshal(metadata)
		if err != nil {
			return fmt.Errorf("failed to encode metadata for %s: %w", ids[n], err)
		}
		chunkType, _ := metadata.String(types.MetaChunkType)
		dataType, _ := metadata.String(types.MetaDataType)

		chunk := &storage.Chunk{
			CollectionID: collectionID,
			ChunkKey:     ids[n],
			Content:      text,
			Metadata:     string(encoded),
			ContentHash:  storage.HashContent(text),
			ChunkType:    chunkType,
			DataType:     dataType,
		}
		if err := tx.UpsertChunk(writeCtx, chunk); err != nil {
			return err
		}

		vec := vectors[n]
		if err := tx.UpsertEmbedding(writeCtx, &storage.Embedding{
			ChunkID:   chunk.ID,
			Vector:    storage.SerializeVector(vec.Vector),
			Dimension: len(vec.Vector),
			Provider:  i.embedder.Provider(),
			Model:     vec.Model,
		}); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}

	i.invalidateCache()
	i.logger.Debug("chunks inserted", zap.Int("count", len(texts)))
	return nil
}

// embedAll embeds texts in batches of at most embedder.MaxBatchSize with
// bounded parallelism. Results keep input order.
func (i *Index) embedAll(ctx context.Context, texts []string) ([]*embedder.Embedding, error) {
	vectors := make([]*embedder.Embedding, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(i.opts.Concurrency)

	for start := 0; start < len(texts); start += embedder.MaxBatchSize {
		end := start + embedder.MaxBatchSize
		if end > len(texts) {
			end = len(texts)
		}

		g.Go(func() error {
			callCtx, cancel := i.withTimeout(gctx)
			defer cancel()

			resp, err := i.embedder.GenerateBatch(callCtx, embedder.BatchEmbeddingRequest{Texts: texts[start:end]})
			if err != nil {
				return fmt.Errorf("failed to embed chunks %d-%d: %w", start, end-1, err)
			}
			if len(resp.Embeddings) != end-start {
				return fmt.Errorf("%w: expected %d embeddings, got %d", embedder.ErrProviderFailed, end-start, len(resp.Embeddings))
			}
			copy(vectors[start:end], resp.Embeddings)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Query returns the k documents nearest to text, best first
func (i *Index) Query(ctx context.Context, text string, k int) ([]types.RetrievedDocument, error) {
	resp, err := i.Search(ctx, Request{Query: text, Limit: k, UseCache: true})
	if err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

// Clear removes every chunk from the collection. Clearing an empty or
// missing collection succeeds.
func (i *Index) Clear(ctx context.Context) error {
	collectionID, err := i.ensureCollection(ctx)
	if err != nil {
		return err
	}

	callCtx, cancel := i.withTimeout(ctx)
	defer cancel()

	deleted, err := i.storage.ClearCollection(callCtx, collectionID)
	if err != nil {
		return err
	}
	i.invalidateCache()
	i.logger.Debug("collection cleared", zap.Int("deleted", deleted))
	return nil
}

// Count returns the number of stored chunks
func (i *Index) Count(ctx context.Context) (int, error) {
	collectionID, err := i.ensureCollection(ctx)
	if err != nil {
		return 0, err
	}
	return i.storage.CountChunks(ctx, collectionID)
}

// Status reports collection statistics
func (i *Index) Status(ctx context.Context) (*storage.CollectionStatus, error) {
	collectionID, err := i.ensureCollection(ctx)
	if err != nil {
		return nil, err
	}
	return i.storage.GetStatus(ctx, collectionID)
}

// decodeMetadata parses stored metadata, keeping numbers in their literal form
func decodeMetadata(raw string) (types.Metadata, error) {
	metadata := types.Metadata{}
	if strings.TrimSpace(raw) == "" {
		return metadata, nil
	}
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&metadata); err != nil {
		return nil, fmt.Errorf("failed to decode metadata: %w", err)
	}
	return metadata, nil
}
