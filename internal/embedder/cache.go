package embedder

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize is the LRU capacity used when none is configured
const DefaultCacheSize = 10000

// SharedCache is a second-level embedding cache shared between processes
type SharedCache interface {
	Get(ctx context.Context, hash string) (*Embedding, bool)
	Set(ctx context.Context, hash string, emb *Embedding)
	Close() error
}

// Cache provides in-memory LRU caching of embeddings by content hash, with an
// optional shared second level
type Cache struct {
	cache  *lru.Cache[string, *Embedding]
	shared SharedCache
}

// NewCache creates a new embedding cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, *Embedding](maxLen)
	if err != nil {
		cache, _ = lru.New[string, *Embedding](DefaultCacheSize)
	}
	return &Cache{cache: cache}
}

// WithShared attaches a second-level cache
func (c *Cache) WithShared(shared SharedCache) *Cache {
	c.shared = shared
	return c
}

// Get retrieves a copy of an embedding. LRU misses fall through to the
// shared cache and are promoted on hit.
func (c *Cache) Get(ctx context.Context, hash string) (*Embedding, bool) {
	if emb, ok := c.cache.Get(hash); ok {
		return copyEmbedding(emb), true
	}
	if c.shared == nil {
		return nil, false
	}
	emb, ok := c.shared.Get(ctx, hash)
	if !ok {
		return nil, false
	}
	c.cache.Add(hash, emb)
	return copyEmbedding(emb), true
}

// Set stores an embedding in both levels
func (c *Cache) Set(ctx context.Context, hash string, emb *Embedding) {
	c.cache.Add(hash, copyEmbedding(emb))
	if c.shared != nil {
		c.shared.Set(ctx, hash, emb)
	}
}

// Size returns the number of in-memory entries
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the in-memory level
func (c *Cache) Clear() {
	c.cache.Purge()
}

// Close releases the shared level
func (c *Cache) Close() error {
	if c.shared == nil {
		return nil
	}
	return c.shared.Close()
}

func copyEmbedding(emb *Embedding) *Embedding {
	vec := make([]float32, len(emb.Vector))
	copy(vec, emb.Vector)
	return &Embedding{
		Vector:    vec,
		Dimension: emb.Dimension,
		Provider:  emb.Provider,
		Model:     emb.Model,
		Hash:      emb.Hash,
	}
}
