// Package vectorindex implements the vector index consumed by the indexing
// pipeline and the evaluator.
//
// An Index wraps one named storage collection and an embedder. It supports:
//   - Insert: bulk load of parallel (text, metadata, id) sequences
//   - Query: top-k nearest documents for a query text
//   - Clear: drop all chunks of the collection
//   - Count: number of stored chunks
//
// # Search Modes
//
// Vector Mode (default):
//
//   - Cosine similarity between the query embedding and chunk embeddings
//
// Keyword Mode:
//
//   - BM25 full-text search only, no embedding call
//
// Hybrid Mode:
//
//   - Vector and keyword search run concurrently
//
//   - Rankings are merged with Reciprocal Rank Fusion (k=60)
//
// # Basic Usage
//
//	idx, err := vectorindex.Open(ctx, store, emb, "products_granular", vectorindex.Options{
//	    Mode:    vectorindex.SearchModeVector,
//	    Timeout: 60 * time.Second,
//	})
//	if err != nil {
//	    return err
//	}
//
//	if err := idx.Insert(ctx, texts, metadatas, ids); err != nil {
//	    return err
//	}
//
//	docs, err := idx.Query(ctx, "静音のワイヤレスマウス", 3)
//
// Every embedding and storage call runs under Options.Timeout. Query
// responses are cached in an LRU keyed by collection, mode, text and k;
// Insert and Clear invalidate the cache.
package vectorindex
