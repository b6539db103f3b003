// Package embedder generates vector embeddings for chunk and query text.
//
// Three providers are available:
//
//   - openai: the OpenAI embeddings API through go-openai (default model
//     text-embedding-3-large)
//   - jina: the Jina AI REST API
//   - local: deterministic hashed character n-gram vectors, offline
//
// # Basic Usage
//
//	emb, err := embedder.New(ctx, embedder.Config{
//	    Provider:  "openai",
//	    OpenAIKey: os.Getenv("OPENAI_API_KEY"),
//	    Model:     "text-embedding-3-large",
//	})
//	if err != nil {
//	    return err
//	}
//	defer emb.Close()
//
//	resp, err := emb.GenerateBatch(ctx, embedder.BatchEmbeddingRequest{
//	    Texts: texts, // at most MaxBatchSize
//	})
//
// # Provider Selection
//
// ResolveProvider applies this order:
//
//  1. Config.Provider when set
//  2. jina when a Jina key is present
//  3. openai when an OpenAI key is present
//  4. local
//
// # Caching
//
// Every provider sits behind a Cache keyed by the SHA-256 of model and text.
// The first level is an in-process LRU. When Config.RedisAddr is set a Redis
// second level is shared between processes, so repeated benchmark runs over
// the same catalog do not pay for the same embeddings twice. Batch calls only
// send cache misses to the provider.
//
// # Error Handling
//
// API providers retry transient failures (network errors, 429, 5xx) with
// exponential backoff. Other 4xx responses fail immediately. Exhausted
// retries surface as ErrProviderFailed:
//
//	if errors.Is(err, embedder.ErrProviderFailed) {
//	    // provider unavailable
//	}
package embedder
