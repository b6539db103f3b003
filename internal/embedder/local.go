package embedder

import (
	"context"
	"hash/fnv"
	"strings"
	"unicode"
)

// LocalProvider builds deterministic embeddings from hashed character
// n-grams. Texts that share n-grams end up close in cosine space, so the
// benchmark can run offline.
type LocalProvider struct {
	model string
	cache *Cache
}

// NewLocalProvider creates the offline embedder
func NewLocalProvider(cache *Cache) (*LocalProvider, error) {
	return &LocalProvider{model: DefaultLocalModel, cache: cache}, nil
}

func (l *LocalProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return single(ctx, l, req)
}

func (l *LocalProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}

	embeddings, err := generateWithCache(ctx, l.cache, req, l.model, func(ctx context.Context, texts []string, _ string) ([]*Embedding, error) {
		out := make([]*Embedding, 0, len(texts))
		for _, text := range texts {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			out = append(out, &Embedding{
				Vector:    hashedNgrams(text, LocalDimension),
				Dimension: LocalDimension,
				Provider:  ProviderLocal,
				Model:     l.model,
			})
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &BatchEmbeddingResponse{Embeddings: embeddings, Provider: ProviderLocal, Model: l.model}, nil
}

func (l *LocalProvider) Dimension() int   { return LocalDimension }
func (l *LocalProvider) Provider() string { return ProviderLocal }
func (l *LocalProvider) Model() string    { return l.model }

func (l *LocalProvider) Close() error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Close()
}

// hashedNgrams folds rune unigrams (weight 1) and bigrams (weight 2) into a
// dim-sized signed feature vector of unit length. Whitespace and
// punctuation are dropped first.
func hashedNgrams(text string, dim int) []float32 {
	runes := []rune(strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsPunct(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, text))

	vec := make([]float32, dim)
	h := fnv.New64a()
	feature := func(gram []rune, weight float32) {
		h.Reset()
		_, _ = h.Write([]byte(string(gram)))
		sum := h.Sum64()
		slot := sum % uint64(dim)
		if sum>>63 == 1 {
			weight = -weight
		}
		vec[slot] += weight
	}

	for i := range runes {
		feature(runes[i:i+1], 1)
		if i+1 < len(runes) {
			feature(runes[i:i+2], 2)
		}
	}
	return NormalizeVector(vec)
}
