package benchmark

import (
	"context"
	"strings"

	"github.com/gapraoguy/rag-advance/internal/embedder"
	"github.com/gapraoguy/rag-advance/internal/storage"
	"github.com/gapraoguy/rag-advance/internal/vectorindex"
)

// VectorIndexFactory opens one vectorindex collection per candidate,
// named "{base}_{candidate}"
type VectorIndexFactory struct {
	Storage  storage.Storage
	Embedder embedder.Embedder
	Base     string
	Options  vectorindex.Options
}

// CollectionName returns the collection owned by candidate
func CollectionName(base, candidate string) string {
	return base + "_" + strings.ReplaceAll(candidate, "+", "_")
}

// Open implements IndexFactory
func (f *VectorIndexFactory) Open(ctx context.Context, candidate string) (Index, error) {
	idx, err := vectorindex.Open(ctx, f.Storage, f.Embedder, CollectionName(f.Base, candidate), f.Options)
	if err != nil {
		return nil, err
	}
	return idx, nil
}
