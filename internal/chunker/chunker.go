package chunker

import (
	"fmt"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/strategy"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

const (
	// TokensPerRune is the heuristic divisor for estimating tokens
	TokensPerRune = 2
)

// Batch is the output of a collection-level generation call
type Batch struct {
	Chunks   []types.Chunk
	Failures []Failure
}

// Failure records an entity that was skipped during generation
type Failure struct {
	EntityID string
	Err      error
}

// ProductService generates chunks for catalog items with one strategy
type ProductService struct {
	strategy strategy.ProductStrategy
	logger   *zap.Logger
}

// NewProductService resolves the named product strategy
func NewProductService(name string, logger *zap.Logger) (*ProductService, error) {
	s, err := strategy.LookupProduct(name)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{strategy: s, logger: logger.Named("chunker")}, nil
}

// Strategy returns the name of the active strategy
func (s *ProductService) Strategy() string {
	return s.strategy.Name()
}

// Generate creates chunks for one catalog item
func (s *ProductService) Generate(item types.CatalogItem) ([]types.Chunk, error) {
	chunks, err := s.strategy.Chunks(item)
	if err != nil {
		return nil, fmt.Errorf("chunk generation failed for product %s: %w", item.ID, err)
	}
	s.logger.Debug("generated product chunks",
		zap.String("product_id", item.ID),
		zap.String("strategy", s.strategy.Name()),
		zap.Int("chunks", len(chunks)))
	return chunks, nil
}

// GenerateAll creates chunks for every item, skipping items that fail
func (s *ProductService) GenerateAll(items []types.CatalogItem) Batch {
	var batch Batch
	for _, item := range items {
		chunks, err := s.Generate(item)
		if err != nil {
			s.logger.Warn("skipping product", zap.String("product_id", item.ID), zap.Error(err))
			batch.Failures = append(batch.Failures, Failure{EntityID: item.ID, Err: err})
			continue
		}
		batch.Chunks = append(batch.Chunks, chunks...)
	}

	s.logger.Info("generated chunks for products",
		zap.String("strategy", s.strategy.Name()),
		zap.Int("products", len(items)),
		zap.Int("chunks", len(batch.Chunks)),
		zap.Int("skipped", len(batch.Failures)))
	return batch
}

// FAQService generates chunks for FAQ entries with one strategy
type FAQService struct {
	strategy strategy.FAQStrategy
	logger   *zap.Logger
}

// NewFAQService resolves the named FAQ strategy
func NewFAQService(name string, logger *zap.Logger) (*FAQService, error) {
	s, err := strategy.LookupFAQ(name)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FAQService{strategy: s, logger: logger.Named("chunker")}, nil
}

// Strategy returns the name of the active strategy
func (s *FAQService) Strategy() string {
	return s.strategy.Name()
}

// Generate creates chunks for one entry. Grouped strategies reject this call
// with strategy.ErrUnsupportedOperation.
func (s *FAQService) Generate(entry types.FAQEntry) ([]types.Chunk, error) {
	chunks, err := s.strategy.ChunksForEntry(entry)
	if err != nil {
		return nil, fmt.Errorf("chunk generation failed for FAQ %s: %w", entry.ID, err)
	}
	return chunks, nil
}

// GenerateAll creates chunks for every entry, skipping entries (or category
// groups) that fail
func (s *FAQService) GenerateAll(entries []types.FAQEntry) Batch {
	if s.strategy.Grouped() {
		return s.generateGrouped(entries)
	}

	var batch Batch
	for _, entry := range entries {
		chunks, err := s.Generate(entry)
		if err != nil {
			s.logger.Warn("skipping FAQ", zap.String("faq_id", entry.ID), zap.Error(err))
			batch.Failures = append(batch.Failures, Failure{EntityID: entry.ID, Err: err})
			continue
		}
		batch.Chunks = append(batch.Chunks, chunks...)
	}

	s.logger.Info("generated chunks for FAQs",
		zap.String("strategy", s.strategy.Name()),
		zap.Int("faqs", len(entries)),
		zap.Int("chunks", len(batch.Chunks)),
		zap.Int("skipped", len(batch.Failures)))
	return batch
}

func (s *FAQService) generateGrouped(entries []types.FAQEntry) Batch {
	groups := strategy.GroupByCategory(entries)

	var batch Batch
	for _, g := range groups {
		chunks, err := s.strategy.ChunksForGroups([]strategy.CategoryGroup{g})
		if err != nil {
			err = fmt.Errorf("chunk generation failed for category %q: %w", g.Category, err)
			s.logger.Warn("skipping FAQ category", zap.String("category", g.Category), zap.Error(err))
			batch.Failures = append(batch.Failures, Failure{EntityID: g.Category, Err: err})
			continue
		}
		batch.Chunks = append(batch.Chunks, chunks...)
	}

	s.logger.Info("generated category chunks for FAQs",
		zap.String("strategy", s.strategy.Name()),
		zap.Int("faqs", len(entries)),
		zap.Int("categories", len(groups)),
		zap.Int("chunks", len(batch.Chunks)))
	return batch
}

// EstimateTokens estimates the token count of a chunk text
func EstimateTokens(text string) int {
	return utf8.RuneCountInString(text) / TokensPerRune
}
