package indexer

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/chunker"
	"github.com/gapraoguy/rag-advance/internal/strategy"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

const tracerName = "github.com/gapraoguy/rag-advance/internal/indexer"

var (
	// ErrNoEntities is returned when the source has nothing to index
	ErrNoEntities = errors.New("no entities found")
	// ErrNoChunks is returned when every entity failed chunk generation
	ErrNoChunks = errors.New("no chunks generated")
	// ErrLengthMismatch signals a broken texts/metadatas/ids projection
	ErrLengthMismatch = errors.New("texts, metadatas and ids differ in length")
)

// Source supplies the entities to index
type Source interface {
	Products(ctx context.Context) ([]types.CatalogItem, error)
	FAQs(ctx context.Context) ([]types.FAQEntry, error)
}

// Sink is the vector index chunks are bulk-loaded into
type Sink interface {
	Insert(ctx context.Context, texts []string, metadatas []types.Metadata, ids []string) error
}

// Indexer coordinates the indexing pipeline: fetch -> chunk -> insert
type Indexer struct {
	source Source
	logger *zap.Logger
	tracer trace.Tracer
}

// New creates a new Indexer instance
func New(source Source, logger *zap.Logger) *Indexer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		source: source,
		logger: logger.Named("indexer"),
		tracer: otel.Tracer(tracerName),
	}
}

// Projection is the parallel (text, metadata, id) form of a chunk list
type Projection struct {
	Texts     []string
	Metadatas []types.Metadata
	IDs       []string
}

// Project flattens chunks into parallel sequences, preserving order
func Project(chunks []types.Chunk) Projection {
	p := Projection{
		Texts:     make([]string, len(chunks)),
		Metadatas: make([]types.Metadata, len(chunks)),
		IDs:       make([]string, len(chunks)),
	}
	for i, c := range chunks {
		p.Texts[i] = c.Text
		p.Metadatas[i] = c.Metadata
		p.IDs[i] = c.ID
	}
	return p
}

// Validate checks that the three sequences line up
func (p Projection) Validate() error {
	if len(p.IDs) != len(p.Texts) || len(p.Metadatas) != len(p.Texts) {
		return fmt.Errorf("%w: %d texts, %d metadatas, %d ids",
			ErrLengthMismatch, len(p.Texts), len(p.Metadatas), len(p.IDs))
	}
	return nil
}

func (idx *Indexer) insert(ctx context.Context, sink Sink, chunks []types.Chunk) error {
	if len(chunks) == 0 {
		return ErrNoChunks
	}
	p := Project(chunks)
	if err := p.Validate(); err != nil {
		return err
	}
	return sink.Insert(ctx, p.Texts, p.Metadatas, p.IDs)
}

func failureIDs(failures []chunker.Failure) []string {
	if len(failures) == 0 {
		return nil
	}
	ids := make([]string, len(failures))
	for i, f := range failures {
		ids[i] = f.EntityID
	}
	return ids
}

func (idx *Indexer) startSpan(ctx context.Context, kind string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, attribute.String("index.kind", kind))
	return idx.tracer.Start(ctx, "indexer.index", trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, report *Report, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else if report != nil {
		span.SetAttributes(attribute.Int("index.total_chunks", report.TotalChunks))
	}
	span.End()
}

// IndexProducts chunks every catalog item with the named strategy and
// bulk-loads the result into sink.
func (idx *Indexer) IndexProducts(ctx context.Context, sink Sink, strategyName string) (report *Report, err error) {
	ctx, span := idx.startSpan(ctx, KindProducts, attribute.String("index.strategy", strategyName))
	defer func() { endSpan(span, report, err) }()

	report, err = idx.indexProducts(ctx, sink, strategyName)
	if err != nil {
		idx.logger.Error("product indexing failed", zap.String("strategy", strategyName), zap.Error(err))
		return nil, fmt.Errorf("product indexing failed: %w", err)
	}
	return report, nil
}

func (idx *Indexer) indexProducts(ctx context.Context, sink Sink, strategyName string) (*Report, error) {
	start := time.Now()
	idx.logger.Info("starting product indexing", zap.String("strategy", strategyName))

	service, err := chunker.NewProductService(strategyName, idx.logger)
	if err != nil {
		return nil, err
	}

	products, err := idx.source.Products(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("%w: no products to index", ErrNoEntities)
	}

	batch := service.GenerateAll(products)
	if err := idx.insert(ctx, sink, batch.Chunks); err != nil {
		return nil, err
	}

	report := &Report{
		Kind:          KindProducts,
		Strategy:      strategyName,
		TotalProducts: len(products),
		TotalChunks:   len(batch.Chunks),
		ProductChunks: len(batch.Chunks),
		Skipped:       failureIDs(batch.Failures),
		Success:       true,
		Duration:      time.Since(start),
	}
	idx.logger.Info("product indexing completed",
		zap.String("strategy", strategyName),
		zap.Int("products", report.TotalProducts),
		zap.Int("chunks", report.TotalChunks),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// IndexFAQs chunks every FAQ entry with the named strategy and bulk-loads
// the result into sink.
func (idx *Indexer) IndexFAQs(ctx context.Context, sink Sink, strategyName string) (report *Report, err error) {
	ctx, span := idx.startSpan(ctx, KindFAQs, attribute.String("index.strategy", strategyName))
	defer func() { endSpan(span, report, err) }()

	report, err = idx.indexFAQs(ctx, sink, strategyName)
	if err != nil {
		idx.logger.Error("FAQ indexing failed", zap.String("strategy", strategyName), zap.Error(err))
		return nil, fmt.Errorf("FAQ indexing failed: %w", err)
	}
	return report, nil
}

func (idx *Indexer) indexFAQs(ctx context.Context, sink Sink, strategyName string) (*Report, error) {
	start := time.Now()
	idx.logger.Info("starting FAQ indexing", zap.String("strategy", strategyName))

	service, err := chunker.NewFAQService(strategyName, idx.logger)
	if err != nil {
		return nil, err
	}

	faqs, err := idx.source.FAQs(ctx)
	if err != nil {
		return nil, err
	}
	if len(faqs) == 0 {
		return nil, fmt.Errorf("%w: no FAQs to index", ErrNoEntities)
	}

	batch := service.GenerateAll(faqs)
	if err := idx.insert(ctx, sink, batch.Chunks); err != nil {
		return nil, err
	}

	report := &Report{
		Kind:        KindFAQs,
		Strategy:    strategyName,
		TotalFAQs:   len(faqs),
		TotalChunks: len(batch.Chunks),
		FAQChunks:   len(batch.Chunks),
		Skipped:     failureIDs(batch.Failures),
		Success:     true,
		Duration:    time.Since(start),
	}
	idx.logger.Info("FAQ indexing completed",
		zap.String("strategy", strategyName),
		zap.Int("faqs", report.TotalFAQs),
		zap.Int("chunks", report.TotalChunks),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// IndexCombined unions product and FAQ chunks into one bulk insert. Either
// source may be empty, but not both.
func (idx *Indexer) IndexCombined(ctx context.Context, sink Sink, productStrategy, faqStrategy string) (report *Report, err error) {
	ctx, span := idx.startSpan(ctx, KindCombined,
		attribute.String("index.product_strategy", productStrategy),
		attribute.String("index.faq_strategy", faqStrategy))
	defer func() { endSpan(span, report, err) }()

	report, err = idx.indexCombined(ctx, sink, productStrategy, faqStrategy)
	if err != nil {
		idx.logger.Error("indexing failed",
			zap.String("product_strategy", productStrategy),
			zap.String("faq_strategy", faqStrategy),
			zap.Error(err))
		return nil, fmt.Errorf("indexing failed: %w", err)
	}
	return report, nil
}

func (idx *Indexer) indexCombined(ctx context.Context, sink Sink, productStrategy, faqStrategy string) (*Report, error) {
	start := time.Now()
	idx.logger.Info("starting combined indexing",
		zap.String("product_strategy", productStrategy),
		zap.String("faq_strategy", faqStrategy))

	// resolve both names before touching any data
	productService, err := chunker.NewProductService(productStrategy, idx.logger)
	if err != nil {
		return nil, err
	}
	faqService, err := chunker.NewFAQService(faqStrategy, idx.logger)
	if err != nil {
		return nil, err
	}

	products, err := idx.source.Products(ctx)
	if err != nil {
		return nil, err
	}
	faqs, err := idx.source.FAQs(ctx)
	if err != nil {
		return nil, err
	}

	var all []types.Chunk
	var skipped []string

	productBatch := productService.GenerateAll(products)
	all = append(all, productBatch.Chunks...)
	skipped = append(skipped, failureIDs(productBatch.Failures)...)

	faqBatch := faqService.GenerateAll(faqs)
	all = append(all, faqBatch.Chunks...)
	skipped = append(skipped, failureIDs(faqBatch.Failures)...)

	if len(all) == 0 {
		return nil, fmt.Errorf("%w: no data to index", ErrNoEntities)
	}
	if err := idx.insert(ctx, sink, all); err != nil {
		return nil, err
	}

	report := &Report{
		Kind:            KindCombined,
		ProductStrategy: productStrategy,
		FAQStrategy:     faqStrategy,
		TotalProducts:   len(products),
		TotalFAQs:       len(faqs),
		TotalChunks:     len(all),
		ProductChunks:   len(productBatch.Chunks),
		FAQChunks:       len(faqBatch.Chunks),
		Skipped:         skipped,
		Success:         true,
		Duration:        time.Since(start),
	}
	idx.logger.Info("combined indexing completed",
		zap.Int("total_chunks", report.TotalChunks),
		zap.Int("product_chunks", report.ProductChunks),
		zap.Int("faq_chunks", report.FAQChunks),
		zap.Duration("duration", report.Duration))
	return report, nil
}

// ProductChunkStatistics reports the chunk shape a product strategy would
// produce, without indexing anything.
func (idx *Indexer) ProductChunkStatistics(ctx context.Context, strategyName string) (*ChunkStats, error) {
	service, err := chunker.NewProductService(strategyName, idx.logger)
	if err != nil {
		return nil, err
	}
	products, err := idx.source.Products(ctx)
	if err != nil {
		return nil, err
	}
	if len(products) == 0 {
		return nil, fmt.Errorf("failed to get product statistics: %w", ErrNoEntities)
	}

	perEntity := make([]int, 0, len(products))
	var lengths []int
	for _, p := range products {
		chunks, err := service.Generate(p)
		if err != nil {
			idx.logger.Warn("skipping product in statistics", zap.String("product_id", p.ID), zap.Error(err))
			continue
		}
		perEntity = append(perEntity, len(chunks))
		lengths = append(lengths, textLengths(chunks)...)
	}

	return &ChunkStats{
		Kind:            KindProducts,
		Strategy:        strategyName,
		TotalEntities:   len(products),
		TotalChunks:     len(lengths),
		ChunksPerEntity: summarize(perEntity),
		TextLength:      summarize(lengths),
	}, nil
}

// FAQChunkStatistics reports the chunk shape an FAQ strategy would produce.
// Category-grouped strategies are measured per category.
func (idx *Indexer) FAQChunkStatistics(ctx context.Context, strategyName string) (*ChunkStats, error) {
	service, err := chunker.NewFAQService(strategyName, idx.logger)
	if err != nil {
		return nil, err
	}
	faqs, err := idx.source.FAQs(ctx)
	if err != nil {
		return nil, err
	}

	stats := &ChunkStats{
		Kind:          KindFAQs,
		Strategy:      strategyName,
		TotalEntities: len(faqs),
	}

	var perEntity, lengths []int
	if s, _ := strategy.LookupFAQ(strategyName); s != nil && s.Grouped() {
		stats.Grouped = true
		for _, group := range strategy.GroupByCategory(faqs) {
			batch := service.GenerateAll(group.Entries)
			perEntity = append(perEntity, len(batch.Chunks))
			lengths = append(lengths, textLengths(batch.Chunks)...)
		}
	} else {
		for _, f := range faqs {
			chunks, err := service.Generate(f)
			if err != nil {
				idx.logger.Warn("skipping FAQ in statistics", zap.String("faq_id", f.ID), zap.Error(err))
				continue
			}
			perEntity = append(perEntity, len(chunks))
			lengths = append(lengths, textLengths(chunks)...)
		}
	}

	stats.TotalChunks = len(lengths)
	stats.ChunksPerEntity = summarize(perEntity)
	stats.TextLength = summarize(lengths)
	return stats, nil
}

func textLengths(chunks []types.Chunk) []int {
	lengths := make([]int, len(chunks))
	for i, c := range chunks {
		lengths[i] = utf8.RuneCountInString(c.Text)
	}
	return lengths
}
