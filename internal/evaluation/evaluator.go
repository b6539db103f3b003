package evaluation

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

	"github.com/gapraoguy/rag-advance/pkg/types"
)

const (
	tracerName = "github.com/gapraoguy/rag-advance/internal/evaluation"

	// DefaultTopK is the number of documents retrieved per query
	DefaultTopK = 3

	previewRunes = 100
	unknownValue = "unknown"
)

var (
	// ErrInvalidTopK is returned for top_k below 1
	ErrInvalidTopK = errors.New("top_k must be at least 1")
	// ErrNoQueries is returned when the evaluator has nothing to run
	ErrNoQueries = errors.New("no test queries loaded")
)

// Retriever is the query side of a vector index
type Retriever interface {
	Query(ctx context.Context, text string, k int) ([]types.RetrievedDocument, error)
}

// UntaggedHook observes retrieved documents that carry no data_type tag.
// Such documents are scored as products.
type UntaggedHook func(queryID string, doc types.RetrievedDocument)

// Preview is a compact view of one retrieved document
type Preview struct {
	ID           string  `json:"id"`
	DataType     string  `json:"data_type"`
	ChunkSection string  `json:"chunk_section"`
	Score        float64 `json:"score"`
	TextPreview  string  `json:"text_preview"`
}

// QueryResult is the per-query evaluation detail
type QueryResult struct {
	QueryID          string    `json:"query_id"`
	Query            string    `json:"query"`
	QueryType        string    `json:"query_type"`
	ExpectedProducts []string  `json:"expected_products"`
	ExpectedFAQs     []string  `json:"expected_faqs"`
	FoundProducts    []string  `json:"found_products"`
	FoundFAQs        []string  `json:"found_faqs"`
	Precision        float64   `json:"precision"`
	Recall           float64   `json:"recall"`
	F1               float64   `json:"f1_score"`
	HasRelevant      bool      `json:"has_relevant"`
	SearchResults    []Preview `json:"search_results"`
}

// FailedQuery records a query excluded from aggregation
type FailedQuery struct {
	QueryID string `json:"query_id"`
	Error   string `json:"error"`
}

// Result is the outcome of evaluating one index
type Result struct {
	Strategy      string                 `json:"strategy"`
	TotalQueries  int                    `json:"total_queries"`
	TopK          int                    `json:"top_k"`
	Overall       Metrics                `json:"overall_metrics"`
	Breakdown     map[string]TypeMetrics `json:"query_type_breakdown"`
	Details       []QueryResult          `json:"detailed_results"`
	FailedQueries []FailedQuery          `json:"failed_queries,omitempty"`
	Duration      time.Duration          `json:"-"`
}

// Option configures an Evaluator
type Option func(*Evaluator)

// WithUntaggedHook installs a hook for documents without a data_type tag
func WithUntaggedHook(hook UntaggedHook) Option {
	return func(e *Evaluator) {
		e.untagged = hook
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Evaluator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// Evaluator scores an index against a fixed set of labeled queries
type Evaluator struct {
	queries  []types.TestQuery
	logger   *zap.Logger
	tracer   trace.Tracer
	untagged UntaggedHook
}

// New creates an Evaluator over queries
func New(queries []types.TestQuery, opts ...Option) *Evaluator {
	e := &Evaluator{
		queries: queries,
		logger:  zap.NewNop(),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.Named("evaluation")
	return e
}

// Queries returns the loaded test queries
func (e *Evaluator) Queries() []types.TestQuery {
	return e.queries
}

// Evaluate issues every test query against r and scores the results.
// Queries that fail are logged, recorded and left out of the aggregates.
func (e *Evaluator) Evaluate(ctx context.Context, r Retriever, label string, topK int) (result *Result, err error) {
	ctx, span := e.tracer.Start(ctx, "evaluation.evaluate", trace.WithAttributes(
		attribute.String("evaluation.strategy", label),
		attribute.Int("evaluation.top_k", topK),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetAttributes(
				attribute.Int("evaluation.total_queries", result.TotalQueries),
				attribute.Float64("evaluation.f1", result.Overall.F1),
			)
		}
		span.End()
	}()

	if topK < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidTopK, topK)
	}
	if len(e.queries) == 0 {
		return nil, ErrNoQueries
	}

	start := time.Now()
	e.logger.Info("evaluating strategy", zap.String("strategy", label), zap.Int("queries", len(e.queries)))

	result = &Result{
		Strategy: label,
		TopK:     topK,
		Details:  make([]QueryResult, 0, len(e.queries)),
	}

	for _, q := range e.queries {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("evaluation cancelled: %w", err)
		}

		qr, err := e.evaluateQuery(ctx, r, q, topK)
		if err != nil {
			e.logger.Warn("failed to evaluate query", zap.String("query_id", q.QueryID), zap.Error(err))
			result.FailedQueries = append(result.FailedQueries, FailedQuery{QueryID: q.QueryID, Error: err.Error()})
			continue
		}
		result.Details = append(result.Details, qr)
	}

	result.TotalQueries = len(result.Details)
	result.Overall = Aggregate(result.Details)
	result.Breakdown = Breakdown(result.Details)
	result.Duration = time.Since(start)

	e.logger.Info("strategy evaluation completed",
		zap.String("strategy", label),
		zap.Float64("avg_f1", result.Overall.F1),
		zap.Float64("hit_rate", result.Overall.HitRate),
		zap.Int("failed_queries", len(result.FailedQueries)),
		zap.Duration("duration", result.Duration))
	return result, nil
}

func (e *Evaluator) evaluateQuery(ctx context.Context, r Retriever, q types.TestQuery, topK int) (QueryResult, error) {
	docs, err := r.Query(ctx, q.Query, topK)
	if err != nil {
		return QueryResult{}, err
	}

	foundProducts, foundFAQs := e.partition(q.QueryID, docs)
	expected, dataType := q.Governing()
	found := foundProducts
	if dataType == types.DataTypeFAQ {
		found = foundFAQs
	}

	precision, recall, f1 := Score(expected, found)
	return QueryResult{
		QueryID:          q.QueryID,
		Query:            q.Query,
		QueryType:        q.QueryType,
		ExpectedProducts: dedupe(q.ExpectedProducts),
		ExpectedFAQs:     dedupe(q.ExpectedFAQs),
		FoundProducts:    foundProducts,
		FoundFAQs:        foundFAQs,
		Precision:        precision,
		Recall:           recall,
		F1:               f1,
		HasRelevant:      Hit(expected, found),
		SearchResults:    Previews(docs),
	}, nil
}

// partition splits retrieved documents into product and FAQ id buckets.
// A document tagged faq with a faq_id counts as an FAQ; otherwise any
// document with a product_id counts as a product, untagged ones included.
func (e *Evaluator) partition(queryID string, docs []types.RetrievedDocument) (products, faqs []string) {
	products = []string{}
	faqs = []string{}
	for _, doc := range docs {
		if !doc.Tagged() {
			e.logger.Debug("retrieved document has no data_type, scoring as product",
				zap.String("query_id", queryID), zap.String("id", doc.ID))
			if e.untagged != nil {
				e.untagged(queryID, doc)
			}
		}

		if doc.DataType() == types.DataTypeFAQ {
			if id, ok := doc.Metadata.String(types.MetaFAQID); ok {
				faqs = append(faqs, id)
				continue
			}
		}
		if id, ok := doc.Metadata.String(types.MetaProductID); ok {
			products = append(products, id)
		}
	}
	return dedupe(products), dedupe(faqs)
}

// Previews summarizes retrieved documents, keeping their order
func Previews(docs []types.RetrievedDocument) []Preview {
	out := make([]Preview, len(docs))
	for i, doc := range docs {
		idKey := types.MetaProductID
		if dt, _ := doc.Metadata.String(types.MetaDataType); dt == types.DataTypeFAQ {
			idKey = types.MetaFAQID
		}
		out[i] = Preview{
			ID:           stringOr(doc.Metadata, idKey, unknownValue),
			DataType:     doc.DataType(),
			ChunkSection: stringOr(doc.Metadata, types.MetaChunkSection, unknownValue),
			Score:        doc.Score,
			TextPreview:  TextPreview(doc.Text),
		}
	}
	return out
}

func stringOr(md types.Metadata, key, fallback string) string {
	if s, ok := md.String(key); ok {
		return s
	}
	return fallback
}

// TextPreview returns the first 100 characters of text followed by "..."
func TextPreview(text string) string {
	if utf8.RuneCountInString(text) <= previewRunes {
		return text + "..."
	}
	runes := []rune(text)
	return string(runes[:previewRunes]) + "..."
}
