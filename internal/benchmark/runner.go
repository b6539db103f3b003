package benchmark

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/evaluation"
	"github.com/gapraoguy/rag-advance/internal/indexer"
)

const tracerName = "github.com/gapraoguy/rag-advance/internal/benchmark"

// ErrNoCandidates is returned when Run is given nothing to compare
var ErrNoCandidates = errors.New("no candidates to benchmark")

// Index is an isolated index instance owned by one candidate
type Index interface {
	indexer.Sink
	evaluation.Retriever
	Clear(ctx context.Context) error
}

// IndexFactory opens the index namespace of a candidate
type IndexFactory interface {
	Open(ctx context.Context, candidate string) (Index, error)
}

// Config controls one run
type Config struct {
	Mode Mode
	TopK int
	// Baseline defaults to DefaultBaseline(Mode)
	Baseline string
}

// Runner executes benchmark runs
type Runner struct {
	indexer   *indexer.Indexer
	evaluator *evaluation.Evaluator
	factory   IndexFactory
	lock      *indexer.IndexLock
	metrics   *Metrics
	logger    *zap.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// RunnerOption configures a Runner
type RunnerOption func(*Runner)

// WithLock shares an index lock with other writers of the same namespace
func WithLock(lock *indexer.IndexLock) RunnerOption {
	return func(r *Runner) {
		if lock != nil {
			r.lock = lock
		}
	}
}

// WithMetrics records results in m
func WithMetrics(m *Metrics) RunnerOption {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) RunnerOption {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRunner creates a Runner
func NewRunner(idx *indexer.Indexer, ev *evaluation.Evaluator, factory IndexFactory, opts ...RunnerOption) *Runner {
	r := &Runner{
		indexer:   idx,
		evaluator: ev,
		factory:   factory,
		lock:      &indexer.IndexLock{},
		logger:    zap.NewNop(),
		tracer:    otel.Tracer(tracerName),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.Named("benchmark")
	return r
}

// Run benchmarks candidates one after another. Each candidate is re-indexed
// into its own cleared namespace and evaluated; a candidate that fails is
// recorded and left out of the comparison. Run holds the index lock for its
// whole duration and fails with indexer.ErrIndexBusy if it is taken.
func (r *Runner) Run(ctx context.Context, candidates []Candidate, cfg Config) (*Report, error) {
	if len(candidates) == 0 {
		return nil, ErrNoCandidates
	}
	if cfg.TopK < 1 {
		return nil, fmt.Errorf("%w: got %d", evaluation.ErrInvalidTopK, cfg.TopK)
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeProducts
	}
	if cfg.Baseline == "" {
		cfg.Baseline = DefaultBaseline(cfg.Mode)
	}

	release, err := r.lock.Acquire()
	if err != nil {
		return nil, err
	}
	defer release()

	start := r.now()
	report := &Report{
		Info: Info{
			RunID:            uuid.NewString(),
			Mode:             cfg.Mode,
			Baseline:         cfg.Baseline,
			Timestamp:        start,
			TopK:             cfg.TopK,
			TotalTestQueries: len(r.evaluator.Queries()),
		},
		Results: make([]StrategyResult, 0, len(candidates)),
	}

	r.logger.Info("starting benchmark",
		zap.String("run_id", report.Info.RunID),
		zap.String("mode", string(cfg.Mode)),
		zap.Int("candidates", len(candidates)),
		zap.Int("top_k", cfg.TopK))

	for _, c := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("benchmark cancelled: %w", err)
		}
		report.Results = append(report.Results, r.runCandidate(ctx, c, cfg))
	}

	successful := report.Successful()
	comparison, err := Compare(successful, cfg.Baseline)
	if err != nil {
		r.logger.Warn("skipping comparison", zap.Error(err))
		report.ComparisonError = err.Error()
	}
	report.Comparison = comparison
	report.Summary = Summarize(successful, comparison)
	report.Info.DurationSeconds = r.now().Sub(start).Seconds()

	r.logger.Info("benchmark completed",
		zap.String("run_id", report.Info.RunID),
		zap.Int("successful", len(successful)),
		zap.Int("failed", len(candidates)-len(successful)),
		zap.Float64("duration_seconds", report.Info.DurationSeconds))
	return report, nil
}

func (r *Runner) runCandidate(ctx context.Context, c Candidate, cfg Config) (result StrategyResult) {
	ctx, span := r.tracer.Start(ctx, "benchmark.strategy", trace.WithAttributes(
		attribute.String("benchmark.candidate", c.Name),
		attribute.String("benchmark.mode", string(cfg.Mode)),
	))
	start := r.now()
	defer func() {
		result.Duration = r.now().Sub(start)
		r.metrics.recordDuration(string(cfg.Mode), c.Name, result.Duration.Seconds())
		if result.Failure != nil {
			r.metrics.recordFailure(string(cfg.Mode), c.Name, result.Failure.Stage)
			span.SetStatus(codes.Error, result.Failure.Error)
		}
		span.End()
	}()

	result.Candidate = c
	logger := r.logger.With(zap.String("candidate", c.Name))

	fail := func(stage string, err error) StrategyResult {
		logger.Error("candidate failed", zap.String("stage", stage), zap.Error(err))
		span.RecordError(err)
		result.Failure = &Failure{Stage: stage, Error: err.Error()}
		return result
	}

	idx, err := r.factory.Open(ctx, c.Name)
	if err != nil {
		return fail(StageIndexing, fmt.Errorf("failed to open index: %w", err))
	}
	if err := idx.Clear(ctx); err != nil {
		return fail(StageIndexing, fmt.Errorf("failed to clear index: %w", err))
	}

	var report *indexer.Report
	if c.Combined() {
		report, err = r.indexer.IndexCombined(ctx, idx, c.ProductStrategy, c.FAQStrategy)
	} else {
		report, err = r.indexer.IndexProducts(ctx, idx, c.ProductStrategy)
	}
	if err != nil {
		return fail(StageIndexing, err)
	}
	result.Indexing = report
	r.metrics.recordChunks(string(cfg.Mode), c.Name, report.TotalChunks)
	span.SetAttributes(attribute.Int("benchmark.chunks", report.TotalChunks))

	r.collectStats(ctx, c, &result)

	eval, err := r.evaluator.Evaluate(ctx, idx, c.Name, cfg.TopK)
	if err != nil {
		return fail(StageEvaluation, fmt.Errorf("evaluation failed: %w", err))
	}
	result.Evaluation = eval
	r.metrics.recordEvaluation(string(cfg.Mode), c.Name, eval.Overall)
	span.SetAttributes(attribute.Float64("benchmark.f1", eval.Overall.F1))

	logger.Info("candidate evaluated",
		zap.Int("chunks", report.TotalChunks),
		zap.Float64("avg_f1", eval.Overall.F1),
		zap.Float64("hit_rate", eval.Overall.HitRate))
	return result
}

// collectStats records chunk statistics; a failure here does not fail the
// candidate
func (r *Runner) collectStats(ctx context.Context, c Candidate, result *StrategyResult) {
	stats, err := r.indexer.ProductChunkStatistics(ctx, c.ProductStrategy)
	if err != nil {
		if !c.Combined() {
			r.logger.Warn("failed to collect chunk statistics", zap.String("candidate", c.Name), zap.Error(err))
			result.StatsError = err.Error()
			return
		}
		stats = nil
	}
	result.ProductStats = stats

	if !c.Combined() {
		return
	}
	faqStats, err := r.indexer.FAQChunkStatistics(ctx, c.FAQStrategy)
	if err != nil {
		r.logger.Warn("failed to collect chunk statistics", zap.String("candidate", c.Name), zap.Error(err))
		result.StatsError = err.Error()
		return
	}
	result.FAQStats = faqStats
}
