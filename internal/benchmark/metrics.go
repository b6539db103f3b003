package benchmark

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/gapraoguy/rag-advance/internal/evaluation"
)

// Metrics exports per-strategy benchmark results as Prometheus series
type Metrics struct {
	registry *prometheus.Registry

	Precision *prometheus.GaugeVec
	Recall    *prometheus.GaugeVec
	F1        *prometheus.GaugeVec
	HitRate   *prometheus.GaugeVec
	Chunks    *prometheus.GaugeVec
	Failures  *prometheus.CounterVec
	Duration  *prometheus.GaugeVec
}

// NewMetrics registers the benchmark series on a private registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	labels := []string{"mode", "strategy"}

	return &Metrics{
		registry: reg,
		Precision: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ragbench_strategy_precision",
			Help: "Macro-averaged precision of the last evaluation per strategy",
		}, labels),
		Recall: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ragbench_strategy_recall",
			Help: "Macro-averaged recall of the last evaluation per strategy",
		}, labels),
		F1: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ragbench_strategy_f1",
			Help: "Macro-averaged F1 score of the last evaluation per strategy",
		}, labels),
		HitRate: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ragbench_strategy_hit_rate",
			Help: "Fraction of test queries with at least one expected hit",
		}, labels),
		Chunks: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ragbench_strategy_chunks",
			Help: "Number of chunks indexed for the strategy",
		}, labels),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "ragbench_strategy_failures_total",
			Help: "Strategies that failed indexing or evaluation",
		}, append(labels, "stage")),
		Duration: factory.NewGaugeVec(prometheus.GaugeOpts{
			Name: "ragbench_strategy_duration_seconds",
			Help: "Wall time spent indexing and evaluating the strategy",
		}, labels),
	}
}

// Registry exposes the private registry, e.g. for an HTTP handler
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) recordEvaluation(mode, strategy string, metrics evaluation.Metrics) {
	if m == nil {
		return
	}
	m.Precision.WithLabelValues(mode, strategy).Set(metrics.Precision)
	m.Recall.WithLabelValues(mode, strategy).Set(metrics.Recall)
	m.F1.WithLabelValues(mode, strategy).Set(metrics.F1)
	m.HitRate.WithLabelValues(mode, strategy).Set(metrics.HitRate)
}

func (m *Metrics) recordChunks(mode, strategy string, chunks int) {
	if m == nil {
		return
	}
	m.Chunks.WithLabelValues(mode, strategy).Set(float64(chunks))
}

func (m *Metrics) recordFailure(mode, strategy, stage string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(mode, strategy, stage).Inc()
}

func (m *Metrics) recordDuration(mode, strategy string, seconds float64) {
	if m == nil {
		return
	}
	m.Duration.WithLabelValues(mode, strategy).Set(seconds)
}

// WriteTextfile writes all series in the node_exporter textfile format
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
