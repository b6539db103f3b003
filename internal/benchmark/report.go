package benchmark

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gapraoguy/rag-advance/internal/evaluation"
	"github.com/gapraoguy/rag-advance/internal/indexer"
	"github.com/gapraoguy/rag-advance/internal/storage"
)

// Failure stages
const (
	StageIndexing   = "indexing"
	StageEvaluation = "evaluation"
)

const (
	resultsDirName  = "benchmark_results"
	reportTimestamp = "20060102_150405"
)

// Info describes one benchmark run
type Info struct {
	RunID            string    `json:"run_id"`
	Mode             Mode      `json:"mode"`
	Baseline         string    `json:"baseline"`
	Timestamp        time.Time `json:"timestamp"`
	DurationSeconds  float64   `json:"duration_seconds"`
	TopK             int       `json:"top_k"`
	TotalTestQueries int       `json:"total_test_queries"`
}

// Failure records why a candidate dropped out of the comparison
type Failure struct {
	Stage string `json:"stage"`
	Error string `json:"error"`
}

// StrategyResult is everything recorded for one candidate
type StrategyResult struct {
	Candidate    Candidate
	Indexing     *indexer.Report
	ProductStats *indexer.ChunkStats
	FAQStats     *indexer.ChunkStats
	StatsError   string
	Evaluation   *evaluation.Result
	Failure      *Failure
	Duration     time.Duration
}

// Succeeded reports whether the candidate indexed and evaluated
func (r StrategyResult) Succeeded() bool {
	return r.Failure == nil && r.Evaluation != nil
}

// Report is the full outcome of a benchmark run
type Report struct {
	Info            Info
	Results         []StrategyResult
	Comparison      *Comparison
	ComparisonError string
	Summary         Summary
}

// Successful returns the aggregate metrics of candidates that succeeded, in
// run order
func (r *Report) Successful() []StrategyMetrics {
	var out []StrategyMetrics
	for _, res := range r.Results {
		if res.Succeeded() {
			out = append(out, StrategyMetrics{Strategy: res.Candidate.Name, Metrics: res.Evaluation.Overall})
		}
	}
	return out
}

// Failed returns the candidates that dropped out
func (r *Report) Failed() []StrategyResult {
	var out []StrategyResult
	for _, res := range r.Results {
		if !res.Succeeded() {
			out = append(out, res)
		}
	}
	return out
}

func failureEntry(name string, f *Failure) *orderedmap.OrderedMap[string, any] {
	entry := orderedmap.New[string, any]()
	entry.Set("strategy", name)
	entry.Set("success", false)
	entry.Set("stage", f.Stage)
	entry.Set("error", f.Error)
	return entry
}

// MarshalJSON writes the report sections keyed by candidate name in run
// order
func (r *Report) MarshalJSON() ([]byte, error) {
	indexing := orderedmap.New[string, any]()
	stats := orderedmap.New[string, any]()
	evaluations := orderedmap.New[string, any]()

	for _, res := range r.Results {
		name := res.Candidate.Name

		switch {
		case res.Indexing != nil:
			indexing.Set(name, res.Indexing)
		case res.Failure != nil:
			indexing.Set(name, failureEntry(name, res.Failure))
		}

		switch {
		case res.StatsError != "":
			stats.Set(name, map[string]string{"error": res.StatsError})
		case res.FAQStats != nil:
			combined := orderedmap.New[string, any]()
			combined.Set("products", res.ProductStats)
			combined.Set("faqs", res.FAQStats)
			stats.Set(name, combined)
		case res.ProductStats != nil:
			stats.Set(name, res.ProductStats)
		}

		switch {
		case res.Evaluation != nil:
			evaluations.Set(name, res.Evaluation)
		case res.Failure != nil:
			evaluations.Set(name, failureEntry(name, res.Failure))
		}
	}

	out := orderedmap.New[string, any]()
	out.Set("benchmark_info", r.Info)
	out.Set("indexing_results", indexing)
	out.Set("chunk_statistics", stats)
	out.Set("evaluation_results", evaluations)
	if r.Comparison != nil {
		out.Set("strategy_comparison", r.Comparison)
	} else {
		out.Set("strategy_comparison", map[string]string{"error": r.ComparisonError})
	}
	out.Set("summary", r.Summary)
	return json.Marshal(out)
}

// Encode renders the report as indented UTF-8 JSON with non-ASCII text and
// HTML characters left unescaped
func (r *Report) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("failed to encode benchmark report: %w", err)
	}
	return buf.Bytes(), nil
}

// ReportPath is where a run started at ts is written under dataDir
func ReportPath(dataDir string, ts time.Time) string {
	name := "benchmark_results_" + ts.Format(reportTimestamp) + ".json"
	return filepath.Join(dataDir, resultsDirName, name)
}

// RunStore persists benchmark reports
type RunStore interface {
	SaveBenchmarkRun(ctx context.Context, run *storage.BenchmarkRun) error
}

// Save writes the report file under dataDir and, when store is non-nil,
// records the run. It returns the file path.
func Save(ctx context.Context, report *Report, dataDir string, store RunStore) (string, error) {
	data, err := report.Encode()
	if err != nil {
		return "", err
	}

	path := ReportPath(dataDir, report.Info.Timestamp)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("failed to create results directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to save results: %w", err)
	}

	if store != nil {
		run := &storage.BenchmarkRun{
			RunID:      report.Info.RunID,
			Mode:       string(report.Info.Mode),
			TopK:       report.Info.TopK,
			Report:     string(data),
			ReportPath: path,
		}
		if err := store.SaveBenchmarkRun(ctx, run); err != nil {
			return path, fmt.Errorf("failed to record benchmark run: %w", err)
		}
	}
	return path, nil
}
