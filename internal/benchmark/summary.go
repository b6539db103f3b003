package benchmark

import (
	"encoding/json"
	"fmt"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gapraoguy/rag-advance/internal/evaluation"
)

// Overview is the rounded headline metrics of one strategy
type Overview struct {
	F1        float64 `json:"f1_score"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	HitRate   float64 `json:"hit_rate"`
}

// Classification is the F1 band of one strategy against the baseline
type Classification struct {
	Strategy       string  `json:"strategy"`
	ImprovementPct float64 `json:"f1_improvement_pct"`
	Band           string  `json:"band"`
}

// Summary is the human-oriented digest of a benchmark run
type Summary struct {
	Strategies      []string
	Overview        map[string]Overview
	Best            map[string]Best
	Bands           []Classification
	Recommendations []string
	Error           string
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// Summarize builds the summary from the successful results and their
// comparison. comparison may be nil when fewer than two strategies succeeded.
func Summarize(results []StrategyMetrics, comparison *Comparison) Summary {
	s := Summary{
		Overview: make(map[string]Overview, len(results)),
		Best:     make(map[string]Best),
	}
	if len(results) == 0 {
		s.Error = "no successful evaluations to summarize"
		return s
	}

	for _, r := range results {
		s.Strategies = append(s.Strategies, r.Strategy)
		s.Overview[r.Strategy] = Overview{
			F1:        round3(r.Metrics.F1),
			Precision: round3(r.Metrics.Precision),
			Recall:    round3(r.Metrics.Recall),
			HitRate:   round3(r.Metrics.HitRate),
		}
	}

	if comparison == nil {
		return s
	}
	s.Best = comparison.Best

	for _, name := range comparison.Strategies {
		per, ok := comparison.Improvements[name]
		if !ok {
			continue
		}
		pct := per[evaluation.MetricF1].ImprovementPct
		band := Band(pct)
		s.Bands = append(s.Bands, Classification{Strategy: name, ImprovementPct: pct, Band: band})
		s.Recommendations = append(s.Recommendations, recommendation(name, comparison.Baseline, band, pct))
	}

	if best, ok := comparison.Best[evaluation.MetricF1]; ok && best.Strategy != "" {
		s.Recommendations = append(s.Recommendations,
			fmt.Sprintf("overall, the %s strategy achieved the highest F1 score (%.3f)", best.Strategy, best.Value))
	}
	return s
}

func recommendation(strategy, baseline, band string, pct float64) string {
	switch band {
	case BandRecommended:
		return fmt.Sprintf("%s strategy improves F1 by %.1f%% over %s and is recommended", strategy, pct, baseline)
	case BandMarginal:
		return fmt.Sprintf("%s strategy shows a marginal improvement of %.1f%% over %s", strategy, pct, baseline)
	default:
		return fmt.Sprintf("%s strategy shows no improvement over %s", strategy, baseline)
	}
}

// MarshalJSON keeps strategy and metric order stable
func (s Summary) MarshalJSON() ([]byte, error) {
	overview := orderedmap.New[string, Overview]()
	for _, name := range s.Strategies {
		overview.Set(name, s.Overview[name])
	}
	best := orderedmap.New[string, Best]()
	for _, metric := range evaluation.MetricNames {
		if b, ok := s.Best[metric]; ok {
			best.Set(metric, b)
		}
	}

	out := orderedmap.New[string, any]()
	out.Set("best_strategies", best)
	out.Set("performance_overview", overview)
	if len(s.Bands) > 0 {
		out.Set("improvement_bands", s.Bands)
	}
	recs := s.Recommendations
	if recs == nil {
		recs = []string{}
	}
	out.Set("recommendations", recs)
	if s.Error != "" {
		out.Set("error", s.Error)
	}
	return json.Marshal(out)
}
