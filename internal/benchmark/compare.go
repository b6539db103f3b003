package benchmark

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/gapraoguy/rag-advance/internal/evaluation"
)

// Improvement bands for the F1 delta against the baseline
const (
	BandRecommended = "recommended"
	BandMarginal    = "marginal improvement"
	BandNone        = "no improvement"

	recommendedThreshold = 10.0
)

// ErrNotEnoughResults is returned when fewer than two strategies evaluated
var ErrNotEnoughResults = errors.New("not enough successful evaluations for comparison")

// StrategyMetrics pairs a strategy name with its aggregate metrics
type StrategyMetrics struct {
	Strategy string
	Metrics  evaluation.Metrics
}

// Best is the argmax of one metric
type Best struct {
	Strategy string  `json:"strategy"`
	Value    float64 `json:"value"`
}

// Improvement is one metric of one strategy measured against the baseline
type Improvement struct {
	Baseline       float64 `json:"baseline"`
	Current        float64 `json:"current"`
	ImprovementPct float64 `json:"improvement_pct"`
}

// Comparison ranks strategies per metric
type Comparison struct {
	Strategies []string
	// Values maps metric -> strategy -> value
	Values map[string]map[string]float64
	Best   map[string]Best
	// Baseline is empty when the baseline strategy did not evaluate
	Baseline string
	// Improvements maps strategy -> metric -> improvement
	Improvements map[string]map[string]Improvement
}

// ImprovementPct is the percentage change of current over baseline. It is 0
// when the baseline is not positive.
func ImprovementPct(baseline, current float64) float64 {
	if baseline <= 0 {
		return 0
	}
	return (current - baseline) / baseline * 100
}

// Band classifies an F1 improvement percentage
func Band(pct float64) string {
	switch {
	case pct > recommendedThreshold:
		return BandRecommended
	case pct > 0:
		return BandMarginal
	default:
		return BandNone
	}
}

// Compare finds the best strategy per metric and, when baseline is among
// results, the improvement of every other strategy over it. Ties go to the
// strategy listed first.
func Compare(results []StrategyMetrics, baseline string) (*Comparison, error) {
	if len(results) < 2 {
		return nil, fmt.Errorf("%w: got %d", ErrNotEnoughResults, len(results))
	}

	c := &Comparison{
		Strategies:   make([]string, 0, len(results)),
		Values:       make(map[string]map[string]float64, len(evaluation.MetricNames)),
		Best:         make(map[string]Best, len(evaluation.MetricNames)),
		Improvements: make(map[string]map[string]Improvement),
	}

	var base *evaluation.Metrics
	for i := range results {
		c.Strategies = append(c.Strategies, results[i].Strategy)
		if results[i].Strategy == baseline && base == nil {
			base = &results[i].Metrics
		}
	}

	for _, metric := range evaluation.MetricNames {
		values := make(map[string]float64, len(results))
		best := Best{Value: math.Inf(-1)}
		for _, r := range results {
			v, _ := r.Metrics.Value(metric)
			values[r.Strategy] = v
			if v > best.Value {
				best = Best{Strategy: r.Strategy, Value: v}
			}
		}
		c.Values[metric] = values
		c.Best[metric] = best
	}

	if base == nil {
		return c, nil
	}
	c.Baseline = baseline
	for _, r := range results {
		if r.Strategy == baseline {
			continue
		}
		per := make(map[string]Improvement, len(evaluation.MetricNames))
		for _, metric := range evaluation.MetricNames {
			b, _ := base.Value(metric)
			cur, _ := r.Metrics.Value(metric)
			per[metric] = Improvement{Baseline: b, Current: cur, ImprovementPct: ImprovementPct(b, cur)}
		}
		c.Improvements[r.Strategy] = per
	}
	return c, nil
}

// MarshalJSON keeps metric and strategy order stable
func (c *Comparison) MarshalJSON() ([]byte, error) {
	values := orderedmap.New[string, *orderedmap.OrderedMap[string, float64]]()
	best := orderedmap.New[string, Best]()
	for _, metric := range evaluation.MetricNames {
		perStrategy := orderedmap.New[string, float64]()
		for _, s := range c.Strategies {
			perStrategy.Set(s, c.Values[metric][s])
		}
		values.Set(metric, perStrategy)
		best.Set(metric, c.Best[metric])
	}

	improvements := orderedmap.New[string, *orderedmap.OrderedMap[string, Improvement]]()
	for _, s := range c.Strategies {
		per, ok := c.Improvements[s]
		if !ok {
			continue
		}
		ordered := orderedmap.New[string, Improvement]()
		for _, metric := range evaluation.MetricNames {
			ordered.Set(metric, per[metric])
		}
		improvements.Set(s, ordered)
	}

	out := orderedmap.New[string, any]()
	out.Set("strategies_compared", c.Strategies)
	out.Set("metrics_comparison", values)
	out.Set("best_strategy", best)
	if c.Baseline != "" {
		out.Set("baseline", c.Baseline)
	}
	out.Set("improvement_analysis", improvements)
	return json.Marshal(out)
}
