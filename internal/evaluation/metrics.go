package evaluation

import "sort"

// Metric names used in reports and comparisons
const (
	MetricPrecision = "avg_precision"
	MetricRecall    = "avg_recall"
	MetricF1        = "avg_f1_score"
	MetricHitRate   = "hit_rate"
)

// MetricNames lists the aggregate metrics in report order
var MetricNames = []string{MetricPrecision, MetricRecall, MetricF1, MetricHitRate}

// Metrics holds macro-averaged retrieval scores
type Metrics struct {
	Precision float64 `json:"avg_precision"`
	Recall    float64 `json:"avg_recall"`
	F1        float64 `json:"avg_f1_score"`
	HitRate   float64 `json:"hit_rate"`
}

// Value returns the metric with the given name
func (m Metrics) Value(name string) (float64, bool) {
	switch name {
	case MetricPrecision:
		return m.Precision, true
	case MetricRecall:
		return m.Recall, true
	case MetricF1:
		return m.F1, true
	case MetricHitRate:
		return m.HitRate, true
	default:
		return 0, false
	}
}

// TypeMetrics is the aggregate for one query type
type TypeMetrics struct {
	Count int `json:"count"`
	Metrics
}

// Score computes precision, recall and F1 of found against expected. Both
// inputs are treated as sets. Empty found gives precision 0, empty expected
// gives recall 0, and F1 is 0 when precision and recall are both 0.
func Score(expected, found []string) (precision, recall, f1 float64) {
	exp := toSet(expected)
	got := toSet(found)

	hits := 0
	for id := range got {
		if _, ok := exp[id]; ok {
			hits++
		}
	}

	if len(got) > 0 {
		precision = float64(hits) / float64(len(got))
	}
	if len(exp) > 0 {
		recall = float64(hits) / float64(len(exp))
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}
	return precision, recall, f1
}

// Hit reports whether found and expected share at least one id
func Hit(expected, found []string) bool {
	exp := toSet(expected)
	for _, id := range found {
		if _, ok := exp[id]; ok {
			return true
		}
	}
	return false
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// dedupe keeps the first occurrence of each id
func dedupe(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

type accumulator struct {
	count                 int
	precision, recall, f1 float64
	hits                  int
}

func (a *accumulator) add(r QueryResult) {
	a.count++
	a.precision += r.Precision
	a.recall += r.Recall
	a.f1 += r.F1
	if r.HasRelevant {
		a.hits++
	}
}

func (a *accumulator) mean() Metrics {
	if a.count == 0 {
		return Metrics{}
	}
	n := float64(a.count)
	return Metrics{
		Precision: a.precision / n,
		Recall:    a.recall / n,
		F1:        a.f1 / n,
		HitRate:   float64(a.hits) / n,
	}
}

// Aggregate macro-averages per-query results. An empty input gives zeros.
func Aggregate(results []QueryResult) Metrics {
	var acc accumulator
	for _, r := range results {
		acc.add(r)
	}
	return acc.mean()
}

// Breakdown recomputes the aggregates per query type
func Breakdown(results []QueryResult) map[string]TypeMetrics {
	accs := make(map[string]*accumulator)
	for _, r := range results {
		acc, ok := accs[r.QueryType]
		if !ok {
			acc = &accumulator{}
			accs[r.QueryType] = acc
		}
		acc.add(r)
	}

	out := make(map[string]TypeMetrics, len(accs))
	for qt, acc := range accs {
		out[qt] = TypeMetrics{Count: acc.count, Metrics: acc.mean()}
	}
	return out
}

// QueryTypes returns the breakdown keys in sorted order
func QueryTypes(breakdown map[string]TypeMetrics) []string {
	keys := make([]string, 0, len(breakdown))
	for k := range breakdown {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
