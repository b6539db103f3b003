package evaluation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore(t *testing.T) {
	tests := []struct {
		name          string
		expected      []string
		found         []string
		wantPrecision float64
		wantRecall    float64
		wantF1        float64
	}{
		{name: "nothing found", expected: []string{"P1"}, found: nil},
		{name: "nothing expected", expected: nil, found: []string{"P1"}},
		{name: "both empty"},
		{name: "disjoint", expected: []string{"P1"}, found: []string{"P2"}},
		{
			name:     "exact match",
			expected: []string{"P1", "P2"}, found: []string{"P2", "P1"},
			wantPrecision: 1, wantRecall: 1, wantF1: 1,
		},
		{
			name:     "half recall",
			expected: []string{"P1", "P2"}, found: []string{"P1"},
			wantPrecision: 1, wantRecall: 0.5, wantF1: 2.0 / 3.0,
		},
		{
			name:     "duplicates count once",
			expected: []string{"P1"}, found: []string{"P1", "P1", "P3"},
			wantPrecision: 0.5, wantRecall: 1, wantF1: 2.0 / 3.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, r, f1 := Score(tt.expected, tt.found)
			assert.InDelta(t, tt.wantPrecision, p, 1e-9)
			assert.InDelta(t, tt.wantRecall, r, 1e-9)
			assert.InDelta(t, tt.wantF1, f1, 1e-9)
		})
	}
}

func TestHit(t *testing.T) {
	assert.True(t, Hit([]string{"a", "b"}, []string{"c", "b"}))
	assert.False(t, Hit([]string{"a"}, []string{"c"}))
	assert.False(t, Hit(nil, []string{"c"}))
}

func TestAggregate_MacroAverage(t *testing.T) {
	results := []QueryResult{
		{QueryType: "spec", Precision: 1, Recall: 0.5, F1: 2.0 / 3.0, HasRelevant: true},
		{QueryType: "spec", Precision: 0, Recall: 0, F1: 0},
		{QueryType: "faq", Precision: 0.5, Recall: 1, F1: 2.0 / 3.0, HasRelevant: true},
	}

	m := Aggregate(results)
	assert.InDelta(t, 0.5, m.Precision, 1e-9)
	assert.InDelta(t, 0.5, m.Recall, 1e-9)
	assert.InDelta(t, 4.0/9.0, m.F1, 1e-9)
	assert.InDelta(t, 2.0/3.0, m.HitRate, 1e-9)

	assert.Equal(t, Metrics{}, Aggregate(nil))
}

func TestBreakdown(t *testing.T) {
	results := []QueryResult{
		{QueryType: "spec", Precision: 1, HasRelevant: true},
		{QueryType: "spec", Precision: 0},
		{QueryType: "faq", Precision: 0.5, HasRelevant: true},
	}

	b := Breakdown(results)
	assert.Equal(t, []string{"faq", "spec"}, QueryTypes(b))
	assert.Equal(t, 2, b["spec"].Count)
	assert.InDelta(t, 0.5, b["spec"].Precision, 1e-9)
	assert.InDelta(t, 0.5, b["spec"].HitRate, 1e-9)
	assert.Equal(t, 1, b["faq"].Count)
	assert.InDelta(t, 1.0, b["faq"].HitRate, 1e-9)
}

func TestMetricsValue(t *testing.T) {
	m := Metrics{Precision: 0.1, Recall: 0.2, F1: 0.3, HitRate: 0.4}
	for i, name := range MetricNames {
		v, ok := m.Value(name)
		assert.True(t, ok)
		assert.InDelta(t, float64(i+1)/10, v, 1e-9)
	}
	_, ok := m.Value("bogus")
	assert.False(t, ok)
}
