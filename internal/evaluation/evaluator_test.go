package evaluation

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/gapraoguy/rag-advance/pkg/types"
)

// stubRetriever answers by query text
type stubRetriever struct {
	docs   map[string][]types.RetrievedDocument
	errs   map[string]error
	gotK   []int
	called int
}

func (s *stubRetriever) Query(ctx context.Context, text string, k int) ([]types.RetrievedDocument, error) {
	s.called++
	s.gotK = append(s.gotK, k)
	if err, ok := s.errs[text]; ok {
		return nil, err
	}
	return s.docs[text], nil
}

func productDoc(id string) types.RetrievedDocument {
	return types.RetrievedDocument{
		ID:   id + "_unified",
		Text: "商品 " + id,
		Metadata: types.Metadata{
			types.MetaProductID: id,
			types.MetaDataType:  types.DataTypeProduct,
		},
		Score: 0.9,
	}
}

func faqDoc(id string) types.RetrievedDocument {
	return types.RetrievedDocument{
		ID:   id + "_qa_pair",
		Text: "Q: 質問 " + id,
		Metadata: types.Metadata{
			types.MetaFAQID:    id,
			types.MetaDataType: types.DataTypeFAQ,
		},
		Score: 0.8,
	}
}

func TestEvaluate_PartialRecall(t *testing.T) {
	queries := []types.TestQuery{
		{QueryID: "q1", Query: "マウス", QueryType: "product_search", ExpectedProducts: []string{"P1", "P2"}},
	}
	r := &stubRetriever{docs: map[string][]types.RetrievedDocument{
		"マウス": {productDoc("P1"), productDoc("P1")},
	}}

	e := New(queries, WithLogger(zaptest.NewLogger(t)))
	res, err := e.Evaluate(context.Background(), r, "unified", 3)
	require.NoError(t, err)

	require.Len(t, res.Details, 1)
	d := res.Details[0]
	assert.Equal(t, []string{"P1"}, d.FoundProducts)
	assert.InDelta(t, 1.0, d.Precision, 1e-9)
	assert.InDelta(t, 0.5, d.Recall, 1e-9)
	assert.InDelta(t, 0.667, d.F1, 1e-3)
	assert.True(t, d.HasRelevant)
	assert.Equal(t, []int{3}, r.gotK)
	assert.Equal(t, "unified", res.Strategy)
	assert.Equal(t, 1, res.TotalQueries)
	assert.Equal(t, 3, res.TopK)
}

func TestEvaluate_FAQSetGoverns(t *testing.T) {
	queries := []types.TestQuery{{
		QueryID: "q1", Query: "返品", QueryType: "faq",
		ExpectedProducts: []string{"P1"},
		ExpectedFAQs:     []string{"FAQ001"},
	}}
	r := &stubRetriever{docs: map[string][]types.RetrievedDocument{
		"返品": {productDoc("P1"), faqDoc("FAQ002")},
	}}

	res, err := New(queries).Evaluate(context.Background(), r, "combined", 2)
	require.NoError(t, err)

	d := res.Details[0]
	assert.Equal(t, []string{"P1"}, d.FoundProducts)
	assert.Equal(t, []string{"FAQ002"}, d.FoundFAQs)
	assert.Zero(t, d.Precision)
	assert.False(t, d.HasRelevant)
}

func TestEvaluate_UntaggedDocumentsCountAsProducts(t *testing.T) {
	untagged := types.RetrievedDocument{
		ID:       "legacy",
		Text:     "legacy chunk",
		Metadata: types.Metadata{types.MetaProductID: "P9"},
	}
	queries := []types.TestQuery{{QueryID: "q1", Query: "x", QueryType: "t", ExpectedProducts: []string{"P9"}}}
	r := &stubRetriever{docs: map[string][]types.RetrievedDocument{"x": {untagged}}}

	var seen []string
	e := New(queries, WithUntaggedHook(func(queryID string, doc types.RetrievedDocument) {
		seen = append(seen, queryID+":"+doc.ID)
	}))

	res, err := e.Evaluate(context.Background(), r, "legacy", 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"P9"}, res.Details[0].FoundProducts)
	assert.True(t, res.Details[0].HasRelevant)
	assert.Equal(t, []string{"q1:legacy"}, seen)
	assert.Equal(t, types.DataTypeProduct, res.Details[0].SearchResults[0].DataType)
}

func TestEvaluate_FAQTagWithoutFAQIDFallsBackToProduct(t *testing.T) {
	doc := types.RetrievedDocument{
		Text: "category chunk",
		Metadata: types.Metadata{
			types.MetaDataType:  types.DataTypeFAQ,
			types.MetaProductID: "P1",
		},
	}
	queries := []types.TestQuery{{QueryID: "q1", Query: "x", QueryType: "t", ExpectedFAQs: []string{"FAQ001"}}}
	r := &stubRetriever{docs: map[string][]types.RetrievedDocument{"x": {doc}}}

	res, err := New(queries).Evaluate(context.Background(), r, "category_unified", 1)
	require.NoError(t, err)
	assert.Empty(t, res.Details[0].FoundFAQs)
	assert.Equal(t, []string{"P1"}, res.Details[0].FoundProducts)
	assert.Zero(t, res.Details[0].Recall)
}

func TestEvaluate_FailedQueriesExcluded(t *testing.T) {
	queries := []types.TestQuery{
		{QueryID: "q1", Query: "ok", QueryType: "a", ExpectedProducts: []string{"P1"}},
		{QueryID: "q2", Query: "boom", QueryType: "a", ExpectedProducts: []string{"P1"}},
		{QueryID: "q3", Query: "miss", QueryType: "b", ExpectedProducts: []string{"P1"}},
	}
	r := &stubRetriever{
		docs: map[string][]types.RetrievedDocument{
			"ok":   {productDoc("P1")},
			"miss": {productDoc("P2")},
		},
		errs: map[string]error{"boom": errors.New("index unavailable")},
	}

	res, err := New(queries, WithLogger(zaptest.NewLogger(t))).Evaluate(context.Background(), r, "s", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, r.called)
	assert.Equal(t, 2, res.TotalQueries)
	require.Len(t, res.FailedQueries, 1)
	assert.Equal(t, "q2", res.FailedQueries[0].QueryID)
	assert.InDelta(t, 0.5, res.Overall.F1, 1e-9)
	assert.InDelta(t, 0.5, res.Overall.HitRate, 1e-9)
	assert.Equal(t, 1, res.Breakdown["a"].Count)
	assert.Equal(t, 1, res.Breakdown["b"].Count)
}

func TestEvaluate_AllQueriesFail(t *testing.T) {
	queries := []types.TestQuery{{QueryID: "q1", Query: "boom", QueryType: "a"}}
	r := &stubRetriever{errs: map[string]error{"boom": errors.New("down")}}

	res, err := New(queries).Evaluate(context.Background(), r, "s", 3)
	require.NoError(t, err)
	assert.Zero(t, res.TotalQueries)
	assert.Equal(t, Metrics{}, res.Overall)
}

func TestEvaluate_Validation(t *testing.T) {
	r := &stubRetriever{}

	_, err := New([]types.TestQuery{{QueryID: "q", Query: "x"}}).Evaluate(context.Background(), r, "s", 0)
	assert.ErrorIs(t, err, ErrInvalidTopK)

	_, err = New(nil).Evaluate(context.Background(), r, "s", 3)
	assert.ErrorIs(t, err, ErrNoQueries)
	assert.Zero(t, r.called)
}

func TestEvaluate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New([]types.TestQuery{{QueryID: "q", Query: "x"}}).Evaluate(ctx, &stubRetriever{}, "s", 3)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPreviews(t *testing.T) {
	long := strings.Repeat("あ", 150)
	docs := []types.RetrievedDocument{
		{Text: long, Metadata: types.Metadata{types.MetaDataType: types.DataTypeFAQ, types.MetaFAQID: "FAQ001"}, Score: 0.5},
		{Text: "short", Metadata: types.Metadata{}},
	}

	p := Previews(docs)
	assert.Equal(t, "FAQ001", p[0].ID)
	assert.Equal(t, strings.Repeat("あ", 100)+"...", p[0].TextPreview)
	assert.Equal(t, "unknown", p[0].ChunkSection)
	assert.Equal(t, "unknown", p[1].ID)
	assert.Equal(t, "short...", p[1].TextPreview)
}

func TestResultJSON(t *testing.T) {
	queries := []types.TestQuery{{QueryID: "q1", Query: "マウス", QueryType: "spec", ExpectedProducts: []string{"P1"}}}
	r := &stubRetriever{docs: map[string][]types.RetrievedDocument{"マウス": {productDoc("P1")}}}

	res, err := New(queries).Evaluate(context.Background(), r, "unified", 1)
	require.NoError(t, err)

	data, err := json.Marshal(res)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Contains(t, decoded, "overall_metrics")
	assert.Contains(t, decoded, "query_type_breakdown")
	assert.Contains(t, decoded, "detailed_results")
	assert.NotContains(t, decoded, "failed_queries")

	overall := decoded["overall_metrics"].(map[string]any)
	assert.InDelta(t, 1.0, overall["avg_f1_score"], 1e-9)
}

func TestLoadTestQueries_JSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test_queries.json")
	content := `{"test_queries": [
		{"query_id": "q1", "query": "静かなマウス", "query_type": "feature", "expected_products": ["P001"]},
		{"query_id": "q2", "query": "返品", "query_type": "faq", "expected_faqs": ["FAQ001"]}
	]}`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	queries, err := LoadTestQueries(path)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, "静かなマウス", queries[0].Query)
	assert.Equal(t, []string{"FAQ001"}, queries[1].ExpectedFAQs)
	assert.Empty(t, queries[1].ExpectedProducts)
}

func TestLoadTestQueries_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queries.yaml")
	content := `test_queries:
  - query_id: q1
    query: キーボード
    query_type: product
    expected_products: [P002]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	queries, err := LoadTestQueries(path)
	require.NoError(t, err)
	require.Len(t, queries, 1)
	assert.Equal(t, []string{"P002"}, queries[0].ExpectedProducts)
}

func TestLoadTestQueries_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadTestQueries(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	noKey := filepath.Join(dir, "nokey.json")
	require.NoError(t, os.WriteFile(noKey, []byte(`{"queries": []}`), 0o600))
	_, err = LoadTestQueries(noKey)
	assert.ErrorIs(t, err, ErrMissingTestQueries)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{`), 0o600))
	_, err = LoadTestQueries(bad)
	assert.Error(t, err)

	dup := filepath.Join(dir, "dup.json")
	require.NoError(t, os.WriteFile(dup, []byte(`{"test_queries":[{"query_id":"a","query":"x"},{"query_id":"a","query":"y"}]}`), 0o600))
	_, err = LoadTestQueries(dup)
	assert.ErrorContains(t, err, "duplicate")
}
