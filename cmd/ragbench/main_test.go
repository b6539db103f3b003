package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const productsJSON = `{
  "products": [
    {
      "product_id": "P001",
      "product_name": "ワイヤレスマウス",
      "category": "周辺機器",
      "price": 1980,
      "description": "静音設計のワイヤレスマウス",
      "features": ["静音クリック", "長時間バッテリー"],
      "specifications": {"接続": "Bluetooth", "重量": "85g"}
    },
    {
      "product_id": "P002",
      "product_name": "メカニカルキーボード",
      "category": "周辺機器",
      "price": 12800,
      "description": "青軸のメカニカルキーボード",
      "features": ["青軸"],
      "specifications": {"配列": "日本語"}
    }
  ]
}`

const faqsJSON = `{
  "faqs": [
    {"faq_id": "FAQ001", "category": "返品", "question": "返品はできますか？", "answer": "30日以内なら可能です。"},
    {"faq_id": "FAQ002", "category": "配送", "question": "送料はいくらですか？", "answer": "全国一律500円です。"}
  ]
}`

const queriesJSON = `{
  "test_queries": [
    {"query_id": "q1", "query": "静かなマウス", "query_type": "product", "expected_products": ["P001"]},
    {"query_id": "q2", "query": "キーボード", "query_type": "product", "expected_products": ["P002"]},
    {"query_id": "q3", "query": "返品はできますか", "query_type": "faq", "expected_faqs": ["FAQ001"]}
  ]
}`

// testWorkspace writes the source documents and returns the global flags
// that point at them
func testWorkspace(t *testing.T) (dir string, flags []string) {
	t.Helper()
	t.Setenv("RAGBENCH_EMBEDDING_PROVIDER", "local")
	t.Setenv("RAGBENCH_REDIS_ADDR", "")

	dir = t.TempDir()
	for name, content := range map[string]string{
		"products_master.json": productsJSON,
		"faq_database.json":    faqsJSON,
		"test_queries.json":    queriesJSON,
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir, []string{"--data-dir", dir, "--db", filepath.Join(dir, "index", "ragbench.db"), "--log-level", "error"}
}

func execute(t *testing.T, args ...string) (stdout, stderr string, code int) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return out.String(), errOut.String(), code
}

func TestRootCommand(t *testing.T) {
	root := buildRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"index", "init-db", "search", "evaluate", "benchmark", "chunks", "serve", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}

	for _, flag := range []string{"config", "data-dir", "db", "log-level", "log-format", "trace"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(flag), "missing flag --%s", flag)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, code := execute(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, stdout, "Version: dev")
	assert.Contains(t, stdout, "Build Mode:")
}

func TestErrorsGoToStderr(t *testing.T) {
	_, flags := testWorkspace(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "unknown command", args: []string{"bogus"}, want: "unknown command"},
		{name: "unknown product strategy", args: append([]string{"index", "--product-strategy", "paragraph"}, flags...), want: "paragraph"},
		{name: "invalid mode", args: append([]string{"index", "--mode", "everything"}, flags...), want: "invalid mode"},
		{name: "duplicate candidate", args: append([]string{"benchmark", "--strategies", "unified,unified"}, flags...), want: "duplicate candidate"},
		{name: "invalid top_k", args: append([]string{"search", "x", "--top-k", "0"}, flags...), want: "top_k"},
		{name: "empty index", args: append([]string{"search", "マウス"}, flags...), want: "index is empty"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, stderr, code := execute(t, tt.args...)
			assert.Equal(t, 1, code)
			assert.Empty(t, stdout)
			assert.True(t, strings.HasPrefix(stderr, "Error: "), stderr)
			assert.Contains(t, stderr, tt.want)
		})
	}
}

func TestInitDBSearchEvaluate(t *testing.T) {
	dir, flags := testWorkspace(t)

	stdout, stderr, code := execute(t, append([]string{"init-db"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"product_strategy": "granular"`)
	assert.Contains(t, stdout, `"faq_strategy": "qa_pair"`)
	// granular: P001 1 + 2 + 2, P002 1 + 1 + 1; qa_pair: 2
	assert.Contains(t, stdout, `"total_chunks": 10`)

	stdout, stderr, code = execute(t, append([]string{"search", "ワイヤレスマウス", "--top-k", "2"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Results for")
	assert.Contains(t, stdout, "1. [")

	stdout, stderr, code = execute(t, append([]string{"search", "マウス", "--json"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	var docs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &docs))
	assert.Len(t, docs, 3)

	output := filepath.Join(dir, "evaluation.json")
	stdout, stderr, code = execute(t, append([]string{"evaluate", "--label", "granular+qa_pair", "--top-k", "10", "-o", output}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "Evaluation: granular+qa_pair")
	assert.Contains(t, stdout, "Queries: 3 (top_k 10)")
	// every chunk is retrieved at top_k 10
	assert.Contains(t, stdout, "Hit Rate: 1.000")
	assert.Contains(t, stdout, "QUERY TYPE")

	data, err := os.ReadFile(output)
	require.NoError(t, err)
	var result map[string]any
	require.NoError(t, json.Unmarshal(data, &result))
	assert.Equal(t, "granular+qa_pair", result["strategy"])
}

func TestIndexModes(t *testing.T) {
	_, flags := testWorkspace(t)

	stdout, stderr, code := execute(t, append([]string{"index", "--mode", "products", "--product-strategy", "section"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"total_chunks": 6`)
	assert.Contains(t, stdout, `"chunks_per_product": 3`)

	stdout, stderr, code = execute(t, append([]string{"index", "--mode", "faqs", "--faq-strategy", "qa_separate"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, `"total_chunks": 4`)
}

func TestBenchmark(t *testing.T) {
	dir, flags := testWorkspace(t)
	metricsFile := filepath.Join(dir, "ragbench.prom")

	stdout, stderr, code := execute(t, append([]string{"benchmark", "--strategies", "unified,granular", "--top-k", "2", "--metrics-file", metricsFile}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "STRATEGY")
	assert.Contains(t, stdout, "unified")
	assert.Contains(t, stdout, "granular")
	assert.Contains(t, stdout, "Recommendations (baseline unified)")
	assert.Contains(t, stdout, "Report written to")

	reports, err := filepath.Glob(filepath.Join(dir, "benchmark_results", "benchmark_results_*.json"))
	require.NoError(t, err)
	require.Len(t, reports, 1)

	data, err := os.ReadFile(reports[0])
	require.NoError(t, err)
	var report map[string]any
	require.NoError(t, json.Unmarshal(data, &report))
	assert.Contains(t, report, "strategy_comparison")

	metrics, err := os.ReadFile(metricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "ragbench_strategy_f1")
}

func TestBenchmark_CombinedNoSave(t *testing.T) {
	dir, flags := testWorkspace(t)

	stdout, stderr, code := execute(t, append([]string{"benchmark", "--combined", "--strategies", "unified+qa_pair,section+qa_separate", "--no-save"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "unified+qa_pair")
	assert.Contains(t, stdout, "section+qa_separate")
	assert.NotContains(t, stdout, "Report written to")

	_, err := os.Stat(filepath.Join(dir, "benchmark_results"))
	assert.True(t, os.IsNotExist(err))
}

func TestChunksStats(t *testing.T) {
	_, flags := testWorkspace(t)

	stdout, stderr, code := execute(t, append([]string{"chunks", "stats", "--strategy", "section", "--faq-strategy", "category_unified"}, flags...)...)
	require.Equal(t, 0, code, stderr)

	var stats []map[string]any
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	require.Len(t, stats, 2)
	assert.Equal(t, "section", stats[0]["strategy"])
	assert.EqualValues(t, 6, stats[0]["total_chunks"])
	assert.Equal(t, "category_unified", stats[1]["strategy"])
	assert.EqualValues(t, 2, stats[1]["total_chunks"])
	assert.Equal(t, true, stats[1]["grouped_by_category"])

	stdout, stderr, code = execute(t, append([]string{"chunks", "stats"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	require.NoError(t, json.Unmarshal([]byte(stdout), &stats))
	assert.Len(t, stats, 3)
}

func TestChunksPreview(t *testing.T) {
	_, flags := testWorkspace(t)

	stdout, stderr, code := execute(t, append([]string{"chunks", "preview", "--strategy", "section", "--product", "P002", "--faq-strategy", "qa_pair", "--limit", "1"}, flags...)...)
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, stdout, "=== section: メカニカルキーボード (P002) ===")
	assert.Contains(t, stdout, "chunks: 3")
	assert.Contains(t, stdout, "P002_basic_info")
	assert.Contains(t, stdout, "=== qa_pair: 2 FAQ entries ===")
	assert.Equal(t, 4, strings.Count(stdout, "--- chunk "))

	_, stderr, code = execute(t, append([]string{"chunks", "preview", "--product", "P999"}, flags...)...)
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "P999")
}
