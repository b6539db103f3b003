package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/benchmark"
	"github.com/gapraoguy/rag-advance/internal/indexer"
	"github.com/gapraoguy/rag-advance/internal/strategy"
	"github.com/gapraoguy/rag-advance/internal/vectorindex"
)

// MCP error codes
const (
	ErrorCodeInvalidParams      = -32602 // Invalid method parameters
	ErrorCodeInternalError      = -32603 // Internal JSON-RPC error
	ErrorCodeUnknownStrategy    = -32001 // Strategy name is not registered
	ErrorCodeIndexingInProgress = -32002 // Another indexing operation is already running
	ErrorCodeNotIndexed         = -32003 // Index is empty
	ErrorCodeEmptyQuery         = -32004 // Query parameter is empty
	ErrorCodeNoTestQueries      = -32005 // No labeled test queries were loaded
)

const (
	modeProducts = "products"
	modeFAQs     = "faqs"
	modeCombined = "combined"

	defaultLabel = "current"
	maxTopK      = 100

	recentRuns = 5
)

// handleIndexCatalog handles the index_catalog tool invocation
func (s *Server) handleIndexCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	mode := getStringDefault(args, "mode", modeCombined)
	if mode != modeProducts && mode != modeFAQs && mode != modeCombined {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   mode,
			"allowed": []string{modeProducts, modeFAQs, modeCombined},
		})
	}

	productStrategy := getStringDefault(args, "product_strategy", strategy.Granular)
	faqStrategy := getStringDefault(args, "faq_strategy", strategy.QAPair)
	if mode != modeFAQs {
		if _, err := strategy.LookupProduct(productStrategy); err != nil {
			return nil, unknownStrategyError("product_strategy", productStrategy, strategy.ProductStrategies())
		}
	}
	if mode != modeProducts {
		if _, err := strategy.LookupFAQ(faqStrategy); err != nil {
			return nil, unknownStrategyError("faq_strategy", faqStrategy, strategy.FAQStrategies())
		}
	}

	release, err := s.lock.Acquire()
	if err != nil {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"error": err.Error(),
		})
	}
	defer release()

	if err := s.index.Clear(ctx); err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to clear index", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var report *indexer.Report
	switch mode {
	case modeProducts:
		report, err = s.indexer.IndexProducts(ctx, s.index, productStrategy)
	case modeFAQs:
		report, err = s.indexer.IndexFAQs(ctx, s.index, faqStrategy)
	default:
		report, err = s.indexer.IndexCombined(ctx, s.index, productStrategy, faqStrategy)
	}
	if err != nil {
		s.logger.Error("index_catalog failed", zap.String("mode", mode), zap.Error(err))
		return nil, newMCPError(ErrorCodeInternalError, "indexing failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"indexed":     true,
		"collection":  s.index.Name(),
		"mode":        mode,
		"report":      report,
		"duration_ms": report.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleSearchIndex handles the search_index tool invocation
func (s *Server) handleSearchIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK, err := s.topKArg(args)
	if err != nil {
		return nil, err
	}

	if err := s.requireIndexed(ctx); err != nil {
		return nil, err
	}

	resp, err := s.index.Search(ctx, vectorindex.Request{Query: query, Limit: topK, UseCache: true})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, len(resp.Documents))
	for i, doc := range resp.Documents {
		results[i] = map[string]interface{}{
			"rank":     i + 1,
			"score":    doc.Score,
			"content":  doc.Text,
			"metadata": doc.Metadata,
		}
	}

	response := map[string]interface{}{
		"query":       query,
		"top_k":       topK,
		"search_mode": string(resp.Mode),
		"cache_hit":   resp.CacheHit,
		"results":     results,
		"duration_ms": resp.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleEvaluateIndex handles the evaluate_index tool invocation
func (s *Server) handleEvaluateIndex(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	label := getStringDefault(args, "strategy_label", defaultLabel)
	if label == "" {
		label = defaultLabel
	}
	topK, err := s.topKArg(args)
	if err != nil {
		return nil, err
	}

	if err := s.requireQueries(); err != nil {
		return nil, err
	}
	if err := s.requireIndexed(ctx); err != nil {
		return nil, err
	}

	result, err := s.evaluator.Evaluate(ctx, s.index, label, topK)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "evaluation failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"evaluation":  result,
		"duration_ms": result.Duration.Milliseconds(),
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleRunBenchmark handles the run_benchmark tool invocation
func (s *Server) handleRunBenchmark(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, err := arguments(request)
	if err != nil {
		return nil, err
	}

	mode, err := benchmark.ParseMode(getStringDefault(args, "mode", string(benchmark.ModeProducts)))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"reason":  err.Error(),
			"allowed": []string{modeProducts, modeCombined},
		})
	}

	names, err := getStringSlice(args, "strategies")
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid strategies", map[string]interface{}{
			"param":  "strategies",
			"reason": err.Error(),
		})
	}
	candidates, err := benchmark.ParseCandidates(mode, names)
	if err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, strategy.ErrUnknownStrategy) {
			code = ErrorCodeUnknownStrategy
		}
		return nil, newMCPError(code, "invalid strategies", map[string]interface{}{
			"param":  "strategies",
			"reason": err.Error(),
		})
	}

	topK, err := s.topKArg(args)
	if err != nil {
		return nil, err
	}
	if err := s.requireQueries(); err != nil {
		return nil, err
	}

	report, err := s.runner.Run(ctx, candidates, benchmark.Config{Mode: mode, TopK: topK})
	if errors.Is(err, indexer.ErrIndexBusy) {
		return nil, newMCPError(ErrorCodeIndexingInProgress, "indexing already in progress", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "benchmark failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"run_id":     report.Info.RunID,
		"mode":       string(report.Info.Mode),
		"baseline":   report.Info.Baseline,
		"summary":    report.Summary,
		"comparison": report.Comparison,
	}
	if report.ComparisonError != "" {
		response["comparison_error"] = report.ComparisonError
	}
	if failed := report.Failed(); len(failed) > 0 {
		failures := make([]map[string]interface{}, len(failed))
		for i, f := range failed {
			failures[i] = map[string]interface{}{
				"strategy": f.Candidate.Name,
				"stage":    f.Failure.Stage,
				"error":    f.Failure.Error,
			}
		}
		response["failed"] = failures
	}

	if s.dataDir != "" {
		path, err := benchmark.Save(ctx, report, s.dataDir, s.storage)
		if err != nil {
			s.logger.Warn("failed to save benchmark report", zap.Error(err))
			response["save_error"] = err.Error()
		} else {
			response["report_path"] = path
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if _, err := arguments(request); err != nil {
		return nil, err
	}

	status, err := s.index.Status(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	collections, err := s.storage.ListCollections(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list collections", map[string]interface{}{
			"error": err.Error(),
		})
	}
	others := make([]map[string]interface{}, 0, len(collections))
	for _, c := range collections {
		if c.Name == s.index.Name() {
			continue
		}
		count, err := s.storage.CountChunks(ctx, c.ID)
		if err != nil {
			return nil, newMCPError(ErrorCodeInternalError, "failed to count chunks", map[string]interface{}{
				"collection": c.Name,
				"error":      err.Error(),
			})
		}
		others = append(others, map[string]interface{}{
			"name":         c.Name,
			"chunks_count": count,
			"updated_at":   c.UpdatedAt.Format(time.RFC3339),
		})
	}

	runs, err := s.storage.ListBenchmarkRuns(ctx, recentRuns)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list benchmark runs", map[string]interface{}{
			"error": err.Error(),
		})
	}
	history := make([]map[string]interface{}, len(runs))
	for i, run := range runs {
		history[i] = map[string]interface{}{
			"run_id":      run.RunID,
			"mode":        run.Mode,
			"top_k":       run.TopK,
			"report_path": run.ReportPath,
			"created_at":  run.CreatedAt.Format(time.RFC3339),
		}
	}

	response := map[string]interface{}{
		"indexed":    status.ChunksCount > 0,
		"collection": s.index.Name(),
		"statistics": map[string]interface{}{
			"chunks_count":     status.ChunksCount,
			"embeddings_count": status.EmbeddingsCount,
			"chunk_types":      status.ChunkTypes,
			"index_size_mb":    fmt.Sprintf("%.2f", status.IndexSizeMB),
		},
		"health": map[string]interface{}{
			"database_accessible":  status.Health.DatabaseAccessible,
			"embeddings_available": status.Health.EmbeddingsAvailable,
			"fts_indexes_built":    status.Health.FTSIndexesBuilt,
		},
		"candidate_collections": others,
		"recent_benchmarks":     history,
		"test_queries":          len(s.evaluator.Queries()),
		"search_mode":           string(s.index.Mode()),
	}
	if status.ChunksCount == 0 {
		response["message"] = "Index is empty. Use index_catalog tool to build it."
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// arguments extracts the argument map; a call without arguments yields an
// empty map
func arguments(request mcp.CallToolRequest) (map[string]interface{}, error) {
	if request.Params.Arguments == nil {
		return map[string]interface{}{}, nil
	}
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}
	return args, nil
}

func (s *Server) topKArg(args map[string]interface{}) (int, error) {
	topK := getIntDefault(args, "top_k", s.topK)
	if topK < 1 || topK > maxTopK {
		return 0, newMCPError(ErrorCodeInvalidParams, "top_k must be between 1 and 100", map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}
	return topK, nil
}

func (s *Server) requireIndexed(ctx context.Context) error {
	count, err := s.index.Count(ctx)
	if err != nil {
		return newMCPError(ErrorCodeInternalError, "failed to read index", map[string]interface{}{
			"error": err.Error(),
		})
	}
	if count == 0 {
		return newMCPError(ErrorCodeNotIndexed, "index is empty", map[string]interface{}{
			"collection": s.index.Name(),
			"hint":       "use index_catalog first",
		})
	}
	return nil
}

func (s *Server) requireQueries() error {
	if len(s.evaluator.Queries()) == 0 {
		return newMCPError(ErrorCodeNoTestQueries, "no test queries loaded", nil)
	}
	return nil
}

func unknownStrategyError(param, value string, available []string) error {
	return newMCPError(ErrorCodeUnknownStrategy, "unknown strategy", map[string]interface{}{
		"param":     param,
		"value":     value,
		"available": available,
	})
}

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// getStringSlice extracts an optional array of strings
func getStringSlice(args map[string]interface{}, key string) ([]string, error) {
	raw, ok := args[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, len(v))
		for i, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("element %d is not a string", i)
			}
			out[i] = s
		}
		return out, nil
	default:
		return nil, fmt.Errorf("expected an array of strings")
	}
}
