package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/gapraoguy/rag-advance/internal/strategy"
)

// indexCatalogTool returns the tool definition for index_catalog
func indexCatalogTool() mcp.Tool {
	return mcp.Tool{
		Name:        "index_catalog",
		Description: "Rebuild the search index from the product catalog and FAQ database using the chosen chunk strategies",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Which entities to index",
					"enum":        []string{modeProducts, modeFAQs, modeCombined},
					"default":     modeCombined,
				},
				"product_strategy": map[string]interface{}{
					"type":        "string",
					"description": "Chunk strategy for products",
					"enum":        strategy.ProductStrategies(),
					"default":     strategy.Granular,
				},
				"faq_strategy": map[string]interface{}{
					"type":        "string",
					"description": "Chunk strategy for FAQ entries",
					"enum":        strategy.FAQStrategies(),
					"default":     strategy.QAPair,
				},
			},
		},
	}
}

// searchIndexTool returns the tool definition for search_index
func searchIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "search_index",
		Description: "Search the current index and return the best matching chunks",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query (natural language)",
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Number of results to return (1-100)",
					"minimum":     1,
					"maximum":     maxTopK,
				},
			},
			Required: []string{"query"},
		},
	}
}

// evaluateIndexTool returns the tool definition for evaluate_index
func evaluateIndexTool() mcp.Tool {
	return mcp.Tool{
		Name:        "evaluate_index",
		Description: "Run the labeled test queries against the current index and report precision, recall, F1 and hit rate",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"strategy_label": map[string]interface{}{
					"type":        "string",
					"description": "Label recorded as the strategy name in the result",
					"default":     defaultLabel,
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Documents retrieved per query (1-100)",
					"minimum":     1,
					"maximum":     maxTopK,
				},
			},
		},
	}
}

// runBenchmarkTool returns the tool definition for run_benchmark
func runBenchmarkTool() mcp.Tool {
	return mcp.Tool{
		Name:        "run_benchmark",
		Description: "Index and evaluate several chunk strategies in isolated collections and compare them",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "products compares product strategies; combined compares product+FAQ combinations",
					"enum":        []string{modeProducts, modeCombined},
					"default":     modeProducts,
				},
				"strategies": map[string]interface{}{
					"type":        "array",
					"description": "Candidates to compare, e.g. unified or granular+qa_pair. Defaults to every candidate of the mode",
					"items": map[string]interface{}{
						"type": "string",
					},
				},
				"top_k": map[string]interface{}{
					"type":        "integer",
					"description": "Documents retrieved per query (1-100)",
					"minimum":     1,
					"maximum":     maxTopK,
				},
			},
		},
	}
}

// getStatusTool returns the tool definition for get_status
func getStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        "get_status",
		Description: "Report index statistics, candidate collections and recent benchmark runs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}
