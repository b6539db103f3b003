// Package mcp implements the Model Context Protocol (MCP) server for ragbench.
//
// The server exposes five tools to MCP clients:
//   - index_catalog: Rebuild the index with a product and/or FAQ chunk strategy
//   - search_index: Query the current index
//   - evaluate_index: Score the current index against the labeled test queries
//   - run_benchmark: Compare chunk strategies in isolated collections
//   - get_status: Report index statistics and recent benchmark runs
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Stdout carries the protocol; logs go to stderr.
//
// # Tool: index_catalog
//
//	Request:
//	{
//	  "name": "index_catalog",
//	  "arguments": {
//	    "mode": "combined",
//	    "product_strategy": "granular",
//	    "faq_strategy": "qa_pair"
//	  }
//	}
//
//	Response:
//	{
//	  "indexed": true,
//	  "collection": "products",
//	  "report": {
//	    "product_strategy": "granular",
//	    "faq_strategy": "qa_pair",
//	    "total_products": 20,
//	    "total_faqs": 15,
//	    "total_chunks": 143,
//	    "product_chunks": 128,
//	    "faq_chunks": 15,
//	    "success": true
//	  }
//	}
//
// # Tool: run_benchmark
//
//	Request:
//	{
//	  "name": "run_benchmark",
//	  "arguments": {
//	    "mode": "products",
//	    "strategies": ["unified", "section", "granular"],
//	    "top_k": 3
//	  }
//	}
//
// The response carries the run id, the comparison against the baseline
// ("unified", or "unified+qa_pair" in combined mode), the summary and the
// path of the saved report.
//
// # Error Handling
//
// Handlers return *MCPError values:
//   - -32602: Invalid params
//   - -32603: Internal error
//   - -32001: Unknown strategy
//   - -32002: Indexing in progress
//   - -32003: Index is empty
//   - -32004: Empty query
//   - -32005: No test queries loaded
//
// index_catalog and run_benchmark share one index lock, so a second build
// fails fast with -32002 instead of waiting.
package mcp
