package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/benchmark"
	"github.com/gapraoguy/rag-advance/internal/embedder"
	"github.com/gapraoguy/rag-advance/internal/evaluation"
	"github.com/gapraoguy/rag-advance/internal/indexer"
	"github.com/gapraoguy/rag-advance/internal/storage"
	"github.com/gapraoguy/rag-advance/internal/vectorindex"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

const (
	// ServerName is the MCP server name
	ServerName = "ragbench"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
	// DefaultCollection is the collection searched and evaluated by default
	DefaultCollection = "products"
)

// Deps are the components the server is built from. The caller owns them
// and closes Storage and Embedder after Serve returns.
type Deps struct {
	Storage      storage.Storage
	Embedder     embedder.Embedder
	Source       indexer.Source
	Queries      []types.TestQuery // empty disables evaluate_index and run_benchmark
	Collection   string
	IndexOptions vectorindex.Options
	DataDir      string // benchmark reports are written below it when set
	TopK         int
	Lock         *indexer.IndexLock
	Metrics      *benchmark.Metrics
	Logger       *zap.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp       *server.MCPServer
	storage   storage.Storage
	index     *vectorindex.Index
	indexer   *indexer.Indexer
	evaluator *evaluation.Evaluator
	runner    *benchmark.Runner
	lock      *indexer.IndexLock
	dataDir   string
	topK      int
	logger    *zap.Logger
}

// NewServer creates a new MCP server instance
func NewServer(ctx context.Context, deps Deps) (*Server, error) {
	if deps.Storage == nil {
		return nil, errors.New("storage is required")
	}
	if deps.Embedder == nil {
		return nil, errors.New("embedder is required")
	}
	if deps.Source == nil {
		return nil, errors.New("entity source is required")
	}
	if deps.Collection == "" {
		deps.Collection = DefaultCollection
	}
	if deps.TopK < 1 {
		deps.TopK = evaluation.DefaultTopK
	}
	if deps.Lock == nil {
		deps.Lock = &indexer.IndexLock{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	deps.IndexOptions.Logger = logger

	index, err := vectorindex.Open(ctx, deps.Storage, deps.Embedder, deps.Collection, deps.IndexOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}

	idx := indexer.New(deps.Source, logger)
	ev := evaluation.New(deps.Queries, evaluation.WithLogger(logger))
	factory := &benchmark.VectorIndexFactory{
		Storage:  deps.Storage,
		Embedder: deps.Embedder,
		Base:     deps.Collection,
		Options:  deps.IndexOptions,
	}
	runner := benchmark.NewRunner(idx, ev, factory,
		benchmark.WithLock(deps.Lock),
		benchmark.WithMetrics(deps.Metrics),
		benchmark.WithLogger(logger))

	s := &Server{
		mcp:       server.NewMCPServer(ServerName, ServerVersion, server.WithToolCapabilities(false)),
		storage:   deps.Storage,
		index:     index,
		indexer:   idx,
		evaluator: ev,
		runner:    runner,
		lock:      deps.Lock,
		dataDir:   deps.DataDir,
		topK:      deps.TopK,
		logger:    logger.Named("mcp"),
	}

	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve runs the MCP server on stdio until ctx is done or stdin closes
func (s *Server) Serve(ctx context.Context) error {
	stdio := server.NewStdioServer(s.mcp)
	stdio.SetErrorLogger(zap.NewStdLog(s.logger))
	s.logger.Info("serving MCP over stdio", zap.String("collection", s.index.Name()))
	return stdio.Listen(ctx, os.Stdin, os.Stdout)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(indexCatalogTool(), s.handleIndexCatalog)
	s.mcp.AddTool(searchIndexTool(), s.handleSearchIndex)
	s.mcp.AddTool(evaluateIndexTool(), s.handleEvaluateIndex)
	s.mcp.AddTool(runBenchmarkTool(), s.handleRunBenchmark)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)
	return nil
}
