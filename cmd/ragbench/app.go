package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/catalog"
	"github.com/gapraoguy/rag-advance/internal/config"
	"github.com/gapraoguy/rag-advance/internal/embedder"
	"github.com/gapraoguy/rag-advance/internal/evaluation"
	"github.com/gapraoguy/rag-advance/internal/logging"
	"github.com/gapraoguy/rag-advance/internal/storage"
	"github.com/gapraoguy/rag-advance/internal/telemetry"
	"github.com/gapraoguy/rag-advance/internal/vectorindex"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

// app holds the resources a command opens. close releases them in reverse
// order.
type app struct {
	cfg     *config.Config
	logger  *zap.Logger
	tracing *telemetry.Provider
	closers []func() error
}

// newApp loads and validates configuration, then builds the logger and the
// tracer provider
func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := logging.New(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		return nil, err
	}

	tracing, err := telemetry.Setup(telemetry.Options{Enabled: cfg.Trace, Version: version})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, tracing: tracing}
	logger.Debug("configuration loaded",
		zap.String("data_dir", cfg.DataDir),
		zap.String("db", cfg.Database()),
		zap.String("collection", cfg.Collection),
		zap.String("embedding_provider", cfg.Provider()),
		zap.String("search_mode", cfg.SearchMode))
	return a, nil
}

func (a *app) close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("failed to release resource", zap.Error(err))
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracing.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to flush traces", zap.Error(err))
	}
	_ = a.logger.Sync()
}

// catalog loads the source documents. FAQs may be missing when only
// products are needed.
func (a *app) catalog(needFAQs bool) (*catalog.Snapshot, error) {
	snapshot, err := catalog.Load(catalog.Options{
		DataDir:      a.cfg.DataDir,
		ProductsFile: a.cfg.ProductsFile,
		FAQFile:      a.cfg.FAQFile,
		OptionalFAQs: !needFAQs,
	})
	if err != nil {
		return nil, err
	}
	products, faqs := snapshot.Counts()
	a.logger.Info("catalog loaded", zap.Int("products", products), zap.Int("faqs", faqs))
	return snapshot, nil
}

// testQueries loads the labeled queries
func (a *app) testQueries() ([]types.TestQuery, error) {
	queries, err := evaluation.LoadTestQueries(a.cfg.TestQueriesPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load test queries: %w", err)
	}
	a.logger.Info("test queries loaded", zap.Int("count", len(queries)))
	return queries, nil
}

// openStorage opens the SQLite database, creating its directory
func (a *app) openStorage() (*storage.SQLiteStorage, error) {
	path := a.cfg.Database()
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	store, err := storage.NewSQLiteStorage(path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	a.closers = append(a.closers, store.Close)
	return store, nil
}

// openEmbedder creates the configured embedding provider
func (a *app) openEmbedder(ctx context.Context) (embedder.Embedder, error) {
	emb, err := embedder.New(ctx, a.cfg.Embedder())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize embedder: %w", err)
	}
	a.closers = append(a.closers, emb.Close)
	a.logger.Info("embedder ready",
		zap.String("provider", emb.Provider()),
		zap.String("model", emb.Model()),
		zap.Int("dimension", emb.Dimension()))
	return emb, nil
}

// indexOptions returns the vector index options with the app logger
func (a *app) indexOptions() vectorindex.Options {
	opts := a.cfg.Index()
	opts.Logger = a.logger
	return opts
}

// openIndex opens storage, the embedder and the main collection
func (a *app) openIndex(ctx context.Context) (*vectorindex.Index, *storage.SQLiteStorage, embedder.Embedder, error) {
	store, err := a.openStorage()
	if err != nil {
		return nil, nil, nil, err
	}
	emb, err := a.openEmbedder(ctx)
	if err != nil {
		return nil, nil, nil, err
	}
	idx, err := vectorindex.Open(ctx, store, emb, a.cfg.Collection, a.indexOptions())
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	return idx, store, emb, nil
}

// requireIndexed fails when the main collection holds no chunks
func requireIndexed(ctx context.Context, idx *vectorindex.Index) error {
	count, err := idx.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return errNotIndexed
	}
	return nil
}

var errNotIndexed = errors.New("index is empty: run `ragbench init-db` or `ragbench index` first")
