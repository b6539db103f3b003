package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gapraoguy/rag-advance/internal/benchmark"
	"github.com/gapraoguy/rag-advance/internal/chunker"
	"github.com/gapraoguy/rag-advance/internal/evaluation"
	"github.com/gapraoguy/rag-advance/internal/indexer"
	"github.com/gapraoguy/rag-advance/internal/mcp"
	"github.com/gapraoguy/rag-advance/internal/storage"
	"github.com/gapraoguy/rag-advance/internal/strategy"
	"github.com/gapraoguy/rag-advance/internal/vectorindex"
	"github.com/gapraoguy/rag-advance/pkg/types"
)

// chunkPreviewRunes bounds the chunk text printed by chunks preview
const chunkPreviewRunes = 200

// =============================================================================
// Index Handlers
// =============================================================================

// runIndex rebuilds the main collection. recreate drops the collection
// first instead of clearing it.
func runIndex(cmd *cobra.Command, mode, productStrategy, faqStrategy string, recreate bool) error {
	if err := validateIndexArgs(mode, productStrategy, faqStrategy); err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	snapshot, err := a.catalog(mode != modeProducts)
	if err != nil {
		return err
	}

	store, err := a.openStorage()
	if err != nil {
		return err
	}
	if recreate {
		err := store.DeleteCollection(ctx, a.cfg.Collection)
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return fmt.Errorf("failed to delete collection: %w", err)
		}
		a.logger.Info("collection dropped", zap.String("collection", a.cfg.Collection))
	}

	emb, err := a.openEmbedder(ctx)
	if err != nil {
		return err
	}
	idx, err := vectorindex.Open(ctx, store, emb, a.cfg.Collection, a.indexOptions())
	if err != nil {
		return fmt.Errorf("failed to open index: %w", err)
	}
	if err := idx.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}

	ix := indexer.New(snapshot, a.logger)
	var report *indexer.Report
	switch mode {
	case modeProducts:
		report, err = ix.IndexProducts(ctx, idx, productStrategy)
	case modeFAQs:
		report, err = ix.IndexFAQs(ctx, idx, faqStrategy)
	default:
		report, err = ix.IndexCombined(ctx, idx, productStrategy, faqStrategy)
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Index build completed (collection %s, %s):\n", idx.Name(), report.Duration.Round(time.Millisecond))
	return writeJSON(out, report)
}

func validateIndexArgs(mode, productStrategy, faqStrategy string) error {
	switch mode {
	case modeProducts, modeFAQs, modeCombined:
	default:
		return fmt.Errorf("invalid mode %q: expected products, faqs or combined", mode)
	}
	if mode != modeFAQs {
		if _, err := strategy.LookupProduct(productStrategy); err != nil {
			return err
		}
	}
	if mode != modeProducts {
		if _, err := strategy.LookupFAQ(faqStrategy); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// Query Handlers
// =============================================================================

// runSearch queries the main collection
func runSearch(cmd *cobra.Command, query string, jsonOutput bool) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	idx, _, _, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	if err := requireIndexed(ctx, idx); err != nil {
		return err
	}

	docs, err := idx.Query(ctx, query, a.cfg.TopK)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeJSON(out, docs)
	}

	fmt.Fprintf(out, "Results for %q (%d):\n", query, len(docs))
	for i, p := range evaluation.Previews(docs) {
		fmt.Fprintf(out, "%d. [%.4f] %s %s/%s\n   %s\n", i+1, p.Score, p.ID, p.DataType, p.ChunkSection, p.TextPreview)
	}
	return nil
}

// runEvaluate scores the main collection
func runEvaluate(cmd *cobra.Command, label, output string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	queries, err := a.testQueries()
	if err != nil {
		return err
	}
	idx, _, _, err := a.openIndex(ctx)
	if err != nil {
		return err
	}
	if err := requireIndexed(ctx, idx); err != nil {
		return err
	}

	ev := evaluation.New(queries,
		evaluation.WithLogger(a.logger),
		evaluation.WithUntaggedHook(untaggedLogger(a.logger)))
	result, err := ev.Evaluate(ctx, idx, label, a.cfg.TopK)
	if err != nil {
		return err
	}

	if output != "" {
		payload, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
		if err := os.WriteFile(output, payload, 0o644); err != nil {
			return fmt.Errorf("failed to write result: %w", err)
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Evaluation: %s\n", result.Strategy)
	fmt.Fprintf(out, "Queries: %d (top_k %d)\n", result.TotalQueries, result.TopK)
	fmt.Fprintf(out, "Precision: %.3f\n", result.Overall.Precision)
	fmt.Fprintf(out, "Recall: %.3f\n", result.Overall.Recall)
	fmt.Fprintf(out, "F1: %.3f\n", result.Overall.F1)
	fmt.Fprintf(out, "Hit Rate: %.3f\n", result.Overall.HitRate)
	if len(result.FailedQueries) > 0 {
		fmt.Fprintf(out, "Failed Queries: %d\n", len(result.FailedQueries))
	}

	if len(result.Breakdown) > 0 {
		fmt.Fprintln(out)
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "QUERY TYPE\tCOUNT\tPRECISION\tRECALL\tF1\tHIT RATE")
		for _, qt := range evaluation.QueryTypes(result.Breakdown) {
			m := result.Breakdown[qt]
			fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\n", qt, m.Count, m.Precision, m.Recall, m.F1, m.HitRate)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}
	if output != "" {
		fmt.Fprintf(out, "Result written to %s\n", output)
	}
	return nil
}

func untaggedLogger(logger *zap.Logger) evaluation.UntaggedHook {
	return func(queryID string, doc types.RetrievedDocument) {
		logger.Debug("retrieved document has no data_type", zap.String("query_id", queryID), zap.String("id", doc.ID))
	}
}

// =============================================================================
// Benchmark Handler
// =============================================================================

// runBenchmark compares the candidates and saves the report
func runBenchmark(cmd *cobra.Command, combined bool, names []string, save bool) error {
	mode := benchmark.ModeProducts
	if combined {
		mode = benchmark.ModeCombined
	}
	candidates, err := benchmark.ParseCandidates(mode, names)
	if err != nil {
		return err
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	snapshot, err := a.catalog(combined)
	if err != nil {
		return err
	}
	queries, err := a.testQueries()
	if err != nil {
		return err
	}
	store, err := a.openStorage()
	if err != nil {
		return err
	}
	emb, err := a.openEmbedder(ctx)
	if err != nil {
		return err
	}

	metrics := benchmark.NewMetrics()
	runner := benchmark.NewRunner(
		indexer.New(snapshot, a.logger),
		evaluation.New(queries,
			evaluation.WithLogger(a.logger),
			evaluation.WithUntaggedHook(untaggedLogger(a.logger))),
		&benchmark.VectorIndexFactory{
			Storage:  store,
			Embedder: emb,
			Base:     a.cfg.Collection,
			Options:  a.indexOptions(),
		},
		benchmark.WithMetrics(metrics),
		benchmark.WithLogger(a.logger),
	)

	report, err := runner.Run(ctx, candidates, benchmark.Config{Mode: mode, TopK: a.cfg.TopK})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := printBenchmark(out, report); err != nil {
		return err
	}

	if save {
		path, err := benchmark.Save(ctx, report, a.cfg.DataDir, store)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nReport written to %s\n", path)
	}
	if a.cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			return err
		}
		a.logger.Info("metrics written", zap.String("path", a.cfg.MetricsFile))
	}
	return nil
}

func printBenchmark(out io.Writer, report *benchmark.Report) error {
	fmt.Fprintf(out, "Benchmark %s (%s, top_k %d, %d test queries, %.1fs)\n\n",
		report.Info.RunID, report.Info.Mode, report.Info.TopK, report.Info.TotalTestQueries, report.Info.DurationSeconds)

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STRATEGY\tCHUNKS\tPRECISION\tRECALL\tF1\tHIT RATE\tSTATUS")
	for _, res := range report.Results {
		if !res.Succeeded() {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\tfailed (%s): %s\n", res.Candidate.Name, res.Failure.Stage, res.Failure.Error)
			continue
		}
		m := res.Evaluation.Overall
		fmt.Fprintf(w, "%s\t%d\t%.3f\t%.3f\t%.3f\t%.3f\tok\n",
			res.Candidate.Name, res.Indexing.TotalChunks, m.Precision, m.Recall, m.F1, m.HitRate)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if report.ComparisonError != "" {
		fmt.Fprintf(out, "\nNo comparison: %s\n", report.ComparisonError)
	}
	if len(report.Summary.Recommendations) > 0 {
		fmt.Fprintf(out, "\nRecommendations (baseline %s):\n", report.Info.Baseline)
		for _, line := range report.Summary.Recommendations {
			fmt.Fprintf(out, "  - %s\n", line)
		}
	}
	return nil
}

// =============================================================================
// Chunks Handlers
// =============================================================================

// runChunksStats prints chunk statistics without touching the index
func runChunksStats(cmd *cobra.Command, productStrategy, faqStrategy string) error {
	names := strategy.ProductStrategies()
	if productStrategy != "" {
		if _, err := strategy.LookupProduct(productStrategy); err != nil {
			return err
		}
		names = []string{productStrategy}
	}
	if faqStrategy != "" {
		if _, err := strategy.LookupFAQ(faqStrategy); err != nil {
			return err
		}
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	snapshot, err := a.catalog(faqStrategy != "")
	if err != nil {
		return err
	}
	ix := indexer.New(snapshot, a.logger)

	stats := make([]*indexer.ChunkStats, 0, len(names)+1)
	for _, name := range names {
		s, err := ix.ProductChunkStatistics(ctx, name)
		if err != nil {
			return err
		}
		stats = append(stats, s)
	}
	if faqStrategy != "" {
		s, err := ix.FAQChunkStatistics(ctx, faqStrategy)
		if err != nil {
			return err
		}
		stats = append(stats, s)
	}
	return writeJSON(cmd.OutOrStdout(), stats)
}

// runChunksPreview prints the chunks generated for one product and, when
// requested, for the FAQ set
func runChunksPreview(cmd *cobra.Command, productStrategy, faqStrategy, productID string, limit int) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()

	snapshot, err := a.catalog(faqStrategy != "")
	if err != nil {
		return err
	}

	products, err := snapshot.Products(cmd.Context())
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return indexer.ErrNoEntities
	}
	item := products[0]
	if productID != "" {
		if item, err = snapshot.Product(productID); err != nil {
			return err
		}
	}

	productService, err := chunker.NewProductService(productStrategy, a.logger)
	if err != nil {
		return err
	}
	chunks, err := productService.Generate(item)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "=== %s: %s (%s) ===\n", productStrategy, item.Name, item.ID)
	fmt.Fprintf(out, "chunks: %d\n", len(chunks))
	if err := printChunks(out, chunks); err != nil {
		return err
	}

	if faqStrategy == "" {
		return nil
	}
	faqService, err := chunker.NewFAQService(faqStrategy, a.logger)
	if err != nil {
		return err
	}
	faqs, err := snapshot.FAQs(cmd.Context())
	if err != nil {
		return err
	}
	batch := faqService.GenerateAll(faqs)
	fmt.Fprintf(out, "\n=== %s: %d FAQ entries ===\n", faqStrategy, len(faqs))
	fmt.Fprintf(out, "chunks: %d\n", len(batch.Chunks))
	shown := batch.Chunks
	if limit >= 0 && len(shown) > limit {
		shown = shown[:limit]
	}
	return printChunks(out, shown)
}

func printChunks(out io.Writer, chunks []types.Chunk) error {
	for i, c := range chunks {
		fmt.Fprintf(out, "\n--- chunk %d: %s ---\n", i+1, c.ID)
		keys := make([]string, 0, len(c.Metadata))
		for k := range c.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			v, _ := c.Metadata.String(k)
			fmt.Fprintf(out, "%s: %s\n", k, v)
		}
		fmt.Fprintln(out, truncate(c.Text, chunkPreviewRunes))
	}
	return nil
}

func truncate(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n]) + "..."
}

// =============================================================================
// Serve & Version Handlers
// =============================================================================

// runServe starts the MCP stdio server
func runServe(cmd *cobra.Command) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.close()
	ctx := cmd.Context()

	snapshot, err := a.catalog(false)
	if err != nil {
		return err
	}
	queries, err := a.testQueries()
	if err != nil {
		a.logger.Warn("evaluation tools disabled", zap.Error(err))
		queries = nil
	}
	store, err := a.openStorage()
	if err != nil {
		return err
	}
	emb, err := a.openEmbedder(ctx)
	if err != nil {
		return err
	}

	server, err := mcp.NewServer(ctx, mcp.Deps{
		Storage:      store,
		Embedder:     emb,
		Source:       snapshot,
		Queries:      queries,
		Collection:   a.cfg.Collection,
		IndexOptions: a.cfg.Index(),
		DataDir:      a.cfg.DataDir,
		TopK:         a.cfg.TopK,
		Logger:       a.logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	a.logger.Info("ragbench MCP server starting",
		zap.String("version", version),
		zap.String("build_mode", storage.BuildMode),
		zap.String("driver", storage.DriverName))
	if err := server.Serve(ctx); err != nil && !errors.Is(err, ctx.Err()) {
		return fmt.Errorf("server error: %w", err)
	}
	a.logger.Info("server stopped")
	return nil
}

// runVersion prints build information
func runVersion(cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ragbench\n")
	fmt.Fprintf(out, "Version: %s\n", version)
	fmt.Fprintf(out, "Commit: %s\n", commit)
	fmt.Fprintf(out, "Build Time: %s\n", buildTime)
	fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
	fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
	fmt.Fprintf(out, "Vector Extension: %v\n", storage.VectorExtensionAvailable)
	return nil
}

// writeJSON writes v as indented JSON without HTML escaping
func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
