package main

import (
	"github.com/spf13/cobra"

	"github.com/gapraoguy/rag-advance/internal/evaluation"
	"github.com/gapraoguy/rag-advance/internal/strategy"
)

// Index modes
const (
	modeProducts = "products"
	modeFAQs     = "faqs"
	modeCombined = "combined"
)

// =============================================================================
// Index Commands
// =============================================================================

// buildIndexCmd creates the "index" command
func buildIndexCmd() *cobra.Command {
	var (
		mode            string
		productStrategy string
		faqStrategy     string
	)

	cmd := &cobra.Command{
		Use:   "index",
		Short: "Rebuild the index with the chosen chunk strategies",
		Long: `Clear the main collection and index the catalog into it.

Modes:
  products  index products only with --product-strategy
  faqs      index FAQ entries only with --faq-strategy
  combined  index both into the same collection`,
		Example: `  ragbench index --mode products --product-strategy section
  ragbench index --mode combined --product-strategy granular --faq-strategy qa_separate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, mode, productStrategy, faqStrategy, false)
		},
	}

	cmd.Flags().StringVar(&mode, "mode", modeCombined, "What to index: products, faqs or combined")
	cmd.Flags().StringVar(&productStrategy, "product-strategy", strategy.Granular, "Product chunk strategy: unified, section, granular")
	cmd.Flags().StringVar(&faqStrategy, "faq-strategy", strategy.QAPair, "FAQ chunk strategy: qa_pair, qa_separate, category_unified")

	return cmd
}

// buildInitDBCmd creates the "init-db" command
func buildInitDBCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-db",
		Short: "Recreate the main collection with granular products and qa_pair FAQs",
		Long: `Drop the main collection and rebuild it with the default strategies
(granular products, qa_pair FAQs). The result is the index that search and
evaluate use.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIndex(cmd, modeCombined, strategy.Granular, strategy.QAPair, true)
		},
	}
}

// =============================================================================
// Query Commands
// =============================================================================

// buildSearchCmd creates the "search" command
func buildSearchCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search the main collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], jsonOutput)
		},
	}

	cmd.Flags().Int("top-k", evaluation.DefaultTopK, "Number of results to return (env DEFAULT_SEARCH_RESULTS)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")

	return cmd
}

// buildEvaluateCmd creates the "evaluate" command
func buildEvaluateCmd() *cobra.Command {
	var (
		label  string
		output string
	)

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Score the main collection against the test queries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEvaluate(cmd, label, output)
		},
	}

	cmd.Flags().StringVar(&label, "label", "current", "Strategy label recorded in the result")
	cmd.Flags().Int("top-k", evaluation.DefaultTopK, "Documents retrieved per query")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the full result JSON to this file")

	return cmd
}

// =============================================================================
// Benchmark Command
// =============================================================================

// buildBenchmarkCmd creates the "benchmark" command
func buildBenchmarkCmd() *cobra.Command {
	var (
		combined   bool
		strategies []string
		noSave     bool
	)

	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Compare chunk strategies",
		Long: `Index every candidate into its own collection, evaluate it against the
test queries and compare the results with the baseline.

Without --combined the candidates are product strategies and the baseline is
"unified". With --combined they are product+FAQ pairs and the baseline is
"unified+qa_pair". The report is saved under <data dir>/benchmark_results.`,
		Example: `  ragbench benchmark
  ragbench benchmark --strategies unified,granular --top-k 5
  ragbench benchmark --combined --strategies unified+qa_pair,granular+qa_separate`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBenchmark(cmd, combined, strategies, !noSave)
		},
	}

	cmd.Flags().BoolVar(&combined, "combined", false, "Benchmark product+FAQ combinations")
	cmd.Flags().StringSliceVar(&strategies, "strategies", nil, "Candidates to compare (default: all candidates of the mode)")
	cmd.Flags().Int("top-k", evaluation.DefaultTopK, "Documents retrieved per query")
	cmd.Flags().BoolVar(&noSave, "no-save", false, "Do not write the report file or record the run")
	cmd.Flags().String("metrics-file", "", "Write Prometheus metrics in textfile format to this path")

	return cmd
}

// =============================================================================
// Chunks Commands
// =============================================================================

// buildChunksCmd creates the "chunks" command group
func buildChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks",
		Short: "Inspect the chunks a strategy produces without indexing",
	}
	cmd.AddCommand(buildChunksStatsCmd(), buildChunksPreviewCmd())
	return cmd
}

func buildChunksStatsCmd() *cobra.Command {
	var (
		productStrategy string
		faqStrategy     string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Print chunk count and text length statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunksStats(cmd, productStrategy, faqStrategy)
		},
	}

	cmd.Flags().StringVar(&productStrategy, "strategy", "", "Product chunk strategy (default: every product strategy)")
	cmd.Flags().StringVar(&faqStrategy, "faq-strategy", "", "FAQ chunk strategy to include")

	return cmd
}

func buildChunksPreviewCmd() *cobra.Command {
	var (
		productStrategy string
		faqStrategy     string
		productID       string
		limit           int
	)

	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Print the chunks generated for one product and the first FAQ entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunksPreview(cmd, productStrategy, faqStrategy, productID, limit)
		},
	}

	cmd.Flags().StringVar(&productStrategy, "strategy", strategy.Granular, "Product chunk strategy")
	cmd.Flags().StringVar(&faqStrategy, "faq-strategy", "", "FAQ chunk strategy to preview")
	cmd.Flags().StringVar(&productID, "product", "", "Product id (default: first product)")
	cmd.Flags().IntVar(&limit, "limit", 3, "Maximum FAQ chunks to print")

	return cmd
}

// =============================================================================
// Serve & Version Commands
// =============================================================================

// buildServeCmd creates the "serve" command
func buildServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the MCP tools on stdio",
		Long: `Start an MCP server on stdin/stdout exposing index_catalog, search_index,
evaluate_index, run_benchmark and get_status. Logs go to stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd)
		},
	}
}

// buildVersionCmd creates the "version" command
func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion(cmd)
		},
	}
}
