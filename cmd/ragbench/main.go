// Package main provides the ragbench CLI.
//
// ragbench builds retrieval indexes over a product catalog and an FAQ
// database with interchangeable chunk strategies, scores them against
// labeled test queries and compares the strategies.
//
// # Basic Usage
//
// Build the default index (granular products, qa_pair FAQs):
//
//	ragbench init-db
//
// Compare the product strategies:
//
//	ragbench benchmark --top-k 3
//
// Compare product+FAQ combinations:
//
//	ragbench benchmark --combined
//
// Serve the MCP tools on stdio:
//
//	ragbench serve
//
// # Environment Variables
//
//   - OPENAI_API_KEY: OpenAI API key (selects the openai embedding provider)
//   - JINA_API_KEY: Jina API key (selects the jina embedding provider)
//   - EMBEDDING_MODEL: OpenAI embedding model (default text-embedding-3-large)
//   - CHROMA_PERSIST_DIR: Index directory (default chroma_db)
//   - CHROMA_COLLECTION: Collection base name (default products)
//   - DATA_DIR: Directory holding the source documents (default data)
//   - RAGBENCH_*: Any setting key, e.g. RAGBENCH_SEARCH_MODE=hybrid
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/gapraoguy/rag-advance/internal/storage"
)

// Build information, set with -ldflags "-X main.version=..."
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// configPath is the --config persistent flag
var configPath string

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit code. Errors
// and panics are reported as "Error: <message>" on stderr.
func run(args []string, stdout, stderr io.Writer) (code int) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(stderr, "Error: %v\n", r)
			code = 1
		}
	}()

	rootCmd := buildRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// buildRootCmd creates the root command with all subcommands attached
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ragbench",
		Short: "ragbench - chunk strategy benchmark for catalog retrieval",
		Long: `ragbench indexes a product catalog and an FAQ database with a chosen
chunk strategy, evaluates retrieval quality against labeled test queries and
compares strategies by precision, recall, F1 and hit rate.

Product strategies: unified, section, granular
FAQ strategies: qa_pair, qa_separate, category_unified`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s, sqlite: %s)", version, commit, buildTime, storage.BuildMode),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to a YAML, JSON or TOML config file")
	flags.String("data-dir", "", "Directory holding the product, FAQ and test query files (env DATA_DIR)")
	flags.String("db", "", "SQLite database path (default <index dir>/ragbench.db)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: console or json")
	flags.Bool("trace", false, "Export trace spans to stderr")

	rootCmd.AddCommand(
		buildIndexCmd(),
		buildInitDBCmd(),
		buildSearchCmd(),
		buildEvaluateCmd(),
		buildBenchmarkCmd(),
		buildChunksCmd(),
		buildServeCmd(),
		buildVersionCmd(),
	)

	return rootCmd
}
