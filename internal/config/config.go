package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/gapraoguy/rag-advance/internal/embedder"
	"github.com/gapraoguy/rag-advance/internal/vectorindex"
)

var (
	// ErrMissingSetting is returned when a required setting is empty
	ErrMissingSetting = errors.New("missing required setting")
	// ErrInvalidSetting is returned when a setting is out of range
	ErrInvalidSetting = errors.New("invalid setting")
)

// Setting keys
const (
	KeyOpenAIAPIKey      = "openai_api_key"
	KeyJinaAPIKey        = "jina_api_key"
	KeyEmbeddingModel    = "embedding_model"
	KeyEmbeddingProvider = "embedding_provider"
	KeyEmbeddingCache    = "embedding_cache_size"
	KeyRedisAddr         = "redis_addr"
	KeyLLMModel          = "llm_model"
	KeyTemperature       = "temperature"
	KeyIndexDir          = "index_dir"
	KeyDBPath            = "db"
	KeyCollection        = "collection"
	KeyDataDir           = "data_dir"
	KeyProductsFile      = "products_file"
	KeyFAQFile           = "faq_file"
	KeyTestQueriesFile   = "test_queries_file"
	KeyTopK              = "top_k"
	KeySearchMode        = "search_mode"
	KeyTimeout           = "timeout"
	KeyLogLevel          = "log_level"
	KeyLogFormat         = "log_format"
	KeyTrace             = "trace"
	KeyMetricsFile       = "metrics_file"
)

const envPrefix = "RAGBENCH"

var allKeys = []string{
	KeyOpenAIAPIKey, KeyJinaAPIKey, KeyEmbeddingModel, KeyEmbeddingProvider,
	KeyEmbeddingCache, KeyRedisAddr, KeyLLMModel, KeyTemperature, KeyIndexDir,
	KeyDBPath, KeyCollection, KeyDataDir, KeyProductsFile, KeyFAQFile,
	KeyTestQueriesFile, KeyTopK, KeySearchMode, KeyTimeout, KeyLogLevel,
	KeyLogFormat, KeyTrace, KeyMetricsFile,
}

// Environment names kept from earlier deployments; everything else is
// read from RAGBENCH_<KEY>.
var legacyEnv = map[string]string{
	KeyOpenAIAPIKey:   "OPENAI_API_KEY",
	KeyJinaAPIKey:     "JINA_API_KEY",
	KeyEmbeddingModel: "EMBEDDING_MODEL",
	KeyLLMModel:       "LLM_MODEL",
	KeyTemperature:    "TEMPERATURE",
	KeyIndexDir:       "CHROMA_PERSIST_DIR",
	KeyCollection:     "CHROMA_COLLECTION",
	KeyDataDir:        "DATA_DIR",
	KeyProductsFile:   "PRODUCTS_FILE",
	KeyFAQFile:        "FAQ_FILE",
	KeyTopK:           "DEFAULT_SEARCH_RESULTS",
}

// Config is the resolved process configuration
type Config struct {
	OpenAIAPIKey       string        `mapstructure:"openai_api_key"`
	JinaAPIKey         string        `mapstructure:"jina_api_key"`
	EmbeddingModel     string        `mapstructure:"embedding_model"`
	EmbeddingProvider  string        `mapstructure:"embedding_provider"`
	EmbeddingCacheSize int           `mapstructure:"embedding_cache_size"`
	RedisAddr          string        `mapstructure:"redis_addr"`
	LLMModel           string        `mapstructure:"llm_model"`
	Temperature        float64       `mapstructure:"temperature"`
	IndexDir           string        `mapstructure:"index_dir"`
	DBPath             string        `mapstructure:"db"`
	Collection         string        `mapstructure:"collection"`
	DataDir            string        `mapstructure:"data_dir"`
	ProductsFile       string        `mapstructure:"products_file"`
	FAQFile            string        `mapstructure:"faq_file"`
	TestQueriesFile    string        `mapstructure:"test_queries_file"`
	TopK               int           `mapstructure:"top_k"`
	SearchMode         string        `mapstructure:"search_mode"`
	Timeout            time.Duration `mapstructure:"timeout"`
	LogLevel           string        `mapstructure:"log_level"`
	LogFormat          string        `mapstructure:"log_format"`
	Trace              bool          `mapstructure:"trace"`
	MetricsFile        string        `mapstructure:"metrics_file"`
}

// SetDefaults registers default values on v
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyEmbeddingModel, embedder.DefaultOpenAIModel)
	v.SetDefault(KeyEmbeddingCache, embedder.DefaultCacheSize)
	v.SetDefault(KeyLLMModel, "gpt-4")
	v.SetDefault(KeyTemperature, 0.0)
	v.SetDefault(KeyIndexDir, "chroma_db")
	v.SetDefault(KeyCollection, "products")
	v.SetDefault(KeyDataDir, "data")
	v.SetDefault(KeyProductsFile, "products_master.json")
	v.SetDefault(KeyFAQFile, "faq_database.json")
	v.SetDefault(KeyTestQueriesFile, "test_queries.json")
	v.SetDefault(KeyTopK, 3)
	v.SetDefault(KeySearchMode, string(vectorindex.SearchModeVector))
	v.SetDefault(KeyTimeout, vectorindex.DefaultTimeout)
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyTrace, false)
}

// BindEnv maps every key to its environment variable
func BindEnv(v *viper.Viper) error {
	for _, key := range allKeys {
		// the prefixed name wins over the legacy one
		names := []string{key, envPrefix + "_" + strings.ToUpper(key)}
		if env, ok := legacyEnv[key]; ok {
			names = append(names, env)
		}
		if err := v.BindEnv(names...); err != nil {
			return fmt.Errorf("failed to bind environment for %s: %w", key, err)
		}
	}
	return nil
}

// Load resolves configuration from defaults, an optional file, the
// environment and flags, in increasing precedence. flags may be nil.
func Load(configFile string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	SetDefaults(v)
	if err := BindEnv(v); err != nil {
		return nil, err
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}

	if flags != nil {
		if err := bindFlags(v, flags); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return &cfg, nil
}

// bindFlags binds the flags whose names match setting keys. Flag names use
// dashes where keys use underscores.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	var bindErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr != nil {
			return
		}
		key := strings.ReplaceAll(f.Name, "-", "_")
		if !isKnownKey(key) {
			return
		}
		if err := v.BindPFlag(key, f); err != nil {
			bindErr = fmt.Errorf("failed to bind flag --%s: %w", f.Name, err)
		}
	})
	return bindErr
}

func isKnownKey(key string) bool {
	for _, k := range allKeys {
		if k == key {
			return true
		}
	}
	return false
}

// Validate checks the settings before any work starts
func (c *Config) Validate() error {
	if c.TopK < 1 {
		return fmt.Errorf("%w: top_k must be at least 1, got %d", ErrInvalidSetting, c.TopK)
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("%w: temperature must be within [0, 2], got %v", ErrInvalidSetting, c.Temperature)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidSetting)
	}
	if c.DataDir == "" {
		return fmt.Errorf("%w: data_dir", ErrMissingSetting)
	}
	if c.Collection == "" {
		return fmt.Errorf("%w: collection", ErrMissingSetting)
	}
	if _, err := vectorindex.ParseSearchMode(c.SearchMode); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSetting, err)
	}

	switch c.Provider() {
	case embedder.ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("%w: OPENAI_API_KEY is required for the openai provider", ErrMissingSetting)
		}
	case embedder.ProviderJina:
		if c.JinaAPIKey == "" {
			return fmt.Errorf("%w: JINA_API_KEY is required for the jina provider", ErrMissingSetting)
		}
	case embedder.ProviderLocal:
	default:
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidSetting, c.EmbeddingProvider)
	}

	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("%w: log_format must be json or console, got %q", ErrInvalidSetting, c.LogFormat)
	}
	return nil
}

// Provider returns the resolved embedding provider name
func (c *Config) Provider() string {
	return embedder.ResolveProvider(c.Embedder())
}

// Embedder builds the embedder configuration. The model name is only passed
// through to the OpenAI provider; the others use their own defaults.
func (c *Config) Embedder() embedder.Config {
	cfg := embedder.Config{
		Provider:  c.EmbeddingProvider,
		OpenAIKey: c.OpenAIAPIKey,
		JinaKey:   c.JinaAPIKey,
		CacheSize: c.EmbeddingCacheSize,
		RedisAddr: c.RedisAddr,
	}
	if embedder.ResolveProvider(cfg) == embedder.ProviderOpenAI {
		cfg.Model = c.EmbeddingModel
	}
	return cfg
}

// Index builds the vector index options
func (c *Config) Index() vectorindex.Options {
	mode, _ := vectorindex.ParseSearchMode(c.SearchMode)
	return vectorindex.Options{
		Mode:    mode,
		Timeout: c.Timeout,
	}
}

// Database returns the SQLite path, defaulting to a file under the index
// directory
func (c *Config) Database() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.IndexDir, "ragbench.db")
}

// TestQueriesPath resolves the test-query fixture relative to the data
// directory
func (c *Config) TestQueriesPath() string {
	if filepath.IsAbs(c.TestQueriesFile) {
		return c.TestQueriesFile
	}
	return filepath.Join(c.DataDir, c.TestQueriesFile)
}
