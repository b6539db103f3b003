package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gapraoguy/rag-advance/internal/embedder"
	"github.com/gapraoguy/rag-advance/internal/vectorindex"
)

// clearEnv blanks every variable Load reads
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range allKeys {
		t.Setenv(envPrefix+"_"+strings.ToUpper(key), "")
		os.Unsetenv(envPrefix + "_" + strings.ToUpper(key))
		if env, ok := legacyEnv[key]; ok {
			t.Setenv(env, "")
			os.Unsetenv(env)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "text-embedding-3-large", cfg.EmbeddingModel)
	assert.Equal(t, "gpt-4", cfg.LLMModel)
	assert.Zero(t, cfg.Temperature)
	assert.Equal(t, "chroma_db", cfg.IndexDir)
	assert.Equal(t, "products", cfg.Collection)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, "products_master.json", cfg.ProductsFile)
	assert.Equal(t, "faq_database.json", cfg.FAQFile)
	assert.Equal(t, 3, cfg.TopK)
	assert.Equal(t, "vector", cfg.SearchMode)
	assert.Equal(t, 60*time.Second, cfg.Timeout)
	assert.Equal(t, filepath.Join("chroma_db", "ragbench.db"), cfg.Database())
	assert.Equal(t, filepath.Join("data", "test_queries.json"), cfg.TestQueriesPath())

	require.NoError(t, cfg.Validate())
	assert.Equal(t, embedder.ProviderLocal, cfg.Provider())
}

func TestLoad_LegacyEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("DATA_DIR", "/srv/data")
	t.Setenv("DEFAULT_SEARCH_RESULTS", "5")
	t.Setenv("CHROMA_COLLECTION", "catalog")
	t.Setenv("TEMPERATURE", "0.7")

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
	assert.Equal(t, "/srv/data", cfg.DataDir)
	assert.Equal(t, 5, cfg.TopK)
	assert.Equal(t, "catalog", cfg.Collection)
	assert.InDelta(t, 0.7, cfg.Temperature, 1e-9)
	assert.Equal(t, embedder.ProviderOpenAI, cfg.Provider())
	assert.Equal(t, "text-embedding-3-large", cfg.Embedder().Model)
}

func TestLoad_PrefixedEnvironmentWins(t *testing.T) {
	clearEnv(t)
	t.Setenv("DATA_DIR", "/legacy")
	t.Setenv("RAGBENCH_DATA_DIR", "/preferred")
	t.Setenv("RAGBENCH_SEARCH_MODE", "hybrid")
	t.Setenv("RAGBENCH_TIMEOUT", "15s")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "/preferred", cfg.DataDir)
	assert.Equal(t, 15*time.Second, cfg.Timeout)
	assert.Equal(t, vectorindex.SearchModeHybrid, cfg.Index().Mode)
}

func TestLoad_FileAndFlags(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "ragbench.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /from/file\ntop_k: 7\nlog_format: json\n"), 0o600))

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Int("top-k", 3, "")
	flags.String("data-dir", "", "")
	flags.String("unrelated", "", "")
	require.NoError(t, flags.Parse([]string{"--top-k", "9"}))

	cfg, err := Load(path, flags)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.TopK, "changed flag overrides file")
	assert.Equal(t, "/from/file", cfg.DataDir, "unchanged flag keeps file value")
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoad_MissingConfigFile(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			TopK: 3, Timeout: time.Second, DataDir: "data", Collection: "products",
			SearchMode: "vector", LogFormat: "console",
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr error
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "top_k zero", mutate: func(c *Config) { c.TopK = 0 }, wantErr: ErrInvalidSetting},
		{name: "temperature", mutate: func(c *Config) { c.Temperature = 3 }, wantErr: ErrInvalidSetting},
		{name: "timeout", mutate: func(c *Config) { c.Timeout = 0 }, wantErr: ErrInvalidSetting},
		{name: "data dir", mutate: func(c *Config) { c.DataDir = "" }, wantErr: ErrMissingSetting},
		{name: "search mode", mutate: func(c *Config) { c.SearchMode = "fuzzy" }, wantErr: ErrInvalidSetting},
		{name: "openai without key", mutate: func(c *Config) { c.EmbeddingProvider = "openai" }, wantErr: ErrMissingSetting},
		{name: "jina without key", mutate: func(c *Config) { c.EmbeddingProvider = "jina" }, wantErr: ErrMissingSetting},
		{name: "unknown provider", mutate: func(c *Config) { c.EmbeddingProvider = "cohere" }, wantErr: ErrInvalidSetting},
		{name: "log format", mutate: func(c *Config) { c.LogFormat = "xml" }, wantErr: ErrInvalidSetting},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestEmbedderConfig_ModelOnlyForOpenAI(t *testing.T) {
	c := &Config{JinaAPIKey: "jina", EmbeddingModel: "text-embedding-3-large"}
	assert.Equal(t, embedder.ProviderJina, c.Provider())
	assert.Empty(t, c.Embedder().Model)
}
