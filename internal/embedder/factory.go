package embedder

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// Config holds embedder configuration
type Config struct {
	Provider   string // jina, openai, local; empty auto-detects
	OpenAIKey  string
	JinaKey    string
	Model      string
	BaseURL    string
	CacheSize  int
	RedisAddr  string // enables the shared cache when set
	RedisPass  string
	RedisDB    int
	RedisTTL   time.Duration
	RetryLimit int
}

// ResolveProvider picks the provider name for cfg.
// Priority:
// 1. explicit Provider
// 2. Jina key present
// 3. OpenAI key present
// 4. local
func ResolveProvider(cfg Config) string {
	if cfg.Provider != "" {
		return strings.ToLower(cfg.Provider)
	}
	if cfg.JinaKey != "" {
		return ProviderJina
	}
	if cfg.OpenAIKey != "" {
		return ProviderOpenAI
	}
	return ProviderLocal
}

// New creates an embedder with explicit configuration
func New(ctx context.Context, cfg Config) (Embedder, error) {
	provider := ResolveProvider(cfg)

	model := cfg.Model
	if provider == ProviderLocal {
		model = DefaultLocalModel
	}

	cache := NewCache(cfg.CacheSize)
	if cfg.RedisAddr != "" {
		shared, err := NewRedisCache(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB, provider, model, cfg.RedisTTL)
		if err != nil {
			return nil, err
		}
		cache.WithShared(shared)
	}

	var (
		emb Embedder
		err error
	)
	switch provider {
	case ProviderJina:
		var p *JinaProvider
		p, err = NewJinaProvider(cfg.JinaKey, cfg.Model, cfg.BaseURL, cache)
		if p != nil && cfg.RetryLimit > 0 {
			p.retry.MaxRetries = cfg.RetryLimit
		}
		emb = p
	case ProviderOpenAI:
		var p *OpenAIProvider
		p, err = NewOpenAIProvider(cfg.OpenAIKey, cfg.Model, cfg.BaseURL, cache)
		if p != nil && cfg.RetryLimit > 0 {
			p.retry.MaxRetries = cfg.RetryLimit
		}
		emb = p
	case ProviderLocal:
		emb, err = NewLocalProvider(cache)
	default:
		err = fmt.Errorf("%w: unknown provider %s", ErrUnsupportedModel, cfg.Provider)
	}

	if err != nil {
		_ = cache.Close()
		return nil, err
	}
	return emb, nil
}
