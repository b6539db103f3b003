package embedder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProvider(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{name: "explicit wins", cfg: Config{Provider: "OpenAI", JinaKey: "j"}, want: ProviderOpenAI},
		{name: "jina key", cfg: Config{JinaKey: "j", OpenAIKey: "o"}, want: ProviderJina},
		{name: "openai key", cfg: Config{OpenAIKey: "o"}, want: ProviderOpenAI},
		{name: "fallback", cfg: Config{}, want: ProviderLocal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveProvider(tt.cfg))
		})
	}
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	emb, err := New(ctx, Config{Provider: ProviderLocal, CacheSize: 5})
	require.NoError(t, err)
	defer emb.Close()
	assert.Equal(t, ProviderLocal, emb.Provider())
	assert.Equal(t, LocalDimension, emb.Dimension())

	_, err = New(ctx, Config{Provider: "cohere"})
	assert.ErrorIs(t, err, ErrUnsupportedModel)

	_, err = New(ctx, Config{Provider: ProviderOpenAI})
	assert.ErrorIs(t, err, ErrNoProviderEnabled)
}
