package embedder

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cosine(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

func TestLocalProvider_Deterministic(t *testing.T) {
	p, err := NewLocalProvider(nil)
	require.NoError(t, err)
	ctx := context.Background()

	a, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "ワイヤレスマウス 静音"})
	require.NoError(t, err)
	b, err := p.GenerateEmbedding(ctx, EmbeddingRequest{Text: "ワイヤレスマウス 静音"})
	require.NoError(t, err)

	assert.Equal(t, a.Vector, b.Vector)
	assert.Len(t, a.Vector, LocalDimension)
	assert.Equal(t, ProviderLocal, a.Provider)
	assert.InDelta(t, 1.0, cosine(a.Vector, a.Vector), 1e-5)
}

func TestLocalProvider_SimilarTextsAreCloser(t *testing.T) {
	p, err := NewLocalProvider(NewCache(10))
	require.NoError(t, err)

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{
		"ワイヤレスマウスの電池寿命",
		"マウスの電池はどれくらい持ちますか",
		"返品の送料について",
	}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)

	near := cosine(resp.Embeddings[0].Vector, resp.Embeddings[1].Vector)
	far := cosine(resp.Embeddings[0].Vector, resp.Embeddings[2].Vector)
	assert.Greater(t, near, far)
}

func TestLocalProvider_EmptyText(t *testing.T) {
	p, _ := NewLocalProvider(nil)
	_, err := p.GenerateEmbedding(context.Background(), EmbeddingRequest{})
	assert.ErrorIs(t, err, ErrEmptyText)
}

func embeddingServer(t *testing.T, dim int, status int, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"error":{"message":"bad","type":"invalid_request_error"}}`))
			return
		}

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		data := make([]map[string]interface{}, len(req.Input))
		// reversed order to exercise index mapping
		for i := range req.Input {
			j := len(req.Input) - 1 - i
			vec := make([]float32, dim)
			vec[0] = float32(j + 1)
			data[i] = map[string]interface{}{"object": "embedding", "index": j, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"object": "list",
			"model":  req.Model,
			"data":   data,
		})
	}))
}

func TestJinaProvider_Batch(t *testing.T) {
	var calls int32
	server := embeddingServer(t, 4, http.StatusOK, &calls)
	defer server.Close()

	p, err := NewJinaProvider("test-key", "", server.URL, NewCache(10))
	require.NoError(t, err)

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"a", "b", "c"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 3)
	assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0])
	assert.Equal(t, float32(3), resp.Embeddings[2].Vector[0])
	assert.Equal(t, DefaultJinaModel, resp.Model)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "b"})
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestJinaProvider_ClientErrorNotRetried(t *testing.T) {
	var calls int32
	server := embeddingServer(t, 4, http.StatusBadRequest, &calls)
	defer server.Close()

	p, err := NewJinaProvider("test-key", "", server.URL, nil)
	require.NoError(t, err)

	_, err = p.GenerateEmbedding(context.Background(), EmbeddingRequest{Text: "x"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestOpenAIProvider_Batch(t *testing.T) {
	var calls int32
	server := embeddingServer(t, 8, http.StatusOK, &calls)
	defer server.Close()

	p, err := NewOpenAIProvider("test-key", "text-embedding-3-small", server.URL, nil)
	require.NoError(t, err)
	assert.Equal(t, OpenAIDimension, p.Dimension())

	resp, err := p.GenerateBatch(context.Background(), BatchEmbeddingRequest{Texts: []string{"x", "y"}})
	require.NoError(t, err)
	require.Len(t, resp.Embeddings, 2)
	assert.Equal(t, float32(1), resp.Embeddings[0].Vector[0])
	assert.Equal(t, float32(2), resp.Embeddings[1].Vector[0])
	assert.Equal(t, ProviderOpenAI, resp.Embeddings[0].Provider)
}

func TestOpenAIProvider_RequiresKey(t *testing.T) {
	_, err := NewOpenAIProvider("", "", "", nil)
	assert.ErrorIs(t, err, ErrNoProviderEnabled)

	p, err := NewOpenAIProvider("k", "", "", nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultOpenAIModel, p.Model())
	assert.Equal(t, 3072, p.Dimension())
}
