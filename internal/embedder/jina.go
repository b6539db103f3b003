package embedder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// jinaTask tunes jina-embeddings-v3 for the indexed side of retrieval
const jinaTask = "retrieval.passage"

type jinaRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
	Task  string   `json:"task,omitempty"`
}

type jinaResponse struct {
	Model string `json:"model"`
	Data  []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// JinaProvider calls the Jina AI embeddings REST endpoint
type JinaProvider struct {
	apiKey string
	model  string
	url    string
	client *http.Client
	cache  *Cache
	retry  RetryConfig
}

// NewJinaProvider creates a Jina embedder. An empty model selects
// DefaultJinaModel and an empty url the public endpoint.
func NewJinaProvider(apiKey, model, url string, cache *Cache) (*JinaProvider, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("%w: jina api key not set", ErrNoProviderEnabled)
	}
	if model == "" {
		model = DefaultJinaModel
	}
	if url == "" {
		url = defaultJinaURL
	}
	return &JinaProvider{
		apiKey: apiKey,
		model:  model,
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
		cache:  cache,
		retry:  DefaultRetryConfig(),
	}, nil
}

func (j *JinaProvider) GenerateEmbedding(ctx context.Context, req EmbeddingRequest) (*Embedding, error) {
	return single(ctx, j, req)
}

func (j *JinaProvider) GenerateBatch(ctx context.Context, req BatchEmbeddingRequest) (*BatchEmbeddingResponse, error) {
	if err := ValidateBatchRequest(req); err != nil {
		return nil, err
	}
	model := req.Model
	if model == "" {
		model = j.model
	}

	embeddings, err := generateWithCache(ctx, j.cache, req, model, func(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
		out, err := retryWithBackoff(ctx, j.retry, func() ([]*Embedding, error) {
			return j.embed(ctx, texts, model)
		})
		if err != nil {
			return nil, fmt.Errorf("%w after %d attempts: %v", ErrProviderFailed, j.retry.MaxRetries, err)
		}
		return out, nil
	})
	if err != nil {
		return nil, err
	}
	return &BatchEmbeddingResponse{Embeddings: embeddings, Provider: ProviderJina, Model: model}, nil
}

// embed performs one HTTP round trip. Client errors other than 429 are
// marked permanent so the retry loop stops.
func (j *JinaProvider) embed(ctx context.Context, texts []string, model string) ([]*Embedding, error) {
	payload, err := json.Marshal(jinaRequest{Model: model, Input: texts, Task: jinaTask})
	if err != nil {
		return nil, fmt.Errorf("failed to encode jina request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, j.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build jina request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+j.apiKey)

	resp, err := j.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("jina request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("jina returned %s: %s", resp.Status, bytes.TrimSpace(msg))
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return nil, err
		}
		return nil, permanent(err)
	}

	var decoded jinaResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("failed to decode jina response: %w", err)
	}

	// the API may reorder items; place each by its index
	out := make([]*Embedding, len(texts))
	for _, item := range decoded.Data {
		if item.Index < 0 || item.Index >= len(out) {
			continue
		}
		out[item.Index] = &Embedding{
			Vector:    item.Embedding,
			Dimension: len(item.Embedding),
			Provider:  ProviderJina,
			Model:     model,
		}
	}
	return out, nil
}

func (j *JinaProvider) Dimension() int   { return JinaDimension }
func (j *JinaProvider) Provider() string { return ProviderJina }
func (j *JinaProvider) Model() string    { return j.model }

func (j *JinaProvider) Close() error {
	j.client.CloseIdleConnections()
	if j.cache == nil {
		return nil
	}
	return j.cache.Close()
}
