package service

import (
	"context"
	"fmt"
	"math"

	"github.com/go-resty/resty/v2"
)

const jinaEndpoint = "https://api.jina.ai/v1/embeddings"

// EmbeddingProvider turns a normalized query string into a dense vector.
// The catalog embeddings are produced offline by the same model family; the
// provider only ever embeds queries, one per resolution, synchronously.
type EmbeddingProvider interface {
	EmbedQuery(ctx context.Context, query string) ([]float32, error)
	Dimensions() int
}

// EmbeddingConfig holds configuration for the embedding service.
type EmbeddingConfig struct {
	Provider   string // "jina" or "openai-compatible"
	Model      string
	APIKey     string
	BaseURL    string // required for openai-compatible providers
	Dimensions int
}

// EmbeddingService calls an external embedding API over HTTP.
// Returned vectors are L2-normalized client-side so the index's inner
// product equals cosine similarity regardless of provider behavior.
type EmbeddingService struct {
	client     *resty.Client
	provider   string
	model      string
	baseURL    string
	dimensions int
}

// NewEmbeddingService creates a new embedding service.
// Parameters:
//   - cfg: embedding configuration.
// Returns:
//   - *EmbeddingService: initialized service.
func NewEmbeddingService(cfg *EmbeddingConfig) *EmbeddingService {
	client := resty.New()
	if cfg.APIKey != "" {
		client.SetHeader("Authorization", "Bearer "+cfg.APIKey)
	}
	client.SetHeader("Content-Type", "application/json")

	return &EmbeddingService{
		client:     client,
		provider:   cfg.Provider,
		model:      cfg.Model,
		baseURL:    cfg.BaseURL,
		dimensions: cfg.Dimensions,
	}
}

// Dimensions returns the configured embedding dimension.
func (s *EmbeddingService) Dimensions() int {
	return s.dimensions
}

// GetModel returns the model name being used.
func (s *EmbeddingService) GetModel() string {
	return s.model
}

// Jina API request/response structures
type jinaRequest struct {
	Model         string   `json:"model"`
	Task          string   `json:"task,omitempty"`
	Dimensions    int      `json:"dimensions,omitempty"`
	Input         []string `json:"input"`
	EmbeddingType string   `json:"embedding_type,omitempty"`
}

// OpenAI-compatible API request structure
type openAIRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Detail string `json:"detail,omitempty"`
}

// EmbedQuery generates a normalized embedding for a search query.
// Parameters:
//   - ctx: context for cancellation and deadlines.
//   - query: normalized query text.
// Returns:
//   - []float32: unit-length query vector.
//   - error: non-nil if the provider call fails or returns the wrong shape.
func (s *EmbeddingService) EmbedQuery(ctx context.Context, query string) ([]float32, error) {
	var (
		endpoint string
		body     interface{}
	)

	switch s.provider {
	case "jina":
		endpoint = jinaEndpoint
		body = jinaRequest{
			Model:         s.model,
			Task:          "retrieval.query", // Optimized for query
			Dimensions:    s.dimensions,
			Input:         []string{query},
			EmbeddingType: "float",
		}
	case "openai-compatible":
		if s.baseURL == "" {
			return nil, fmt.Errorf("openai-compatible provider requires a base URL")
		}
		endpoint = s.baseURL + "/embeddings"
		body = openAIRequest{
			Model: s.model,
			Input: []string{query},
		}
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", s.provider)
	}

	var resp embeddingResponse
	httpResp, err := s.client.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(&resp).
		Post(endpoint)

	if err != nil {
		return nil, fmt.Errorf("failed to call embedding API: %w", err)
	}

	if httpResp.StatusCode() != 200 {
		if resp.Detail != "" {
			return nil, fmt.Errorf("embedding API error: %s", resp.Detail)
		}
		return nil, fmt.Errorf("embedding API error: status %d", httpResp.StatusCode())
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vector := resp.Data[0].Embedding
	if s.dimensions > 0 && len(vector) != s.dimensions {
		return nil, fmt.Errorf("unexpected embedding dimension: got %d, expected %d", len(vector), s.dimensions)
	}

	l2Normalize(vector)
	return vector, nil
}

// l2Normalize scales the vector to unit length in place. Zero vectors are
// left unchanged.
func l2Normalize(vector []float32) {
	var sum float64
	for _, v := range vector {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vector {
		vector[i] = float32(float64(vector[i]) / norm)
	}
}
