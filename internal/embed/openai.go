package embed

import (
	"context"
	"errors"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings API. A custom
// BaseURL points it at self-hosted compatible servers.
type OpenAIEmbedder struct {
	client    *openai.Client
	model     string
	batchSize int
	dimension int
}

// NewOpenAIEmbedder creates an OpenAI embedder from configuration.
func NewOpenAIEmbedder(cfg model.EmbeddingConfig) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai embedding requires an API key")
	}
	mdl := cfg.Model
	if mdl == "" {
		mdl = string(openai.SmallEmbedding3)
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     mdl,
		batchSize: batchSize,
		dimension: cfg.Dimension,
	}, nil
}

// Model returns the embedding model identifier.
func (e *OpenAIEmbedder) Model() string { return e.model }

// Dimension returns the configured vector length, or the length observed
// on the first successful call when unconfigured.
func (e *OpenAIEmbedder) Dimension() int { return e.dimension }

// Embed returns the vector for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in configured-size batches, preserving order.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: texts[start:end],
			Model: openai.EmbeddingModel(e.model),
		})
		if err != nil {
			return nil, classifyOpenAIEmbedError(err)
		}
		if len(resp.Data) != end-start {
			return nil, &llm.Error{Kind: llm.FailureModel, Err: fmt.Errorf("embeddings returned %d vectors for %d inputs", len(resp.Data), end-start)}
		}
		for _, item := range resp.Data {
			vectors = append(vectors, item.Embedding)
		}
	}

	if e.dimension == 0 && len(vectors) > 0 {
		e.dimension = len(vectors[0])
	}
	return vectors, nil
}

func classifyOpenAIEmbedError(err error) *llm.Error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &llm.Error{Kind: llm.FailureModel, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{Kind: llm.FailureTimeout, Err: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &llm.Error{Kind: llm.FailureTimeout, Err: err}
	}
	return &llm.Error{Kind: llm.FailureConnection, Err: err}
}
