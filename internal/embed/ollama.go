package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
)

// OllamaEmbedder calls a local Ollama runtime's embed API. The /api/embed
// endpoint accepts a list of inputs and returns one vector per input.
type OllamaEmbedder struct {
	baseURL    string
	model      string
	batchSize  int
	dimension  int
	httpClient *http.Client
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

type ollamaEmbedError struct {
	Error string `json:"error"`
}

// NewOllamaEmbedder creates an Ollama embedder from configuration.
func NewOllamaEmbedder(cfg model.EmbeddingConfig) (*OllamaEmbedder, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model must be specified (e.g. nomic-embed-text)")
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "http://localhost:11434"
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 {
		batchSize = 32
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 90 * time.Second
	}

	return &OllamaEmbedder{
		baseURL:   strings.TrimSuffix(baseURL, "/"),
		model:     cfg.Model,
		batchSize: batchSize,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Model returns the embedding model identifier.
func (e *OllamaEmbedder) Model() string { return e.model }

// Dimension returns the configured vector length, or the length observed
// on the first successful call when unconfigured.
func (e *OllamaEmbedder) Dimension() int { return e.dimension }

// Embed returns the vector for a single text.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds texts in configured-size batches, preserving order.
func (e *OllamaEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.batchSize {
		end := start + e.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		vectors = append(vectors, batch...)
	}

	if e.dimension == 0 && len(vectors) > 0 {
		e.dimension = len(vectors[0])
	}
	return vectors, nil
}

func (e *OllamaEmbedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	body, err := json.Marshal(ollamaEmbedRequest{Model: e.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	url := fmt.Sprintf("%s/api/embed", e.baseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &llm.Error{Kind: llm.FailureConnection, Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, classifyEmbedTransportError(err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, classifyEmbedTransportError(err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr ollamaEmbedError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, &llm.Error{Kind: llm.FailureModel, Err: fmt.Errorf("embed API error (%d): %s", httpResp.StatusCode, apiErr.Error)}
		}
		return nil, &llm.Error{Kind: llm.FailureModel, Err: fmt.Errorf("embed API error (%d): %s", httpResp.StatusCode, string(respBody))}
	}

	var resp ollamaEmbedResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &llm.Error{Kind: llm.FailureModel, Err: fmt.Errorf("unmarshal embed response: %w", err)}
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, &llm.Error{Kind: llm.FailureModel, Err: fmt.Errorf("embed returned %d vectors for %d inputs", len(resp.Embeddings), len(texts))}
	}
	return resp.Embeddings, nil
}

func classifyEmbedTransportError(err error) *llm.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &llm.Error{Kind: llm.FailureTimeout, Err: err}
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &llm.Error{Kind: llm.FailureTimeout, Err: err}
	}
	return &llm.Error{Kind: llm.FailureConnection, Err: err}
}
