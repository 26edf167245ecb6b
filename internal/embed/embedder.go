// Package embed turns text into dense vectors via an embedding provider.
// Vectors from one model are never comparable with another model's, so the
// embedder reports its model and dimension and the index checks both.
package embed

import (
	"context"
	"fmt"

	"github.com/clindraft/clindraft/internal/model"
)

// Embedder produces embedding vectors for text.
type Embedder interface {
	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	// Model is the embedding model identifier.
	Model() string
	// Dimension is the vector length this embedder produces.
	Dimension() int
}

// New creates the embedder selected by configuration, wrapped in a cache
// when a TTL is configured.
func New(cfg model.EmbeddingConfig) (Embedder, error) {
	var (
		embedder Embedder
		err      error
	)
	switch cfg.Provider {
	case "ollama":
		embedder, err = NewOllamaEmbedder(cfg)
	case "openai":
		embedder, err = NewOpenAIEmbedder(cfg)
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
	if err != nil {
		return nil, err
	}

	if cfg.CacheTTL > 0 {
		embedder = NewCachedEmbedder(embedder, cfg.CacheTTL)
	}
	return embedder, nil
}
