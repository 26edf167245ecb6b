// Package retrieve turns a natural-language query into a ranked, token
// bounded set of context passages from a project's indexed chunks.
package retrieve

import (
	"context"
	"fmt"

	"github.com/clindraft/clindraft/internal/chunker"
	"github.com/clindraft/clindraft/internal/embed"
	"github.com/clindraft/clindraft/internal/index"
	"github.com/clindraft/clindraft/internal/model"
)

// Passage is one retrieved chunk with its provenance and score.
type Passage struct {
	ChunkID    string
	DocumentID string
	Filename   string
	Text       string
	TokenCount int
	Score      float64
}

// ChunkLoader resolves chunk IDs to stored chunks. *store.Store satisfies it.
type ChunkLoader interface {
	GetChunksByIDs(ctx context.Context, ids []string) ([]model.Chunk, error)
	GetDocument(ctx context.Context, id string) (*model.Document, error)
}

// Retriever embeds queries and assembles context from the index.
type Retriever struct {
	embedder embed.Embedder
	idx      index.Index
	loader   ChunkLoader
	cfg      model.RetrievalConfig
}

// New creates a retriever.
func New(embedder embed.Embedder, idx index.Index, loader ChunkLoader, cfg model.RetrievalConfig) *Retriever {
	return &Retriever{embedder: embedder, idx: idx, loader: loader, cfg: cfg}
}

// Retrieve returns the project's top passages for the query, in descending
// similarity, trimmed to the configured context token budget. The final
// passage may be truncated to fit; passages past the budget are dropped.
// An empty result is a valid outcome, not an error.
func (r *Retriever) Retrieve(ctx context.Context, projectID, query string, categories []model.Category) ([]Passage, error) {
	if projectID == "" {
		return nil, index.ErrMissingProject
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	hits, err := r.idx.Query(ctx, vector, index.Filter{
		ProjectID:  projectID,
		Categories: categories,
	}, r.cfg.TopK)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	if len(hits) == 0 {
		return nil, nil
	}

	ids := make([]string, len(hits))
	scores := make(map[string]float64, len(hits))
	for i, h := range hits {
		ids[i] = h.ChunkID
		scores[h.ChunkID] = h.Score
	}

	chunks, err := r.loader.GetChunksByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load chunks: %w", err)
	}

	filenames := make(map[string]string)
	budget := r.cfg.MaxContextTokens

	var passages []Passage
	for _, c := range chunks {
		if budget <= 0 {
			break
		}

		text := c.Text
		tokenCount := c.TokenCount
		if tokenCount > budget {
			text = chunker.Truncate(text, budget)
			tokenCount = budget
		}
		budget -= tokenCount

		filename, ok := filenames[c.DocumentID]
		if !ok {
			if doc, err := r.loader.GetDocument(ctx, c.DocumentID); err == nil {
				filename = doc.Filename
			}
			filenames[c.DocumentID] = filename
		}

		passages = append(passages, Passage{
			ChunkID:    c.ID,
			DocumentID: c.DocumentID,
			Filename:   filename,
			Text:       text,
			TokenCount: tokenCount,
			Score:      scores[c.ID],
		})
	}
	return passages, nil
}
