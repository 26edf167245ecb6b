// Package index stores chunk vectors and serves filtered similarity
// queries. Every query carries a project filter; the boundary rejects
// unfiltered queries so cross-project leakage cannot happen by omission.
package index

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/clindraft/clindraft/internal/model"
)

var (
	// ErrMissingProject rejects queries without a project filter.
	ErrMissingProject = errors.New("index query requires a project filter")
	// ErrDimensionMismatch rejects vectors whose length differs from the
	// vectors already stored.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)

// Entry is one indexed chunk vector with its filter metadata.
type Entry struct {
	ChunkID    string
	DocumentID string
	ProjectID  string
	Category   model.Category
	Vector     []float32
}

// Filter narrows a query. ProjectID is mandatory; empty Categories means
// all categories.
type Filter struct {
	ProjectID  string
	Categories []model.Category
}

// Result is one query hit, highest similarity first.
type Result struct {
	ChunkID    string
	DocumentID string
	Score      float64
}

// Index is a vector index over chunk embeddings.
type Index interface {
	// Upsert stores entries, replacing any entry with the same chunk ID.
	Upsert(ctx context.Context, entries []Entry) error
	// Query returns up to k entries matching the filter, by descending
	// cosine similarity. An unknown project yields an empty result, not
	// an error.
	Query(ctx context.Context, vector []float32, filter Filter, k int) ([]Result, error)
	// DeleteByDocument removes every entry for the document.
	DeleteByDocument(ctx context.Context, documentID string) error
	// UpdateCategory re-tags every entry for the document. Vectors are
	// untouched; a category correction never re-embeds.
	UpdateCategory(ctx context.Context, documentID string, category model.Category) error
	// Count reports the number of entries for a project.
	Count(ctx context.Context, projectID string) (int, error)
}

// cosine computes cosine similarity; zero vectors score zero.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

func matchesCategories(category model.Category, want []model.Category) bool {
	if len(want) == 0 {
		return true
	}
	for _, c := range want {
		if c == category {
			return true
		}
	}
	return false
}

func validateEntries(dimension int, entries []Entry) (int, error) {
	for _, e := range entries {
		if e.ChunkID == "" || e.ProjectID == "" {
			return 0, fmt.Errorf("entry for document %s missing chunk or project id", e.DocumentID)
		}
		if len(e.Vector) == 0 {
			return 0, fmt.Errorf("entry %s has an empty vector", e.ChunkID)
		}
		if dimension == 0 {
			dimension = len(e.Vector)
		} else if len(e.Vector) != dimension {
			return 0, fmt.Errorf("%w: entry %s has %d, index has %d",
				ErrDimensionMismatch, e.ChunkID, len(e.Vector), dimension)
		}
	}
	return dimension, nil
}
