package index

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/clindraft/clindraft/internal/model"
)

// MemoryIndex is an in-process index for tests and small corpora. All
// operations are safe for concurrent use.
type MemoryIndex struct {
	mu        sync.RWMutex
	entries   map[string]Entry // by chunk ID
	dimension int
}

// NewMemoryIndex creates an empty in-memory index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{entries: make(map[string]Entry)}
}

// Upsert stores entries, replacing same-ID entries in place.
func (m *MemoryIndex) Upsert(_ context.Context, entries []Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dimension, err := validateEntries(m.dimension, entries)
	if err != nil {
		return err
	}
	m.dimension = dimension

	for _, e := range entries {
		m.entries[e.ChunkID] = e
	}
	return nil
}

// Query scans matching entries and returns the top k by similarity.
func (m *MemoryIndex) Query(_ context.Context, vector []float32, filter Filter, k int) ([]Result, error) {
	if filter.ProjectID == "" {
		return nil, ErrMissingProject
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.dimension != 0 && len(vector) != m.dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d",
			ErrDimensionMismatch, len(vector), m.dimension)
	}

	var results []Result
	for _, e := range m.entries {
		if e.ProjectID != filter.ProjectID {
			continue
		}
		if !matchesCategories(e.Category, filter.Categories) {
			continue
		}
		results = append(results, Result{
			ChunkID:    e.ChunkID,
			DocumentID: e.DocumentID,
			Score:      cosine(vector, e.Vector),
		})
	}

	// Chunk ID breaks score ties so results are stable across runs.
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].ChunkID < results[j].ChunkID
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// DeleteByDocument removes the document's entries.
func (m *MemoryIndex) DeleteByDocument(_ context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		if e.DocumentID == documentID {
			delete(m.entries, id)
		}
	}
	return nil
}

// UpdateCategory re-tags the document's entries without touching vectors.
func (m *MemoryIndex) UpdateCategory(_ context.Context, documentID string, category model.Category) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, e := range m.entries {
		if e.DocumentID == documentID {
			e.Category = category
			m.entries[id] = e
		}
	}
	return nil
}

// Count reports the number of entries for a project.
func (m *MemoryIndex) Count(_ context.Context, projectID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	n := 0
	for _, e := range m.entries {
		if e.ProjectID == projectID {
			n++
		}
	}
	return n, nil
}
