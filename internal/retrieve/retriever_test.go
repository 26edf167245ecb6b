package retrieve

import (
	"context"
	"strings"
	"testing"

	"github.com/clindraft/clindraft/internal/index"
	"github.com/clindraft/clindraft/internal/model"
)

// fixedEmbedder returns a constant vector for any text.
type fixedEmbedder struct {
	vector []float32
}

func (f *fixedEmbedder) Embed(context.Context, string) ([]float32, error) { return f.vector, nil }
func (f *fixedEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = f.vector
	}
	return out, nil
}
func (f *fixedEmbedder) Model() string  { return "fixed" }
func (f *fixedEmbedder) Dimension() int { return len(f.vector) }

// mapLoader serves chunks and documents from memory.
type mapLoader struct {
	chunks map[string]model.Chunk
	docs   map[string]*model.Document
}

func (m *mapLoader) GetChunksByIDs(_ context.Context, ids []string) ([]model.Chunk, error) {
	var out []model.Chunk
	for _, id := range ids {
		if c, ok := m.chunks[id]; ok {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *mapLoader) GetDocument(_ context.Context, id string) (*model.Document, error) {
	if d, ok := m.docs[id]; ok {
		return d, nil
	}
	return nil, context.Canceled
}

func fixture(t *testing.T) (*Retriever, index.Index) {
	t.Helper()

	idx := index.NewMemoryIndex()
	err := idx.Upsert(context.Background(), []index.Entry{
		{ChunkID: "c1", DocumentID: "d1", ProjectID: "p1", Category: model.CategoryRiskManagement, Vector: []float32{1, 0}},
		{ChunkID: "c2", DocumentID: "d1", ProjectID: "p1", Category: model.CategoryRiskManagement, Vector: []float32{0.8, 0.2}},
		{ChunkID: "c3", DocumentID: "d2", ProjectID: "p1", Category: model.CategoryClinicalStudy, Vector: []float32{0, 1}},
		{ChunkID: "x1", DocumentID: "dx", ProjectID: "p2", Category: model.CategoryRiskManagement, Vector: []float32{1, 0}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	loader := &mapLoader{
		chunks: map[string]model.Chunk{
			"c1": {ID: "c1", DocumentID: "d1", Text: "hazard analysis summary", TokenCount: 3},
			"c2": {ID: "c2", DocumentID: "d1", Text: "severity and probability ratings", TokenCount: 4},
			"c3": {ID: "c3", DocumentID: "d2", Text: "patient enrollment data", TokenCount: 3},
			"x1": {ID: "x1", DocumentID: "dx", Text: "other project", TokenCount: 2},
		},
		docs: map[string]*model.Document{
			"d1": {ID: "d1", Filename: "risk.pdf"},
			"d2": {ID: "d2", Filename: "study.pdf"},
		},
	}

	r := New(&fixedEmbedder{vector: []float32{1, 0}}, idx, loader, model.RetrievalConfig{
		TopK:             10,
		MaxContextTokens: 100,
	})
	return r, idx
}

func TestRetriever_RankedPassages(t *testing.T) {
	r, _ := fixture(t)

	passages, err := r.Retrieve(context.Background(), "p1", "hazard severity", nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) != 3 {
		t.Fatalf("got %d passages, want 3", len(passages))
	}
	if passages[0].ChunkID != "c1" {
		t.Errorf("top passage = %s, want c1", passages[0].ChunkID)
	}
	if passages[0].Filename != "risk.pdf" {
		t.Errorf("filename = %s", passages[0].Filename)
	}
	for i := 1; i < len(passages); i++ {
		if passages[i].Score > passages[i-1].Score {
			t.Error("passages not in descending score order")
		}
	}
	for _, p := range passages {
		if p.DocumentID == "dx" {
			t.Error("cross-project passage leaked")
		}
	}
}

func TestRetriever_CategoryFilter(t *testing.T) {
	r, _ := fixture(t)

	passages, err := r.Retrieve(context.Background(), "p1", "anything",
		[]model.Category{model.CategoryClinicalStudy})
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) != 1 || passages[0].ChunkID != "c3" {
		t.Errorf("passages = %v, want only c3", passages)
	}
}

func TestRetriever_TokenBudget(t *testing.T) {
	r, _ := fixture(t)
	r.cfg.MaxContextTokens = 5

	passages, err := r.Retrieve(context.Background(), "p1", "q", nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}

	total := 0
	for _, p := range passages {
		total += p.TokenCount
	}
	if total > 5 {
		t.Errorf("context exceeds budget: %d tokens", total)
	}
	// c1 (3 tokens) fits whole; c2 is truncated to the remaining 2.
	if len(passages) != 2 {
		t.Fatalf("got %d passages, want 2", len(passages))
	}
	if passages[1].TokenCount != 2 {
		t.Errorf("second passage tokens = %d, want 2", passages[1].TokenCount)
	}
	if !strings.HasPrefix("severity and probability ratings", passages[1].Text) {
		t.Errorf("truncated text = %q, want a prefix of the chunk", passages[1].Text)
	}
}

func TestRetriever_EmptyProjectRejected(t *testing.T) {
	r, _ := fixture(t)
	if _, err := r.Retrieve(context.Background(), "", "q", nil); err == nil {
		t.Error("expected error for missing project")
	}
}

func TestRetriever_NoHitsIsNotAnError(t *testing.T) {
	r, _ := fixture(t)
	passages, err := r.Retrieve(context.Background(), "empty-project", "q", nil)
	if err != nil {
		t.Fatalf("Retrieve: %v", err)
	}
	if len(passages) != 0 {
		t.Errorf("expected no passages, got %v", passages)
	}
}
