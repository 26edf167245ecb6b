package embed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/clindraft/clindraft/internal/llm"
	"github.com/clindraft/clindraft/internal/model"
)

// fakeEmbedServer answers /api/embed with deterministic 4-dim vectors and
// counts requests.
func fakeEmbedServer(t *testing.T, calls *atomic.Int64) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embed" {
			t.Errorf("expected path /api/embed, got %s", r.URL.Path)
		}
		calls.Add(1)

		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode embed request: %v", err)
		}

		embeddings := make([][]float32, len(req.Input))
		for i, text := range req.Input {
			embeddings[i] = []float32{float32(len(text)), 1, 2, 3}
		}
		_ = json.NewEncoder(w).Encode(ollamaEmbedResponse{
			Model:      req.Model,
			Embeddings: embeddings,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOllamaEmbedder_Batching(t *testing.T) {
	var calls atomic.Int64
	server := fakeEmbedServer(t, &calls)

	e, err := NewOllamaEmbedder(model.EmbeddingConfig{
		Model:     "nomic-embed-text",
		BaseURL:   server.URL,
		BatchSize: 2,
		Timeout:   2 * time.Second,
	})
	if err != nil {
		t.Fatalf("NewOllamaEmbedder: %v", err)
	}

	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}
	vectors, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}

	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	// Order preserved: first component encodes input length.
	for i, text := range texts {
		if vectors[i][0] != float32(len(text)) {
			t.Errorf("vector %d out of order: %v", i, vectors[i])
		}
	}
	if calls.Load() != 3 {
		t.Errorf("expected 3 batch calls for 5 texts at size 2, got %d", calls.Load())
	}
	if e.Dimension() != 4 {
		t.Errorf("dimension = %d, want 4 after first call", e.Dimension())
	}
}

func TestOllamaEmbedder_ModelError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(ollamaEmbedError{Error: "model not found"})
	}))
	defer server.Close()

	e, _ := NewOllamaEmbedder(model.EmbeddingConfig{
		Model:   "missing",
		BaseURL: server.URL,
		Timeout: 2 * time.Second,
	})

	_, err := e.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected error")
	}
	var le *llm.Error
	if !errors.As(err, &le) || le.Kind != llm.FailureModel {
		t.Errorf("expected model failure, got %v", err)
	}
}

func TestOllamaEmbedder_ConnectionErrorTransient(t *testing.T) {
	e, _ := NewOllamaEmbedder(model.EmbeddingConfig{
		Model:   "nomic-embed-text",
		BaseURL: "http://127.0.0.1:1",
		Timeout: time.Second,
	})

	_, err := e.Embed(context.Background(), "text")
	if err == nil {
		t.Fatal("expected connection error")
	}
	if !llm.Transient(err) {
		t.Error("connection errors must be transient")
	}
}

func TestOllamaEmbedder_RequiresModel(t *testing.T) {
	if _, err := NewOllamaEmbedder(model.EmbeddingConfig{}); err == nil {
		t.Fatal("expected error for missing model")
	}
}

func TestCachedEmbedder_SkipsRepeatedTexts(t *testing.T) {
	var calls atomic.Int64
	server := fakeEmbedServer(t, &calls)

	inner, _ := NewOllamaEmbedder(model.EmbeddingConfig{
		Model:     "nomic-embed-text",
		BaseURL:   server.URL,
		BatchSize: 32,
		Timeout:   2 * time.Second,
	})
	e := NewCachedEmbedder(inner, time.Minute)

	first, err := e.Embed(context.Background(), "chunk text")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	second, err := e.Embed(context.Background(), "chunk text")
	if err != nil {
		t.Fatalf("Embed (cached): %v", err)
	}

	if calls.Load() != 1 {
		t.Errorf("expected a single upstream call, got %d", calls.Load())
	}
	if len(first) != len(second) || first[0] != second[0] {
		t.Error("cached vector differs from original")
	}
}

func TestCachedEmbedder_BatchMixedHits(t *testing.T) {
	var calls atomic.Int64
	server := fakeEmbedServer(t, &calls)

	inner, _ := NewOllamaEmbedder(model.EmbeddingConfig{
		Model:     "nomic-embed-text",
		BaseURL:   server.URL,
		BatchSize: 32,
		Timeout:   2 * time.Second,
	})
	e := NewCachedEmbedder(inner, time.Minute)

	if _, err := e.Embed(context.Background(), "bb"); err != nil {
		t.Fatalf("prime cache: %v", err)
	}

	vectors, err := e.EmbedBatch(context.Background(), []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if calls.Load() != 2 {
		t.Errorf("expected 2 upstream calls (prime + misses), got %d", calls.Load())
	}
	for i, want := range []float32{1, 2, 3} {
		if vectors[i][0] != want {
			t.Errorf("vector %d = %v, want first component %v", i, vectors[i], want)
		}
	}
}

func TestNew_Factory(t *testing.T) {
	e, err := New(model.EmbeddingConfig{
		Provider: "ollama",
		Model:    "nomic-embed-text",
		CacheTTL: time.Minute,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if _, ok := e.(*CachedEmbedder); !ok {
		t.Errorf("expected cache wrapper when TTL set, got %T", e)
	}

	if _, err := New(model.EmbeddingConfig{Provider: "mystery"}); err == nil {
		t.Error("expected error for unknown provider")
	}
}
