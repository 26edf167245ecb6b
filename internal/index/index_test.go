package index

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/clindraft/clindraft/internal/model"
)

// backends runs a test against both index implementations.
func backends(t *testing.T, run func(t *testing.T, idx Index)) {
	t.Helper()

	t.Run("memory", func(t *testing.T) {
		run(t, NewMemoryIndex())
	})

	t.Run("sqlite", func(t *testing.T) {
		db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "index.db"))
		if err != nil {
			t.Fatalf("open sqlite: %v", err)
		}
		t.Cleanup(func() { _ = db.Close() })

		idx, err := NewSQLiteIndex(db)
		if err != nil {
			t.Fatalf("NewSQLiteIndex: %v", err)
		}
		run(t, idx)
	})
}

func entry(chunkID, documentID, projectID string, category model.Category, vector ...float32) Entry {
	return Entry{
		ChunkID:    chunkID,
		DocumentID: documentID,
		ProjectID:  projectID,
		Category:   category,
		Vector:     vector,
	}
}

func TestIndex_QueryRanking(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		err := idx.Upsert(ctx, []Entry{
			entry("c1", "d1", "p1", model.CategoryRiskManagement, 1, 0, 0),
			entry("c2", "d1", "p1", model.CategoryRiskManagement, 0.9, 0.1, 0),
			entry("c3", "d2", "p1", model.CategoryClinicalStudy, 0, 1, 0),
		})
		if err != nil {
			t.Fatalf("Upsert: %v", err)
		}

		results, err := idx.Query(ctx, []float32{1, 0, 0}, Filter{ProjectID: "p1"}, 2)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(results) != 2 {
			t.Fatalf("got %d results, want 2", len(results))
		}
		if results[0].ChunkID != "c1" || results[1].ChunkID != "c2" {
			t.Errorf("ranking = [%s %s], want [c1 c2]", results[0].ChunkID, results[1].ChunkID)
		}
		if results[0].Score < results[1].Score {
			t.Error("scores not descending")
		}
	})
}

func TestIndex_ProjectIsolation(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		// Interleaved upserts across projects.
		for i := 0; i < 3; i++ {
			_ = idx.Upsert(ctx, []Entry{entry("a"+string(rune('0'+i)), "da", "alpha", model.CategoryOther, 1, 0)})
			_ = idx.Upsert(ctx, []Entry{entry("b"+string(rune('0'+i)), "db", "beta", model.CategoryOther, 1, 0)})
		}

		results, err := idx.Query(ctx, []float32{1, 0}, Filter{ProjectID: "alpha"}, 10)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(results) != 3 {
			t.Fatalf("got %d results, want 3", len(results))
		}
		for _, r := range results {
			if r.DocumentID != "da" {
				t.Errorf("cross-project leak: %+v", r)
			}
		}
	})
}

func TestIndex_MissingProjectRejected(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		_, err := idx.Query(context.Background(), []float32{1}, Filter{}, 5)
		if !errors.Is(err, ErrMissingProject) {
			t.Errorf("expected ErrMissingProject, got %v", err)
		}
	})
}

func TestIndex_UnknownProjectEmpty(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		_ = idx.Upsert(ctx, []Entry{entry("c1", "d1", "p1", model.CategoryOther, 1, 0)})

		results, err := idx.Query(ctx, []float32{1, 0}, Filter{ProjectID: "nope"}, 5)
		if err != nil {
			t.Fatalf("unknown project must not error: %v", err)
		}
		if len(results) != 0 {
			t.Errorf("expected empty result, got %v", results)
		}
	})
}

func TestIndex_DimensionMismatch(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		if err := idx.Upsert(ctx, []Entry{entry("c1", "d1", "p1", model.CategoryOther, 1, 0, 0)}); err != nil {
			t.Fatalf("Upsert: %v", err)
		}

		err := idx.Upsert(ctx, []Entry{entry("c2", "d1", "p1", model.CategoryOther, 1, 0)})
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("upsert: expected ErrDimensionMismatch, got %v", err)
		}

		_, err = idx.Query(ctx, []float32{1, 0}, Filter{ProjectID: "p1"}, 5)
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("query: expected ErrDimensionMismatch, got %v", err)
		}
	})
}

func TestIndex_UpsertIdempotent(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		e := entry("c1", "d1", "p1", model.CategoryOther, 0, 1)
		for i := 0; i < 3; i++ {
			if err := idx.Upsert(ctx, []Entry{e}); err != nil {
				t.Fatalf("Upsert %d: %v", i, err)
			}
		}

		n, err := idx.Count(ctx, "p1")
		if err != nil {
			t.Fatalf("Count: %v", err)
		}
		if n != 1 {
			t.Errorf("count = %d, want 1 after repeated upsert", n)
		}
	})
}

func TestIndex_CategoryFilterAndRetag(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		_ = idx.Upsert(ctx, []Entry{
			entry("c1", "d1", "p1", model.CategoryRiskManagement, 1, 0),
			entry("c2", "d2", "p1", model.CategoryClinicalStudy, 1, 0),
		})

		riskOnly := Filter{ProjectID: "p1", Categories: []model.Category{model.CategoryRiskManagement}}
		results, err := idx.Query(ctx, []float32{1, 0}, riskOnly, 10)
		if err != nil {
			t.Fatalf("Query: %v", err)
		}
		if len(results) != 1 || results[0].ChunkID != "c1" {
			t.Fatalf("category filter failed: %v", results)
		}

		if err := idx.UpdateCategory(ctx, "d2", model.CategoryRiskManagement); err != nil {
			t.Fatalf("UpdateCategory: %v", err)
		}
		results, _ = idx.Query(ctx, []float32{1, 0}, riskOnly, 10)
		if len(results) != 2 {
			t.Errorf("after retag expected 2 results, got %v", results)
		}
	})
}

func TestIndex_DeleteByDocument(t *testing.T) {
	backends(t, func(t *testing.T, idx Index) {
		ctx := context.Background()
		_ = idx.Upsert(ctx, []Entry{
			entry("c1", "d1", "p1", model.CategoryOther, 1, 0),
			entry("c2", "d1", "p1", model.CategoryOther, 0, 1),
			entry("c3", "d2", "p1", model.CategoryOther, 1, 1),
		})

		if err := idx.DeleteByDocument(ctx, "d1"); err != nil {
			t.Fatalf("DeleteByDocument: %v", err)
		}
		n, _ := idx.Count(ctx, "p1")
		if n != 1 {
			t.Errorf("count = %d, want 1 after delete", n)
		}
	})
}

func TestVectorCodec(t *testing.T) {
	in := []float32{0.25, -1.5, 3.14159, 0}
	out := decodeVector(encodeVector(in))
	if len(out) != len(in) {
		t.Fatalf("length %d, want %d", len(out), len(in))
	}
	for i := range in {
		if in[i] != out[i] {
			t.Errorf("component %d: %v != %v", i, out[i], in[i])
		}
	}
}
