package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/clindraft/clindraft/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleDocument(projectID string) *model.Document {
	return &model.Document{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Filename:   "risk_analysis.pdf",
		Text:       "The risk analysis follows ISO 14971.",
		PageMap:    []model.PageMark{{Page: 1, Offset: 0}},
		Category:   model.CategoryRiskManagement,
		Confidence: 0.9,
		Status:     model.StatusIndexed,
		CreatedAt:  time.Now().UTC().Truncate(time.Second),
	}
}

func TestOpen_ForeignKeysOnEveryConnection(t *testing.T) {
	s := openTestStore(t)

	// The pragma is part of the DSN, so it holds on whatever connection
	// the pool serves, not only the one used during setup.
	var enabled int
	if err := s.DB().QueryRow(`PRAGMA foreign_keys`).Scan(&enabled); err != nil {
		t.Fatalf("query pragma: %v", err)
	}
	if enabled != 1 {
		t.Fatalf("foreign_keys = %d, want 1", enabled)
	}
}

func TestStore_DocumentRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDocument("p1")
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Filename != doc.Filename || got.Category != doc.Category || got.Status != doc.Status {
		t.Errorf("got %+v, want %+v", got, doc)
	}
	if len(got.PageMap) != 1 || got.PageMap[0].Page != 1 {
		t.Errorf("page map = %v", got.PageMap)
	}
}

func TestStore_GetDocument_NotFound(t *testing.T) {
	s := openTestStore(t)
	if _, err := s.GetDocument(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ListDocuments_ScopedToProject(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	for _, p := range []string{"p1", "p1", "p2"} {
		if err := s.SaveDocument(ctx, sampleDocument(p)); err != nil {
			t.Fatalf("SaveDocument: %v", err)
		}
	}

	docs, err := s.ListDocuments(ctx, "p1")
	if err != nil {
		t.Fatalf("ListDocuments: %v", err)
	}
	if len(docs) != 2 {
		t.Fatalf("got %d documents, want 2", len(docs))
	}
	for _, d := range docs {
		if d.ProjectID != "p1" {
			t.Errorf("leaked document from %s", d.ProjectID)
		}
		if d.Text != "" {
			t.Error("listing should omit text bodies")
		}
	}
}

func TestStore_ChunksRoundtripAndCascade(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDocument("p1")
	if err := s.SaveDocument(ctx, doc); err != nil {
		t.Fatalf("SaveDocument: %v", err)
	}

	chunks := []model.Chunk{
		{ID: "c1", DocumentID: doc.ID, Ordinal: 0, Text: "first", TokenCount: 1},
		{ID: "c2", DocumentID: doc.ID, Ordinal: 1, Text: "second", TokenCount: 1, OverlapTokens: 0},
	}
	if err := s.SaveChunks(ctx, doc.ID, chunks); err != nil {
		t.Fatalf("SaveChunks: %v", err)
	}

	got, err := s.GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetChunks: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c1" || got[1].ID != "c2" {
		t.Fatalf("chunks = %v", got)
	}

	if err := s.DeleteDocument(ctx, doc.ID); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	got, err = s.GetChunks(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetChunks after delete: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("chunks survived document delete: %v", got)
	}
}

func TestStore_GetChunksByIDs_PreservesOrder(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDocument("p1")
	_ = s.SaveDocument(ctx, doc)
	_ = s.SaveChunks(ctx, doc.ID, []model.Chunk{
		{ID: "c1", DocumentID: doc.ID, Ordinal: 0, Text: "a", TokenCount: 1},
		{ID: "c2", DocumentID: doc.ID, Ordinal: 1, Text: "b", TokenCount: 1},
		{ID: "c3", DocumentID: doc.ID, Ordinal: 2, Text: "c", TokenCount: 1},
	})

	got, err := s.GetChunksByIDs(ctx, []string{"c3", "missing", "c1"})
	if err != nil {
		t.Fatalf("GetChunksByIDs: %v", err)
	}
	if len(got) != 2 || got[0].ID != "c3" || got[1].ID != "c1" {
		t.Errorf("got %v, want [c3 c1]", got)
	}
}

func TestStore_EntitiesRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDocument("p1")
	_ = s.SaveDocument(ctx, doc)

	entities := []model.Entity{
		{Key: "device_class", Value: "III", DocumentID: doc.ID, Offset: 10, Source: model.EntitySourceRule},
		{Key: "device_name", Value: "Valve", DocumentID: doc.ID, Source: model.EntitySourceLLM},
	}
	if err := s.SaveEntities(ctx, doc.ID, entities); err != nil {
		t.Fatalf("SaveEntities: %v", err)
	}

	got, err := s.GetDocument(ctx, doc.ID)
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if len(got.Entities) != 2 {
		t.Fatalf("entities = %v", got.Entities)
	}
	if got.Entities[0].Key != "device_class" || got.Entities[0].Source != model.EntitySourceRule {
		t.Errorf("entity = %+v", got.Entities[0])
	}

	all, err := s.GetProjectEntities(ctx, "p1")
	if err != nil {
		t.Fatalf("GetProjectEntities: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("project entities = %v", all)
	}
}

func TestStore_UpdateCategory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	doc := sampleDocument("p1")
	doc.LLMFallback = true
	_ = s.SaveDocument(ctx, doc)

	if err := s.UpdateCategory(ctx, doc.ID, model.CategoryClinicalStudy); err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	got, _ := s.GetDocument(ctx, doc.ID)
	if got.Category != model.CategoryClinicalStudy {
		t.Errorf("category = %s", got.Category)
	}
	if got.Confidence != 1 || got.LLMFallback {
		t.Error("user correction should be fully confident")
	}

	if err := s.UpdateCategory(ctx, "missing", model.CategoryOther); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_ReportRoundtrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	report := &model.Report{
		ID:        uuid.NewString(),
		ProjectID: "p1",
		Type:      model.ReportCEP,
		Sections: []model.ReportSection{
			{Ordinal: 1, Heading: "Scope", Status: model.SectionDone, Text: "text", ContextChunks: []string{"c1"}},
			{Ordinal: 2, Heading: "Plan", Status: model.SectionFailed, FailReason: "timeout"},
		},
		GeneratedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := s.SaveReport(ctx, report); err != nil {
		t.Fatalf("SaveReport: %v", err)
	}

	got, err := s.GetReport(ctx, report.ID)
	if err != nil {
		t.Fatalf("GetReport: %v", err)
	}
	if got.Status() != model.ReportPartial {
		t.Errorf("status = %s, want partial", got.Status())
	}
	if len(got.Sections) != 2 || got.Sections[1].FailReason != "timeout" {
		t.Errorf("sections = %+v", got.Sections)
	}

	latest, err := s.LatestReport(ctx, "p1", model.ReportCEP)
	if err != nil {
		t.Fatalf("LatestReport: %v", err)
	}
	if latest.ID != report.ID {
		t.Errorf("latest = %s, want %s", latest.ID, report.ID)
	}
}
