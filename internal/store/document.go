package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/clindraft/clindraft/internal/model"
)

// ErrNotFound reports a missing row.
var ErrNotFound = errors.New("not found")

// SaveDocument inserts or replaces a document row. Chunks and entities are
// saved separately.
func (s *Store) SaveDocument(ctx context.Context, doc *model.Document) error {
	pageMap, err := json.Marshal(doc.PageMap)
	if err != nil {
		return fmt.Errorf("marshal page map: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (id, project_id, filename, text, page_map, category,
			confidence, llm_fallback, status, failed_stage, fail_reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project_id   = excluded.project_id,
			filename     = excluded.filename,
			text         = excluded.text,
			page_map     = excluded.page_map,
			category     = excluded.category,
			confidence   = excluded.confidence,
			llm_fallback = excluded.llm_fallback,
			status       = excluded.status,
			failed_stage = excluded.failed_stage,
			fail_reason  = excluded.fail_reason`,
		doc.ID, doc.ProjectID, doc.Filename, doc.Text, string(pageMap),
		string(doc.Category), doc.Confidence, doc.LLMFallback,
		string(doc.Status), string(doc.FailedStage), doc.FailReason, doc.CreatedAt)
	if err != nil {
		return fmt.Errorf("save document %s: %w", doc.ID, err)
	}
	return nil
}

// GetDocument loads a document with its entities; chunks load on demand.
func (s *Store) GetDocument(ctx context.Context, id string) (*model.Document, error) {
	doc, err := s.scanDocument(s.db.QueryRowContext(ctx, `
		SELECT id, project_id, filename, text, page_map, category, confidence,
			llm_fallback, status, failed_stage, fail_reason, created_at
		FROM documents WHERE id = ?`, id))
	if err != nil {
		return nil, err
	}

	doc.Entities, err = s.GetEntities(ctx, id)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// ListDocuments returns a project's documents ordered by creation time.
// Text bodies are omitted to keep listings cheap.
func (s *Store) ListDocuments(ctx context.Context, projectID string) ([]*model.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, filename, '', page_map, category, confidence,
			llm_fallback, status, failed_stage, fail_reason, created_at
		FROM documents WHERE project_id = ? ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*model.Document
	for rows.Next() {
		doc, err := s.scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *Store) scanDocument(row rowScanner) (*model.Document, error) {
	var (
		doc         model.Document
		pageMap     string
		category    string
		status      string
		failedStage string
	)
	err := row.Scan(&doc.ID, &doc.ProjectID, &doc.Filename, &doc.Text, &pageMap,
		&category, &doc.Confidence, &doc.LLMFallback, &status, &failedStage,
		&doc.FailReason, &doc.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan document: %w", err)
	}

	if err := json.Unmarshal([]byte(pageMap), &doc.PageMap); err != nil {
		return nil, fmt.Errorf("unmarshal page map: %w", err)
	}
	doc.Category = model.Category(category)
	doc.Status = model.DocumentStatus(status)
	doc.FailedStage = model.Stage(failedStage)
	return &doc, nil
}

// DeleteDocument removes the document; chunks and entities cascade. The
// caller is responsible for removing the document's index entries.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateCategory re-tags a document after user correction. The caller
// must also retag the document's index entries; vectors stay untouched.
func (s *Store) UpdateCategory(ctx context.Context, id string, category model.Category) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET category = ?, confidence = 1, llm_fallback = 0 WHERE id = ?`,
		string(category), id)
	if err != nil {
		return fmt.Errorf("update category for %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SaveChunks replaces the document's chunks transactionally.
func (s *Store) SaveChunks(ctx context.Context, documentID string, chunks []model.Chunk) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save chunks: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM chunks WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clear chunks for %s: %w", documentID, err)
	}
	for _, c := range chunks {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO chunks (id, document_id, ordinal, text, token_count, overlap_tokens)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, documentID, c.Ordinal, c.Text, c.TokenCount, c.OverlapTokens); err != nil {
			return fmt.Errorf("save chunk %s: %w", c.ID, err)
		}
	}
	return tx.Commit()
}

// GetChunks returns the document's chunks in ordinal order.
func (s *Store) GetChunks(ctx context.Context, documentID string) ([]model.Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, ordinal, text, token_count, overlap_tokens
		FROM chunks WHERE document_id = ? ORDER BY ordinal`, documentID)
	if err != nil {
		return nil, fmt.Errorf("get chunks: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanChunks(rows)
}

// GetChunksByIDs loads specific chunks; the result preserves the requested
// order and skips unknown IDs.
func (s *Store) GetChunksByIDs(ctx context.Context, ids []string) ([]model.Chunk, error) {
	byID := make(map[string]model.Chunk, len(ids))
	for _, id := range ids {
		row := s.db.QueryRowContext(ctx, `
			SELECT id, document_id, ordinal, text, token_count, overlap_tokens
			FROM chunks WHERE id = ?`, id)
		var c model.Chunk
		err := row.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &c.TokenCount, &c.OverlapTokens)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("get chunk %s: %w", id, err)
		}
		byID[c.ID] = c
	}

	chunks := make([]model.Chunk, 0, len(byID))
	for _, id := range ids {
		if c, ok := byID[id]; ok {
			chunks = append(chunks, c)
		}
	}
	return chunks, nil
}

func scanChunks(rows *sql.Rows) ([]model.Chunk, error) {
	var chunks []model.Chunk
	for rows.Next() {
		var c model.Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Ordinal, &c.Text, &c.TokenCount, &c.OverlapTokens); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, c)
	}
	return chunks, rows.Err()
}

// SaveEntities replaces the document's entities.
func (s *Store) SaveEntities(ctx context.Context, documentID string, entities []model.Entity) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save entities: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entities WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("clear entities for %s: %w", documentID, err)
	}
	for _, e := range entities {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO entities (document_id, key, value, char_offset, source)
			VALUES (?, ?, ?, ?, ?)`,
			documentID, e.Key, e.Value, e.Offset, string(e.Source)); err != nil {
			return fmt.Errorf("save entity %s: %w", e.Key, err)
		}
	}
	return tx.Commit()
}

// GetEntities returns a document's entities.
func (s *Store) GetEntities(ctx context.Context, documentID string) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT document_id, key, value, char_offset, source
		FROM entities WHERE document_id = ? ORDER BY key, value`, documentID)
	if err != nil {
		return nil, fmt.Errorf("get entities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntities(rows)
}

// GetProjectEntities returns every entity across a project's documents,
// the input for entity resolution at report time.
func (s *Store) GetProjectEntities(ctx context.Context, projectID string) ([]model.Entity, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.document_id, e.key, e.value, e.char_offset, e.source
		FROM entities e JOIN documents d ON d.id = e.document_id
		WHERE d.project_id = ? ORDER BY e.key, e.value`, projectID)
	if err != nil {
		return nil, fmt.Errorf("get project entities: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanEntities(rows)
}

func scanEntities(rows *sql.Rows) ([]model.Entity, error) {
	var entities []model.Entity
	for rows.Next() {
		var (
			e      model.Entity
			source string
		)
		if err := rows.Scan(&e.DocumentID, &e.Key, &e.Value, &e.Offset, &source); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		e.Source = model.EntitySource(source)
		entities = append(entities, e)
	}
	return entities, rows.Err()
}
