package index

import (
	"context"
	"database/sql"
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/clindraft/clindraft/internal/model"
)

// SQLiteIndex persists vectors in the application database. Similarity is
// computed in process after a filtered row scan, which is adequate for
// project-sized corpora of a few thousand chunks.
type SQLiteIndex struct {
	db *sql.DB
}

const vectorSchema = `
CREATE TABLE IF NOT EXISTS vectors (
	chunk_id    TEXT PRIMARY KEY,
	document_id TEXT NOT NULL,
	project_id  TEXT NOT NULL,
	category    TEXT NOT NULL,
	dimension   INTEGER NOT NULL,
	vector      BLOB NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_vectors_project ON vectors(project_id);
CREATE INDEX IF NOT EXISTS idx_vectors_document ON vectors(document_id);
`

// NewSQLiteIndex creates the vector table on the shared database handle.
func NewSQLiteIndex(db *sql.DB) (*SQLiteIndex, error) {
	if _, err := db.Exec(vectorSchema); err != nil {
		return nil, fmt.Errorf("create vector schema: %w", err)
	}
	return &SQLiteIndex{db: db}, nil
}

// Upsert stores entries transactionally, replacing same-ID rows.
func (s *SQLiteIndex) Upsert(ctx context.Context, entries []Entry) error {
	dimension, err := s.dimension(ctx)
	if err != nil {
		return err
	}
	if _, err := validateEntries(dimension, entries); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin upsert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vectors (chunk_id, document_id, project_id, category, dimension, vector)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(chunk_id) DO UPDATE SET
			document_id = excluded.document_id,
			project_id  = excluded.project_id,
			category    = excluded.category,
			dimension   = excluded.dimension,
			vector      = excluded.vector`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, e := range entries {
		if _, err := stmt.ExecContext(ctx, e.ChunkID, e.DocumentID, e.ProjectID,
			string(e.Category), len(e.Vector), encodeVector(e.Vector)); err != nil {
			return fmt.Errorf("upsert entry %s: %w", e.ChunkID, err)
		}
	}
	return tx.Commit()
}

// Query scans the project's rows and ranks them in process.
func (s *SQLiteIndex) Query(ctx context.Context, vector []float32, filter Filter, k int) ([]Result, error) {
	if filter.ProjectID == "" {
		return nil, ErrMissingProject
	}
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	dimension, err := s.dimension(ctx)
	if err != nil {
		return nil, err
	}
	if dimension != 0 && len(vector) != dimension {
		return nil, fmt.Errorf("%w: query has %d, index has %d",
			ErrDimensionMismatch, len(vector), dimension)
	}

	query := `SELECT chunk_id, document_id, category, vector FROM vectors WHERE project_id = ?`
	args := []any{filter.ProjectID}
	if len(filter.Categories) > 0 {
		placeholders := strings.Repeat("?,", len(filter.Categories))
		query += fmt.Sprintf(" AND category IN (%s)", placeholders[:len(placeholders)-1])
		for _, c := range filter.Categories {
			args = append(args, string(c))
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query vectors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var results []Result
	for rows.Next() {
		var (
			chunkID, documentID, category string
			blob                          []byte
		)
		if err := rows.Scan(&chunkID, &documentID, &category, &blob); err != nil {
			return nil, fmt.Errorf("scan vector row: %w", err)
		}
		results = append(results, Result{
			ChunkID:    chunkID,
			DocumentID: documentID,
			Score:      cosine(vector, decodeVector(blob)),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vectors: %w", err)
	}

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

// DeleteByDocument removes the document's rows.
func (s *SQLiteIndex) DeleteByDocument(ctx context.Context, documentID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vectors WHERE document_id = ?`, documentID); err != nil {
		return fmt.Errorf("delete vectors for %s: %w", documentID, err)
	}
	return nil
}

// UpdateCategory re-tags the document's rows without touching vectors.
func (s *SQLiteIndex) UpdateCategory(ctx context.Context, documentID string, category model.Category) error {
	if _, err := s.db.ExecContext(ctx,
		`UPDATE vectors SET category = ? WHERE document_id = ?`,
		string(category), documentID); err != nil {
		return fmt.Errorf("retag vectors for %s: %w", documentID, err)
	}
	return nil
}

// Count reports the number of rows for a project.
func (s *SQLiteIndex) Count(ctx context.Context, projectID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM vectors WHERE project_id = ?`, projectID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count vectors: %w", err)
	}
	return n, nil
}

// dimension reads the stored vector length; zero means the index is empty.
func (s *SQLiteIndex) dimension(ctx context.Context) (int, error) {
	var dimension sql.NullInt64
	err := s.db.QueryRowContext(ctx, `SELECT dimension FROM vectors LIMIT 1`).Scan(&dimension)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read index dimension: %w", err)
	}
	return int(dimension.Int64), nil
}

// Vectors are stored as little-endian float32 blobs.
func encodeVector(vector []float32) []byte {
	buf := make([]byte, 4*len(vector))
	for i, v := range vector {
		binary.LittleEndian.PutUint32(buf[4*i:], math.Float32bits(v))
	}
	return buf
}

func decodeVector(buf []byte) []float32 {
	vector := make([]float32, len(buf)/4)
	for i := range vector {
		vector[i] = math.Float32frombits(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	return vector
}
