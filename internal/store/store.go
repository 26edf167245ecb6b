// Package store persists documents, chunks, entities, and reports in a
// single SQLite file. The same handle backs the SQLite vector index, so one
// file holds the whole project state.
package store

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	filename     TEXT NOT NULL,
	text         TEXT NOT NULL,
	page_map     TEXT NOT NULL DEFAULT '[]',
	category     TEXT NOT NULL DEFAULT '',
	confidence   REAL NOT NULL DEFAULT 0,
	llm_fallback INTEGER NOT NULL DEFAULT 0,
	status       TEXT NOT NULL,
	failed_stage TEXT NOT NULL DEFAULT '',
	fail_reason  TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_project ON documents(project_id);

CREATE TABLE IF NOT EXISTS chunks (
	id             TEXT PRIMARY KEY,
	document_id    TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	ordinal        INTEGER NOT NULL,
	text           TEXT NOT NULL,
	token_count    INTEGER NOT NULL,
	overlap_tokens INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chunks_document ON chunks(document_id);

CREATE TABLE IF NOT EXISTS entities (
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	key         TEXT NOT NULL,
	value       TEXT NOT NULL,
	char_offset INTEGER NOT NULL DEFAULT 0,
	source      TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_entities_document ON entities(document_id);

CREATE TABLE IF NOT EXISTS reports (
	id           TEXT PRIMARY KEY,
	project_id   TEXT NOT NULL,
	type         TEXT NOT NULL,
	sections     TEXT NOT NULL,
	generated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_reports_project ON reports(project_id);
`

// Store wraps the application database.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies the
// schema. Foreign keys are enabled so chunks and entities cascade with
// their document.
func Open(path string) (*Store, error) {
	// Pragmas ride on the DSN so every connection the pool hands out has
	// foreign keys enabled, not just the one that ran a setup Exec.
	dsn := path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	// modernc's driver serializes writes; a single connection avoids
	// SQLITE_BUSY under the worker pool.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// DB exposes the handle so the vector index can share the file.
func (s *Store) DB() *sql.DB { return s.db }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
