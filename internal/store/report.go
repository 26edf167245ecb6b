package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/clindraft/clindraft/internal/model"
)

// SaveReport inserts or replaces a report. Sections are stored as a JSON
// column since their shape is fixed by the report template.
func (s *Store) SaveReport(ctx context.Context, report *model.Report) error {
	sections, err := json.Marshal(report.Sections)
	if err != nil {
		return fmt.Errorf("marshal sections: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO reports (id, project_id, type, sections, generated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			sections     = excluded.sections,
			generated_at = excluded.generated_at`,
		report.ID, report.ProjectID, string(report.Type), string(sections), report.GeneratedAt)
	if err != nil {
		return fmt.Errorf("save report %s: %w", report.ID, err)
	}
	return nil
}

// GetReport loads a report by ID.
func (s *Store) GetReport(ctx context.Context, id string) (*model.Report, error) {
	return s.scanReport(s.db.QueryRowContext(ctx, `
		SELECT id, project_id, type, sections, generated_at
		FROM reports WHERE id = ?`, id))
}

// LatestReport loads the most recent report of a type for a project.
func (s *Store) LatestReport(ctx context.Context, projectID string, typ model.ReportType) (*model.Report, error) {
	return s.scanReport(s.db.QueryRowContext(ctx, `
		SELECT id, project_id, type, sections, generated_at
		FROM reports WHERE project_id = ? AND type = ?
		ORDER BY generated_at DESC LIMIT 1`, projectID, string(typ)))
}

// ListReports returns a project's reports, newest first.
func (s *Store) ListReports(ctx context.Context, projectID string) ([]*model.Report, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, project_id, type, sections, generated_at
		FROM reports WHERE project_id = ? ORDER BY generated_at DESC`, projectID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var reports []*model.Report
	for rows.Next() {
		report, err := s.scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}

func (s *Store) scanReport(row rowScanner) (*model.Report, error) {
	var (
		report   model.Report
		typ      string
		sections string
	)
	err := row.Scan(&report.ID, &report.ProjectID, &typ, &sections, &report.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}

	report.Type = model.ReportType(typ)
	if err := json.Unmarshal([]byte(sections), &report.Sections); err != nil {
		return nil, fmt.Errorf("unmarshal sections: %w", err)
	}
	return &report, nil
}
