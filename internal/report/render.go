package report

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/clindraft/clindraft/internal/model"
)

// RenderMarkdown renders the report as a Markdown document. Failed
// sections appear in place with their failure reason so gaps are visible
// in review, not silently dropped.
func RenderMarkdown(report *model.Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", Title(report.Type))
	fmt.Fprintf(&b, "Project: %s  \n", report.ProjectID)
	fmt.Fprintf(&b, "Generated: %s  \n", report.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Fprintf(&b, "Status: %s\n\n", report.Status())

	for _, s := range report.Sections {
		fmt.Fprintf(&b, "## %d. %s\n\n", s.Ordinal, s.Heading)
		switch s.Status {
		case model.SectionDone:
			b.WriteString(s.Text)
			b.WriteString("\n\n")
		case model.SectionFailed:
			fmt.Fprintf(&b, "> **Section generation failed:** %s\n\n", s.FailReason)
		default:
			b.WriteString("> **Section not generated.**\n\n")
		}
	}

	return b.String()
}

// renderedReport is the JSON shape for exported reports.
type renderedReport struct {
	ID          string                  `json:"id"`
	ProjectID   string                  `json:"project_id"`
	Type        model.ReportType        `json:"type"`
	Title       string                  `json:"title"`
	Status      model.ReportStatus      `json:"status"`
	GeneratedAt string                  `json:"generated_at"`
	Sections    []model.ReportSection   `json:"sections"`
}

// RenderJSON renders the report as indented JSON with the derived status
// made explicit.
func RenderJSON(report *model.Report) ([]byte, error) {
	return json.MarshalIndent(renderedReport{
		ID:          report.ID,
		ProjectID:   report.ProjectID,
		Type:        report.Type,
		Title:       Title(report.Type),
		Status:      report.Status(),
		GeneratedAt: report.GeneratedAt.Format("2006-01-02T15:04:05Z07:00"),
		Sections:    report.Sections,
	}, "", "  ")
}
