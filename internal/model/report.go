package model

import "time"

// ReportType identifies one of the four generated document types.
type ReportType string

const (
	ReportCEP  ReportType = "CEP"  // Clinical Evaluation Plan
	ReportCER  ReportType = "CER"  // Clinical Evaluation Report
	ReportSSCP ReportType = "SSCP" // Summary of Safety and Clinical Performance
	ReportLSR  ReportType = "LSR"  // Literature Search Report
)

// ReportTypes lists all supported report types.
func ReportTypes() []ReportType {
	return []ReportType{ReportCEP, ReportCER, ReportSSCP, ReportLSR}
}

// SectionStatus tracks generation progress for a single section.
type SectionStatus string

const (
	SectionNotStarted SectionStatus = "not_started"
	SectionGenerating SectionStatus = "generating"
	SectionDone       SectionStatus = "done"
	SectionFailed     SectionStatus = "failed"
)

// ReportStatus is derived from section statuses; both values are terminal
// but Partial reports can have their failed sections regenerated.
type ReportStatus string

const (
	ReportComplete ReportStatus = "complete"
	ReportPartial  ReportStatus = "partial"
)

// ReportSection is one titled unit of a generated report. Its position,
// heading, retrieval query, and preferred categories are fixed by the
// report type's template.
type ReportSection struct {
	Ordinal  int    `json:"ordinal"`
	Heading  string `json:"heading"`
	Query    string `json:"query"`
	// Categories biases retrieval toward the document categories most
	// relevant to this section. Empty means no category filter.
	Categories []Category `json:"categories,omitempty"`

	Text   string        `json:"text,omitempty"`
	Status SectionStatus `json:"status"`
	// ContextChunks records the exact chunk ids used as context, for
	// traceability and audit.
	ContextChunks []string `json:"context_chunks,omitempty"`
	FailReason    string   `json:"fail_reason,omitempty"`
}

// Report is a project's generated document of a given type: the ordered
// section list plus the derived overall status.
type Report struct {
	ID          string          `json:"id"`
	ProjectID   string          `json:"project_id"`
	Type        ReportType      `json:"type"`
	Sections    []ReportSection `json:"sections"`
	GeneratedAt time.Time       `json:"generated_at"`
}

// Status derives the report status from its sections: Complete iff every
// section is Done, otherwise Partial.
func (r *Report) Status() ReportStatus {
	for _, s := range r.Sections {
		if s.Status != SectionDone {
			return ReportPartial
		}
	}
	return ReportComplete
}

// FailedSections returns the ordinals of sections that failed generation.
func (r *Report) FailedSections() []int {
	var failed []int
	for _, s := range r.Sections {
		if s.Status == SectionFailed {
			failed = append(failed, s.Ordinal)
		}
	}
	return failed
}
