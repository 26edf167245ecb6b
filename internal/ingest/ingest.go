// Package ingest extracts normalized plain text from the supported source
// formats (PDF, DOCX, XLSX, HTML, TXT). Extraction is per-file and
// isolated: a file that cannot be parsed fails alone.
package ingest

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/clindraft/clindraft/internal/model"
)

// Extraction is the normalized text of one source file plus the page map
// used to trace chunk text back to source pages. Single-page formats
// produce one mark.
type Extraction struct {
	Text    string
	PageMap []model.PageMark
}

// Supported reports whether the file extension is an ingestable format.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".xlsx", ".html", ".htm", ".txt":
		return true
	}
	return false
}

// Extract reads and extracts the file, dispatching on its extension.
func Extract(path string) (Extraction, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".docx":
		return extractDOCX(path)
	case ".xlsx":
		return extractXLSX(path)
	case ".html", ".htm":
		return extractHTML(path)
	case ".txt":
		return extractTXT(path)
	default:
		return Extraction{}, fmt.Errorf("unsupported file type: %s", filepath.Ext(path))
	}
}
