package ingest

import (
	"fmt"
	"os"
	"strings"
	"unicode"

	"github.com/clindraft/clindraft/internal/model"
)

// extractTXT reads a plain-text file as a single page.
func extractTXT(path string) (Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("read text file: %w", err)
	}

	text := Normalize(string(data))
	if text == "" {
		return Extraction{}, fmt.Errorf("no text content in %s", path)
	}
	return Extraction{
		Text:    text,
		PageMap: []model.PageMark{{Page: 1, Offset: 0}},
	}, nil
}

// Normalize canonicalizes extracted text: Unix line endings, no control
// characters, horizontal whitespace runs collapsed to one space, and at
// most one blank line between paragraphs. Identical input always yields
// identical output, which the chunker's determinism depends on.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	var b strings.Builder
	b.Grow(len(text))

	newlines := 0
	pendingSpace := false
	for _, r := range text {
		switch {
		case r == '\n':
			newlines++
			pendingSpace = false
			if newlines <= 2 && b.Len() > 0 {
				b.WriteByte('\n')
			}
		case unicode.IsSpace(r):
			pendingSpace = b.Len() > 0 && newlines == 0
		case unicode.IsControl(r):
			// drop
		default:
			if pendingSpace {
				b.WriteByte(' ')
				pendingSpace = false
			}
			newlines = 0
			b.WriteRune(r)
		}
	}

	return strings.TrimRight(b.String(), "\n")
}
