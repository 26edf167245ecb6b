package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"strings"

	"github.com/clindraft/clindraft/internal/model"
)

// extractDOCX pulls paragraph text out of word/document.xml inside the
// .docx archive. DOCX has no fixed pagination, so the whole document is
// one page mark.
func extractDOCX(path string) (Extraction, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("open docx: %w", err)
	}
	defer func() { _ = r.Close() }()

	var docFile *zip.File
	for _, f := range r.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return Extraction{}, fmt.Errorf("word/document.xml not found in %s", path)
	}

	rc, err := docFile.Open()
	if err != nil {
		return Extraction{}, fmt.Errorf("open document.xml: %w", err)
	}
	defer func() { _ = rc.Close() }()

	decoder := xml.NewDecoder(rc)
	var (
		paragraphs  []string
		current     strings.Builder
		inParagraph bool
		inText      bool
	)
	for {
		tok, err := decoder.Token()
		if err != nil {
			break
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "p":
				inParagraph = true
				current.Reset()
			case "t":
				inText = inParagraph
			case "tab":
				if inParagraph {
					current.WriteByte(' ')
				}
			case "br":
				if inParagraph {
					current.WriteByte('\n')
				}
			}
		case xml.CharData:
			if inText {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				inParagraph = false
				if text := strings.TrimSpace(current.String()); text != "" {
					paragraphs = append(paragraphs, text)
				}
			}
		}
	}

	text := Normalize(strings.Join(paragraphs, "\n\n"))
	if text == "" {
		return Extraction{}, fmt.Errorf("no text content in %s", path)
	}
	return Extraction{
		Text:    text,
		PageMap: []model.PageMark{{Page: 1, Offset: 0}},
	}, nil
}
