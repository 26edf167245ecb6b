package ingest

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/clindraft/clindraft/internal/model"
)

// extractXLSX pulls cell text out of an .xlsx archive: the shared string
// table first, then each worksheet in order. Every sheet becomes one page
// mark so retrieved chunks can name their sheet.
func extractXLSX(path string) (Extraction, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("open xlsx: %w", err)
	}
	defer func() { _ = r.Close() }()

	var (
		shared []string
		sheets []*zip.File
	)
	for _, f := range r.File {
		switch {
		case f.Name == "xl/sharedStrings.xml":
			shared, err = parseSharedStrings(f)
			if err != nil {
				return Extraction{}, err
			}
		case strings.HasPrefix(f.Name, "xl/worksheets/sheet") && strings.HasSuffix(f.Name, ".xml"):
			sheets = append(sheets, f)
		}
	}
	if len(sheets) == 0 {
		return Extraction{}, fmt.Errorf("no worksheets in %s", path)
	}
	sort.Slice(sheets, func(i, j int) bool { return sheetNumber(sheets[i].Name) < sheetNumber(sheets[j].Name) })

	var (
		b       strings.Builder
		pageMap []model.PageMark
	)
	for i, sheet := range sheets {
		sheetText, err := parseSheet(sheet, shared)
		if err != nil {
			return Extraction{}, err
		}
		sheetText = Normalize(sheetText)
		if sheetText == "" {
			continue
		}

		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		pageMap = append(pageMap, model.PageMark{Page: i + 1, Offset: len([]rune(b.String()))})
		b.WriteString(sheetText)
	}

	if b.Len() == 0 {
		return Extraction{}, fmt.Errorf("no text content in %s", path)
	}
	return Extraction{Text: b.String(), PageMap: pageMap}, nil
}

// parseSharedStrings collects the <si> entries of the shared string table.
func parseSharedStrings(f *zip.File) ([]string, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open shared strings: %w", err)
	}
	defer func() { _ = rc.Close() }()

	decoder := xml.NewDecoder(rc)
	var (
		strs    []string
		current strings.Builder
		inSI    bool
		inT     bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse shared strings: %w", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "si":
				inSI = true
				current.Reset()
			case "t":
				inT = inSI
			}
		case xml.CharData:
			if inT {
				current.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inT = false
			case "si":
				inSI = false
				strs = append(strs, current.String())
			}
		}
	}
	return strs, nil
}

// parseSheet renders one worksheet's cells as text, rows separated by
// newlines and cells by spaces. Shared-string cells (t="s") resolve
// through the shared table; other cells keep their literal value.
func parseSheet(f *zip.File, shared []string) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open worksheet %s: %w", f.Name, err)
	}
	defer func() { _ = rc.Close() }()

	decoder := xml.NewDecoder(rc)
	var (
		b        strings.Builder
		value    strings.Builder
		cellType string
		inValue  bool
		rowHas   bool
	)
	for {
		tok, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parse worksheet %s: %w", f.Name, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "row":
				rowHas = false
			case "c":
				cellType = ""
				for _, attr := range t.Attr {
					if attr.Name.Local == "t" {
						cellType = attr.Value
					}
				}
			case "v", "t":
				inValue = true
				value.Reset()
			}
		case xml.CharData:
			if inValue {
				value.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "v", "t":
				inValue = false
				text := value.String()
				if cellType == "s" {
					if idx, err := strconv.Atoi(strings.TrimSpace(text)); err == nil && idx >= 0 && idx < len(shared) {
						text = shared[idx]
					}
				}
				if strings.TrimSpace(text) != "" {
					if rowHas {
						b.WriteByte(' ')
					}
					b.WriteString(text)
					rowHas = true
				}
			case "row":
				if rowHas {
					b.WriteByte('\n')
				}
			}
		}
	}
	return b.String(), nil
}

// sheetNumber extracts the ordinal from names like xl/worksheets/sheet2.xml.
func sheetNumber(name string) int {
	digits := strings.TrimSuffix(strings.TrimPrefix(name, "xl/worksheets/sheet"), ".xml")
	n, err := strconv.Atoi(digits)
	if err != nil {
		return 0
	}
	return n
}
