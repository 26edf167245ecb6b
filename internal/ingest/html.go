package ingest

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/net/html"

	"github.com/clindraft/clindraft/internal/model"
)

// blockTags end a line when their element closes, so extracted text keeps
// paragraph structure instead of becoming one long line.
var blockTags = map[string]bool{
	"p": true, "div": true, "section": true, "article": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"li": true, "tr": true, "br": true, "table": true, "ul": true, "ol": true,
}

// extractHTML parses the file and walks visible text nodes, skipping
// script and style content.
func extractHTML(path string) (Extraction, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Extraction{}, fmt.Errorf("read html: %w", err)
	}

	doc, err := html.Parse(strings.NewReader(string(data)))
	if err != nil {
		return Extraction{}, fmt.Errorf("parse html: %w", err)
	}

	text := Normalize(visibleText(doc))
	if text == "" {
		return Extraction{}, fmt.Errorf("no text content in %s", path)
	}
	return Extraction{
		Text:    text,
		PageMap: []model.PageMark{{Page: 1, Offset: 0}},
	}, nil
}

// visibleText collects text nodes, skipping script, style, and other
// non-content elements.
func visibleText(n *html.Node) string {
	var b strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "iframe", "head":
				return
			}
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				b.WriteString(text)
				b.WriteByte(' ')
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}

		if n.Type == html.ElementNode && blockTags[n.Data] {
			b.WriteByte('\n')
		}
	}

	walk(n)
	return b.String()
}
