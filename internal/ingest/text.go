package ingest

import (
	"fmt"
	"io"
	"strings"

	"rsc.io/pdf"
)

// DefaultTextPages is how many leading pages are read for metadata extraction.
const DefaultTextPages = 5

// FirstPagesText returns the text of the first maxPages pages, one page per
// paragraph. Malformed files return an error.
func FirstPagesText(r io.ReaderAt, size int64, maxPages int) (text string, err error) {
	if maxPages <= 0 {
		maxPages = DefaultTextPages
	}
	// rsc.io/pdf panics on many malformed inputs.
	defer func() {
		if p := recover(); p != nil {
			text, err = "", fmt.Errorf("failed to read PDF text: %v", p)
		}
	}()

	doc, err := pdf.NewReader(r, size)
	if err != nil {
		return "", fmt.Errorf("failed to open PDF: %w", err)
	}

	var pages []string
	for i := 1; i <= min(doc.NumPage(), maxPages); i++ {
		p := doc.Page(i)
		if p.V.IsNull() {
			continue
		}
		var b strings.Builder
		for _, t := range p.Content().Text {
			b.WriteString(t.S)
		}
		if s := strings.TrimSpace(b.String()); s != "" {
			pages = append(pages, s)
		}
	}
	if len(pages) == 0 {
		return "", ErrNoText
	}
	return strings.Join(pages, "\n\n"), nil
}
