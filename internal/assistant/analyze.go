package assistant

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackzampolin/boighor/internal/ingest"
)

// ErrUnsupportedFile is returned by AnalyzeFile for files that are neither
// images nor PDFs.
var ErrUnsupportedFile = errors.New("unsupported file type")

// Analysis is the outcome of AnalyzeFile.
type Analysis struct {
	BookInfo
	// PageCount is set for PDFs.
	PageCount int `json:"page_count,omitempty"`
}

// AnalyzeFile reads book details from an uploaded file. Images go straight
// to extraction. For PDFs the page count is read and the text of the first
// pages is extracted; a PDF without text yields only the page count.
func (a *Assistant) AnalyzeFile(ctx context.Context, name, mimeType string, data []byte) (*Analysis, error) {
	log := a.logger.With("file", name, "mime", mimeType)

	switch {
	case strings.HasPrefix(mimeType, "image/"):
		info, err := a.ExtractBookInfo(ctx, Part{MIMEType: mimeType, Data: data})
		if err != nil {
			return nil, err
		}
		return &Analysis{BookInfo: *info}, nil

	case mimeType == "application/pdf":
		meta, err := ingest.Inspect(bytes.NewReader(data))
		if err != nil {
			return nil, &ExtractionError{Err: err}
		}
		out := &Analysis{PageCount: meta.PageCount}

		text, err := ingest.FirstPagesText(bytes.NewReader(data), int64(len(data)), ingest.DefaultTextPages)
		if errors.Is(err, ingest.ErrNoText) {
			log.Debug("no text in first pages", "pages", meta.PageCount)
			return out, nil
		}
		if err != nil {
			return nil, &ExtractionError{Err: err}
		}

		info, err := a.ExtractBookInfo(ctx, Part{Text: text})
		if err != nil {
			return nil, err
		}
		out.BookInfo = *info
		return out, nil

	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFile, mimeType)
	}
}
