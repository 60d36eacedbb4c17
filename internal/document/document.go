// Package document opens PDFs for the viewer and rasterizes their pages
// with MuPDF.
package document

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	fitz "github.com/gen2brain/go-fitz"

	"github.com/jackzampolin/boighor/internal/viewer"
)

// pointsPerInch is the PDF user-space resolution; MuPDF bounds are reported in points.
const pointsPerInch = 72.0

// DefaultMaxBytes caps remote downloads.
const DefaultMaxBytes = 512 << 20

// Resolver maps a storage URL (e.g. /files/pdfs/public/x.pdf) to a local path.
type Resolver interface {
	LocalPath(url string) (string, bool)
}

// LoaderConfig configures a Loader.
type LoaderConfig struct {
	HTTPClient *http.Client
	Resolver   Resolver
	MaxBytes   int64
	Logger     *slog.Logger
}

// Loader opens documents from http(s) URLs, storage URLs and local paths.
type Loader struct {
	client   *http.Client
	resolver Resolver
	maxBytes int64
	logger   *slog.Logger
}

// NewLoader creates a Loader.
func NewLoader(cfg LoaderConfig) *Loader {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loader{
		client:   cfg.HTTPClient,
		resolver: cfg.Resolver,
		maxBytes: cfg.MaxBytes,
		logger:   cfg.Logger,
	}
}

// Open implements viewer.Loader.
func (l *Loader) Open(ctx context.Context, url string) (viewer.Document, error) {
	if url == "" {
		return nil, errors.New("empty document url")
	}

	if isRemote(url) {
		data, err := l.fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		doc, err := fitz.NewFromMemory(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		return newDocument(doc), nil
	}

	path := url
	if l.resolver != nil {
		if p, ok := l.resolver.LocalPath(url); ok {
			path = p
		} else if strings.HasPrefix(url, "/files/") {
			return nil, fmt.Errorf("unknown storage url: %s", url)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := fitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open document %s: %w", path, err)
	}
	return newDocument(doc), nil
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch document: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	if int64(len(data)) > l.maxBytes {
		return nil, fmt.Errorf("document exceeds %d bytes", l.maxBytes)
	}
	l.logger.Debug("fetched document", "url", url, "bytes", len(data))
	return data, nil
}

func isRemote(url string) bool {
	return strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")
}

// rasterizer is the subset of *fitz.Document used by pages.
type rasterizer interface {
	NumPage() int
	Bound(pageNumber int) (image.Rectangle, error)
	ImageDPI(pageNumber int, dpi float64) (*image.RGBA, error)
	Close() error
}

// Document is an open PDF. MuPDF contexts are not safe for concurrent use,
// so every call into the rasterizer is serialized.
type Document struct {
	mu     sync.Mutex
	r      rasterizer
	pages  int
	closed bool
}

func newDocument(r rasterizer) *Document {
	return &Document{r: r, pages: r.NumPage()}
}

// PageCount implements viewer.Document.
func (d *Document) PageCount() int { return d.pages }

// Page implements viewer.Document.
func (d *Document) Page(ctx context.Context, n int) (viewer.Page, error) {
	if n < 1 || n > d.pages {
		return nil, fmt.Errorf("page %d out of range 1-%d", n, d.pages)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, viewer.ErrClosed
	}
	bounds, err := d.r.Bound(n - 1)
	if err != nil {
		return nil, fmt.Errorf("failed to read page %d bounds: %w", n, err)
	}
	return &Page{
		doc:    d,
		index:  n - 1,
		width:  float64(bounds.Dx()),
		height: float64(bounds.Dy()),
	}, nil
}

// Close implements viewer.Document.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.r.Close()
}

// Page is one page of a Document.
type Page struct {
	doc    *Document
	index  int
	width  float64
	height float64
}

// Viewport implements viewer.Page.
func (p *Page) Viewport(scale float64) viewer.Viewport {
	return viewer.Viewport{
		Width:  p.width * scale,
		Height: p.height * scale,
		Scale:  scale,
	}
}

// Render implements viewer.Page. MuPDF cannot be interrupted mid-page, so
// cancellation is checked before and after rasterization.
func (p *Page) Render(ctx context.Context, vp viewer.Viewport) (image.Image, error) {
	if vp.Scale <= 0 {
		return nil, fmt.Errorf("invalid scale %v", vp.Scale)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.doc.mu.Lock()
	if p.doc.closed {
		p.doc.mu.Unlock()
		return nil, viewer.ErrClosed
	}
	img, err := p.doc.r.ImageDPI(p.index, pointsPerInch*vp.Scale)
	p.doc.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to rasterize page %d: %w", p.index+1, err)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

var (
	_ viewer.Loader   = (*Loader)(nil)
	_ viewer.Document = (*Document)(nil)
	_ viewer.Page     = (*Page)(nil)
)
