package viewer

import (
	"context"
	"image"
)

// Loader opens a paginated document by URL.
type Loader interface {
	Open(ctx context.Context, url string) (Document, error)
}

// Document is an opened, read-only paginated document. Implementations must
// allow concurrent calls to Page and Render from both surfaces.
type Document interface {
	// PageCount returns the number of pages, at least 1.
	PageCount() int
	// Page returns a 1-indexed page handle.
	Page(ctx context.Context, n int) (Page, error)
	// Close releases the document. It is called once, after every
	// in-flight render has returned.
	Close() error
}

// Page is a single page that can be rasterized at a scale.
type Page interface {
	// Viewport returns the page geometry at the given scale.
	Viewport(scale float64) Viewport
	// Render rasterizes the page. It should return promptly with ctx.Err()
	// once ctx is cancelled.
	Render(ctx context.Context, vp Viewport) (image.Image, error)
}

// Viewport is the pixel geometry of a page at a scale.
type Viewport struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Scale  float64 `json:"scale"`
}

// Surface receives rendered pages.
type Surface interface {
	Draw(page int, img image.Image)
	Clear()
}

// BookmarkStore persists one bookmarked page per document.
type BookmarkStore interface {
	// Bookmark returns the stored page, or ok=false when none is stored.
	Bookmark(ctx context.Context, documentID string) (page int, ok bool, err error)
	SetBookmark(ctx context.Context, documentID string, page int) error
	ClearBookmark(ctx context.Context, documentID string) error
}
