// Package ingest inspects uploaded PDFs and adds books to the catalog.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/storage"
)

// Info describes a PDF.
type Info struct {
	PageCount int     `json:"page_count"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
}

// Inspect validates the PDF and reads its page count and first page size in points.
func Inspect(rs io.ReadSeeker) (*Info, error) {
	if err := api.Validate(rs, nil); err != nil {
		return nil, fmt.Errorf("invalid PDF: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	count, err := api.PageCount(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page count: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}
	dims, err := api.PageDims(rs, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to get page dimensions: %w", err)
	}

	info := &Info{PageCount: count}
	if len(dims) > 0 {
		info.Width, info.Height = dims[0].Width, dims[0].Height
	}
	return info, nil
}

// File is one uploaded file.
type File struct {
	Name    string
	Content io.ReadSeeker
}

// Request holds the fields of the add-book form.
type Request struct {
	Title           string
	Author          string
	Genre           string
	Description     string
	PublicationYear int
	Cover           File
	PDF             File
}

// Files is the storage used for uploads.
type Files interface {
	Upload(bucket, name string, r io.Reader) (string, error)
	RemoveURL(bucket, url string) error
}

// Books creates catalog records.
type Books interface {
	Create(ctx context.Context, n catalog.NewBook) (*catalog.Book, error)
}

// Ingester adds books.
type Ingester struct {
	files  Files
	books  Books
	logger *slog.Logger
}

// New creates an Ingester.
func New(files Files, books Books, logger *slog.Logger) *Ingester {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingester{files: files, books: books, logger: logger}
}

// AddBook inspects the PDF, uploads the cover and the PDF, and creates the
// record. Uploaded files are removed again if the record cannot be created.
func (i *Ingester) AddBook(ctx context.Context, req Request) (*catalog.Book, error) {
	if req.PDF.Content == nil || req.Cover.Content == nil {
		return nil, fmt.Errorf("%w: cover and pdf are required", catalog.ErrInvalid)
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = deriveTitle(req.PDF.Name)
	}
	log := i.logger.With("title", title)

	info, err := Inspect(req.PDF.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", catalog.ErrInvalid, err)
	}
	if _, err := req.PDF.Content.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	coverURL, err := i.files.Upload(storage.Covers, req.Cover.Name, req.Cover.Content)
	if err != nil {
		return nil, fmt.Errorf("failed to upload cover: %w", err)
	}
	pdfURL, err := i.files.Upload(storage.PDFs, req.PDF.Name, req.PDF.Content)
	if err != nil {
		i.cleanup(log, storage.Covers, coverURL)
		return nil, fmt.Errorf("failed to upload pdf: %w", err)
	}
	log.Debug("uploaded files", "cover", coverURL, "pdf", pdfURL, "pages", info.PageCount)

	book, err := i.books.Create(ctx, catalog.NewBook{
		Title:           title,
		Author:          req.Author,
		CoverImage:      coverURL,
		PDFURL:          pdfURL,
		Description:     req.Description,
		Genre:           req.Genre,
		PublicationYear: req.PublicationYear,
		PageCount:       info.PageCount,
	})
	if err != nil {
		i.cleanup(log, storage.Covers, coverURL)
		i.cleanup(log, storage.PDFs, pdfURL)
		return nil, err
	}
	log.Info("book added", "book_id", book.ID, "pages", info.PageCount)
	return book, nil
}

func (i *Ingester) cleanup(log *slog.Logger, bucket, url string) {
	if err := i.files.RemoveURL(bucket, url); err != nil {
		log.Warn("failed to remove orphaned upload", "bucket", bucket, "url", url, "error", err)
	}
}

// ErrNoText is returned when the first pages contain no extractable text.
var ErrNoText = errors.New("no text found")

var (
	numberSuffix = regexp.MustCompile(`-(\d+)\.pdf$`)
	titleSuffix  = regexp.MustCompile(`-\d+$`)
)

// SortPDFsByNumber orders paths by their "-N.pdf" suffix; unnumbered files
// come first, alphabetically.
func SortPDFsByNumber(paths []string) []string {
	sorted := append([]string(nil), paths...)
	sort.SliceStable(sorted, func(i, j int) bool {
		mi := numberSuffix.FindStringSubmatch(sorted[i])
		mj := numberSuffix.FindStringSubmatch(sorted[j])
		switch {
		case mi != nil && mj != nil:
			ni, _ := strconv.Atoi(mi[1])
			nj, _ := strconv.Atoi(mj[1])
			return ni < nj
		case mi != nil:
			return false
		case mj != nil:
			return true
		default:
			return sorted[i] < sorted[j]
		}
	})
	return sorted
}

// deriveTitle strips the directory, extension and any "-N" part number.
func deriveTitle(name string) string {
	base := filepath.Base(name)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return titleSuffix.ReplaceAllString(base, "")
}
