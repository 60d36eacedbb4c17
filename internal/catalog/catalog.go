// Package catalog stores book records in DefraDB.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/jackzampolin/boighor/internal/defra"
	"github.com/jackzampolin/boighor/internal/storage"
)

// Collection is the DefraDB collection holding books.
const Collection = "Book"

// MaxRating is the highest star rating.
const MaxRating = 5

var (
	// ErrNotFound is returned when no book has the requested id.
	ErrNotFound = errors.New("book not found")
	// ErrInvalid is returned for malformed input.
	ErrInvalid = errors.New("invalid book")
)

// Book is one catalog entry.
type Book struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	CoverImage      string `json:"cover_image"`
	Description     string `json:"description"`
	PDFURL          string `json:"pdf_url"`
	Summary         string `json:"summary,omitempty"`
	AuthorIntro     string `json:"author_intro,omitempty"`
	Genre           string `json:"genre,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
	Rating          int    `json:"rating"`
	CreatedAt       string `json:"created_at"`
}

// bookFields is the selection used by every read.
var bookFields = []string{
	"_docID", "title", "author", "cover_image", "description", "pdf_url",
	"summary", "author_intro", "genre", "publication_year", "page_count",
	"rating", "created_at",
}

// NewBook holds the fields accepted on creation.
type NewBook struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	CoverImage      string `json:"cover_image"`
	PDFURL          string `json:"pdf_url"`
	Description     string `json:"description,omitempty"`
	Genre           string `json:"genre,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
	PageCount       int    `json:"page_count,omitempty"`
}

// Validate checks required fields.
func (n NewBook) Validate() error {
	var missing []string
	for name, v := range map[string]string{
		"title":       n.Title,
		"author":      n.Author,
		"cover_image": n.CoverImage,
		"pdf_url":     n.PDFURL,
	} {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		slices.Sort(missing)
		return fmt.Errorf("%w: missing %s", ErrInvalid, strings.Join(missing, ", "))
	}
	return nil
}

// Update is a partial update; nil fields are left unchanged.
type Update struct {
	Title           *string `json:"title,omitempty"`
	Author          *string `json:"author,omitempty"`
	Description     *string `json:"description,omitempty"`
	Summary         *string `json:"summary,omitempty"`
	AuthorIntro     *string `json:"author_intro,omitempty"`
	Genre           *string `json:"genre,omitempty"`
	PublicationYear *int    `json:"publication_year,omitempty"`
	Rating          *int    `json:"rating,omitempty"`
}

func (u Update) fields() map[string]any {
	out := make(map[string]any)
	set := func(name string, v *string) {
		if v != nil {
			out[name] = *v
		}
	}
	set("title", u.Title)
	set("author", u.Author)
	set("description", u.Description)
	set("summary", u.Summary)
	set("author_intro", u.AuthorIntro)
	set("genre", u.Genre)
	if u.PublicationYear != nil {
		out["publication_year"] = *u.PublicationYear
	}
	if u.Rating != nil {
		out["rating"] = ClampRating(*u.Rating)
	}
	return out
}

// ClampRating limits r to 0..MaxRating.
func ClampRating(r int) int {
	return min(max(r, 0), MaxRating)
}

// FileRemover deletes stored files by public URL.
type FileRemover interface {
	RemoveURL(bucket, url string) error
}

// Catalog reads and writes books.
type Catalog struct {
	client *defra.Client
	files  FileRemover
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Catalog. files may be nil when deletes should leave files alone.
func New(client *defra.Client, files FileRemover, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{client: client, files: files, logger: logger, now: time.Now}
}

// List returns books newest first. A non-empty query keeps books whose
// title or author contains it, ignoring case.
func (c *Catalog) List(ctx context.Context, query string) ([]Book, error) {
	q := defra.NewQuery(Collection).
		MatchAny(strings.TrimSpace(query), "title", "author").
		OrderBy("created_at", "DESC").
		Fields(bookFields...)
	docs, err := q.Run(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	books := make([]Book, 0, len(docs))
	for _, d := range docs {
		books = append(books, bookFromDoc(d))
	}
	return books, nil
}

// Get returns one book.
func (c *Catalog) Get(ctx context.Context, id string) (*Book, error) {
	if err := defra.ValidateID(id); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	docs, err := defra.NewQuery(Collection).Where("_docID", id).Fields(bookFields...).Run(ctx, c.client)
	if err != nil {
		return nil, fmt.Errorf("failed to get book %s: %w", id, err)
	}
	if len(docs) == 0 {
		return nil, ErrNotFound
	}
	b := bookFromDoc(docs[0])
	return &b, nil
}

// Create inserts a book and returns it.
func (c *Catalog) Create(ctx context.Context, n NewBook) (*Book, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}
	input := map[string]any{
		"title":       n.Title,
		"author":      n.Author,
		"cover_image": n.CoverImage,
		"pdf_url":     n.PDFURL,
		"description": n.Description,
		"rating":      0,
		"created_at":  c.now().UTC().Format(time.RFC3339Nano),
	}
	if n.Genre != "" {
		input["genre"] = n.Genre
	}
	if n.PublicationYear > 0 {
		input["publication_year"] = n.PublicationYear
	}
	if n.PageCount > 0 {
		input["page_count"] = n.PageCount
	}

	id, err := c.client.Create(ctx, Collection, input)
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	c.logger.Info("book created", "book_id", id, "title", n.Title)
	return c.Get(ctx, id)
}

// Update applies u and returns the updated book.
func (c *Catalog) Update(ctx context.Context, id string, u Update) (*Book, error) {
	if _, err := c.Get(ctx, id); err != nil {
		return nil, err
	}
	fields := u.fields()
	if len(fields) == 0 {
		return c.Get(ctx, id)
	}
	if err := c.client.Update(ctx, Collection, id, fields); err != nil {
		return nil, fmt.Errorf("failed to update book %s: %w", id, err)
	}
	return c.Get(ctx, id)
}

// Delete removes the cover and PDF, then the record. The record is kept if
// a file could not be removed. A missing book is not an error.
func (c *Catalog) Delete(ctx context.Context, id string) error {
	book, err := c.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		c.logger.Warn("book not found for deletion", "book_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to fetch book details before deleting: %w", err)
	}

	if c.files != nil {
		if err := c.files.RemoveURL(storage.Covers, book.CoverImage); err != nil {
			return err
		}
		if err := c.files.RemoveURL(storage.PDFs, book.PDFURL); err != nil {
			return err
		}
	}

	if err := c.client.Delete(ctx, Collection, id); err != nil {
		return fmt.Errorf("failed to delete book record: %w", err)
	}
	c.logger.Info("book deleted", "book_id", id)
	return nil
}

func bookFromDoc(d map[string]any) Book {
	str := func(k string) string {
		s, _ := d[k].(string)
		return s
	}
	num := func(k string) int {
		switch v := d[k].(type) {
		case float64:
			return int(v)
		case int:
			return v
		}
		return 0
	}
	return Book{
		ID:              str("_docID"),
		Title:           str("title"),
		Author:          str("author"),
		CoverImage:      str("cover_image"),
		Description:     str("description"),
		PDFURL:          str("pdf_url"),
		Summary:         str("summary"),
		AuthorIntro:     str("author_intro"),
		Genre:           str("genre"),
		PublicationYear: num("publication_year"),
		PageCount:       num("page_count"),
		Rating:          num("rating"),
		CreatedAt:       str("created_at"),
	}
}
