package ingest

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/storage"
	"github.com/jackzampolin/boighor/internal/testutil"
)

func TestSortPDFsByNumber(t *testing.T) {
	tests := []struct {
		name     string
		input    []string
		expected []string
	}{
		{
			name:     "already sorted",
			input:    []string{"book-1.pdf", "book-2.pdf", "book-3.pdf"},
			expected: []string{"book-1.pdf", "book-2.pdf", "book-3.pdf"},
		},
		{
			name:     "double digits",
			input:    []string{"book-10.pdf", "book-2.pdf", "book-1.pdf"},
			expected: []string{"book-1.pdf", "book-2.pdf", "book-10.pdf"},
		},
		{
			name:     "unnumbered first",
			input:    []string{"b-2.pdf", "zeta.pdf", "alpha.pdf", "b-1.pdf"},
			expected: []string{"alpha.pdf", "zeta.pdf", "b-1.pdf", "b-2.pdf"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SortPDFsByNumber(tt.input)
			if strings.Join(got, ",") != strings.Join(tt.expected, ",") {
				t.Errorf("got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestDeriveTitle(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"/path/to/pother-panchali.pdf", "pother-panchali"},
		{"/path/to/gitanjali-1.pdf", "gitanjali"},
		{"/path/to/gitanjali-10.pdf", "gitanjali"},
		{"আরণ্যক.pdf", "আরণ্যক"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := deriveTitle(tt.input); got != tt.expected {
				t.Errorf("got %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestInspect(t *testing.T) {
	info, err := Inspect(bytes.NewReader(testutil.PDF("one", "two", "three")))
	if err != nil {
		t.Fatalf("Inspect() error = %v", err)
	}
	if info.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", info.PageCount)
	}
	if info.Width != 612 || info.Height != 792 {
		t.Errorf("size = %vx%v, want 612x792", info.Width, info.Height)
	}

	if _, err := Inspect(strings.NewReader("not a pdf")); err == nil {
		t.Error("expected error for garbage input")
	}
}

func TestFirstPagesText(t *testing.T) {
	data := testutil.PDF("Pather", "Panchali", "Chapter3", "Chapter4", "Chapter5", "Chapter6")

	text, err := FirstPagesText(bytes.NewReader(data), int64(len(data)), 2)
	if err != nil {
		t.Fatalf("FirstPagesText() error = %v", err)
	}
	if !strings.Contains(text, "Pather") || !strings.Contains(text, "Panchali") {
		t.Errorf("missing page text: %q", text)
	}
	if strings.Contains(text, "Chapter3") {
		t.Errorf("read past maxPages: %q", text)
	}

	text, err = FirstPagesText(bytes.NewReader(data), int64(len(data)), 0)
	if err != nil {
		t.Fatalf("FirstPagesText() error = %v", err)
	}
	if !strings.Contains(text, "Chapter5") || strings.Contains(text, "Chapter6") {
		t.Errorf("default should read %d pages: %q", DefaultTextPages, text)
	}

	garbage := []byte("%PDF-1.4\nnothing here")
	if _, err := FirstPagesText(bytes.NewReader(garbage), int64(len(garbage)), 1); err == nil {
		t.Error("expected error for malformed PDF")
	}
}

type memFiles struct {
	uploads map[string]string
	removed []string
	failOn  string
}

func (m *memFiles) Upload(bucket, name string, r io.Reader) (string, error) {
	if bucket == m.failOn {
		return "", errors.New("bucket full")
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	if m.uploads == nil {
		m.uploads = make(map[string]string)
	}
	url := storage.URLPrefix + bucket + "/public/" + storage.Sanitize(name)
	m.uploads[bucket] = url
	return url, nil
}

func (m *memFiles) RemoveURL(bucket, url string) error {
	m.removed = append(m.removed, bucket+":"+url)
	return nil
}

type memBooks struct {
	created []catalog.NewBook
	err     error
}

func (m *memBooks) Create(_ context.Context, n catalog.NewBook) (*catalog.Book, error) {
	if m.err != nil {
		return nil, m.err
	}
	if err := n.Validate(); err != nil {
		return nil, err
	}
	m.created = append(m.created, n)
	return &catalog.Book{ID: "bae-1", Title: n.Title, Author: n.Author, PDFURL: n.PDFURL, CoverImage: n.CoverImage, PageCount: n.PageCount}, nil
}

func request(title string) Request {
	return Request{
		Title:  title,
		Author: "Bibhutibhushan",
		Cover:  File{Name: "cover.png", Content: strings.NewReader("png")},
		PDF:    File{Name: "pather-panchali-1.pdf", Content: bytes.NewReader(testutil.PDF("a", "b"))},
	}
}

func TestIngester_AddBook(t *testing.T) {
	t.Run("uploads and creates", func(t *testing.T) {
		files, books := &memFiles{}, &memBooks{}
		ing := New(files, books, testutil.DiscardLogger())

		book, err := ing.AddBook(context.Background(), request(""))
		if err != nil {
			t.Fatalf("AddBook() error = %v", err)
		}
		if book.Title != "pather-panchali" {
			t.Errorf("title should fall back to file name, got %q", book.Title)
		}
		if book.PageCount != 2 {
			t.Errorf("PageCount = %d, want 2", book.PageCount)
		}
		if book.PDFURL != "/files/pdfs/public/pather-panchali-1.pdf" || book.CoverImage != "/files/covers/public/cover.png" {
			t.Errorf("unexpected urls %q %q", book.PDFURL, book.CoverImage)
		}
		if len(files.removed) != 0 {
			t.Errorf("nothing should be removed, got %v", files.removed)
		}
	})

	t.Run("invalid pdf uploads nothing", func(t *testing.T) {
		files := &memFiles{}
		ing := New(files, &memBooks{}, testutil.DiscardLogger())
		req := request("x")
		req.PDF.Content = strings.NewReader("garbage")

		_, err := ing.AddBook(context.Background(), req)
		if !errors.Is(err, catalog.ErrInvalid) {
			t.Errorf("expected ErrInvalid, got %v", err)
		}
		if len(files.uploads) != 0 {
			t.Errorf("no uploads expected, got %v", files.uploads)
		}
	})

	t.Run("pdf upload failure removes cover", func(t *testing.T) {
		files := &memFiles{failOn: storage.PDFs}
		ing := New(files, &memBooks{}, testutil.DiscardLogger())

		if _, err := ing.AddBook(context.Background(), request("x")); err == nil {
			t.Fatal("expected error")
		}
		if len(files.removed) != 1 || !strings.HasPrefix(files.removed[0], storage.Covers+":") {
			t.Errorf("cover should be cleaned up, removed %v", files.removed)
		}
	})

	t.Run("create failure removes both", func(t *testing.T) {
		files := &memFiles{}
		ing := New(files, &memBooks{err: errors.New("defra down")}, testutil.DiscardLogger())

		if _, err := ing.AddBook(context.Background(), request("x")); err == nil {
			t.Fatal("expected error")
		}
		if len(files.removed) != 2 {
			t.Errorf("expected both uploads removed, got %v", files.removed)
		}
	})

	t.Run("missing files", func(t *testing.T) {
		ing := New(&memFiles{}, &memBooks{}, nil)
		_, err := ing.AddBook(context.Background(), Request{Title: "x", Author: "y"})
		if !errors.Is(err, catalog.ErrInvalid) {
			t.Errorf("expected ErrInvalid, got %v", err)
		}
	})
}
