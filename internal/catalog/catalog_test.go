package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/jackzampolin/boighor/internal/defra"
	"github.com/jackzampolin/boighor/internal/storage"
)

// fakeDefra answers GraphQL requests from a fixed book table and records
// every query it sees.
type fakeDefra struct {
	mu      sync.Mutex
	books   map[string]map[string]any
	queries []defra.GQLRequest
}

func newFakeDefra(books ...map[string]any) *fakeDefra {
	f := &fakeDefra{books: make(map[string]map[string]any)}
	for _, b := range books {
		f.books[b["_docID"].(string)] = b
	}
	return f
}

func (f *fakeDefra) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req defra.GQLRequest
	json.NewDecoder(r.Body).Decode(&req)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, req)

	reply := func(key string, docs []map[string]any) {
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{key: docs}})
	}

	switch {
	case strings.HasPrefix(req.Query, "mutation { create_Book"):
		f.books["bae-new"] = map[string]any{"_docID": "bae-new", "title": "নতুন", "rating": float64(0)}
		reply("create_Book", []map[string]any{{"_docID": "bae-new"}})
	case strings.HasPrefix(req.Query, "mutation { update_Book"):
		reply("update_Book", []map[string]any{{"_docID": "x"}})
	case strings.HasPrefix(req.Query, "mutation { delete_Book"):
		for id := range f.books {
			if strings.Contains(req.Query, `"`+id+`"`) {
				delete(f.books, id)
			}
		}
		reply("delete_Book", nil)
	default:
		var docs []map[string]any
		if id, ok := req.Variables["v0"].(string); ok && strings.Contains(req.Query, "_docID: {_eq") {
			if b, ok := f.books[id]; ok {
				docs = append(docs, b)
			}
		} else {
			for _, b := range f.books {
				docs = append(docs, b)
			}
		}
		reply("Book", docs)
	}
}

func (f *fakeDefra) lastQuery() defra.GQLRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[len(f.queries)-1]
}

type recordingFiles struct {
	removed []string
	failOn  string
}

func (r *recordingFiles) RemoveURL(bucket, url string) error {
	if bucket == r.failOn {
		return errors.New("disk on fire")
	}
	r.removed = append(r.removed, bucket+":"+url)
	return nil
}

func setup(t *testing.T, files FileRemover, books ...map[string]any) (*Catalog, *fakeDefra) {
	t.Helper()
	fake := newFakeDefra(books...)
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return New(defra.NewClient(srv.URL), files, nil), fake
}

var sampleBook = map[string]any{
	"_docID":           "bae-1",
	"title":            "পথের পাঁচালী",
	"author":           "বিভূতিভূষণ বন্দ্যোপাধ্যায়",
	"cover_image":      "/files/covers/public/1_cover.png",
	"pdf_url":          "/files/pdfs/public/1_book.pdf",
	"publication_year": float64(1929),
	"page_count":       float64(320),
	"rating":           float64(4),
	"created_at":       "2024-01-01T00:00:00Z",
}

func TestCatalog_Get(t *testing.T) {
	c, _ := setup(t, nil, sampleBook)
	ctx := context.Background()

	b, err := c.Get(ctx, "bae-1")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if b.Title != "পথের পাঁচালী" || b.PublicationYear != 1929 || b.PageCount != 320 || b.Rating != 4 {
		t.Errorf("unexpected book %+v", b)
	}

	if _, err := c.Get(ctx, "bae-missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.Get(ctx, "bad id"); !errors.Is(err, ErrInvalid) {
		t.Errorf("expected ErrInvalid, got %v", err)
	}
}

func TestCatalog_ListQuery(t *testing.T) {
	c, fake := setup(t, nil, sampleBook)

	books, err := c.List(context.Background(), "  পথের ")
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(books) != 1 {
		t.Errorf("expected 1 book, got %d", len(books))
	}
	q := fake.lastQuery()
	if !strings.Contains(q.Query, "order: {created_at: DESC}") {
		t.Errorf("list must be newest first: %s", q.Query)
	}
	if q.Variables["v0"] != "%পথের%" {
		t.Errorf("unexpected search variable %v", q.Variables["v0"])
	}
}

func TestCatalog_ListMatchesSearchLiterally(t *testing.T) {
	// The fake returns every book for a search, like a backend that reads
	// _ as a wildcard.
	c, _ := setup(t, nil,
		map[string]any{"_docID": "bae-1", "title": "a_b notes", "author": "x"},
		map[string]any{"_docID": "bae-2", "title": "axb notes", "author": "x"},
		map[string]any{"_docID": "bae-3", "title": "other", "author": "50% off"},
	)

	tests := []struct {
		query string
		want  []string
	}{
		{"a_b", []string{"bae-1"}},
		{"A_B", []string{"bae-1"}},
		{"50%", []string{"bae-3"}},
		{"notes", []string{"bae-1", "bae-2"}},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			books, err := c.List(context.Background(), tt.query)
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []string
			for _, b := range books {
				got = append(got, b.ID)
			}
			sort.Strings(got)
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("List(%q) = %v, want %v", tt.query, got, tt.want)
			}
		})
	}
}

func TestCatalog_Create(t *testing.T) {
	c, fake := setup(t, nil)

	_, err := c.Create(context.Background(), NewBook{Title: "x"})
	if !errors.Is(err, ErrInvalid) || !strings.Contains(err.Error(), "author, cover_image, pdf_url") {
		t.Errorf("expected missing-field error, got %v", err)
	}

	b, err := c.Create(context.Background(), NewBook{
		Title:      "নতুন",
		Author:     "লেখক",
		CoverImage: "/files/covers/public/c.png",
		PDFURL:     "/files/pdfs/public/p.pdf",
		PageCount:  12,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if b.ID != "bae-new" {
		t.Errorf("unexpected id %s", b.ID)
	}
	create := fake.queries[0].Query
	for _, want := range []string{`description: ""`, "page_count: 12", "rating: 0", "created_at:"} {
		if !strings.Contains(create, want) {
			t.Errorf("create mutation missing %q: %s", want, create)
		}
	}
}

func TestCatalog_UpdateClampsRating(t *testing.T) {
	c, fake := setup(t, nil, sampleBook)
	rating := 9
	summary := "সারাংশ"

	if _, err := c.Update(context.Background(), "bae-1", Update{Rating: &rating, Summary: &summary}); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	var update string
	for _, q := range fake.queries {
		if strings.HasPrefix(q.Query, "mutation { update_Book") {
			update = q.Query
		}
	}
	if !strings.Contains(update, "rating: 5") || !strings.Contains(update, `summary: "সারাংশ"`) {
		t.Errorf("unexpected update mutation: %s", update)
	}
}

func TestClampRating(t *testing.T) {
	for in, want := range map[int]int{-2: 0, 0: 0, 3: 3, 5: 5, 6: 5} {
		if got := ClampRating(in); got != want {
			t.Errorf("ClampRating(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestCatalog_Delete(t *testing.T) {
	t.Run("removes files then record", func(t *testing.T) {
		files := &recordingFiles{}
		c, fake := setup(t, files, sampleBook)

		if err := c.Delete(context.Background(), "bae-1"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		want := []string{
			storage.Covers + ":/files/covers/public/1_cover.png",
			storage.PDFs + ":/files/pdfs/public/1_book.pdf",
		}
		if strings.Join(files.removed, ",") != strings.Join(want, ",") {
			t.Errorf("removed %v, want %v", files.removed, want)
		}
		if len(fake.books) != 0 {
			t.Error("record should be deleted")
		}
	})

	t.Run("file failure keeps record", func(t *testing.T) {
		files := &recordingFiles{failOn: storage.PDFs}
		c, fake := setup(t, files, sampleBook)

		if err := c.Delete(context.Background(), "bae-1"); err == nil {
			t.Fatal("expected error")
		}
		if len(fake.books) != 1 {
			t.Error("record must survive a failed file removal")
		}
	})

	t.Run("missing book", func(t *testing.T) {
		c, _ := setup(t, &recordingFiles{})
		if err := c.Delete(context.Background(), "bae-gone"); err != nil {
			t.Errorf("deleting a missing book should succeed, got %v", err)
		}
	})
}
