package endpoints

import (
	"net/http"
	"strings"
	"testing"

	"github.com/jackzampolin/boighor/internal/assistant"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/storage"
	"github.com/jackzampolin/boighor/internal/testutil"
)

func TestBooks_ListAndGet(t *testing.T) {
	h := newHarness(t)
	h.addBook("bae-1", "পথের পাঁচালী", "বিভূতিভূষণ", "/files/pdfs/public/a.pdf")
	h.addBook("bae-2", "দেবদাস", "শরৎচন্দ্র", "/files/pdfs/public/b.pdf")

	var list ListBooksResponse
	h.do(t, http.MethodGet, "/api/books", nil, http.StatusOK, &list)
	if list.Total != 2 || len(list.Books) != 2 {
		t.Errorf("expected 2 books, got %+v", list)
	}

	h.do(t, http.MethodGet, "/api/books?q=%E0%A6%B6%E0%A6%B0%E0%A7%8E", nil, http.StatusOK, &list)
	if list.Total != 1 || list.Books[0].ID != "bae-2" {
		t.Errorf("search should match the author, got %+v", list)
	}

	var book catalog.Book
	h.do(t, http.MethodGet, "/api/books/bae-1", nil, http.StatusOK, &book)
	if book.Title != "পথের পাঁচালী" {
		t.Errorf("unexpected book %+v", book)
	}

	h.do(t, http.MethodGet, "/api/books/bae-404", nil, http.StatusNotFound, nil)
	h.do(t, http.MethodGet, "/api/books/bad$id", nil, http.StatusBadRequest, nil)
}

func TestBooks_Create(t *testing.T) {
	h := newHarness(t)
	pdf := string(testutil.PDF("one", "two", "three"))
	cover := string(pngBytes(t, 4, 6))

	var book catalog.Book
	h.upload(t, "/api/books",
		map[string]string{"author": "রবীন্দ্রনাথ", "genre": "কবিতা", "publicationYear": "1910"},
		map[string][2]string{"cover": {"cover.png", cover}, "pdf": {"gitanjali-1.pdf", pdf}},
		http.StatusCreated, &book)

	if book.ID == "" || book.Author != "রবীন্দ্রনাথ" || book.PublicationYear != 1910 {
		t.Errorf("unexpected book %+v", book)
	}
	if book.PageCount != 3 {
		t.Errorf("PageCount = %d, want 3", book.PageCount)
	}
	if book.Title == "" {
		t.Error("title should be derived from the pdf name")
	}
	for bucket, url := range map[string]string{storage.Covers: book.CoverImage, storage.PDFs: book.PDFURL} {
		if !strings.HasPrefix(url, storage.URLPrefix+bucket+"/") {
			t.Errorf("%s url %q not in bucket", bucket, url)
		}
		if _, ok := h.store.LocalPath(url); !ok {
			t.Errorf("%s url %q does not resolve", bucket, url)
		}
	}
}

func TestBooks_CreateRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	cover := string(pngBytes(t, 2, 2))

	tests := []struct {
		name   string
		fields map[string]string
		files  map[string][2]string
	}{
		{"missing pdf", map[string]string{"author": "a"}, map[string][2]string{"cover": {"c.png", cover}}},
		{"missing cover", map[string]string{"author": "a"}, map[string][2]string{"pdf": {"b.pdf", string(testutil.PDF("x"))}}},
		{"bad year", map[string]string{"author": "a", "publication_year": "soon"}, map[string][2]string{"cover": {"c.png", cover}, "pdf": {"b.pdf", string(testutil.PDF("x"))}}},
		{"not a pdf", map[string]string{"author": "a"}, map[string][2]string{"cover": {"c.png", cover}, "pdf": {"b.pdf", "hello"}}},
		{"missing author", map[string]string{"title": "t"}, map[string][2]string{"cover": {"c.png", cover}, "pdf": {"b.pdf", string(testutil.PDF("x"))}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h.upload(t, "/api/books", tt.fields, tt.files, http.StatusBadRequest, nil)
		})
	}
	if docs := h.fake.Docs(catalog.Collection); len(docs) != 0 {
		t.Errorf("no record should be created, got %d", len(docs))
	}
}

func TestBooks_UpdateAndDelete(t *testing.T) {
	h := newHarness(t)
	h.addBook("bae-1", "আরণ্যক", "বিভূতিভূষণ", "/files/pdfs/public/a.pdf")

	var book catalog.Book
	h.do(t, http.MethodPatch, "/api/books/bae-1", map[string]any{"rating": 7, "genre": "উপন্যাস"}, http.StatusOK, &book)
	if book.Rating != catalog.MaxRating || book.Genre != "উপন্যাস" {
		t.Errorf("unexpected update result %+v", book)
	}
	h.do(t, http.MethodPatch, "/api/books/bae-9", map[string]any{"rating": 1}, http.StatusNotFound, nil)

	h.do(t, http.MethodDelete, "/api/books/bae-1", nil, http.StatusNoContent, nil)
	if docs := h.fake.Docs(catalog.Collection); len(docs) != 0 {
		t.Errorf("book should be deleted, %d left", len(docs))
	}
	h.do(t, http.MethodDelete, "/api/books/bae-1", nil, http.StatusNoContent, nil)
}

func TestBooks_Generate(t *testing.T) {
	h := newHarness(t)
	h.addBook("bae-1", "আরণ্যক", "বিভূতিভূষণ", "/files/pdfs/public/a.pdf")
	h.llm.ResponseText = " অরণ্যের গল্প \n"

	var resp GenerateResponse
	h.do(t, http.MethodPost, "/api/books/bae-1/generate", GenerateRequest{Kind: "authorIntro"}, http.StatusOK, &resp)
	if resp.Text != "অরণ্যের গল্প" || resp.Kind != string(assistant.KindAuthorIntro) {
		t.Errorf("unexpected response %+v", resp)
	}
	if resp.Book == nil || resp.Book.AuthorIntro != "অরণ্যের গল্প" {
		t.Errorf("author intro not stored: %+v", resp.Book)
	}

	h.do(t, http.MethodPost, "/api/books/bae-1/generate", GenerateRequest{Kind: "poem"}, http.StatusBadRequest, nil)
	h.do(t, http.MethodPost, "/api/books/bae-2/generate", GenerateRequest{Kind: "summary"}, http.StatusNotFound, nil)

	h.llm.ShouldFail = true
	var errResp ErrorResponse
	h.do(t, http.MethodPost, "/api/books/bae-1/generate", GenerateRequest{Kind: "summary"}, http.StatusBadGateway, &errResp)
	if errResp.Error != "Failed to generate summary. Please try again." {
		t.Errorf("unexpected error message %q", errResp.Error)
	}
}

func TestBooks_Analyze(t *testing.T) {
	h := newHarness(t)
	h.llm.ResponseText = `{"title":"গীতাঞ্জলি","author":"রবীন্দ্রনাথ ঠাকুর","genre":"কবিতা","publicationYear":1910}`

	var analysis assistant.Analysis
	h.upload(t, "/api/books/analyze", nil,
		map[string][2]string{"file": {"cover.png", string(pngBytes(t, 4, 4))}},
		http.StatusOK, &analysis)
	if analysis.Title != "গীতাঞ্জলি" || analysis.PublicationYear != 1910 {
		t.Errorf("unexpected analysis %+v", analysis)
	}
	if got := h.llm.LastRequest().Messages; len(got) == 0 {
		t.Error("model was not called")
	}

	h.upload(t, "/api/books/analyze", nil, nil, http.StatusBadRequest, nil)
	h.upload(t, "/api/books/analyze", nil,
		map[string][2]string{"file": {"notes.txt", "plain words"}},
		http.StatusBadRequest, nil)
}
