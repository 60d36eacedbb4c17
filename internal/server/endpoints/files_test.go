package endpoints

import (
	"bytes"
	"image/jpeg"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jackzampolin/boighor/internal/storage"
)

func get(t *testing.T, url string, wantStatus int) *http.Response {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	if resp.StatusCode != wantStatus {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("GET %s = %d, want %d: %s", url, resp.StatusCode, wantStatus, body)
	}
	return resp
}

func TestFiles_Download(t *testing.T) {
	h := newHarness(t)
	url, err := h.store.Upload(storage.PDFs, "book.pdf", strings.NewReader("%PDF-1.4 body"))
	if err != nil {
		t.Fatal(err)
	}

	resp := get(t, h.server.URL+url, http.StatusOK)
	body, _ := io.ReadAll(resp.Body)
	if string(body) != "%PDF-1.4 body" {
		t.Errorf("unexpected body %q", body)
	}
	if resp.Header.Get("Cache-Control") == "" {
		t.Error("expected Cache-Control header")
	}

	get(t, h.server.URL+"/files/pdfs/public/missing.pdf", http.StatusNotFound)
	get(t, h.server.URL+"/files/avatars/public/a.png", http.StatusNotFound)
}

func TestFiles_CoverThumbnail(t *testing.T) {
	h := newHarness(t)
	url, err := h.store.Upload(storage.Covers, "cover.png", bytes.NewReader(pngBytes(t, 40, 60)))
	if err != nil {
		t.Fatal(err)
	}

	resp := get(t, h.server.URL+url+"?width=20", http.StatusOK)
	if ct := resp.Header.Get("Content-Type"); ct != "image/jpeg" {
		t.Errorf("Content-Type = %q, want image/jpeg", ct)
	}
	img, err := jpeg.Decode(resp.Body)
	if err != nil {
		t.Fatalf("thumbnail is not a jpeg: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 20 || b.Dy() != 30 {
		t.Errorf("thumbnail size = %dx%d, want 20x30", b.Dx(), b.Dy())
	}

	get(t, h.server.URL+url+"?width=0", http.StatusBadRequest)
	get(t, h.server.URL+url+"?width=abc", http.StatusBadRequest)
}
