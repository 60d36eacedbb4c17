package storage

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"strings"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(Config{
		Root:    t.TempDir(),
		BaseURL: "http://library.test/",
		Now:     func() time.Time { return time.UnixMilli(1700000000123) },
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"book.pdf", "book.pdf"},
		{"my book (1).pdf", "my_book__1_.pdf"},
		{"পথের পাঁচালী.pdf", "পথের_পাঁচালী.pdf"},
		{"a/b\\c.png", "a_b_c.png"},
		{"naïve.jpg", "na_ve.jpg"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Sanitize(tt.in); got != tt.want {
			t.Errorf("Sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPathFromURL(t *testing.T) {
	tests := []struct {
		name   string
		url    string
		bucket string
		want   string
		wantOK bool
	}{
		{"absolute", "http://library.test/files/covers/public/1_a.png", Covers, "public/1_a.png", true},
		{"relative", "/files/pdfs/public/1_b.pdf", PDFs, "public/1_b.pdf", true},
		{"encoded", "/files/pdfs/public/1_%E0%A6%AA.pdf", PDFs, "public/1_প.pdf", true},
		{"other bucket", "/files/covers/public/1_a.png", PDFs, "", false},
		{"no object", "/files/covers/", Covers, "", false},
		{"unparseable", "http://[::1", Covers, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := PathFromURL(tt.url, tt.bucket)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("PathFromURL() = %q, %v; want %q, %v", got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStore_UploadOpenRemove(t *testing.T) {
	s := newTestStore(t)

	url, err := s.Upload(PDFs, "গল্প গুচ্ছ.pdf", strings.NewReader("%PDF-1.4"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "http://library.test/files/pdfs/public/1700000000123_") {
		t.Errorf("unexpected url %s", url)
	}

	objectPath, ok := PathFromURL(url, PDFs)
	if !ok || objectPath != "public/1700000000123_গল্প_গুচ্ছ.pdf" {
		t.Fatalf("PathFromURL() = %q, %v", objectPath, ok)
	}

	f, err := s.Open(PDFs, objectPath)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	data, _ := io.ReadAll(f)
	f.Close()
	if string(data) != "%PDF-1.4" {
		t.Errorf("read back %q", data)
	}

	local, ok := s.LocalPath(url)
	if !ok {
		t.Fatal("LocalPath() not ok")
	}
	if _, err := os.Stat(local); err != nil {
		t.Errorf("local path missing: %v", err)
	}

	if err := s.RemoveURL(PDFs, url); err != nil {
		t.Fatalf("RemoveURL() error = %v", err)
	}
	if _, err := os.Stat(local); !os.IsNotExist(err) {
		t.Error("file should be removed")
	}
	if err := s.Remove(PDFs, objectPath); err != nil {
		t.Errorf("removing a missing file should succeed, got %v", err)
	}
}

func TestStore_RejectsEscapes(t *testing.T) {
	s := newTestStore(t)
	for _, p := range []string{"../secret", "public/../../x", "", "/abs"} {
		if _, err := s.Open(Covers, p); !errors.Is(err, ErrInvalidPath) {
			t.Errorf("Open(%q) error = %v, want ErrInvalidPath", p, err)
		}
	}
	if _, err := s.Upload("avatars", "a.png", strings.NewReader("x")); !errors.Is(err, ErrUnknownBucket) {
		t.Errorf("expected ErrUnknownBucket, got %v", err)
	}
	if _, ok := s.LocalPath("/files/avatars/public/a.png"); ok {
		t.Error("unknown bucket should not resolve")
	}
}

func TestThumbnail(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 600))
	for y := 0; y < 600; y++ {
		for x := 0; x < 400; x++ {
			src.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, src); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		maxWidth   int
		wantWidth  int
		wantHeight int
	}{
		{200, 200, 300},
		{800, 400, 600},
		{0, 400, 600},
	}
	for _, tt := range tests {
		out, err := Thumbnail(bytes.NewReader(buf.Bytes()), tt.maxWidth)
		if err != nil {
			t.Fatalf("Thumbnail(%d) error = %v", tt.maxWidth, err)
		}
		img, err := jpeg.Decode(bytes.NewReader(out))
		if err != nil {
			t.Fatalf("output is not a jpeg: %v", err)
		}
		if b := img.Bounds(); b.Dx() != tt.wantWidth || b.Dy() != tt.wantHeight {
			t.Errorf("Thumbnail(%d) size = %dx%d, want %dx%d", tt.maxWidth, b.Dx(), b.Dy(), tt.wantWidth, tt.wantHeight)
		}
	}

	if _, err := Thumbnail(strings.NewReader("not an image"), 100); err == nil {
		t.Error("expected decode error")
	}
}
