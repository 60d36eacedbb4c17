package main

import (
	"context"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackzampolin/boighor/internal/bookmarks"
	"github.com/jackzampolin/boighor/internal/viewer"
)

type fakePage struct{}

func (fakePage) Viewport(scale float64) viewer.Viewport {
	return viewer.Viewport{Width: 600 * scale, Height: 800 * scale, Scale: scale}
}

func (fakePage) Render(ctx context.Context, vp viewer.Viewport) (image.Image, error) {
	return image.NewRGBA(image.Rect(0, 0, 6, 8)), ctx.Err()
}

type fakeDoc struct{ pages int }

func (d fakeDoc) PageCount() int { return d.pages }

func (d fakeDoc) Page(context.Context, int) (viewer.Page, error) { return fakePage{}, nil }

func (d fakeDoc) Close() error { return nil }

type fakeLoader struct{}

func (fakeLoader) Open(context.Context, string) (viewer.Document, error) {
	return fakeDoc{pages: 6}, nil
}

func openTestSession(t *testing.T, store bookmarks.Store) *viewer.Session {
	t.Helper()
	sess := viewer.NewSession(viewer.Config{
		Loader:    fakeLoader{},
		Bookmarks: bookmarks.New(store),
		Width:     1280,
		Height:    900,
	})
	t.Cleanup(func() { sess.Close() })
	if err := sess.Open(context.Background(), "/books/a.pdf", "/books/a.pdf"); err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return sess
}

func TestRepl_Navigation(t *testing.T) {
	sess := openTestSession(t, bookmarks.NewMemoryStore())

	var out strings.Builder
	in := strings.NewReader("n\nn\np\nsize 400 900\nbogus\nq\nn\n")
	if err := repl(context.Background(), sess, in, &out); err != nil {
		t.Fatalf("repl() error = %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Page 1 of 6",
		"Pages 2-3 of 6",
		"Pages 4-5 of 6",
		"mobile",
		`error: unknown command "bogus"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	// q stops the loop before the trailing n
	if st := sess.State(); st.CurrentPage != 2 {
		t.Errorf("current page = %d, want 2", st.CurrentPage)
	}
}

func TestRepl_BookmarkAndSave(t *testing.T) {
	dir := t.TempDir()
	store, err := bookmarks.OpenFileStore(filepath.Join(dir, "bookmarks.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	sess := openTestSession(t, store)

	file := filepath.Join(dir, "page.png")
	missing := filepath.Join(dir, "missing", "page.png")
	var out strings.Builder
	in := strings.NewReader("n\nb\nsave secondary " + file + "\nsave left x.png\nsave primary " + missing + "\n")
	if err := repl(context.Background(), sess, in, &out); err != nil {
		t.Fatalf("repl() error = %v", err)
	}

	if !strings.Contains(out.String(), "[bookmarked]") {
		t.Errorf("bookmark not shown:\n%s", out.String())
	}
	if !strings.Contains(out.String(), "wrote page 3 to") {
		t.Errorf("save not reported:\n%s", out.String())
	}
	if !strings.Contains(out.String(), `unknown surface "left"`) {
		t.Errorf("bad slot not reported:\n%s", out.String())
	}
	if strings.Contains(out.String(), "to "+missing) {
		t.Errorf("failed save reported as written:\n%s", out.String())
	}
	if strings.Count(out.String(), "error: ") != 2 {
		t.Errorf("expected two save errors:\n%s", out.String())
	}

	f, err := os.Open(file)
	if err != nil {
		t.Fatalf("surface not written: %v", err)
	}
	defer f.Close()
	if _, err := png.Decode(f); err != nil {
		t.Errorf("surface is not a PNG: %v", err)
	}

	page, ok, _ := bookmarks.New(store).Bookmark(context.Background(), "/books/a.pdf")
	if !ok || page != 2 {
		t.Errorf("stored bookmark = %d, %v; want 2", page, ok)
	}
}
