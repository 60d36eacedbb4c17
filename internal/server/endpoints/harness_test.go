package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/assistant"
	"github.com/jackzampolin/boighor/internal/bookmarks"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/defra"
	"github.com/jackzampolin/boighor/internal/ingest"
	"github.com/jackzampolin/boighor/internal/providers"
	"github.com/jackzampolin/boighor/internal/reading"
	"github.com/jackzampolin/boighor/internal/storage"
	"github.com/jackzampolin/boighor/internal/svcctx"
	"github.com/jackzampolin/boighor/internal/testutil"
	"github.com/jackzampolin/boighor/internal/viewer"
)

// stubDoc is a document of equally sized pages that render as flat colour.
type stubDoc struct{ pages int }

func (d *stubDoc) PageCount() int { return d.pages }

func (d *stubDoc) Page(ctx context.Context, n int) (viewer.Page, error) {
	return stubPage{n: n}, nil
}

func (d *stubDoc) Close() error { return nil }

type stubPage struct{ n int }

func (stubPage) Viewport(scale float64) viewer.Viewport {
	return viewer.Viewport{Width: 600 * scale, Height: 800 * scale, Scale: scale}
}

func (p stubPage) Render(ctx context.Context, vp viewer.Viewport) (image.Image, error) {
	img := image.NewRGBA(image.Rect(0, 0, 6, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(p.n * 10)
	}
	return img, nil
}

// stubLoader opens a stubDoc for every URL except those in missing.
type stubLoader struct {
	mu      sync.Mutex
	pages   int
	missing map[string]bool
	opened  []string
}

func (l *stubLoader) Open(ctx context.Context, url string) (viewer.Document, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.opened = append(l.opened, url)
	if l.missing[url] {
		return nil, errors.New("document not found")
	}
	return &stubDoc{pages: l.pages}, nil
}

type harness struct {
	fake    *testutil.FakeDefra
	server  *httptest.Server
	svc     *svcctx.Services
	llm     *providers.MockClient
	loader  *stubLoader
	store   *storage.Store
	catalog *catalog.Catalog
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger := testutil.DiscardLogger()
	fake := testutil.NewFakeDefra(t)
	client := defra.NewClient(fake.URL)

	store, err := storage.New(storage.Config{Root: t.TempDir(), Logger: logger})
	if err != nil {
		t.Fatalf("storage.New() error = %v", err)
	}
	books := catalog.New(client, store, logger)

	llm := providers.NewMockClient()
	registry := providers.NewRegistry()
	registry.SetLogger(logger)
	registry.RegisterLLM("mock", llm)

	loader := &stubLoader{pages: 10, missing: map[string]bool{}}
	svc := &svcctx.Services{
		DefraClient: client,
		Catalog:     books,
		Storage:     store,
		Ingester:    ingest.New(store, books, logger),
		Assistant: assistant.New(assistant.Config{
			Clients:         registry,
			TextProvider:    "mock",
			ExtractProvider: "mock",
			Logger:          logger,
		}),
		Readers: reading.NewManager(reading.Config{
			Loader:      loader,
			Bookmarks:   bookmarks.New(bookmarks.NewMemoryStore()),
			MaxSessions: 2,
			Logger:      logger,
		}),
		Registry: registry,
		Logger:   logger,
	}
	t.Cleanup(svc.Readers.CloseAll)

	reg := api.NewRegistry()
	for _, ep := range All(Config{}) {
		reg.Register(ep)
	}
	mux := http.NewServeMux()
	reg.RegisterRoutes(mux, func(next http.HandlerFunc) http.HandlerFunc { return next })

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mux.ServeHTTP(w, r.WithContext(svcctx.WithServices(r.Context(), svc)))
	}))
	t.Cleanup(srv.Close)

	return &harness{fake: fake, server: srv, svc: svc, llm: llm, loader: loader, store: store, catalog: books}
}

// addBook stores a book record directly in the fake database.
func (h *harness) addBook(id, title, author, pdfURL string) {
	h.fake.Put(catalog.Collection, map[string]any{
		"_docID":      id,
		"title":       title,
		"author":      author,
		"cover_image": "/files/covers/public/" + id + ".png",
		"pdf_url":     pdfURL,
		"description": "",
		"rating":      float64(0),
		"created_at":  "2024-01-01T00:00:00Z",
	})
}

// do sends a JSON request and decodes the JSON response into out when set.
func (h *harness) do(t *testing.T, method, path string, body any, wantStatus int, out any) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatal(err)
		}
		r = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, h.server.URL+path, r)
	if err != nil {
		t.Fatal(err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	h.send(t, req, wantStatus, out)
}

// upload sends a multipart form; files maps field names to file name and content.
func (h *harness) upload(t *testing.T, path string, fields map[string]string, files map[string][2]string, wantStatus int, out any) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		mw.WriteField(k, v)
	}
	for field, f := range files {
		fw, err := mw.CreateFormFile(field, f[0])
		if err != nil {
			t.Fatal(err)
		}
		fw.Write([]byte(f[1]))
	}
	mw.Close()

	req, err := http.NewRequest(http.MethodPost, h.server.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	h.send(t, req, wantStatus, out)
}

func (h *harness) send(t *testing.T, req *http.Request, wantStatus int, out any) {
	t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != wantStatus {
		t.Fatalf("%s %s = %d, want %d: %s", req.Method, req.URL.Path, resp.StatusCode, wantStatus, data)
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("failed to decode %s: %v", data, err)
		}
	}
}

// pngBytes encodes a small solid image.
func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: 200, G: 40, B: 40, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
