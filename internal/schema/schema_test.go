package schema

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/boighor/internal/defra"
)

func TestAll(t *testing.T) {
	schemas, err := All()
	if err != nil {
		t.Fatalf("All() error = %v", err)
	}
	if len(schemas) != 2 {
		t.Fatalf("expected 2 schemas, got %d", len(schemas))
	}
	for _, s := range schemas {
		if !strings.Contains(s.SDL, "type "+s.Name+" {") {
			t.Errorf("%s SDL does not declare its type:\n%s", s.Name, s.SDL)
		}
	}
}

func TestGet(t *testing.T) {
	s, err := Get("Bookmark")
	if err != nil {
		t.Fatalf("Get(Bookmark) error = %v", err)
	}
	if !strings.Contains(s.SDL, "value: String") {
		t.Errorf("unexpected SDL: %s", s.SDL)
	}
	if _, err := Get("Job"); err == nil {
		t.Error("expected error for unknown schema")
	}
}

func TestInitialize(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr bool
	}{
		{"fresh node", http.StatusOK, "", false},
		{"already exists", http.StatusBadRequest, "collection already exists. Name: Book", false},
		{"syntax error", http.StatusBadRequest, "invalid schema syntax", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/api/v0/schema" {
					t.Errorf("unexpected path: %s", r.URL.Path)
				}
				calls++
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := Initialize(context.Background(), defra.NewClient(server.URL), slog.Default())
			if (err != nil) != tt.wantErr {
				t.Errorf("Initialize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && calls != 2 {
				t.Errorf("expected 2 schema calls, got %d", calls)
			}
		})
	}
}
