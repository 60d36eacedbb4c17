package defra

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidateID(t *testing.T) {
	valid := []string{"bae-1234", "abc_DEF-9"}
	for _, id := range valid {
		if err := ValidateID(id); err != nil {
			t.Errorf("ValidateID(%q) = %v", id, err)
		}
	}
	invalid := []string{"", "a b", `x"}`, string(make([]byte, 501))}
	for _, id := range invalid {
		if err := ValidateID(id); err == nil {
			t.Errorf("ValidateID(%q) should fail", id)
		}
	}
}

func TestQuery_Build(t *testing.T) {
	tests := []struct {
		name     string
		query    *Query
		want     string
		wantVars map[string]any
	}{
		{
			name:     "plain",
			query:    NewQuery("Book"),
			want:     "{ Book { _docID } }",
			wantVars: map[string]any{},
		},
		{
			name:     "where",
			query:    NewQuery("Bookmark").Where("key", "bookmark-7").Fields("value"),
			want:     "query($v0: String) { Bookmark(filter: {key: {_eq: $v0}}) { value } }",
			wantVars: map[string]any{"v0": "bookmark-7"},
		},
		{
			name: "search ordered",
			query: NewQuery("Book").
				MatchAny("রবীন্দ্র", "title", "author").
				OrderBy("created_at", "DESC").
				Limit(10).
				Fields("_docID", "title"),
			want:     "query($v0: String) { Book(filter: {_or: [{title: {_ilike: $v0}}, {author: {_ilike: $v0}}]}, order: {created_at: DESC}, limit: 10) { _docID title } }",
			wantVars: map[string]any{"v0": "%রবীন্দ্র%"},
		},
		{
			name:     "empty search is ignored",
			query:    NewQuery("Book").MatchAny("", "title"),
			want:     "{ Book { _docID } }",
			wantVars: map[string]any{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, vars := tt.query.Build()
			if got != tt.want {
				t.Errorf("Build()\n got: %s\nwant: %s", got, tt.want)
			}
			if len(vars) != len(tt.wantVars) {
				t.Fatalf("vars = %v, want %v", vars, tt.wantVars)
			}
			for k, v := range tt.wantVars {
				if vars[k] != v {
					t.Errorf("vars[%s] = %v, want %v", k, vars[k], v)
				}
			}
		})
	}
}

func TestServerRunning(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.pid")

	if _, ok := ServerRunning(path); ok {
		t.Error("missing pid file should not report a server")
	}
	if err := WritePidFile(path); err != nil {
		t.Fatal(err)
	}
	pid, ok := ServerRunning(path)
	if !ok || pid != os.Getpid() {
		t.Errorf("ServerRunning() = %d, %v", pid, ok)
	}
	os.WriteFile(path, []byte("not-a-pid"), 0o644)
	if _, ok := ServerRunning(path); ok {
		t.Error("garbage pid file should not report a server")
	}
	RemovePidFile(path)
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("pid file not removed: %v", err)
	}
}
