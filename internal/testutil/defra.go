package testutil

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// FakeDefra is an in-memory stand-in for a DefraDB node. It understands the
// GraphQL subset the defra client emits: create, update, upsert and delete
// mutations, equality and _ilike filters, ordering and limits.
type FakeDefra struct {
	URL string

	mu      sync.Mutex
	docs    map[string]map[string]map[string]any
	schemas []string
	nextID  int
	healthy bool
}

// NewFakeDefra starts a FakeDefra that is closed with the test.
func NewFakeDefra(t *testing.T) *FakeDefra {
	t.Helper()
	f := &FakeDefra{docs: make(map[string]map[string]map[string]any), healthy: true}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	f.URL = srv.URL
	return f
}

// SetHealthy controls the /health-check answer.
func (f *FakeDefra) SetHealthy(ok bool) {
	f.mu.Lock()
	f.healthy = ok
	f.mu.Unlock()
}

// Put stores doc in collection under its _docID.
func (f *FakeDefra) Put(collection string, doc map[string]any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id, _ := doc["_docID"].(string)
	f.collection(collection)[id] = doc
}

// Docs returns a copy of every document in collection.
func (f *FakeDefra) Docs(collection string) []map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []map[string]any
	for _, d := range f.docs[collection] {
		cp := make(map[string]any, len(d))
		for k, v := range d {
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

// Schemas returns the SDL documents added so far.
func (f *FakeDefra) Schemas() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.schemas...)
}

func (f *FakeDefra) collection(name string) map[string]map[string]any {
	c, ok := f.docs[name]
	if !ok {
		c = make(map[string]map[string]any)
		f.docs[name] = c
	}
	return c
}

func (f *FakeDefra) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.URL.Path {
	case "/health-check":
		if !f.healthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	case "/api/v0/schema":
		sdl, _ := io.ReadAll(r.Body)
		f.schemas = append(f.schemas, string(sdl))
	case "/api/v0/graphql":
		var req struct {
			Query     string         `json:"query"`
			Variables map[string]any `json:"variables"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		key, docs, err := f.execute(req.Query, req.Variables)
		w.Header().Set("Content-Type", "application/json")
		if err != nil {
			json.NewEncoder(w).Encode(map[string]any{"errors": []map[string]any{{"message": err.Error()}}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{key: docs}})
	default:
		http.NotFound(w, r)
	}
}

var mutationPattern = regexp.MustCompile(`^mutation \{ (create|update|upsert|delete)_(\w+)\(`)

func (f *FakeDefra) execute(query string, vars map[string]any) (string, []map[string]any, error) {
	if m := mutationPattern.FindStringSubmatch(query); m != nil {
		op, coll := m[1], m[2]
		id, err := f.mutate(op, coll, query)
		if err != nil {
			return "", nil, err
		}
		return op + "_" + coll, []map[string]any{{"_docID": id}}, nil
	}
	return f.read(query, vars)
}

func (f *FakeDefra) mutate(op, coll, query string) (string, error) {
	docs := f.collection(coll)
	docID := func() string {
		if m := regexp.MustCompile(`docID: "([^"]+)"`).FindStringSubmatch(query); m != nil {
			return m[1]
		}
		return ""
	}

	switch op {
	case "create":
		input, err := objectAfter(query, "input: ")
		if err != nil {
			return "", err
		}
		return f.insert(docs, input), nil
	case "update":
		id := docID()
		doc, ok := docs[id]
		if !ok {
			return "", fmt.Errorf("document %s not found", id)
		}
		input, err := objectAfter(query, "input: ")
		if err != nil {
			return "", err
		}
		for k, v := range input {
			doc[k] = v
		}
		return id, nil
	case "upsert":
		filter, err := objectAfter(query, "filter: ")
		if err != nil {
			return "", err
		}
		for id, doc := range docs {
			if matchesEq(doc, filter) {
				update, err := objectAfter(query, "update: ")
				if err != nil {
					return "", err
				}
				for k, v := range update {
					doc[k] = v
				}
				return id, nil
			}
		}
		create, err := objectAfter(query, "create: ")
		if err != nil {
			return "", err
		}
		return f.insert(docs, create), nil
	default:
		id := docID()
		delete(docs, id)
		return id, nil
	}
}

func (f *FakeDefra) insert(docs map[string]map[string]any, input map[string]any) string {
	f.nextID++
	id := fmt.Sprintf("bae-%d", f.nextID)
	input["_docID"] = id
	docs[id] = input
	return id
}

func matchesEq(doc, filter map[string]any) bool {
	for field, cond := range filter {
		c, ok := cond.(map[string]any)
		if !ok || fmt.Sprint(doc[field]) != fmt.Sprint(c["_eq"]) {
			return false
		}
	}
	return true
}

var (
	readPattern  = regexp.MustCompile(`\{ (\w+)`)
	eqPattern    = regexp.MustCompile(`(\w+): \{_eq: \$(v\d+)\}`)
	likePattern  = regexp.MustCompile(`\{(\w+): \{_ilike: \$(v\d+)\}\}`)
	orderPattern = regexp.MustCompile(`order: \{(\w+): (ASC|DESC)\}`)
	limitPattern = regexp.MustCompile(`limit: (\d+)`)
)

func (f *FakeDefra) read(query string, vars map[string]any) (string, []map[string]any, error) {
	m := readPattern.FindStringSubmatch(query)
	if m == nil {
		return "", nil, fmt.Errorf("unsupported query: %s", query)
	}
	coll := m[1]

	var out []map[string]any
	for _, doc := range f.docs[coll] {
		if !matchesQuery(doc, query, vars) {
			continue
		}
		cp := make(map[string]any, len(doc))
		for k, v := range doc {
			cp[k] = v
		}
		out = append(out, cp)
	}

	if o := orderPattern.FindStringSubmatch(query); o != nil {
		field, desc := o[1], o[2] == "DESC"
		sort.SliceStable(out, func(i, j int) bool {
			a, b := fmt.Sprint(out[i][field]), fmt.Sprint(out[j][field])
			if desc {
				return a > b
			}
			return a < b
		})
	}
	if l := limitPattern.FindStringSubmatch(query); l != nil {
		n, _ := strconv.Atoi(l[1])
		if n < len(out) {
			out = out[:n]
		}
	}
	return coll, out, nil
}

func matchesQuery(doc map[string]any, query string, vars map[string]any) bool {
	for _, m := range eqPattern.FindAllStringSubmatch(query, -1) {
		if fmt.Sprint(doc[m[1]]) != fmt.Sprint(vars[m[2]]) {
			return false
		}
	}
	likes := likePattern.FindAllStringSubmatch(query, -1)
	if len(likes) == 0 {
		return true
	}
	for _, m := range likes {
		pattern, _ := vars[m[2]].(string)
		needle := strings.ToLower(strings.Trim(pattern, "%"))
		value, _ := doc[m[1]].(string)
		if strings.Contains(strings.ToLower(value), needle) {
			return true
		}
	}
	return false
}

// objectAfter parses the GraphQL input object that follows label.
func objectAfter(query, label string) (map[string]any, error) {
	i := strings.Index(query, label)
	if i < 0 {
		return nil, fmt.Errorf("missing %q in %s", label, query)
	}
	p := &gqlParser{s: query, pos: i + len(label)}
	v, err := p.value()
	if err != nil {
		return nil, err
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s is not an object", label)
	}
	return obj, nil
}

type gqlParser struct {
	s   string
	pos int
}

func (p *gqlParser) skip() {
	for p.pos < len(p.s) && (p.s[p.pos] == ' ' || p.s[p.pos] == ',') {
		p.pos++
	}
}

func (p *gqlParser) value() (any, error) {
	p.skip()
	if p.pos >= len(p.s) {
		return nil, fmt.Errorf("unexpected end of query")
	}
	switch c := p.s[p.pos]; {
	case c == '{':
		return p.object()
	case c == '[':
		return p.list()
	case c == '"':
		return p.str()
	default:
		start := p.pos
		for p.pos < len(p.s) && !strings.ContainsRune(" ,}]", rune(p.s[p.pos])) {
			p.pos++
		}
		tok := p.s[start:p.pos]
		switch tok {
		case "true":
			return true, nil
		case "false":
			return false, nil
		case "null":
			return nil, nil
		}
		n, err := strconv.ParseFloat(tok, 64)
		if err != nil {
			return nil, fmt.Errorf("bad token %q", tok)
		}
		return n, nil
	}
}

func (p *gqlParser) object() (map[string]any, error) {
	p.pos++ // {
	out := make(map[string]any)
	for {
		p.skip()
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("unterminated object")
		}
		if p.s[p.pos] == '}' {
			p.pos++
			return out, nil
		}
		colon := strings.IndexByte(p.s[p.pos:], ':')
		if colon < 0 {
			return nil, fmt.Errorf("missing colon")
		}
		key := strings.TrimSpace(p.s[p.pos : p.pos+colon])
		p.pos += colon + 1
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out[key] = v
	}
}

func (p *gqlParser) list() ([]any, error) {
	p.pos++ // [
	var out []any
	for {
		p.skip()
		if p.pos >= len(p.s) {
			return nil, fmt.Errorf("unterminated list")
		}
		if p.s[p.pos] == ']' {
			p.pos++
			return out, nil
		}
		v, err := p.value()
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
}

func (p *gqlParser) str() (string, error) {
	start := p.pos
	p.pos++
	for p.pos < len(p.s) {
		switch p.s[p.pos] {
		case '\\':
			p.pos += 2
			continue
		case '"':
			p.pos++
			var s string
			err := json.Unmarshal([]byte(p.s[start:p.pos]), &s)
			return s, err
		}
		p.pos++
	}
	return "", fmt.Errorf("unterminated string")
}
