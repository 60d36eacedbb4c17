package defra

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// IDPattern matches DefraDB document IDs (bae-<uuid>) and simple identifiers.
var IDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidateID rejects IDs that are unsafe to interpolate into a query.
func ValidateID(id string) error {
	if id == "" {
		return fmt.Errorf("empty ID")
	}
	if len(id) > 500 {
		return fmt.Errorf("ID too long: %d characters", len(id))
	}
	if !IDPattern.MatchString(id) {
		return fmt.Errorf("invalid ID format: contains unsafe characters")
	}
	return nil
}

// Query builds a read query whose user-supplied values travel as variables.
type Query struct {
	collection string
	filters    []string
	varDefs    []string
	vars       map[string]any
	fields     []string
	orderField string
	orderDir   string
	limit      int

	match       string
	matchFields []string
}

// NewQuery starts a query on collection returning only _docID.
func NewQuery(collection string) *Query {
	return &Query{
		collection: collection,
		fields:     []string{"_docID"},
		vars:       make(map[string]any),
	}
}

func (q *Query) bind(value any, gqlType string) string {
	name := fmt.Sprintf("v%d", len(q.vars))
	q.vars[name] = value
	q.varDefs = append(q.varDefs, fmt.Sprintf("$%s: %s", name, gqlType))
	return "$" + name
}

// Where adds an equality condition.
func (q *Query) Where(field string, value any) *Query {
	v := q.bind(value, graphQLType(value))
	q.filters = append(q.filters, fmt.Sprintf("%s: {_eq: %s}", field, v))
	return q
}

// MatchAny adds a case-insensitive substring match that succeeds when any
// of fields contains text. The text is matched literally: a backend that
// reads % or _ in it as wildcards may return extra documents, and Run drops
// those again.
func (q *Query) MatchAny(text string, fields ...string) *Query {
	if text == "" || len(fields) == 0 {
		return q
	}
	q.match, q.matchFields = text, fields
	v := q.bind("%"+text+"%", "String")
	alts := make([]string, 0, len(fields))
	for _, f := range fields {
		alts = append(alts, fmt.Sprintf("{%s: {_ilike: %s}}", f, v))
	}
	q.filters = append(q.filters, "_or: ["+strings.Join(alts, ", ")+"]")
	return q
}

// Fields replaces the selected fields.
func (q *Query) Fields(fields ...string) *Query {
	q.fields = fields
	return q
}

// OrderBy sorts by field, direction ASC or DESC.
func (q *Query) OrderBy(field, direction string) *Query {
	q.orderField, q.orderDir = field, direction
	return q
}

// Limit caps the number of results.
func (q *Query) Limit(n int) *Query {
	q.limit = n
	return q
}

// Build returns the query text and its variables.
func (q *Query) Build() (string, map[string]any) {
	var b strings.Builder
	if len(q.varDefs) > 0 {
		fmt.Fprintf(&b, "query(%s) ", strings.Join(q.varDefs, ", "))
	}
	b.WriteString("{ ")
	b.WriteString(q.collection)

	var args []string
	if len(q.filters) > 0 {
		args = append(args, "filter: {"+strings.Join(q.filters, ", ")+"}")
	}
	if q.orderField != "" {
		args = append(args, fmt.Sprintf("order: {%s: %s}", q.orderField, q.orderDir))
	}
	if q.limit > 0 {
		args = append(args, fmt.Sprintf("limit: %d", q.limit))
	}
	if len(args) > 0 {
		b.WriteString("(" + strings.Join(args, ", ") + ")")
	}
	b.WriteString(" { " + strings.Join(q.fields, " ") + " } }")

	vars := make(map[string]any, len(q.vars))
	for k, v := range q.vars {
		vars[k] = v
	}
	return b.String(), vars
}

// Run executes the query and returns the matched documents.
func (q *Query) Run(ctx context.Context, c *Client) ([]map[string]any, error) {
	query, vars := q.Build()
	resp, err := c.Execute(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	if msg := resp.Error(); msg != "" {
		return nil, fmt.Errorf("query %s: %s", q.collection, msg)
	}
	docs := resp.Documents(q.collection)
	if q.match == "" {
		return docs, nil
	}
	out := docs[:0]
	for _, d := range docs {
		if q.matches(d) {
			out = append(out, d)
		}
	}
	return out, nil
}

// matches reports whether one of the MatchAny fields contains the search
// text. Documents without any of those fields selected are kept.
func (q *Query) matches(doc map[string]any) bool {
	needle := strings.ToLower(q.match)
	selected := false
	for _, f := range q.matchFields {
		v, ok := doc[f].(string)
		if !ok {
			continue
		}
		selected = true
		if strings.Contains(strings.ToLower(v), needle) {
			return true
		}
	}
	return !selected
}

func graphQLType(v any) string {
	switch v.(type) {
	case int, int32, int64:
		return "Int"
	case float32, float64:
		return "Float"
	case bool:
		return "Boolean"
	default:
		return "String"
	}
}
