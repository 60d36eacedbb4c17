package assistant

import (
	"bytes"
	"embed"
	"encoding/json"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

//go:embed prompts/extract_schema.json
var extractSchemaJSON []byte

var extractSchema = json.RawMessage(extractSchemaJSON)

var promptTemplates = template.Must(template.ParseFS(promptFS, "prompts/*.tmpl"))

// templateFor maps a generation kind to its template file.
var templateFor = map[Kind]string{
	KindSummary:     "summary.tmpl",
	KindAuthorIntro: "author_intro.tmpl",
	KindDescription: "description.tmpl",
}

func renderPrompt(name, title, author string) (string, error) {
	var buf bytes.Buffer
	data := struct{ Title, Author string }{Title: title, Author: author}
	if err := promptTemplates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return string(bytes.TrimSpace(buf.Bytes())), nil
}

func extractPrompt() string {
	p, _ := renderPrompt("extract.tmpl", "", "")
	return p
}
