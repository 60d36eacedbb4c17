package schema

import (
	"embed"
	"fmt"
	"strings"
)

//go:embed schemas/*.graphql
var schemaFS embed.FS

// Schema is one DefraDB collection definition.
type Schema struct {
	Name string
	SDL  string
}

// collections lists every collection in creation order.
var collections = []string{"Book", "Bookmark"}

// All returns every schema in creation order.
func All() ([]Schema, error) {
	out := make([]Schema, 0, len(collections))
	for _, name := range collections {
		s, err := load(name)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Get returns the schema for one collection.
func Get(name string) (Schema, error) {
	for _, c := range collections {
		if c == name {
			return load(name)
		}
	}
	return Schema{}, fmt.Errorf("schema not found: %s", name)
}

func load(name string) (Schema, error) {
	content, err := schemaFS.ReadFile("schemas/" + strings.ToLower(name) + ".graphql")
	if err != nil {
		return Schema{}, fmt.Errorf("failed to read schema %s: %w", name, err)
	}
	return Schema{Name: name, SDL: string(content)}, nil
}
