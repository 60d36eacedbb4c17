package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// maxStructuredRepairAttempts limits how often a model is asked to fix
// output that failed to parse or validate.
const maxStructuredRepairAttempts = 2

// maxEchoedOutput truncates the previous answer quoted in a repair prompt.
const maxEchoedOutput = 8000

// ChatJSON sends req and returns the response with ParsedJSON set. Output
// that does not parse, or does not match req.ResponseFormat.JSONSchema, is
// sent back to the model together with the problem.
func ChatJSON(ctx context.Context, client LLMClient, req *ChatRequest) (*ChatResult, error) {
	if req.ResponseFormat == nil {
		req.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}
	schema := req.ResponseFormat.JSONSchema

	attemptReq := *req
	attemptReq.Messages = append([]Message(nil), req.Messages...)

	var lastErr error
	for attempt := 0; attempt <= maxStructuredRepairAttempts; attempt++ {
		result, err := client.Chat(ctx, &attemptReq)
		if err != nil {
			return nil, err
		}

		parsed, err := parseStructuredJSON(result.Content)
		if err == nil {
			err = validateStructuredJSON(schema, parsed)
		}
		if err == nil {
			result.ParsedJSON = parsed
			return result, nil
		}

		lastErr = err
		attemptReq.Messages = append(attemptReq.Messages,
			Message{Role: RoleAssistant, Content: result.Content},
			Message{Role: RoleUser, Content: structuredRepairPrompt(schema, result.Content, err)},
		)
	}
	return nil, fmt.Errorf("structured output failed after %d repairs: %w", maxStructuredRepairAttempts, lastErr)
}

// parseStructuredJSON returns the first JSON value found in model output,
// re-encoded compactly. Markdown fences and prose around the value are
// ignored.
func parseStructuredJSON(content string) (json.RawMessage, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, errors.New("empty structured output")
	}

	for _, candidate := range []string{content, unfence(content), outermostJSON(content)} {
		if candidate == "" {
			continue
		}
		var v any
		if json.Unmarshal([]byte(candidate), &v) != nil {
			continue
		}
		return json.Marshal(v)
	}
	return nil, errors.New("no JSON value in model output")
}

// unfence strips a ```json ... ``` wrapper.
func unfence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return ""
	}
	_, body, ok := strings.Cut(s, "\n")
	if !ok {
		return ""
	}
	body = strings.TrimSpace(body)
	return strings.TrimSpace(strings.TrimSuffix(body, "```"))
}

// outermostJSON returns the span from the first opening brace or bracket to
// the last matching closer.
func outermostJSON(s string) string {
	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return ""
	}
	closer := "}"
	if s[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(s, closer)
	if end < start {
		return ""
	}
	return s[start : end+1]
}

// compiledSchemas caches compiled schemas by their source text.
var compiledSchemas sync.Map

// validateStructuredJSON checks parsed against schemaRaw. The schema may be
// bare or wrapped as {"name":..., "schema":{...}}.
func validateStructuredJSON(schemaRaw, parsed json.RawMessage) error {
	if len(schemaRaw) == 0 || len(parsed) == 0 {
		return nil
	}

	schema, err := compileSchema(schemaRaw)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(parsed, &doc); err != nil {
		return fmt.Errorf("failed to decode structured JSON: %w", err)
	}
	if err := schema.Validate(doc); err != nil {
		return fmt.Errorf("structured output does not match schema: %w", err)
	}
	return nil
}

func compileSchema(schemaRaw json.RawMessage) (*jsonschema.Schema, error) {
	key := string(schemaRaw)
	if s, ok := compiledSchemas.Load(key); ok {
		return s.(*jsonschema.Schema), nil
	}

	var wrapper struct {
		Schema json.RawMessage `json:"schema"`
	}
	if err := json.Unmarshal(schemaRaw, &wrapper); err != nil {
		return nil, fmt.Errorf("invalid structured schema JSON: %w", err)
	}
	body := schemaRaw
	if len(wrapper.Schema) > 0 {
		body = wrapper.Schema
	}

	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(body)); err != nil {
		return nil, fmt.Errorf("failed to load structured schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile structured schema: %w", err)
	}
	compiledSchemas.Store(key, schema)
	return schema, nil
}

func structuredRepairPrompt(schemaRaw json.RawMessage, lastOutput string, issue error) string {
	lastOutput = strings.TrimSpace(lastOutput)
	if len(lastOutput) > maxEchoedOutput {
		lastOutput = lastOutput[:maxEchoedOutput] + "\n[truncated]"
	}

	var b strings.Builder
	b.WriteString("Your previous answer could not be used. Reply again with ONLY one JSON value, no markdown and no commentary.\n")
	if len(schemaRaw) > 0 {
		fmt.Fprintf(&b, "\nIt must match this schema:\n%s\n", schemaRaw)
	}
	fmt.Fprintf(&b, "\nPrevious answer:\n%s\n\nValidation issue:\n%v", lastOutput, issue)
	return b.String()
}
