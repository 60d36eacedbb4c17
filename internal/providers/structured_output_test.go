package providers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseStructuredJSON(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
		wantErr bool
	}{
		{"plain", `{"ok":true}`, `{"ok":true}`, false},
		{"code fence", "```json\n{\"ok\":true}\n```", `{"ok":true}`, false},
		{"surrounding text", "Here you go: {\"title\":\"গীতাঞ্জলি\"} hope it helps", `{"title":"গীতাঞ্জলি"}`, false},
		{"empty", "   ", "", true},
		{"no json", "I cannot help with that", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseStructuredJSON(tt.content)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseStructuredJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

var yearSchema = json.RawMessage(`{
	"name":"book_info",
	"schema":{
		"type":"object",
		"properties":{
			"title":{"type":"string"},
			"publicationYear":{"type":"integer","minimum":1000,"maximum":3000}
		},
		"additionalProperties":false
	}
}`)

func TestValidateStructuredJSON(t *testing.T) {
	if err := validateStructuredJSON(yearSchema, json.RawMessage(`{"title":"x","publicationYear":1910}`)); err != nil {
		t.Fatalf("valid document rejected: %v", err)
	}
	if err := validateStructuredJSON(yearSchema, json.RawMessage(`{"publicationYear":"1910"}`)); err == nil {
		t.Error("string year should fail validation")
	}
	if err := validateStructuredJSON(yearSchema, json.RawMessage(`{"isbn":"123"}`)); err == nil {
		t.Error("unknown property should fail validation")
	}
	if err := validateStructuredJSON(nil, json.RawMessage(`{"anything":1}`)); err != nil {
		t.Errorf("no schema means no validation, got %v", err)
	}
}

func TestChatJSON(t *testing.T) {
	t.Run("valid first try", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "```json\n{\"title\":\"পথের পাঁচালী\"}\n```"

		res, err := ChatJSON(context.Background(), c, &ChatRequest{
			Messages:       []Message{{Role: RoleUser, Content: "extract"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: yearSchema},
		})
		if err != nil {
			t.Fatalf("ChatJSON() error = %v", err)
		}
		if string(res.ParsedJSON) != `{"title":"পথের পাঁচালী"}` {
			t.Errorf("ParsedJSON = %s", res.ParsedJSON)
		}
		if c.RequestCount() != 1 {
			t.Errorf("RequestCount = %d, want 1", c.RequestCount())
		}
	})

	t.Run("repairs invalid output", func(t *testing.T) {
		c := NewMockClient()
		c.Responses = []string{`{"publicationYear":"unknown"}`, `{"publicationYear":1929}`}

		res, err := ChatJSON(context.Background(), c, &ChatRequest{
			Messages:       []Message{{Role: RoleUser, Content: "extract"}},
			ResponseFormat: &ResponseFormat{Type: "json_schema", JSONSchema: yearSchema},
		})
		if err != nil {
			t.Fatalf("ChatJSON() error = %v", err)
		}
		if string(res.ParsedJSON) != `{"publicationYear":1929}` {
			t.Errorf("ParsedJSON = %s", res.ParsedJSON)
		}
		last := c.LastRequest()
		if len(last.Messages) != 3 || !strings.Contains(last.Messages[2].Content, "Validation issue") {
			t.Errorf("repair request should carry the previous output and the issue: %+v", last.Messages)
		}
	})

	t.Run("gives up", func(t *testing.T) {
		c := NewMockClient()
		c.ResponseText = "no json here"

		if _, err := ChatJSON(context.Background(), c, &ChatRequest{
			Messages: []Message{{Role: RoleUser, Content: "extract"}},
		}); err == nil {
			t.Fatal("expected error")
		}
		if got := c.RequestCount(); got != maxStructuredRepairAttempts+1 {
			t.Errorf("RequestCount = %d, want %d", got, maxStructuredRepairAttempts+1)
		}
	})
}
