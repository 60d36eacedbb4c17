// Package assistant generates Bengali book texts and extracts book details
// from covers and title pages with an LLM.
package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/jackzampolin/boighor/internal/providers"
)

// Kind selects what GenerateBookInfo writes.
type Kind string

const (
	KindSummary     Kind = "summary"
	KindAuthorIntro Kind = "authorIntro"
	KindDescription Kind = "description"
)

// Kinds lists every generation kind.
var Kinds = []Kind{KindSummary, KindAuthorIntro, KindDescription}

// ErrUnknownKind is returned for kinds outside Kinds.
var ErrUnknownKind = errors.New("unknown generation kind")

// ErrNoProvider is returned when the configured provider is not registered.
var ErrNoProvider = errors.New("no LLM provider configured")

// ParseKind validates s.
func ParseKind(s string) (Kind, error) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

// GenerationError reports a failed generation. Its message is safe to show
// to readers; Err holds the cause.
type GenerationError struct {
	Kind Kind
	Err  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("Failed to generate %s. Please try again.", e.Kind)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// ExtractionMessage is shown when book details could not be extracted.
const ExtractionMessage = "Failed to extract book information from the file."

// ExtractionError reports a failed extraction.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return ExtractionMessage }

func (e *ExtractionError) Unwrap() error { return e.Err }

// Clients resolves provider names to clients.
type Clients interface {
	GetLLM(name string) (providers.LLMClient, error)
}

// Config configures an Assistant.
type Config struct {
	Clients Clients
	// TextProvider and ExtractProvider name registry entries. They may be
	// the same provider.
	TextProvider    string
	ExtractProvider string
	// Models override the provider defaults when set.
	TextModel    string
	ExtractModel string
	Logger       *slog.Logger
}

// Assistant calls LLM providers on behalf of the catalog.
type Assistant struct {
	mu     sync.RWMutex
	cfg    Config
	logger *slog.Logger
}

// New creates an Assistant.
func New(cfg Config) *Assistant {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Assistant{cfg: cfg, logger: logger}
}

// Reconfigure switches providers and models. Clients and Logger are kept.
func (a *Assistant) Reconfigure(textProvider, extractProvider, textModel, extractModel string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cfg.TextProvider = textProvider
	a.cfg.ExtractProvider = extractProvider
	a.cfg.TextModel = textModel
	a.cfg.ExtractModel = extractModel
}

func (a *Assistant) config() Config {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cfg
}

func (a *Assistant) client(clients Clients, name string) (providers.LLMClient, error) {
	if clients == nil || name == "" {
		return nil, ErrNoProvider
	}
	c, err := clients.GetLLM(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoProvider, err)
	}
	return c, nil
}

// GenerateBookInfo writes a summary, author introduction or description in
// Bengali and returns it trimmed.
func (a *Assistant) GenerateBookInfo(ctx context.Context, title, author string, kind Kind) (string, error) {
	tmpl, ok := templateFor[kind]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	prompt, err := renderPrompt(tmpl, title, author)
	if err != nil {
		return "", &GenerationError{Kind: kind, Err: err}
	}
	cfg := a.config()
	client, err := a.client(cfg.Clients, cfg.TextProvider)
	if err != nil {
		return "", &GenerationError{Kind: kind, Err: err}
	}

	result, err := client.Chat(ctx, &providers.ChatRequest{
		Model:    cfg.TextModel,
		Messages: []providers.Message{{Role: providers.RoleUser, Content: prompt}},
	})
	if err != nil {
		a.logger.Error("generation failed", "kind", kind, "title", title, "provider", client.Name(), "error", err)
		return "", &GenerationError{Kind: kind, Err: err}
	}
	text := strings.TrimSpace(result.Content)
	if text == "" {
		return "", &GenerationError{Kind: kind, Err: providers.ErrEmptyResponse}
	}
	a.logger.Debug("generated book info", "kind", kind, "title", title, "tokens", result.TotalTokens)
	return text, nil
}

// Part is the content extraction reads: either inline data such as a cover
// image, or text from the first pages.
type Part struct {
	MIMEType string
	Data     []byte
	Text     string
}

// BookInfo holds extracted details. Fields the model could not find are
// left empty.
type BookInfo struct {
	Title           string `json:"title,omitempty"`
	Author          string `json:"author,omitempty"`
	Genre           string `json:"genre,omitempty"`
	PublicationYear int    `json:"publication_year,omitempty"`
}

// extracted is the model's JSON shape.
type extracted struct {
	Title           string `json:"title"`
	Author          string `json:"author"`
	Genre           string `json:"genre"`
	PublicationYear int    `json:"publicationYear"`
}

// ExtractBookInfo asks the extraction model for title, author, genre and
// publication year.
func (a *Assistant) ExtractBookInfo(ctx context.Context, part Part) (*BookInfo, error) {
	if len(part.Data) == 0 && strings.TrimSpace(part.Text) == "" {
		return nil, &ExtractionError{Err: errors.New("nothing to analyze")}
	}
	cfg := a.config()
	client, err := a.client(cfg.Clients, cfg.ExtractProvider)
	if err != nil {
		return nil, &ExtractionError{Err: err}
	}

	msg := providers.Message{Role: providers.RoleUser, Content: extractPrompt()}
	if len(part.Data) > 0 {
		msg.Attachments = []providers.Attachment{{MIMEType: part.MIMEType, Data: part.Data}}
	} else {
		msg.Content += "\n\n" + part.Text
	}

	result, err := providers.ChatJSON(ctx, client, &providers.ChatRequest{
		Model:          cfg.ExtractModel,
		Messages:       []providers.Message{msg},
		ResponseFormat: &providers.ResponseFormat{Type: "json_schema", JSONSchema: extractSchema},
	})
	if err != nil {
		a.logger.Error("extraction failed", "provider", client.Name(), "error", err)
		return nil, &ExtractionError{Err: err}
	}

	var out extracted
	if err := json.Unmarshal(result.ParsedJSON, &out); err != nil {
		return nil, &ExtractionError{Err: err}
	}
	return &BookInfo{
		Title:           strings.TrimSpace(out.Title),
		Author:          strings.TrimSpace(out.Author),
		Genre:           strings.TrimSpace(out.Genre),
		PublicationYear: max(out.PublicationYear, 0),
	}, nil
}
