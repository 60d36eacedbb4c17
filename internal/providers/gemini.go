package providers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/genai"
)

const (
	GeminiName = "gemini"
	// GeminiDefaultModel answers text prompts.
	GeminiDefaultModel = "gemini-2.5-flash"
	// GeminiExtractModel reads covers and title pages.
	GeminiExtractModel = "gemini-2.5-pro"
)

// GeminiConfig configures the Gemini client.
type GeminiConfig struct {
	Name         string
	APIKey       string
	BaseURL      string
	DefaultModel string
	Timeout      time.Duration
	HTTPClient   *http.Client
	RPM          int
	MaxRetries   int
	RetryDelay   time.Duration
	Logger       *slog.Logger
}

// GeminiClient implements LLMClient with the Gemini API.
type GeminiClient struct {
	name   string
	model  string
	client *genai.Client
	retry  retryPolicy
}

// NewGeminiClient creates a Gemini client. It does not contact the API.
func NewGeminiClient(ctx context.Context, cfg GeminiConfig) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini: missing API key")
	}
	if cfg.Name == "" {
		cfg.Name = GeminiName
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = GeminiDefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = time.Second
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      cfg.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  httpClient,
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.BaseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &GeminiClient{
		name:   cfg.Name,
		model:  cfg.DefaultModel,
		client: client,
		retry: retryPolicy{
			attempts: uint(cfg.MaxRetries),
			delay:    cfg.RetryDelay,
			limiter:  NewRateLimiter(cfg.RPM),
			logger:   cfg.Logger,
		},
	}, nil
}

// Name returns the client identifier.
func (c *GeminiClient) Name() string {
	return c.name
}

// Chat sends a generateContent request. System messages become the system
// instruction; attachments are sent inline.
func (c *GeminiClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	contents, system := geminiContents(req.Messages)
	config := &genai.GenerateContentConfig{}
	if system != "" {
		config.SystemInstruction = genai.NewContentFromText(system, genai.RoleUser)
	}
	if req.Temperature > 0 {
		config.Temperature = genai.Ptr(float32(req.Temperature))
	}
	if req.MaxTokens > 0 {
		config.MaxOutputTokens = int32(req.MaxTokens)
	}
	if req.ResponseFormat != nil {
		config.ResponseMIMEType = "application/json"
	}

	var resp *genai.GenerateContentResponse
	attempts, err := c.retry.do(ctx, c.name, func() error {
		r, err := c.client.Models.GenerateContent(ctx, model, contents, config)
		if err != nil {
			return mapGeminiError(c.name, err)
		}
		if strings.TrimSpace(r.Text()) == "" {
			return fmt.Errorf("%s: %w", c.name, ErrEmptyResponse)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &ChatResult{
		Content:       resp.Text(),
		ExecutionTime: time.Since(start),
		Provider:      c.name,
		ModelUsed:     model,
		RequestID:     requestID,
		Attempts:      attempts,
	}
	if resp.ModelVersion != "" {
		result.ModelUsed = resp.ModelVersion
	}
	if u := resp.UsageMetadata; u != nil {
		result.PromptTokens = int(u.PromptTokenCount)
		result.CompletionTokens = int(u.CandidatesTokenCount)
		result.TotalTokens = int(u.TotalTokenCount)
	}
	return result, nil
}

func geminiContents(messages []Message) ([]*genai.Content, string) {
	var system []string
	contents := make([]*genai.Content, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := genai.Role(genai.RoleUser)
		if m.Role == RoleAssistant {
			role = genai.RoleModel
		}
		parts := make([]*genai.Part, 0, 1+len(m.Attachments))
		if m.Content != "" {
			parts = append(parts, &genai.Part{Text: m.Content})
		}
		for _, a := range m.Attachments {
			parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: a.MIMEType, Data: a.Data}})
		}
		contents = append(contents, &genai.Content{Role: string(role), Parts: parts})
	}
	return contents, strings.Join(system, "\n\n")
}

func mapGeminiError(provider string, err error) error {
	var apiErr genai.APIError
	if !errors.As(err, &apiErr) {
		var ptr *genai.APIError
		if !errors.As(err, &ptr) {
			return err
		}
		apiErr = *ptr
	}
	if apiErr.Code == http.StatusTooManyRequests {
		return &RateLimitError{
			Message:    fmt.Sprintf("%s rate limited: %s", provider, apiErr.Message),
			StatusCode: apiErr.Code,
		}
	}
	return &StatusError{Provider: provider, StatusCode: apiErr.Code, Message: apiErr.Message}
}

var _ LLMClient = (*GeminiClient)(nil)
