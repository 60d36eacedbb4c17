package providers

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

const (
	OpenAIName         = "openai"
	OpenAIDefaultModel = "gpt-4o-mini"
)

// OpenAIConfig configures an OpenAI-compatible chat client. OpenRouter and
// other compatible gateways work by setting BaseURL.
type OpenAIConfig struct {
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

// OpenAIClient implements LLMClient with the OpenAI chat completions API.
type OpenAIClient struct {
	name   string
	model  string
	client openai.Client
	retry  retryPolicy
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(cfg OpenAIConfig) *OpenAIClient {
	if cfg.Name == "" {
		cfg.Name = OpenAIName
	}
	if cfg.DefaultModel == "" {
		cfg.DefaultModel = OpenAIDefaultModel
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

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(httpClient),
		// Retries are handled by retryPolicy so rate limits share one limiter.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &OpenAIClient{
		name:   cfg.Name,
		model:  cfg.DefaultModel,
		client: openai.NewClient(opts...),
		retry: retryPolicy{
			attempts: uint(cfg.MaxRetries),
			delay:    cfg.RetryDelay,
			limiter:  NewRateLimiter(cfg.RPM),
			logger:   cfg.Logger,
		},
	}
}

// Name returns the client identifier.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Chat sends a chat completion request.
func (c *OpenAIClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	start := time.Now()
	requestID := req.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}
	model := req.Model
	if model == "" {
		model = c.model
	}

	messages, err := openAIMessages(req)
	if err != nil {
		return nil, err
	}
	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: messages,
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(req.MaxTokens))
	}

	var resp *openai.ChatCompletion
	attempts, err := c.retry.do(ctx, c.name, func() error {
		r, err := c.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return mapOpenAIError(c.name, err)
		}
		if len(r.Choices) == 0 || strings.TrimSpace(r.Choices[0].Message.Content) == "" {
			return fmt.Errorf("%s: %w", c.name, ErrEmptyResponse)
		}
		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &ChatResult{
		Content:          resp.Choices[0].Message.Content,
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
		ExecutionTime:    time.Since(start),
		Provider:         c.name,
		ModelUsed:        resp.Model,
		RequestID:        requestID,
		Attempts:         attempts,
	}, nil
}

// openAIMessages converts messages. JSON output is requested through the
// system prompt; the schema is enforced locally.
func openAIMessages(req *ChatRequest) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)
	if req.ResponseFormat != nil {
		out = append(out, openai.SystemMessage(jsonInstruction(req.ResponseFormat)))
	}
	for _, m := range req.Messages {
		switch m.Role {
		case RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			if len(m.Attachments) == 0 {
				out = append(out, openai.UserMessage(m.Content))
				continue
			}
			parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(m.Content)}
			for _, a := range m.Attachments {
				if !strings.HasPrefix(a.MIMEType, "image/") {
					return nil, fmt.Errorf("unsupported attachment type %q", a.MIMEType)
				}
				parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: "data:" + a.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(a.Data),
				}))
			}
			out = append(out, openai.UserMessage(parts))
		}
	}
	return out, nil
}

func jsonInstruction(rf *ResponseFormat) string {
	if len(rf.JSONSchema) == 0 {
		return "Respond with a single JSON object only, without markdown."
	}
	return "Respond with a single JSON object only, without markdown, matching this JSON schema:\n" + string(rf.JSONSchema)
}

func mapOpenAIError(provider string, err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return err
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if apiErr.Response != nil {
			retryAfter = parseRetryAfter(apiErr.Response.Header.Get("Retry-After"))
		}
		return &RateLimitError{
			Message:    fmt.Sprintf("%s rate limited: %s", provider, apiErr.Message),
			RetryAfter: retryAfter,
			StatusCode: apiErr.StatusCode,
		}
	}
	return &StatusError{Provider: provider, StatusCode: apiErr.StatusCode, Message: apiErr.Message}
}

var _ LLMClient = (*OpenAIClient)(nil)
