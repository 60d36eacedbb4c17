package providers

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// Provider types accepted in configuration.
const (
	TypeOpenAI     = "openai"
	TypeOpenRouter = "openrouter"
	TypeGemini     = "gemini"
)

// OpenRouterBaseURL is the OpenAI-compatible endpoint used for TypeOpenRouter.
const OpenRouterBaseURL = "https://openrouter.ai/api/v1"

// Registry holds the configured LLM clients. It is rebuilt in place when
// the config file changes.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]LLMClient
	configs map[string]LLMProviderConfig
	logger  *slog.Logger
}

// LLMProviderConfig is one provider entry with its API key resolved.
type LLMProviderConfig struct {
	Type      string
	Model     string
	APIKey    string
	BaseURL   string
	RateLimit int // requests per minute
	Enabled   bool
}

// RegistryConfig maps provider names to their config.
type RegistryConfig struct {
	LLMProviders map[string]LLMProviderConfig
}

// NewRegistry creates a new empty provider registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]LLMClient),
		configs: make(map[string]LLMProviderConfig),
		logger:  slog.Default(),
	}
}

// NewRegistryFromConfig creates a registry with every enabled provider that
// has an API key.
func NewRegistryFromConfig(cfg RegistryConfig, logger *slog.Logger) *Registry {
	r := NewRegistry()
	if logger != nil {
		r.logger = logger
	}
	r.Reload(cfg)
	return r
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger *slog.Logger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

// RegisterLLM registers an LLM client by name.
func (r *Registry) RegisterLLM(name string, client LLMClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[name] = client
	delete(r.configs, name)
	r.logger.Info("registered LLM client", "name", name)
}

// GetLLM returns an LLM client by name.
func (r *Registry) GetLLM(name string) (LLMClient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[name]
	if !ok {
		return nil, fmt.Errorf("LLM client not found: %s", name)
	}
	return client, nil
}

// HasLLM checks if an LLM client is registered.
func (r *Registry) HasLLM(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.clients[name]
	return ok
}

// ListLLM returns registered client names, sorted.
func (r *Registry) ListLLM() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reload makes the registry match cfg. Unchanged providers keep their
// client; changed ones are rebuilt; missing or disabled ones are removed.
func (r *Registry) Reload(cfg RegistryConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()

	want := make(map[string]bool)
	for name, pc := range cfg.LLMProviders {
		if !pc.Enabled || pc.APIKey == "" {
			continue
		}
		want[name] = true

		old, exists := r.configs[name]
		if exists && old == pc {
			continue
		}
		client, err := createLLMClient(name, pc, r.logger)
		if err != nil {
			r.logger.Warn("failed to create LLM client", "name", name, "type", pc.Type, "error", err)
			continue
		}
		r.clients[name] = client
		r.configs[name] = pc
		if exists {
			r.logger.Info("updated LLM client", "name", name, "type", pc.Type)
		} else {
			r.logger.Info("registered LLM client", "name", name, "type", pc.Type)
		}
	}

	for name := range r.configs {
		if !want[name] {
			delete(r.configs, name)
			delete(r.clients, name)
			r.logger.Info("unregistered LLM client", "name", name)
		}
	}
}

func createLLMClient(name string, cfg LLMProviderConfig, logger *slog.Logger) (LLMClient, error) {
	switch cfg.Type {
	case TypeOpenAI, TypeOpenRouter:
		baseURL := cfg.BaseURL
		if baseURL == "" && cfg.Type == TypeOpenRouter {
			baseURL = OpenRouterBaseURL
		}
		return NewOpenAIClient(OpenAIConfig{
			Name:         name,
			APIKey:       cfg.APIKey,
			BaseURL:      baseURL,
			DefaultModel: cfg.Model,
			RPM:          cfg.RateLimit,
			Logger:       logger,
		}), nil
	case TypeGemini:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return NewGeminiClient(ctx, GeminiConfig{
			Name:         name,
			APIKey:       cfg.APIKey,
			BaseURL:      cfg.BaseURL,
			DefaultModel: cfg.Model,
			RPM:          cfg.RateLimit,
			Logger:       logger,
		})
	default:
		return nil, fmt.Errorf("unknown provider type %q", cfg.Type)
	}
}
