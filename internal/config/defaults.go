package config

import "github.com/jackzampolin/boighor/internal/providers"

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"gemini": {
				Type:      providers.TypeGemini,
				Model:     providers.GeminiDefaultModel,
				APIKey:    "${GEMINI_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"openai": {
				Type:      providers.TypeOpenAI,
				Model:     providers.OpenAIDefaultModel,
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 60,
				Enabled:   false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider:     "gemini",
			ExtractProvider: "gemini",
			TextModel:       providers.GeminiDefaultModel,
			ExtractModel:    providers.GeminiExtractModel,
		},
		Viewer: ViewerCfg{
			ZoomStep:         1.2,
			FitMargin:        0.95,
			MobileBreakpoint: 768,
			MaxSessions:      32,
			IdleMinutes:      30,
		},
		Storage: StorageCfg{
			MaxUploadMB: 200,
		},
		Server: ServerCfg{
			Host: "127.0.0.1",
			Port: "8080",
		},
		Defra: DefraConfig{
			ContainerName: "boighor-defra",
			Image:         "sourcenetwork/defradb:latest",
			Port:          "9181",
		},
	}
}

// defaultKeys flattens the scalar defaults so environment variables such
// as BOIGHOR_VIEWER_MAX_SESSIONS can override them.
func defaultKeys(d *Config) map[string]any {
	return map[string]any{
		"llm_providers":             d.LLMProviders,
		"defaults.llm_provider":     d.Defaults.LLMProvider,
		"defaults.extract_provider": d.Defaults.ExtractProvider,
		"defaults.text_model":       d.Defaults.TextModel,
		"defaults.extract_model":    d.Defaults.ExtractModel,
		"viewer.zoom_step":          d.Viewer.ZoomStep,
		"viewer.fit_margin":         d.Viewer.FitMargin,
		"viewer.mobile_breakpoint":  d.Viewer.MobileBreakpoint,
		"viewer.max_sessions":       d.Viewer.MaxSessions,
		"viewer.idle_minutes":       d.Viewer.IdleMinutes,
		"storage.root":              d.Storage.Root,
		"storage.base_url":          d.Storage.BaseURL,
		"storage.max_upload_mb":     d.Storage.MaxUploadMB,
		"server.host":               d.Server.Host,
		"server.port":               d.Server.Port,
		"defra.container_name":      d.Defra.ContainerName,
		"defra.image":               d.Defra.Image,
		"defra.port":                d.Defra.Port,
		"defra.url":                 d.Defra.URL,
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}
