package config

// Config holds boighor configuration.
// Stored at: ~/.boighor/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Viewer       ViewerCfg                 `mapstructure:"viewer" yaml:"viewer"`
	Storage      StorageCfg                `mapstructure:"storage" yaml:"storage"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
	Defra        DefraConfig               `mapstructure:"defra" yaml:"defra"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string `mapstructure:"type" yaml:"type"`                   // "gemini", "openai", "openrouter"
	Model     string `mapstructure:"model" yaml:"model"`                 // Default model
	APIKey    string `mapstructure:"api_key" yaml:"api_key"`             // Supports ${ENV_VAR} syntax
	BaseURL   string `mapstructure:"base_url" yaml:"base_url,omitempty"` // Optional endpoint override
	RateLimit int    `mapstructure:"rate_limit" yaml:"rate_limit"`       // Requests per minute
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg selects the providers the assistant uses.
type DefaultsCfg struct {
	LLMProvider     string `mapstructure:"llm_provider" yaml:"llm_provider"`         // Summaries and descriptions
	ExtractProvider string `mapstructure:"extract_provider" yaml:"extract_provider"` // Cover and title page extraction
	TextModel       string `mapstructure:"text_model" yaml:"text_model"`
	ExtractModel    string `mapstructure:"extract_model" yaml:"extract_model"`
}

// ViewerCfg tunes reading sessions.
type ViewerCfg struct {
	ZoomStep         float64 `mapstructure:"zoom_step" yaml:"zoom_step"`
	FitMargin        float64 `mapstructure:"fit_margin" yaml:"fit_margin"`
	MobileBreakpoint float64 `mapstructure:"mobile_breakpoint" yaml:"mobile_breakpoint"`
	MaxSessions      int     `mapstructure:"max_sessions" yaml:"max_sessions"`
	IdleMinutes      int     `mapstructure:"idle_minutes" yaml:"idle_minutes"` // 0 keeps idle sessions open
}

// StorageCfg configures the file buckets.
type StorageCfg struct {
	// Root holds the covers and pdfs buckets (default: ~/.boighor/files).
	Root string `mapstructure:"root" yaml:"root"`
	// BaseURL prefixes public file URLs; empty gives root-relative URLs.
	BaseURL string `mapstructure:"base_url" yaml:"base_url"`
	// MaxUploadMB limits multipart uploads.
	MaxUploadMB int `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// ServerCfg configures the HTTP server.
type ServerCfg struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port string `mapstructure:"port" yaml:"port"`
}

// DefraConfig holds DefraDB container configuration.
type DefraConfig struct {
	// ContainerName is the Docker container name (default: boighor-defra)
	ContainerName string `mapstructure:"container_name" yaml:"container_name"`
	// Image is the Docker image to use (default: sourcenetwork/defradb:latest)
	Image string `mapstructure:"image" yaml:"image"`
	// Port is the host port to bind (default: 9181)
	Port string `mapstructure:"port" yaml:"port"`
	// URL, when set, points at an existing DefraDB and no container is managed.
	URL string `mapstructure:"url" yaml:"url"`
}
