package config

import (
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackzampolin/boighor/internal/providers"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	gemini, ok := cfg.GetLLMProvider("gemini")
	if !ok || gemini.APIKey != "${GEMINI_API_KEY}" || !gemini.Enabled {
		t.Errorf("unexpected gemini defaults %+v", gemini)
	}
	if cfg.Defaults.ExtractModel != providers.GeminiExtractModel {
		t.Errorf("expected extract model %s, got %s", providers.GeminiExtractModel, cfg.Defaults.ExtractModel)
	}
	if cfg.Viewer.ZoomStep != 1.2 || cfg.Viewer.FitMargin != 0.95 || cfg.Viewer.MobileBreakpoint != 768 {
		t.Errorf("unexpected viewer defaults %+v", cfg.Viewer)
	}
	if enabled := cfg.EnabledLLMProviders(); len(enabled) != 1 {
		t.Errorf("expected only gemini enabled, got %v", enabled)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_API_KEY", "secret123")
		if result := ResolveEnvVars("${TEST_API_KEY}"); result != "secret123" {
			t.Errorf("expected secret123, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		if result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}"); result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("expands inside literals", func(t *testing.T) {
		t.Setenv("TEST_HOST", "books.local")
		if result := ResolveEnvVars("http://${TEST_HOST}/v1"); result != "http://books.local/v1" {
			t.Errorf("unexpected %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		if result := ResolveEnvVars("literal-value"); result != "literal-value" {
			t.Errorf("expected literal-value, got %s", result)
		}
	})
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TEST_OPENROUTER_KEY", "or-key-123")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"router": {
				Type:      providers.TypeOpenRouter,
				Model:     "google/gemini-2.5-flash",
				APIKey:    "${TEST_OPENROUTER_KEY}",
				RateLimit: 30,
				Enabled:   true,
			},
			"local": {
				Type:    providers.TypeOpenAI,
				APIKey:  "direct-key",
				BaseURL: "http://localhost:11434/v1",
			},
		},
	}

	reg := cfg.ToProviderRegistryConfig()
	if got := reg.LLMProviders["router"]; got.APIKey != "or-key-123" || got.RateLimit != 30 || !got.Enabled {
		t.Errorf("unexpected router config %+v", got)
	}
	if got := reg.LLMProviders["local"]; got.APIKey != "direct-key" || got.BaseURL != "http://localhost:11434/v1" || got.Enabled {
		t.Errorf("unexpected local config %+v", got)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errSub string
	}{
		{"zoom step", func(c *Config) { c.Viewer.ZoomStep = 1 }, "zoom_step"},
		{"fit margin", func(c *Config) { c.Viewer.FitMargin = 1.5 }, "fit_margin"},
		{"breakpoint", func(c *Config) { c.Viewer.MobileBreakpoint = 0 }, "mobile_breakpoint"},
		{"negative sessions", func(c *Config) { c.Viewer.MaxSessions = -1 }, "max_sessions"},
		{"provider type", func(c *Config) {
			c.LLMProviders["bad"] = LLMProviderCfg{Type: "anthropic"}
		}, "unknown type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.errSub) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.errSub)
			}
		})
	}
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
llm_providers:
  router:
    type: openrouter
    model: google/gemini-2.5-flash
    api_key: "${OPENROUTER_API_KEY}"
    rate_limit: 20
    enabled: true
defaults:
  llm_provider: router
viewer:
  max_sessions: 4
`)
		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if mgr.File() != path {
			t.Errorf("expected config file %s, got %s", path, mgr.File())
		}

		cfg := mgr.Get()
		router, ok := cfg.GetLLMProvider("router")
		if !ok || router.RateLimit != 20 || !router.Enabled {
			t.Errorf("unexpected router provider %+v", router)
		}
		if cfg.Defaults.LLMProvider != "router" {
			t.Errorf("expected router default, got %s", cfg.Defaults.LLMProvider)
		}
		// Unset keys keep their defaults.
		if cfg.Defaults.ExtractProvider != "gemini" || cfg.Viewer.ZoomStep != 1.2 {
			t.Errorf("defaults lost: %+v %+v", cfg.Defaults, cfg.Viewer)
		}
		if cfg.Viewer.MaxSessions != 4 {
			t.Errorf("expected 4 sessions, got %d", cfg.Viewer.MaxSessions)
		}
	})

	t.Run("environment overrides file", func(t *testing.T) {
		t.Setenv("BOIGHOR_SERVER_PORT", "9999")
		path := writeConfig(t, "server:\n  port: \"7000\"\n")

		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if port := mgr.Get().Server.Port; port != "9999" {
			t.Errorf("expected env port 9999, got %s", port)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		path := writeConfig(t, "viewer:\n  zoom_step: 0.5\n")
		if _, err := NewManager(path); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("missing explicit file fails", func(t *testing.T) {
		if _, err := NewManager(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Boighor configuration") {
		t.Error("missing header")
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written default should load: %v", err)
	}
	if mgr.Get().Defra.ContainerName != "boighor-defra" {
		t.Errorf("unexpected defra config %+v", mgr.Get().Defra)
	}
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: \"8080\"\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: \"8080\"\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Server.Port
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestManager_WatchConfig(t *testing.T) {
	configFile := writeConfig(t, "viewer:\n  max_sessions: 2\n")

	mgr, err := NewManager(configFile)
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}
	if got := mgr.Get().Viewer.MaxSessions; got != 2 {
		t.Fatalf("initial value mismatch: expected 2, got %d", got)
	}

	var callbackCount atomic.Int32
	var lastValue atomic.Int64
	mgr.OnChange(func(cfg *Config) {
		callbackCount.Add(1)
		lastValue.Store(int64(cfg.Viewer.MaxSessions))
	})

	mgr.WatchConfig()

	// Give fsnotify time to set up the watcher
	time.Sleep(100 * time.Millisecond)

	if err := os.WriteFile(configFile, []byte("viewer:\n  max_sessions: 7\n"), 0o644); err != nil {
		t.Fatalf("failed to write updated config file: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if lastValue.Load() == 7 {
			break
		}
		time.Sleep(50 * time.Millisecond)
	}

	if callbackCount.Load() == 0 {
		t.Error("callback was not invoked after config file change")
	}
	if got := mgr.Get().Viewer.MaxSessions; got != 7 {
		t.Errorf("config not updated: expected 7, got %d", got)
	}
}
