package providers

import (
	"sync"
	"testing"

	"github.com/jackzampolin/boighor/internal/testutil"
)

func TestRegistry(t *testing.T) {
	t.Run("register and get", func(t *testing.T) {
		r := NewRegistry()
		mock := NewMockClient()
		r.RegisterLLM("test-llm", mock)

		client, err := r.GetLLM("test-llm")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if client != mock {
			t.Error("got different client than registered")
		}
		if _, err := r.GetLLM("nonexistent"); err == nil {
			t.Error("expected error for nonexistent LLM")
		}
	})

	t.Run("list is sorted", func(t *testing.T) {
		r := NewRegistry()
		r.RegisterLLM("b", NewMockClient())
		r.RegisterLLM("a", NewMockClient())

		names := r.ListLLM()
		if len(names) != 2 || names[0] != "a" || names[1] != "b" {
			t.Errorf("ListLLM() = %v", names)
		}
	})

	t.Run("concurrent access", func(t *testing.T) {
		r := NewRegistry()
		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				r.RegisterLLM("llm", NewMockClient())
			}()
			go func() {
				defer wg.Done()
				r.HasLLM("llm")
			}()
		}
		wg.Wait()
	})
}

func TestRegistry_Reload(t *testing.T) {
	cfg := RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
		"openai":   {Type: TypeOpenAI, APIKey: "sk-1", Model: "gpt-4o-mini", Enabled: true},
		"router":   {Type: TypeOpenRouter, APIKey: "sk-2", Enabled: true},
		"disabled": {Type: TypeOpenAI, APIKey: "sk-3", Enabled: false},
		"no-key":   {Type: TypeOpenAI, Enabled: true},
		"bogus":    {Type: "carrier-pigeon", APIKey: "x", Enabled: true},
	}}
	r := NewRegistryFromConfig(cfg, testutil.DiscardLogger())

	if names := r.ListLLM(); len(names) != 2 || names[0] != "openai" || names[1] != "router" {
		t.Fatalf("ListLLM() = %v, want [openai router]", names)
	}
	before, _ := r.GetLLM("openai")
	router, _ := r.GetLLM("router")
	if router.Name() != "router" {
		t.Errorf("client should carry its configured name, got %q", router.Name())
	}

	t.Run("unchanged keeps client", func(t *testing.T) {
		r.Reload(cfg)
		after, _ := r.GetLLM("openai")
		if after != before {
			t.Error("unchanged provider should not be rebuilt")
		}
	})

	t.Run("changed rebuilds and removed unregisters", func(t *testing.T) {
		next := RegistryConfig{LLMProviders: map[string]LLMProviderConfig{
			"openai": {Type: TypeOpenAI, APIKey: "sk-rotated", Model: "gpt-4o-mini", Enabled: true},
		}}
		r.Reload(next)

		after, err := r.GetLLM("openai")
		if err != nil {
			t.Fatalf("GetLLM() error = %v", err)
		}
		if after == before {
			t.Error("changed provider should be rebuilt")
		}
		if r.HasLLM("router") {
			t.Error("router should be unregistered")
		}
	})

	t.Run("manual registrations survive reload", func(t *testing.T) {
		r.RegisterLLM(MockClientName, NewMockClient())
		r.Reload(RegistryConfig{})
		if !r.HasLLM(MockClientName) {
			t.Error("manually registered client should survive")
		}
	})
}
