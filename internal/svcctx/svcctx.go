// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/boighor/internal/assistant"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/config"
	"github.com/jackzampolin/boighor/internal/defra"
	"github.com/jackzampolin/boighor/internal/home"
	"github.com/jackzampolin/boighor/internal/ingest"
	"github.com/jackzampolin/boighor/internal/providers"
	"github.com/jackzampolin/boighor/internal/reading"
	"github.com/jackzampolin/boighor/internal/storage"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	DefraClient *defra.Client
	Catalog     *catalog.Catalog
	Storage     *storage.Store
	Ingester    *ingest.Ingester
	Assistant   *assistant.Assistant
	Readers     *reading.Manager
	Registry    *providers.Registry
	Config      *config.Manager
	Logger      *slog.Logger
	Home        *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// DefraClientFrom extracts the DefraDB client from context.
func DefraClientFrom(ctx context.Context) *defra.Client {
	if s := ServicesFrom(ctx); s != nil {
		return s.DefraClient
	}
	return nil
}

// CatalogFrom extracts the book catalog from context.
func CatalogFrom(ctx context.Context) *catalog.Catalog {
	if s := ServicesFrom(ctx); s != nil {
		return s.Catalog
	}
	return nil
}

// StorageFrom extracts the file store from context.
func StorageFrom(ctx context.Context) *storage.Store {
	if s := ServicesFrom(ctx); s != nil {
		return s.Storage
	}
	return nil
}

// IngesterFrom extracts the book ingester from context.
func IngesterFrom(ctx context.Context) *ingest.Ingester {
	if s := ServicesFrom(ctx); s != nil {
		return s.Ingester
	}
	return nil
}

// AssistantFrom extracts the LLM assistant from context.
func AssistantFrom(ctx context.Context) *assistant.Assistant {
	if s := ServicesFrom(ctx); s != nil {
		return s.Assistant
	}
	return nil
}

// ReadersFrom extracts the reading session manager from context.
func ReadersFrom(ctx context.Context) *reading.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Readers
	}
	return nil
}

// RegistryFrom extracts the provider registry from context.
func RegistryFrom(ctx context.Context) *providers.Registry {
	if s := ServicesFrom(ctx); s != nil {
		return s.Registry
	}
	return nil
}

// ConfigFrom extracts the config manager from context.
func ConfigFrom(ctx context.Context) *config.Manager {
	if s := ServicesFrom(ctx); s != nil {
		return s.Config
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil && s.Logger != nil {
		return s.Logger
	}
	return slog.Default()
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
