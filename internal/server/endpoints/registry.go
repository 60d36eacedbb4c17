package endpoints

import (
	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/defra"
)

// Config holds dependencies needed by some endpoints.
type Config struct {
	// DefraManager is nil when DefraDB runs outside boighor.
	DefraManager *defra.DockerManager
}

// All returns all endpoint instances.
func All(cfg Config) []api.Endpoint {
	return []api.Endpoint{
		// Health endpoints
		&HealthEndpoint{},
		&ReadyEndpoint{},
		&StatusEndpoint{DefraManager: cfg.DefraManager},

		// Book endpoints
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&CreateBookEndpoint{},
		&UpdateBookEndpoint{},
		&DeleteBookEndpoint{},
		&GenerateEndpoint{},
		&AnalyzeEndpoint{},

		// Stored files
		&FilesEndpoint{},

		// Reader endpoints
		&OpenReaderEndpoint{},
		&ListReadersEndpoint{},
		&GetReaderEndpoint{},
		&ReaderActionEndpoint{},
		&ReaderKeyEndpoint{},
		&ReaderResizeEndpoint{},
		&ReaderSurfaceEndpoint{},
		&CloseReaderEndpoint{},

		// Swagger/OpenAPI endpoints
		&SwaggerEndpoint{},
		&SwaggerUIEndpoint{},
	}
}

// BookCommands returns the endpoints grouped under "api books".
func BookCommands() []api.Endpoint {
	return []api.Endpoint{
		&ListBooksEndpoint{},
		&GetBookEndpoint{},
		&CreateBookEndpoint{},
		&UpdateBookEndpoint{},
		&DeleteBookEndpoint{},
		&GenerateEndpoint{},
		&AnalyzeEndpoint{},
	}
}

// ReaderCommands returns the endpoints grouped under "api reader".
func ReaderCommands() []api.Endpoint {
	return []api.Endpoint{
		&OpenReaderEndpoint{},
		&ListReadersEndpoint{},
		&GetReaderEndpoint{},
		&ReaderActionEndpoint{},
		&ReaderKeyEndpoint{},
		&ReaderResizeEndpoint{},
		&ReaderSurfaceEndpoint{},
		&CloseReaderEndpoint{},
	}
}
