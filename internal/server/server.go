package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/assistant"
	"github.com/jackzampolin/boighor/internal/bookmarks"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/config"
	"github.com/jackzampolin/boighor/internal/defra"
	"github.com/jackzampolin/boighor/internal/document"
	"github.com/jackzampolin/boighor/internal/home"
	"github.com/jackzampolin/boighor/internal/ingest"
	"github.com/jackzampolin/boighor/internal/providers"
	"github.com/jackzampolin/boighor/internal/reading"
	"github.com/jackzampolin/boighor/internal/schema"
	"github.com/jackzampolin/boighor/internal/server/endpoints"
	"github.com/jackzampolin/boighor/internal/storage"
	"github.com/jackzampolin/boighor/internal/svcctx"
)

// reapInterval is how often idle reading sessions are checked.
const reapInterval = time.Minute

// Server is the main Boighor HTTP server.
// Unless an external DefraDB URL is configured it manages the DefraDB
// container, starting it on server start and stopping it on shutdown.
type Server struct {
	httpServer   *http.Server
	defraManager *defra.DockerManager
	defraClient  *defra.Client
	registry     *providers.Registry
	configMgr    *config.Manager
	home         *home.Dir
	logger       *slog.Logger

	// services holds all core services for context enrichment
	services *svcctx.Services

	// endpoints registry for HTTP routes
	endpointRegistry *api.Registry

	mu      sync.RWMutex
	running bool
}

// Config holds server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1)
	Host string
	// Port is the port to listen on (default: 8080)
	Port string
	// Home is the boighor home directory holding files, DefraDB data and the pid file.
	Home *home.Dir
	// ConfigManager provides configuration with hot-reload support
	ConfigManager *config.Manager
	// Logger is the structured logger to use
	Logger *slog.Logger
}

// New creates a new Server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Home == nil {
		return nil, errors.New("home directory is required")
	}
	if cfg.ConfigManager == nil {
		return nil, errors.New("config manager is required")
	}

	appCfg := cfg.ConfigManager.Get()

	var defraManager *defra.DockerManager
	if appCfg.Defra.URL == "" {
		m, err := defra.NewDockerManager(defra.DockerConfig{
			ContainerName: appCfg.Defra.ContainerName,
			Image:         appCfg.Defra.Image,
			HostPort:      appCfg.Defra.Port,
			DataPath:      cfg.Home.DefraPath(),
			Logger:        cfg.Logger,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create defra manager: %w", err)
		}
		defraManager = m
	}

	registry := providers.NewRegistryFromConfig(appCfg.ToProviderRegistryConfig(), cfg.Logger)

	s := &Server{
		defraManager: defraManager,
		registry:     registry,
		configMgr:    cfg.ConfigManager,
		home:         cfg.Home,
		logger:       cfg.Logger,
	}

	// Create endpoint registry and register all endpoints
	s.endpointRegistry = api.NewRegistry()
	for _, ep := range endpoints.All(endpoints.Config{DefraManager: defraManager}) {
		s.endpointRegistry.Register(ep)
	}

	mux := http.NewServeMux()
	s.endpointRegistry.RegisterRoutes(mux, s.requireInit)

	// WriteTimeout leaves room for ?wait=true on large documents and for LLM calls.
	s.httpServer = &http.Server{
		Addr:         net.JoinHostPort(cfg.Host, cfg.Port),
		Handler:      s.withServices(mux),
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 3 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

// Start starts DefraDB, builds the services and serves HTTP.
// It blocks until the context is cancelled or an error occurs.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	if err := s.startDefra(ctx); err != nil {
		_ = s.shutdown()
		return err
	}

	if err := schema.Initialize(ctx, s.defraClient, s.logger); err != nil {
		_ = s.shutdown()
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	services, err := s.buildServices()
	if err != nil {
		_ = s.shutdown()
		return err
	}
	s.mu.Lock()
	s.services = services
	s.mu.Unlock()

	s.configMgr.OnChange(s.applyConfig)

	if err := defra.WritePidFile(s.home.PidPath()); err != nil {
		s.logger.Warn("failed to write pid file", "error", err)
	}

	readerCtx, stopReaders := context.WithCancel(ctx)
	defer stopReaders()
	go services.Readers.Run(readerCtx, reapInterval)

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			_ = s.shutdown()
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	return s.shutdown()
}

// startDefra brings up the managed container, or connects to the
// configured URL, and waits for a healthy node.
func (s *Server) startDefra(ctx context.Context) error {
	url := s.configMgr.Get().Defra.URL
	if s.defraManager != nil {
		if err := s.defraManager.ValidateExisting(ctx); err != nil {
			return fmt.Errorf("existing DefraDB container incompatible: %w", err)
		}
		s.logger.Info("starting DefraDB")
		if err := s.defraManager.Start(ctx); err != nil {
			return fmt.Errorf("failed to start DefraDB: %w", err)
		}
		url = s.defraManager.URL()
	}

	s.defraClient = defra.NewClient(url)
	if err := s.defraClient.HealthCheck(ctx); err != nil {
		return fmt.Errorf("DefraDB health check failed: %w", err)
	}
	s.logger.Info("DefraDB is ready", "url", url)
	return nil
}

// buildServices wires the catalog, storage, assistant and readers on top
// of the DefraDB client.
func (s *Server) buildServices() (*svcctx.Services, error) {
	cfg := s.configMgr.Get()

	root := cfg.Storage.Root
	if root == "" {
		root = s.home.FilesPath()
	}
	store, err := storage.New(storage.Config{Root: root, BaseURL: cfg.Storage.BaseURL, Logger: s.logger})
	if err != nil {
		return nil, fmt.Errorf("failed to open file storage: %w", err)
	}

	books := catalog.New(s.defraClient, store, s.logger)

	loader := document.NewLoader(document.LoaderConfig{Resolver: store, Logger: s.logger})
	readers := reading.NewManager(reading.Config{
		Loader:           loader,
		Bookmarks:        bookmarks.New(bookmarks.NewDefraStore(s.defraClient)),
		MaxSessions:      cfg.Viewer.MaxSessions,
		IdleTimeout:      time.Duration(cfg.Viewer.IdleMinutes) * time.Minute,
		MobileBreakpoint: cfg.Viewer.MobileBreakpoint,
		ZoomStep:         cfg.Viewer.ZoomStep,
		FitMargin:        cfg.Viewer.FitMargin,
		Logger:           s.logger,
	})

	return &svcctx.Services{
		DefraClient: s.defraClient,
		Catalog:     books,
		Storage:     store,
		Ingester:    ingest.New(store, books, s.logger),
		Assistant: assistant.New(assistant.Config{
			Clients:         s.registry,
			TextProvider:    cfg.Defaults.LLMProvider,
			ExtractProvider: cfg.Defaults.ExtractProvider,
			TextModel:       cfg.Defaults.TextModel,
			ExtractModel:    cfg.Defaults.ExtractModel,
			Logger:          s.logger,
		}),
		Readers:  readers,
		Registry: s.registry,
		Config:   s.configMgr,
		Logger:   s.logger,
		Home:     s.home,
	}, nil
}

// applyConfig reloads providers and the assistant's defaults. Viewer and
// storage settings take effect on restart.
func (s *Server) applyConfig(c *config.Config) {
	s.registry.Reload(c.ToProviderRegistryConfig())
	if svc := s.Services(); svc != nil {
		d := c.Defaults
		svc.Assistant.Reconfigure(d.LLMProvider, d.ExtractProvider, d.TextModel, d.ExtractModel)
	}
	s.logger.Info("providers reloaded from config", "llm", s.registry.ListLLM())
}

// shutdown performs graceful shutdown of the HTTP server, open readers and DefraDB.
func (s *Server) shutdown() error {
	s.logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
	}

	if svc := s.Services(); svc != nil {
		svc.Readers.CloseAll()
	}

	if s.defraManager != nil {
		s.logger.Info("stopping DefraDB")
		if err := s.defraManager.Stop(shutdownCtx); err != nil {
			s.logger.Error("DefraDB stop error", "error", err)
		}
		if err := s.defraManager.Close(); err != nil {
			s.logger.Error("DefraDB manager close error", "error", err)
		}
	}

	defra.RemovePidFile(s.home.PidPath())
	s.setNotRunning()
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) setNotRunning() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// IsRunning returns whether the server is currently running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Services returns the wired services, or nil before Start finished initializing.
func (s *Server) Services() *svcctx.Services {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.services
}

// DefraClient returns the DefraDB client.
// Returns nil if the server hasn't started yet.
func (s *Server) DefraClient() *defra.Client {
	return s.defraClient
}

// Addr returns the server's listen address.
func (s *Server) Addr() string {
	return s.httpServer.Addr
}

// Registry returns the provider registry.
func (s *Server) Registry() *providers.Registry {
	return s.registry
}

// withServices wraps a handler to enrich the request context with services.
func (s *Server) withServices(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if svc := s.Services(); svc != nil {
			ctx = svcctx.WithServices(ctx, svc)
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// requireInit is middleware that ensures the server is fully initialized.
// Returns 503 Service Unavailable until the services are wired.
func (s *Server) requireInit(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.Services() == nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"error":"server not fully initialized"}`))
			return
		}
		next(w, r)
	}
}
