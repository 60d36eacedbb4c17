package main

import (
	"fmt"

	"github.com/spf13/cobra"

	_ "github.com/jackzampolin/boighor/docs/swagger"
	"github.com/jackzampolin/boighor/internal/defra"
	"github.com/jackzampolin/boighor/internal/server"
)

var (
	serveHost string
	servePort string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Boighor server",
	Long: `Start the Boighor HTTP server.

Unless defra.url is configured, this also starts the DefraDB container and
stops it again when the server shuts down (Ctrl+C or SIGTERM).

The server provides:
  - /health, /ready, /status   Health and status
  - /api/books                 Catalog, generation and file analysis
  - /api/reader                Reading sessions
  - /files/{bucket}/{path}     Stored covers and PDFs
  - /swagger                   API documentation

Configuration edits to providers and defaults apply without a restart.

Examples:
  boighor serve                    # Start on the configured port (8080)
  boighor serve --port 3000        # Start on a custom port
  boighor serve --host 0.0.0.0     # Bind to all interfaces`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		logger := newLogger()

		h, err := getHome()
		if err != nil {
			return err
		}
		if pid, ok := defra.ServerRunning(h.PidPath()); ok {
			return fmt.Errorf("server already running (pid %d)", pid)
		}

		cm, err := loadConfig(h)
		if err != nil {
			return err
		}
		if f := cm.File(); f != "" {
			logger.Info("loaded config", "file", f)
			cm.WatchConfig()
		}

		cfg := cm.Get()
		host, port := cfg.Server.Host, cfg.Server.Port
		if cmd.Flags().Changed("host") {
			host = serveHost
		}
		if cmd.Flags().Changed("port") {
			port = servePort
		}

		srv, err := server.New(server.Config{
			Host:          host,
			Port:          port,
			Home:          h,
			ConfigManager: cm,
			Logger:        logger,
		})
		if err != nil {
			return err
		}

		// Start server (blocks until shutdown)
		return srv.Start(ctx)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveHost, "host", "127.0.0.1", "Host to bind to (overrides server.host)")
	serveCmd.Flags().StringVar(&servePort, "port", "8080", "Port to listen on (overrides server.port)")

	rootCmd.AddCommand(serveCmd)
}
