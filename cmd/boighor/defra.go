package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/defra"
)

var defraCmd = &cobra.Command{
	Use:   "defra",
	Short: "Manage the DefraDB container",
	Long: `Manage the DefraDB container that stores the catalog and bookmarks.

Data is persisted to ~/.boighor/defradb/. Container name, image and port
come from the defra section of the config file.

Examples:
  boighor defra start   # Start the DefraDB container
  boighor defra stop    # Stop the container (data preserved)
  boighor defra status  # Check container status
  boighor defra logs    # View container logs`,
}

// withDockerManager runs fn against the configured container. Commands that
// pass guard=true refuse to run while a server owns the container.
func withDockerManager(guard bool, fn func(*defra.DockerManager) error) error {
	h, err := getHome()
	if err != nil {
		return err
	}
	if guard {
		if pid, ok := defra.ServerRunning(h.PidPath()); ok {
			return defra.ErrServerOwnsContainer(pid)
		}
	}
	cm, err := loadConfig(h)
	if err != nil {
		return err
	}
	cfg := cm.Get().Defra
	if cfg.URL != "" {
		return errors.New("defra.url is set; DefraDB is managed outside boighor")
	}

	mgr, err := defra.NewDockerManager(defra.DockerConfig{
		ContainerName: cfg.ContainerName,
		Image:         cfg.Image,
		HostPort:      cfg.Port,
		DataPath:      h.DefraPath(),
	})
	if err != nil {
		return err
	}
	defer mgr.Close()
	return fn(mgr)
}

var defraStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the DefraDB container",
	Long: `Start the DefraDB container, creating it if it does not exist.
Starting a running container is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDockerManager(false, func(mgr *defra.DockerManager) error {
			fmt.Println("Starting DefraDB...")
			if err := mgr.Start(cmd.Context()); err != nil {
				return fmt.Errorf("failed to start DefraDB: %w", err)
			}
			fmt.Printf("DefraDB is running at %s\n", mgr.URL())
			return nil
		})
	},
}

var defraStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the DefraDB container (data preserved)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDockerManager(true, func(mgr *defra.DockerManager) error {
			if err := mgr.Stop(cmd.Context()); err != nil {
				return fmt.Errorf("failed to stop DefraDB: %w", err)
			}
			fmt.Println("DefraDB stopped")
			return nil
		})
	},
}

var defraStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show DefraDB container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withDockerManager(false, func(mgr *defra.DockerManager) error {
			status, err := mgr.Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get status: %w", err)
			}
			result := map[string]string{"status": string(status)}
			switch status {
			case defra.StatusRunning:
				result["url"] = mgr.URL()
				result["health"] = "healthy"
				if err := defra.NewClient(mgr.URL()).HealthCheck(ctx); err != nil {
					result["health"] = "unhealthy: " + err.Error()
				}
			case defra.StatusStopped, defra.StatusNotFound:
				result["hint"] = "run 'boighor defra start'"
			}
			return api.Output(result)
		})
	},
}

var logsTail string

var defraLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show DefraDB container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDockerManager(false, func(mgr *defra.DockerManager) error {
			logs, err := mgr.Logs(cmd.Context(), logsTail)
			if err != nil {
				return fmt.Errorf("failed to get logs: %w", err)
			}
			fmt.Print(logs)
			return nil
		})
	},
}

var defraRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the DefraDB container",
	Long: `Stop and remove the DefraDB container. Data in ~/.boighor/defradb/
is kept.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDockerManager(true, func(mgr *defra.DockerManager) error {
			if err := mgr.Remove(cmd.Context()); err != nil {
				return fmt.Errorf("failed to remove container: %w", err)
			}
			fmt.Println("DefraDB container removed (data preserved)")
			return nil
		})
	},
}

var waitTimeout time.Duration

var defraWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for DefraDB to accept connections",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDockerManager(false, func(mgr *defra.DockerManager) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), waitTimeout+time.Second)
			defer cancel()
			if err := mgr.WaitReady(ctx, waitTimeout); err != nil {
				return fmt.Errorf("DefraDB not ready: %w", err)
			}
			fmt.Println("DefraDB is ready")
			return nil
		})
	},
}

func init() {
	defraCmd.AddCommand(defraStartCmd)
	defraCmd.AddCommand(defraStopCmd)
	defraCmd.AddCommand(defraStatusCmd)
	defraCmd.AddCommand(defraLogsCmd)
	defraCmd.AddCommand(defraRemoveCmd)
	defraCmd.AddCommand(defraWaitCmd)

	defraLogsCmd.Flags().StringVar(&logsTail, "tail", "100", "Number of lines to show from the end")
	defraWaitCmd.Flags().DurationVar(&waitTimeout, "timeout", 30*time.Second, "Timeout waiting for DefraDB")

	rootCmd.AddCommand(defraCmd)
}
