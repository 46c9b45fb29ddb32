package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/skillet-ai/skillet/pkg/api"
	"github.com/skillet-ai/skillet/pkg/logger"
	"github.com/skillet-ai/skillet/pkg/presenter"
)

// ServeConfig holds configuration for the serve command
type ServeConfig struct {
	Host  string
	Port  int
	Watch bool
}

// NewServeConfig creates a new ServeConfig with default values
func NewServeConfig() *ServeConfig {
	return &ServeConfig{
		Host:  "localhost",
		Port:  8391,
		Watch: true,
	}
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server for listing and running skills",
	Long: `Serve starts a local HTTP server exposing the skill catalog and run
log. Skills can be listed, inspected, and executed via the /api endpoints.
The catalog directories are watched for changes so edited skills reload
without a restart.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		config := getServeConfigFromFlags(cmd)
		if err := runServeCommand(ctx, config); err != nil {
			presenter.Error(err, "server failed")
			os.Exit(1)
		}
	},
}

func init() {
	defaults := NewServeConfig()
	serveCmd.Flags().String("host", defaults.Host, "Host to bind the API server to")
	serveCmd.Flags().Int("port", defaults.Port, "Port to bind the API server to")
	serveCmd.Flags().Bool("watch", defaults.Watch, "Reload the catalog when skill files change")
}

// getServeConfigFromFlags extracts serve configuration from command flags
func getServeConfigFromFlags(cmd *cobra.Command) *ServeConfig {
	config := NewServeConfig()

	if host, err := cmd.Flags().GetString("host"); err == nil {
		config.Host = host
	}
	if port, err := cmd.Flags().GetInt("port"); err == nil {
		config.Port = port
	}
	if watch, err := cmd.Flags().GetBool("watch"); err == nil {
		config.Watch = watch
	}

	return config
}

func runServeCommand(ctx context.Context, config *ServeConfig) error {
	eng, catalog, store, cleanup, err := buildEngine(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	server, err := api.NewServer(&api.ServerConfig{Host: config.Host, Port: config.Port}, eng, catalog, store)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if config.Watch {
		go func() {
			if err := catalog.Watch(ctx, 500*time.Millisecond); err != nil && err != context.Canceled {
				logger.G(ctx).WithError(err).Warn("skill directory watch stopped")
			}
		}()
	}

	return server.Start(ctx)
}
