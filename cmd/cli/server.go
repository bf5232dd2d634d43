// Package cli provides command-line interface commands for reconai.
// This file implements the server command.
package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/anstrom/reconai/internal/api"
	"github.com/anstrom/reconai/internal/logging"
)

// Server command flags.
var (
	serverHost string
	serverPort int
)

// serverCmd runs the API server in the foreground.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Run the API server",
	Long: `Run the reconai API server in the foreground.

SIGINT or SIGTERM stops accepting requests and waits for running
comprehensive scans to finish, up to the configured shutdown timeout.`,
	Example: `  reconai server
  reconai server --host 0.0.0.0 --port 8000
  reconai server --config /etc/reconai/config.yaml`,
	Args: cobra.NoArgs,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverHost, "host", "", "Override server host")
	serverCmd.Flags().IntVar(&serverPort, "port", 0, "Override server port")
}

func runServer(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serverHost != "" {
		cfg.Server.Host = serverHost
	}
	if serverPort != 0 {
		cfg.Server.Port = serverPort
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Default()
	srv, err := api.New(cfg, api.WithLogger(logger.Logger))
	if err != nil {
		return fmt.Errorf("failed to create API server: %w", err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("reconai server starting", "address", srv.Address(), "version", version)
	return srv.Start(ctx)
}
