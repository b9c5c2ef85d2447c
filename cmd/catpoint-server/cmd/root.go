package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/server"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// statePath overrides the storage path from the configuration file.
	statePath string
	// allowMultiple skips the running process check.
	allowMultiple bool

	// rootCmd represents the base command for running the gRPC server.
	rootCmd = &cobra.Command{
		Use:   "catpoint-server [listen-address]",
		Short: "Run the catpoint security server.",
		Long: `Starts the gRPC security server that tracks sensors, the arming mode and the alarm status.

The server listens on the specified address or uses settings from configuration file.
Only the port from server_addr config is used for listening (e.g., :50051).
Listen address can be provided as argument to override config (e.g., :9090, 0.0.0.0:8080).
State is kept in memory, a YAML file or a SQLite database depending on the storage driver.
Sensor events can also arrive over MQTT, and alarm history can be written to InfluxDB.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			var listenAddress string
			if len(args) > 0 {
				listenAddress = args[0]
			}

			options := &server.Options{
				ConfigPath:             configPath,
				ListenAddress:          listenAddress,
				StatePath:              statePath,
				AllowMultipleInstances: allowMultiple,
			}

			err := server.Run(ctx, options)
			if err != nil {
				logger.ErrorKV(ctx, "Security server failed", "error", err)
			}

			return err
		},
	}
)

// Execute runs the catpoint-server CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.Flags().StringVarP(&statePath, "state", "s", "", "path to the state file or database")
	rootCmd.Flags().BoolVar(&allowMultiple, "allow-multiple", false, "skip the running instance check")
}
