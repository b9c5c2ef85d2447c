package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/service/client"
	"github.com/oshokin/catpoint/internal/version"
)

var (
	// cfgPath stores the configuration file path.
	cfgPath string
	// serverAddress overrides the server address from the configuration file.
	serverAddress string

	// rootCmd represents the base command of the catpoint CLI.
	rootCmd = &cobra.Command{
		Use:   "catpoint",
		Short: "Control the catpoint security server.",
		Long: `Talks to a running catpoint-server over gRPC.

Shows the alarm status, arms and disarms the system, manages sensors,
sends camera frames for cat detection and watches alarm status changes.`,
		SilenceUsage: true,
	}

	statusCmd = &cobra.Command{
		Use:   "status",
		Short: "Show alarm status, arming status and sensors.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.Status(ctx)
			})
		},
	}

	armCmd = &cobra.Command{
		Use:       "arm home|away",
		Short:     "Arm the system.",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"home", "away"},
		RunE: func(_ *cobra.Command, args []string) error {
			arming, err := domain.ParseArmingStatus("armed_" + args[0])
			if err != nil {
				return err
			}

			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.SetArmingStatus(ctx, arming)
			})
		},
	}

	disarmCmd = &cobra.Command{
		Use:   "disarm",
		Short: "Disarm the system and clear the alarm.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.SetArmingStatus(ctx, domain.Disarmed)
			})
		},
	}

	imageCmd = &cobra.Command{
		Use:   "image <file>",
		Short: "Send a camera frame for cat detection.",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.ProcessImage(ctx, args[0])
			})
		},
	}

	watchCmd = &cobra.Command{
		Use:   "watch",
		Short: "Print alarm status changes until interrupted.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.Watch(ctx)
			})
		},
	}
)

// withCommand connects to the server and runs fn until it returns or the
// process is interrupted.
func withCommand(fn func(ctx context.Context, c *client.Command) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	c, err := client.Connect(ctx, &client.Options{
		ConfigPath:    cfgPath,
		ServerAddress: serverAddress,
	})
	if err != nil {
		return err
	}

	defer func() {
		_ = c.Close()
	}()

	return fn(ctx, c)
}

// Execute runs the catpoint CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().
		StringVarP(&cfgPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().
		StringVarP(&serverAddress, "server", "a", "", "server address, overrides the configuration file")

	rootCmd.AddCommand(statusCmd, armCmd, disarmCmd, sensorCmd, imageCmd, watchCmd)
}
