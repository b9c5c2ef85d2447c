package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/oshokin/catpoint/internal/service/client"
)

var (
	sensorCmd = &cobra.Command{
		Use:   "sensor",
		Short: "Manage sensors.",
	}

	sensorListCmd = &cobra.Command{
		Use:   "list",
		Short: "List sensors.",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.ListSensors(ctx)
			})
		},
	}

	sensorAddCmd = &cobra.Command{
		Use:   "add <name> <door|window|motion>",
		Short: "Register a sensor.",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.AddSensor(ctx, args[0], args[1])
			})
		},
	}

	sensorRemoveCmd = &cobra.Command{
		Use:   "remove <name> <door|window|motion>",
		Short: "Unregister a sensor.",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.RemoveSensor(ctx, args[0], args[1])
			})
		},
	}

	sensorActivateCmd = &cobra.Command{
		Use:   "activate <name> <door|window|motion>",
		Short: "Report a sensor as active.",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.ActivateSensor(ctx, args[0], args[1])
			})
		},
	}

	sensorDeactivateCmd = &cobra.Command{
		Use:   "deactivate <name> <door|window|motion>",
		Short: "Report a sensor as inactive.",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			return withCommand(func(ctx context.Context, c *client.Command) error {
				return c.DeactivateSensor(ctx, args[0], args[1])
			})
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	sensorCmd.AddCommand(sensorListCmd, sensorAddCmd, sensorRemoveCmd, sensorActivateCmd, sensorDeactivateCmd)
}
