package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	"github.com/oshokin/catpoint/internal/service/common"
	service "github.com/oshokin/catpoint/internal/service/security"
)

// Options configures how the CLI reaches the security server.
type Options struct {
	// ConfigPath to YAML settings file, defaults to standard filename if empty.
	ConfigPath string

	// ServerAddress overrides server address from config when specified.
	ServerAddress string

	// Out receives the command output, stdout when nil.
	Out io.Writer
}

// ErrEmptyImage is returned when the image file has no content.
var ErrEmptyImage = errors.New("image file is empty")

// Command runs CLI operations against a connected security server.
type Command struct {
	client *common.Client
	out    io.Writer
}

// Connect loads the settings, detects the actor and dials the server.
func Connect(ctx context.Context, opts *Options) (*Command, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	serverAddress := cfg.ServerAddress
	if opts.ServerAddress != "" {
		serverAddress = opts.ServerAddress
	}

	// Identify current user and hostname for audit logging.
	actor, err := common.DetectActor()
	if err != nil {
		return nil, err
	}

	client, err := common.Dial(ctx, serverAddress,
		common.WithCallTimeout(cfg.Timeout),
		common.WithActor(actor),
	)
	if err != nil {
		return nil, err
	}

	logger.DebugKV(ctx, "Connected to security server", "server_address", serverAddress, "actor", actor.String())

	return NewCommand(client, opts.Out), nil
}

// NewCommand wraps an existing client. A nil out writes to stdout.
func NewCommand(client *common.Client, out io.Writer) *Command {
	if out == nil {
		out = os.Stdout
	}

	return &Command{
		client: client,
		out:    out,
	}
}

// Close releases the connection.
func (c *Command) Close() error {
	return c.client.Close()
}

// Status prints the alarm status, arming status and sensors.
func (c *Command) Status(ctx context.Context) error {
	current, err := c.client.Status(ctx)
	if err != nil {
		return err
	}

	c.printStatus(current)

	return nil
}

// SetArmingStatus arms or disarms the system and prints the result.
func (c *Command) SetArmingStatus(ctx context.Context, arming domain.ArmingStatus) error {
	current, err := c.client.SetArmingStatus(ctx, arming)
	if err != nil {
		return err
	}

	c.printStatus(current)

	return nil
}

// ListSensors prints every sensor.
func (c *Command) ListSensors(ctx context.Context) error {
	sensors, err := c.client.Sensors(ctx)
	if err != nil {
		return err
	}

	c.printSensors(sensors)

	return nil
}

// AddSensor registers a sensor.
func (c *Command) AddSensor(ctx context.Context, name, sensorType string) error {
	sensor, err := parseSensor(name, sensorType)
	if err != nil {
		return err
	}

	if err = c.client.AddSensor(ctx, sensor); err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.out, "Sensor %s added\n", sensor.Key())

	return err
}

// RemoveSensor unregisters a sensor.
func (c *Command) RemoveSensor(ctx context.Context, name, sensorType string) error {
	sensor, err := parseSensor(name, sensorType)
	if err != nil {
		return err
	}

	if err = c.client.RemoveSensor(ctx, sensor); err != nil {
		return err
	}

	_, err = fmt.Fprintf(c.out, "Sensor %s removed\n", sensor.Key())

	return err
}

// ActivateSensor reports a sensor as active and prints the resulting status.
func (c *Command) ActivateSensor(ctx context.Context, name, sensorType string) error {
	sensor, err := parseSensor(name, sensorType)
	if err != nil {
		return err
	}

	current, err := c.client.SetSensorActive(ctx, sensor, true)
	if err != nil {
		return err
	}

	c.printStatus(current)

	return nil
}

// DeactivateSensor reports a sensor as inactive and prints the resulting status.
func (c *Command) DeactivateSensor(ctx context.Context, name, sensorType string) error {
	sensor, err := parseSensor(name, sensorType)
	if err != nil {
		return err
	}

	current, err := c.client.DeactivateSensor(ctx, sensor)
	if err != nil {
		return err
	}

	c.printStatus(current)

	return nil
}

// ProcessImage sends the image at path to the camera pipeline.
func (c *Command) ProcessImage(ctx context.Context, path string) error {
	frame, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read image: %w", err)
	}

	if len(frame) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptyImage, path)
	}

	current, err := c.client.ProcessImage(ctx, frame)
	if err != nil {
		return err
	}

	c.printStatus(current)

	return nil
}

// Watch prints every alarm status change until ctx is done.
func (c *Command) Watch(ctx context.Context) error {
	return c.client.WatchStatus(ctx, func(alarm domain.AlarmStatus) error {
		_, err := fmt.Fprintf(c.out, "%s: %s\n", alarm, alarm.Description())

		return err
	})
}

func (c *Command) printStatus(current *service.Status) {
	_, _ = fmt.Fprintf(c.out, "Alarm:  %s (%s)\n", current.Alarm, current.Alarm.Description())
	_, _ = fmt.Fprintf(c.out, "Arming: %s (%s)\n", current.Arming, current.Arming.Description())

	c.printSensors(current.Sensors)
}

func (c *Command) printSensors(sensors []domain.Sensor) {
	t := table.NewWriter()
	t.SetOutputMirror(c.out)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Name", "Type", "State"})

	for _, sensor := range sensors {
		state := "inactive"
		if sensor.Active {
			state = "active"
		}

		t.AppendRow(table.Row{sensor.Name, sensor.Type, state})
	}

	t.Render()
}

func parseSensor(name, sensorType string) (domain.Sensor, error) {
	parsedType, err := domain.ParseSensorType(sensorType)
	if err != nil {
		return domain.Sensor{}, err
	}

	sensor := domain.NewSensor(name, parsedType)

	return sensor, sensor.Validate()
}
