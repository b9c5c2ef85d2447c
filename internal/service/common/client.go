//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/config"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	service "github.com/oshokin/catpoint/internal/service/security"
)

// Client wraps a gRPC connection to the security service with convenience helpers.
type Client struct {
	// conn is the underlying gRPC connection to the security server.
	conn grpc.ClientConnInterface
	// closer releases conn; nil when the connection is owned elsewhere.
	closer io.Closer
	// actor is attached to every request when set.
	actor *Actor

	// callTimeout is the default timeout for individual RPC calls.
	callTimeout time.Duration
}

// Option configures client behaviour.
type Option func(*Client)

// WithCallTimeout sets a default timeout for unary service calls.
func WithCallTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.callTimeout = timeout
		}
	}
}

// WithActor attaches the actor to every request.
func WithActor(actor Actor) Option {
	return func(c *Client) {
		c.actor = &actor
	}
}

// errAddressRequired is returned when a required address value is missing.
var errAddressRequired = errors.New("address must be provided")

// Dial establishes a gRPC connection to the security server.
// Note: this uses insecure transport credentials; deploy on a trusted network
// or terminate TLS in a proxy.
func Dial(_ context.Context, address string, opts ...Option) (*Client, error) {
	if address == "" {
		return nil, errAddressRequired
	}

	conn, err := grpc.NewClient(address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial security server: %w", err)
	}

	client := NewClient(conn, opts...)
	client.closer = conn

	return client, nil
}

// NewClient wraps an existing connection. Close does not close conn.
func NewClient(conn grpc.ClientConnInterface, opts ...Option) *Client {
	client := &Client{
		conn:        conn,
		callTimeout: config.DefaultTimeout,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// Close releases the underlying gRPC connection.
func (c *Client) Close() error {
	if c == nil || c.closer == nil {
		return nil
	}

	return c.closer.Close()
}

// Status retrieves alarm status, arming status and sensors.
func (c *Client) Status(ctx context.Context) (*service.Status, error) {
	return c.invokeStatus(ctx, api.MethodGetStatus, new(emptypb.Empty))
}

// SetArmingStatus arms or disarms the system and returns the resulting status.
func (c *Client) SetArmingStatus(ctx context.Context, arming domain.ArmingStatus) (*service.Status, error) {
	return c.invokeStatus(ctx, api.MethodSetArmingStatus, wrapperspb.String(arming.String()))
}

// Sensors lists every registered sensor.
func (c *Client) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	out := new(structpb.ListValue)
	if err := c.invoke(ctx, api.MethodListSensors, new(emptypb.Empty), out); err != nil {
		return nil, err
	}

	sensors, err := api.SensorsFromProto(out)
	if err != nil {
		return nil, fmt.Errorf("decode sensors: %w", err)
	}

	return sensors, nil
}

// AddSensor registers a sensor.
func (c *Client) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	return c.invoke(ctx, api.MethodAddSensor, api.SensorToProto(sensor), new(emptypb.Empty))
}

// RemoveSensor unregisters a sensor.
func (c *Client) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	return c.invoke(ctx, api.MethodRemoveSensor, api.SensorToProto(sensor), new(emptypb.Empty))
}

// SetSensorActive reports a sensor activation change.
func (c *Client) SetSensorActive(ctx context.Context, sensor domain.Sensor, active bool) (*service.Status, error) {
	return c.invokeStatus(ctx, api.MethodSetSensorActive, api.SensorToProto(sensor.WithActive(active)))
}

// DeactivateSensor marks a sensor inactive.
func (c *Client) DeactivateSensor(ctx context.Context, sensor domain.Sensor) (*service.Status, error) {
	return c.invokeStatus(ctx, api.MethodDeactivateSensor, api.SensorToProto(sensor))
}

// ProcessImage sends a camera frame for classification.
func (c *Client) ProcessImage(ctx context.Context, frame []byte) (*service.Status, error) {
	return c.invokeStatus(ctx, api.MethodProcessImage, wrapperspb.Bytes(frame))
}

// WatchStatus calls fn with the current alarm status and then with every change
// until ctx is done, the server closes the stream or fn returns an error.
// The call timeout does not apply.
func (c *Client) WatchStatus(ctx context.Context, fn func(domain.AlarmStatus) error) error {
	stream, err := c.conn.NewStream(
		c.outgoing(ctx),
		&api.ServiceDesc.Streams[0],
		api.FullMethod(api.MethodWatchStatus),
	)
	if err != nil {
		return fmt.Errorf("watch status: %w", err)
	}

	if err = stream.SendMsg(new(emptypb.Empty)); err != nil {
		return fmt.Errorf("watch status: %w", err)
	}

	if err = stream.CloseSend(); err != nil {
		return fmt.Errorf("watch status: %w", err)
	}

	for {
		msg := new(wrapperspb.StringValue)
		if err = stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("watch status: %w", err)
		}

		alarm, err := domain.ParseAlarmStatus(msg.GetValue())
		if err != nil {
			return fmt.Errorf("watch status: %w", err)
		}

		if err = fn(alarm); err != nil {
			return err
		}
	}
}

func (c *Client) invokeStatus(ctx context.Context, method string, in any) (*service.Status, error) {
	out := new(structpb.Struct)
	if err := c.invoke(ctx, method, in, out); err != nil {
		return nil, err
	}

	current, err := api.StatusFromProto(out)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}

	return current, nil
}

func (c *Client) invoke(ctx context.Context, method string, in, out any) error {
	callCtx, cancel := c.callContext(c.outgoing(ctx))
	defer cancel()

	if err := c.conn.Invoke(callCtx, api.FullMethod(method), in, out); err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}

	return nil
}

func (c *Client) outgoing(ctx context.Context) context.Context {
	if c.actor == nil {
		return ctx
	}

	return ActorToOutgoingContext(ctx, *c.actor)
}

// callContext returns a context with the client's call timeout if configured,
// otherwise a cancellable child context without a deadline.
func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.callTimeout)
}
