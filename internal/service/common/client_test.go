//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/classifier"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	repo "github.com/oshokin/catpoint/internal/repository/state"
	service "github.com/oshokin/catpoint/internal/service/security"
)

var errStopWatching = errors.New("stop watching")

// actorRecorder remembers the actor of the last unary call.
type actorRecorder struct {
	mu    sync.Mutex
	actor Actor
}

func (r *actorRecorder) intercept(
	ctx context.Context,
	req any,
	_ *grpc.UnaryServerInfo,
	handler grpc.UnaryHandler,
) (any, error) {
	if actor, ok := ActorFromIncomingContext(ctx); ok {
		r.mu.Lock()
		r.actor = actor
		r.mu.Unlock()
	}

	return handler(ctx, req)
}

func (r *actorRecorder) last() Actor {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.actor
}

func startClient(t *testing.T, engine *service.Engine, opts ...Option) (*Client, *actorRecorder) {
	t.Helper()

	recorder := new(actorRecorder)
	listener := bufconn.Listen(1024 * 1024)
	server := grpc.NewServer(grpc.UnaryInterceptor(recorder.intercept))
	api.RegisterSecurityServiceServer(server, api.NewServer(engine))

	go func() {
		_ = server.Serve(listener)
	}()

	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient(
		"passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = conn.Close()
	})

	return NewClient(conn, opts...), recorder
}

// TestDial_ValidatesAddress verifies that Dial rejects empty addresses.
func TestDial_ValidatesAddress(t *testing.T) {
	t.Parallel()

	c, err := Dial(context.Background(), "")
	require.Error(t, err)
	require.Nil(t, c)
}

// TestClient_callContext checks timeout vs cancel-only behavior of callContext.
func TestClient_callContext(t *testing.T) {
	t.Parallel()

	c := &Client{
		callTimeout: 0,
	}

	ctx, cancel := c.callContext(context.Background())
	cancel()

	require.NotNil(t, ctx)

	c.callTimeout = 10 * time.Millisecond

	ctx, cancel = c.callContext(context.Background())
	defer cancel()

	deadline, ok := ctx.Deadline()
	require.True(t, ok)
	require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, 30*time.Millisecond)
}

// TestClient_Close tolerates nil clients and borrowed connections.
func TestClient_Close(t *testing.T) {
	t.Parallel()

	var c *Client
	require.NoError(t, c.Close())
	require.NoError(t, NewClient(nil).Close())
}

// TestClient_Roundtrip drives every unary call against an in-process server.
func TestClient_Roundtrip(t *testing.T) {
	t.Parallel()

	engine := service.NewEngine(repo.NewMemoryRepository(), classifier.StaticClassifier{ContainsCat: true})
	actor := Actor{Hostname: "hall", Username: "alice"}
	client, recorder := startClient(t, engine, WithActor(actor))
	ctx := t.Context()

	window := domain.NewSensor("Kitchen", domain.Window)
	require.NoError(t, client.AddSensor(ctx, window))
	require.Equal(t, actor, recorder.last())

	current, err := client.SetArmingStatus(ctx, domain.ArmedAway)
	require.NoError(t, err)
	require.Equal(t, domain.ArmedAway, current.Arming)

	current, err = client.SetSensorActive(ctx, window, true)
	require.NoError(t, err)
	require.Equal(t, domain.PendingAlarm, current.Alarm)

	current, err = client.SetSensorActive(ctx, window, true)
	require.NoError(t, err)
	require.Equal(t, domain.Alarm, current.Alarm)

	current, err = client.DeactivateSensor(ctx, window)
	require.NoError(t, err)
	require.Equal(t, domain.PendingAlarm, current.Alarm)

	sensors, err := client.Sensors(ctx)
	require.NoError(t, err)
	require.Equal(t, []domain.Sensor{window}, sensors)

	current, err = client.ProcessImage(ctx, []byte("frame"))
	require.NoError(t, err)
	require.Equal(t, domain.PendingAlarm, current.Alarm)

	current, err = client.SetArmingStatus(ctx, domain.Disarmed)
	require.NoError(t, err)
	require.Equal(t, domain.NoAlarm, current.Alarm)

	require.NoError(t, client.RemoveSensor(ctx, window))

	current, err = client.Status(ctx)
	require.NoError(t, err)
	require.Empty(t, current.Sensors)
}

// TestClient_Errors keeps gRPC status codes reachable through wrapping.
func TestClient_Errors(t *testing.T) {
	t.Parallel()

	engine := service.NewEngine(repo.NewMemoryRepository(), classifier.StaticClassifier{})
	client, _ := startClient(t, engine)

	err := client.AddSensor(t.Context(), domain.Sensor{Type: domain.Door})
	require.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.ProcessImage(t.Context(), nil)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
}

// TestClient_WatchStatus receives the initial status and a change.
func TestClient_WatchStatus(t *testing.T) {
	t.Parallel()

	engine := service.NewEngine(repo.NewMemoryRepository(), classifier.StaticClassifier{ContainsCat: true})
	client, _ := startClient(t, engine)

	ctx, cancel := context.WithTimeout(t.Context(), 5*time.Second)
	defer cancel()

	var seen []domain.AlarmStatus

	err := client.WatchStatus(ctx, func(alarm domain.AlarmStatus) error {
		seen = append(seen, alarm)

		if len(seen) == 1 {
			require.NoError(t, engine.SetArmingStatus(ctx, domain.ArmedHome))
			require.NoError(t, engine.ProcessImage(ctx, []byte("frame")))

			return nil
		}

		return errStopWatching
	})
	require.ErrorIs(t, err, errStopWatching)
	require.Equal(t, []domain.AlarmStatus{domain.NoAlarm, domain.Alarm}, seen)
}
