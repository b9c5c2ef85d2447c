package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// Measurement names.
const (
	measurementAlarm  = "alarm_status"
	measurementCamera = "camera"
	measurementSensor = "sensor"
)

const (
	// defaultPingTimeout bounds the connectivity check in Connect.
	defaultPingTimeout = 5 * time.Second
	// defaultBatchSize is the number of points sent in one request.
	defaultBatchSize = 100
	// defaultFlushInterval is how often pending points are sent, in milliseconds.
	defaultFlushInterval = 1000
)

var (
	// ErrUnreachable is returned when the InfluxDB server does not answer.
	ErrUnreachable = errors.New("influxdb is unreachable")
)

// Recorder is a status listener that writes every notification to InfluxDB.
// Points are queued by the non-blocking write API and sent in batches, so a
// slow server never holds up the engine. Write failures are logged.
type Recorder struct {
	client   influxdb2.Client
	writeAPI api.WriteAPI
	now      func() time.Time
}

// Connect creates a client, checks that the server answers and returns a
// Recorder writing into org/bucket.
func Connect(ctx context.Context, serverURL, token, org, bucket string) (*Recorder, error) {
	client := influxdb2.NewClientWithOptions(serverURL, token,
		influxdb2.DefaultOptions().
			SetBatchSize(defaultBatchSize).
			SetFlushInterval(defaultFlushInterval),
	)

	pingCtx, cancel := context.WithTimeout(ctx, defaultPingTimeout)
	defer cancel()

	ok, err := client.Ping(pingCtx)
	if err != nil {
		client.Close()

		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	if !ok {
		client.Close()

		return nil, ErrUnreachable
	}

	recorder := NewRecorder(ctx, client.WriteAPI(org, bucket))
	recorder.client = client

	return recorder, nil
}

// NewRecorder creates a Recorder on top of an existing write API and logs
// asynchronous write errors with the logger of ctx until the API's error
// channel is closed.
func NewRecorder(ctx context.Context, writeAPI api.WriteAPI) *Recorder {
	ctx = logger.WithName(ctx, "history")

	go logWriteErrors(ctx, writeAPI.Errors())

	return &Recorder{
		writeAPI: writeAPI,
		now:      time.Now,
	}
}

// Close sends pending points and releases the client created by Connect.
func (r *Recorder) Close() {
	r.writeAPI.Flush()

	if r.client != nil {
		r.client.Close()
	}
}

// NotifyAlarmStatus records the new alarm status. The numeric level allows
// graphing severity over time.
func (r *Recorder) NotifyAlarmStatus(_ context.Context, status domain.AlarmStatus) {
	r.write(write.NewPoint(
		measurementAlarm,
		map[string]string{"status": status.String()},
		map[string]any{"level": int(status)},
		r.now(),
	))
}

// CatDetected records a classification result.
func (r *Recorder) CatDetected(_ context.Context, detected bool) {
	r.write(write.NewPoint(
		measurementCamera,
		nil,
		map[string]any{"cat_detected": detected},
		r.now(),
	))
}

// SensorStatusChanged records a sensor activation flag.
func (r *Recorder) SensorStatusChanged(_ context.Context, sensor domain.Sensor) {
	r.write(write.NewPoint(
		measurementSensor,
		map[string]string{
			"name": sensor.Name,
			"type": sensor.Type.String(),
		},
		map[string]any{"active": sensor.Active},
		r.now(),
	))
}

func (r *Recorder) write(point *write.Point) {
	r.writeAPI.WritePoint(point)
}

func logWriteErrors(ctx context.Context, errs <-chan error) {
	for err := range errs {
		logger.ErrorKV(ctx, "Failed to record history points", "error", err)
	}
}
