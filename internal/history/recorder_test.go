package history

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/oshokin/catpoint/internal/classifier"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	repo "github.com/oshokin/catpoint/internal/repository/state"
	service "github.com/oshokin/catpoint/internal/service/security"
)

var errTestWrite = errors.New("test write error")

// fakeWriteAPI queues points like the batching write API does and hands
// them to a background sender that waits on release before each point.
type fakeWriteAPI struct {
	queue   chan *write.Point
	errs    chan error
	release chan struct{}

	mu      sync.Mutex
	points  []*write.Point
	flushes int
}

func newFakeWriteAPI(stalled bool) *fakeWriteAPI {
	f := &fakeWriteAPI{
		queue:   make(chan *write.Point, 64),
		errs:    make(chan error, 1),
		release: make(chan struct{}),
	}

	if !stalled {
		close(f.release)
	}

	go f.send()

	return f
}

func (f *fakeWriteAPI) send() {
	for point := range f.queue {
		<-f.release

		f.mu.Lock()
		f.points = append(f.points, point)
		f.mu.Unlock()
	}
}

func (f *fakeWriteAPI) sent() []*write.Point {
	f.mu.Lock()
	defer f.mu.Unlock()

	return append([]*write.Point(nil), f.points...)
}

func (f *fakeWriteAPI) WriteRecord(string) {}

func (f *fakeWriteAPI) WritePoint(point *write.Point) {
	f.queue <- point
}

func (f *fakeWriteAPI) Flush() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.flushes++
}

func (f *fakeWriteAPI) Errors() <-chan error {
	return f.errs
}

func (f *fakeWriteAPI) SetWriteFailedCallback(api.WriteFailedCallback) {}

// syncBuffer is a bytes.Buffer safe for the logging goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.buf.String()
}

// TestRecorder_Points verifies each notification becomes one point.
func TestRecorder_Points(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	writeAPI := newFakeWriteAPI(false)
	recorder := NewRecorder(ctx, writeAPI)

	ts := time.Unix(1700000000, 0)
	recorder.now = func() time.Time { return ts }

	recorder.NotifyAlarmStatus(ctx, domain.PendingAlarm)
	recorder.CatDetected(ctx, true)
	recorder.SensorStatusChanged(ctx, domain.NewSensor("Hall", domain.Motion).WithActive(true))

	require.Eventually(t, func() bool {
		return len(writeAPI.sent()) == 3
	}, time.Second, 5*time.Millisecond)

	points := writeAPI.sent()

	alarm := points[0]
	require.Equal(t, measurementAlarm, alarm.Name())
	require.Equal(t, "PENDING_ALARM", alarm.TagList()[0].Value)
	require.Equal(t, int64(1), alarm.FieldList()[0].Value)
	require.Equal(t, ts, alarm.Time())

	require.Equal(t, measurementCamera, points[1].Name())
	require.Equal(t, true, points[1].FieldList()[0].Value)

	sensor := points[2]
	require.Equal(t, measurementSensor, sensor.Name())
	require.Len(t, sensor.TagList(), 2)

	// Close without a client only flushes.
	recorder.Close()

	writeAPI.mu.Lock()
	require.Equal(t, 1, writeAPI.flushes)
	writeAPI.mu.Unlock()
}

// TestRecorder_SlowServerDoesNotBlockEngine keeps engine calls fast while
// points are stuck on their way to the server.
func TestRecorder_SlowServerDoesNotBlockEngine(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	writeAPI := newFakeWriteAPI(true)
	recorder := NewRecorder(ctx, writeAPI)

	engine := service.NewEngine(repo.NewMemoryRepository(), classifier.StaticClassifier{})
	require.NoError(t, engine.AddStatusListener(recorder))

	done := make(chan error, 1)

	go func() {
		if err := engine.SetArmingStatus(ctx, domain.Disarmed); err != nil {
			done <- err

			return
		}

		_, err := engine.AlarmStatus(ctx)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("engine blocked by a stalled history write")
	}

	require.Empty(t, writeAPI.sent())

	close(writeAPI.release)

	require.Eventually(t, func() bool {
		return len(writeAPI.sent()) == 1
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, measurementAlarm, writeAPI.sent()[0].Name())
}

// TestRecorder_LogsWriteErrors reports asynchronous failures through the logger.
func TestRecorder_LogsWriteErrors(t *testing.T) {
	t.Parallel()

	var buf syncBuffer

	ctx := logger.ToContext(context.Background(), logger.NewWithSink(zapcore.AddSync(&buf), zapcore.DebugLevel))
	writeAPI := newFakeWriteAPI(false)
	_ = NewRecorder(ctx, writeAPI)

	writeAPI.errs <- errTestWrite

	require.Eventually(t, func() bool {
		return strings.Contains(buf.String(), errTestWrite.Error())
	}, time.Second, 5*time.Millisecond)
	require.Contains(t, buf.String(), "history")

	close(writeAPI.errs)
}
