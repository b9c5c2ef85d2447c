package security

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/catpoint/internal/classifier"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	repo "github.com/oshokin/catpoint/internal/repository/state"
)

var (
	errTestRepository = errors.New("test repository error")
	errTestClassifier = errors.New("test classifier error")
)

// recordingRepository wraps a MemoryRepository and records every write.
type recordingRepository struct {
	*repo.MemoryRepository

	// alarmWrites lists every status passed to SetAlarmStatus.
	alarmWrites []domain.AlarmStatus
	// armingWrites lists every status passed to SetArmingStatus.
	armingWrites []domain.ArmingStatus
	// sensorUpdates lists every sensor passed to UpdateSensor.
	sensorUpdates []domain.Sensor
	// failUpdate makes UpdateSensor fail.
	failUpdate bool
	// failAlarmWrite makes SetAlarmStatus fail.
	failAlarmWrite bool
	// failSensors makes Sensors fail.
	failSensors bool
}

func newRecordingRepository(
	t *testing.T,
	alarm domain.AlarmStatus,
	arming domain.ArmingStatus,
	sensors ...domain.Sensor,
) *recordingRepository {
	t.Helper()

	ctx := context.Background()
	memory := repo.NewMemoryRepository()

	require.NoError(t, memory.SetAlarmStatus(ctx, alarm))
	require.NoError(t, memory.SetArmingStatus(ctx, arming))

	for _, sensor := range sensors {
		require.NoError(t, memory.AddSensor(ctx, sensor))
	}

	return &recordingRepository{MemoryRepository: memory}
}

func (r *recordingRepository) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	if r.failSensors {
		return nil, errTestRepository
	}

	return r.MemoryRepository.Sensors(ctx)
}

func (r *recordingRepository) UpdateSensor(ctx context.Context, sensor domain.Sensor) error {
	if r.failUpdate {
		return errTestRepository
	}

	r.sensorUpdates = append(r.sensorUpdates, sensor)

	return r.MemoryRepository.UpdateSensor(ctx, sensor)
}

func (r *recordingRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	if r.failAlarmWrite {
		return errTestRepository
	}

	r.alarmWrites = append(r.alarmWrites, status)

	return r.MemoryRepository.SetAlarmStatus(ctx, status)
}

func (r *recordingRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	r.armingWrites = append(r.armingWrites, status)

	return r.MemoryRepository.SetArmingStatus(ctx, status)
}

func (r *recordingRepository) alarm(t *testing.T) domain.AlarmStatus {
	t.Helper()

	status, err := r.MemoryRepository.AlarmStatus(context.Background())
	require.NoError(t, err)

	return status
}

// recordingListener records every notification it receives.
type recordingListener struct {
	statuses []domain.AlarmStatus
	cats     []bool
	sensors  []domain.Sensor
}

func (l *recordingListener) NotifyAlarmStatus(_ context.Context, status domain.AlarmStatus) {
	l.statuses = append(l.statuses, status)
}

func (l *recordingListener) CatDetected(_ context.Context, detected bool) {
	l.cats = append(l.cats, detected)
}

func (l *recordingListener) SensorStatusChanged(_ context.Context, sensor domain.Sensor) {
	l.sensors = append(l.sensors, sensor)
}

// statusOnlyListener implements only the mandatory interface.
type statusOnlyListener struct {
	statuses []domain.AlarmStatus
}

func (l *statusOnlyListener) NotifyAlarmStatus(_ context.Context, status domain.AlarmStatus) {
	l.statuses = append(l.statuses, status)
}

// countingClassifier returns a fixed answer and counts calls.
type countingClassifier struct {
	containsCat bool
	err         error
	calls       int
	thresholds  []float32
}

func (c *countingClassifier) ImageContainsCat(_ context.Context, _ []byte, threshold float32) (bool, error) {
	c.calls++
	c.thresholds = append(c.thresholds, threshold)

	return c.containsCat, c.err
}

// newTestEngine wires an engine with a recording listener attached.
func newTestEngine(
	t *testing.T,
	repository repo.Repository,
	imageClassifier classifier.Classifier,
) (*Engine, *recordingListener) {
	t.Helper()

	if imageClassifier == nil {
		imageClassifier = classifier.StaticClassifier{}
	}

	engine := NewEngine(repository, imageClassifier)
	listener := new(recordingListener)
	require.NoError(t, engine.AddStatusListener(listener))

	return engine, listener
}

// makeSensors creates n sensors of rotating types with the given flag.
func makeSensors(n int, active bool) []domain.Sensor {
	types := domain.SensorTypes()
	sensors := make([]domain.Sensor, 0, n)

	for i := range n {
		sensors = append(sensors, domain.NewSensor(fmt.Sprintf("sensor-%d", i), types[i%len(types)]).WithActive(active))
	}

	return sensors
}

func armedStatuses() []domain.ArmingStatus {
	return []domain.ArmingStatus{domain.ArmedHome, domain.ArmedAway}
}
