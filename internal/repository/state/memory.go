package state

import (
	"context"
	"sync"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// MemoryRepository keeps the security state in process memory.
type MemoryRepository struct {
	// state is the current snapshot.
	state *snapshot
	// mu protects state.
	mu sync.RWMutex
}

// NewMemoryRepository creates a disarmed repository with no sensors.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		state: newSnapshot(),
	}
}

// Sensors returns all sensors ordered by name.
func (r *MemoryRepository) Sensors(context.Context) ([]domain.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.sensorList(), nil
}

// AddSensor stores a new sensor.
func (r *MemoryRepository) AddSensor(_ context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.addSensor(sensor)

	return nil
}

// RemoveSensor deletes a sensor.
func (r *MemoryRepository) RemoveSensor(_ context.Context, sensor domain.Sensor) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.removeSensor(sensor)

	return nil
}

// UpdateSensor stores the sensor with its current activation flag.
func (r *MemoryRepository) UpdateSensor(_ context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.updateSensor(sensor)

	return nil
}

// AlarmStatus returns the stored alarm status.
func (r *MemoryRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.alarm, nil
}

// SetAlarmStatus stores the alarm status.
func (r *MemoryRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.alarm = status

	return nil
}

// ArmingStatus returns the stored arming status.
func (r *MemoryRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.arming, nil
}

// SetArmingStatus stores the arming status.
func (r *MemoryRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.state.arming = status

	return nil
}
