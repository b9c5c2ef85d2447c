package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// DefaultFilePermissions is the permission mode of the state file.
const DefaultFilePermissions = 0o600

// FileRepository keeps the security state in memory and rewrites a YAML
// document on disk after every change. A change that can't be written is
// not applied.
type FileRepository struct {
	// path is the filesystem location of the YAML state file.
	path string
	// state is the last successfully persisted snapshot.
	state *snapshot
	// mu protects state and serializes writes to the file.
	mu sync.RWMutex
}

// OpenFileRepository loads the state stored at path. A missing file yields
// a disarmed state without sensors; the file is created on the first change.
func OpenFileRepository(path string) (*FileRepository, error) {
	r := &FileRepository{
		path:  filepath.Clean(path),
		state: newSnapshot(),
	}

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return r, nil
		}

		return nil, fmt.Errorf("read state file: %w", err)
	}

	var doc document
	if err = yaml.Unmarshal(contents, &doc); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	if r.state, err = snapshotFromDocument(&doc); err != nil {
		return nil, fmt.Errorf("decode state file: %w", err)
	}

	return r, nil
}

// Path returns the location of the state file.
func (r *FileRepository) Path() string {
	return r.path
}

// Sensors returns all sensors ordered by name.
func (r *FileRepository) Sensors(context.Context) ([]domain.Sensor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.sensorList(), nil
}

// AddSensor stores a new sensor.
func (r *FileRepository) AddSensor(_ context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	return r.mutate(func(s *snapshot) bool {
		return s.addSensor(sensor)
	})
}

// RemoveSensor deletes a sensor.
func (r *FileRepository) RemoveSensor(_ context.Context, sensor domain.Sensor) error {
	return r.mutate(func(s *snapshot) bool {
		return s.removeSensor(sensor)
	})
}

// UpdateSensor stores the sensor with its current activation flag.
func (r *FileRepository) UpdateSensor(_ context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	return r.mutate(func(s *snapshot) bool {
		return s.updateSensor(sensor)
	})
}

// AlarmStatus returns the stored alarm status.
func (r *FileRepository) AlarmStatus(context.Context) (domain.AlarmStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.alarm, nil
}

// SetAlarmStatus stores the alarm status.
func (r *FileRepository) SetAlarmStatus(_ context.Context, status domain.AlarmStatus) error {
	return r.mutate(func(s *snapshot) bool {
		changed := s.alarm != status
		s.alarm = status

		return changed
	})
}

// ArmingStatus returns the stored arming status.
func (r *FileRepository) ArmingStatus(context.Context) (domain.ArmingStatus, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.state.arming, nil
}

// SetArmingStatus stores the arming status.
func (r *FileRepository) SetArmingStatus(_ context.Context, status domain.ArmingStatus) error {
	return r.mutate(func(s *snapshot) bool {
		changed := s.arming != status
		s.arming = status

		return changed
	})
}

// mutate applies fn to a copy of the state and persists the copy when fn
// reports a change. The in-memory state is replaced only after the write.
func (r *FileRepository) mutate(fn func(s *snapshot) bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	next := r.state.clone()
	if !fn(next) {
		return nil
	}

	if err := r.save(next); err != nil {
		return err
	}

	r.state = next

	return nil
}

// save writes the snapshot next to the target and renames it into place.
func (r *FileRepository) save(s *snapshot) error {
	data, err := yaml.Marshal(s.toDocument())
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	tmp := r.path + ".tmp"
	if err = os.WriteFile(tmp, data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write state file: %w", err)
	}

	if err = os.Rename(tmp, r.path); err != nil {
		_ = os.Remove(tmp)

		return fmt.Errorf("replace state file: %w", err)
	}

	return nil
}
