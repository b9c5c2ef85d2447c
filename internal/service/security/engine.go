package security

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"

	"github.com/oshokin/catpoint/internal/classifier"
	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
	repo "github.com/oshokin/catpoint/internal/repository/state"
)

var (
	// ErrInvalidArmingStatus is returned for arming statuses outside the enumeration.
	ErrInvalidArmingStatus = errors.New("invalid arming status")
	// ErrListenerNotComparable is returned for listeners that cannot be set members.
	ErrListenerNotComparable = errors.New("status listener is not comparable")
)

// Status is a consistent view of the whole security state.
type Status struct {
	// Alarm is the current alarm status.
	Alarm domain.AlarmStatus
	// Arming is the current arming status.
	Arming domain.ArmingStatus
	// Sensors lists all known sensors.
	Sensors []domain.Sensor
}

// Engine decides the alarm status from sensor activity, the arming mode and
// cat detection results.
type Engine struct {
	// repo is the single source of truth for sensors and statuses.
	repo repo.Repository
	// classifier looks for cats in camera frames.
	classifier classifier.Classifier
	// threshold is the confidence passed to the classifier.
	threshold float32
	// listeners is the set of registered observers.
	listeners map[StatusListener]struct{}
	// mu serializes whole transitions and guards listeners.
	mu sync.Mutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithConfidenceThreshold overrides classifier.DefaultConfidenceThreshold.
func WithConfidenceThreshold(threshold float32) Option {
	return func(e *Engine) {
		if threshold > 0 {
			e.threshold = threshold
		}
	}
}

// NewEngine creates an engine backed by the provided collaborators.
func NewEngine(repository repo.Repository, imageClassifier classifier.Classifier, opts ...Option) *Engine {
	e := &Engine{
		repo:       repository,
		classifier: imageClassifier,
		threshold:  classifier.DefaultConfidenceThreshold,
		listeners:  make(map[StatusListener]struct{}),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// ConfidenceThreshold returns the threshold passed to the classifier.
func (e *Engine) ConfidenceThreshold() float32 {
	return e.threshold
}

// AddStatusListener registers a listener. Registering it twice is a no-op,
// nil is ignored and values that cannot be compared, such as structs holding
// slices or maps, are rejected with ErrListenerNotComparable.
func (e *Engine) AddStatusListener(listener StatusListener) error {
	if listener == nil {
		return nil
	}

	if !reflect.ValueOf(listener).Comparable() {
		return fmt.Errorf("%w: %T", ErrListenerNotComparable, listener)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.listeners[listener] = struct{}{}

	return nil
}

// RemoveStatusListener unregisters a listener. Unknown listeners are ignored.
func (e *Engine) RemoveStatusListener(listener StatusListener) {
	if listener == nil || !reflect.ValueOf(listener).Comparable() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	delete(e.listeners, listener)
}

// AlarmStatus returns the alarm status stored in the repository.
func (e *Engine) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.repo.AlarmStatus(ctx)
	if err != nil {
		return domain.NoAlarm, fmt.Errorf("read alarm status: %w", err)
	}

	return status, nil
}

// ArmingStatus returns the arming status stored in the repository.
func (e *Engine) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	status, err := e.repo.ArmingStatus(ctx)
	if err != nil {
		return domain.Disarmed, fmt.Errorf("read arming status: %w", err)
	}

	return status, nil
}

// Sensors returns the sensors stored in the repository.
func (e *Engine) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sensors: %w", err)
	}

	return sensors, nil
}

// Status returns alarm status, arming status and sensors read together.
func (e *Engine) Status(ctx context.Context) (*Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	alarm, arming, err := e.readStatuses(ctx)
	if err != nil {
		return nil, err
	}

	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return nil, fmt.Errorf("read sensors: %w", err)
	}

	return &Status{
		Alarm:   alarm,
		Arming:  arming,
		Sensors: sensors,
	}, nil
}

// AddSensor stores a new sensor. It never changes the alarm status.
func (e *Engine) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.AddSensor(ctx, sensor); err != nil {
		return fmt.Errorf("add sensor: %w", err)
	}

	logger.InfoKV(ctx, "Sensor added", "sensor", sensor.Key().String())
	e.notifySensor(ctx, sensor)

	return nil
}

// RemoveSensor deletes a sensor. It never changes the alarm status.
func (e *Engine) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.repo.RemoveSensor(ctx, sensor); err != nil {
		return fmt.Errorf("remove sensor: %w", err)
	}

	logger.InfoKV(ctx, "Sensor removed", "sensor", sensor.Key().String())
	e.notifySensor(ctx, sensor)

	return nil
}
