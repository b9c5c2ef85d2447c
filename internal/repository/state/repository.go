package state

import (
	"cmp"
	"context"
	"maps"
	"slices"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// Repository defines persistence operations for the security state.
//
// Sensors form a set keyed by name and type: adding a known sensor or
// removing an unknown one is a no-op, and UpdateSensor stores the sensor
// whether or not it was known before.
type Repository interface {
	Sensors(ctx context.Context) ([]domain.Sensor, error)
	AddSensor(ctx context.Context, sensor domain.Sensor) error
	RemoveSensor(ctx context.Context, sensor domain.Sensor) error
	UpdateSensor(ctx context.Context, sensor domain.Sensor) error
	AlarmStatus(ctx context.Context) (domain.AlarmStatus, error)
	SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error
	ArmingStatus(ctx context.Context) (domain.ArmingStatus, error)
	SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error
}

// document is the serializable form of the whole state.
type document struct {
	AlarmStatus  domain.AlarmStatus  `yaml:"alarm_status"`
	ArmingStatus domain.ArmingStatus `yaml:"arming_status"`
	Sensors      []domain.Sensor     `yaml:"sensors"`
}

// snapshot is the in-memory state shared by the memory and file repositories.
// It is not safe for concurrent use; owners guard it with their own mutex.
type snapshot struct {
	alarm   domain.AlarmStatus
	arming  domain.ArmingStatus
	sensors map[domain.SensorKey]domain.Sensor
}

func newSnapshot() *snapshot {
	return &snapshot{
		alarm:   domain.NoAlarm,
		arming:  domain.Disarmed,
		sensors: make(map[domain.SensorKey]domain.Sensor),
	}
}

func (s *snapshot) clone() *snapshot {
	sensors := make(map[domain.SensorKey]domain.Sensor, len(s.sensors))
	for key, sensor := range s.sensors {
		sensors[key] = sensor
	}

	return &snapshot{
		alarm:   s.alarm,
		arming:  s.arming,
		sensors: sensors,
	}
}

// addSensor stores the sensor unless a sensor with the same key exists.
func (s *snapshot) addSensor(sensor domain.Sensor) bool {
	if _, ok := s.sensors[sensor.Key()]; ok {
		return false
	}

	s.sensors[sensor.Key()] = sensor

	return true
}

// removeSensor deletes the sensor and reports whether it was present.
func (s *snapshot) removeSensor(sensor domain.Sensor) bool {
	if _, ok := s.sensors[sensor.Key()]; !ok {
		return false
	}

	delete(s.sensors, sensor.Key())

	return true
}

// updateSensor stores the sensor and reports whether anything changed.
func (s *snapshot) updateSensor(sensor domain.Sensor) bool {
	if existing, ok := s.sensors[sensor.Key()]; ok && existing == sensor {
		return false
	}

	s.sensors[sensor.Key()] = sensor

	return true
}

func (s *snapshot) sensorList() []domain.Sensor {
	return sortSensors(slices.Collect(maps.Values(s.sensors)))
}

func (s *snapshot) toDocument() *document {
	return &document{
		AlarmStatus:  s.alarm,
		ArmingStatus: s.arming,
		Sensors:      s.sensorList(),
	}
}

func snapshotFromDocument(doc *document) (*snapshot, error) {
	s := newSnapshot()
	s.alarm = doc.AlarmStatus
	s.arming = doc.ArmingStatus

	for _, sensor := range doc.Sensors {
		if err := sensor.Validate(); err != nil {
			return nil, err
		}

		s.sensors[sensor.Key()] = sensor
	}

	return s, nil
}

// sortSensors orders sensors by name, then type, so listings are stable.
func sortSensors(sensors []domain.Sensor) []domain.Sensor {
	slices.SortFunc(sensors, func(a, b domain.Sensor) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Type, b.Type))
	})

	return sensors
}
