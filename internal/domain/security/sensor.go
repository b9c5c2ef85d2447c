package security

import (
	"errors"
	"fmt"
	"strings"
)

// SensorType is the physical category of a sensor.
type SensorType int

const (
	// Door is a contact sensor on a door.
	Door SensorType = iota
	// Window is a contact sensor on a window.
	Window
	// Motion is a presence detector.
	Motion
)

var (
	// ErrUnknownSensorType is returned when a sensor type name can't be parsed.
	ErrUnknownSensorType = errors.New("unknown sensor type")
	// ErrEmptySensorName is returned for sensors without a name.
	ErrEmptySensorName = errors.New("sensor name is empty")
)

//nolint:gochecknoglobals // Lookup table.
var sensorTypeNames = map[SensorType]string{
	Door:   "DOOR",
	Window: "WINDOW",
	Motion: "MOTION",
}

// SensorTypes returns all known sensor types in declaration order.
func SensorTypes() []SensorType {
	return []SensorType{Door, Window, Motion}
}

// String returns the upper-case wire name of the sensor type.
func (t SensorType) String() string {
	if name, ok := sensorTypeNames[t]; ok {
		return name
	}

	return fmt.Sprintf("SensorType(%d)", int(t))
}

// Valid reports whether t is one of the defined types.
func (t SensorType) Valid() bool {
	_, ok := sensorTypeNames[t]

	return ok
}

// MarshalText implements encoding.TextMarshaler.
func (t SensorType) MarshalText() ([]byte, error) {
	if !t.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownSensorType, int(t))
	}

	return []byte(t.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (t *SensorType) UnmarshalText(text []byte) error {
	parsed, err := ParseSensorType(string(text))
	if err != nil {
		return err
	}

	*t = parsed

	return nil
}

// ParseSensorType converts a name such as "window" into a SensorType.
func ParseSensorType(s string) (SensorType, error) {
	normalized := strings.ToUpper(strings.TrimSpace(s))
	for sensorType, name := range sensorTypeNames {
		if name == normalized {
			return sensorType, nil
		}
	}

	return Door, fmt.Errorf("%w: %q", ErrUnknownSensorType, s)
}

// SensorKey is the identity of a sensor. Two sensors with equal keys are
// the same sensor regardless of their activation flag.
type SensorKey struct {
	Name string
	Type SensorType
}

// String renders the key as TYPE/name.
func (k SensorKey) String() string {
	return k.Type.String() + "/" + k.Name
}

// Sensor is a named, typed binary detector.
type Sensor struct {
	// Name is the user-facing sensor name.
	Name string `yaml:"name"`
	// Type is the sensor category.
	Type SensorType `yaml:"type"`
	// Active is true while the sensor reports activity.
	Active bool `yaml:"active"`
}

// NewSensor returns an inactive sensor.
func NewSensor(name string, sensorType SensorType) Sensor {
	return Sensor{
		Name: name,
		Type: sensorType,
	}
}

// Key returns the sensor identity.
func (s Sensor) Key() SensorKey {
	return SensorKey{
		Name: s.Name,
		Type: s.Type,
	}
}

// WithActive returns a copy of the sensor with the activation flag set.
func (s Sensor) WithActive(active bool) Sensor {
	s.Active = active

	return s
}

// Validate checks that the sensor can be stored.
func (s Sensor) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return ErrEmptySensorName
	}

	if !s.Type.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownSensorType, int(s.Type))
	}

	return nil
}

// AnyActive reports whether at least one sensor is active.
func AnyActive(sensors []Sensor) bool {
	for _, sensor := range sensors {
		if sensor.Active {
			return true
		}
	}

	return false
}
