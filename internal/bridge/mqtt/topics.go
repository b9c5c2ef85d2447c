package mqtt

import (
	"errors"
	"fmt"
	"strings"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// ErrInvalidTopic is returned for topics that do not match the sensor layout.
var ErrInvalidTopic = errors.New("invalid sensor topic")

// Topics builds topic names under a common prefix.
type Topics struct {
	Prefix string
}

// AlarmStatus is where the alarm status is published (retained).
func (t Topics) AlarmStatus() string {
	return t.Prefix + "/alarm/status"
}

// Availability carries "online"/"offline"; "offline" is the last will.
func (t Topics) Availability() string {
	return t.Prefix + "/availability"
}

// CatDetected is where classification results are published.
func (t Topics) CatDetected() string {
	return t.Prefix + "/camera/cat"
}

// CameraFrame is where cameras publish raw frames.
func (t Topics) CameraFrame() string {
	return t.Prefix + "/camera/frame"
}

// ArmingSet is where arming requests are received.
func (t Topics) ArmingSet() string {
	return t.Prefix + "/arming/set"
}

// SensorSetFilter matches every sensor state report.
func (t Topics) SensorSetFilter() string {
	return t.Prefix + "/sensor/+/+/set"
}

// SensorSet is where the sensor reports its state.
func (t Topics) SensorSet(sensor domain.Sensor) string {
	return fmt.Sprintf("%s/sensor/%s/%s/set", t.Prefix, sensor.Type, sensor.Name)
}

// SensorState is where the stored sensor state is published (retained).
func (t Topics) SensorState(sensor domain.Sensor) string {
	return fmt.Sprintf("%s/sensor/%s/%s/state", t.Prefix, sensor.Type, sensor.Name)
}

// ParseSensorSet extracts the sensor identity from a SensorSet topic.
func (t Topics) ParseSensorSet(topic string) (domain.Sensor, error) {
	rest, ok := strings.CutPrefix(topic, t.Prefix+"/sensor/")
	if !ok {
		return domain.Sensor{}, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	parts := strings.Split(rest, "/")

	const expectedParts = 3 // type, name, "set"
	if len(parts) != expectedParts || parts[2] != "set" || parts[1] == "" {
		return domain.Sensor{}, fmt.Errorf("%w: %q", ErrInvalidTopic, topic)
	}

	sensorType, err := domain.ParseSensorType(parts[0])
	if err != nil {
		return domain.Sensor{}, fmt.Errorf("%w: %w", ErrInvalidTopic, err)
	}

	return domain.NewSensor(parts[1], sensorType), nil
}
