package security

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// TestSensorIdentity verifies that activation does not change a sensor's key.
func TestSensorIdentity(t *testing.T) {
	t.Parallel()

	s := NewSensor("Front door", Door)
	require.False(t, s.Active)

	active := s.WithActive(true)
	require.True(t, active.Active)
	require.False(t, s.Active)
	require.Equal(t, s.Key(), active.Key())
	require.NotEqual(t, s.Key(), NewSensor("Front door", Window).Key())
	require.Equal(t, "DOOR/Front door", s.Key().String())
}

// TestSensorValidate rejects empty names and unknown types.
func TestSensorValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewSensor("Hall", Motion).Validate())
	require.ErrorIs(t, NewSensor("  ", Motion).Validate(), ErrEmptySensorName)
	require.ErrorIs(t, NewSensor("Hall", SensorType(9)).Validate(), ErrUnknownSensorType)
}

// TestParseSensorType checks parsing of every declared type.
func TestParseSensorType(t *testing.T) {
	t.Parallel()

	for _, sensorType := range SensorTypes() {
		parsed, err := ParseSensorType(sensorType.String())
		require.NoError(t, err)
		require.Equal(t, sensorType, parsed)
	}

	parsed, err := ParseSensorType(" motion ")
	require.NoError(t, err)
	require.Equal(t, Motion, parsed)

	_, err = ParseSensorType("smoke")
	require.ErrorIs(t, err, ErrUnknownSensorType)
}

// TestAnyActive checks the helper against empty, inactive and mixed sets.
func TestAnyActive(t *testing.T) {
	t.Parallel()

	require.False(t, AnyActive(nil))
	require.False(t, AnyActive([]Sensor{NewSensor("a", Door), NewSensor("b", Window)}))
	require.True(t, AnyActive([]Sensor{NewSensor("a", Door), NewSensor("b", Window).WithActive(true)}))
}
