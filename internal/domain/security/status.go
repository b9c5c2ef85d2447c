package security

import (
	"errors"
	"fmt"
	"strings"
)

// AlarmStatus is the severity of the alarm. Values are ordered, so
// NoAlarm < PendingAlarm < Alarm can be compared directly.
type AlarmStatus int

const (
	// NoAlarm means nothing suspicious is happening.
	NoAlarm AlarmStatus = iota
	// PendingAlarm means a single piece of evidence was seen while armed.
	PendingAlarm
	// Alarm is the highest severity.
	Alarm
)

// ArmingStatus controls whether sensor activity may escalate the alarm.
type ArmingStatus int

const (
	// Disarmed ignores all sensor activity.
	Disarmed ArmingStatus = iota
	// ArmedHome is used while people are at home; camera evidence counts.
	ArmedHome
	// ArmedAway is used while the house is empty.
	ArmedAway
)

var (
	// ErrUnknownAlarmStatus is returned when an alarm status name can't be parsed.
	ErrUnknownAlarmStatus = errors.New("unknown alarm status")
	// ErrUnknownArmingStatus is returned when an arming status name can't be parsed.
	ErrUnknownArmingStatus = errors.New("unknown arming status")
)

//nolint:gochecknoglobals // Lookup tables.
var (
	alarmStatusNames = map[AlarmStatus]string{
		NoAlarm:      "NO_ALARM",
		PendingAlarm: "PENDING_ALARM",
		Alarm:        "ALARM",
	}
	armingStatusNames = map[ArmingStatus]string{
		Disarmed:  "DISARMED",
		ArmedHome: "ARMED_HOME",
		ArmedAway: "ARMED_AWAY",
	}
)

// String returns the upper-case wire name of the status.
func (s AlarmStatus) String() string {
	if name, ok := alarmStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("AlarmStatus(%d)", int(s))
}

// Description returns a human readable text for UIs and logs.
func (s AlarmStatus) Description() string {
	switch s {
	case NoAlarm:
		return "Cool and Good"
	case PendingAlarm:
		return "I'm in Danger..."
	case Alarm:
		return "Awooga!"
	default:
		return s.String()
	}
}

// Valid reports whether s is one of the defined statuses.
func (s AlarmStatus) Valid() bool {
	_, ok := alarmStatusNames[s]

	return ok
}

// Escalate returns the next, more severe status. Alarm stays Alarm.
func (s AlarmStatus) Escalate() AlarmStatus {
	if s >= Alarm {
		return Alarm
	}

	return s + 1
}

// Deescalate returns the previous, less severe status. NoAlarm stays NoAlarm.
func (s AlarmStatus) Deescalate() AlarmStatus {
	if s <= NoAlarm {
		return NoAlarm
	}

	return s - 1
}

// MarshalText implements encoding.TextMarshaler.
func (s AlarmStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownAlarmStatus, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *AlarmStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseAlarmStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseAlarmStatus converts a name such as "pending_alarm" into an AlarmStatus.
func ParseAlarmStatus(s string) (AlarmStatus, error) {
	normalized := normalizeName(s)
	for status, name := range alarmStatusNames {
		if name == normalized {
			return status, nil
		}
	}

	return NoAlarm, fmt.Errorf("%w: %q", ErrUnknownAlarmStatus, s)
}

// String returns the upper-case wire name of the status.
func (s ArmingStatus) String() string {
	if name, ok := armingStatusNames[s]; ok {
		return name
	}

	return fmt.Sprintf("ArmingStatus(%d)", int(s))
}

// Description returns a human readable text for UIs and logs.
func (s ArmingStatus) Description() string {
	switch s {
	case Disarmed:
		return "Disarmed"
	case ArmedHome:
		return "Armed - At Home"
	case ArmedAway:
		return "Armed - Away"
	default:
		return s.String()
	}
}

// Valid reports whether s is one of the defined statuses.
func (s ArmingStatus) Valid() bool {
	_, ok := armingStatusNames[s]

	return ok
}

// IsArmed reports whether sensor activity can escalate the alarm.
func (s ArmingStatus) IsArmed() bool {
	return s == ArmedHome || s == ArmedAway
}

// MarshalText implements encoding.TextMarshaler.
func (s ArmingStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownArmingStatus, int(s))
	}

	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *ArmingStatus) UnmarshalText(text []byte) error {
	parsed, err := ParseArmingStatus(string(text))
	if err != nil {
		return err
	}

	*s = parsed

	return nil
}

// ParseArmingStatus converts a name such as "armed-home" into an ArmingStatus.
func ParseArmingStatus(s string) (ArmingStatus, error) {
	normalized := normalizeName(s)
	for status, name := range armingStatusNames {
		if name == normalized {
			return status, nil
		}
	}

	return Disarmed, fmt.Errorf("%w: %q", ErrUnknownArmingStatus, s)
}

// normalizeName upper-cases s and accepts dashes in place of underscores.
func normalizeName(s string) string {
	return strings.ReplaceAll(strings.ToUpper(strings.TrimSpace(s)), "-", "_")
}
