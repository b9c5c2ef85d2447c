package mqtt

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPayload is returned for sensor payloads that are neither on nor off.
var ErrInvalidPayload = errors.New("invalid sensor payload")

// ParseActive converts a sensor payload into an activation flag. Contact
// sensors usually say open/closed, motion sensors on/off or 1/0.
func ParseActive(payload []byte) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(string(payload))) {
	case "1", "true", "on", "open", "active", "motion":
		return true, nil
	case "0", "false", "off", "closed", "inactive", "clear":
		return false, nil
	default:
		return false, fmt.Errorf("%w: %q", ErrInvalidPayload, payload)
	}
}

// FormatActive renders an activation flag as a payload.
func FormatActive(active bool) string {
	if active {
		return "true"
	}

	return "false"
}
