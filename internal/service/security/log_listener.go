package security

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// LogListener writes every notification to the context logger.
type LogListener struct{}

// NewLogListener creates a LogListener.
func NewLogListener() *LogListener {
	return new(LogListener)
}

// NotifyAlarmStatus implements StatusListener.
func (*LogListener) NotifyAlarmStatus(ctx context.Context, status domain.AlarmStatus) {
	logger.InfoKV(ctx, "Alarm status notification", "alarm_status", status, "description", status.Description())
}

// CatDetected implements CatDetectionListener.
func (*LogListener) CatDetected(ctx context.Context, detected bool) {
	logger.DebugKV(ctx, "Camera frame classified", "cat_detected", detected)
}

// SensorStatusChanged implements SensorListener.
func (*LogListener) SensorStatusChanged(ctx context.Context, sensor domain.Sensor) {
	logger.DebugKV(ctx, "Sensor changed", "sensor", sensor.Key().String(), "active", sensor.Active)
}
