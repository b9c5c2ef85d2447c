package security

import (
	"context"

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

// StatusListener is notified every time the alarm status changes.
//
// Listeners run synchronously while the engine lock is held, so they must
// return quickly and must not call back into the Engine. They are kept in a
// set, which means implementations have to be comparable (pointer types are);
// AddStatusListener rejects the rest.
type StatusListener interface {
	NotifyAlarmStatus(ctx context.Context, status domain.AlarmStatus)
}

// CatDetectionListener is an optional extension of StatusListener that is
// told about every classification result.
type CatDetectionListener interface {
	CatDetected(ctx context.Context, detected bool)
}

// SensorListener is an optional extension of StatusListener that is told
// about every sensor that was added, removed or changed its activation flag.
type SensorListener interface {
	SensorStatusChanged(ctx context.Context, sensor domain.Sensor)
}
