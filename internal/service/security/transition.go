package security

import (
	"context"
	"fmt"

	domain "github.com/oshokin/catpoint/internal/domain/security"
	"github.com/oshokin/catpoint/internal/logger"
)

// HandleSensorActivation stores the sensor with the new activation flag and
// applies the consequences to the alarm status:
//   - nothing changes while the alarm is already raised;
//   - an activation while armed escalates by one level;
//   - a deactivation while pending clears the alarm once no sensor is active.
func (e *Engine) HandleSensorActivation(ctx context.Context, sensor domain.Sensor, active bool) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = logger.WithKV(ctx, "sensor", sensor.Key().String())

	alarm, arming, err := e.readStatuses(ctx)
	if err != nil {
		return err
	}

	sensor.Active = active
	if err = e.repo.UpdateSensor(ctx, sensor); err != nil {
		return fmt.Errorf("update sensor: %w", err)
	}

	e.notifySensor(ctx, sensor)

	switch {
	case alarm == domain.Alarm:
		logger.DebugKV(ctx, "Sensor change ignored, alarm already raised", "active", active)

		return nil
	case active && arming.IsArmed():
		return e.changeAlarmStatus(ctx, alarm, alarm.Escalate(), "sensor activated")
	case !active && alarm == domain.PendingAlarm:
		anyActive, err := e.anySensorActive(ctx)
		if err != nil || anyActive {
			return err
		}

		return e.changeAlarmStatus(ctx, alarm, domain.NoAlarm, "all sensors inactive")
	default:
		return nil
	}
}

// HandleSensorDeactivation marks the sensor inactive using the flag currently
// stored for it. Deactivating a sensor that was active lowers a raised alarm
// to pending, and clears a pending alarm once no sensor is active. Sensors
// that were already inactive change nothing.
func (e *Engine) HandleSensorDeactivation(ctx context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = logger.WithKV(ctx, "sensor", sensor.Key().String())

	wasActive, err := e.storedActivation(ctx, sensor)
	if err != nil {
		return err
	}

	alarm, err := e.repo.AlarmStatus(ctx)
	if err != nil {
		return fmt.Errorf("read alarm status: %w", err)
	}

	sensor.Active = false
	if err = e.repo.UpdateSensor(ctx, sensor); err != nil {
		return fmt.Errorf("update sensor: %w", err)
	}

	if wasActive {
		e.notifySensor(ctx, sensor)
	}

	switch {
	case !wasActive:
		// Also while pending: a quiet sensor going quiet again is no news,
		// even when no sensor is active, so a pending alarm is kept.
		logger.DebugKV(ctx, "Sensor was already inactive", "alarm_status", alarm)

		return nil
	case alarm == domain.Alarm:
		return e.changeAlarmStatus(ctx, alarm, alarm.Deescalate(), "active sensor deactivated")
	case alarm == domain.PendingAlarm:
		anyActive, err := e.anySensorActive(ctx)
		if err != nil || anyActive {
			return err
		}

		return e.changeAlarmStatus(ctx, alarm, domain.NoAlarm, "all sensors inactive")
	default:
		return nil
	}
}

// ProcessImage classifies a camera frame. A cat seen while armed at home
// raises the alarm; no cat and no active sensor clears it. Classifier
// failures are returned without touching the state.
func (e *Engine) ProcessImage(ctx context.Context, frame []byte) error {
	// The classifier may be remote, so it runs before the lock is taken.
	catDetected, err := e.classifier.ImageContainsCat(ctx, frame, e.threshold)
	if err != nil {
		return fmt.Errorf("classify image: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = logger.WithKV(ctx, "cat_detected", catDetected)

	alarm, arming, err := e.readStatuses(ctx)
	if err != nil {
		return err
	}

	e.notifyCat(ctx, catDetected)

	if catDetected {
		if arming != domain.ArmedHome {
			logger.DebugKV(ctx, "Cat ignored outside armed home mode", "arming_status", arming)

			return nil
		}

		return e.changeAlarmStatus(ctx, alarm, domain.Alarm, "cat detected")
	}

	anyActive, err := e.anySensorActive(ctx)
	if err != nil || anyActive {
		return err
	}

	return e.changeAlarmStatus(ctx, alarm, domain.NoAlarm, "no cat and no active sensors")
}

// SetArmingStatus stores the new arming status. Disarming always clears the
// alarm; arming resets every sensor to inactive and leaves the alarm alone.
func (e *Engine) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidArmingStatus, int(status))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ctx = logger.WithKV(ctx, "arming_status", status)

	if err := e.repo.SetArmingStatus(ctx, status); err != nil {
		return fmt.Errorf("write arming status: %w", err)
	}

	logger.InfoKV(ctx, "Arming status changed", "description", status.Description())

	if !status.IsArmed() {
		if err := e.repo.SetAlarmStatus(ctx, domain.NoAlarm); err != nil {
			return fmt.Errorf("write alarm status: %w", err)
		}

		logger.InfoKV(ctx, "Alarm status cleared", "reason", "disarmed")
		e.notifyStatus(ctx, domain.NoAlarm)

		return nil
	}

	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return fmt.Errorf("read sensors: %w", err)
	}

	for _, sensor := range sensors {
		wasActive := sensor.Active

		sensor.Active = false
		if err = e.repo.UpdateSensor(ctx, sensor); err != nil {
			return fmt.Errorf("reset sensor %s: %w", sensor.Key(), err)
		}

		if wasActive {
			e.notifySensor(ctx, sensor)
		}
	}

	logger.DebugKV(ctx, "Sensors reset", "count", len(sensors))

	return nil
}

// readStatuses reads the alarm and arming statuses.
func (e *Engine) readStatuses(ctx context.Context) (domain.AlarmStatus, domain.ArmingStatus, error) {
	alarm, err := e.repo.AlarmStatus(ctx)
	if err != nil {
		return domain.NoAlarm, domain.Disarmed, fmt.Errorf("read alarm status: %w", err)
	}

	arming, err := e.repo.ArmingStatus(ctx)
	if err != nil {
		return domain.NoAlarm, domain.Disarmed, fmt.Errorf("read arming status: %w", err)
	}

	return alarm, arming, nil
}

// anySensorActive reports whether the repository holds an active sensor.
func (e *Engine) anySensorActive(ctx context.Context) (bool, error) {
	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return false, fmt.Errorf("read sensors: %w", err)
	}

	return domain.AnyActive(sensors), nil
}

// storedActivation returns the stored flag of the sensor, or the flag of the
// provided value when the repository does not know the sensor.
func (e *Engine) storedActivation(ctx context.Context, sensor domain.Sensor) (bool, error) {
	sensors, err := e.repo.Sensors(ctx)
	if err != nil {
		return false, fmt.Errorf("read sensors: %w", err)
	}

	for _, stored := range sensors {
		if stored.Key() == sensor.Key() {
			return stored.Active, nil
		}
	}

	return sensor.Active, nil
}

// changeAlarmStatus writes and announces a new alarm status. Nothing happens
// when the status stays the same.
func (e *Engine) changeAlarmStatus(ctx context.Context, from, to domain.AlarmStatus, reason string) error {
	if from == to {
		return nil
	}

	if err := e.repo.SetAlarmStatus(ctx, to); err != nil {
		return fmt.Errorf("write alarm status: %w", err)
	}

	logger.InfoKV(ctx, "Alarm status changed", "from", from, "to", to, "reason", reason)
	e.notifyStatus(ctx, to)

	return nil
}

func (e *Engine) notifyStatus(ctx context.Context, status domain.AlarmStatus) {
	for listener := range e.listeners {
		listener.NotifyAlarmStatus(ctx, status)
	}
}

func (e *Engine) notifyCat(ctx context.Context, detected bool) {
	for listener := range e.listeners {
		if l, ok := listener.(CatDetectionListener); ok {
			l.CatDetected(ctx, detected)
		}
	}
}

func (e *Engine) notifySensor(ctx context.Context, sensor domain.Sensor) {
	for listener := range e.listeners {
		if l, ok := listener.(SensorListener); ok {
			l.SensorStatusChanged(ctx, sensor)
		}
	}
}
