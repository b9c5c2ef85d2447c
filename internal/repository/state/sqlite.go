package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver.

	domain "github.com/oshokin/catpoint/internal/domain/security"
)

const (
	// sqliteDirPermissions is the permission mode of the database directory.
	sqliteDirPermissions = 0o750
	// sqliteBusyTimeout is how long SQLite waits for a lock, in milliseconds.
	sqliteBusyTimeout = 5000
	// sqlitePingTimeout bounds the connectivity check in OpenSQLiteRepository.
	sqlitePingTimeout = 5 * time.Second

	settingAlarmStatus  = "alarm_status"
	settingArmingStatus = "arming_status"
)

// sqliteSchema creates the tables on first use.
const sqliteSchema = `
CREATE TABLE IF NOT EXISTS sensors (
	name   TEXT    NOT NULL,
	type   TEXT    NOT NULL,
	active INTEGER NOT NULL DEFAULT 0,
	PRIMARY KEY (name, type)
);
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
);`

// SQLiteRepository stores the security state in a SQLite database.
type SQLiteRepository struct {
	db   *sql.DB
	path string
}

// OpenSQLiteRepository opens (creating if needed) the database at path and
// applies the schema.
func OpenSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), sqliteDirPermissions); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	connStr := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_synchronous=NORMAL", path, sqliteBusyTimeout)

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite has a single writer; one connection also keeps :memory: databases alive.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	pingCtx, cancel := context.WithTimeout(ctx, sqlitePingTimeout)
	defer cancel()

	if err = db.PingContext(pingCtx); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("verify database connection: %w", err)
	}

	if _, err = db.ExecContext(ctx, sqliteSchema); err != nil {
		_ = db.Close()

		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &SQLiteRepository{
		db:   db,
		path: path,
	}, nil
}

// Close closes the database.
func (r *SQLiteRepository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}

	if err := r.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}

	return nil
}

// Sensors returns all sensors ordered by name.
func (r *SQLiteRepository) Sensors(ctx context.Context) ([]domain.Sensor, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name, type, active FROM sensors`)
	if err != nil {
		return nil, fmt.Errorf("query sensors: %w", err)
	}

	defer func() {
		_ = rows.Close()
	}()

	var sensors []domain.Sensor

	for rows.Next() {
		var (
			sensor   domain.Sensor
			typeName string
		)

		if err = rows.Scan(&sensor.Name, &typeName, &sensor.Active); err != nil {
			return nil, fmt.Errorf("scan sensor: %w", err)
		}

		if sensor.Type, err = domain.ParseSensorType(typeName); err != nil {
			return nil, fmt.Errorf("scan sensor %q: %w", sensor.Name, err)
		}

		sensors = append(sensors, sensor)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sensors: %w", err)
	}

	return sortSensors(sensors), nil
}

// AddSensor stores a new sensor.
func (r *SQLiteRepository) AddSensor(ctx context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sensors (name, type, active) VALUES (?, ?, ?)`,
		sensor.Name, sensor.Type.String(), sensor.Active,
	)
	if err != nil {
		return fmt.Errorf("insert sensor: %w", err)
	}

	return nil
}

// RemoveSensor deletes a sensor.
func (r *SQLiteRepository) RemoveSensor(ctx context.Context, sensor domain.Sensor) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM sensors WHERE name = ? AND type = ?`,
		sensor.Name, sensor.Type.String(),
	)
	if err != nil {
		return fmt.Errorf("delete sensor: %w", err)
	}

	return nil
}

// UpdateSensor stores the sensor with its current activation flag.
func (r *SQLiteRepository) UpdateSensor(ctx context.Context, sensor domain.Sensor) error {
	if err := sensor.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sensors (name, type, active) VALUES (?, ?, ?)
		 ON CONFLICT (name, type) DO UPDATE SET active = excluded.active`,
		sensor.Name, sensor.Type.String(), sensor.Active,
	)
	if err != nil {
		return fmt.Errorf("update sensor: %w", err)
	}

	return nil
}

// AlarmStatus returns the stored alarm status, NoAlarm if none was stored.
func (r *SQLiteRepository) AlarmStatus(ctx context.Context) (domain.AlarmStatus, error) {
	value, err := r.setting(ctx, settingAlarmStatus)
	if err != nil || value == "" {
		return domain.NoAlarm, err
	}

	return domain.ParseAlarmStatus(value)
}

// SetAlarmStatus stores the alarm status.
func (r *SQLiteRepository) SetAlarmStatus(ctx context.Context, status domain.AlarmStatus) error {
	return r.setSetting(ctx, settingAlarmStatus, status.String())
}

// ArmingStatus returns the stored arming status, Disarmed if none was stored.
func (r *SQLiteRepository) ArmingStatus(ctx context.Context) (domain.ArmingStatus, error) {
	value, err := r.setting(ctx, settingArmingStatus)
	if err != nil || value == "" {
		return domain.Disarmed, err
	}

	return domain.ParseArmingStatus(value)
}

// SetArmingStatus stores the arming status.
func (r *SQLiteRepository) SetArmingStatus(ctx context.Context, status domain.ArmingStatus) error {
	return r.setSetting(ctx, settingArmingStatus, status.String())
}

func (r *SQLiteRepository) setting(ctx context.Context, key string) (string, error) {
	var value string

	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}

	if err != nil {
		return "", fmt.Errorf("read %s: %w", key, err)
	}

	return value, nil
}

func (r *SQLiteRepository) setSetting(ctx context.Context, key, value string) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("write %s: %w", key, err)
	}

	return nil
}
