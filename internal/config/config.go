package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/oshokin/catpoint/internal/classifier"
	"github.com/oshokin/catpoint/internal/logger"
)

// Config holds the settings shared by the catpoint binaries.
type Config struct {
	// ServerAddress is the gRPC address of the security server.
	ServerAddress string `yaml:"server_addr"`
	// Timeout is the duration for network operations and RPC calls.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum level written to the log.
	LogLevel string `yaml:"log_level"`
	// Storage selects where the security state lives.
	Storage StorageConfig `yaml:"storage"`
	// Classifier selects the cat detector.
	Classifier ClassifierConfig `yaml:"classifier"`
	// MQTT configures the sensor bridge; an empty broker disables it.
	MQTT MQTTConfig `yaml:"mqtt"`
	// Influx configures the alarm history; an empty URL disables it.
	Influx InfluxConfig `yaml:"influx"`
}

// StorageConfig selects the repository implementation.
type StorageConfig struct {
	// Driver is one of memory, file or sqlite.
	Driver string `yaml:"driver"`
	// Path is the state file or database location.
	Path string `yaml:"path"`
}

// ClassifierConfig selects the image classifier.
type ClassifierConfig struct {
	// Provider is one of fake or rekognition.
	Provider string `yaml:"provider"`
	// ConfidenceThreshold is the minimum confidence, in percent, for a cat.
	ConfidenceThreshold float32 `yaml:"confidence_threshold"`
	// Region is the AWS region used by the rekognition provider.
	Region string `yaml:"region"`
}

// MQTTConfig configures the MQTT bridge.
type MQTTConfig struct {
	// Broker is the broker URL, e.g. tcp://127.0.0.1:1883.
	Broker string `yaml:"broker"`
	// ClientID identifies this service at the broker.
	ClientID string `yaml:"client_id"`
	// Username is optional.
	Username string `yaml:"username"`
	// Password is optional.
	Password string `yaml:"password"`
	// TopicPrefix is prepended to every topic.
	TopicPrefix string `yaml:"topic_prefix"`
}

// InfluxConfig configures the InfluxDB alarm history.
type InfluxConfig struct {
	// URL of the InfluxDB server.
	URL string `yaml:"url"`
	// Token is the API token.
	Token string `yaml:"token"`
	// Org is the organization that owns the bucket.
	Org string `yaml:"org"`
	// Bucket receives the alarm points.
	Bucket string `yaml:"bucket"`
}

// Storage drivers.
const (
	StorageMemory = "memory"
	StorageFile   = "file"
	StorageSQLite = "sqlite"
)

// Classifier providers.
const (
	ClassifierFake        = "fake"
	ClassifierRekognition = "rekognition"
)

const (
	// DefaultConfigFilename is the default filename for settings.
	DefaultConfigFilename = "catpoint-settings.yaml"

	// DefaultStateFilename is the default filename of the file repository.
	DefaultStateFilename = "catpoint-state.yaml"

	// DefaultDatabaseFilename is the default filename of the SQLite repository.
	DefaultDatabaseFilename = "catpoint.db"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultLogLevel is used when no level is configured.
	DefaultLogLevel = "info"

	// DefaultMQTTClientID identifies the server at the broker.
	DefaultMQTTClientID = "catpoint"

	// DefaultTopicPrefix is the root of every MQTT topic.
	DefaultTopicPrefix = "catpoint"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerSocketRequired is returned when server address is missing.
	errServerSocketRequired = errors.New("server address must be provided")
	// ErrUnknownStorageDriver is returned for unsupported storage drivers.
	ErrUnknownStorageDriver = errors.New("unknown storage driver")
	// ErrUnknownClassifier is returned for unsupported classifier providers.
	ErrUnknownClassifier = errors.New("unknown classifier provider")
	// ErrInvalidThreshold is returned for thresholds outside 0..100.
	ErrInvalidThreshold = errors.New("confidence threshold must be within (0, 100]")
	// ErrUnknownLogLevel is returned for unparsable log levels.
	ErrUnknownLogLevel = errors.New("unknown log level")
	// ErrInfluxIncomplete is returned when InfluxDB is enabled without org or bucket.
	ErrInfluxIncomplete = errors.New("influx org and bucket must be provided")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions: the file may hold broker and InfluxDB credentials.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills in defaults.
//
//nolint:cyclop // A flat list of independent checks.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerSocketRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server socket: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = DefaultLogLevel
	}

	if _, ok := logger.ParseLogLevel(settings.LogLevel); !ok {
		return fmt.Errorf("%w: %q", ErrUnknownLogLevel, settings.LogLevel)
	}

	if err := validateStorage(&settings.Storage); err != nil {
		return err
	}

	if err := validateClassifier(&settings.Classifier); err != nil {
		return err
	}

	if settings.MQTT.Broker != "" {
		if _, err := url.Parse(settings.MQTT.Broker); err != nil {
			return fmt.Errorf("invalid mqtt broker: %w", err)
		}

		if settings.MQTT.ClientID == "" {
			settings.MQTT.ClientID = DefaultMQTTClientID
		}

		if settings.MQTT.TopicPrefix == "" {
			settings.MQTT.TopicPrefix = DefaultTopicPrefix
		}
	}

	if settings.Influx.URL == "" {
		return nil
	}

	if _, err := url.ParseRequestURI(settings.Influx.URL); err != nil {
		return fmt.Errorf("invalid influx url: %w", err)
	}

	if settings.Influx.Org == "" || settings.Influx.Bucket == "" {
		return ErrInfluxIncomplete
	}

	return nil
}

func validateStorage(storage *StorageConfig) error {
	storage.Driver = strings.ToLower(strings.TrimSpace(storage.Driver))
	if storage.Driver == "" {
		storage.Driver = StorageFile
	}

	switch storage.Driver {
	case StorageMemory:
		return nil
	case StorageFile:
		if storage.Path == "" {
			storage.Path = DefaultStateFilename
		}
	case StorageSQLite:
		if storage.Path == "" {
			storage.Path = DefaultDatabaseFilename
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStorageDriver, storage.Driver)
	}

	return nil
}

func validateClassifier(cfg *ClassifierConfig) error {
	cfg.Provider = strings.ToLower(strings.TrimSpace(cfg.Provider))
	if cfg.Provider == "" {
		cfg.Provider = ClassifierFake
	}

	if cfg.Provider != ClassifierFake && cfg.Provider != ClassifierRekognition {
		return fmt.Errorf("%w: %q", ErrUnknownClassifier, cfg.Provider)
	}

	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = classifier.DefaultConfidenceThreshold
	}

	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 100 {
		return fmt.Errorf("%w: %v", ErrInvalidThreshold, cfg.ConfidenceThreshold)
	}

	return nil
}
