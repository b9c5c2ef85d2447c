package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestValidate checks required fields and format validations.
func TestValidate(t *testing.T) {
	t.Parallel()

	// Missing socket.
	require.Error(t, Validate(new(Config)))
	require.Error(t, Validate(nil))

	// Bad socket.
	require.Error(t, Validate(&Config{ServerAddress: "bad:address"}))

	// Unknown storage driver.
	err := Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Storage:       StorageConfig{Driver: "postgres"},
	})
	require.ErrorIs(t, err, ErrUnknownStorageDriver)

	// Unknown classifier.
	err = Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Classifier:    ClassifierConfig{Provider: "dog-detector"},
	})
	require.ErrorIs(t, err, ErrUnknownClassifier)

	// Threshold out of range.
	err = Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Classifier:    ClassifierConfig{ConfidenceThreshold: 150},
	})
	require.ErrorIs(t, err, ErrInvalidThreshold)

	// Unknown log level.
	err = Validate(&Config{ServerAddress: "127.0.0.1:0", LogLevel: "loud"})
	require.ErrorIs(t, err, ErrUnknownLogLevel)

	// Influx without bucket.
	err = Validate(&Config{
		ServerAddress: "127.0.0.1:0",
		Influx:        InfluxConfig{URL: "http://127.0.0.1:8086", Org: "home"},
	})
	require.ErrorIs(t, err, ErrInfluxIncomplete)
}

// TestValidate_Defaults ensures defaults are filled in.
func TestValidate_Defaults(t *testing.T) {
	t.Parallel()

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		MQTT:          MQTTConfig{Broker: "tcp://127.0.0.1:1883"},
		Storage:       StorageConfig{Driver: "SQLite"},
	}

	require.NoError(t, Validate(settings))
	require.Equal(t, DefaultTimeout, settings.Timeout)
	require.Equal(t, DefaultLogLevel, settings.LogLevel)
	require.Equal(t, StorageSQLite, settings.Storage.Driver)
	require.Equal(t, DefaultDatabaseFilename, settings.Storage.Path)
	require.Equal(t, ClassifierFake, settings.Classifier.Provider)
	require.InDelta(t, 50, settings.Classifier.ConfidenceThreshold, 0.001)
	require.Equal(t, DefaultMQTTClientID, settings.MQTT.ClientID)
	require.Equal(t, DefaultTopicPrefix, settings.MQTT.TopicPrefix)

	settings = &Config{ServerAddress: "127.0.0.1:50051"}
	require.NoError(t, Validate(settings))
	require.Equal(t, StorageFile, settings.Storage.Driver)
	require.Equal(t, DefaultStateFilename, settings.Storage.Path)
	require.Empty(t, settings.MQTT.ClientID)
}

// TestSaveLoadRoundtrip ensures settings are persisted and loaded back correctly.
func TestSaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "settings.yaml")

	settings := &Config{
		ServerAddress: "127.0.0.1:50051",
		Timeout:       3 * time.Second,
		Storage: StorageConfig{
			Driver: StorageMemory,
		},
		Classifier: ClassifierConfig{
			Provider:            ClassifierRekognition,
			ConfidenceThreshold: 80,
			Region:              "eu-west-1",
		},
	}

	require.NoError(t, Save(path, settings))

	loaded, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, settings.ServerAddress, loaded.ServerAddress)
	require.Equal(t, settings.Timeout, loaded.Timeout)
	require.Equal(t, settings.Storage, loaded.Storage)
	require.Equal(t, settings.Classifier, loaded.Classifier)

	// File exists.
	_, err = os.Stat(path)
	require.NoError(t, err)

	require.Error(t, Save(path, nil))

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	require.Error(t, err)
}
