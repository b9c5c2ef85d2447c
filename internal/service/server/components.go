package server

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/oshokin/catpoint/internal/classifier"
	"github.com/oshokin/catpoint/internal/config"
	repo "github.com/oshokin/catpoint/internal/repository/state"
)

// openRepository builds the repository selected by the storage settings.
// The returned function releases it.
func openRepository(ctx context.Context, storage config.StorageConfig) (repo.Repository, func() error, error) {
	noop := func() error { return nil }

	switch storage.Driver {
	case config.StorageMemory:
		return repo.NewMemoryRepository(), noop, nil
	case config.StorageFile:
		repository, err := repo.OpenFileRepository(storage.Path)
		if err != nil {
			return nil, nil, err
		}

		return repository, noop, nil
	case config.StorageSQLite:
		repository, err := repo.OpenSQLiteRepository(ctx, storage.Path)
		if err != nil {
			return nil, nil, err
		}

		return repository, repository.Close, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", config.ErrUnknownStorageDriver, storage.Driver)
	}
}

// newClassifier builds the classifier selected by the settings.
func newClassifier(cfg config.ClassifierConfig) (classifier.Classifier, error) {
	switch cfg.Provider {
	case config.ClassifierFake:
		return classifier.NewRandomClassifier(rand.Uint64(), rand.Uint64()), nil //nolint:gosec // Seeds of a fake.
	case config.ClassifierRekognition:
		return classifier.NewRekognitionClassifier(cfg.Region)
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownClassifier, cfg.Provider)
	}
}
