package server

import (
	"context"
	"errors"
	"fmt"
	"net"

	"google.golang.org/grpc"

	api "github.com/oshokin/catpoint/internal/api/grpc/security"
	"github.com/oshokin/catpoint/internal/bridge/mqtt"
	"github.com/oshokin/catpoint/internal/config"
	"github.com/oshokin/catpoint/internal/history"
	"github.com/oshokin/catpoint/internal/logger"
	service "github.com/oshokin/catpoint/internal/service/security"
)

// Options controls the catpoint-server process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override for the gRPC server.
	ListenAddress string
	// StatePath overrides the storage path from the settings file.
	StatePath string
	// AllowMultipleInstances skips the running process check.
	AllowMultipleInstances bool
}

// ErrNoServerAddress indicates missing server configuration.
var ErrNoServerAddress = errors.New("no server address configured")

// Run starts the gRPC server and blocks until context is canceled or server stops.
// Loads configuration first, then builds storage, classifier, engine and
// listeners before serving.
//
//nolint:funlen // Linear wiring of the server components.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "catpoint-server")

	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	if !opts.AllowMultipleInstances {
		if err = ensureSingleInstance(); err != nil {
			return err
		}
	}

	if opts.StatePath != "" {
		settings.Storage.Path = opts.StatePath
	}

	listenAddress, err := resolveListenAddress(settings.ServerAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	repository, closeRepository, err := openRepository(ctx, settings.Storage)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}

	defer func() {
		if closeErr := closeRepository(); closeErr != nil {
			logger.ErrorKV(ctx, "Failed to close storage", "error", closeErr)
		}
	}()

	imageClassifier, err := newClassifier(settings.Classifier)
	if err != nil {
		return fmt.Errorf("create classifier: %w", err)
	}

	engine := service.NewEngine(repository, imageClassifier,
		service.WithConfidenceThreshold(settings.Classifier.ConfidenceThreshold))
	if err = engine.AddStatusListener(service.NewLogListener()); err != nil {
		return fmt.Errorf("register log listener: %w", err)
	}

	if settings.Influx.URL != "" {
		recorder, err := history.Connect(ctx,
			settings.Influx.URL, settings.Influx.Token, settings.Influx.Org, settings.Influx.Bucket)
		if err != nil {
			return fmt.Errorf("connect history: %w", err)
		}

		defer recorder.Close()

		if err = engine.AddStatusListener(recorder); err != nil {
			return fmt.Errorf("register history: %w", err)
		}
		logger.InfoKV(ctx, "Alarm history enabled", "url", settings.Influx.URL, "bucket", settings.Influx.Bucket)
	}

	if settings.MQTT.Broker != "" {
		client, err := mqtt.Dial(ctx, settings.MQTT)
		if err != nil {
			return fmt.Errorf("connect mqtt: %w", err)
		}

		bridge := mqtt.NewBridge(client, engine, settings.MQTT.TopicPrefix)
		if err = engine.AddStatusListener(bridge); err != nil {
			return fmt.Errorf("register mqtt bridge: %w", err)
		}

		defer bridge.Stop()

		if err = bridge.Start(ctx); err != nil {
			return fmt.Errorf("start mqtt bridge: %w", err)
		}
	}

	// Setup TCP listener for gRPC server.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	grpcServer := grpc.NewServer(
		grpc.ChainUnaryInterceptor(unaryActorInterceptor),
		grpc.ChainStreamInterceptor(streamActorInterceptor),
	)
	api.RegisterSecurityServiceServer(grpcServer, api.NewServer(engine))

	logger.InfoKV(ctx, "Security server listening",
		"listen_address", listenAddress,
		"storage", settings.Storage.Driver,
		"classifier", settings.Classifier.Provider,
		"confidence_threshold", engine.ConfidenceThreshold(),
	)

	// Done channel is closed after GracefulStop finishes to ensure we block
	// until the server fully stops before returning.
	done := make(chan struct{})

	go func() {
		<-ctx.Done()
		logger.Info(ctx, "Shutting down gRPC server")
		grpcServer.GracefulStop()
		close(done)
	}()

	if err := grpcServer.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
		return fmt.Errorf("serve gRPC: %w", err)
	}

	<-done
	logger.Info(ctx, "GRPC server stopped")

	return nil
}

// resolveListenAddress determines the listen address for the gRPC server.
// If override is provided, uses it directly. Otherwise extracts port from configAddr.
// Returns appropriate listen address (e.g., ":8080" for port-only binding).
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoServerAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid server address format %q: %w", configAddr, err)
	}

	// Port-only listen address binds on all interfaces.
	return ":" + port, nil
}
