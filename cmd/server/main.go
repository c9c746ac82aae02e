// Package main provides the main entry point for the OCR backend server.
// It loads configuration, sets up observability, wires services and serves the HTTP API.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ocrtranslate/internal/config"
	"ocrtranslate/internal/di"
	"ocrtranslate/internal/observability"
	contextutils "ocrtranslate/internal/utils"
	"ocrtranslate/internal/version"

	"go.uber.org/zap"
)

const serviceName = "ocr-backend"

// Application encapsulates the main application logic and can be tested
type Application struct {
	container di.ServiceContainerInterface
	server    *http.Server
}

// NewApplication creates a new application instance
func NewApplication(container di.ServiceContainerInterface) (*Application, error) {
	router, err := container.Router()
	if err != nil {
		return nil, contextutils.WrapError(err, "failed to build router")
	}

	cfg := container.GetConfig()
	return &Application{
		container: container,
		server: &http.Server{
			Addr:              cfg.Server.Address(),
			Handler:           router,
			ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		},
	}, nil
}

// Run serves HTTP until ctx is cancelled or the listener fails
func (a *Application) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-serverErr:
		return contextutils.WrapError(err, "server failed")
	}
}

// Shutdown drains in-flight requests and then releases services
func (a *Application) Shutdown(ctx context.Context) error {
	serverErr := a.server.Shutdown(ctx)
	containerErr := a.container.Shutdown(ctx)
	if serverErr != nil {
		return contextutils.WrapError(serverErr, "http server shutdown failed")
	}
	return containerErr
}

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before os.Exit
func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}
	if cfg.OpenTelemetry.ServiceVersion == "" {
		cfg.OpenTelemetry.ServiceVersion = version.Version
	}

	// Setup observability (tracing/metrics/logging)
	tp, mp, logger, err := observability.SetupObservabilityWithLevel(&cfg.OpenTelemetry, serviceName, observability.ParseLevel(cfg.Server.LogLevel))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	// Initialize dependency injection container
	container := di.NewServiceContainer(cfg, logger)
	if tp != nil {
		if provider, ok := tp.(interface{ Shutdown(context.Context) error }); ok {
			container.AddShutdownFunc(provider.Shutdown)
		}
	}
	if mp != nil {
		container.AddShutdownFunc(mp.Shutdown)
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = config.DefaultShutdownTimeout
	}
	return serve(ctx, container, logger, shutdownTimeout)
}

// serve initializes the container and runs the application until ctx is cancelled.
// The container is shut down on every return path, flushing the telemetry exporters.
func serve(ctx context.Context, container di.ServiceContainerInterface, logger *observability.Logger, shutdownTimeout time.Duration) int {
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := container.Shutdown(shutdownCtx); err != nil {
			logger.Error(shutdownCtx, "Error during service shutdown", err, nil)
		}
	}()

	if err := container.Initialize(ctx); err != nil {
		logger.Error(ctx, "Failed to initialize services", err, nil)
		return 1
	}

	app, err := NewApplication(container)
	if err != nil {
		logger.Error(ctx, "Failed to create application", err, nil)
		return 1
	}

	cfg := container.GetConfig()
	logger.Info(ctx, "Starting OCR backend service", map[string]interface{}{
		"address":  cfg.Server.Address(),
		"logLevel": cfg.Server.LogLevel,
		"version":  version.Get().String(),
	})

	if err := app.Run(ctx); err != nil {
		logger.Error(ctx, "Application failed", err, nil)
		return 1
	}
	logger.Info(context.Background(), "Received shutdown signal, shutting down gracefully", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := app.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Error("Error during application shutdown", zap.Error(err))
		return 1
	}

	logger.Info(shutdownCtx, "Shutdown completed successfully", nil)
	return 0
}
