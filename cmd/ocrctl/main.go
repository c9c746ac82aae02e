// Package main provides ocrctl, a command line client that runs the OCR pipeline on local files.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"ocrtranslate/cmd/ocrctl/commands"
	"ocrtranslate/internal/config"
	"ocrtranslate/internal/di"
	"ocrtranslate/internal/observability"
)

func main() {
	os.Exit(run())
}

// run returns the process exit code so deferred cleanup happens before os.Exit
func run() int {
	ctx := context.Background()

	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	// Keep stdout clean for JSON output and avoid exporter connection errors
	cfg.OpenTelemetry.EnableTracing = false
	cfg.OpenTelemetry.EnableMetrics = false
	cfg.OpenTelemetry.EnableLogging = false

	_, _, logger, err := observability.SetupObservability(&cfg.OpenTelemetry, "ocrctl")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize observability: %v\n", err)
		return 1
	}
	defer func() { _ = logger.Sync() }()

	return execute(ctx, di.NewServiceContainer(cfg, logger), os.Args[1:], os.Stdout, os.Stderr)
}

// execute runs one ocrctl invocation against the container and always shuts it down
func execute(ctx context.Context, container di.ServiceContainerInterface, args []string, stdout, stderr io.Writer) int {
	defer func() { _ = container.Shutdown(ctx) }()

	if err := container.Initialize(ctx); err != nil {
		fmt.Fprintf(stderr, "Failed to initialize services: %v\n", err)
		return 1
	}

	pipeline, err := container.GetPipeline()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	recognizer, err := container.GetRecognizer()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}
	translator, err := container.GetTranslationService()
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return 1
	}

	rootCmd := commands.NewRootCommand(container.GetConfig(), pipeline, recognizer, translator)
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
