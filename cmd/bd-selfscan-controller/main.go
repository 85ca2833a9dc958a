package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/snps-steve/bd-selfscan-sub001/internal/app"
	"github.com/snps-steve/bd-selfscan-sub001/internal/config"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/appstate"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/logging"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/metrics"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/pinger"
	"github.com/snps-steve/bd-selfscan-sub001/internal/infra/shutdown"
)

func main() {
	appStart := time.Now()
	// Start listening for signals immediately as first thing, before any other initialization
	signals := shutdown.Notify()
	ctx := context.Background()

	err := run(ctx, signals, appStart)
	if err != nil {
		slog.ErrorContext(ctx, "failed to run", "reason", err)
		// Give the logger some time to flush
		time.Sleep(1 * time.Second)
		os.Exit(1)
	}

	slog.InfoContext(ctx, "bye")
}

func run(ctx context.Context, signals <-chan os.Signal, appStart time.Time) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.New(cfg.LogFormat, cfg.LogLevel)

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	m := metrics.New(registry)
	pingers := pinger.New(logger, cfg.PingerInterval, cfg.PingerFailureThreshold, m)
	appState := appstate.New(logger, appStart, cfg.TerminationFile, signals, pingers, cfg.ShutdownTimeout)

	application, err := app.New(logger, cfg, appState, pingers, m, registry)
	if err != nil {
		return fmt.Errorf("new application: %w", err)
	}

	return application.Run(ctx)
}
