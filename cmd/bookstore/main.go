// cmd/bookstore/main.go
package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"bookstore/internal/catalog"
	"bookstore/internal/config"
	"bookstore/internal/menu"
	"bookstore/internal/ordering"
	"bookstore/pkg/eventlog"
	"bookstore/pkg/logger"
	"bookstore/pkg/telemetry"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bookstore: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	// Keep the prompts readable unless the operator asked for more.
	if _, set := os.LookupEnv("LOG_LEVEL"); !set {
		cfg.LogLevel = "warn"
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	ctx := context.Background()
	telCfg := telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Probability: cfg.TraceSampling,
	}
	shutdown, err := telemetry.InitTracing(ctx, log, telCfg)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	metrics, err := telemetry.InitMetrics(ctx, log, telCfg)
	if err != nil {
		return fmt.Errorf("failed to init metrics: %w", err)
	}
	defer func() {
		if err := metrics.Shutdown(context.Background()); err != nil {
			log.Warn("meter shutdown failed", zap.Error(err))
		}
	}()

	journal := eventlog.NewJournal()
	books := catalog.NewService(journal, log)
	if cfg.SeedCatalog {
		if err := catalog.Seed(ctx, books); err != nil {
			return err
		}
	}

	orders, err := ordering.NewService(books, journal, log, cfg.OrderIDStart,
		ordering.WithMeterProvider(metrics.MeterProvider()))
	if err != nil {
		return err
	}

	return menu.New(os.Stdin, os.Stdout, books, orders, log).Run(ctx)
}
