// cmd/bookstore-api/main.go
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

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"bookstore/internal/auth"
	"bookstore/internal/catalog"
	"bookstore/internal/config"
	"bookstore/internal/httpapi"
	"bookstore/internal/ordering"
	"bookstore/pkg/eventlog"
	"bookstore/pkg/logger"
	"bookstore/pkg/telemetry"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "hash-token" {
		if err := hashToken(os.Args[2:]); err != nil {
			fmt.Fprintf(os.Stderr, "hash-token: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "bookstore-api: %v\n", err)
		os.Exit(1)
	}
}

// hashToken prints the environment settings that enable operator auth for
// the given token.
func hashToken(args []string) error {
	if len(args) != 1 || args[0] == "" {
		return errors.New("usage: bookstore-api hash-token <token>")
	}
	hash, salt, err := auth.HashToken(args[0])
	if err != nil {
		return err
	}
	fmt.Printf("OPERATOR_TOKEN_HASH=%s\nOPERATOR_TOKEN_SALT=%s\n", hash, salt)
	return nil
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	telCfg := telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
		Probability: cfg.TraceSampling,
	}
	shutdownTracing, err := telemetry.InitTracing(ctx, log, telCfg)
	if err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
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

	deps := httpapi.Deps{
		Catalog: books,
		Orders:  orders,
		Journal: journal,
		Log:     log,
		Metrics: metrics,
		Limiter: rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst),
	}
	if cfg.AuthEnabled() {
		deps.Verifier = auth.NewVerifier(cfg.OperatorTokenHash, cfg.OperatorTokenSalt, log)
	} else {
		log.Warn("operator auth disabled; mutating routes are open")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httpapi.NewRouter(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("bookstore API listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
