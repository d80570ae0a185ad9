package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"tickmap/internal/config"
	"tickmap/internal/infrastructure"
	"tickmap/internal/mapping"
	custommw "tickmap/internal/middleware"
	transporthttp "tickmap/internal/transport/http"
)

func main() {
	if err := run(); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	paths, err := config.GetPaths()
	if err != nil {
		return fmt.Errorf("failed to initialize paths: %w", err)
	}
	if err := paths.EnsureDirectories(); err != nil {
		return fmt.Errorf("failed to create required directories: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer infrastructure.CloseLogFile()

	providers, err := infrastructure.InitializeOTel(nil, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize observability: %w", err)
	}

	var metrics *infrastructure.ResolverMetrics
	if providers.Meter != nil {
		metrics, err = infrastructure.CreateResolverMetrics(providers.Meter)
		if err != nil {
			return fmt.Errorf("failed to create metrics: %w", err)
		}
	}

	mapsDir := paths.MarketMapsDir(cfg.Resolver.Market)
	buildStart := time.Now()
	idx, report, err := mapping.LoadMarket(mapsDir, logger)
	if err != nil {
		return fmt.Errorf("failed to build mapping index for %s: %w", cfg.Resolver.Market, err)
	}
	metrics.RecordIndexBuild(context.Background(), time.Since(buildStart), report.Loaded, len(report.Dropped))

	resolver := mapping.NewResolver(idx)

	reload := func(ctx context.Context) (*mapping.BuildReport, error) {
		start := time.Now()
		newIdx, newReport, err := mapping.LoadMarket(mapsDir, infrastructure.LoggerFromContext(ctx))
		if err != nil {
			return newReport, err
		}
		resolver.Reload(newIdx)
		metrics.RecordIndexBuild(ctx, time.Since(start), newReport.Loaded, len(newReport.Dropped))
		return newReport, nil
	}

	resolveHandler := transporthttp.NewResolveHandler(resolver, reload, logger, metrics)
	healthHandler := transporthttp.NewHealthHandler(resolver)

	r := chi.NewRouter()
	r.Use(custommw.RequestID)
	r.Use(custommw.StructuredLogger(logger))
	r.Use(custommw.Recoverer(logger))
	r.Use(custommw.RateLimit(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst))

	r.Mount("/api", resolveHandler.Routes())
	r.Mount("/healthz", healthHandler.Routes())
	if providers.PrometheusHTTP != nil {
		r.Handle("/metrics", providers.PrometheusHTTP)
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening",
			slog.Int("port", cfg.Server.Port),
			slog.String("market", cfg.Resolver.Market),
			slog.Int("identities", idx.Identities()))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case sig := <-stop:
		logger.Info("Shutting down", slog.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Observability shutdown failed", slog.String("error", err.Error()))
	}

	logger.Info("Shutdown complete")
	return nil
}
