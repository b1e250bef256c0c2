// Command syncd runs the offline-first sync engine daemon: it owns the
// durable mutation queue, dispatches queued work toward the remote backend
// whenever connectivity allows, and serves the local admin API.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/moodpulse/go-sync-engine/internal/adapters"
	"github.com/moodpulse/go-sync-engine/internal/config"
	httpapi "github.com/moodpulse/go-sync-engine/internal/http"
	"github.com/moodpulse/go-sync-engine/internal/netmon"
	"github.com/moodpulse/go-sync-engine/internal/observability"
	"github.com/moodpulse/go-sync-engine/internal/repo"
	"github.com/moodpulse/go-sync-engine/internal/services"
	"github.com/moodpulse/go-sync-engine/internal/sysutil"
)

// version is injected at build time via -ldflags.
var version = "dev"

func main() {
	// .env is optional; real deployments use the environment directly.
	_ = godotenv.Load()

	cfg := config.MustLoad()

	sysutil.SetLogLevel(cfg.LogLevel)
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}
	logger := log.With().Str("service", "syncd").Logger()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		logger.Fatal().Err(err).Msg("otel setup failed")
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("otel shutdown failed")
		}
	}()

	db, err := repo.OpenSQLite(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("db_path", cfg.DBPath).Msg("store open failed")
	}

	// Engine wiring: remote client → adapters → coordinator.
	client := adapters.NewRemoteClient(cfg.Remote.BaseURL, cfg.Remote.CallTimeout, cfg.Remote.RPS, cfg.Remote.Burst, logger)
	registry := adapters.NewRegistry(client)
	resolver := services.NewResolver(services.DefaultPolicies())
	coord := services.NewCoordinator(db, registry, resolver, cfg.Sync, logger)

	monitor := netmon.New(cfg.Remote.BaseURL+cfg.Remote.HealthPath, cfg.Sync.ProbeInterval, logger)
	dlqSvc := services.NewDLQService(db, cfg.Sync.DLQRetention, cfg.Sync.StalePending, logger)

	// Background loops: connectivity probes, sync passes, store maintenance,
	// and the invalidation drain (invalidations are hints for local caches;
	// the daemon logs them for downstream consumers).
	go monitor.Run(ctx)
	go coord.Run(ctx, monitor.Events(), cfg.Sync.Interval)
	go dlqSvc.RunMaintenance(ctx, cfg.Sync.MaintenanceEvery)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case inv := <-coord.Invalidations():
				logger.Debug().
					Str("owner_id", inv.OwnerID).
					Interface("kinds", inv.Kinds).
					Msg("cache invalidation")
			}
		}
	}()

	gin.SetMode(cfg.GinMode)
	router := gin.New()
	httpapi.RegisterRoutes(router, db, coord, monitor, cfg, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("version", version).Msg("admin API listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("syncd stopped")
}
