// Package main is the entry point for the shuttle fleet API server.
// Its sole responsibility is wiring dependencies together and starting the server.
// No business logic belongs here.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pkordes/shuttle-fleet/internal/cache"
	"github.com/pkordes/shuttle-fleet/internal/config"
	"github.com/pkordes/shuttle-fleet/internal/handler"
	"github.com/pkordes/shuttle-fleet/internal/metrics"
	"github.com/pkordes/shuttle-fleet/internal/middleware"
	"github.com/pkordes/shuttle-fleet/internal/repo"
	"github.com/pkordes/shuttle-fleet/internal/scheduler"
	"github.com/pkordes/shuttle-fleet/internal/service"
	"github.com/pkordes/shuttle-fleet/migrations"
)

func main() {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		// Use plain stderr before the logger is configured.
		slog.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// --- Migrations -------------------------------------------------------
	if cfg.AutoMigrate {
		if err := migrate(ctx, cfg.DatabaseURL); err != nil {
			slog.Error("migration failed", "error", err)
			os.Exit(1)
		}
	}

	// --- Database ---------------------------------------------------------
	// New() does not open connections immediately; the first query does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to create database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	slog.Info("database connection established")

	// --- Metrics ----------------------------------------------------------
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Snapshot cache ---------------------------------------------------
	snapshotCache, closeCache, err := newSnapshotCache(ctx, cfg)
	if err != nil {
		slog.Error("failed to set up snapshot cache", "error", err)
		os.Exit(1)
	}
	defer closeCache()

	// --- Services ---------------------------------------------------------
	serviceRepo := repo.NewServiceRepo(pool)

	registry := service.NewRegistry(serviceRepo)
	ingestion := service.NewIngestion(serviceRepo, repo.NewPositionRepo(pool), m, time.Now)
	attendance := service.NewAttendance(serviceRepo, repo.NewAttendanceRepo(pool), m, time.Now)
	anomaly := service.NewAnomalyEngine(
		repo.NewTenantRepo(pool), serviceRepo, repo.NewAlertRepo(pool),
		service.AnomalyConfig{
			ExpectedDurationMinutes: cfg.ExpectedDurationMinutes,
			DefaultToleranceMinutes: cfg.DefaultDelayToleranceMinutes,
			ScanConcurrency:         cfg.ScanConcurrency,
		},
		m, logger, time.Now,
	)
	snapshots := service.NewSnapshotter(registry, ingestion, attendance, snapshotCache, m, logger)
	registry.SetSnapshotInvalidator(snapshots)
	ingestion.SetSnapshotInvalidator(snapshots)
	attendance.SetSnapshotInvalidator(snapshots)

	if cfg.ScanInterval > 0 {
		go scheduler.New(anomaly, cfg.ScanInterval, logger).Run(ctx)
	}

	// --- Router -----------------------------------------------------------
	// Middleware is applied in order: RequestID → RealIP → Logger → Recoverer → CORS → MaxBodySize.
	// The logger sits outside auth so rejected requests are logged too.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srvHandler := handler.NewServer(registry, ingestion, snapshots, anomaly, attendance, logger)
	r.Mount("/", srvHandler.Routes(middleware.NewJWTAuth([]byte(cfg.JWTSecret))))

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down server")

	// In-flight requests get up to 15 seconds to complete.
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// migrate applies pending migrations over a short-lived database/sql handle.
func migrate(ctx context.Context, dsn string) error {
	db, err := migrations.Open(ctx, dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		return err
	}
	slog.Info("migrations applied", "count", len(applied), "versions", applied)
	return nil
}

// newSnapshotCache picks the snapshot cache backend: none when the TTL is
// zero, Redis when REDIS_URL is set, in-process otherwise. The returned
// func releases whatever the backend holds.
func newSnapshotCache(ctx context.Context, cfg config.Config) (cache.SnapshotCache, func(), error) {
	if cfg.SnapshotCacheTTL == 0 {
		slog.Info("snapshot cache disabled")
		return cache.Nop{}, func() {}, nil
	}
	if cfg.RedisURL == "" {
		slog.Info("snapshot cache in process", "ttl", cfg.SnapshotCacheTTL.String())
		return cache.NewMemory(cfg.SnapshotCacheTTL, time.Now), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, err
	}
	slog.Info("snapshot cache on redis", "addr", opts.Addr, "ttl", cfg.SnapshotCacheTTL.String())
	return cache.NewRedis(client, cfg.SnapshotCacheTTL), func() { client.Close() }, nil
}
