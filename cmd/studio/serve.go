package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/GyroZepelix/mithril-studio/admin"
	"github.com/GyroZepelix/mithril-studio/internal/audit"
	"github.com/GyroZepelix/mithril-studio/internal/auth"
	"github.com/GyroZepelix/mithril-studio/internal/config"
	"github.com/GyroZepelix/mithril-studio/internal/contenttypes"
	"github.com/GyroZepelix/mithril-studio/internal/database"
	"github.com/GyroZepelix/mithril-studio/internal/metrics"
	"github.com/GyroZepelix/mithril-studio/internal/server"
	"github.com/GyroZepelix/mithril-studio/internal/snapshot"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), a.cfg)
		},
	}
}

func runServe(ctx context.Context, cfg *config.Config) error {
	if err := cfg.RequireJWTSecret(); err != nil {
		return err
	}

	slog.Info("starting studio",
		"port", cfg.Port,
		"dev_mode", cfg.DevMode,
		"fetch_concurrency", cfg.FetchConcurrency,
	)

	p, err := newPipeline(cfg)
	if err != nil {
		return err
	}
	defer p.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	if err := metrics.Register(reg); err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	deps := server.Dependencies{
		AuthMiddleware: auth.Middleware(cfg.JWTSecret),
		Checks:         map[string]server.HealthChecker{},
		Metrics:        promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}),
		DevMode:        cfg.DevMode,
		CORSOrigins:    cfg.CORSOrigins,
		AdminFS:        admin.DistFS(),
	}
	if p.rdb != nil {
		deps.Checks["redis"] = server.HealthFunc(p.redisHealth)
	}

	// auditor stays a nil interface without a database.
	var auditor contenttypes.Auditor
	if cfg.DatabaseURL != "" {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()

		auditSvc := audit.NewService(audit.NewRepository(db))
		auditSvc.Start()
		defer func() {
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			auditSvc.Shutdown(drainCtx)
		}()
		auditor = auditSvc

		snapshots := snapshot.NewService(snapshot.NewRepository(db), p.service, auditSvc)
		deps.Snapshots = snapshot.NewHandler(snapshots)
		deps.AuditLog = audit.NewHandler(auditSvc)
		deps.Checks["database"] = db
	} else {
		slog.Warn("STUDIO_DATABASE_URL not set, snapshots and the audit log are disabled")
	}
	deps.ContentTypes = contenttypes.NewHandler(p.service, p.invalidator(), auditor)

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := server.New(addr, server.NewRouter(deps), cfg.WriteTimeout)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "addr", addr)
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("received shutdown signal")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	slog.Info("shutting down server", "timeout", shutdownTimeout.String())
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down: %w", err)
	}

	slog.Info("studio stopped")
	return nil
}

// openDatabase connects to Postgres and applies pending migrations.
func openDatabase(ctx context.Context, cfg *config.Config) (*database.DB, error) {
	dbCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	db, err := database.New(dbCtx, cfg.DatabaseURL, database.Options{MaxConns: cfg.DatabaseMaxConns})
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	slog.Info("database connected")

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("migrations applied")
	return db, nil
}
