// Package bootstrap wires configuration, storage and services into a runtime shared by
// the HTTP server and the admin CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/SscSPs/erp_ledger/internal/adapters/analytics"
	"github.com/SscSPs/erp_ledger/internal/adapters/spool"
	portsrepo "github.com/SscSPs/erp_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/erp_ledger/internal/core/ports/services"
	"github.com/SscSPs/erp_ledger/internal/core/services"
	"github.com/SscSPs/erp_ledger/internal/platform/config"
	"github.com/SscSPs/erp_ledger/internal/repositories/database/pgsql"
	"github.com/SscSPs/erp_ledger/pkg/database"
)

// NewLogger builds the JSON logger used by both binaries.
func NewLogger(level string) *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: ParseLevel(level)}))
}

// ParseLevel maps debug/info/warn/error to a slog level; anything else is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Options tune Start.
type Options struct {
	// Migrate applies pending migrations before the services are built.
	Migrate bool
	// WithSpool opens the on-disk audit spool. Only one process may hold it.
	WithSpool bool
	// WithAnalytics mirrors audit entries to PostHog.
	WithAnalytics bool
}

// Runtime is a fully wired ledger.
type Runtime struct {
	Config    *config.Config
	Pool      *pgxpool.Pool
	Repos     portsrepo.RepositoryProvider
	Services  *portssvc.ServiceContainer
	Recorder  services.AuditRecorder
	Analytics *analytics.Client

	spool  *spool.BoltSpool
	logger *slog.Logger
}

// Start connects to the database and builds the services.
func Start(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*Runtime, error) {
	if opts.Migrate {
		res, err := database.RunMigrations(cfg.DatabaseURL, cfg.MigrationsPath)
		if err != nil {
			return nil, err
		}
		if res.Applied {
			logger.Info("Database migrations applied successfully.", slog.Uint64("version", uint64(res.Version)))
		} else {
			logger.Info("No new migrations to apply.", slog.Uint64("version", uint64(res.Version)))
		}
	}

	pool, err := database.NewPgxPool(ctx, cfg.DatabaseURL, cfg.EnableDBCheck)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database pool: %w", err)
	}

	rt := &Runtime{
		Config: cfg,
		Pool:   pool,
		Repos:  pgsql.NewRepositoryProvider(pool, cfg.PostingMaxRetries),
		logger: logger,
	}

	recorderOpts := []services.AuditRecorderOption{services.WithAuditBufferSize(cfg.AuditBufferSize)}
	if opts.WithSpool && cfg.AuditSpoolPath != "" {
		s, err := spool.Open(cfg.AuditSpoolPath)
		if err != nil {
			database.ClosePgxPool(pool)
			return nil, err
		}
		rt.spool = s
		recorderOpts = append(recorderOpts, services.WithAuditSpool(s))
	}
	if opts.WithAnalytics {
		rt.Analytics = analytics.NewClient(cfg.PosthogAPIKey, logger)
		if rt.Analytics.IsInitialized() {
			recorderOpts = append(recorderOpts, services.WithAuditMirror(rt.Analytics))
		}
	}

	rt.Recorder = services.NewAuditRecorder(rt.Repos.AuditRepo, recorderOpts...)
	rt.Services = services.NewServiceContainer(cfg, rt.Repos, rt.Recorder)
	return rt, nil
}

// ReplaySpoolEvery replays spooled audit entries until ctx is done.
func (rt *Runtime) ReplaySpoolEvery(ctx context.Context, interval time.Duration) {
	if rt.spool == nil {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := rt.Recorder.ReplaySpool(ctx); err != nil && ctx.Err() == nil {
			rt.logger.Warn("Audit spool replay stopped", slog.String("error", err.Error()))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close drains the audit queue, then releases the spool, analytics and the pool.
func (rt *Runtime) Close() {
	rt.Recorder.Close()
	if rt.spool != nil {
		if err := rt.spool.Close(); err != nil {
			rt.logger.Error("Error closing audit spool", slog.String("error", err.Error()))
		}
	}
	rt.Analytics.Close()
	database.ClosePgxPool(rt.Pool)
}
