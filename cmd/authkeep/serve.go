// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Authkeep Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/holomush/authkeep/internal/access"
	"github.com/holomush/authkeep/internal/auth"
	"github.com/holomush/authkeep/internal/auth/memory"
	"github.com/holomush/authkeep/internal/auth/postgres"
	redisstore "github.com/holomush/authkeep/internal/auth/redis"
	"github.com/holomush/authkeep/internal/config"
	"github.com/holomush/authkeep/internal/logging"
	"github.com/holomush/authkeep/internal/observability"
	"github.com/holomush/authkeep/internal/web"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API and, when metrics.addr is set, the metrics and
health endpoints. The process runs until SIGINT or SIGTERM.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			return runServeWithDeps(cmd.Context(), cfg, autoMigrate, cmd, nil)
		},
	}

	cmd.Flags().BoolVar(&autoMigrate, "auto-migrate", true, "apply pending migrations before serving (postgres only)")

	return cmd
}

// backend holds the opened stores and what it takes to check and release them.
type backend struct {
	users    auth.UserRepository
	sessions auth.SessionStore
	checks   []func(ctx context.Context) error
	closers  []func()
}

func (b *backend) ready(ctx context.Context) error {
	for _, check := range b.checks {
		if err := check(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (b *backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
}

func openBackend(ctx context.Context, cfg *config.Config, autoMigrate bool, deps *ServeDeps) (*backend, error) {
	b := &backend{}
	var pool *pgxpool.Pool

	switch cfg.Database.Driver {
	case config.DriverMemory:
		b.users = memory.NewUserRepository()
	case config.DriverPostgres:
		dsn := cfg.Database.DSN()
		if autoMigrate {
			if err := runAutoMigrate(deps, dsn); err != nil {
				return nil, err
			}
		}
		var err error
		pool, err = deps.PoolFactory(ctx, dsn)
		if err != nil {
			return nil, oops.With("operation", "connect to database").Wrap(err)
		}
		b.closers = append(b.closers, pool.Close)
		b.checks = append(b.checks, pool.Ping)
		b.users = postgres.NewUserRepository(pool)
	}

	switch cfg.SessionStore() {
	case config.StorePostgres:
		if pool == nil {
			b.Close()
			return nil, oops.Code("CONFIG_INVALID").
				With("field", "session.store").
				Errorf("the database session store needs the postgres driver")
		}
		b.sessions = postgres.NewSessionStore(pool)
	case config.StoreMemory:
		b.sessions = memory.NewSessionStore()
	case config.StoreRedis:
		rdb := deps.RedisFactory(cfg.Redis)
		store := redisstore.NewSessionStore(rdb, cfg.Redis.Prefix)
		b.closers = append(b.closers, func() {
			if err := rdb.Close(); err != nil {
				slog.Debug("error closing redis client", "error", err)
			}
		})
		b.checks = append(b.checks, store.Ping)
		b.sessions = store
	}

	return b, nil
}

func runAutoMigrate(deps *ServeDeps, dsn string) error {
	migrator, err := deps.MigratorFactory(dsn)
	if err != nil {
		return oops.With("operation", "create migrator").Wrap(err)
	}
	defer func() {
		if closeErr := migrator.Close(); closeErr != nil {
			slog.Warn("error closing migrator", "error", closeErr)
		}
	}()

	if err := migrator.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	slog.Info("database migrations applied")
	return nil
}

// runServeWithDeps starts the service with injectable dependencies.
// If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cfg *config.Config, autoMigrate bool, cmd *cobra.Command, deps *ServeDeps) error {
	deps = deps.withDefaults()

	logger := logging.Setup("authkeep", version, cfg.Log.Format, cmd.ErrOrStderr(),
		logging.WithLevel(logging.ParseLevel(cfg.Log.Level)))
	slog.SetDefault(logger)

	slog.Info("starting authkeep",
		"http_addr", cfg.HTTP.Addr,
		"database_driver", cfg.Database.Driver,
		"session_store", cfg.SessionStore(),
		"auth_type", cfg.Auth.Type,
	)

	b, err := openBackend(ctx, cfg, autoMigrate, deps)
	if err != nil {
		return err
	}
	defer b.Close()

	// Only the expiring strategy bounds session lifetime.
	var lifetime time.Duration
	if cfg.Auth.Type == config.AuthSessionExpiring {
		lifetime = cfg.Session.Lifetime()
	}

	hasher := auth.NewArgon2idHasher()
	sessions, err := auth.NewSessionManager(b.users, b.sessions, auth.WithSessionDuration(lifetime))
	if err != nil {
		return err
	}
	service, err := auth.NewService(b.users, sessions, hasher, auth.WithLogger(logger))
	if err != nil {
		return err
	}
	resets, err := auth.NewResetManager(b.users, hasher)
	if err != nil {
		return err
	}
	strategy, err := access.NewStrategy(cfg.Auth.Type, b.users, hasher, sessions)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var obsServer ObservabilityServer
	var metrics *observability.Metrics
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, b.ready)
		obsErrChan, startErr := obsServer.Start()
		if startErr != nil {
			return oops.With("operation", "start observability server").Wrap(startErr)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability")
		metrics = obsServer.Metrics()
	}

	handler, err := web.NewHandler(web.Config{
		CookieName: cfg.Session.Name,
		Exempt:     cfg.Auth.Exempt,
		Service:    service,
		Sessions:   sessions,
		Resets:     resets,
		Users:      b.users,
		Strategy:   strategy,
		Metrics:    metrics,
		Logger:     logger,
	})
	if err != nil {
		stopObservability(obsServer)
		return err
	}

	webServer := web.NewServer(cfg.HTTP.Addr, handler)
	webErrChan, err := webServer.Start()
	if err != nil {
		stopObservability(obsServer)
		return err
	}
	go monitorServerErrors(ctx, cancel, webErrChan, "web")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	cmd.Println("authkeep listening on " + webServer.Addr())

	select {
	case sig := <-sigChan:
		slog.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		slog.Info("context cancelled, shutting down")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := webServer.Stop(shutdownCtx); err != nil {
		slog.Warn("error stopping web server", "error", err)
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			slog.Warn("error stopping observability server", "error", err)
		}
	}

	slog.Info("shutdown complete")
	return nil
}

func stopObservability(s ObservabilityServer) {
	if s == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Stop(ctx); err != nil {
		slog.Warn("failed to stop observability server during cleanup", "error", err)
	}
}

// monitorServerErrors cancels ctx when a server reports an error. It exits
// when the channel closes or ctx is done.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			slog.Error("server error, triggering shutdown",
				"server", serverName,
				"error", err,
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
