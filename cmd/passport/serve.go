package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/MrEthical07/passport"
	"github.com/MrEthical07/passport/geo"
	"github.com/MrEthical07/passport/internal/config"
	"github.com/MrEthical07/passport/internal/httpapi"
	"github.com/MrEthical07/passport/metrics/export/prometheus"
	"github.com/MrEthical07/passport/session"
	"github.com/MrEthical07/passport/store"
)

const shutdownTimeout = 5 * time.Second

func newServeCmd(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP sign-in API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr != "" {
				opts.cfg.Server.Addr = addr
			}
			return runServe(cmd.Context(), opts.cfg, opts.logger, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (overrides server.addr)")
	return cmd
}

func runServe(ctx context.Context, cfg config.File, logger *slog.Logger, auditOut io.Writer) error {
	a, err := buildApp(ctx, cfg, logger, auditOut)
	if err != nil {
		return err
	}
	defer a.Close()

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}

// app holds everything serve opens so it can be closed in reverse order.
type app struct {
	engine *passport.Engine
	server *httpapi.Server
	db     *sql.DB
	redis  *redis.Client
}

func (a *app) Close() {
	if a.engine != nil {
		a.engine.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// buildApp wires the engine and HTTP server described by cfg.
func buildApp(ctx context.Context, cfg config.File, logger *slog.Logger, auditOut io.Writer) (*app, error) {
	a := &app{}
	ready := false
	defer func() {
		if !ready {
			a.Close()
		}
	}()

	engineCfg := cfg.Engine()
	for _, w := range engineCfg.Lint() {
		logger.Warn("config warning", "code", w.Code, "message", w.Message)
	}

	b := passport.New().WithConfig(engineCfg).WithLogger(logger)

	if cfg.Database.DSN != "" {
		dialect, err := store.ParseDialect(cfg.Database.Dialect)
		if err != nil {
			return nil, err
		}
		db, err := store.Open(ctx, dialect, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		a.db = db
		if cfg.Database.Migrate {
			if err := store.Migrate(ctx, a.db, dialect); err != nil {
				return nil, err
			}
		}
		sqlStore := store.NewSQLStore(a.db, dialect, logger)
		b.WithPrincipalStore(sqlStore).WithDirectory(sqlStore)
		logger.Info("principal store ready", "backend", string(dialect))
	} else {
		b.WithPrincipalStore(passport.NewMemoryPrincipalStore(cfg.MemoryPrincipals()...)).
			WithPermissions(cfg.Permissions()).
			WithRoles(cfg.Roles).
			WithAssignments(cfg.Assignments())
		logger.Info("principal store ready", "backend", "memory", "principals", len(cfg.Principals))
	}

	switch cfg.Session.Backend {
	case "", "memory":
	case "redis":
		a.redis = redis.NewClient(&redis.Options{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		})
		sessions := session.NewRedisStore(a.redis, engineCfg.Session.RedisPrefix)
		rtt, err := sessions.Ping(ctx)
		if err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Session.RedisAddr, err)
		}
		b.WithSessionStore(sessions)
		logger.Info("session store ready", "backend", "redis", "addr", cfg.Session.RedisAddr, "rtt", rtt.String())
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}

	if cfg.Geo.Table != "" {
		table, err := geo.LoadTable(cfg.Geo.Table)
		if err != nil {
			return nil, err
		}
		b.WithLocator(table)
	}

	if cfg.Audit.Enabled {
		switch cfg.Audit.Sink {
		case "", "log":
			b.WithAuditSink(passport.NewSlogSink(logger))
		case "json":
			b.WithAuditSink(passport.NewJSONWriterSink(auditOut))
		default:
			return nil, fmt.Errorf("unknown audit sink %q", cfg.Audit.Sink)
		}
	}

	engine, err := b.Build()
	if err != nil {
		return nil, err
	}
	a.engine = engine

	serverOpts := []httpapi.Option{httpapi.WithProxyHeaders(cfg.Server.TrustProxyHeaders)}
	if cfg.Metrics.Enabled && cfg.Metrics.Path != "" {
		serverOpts = append(serverOpts, httpapi.WithMetrics(cfg.Metrics.Path, prometheus.New(a.engine).Handler()))
	}
	a.server = httpapi.New(a.engine, logger, serverOpts...)
	ready = true
	return a, nil
}
