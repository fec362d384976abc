// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/knpvt5/auth/internal/auth"
	"github.com/knpvt5/auth/internal/httpapi"
	"github.com/knpvt5/auth/internal/observability"
	"github.com/knpvt5/auth/pkg/errutil"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API and the metrics/health listener. The process refuses
to start without a token secret (AUTHD_TOKEN_SECRET or JWT_SECRET).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServeWithDeps(cmd.Context(), cmd, nil)
		},
	}
}

// runServeWithDeps runs the server until ctx is cancelled, a signal arrives,
// or a listener fails. If deps is nil, default implementations are used.
func runServeWithDeps(ctx context.Context, cmd *cobra.Command, deps *ServeDeps) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if deps == nil {
		deps = &ServeDeps{}
	}
	if deps.StoreOpener == nil {
		deps.StoreOpener = openStore
	}
	if deps.ObservabilityServerFactory == nil {
		deps.ObservabilityServerFactory = func(addr string, ready observability.ReadinessChecker, opts ...observability.Option) ObservabilityServer {
			return observability.NewServer(addr, ready, opts...)
		}
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if err := cfg.RequireSecret(); err != nil {
		return err
	}
	logger, err := newLogger(cmd, cfg)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)
	logger.Info("starting authd", "version", version, "config", cfg)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var ready atomic.Bool

	var obsServer ObservabilityServer
	if cfg.Metrics.Addr != "" {
		obsServer = deps.ObservabilityServerFactory(cfg.Metrics.Addr, ready.Load,
			observability.WithLogger(logger),
			observability.WithBuildInfo(version, commit),
			observability.WithMetrics(auth.RegisterMetrics, httpapi.RegisterMetrics),
		)
		obsErrCh, err := obsServer.Start()
		if err != nil {
			return oops.With("operation", "start observability server").Wrap(err)
		}
		defer stopServer(logger, "observability", obsServer.Stop)
		go monitorServerErrors(ctx, cancel, obsErrCh, "observability")
	}

	st, closeStore, err := deps.StoreOpener(ctx, cfg, logger)
	if err != nil {
		return oops.With("operation", "open credential store").Wrap(err)
	}
	defer closeStore()

	// Fail fast on an unreadable store rather than on the first request.
	users, err := st.LoadAll(ctx)
	if err != nil {
		return oops.With("operation", "load credential store").Wrap(err)
	}
	logger.Info("credential store loaded", "driver", cfg.Store.Driver, "users", len(users))

	accounts, _, err := newAccountService(cfg, st, logger)
	if err != nil {
		return err
	}

	handler := httpapi.NewHandler(accounts, httpapi.Options{
		SecureCookies: cfg.HTTP.SecureCookies,
		EmailLookup:   cfg.HTTP.EmailLookup,
		Logger:        logger,
	})
	apiServer := httpapi.NewServer(cfg.HTTP.Addr, handler.Router(), logger)
	apiErrCh, err := apiServer.Start()
	if err != nil {
		return oops.With("operation", "start http server").Wrap(err)
	}
	defer stopServer(logger, "http", apiServer.Stop)
	go monitorServerErrors(ctx, cancel, apiErrCh, "http")

	ready.Store(true)
	cmd.Println("authd started")
	logger.Info("authd ready", "http_addr", apiServer.Addr())
	if deps.OnReady != nil {
		deps.OnReady(apiServer.Addr())
	}

	<-ctx.Done()
	ready.Store(false)
	logger.Info("shutting down")
	return nil
}

// stopServer stops a server with a bounded grace period, logging failures.
func stopServer(logger *slog.Logger, name string, stopFn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := stopFn(ctx); err != nil {
		errutil.LogError(logger, "error stopping server", oops.With("server", name).Wrap(err))
	}
}

// monitorServerErrors cancels the run when a server reports a failure.
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
