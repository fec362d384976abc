// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 authd Contributors

package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/knpvt5/auth/internal/auth"
	"github.com/knpvt5/auth/internal/auth/filestore"
	"github.com/knpvt5/auth/internal/auth/postgres"
	"github.com/knpvt5/auth/internal/config"
	"github.com/knpvt5/auth/internal/observability"
	"github.com/knpvt5/auth/internal/store"
)

// StoreOpener opens the configured credential store. The returned func
// releases it.
type StoreOpener func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.CredentialStore, func(), error)

// ServeDeps contains injectable dependencies for the serve command.
// All fields with nil values will use their default implementations.
type ServeDeps struct {
	// StoreOpener opens the credential store.
	// Default: openStore
	StoreOpener StoreOpener

	// ObservabilityServerFactory creates an observability server.
	// Default: observability.NewServer
	ObservabilityServerFactory func(addr string, ready observability.ReadinessChecker, opts ...observability.Option) ObservabilityServer

	// OnReady is called with the bound API address once the server accepts
	// requests.
	OnReady func(httpAddr string)
}

// ObservabilityServer interface wraps the methods used from observability.Server.
type ObservabilityServer interface {
	Start() (<-chan error, error)
	Stop(ctx context.Context) error
	Addr() string
}

// Migrator interface wraps the methods used from store.Migrator.
type Migrator interface {
	Up() error
	Down() error
	Version() (version uint, dirty bool, err error)
	Force(version int) error
	PendingMigrations() ([]uint, error)
	Close() error
}

// migratorFactory is swapped in tests.
var migratorFactory = func(databaseURL string) (Migrator, error) {
	return store.NewMigrator(databaseURL)
}

// openStore opens the file store, or connects to PostgreSQL and applies
// pending migrations when auto_migrate is set.
func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.CredentialStore, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		pool, err := store.Connect(ctx, cfg.Store.DatabaseURL, logger)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Store.AutoMigrate {
			if err := migrateUp(cfg.Store.DatabaseURL, logger); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return postgres.NewStore(pool), pool.Close, nil
	default:
		fs, err := filestore.New(cfg.Store.Path)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("using file credential store", "path", fs.Path())
		return fs, func() {}, nil
	}
}

func migrateUp(databaseURL string, logger *slog.Logger) error {
	m, err := migratorFactory(databaseURL)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		logger.Debug("database schema is current")
		return nil
	}
	logger.Info("applying migrations", "count", len(pending))
	if err := m.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	return nil
}

// newAccountService builds the hasher, token service and account service
// from cfg. It fails when no token secret is configured.
func newAccountService(cfg *config.Config, st auth.CredentialStore, logger *slog.Logger) (*auth.AccountService, *auth.TokenService, error) {
	if err := cfg.RequireSecret(); err != nil {
		return nil, nil, err
	}
	hasher, err := auth.NewPasswordHasher(cfg.Hasher.Algorithm, cfg.Hasher.BcryptCost)
	if err != nil {
		return nil, nil, err
	}
	tokens, err := auth.NewTokenService([]byte(cfg.Token.Secret), time.Duration(cfg.Token.TTL))
	if err != nil {
		return nil, nil, err
	}
	svc, err := auth.NewAccountService(st, hasher, tokens, auth.WithLogger(logger))
	if err != nil {
		return nil, nil, err
	}
	return svc, tokens, nil
}
