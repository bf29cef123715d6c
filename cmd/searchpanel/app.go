package main

import (
	"context"
	"errors"
	"log/slog"

	memoryadapter "github.com/ericfisherdev/searchpanel/internal/adapter/driven/memory"
	redisadapter "github.com/ericfisherdev/searchpanel/internal/adapter/driven/redis"
	"github.com/ericfisherdev/searchpanel/internal/adapter/driven/searchapi"
	sqliteadapter "github.com/ericfisherdev/searchpanel/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/searchpanel/internal/application"
	"github.com/ericfisherdev/searchpanel/internal/config"
	"github.com/ericfisherdev/searchpanel/internal/domain/port/driven"
	"github.com/ericfisherdev/searchpanel/internal/metrics"
)

// app is the wired session layer shared by every command.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	creds    *application.CredentialStore
	sessions *application.SessionManager
	closers  []func() error
}

func openApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*app, error) {
	a := &app{cfg: cfg, logger: logger}

	// 1. Persistent storage, falling back to memory when unavailable.
	storage := a.openStorage(ctx)

	// 2. Credential store and the request pipeline reading from it.
	a.creds = application.NewCredentialStore(storage, nil, logger)

	client, err := searchapi.NewClient(cfg.APIURL, a.creds,
		searchapi.WithTimeout(cfg.RequestTimeout),
		searchapi.WithHTTPCache(cfg.HTTPCache),
		searchapi.WithLogger(logger),
	)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	// 3. Session manager, the only writer of credentials and session state.
	a.sessions = application.NewSessionManager(client, a.creds, application.NewSessionState(),
		application.SessionManagerConfig{
			RefreshThreshold: cfg.RefreshThreshold,
			Logger:           logger,
		})

	return a, nil
}

func (a *app) openStorage(ctx context.Context) driven.Storage {
	cfg := a.cfg

	switch cfg.Store {
	case config.StoreSQLite:
		if !cfg.HasEncryptionKey() {
			a.fallback("sqlite", driven.ErrEncryptionKeyNotSet)
			return memoryadapter.NewStorage()
		}

		db, err := sqliteadapter.NewDB(ctx, cfg.DBPath)
		if err != nil {
			a.fallback("sqlite", err)
			return memoryadapter.NewStorage()
		}
		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			_ = db.Close()
			a.fallback("sqlite", err)
			return memoryadapter.NewStorage()
		}
		a.closers = append(a.closers, db.Close)
		a.logger.Info("credential store opened", "store", "sqlite", "path", cfg.DBPath, "schema_version", version)
		return sqliteadapter.NewStorageRepo(db, cfg.SecretKey)

	case config.StoreRedis:
		if !cfg.HasEncryptionKey() {
			a.fallback("redis", driven.ErrEncryptionKeyNotSet)
			return memoryadapter.NewStorage()
		}

		client, err := redisadapter.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword)
		if err != nil {
			a.fallback("redis", err)
			return memoryadapter.NewStorage()
		}
		a.closers = append(a.closers, client.Close)
		a.logger.Info("credential store opened", "store", "redis", "addr", cfg.RedisAddr)
		return redisadapter.NewStorage(client, cfg.SecretKey,
			redisadapter.WithExpiryKey(application.StorageKeyExpiry))

	default:
		a.logger.Info("credential store opened", "store", "memory")
		return memoryadapter.NewStorage()
	}
}

func (a *app) fallback(store string, err error) {
	metrics.StorageFallbacksTotal.WithLabelValues("open").Inc()
	a.logger.Warn("credential store unavailable, credentials will not survive a restart",
		"store", store,
		"error", err,
	)
}

// persistent reports whether the opened store outlives the process.
func (a *app) persistent() bool {
	return len(a.closers) > 0
}

// Close releases every opened resource.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}
