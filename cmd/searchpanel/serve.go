package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	httphandler "github.com/ericfisherdev/searchpanel/internal/adapter/driving/http"
	"github.com/ericfisherdev/searchpanel/internal/application"
	"github.com/ericfisherdev/searchpanel/internal/metrics"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the session bridge and keep the session fresh",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}
}

func serve(parent context.Context) error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("config loaded",
		"api_url", cfg.APIURL,
		"listen_addr", cfg.ListenAddr,
		"store", cfg.Store,
		"refresh_threshold", cfg.RefreshThreshold,
	)

	// 2. Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	// 3. Wire storage, pipeline and session manager.
	a, err := openApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := a.Close(); closeErr != nil {
			logger.Error("error closing credential store", "error", closeErr)
		}
	}()

	// 4. Restore a persisted session before accepting requests.
	a.sessions.Bootstrap(ctx)
	snap := a.sessions.State().Snapshot()
	logger.Info("session bootstrapped", "authenticated", snap.IsAuthenticated)

	// 5. Keep the credential fresh without user traffic.
	loop := application.NewRefreshLoop(a.sessions, cfg.RefreshInterval, logger)
	go loop.Start(ctx)

	// 6. Session bridge.
	handler := httphandler.NewServeMux(httphandler.NewHandler(a.sessions, logger), logger)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		IdleTimeout:       120 * time.Second,
		// Request contexts end with ctx so open event streams return on shutdown.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
			stop()
		}
	}()

	// 7. Wait for shutdown signal.
	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
