package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	_ "golang.org/x/crypto/x509roots/fallback" // Embed CA certs for scratch container

	"github.com/ericfisherdev/searchpanel/internal/config"
)

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		slog.Error("fatal error", "error", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "searchpanel",
		Short:         "Authenticated session client for the search platform dashboard",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCommand(),
		newLoginCommand(),
		newLogoutCommand(),
		newStatusCommand(),
	)

	return cmd
}

// loadConfig loads configuration and installs the process logger.
func loadConfig() (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}

	logger := newLogger(cfg.LogFormat, cfg.SlogLevel())
	slog.SetDefault(logger)

	return cfg, logger, nil
}

func newLogger(format string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if format == "json" {
		inner = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
			Level: level,
		})
	} else {
		inner = tint.NewHandler(os.Stderr, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	}
	return slog.New(inner)
}
