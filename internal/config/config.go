// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// Store backends.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	APIURL     string `env:"SEARCHPANEL_API_URL,required" validate:"required,url"`
	ListenAddr string `env:"SEARCHPANEL_LISTEN_ADDR" envDefault:"127.0.0.1:8080" validate:"required,hostname_port"`

	Store         string `env:"SEARCHPANEL_STORE" envDefault:"sqlite" validate:"oneof=memory sqlite redis"`
	DBPath        string `env:"SEARCHPANEL_DB_PATH" envDefault:"searchpanel.db" validate:"required_if=Store sqlite"`
	SecretKeyHex  string `env:"SEARCHPANEL_SECRET_KEY"`
	RedisAddr     string `env:"SEARCHPANEL_REDIS_ADDR" validate:"required_if=Store redis"`
	RedisPassword string `env:"SEARCHPANEL_REDIS_PASSWORD"`

	RefreshThreshold time.Duration `env:"SEARCHPANEL_REFRESH_THRESHOLD" envDefault:"5m" validate:"min=1s"`
	RefreshInterval  time.Duration `env:"SEARCHPANEL_REFRESH_INTERVAL" envDefault:"1m" validate:"min=1s"`
	RequestTimeout   time.Duration `env:"SEARCHPANEL_REQUEST_TIMEOUT" envDefault:"30s" validate:"min=1s"`
	HTTPCache        bool          `env:"SEARCHPANEL_HTTP_CACHE" envDefault:"true"`

	LogLevel  string `env:"SEARCHPANEL_LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
	LogFormat string `env:"SEARCHPANEL_LOG_FORMAT" envDefault:"text" validate:"oneof=text json"`

	// SecretKey is the decoded SEARCHPANEL_SECRET_KEY, nil when unset.
	SecretKey []byte
}

// HasEncryptionKey returns true when a secret key was configured. Used by the
// composition root to decide whether the sqlite store can be opened or the
// credential has to stay in memory.
func (c *Config) HasEncryptionKey() bool {
	return len(c.SecretKey) > 0
}

// SlogLevel returns LogLevel as a slog.Level.
func (c *Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// Load reads configuration from environment variables and returns a validated Config.
// SEARCHPANEL_API_URL is required. SEARCHPANEL_SECRET_KEY is optional; when set it
// must be 64 hex characters (a 32-byte AES-256 key).
func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := newValidator().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	if cfg.SecretKeyHex != "" {
		key, err := hex.DecodeString(cfg.SecretKeyHex)
		if err != nil {
			return nil, fmt.Errorf("SEARCHPANEL_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != 32 {
			return nil, errors.New("SEARCHPANEL_SECRET_KEY must be 64 hex characters (32 bytes)")
		}
		cfg.SecretKey = key
	}

	return cfg, nil
}

// newValidator reports failing fields by their environment variable name.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("env"), ",")
		return name
	})
	return v
}
