// Package config resolves runtime settings for the vitalog CLI.
//
// Everything works with zero configuration: the defaults apply when
// neither the environment nor a .env file says otherwise, and flags
// override whatever the environment resolved.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/aweiler/vitalog/internal/importer"
)

// Environment variable names.
const (
	EnvDBPath        = "VITALOG_DB_PATH"
	EnvRetentionDays = "VITALOG_RETENTION_DAYS"
	EnvLogLevel      = "VITALOG_LOG_LEVEL"
	EnvLogFormat     = "VITALOG_LOG_FORMAT"
)

// DefaultDBPath is the journal database created in the working directory
// when nothing else is configured.
const DefaultDBPath = "vitalog.db"

// Config carries the resolved runtime settings.
type Config struct {
	DBPath        string
	RetentionDays int
	LogLevel      slog.Level
	LogFormat     string // "text" | "json"
}

// Default returns the zero-configuration settings.
func Default() Config {
	return Config{
		DBPath:        DefaultDBPath,
		RetentionDays: importer.DefaultRetentionDays,
		LogLevel:      slog.LevelInfo,
		LogFormat:     "text",
	}
}

// FromEnv resolves settings from the environment on top of the defaults.
//
// A malformed retention window is an error rather than a silent fallback:
// the window bounds a destructive purge, and a typo must not shrink it.
func FromEnv() (Config, error) {
	cfg := Default()
	if v := os.Getenv(EnvDBPath); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv(EnvRetentionDays); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days < 1 {
			return Config{}, fmt.Errorf("%s: %q is not a positive day count", EnvRetentionDays, v)
		}
		cfg.RetentionDays = days
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = parseLevel(v)
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = strings.ToLower(v)
	}
	return cfg, nil
}

// parseLevel maps a level name to a slog level. Unrecognized names fall
// back to Info.
func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Handler builds a slog handler for w honoring the configured level and
// format. Any format other than "json" renders text.
func (c Config) Handler(w io.Writer) slog.Handler {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}
