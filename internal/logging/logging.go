// Package logging builds the zerolog loggers used across scaffoldcheck.
// Loggers are constructed per run and passed explicitly; nothing here
// keeps process-wide state.
package logging

import (
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Environment variables that override the profile defaults.
const (
	EnvLogLevel     = "SCAFFOLDCHECK_LOG_LEVEL"
	EnvLogTimestamp = "SCAFFOLDCHECK_LOG_TIMESTAMP"
	EnvLogNoColor   = "SCAFFOLDCHECK_LOG_NOCOLOR"
)

// Profile selects a set of logging defaults.
type Profile int

const (
	ProfileRuntime Profile = iota
	ProfileTest
)

// Config controls logger construction.
type Config struct {
	Level     zerolog.Level
	Timestamp bool
	NoColor   bool
}

// DefaultConfig returns the defaults for profile before env overrides.
func DefaultConfig(profile Profile) Config {
	switch profile {
	case ProfileTest:
		return Config{Level: zerolog.DebugLevel, Timestamp: false, NoColor: true}
	default:
		return Config{Level: zerolog.InfoLevel, Timestamp: true}
	}
}

// New returns a console logger writing to w, configured for profile and
// the SCAFFOLDCHECK_LOG_* environment.
func New(profile Profile, w io.Writer) zerolog.Logger {
	cfg := DefaultConfig(profile)
	applyEnvOverrides(&cfg, os.Getenv)
	return NewWithConfig(cfg, w)
}

// NewWithConfig returns a console logger for an explicit config.
func NewWithConfig(cfg Config, w io.Writer) zerolog.Logger {
	out := zerolog.ConsoleWriter{
		Out:        w,
		NoColor:    cfg.NoColor,
		TimeFormat: time.TimeOnly,
	}
	if !cfg.Timestamp {
		out.PartsExclude = []string{zerolog.TimestampFieldName}
	}
	ctx := zerolog.New(out).Level(cfg.Level).With()
	if cfg.Timestamp {
		ctx = ctx.Timestamp()
	}
	return ctx.Logger()
}

func applyEnvOverrides(cfg *Config, getenv func(string) string) {
	if lvl, ok := parseLevel(getenv(EnvLogLevel)); ok {
		cfg.Level = lvl
	}
	if v, ok := parseBool(getenv(EnvLogTimestamp)); ok {
		cfg.Timestamp = v
	}
	if v, ok := parseBool(getenv(EnvLogNoColor)); ok {
		cfg.NoColor = v
	}
}

func parseLevel(raw string) (zerolog.Level, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "":
		return zerolog.InfoLevel, false
	case "trace":
		return zerolog.TraceLevel, true
	case "debug":
		return zerolog.DebugLevel, true
	case "info":
		return zerolog.InfoLevel, true
	case "warn", "warning":
		return zerolog.WarnLevel, true
	case "error":
		return zerolog.ErrorLevel, true
	case "disabled", "off", "none":
		return zerolog.Disabled, true
	default:
		return zerolog.InfoLevel, false
	}
}

func parseBool(raw string) (bool, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return false, false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false
	}
	return v, true
}
