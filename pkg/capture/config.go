package capture

import (
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/thesyncim/libgodshow/pkg/caps"
)

// Frame debug levels.
const (
	DebugOff      = 0
	DebugAccepted = 1 // log frames that pass the size check
	DebugAll      = 2 // log every frame the engine delivers
)

// Environment variables read by ConfigFromEnv.
const (
	EnvDebug    = "DSHOWCAPTURE_DEBUG"
	EnvLogLevel = "DSHOWCAPTURE_LOG_LEVEL"
)

// Config holds session settings.
type Config struct {
	// Logger receives session logs. Defaults to slog.Default().
	Logger *slog.Logger

	// Debug selects per-frame debug logging (DebugOff, DebugAccepted, DebugAll).
	Debug int

	// Matcher scores capabilities for StartFrameRate. A Matcher without a
	// Rate function is replaced by caps.DefaultMatcher.
	Matcher caps.Matcher
}

// DefaultConfig returns the default session settings.
func DefaultConfig() Config {
	return Config{
		Logger:  slog.Default(),
		Matcher: caps.DefaultMatcher,
	}
}

// ConfigFromEnv returns DefaultConfig with the frame debug level taken from
// DSHOWCAPTURE_DEBUG and a stderr logger at DSHOWCAPTURE_LOG_LEVEL.
func ConfigFromEnv() Config {
	cfg := DefaultConfig()
	if v, err := strconv.Atoi(os.Getenv(EnvDebug)); err == nil {
		cfg.Debug = v
	}
	cfg.Logger = NewLogger(os.Stderr, ParseLevel(os.Getenv(EnvLogLevel)))
	return cfg
}

func (c Config) withDefaults() Config {
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	if c.Matcher.Rate == nil {
		c.Matcher = caps.DefaultMatcher
	}
	return c
}

// NewLogger returns a text slog.Logger writing to w at the given level.
func NewLogger(w io.Writer, level slog.Leveler) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// ParseLevel maps debug, info, warn and error to a slog level. Anything else
// is info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
