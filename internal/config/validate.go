package config

import (
	"log/slog"
	"time"
)

// Validation range constants.
const (
	minJPEGQuality = 1
	maxJPEGQuality = 100
	minDisplayDim  = 1
	maxBackoffCeil = 10 * time.Minute
)

// Validate checks cfg's fields and resets any invalid one to its default,
// logging a Warn for each reset. Unlike the hard-fail Validate this is
// adapted from, a single bad field never aborts the whole load (spec §6:
// "invalid values fall back to defaults with a warning" — documented as
// an intentional divergence in DESIGN.md).
func Validate(cfg *Config, logger *slog.Logger) {
	defaults := DefaultConfig()

	if cfg.Provider.Key == "" {
		logger.Warn("config: provider.key is empty; no provider will be registered until set")
	}

	if len(cfg.Provider.Containers) == 0 {
		logger.Warn("config: provider.containers is empty, falling back to default", slog.Any("default", defaults.Provider.Containers))
		cfg.Provider.Containers = defaults.Provider.Containers
	}

	if cfg.Cache.MaxSizeMB <= 0 {
		warnReset(logger, "cache.max_size_mb", cfg.Cache.MaxSizeMB, defaults.Cache.MaxSizeMB)
		cfg.Cache.MaxSizeMB = defaults.Cache.MaxSizeMB
	}

	if cfg.Cache.BatchSize <= 0 {
		warnReset(logger, "cache.batch_size", cfg.Cache.BatchSize, defaults.Cache.BatchSize)
		cfg.Cache.BatchSize = defaults.Cache.BatchSize
	}

	cfg.Cache.TickInterval = validDuration(logger, "cache.tick_interval", cfg.Cache.TickInterval, defaults.Cache.TickInterval)

	if cfg.Display.Width < minDisplayDim {
		warnReset(logger, "display.width", cfg.Display.Width, defaults.Display.Width)
		cfg.Display.Width = defaults.Display.Width
	}

	if cfg.Display.Height < minDisplayDim {
		warnReset(logger, "display.height", cfg.Display.Height, defaults.Display.Height)
		cfg.Display.Height = defaults.Display.Height
	}

	if cfg.Display.JPEGQuality < minJPEGQuality || cfg.Display.JPEGQuality > maxJPEGQuality {
		warnReset(logger, "display.jpeg_quality", cfg.Display.JPEGQuality, defaults.Display.JPEGQuality)
		cfg.Display.JPEGQuality = defaults.Display.JPEGQuality
	}

	if !validSortMode(cfg.Display.SortMode) {
		warnReset(logger, "display.sort_mode", cfg.Display.SortMode, defaults.Display.SortMode)
		cfg.Display.SortMode = defaults.Display.SortMode
	}

	cfg.Display.UpdateInterval = validDuration(logger, "display.update_interval", cfg.Display.UpdateInterval, defaults.Display.UpdateInterval)
	cfg.Sync.ScanInterval = validDuration(logger, "sync.scan_interval", cfg.Sync.ScanInterval, defaults.Sync.ScanInterval)

	if cfg.Sync.MaxRetries < 0 {
		warnReset(logger, "sync.max_retries", cfg.Sync.MaxRetries, defaults.Sync.MaxRetries)
		cfg.Sync.MaxRetries = defaults.Sync.MaxRetries
	}

	cfg.Sync.MaxBackoff = validDurationCapped(logger, "sync.max_backoff", cfg.Sync.MaxBackoff, defaults.Sync.MaxBackoff, maxBackoffCeil)

	if cfg.Logging.LogLevel != "debug" && cfg.Logging.LogLevel != "info" &&
		cfg.Logging.LogLevel != "warn" && cfg.Logging.LogLevel != "error" {
		warnReset(logger, "logging.log_level", cfg.Logging.LogLevel, defaults.Logging.LogLevel)
		cfg.Logging.LogLevel = defaults.Logging.LogLevel
	}

	if cfg.Logging.LogFormat != "text" && cfg.Logging.LogFormat != "json" {
		warnReset(logger, "logging.log_format", cfg.Logging.LogFormat, defaults.Logging.LogFormat)
		cfg.Logging.LogFormat = defaults.Logging.LogFormat
	}

	cfg.Network.ConnectTimeout = validDuration(logger, "network.connect_timeout", cfg.Network.ConnectTimeout, defaults.Network.ConnectTimeout)
	cfg.Network.DataTimeout = validDuration(logger, "network.data_timeout", cfg.Network.DataTimeout, defaults.Network.DataTimeout)

	if cfg.Network.DownloadRateLimitKBps < 0 {
		warnReset(logger, "network.download_rate_limit_kbps", cfg.Network.DownloadRateLimitKBps, 0)
		cfg.Network.DownloadRateLimitKBps = 0
	}
}

func validSortMode(s string) bool {
	switch s {
	case "sequential", "random", "newest", "oldest":
		return true
	default:
		return false
	}
}

// validDuration parses s as a time.Duration string, falling back to
// fallback (unparsed — callers pass an already-valid constant) on error.
func validDuration(logger *slog.Logger, field, s, fallback string) string {
	if _, err := time.ParseDuration(s); err != nil {
		logger.Warn("config: invalid duration, falling back to default",
			slog.String("field", field), slog.String("value", s), slog.String("default", fallback))

		return fallback
	}

	return s
}

func validDurationCapped(logger *slog.Logger, field, s, fallback string, ceil time.Duration) string {
	d, err := time.ParseDuration(s)
	if err != nil {
		logger.Warn("config: invalid duration, falling back to default",
			slog.String("field", field), slog.String("value", s), slog.String("default", fallback))

		return fallback
	}

	if d > ceil {
		logger.Warn("config: duration exceeds ceiling, clamping",
			slog.String("field", field), slog.Duration("value", d), slog.Duration("ceiling", ceil))

		return ceil.String()
	}

	return s
}

func warnReset(logger *slog.Logger, field string, got, fallback any) {
	logger.Warn("config: invalid value, falling back to default",
		slog.String("field", field), slog.Any("value", got), slog.Any("default", fallback))
}
