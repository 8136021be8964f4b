package config

import "os"

// Environment variable names for overrides.
const (
	EnvConfig   = "PHOTOFRAME_CONFIG"
	EnvCacheDir = "PHOTOFRAME_CACHE_DIR"
	EnvLogLevel = "PHOTOFRAME_LOG_LEVEL"
)

// EnvOverrides holds values derived from environment variables. These are
// resolved by ReadEnvOverrides and applied by the caller; reading never
// mutates a Config directly.
type EnvOverrides struct {
	ConfigPath string // PHOTOFRAME_CONFIG: override config file path
	CacheDir   string // PHOTOFRAME_CACHE_DIR: override cache directory
	LogLevel   string // PHOTOFRAME_LOG_LEVEL: override log level
}

// ReadEnvOverrides reads environment variables and returns any overrides
// found. This does not modify a Config; callers apply the relevant fields.
func ReadEnvOverrides() EnvOverrides {
	return EnvOverrides{
		ConfigPath: os.Getenv(EnvConfig),
		CacheDir:   os.Getenv(EnvCacheDir),
		LogLevel:   os.Getenv(EnvLogLevel),
	}
}

// Apply overlays non-empty env overrides onto cfg, the highest-priority
// layer below CLI flags.
func (o EnvOverrides) Apply(cfg *Config) {
	if o.CacheDir != "" {
		cfg.Cache.Dir = o.CacheDir
	}

	if o.LogLevel != "" {
		cfg.Logging.LogLevel = o.LogLevel
	}
}
