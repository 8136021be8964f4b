package config

// Default values for configuration options. These represent the "layer 0"
// of the four-layer override chain and are chosen to be safe, reasonable
// starting points that work without any config file at all.
const (
	defaultCacheMaxSizeMB   = 2048
	defaultBatchSize        = 5
	defaultTickInterval     = "30s"
	defaultDisplayWidth     = 1920
	defaultDisplayHeight    = 1080
	defaultJPEGQuality      = 85
	defaultSortMode         = "sequential"
	defaultUpdateInterval   = "60s"
	defaultScanInterval     = "6h"
	defaultMaxRetries       = 0 // 0 means unbounded
	defaultMaxBackoff       = "120s"
	defaultLogLevel         = "info"
	defaultLogFormat        = "text"
	defaultConnectTimeout   = "10s"
	defaultDataTimeout      = "60s"
	defaultUserAgent        = "photoframed/0.1"
)

// DefaultConfig returns a Config populated with all default values. This is
// both the starting point for TOML decoding (unset fields retain these
// defaults) and the fallback used when no config file exists.
func DefaultConfig() *Config {
	return &Config{
		Provider: defaultProviderConfig(),
		Cache:    defaultCacheConfig(),
		Display:  defaultDisplayConfig(),
		Sync:     defaultSyncConfig(),
		Logging:  defaultLoggingConfig(),
		Network:  defaultNetworkConfig(),
	}
}

func defaultProviderConfig() ProviderConfig {
	return ProviderConfig{
		Containers: []ContainerConfig{{ID: "root", Depth: 1}},
	}
}

func defaultCacheConfig() CacheConfig {
	return CacheConfig{
		MaxSizeMB:    defaultCacheMaxSizeMB,
		BatchSize:    defaultBatchSize,
		TickInterval: defaultTickInterval,
	}
}

func defaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		Width:          defaultDisplayWidth,
		Height:         defaultDisplayHeight,
		JPEGQuality:    defaultJPEGQuality,
		SortMode:       defaultSortMode,
		UpdateInterval: defaultUpdateInterval,
	}
}

func defaultSyncConfig() SyncConfig {
	return SyncConfig{
		ScanInterval: defaultScanInterval,
		MaxRetries:   defaultMaxRetries,
		MaxBackoff:   defaultMaxBackoff,
	}
}

func defaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		LogLevel:  defaultLogLevel,
		LogFormat: defaultLogFormat,
	}
}

func defaultNetworkConfig() NetworkConfig {
	return NetworkConfig{
		ConnectTimeout: defaultConnectTimeout,
		DataTimeout:    defaultDataTimeout,
		UserAgent:      defaultUserAgent,
	}
}
