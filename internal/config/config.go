// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for the photo frame engine.
package config

// Config is the top-level configuration structure, sectioned the way the
// teacher groups its own config: one struct per subsystem.
type Config struct {
	Provider ProviderConfig `toml:"provider"`
	Cache    CacheConfig    `toml:"cache"`
	Display  DisplayConfig  `toml:"display"`
	Sync     SyncConfig     `toml:"sync"`
	Logging  LoggingConfig  `toml:"logging"`
	Network  NetworkConfig  `toml:"network"`
}

// ContainerConfig names one provider container to scan, with how many
// levels of nested containers FullScan recurses into from it.
type ContainerConfig struct {
	ID    string `toml:"id"`
	Depth int    `toml:"depth"`
}

// ProviderConfig selects and configures the photo source.
type ProviderConfig struct {
	Key        string            `toml:"key"`
	Containers []ContainerConfig `toml:"containers"`
	TokenPath  string            `toml:"token_path"`
	Settings   map[string]any    `toml:"settings"`
}

// CacheConfig controls the on-disk cache budget and storage mode.
type CacheConfig struct {
	Dir            string `toml:"dir"`
	MaxSizeMB      int64  `toml:"max_size_mb"`
	UseBlobStorage bool   `toml:"use_blob_storage"`
	BatchSize      int    `toml:"batch_size"`
	TickInterval   string `toml:"tick_interval"`
}

// DisplayConfig controls the display-candidate dispatch loop and the
// image transform pipeline feeding it.
type DisplayConfig struct {
	Width          int    `toml:"width"`
	Height         int    `toml:"height"`
	JPEGQuality    int    `toml:"jpeg_quality"`
	SortMode       string `toml:"sort_mode"`
	UpdateInterval string `toml:"update_interval"`
}

// SyncConfig controls the sync controller's scan cadence and retry policy.
type SyncConfig struct {
	ScanInterval   string `toml:"scan_interval"`
	MaxRetries     int    `toml:"max_retries"`
	MaxBackoff     string `toml:"max_backoff"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel  string `toml:"log_level"`
	LogFormat string `toml:"log_format"`
}

// NetworkConfig controls the Provider's HTTP client behavior.
type NetworkConfig struct {
	ConnectTimeout        string `toml:"connect_timeout"`
	DataTimeout           string `toml:"data_timeout"`
	UserAgent             string `toml:"user_agent"`
	DownloadRateLimitKBps int    `toml:"download_rate_limit_kbps"` // 0 disables limiting
}
