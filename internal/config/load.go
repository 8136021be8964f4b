package config

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/BurntSushi/toml"
)

// Load reads and parses a TOML config file, applies environment overrides,
// and validates the result. Unlike the load path this is adapted from,
// invalid individual fields do not fail the load: Validate resets them to
// their default and logs a Warn (see DESIGN.md's Open Question resolution).
func Load(path string, logger *slog.Logger) (*Config, error) {
	logger.Debug("loading config file", slog.String("path", path))

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}

	md, err := toml.Decode(string(data), cfg)
	if err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}

	if err := checkUnknownKeys(&md); err != nil {
		return nil, err
	}

	ReadEnvOverrides().Apply(cfg)

	Validate(cfg, logger)

	logger.Debug("config file parsed successfully", slog.String("path", path))

	return cfg, nil
}

// LoadOrDefault loads path if it exists, otherwise returns DefaultConfig
// with env overrides applied. A missing config file is not an error: the
// engine is expected to run with just env vars and CLI flags in the
// simplest deployments (spec §1, single binary, no mandatory config file).
func LoadOrDefault(path string, logger *slog.Logger) (*Config, error) {
	if path == "" {
		cfg := DefaultConfig()
		ReadEnvOverrides().Apply(cfg)
		Validate(cfg, logger)

		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		logger.Debug("no config file found, using defaults", slog.String("path", path))

		cfg := DefaultConfig()
		ReadEnvOverrides().Apply(cfg)
		Validate(cfg, logger)

		return cfg, nil
	}

	return Load(path, logger)
}
