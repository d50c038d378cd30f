package config

import (
	"os"
	"strconv"
)

// FromEnv overlays BASIN_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("BASIN_DEFAULT_NAMESPACE_NAME"); v != "" {
		cfg.DefaultNamespaceName = v
	}
	if v := os.Getenv("BASIN_NAMESPACE_NAME_REGEX"); v != "" {
		cfg.NamespaceNameRegex = v
	}
	if v := os.Getenv("BASIN_STREAM_MAX_FIELD_BYTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StreamDefaults.MaxFieldBytes = n
		}
	}
	if v := os.Getenv("BASIN_STREAM_MAX_FIELDS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.StreamDefaults.MaxFields = n
		}
	}
}
