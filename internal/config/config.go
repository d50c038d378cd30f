package config

import (
	"fmt"
	"os"
	"path/filepath"

	"encoding/json"

	"github.com/goccy/go-yaml"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	DefaultNamespaceName string         `json:"defaultNamespaceName" yaml:"defaultNamespaceName"`
	NamespaceNameRegex   string         `json:"namespaceNameRegex" yaml:"namespaceNameRegex"`
	StreamDefaults       StreamDefaults `json:"streamDefaults" yaml:"streamDefaults"`
}

// StreamDefaults captures per-stream baseline limits.
type StreamDefaults struct {
	// MaxFieldBytes bounds a single field or value element.
	MaxFieldBytes int `json:"maxFieldBytes" yaml:"maxFieldBytes"`
	// MaxFields bounds how many elements one entry may carry.
	MaxFields int `json:"maxFields" yaml:"maxFields"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		DefaultNamespaceName: "default",
		NamespaceNameRegex:   "[a-z0-9-_]{1,64}",
		StreamDefaults: StreamDefaults{
			MaxFieldBytes: 1 << 20,
			MaxFields:     1024,
		},
	}
}

// Load reads configuration from a JSON or YAML file (by extension). An empty
// path returns defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch filepath.Ext(path) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}
