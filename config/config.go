package config

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	envprovider "github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// Load loads configuration from multiple sources with priority:
// 1. Environment variables (highest priority)
// 2. config.yaml in the working directory
// 3. Default values (lowest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	// config.yaml is optional
	_ = k.Load(file.Provider("config.yaml"), yaml.Parser())

	// Environment variables override everything. UPPER_SNAKE names map onto
	// the dotted key space, e.g. CONNECTIVITY_PROBE_URL -> connectivity.probe.url.
	if err := k.Load(envprovider.ProviderWithValue("", ".", func(key, value string) (string, any) {
		return strings.ReplaceAll(strings.ToLower(key), "_", "."), value
	}), nil); err != nil {
		return nil, fmt.Errorf("config: failed to load environment variables: %w", err)
	}

	return unmarshal(k)
}

// LoadFromBytes loads configuration from in-memory YAML layered over the
// defaults. File and environment sources are not consulted, which makes it
// the deterministic entry point for tests and embedded configuration.
func LoadFromBytes(b []byte) (*Config, error) {
	k := koanf.New(".")

	if err := loadDefaults(k); err != nil {
		return nil, fmt.Errorf("config: failed to load defaults: %w", err)
	}

	if err := k.Load(rawbytes.Provider(b), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("config: failed to parse yaml: %w", err)
	}

	return unmarshal(k)
}

func unmarshal(k *koanf.Koanf) (*Config, error) {
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config: invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"client.timeout": "30s",

		"csrf.field": "",
		"csrf.token": "",

		"connectivity.interval":      "3s",
		"connectivity.probe.url":     DefaultProbeURL,
		"connectivity.probe.method":  "HEAD",
		"connectivity.probe.timeout": "2s",

		"log.level":  "info",
		"log.pretty": false,
	}

	return k.Load(confmap.Provider(defaults, "."), nil)
}
