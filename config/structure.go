// Package config loads and validates go-netkit configuration and exposes the
// runtime-mutable Settings consumed by the fetch client and the connectivity
// monitor.
package config

import "time"

// Config is the root configuration structure.
type Config struct {
	Client       ClientConfig       `koanf:"client"`
	CSRF         CSRFConfig         `koanf:"csrf"`
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Log          LogConfig          `koanf:"log"`
}

// ClientConfig holds HTTP client settings.
type ClientConfig struct {
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// CSRFConfig holds CSRF decoration settings. Decoration is applied only when
// both Field and a token value are configured.
type CSRFConfig struct {
	Field string `koanf:"field"`
	Token string `koanf:"token"`
}

// ConnectivityConfig holds outage-detection settings.
type ConnectivityConfig struct {
	// Interval is the poll interval used while the monitor is checking for
	// restored connectivity.
	Interval time.Duration `koanf:"interval" validate:"gt=0"`
	Probe    ProbeConfig   `koanf:"probe"`
}

// ProbeConfig describes the endpoint used to decide whether the network is
// reachable. Any completed HTTP exchange counts as reachable, so the target
// should be cheap and highly available.
type ProbeConfig struct {
	URL     string        `koanf:"url" validate:"omitempty,url"`
	Method  string        `koanf:"method" validate:"oneof=GET HEAD"`
	Timeout time.Duration `koanf:"timeout" validate:"gt=0"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level  string `koanf:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Pretty bool   `koanf:"pretty"`
}
