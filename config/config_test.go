package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromBytesDefaults(t *testing.T) {
	cfg, err := LoadFromBytes(nil)
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Empty(t, cfg.CSRF.Field)
	assert.Empty(t, cfg.CSRF.Token)
	assert.Equal(t, 3*time.Second, cfg.Connectivity.Interval)
	assert.Equal(t, DefaultProbeURL, cfg.Connectivity.Probe.URL)
	assert.Equal(t, "HEAD", cfg.Connectivity.Probe.Method)
	assert.Equal(t, 2*time.Second, cfg.Connectivity.Probe.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoadFromBytesOverrides(t *testing.T) {
	yaml := []byte(`
client:
  timeout: 5s
csrf:
  field: csrf_token
  token: abc
connectivity:
  interval: 250ms
  probe:
    url: https://probe.internal/health
    method: GET
    timeout: 500ms
log:
  level: debug
  pretty: true
`)

	cfg, err := LoadFromBytes(yaml)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Second, cfg.Client.Timeout)
	assert.Equal(t, "csrf_token", cfg.CSRF.Field)
	assert.Equal(t, "abc", cfg.CSRF.Token)
	assert.Equal(t, 250*time.Millisecond, cfg.Connectivity.Interval)
	assert.Equal(t, "https://probe.internal/health", cfg.Connectivity.Probe.URL)
	assert.Equal(t, "GET", cfg.Connectivity.Probe.Method)
	assert.Equal(t, 500*time.Millisecond, cfg.Connectivity.Probe.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadFromBytesValidation(t *testing.T) {
	tests := []struct {
		name     string
		yaml     string
		errField string
	}{
		{
			name:     "zero_interval_rejected",
			yaml:     "connectivity:\n  interval: 0s\n",
			errField: "connectivity.interval",
		},
		{
			name:     "negative_timeout_rejected",
			yaml:     "client:\n  timeout: -1s\n",
			errField: "client.timeout",
		},
		{
			name:     "bad_probe_url_rejected",
			yaml:     "connectivity:\n  probe:\n    url: not-a-url\n",
			errField: "connectivity.probe.url",
		},
		{
			name:     "bad_probe_method_rejected",
			yaml:     "connectivity:\n  probe:\n    method: POST\n",
			errField: "connectivity.probe.method",
		},
		{
			name:     "bad_log_level_rejected",
			yaml:     "log:\n  level: loud\n",
			errField: "log.level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromBytes([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errField)
		})
	}
}

func TestLoadFromBytesBadYAML(t *testing.T) {
	_, err := LoadFromBytes([]byte("::not yaml::"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse yaml")
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("CSRF_TOKEN", "from-env")
	t.Setenv("CONNECTIVITY_INTERVAL", "7s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.CSRF.Token)
	assert.Equal(t, 7*time.Second, cfg.Connectivity.Interval)
}

func TestValidationErrorMessages(t *testing.T) {
	_, err := LoadFromBytes([]byte("connectivity:\n  interval: 0s\n  probe:\n    method: POST\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "greater than")
	assert.Contains(t, err.Error(), "one of")
}
