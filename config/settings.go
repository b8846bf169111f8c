package config

import (
	"sync"
	"time"
)

// Defaults applied when a value is absent from the loaded configuration.
const (
	DefaultClientTimeout = 30 * time.Second
	DefaultPollInterval  = 3 * time.Second
	DefaultProbeURL      = "https://connectivitycheck.gstatic.com/generate_204"
	DefaultProbeMethod   = "HEAD"
	DefaultProbeTimeout  = 2 * time.Second
)

// Settings is the process-wide mutable view of the configuration, shared by
// the fetch client and the connectivity monitor. It is created once at
// startup and mutated through setters at any time; every read observes the
// latest value. There is no teardown.
type Settings struct {
	mu sync.RWMutex

	csrfField string
	csrfToken TokenSource

	pollMin time.Duration
	pollMax time.Duration

	clientTimeout time.Duration
	probeURL      string
	probeMethod   string
	probeTimeout  time.Duration
}

// NewSettings derives runtime settings from a loaded configuration. A nil cfg
// yields defaults with CSRF decoration unconfigured.
func NewSettings(cfg *Config) *Settings {
	s := &Settings{
		pollMin:       DefaultPollInterval,
		pollMax:       DefaultPollInterval,
		clientTimeout: DefaultClientTimeout,
		probeURL:      DefaultProbeURL,
		probeMethod:   DefaultProbeMethod,
		probeTimeout:  DefaultProbeTimeout,
	}

	if cfg == nil {
		return s
	}

	s.csrfField = cfg.CSRF.Field
	if cfg.CSRF.Token != "" {
		s.csrfToken = StaticToken(cfg.CSRF.Token)
	}
	if cfg.Connectivity.Interval > 0 {
		s.pollMin = cfg.Connectivity.Interval
		s.pollMax = cfg.Connectivity.Interval
	}
	if cfg.Client.Timeout > 0 {
		s.clientTimeout = cfg.Client.Timeout
	}
	if cfg.Connectivity.Probe.URL != "" {
		s.probeURL = cfg.Connectivity.Probe.URL
	}
	if cfg.Connectivity.Probe.Method != "" {
		s.probeMethod = cfg.Connectivity.Probe.Method
	}
	if cfg.Connectivity.Probe.Timeout > 0 {
		s.probeTimeout = cfg.Connectivity.Probe.Timeout
	}

	return s
}

// SetCSRFField sets the body field name used for CSRF decoration. An empty
// name disables decoration.
func (s *Settings) SetCSRFField(name string) {
	s.mu.Lock()
	s.csrfField = name
	s.mu.Unlock()
}

// SetCSRFToken sets a static CSRF token value. An empty token clears the
// source and disables decoration.
func (s *Settings) SetCSRFToken(token string) {
	s.mu.Lock()
	if token == "" {
		s.csrfToken = nil
	} else {
		s.csrfToken = StaticToken(token)
	}
	s.mu.Unlock()
}

// SetCSRFTokenSource sets a producer for the CSRF token. The producer is
// invoked at decoration time. A nil source disables decoration.
func (s *Settings) SetCSRFTokenSource(src TokenSource) {
	s.mu.Lock()
	s.csrfToken = src
	s.mu.Unlock()
}

// SetPollInterval sets both poll bounds to d, yielding a fixed period.
// Non-positive values are ignored.
func (s *Settings) SetPollInterval(d time.Duration) {
	s.SetPollIntervalBounds(d, d)
}

// SetPollIntervalBounds sets independent jitter bounds for the poll loop.
// The call is ignored unless 0 < min <= max.
func (s *Settings) SetPollIntervalBounds(minInterval, maxInterval time.Duration) {
	if minInterval <= 0 || maxInterval < minInterval {
		return
	}
	s.mu.Lock()
	s.pollMin = minInterval
	s.pollMax = maxInterval
	s.mu.Unlock()
}

// SetProbeTarget replaces the connectivity probe URL and method.
// Empty values leave the current target untouched.
func (s *Settings) SetProbeTarget(url, method string) {
	s.mu.Lock()
	if url != "" {
		s.probeURL = url
	}
	if method != "" {
		s.probeMethod = method
	}
	s.mu.Unlock()
}

// SetProbeTimeout sets the per-probe timeout. Non-positive values are ignored.
func (s *Settings) SetProbeTimeout(d time.Duration) {
	if d <= 0 {
		return
	}
	s.mu.Lock()
	s.probeTimeout = d
	s.mu.Unlock()
}

// CSRFField returns the configured CSRF body field name.
func (s *Settings) CSRFField() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.csrfField
}

// CSRFToken resolves the current CSRF token, or "" when no source is set.
func (s *Settings) CSRFToken() string {
	s.mu.RLock()
	src := s.csrfToken
	s.mu.RUnlock()

	if src == nil {
		return ""
	}
	return src.Token()
}

// ResolveCSRF returns the field name and resolved token for decoration.
// ok is false when the field name is unset, no source is set, or the source
// yields an empty token. The token source is invoked outside the settings lock.
func (s *Settings) ResolveCSRF() (field, token string, ok bool) {
	s.mu.RLock()
	field = s.csrfField
	src := s.csrfToken
	s.mu.RUnlock()

	if field == "" || src == nil {
		return "", "", false
	}
	token = src.Token()
	if token == "" {
		return "", "", false
	}
	return field, token, true
}

// PollInterval returns the upper poll bound, the configured interval in the
// common min==max case.
func (s *Settings) PollInterval() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollMax
}

// PollIntervalBounds returns the current jitter bounds for the poll loop.
func (s *Settings) PollIntervalBounds() (minInterval, maxInterval time.Duration) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pollMin, s.pollMax
}

// ClientTimeout returns the HTTP client timeout.
func (s *Settings) ClientTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.clientTimeout
}

// ProbeURL returns the connectivity probe target.
func (s *Settings) ProbeURL() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.probeURL
}

// ProbeMethod returns the HTTP method used by the connectivity probe.
func (s *Settings) ProbeMethod() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.probeMethod
}

// ProbeTimeout returns the per-probe timeout.
func (s *Settings) ProbeTimeout() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.probeTimeout
}
