package connectivity

import (
	"context"
	"io"
	"net/http"

	"github.com/gaborage/go-netkit/config"
)

// Prober checks whether the network is reachable.
type Prober interface {
	// Probe reports reachability. An error means the check itself could
	// not complete and is treated as unreachable by the monitor.
	Probe(ctx context.Context) (bool, error)
}

// ProbeFunc adapts a function to the Prober interface.
type ProbeFunc func(ctx context.Context) (bool, error)

// Probe implements Prober.
func (f ProbeFunc) Probe(ctx context.Context) (bool, error) {
	return f(ctx)
}

// HTTPProber reports reachability by issuing a lightweight request against a
// well-known endpoint. Any completed HTTP exchange counts as reachable
// regardless of status code; only transport failures count as unreachable.
type HTTPProber struct {
	client   *http.Client
	settings *config.Settings
}

// NewHTTPProber creates a prober that reads its target URL, method and
// timeout from settings on every probe, so runtime changes take effect
// immediately.
func NewHTTPProber(settings *config.Settings) *HTTPProber {
	if settings == nil {
		settings = config.NewSettings(nil)
	}
	return &HTTPProber{
		client:   &http.Client{},
		settings: settings,
	}
}

// Probe implements Prober.
func (p *HTTPProber) Probe(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, p.settings.ProbeTimeout())
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, p.settings.ProbeMethod(), p.settings.ProbeURL(), http.NoBody)
	if err != nil {
		return false, err
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)
	return true, nil
}
