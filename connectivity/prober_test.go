package connectivity

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/go-netkit/config"
)

func newProberSettings(url string) *config.Settings {
	s := config.NewSettings(nil)
	s.SetProbeTarget(url, http.MethodHead)
	return s
}

func TestHTTPProberReachableOn204(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	p := NewHTTPProber(newProberSettings(srv.URL))
	reachable, err := p.Probe(context.Background())

	require.NoError(t, err)
	assert.True(t, reachable)
}

func TestHTTPProberReachableOnServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewHTTPProber(newProberSettings(srv.URL))
	reachable, err := p.Probe(context.Background())

	require.NoError(t, err)
	assert.True(t, reachable, "any completed HTTP exchange counts as reachable")
}

func TestHTTPProberUnreachableOnRefusedConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	srv.Close() // nothing listens anymore

	p := NewHTTPProber(newProberSettings(srv.URL))
	reachable, err := p.Probe(context.Background())

	require.Error(t, err)
	assert.False(t, reachable)
}

func TestHTTPProberHonorsTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	settings := newProberSettings(srv.URL)
	settings.SetProbeTimeout(50 * time.Millisecond)

	p := NewHTTPProber(settings)
	start := time.Now()
	reachable, err := p.Probe(context.Background())

	require.Error(t, err)
	assert.False(t, reachable)
	assert.Less(t, time.Since(start), 400*time.Millisecond)
}

func TestHTTPProberUsesConfiguredMethod(t *testing.T) {
	var gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := config.NewSettings(nil)
	s.SetProbeTarget(srv.URL, http.MethodGet)

	p := NewHTTPProber(s)
	reachable, err := p.Probe(context.Background())

	require.NoError(t, err)
	assert.True(t, reachable)
	assert.Equal(t, http.MethodGet, gotMethod)
}

func TestNewHTTPProberNilSettings(t *testing.T) {
	p := NewHTTPProber(nil)
	require.NotNil(t, p)
	assert.Equal(t, config.DefaultProbeURL, p.settings.ProbeURL())
}
