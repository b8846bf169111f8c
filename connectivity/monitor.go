// Package connectivity tracks network reachability for HTTP clients.
//
// A Monitor stays idle while requests succeed. When a request failure is
// reported it probes a well-known endpoint; if the probe cannot complete,
// registered handlers are notified that the network is lost and the monitor
// polls in the background until the probe succeeds again, at which point it
// notifies restored handlers and returns to idle. Polling is self-terminating
// and never overlaps.
package connectivity

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
	"golang.org/x/sync/singleflight"

	"github.com/gaborage/go-netkit/config"
	"github.com/gaborage/go-netkit/internal/tracking"
	"github.com/gaborage/go-netkit/logger"
)

// State describes what the monitor is currently doing.
type State string

const (
	// StateIdle means the network is assumed reachable and no polling is scheduled.
	StateIdle State = "idle"
	// StatePolling means the network was reported lost and recovery polling is active.
	StatePolling State = "polling"
)

// Connectivity event names used for logging and metrics.
const (
	eventLost      = "lost"
	eventRestored  = "restored"
	eventStillDown = "still_down"
)

// ErrMonitorClosed is returned by Start after the monitor has been closed.
var ErrMonitorClosed = errors.New("connectivity: monitor closed")

// Monitor owns the reachability state machine and the handler registries
// for lost, restored and still-down events.
type Monitor struct {
	log      logger.Logger
	prober   Prober
	settings *config.Settings

	// mu protects state, scheduler, job and closed
	mu        sync.Mutex
	state     State
	scheduler gocron.Scheduler // Lazy-initialized on first poll job
	job       gocron.Job
	closed    bool

	// group coalesces concurrent probe requests onto a single probe
	group singleflight.Group

	lost      *HandlerRegistry
	restored  *HandlerRegistry
	stillDown *HandlerRegistry
}

// NewMonitor creates an idle monitor. A nil prober falls back to an
// HTTPProber against the probe endpoint configured in settings, and nil
// settings fall back to defaults.
func NewMonitor(log logger.Logger, prober Prober, settings *config.Settings) *Monitor {
	if settings == nil {
		settings = config.NewSettings(nil)
	}
	if prober == nil {
		prober = NewHTTPProber(settings)
	}
	if log == nil {
		log = logger.New("info", false)
	}

	return &Monitor{
		log:       log,
		prober:    prober,
		settings:  settings,
		state:     StateIdle,
		lost:      NewHandlerRegistry(),
		restored:  NewHandlerRegistry(),
		stillDown: NewHandlerRegistry(),
	}
}

// Settings returns the mutable settings the monitor polls with.
func (m *Monitor) Settings() *config.Settings {
	return m.settings
}

// State returns the current monitor state.
func (m *Monitor) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// OnNetworkLost registers a callback fired when a request failure coincides
// with an unreachable network. It may fire repeatedly while the network is
// down, once per failed request that confirms the outage.
func (m *Monitor) OnNetworkLost(cb Callback) Handle {
	return m.lost.Add(cb)
}

// RemoveNetworkLostHandler unregisters a lost callback. Unknown handles are ignored.
func (m *Monitor) RemoveNetworkLostHandler(h Handle) {
	m.lost.Remove(h)
}

// OnNetworkRestored registers a callback fired once per outage, when a
// recovery poll finds the network reachable again.
func (m *Monitor) OnNetworkRestored(cb Callback) Handle {
	return m.restored.Add(cb)
}

// RemoveNetworkRestoredHandler unregisters a restored callback. Unknown handles are ignored.
func (m *Monitor) RemoveNetworkRestoredHandler(h Handle) {
	m.restored.Remove(h)
}

// OnNetworkStillDown registers a callback fired on every recovery poll that
// finds the network still unreachable.
func (m *Monitor) OnNetworkStillDown(cb Callback) Handle {
	return m.stillDown.Add(cb)
}

// RemoveNetworkStillDownHandler unregisters a still-down callback. Unknown handles are ignored.
func (m *Monitor) RemoveNetworkStillDownHandler(h Handle) {
	m.stillDown.Remove(h)
}

// Start begins recovery polling, or refreshes the poll schedule with the
// current interval bounds when polling is already active. The first poll
// fires one full interval after Start returns; there is never more than one
// polling loop regardless of how often Start is called.
func (m *Monitor) Start() error {
	minInterval, maxInterval := m.settings.PollIntervalBounds()

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrMonitorClosed
	}

	if err := m.ensureSchedulerLocked(); err != nil {
		return err
	}

	definition := pollJobDefinition(minInterval, maxInterval)

	if m.state == StatePolling && m.job != nil {
		job, err := m.scheduler.Update(
			m.job.ID(),
			definition,
			gocron.NewTask(m.poll),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return fmt.Errorf("connectivity: failed to update poll job: %w", err)
		}
		m.job = job
		m.log.Debug().
			Dur("min_interval", minInterval).
			Dur("max_interval", maxInterval).
			Msg("Connectivity poll interval refreshed")
		return nil
	}

	job, err := m.scheduler.NewJob(
		definition,
		gocron.NewTask(m.poll),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("connectivity: failed to schedule poll job: %w", err)
	}
	m.job = job
	m.setStateLocked(StatePolling)

	m.log.Info().
		Dur("min_interval", minInterval).
		Dur("max_interval", maxInterval).
		Msg("Connectivity polling started")

	return nil
}

// ReportFailure probes the network after a failed request. When the probe
// cannot complete, lost handlers are notified and recovery polling begins.
// Reachable outcomes are ignored, so request-level failures against a
// healthy network (HTTP errors, timeouts) never trigger notifications.
func (m *Monitor) ReportFailure(ctx context.Context) {
	if m.check(ctx) {
		return
	}

	m.notify(ctx, eventLost, m.lost)

	if err := m.Start(); err != nil && !errors.Is(err, ErrMonitorClosed) {
		m.log.Error().Err(err).Msg("Failed to start connectivity polling")
	}
}

// CheckNow probes the network immediately, bypassing the poll schedule.
// Concurrent calls share a single probe.
func (m *Monitor) CheckNow(ctx context.Context) bool {
	return m.check(ctx)
}

// Close shuts the scheduler down and releases its resources. The monitor
// must not be reused after Close.
func (m *Monitor) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	scheduler := m.scheduler
	m.scheduler = nil
	m.job = nil
	m.setStateLocked(StateIdle)
	m.mu.Unlock()

	if scheduler == nil {
		return nil
	}
	if err := scheduler.Shutdown(); err != nil {
		return fmt.Errorf("connectivity: shutdown failed: %w", err)
	}
	return nil
}

// poll is the scheduled recovery check. On a reachable probe it stops
// polling, transitions to idle and fires restored handlers exactly once.
// On an unreachable probe it fires still-down handlers and keeps polling.
func (m *Monitor) poll() {
	ctx := context.Background()

	if !m.check(ctx) {
		m.notify(ctx, eventStillDown, m.stillDown)
		return
	}

	m.mu.Lock()
	if m.state != StatePolling {
		m.mu.Unlock()
		return
	}
	m.removePollJobLocked()
	m.setStateLocked(StateIdle)
	m.mu.Unlock()

	m.notify(ctx, eventRestored, m.restored)
}

// check runs the probe, coalescing concurrent callers onto a single probe.
// Probe errors are treated as unreachable.
func (m *Monitor) check(ctx context.Context) bool {
	v, _, _ := m.group.Do("probe", func() (any, error) {
		reachable, err := m.prober.Probe(ctx)
		if err != nil {
			reachable = false
			m.log.Debug().Err(err).Msg("Connectivity probe failed")
		}
		tracking.RecordProbeCheck(ctx, reachable, err)
		return reachable, nil
	})
	reachable, ok := v.(bool)
	return ok && reachable
}

// notify invokes every handler registered for an event, in registration order.
func (m *Monitor) notify(ctx context.Context, event string, reg *HandlerRegistry) {
	callbacks := reg.snapshot()
	for _, cb := range callbacks {
		m.invoke(ctx, event, cb)
	}

	if len(callbacks) > 0 {
		tracking.RecordNotification(ctx, event, len(callbacks))
		m.log.Debug().
			Str("event", event).
			Int("handlers", len(callbacks)).
			Msg("Connectivity handlers notified")
	}
}

// invoke runs a single handler with panic recovery so one failing handler
// cannot stop the remaining handlers from being notified.
func (m *Monitor) invoke(ctx context.Context, event string, cb Callback) {
	defer func() {
		if recovered := recover(); recovered != nil {
			m.log.Error().
				Str("event", event).
				Interface("panic", recovered).
				Str("stack", string(debug.Stack())).
				Msg("Connectivity handler panicked")
		}
	}()
	cb(ctx)
}

// ensureSchedulerLocked creates and starts the gocron scheduler on first use.
// Must be called with m.mu lock held.
func (m *Monitor) ensureSchedulerLocked() error {
	if m.scheduler != nil {
		return nil
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return fmt.Errorf("connectivity: failed to create scheduler: %w", err)
	}

	m.scheduler = s
	m.scheduler.Start()
	return nil
}

// removePollJobLocked removes the active poll job from the scheduler.
// Must be called with m.mu lock held.
func (m *Monitor) removePollJobLocked() {
	if m.scheduler == nil || m.job == nil {
		return
	}
	if err := m.scheduler.RemoveJob(m.job.ID()); err != nil {
		m.log.Warn().Err(err).Msg("Failed to remove connectivity poll job")
	}
	m.job = nil
}

// setStateLocked transitions the state machine and records the transition.
// Must be called with m.mu lock held.
func (m *Monitor) setStateLocked(to State) {
	if m.state == to {
		return
	}
	from := m.state
	m.state = to

	tracking.RecordStateTransition(context.Background(), string(from), string(to))
	m.log.Info().
		Str("from", string(from)).
		Str("to", string(to)).
		Msg("Connectivity state changed")
}

// pollJobDefinition jitters the poll schedule between the interval bounds.
// Equal bounds mean a fixed interval.
func pollJobDefinition(minInterval, maxInterval time.Duration) gocron.JobDefinition {
	if minInterval < maxInterval {
		return gocron.DurationRandomJob(minInterval, maxInterval)
	}
	return gocron.DurationJob(maxInterval)
}
