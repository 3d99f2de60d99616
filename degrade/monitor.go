package degrade

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
)

// Monitor estimates whether a remote dependency is reachable by probing it on a fixed interval.
//
// The availability flag starts out true. A successful probe always sets it to true and resets the
// failure counter. A failed probe increments the counter, and only once the counter exceeds the failure
// threshold is the flag cleared. Probe errors never leave the monitor; they are logged and counted.
type Monitor struct {
	l *slog.Logger

	name     string
	endpoint string
	prober   Prober

	interval         time.Duration
	probeTimeout     time.Duration
	failureThreshold uint
	allowOverlap     bool
	listeners        []TransitionListener

	// available is published separately from state so readers never take the lock.
	available *atomic.Bool

	// inFlight is set while a scheduled probe runs and overlapping probes are disabled.
	inFlight *atomic.Bool

	// running is set between Start and the monitor fully stopping.
	running *atomic.Bool

	// dispatchMut is held from applying a result until its listeners return, so listeners see
	// transitions in the order they were applied. Acquired before mut.
	dispatchMut sync.Mutex

	mut   sync.Mutex
	state State
}

// NewMonitor creates a monitor named name that probes with the given prober.
func NewMonitor(l *slog.Logger, name string, prober Prober, opts ...MonitorOption) (*Monitor, error) {
	switch {
	case l == nil:
		return nil, ErrNilLogger
	case prober == nil:
		return nil, ErrNilProber
	case name == "":
		return nil, errors.New("monitor name is empty")
	}

	m := &Monitor{
		name:             name,
		prober:           prober,
		interval:         DefaultInterval,
		probeTimeout:     DefaultProbeTimeout,
		failureThreshold: DefaultFailureThreshold,
		available:        atomic.NewBool(true),
		inFlight:         atomic.NewBool(false),
		running:          atomic.NewBool(false),
		state:            newState(name),
	}

	if e, ok := prober.(endpointer); ok {
		m.endpoint = e.Endpoint()
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("failed to apply monitor option: %w", err)
		}
	}

	m.l = logging.LoggerWithMonitor(l, name, m.endpoint)

	metricMonitorAvailable.WithLabelValues(name).Set(1)
	metricMonitorConsecutiveFailures.WithLabelValues(name).Set(0)

	return m, nil
}

// Name returns the name of the monitor.
func (m *Monitor) Name() string {
	return m.name
}

// Endpoint returns the probed endpoint, if known.
func (m *Monitor) Endpoint() string {
	return m.endpoint
}

// IsAvailable returns the cached availability flag. It never blocks and never probes.
func (m *Monitor) IsAvailable() bool {
	return m.available.Load()
}

// State returns a copy of the current state.
func (m *Monitor) State() State {
	m.mut.Lock()
	defer m.mut.Unlock()
	return m.state
}

// Start probes once, applies the result, and then schedules a probe every interval until the returned
// handle is stopped or ctx ends.
//
// The first probe runs before Start returns, so the first read of IsAvailable reflects a real probe.
func (m *Monitor) Start(ctx context.Context) (*Handle, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	if !m.running.CompareAndSwap(false, true) {
		return nil, ErrAlreadyStarted
	}

	runCtx, cancel := context.WithCancel(ctx)
	h := newHandle(cancel)

	m.l.Info("starting availability monitor",
		slog.Duration("interval", m.interval),
		slog.Duration("timeout", m.probeTimeout),
		slog.Uint64("failure_threshold", uint64(m.failureThreshold)),
		slog.Bool("allow_overlap", m.allowOverlap),
	)

	m.probe(runCtx)

	h.wg.Add(1)
	go m.run(runCtx, h)

	go func() {
		h.wg.Wait()
		m.running.Store(false)
		m.l.Info("availability monitor stopped")
		close(h.done)
	}()

	return h, nil
}

// run fires a probe on every tick until ctx ends.
func (m *Monitor) run(ctx context.Context, h *Handle) {
	defer h.wg.Done()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.tick(ctx, h)
		}
	}
}

// tick starts one scheduled probe, or skips it when the previous probe is still running and overlap is
// not allowed.
func (m *Monitor) tick(ctx context.Context, h *Handle) {
	if !m.allowOverlap && !m.inFlight.CompareAndSwap(false, true) {
		metricMonitorSkippedTicks.WithLabelValues(m.name).Inc()
		m.l.Debug("skipping probe, previous probe still in flight")
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()
		if !m.allowOverlap {
			defer m.inFlight.Store(false)
		}

		m.probe(ctx)
	}()
}

// probe runs the prober under the probe timeout and applies the result, unless the monitor was stopped
// while the probe was running.
func (m *Monitor) probe(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, m.probeTimeout)
	defer cancel()

	start := time.Now()
	err := m.prober.Probe(probeCtx)
	metricMonitorProbeDuration.WithLabelValues(m.name).Observe(time.Since(start).Seconds())

	if ctx.Err() != nil {
		m.l.Debug("discarding probe result, monitor stopped")
		return
	}

	m.record(ctx, err)
}

// record applies one probe outcome to the state and notifies listeners when the status changes.
func (m *Monitor) record(ctx context.Context, err error) {
	// failure stays a nil interface on success; a typed nil *ProbeFailure would count as a failure.
	var failure error
	result := probeResultSuccess
	if pf := asProbeFailure(m.endpoint, err); pf != nil {
		failure = pf
		result = probeResultFailure
	}
	metricMonitorProbesTotal.WithLabelValues(m.name, result).Inc()

	m.dispatchMut.Lock()
	defer m.dispatchMut.Unlock()

	now := timestamp()

	m.mut.Lock()
	from := m.state.Status
	m.state.apply(failure, now, m.failureThreshold)
	m.available.Store(m.state.Available)
	state := m.state
	m.mut.Unlock()

	metricMonitorAvailable.WithLabelValues(m.name).Set(boolToFloat(state.Available))
	metricMonitorConsecutiveFailures.WithLabelValues(m.name).Set(float64(state.ConsecutiveFailures))

	if failure != nil {
		m.l.Warn("availability probe failed",
			slog.Any(logging.KeyError, failure),
			slog.Uint64(logging.KeyConsecutiveFailures, uint64(state.ConsecutiveFailures)),
			slog.Bool(logging.KeyAvailable, state.Available),
		)
	}

	if from == state.Status {
		return
	}

	metricMonitorTransitions.WithLabelValues(m.name, state.Status.String()).Inc()
	m.l.Info("availability changed",
		slog.String("from", from.String()),
		slog.String(logging.KeyStatus, state.Status.String()),
		slog.Uint64(logging.KeyConsecutiveFailures, uint64(state.ConsecutiveFailures)),
	)

	t := Transition{
		Name:  m.name,
		From:  from,
		To:    state.Status,
		State: state,
		At:    now,
	}
	for _, listener := range m.listeners {
		listener(ctx, t)
	}
}
