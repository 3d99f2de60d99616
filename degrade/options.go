package degrade

import (
	"context"
	"errors"
	"time"
)

const (
	// DefaultInterval is the time between two scheduled probes.
	DefaultInterval = 5 * time.Second

	// DefaultProbeTimeout bounds a single probe.
	DefaultProbeTimeout = time.Second

	// DefaultFailureThreshold is the number of consecutive failures tolerated before the dependency is
	// reported as degraded. The next failure flips availability off.
	DefaultFailureThreshold uint = 5
)

// TransitionListener is called after a probe result changes the status of a monitor.
type TransitionListener = func(ctx context.Context, t Transition)

// MonitorOption configures a Monitor.
type MonitorOption func(*Monitor) error

// WithInterval sets the time between scheduled probes.
func WithInterval(interval time.Duration) MonitorOption {
	return func(m *Monitor) error {
		if interval <= 0 {
			return errors.New("interval must be positive")
		}
		m.interval = interval
		return nil
	}
}

// WithProbeTimeout sets the timeout of a single probe.
func WithProbeTimeout(timeout time.Duration) MonitorOption {
	return func(m *Monitor) error {
		if timeout <= 0 {
			return errors.New("probe timeout must be positive")
		}
		m.probeTimeout = timeout
		return nil
	}
}

// WithFailureThreshold sets how many consecutive failures are tolerated before the dependency is degraded.
func WithFailureThreshold(threshold uint) MonitorOption {
	return func(m *Monitor) error {
		m.failureThreshold = threshold
		return nil
	}
}

// WithOverlappingProbes lets every tick start a probe even when the previous one has not finished.
//
// Results are then applied in completion order, so a slow stale probe can overwrite a newer result.
// Without this option a tick is skipped while a probe is in flight.
func WithOverlappingProbes() MonitorOption {
	return func(m *Monitor) error {
		m.allowOverlap = true
		return nil
	}
}

// WithTransitionListener registers a function called on every status change.
//
// Listeners are called one transition at a time, in the order the transitions happened, and must not
// block for long: the next probe result waits for them.
func WithTransitionListener(listener TransitionListener) MonitorOption {
	return func(m *Monitor) error {
		if listener == nil {
			return errors.New("transition listener is nil")
		}
		m.listeners = append(m.listeners, listener)
		return nil
	}
}

// WithEndpointLabel sets the endpoint reported in logs when the prober does not expose one.
func WithEndpointLabel(endpoint string) MonitorOption {
	return func(m *Monitor) error {
		m.endpoint = endpoint
		return nil
	}
}
