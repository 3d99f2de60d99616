package health

import (
	"time"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/degrade"
)

// Ensure the availability monitor can be reported on directly.
var _ Source = new(degrade.Monitor)

// Source is anything that exposes an availability state, typically a *degrade.Monitor.
type Source interface {
	// Name is the key the source is reported under.
	Name() string

	// State returns the current availability state.
	State() degrade.State
}

// source is a registered Source plus how its degradation is reported.
type source struct {
	Source

	// critical sources report StatusDown instead of StatusDegraded when they degrade.
	critical bool
}

// status maps the source state to a health status.
func (s *source) status() (Status, degrade.State) {
	state := s.State()

	switch {
	case state.Probes == 0:
		return StatusUnknown, state
	case state.Available:
		return StatusUp, state
	case s.critical:
		return StatusDown, state
	default:
		return StatusDegraded, state
	}
}

// result reports the source state as a health result taken at now.
func (s *source) result(now time.Time) (Status, *Result) {
	status, state := s.status()

	detail := NewResult()
	detail.SetStatus(status)
	detail.SetTimestamp(now)
	detail.Details = nil
	detail.Error = state.LastError

	failures := state.ConsecutiveFailures
	detail.ConsecutiveFailures = &failures
	if !state.LastSuccess.IsZero() {
		lastSuccess := state.LastSuccess
		detail.LastSuccess = &lastSuccess
	}

	return status, detail
}

// SourceOption configures how a source is reported.
type SourceOption func(*source)

// WithNonCritical reports the source as degraded rather than down when it is unavailable, so the
// health endpoint keeps answering with the up status code.
func WithNonCritical() SourceOption {
	return func(s *source) {
		s.critical = false
	}
}
