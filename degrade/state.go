package degrade

import "time"

// State is a point-in-time copy of a monitor's availability state.
type State struct {
	// Name is the name of the monitor.
	Name string `json:"name"`

	// Available is the cached availability flag. It starts out true.
	Available bool `json:"available"`

	// Status mirrors Available as a named status.
	Status Status `json:"status"`

	// ConsecutiveFailures counts failed probes since the last success. It is capped at threshold+1.
	ConsecutiveFailures uint `json:"consecutive_failures"`

	// Probes is the number of probe results applied so far.
	Probes uint64 `json:"probes"`

	// LastCheck is when the last probe result was applied.
	LastCheck time.Time `json:"last_check,omitzero"`

	// LastSuccess is when the last successful probe result was applied.
	LastSuccess time.Time `json:"last_success,omitzero"`

	// LastFailure is when the last failed probe result was applied.
	LastFailure time.Time `json:"last_failure,omitzero"`

	// LastError is the message of the last probe failure. It is cleared on success.
	LastError string `json:"last_error,omitempty"`
}

// newState returns the optimistic initial state.
func newState(name string) State {
	return State{
		Name:      name,
		Available: true,
		Status:    StatusAvailable,
	}
}

// apply folds a single probe outcome into the state. A nil failure is a success.
//
// Success always restores availability. A failure only clears it once the counter exceeds the threshold.
func (s *State) apply(failure error, now time.Time, threshold uint) {
	s.Probes++
	s.LastCheck = now

	if failure == nil {
		s.ConsecutiveFailures = 0
		s.Available = true
		s.LastSuccess = now
		s.LastError = ""
		s.Status = StatusAvailable
		return
	}

	if s.ConsecutiveFailures <= threshold {
		s.ConsecutiveFailures++
	}
	s.LastFailure = now
	s.LastError = failure.Error()

	if s.ConsecutiveFailures > threshold {
		s.Available = false
	}
	s.Status = statusOf(s.Available)
}

// Transition describes a change of status observed by a monitor.
type Transition struct {
	// Name is the name of the monitor.
	Name string `json:"name"`

	// From is the status before the probe result was applied.
	From Status `json:"from"`

	// To is the status after the probe result was applied.
	To Status `json:"to"`

	// State is the state after the probe result was applied.
	State State `json:"state"`

	// At is when the transition happened.
	At time.Time `json:"at"`
}
