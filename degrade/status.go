package degrade

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Status is the externally visible availability of a monitored dependency.
type Status int

const (
	// StatusAvailable means the dependency should be shown as usable.
	StatusAvailable Status = iota

	// StatusDegraded means the dependency failed more than the threshold number of consecutive probes and
	// should be hidden or disabled.
	StatusDegraded
)

func (s Status) IsValid() bool {
	switch s {
	case StatusAvailable, StatusDegraded:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusAvailable:
		return "available"
	case StatusDegraded:
		return "degraded"
	default:
		return "invalid"
	}
}

func (s Status) MarshalJSON() ([]byte, error) {
	if !s.IsValid() {
		return nil, fmt.Errorf("%d is not a valid status", int(s))
	}

	buf := bytes.NewBuffer(nil)
	if err := json.NewEncoder(buf).Encode(s.String()); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("status must be a string: %w", err)
	}

	switch str {
	case "available":
		*s = StatusAvailable
	case "degraded":
		*s = StatusDegraded
	default:
		return fmt.Errorf("unknown status %q", str)
	}
	return nil
}

func statusOf(available bool) Status {
	if available {
		return StatusAvailable
	}
	return StatusDegraded
}
