package health

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/engineering-resilient-systems-on-aws/AvailableTrade/logging"
)

// Status is the health of a single monitored dependency or of the service as a whole.
//
// The values are ordered from worst to best so that aggregation can keep the lowest one.
type Status int

const (
	// StatusDown indicates a critical dependency is degraded.
	StatusDown Status = iota

	// StatusDegraded indicates a non-critical dependency is degraded. The service keeps serving, but
	// the features behind that dependency are hidden from users.
	StatusDegraded

	// StatusUp indicates the dependency answered its last probe or is still within its failure threshold.
	StatusUp

	// StatusUnknown indicates the dependency has not been probed yet.
	StatusUnknown
)

func (s Status) IsValid() bool {
	switch s {
	case StatusUp, StatusDown, StatusDegraded, StatusUnknown:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"
	case StatusDown:
		return "down"
	case StatusDegraded:
		return "degraded"
	case StatusUnknown:
		return "unknown"
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

	for _, candidate := range []Status{StatusUp, StatusDown, StatusDegraded, StatusUnknown} {
		if candidate.String() == str {
			*s = candidate
			return nil
		}
	}
	return fmt.Errorf("unknown status %q", str)
}

// StatusListenerFunc is called after the status of a Check changes.
type StatusListenerFunc = func(ctx context.Context, name string, state State)

// StandardStatusListener logs every status change of a Check.
func StandardStatusListener(l *slog.Logger) StatusListenerFunc {
	return func(_ context.Context, name string, state State) {
		attrs := []any{
			slog.String(logging.KeyName, name),
			slog.String(logging.KeyStatus, state.Status().String()),
		}
		if err := state.CheckErr(); err != nil {
			attrs = append(attrs, slog.String(logging.KeyError, err.Error()))
		}
		l.Info("health check status changed", attrs...)
	}
}
