package degrade

import (
	"errors"
	"fmt"
)

var (
	// ErrProbeFailure matches every ProbeFailure with errors.Is.
	ErrProbeFailure = errors.New("probe failed")

	// ErrNilLogger is returned when a monitor is created without a logger.
	ErrNilLogger = errors.New("logger is nil")

	// ErrNilProber is returned when a monitor is created without a prober.
	ErrNilProber = errors.New("prober is nil")

	// ErrAlreadyStarted is returned when Start is called on a running monitor.
	ErrAlreadyStarted = errors.New("monitor already started")
)

// ProbeFailure is the single error kind a probe produces.
//
// Network errors, timeouts and non-success responses are all reported as a ProbeFailure. The monitor does
// not distinguish between them; the fields exist for diagnostics only.
type ProbeFailure struct {
	// Endpoint is the URL that was probed.
	Endpoint string

	// StatusCode is the HTTP status returned by the endpoint, or 0 if no response was received.
	StatusCode int

	// Cause is the underlying error, if any.
	Cause error
}

// NewProbeFailure creates a ProbeFailure for the endpoint.
func NewProbeFailure(endpoint string, statusCode int, cause error) *ProbeFailure {
	return &ProbeFailure{
		Endpoint:   endpoint,
		StatusCode: statusCode,
		Cause:      cause,
	}
}

func (e *ProbeFailure) Error() string {
	switch {
	case e.Cause != nil && e.StatusCode != 0:
		return fmt.Sprintf("probe %s failed with status %d: %v", e.Endpoint, e.StatusCode, e.Cause)
	case e.Cause != nil:
		return fmt.Sprintf("probe %s failed: %v", e.Endpoint, e.Cause)
	case e.StatusCode != 0:
		return fmt.Sprintf("probe %s failed with status %d", e.Endpoint, e.StatusCode)
	default:
		return fmt.Sprintf("probe %s failed", e.Endpoint)
	}
}

func (e *ProbeFailure) Unwrap() error {
	return e.Cause
}

func (e *ProbeFailure) Is(target error) bool {
	return target == ErrProbeFailure
}

// asProbeFailure converts any error returned by a prober into a ProbeFailure.
func asProbeFailure(endpoint string, err error) *ProbeFailure {
	if err == nil {
		return nil
	}

	pf := new(ProbeFailure)
	if errors.As(err, &pf) {
		return pf
	}

	return NewProbeFailure(endpoint, 0, err)
}
