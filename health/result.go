package health

import (
	"sync"
	"time"
)

// Result is the outcome of a health check, either for the whole service or for one source.
type Result struct {
	mtx *sync.RWMutex

	// Status is the worst status of the result and all of its details.
	Status Status `json:"status"`

	// Timestamp is when the result was produced.
	Timestamp *time.Time `json:"timestamp,omitempty"`

	// Details holds per-source results, keyed by source name.
	Details map[string]*Result `json:"details,omitempty"`

	// ConsecutiveFailures is the failure counter of the source.
	ConsecutiveFailures *uint `json:"consecutive_failures,omitempty"`

	// LastSuccess is the time of the last successful probe of the source.
	LastSuccess *time.Time `json:"last_success,omitempty"`

	// Error holds the last probe failure of the source.
	Error string `json:"error,omitempty"`
}

// NewResult creates an empty result with status unknown.
func NewResult() *Result {
	return &Result{
		mtx:     new(sync.RWMutex),
		Status:  StatusUnknown,
		Details: make(map[string]*Result),
	}
}

// SetTimestamp sets the timestamp of the result.
func (r *Result) SetTimestamp(t time.Time) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.Timestamp == nil {
		r.Timestamp = new(time.Time)
	}

	*r.Timestamp = t
}

// SetStatus lowers the status of the result if the given status is worse.
func (r *Result) SetStatus(status Status) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if status < r.Status {
		r.Status = status
	}
}

// addDetail stores the result of one source.
func (r *Result) addDetail(name string, result *Result) {
	r.mtx.Lock()
	defer r.mtx.Unlock()

	if r.Details == nil {
		r.Details = make(map[string]*Result)
	}

	r.Details[name] = result
}
