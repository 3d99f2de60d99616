package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/atomic"
)

// Checker reports the availability of a group of sources and checks as a single health result.
//
// Sources are read from their cached state, so an unreachable dependency behind a monitor cannot slow a
// health request down. Checks run on every request.
type Checker struct {
	// entries holds a *source or a *Check per name.
	entries sync.Map

	httpStatusCodeUp   int
	httpStatusCodeDown int
}

// NewChecker creates a new Checker.
func NewChecker(opts ...CheckerOption) (*Checker, error) {
	c := &Checker{
		httpStatusCodeUp:   http.StatusOK,
		httpStatusCodeDown: http.StatusServiceUnavailable,
	}

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("failed to apply checker option: %w", err)
		}
	}

	return c, nil
}

// httpCodeFromStatus maps the overall status to a response code. A degraded non-critical source does not
// make the service unhealthy.
func (c *Checker) httpCodeFromStatus(status Status) int {
	switch status {
	case StatusUp, StatusDegraded:
		return c.httpStatusCodeUp
	case StatusDown, StatusUnknown:
		return c.httpStatusCodeDown
	default:
		return http.StatusInternalServerError
	}
}

// Handler returns an HTTP handler serving the result of Check as JSON.
func (c *Checker) Handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		result := c.Check(r.Context())
		httpStatus := c.httpCodeFromStatus(result.Status)
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(httpStatus)
		_ = json.NewEncoder(w).Encode(result)
	}
}

// Check builds the current result from every registered source and runs every registered check.
//
// The top level is the worst status of the critical entries. A critical source that has not been probed
// yet makes it unknown unless something is already down. With nothing registered the result is up.
func (c *Checker) Check(ctx context.Context) *Result {
	result := NewResult()
	result.SetStatus(StatusUp)

	var (
		unprobed atomic.Bool
		wg       sync.WaitGroup
	)
	now := timestamp()
	c.entries.Range(func(key, value any) bool {
		switch entry := value.(type) {
		case *source:
			status, detail := entry.result(now)
			switch {
			case status == StatusUnknown && entry.critical:
				unprobed.Store(true)
			case status != StatusUnknown:
				result.SetStatus(status)
			}
			result.addDetail(entry.Name(), detail)
		case *Check:
			wg.Add(1)
			go func() {
				defer wg.Done()

				detail := checkResult(ctx, entry)
				if detail.Status == StatusUnknown {
					unprobed.Store(true)
				} else {
					result.SetStatus(detail.Status)
				}
				result.addDetail(entry.Name(), detail)
			}()
		}
		return true
	})
	wg.Wait()

	if unprobed.Load() && result.Status != StatusDown {
		result.Status = StatusUnknown
	}
	result.SetTimestamp(now)

	return result
}

// checkResult runs the check and reports its state.
func checkResult(ctx context.Context, check *Check) *Result {
	err := check.Check(ctx)
	state := check.State()

	detail := NewResult()
	detail.SetStatus(state.Status())
	detail.SetTimestamp(state.LastCheckTime())
	detail.Details = nil
	if err != nil {
		detail.Error = err.Error()
	}

	failures := state.ContiguousFails()
	detail.ConsecutiveFailures = &failures
	if lastSuccess := state.LastSuccess(); !lastSuccess.IsZero() {
		detail.LastSuccess = &lastSuccess
	}

	return detail
}

// AddSource registers a source. Sources are critical unless WithNonCritical is given.
func (c *Checker) AddSource(src Source, opts ...SourceOption) error {
	if src == nil {
		return errors.New("source is nil")
	}

	if src.Name() == "" {
		return errors.New("source name is empty")
	}

	s := &source{
		Source:   src,
		critical: true,
	}
	for _, opt := range opts {
		opt(s)
	}

	if _, loaded := c.entries.LoadOrStore(src.Name(), s); loaded {
		return fmt.Errorf("source already exists with the same name: %s", src.Name())
	}

	return nil
}

// AddCheck registers a check. Checks are always critical.
func (c *Checker) AddCheck(check *Check) error {
	if check == nil {
		return errors.New("check is nil")
	}

	if check.name == "" {
		return errors.New("check name is empty")
	}

	if check.check == nil {
		return fmt.Errorf("check %s has no check function", check.name)
	}

	if _, loaded := c.entries.LoadOrStore(check.Name(), check); loaded {
		return fmt.Errorf("check already exists with the same name: %s", check.Name())
	}

	return nil
}
