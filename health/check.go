package health

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CheckFunc checks a dependency on demand. Returning a *StatusError selects the reported status.
type CheckFunc = func(ctx context.Context) error

// Check is a dependency that is checked on every health request.
//
// Unlike a Source, which reports state cached by a background monitor, a Check runs inline, so it should
// only wrap something cheap such as the state of a connection the service already holds.
type Check struct {
	name  string
	check CheckFunc

	// timeout bounds a single run. Zero means no timeout.
	timeout time.Duration

	// errorGracePeriod keeps the check up while it has been failing for less than this long.
	errorGracePeriod time.Duration

	// maxContiguousFails keeps the check up until it has failed this many times in a row.
	maxContiguousFails uint

	statusListener StatusListenerFunc

	mut   sync.Mutex
	state State
}

// NewCheck creates a new Check. Names share a namespace with the sources of the Checker it is added to.
func NewCheck(name string, checkFunc CheckFunc, opts ...CheckOption) *Check {
	c := &Check{
		name:    name,
		check:   checkFunc,
		timeout: 5 * time.Second,
		state:   State{status: StatusUnknown},
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Name returns the name of the check.
func (c *Check) Name() string {
	return c.name
}

// String returns the name of the check.
func (c *Check) String() string {
	return c.name
}

// State returns a copy of the state left by the last run.
func (c *Check) State() State {
	c.mut.Lock()
	defer c.mut.Unlock()

	return c.state
}

// Check runs the check, updates its state and returns the error of the run.
func (c *Check) Check(ctx context.Context) error {
	var (
		checkCtx context.Context
		cancel   context.CancelFunc
	)
	if c.timeout > 0 {
		checkCtx, cancel = context.WithTimeout(ctx, c.timeout)
	} else {
		checkCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	err := c.check(checkCtx)

	c.mut.Lock()
	previous := c.state.status
	now := timestamp()
	c.state.lastCheckTime = now

	if err != nil {
		c.state.contiguousFails++
		c.state.checkErr = err
		c.state.lastFail = now
		if c.state.firstFailInCycle.IsZero() {
			c.state.firstFailInCycle = now
		}
		c.state.status = c.failedStatus(err, now)
	} else {
		c.state.status = StatusUp
		c.state.lastSuccess = now
		c.state.contiguousFails = 0
		c.state.checkErr = nil
		c.state.firstFailInCycle = time.Time{}
	}

	state := c.state
	c.mut.Unlock()

	if c.statusListener != nil && state.status != previous {
		c.statusListener(ctx, c.name, state)
	}

	return err
}

// failedStatus must be called with c.mut held.
func (c *Check) failedStatus(err error, now time.Time) Status {
	statusErr := new(StatusError)
	if errors.As(err, &statusErr) {
		if !statusErr.Status.IsValid() {
			return StatusUnknown
		}
		return statusErr.Status
	}

	switch {
	case c.errorGracePeriod > 0 && now.Sub(c.state.firstFailInCycle) <= c.errorGracePeriod:
		return StatusUp
	case c.maxContiguousFails > 0 && c.state.contiguousFails < c.maxContiguousFails:
		return StatusUp
	default:
		return StatusDown
	}
}
