package health

import (
	"time"
)

// CheckOption modifies a Check.
type CheckOption = func(*Check)

// WithCheckTimeout sets the timeout of a single run.
func WithCheckTimeout(timeout time.Duration) CheckOption {
	return func(c *Check) {
		c.timeout = timeout
	}
}

// WithNoCheckTimeout disables the timeout.
func WithNoCheckTimeout() CheckOption {
	return WithCheckTimeout(0)
}

// WithCheckErrorGracePeriod keeps a failing check up until it has been failing for longer than the period.
func WithCheckErrorGracePeriod(errorGracePeriod time.Duration) CheckOption {
	return func(c *Check) {
		c.errorGracePeriod = errorGracePeriod
	}
}

// WithCheckMaxFailures keeps a failing check up until it has failed maxContiguousFails times in a row.
func WithCheckMaxFailures(maxContiguousFails uint) CheckOption {
	return func(c *Check) {
		c.maxContiguousFails = maxContiguousFails
	}
}

// WithCheckOnStatusChange sets a listener called after every change of status.
func WithCheckOnStatusChange(statusListener StatusListenerFunc) CheckOption {
	return func(c *Check) {
		c.statusListener = statusListener
	}
}
