package health

import "fmt"

// CheckerOption modifies a Checker.
type CheckerOption func(*Checker) error

// WithCheckerSource registers a single source.
func WithCheckerSource(src Source, opts ...SourceOption) CheckerOption {
	return func(c *Checker) error {
		if err := c.AddSource(src, opts...); err != nil {
			return fmt.Errorf("failed to add source: %w", err)
		}

		return nil
	}
}

// WithCheckerCheck registers a single check.
func WithCheckerCheck(check *Check) CheckerOption {
	return func(c *Checker) error {
		if err := c.AddCheck(check); err != nil {
			return fmt.Errorf("failed to add check: %w", err)
		}

		return nil
	}
}

// WithCheckerHTTPCodeUp sets the response code used while the service is healthy.
func WithCheckerHTTPCodeUp(code int) CheckerOption {
	return func(c *Checker) error {
		c.httpStatusCodeUp = code
		return nil
	}
}

// WithCheckerHTTPCodeDown sets the response code used while a critical source is down.
func WithCheckerHTTPCodeDown(code int) CheckerOption {
	return func(c *Checker) error {
		c.httpStatusCodeDown = code
		return nil
	}
}
