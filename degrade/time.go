package degrade

import "time"

// timestamp returns the current UTC time. It is a variable so tests can pin the clock.
var timestamp = func() time.Time {
	return time.Now().UTC()
}
