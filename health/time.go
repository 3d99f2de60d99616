package health

import "time"

// timestamp returns the current UTC time. Tests replace it to pin the clock.
var timestamp = func() time.Time {
	return time.Now().UTC()
}
