package health

import "time"

// State is the outcome of the runs of a Check so far.
type State struct {
	lastCheckTime time.Time
	lastSuccess   time.Time
	lastFail      time.Time

	// firstFailInCycle is the first failure since the last success.
	firstFailInCycle time.Time

	contiguousFails uint
	checkErr        error
	status          Status
}

func (s State) CheckErr() error {
	return s.checkErr
}

func (s State) ContiguousFails() uint {
	return s.contiguousFails
}

func (s State) LastFail() time.Time {
	return s.lastFail
}

func (s State) LastSuccess() time.Time {
	return s.lastSuccess
}

func (s State) LastCheckTime() time.Time {
	return s.lastCheckTime
}

func (s State) Status() Status {
	return s.status
}
