package degrade

import (
	"context"
	"sync"
)

// Handle controls a started monitor.
type Handle struct {
	cancel context.CancelFunc
	wg     sync.WaitGroup
	done   chan struct{}
}

func newHandle(cancel context.CancelFunc) *Handle {
	return &Handle{
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// Stop stops scheduling probes and waits for in-flight probes to return. Results of probes that
// complete after Stop are discarded. Stop is safe to call more than once.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Done is closed once the monitor has fully stopped, either through Stop or because the context
// passed to Start ended.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
