package availabletrade

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// CoreContext returns the base context of every App. It is cancelled on SIGINT or SIGTERM.
//
// Note: This is a variable so that tests, or binaries wanting other signals, can replace it before calling NewApp.
var CoreContext = func() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
