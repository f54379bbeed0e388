// Package sigctx binds process lifetime to termination signals.
package sigctx

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"
)

var signals = []os.Signal{syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}

// NotifyContext is done on the first termination signal.
func NotifyContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), signals...)
}

// ShutdownContext bounds a graceful shutdown by timeout. A repeated
// termination signal ends it at once.
func ShutdownContext(timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx, cancelTimeout := context.WithTimeout(context.Background(), timeout)
	ctx, stop := signal.NotifyContext(ctx, signals...)
	return ctx, func() {
		stop()
		cancelTimeout()
	}
}
