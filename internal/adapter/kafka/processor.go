package kafka

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/lovoo/goka"
)

const readyTimeout = time.Minute

// A gokaRunner is a goka processor or view.
type gokaRunner interface {
	Run(context.Context) error
}

// runGoka blocks until r stops, then calls stopFn. A stop caused by ctx
// is not an error.
func runGoka(
	ctx context.Context, opPrefix string, r gokaRunner, stopFn context.CancelFunc,
) {
	log := slog.With("op", makeOp(opPrefix, "run"))

	defer stopFn()

	err := r.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

// A processor is used for composition.
//
// Running, awaiting and closing the underlying [goka.Processor].
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p processor) run(ctx context.Context, stopFn context.CancelFunc) {
	runGoka(ctx, p.opPrefix, p.gp, stopFn)
}

// waitForReady blocks until the processor recovered its table or
// readyTimeout passed.
func (p processor) waitForReady(ctx context.Context) error {
	const op = "waitForReady"

	ctx, cancel := context.WithTimeout(ctx, readyTimeout)
	defer cancel()

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return opErr(err, p.opPrefix, op)
	}
	return nil
}

func (p processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}
