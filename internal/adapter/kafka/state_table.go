package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/lovoo/goka"
	"github.com/lovoo/goka/codec"
	"github.com/niksmo/product-explorer/internal/core/port"
)

var _ port.StateTable = (*StateTable)(nil)

const viewRecoverPoll = 100 * time.Millisecond

type stateOp byte

const (
	stateSet stateOp = iota + 1
	stateDelete
)

// A stateCommand is a change of one key in the state table.
type stateCommand struct {
	op    stateOp
	value []byte
}

// A stateCommandCodec used for serde [stateCommand]. The first byte is
// the operation, the rest is the value.
type stateCommandCodec struct{}

func (stateCommandCodec) Encode(v any) ([]byte, error) {
	const op = "stateCommandCodec.Encode"
	cmd, ok := v.(stateCommand)
	if !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return append([]byte{byte(cmd.op)}, cmd.value...), nil
}

func (stateCommandCodec) Decode(data []byte) (any, error) {
	const op = "stateCommandCodec.Decode"
	if len(data) == 0 {
		return nil, opErr(errors.New("empty command"), op)
	}
	cmd := stateCommand{op: stateOp(data[0]), value: slices.Clone(data[1:])}
	switch cmd.op {
	case stateSet, stateDelete:
		return cmd, nil
	default:
		return nil, opErr(fmt.Errorf("unknown operation %d", cmd.op), op)
	}
}

// StateTableConfig used for setup [StateTable].
type StateTableConfig struct {
	Brokers Brokers
	// Stream is the topic state changes are emitted to.
	Stream string
	// Group names the processor group, its table topic is "<Group>-table".
	Group string
}

// A StateTable is a [port.KeyValueStore] over a goka group table.
//
// Writes are emitted to the stream and persisted by the processor, reads
// are served by a view of the table. A write is visible to reads once the
// processor handled it.
type StateTable struct {
	opPrefix string
	emitter  *goka.Emitter
	proc     processor
	view     *goka.View
}

func NewStateTable(cfg StateTableConfig) (*StateTable, error) {
	cfg.Brokers.gokaConfig()
	return newStateTable(cfg, nil, nil, nil)
}

func newStateTable(
	cfg StateTableConfig,
	emitterOpts []goka.EmitterOption,
	procOpts []goka.ProcessorOption,
	viewOpts []goka.ViewOption,
) (*StateTable, error) {
	const op = "NewStateTable"

	if cfg.Stream == "" || cfg.Group == "" {
		panic(opErr(errors.New("stream and group are required"), op)) // develop mistake
	}

	t := &StateTable{opPrefix: "StateTable"}

	stream := goka.Stream(cfg.Stream)
	group := goka.Group(cfg.Group)

	emitter, err := goka.NewEmitter(
		cfg.Brokers.Seeds, stream, stateCommandCodec{}, emitterOpts...,
	)
	if err != nil {
		return nil, opErr(err, op)
	}

	gg := goka.DefineGroup(group,
		goka.Input(stream, stateCommandCodec{}, t.processFn),
		goka.Persist(new(codec.Bytes)),
	)
	gp, err := goka.NewProcessor(
		cfg.Brokers.Seeds, gg, append([]goka.ProcessorOption{withNonlogProcOpt()}, procOpts...)...,
	)
	if err != nil {
		_ = emitter.Finish()
		return nil, opErr(err, op)
	}

	view, err := goka.NewView(
		cfg.Brokers.Seeds, goka.GroupTable(group), new(codec.Bytes), viewOpts...,
	)
	if err != nil {
		_ = emitter.Finish()
		return nil, opErr(err, op)
	}

	t.emitter = emitter
	t.proc = processor{opPrefix: "StateTableProcessor", gp: gp}
	t.view = view
	return t, nil
}

// Run starts the processor and the view and returns once both are ready
// or ctx is done. stopFn is called when either stops.
func (t *StateTable) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "Run"
	log := slog.With("op", makeOp(t.opPrefix, op))

	defer wg.Done()

	go t.proc.run(ctx, stopFn)
	go runGoka(ctx, "StateTableView", t.view, stopFn)

	log.Info("preparing...")
	if err := t.proc.waitForReady(ctx); err != nil {
		log.Error("fall down while preparing", "err", err)
		return
	}
	t.waitForRecovered(ctx)
	log.Info("running")
}

func (t *StateTable) waitForRecovered(ctx context.Context) {
	ticker := time.NewTicker(viewRecoverPoll)
	defer ticker.Stop()
	for !t.view.Recovered() {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (t *StateTable) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const op = "Get"

	if err := ctx.Err(); err != nil {
		return nil, false, opErr(err, t.opPrefix, op)
	}

	v, err := t.view.Get(key)
	if err != nil {
		return nil, false, opErr(err, t.opPrefix, op)
	}
	if v == nil {
		return nil, false, nil
	}

	b, ok := v.([]byte)
	if !ok {
		return nil, false, opErr(ErrInvalidValueType, t.opPrefix, op)
	}
	return b, true, nil
}

func (t *StateTable) Set(ctx context.Context, key string, value []byte) error {
	const op = "Set"
	return t.emit(ctx, key, stateCommand{op: stateSet, value: value}, op)
}

func (t *StateTable) Delete(ctx context.Context, key string) error {
	const op = "Delete"
	return t.emit(ctx, key, stateCommand{op: stateDelete}, op)
}

func (t *StateTable) emit(
	ctx context.Context, key string, cmd stateCommand, op string,
) error {
	if err := ctx.Err(); err != nil {
		return opErr(err, t.opPrefix, op)
	}
	if err := t.emitter.EmitSync(key, cmd); err != nil {
		return opErr(err, t.opPrefix, op)
	}
	return nil
}

func (t *StateTable) processFn(ctx goka.Context, msg any) {
	const op = "processFn"
	log := slog.With("op", makeOp(t.opPrefix, op), "key", ctx.Key())

	cmd, ok := msg.(stateCommand)
	if !ok {
		log.Error("unexpected message", "type", fmt.Sprintf("%T", msg))
		return
	}

	switch cmd.op {
	case stateSet:
		ctx.SetValue(cmd.value)
	case stateDelete:
		ctx.Delete()
	}
	log.Debug("state changed", "command", cmd.op)
}

func (t *StateTable) Close() {
	const op = "Close"
	log := slog.With("op", makeOp(t.opPrefix, op))

	log.Info("closing emitter...")
	if err := t.emitter.Finish(); err != nil {
		log.Error("failed to finish emitter", "err", err)
	} else {
		log.Info("emitter is closed")
	}
	t.proc.close()
}
