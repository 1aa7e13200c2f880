// Package core hosts the contract: it serializes operations, pins block time,
// stages state changes and publishes events once they are committed.
package core

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"quarkdapp/core/dispatch"
	"quarkdapp/core/events"
	"quarkdapp/core/genesis"
	"quarkdapp/core/state"
	"quarkdapp/core/witness"
	"quarkdapp/native/dapp"
	"quarkdapp/observability"
)

// Executor is the single writer of contract state. Operations run one at a
// time; each runs inside its own state transaction which is committed only
// when the operation succeeds and mutates state.
type Executor struct {
	mu     chanMutex
	state  *state.Manager
	engine *dapp.Engine
	shell  *dispatch.Shell
	clock  *BlockClock
	sink   events.Emitter
	logger *slog.Logger
}

// Option customises an Executor.
type Option func(*Executor)

// WithClock overrides the block clock.
func WithClock(clock *BlockClock) Option {
	return func(x *Executor) {
		if clock != nil {
			x.clock = clock
		}
	}
}

// WithSink sets the emitter receiving committed events.
func WithSink(sink events.Emitter) Option {
	return func(x *Executor) {
		if sink != nil {
			x.sink = sink
		}
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// NewExecutor wires engine to the state manager.
func NewExecutor(mgr *state.Manager, engine *dapp.Engine, opts ...Option) *Executor {
	x := &Executor{
		mu:     newChanMutex(),
		state:  mgr,
		engine: engine,
		clock:  NewBlockClock(nil),
		sink:   events.NoopEmitter{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(x)
	}
	x.shell = dispatch.NewShell(engine, x.logger)
	return x
}

// ApplyGenesis credits the initial allocation on first start. Later calls are
// no-ops.
func (x *Executor) ApplyGenesis(ctx context.Context, alloc map[[20]byte]*big.Int) error {
	if err := x.mu.Lock(ctx); err != nil {
		return err
	}
	defer x.mu.Unlock()

	tx := x.state.Begin()
	applied, err := tx.GenesisApplied()
	if err != nil {
		tx.Discard()
		return err
	}
	if applied {
		tx.Discard()
		return nil
	}
	if err := tx.ApplyGenesis(alloc); err != nil {
		tx.Discard()
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	x.logger.Info("genesis applied",
		slog.Int("accounts", len(alloc)),
		slog.String("total", genesis.Total(alloc).String()))
	return nil
}

// Execute runs call authorized by signers. Cancellation is honoured until the
// operation starts; once started it runs to completion.
func (x *Executor) Execute(ctx context.Context, call dispatch.Call, signers witness.Witness) (res dispatch.Result) {
	if err := ctx.Err(); err != nil {
		return dispatch.Failure(err)
	}
	if err := x.mu.Lock(ctx); err != nil {
		return dispatch.Failure(err)
	}
	defer x.mu.Unlock()

	start := time.Now()
	now := x.clock.Now()
	tx := x.state.Begin()
	buf := &events.Buffer{}

	x.engine.SetState(tx)
	x.engine.SetNowFunc(func() int64 { return now })
	x.engine.SetWitness(signers)
	x.engine.SetEmitter(buf)
	defer func() {
		x.engine.SetWitness(witness.None)
		x.engine.SetEmitter(nil)
	}()
	defer func() {
		if r := recover(); r != nil {
			tx.Discard()
			x.logger.Error("operation panicked", slog.String("operation", call.Op.String()), slog.Any("panic", r))
			res = dispatch.Failure(fmt.Errorf("core: operation %s panicked: %v", call.Op, r))
			observability.Contract().RecordCommit("discarded")
			observability.Contract().ObserveOperation(call.Op.String(), "panic", time.Since(start))
		}
	}()

	res = x.shell.Execute(ctx, call)
	outcome := "success"
	switch {
	case !res.OK():
		outcome = "rejected"
		tx.Discard()
		observability.Contract().RecordCommit("discarded")
	case !call.Op.Mutating():
		tx.Discard()
	default:
		if err := tx.Commit(); err != nil {
			outcome = "commit_failed"
			x.logger.Error("state commit failed", slog.String("operation", call.Op.String()), slog.Any("error", err))
			observability.Contract().RecordCommit("failed")
			res = dispatch.Failure(err)
			break
		}
		observability.Contract().RecordCommit("committed")
		x.publish(buf)
		x.logger.Debug("operation committed",
			slog.String("operation", call.Op.String()),
			slog.Int64("block_time", now))
	}
	observability.Contract().ObserveOperation(call.Op.String(), outcome, time.Since(start))
	return res
}

// publish forwards committed events to the sink in emission order.
func (x *Executor) publish(buf *events.Buffer) {
	counted := countingEmitter{next: x.sink}
	buf.Flush(counted)
}

type countingEmitter struct {
	next events.Emitter
}

func (c countingEmitter) Emit(evt events.Event) {
	observability.Events().RecordEmitted(evt.EventType())
	c.next.Emit(evt)
}

// chanMutex is a mutex whose Lock can be abandoned through a context.
type chanMutex chan struct{}

func newChanMutex() chanMutex { return make(chanMutex, 1) }

func (m chanMutex) Lock(ctx context.Context) error {
	select {
	case m <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m chanMutex) Unlock() { <-m }
