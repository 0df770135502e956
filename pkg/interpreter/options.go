package interpreter

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/eventbus"
	"github.com/thomasrohde/cobral/pkg/logsink"
)

// Option is a functional option for configuring an Interpreter.
type Option func(*Interpreter)

// WithBus attaches the interpreter to bus instead of a private one.
func WithBus(bus *eventbus.Bus) Option {
	return func(i *Interpreter) {
		i.bus = bus
	}
}

// WithSink sets where flushed output records are written.
func WithSink(sink logsink.Sink) Option {
	return func(i *Interpreter) {
		i.sink = sink
	}
}

// WithContext sets the parent context. Cancelling it cancels the run.
func WithContext(ctx context.Context) Option {
	return func(i *Interpreter) {
		i.parent = ctx
	}
}

// WithLogger sets the logger for state transitions.
func WithLogger(log zerolog.Logger) Option {
	return func(i *Interpreter) {
		i.log = log
	}
}

// WithEvaluatorOptions sets the libraries, import paths and budget used to
// evaluate the program. Its Sink is replaced by the interpreter's batcher.
func WithEvaluatorOptions(opts evaluator.Options) Option {
	return func(i *Interpreter) {
		i.evalOpts = opts
	}
}

// WithShowElapsed appends a "Tempo de execução" record when the run ends.
func WithShowElapsed(show bool) Option {
	return func(i *Interpreter) {
		i.showElapsed = show
	}
}

// WithBatchThreshold sets how many records are buffered before a flush.
func WithBatchThreshold(n int) Option {
	return func(i *Interpreter) {
		i.threshold = n
	}
}

// WithRunID sets the id reported in exec_finished.
func WithRunID(id string) Option {
	return func(i *Interpreter) {
		i.runID = id
	}
}

// WithEnv evaluates the program in env instead of a fresh environment.
// Bindings left by an earlier run stay visible.
func WithEnv(env *evaluator.Env) Option {
	return func(i *Interpreter) {
		i.env = env
	}
}
