// Package runtime provides the top-level Cobral runtime orchestrator.
package runtime

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/config"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/eventbus"
	"github.com/thomasrohde/cobral/pkg/formatter"
	"github.com/thomasrohde/cobral/pkg/interpreter"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/parser"
	"github.com/thomasrohde/cobral/pkg/stdlib"
	"github.com/thomasrohde/cobral/pkg/validator"
)

// InputFunc answers a ler request. Returning an error cancels the run.
type InputFunc func(ctx context.Context, prompt string) (string, error)

// StepFunc is called before each top-level statement when stepping, with
// the statement and the number of statements left including it. Returning
// an error cancels the run.
type StepFunc func(ctx context.Context, stmt ast.Stmt, remaining int) error

// Result holds the outcome of a program execution.
type Result struct {
	State     interpreter.State
	Cancelled bool
	Elapsed   time.Duration
	// Env is the program's environment after the run.
	Env *evaluator.Env
}

// Runtime wires together all Cobral components for program execution.
type Runtime struct {
	stdlib *stdlib.Registry
	config *config.Config
	bus    *eventbus.Bus
	sink   logsink.Sink
	log    zerolog.Logger
	runID  string
	step   StepFunc
}

// Option is a functional option for configuring the Runtime.
type Option func(*Runtime)

// WithStdlib sets the library registry.
func WithStdlib(r *stdlib.Registry) Option {
	return func(rt *Runtime) {
		rt.stdlib = r
	}
}

// WithConfig sets the run settings.
func WithConfig(cfg *config.Config) Option {
	return func(rt *Runtime) {
		rt.config = cfg
	}
}

// WithBus attaches runs to bus. By default each run gets its own bus.
func WithBus(bus *eventbus.Bus) Option {
	return func(rt *Runtime) {
		rt.bus = bus
	}
}

// WithSink sets where program output is written.
func WithSink(sink logsink.Sink) Option {
	return func(rt *Runtime) {
		rt.sink = sink
	}
}

// WithLogger sets the logger for interpreter state transitions.
func WithLogger(log zerolog.Logger) Option {
	return func(rt *Runtime) {
		rt.log = log
	}
}

// WithRunID sets the run ID reported in exec_finished.
func WithRunID(id string) Option {
	return func(rt *Runtime) {
		rt.runID = id
	}
}

// WithStepper runs programs one top-level statement at a time, calling fn
// before each.
func WithStepper(fn StepFunc) Option {
	return func(rt *Runtime) {
		rt.step = fn
	}
}

// New creates a new Runtime with the given options.
// By default the builtin libraries are registered and output is discarded.
func New(opts ...Option) *Runtime {
	rt := &Runtime{
		stdlib: stdlib.Default(),
		config: config.Default(),
		sink:   logsink.Discard,
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(rt)
	}
	return rt
}

// Parse parses a program with the runtime's libraries and import paths.
func (rt *Runtime) Parse(source, filename string) (*ast.Program, error) {
	program, diags := parser.Parse(source, filename, rt.parserOptions(filename)...)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}
	return program, nil
}

// Start parses source and returns an interpreter ready to run it. The
// caller drives it and must Close it.
func (rt *Runtime) Start(ctx context.Context, source, filename string) (*interpreter.Interpreter, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return nil, err
	}

	return rt.interpreter(ctx, program, filename), nil
}

func (rt *Runtime) interpreter(ctx context.Context, program *ast.Program, filename string, extra ...interpreter.Option) *interpreter.Interpreter {
	opts := []interpreter.Option{
		interpreter.WithContext(ctx),
		interpreter.WithSink(rt.sink),
		interpreter.WithLogger(rt.log),
		interpreter.WithEvaluatorOptions(rt.evaluatorOptions(filename)),
		interpreter.WithShowElapsed(rt.config.ShowElapsed),
		interpreter.WithBatchThreshold(rt.config.LogBatchThreshold),
	}
	if rt.bus != nil {
		opts = append(opts, interpreter.WithBus(rt.bus))
	}
	if rt.runID != "" {
		opts = append(opts, interpreter.WithRunID(rt.runID))
	}
	return interpreter.New(program, append(opts, extra...)...)
}

// Run parses and executes a Cobral program, answering input requests with
// input. A nil input cancels the run at its first ler. The returned error
// is a *DiagnosticError for parse failures, the run's error when it ends
// in StateError, or the error returned by input.
func (rt *Runtime) Run(ctx context.Context, source, filename string, input InputFunc) (*Result, error) {
	interp, err := rt.Start(ctx, source, filename)
	if err != nil {
		return nil, err
	}
	defer interp.Close()
	return drive(ctx, interp, input, rt.step)
}

// drive runs interp to the end, answering its input requests with input.
// With a non-nil step it advances one statement at a time.
func drive(ctx context.Context, interp *interpreter.Interpreter, input InputFunc, step StepFunc) (*Result, error) {
	var stopErr error
	if step == nil {
		state, _ := interp.Run()
		for state == interpreter.StateWaiting {
			if stopErr = answer(ctx, interp, input); stopErr != nil {
				break
			}
			state, _ = interp.Run()
		}
	} else {
		stopErr = stepThrough(ctx, interp, input, step)
	}

	state := interp.State()
	result := &Result{
		State:     state,
		Cancelled: interp.Cancelled(),
		Elapsed:   interp.Elapsed(),
		Env:       interp.Env(),
	}
	if stopErr != nil {
		return result, stopErr
	}
	if state == interpreter.StateError {
		return result, interp.Err()
	}
	return result, nil
}

func stepThrough(ctx context.Context, interp *interpreter.Interpreter, input InputFunc, step StepFunc) error {
	for {
		switch interp.State() {
		case interpreter.StateWaiting:
			if err := answer(ctx, interp, input); err != nil {
				return err
			}
		case interpreter.StateRunning:
			if stmt, ok := interp.Current(); ok {
				if err := step(ctx, stmt, interp.Remaining()); err != nil {
					interp.Cancel()
					return fmt.Errorf("step: %w", err)
				}
			}
		default:
			return nil
		}
		interp.Step()
	}
}

// answer reads the pending request's text from input and delivers it. A
// nil input or an input error cancels the run.
func answer(ctx context.Context, interp *interpreter.Interpreter, input InputFunc) error {
	id, prompt, ok := interp.Pending()
	if !ok {
		return nil
	}
	if input == nil {
		interp.Cancel()
		return nil
	}
	text, err := input(ctx, prompt)
	if err != nil {
		interp.Cancel()
		return fmt.Errorf("input: %w", err)
	}
	if err := interp.Deliver(id, text); err != nil && interp.State() == interpreter.StateWaiting {
		interp.Cancel()
		return fmt.Errorf("input: %w", err)
	}
	return nil
}

// Check parses and lints a Cobral program without executing it.
func (rt *Runtime) Check(source, filename string) []diagnostics.Diagnostic {
	program, diags := parser.Parse(source, filename, rt.parserOptions(filename)...)
	if len(diags) > 0 {
		return diags
	}
	return validator.Validate(program, validator.WithParseOptions(rt.importParserOptions()...))
}

// Format parses and formats a Cobral program.
func (rt *Runtime) Format(source, filename string) (string, error) {
	program, err := rt.Parse(source, filename)
	if err != nil {
		return "", err
	}
	return formatter.Format(program), nil
}

// importParserOptions are the parser options shared by the main file and
// the files it imports.
func (rt *Runtime) importParserOptions() []parser.Option {
	opts := rt.stdlib.ParserOptions()
	if len(rt.config.ImportPaths) > 0 {
		opts = append(opts, parser.WithImportPaths(rt.config.ImportPaths...))
	}
	return opts
}

func (rt *Runtime) parserOptions(filename string) []parser.Option {
	return append(rt.importParserOptions(), parser.WithBaseDir(baseDir(filename)))
}

// evaluatorOptions constructs evaluator options from the runtime's configuration.
func (rt *Runtime) evaluatorOptions(filename string) evaluator.Options {
	opts := rt.stdlib.EvaluatorOptions()
	opts.ParseOptions = rt.importParserOptions()
	opts.BaseDir = baseDir(filename)
	opts.ImportPaths = rt.config.ImportPaths
	opts.Budget.MaxIterations = rt.config.MaxIterations
	opts.MainFile = filename
	return opts
}

func baseDir(filename string) string {
	if filename == "" {
		return "."
	}
	return filepath.Dir(filename)
}

// DiagnosticError wraps diagnostics as an error.
type DiagnosticError struct {
	Diagnostics []diagnostics.Diagnostic
}

func (e *DiagnosticError) Error() string {
	msgs := make([]string, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		msgs[i] = fmt.Sprintf("%s: %s", d.Code, d.Message)
	}
	return strings.Join(msgs, "; ")
}
