// Package interpreter drives a parsed program statement by statement. A run
// parks in Waiting when a statement asks for input and continues from the
// same statement once the host delivers it.
package interpreter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/eventbus"
	"github.com/thomasrohde/cobral/pkg/logsink"
)

// ErrNoPendingInput is returned when input arrives while nothing waits for it.
var ErrNoPendingInput = errors.New("Não há input pendente")

// State is the controller state of a run.
type State int

const (
	StateRunning State = iota
	StateWaiting
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateWaiting:
		return "waiting"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Status values reported in exec_finished payloads.
const (
	StatusCompleted = "completed"
	StatusCancelled = "cancelled"
	StatusError     = "error"
)

// InputRequest is the spawn_input payload.
type InputRequest struct {
	ID     string `json:"id"`
	Prompt string `json:"prompt"`
}

// InputDelivery is the provide_input payload.
type InputDelivery struct {
	ID    string `json:"id"`
	Value string `json:"value"`
}

// Finished is the exec_finished payload.
type Finished struct {
	Run       string `json:"run"`
	Status    string `json:"status"`
	ElapsedMs int64  `json:"elapsed_ms"`
}

type pendingInput struct {
	id     string
	prompt string
	inputs []evaluator.Value
	logged int
}

// Interpreter runs one program. At most one goroutine evaluates at a time;
// Cancel, ProvideInput and the accessors may be called from any goroutine.
type Interpreter struct {
	program *ast.Program
	env     *evaluator.Env
	ev      *evaluator.Evaluator

	bus         *eventbus.Bus
	sink        logsink.Sink
	batch       *logsink.Batcher
	log         zerolog.Logger
	parent      context.Context
	ctx         context.Context
	cancel      context.CancelFunc
	stopWatch   func() bool
	evalOpts    evaluator.Options
	showElapsed bool
	threshold   int
	runID       string
	listeners   map[string]uint64

	mu        sync.Mutex
	state     State
	err       error
	cursor    int
	busy      bool
	finished  bool
	cancelled bool
	started   bool
	start     int64
	elapsed   time.Duration
	snapshot  *evaluator.Env
	pending   *pendingInput
	replay    *evaluator.Replay
}

// New creates an Interpreter for program and subscribes it to break_exec
// and provide_input on its bus. Call Close to unsubscribe.
func New(program *ast.Program, opts ...Option) *Interpreter {
	i := &Interpreter{
		program: program,
		sink:    logsink.Discard,
		log:     zerolog.Nop(),
		parent:  context.Background(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.bus == nil {
		i.bus = eventbus.New()
	}
	if i.runID == "" {
		i.runID = uuid.NewString()
	}
	i.ctx, i.cancel = context.WithCancel(i.parent)
	i.stopWatch = context.AfterFunc(i.ctx, i.cancelIdle)
	i.batch = logsink.NewBatcher(i.threshold, i.flush)

	i.evalOpts.Sink = i.batch
	if i.env == nil {
		i.env = evaluator.NewEnv()
	}
	i.ev = evaluator.New(i.ctx, i.env, i.evalOpts)

	i.listeners = map[string]uint64{
		eventbus.BreakExec:    i.bus.Listen(eventbus.BreakExec, func(eventbus.Event) { i.Cancel() }),
		eventbus.ProvideInput: i.bus.Listen(eventbus.ProvideInput, i.onProvideInput),
	}
	return i
}

// Close unsubscribes from the bus and cancels a run that has not finished.
func (i *Interpreter) Close() {
	for event, id := range i.listeners {
		i.bus.Unlisten(event, id)
	}
	i.Cancel()
	i.stopWatch()
}

// Bus returns the interpreter's event bus.
func (i *Interpreter) Bus() *eventbus.Bus { return i.bus }

// Env returns the run's environment.
func (i *Interpreter) Env() *evaluator.Env { return i.env }

// RunID returns the id reported in exec_finished.
func (i *Interpreter) RunID() string { return i.runID }

// State returns the current controller state.
func (i *Interpreter) State() State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.state
}

// Err returns the error that ended the run, if any.
func (i *Interpreter) Err() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.err
}

// Cancelled reports whether the run ended by cancellation.
func (i *Interpreter) Cancelled() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.cancelled
}

// Elapsed returns the run's duration once it has finished.
func (i *Interpreter) Elapsed() time.Duration {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.elapsed
}

// Pending returns the id and prompt of the input being waited for.
func (i *Interpreter) Pending() (id, prompt string, ok bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateWaiting || i.pending == nil {
		return "", "", false
	}
	return i.pending.id, i.pending.prompt, true
}

// Remaining returns the number of top-level statements not yet completed.
func (i *Interpreter) Remaining() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.program.Statements) - i.cursor
}

// Current returns the top-level statement under the cursor.
func (i *Interpreter) Current() (ast.Stmt, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cursor >= len(i.program.Statements) {
		return nil, false
	}
	return i.program.Statements[i.cursor], true
}

// Run evaluates statements until the program ends, fails, is cancelled or
// waits for input. It returns the resulting state and, in StateError, the
// error that ended the run.
func (i *Interpreter) Run() (State, error) {
	if !i.acquire() {
		return i.State(), i.Err()
	}
	defer i.release()
	for i.execCurrent() {
	}
	return i.State(), i.Err()
}

// Step evaluates exactly one top-level statement, flushes its output and
// returns how many statements remain along with the resulting state.
func (i *Interpreter) Step() (int, State) {
	if i.acquire() {
		i.execCurrent()
		i.release()
		i.batch.Flush()
	}
	return i.Remaining(), i.State()
}

// ProvideInput delivers text to the pending input request and resumes the
// run. An empty id addresses whichever request is pending.
func (i *Interpreter) ProvideInput(id, text string) (State, error) {
	if err := i.Deliver(id, text); err != nil {
		return i.State(), err
	}
	return i.Run()
}

// Cancel stops the run. A waiting or idle run completes immediately; a
// busy one completes at its next cancellation check. Cancelling never
// produces StateError.
func (i *Interpreter) Cancel() {
	i.cancel()
	i.cancelIdle()
}

func (i *Interpreter) acquire() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.busy || i.state != StateRunning {
		return false
	}
	i.busy = true
	if !i.started {
		i.started = true
		i.start = hiresNow()
	}
	return true
}

func (i *Interpreter) release() {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.busy = false
}

// execCurrent evaluates the statement under the cursor and reports whether
// the run should continue.
func (i *Interpreter) execCurrent() bool {
	i.mu.Lock()
	if i.state != StateRunning || i.finished {
		i.mu.Unlock()
		return false
	}
	if i.cursor >= len(i.program.Statements) {
		i.mu.Unlock()
		i.finish(StatusCompleted, nil)
		return false
	}
	stmt := i.program.Statements[i.cursor]
	replay := i.replay
	i.replay = nil
	if replay == nil {
		i.snapshot = i.env.Snapshot()
	}
	i.mu.Unlock()

	res, err := i.ev.Exec(stmt, replay)
	switch {
	case errors.Is(err, evaluator.ErrCancelled):
		i.finish(StatusCancelled, nil)
		return false
	case err != nil:
		i.finish(StatusError, err)
		return false
	case res.Suspend != nil:
		i.suspend(res.Suspend)
		// a listener may have answered the request synchronously
		return i.State() == StateRunning
	}

	i.mu.Lock()
	i.cursor++
	done := i.cursor >= len(i.program.Statements)
	i.mu.Unlock()
	if done {
		i.finish(StatusCompleted, nil)
		return false
	}
	return true
}

func (i *Interpreter) suspend(s *evaluator.Suspend) {
	i.bus.RegisterCallback(s.ID, func(text string) string {
		return strings.Trim(text, `"`)
	})

	i.mu.Lock()
	i.state = StateWaiting
	i.pending = &pendingInput{
		id:     s.ID,
		prompt: s.Prompt,
		inputs: i.ev.Consumed(),
		logged: i.ev.Logged(),
	}
	cursor := i.cursor
	i.mu.Unlock()

	i.log.Debug().Str("run", i.runID).Str("input", s.ID).Int("statement", cursor).
		Stringer("state", StateWaiting).Msg("waiting for input")

	i.batch.Flush()
	payload, _ := json.Marshal(InputRequest{ID: s.ID, Prompt: s.Prompt})
	i.bus.Emit(eventbus.SpawnInput, string(payload))

	if i.ctx.Err() != nil {
		i.cancelIdle()
	}
}

// Deliver answers the pending input request without resuming the run. The
// suspended statement is evaluated again by the next Run or Step.
func (i *Interpreter) Deliver(id, text string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.state != StateWaiting || i.pending == nil {
		return ErrNoPendingInput
	}
	if id == "" {
		id = i.pending.id
	}
	if id != i.pending.id {
		return eventbus.ErrNoCallback
	}
	value, err := i.bus.ResolveCallback(id, text)
	if err != nil {
		return err
	}

	i.env.Restore(i.snapshot)
	inputs := append(append([]evaluator.Value(nil), i.pending.inputs...), evaluator.NewString(value))
	i.replay = &evaluator.Replay{Inputs: inputs, Logged: i.pending.logged}
	i.pending = nil
	i.state = StateRunning

	i.log.Debug().Str("run", i.runID).Str("input", id).Int("statement", i.cursor).
		Stringer("state", StateRunning).Msg("input delivered")
	return nil
}

func (i *Interpreter) onProvideInput(e eventbus.Event) {
	var d InputDelivery
	if err := json.Unmarshal([]byte(e.Payload), &d); err != nil {
		d = InputDelivery{Value: e.Payload}
	}
	if _, err := i.ProvideInput(d.ID, d.Value); err != nil && !i.isRunError(err) {
		i.log.Debug().Str("run", i.runID).Err(err).Msg("input ignored")
	}
}

func (i *Interpreter) isRunError(err error) bool {
	return i.State() == StateError && errors.Is(err, i.Err())
}

// cancelIdle finishes a cancelled run that is not evaluating.
func (i *Interpreter) cancelIdle() {
	i.mu.Lock()
	if i.finished || i.busy && i.state == StateRunning || i.ctx.Err() == nil {
		i.mu.Unlock()
		return
	}
	var id string
	if i.pending != nil {
		id = i.pending.id
		i.pending = nil
	}
	i.mu.Unlock()

	if id != "" {
		i.bus.RemoveCallback(id)
	}
	i.finish(StatusCancelled, nil)
}

func (i *Interpreter) finish(status string, err error) {
	i.mu.Lock()
	if i.finished {
		i.mu.Unlock()
		return
	}
	i.finished = true
	var elapsed time.Duration
	if i.started {
		elapsed = hiresSince(i.start)
	}
	i.mu.Unlock()

	if err != nil {
		i.batch.Write(logsink.Record{Message: errorMessage(err), Level: logsink.LevelError})
	}
	if i.showElapsed {
		i.batch.Write(logsink.Record{Message: "Tempo de execução: " + elapsed.String(), Level: logsink.LevelInfo})
	}
	i.batch.Flush()

	i.mu.Lock()
	if status == StatusError {
		i.state = StateError
		i.err = err
	} else {
		i.state = StateCompleted
	}
	i.cancelled = status == StatusCancelled
	i.elapsed = elapsed
	state := i.state
	i.mu.Unlock()

	i.log.Debug().Str("run", i.runID).Str("status", status).Stringer("state", state).
		Dur("elapsed", elapsed).Msg("run finished")

	payload, _ := json.Marshal(Finished{Run: i.runID, Status: status, ElapsedMs: elapsed.Milliseconds()})
	i.bus.Emit(eventbus.ExecFinished, string(payload))
}

// flush hands a batch to the host sink and publishes it as process_logs.
func (i *Interpreter) flush(records []logsink.Record) {
	for _, r := range records {
		i.sink.Write(r)
	}
	payload, err := logsink.EncodeBatch(records)
	if err != nil {
		i.log.Error().Err(err).Msg("encode log batch")
		return
	}
	i.bus.Emit(eventbus.ProcessLogs, payload)
}

func errorMessage(err error) string {
	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) && rtErr.Span != nil {
		return fmt.Sprintf("Erro na linha %d: %s", rtErr.Span.StartLine, rtErr.Message)
	}
	return err.Error()
}
