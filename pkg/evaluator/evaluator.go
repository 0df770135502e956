package evaluator

import (
	"context"
	"errors"
	"fmt"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/parser"
)

// ErrCancelled is returned when the run context is cancelled mid-evaluation.
var ErrCancelled = errors.New("execução interrompida")

var errUnbound = errors.New("variável desconhecida")

// Suspend describes an evaluation parked on an input request.
type Suspend struct {
	ID     string
	Prompt string
	Span   ast.Span
}

// Result is the outcome of evaluating a statement or expression: a value,
// or a suspension. Return marks a value produced by retorne that is still
// unwinding toward its call site.
type Result struct {
	Value   Value
	Suspend *Suspend
	Return  bool
}

func valueOf(v Value) Result {
	return Result{Value: v}
}

func (r Result) halts() bool {
	return r.Suspend != nil || r.Return
}

// Replay carries what a suspended statement already consumed and emitted,
// so it can be evaluated again from its start without repeating effects.
type Replay struct {
	Inputs []Value
	Logged int
}

// Options configures an Evaluator.
type Options struct {
	// Libraries maps importable library names to their functions.
	Libraries map[string][]*NativeFunc
	// Prelude lists libraries loaded before the first statement.
	Prelude []string
	// Sink receives escrever/erro output. Nil discards it.
	Sink logsink.Sink
	// BaseDir resolves relative file imports.
	BaseDir string
	// ImportPaths are searched after BaseDir.
	ImportPaths []string
	// ParseOptions are applied when parsing imported files.
	ParseOptions []parser.Option
	// MainFile is the program's own path, guarded against self-import.
	MainFile string
	Budget   Budget
}

// RuntimeError represents an error raised while evaluating a program.
type RuntimeError struct {
	Code    string
	Message string
	Span    *ast.Span
	Hint    string
}

func (e *RuntimeError) Error() string {
	return e.Message
}

// Diagnostic converts e to a located diagnostic.
func (e *RuntimeError) Diagnostic() diagnostics.Diagnostic {
	return diagnostics.MakeDiag(e.Code, e.Message, e.Span, e.Hint)
}

// Errorf returns an unlocated RuntimeError. Errors returned by a native
// function are located at its call site.
func Errorf(code, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...)}
}

func newError(code string, span ast.Span, format string, args ...any) *RuntimeError {
	return &RuntimeError{Code: code, Message: fmt.Sprintf(format, args...), Span: &span}
}

// Evaluator walks a program's statements against an Env.
type Evaluator struct {
	ctx  context.Context
	env  *Env
	opts Options

	callDepth  int
	iterations int64
	iterStart  int64
	importing  map[string]bool

	// replay state for the statement being evaluated
	journal  []Value
	consumed int
	logged   int
	suppress int
}

// New creates an evaluator over env and loads the prelude libraries.
func New(ctx context.Context, env *Env, opts Options) *Evaluator {
	ev := &Evaluator{
		ctx:       ctx,
		env:       env,
		opts:      opts,
		importing: make(map[string]bool),
	}
	if opts.MainFile != "" {
		ev.importing[parser.CanonicalPath(opts.MainFile)] = true
	}
	for _, name := range opts.Prelude {
		if fns, ok := opts.Libraries[name]; ok {
			env.LoadLibrary(fns)
		}
	}
	return ev
}

// Env returns the evaluator's environment.
func (ev *Evaluator) Env() *Env {
	return ev.env
}

// Logged returns the number of records the current statement has emitted,
// counting ones suppressed during replay.
func (ev *Evaluator) Logged() int {
	return ev.logged
}

// Consumed returns the inputs the current statement has consumed.
func (ev *Evaluator) Consumed() []Value {
	return append([]Value(nil), ev.journal[:ev.consumed]...)
}

// Exec evaluates one top-level statement. A nil replay starts the statement
// fresh; otherwise the statement is evaluated again with the replayed inputs
// and the first replay.Logged records suppressed.
func (ev *Evaluator) Exec(stmt ast.Stmt, replay *Replay) (Result, error) {
	ev.callDepth = 0
	ev.consumed = 0
	ev.logged = 0
	if replay == nil {
		ev.iterStart = ev.iterations
		ev.journal = nil
		ev.suppress = 0
	} else {
		ev.iterations = ev.iterStart
		ev.journal = replay.Inputs
		ev.suppress = replay.Logged
	}
	if err := ev.checkCancelled(); err != nil {
		return Result{}, err
	}
	return ev.execStmt(stmt)
}

func (ev *Evaluator) checkCancelled() error {
	if ev.ctx != nil && ev.ctx.Err() != nil {
		return ErrCancelled
	}
	return nil
}

func (ev *Evaluator) checkIterationBudget(span ast.Span) error {
	ev.iterations++
	if limit := ev.opts.Budget.MaxIterations; limit > 0 && ev.iterations > limit {
		return newError(diagnostics.EBudget, span, "Limite de iterações excedido (máximo %d)", limit)
	}
	return nil
}

func (ev *Evaluator) log(level logsink.Level, message string) {
	ev.logged++
	if ev.logged <= ev.suppress || ev.opts.Sink == nil {
		return
	}
	ev.opts.Sink.Write(logsink.Record{Message: message, Level: level})
}

// --- Statements ---

func (ev *Evaluator) execBlock(stmts []ast.Stmt) (Result, error) {
	for _, stmt := range stmts {
		res, err := ev.execStmt(stmt)
		if err != nil || res.halts() {
			return res, err
		}
	}
	return valueOf(NewNone()), nil
}

func (ev *Evaluator) execStmt(stmt ast.Stmt) (Result, error) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		return ev.execLet(s)
	case *ast.ConstStmt:
		return ev.execConst(s)
	case *ast.AssignStmt:
		return ev.execAssign(s)
	case *ast.ExprStmt:
		return ev.evalExpr(s.Expr)
	case *ast.IfStmt:
		return ev.execIf(s)
	case *ast.WhileStmt:
		return ev.execWhile(s)
	case *ast.ForStmt:
		return ev.execFor(s)
	case *ast.SwitchStmt:
		return ev.execSwitch(s)
	case *ast.FnDecl:
		ev.env.DefineFunction(s)
		return valueOf(NewNone()), nil
	case *ast.ReturnStmt:
		return ev.execReturn(s)
	case *ast.ImportStmt:
		return ev.execImport(s)
	}
	return Result{}, newError(diagnostics.ERuntime, stmt.NodeSpan(), "Comando não suportado: %s", stmt.Kind())
}

func (ev *Evaluator) execLet(s *ast.LetStmt) (Result, error) {
	res, err := ev.evalExpr(s.Value)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	if ev.env.IsConstant(s.Name) {
		return Result{}, newError(diagnostics.EConstRedecl, s.Span,
			"Constante não pode ser redeclarada: %s", s.Name)
	}
	ev.env.Define(s.Name, res.Value)
	return valueOf(NewNone()), nil
}

func (ev *Evaluator) execConst(s *ast.ConstStmt) (Result, error) {
	res, err := ev.evalExpr(s.Value)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	if !ev.env.DefineConst(s.Name, res.Value) {
		return Result{}, newError(diagnostics.EConstRedecl, s.Span,
			"Constante não pode ser redeclarada: %s", s.Name)
	}
	return valueOf(NewNone()), nil
}

func (ev *Evaluator) execAssign(s *ast.AssignStmt) (Result, error) {
	if ev.env.IsConstant(s.Name) {
		return Result{}, newError(diagnostics.EConstAssign, s.Span,
			"Não é possível atribuir um valor a uma constante: %s", s.Name)
	}

	if s.Index == nil {
		res, err := ev.evalExpr(s.Value)
		if err != nil || res.Suspend != nil {
			return res, err
		}
		if !ev.env.Assign(s.Name, res.Value) {
			return Result{}, newError(diagnostics.EUnbound, s.Span, "Variável desconhecida: %s", s.Name)
		}
		return valueOf(NewNone()), nil
	}

	idxRes, err := ev.evalExpr(s.Index)
	if err != nil || idxRes.Suspend != nil {
		return idxRes, err
	}
	res, err := ev.evalExpr(s.Value)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	idxSpan := s.Index.NodeSpan()
	err = ev.env.update(s.Name, func(cur Value) (Value, error) {
		list, ok := cur.(List)
		if !ok {
			return nil, newError(diagnostics.EType, s.Span, "A indexação é suportada somente em vetores")
		}
		i, err := listIndex(idxRes.Value, len(list.Items), idxSpan)
		if err != nil {
			return nil, err
		}
		list.Items[i] = res.Value
		return list, nil
	})
	if errors.Is(err, errUnbound) {
		return Result{}, newError(diagnostics.EUnbound, s.Span, "Variável desconhecida: %s", s.Name)
	}
	if err != nil {
		return Result{}, err
	}
	return valueOf(NewNone()), nil
}

// listIndex validates idx as an in-bounds index into a list of length n.
func listIndex(idx Value, n int, span ast.Span) (int, error) {
	i, ok := idx.(Integer)
	if !ok {
		return 0, newError(diagnostics.EIndex, span, "Índice deve ser um número inteiro")
	}
	if i.Value < 0 || i.Value >= int64(n) {
		return 0, newError(diagnostics.EIndex, span, "Índice fora de alcance: %d", i.Value)
	}
	return int(i.Value), nil
}

// evalCondition evaluates a condition that must produce a Boolean.
func (ev *Evaluator) evalCondition(cond ast.Expr, msg string) (bool, Result, error) {
	res, err := ev.evalExpr(cond)
	if err != nil || res.Suspend != nil {
		return false, res, err
	}
	b, ok := res.Value.(Boolean)
	if !ok {
		return false, Result{}, newError(diagnostics.ECond, cond.NodeSpan(), "%s", msg)
	}
	return b.Value, res, nil
}

func (ev *Evaluator) execIf(s *ast.IfStmt) (Result, error) {
	ok, res, err := ev.evalCondition(s.Cond, "Condição deve ser verdadeiro ou falso")
	if err != nil || res.Suspend != nil {
		return res, err
	}
	if ok {
		return ev.execBlock(s.Then.Statements)
	}
	for _, elseIf := range s.ElseIfs {
		ok, res, err := ev.evalCondition(elseIf.Cond, "Condição em um 'senao se' deve ser verdadeiro ou falso")
		if err != nil || res.Suspend != nil {
			return res, err
		}
		if ok {
			return ev.execBlock(elseIf.Body.Statements)
		}
	}
	if s.Else != nil {
		return ev.execBlock(s.Else.Statements)
	}
	return valueOf(NewNone()), nil
}

func (ev *Evaluator) execWhile(s *ast.WhileStmt) (Result, error) {
	for {
		if err := ev.checkCancelled(); err != nil {
			return Result{}, err
		}
		ok, res, err := ev.evalCondition(s.Cond, "Condição do laço deve ser verdadeiro ou falso")
		if err != nil || res.Suspend != nil {
			return res, err
		}
		if !ok {
			return valueOf(NewNone()), nil
		}
		if err := ev.checkIterationBudget(s.Span); err != nil {
			return Result{}, err
		}
		res, err = ev.execBlock(s.Body.Statements)
		if err != nil || res.halts() {
			return res, err
		}
	}
}

func (ev *Evaluator) execFor(s *ast.ForStmt) (Result, error) {
	saved := ev.env.saveVariables()
	defer ev.env.endLoopScope(saved, s.Init.Name)

	res, err := ev.execLet(s.Init)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	for {
		if err := ev.checkCancelled(); err != nil {
			return Result{}, err
		}
		ok, res, err := ev.evalCondition(s.Cond, "Condição de laço inválida")
		if err != nil || res.Suspend != nil {
			return res, err
		}
		if !ok {
			return valueOf(NewNone()), nil
		}
		if err := ev.checkIterationBudget(s.Span); err != nil {
			return Result{}, err
		}
		res, err = ev.execBlock(s.Body.Statements)
		if err != nil || res.halts() {
			return res, err
		}
		res, err = ev.execStmt(s.Update)
		if err != nil || res.Suspend != nil {
			return res, err
		}
	}
}

// execSwitch runs the first matching case and falls through until a case
// ends in pare. The default clause runs when nothing matched and also when
// the last executed body left a non-None result (a retorne without pare).
func (ev *Evaluator) execSwitch(s *ast.SwitchStmt) (Result, error) {
	subject, err := ev.evalExpr(s.Subject)
	if err != nil || subject.Suspend != nil {
		return subject, err
	}

	matched := false
	result := valueOf(NewNone())
	for _, c := range s.Cases {
		caseVal, err := ev.evalExpr(c.Value)
		if err != nil || caseVal.Suspend != nil {
			return caseVal, err
		}
		if !matched {
			eq, err := switchMatch(subject.Value, caseVal.Value, c.Value.NodeSpan())
			if err != nil {
				return Result{}, err
			}
			matched = eq
		}
		if !matched {
			continue
		}
		result, err = ev.execBlock(c.Body)
		if err != nil || result.Suspend != nil {
			return result, err
		}
		if c.Break {
			return result, nil
		}
	}

	if s.Default != nil && (!matched || !isNone(result)) {
		return ev.execBlock(s.Default.Body)
	}
	return result, nil
}

func switchMatch(subject, candidate Value, span ast.Span) (bool, error) {
	switch subject.(type) {
	case Integer, Float, String, Boolean:
	default:
		return false, newError(diagnostics.EType, span, "Tipos incompatíveis na comparação do escolha")
	}
	if TypeName(subject) != TypeName(candidate) {
		return false, newError(diagnostics.EType, span, "Tipos incompatíveis na comparação do escolha")
	}
	return Equal(subject, candidate), nil
}

func isNone(r Result) bool {
	if r.Return {
		return false
	}
	_, ok := r.Value.(None)
	return ok || r.Value == nil
}

func (ev *Evaluator) execReturn(s *ast.ReturnStmt) (Result, error) {
	if ev.callDepth == 0 {
		return Result{}, newError(diagnostics.EReturn, s.Span,
			"Comando 'retorne' só pode ser usado dentro de funções")
	}
	if s.Value == nil {
		return Result{Value: NewInteger(0), Return: true}, nil
	}
	res, err := ev.evalExpr(s.Value)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	return Result{Value: res.Value, Return: true}, nil
}
