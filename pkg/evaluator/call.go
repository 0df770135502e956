package evaluator

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/parser"
)

// Variadic marks a NativeFunc that accepts any number of arguments.
const Variadic = -1

// NativeFunc is a library function implemented in Go.
type NativeFunc struct {
	Name  string
	Arity int
	Fn    func(c *Call, args []Value) (Result, error)
}

// Pure wraps a function that neither logs nor reads input.
func Pure(name string, arity int, fn func(args []Value) (Value, error)) *NativeFunc {
	return &NativeFunc{
		Name:  name,
		Arity: arity,
		Fn: func(_ *Call, args []Value) (Result, error) {
			v, err := fn(args)
			if err != nil {
				return Result{}, err
			}
			return valueOf(v), nil
		},
	}
}

// Call is the context handed to a native function.
type Call struct {
	ev   *Evaluator
	Name string
	Span ast.Span
}

// Log emits a program output record.
func (c *Call) Log(level logsink.Level, message string) {
	c.ev.log(level, message)
}

// Input returns the next delivered input as a String, or a suspension
// requesting one.
func (c *Call) Input(prompt string) Result {
	ev := c.ev
	if ev.consumed < len(ev.journal) {
		v := ev.journal[ev.consumed]
		ev.consumed++
		return valueOf(v)
	}
	return Result{Suspend: &Suspend{ID: uuid.NewString(), Prompt: prompt, Span: c.Span}}
}

// Errorf returns a RuntimeError located at the call site.
func (c *Call) Errorf(code, format string, args ...any) error {
	return newError(code, c.Span, format, args...)
}

func (ev *Evaluator) evalArgs(args []ast.Expr) ([]Value, *Result, error) {
	vals := make([]Value, 0, len(args))
	for _, arg := range args {
		res, err := ev.evalExpr(arg)
		if err != nil || res.Suspend != nil {
			return nil, &res, err
		}
		vals = append(vals, res.Value)
	}
	return vals, nil, nil
}

func (ev *Evaluator) evalCall(e *ast.CallExpr) (Result, error) {
	if fn, ok := ev.env.Native(e.Name); ok {
		return ev.callNative(fn, e)
	}
	if decl, ok := ev.env.Function(e.Name); ok {
		return ev.callUser(decl, e)
	}

	err := newError(diagnostics.EUnknownFn, e.Span, "Função desconhecida: %s", e.Name)
	if lib := ev.libraryOf(e.Name); lib != "" {
		err.Hint = fmt.Sprintf("Verifique se a biblioteca foi importada corretamente. Ex.: importe \"%s\"", lib)
	}
	return Result{}, err
}

func (ev *Evaluator) libraryOf(name string) string {
	libs := make([]string, 0, len(ev.opts.Libraries))
	for lib := range ev.opts.Libraries {
		libs = append(libs, lib)
	}
	sort.Strings(libs)
	for _, lib := range libs {
		for _, fn := range ev.opts.Libraries[lib] {
			if fn.Name == name {
				return lib
			}
		}
	}
	return ""
}

func checkArity(name string, want, got int, span ast.Span) error {
	if want == Variadic || want == got {
		return nil
	}
	return newError(diagnostics.EArgs, span,
		"Número de argumentos inválido para '%s': esperado %d, recebido %d", name, want, got)
}

func (ev *Evaluator) callNative(fn *NativeFunc, e *ast.CallExpr) (Result, error) {
	if err := checkArity(fn.Name, fn.Arity, len(e.Args), e.Span); err != nil {
		return Result{}, err
	}
	args, halted, err := ev.evalArgs(e.Args)
	if err != nil || halted != nil {
		return *halted, err
	}

	res, err := fn.Fn(&Call{ev: ev, Name: fn.Name, Span: e.Span}, args)
	if err != nil {
		var rtErr *RuntimeError
		if errors.As(err, &rtErr) {
			if rtErr.Span == nil {
				span := e.Span
				rtErr.Span = &span
			}
			return Result{}, rtErr
		}
		return Result{}, newError(diagnostics.ERuntime, e.Span, "Erro em '%s': %s", fn.Name, err.Error())
	}
	if res.Value == nil && res.Suspend == nil {
		res.Value = NewNone()
	}
	return res, nil
}

// callUser invokes a user function. The caller's variable map is swapped out
// for a fresh one holding only the parameters and restored afterwards.
func (ev *Evaluator) callUser(decl *ast.FnDecl, e *ast.CallExpr) (Result, error) {
	if err := checkArity(decl.Name, len(decl.Params), len(e.Args), e.Span); err != nil {
		return Result{}, err
	}
	args, halted, err := ev.evalArgs(e.Args)
	if err != nil || halted != nil {
		return *halted, err
	}
	if limit := ev.opts.Budget.callDepth(); ev.callDepth >= limit {
		return Result{}, newError(diagnostics.EBudget, e.Span,
			"Limite de chamadas aninhadas excedido (máximo %d)", limit)
	}

	frame := make(map[string]Value, len(decl.Params))
	for i, param := range decl.Params {
		frame[param] = args[i]
	}
	prev := ev.env.swapVariables(frame)
	ev.callDepth++
	defer func() {
		ev.callDepth--
		ev.env.swapVariables(prev)
	}()

	res, err := ev.execBlock(decl.Body.Statements)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	if res.Return {
		return valueOf(res.Value), nil
	}
	return valueOf(NewInteger(0)), nil
}

func (ev *Evaluator) execImport(s *ast.ImportStmt) (Result, error) {
	if s.Resolved == "" {
		if fns, ok := ev.opts.Libraries[s.Path]; ok {
			ev.env.LoadLibrary(fns)
			return valueOf(NewNone()), nil
		}
	}

	path := s.Resolved
	if path == "" {
		resolved, ok := parser.ResolveImport(s.Path, ev.opts.BaseDir, ev.opts.ImportPaths)
		if !ok {
			return Result{}, newError(diagnostics.EFileNotFound, s.Span, "Arquivo não encontrado: %s", s.Path)
		}
		path = resolved
	}
	path = parser.CanonicalPath(path)
	if ev.importing[path] {
		return Result{}, newError(diagnostics.EImport, s.Span, "Importação circular: %s", s.Path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Result{}, newError(diagnostics.EFileNotFound, s.Span, "Arquivo não encontrado: %s", s.Path)
		}
		return Result{}, newError(diagnostics.EFileRead, s.Span, "Erro ao ler o arquivo: %s", s.Path)
	}

	opts := append(append([]parser.Option(nil), ev.opts.ParseOptions...), parser.WithBaseDir(filepath.Dir(path)))
	prog, diags := parser.Parse(string(data), path, opts...)
	if len(diags) > 0 {
		d := diags[0]
		return Result{}, &RuntimeError{
			Code:    d.Code,
			Message: fmt.Sprintf("Erro em \"%s\": %s", s.Path, strings.TrimSpace(d.Message)),
			Span:    d.Span,
			Hint:    d.Hint,
		}
	}

	ev.importing[path] = true
	defer delete(ev.importing, path)

	saved := ev.opts.BaseDir
	ev.opts.BaseDir = filepath.Dir(path)
	defer func() { ev.opts.BaseDir = saved }()

	res, err := ev.execBlock(prog.Statements)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	return valueOf(NewNone()), nil
}
