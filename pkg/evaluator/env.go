package evaluator

import (
	"sort"
	"sync"

	"github.com/thomasrohde/cobral/pkg/ast"
)

// Env holds the bindings of one run: variables, constants, user functions
// and loaded library functions. It is safe for concurrent readers; the
// evaluator is its only writer.
type Env struct {
	mu        sync.RWMutex
	variables map[string]Value
	constants map[string]Value
	functions map[string]*ast.FnDecl
	libraries map[string]*NativeFunc
}

// NewEnv creates an empty environment.
func NewEnv() *Env {
	return &Env{
		variables: make(map[string]Value),
		constants: make(map[string]Value),
		functions: make(map[string]*ast.FnDecl),
		libraries: make(map[string]*NativeFunc),
	}
}

// Get looks up a variable or constant by name. The result is a copy.
func (e *Env) Get(name string) (Value, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if val, ok := e.variables[name]; ok {
		return Clone(val), true
	}
	if val, ok := e.constants[name]; ok {
		return Clone(val), true
	}
	return nil, false
}

// IsConstant reports whether name is bound as a constant.
func (e *Env) IsConstant(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.constants[name]
	return ok
}

// Define binds or rebinds a variable.
func (e *Env) Define(name string, val Value) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variables[name] = val
}

// DefineConst binds a constant. It reports false if name is already a constant.
func (e *Env) DefineConst(name string, val Value) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.constants[name]; ok {
		return false
	}
	e.constants[name] = val
	return true
}

// Assign rebinds an existing variable. It reports false if name is not a variable.
func (e *Env) Assign(name string, val Value) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if _, ok := e.variables[name]; !ok {
		return false
	}
	e.variables[name] = val
	return true
}

// update mutates the stored value of a variable in place.
func (e *Env) update(name string, fn func(Value) (Value, error)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	cur, ok := e.variables[name]
	if !ok {
		return errUnbound
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	e.variables[name] = next
	return nil
}

// DefineFunction registers a user function.
func (e *Env) DefineFunction(decl *ast.FnDecl) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.functions[decl.Name] = decl
}

// Function looks up a user function.
func (e *Env) Function(name string) (*ast.FnDecl, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.functions[name]
	return fn, ok
}

// LoadLibrary makes native functions callable.
func (e *Env) LoadLibrary(fns []*NativeFunc) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, fn := range fns {
		e.libraries[fn.Name] = fn
	}
}

// Native looks up a loaded library function.
func (e *Env) Native(name string) (*NativeFunc, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	fn, ok := e.libraries[name]
	return fn, ok
}

// Callables returns the sorted names of user and loaded library functions.
func (e *Env) Callables() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.functions)+len(e.libraries))
	for name := range e.functions {
		names = append(names, name)
	}
	for name := range e.libraries {
		if _, ok := e.functions[name]; !ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Constants returns the sorted names of bound constants.
func (e *Env) Constants() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.constants))
	for name := range e.constants {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// swapVariables replaces the variable map and returns the previous one.
func (e *Env) swapVariables(next map[string]Value) map[string]Value {
	e.mu.Lock()
	defer e.mu.Unlock()
	prev := e.variables
	e.variables = next
	return prev
}

// saveVariables returns a copy of the variable map.
func (e *Env) saveVariables() map[string]Value {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return copyBindings(e.variables)
}

// Variables returns a copy of the current variables.
func (e *Env) Variables() map[string]Value {
	return e.saveVariables()
}

// Snapshot returns a deep copy of e.
func (e *Env) Snapshot() *Env {
	e.mu.RLock()
	defer e.mu.RUnlock()
	s := &Env{
		variables: copyBindings(e.variables),
		constants: copyBindings(e.constants),
		functions: make(map[string]*ast.FnDecl, len(e.functions)),
		libraries: make(map[string]*NativeFunc, len(e.libraries)),
	}
	for k, v := range e.functions {
		s.functions[k] = v
	}
	for k, v := range e.libraries {
		s.libraries[k] = v
	}
	return s
}

// Restore replaces e's bindings with those of a snapshot.
func (e *Env) Restore(s *Env) {
	c := s.Snapshot()
	e.mu.Lock()
	defer e.mu.Unlock()
	e.variables = c.variables
	e.constants = c.constants
	e.functions = c.functions
	e.libraries = c.libraries
}

func copyBindings(m map[string]Value) map[string]Value {
	out := make(map[string]Value, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// endLoopScope drops variables introduced since saved was taken and restores
// the loop variable's previous binding, if it had one.
func (e *Env) endLoopScope(saved map[string]Value, loopVar string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for name := range e.variables {
		if _, ok := saved[name]; !ok {
			delete(e.variables, name)
		}
	}
	if prev, ok := saved[loopVar]; ok {
		e.variables[loopVar] = prev
	}
}
