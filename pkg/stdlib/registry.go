// Package stdlib provides the Cobral builtin libraries.
package stdlib

import (
	"sort"

	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/parser"
)

// Library is a named bundle of native functions.
type Library struct {
	Name string
	// Prelude libraries are callable without an importe.
	Prelude bool
	Fns     []*evaluator.NativeFunc
}

// FnNames returns the names of the library's functions.
func (l *Library) FnNames() []string {
	names := make([]string, len(l.Fns))
	for i, fn := range l.Fns {
		names[i] = fn.Name
	}
	return names
}

// Registry holds registered libraries.
type Registry struct {
	libs map[string]*Library
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		libs: make(map[string]*Library),
	}
}

// Register adds a library to the registry, replacing one of the same name.
func (r *Registry) Register(lib Library) {
	r.libs[lib.Name] = &lib
}

// Get retrieves a library by name.
func (r *Registry) Get(name string) *Library {
	return r.libs[name]
}

// Names returns the registered library names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.libs))
	for name := range r.libs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Libraries maps each library name to its functions.
func (r *Registry) Libraries() map[string][]*evaluator.NativeFunc {
	out := make(map[string][]*evaluator.NativeFunc, len(r.libs))
	for name, lib := range r.libs {
		out[name] = lib.Fns
	}
	return out
}

// Prelude returns the names of the prelude libraries, sorted.
func (r *Registry) Prelude() []string {
	var names []string
	for _, name := range r.Names() {
		if r.libs[name].Prelude {
			names = append(names, name)
		}
	}
	return names
}

// ParserOptions describes the registry to the parser so it can check calls.
func (r *Registry) ParserOptions() []parser.Option {
	var opts []parser.Option
	for _, name := range r.Names() {
		opts = append(opts, parser.WithLibrary(name, r.libs[name].FnNames()))
	}
	for _, name := range r.Prelude() {
		opts = append(opts, parser.WithPrelude(name))
	}
	return opts
}

// EvaluatorOptions returns evaluator options carrying the registry's
// libraries, its prelude and matching parse options for imported files.
func (r *Registry) EvaluatorOptions() evaluator.Options {
	return evaluator.Options{
		Libraries:    r.Libraries(),
		Prelude:      r.Prelude(),
		ParseOptions: r.ParserOptions(),
	}
}
