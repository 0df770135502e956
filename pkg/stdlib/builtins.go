package stdlib

import (
	"strings"

	"github.com/thomasrohde/cobral/pkg/evaluator"
)

// Library names.
const (
	LibIO         = "io"
	LibMath       = "matematica"
	LibConversion = "conversao"
)

// RegisterDefaults adds the builtin libraries.
func RegisterDefaults(r *Registry) {
	r.Register(Library{
		Name:    LibIO,
		Prelude: true,
		Fns: []*evaluator.NativeFunc{
			{Name: "escrever", Arity: evaluator.Variadic, Fn: ioWrite},
			{Name: "erro", Arity: evaluator.Variadic, Fn: ioError},
			{Name: "ler", Arity: evaluator.Variadic, Fn: ioRead},
		},
	})

	r.Register(Library{
		Name: LibMath,
		Fns: []*evaluator.NativeFunc{
			evaluator.Pure("raiz", 1, mathSqrt),
			evaluator.Pure("potencia", 2, mathPow),
			evaluator.Pure("PI", 0, mathPi),
		},
	})

	r.Register(Library{
		Name: LibConversion,
		Fns: []*evaluator.NativeFunc{
			evaluator.Pure("int", 1, convInt),
			evaluator.Pure("real", 1, convReal),
		},
	})
}

// Default returns a registry holding the builtin libraries.
func Default() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}

// joinArgs formats args the way escrever prints them, space-separated.
func joinArgs(args []evaluator.Value) string {
	parts := make([]string, len(args))
	for i, arg := range args {
		parts[i] = evaluator.Format(arg)
	}
	return strings.Join(parts, " ")
}
