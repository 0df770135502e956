package runtime

import (
	"context"

	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/interpreter"
	"github.com/thomasrohde/cobral/pkg/parser"
)

// Session evaluates successive entries in one environment. Variables,
// constants, functions and imports of earlier entries stay visible to
// later ones. It is used by the interactive shell.
type Session struct {
	rt  *Runtime
	env *evaluator.Env
}

// NewSession returns a session with an empty environment.
func (rt *Runtime) NewSession() *Session {
	return &Session{rt: rt, env: evaluator.NewEnv()}
}

// Env returns the session's environment.
func (s *Session) Env() *evaluator.Env { return s.env }

// Eval parses and runs one entry. A parse failure leaves the environment
// untouched. A runtime error ends the entry; bindings made before it are
// kept.
func (s *Session) Eval(ctx context.Context, source string, input InputFunc) (*Result, error) {
	opts := append(s.rt.parserOptions(""),
		parser.WithFunctions(s.env.Callables()...),
		parser.WithConstants(s.env.Constants()...),
	)
	program, diags := parser.Parse(source, "", opts...)
	if len(diags) > 0 {
		return nil, &DiagnosticError{Diagnostics: diags}
	}

	interp := s.rt.interpreter(ctx, program, "", interpreter.WithEnv(s.env))
	defer interp.Close()
	return drive(ctx, interp, input, s.rt.step)
}
