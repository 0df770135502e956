package runtime_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/runtime"
)

func eval(t *testing.T, s *runtime.Session, source string) {
	t.Helper()
	if _, err := s.Eval(context.Background(), source, nil); err != nil {
		t.Fatalf("Eval(%q): %v", source, err)
	}
}

func TestSession_KeepsBindings(t *testing.T) {
	out := &logsink.Recorder{}
	s := newRuntime(out).NewSession()
	eval(t, s, `declare x = 20`)
	eval(t, s, `declare constante DOIS = 2`)
	eval(t, s, `funcao dobro(n) { retorne n * DOIS }`)
	eval(t, s, `importe "matematica"`)
	eval(t, s, `escrever(dobro(x) + raiz(4))`)

	if got := out.Messages(); !reflect.DeepEqual(got, []string{"42.0"}) {
		t.Errorf("output = %q", got)
	}
}

func TestSession_ParseErrorLeavesEnv(t *testing.T) {
	s := newRuntime(&logsink.Recorder{}).NewSession()
	eval(t, s, `declare x = 1`)
	_, err := s.Eval(context.Background(), `declare = 2`, nil)
	var diagErr *runtime.DiagnosticError
	if !errors.As(err, &diagErr) {
		t.Fatalf("err = %v, want DiagnosticError", err)
	}
	if v, ok := s.Env().Get("x"); !ok || !evaluator.Equal(v, evaluator.NewInteger(1)) {
		t.Errorf("x = %v", v)
	}
}

func TestSession_ConstantStaysConstant(t *testing.T) {
	s := newRuntime(&logsink.Recorder{}).NewSession()
	eval(t, s, `declare constante K = 1`)
	if _, err := s.Eval(context.Background(), `K = 2`, nil); err == nil {
		t.Fatal("expected error assigning a constant from an earlier entry")
	}
}

func TestSession_RuntimeErrorKeepsEarlierBindings(t *testing.T) {
	s := newRuntime(&logsink.Recorder{}).NewSession()
	_, err := s.Eval(context.Background(), `declare a = 1; declare b = a / 0`, nil)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EDivZero {
		t.Fatalf("err = %v", err)
	}
	if _, ok := s.Env().Get("a"); !ok {
		t.Error("a should survive the failed entry")
	}
	eval(t, s, `escrever(a)`)
}
