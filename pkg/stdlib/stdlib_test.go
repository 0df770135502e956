package stdlib

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/parser"
)

// run parses and evaluates src with the default libraries. It returns the
// final environment, the recorded output and the first error.
func run(t *testing.T, src string) (*evaluator.Env, *logsink.Recorder, error) {
	t.Helper()
	reg := Default()
	prog, diags := parser.Parse(src, "test.cb", reg.ParserOptions()...)
	if len(diags) > 0 {
		t.Fatalf("parse %q: %v", src, diags)
	}
	rec := &logsink.Recorder{}
	opts := reg.EvaluatorOptions()
	opts.Sink = rec
	env := evaluator.NewEnv()
	ev := evaluator.New(context.Background(), env, opts)
	for _, stmt := range prog.Statements {
		res, err := ev.Exec(stmt, nil)
		if err != nil {
			return env, rec, err
		}
		if res.Suspend != nil {
			t.Fatalf("unexpected suspension at %s", res.Suspend.Span)
		}
	}
	return env, rec, nil
}

func mustRun(t *testing.T, src string) (*evaluator.Env, *logsink.Recorder) {
	t.Helper()
	env, rec, err := run(t, src)
	if err != nil {
		t.Fatalf("run %q: %v", src, err)
	}
	return env, rec
}

func lookup(t *testing.T, env *evaluator.Env, name string) evaluator.Value {
	t.Helper()
	v, ok := env.Get(name)
	if !ok {
		t.Fatalf("%s is not bound", name)
	}
	return v
}

func expectCode(t *testing.T, err error, code string) {
	t.Helper()
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) {
		t.Fatalf("expected RuntimeError %s, got %v", code, err)
	}
	if rtErr.Code != code {
		t.Errorf("code = %s, want %s (%s)", rtErr.Code, code, rtErr.Message)
	}
}

// --- Registry ---

func TestRegistry(t *testing.T) {
	reg := Default()
	if got, want := reg.Names(), []string{LibConversion, LibIO, LibMath}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
	if got, want := reg.Prelude(), []string{LibIO}; !reflect.DeepEqual(got, want) {
		t.Errorf("Prelude() = %v, want %v", got, want)
	}
	if got, want := reg.Get(LibMath).FnNames(), []string{"raiz", "potencia", "PI"}; !reflect.DeepEqual(got, want) {
		t.Errorf("matematica = %v, want %v", got, want)
	}
	if reg.Get("nada") != nil {
		t.Error("unknown library should be nil")
	}
	if n := len(reg.Libraries()[LibIO]); n != 3 {
		t.Errorf("io has %d functions, want 3", n)
	}
}

func TestParserRejectsUnimportedLibrary(t *testing.T) {
	_, diags := parser.Parse(`declare x = raiz(4);`, "t.cb", Default().ParserOptions()...)
	if len(diags) == 0 {
		t.Fatal("expected a diagnostic")
	}
	if diags[0].Code != diagnostics.EUnknownFn {
		t.Errorf("code = %s, want %s", diags[0].Code, diagnostics.EUnknownFn)
	}
}

// --- io ---

func TestEscrever(t *testing.T) {
	env, rec := mustRun(t, `
declare r = escrever("a", 1, 2.5, verdadeiro, [1, "b"]);
erro("falhou", 3);
`)
	want := []logsink.Record{
		{Message: `a 1 2.5 verdadeiro [1, "b"]`, Level: logsink.LevelInfo},
		{Message: "falhou 3", Level: logsink.LevelError},
	}
	if got := rec.Records(); !reflect.DeepEqual(got, want) {
		t.Errorf("records = %v, want %v", got, want)
	}
	if got := lookup(t, env, "r"); !evaluator.Equal(got, evaluator.NewString(`a 1 2.5 verdadeiro [1, "b"]`)) {
		t.Errorf("escrever returned %s", evaluator.Format(got))
	}
}

func TestEscreverNoArgs(t *testing.T) {
	_, rec := mustRun(t, `escrever();`)
	if got := rec.Messages(); len(got) != 1 || got[0] != "" {
		t.Errorf("messages = %q, want one empty line", got)
	}
}

func TestLerSuspends(t *testing.T) {
	reg := Default()
	prog, diags := parser.Parse(`declare nome = ler("Nome", "?");`, "t.cb", reg.ParserOptions()...)
	if len(diags) > 0 {
		t.Fatal(diags)
	}
	env := evaluator.NewEnv()
	ev := evaluator.New(context.Background(), env, reg.EvaluatorOptions())

	res, err := ev.Exec(prog.Statements[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.Suspend == nil {
		t.Fatal("expected suspension")
	}
	if res.Suspend.Prompt != "Nome ?" {
		t.Errorf("prompt = %q", res.Suspend.Prompt)
	}
	if res.Suspend.ID == "" {
		t.Error("empty suspension id")
	}

	res, err = ev.Exec(prog.Statements[0], &evaluator.Replay{Inputs: []evaluator.Value{evaluator.NewString("Ana")}})
	if err != nil || res.Suspend != nil {
		t.Fatalf("replay: %v %v", res, err)
	}
	if got := lookup(t, env, "nome"); !evaluator.Equal(got, evaluator.NewString("Ana")) {
		t.Errorf("nome = %s", evaluator.Format(got))
	}
}

// --- matematica ---

func TestMath(t *testing.T) {
	tests := []struct {
		expr string
		want evaluator.Value
	}{
		{"raiz(9)", evaluator.NewFloat(3)},
		{"raiz(2.25)", evaluator.NewFloat(1.5)},
		{"potencia(2, 10)", evaluator.NewInteger(1024)},
		{"potencia(3, 0)", evaluator.NewInteger(1)},
		{"potencia(2, -1)", evaluator.NewFloat(0.5)},
		{"potencia(2.0, 3)", evaluator.NewFloat(8)},
		{"potencia(4, 0.5)", evaluator.NewFloat(2)},
		{"PI()", evaluator.NewFloat(math.Pi)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			env, _ := mustRun(t, "importe \"matematica\";\ndeclare r = "+tt.expr+";")
			if got := lookup(t, env, "r"); !evaluator.Equal(got, tt.want) {
				t.Errorf("%s = %s (%s), want %s", tt.expr, evaluator.Format(got), evaluator.TypeName(got), evaluator.Format(tt.want))
			}
		})
	}
}

func TestMathErrors(t *testing.T) {
	tests := []struct {
		src  string
		code string
	}{
		{`declare r = raiz("x");`, diagnostics.EType},
		{`declare r = potencia(2, "x");`, diagnostics.EType},
		{`declare r = raiz(1, 2);`, diagnostics.EArgs},
		{`declare r = PI(1);`, diagnostics.EArgs},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			_, _, err := run(t, "importe \"matematica\";\n"+tt.src)
			expectCode(t, err, tt.code)
		})
	}
}

func TestErrorIsLocatedAtCall(t *testing.T) {
	_, _, err := run(t, "importe \"matematica\";\ndeclare r = raiz(falso);")
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Span == nil {
		t.Fatalf("expected located error, got %v", err)
	}
	if rtErr.Span.StartLine != 2 {
		t.Errorf("line = %d, want 2", rtErr.Span.StartLine)
	}
}

// --- conversao ---

func TestConversion(t *testing.T) {
	tests := []struct {
		expr string
		want evaluator.Value
	}{
		{"int(3.9)", evaluator.NewInteger(3)},
		{"int(-3.9)", evaluator.NewInteger(-3)},
		{"int(7)", evaluator.NewInteger(7)},
		{`int("42")`, evaluator.NewInteger(42)},
		{`int(" 5 ")`, evaluator.NewInteger(5)},
		{"real(2)", evaluator.NewFloat(2)},
		{"real(2.5)", evaluator.NewFloat(2.5)},
		{`real("1.25")`, evaluator.NewFloat(1.25)},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			env, _ := mustRun(t, "importe \"conversao\";\ndeclare r = "+tt.expr+";")
			if got := lookup(t, env, "r"); !evaluator.Equal(got, tt.want) {
				t.Errorf("%s = %s, want %s", tt.expr, evaluator.Format(got), evaluator.Format(tt.want))
			}
		})
	}
}

func TestConversionErrors(t *testing.T) {
	for _, src := range []string{
		`declare r = int("abc");`,
		`declare r = int("1.5");`,
		`declare r = real("x");`,
		`declare r = int(verdadeiro);`,
		`declare r = real([1]);`,
	} {
		t.Run(src, func(t *testing.T) {
			_, _, err := run(t, "importe \"conversao\";\n"+src)
			expectCode(t, err, diagnostics.EType)
		})
	}
}

func TestIpow(t *testing.T) {
	if got := ipow(-2, 3); got != -8 {
		t.Errorf("ipow(-2, 3) = %d", got)
	}
	if got := ipow(10, 18); got != 1_000_000_000_000_000_000 {
		t.Errorf("ipow(10, 18) = %d", got)
	}
}
