package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/config"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/eventbus"
	"github.com/thomasrohde/cobral/pkg/interpreter"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/runtime"
)

func quietConfig() *config.Config {
	cfg := config.Default()
	cfg.ShowElapsed = false
	return cfg
}

func newRuntime(out *logsink.Recorder, opts ...runtime.Option) *runtime.Runtime {
	base := []runtime.Option{runtime.WithConfig(quietConfig()), runtime.WithSink(out)}
	return runtime.New(append(base, opts...)...)
}

// answers returns an InputFunc that replies with values in order and
// records the prompts it was asked.
func answers(prompts *[]string, values ...string) runtime.InputFunc {
	return func(_ context.Context, prompt string) (string, error) {
		*prompts = append(*prompts, prompt)
		if len(values) == 0 {
			return "", io.EOF
		}
		v := values[0]
		values = values[1:]
		return v, nil
	}
}

// --- Run ---

func TestRun_Output(t *testing.T) {
	out := &logsink.Recorder{}
	res, err := newRuntime(out).Run(context.Background(), `escrever("olá", 1 + 1)`, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.State != interpreter.StateCompleted || res.Cancelled {
		t.Errorf("result = %+v", res)
	}
	if got := out.Messages(); !reflect.DeepEqual(got, []string{"olá 2"}) {
		t.Errorf("output = %q", got)
	}
}

func TestRun_Input(t *testing.T) {
	out := &logsink.Recorder{}
	var prompts []string
	src := `
declare nome = ler("Nome?");
declare idade = ler("Idade?");
escrever(nome, idade);
`
	res, err := newRuntime(out).Run(context.Background(), src, "", answers(&prompts, "Ana", `"30"`))
	if err != nil {
		t.Fatal(err)
	}
	if res.State != interpreter.StateCompleted {
		t.Errorf("state = %s", res.State)
	}
	if !reflect.DeepEqual(prompts, []string{"Nome?", "Idade?"}) {
		t.Errorf("prompts = %q", prompts)
	}
	if got := out.Messages(); !reflect.DeepEqual(got, []string{"Ana 30"}) {
		t.Errorf("output = %q", got)
	}
	if v, ok := res.Env.Get("nome"); !ok || !evaluator.Equal(v, evaluator.NewString("Ana")) {
		t.Errorf("nome = %v", v)
	}
}

func TestRun_InputErrorCancels(t *testing.T) {
	out := &logsink.Recorder{}
	var prompts []string
	res, err := newRuntime(out).Run(context.Background(), `escrever(ler())`, "", answers(&prompts))
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if res.State != interpreter.StateCompleted || !res.Cancelled {
		t.Errorf("result = %+v", res)
	}
	if len(out.Messages()) != 0 {
		t.Errorf("output = %q", out.Messages())
	}
}

func TestRun_NilInputCancels(t *testing.T) {
	res, err := newRuntime(&logsink.Recorder{}).Run(context.Background(), `declare x = ler()`, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cancelled {
		t.Error("expected cancelled run")
	}
}

// --- Stepping ---

func TestRun_Stepper(t *testing.T) {
	out := &logsink.Recorder{}
	var seen []string
	stepper := func(_ context.Context, stmt ast.Stmt, remaining int) error {
		seen = append(seen, fmt.Sprintf("%d:%d:%d", stmt.NodeSpan().StartLine, remaining, len(out.Messages())))
		return nil
	}
	var prompts []string
	src := "declare nome = ler(\"nome?\");\nescrever(\"olá\", nome);\nescrever(\"fim\");"
	res, err := newRuntime(out, runtime.WithStepper(stepper)).Run(context.Background(), src, "", answers(&prompts, "Ana"))
	if err != nil {
		t.Fatal(err)
	}
	if res.State != interpreter.StateCompleted || res.Cancelled {
		t.Errorf("result = %+v", res)
	}
	// line:remaining:output lines already written
	if want := []string{"1:3:0", "2:2:0", "3:1:1"}; !reflect.DeepEqual(seen, want) {
		t.Errorf("steps = %q, want %q", seen, want)
	}
	if want := []string{"nome?"}; !reflect.DeepEqual(prompts, want) {
		t.Errorf("prompts = %q, want %q", prompts, want)
	}
	if want := []string{"olá Ana", "fim"}; !reflect.DeepEqual(out.Messages(), want) {
		t.Errorf("output = %q, want %q", out.Messages(), want)
	}
}

func TestRun_StepperErrorCancels(t *testing.T) {
	out := &logsink.Recorder{}
	stop := errors.New("parar")
	calls := 0
	stepper := func(context.Context, ast.Stmt, int) error {
		calls++
		if calls == 2 {
			return stop
		}
		return nil
	}
	res, err := newRuntime(out, runtime.WithStepper(stepper)).Run(context.Background(),
		`escrever("um"); escrever("dois");`, "", nil)
	if !errors.Is(err, stop) {
		t.Fatalf("err = %v, want %v", err, stop)
	}
	if !res.Cancelled || res.State != interpreter.StateCompleted {
		t.Errorf("result = %+v", res)
	}
	if want := []string{"um"}; !reflect.DeepEqual(out.Messages(), want) {
		t.Errorf("output = %q, want %q", out.Messages(), want)
	}
}

func TestRun_ParseError(t *testing.T) {
	_, err := newRuntime(&logsink.Recorder{}).Run(context.Background(), `declare = 1`, "", nil)
	var diagErr *runtime.DiagnosticError
	if !errors.As(err, &diagErr) {
		t.Fatalf("err = %v, want DiagnosticError", err)
	}
	if diagErr.Diagnostics[0].Code != diagnostics.EParse {
		t.Errorf("code = %s", diagErr.Diagnostics[0].Code)
	}
	if !strings.HasPrefix(err.Error(), "E_PARSE: ") {
		t.Errorf("Error() = %q", err.Error())
	}
}

func TestRun_RuntimeError(t *testing.T) {
	out := &logsink.Recorder{}
	res, err := newRuntime(out).Run(context.Background(), `declare v = [1]; escrever(v[3])`, "", nil)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EIndex {
		t.Fatalf("err = %v, want E_INDEX", err)
	}
	if res.State != interpreter.StateError {
		t.Errorf("state = %s", res.State)
	}
	records := out.Records()
	if len(records) != 1 || records[0].Level != logsink.LevelError {
		t.Errorf("records = %+v", records)
	}
}

func TestRun_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := newRuntime(&logsink.Recorder{}).Run(ctx, `enquanto (verdadeiro) { }`, "", nil)
	if err != nil {
		t.Fatal(err)
	}
	if !res.Cancelled || res.State != interpreter.StateCompleted {
		t.Errorf("result = %+v", res)
	}
}

func TestRun_IterationBudget(t *testing.T) {
	cfg := quietConfig()
	cfg.MaxIterations = 10
	rt := runtime.New(runtime.WithConfig(cfg))
	_, err := rt.Run(context.Background(), `declare i = 0; enquanto (verdadeiro) { i++ }`, "", nil)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EBudget {
		t.Fatalf("err = %v, want E_BUDGET", err)
	}
}

func TestRun_ShowElapsed(t *testing.T) {
	out := &logsink.Recorder{}
	rt := runtime.New(runtime.WithSink(out))
	if _, err := rt.Run(context.Background(), `escrever("x")`, "", nil); err != nil {
		t.Fatal(err)
	}
	msgs := out.Messages()
	if len(msgs) != 2 || !strings.HasPrefix(msgs[1], "Tempo de execução: ") {
		t.Errorf("output = %q", msgs)
	}
}

func TestRun_BusAndRunID(t *testing.T) {
	bus := eventbus.New()
	var finished []string
	bus.Listen(eventbus.ExecFinished, func(e eventbus.Event) { finished = append(finished, e.Payload) })

	rt := newRuntime(&logsink.Recorder{}, runtime.WithBus(bus), runtime.WithRunID("cli"))
	if _, err := rt.Run(context.Background(), `escrever(1)`, "", nil); err != nil {
		t.Fatal(err)
	}
	if len(finished) != 1 || !strings.Contains(finished[0], `"run":"cli"`) {
		t.Errorf("exec_finished = %q", finished)
	}
	if n := bus.Listeners(eventbus.ProvideInput); n != 0 {
		t.Errorf("provide_input listeners left behind: %d", n)
	}
}

// --- Imports ---

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestRun_FileImportRelativeToProgram(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "util.cob"), `funcao dobro(n) { retorne n * 2 }`)
	main := filepath.Join(dir, "main.cob")

	out := &logsink.Recorder{}
	_, err := newRuntime(out).Run(context.Background(), `importe "util.cob"; escrever(dobro(21))`, main, nil)
	if err != nil {
		t.Fatal(err)
	}
	if got := out.Messages(); !reflect.DeepEqual(got, []string{"42"}) {
		t.Errorf("output = %q", got)
	}
}

func TestRun_ImportPaths(t *testing.T) {
	lib := t.TempDir()
	writeFile(t, filepath.Join(lib, "saudacao.cob"), `funcao ola(nome) { retorne "olá " + nome }`)
	cfg := quietConfig()
	cfg.ImportPaths = []string{lib}

	out := &logsink.Recorder{}
	rt := runtime.New(runtime.WithConfig(cfg), runtime.WithSink(out))
	main := filepath.Join(t.TempDir(), "main.cob")
	if _, err := rt.Run(context.Background(), `importe "saudacao.cob"; escrever(ola("Bia"))`, main, nil); err != nil {
		t.Fatal(err)
	}
	if got := out.Messages(); !reflect.DeepEqual(got, []string{"olá Bia"}) {
		t.Errorf("output = %q", got)
	}
}

func TestRun_SelfImport(t *testing.T) {
	dir := t.TempDir()
	main := filepath.Join(dir, "main.cob")
	src := `importe "main.cob"`
	writeFile(t, main, src)
	_, err := newRuntime(&logsink.Recorder{}).Run(context.Background(), src, main, nil)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EImport {
		t.Fatalf("err = %v, want E_IMPORT", err)
	}
}

func TestRun_SelfImportRelativeName(t *testing.T) {
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	main := filepath.Join(t.TempDir(), "main.cob")
	rel, err := filepath.Rel(wd, main)
	if err != nil {
		t.Skipf("no relative path to temp dir: %v", err)
	}
	src := "escrever(\"corpo\");\nimporte \"main.cob\";"
	writeFile(t, main, src)

	out := &logsink.Recorder{}
	_, err = newRuntime(out).Run(context.Background(), src, rel, nil)
	var rtErr *evaluator.RuntimeError
	if !errors.As(err, &rtErr) || rtErr.Code != diagnostics.EImport {
		t.Fatalf("err = %v, want E_IMPORT", err)
	}
	if rtErr.Span == nil || rtErr.Span.StartLine != 2 {
		t.Errorf("error span = %+v, want line 2", rtErr.Span)
	}
	count := 0
	for _, msg := range out.Messages() {
		if msg == "corpo" {
			count++
		}
	}
	if count != 1 {
		t.Errorf("body ran %d times, want 1: %q", count, out.Messages())
	}
}

// --- Start ---

func TestStart_HostDrivesInterpreter(t *testing.T) {
	out := &logsink.Recorder{}
	interp, err := newRuntime(out).Start(context.Background(), `escrever("a"); escrever(ler("?"))`, "")
	if err != nil {
		t.Fatal(err)
	}
	defer interp.Close()

	if state, _ := interp.Run(); state != interpreter.StateWaiting {
		t.Fatalf("state = %s", state)
	}
	if state, _ := interp.ProvideInput("", "b"); state != interpreter.StateCompleted {
		t.Fatalf("state = %s", state)
	}
	if got := out.Messages(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("output = %q", got)
	}
}

// --- Check / Format ---

func TestCheck(t *testing.T) {
	rt := runtime.New()
	if diags := rt.Check(`declare x = 1; escrever(x)`, ""); len(diags) != 0 {
		t.Errorf("unexpected diagnostics: %v", diags)
	}
	diags := rt.Check(`declare x = 1; escrever(y)`, "")
	var codes []string
	for _, d := range diags {
		codes = append(codes, d.Code)
	}
	if !reflect.DeepEqual(codes, []string{diagnostics.WUnused, diagnostics.EUndefined}) {
		t.Errorf("codes = %v", codes)
	}
	if diags := rt.Check(`raiz(4)`, ""); len(diags) != 1 || diags[0].Code != diagnostics.EUnknownFn {
		t.Errorf("parse diagnostics = %v", diags)
	}
}

func TestFormat(t *testing.T) {
	rt := runtime.New()
	got, err := rt.Format(`declare   x=1;escrever( x )`, "")
	if err != nil {
		t.Fatal(err)
	}
	if got != "declare x = 1;\nescrever(x);\n" {
		t.Errorf("Format = %q", got)
	}
	if _, err := rt.Format(`declare`, ""); err == nil {
		t.Error("expected error for invalid source")
	}
}
