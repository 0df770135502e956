package main

import (
	"reflect"
	"testing"

	"github.com/thomasrohde/cobral/pkg/config"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/runtime"
)

func TestParseOptions(t *testing.T) {
	o, err := parseOptions([]string{"prog.cob", "--json", "--max-iterations", "50", "-I", "lib", "--no-color", "--no-elapsed", "--vars", "--step"})
	if err != nil {
		t.Fatal(err)
	}
	if o.file != "prog.cob" || !o.json || o.maxIterations != 50 || !o.noElapsed || !o.vars || !o.step {
		t.Errorf("options = %+v", o)
	}
	if o.color != config.ColorNever {
		t.Errorf("color = %q", o.color)
	}
	if !reflect.DeepEqual(o.importPaths, []string{"lib"}) {
		t.Errorf("importPaths = %v", o.importPaths)
	}
}

func TestParseOptions_Stdin(t *testing.T) {
	o, err := parseOptions([]string{"-"})
	if err != nil {
		t.Fatal(err)
	}
	if o.file != "-" || o.maxIterations != -1 {
		t.Errorf("options = %+v", o)
	}
}

func TestParseOptions_Errors(t *testing.T) {
	tests := [][]string{
		{"--max-iterations"},
		{"--max-iterations", "muitas"},
		{"--max-iterations", "-1"},
		{"--color"},
		{"--desconhecida"},
	}
	for _, args := range tests {
		if _, err := parseOptions(args); err == nil {
			t.Errorf("parseOptions(%q): expected error", args)
		}
	}
}

func TestDescribeStep(t *testing.T) {
	prog, err := runtime.New().Parse("declare x = 1;\nse (x > 0) { escrever(x) }", "")
	if err != nil {
		t.Fatal(err)
	}
	got := describeStep(prog.Statements[1], 1)
	want := "[passo] linha 2 (restam 1):\nse (x > 0) {\n  escrever(x);\n}"
	if got != want {
		t.Errorf("describeStep = %q, want %q", got, want)
	}
}

func TestEntryComplete(t *testing.T) {
	tests := []struct {
		entry string
		want  bool
	}{
		{"escrever(1)\n", true},
		{"funcao f() {\n", false},
		{"funcao f() {\n retorne 1\n}\n", true},
		{"declare v = [1,\n", false},
		{"escrever(\"{\")\n", true},
		{"declare s = \"aberto\n", true},
	}
	for _, tt := range tests {
		if got := entryComplete(tt.entry); got != tt.want {
			t.Errorf("entryComplete(%q) = %v, want %v", tt.entry, got, tt.want)
		}
	}
}

func TestComplete(t *testing.T) {
	env := evaluator.NewEnv()
	env.Define("contador", evaluator.NewInteger(1))
	env.DefineConst("CONTA", evaluator.NewInteger(2))

	got := complete(env, "escrever(con")
	want := []string{"escrever(constante", "escrever(contador"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("complete = %q, want %q", got, want)
	}
	if got := complete(env, "escrever("); got != nil {
		t.Errorf("complete with empty word = %q", got)
	}
	env.Define("ação", evaluator.NewString("x"))
	if got := complete(env, "escrever(aç"); !reflect.DeepEqual(got, []string{"escrever(ação"}) {
		t.Errorf("complete multibyte = %q", got)
	}
}
