package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/thomasrohde/cobral/internal/testutil"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/runtime"
)

func TestConformance(t *testing.T) {
	dirs, err := testutil.ListScenarios(testutil.ScenariosDir)
	if err != nil {
		t.Fatalf("failed to list scenarios: %v", err)
	}
	if len(dirs) == 0 {
		t.Fatal("no scenarios found")
	}

	for _, dir := range dirs {
		dir := dir
		t.Run(filepath.Base(dir), func(t *testing.T) {
			scenario, err := testutil.LoadScenario(dir)
			if err != nil {
				t.Fatalf("failed to load scenario: %v", err)
			}
			source, filename, err := testutil.ReadProgramFile(dir, scenario)
			if err != nil {
				t.Fatalf("failed to read program file: %v", err)
			}
			cfg, err := scenario.RunConfig()
			if err != nil {
				t.Fatal(err)
			}

			out := &logsink.Recorder{}
			rt := runtime.New(runtime.WithConfig(cfg), runtime.WithSink(out))

			switch scenario.Cmd {
			case "check":
				runCheckScenario(t, rt, source, filename, scenario)
			case "run":
				runRunScenario(t, rt, out, source, filename, scenario)
			}
		})
	}
}

func runCheckScenario(t *testing.T, rt *runtime.Runtime, source, filename string, scenario *testutil.Scenario) {
	t.Helper()

	diags := rt.Check(source, filename)
	exitCode := 0
	if diagnostics.HasErrors(diags) {
		exitCode = 2
	}
	if scenario.Expect.ExitCode != exitCode {
		t.Errorf("exit code: got %d, want %d (diagnostics: %v)", exitCode, scenario.Expect.ExitCode, diags)
	}
	checkDiagExpectations(t, diags, scenario)
}

func runRunScenario(t *testing.T, rt *runtime.Runtime, out *logsink.Recorder, source, filename string, scenario *testutil.Scenario) {
	t.Helper()

	var prompts []string
	inputs := scenario.Inputs
	input := func(_ context.Context, prompt string) (string, error) {
		prompts = append(prompts, prompt)
		if len(inputs) == 0 {
			return "", io.EOF
		}
		v := inputs[0]
		inputs = inputs[1:]
		return v, nil
	}

	result, execErr := rt.Run(context.Background(), source, filename, input)

	exitCode := 0
	var diagErr *runtime.DiagnosticError
	var rtErr *evaluator.RuntimeError
	switch {
	case errors.As(execErr, &diagErr):
		exitCode = 2
		checkDiagExpectations(t, diagErr.Diagnostics, scenario)
	case errors.As(execErr, &rtErr):
		exitCode = 4
		checkDiagExpectations(t, []diagnostics.Diagnostic{rtErr.Diagnostic()}, scenario)
	case result != nil && result.Cancelled:
		exitCode = 130
	case execErr != nil:
		t.Fatalf("unexpected error: %v", execErr)
	}

	if scenario.Expect.ExitCode != exitCode {
		t.Errorf("exit code: got %d, want %d (error: %v)", exitCode, scenario.Expect.ExitCode, execErr)
	}
	if result != nil && result.Cancelled != scenario.Expect.Cancelled {
		t.Errorf("cancelled: got %v, want %v", result.Cancelled, scenario.Expect.Cancelled)
	}
	if scenario.Expect.Prompts != nil && !reflect.DeepEqual(prompts, scenario.Expect.Prompts) {
		t.Errorf("prompts:\n  got:  %q\n  want: %q", prompts, scenario.Expect.Prompts)
	}

	var stdout, stderr []string
	for _, r := range out.Records() {
		if r.Level == logsink.LevelError {
			stderr = append(stderr, r.Message)
		} else {
			stdout = append(stdout, r.Message)
		}
	}
	checkLines(t, "stdout", stdout, scenario.Expect.Stdout, scenario.Expect.StdoutContains)
	checkLines(t, "stderr", stderr, scenario.Expect.Stderr, scenario.Expect.StderrContains)
}

func checkLines(t *testing.T, stream string, got, want []string, contains string) {
	t.Helper()

	if want != nil && !reflect.DeepEqual(got, want) {
		t.Errorf("%s:\n  got:  %q\n  want: %q", stream, got, want)
	}
	if contains != "" && !strings.Contains(strings.Join(got, "\n"), contains) {
		t.Errorf("%s should contain %q, got: %q", stream, contains, got)
	}
}

func checkDiagExpectations(t *testing.T, diags []diagnostics.Diagnostic, scenario *testutil.Scenario) {
	t.Helper()

	if len(scenario.Expect.Diagnostics) == 0 {
		return
	}

	diagsJSON, _ := json.Marshal(diags)
	var actualDiags []map[string]any
	if err := json.Unmarshal(diagsJSON, &actualDiags); err != nil {
		t.Fatalf("failed to parse actual diagnostics: %v", err)
	}

	for _, expected := range scenario.Expect.Diagnostics {
		found := false
		for _, actual := range actualDiags {
			if isSubset(expected, actual) {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("diagnostic not found: %v\n  got: %s", expected, diagsJSON)
		}
	}
}

// isSubset checks if expected is a subset of actual. expected comes from
// YAML, actual from JSON.
func isSubset(expected, actual any) bool {
	switch e := expected.(type) {
	case map[string]any:
		a, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range e {
			av, exists := a[k]
			if !exists {
				return false
			}
			if !isSubset(ev, av) {
				return false
			}
		}
		return true

	case []any:
		a, ok := actual.([]any)
		if !ok {
			return false
		}
		if len(e) > len(a) {
			return false
		}
		for i, ev := range e {
			if !isSubset(ev, a[i]) {
				return false
			}
		}
		return true

	case int:
		if af, ok := actual.(float64); ok {
			return float64(e) == af
		}
		return false

	case float64:
		if af, ok := actual.(float64); ok {
			return e == af
		}
		return false

	case string:
		if as, ok := actual.(string); ok {
			return e == as
		}
		return false

	case bool:
		if ab, ok := actual.(bool); ok {
			return e == ab
		}
		return false

	case nil:
		return actual == nil

	default:
		return fmt.Sprintf("%v", expected) == fmt.Sprintf("%v", actual)
	}
}
