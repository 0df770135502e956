package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/peterh/liner"
	"golang.org/x/sync/errgroup"

	"github.com/thomasrohde/cobral/pkg/config"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/eventbus"
	"github.com/thomasrohde/cobral/pkg/logsink"
	"github.com/thomasrohde/cobral/pkg/runtime"
)

// watchDebounce absorbs the burst of events editors emit for one save.
const watchDebounce = 100 * time.Millisecond

func cmdRun(args []string) int {
	o, err := parseOptions(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if o.file == "" {
		fmt.Fprintln(os.Stderr, "uso: cobral run <arquivo> [--json] [--watch] [--debug] [--no-elapsed] [--vars] [--step] [--max-iterations N] [-I dir]")
		return exitUsage
	}
	if o.watch && o.file == "-" {
		fmt.Fprintln(os.Stderr, "--watch não pode ser usado com a entrada padrão")
		return exitUsage
	}
	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	ln := newPrompter()
	defer ln.Close()

	if o.watch {
		return watch(o, func(ctx context.Context) int {
			return runFile(ctx, o, cfg, ln)
		})
	}
	return runFile(context.Background(), o, cfg, ln)
}

func runFile(ctx context.Context, o *options, cfg *config.Config, ln *prompter) int {
	source, filename, code := readSource(o.file, o.json)
	if code != exitOK {
		return code
	}

	bus := eventbus.New()
	opts := []runtime.Option{
		runtime.WithConfig(cfg),
		runtime.WithBus(bus),
		runtime.WithSink(outputSink(o)),
		runtime.WithLogger(debugLogger(o)),
	}
	if o.step {
		opts = append(opts, runtime.WithStepper(ln.pause))
	}
	rt := runtime.New(opts...)
	res, err := execute(ctx, bus, func(ctx context.Context) (*runtime.Result, error) {
		return rt.Run(ctx, source, filename, ln.input)
	})
	code = report(o, res, err)
	if o.vars && res != nil && res.Env != nil {
		b, err := evaluator.BindingsToJSON(res.Env.Variables())
		if err != nil {
			fmt.Fprintf(os.Stderr, "erro ao serializar as variáveis: %s\n", err)
			return exitRuntime
		}
		fmt.Println(string(b))
	}
	return code
}

// outputSink prints program output as plain lines, or as one JSON record
// per line with --json.
func outputSink(o *options) logsink.Sink {
	if !o.json {
		return logsink.NewConsoleSink(os.Stdout, os.Stderr, !color.NoColor)
	}
	enc := json.NewEncoder(os.Stdout)
	return logsink.SinkFunc(func(r logsink.Record) {
		_ = enc.Encode(r)
	})
}

// execute runs fn while a second goroutine turns SIGINT and SIGTERM into a
// break_exec event on bus.
func execute(ctx context.Context, bus *eventbus.Bus, fn func(context.Context) (*runtime.Result, error)) (*runtime.Result, error) {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	var (
		g      errgroup.Group
		res    *runtime.Result
		runErr error
	)
	done := make(chan struct{})
	g.Go(func() error {
		defer close(done)
		res, runErr = fn(ctx)
		return nil
	})
	g.Go(func() error {
		select {
		case <-sigc:
			bus.Emit(eventbus.BreakExec, "")
		case <-done:
		}
		return nil
	})
	_ = g.Wait()
	return res, runErr
}

// report prints what the program's own output does not cover and maps the
// outcome to an exit code.
func report(o *options, res *runtime.Result, err error) int {
	var diagErr *runtime.DiagnosticError
	if errors.As(err, &diagErr) {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, !o.json))
		return exitDiagnostics
	}

	var rtErr *evaluator.RuntimeError
	if errors.As(err, &rtErr) {
		// the run already logged "Erro na linha N" through the sink
		if o.json {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostic(rtErr.Diagnostic(), false))
		} else if rtErr.Hint != "" {
			fmt.Fprintf(os.Stderr, "  dica: %s\n", rtErr.Hint)
		}
		return exitRuntime
	}

	if res != nil && res.Cancelled {
		if err != nil && !errors.Is(err, liner.ErrPromptAborted) && !errors.Is(err, io.EOF) {
			fmt.Fprintln(os.Stderr, err)
		}
		fmt.Fprintln(os.Stderr, "Execução interrompida.")
		return exitInterrupted
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitRuntime
	}
	return exitOK
}

// watch reruns the program each time its file changes, cancelling a run
// still in progress. A pending ler must be answered before the restart.
func watch(o *options, run func(ctx context.Context) int) int {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	defer w.Close()

	dir := filepath.Dir(o.file)
	if err := w.Add(dir); err != nil {
		fmt.Fprintf(os.Stderr, "não foi possível observar %s: %s\n", dir, err)
		return exitUsage
	}
	target := filepath.Base(o.file)

	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigc)

	for {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan int, 1)
		go func() { done <- run(ctx) }()

		changed := false
		for !changed {
			select {
			case code := <-done:
				fmt.Fprintf(os.Stderr, "[código de saída %d; aguardando alterações em %s]\n", code, o.file)
				done = nil
			case ev, ok := <-w.Events:
				if !ok {
					cancel()
					return exitUsage
				}
				if filepath.Base(ev.Name) == target && ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					changed = true
				}
			case err, ok := <-w.Errors:
				if ok {
					fmt.Fprintf(os.Stderr, "erro ao observar: %s\n", err)
				}
			case <-sigc:
				cancel()
				if done != nil {
					<-done
				}
				return exitInterrupted
			}
		}

		cancel()
		if done != nil {
			<-done
		}
		drainEvents(w, watchDebounce)
		fmt.Fprintf(os.Stderr, "[%s alterado; executando novamente]\n", o.file)
	}
}

func drainEvents(w *fsnotify.Watcher, quiet time.Duration) {
	timer := time.NewTimer(quiet)
	defer timer.Stop()
	for {
		select {
		case _, ok := <-w.Events:
			if !ok {
				return
			}
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(quiet)
		case <-timer.C:
			return
		}
	}
}
