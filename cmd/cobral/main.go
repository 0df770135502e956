// Command cobral is the Cobral CLI entry point.
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/thomasrohde/cobral/pkg/config"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/formatter"
	"github.com/thomasrohde/cobral/pkg/help"
	"github.com/thomasrohde/cobral/pkg/runtime"
	"github.com/thomasrohde/cobral/pkg/stdlib"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// Exit codes.
const (
	exitOK          = 0
	exitUsage       = 1
	exitDiagnostics = 2
	exitRuntime     = 4
	exitInterrupted = 130
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "uso: cobral <comando> [opções]")
		fmt.Fprintln(os.Stderr, "comandos: run, check, fmt, repl, help, config, version")
		os.Exit(exitUsage)
	}

	cmd := os.Args[1]
	switch cmd {
	case "run":
		os.Exit(cmdRun(os.Args[2:]))
	case "check":
		os.Exit(cmdCheck(os.Args[2:]))
	case "fmt":
		os.Exit(cmdFmt(os.Args[2:]))
	case "repl":
		os.Exit(cmdRepl(os.Args[2:]))
	case "config":
		os.Exit(cmdConfig(os.Args[2:]))
	case "help", "--help", "-h":
		os.Exit(cmdHelp(os.Args[2:]))
	case "version", "--version":
		fmt.Println("cobral", version)
		os.Exit(exitOK)
	default:
		fmt.Fprintf(os.Stderr, "Comando desconhecido: %s\n", cmd)
		os.Exit(exitUsage)
	}
}

// options holds the flags shared by run, check and repl.
type options struct {
	file          string
	json          bool
	debug         bool
	watch         bool
	noElapsed     bool
	vars          bool
	step          bool
	color         string
	maxIterations int64
	importPaths   []string
}

func parseOptions(args []string) (*options, error) {
	o := &options{maxIterations: -1}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		needValue := func() (string, error) {
			if i+1 >= len(args) {
				return "", fmt.Errorf("%s requer um valor", arg)
			}
			i++
			return args[i], nil
		}
		switch arg {
		case "--json":
			o.json = true
		case "--debug":
			o.debug = true
		case "--watch":
			o.watch = true
		case "--no-elapsed":
			o.noElapsed = true
		case "--vars":
			o.vars = true
		case "--step":
			o.step = true
		case "--no-color":
			o.color = config.ColorNever
		case "--color":
			v, err := needValue()
			if err != nil {
				return nil, err
			}
			o.color = v
		case "--max-iterations":
			v, err := needValue()
			if err != nil {
				return nil, err
			}
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("--max-iterations: valor inválido %q", v)
			}
			o.maxIterations = n
		case "--import-path", "-I":
			v, err := needValue()
			if err != nil {
				return nil, err
			}
			o.importPaths = append(o.importPaths, v)
		default:
			if strings.HasPrefix(arg, "-") && arg != "-" {
				return nil, fmt.Errorf("opção desconhecida: %s", arg)
			}
			o.file = arg
		}
	}
	return o, nil
}

// loadConfig resolves the configuration for the current directory and
// applies command-line overrides.
func loadConfig(o *options) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	cfg, _, err := config.Load(cwd)
	if err != nil {
		return nil, err
	}
	if o.color != "" {
		cfg.Color = o.color
	}
	if o.maxIterations >= 0 {
		cfg.MaxIterations = o.maxIterations
	}
	if o.noElapsed {
		cfg.ShowElapsed = false
	}
	cfg.ImportPaths = append(cfg.ImportPaths, o.importPaths...)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	color.NoColor = !cfg.UseColor(isTerminal(os.Stdout))
	return cfg, nil
}

func isTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// debugLogger returns a stderr logger when --debug is set.
func debugLogger(o *options) zerolog.Logger {
	if !o.debug {
		return zerolog.Nop()
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor}).
		With().Timestamp().Logger().Level(zerolog.DebugLevel)
}

func cmdCheck(args []string) int {
	o, err := parseOptions(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	if o.file == "" {
		fmt.Fprintln(os.Stderr, "uso: cobral check <arquivo> [--json]")
		return exitUsage
	}
	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	source, filename, code := readSource(o.file, o.json)
	if code != exitOK {
		return code
	}

	rt := runtime.New(runtime.WithConfig(cfg))
	diags := rt.Check(source, filename)
	if len(diags) > 0 {
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diags, !o.json))
		if diagnostics.HasErrors(diags) {
			return exitDiagnostics
		}
		return exitOK
	}

	if o.json {
		fmt.Println("[]")
	} else {
		fmt.Println("Nenhum erro encontrado.")
	}
	return exitOK
}

func cmdFmt(args []string) int {
	var file string
	write := false

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--write", "-w":
			write = true
		default:
			if !strings.HasPrefix(args[i], "-") || args[i] == "-" {
				file = args[i]
			}
		}
	}

	if file == "" {
		fmt.Fprintln(os.Stderr, "uso: cobral fmt <arquivo> [--write]")
		return exitUsage
	}
	if write && file == "-" {
		fmt.Fprintln(os.Stderr, "--write não pode ser usado com a entrada padrão")
		return exitUsage
	}

	source, filename, code := readSource(file, false)
	if code != exitOK {
		return code
	}

	rt := runtime.New()
	formatted, err := rt.Format(source, filename)
	if err != nil {
		var diagErr *runtime.DiagnosticError
		if errors.As(err, &diagErr) {
			fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics(diagErr.Diagnostics, true))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		return exitDiagnostics
	}

	if formatter.HasComments(source) {
		fmt.Fprintln(os.Stderr, "aviso: comentários não são preservados pelo formatador")
	}

	if write {
		if err := os.WriteFile(file, []byte(formatted), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "erro ao escrever o arquivo: %s\n", err)
			return exitUsage
		}
		return exitOK
	}
	fmt.Print(formatted)
	return exitOK
}

func cmdHelp(args []string) int {
	topic := ""
	for _, arg := range args {
		if !strings.HasPrefix(arg, "-") {
			topic = arg
		}
	}
	if topic == "" {
		fmt.Print(help.QUICKREF)
		return exitOK
	}
	return printTopic(topic)
}

func printTopic(topic string) int {
	name, content, err := help.MatchTopic(topic)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s\nTópicos disponíveis: %s\n", err, strings.Join(help.TopicList, ", "))
		return exitUsage
	}
	fmt.Print(content)
	if name == "bibliotecas" {
		fmt.Println()
		fmt.Print(help.LibraryIndex(stdlib.Default()))
	}
	return exitOK
}

// cmdConfig prints the resolved configuration and where it came from.
func cmdConfig(args []string) int {
	asJSON := false
	for _, arg := range args {
		if arg == "--json" {
			asJSON = true
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	cfg, path, err := config.Load(cwd)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}

	if asJSON {
		b, _ := json.MarshalIndent(struct {
			Source string         `json:"source,omitempty"`
			Config *config.Config `json:"config"`
		}{path, cfg}, "", "  ")
		fmt.Println(string(b))
		return exitOK
	}

	if path == "" {
		fmt.Println("# padrões (nenhum arquivo de configuração encontrado)")
	} else {
		fmt.Printf("# %s\n", path)
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	fmt.Print(string(out))
	return exitOK
}

func readSource(file string, asJSON bool) (string, string, int) {
	if file == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			fmt.Fprintf(os.Stderr, "erro ao ler a entrada padrão: %s\n", err)
			return "", "", exitUsage
		}
		return string(data), "", exitOK
	}

	source, err := os.ReadFile(file)
	if err != nil {
		diag := diagnostics.MakeDiag(diagnostics.EIO, fmt.Sprintf("não foi possível ler o arquivo: %s", file), nil, "")
		fmt.Fprintln(os.Stderr, diagnostics.FormatDiagnostics([]diagnostics.Diagnostic{diag}, !asJSON))
		return "", "", exitUsage
	}
	return string(source), file, exitOK
}
