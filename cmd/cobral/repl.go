package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/peterh/liner"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/evaluator"
	"github.com/thomasrohde/cobral/pkg/eventbus"
	"github.com/thomasrohde/cobral/pkg/formatter"
	"github.com/thomasrohde/cobral/pkg/lexer"
	"github.com/thomasrohde/cobral/pkg/runtime"
)

// prompter reads lines from the terminal for ler and the shell.
type prompter struct {
	ln *liner.State
}

func newPrompter() *prompter {
	ln := liner.NewLiner()
	ln.SetCtrlCAborts(true)
	return &prompter{ln: ln}
}

func (p *prompter) Close() {
	_ = p.ln.Close()
}

// input answers a ler request. Ctrl-C or end of input cancels the run.
func (p *prompter) input(_ context.Context, prompt string) (string, error) {
	if prompt == "" {
		prompt = "?"
	}
	text, err := p.ln.Prompt(prompt + " ")
	if err != nil {
		return "", err
	}
	return text, nil
}

// pause shows the next statement and waits for Enter. Ctrl-C or end of
// input cancels the run.
func (p *prompter) pause(ctx context.Context, stmt ast.Stmt, remaining int) error {
	fmt.Fprintln(os.Stderr, describeStep(stmt, remaining))
	_, err := p.input(ctx, "[Enter]")
	return err
}

// describeStep renders the statement about to run, one line per source line.
func describeStep(stmt ast.Stmt, remaining int) string {
	src := strings.TrimRight(formatter.Format(&ast.Program{Statements: []ast.Stmt{stmt}}), "\n")
	return fmt.Sprintf("[passo] linha %d (restam %d):\n%s", stmt.NodeSpan().StartLine, remaining, src)
}

func historyPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".cobral", "historico")
}

func cmdRepl(args []string) int {
	o, err := parseOptions(args)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return exitUsage
	}
	cfg.ShowElapsed = false

	bus := eventbus.New()
	rt := runtime.New(
		runtime.WithConfig(cfg),
		runtime.WithBus(bus),
		runtime.WithSink(outputSink(o)),
		runtime.WithLogger(debugLogger(o)),
	)
	session := rt.NewSession()

	p := newPrompter()
	defer p.Close()
	p.ln.SetCompleter(func(line string) []string {
		return complete(session.Env(), line)
	})

	hist := historyPath()
	if hist != "" {
		if f, err := os.Open(hist); err == nil {
			_, _ = p.ln.ReadHistory(f)
			f.Close()
		}
	}
	defer func() {
		if hist == "" {
			return
		}
		if err := os.MkdirAll(filepath.Dir(hist), 0o755); err != nil {
			return
		}
		if f, err := os.Create(hist); err == nil {
			_, _ = p.ln.WriteHistory(f)
			f.Close()
		}
	}()

	fmt.Printf("Cobral %s. Digite .ajuda para ver os comandos, .sair para encerrar.\n", version)

	var buf strings.Builder
	for {
		prompt := "cobral> "
		if buf.Len() > 0 {
			prompt = "   ...> "
		}
		line, err := p.ln.Prompt(prompt)
		if errors.Is(err, liner.ErrPromptAborted) {
			buf.Reset()
			continue
		}
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return exitOK
		}
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return exitUsage
		}

		if buf.Len() == 0 {
			if topic, ok := strings.CutPrefix(strings.TrimSpace(line), ".ajuda "); ok {
				printTopic(topic)
				continue
			}
			switch strings.TrimSpace(line) {
			case "":
				continue
			case ".sair":
				return exitOK
			case ".ajuda":
				printReplHelp()
				continue
			case ".vars":
				printVariables(session.Env())
				continue
			}
		}

		buf.WriteString(line)
		buf.WriteByte('\n')
		entry := buf.String()
		if !entryComplete(entry) {
			continue
		}
		buf.Reset()
		p.ln.AppendHistory(strings.Join(strings.Fields(entry), " "))

		res, err := execute(context.Background(), bus, func(ctx context.Context) (*runtime.Result, error) {
			return session.Eval(ctx, entry, p.input)
		})
		report(o, res, err)
	}
}

// entryComplete reports whether entry closes every brace, bracket and
// parenthesis it opens. Entries that fail to lex are complete so the
// parser can report them.
func entryComplete(entry string) bool {
	tokens, err := lexer.Tokenize(entry, "")
	if err != nil {
		return true
	}
	depth := 0
	for _, tok := range tokens {
		switch tok.Type {
		case lexer.TokLBrace, lexer.TokLBracket, lexer.TokLParen:
			depth++
		case lexer.TokRBrace, lexer.TokRBracket, lexer.TokRParen:
			depth--
		}
	}
	return depth <= 0
}

// complete offers keywords and bound names that extend the last word of line.
func complete(env *evaluator.Env, line string) []string {
	start := 0
	for i, r := range line {
		if r != '_' && !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			start = i + utf8.RuneLen(r)
		}
	}
	word := line[start:]
	if word == "" {
		return nil
	}

	names := append(lexer.Keywords(), env.Callables()...)
	names = append(names, env.Constants()...)
	for name := range env.Variables() {
		names = append(names, name)
	}
	sort.Strings(names)

	var out []string
	seen := make(map[string]bool)
	for _, name := range names {
		if strings.HasPrefix(name, word) && !seen[name] {
			seen[name] = true
			out = append(out, line[:start]+name)
		}
	}
	return out
}

func printReplHelp() {
	fmt.Println(`Comandos:
  .ajuda            mostra esta mensagem
  .ajuda <tópico>   mostra um tópico de "cobral help"
  .vars             lista as variáveis definidas
  .sair             encerra o shell
Entradas com chaves, colchetes ou parênteses abertos continuam na linha seguinte.
Ctrl-C descarta a entrada atual ou interrompe a execução.`)
}

func printVariables(env *evaluator.Env) {
	vars := env.Variables()
	names := make([]string, 0, len(vars))
	for name := range vars {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		v := vars[name]
		fmt.Printf("%s: %s = %s\n", name, evaluator.TypeName(v), evaluator.Format(v))
	}
}
