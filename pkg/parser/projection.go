package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/thomasrohde/cobral/pkg/lexer"
)

// projection is the parse-time view of declared names. It is best-effort:
// the evaluator remains the authority on what is bound at run time.
type projection struct {
	variables map[string]bool
	constants map[string]bool
	functions map[string]bool
	// libs maps an imported library name to its function names.
	libs map[string][]string
	// known holds every library registered with the parser, imported or not.
	known map[string][]string
	// scanned guards against import cycles during the file pre-scan.
	scanned map[string]bool
}

func newProjection(cfg *config) *projection {
	p := &projection{
		variables: make(map[string]bool),
		constants: make(map[string]bool),
		functions: make(map[string]bool),
		libs:      make(map[string][]string),
		known:     cfg.libraries,
		scanned:   make(map[string]bool),
	}
	for _, name := range cfg.prelude {
		if fns, ok := cfg.libraries[name]; ok {
			p.libs[name] = fns
		}
	}
	for _, name := range cfg.functions {
		p.functions[name] = true
	}
	for _, name := range cfg.constants {
		p.constants[name] = true
	}
	return p
}

func (p *projection) declareVariable(name string) { p.variables[name] = true }
func (p *projection) declareConstant(name string) { p.constants[name] = true }
func (p *projection) declareFunction(name string) { p.functions[name] = true }

func (p *projection) isConstant(name string) bool { return p.constants[name] }

func (p *projection) importLibrary(name string, fns []string) {
	p.libs[name] = fns
}

func (p *projection) isCallable(name string) bool {
	if p.functions[name] {
		return true
	}
	for _, fns := range p.libs {
		for _, fn := range fns {
			if fn == name {
				return true
			}
		}
	}
	return false
}

// callHint suggests the library that provides name, or a close match among
// the callable names.
func (p *projection) callHint(name string) string {
	libNames := make([]string, 0, len(p.known))
	for lib := range p.known {
		libNames = append(libNames, lib)
	}
	sort.Strings(libNames)
	for _, lib := range libNames {
		if _, imported := p.libs[lib]; imported {
			continue
		}
		for _, fn := range p.known[lib] {
			if fn == name {
				return fmt.Sprintf("adicione importe \"%s\"", lib)
			}
		}
	}

	var candidates []string
	for fn := range p.functions {
		candidates = append(candidates, fn)
	}
	for _, fns := range p.libs {
		candidates = append(candidates, fns...)
	}
	if best := closestMatch(name, candidates); best != "" {
		return fmt.Sprintf("você quis dizer '%s'?", best)
	}
	return ""
}

// closestMatch returns the best fuzzy match for name, or "" if nothing is close.
func closestMatch(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	sort.Strings(candidates)
	ranks := fuzzy.RankFindNormalizedFold(name, candidates)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", 3
	for _, c := range candidates {
		if d := fuzzy.LevenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}

// scanFile registers the functions, constants and library imports declared
// at any depth in an imported file without parsing it.
func (p *projection) scanFile(path string, cfg *config) {
	if p.scanned[path] {
		return
	}
	p.scanned[path] = true

	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	tokens, err := lexer.Tokenize(string(data), path)
	if err != nil {
		return
	}
	dir := filepath.Dir(path)
	for i := 0; i+1 < len(tokens); i++ {
		next := tokens[i+1]
		switch tokens[i].Type {
		case lexer.TokFunction:
			if next.Type == lexer.TokIdent {
				p.declareFunction(next.Value)
			}
		case lexer.TokConst:
			if next.Type == lexer.TokIdent {
				p.declareConstant(next.Value)
			}
		case lexer.TokImport:
			if next.Type != lexer.TokStringLit {
				continue
			}
			if fns, ok := cfg.libraries[next.Value]; ok {
				p.importLibrary(next.Value, fns)
			} else if nested, ok := ResolveImport(next.Value, dir, cfg.importPaths); ok {
				p.scanFile(nested, cfg)
			}
		}
	}
}

// ResolveImport locates a file import. Absolute paths are used as-is;
// relative paths are tried against baseDir and then each search path.
// The resolved path is always absolute.
func ResolveImport(path, baseDir string, searchPaths []string) (string, bool) {
	if filepath.IsAbs(path) {
		return filepath.Clean(path), isFile(path)
	}
	dirs := append([]string{baseDir}, searchPaths...)
	for _, dir := range dirs {
		candidate := CanonicalPath(filepath.Join(dir, path))
		if isFile(candidate) {
			return candidate, true
		}
	}
	return "", false
}

// CanonicalPath returns the cleaned absolute form of path, or the cleaned
// path itself when the working directory is unavailable.
func CanonicalPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
