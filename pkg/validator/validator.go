// Package validator implements lint checks over parsed Cobral programs.
//
// Scoping follows the evaluator: blocks of se, enquanto and escolha share
// the enclosing scope, para opens a scope that ends with the loop, and a
// function body sees its parameters plus the program's constants and
// functions.
package validator

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/formatter"
	"github.com/thomasrohde/cobral/pkg/parser"
)

// Static type names, matching evaluator.TypeName.
const (
	typeInt    = "inteiro"
	typeFloat  = "real"
	typeBool   = "booleano"
	typeString = "texto"
	typeList   = "vetor"
)

// builtinTypes holds the result type of builtin functions that always
// return the same kind.
var builtinTypes = map[string]string{
	"escrever": typeString,
	"erro":     typeString,
	"ler":      typeString,
	"int":      typeInt,
	"real":     typeFloat,
	"raiz":     typeFloat,
	"PI":       typeFloat,
}

type declKind int

const (
	kindVariable declKind = iota
	kindConstant
	kindParam
	kindImported
)

type binding struct {
	name string
	kind declKind
	span ast.Span
	typ  string
	// mixed is set once the variable has held values of different types.
	mixed bool
	used  bool
}

type scope struct {
	bindings map[string]*binding
	order    []*binding
	parent   *scope
	// function marks a call frame: outer variables are not visible past it.
	function bool
}

func newScope(parent *scope, function bool) *scope {
	return &scope{bindings: make(map[string]*binding), parent: parent, function: function}
}

func (s *scope) lookup(name string) *binding {
	crossed := false
	for sc := s; sc != nil; sc = sc.parent {
		if b, ok := sc.bindings[name]; ok && (!crossed || b.kind == kindConstant) {
			return b
		}
		if sc.function {
			crossed = true
		}
	}
	return nil
}

func (s *scope) visible() []string {
	var names []string
	crossed := false
	for sc := s; sc != nil; sc = sc.parent {
		for _, b := range sc.order {
			if !crossed || b.kind == kindConstant {
				names = append(names, b.name)
			}
		}
		if sc.function {
			crossed = true
		}
	}
	return names
}

type function struct {
	decl *ast.FnDecl
	used bool
}

// Option configures Validate.
type Option func(*validator)

// WithParseOptions sets the parser options used to read imported files.
func WithParseOptions(opts ...parser.Option) Option {
	return func(v *validator) {
		v.parseOpts = append(v.parseOpts, opts...)
	}
}

type validator struct {
	diags     []diagnostics.Diagnostic
	parseOpts []parser.Option
	functions map[string]*function
	fnOrder   []*function
	current   *ast.FnDecl
	imported  map[string]bool
}

// Validate lints a parsed program and returns its diagnostics sorted by
// position. Unused declarations are warnings; everything else is an error.
func Validate(program *ast.Program, opts ...Option) []diagnostics.Diagnostic {
	v := &validator{
		functions: make(map[string]*function),
		imported:  make(map[string]bool),
	}
	for _, opt := range opts {
		opt(v)
	}

	v.collectFunctions(program.Statements)
	root := newScope(nil, false)
	v.validateStmts(program.Statements, root)
	v.closeScope(root)

	for _, fn := range v.fnOrder {
		if !fn.used {
			span := fn.decl.Span
			v.addWarning(diagnostics.WUnused,
				fmt.Sprintf("Função '%s' é declarada mas não é usada.", fn.decl.Name), &span)
		}
	}

	sort.SliceStable(v.diags, func(i, j int) bool {
		a, b := v.diags[i].Span, v.diags[j].Span
		if a == nil || b == nil {
			return a != nil
		}
		if a.StartLine != b.StartLine {
			return a.StartLine < b.StartLine
		}
		return a.StartCol < b.StartCol
	})
	return v.diags
}

func (v *validator) addDiag(code, msg string, span *ast.Span, hint string) {
	v.diags = append(v.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (v *validator) addWarning(code, msg string, span *ast.Span) {
	v.diags = append(v.diags, diagnostics.MakeWarning(code, msg, span, ""))
}

// collectFunctions registers every function declared at any depth; the
// function table is global at run time.
func (v *validator) collectFunctions(stmts []ast.Stmt) {
	for _, stmt := range stmts {
		switch s := stmt.(type) {
		case *ast.FnDecl:
			if _, ok := v.functions[s.Name]; !ok {
				fn := &function{decl: s}
				v.functions[s.Name] = fn
				v.fnOrder = append(v.fnOrder, fn)
			}
			v.collectFunctions(s.Body.Statements)
		case *ast.IfStmt:
			v.collectFunctions(s.Then.Statements)
			for _, elif := range s.ElseIfs {
				v.collectFunctions(elif.Body.Statements)
			}
			if s.Else != nil {
				v.collectFunctions(s.Else.Statements)
			}
		case *ast.WhileStmt:
			v.collectFunctions(s.Body.Statements)
		case *ast.ForStmt:
			v.collectFunctions(s.Body.Statements)
		case *ast.SwitchStmt:
			for _, c := range s.Cases {
				v.collectFunctions(c.Body)
			}
			if s.Default != nil {
				v.collectFunctions(s.Default.Body)
			}
		}
	}
}

func (v *validator) closeScope(sc *scope) {
	for _, b := range sc.order {
		if b.used {
			continue
		}
		span := b.span
		switch b.kind {
		case kindVariable:
			v.addWarning(diagnostics.WUnused,
				fmt.Sprintf("Variável '%s' é declarada mas não é usada.", b.name), &span)
		case kindConstant:
			v.addWarning(diagnostics.WUnused,
				fmt.Sprintf("Constante '%s' é declarada mas não é usada.", b.name), &span)
		}
	}
}

func (v *validator) declare(sc *scope, name string, kind declKind, span ast.Span, typ string) {
	b := &binding{name: name, kind: kind, span: span, typ: typ}
	if kind == kindParam || kind == kindImported {
		b.used = true
	}
	sc.bindings[name] = b
	sc.order = append(sc.order, b)
}

func (v *validator) validateStmts(stmts []ast.Stmt, sc *scope) {
	for _, stmt := range stmts {
		v.validateStmt(stmt, sc)
	}
}

func (v *validator) validateStmt(stmt ast.Stmt, sc *scope) {
	switch s := stmt.(type) {
	case *ast.LetStmt:
		v.validateExpr(s.Value, sc)
		v.declare(sc, s.Name, kindVariable, s.Span, v.typeOf(s.Value, sc))

	case *ast.ConstStmt:
		v.validateExpr(s.Value, sc)
		v.declare(sc, s.Name, kindConstant, s.Span, v.typeOf(s.Value, sc))

	case *ast.AssignStmt:
		if s.Index != nil {
			v.validateExpr(s.Index, sc)
		}
		v.validateExpr(s.Value, sc)
		b := v.resolve(s.Name, s.Span, sc)
		if b != nil && s.Index == nil && !b.mixed {
			if typ := v.typeOf(s.Value, sc); typ != b.typ {
				b.typ, b.mixed = "", true
			}
		}

	case *ast.ExprStmt:
		v.validateExpr(s.Expr, sc)

	case *ast.ReturnStmt:
		if s.Value != nil {
			v.validateExpr(s.Value, sc)
		}

	case *ast.IfStmt:
		v.validateExpr(s.Cond, sc)
		v.validateStmts(s.Then.Statements, sc)
		for _, elif := range s.ElseIfs {
			v.validateExpr(elif.Cond, sc)
			v.validateStmts(elif.Body.Statements, sc)
		}
		if s.Else != nil {
			v.validateStmts(s.Else.Statements, sc)
		}

	case *ast.WhileStmt:
		v.validateExpr(s.Cond, sc)
		v.validateStmts(s.Body.Statements, sc)

	case *ast.ForStmt:
		loop := newScope(sc, false)
		v.validateStmt(s.Init, loop)
		v.validateExpr(s.Cond, loop)
		v.validateStmts(s.Body.Statements, loop)
		v.validateStmt(s.Update, loop)
		v.closeScope(loop)

	case *ast.SwitchStmt:
		v.validateExpr(s.Subject, sc)
		for _, c := range s.Cases {
			v.validateExpr(c.Value, sc)
			v.validateStmts(c.Body, sc)
		}
		if s.Default != nil {
			v.validateStmts(s.Default.Body, sc)
		}

	case *ast.FnDecl:
		frame := newScope(sc, true)
		for _, param := range s.Params {
			v.declare(frame, param, kindParam, s.Span, "")
		}
		saved := v.current
		v.current = s
		v.validateStmts(s.Body.Statements, frame)
		v.current = saved
		v.closeScope(frame)

	case *ast.ImportStmt:
		if s.Resolved != "" {
			v.validateImport(s, sc)
		}
	}
}

// validateImport parses an imported file and declares the names it binds
// at its top level.
func (v *validator) validateImport(s *ast.ImportStmt, sc *scope) {
	if v.imported[s.Resolved] {
		return
	}
	v.imported[s.Resolved] = true

	span := s.Span
	data, err := os.ReadFile(s.Resolved)
	if err != nil {
		v.addDiag(diagnostics.EImport,
			fmt.Sprintf("Erro ao carregar o arquivo: \"%s\". Verifique o caminho ou as permissões.", s.Path), &span, "")
		return
	}
	opts := append(append([]parser.Option(nil), v.parseOpts...), parser.WithBaseDir(filepath.Dir(s.Resolved)))
	prog, diags := parser.Parse(string(data), s.Resolved, opts...)
	if len(diags) > 0 {
		d := diags[0]
		hint := ""
		if d.Span != nil {
			hint = "em " + d.Span.String()
		}
		v.addDiag(diagnostics.EImport, fmt.Sprintf("Erro em \"%s\": %s", s.Path, d.Message), &span, hint)
		return
	}

	for _, stmt := range prog.Statements {
		switch d := stmt.(type) {
		case *ast.LetStmt:
			v.declare(sc, d.Name, kindImported, span, "")
		case *ast.ConstStmt:
			b := &binding{name: d.Name, kind: kindConstant, span: span, used: true}
			sc.bindings[d.Name] = b
			sc.order = append(sc.order, b)
		case *ast.FnDecl:
			if _, ok := v.functions[d.Name]; !ok {
				v.functions[d.Name] = &function{decl: d, used: true}
			}
		case *ast.ImportStmt:
			if d.Resolved != "" {
				v.validateImport(d, sc)
			}
		}
	}
}

// resolve marks name as used, or reports it as undefined.
func (v *validator) resolve(name string, span ast.Span, sc *scope) *binding {
	if b := sc.lookup(name); b != nil {
		b.used = true
		return b
	}
	hint := ""
	if best := closestMatch(name, sc.visible()); best != "" {
		hint = fmt.Sprintf("você quis dizer '%s'?", best)
	}
	v.addDiag(diagnostics.EUndefined,
		fmt.Sprintf("Identificador '%s' é usado mas não é declarado.", name), &span, hint)
	return nil
}

func (v *validator) validateExpr(expr ast.Expr, sc *scope) {
	if expr == nil {
		return
	}

	switch e := expr.(type) {
	case *ast.IntLiteral, *ast.FloatLiteral, *ast.BoolLiteral, *ast.StrLiteral:
		// literals are always valid

	case *ast.Ident:
		v.resolve(e.Name, e.Span, sc)

	case *ast.IndexExpr:
		v.resolve(e.Name, e.Span, sc)
		v.validateExpr(e.Index, sc)

	case *ast.ListExpr:
		for _, elem := range e.Elements {
			v.validateExpr(elem, sc)
		}

	case *ast.BinaryExpr:
		v.validateExpr(e.Left, sc)
		v.validateExpr(e.Right, sc)
		if e.Op.IsComparison() {
			v.checkComparison(e, sc)
		}

	case *ast.UnaryExpr:
		v.validateExpr(e.Operand, sc)

	case *ast.StepExpr:
		v.validateExpr(e.Operand, sc)

	case *ast.CallExpr:
		if fn, ok := v.functions[e.Name]; ok && fn.decl != v.current {
			fn.used = true
		}
		for _, arg := range e.Args {
			v.validateExpr(arg, sc)
		}
	}
}

func (v *validator) checkComparison(e *ast.BinaryExpr, sc *scope) {
	lt, rt := v.typeOf(e.Left, sc), v.typeOf(e.Right, sc)
	if lt == "" || rt == "" || lt == rt || isNumeric(lt) && isNumeric(rt) {
		return
	}
	span := e.Span
	v.addDiag(diagnostics.EIncompatibleCmp,
		fmt.Sprintf("Comparação incompatível: '%s' (%s) e '%s' (%s) não podem ser comparados.",
			formatter.FormatExpr(e.Left), lt, formatter.FormatExpr(e.Right), rt),
		&span, "")
}

func isNumeric(typ string) bool {
	return typ == typeInt || typ == typeFloat
}

// typeOf returns the static type of expr, or "" when it depends on run-time values.
func (v *validator) typeOf(expr ast.Expr, sc *scope) string {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return typeInt
	case *ast.FloatLiteral:
		return typeFloat
	case *ast.BoolLiteral:
		return typeBool
	case *ast.StrLiteral:
		return typeString
	case *ast.ListExpr:
		return typeList
	case *ast.Ident:
		if b := sc.lookup(e.Name); b != nil {
			return b.typ
		}
	case *ast.StepExpr:
		return v.typeOf(e.Operand, sc)
	case *ast.CallExpr:
		if _, user := v.functions[e.Name]; !user {
			return builtinTypes[e.Name]
		}
	case *ast.UnaryExpr:
		if e.Op == ast.OpNot {
			return typeBool
		}
		if typ := v.typeOf(e.Operand, sc); isNumeric(typ) {
			return typ
		}
	case *ast.BinaryExpr:
		if e.Op.IsComparison() || e.Op.IsLogical() {
			return typeBool
		}
		lt, rt := v.typeOf(e.Left, sc), v.typeOf(e.Right, sc)
		switch {
		case e.Op == ast.OpAdd && (lt == typeString || rt == typeString):
			return typeString
		case lt == typeInt && rt == typeInt:
			return typeInt
		case isNumeric(lt) && isNumeric(rt):
			return typeFloat
		}
	}
	return ""
}

// closestMatch returns the best fuzzy match for name, or "" if nothing is close.
func closestMatch(name string, candidates []string) string {
	if len(candidates) == 0 {
		return ""
	}
	sorted := append([]string(nil), candidates...)
	sort.Strings(sorted)
	ranks := fuzzy.RankFindNormalizedFold(name, sorted)
	if len(ranks) > 0 {
		sort.Sort(ranks)
		return ranks[0].Target
	}
	best, bestDist := "", 3
	for _, c := range sorted {
		if d := fuzzy.LevenshteinDistance(name, c); d < bestDist {
			best, bestDist = c, d
		}
	}
	return best
}
