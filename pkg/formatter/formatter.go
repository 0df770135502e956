// Package formatter implements the Cobral source code formatter.
package formatter

import (
	"math"
	"strconv"
	"strings"

	"github.com/thomasrohde/cobral/pkg/ast"
)

const indent = "  "

// Precedence table for binary operators (higher = tighter binding)
var precedence = map[ast.BinaryOp]int{
	ast.OpOr:  1,
	ast.OpAnd: 2,
	ast.OpEqEq: 3, ast.OpNeq: 3,
	ast.OpGt: 4, ast.OpLt: 4, ast.OpGtEq: 4, ast.OpLtEq: 4,
	ast.OpAdd: 5, ast.OpSub: 5,
	ast.OpMul: 6, ast.OpDiv: 6, ast.OpMod: 6,
}

func needsParens(child ast.Expr, parentOp ast.BinaryOp, isRight bool) bool {
	bin, ok := child.(*ast.BinaryExpr)
	if !ok {
		return false
	}
	childPrec := precedence[bin.Op]
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	// Operators are left-associative: same precedence on the right keeps its parens
	if childPrec == parentPrec && isRight {
		return true
	}
	return false
}

// Format pretty-prints a Cobral AST back to source code.
func Format(program *ast.Program) string {
	if len(program.Statements) == 0 {
		return ""
	}
	var lines []string
	for i, s := range program.Statements {
		if i > 0 && separated(program.Statements[i-1], s) {
			lines = append(lines, "")
		}
		lines = append(lines, formatStmt(s, 0))
	}
	return strings.Join(lines, "\n") + "\n"
}

// separated reports whether a blank line goes between two top-level statements.
func separated(prev, next ast.Stmt) bool {
	_, prevFn := prev.(*ast.FnDecl)
	_, nextFn := next.(*ast.FnDecl)
	return prevFn || nextFn
}

// HasComments checks if a source string contains Cobral comments (// or /* */).
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch ch := source[i]; {
		case inString && ch == '\\':
			i++
		case ch == '"':
			inString = !inString
		case ch == '\n':
			inString = false
		case !inString && ch == '/' && i+1 < len(source) && (source[i+1] == '/' || source[i+1] == '*'):
			return true
		}
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	prefix := strings.Repeat(indent, depth)
	switch stmt := s.(type) {
	case *ast.LetStmt:
		return prefix + formatLet(stmt, depth) + ";"
	case *ast.ConstStmt:
		return prefix + "declare constante " + stmt.Name + " = " + formatExpr(stmt.Value, depth) + ";"
	case *ast.AssignStmt:
		return prefix + formatAssign(stmt, depth) + ";"
	case *ast.ExprStmt:
		return prefix + formatExpr(stmt.Expr, depth) + ";"
	case *ast.ReturnStmt:
		if stmt.Value == nil {
			return prefix + "retorne;"
		}
		return prefix + "retorne " + formatExpr(stmt.Value, depth) + ";"
	case *ast.ImportStmt:
		return prefix + "importe " + quote(stmt.Path) + ";"
	case *ast.IfStmt:
		out := prefix + "se " + formatHeader(stmt.Cond, depth) + " " + formatBlock(stmt.Then, depth)
		for _, elif := range stmt.ElseIfs {
			out += " senao se " + formatHeader(elif.Cond, depth) + " " + formatBlock(elif.Body, depth)
		}
		if stmt.Else != nil {
			out += " senao " + formatBlock(stmt.Else, depth)
		}
		return out
	case *ast.WhileStmt:
		return prefix + "enquanto " + formatHeader(stmt.Cond, depth) + " " + formatBlock(stmt.Body, depth)
	case *ast.ForStmt:
		return prefix + "para (" + formatLet(stmt.Init, depth) + "; " +
			formatExpr(stmt.Cond, depth) + "; " + formatUpdate(stmt.Update, depth) + ") " +
			formatBlock(stmt.Body, depth)
	case *ast.SwitchStmt:
		return prefix + "escolha " + formatHeader(stmt.Subject, depth) + " " + formatSwitchBody(stmt, depth)
	case *ast.FnDecl:
		return prefix + "funcao " + stmt.Name + "(" + strings.Join(stmt.Params, ", ") + ") " +
			formatBlock(stmt.Body, depth)
	}
	return ""
}

func formatLet(stmt *ast.LetStmt, depth int) string {
	return "declare " + stmt.Name + " = " + formatExpr(stmt.Value, depth)
}

func formatAssign(stmt *ast.AssignStmt, depth int) string {
	target := stmt.Name
	if stmt.Index != nil {
		target += "[" + formatExpr(stmt.Index, depth) + "]"
	}
	return target + " = " + formatExpr(stmt.Value, depth)
}

func formatUpdate(s ast.Stmt, depth int) string {
	switch u := s.(type) {
	case *ast.LetStmt:
		return formatLet(u, depth)
	case *ast.AssignStmt:
		return formatAssign(u, depth)
	case *ast.ExprStmt:
		return formatExpr(u.Expr, depth)
	}
	return ""
}

func formatHeader(expr ast.Expr, depth int) string {
	return "(" + formatExpr(expr, depth) + ")"
}

func formatBlock(block *ast.Block, depth int) string {
	if block == nil || len(block.Statements) == 0 {
		return "{}"
	}
	return "{\n" + formatStmts(block.Statements, depth+1) + "\n" + strings.Repeat(indent, depth) + "}"
}

func formatStmts(stmts []ast.Stmt, depth int) string {
	lines := make([]string, len(stmts))
	for i, s := range stmts {
		lines[i] = formatStmt(s, depth)
	}
	return strings.Join(lines, "\n")
}

func formatSwitchBody(stmt *ast.SwitchStmt, depth int) string {
	inner := strings.Repeat(indent, depth+1)
	parts := []string{"{"}
	clauses := append([]*ast.CaseClause(nil), stmt.Cases...)
	if stmt.Default != nil {
		clauses = append(clauses, stmt.Default)
	}
	for _, c := range clauses {
		head := inner + "padrao:"
		if c.Value != nil {
			head = inner + "caso " + formatExpr(c.Value, depth+1) + ":"
		}
		parts = append(parts, head)
		if len(c.Body) > 0 {
			parts = append(parts, formatStmts(c.Body, depth+2))
		}
		if c.Break {
			parts = append(parts, strings.Repeat(indent, depth+2)+"pare;")
		}
	}
	parts = append(parts, strings.Repeat(indent, depth)+"}")
	return strings.Join(parts, "\n")
}

// FormatExpr renders a single expression in canonical form.
func FormatExpr(e ast.Expr) string {
	return formatExpr(e, 0)
}

func formatExpr(e ast.Expr, depth int) string {
	switch expr := e.(type) {
	case *ast.IntLiteral:
		return strconv.FormatInt(expr.Value, 10)
	case *ast.FloatLiteral:
		return formatFloatLiteral(expr.Value)
	case *ast.BoolLiteral:
		if expr.Value {
			return "verdadeiro"
		}
		return "falso"
	case *ast.StrLiteral:
		return quote(expr.Value)
	case *ast.Ident:
		return expr.Name
	case *ast.ListExpr:
		return formatList(expr, depth)
	case *ast.IndexExpr:
		return expr.Name + "[" + formatExpr(expr.Index, depth) + "]"
	case *ast.CallExpr:
		args := make([]string, len(expr.Args))
		for i, a := range expr.Args {
			args[i] = formatExpr(a, depth)
		}
		return expr.Name + "(" + strings.Join(args, ", ") + ")"
	case *ast.BinaryExpr:
		leftStr := formatExpr(expr.Left, depth)
		rightStr := formatExpr(expr.Right, depth)
		if needsParens(expr.Left, expr.Op, false) {
			leftStr = "(" + leftStr + ")"
		}
		if needsParens(expr.Right, expr.Op, true) {
			rightStr = "(" + rightStr + ")"
		}
		return leftStr + " " + string(expr.Op) + " " + rightStr
	case *ast.UnaryExpr:
		operandStr := formatExpr(expr.Operand, depth)
		switch operand := expr.Operand.(type) {
		case *ast.BinaryExpr, *ast.UnaryExpr:
			operandStr = "(" + operandStr + ")"
		case *ast.StepExpr:
			if operand.Prefix {
				operandStr = "(" + operandStr + ")"
			}
		}
		if expr.Op == ast.OpNot {
			return "nao " + operandStr
		}
		return string(expr.Op) + operandStr
	case *ast.StepExpr:
		if expr.Prefix {
			return string(expr.Op) + formatExpr(expr.Operand, depth)
		}
		return formatExpr(expr.Operand, depth) + string(expr.Op)
	}
	return ""
}

// quote renders s as a string literal using the escapes the lexer reads back.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

func formatFloatLiteral(value float64) string {
	if math.IsInf(value, 0) || math.IsNaN(value) {
		return strconv.FormatFloat(value, 'f', -1, 64)
	}

	raw := strconv.FormatFloat(value, 'g', -1, 64)
	// Check if it's in scientific notation
	if strings.ContainsAny(raw, "eE") {
		expanded := expandScientificNotation(raw)
		if !strings.Contains(expanded, ".") {
			expanded += ".0"
		}
		return expanded
	}
	if !strings.Contains(raw, ".") {
		raw += ".0"
	}
	return raw
}

func expandScientificNotation(value string) string {
	lower := strings.ToLower(value)
	parts := strings.SplitN(lower, "e", 2)
	if len(parts) != 2 {
		return value
	}

	mantissa := parts[0]
	exponent, err := strconv.Atoi(parts[1])
	if err != nil {
		return value
	}

	sign := ""
	digits := mantissa
	if strings.HasPrefix(digits, "-") {
		sign = "-"
		digits = digits[1:]
	} else if strings.HasPrefix(digits, "+") {
		digits = digits[1:]
	}

	dotIdx := strings.Index(digits, ".")
	intPart := digits
	fracPart := ""
	if dotIdx >= 0 {
		intPart = digits[:dotIdx]
		fracPart = digits[dotIdx+1:]
	}

	compact := intPart + fracPart
	decimalIndex := len(intPart) + exponent

	if decimalIndex <= 0 {
		return sign + "0." + strings.Repeat("0", -decimalIndex) + compact
	}
	if decimalIndex >= len(compact) {
		return sign + compact + strings.Repeat("0", decimalIndex-len(compact)) + ".0"
	}
	return sign + compact[:decimalIndex] + "." + compact[decimalIndex:]
}

func formatList(list *ast.ListExpr, depth int) string {
	if len(list.Elements) == 0 {
		return "[]"
	}

	// Try inline first
	inlineParts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		inlineParts[i] = formatExpr(e, depth+1)
	}
	inline := "[" + strings.Join(inlineParts, ", ") + "]"
	if len(inline) <= 72 {
		return inline
	}

	// Multi-line
	inner := strings.Repeat(indent, depth+1)
	outer := strings.Repeat(indent, depth)
	parts := make([]string, len(list.Elements))
	for i, e := range list.Elements {
		parts[i] = inner + formatExpr(e, depth+1)
	}
	return "[\n" + strings.Join(parts, ",\n") + "\n" + outer + "]"
}
