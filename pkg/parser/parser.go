// Package parser implements the Cobral language parser.
package parser

import (
	"fmt"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/lexer"
)

type parser struct {
	tokens []lexer.Token
	pos    int
	diags  []diagnostics.Diagnostic
	cfg    *config
	proj   *projection
	// switchDepth counts enclosing escolha bodies; pare is only valid inside one.
	switchDepth int
}

// Parse tokenizes source and parses it into an AST.
func Parse(source, filename string, opts ...Option) (*ast.Program, []diagnostics.Diagnostic) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		if le, ok := err.(*lexer.LexError); ok {
			return nil, []diagnostics.Diagnostic{le.Diag}
		}
		return nil, []diagnostics.Diagnostic{diagnostics.MakeDiag(diagnostics.ELex, err.Error(), nil, "")}
	}
	return ParseTokens(tokens, opts...)
}

// ParseTokens parses an already tokenized program. tokens must end with TokEOF.
func ParseTokens(tokens []lexer.Token, opts ...Option) (*ast.Program, []diagnostics.Diagnostic) {
	cfg := newConfig(opts)
	p := &parser{tokens: tokens, pos: 0, cfg: cfg, proj: newProjection(cfg)}
	prog := p.parseProgram()
	if len(p.diags) > 0 {
		return nil, p.diags
	}
	return prog, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.TokenType {
	return p.current().Type
}

func (p *parser) peekAt(offset int) lexer.TokenType {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.TokEOF
	}
	return p.tokens[idx].Type
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return tok
}

func (p *parser) expect(typ lexer.TokenType) (lexer.Token, bool) {
	tok := p.current()
	if tok.Type != typ {
		p.addError(fmt.Sprintf("Esperava-se %s, encontrado %s", typ, describe(tok)), &tok.Span)
		return tok, false
	}
	return p.advance(), true
}

// eatSemicolon consumes an optional ';'.
func (p *parser) eatSemicolon() {
	if p.peek() == lexer.TokSemicolon {
		p.advance()
	}
}

func (p *parser) addError(msg string, span *ast.Span) {
	p.addDiag(diagnostics.EParse, msg, span, "")
}

func (p *parser) addDiag(code, msg string, span *ast.Span, hint string) {
	p.diags = append(p.diags, diagnostics.MakeDiag(code, msg, span, hint))
}

func (p *parser) spanFrom(start ast.Span) ast.Span {
	prev := start
	if p.pos > 0 {
		prev = p.tokens[p.pos-1].Span
	}
	return p.spanFromTo(start, prev)
}

func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:      start.File,
		StartLine: start.StartLine,
		StartCol:  start.StartCol,
		EndLine:   end.EndLine,
		EndCol:    end.EndCol,
	}
}

func describe(tok lexer.Token) string {
	switch tok.Type {
	case lexer.TokEOF:
		return "fim do arquivo"
	case lexer.TokStringLit:
		return fmt.Sprintf("\"%s\"", tok.Value)
	default:
		return fmt.Sprintf("'%s'", tok.Value)
	}
}

// --- Program ---

func (p *parser) parseProgram() *ast.Program {
	startSpan := p.current().Span

	var stmts []ast.Stmt
	for p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
		p.eatSemicolon()
	}

	return &ast.Program{
		Span:       p.spanFrom(startSpan),
		Statements: stmts,
	}
}

func (p *parser) parseBlock() *ast.Block {
	start, ok := p.expect(lexer.TokLBrace)
	if !ok {
		return nil
	}
	var stmts []ast.Stmt
	for p.peek() != lexer.TokRBrace && p.peek() != lexer.TokEOF {
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		stmts = append(stmts, stmt)
		p.eatSemicolon()
	}
	end, ok := p.expect(lexer.TokRBrace)
	if !ok {
		return nil
	}
	return &ast.Block{
		Span:       p.spanFromTo(start.Span, end.Span),
		Statements: stmts,
	}
}

// --- Statements ---

func (p *parser) parseStmt() ast.Stmt {
	switch p.peek() {
	case lexer.TokLet:
		if s := p.parseLetStmt(); s != nil {
			return s
		}
	case lexer.TokConst:
		if s := p.parseConstStmt(); s != nil {
			return s
		}
	case lexer.TokIf:
		if s := p.parseIfStmt(); s != nil {
			return s
		}
	case lexer.TokWhile:
		if s := p.parseWhileStmt(); s != nil {
			return s
		}
	case lexer.TokFor:
		if s := p.parseForStmt(); s != nil {
			return s
		}
	case lexer.TokSwitch:
		if s := p.parseSwitchStmt(); s != nil {
			return s
		}
	case lexer.TokFunction:
		if s := p.parseFnDecl(); s != nil {
			return s
		}
	case lexer.TokReturn:
		if s := p.parseReturnStmt(); s != nil {
			return s
		}
	case lexer.TokImport:
		if s := p.parseImportStmt(); s != nil {
			return s
		}
	case lexer.TokBreak:
		tok := p.current()
		p.addError("Comando 'pare' só pode ser usado dentro de 'escolha'", &tok.Span)
	case lexer.TokIdent:
		return p.parseIdentStmt()
	default:
		if s := p.parseExprStmt(); s != nil {
			return s
		}
	}
	return nil
}

func (p *parser) parseLetStmt() *ast.LetStmt {
	start := p.advance() // consume 'declare'
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if p.proj.isConstant(nameTok.Value) {
		p.addDiag(diagnostics.EConstRedecl,
			fmt.Sprintf("Constante não pode ser redeclarada: %s", nameTok.Value), &nameTok.Span, "")
		return nil
	}
	if _, ok := p.expect(lexer.TokEquals); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	p.proj.declareVariable(nameTok.Value)
	return &ast.LetStmt{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Name:  nameTok.Value,
		Value: value,
	}
}

func (p *parser) parseConstStmt() *ast.ConstStmt {
	start := p.advance() // consume 'declare constante'
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if p.proj.isConstant(nameTok.Value) {
		p.addDiag(diagnostics.EConstRedecl,
			fmt.Sprintf("Constante não pode ser redeclarada: %s", nameTok.Value), &nameTok.Span, "")
		return nil
	}
	if _, ok := p.expect(lexer.TokEquals); !ok {
		return nil
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	p.proj.declareConstant(nameTok.Value)
	return &ast.ConstStmt{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Name:  nameTok.Value,
		Value: value,
	}
}

// parseIdentStmt handles `x = v`, `x[i] = v`, and expression statements
// that start with an identifier.
func (p *parser) parseIdentStmt() ast.Stmt {
	nameTok := p.current()

	switch p.peekAt(1) {
	case lexer.TokEquals:
		p.advance() // name
		p.advance() // '='
		if !p.checkAssignable(nameTok) {
			return nil
		}
		value := p.parseExpr()
		if value == nil {
			return nil
		}
		return &ast.AssignStmt{
			Span:  p.spanFromTo(nameTok.Span, value.NodeSpan()),
			Name:  nameTok.Value,
			Value: value,
		}

	case lexer.TokLBracket:
		// Speculatively parse `name[index]` and look for '='.
		savedPos, savedDiags := p.pos, len(p.diags)
		p.advance() // name
		p.advance() // '['
		index := p.parseExpr()
		if index != nil && p.peek() == lexer.TokRBracket && p.peekAt(1) == lexer.TokEquals {
			p.advance() // ']'
			p.advance() // '='
			if !p.checkAssignable(nameTok) {
				return nil
			}
			value := p.parseExpr()
			if value == nil {
				return nil
			}
			return &ast.AssignStmt{
				Span:  p.spanFromTo(nameTok.Span, value.NodeSpan()),
				Name:  nameTok.Value,
				Index: index,
				Value: value,
			}
		}
		p.pos, p.diags = savedPos, p.diags[:savedDiags]
	}

	return p.parseExprStmt()
}

func (p *parser) checkAssignable(nameTok lexer.Token) bool {
	if p.proj.isConstant(nameTok.Value) {
		p.addDiag(diagnostics.EConstAssign,
			fmt.Sprintf("Não é possível atribuir um valor a uma constante: %s", nameTok.Value),
			&nameTok.Span, "")
		return false
	}
	return true
}

func (p *parser) parseExprStmt() *ast.ExprStmt {
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	return &ast.ExprStmt{
		Span: expr.NodeSpan(),
		Expr: expr,
	}
}

// parseHeader parses the parenthesized `(expr)` after se, enquanto and escolha.
func (p *parser) parseHeader() ast.Expr {
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	expr := p.parseExpr()
	if expr == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}
	return expr
}

func (p *parser) parseIfStmt() *ast.IfStmt {
	start := p.advance() // consume 'se'
	cond := p.parseHeader()
	if cond == nil {
		return nil
	}
	then := p.parseBlock()
	if then == nil {
		return nil
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	end := then.Span

	for p.peek() == lexer.TokElse {
		elseTok := p.advance() // consume 'senao'
		if p.peek() == lexer.TokIf {
			p.advance() // consume 'se'
			c := p.parseHeader()
			if c == nil {
				return nil
			}
			body := p.parseBlock()
			if body == nil {
				return nil
			}
			stmt.ElseIfs = append(stmt.ElseIfs, &ast.ElseIf{
				Span: p.spanFromTo(elseTok.Span, body.Span),
				Cond: c,
				Body: body,
			})
			end = body.Span
			continue
		}
		body := p.parseBlock()
		if body == nil {
			return nil
		}
		stmt.Else = body
		end = body.Span
		break
	}

	stmt.Span = p.spanFromTo(start.Span, end)
	return stmt
}

func (p *parser) parseWhileStmt() *ast.WhileStmt {
	start := p.advance() // consume 'enquanto'
	cond := p.parseHeader()
	if cond == nil {
		return nil
	}
	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.WhileStmt{
		Span: p.spanFromTo(start.Span, body.Span),
		Cond: cond,
		Body: body,
	}
}

func (p *parser) parseForStmt() *ast.ForStmt {
	start := p.advance() // consume 'para'
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}

	if p.peek() != lexer.TokLet {
		tok := p.current()
		p.addError("Inicializador de laço inválido: esperava-se 'declare'", &tok.Span)
		return nil
	}
	init := p.parseLetStmt()
	if init == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}

	condTok := p.current()
	cond := p.parseExpr()
	if cond == nil {
		return nil
	}
	if !isConditionShape(cond) {
		p.addError("Condição de laço inválida", &condTok.Span)
		return nil
	}
	if _, ok := p.expect(lexer.TokSemicolon); !ok {
		return nil
	}

	updTok := p.current()
	update := p.parseStmt()
	if update == nil {
		return nil
	}
	if !isLoopUpdate(update) {
		p.addError("Atualização de laço inválida", &updTok.Span)
		return nil
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.ForStmt{
		Span:   p.spanFromTo(start.Span, body.Span),
		Init:   init,
		Cond:   cond,
		Update: update,
		Body:   body,
	}
}

// isConditionShape accepts comparisons, logical combinations of them, and
// negations. The loop condition is still checked for Boolean at run time.
func isConditionShape(e ast.Expr) bool {
	switch c := e.(type) {
	case *ast.BinaryExpr:
		return c.Op.IsComparison() || c.Op.IsLogical()
	case *ast.UnaryExpr:
		return c.Op == ast.OpNot
	case *ast.BoolLiteral:
		return true
	}
	return false
}

func isLoopUpdate(s ast.Stmt) bool {
	switch u := s.(type) {
	case *ast.AssignStmt, *ast.LetStmt:
		return true
	case *ast.ExprStmt:
		_, ok := u.Expr.(*ast.StepExpr)
		return ok
	}
	return false
}

func (p *parser) parseSwitchStmt() *ast.SwitchStmt {
	start := p.advance() // consume 'escolha'
	subject := p.parseHeader()
	if subject == nil {
		return nil
	}
	if _, ok := p.expect(lexer.TokLBrace); !ok {
		return nil
	}

	p.switchDepth++
	defer func() { p.switchDepth-- }()

	stmt := &ast.SwitchStmt{Subject: subject}
	for p.peek() != lexer.TokRBrace {
		tok := p.current()
		switch tok.Type {
		case lexer.TokCase:
			p.advance()
			value := p.parseExpr()
			if value == nil {
				return nil
			}
			clause := p.parseCaseBody(tok, value)
			if clause == nil {
				return nil
			}
			stmt.Cases = append(stmt.Cases, clause)
		case lexer.TokDefault:
			p.advance()
			if stmt.Default != nil {
				p.addError("Cláusula 'padrao' duplicada", &tok.Span)
				return nil
			}
			clause := p.parseCaseBody(tok, nil)
			if clause == nil {
				return nil
			}
			stmt.Default = clause
		default:
			p.addError(fmt.Sprintf("Esperava-se 'caso', 'padrao' ou '}', encontrado %s", describe(tok)), &tok.Span)
			return nil
		}
	}
	end := p.advance() // consume '}'

	stmt.Span = p.spanFromTo(start.Span, end.Span)
	return stmt
}

// parseCaseBody parses `: stmts [pare;]` up to the next caso, padrao or '}'.
func (p *parser) parseCaseBody(start lexer.Token, value ast.Expr) *ast.CaseClause {
	if _, ok := p.expect(lexer.TokColon); !ok {
		return nil
	}
	clause := &ast.CaseClause{Value: value}
	for {
		switch p.peek() {
		case lexer.TokCase, lexer.TokDefault, lexer.TokRBrace:
			clause.Span = p.spanFrom(start.Span)
			return clause
		case lexer.TokEOF:
			tok := p.current()
			p.addError("Esperava-se '}', encontrado fim do arquivo", &tok.Span)
			return nil
		case lexer.TokBreak:
			p.advance()
			if _, ok := p.expect(lexer.TokSemicolon); !ok {
				return nil
			}
			clause.Break = true
			clause.Span = p.spanFrom(start.Span)
			return clause
		}
		stmt := p.parseStmt()
		if stmt == nil {
			return nil
		}
		clause.Body = append(clause.Body, stmt)
		p.eatSemicolon()
	}
}

func (p *parser) parseFnDecl() *ast.FnDecl {
	start := p.advance() // consume 'funcao'
	nameTok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return nil
	}
	if _, ok := p.expect(lexer.TokLParen); !ok {
		return nil
	}
	var params []string
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		if len(params) > 0 {
			if _, ok := p.expect(lexer.TokComma); !ok {
				return nil
			}
		}
		paramTok, ok := p.expect(lexer.TokIdent)
		if !ok {
			return nil
		}
		params = append(params, paramTok.Value)
	}
	if _, ok := p.expect(lexer.TokRParen); !ok {
		return nil
	}

	// Registered before the body so recursive calls resolve.
	p.proj.declareFunction(nameTok.Value)
	for _, param := range params {
		p.proj.declareVariable(param)
	}

	body := p.parseBlock()
	if body == nil {
		return nil
	}
	return &ast.FnDecl{
		Span:   p.spanFromTo(start.Span, body.Span),
		Name:   nameTok.Value,
		Params: params,
		Body:   body,
	}
}

func (p *parser) parseReturnStmt() *ast.ReturnStmt {
	start := p.advance() // consume 'retorne'
	switch p.peek() {
	case lexer.TokSemicolon, lexer.TokRBrace, lexer.TokEOF:
		return &ast.ReturnStmt{Span: start.Span}
	}
	value := p.parseExpr()
	if value == nil {
		return nil
	}
	return &ast.ReturnStmt{
		Span:  p.spanFromTo(start.Span, value.NodeSpan()),
		Value: value,
	}
}

func (p *parser) parseImportStmt() *ast.ImportStmt {
	start := p.advance() // consume 'importe'
	pathTok, ok := p.expect(lexer.TokStringLit)
	if !ok {
		return nil
	}
	stmt := &ast.ImportStmt{
		Span: p.spanFromTo(start.Span, pathTok.Span),
		Path: pathTok.Value,
	}

	if fns, ok := p.cfg.libraries[pathTok.Value]; ok {
		p.proj.importLibrary(pathTok.Value, fns)
		return stmt
	}

	resolved, found := ResolveImport(pathTok.Value, p.cfg.baseDir, p.cfg.importPaths)
	if !found {
		p.addDiag(diagnostics.EImport,
			fmt.Sprintf("Erro ao carregar o arquivo: \"%s\". Verifique o caminho ou as permissões.", pathTok.Value),
			&pathTok.Span, "")
		return nil
	}
	stmt.Resolved = resolved
	p.proj.scanFile(resolved, p.cfg)
	return stmt
}

// --- Expressions (Pratt) ---

const (
	bpPrefix  = 13
	bpPostfix = 15
)

func infixBindingPower(t lexer.TokenType) (ast.BinaryOp, int, int, bool) {
	switch t {
	case lexer.TokOr:
		return ast.OpOr, 1, 2, true
	case lexer.TokAnd:
		return ast.OpAnd, 3, 4, true
	case lexer.TokEqEq:
		return ast.OpEqEq, 5, 6, true
	case lexer.TokBangEq:
		return ast.OpNeq, 5, 6, true
	case lexer.TokLt:
		return ast.OpLt, 7, 8, true
	case lexer.TokGt:
		return ast.OpGt, 7, 8, true
	case lexer.TokLtEq:
		return ast.OpLtEq, 7, 8, true
	case lexer.TokGtEq:
		return ast.OpGtEq, 7, 8, true
	case lexer.TokPlus:
		return ast.OpAdd, 9, 10, true
	case lexer.TokMinus:
		return ast.OpSub, 9, 10, true
	case lexer.TokStar:
		return ast.OpMul, 11, 12, true
	case lexer.TokSlash:
		return ast.OpDiv, 11, 12, true
	case lexer.TokPercent:
		return ast.OpMod, 11, 12, true
	}
	return "", 0, 0, false
}

func (p *parser) parseExpr() ast.Expr {
	return p.parseExprBP(0)
}

func (p *parser) parseExprBP(minBP int) ast.Expr {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}

	for {
		tok := p.current()

		if tok.Type == lexer.TokPlusPlus || tok.Type == lexer.TokMinusMinus {
			if bpPostfix < minBP {
				return left
			}
			p.advance()
			left = p.makeStep(tok, left, false, p.spanFromTo(left.NodeSpan(), tok.Span))
			if left == nil {
				return nil
			}
			continue
		}

		op, lbp, rbp, ok := infixBindingPower(tok.Type)
		if !ok || lbp < minBP {
			return left
		}
		p.advance()
		right := p.parseExprBP(rbp)
		if right == nil {
			return nil
		}
		left = &ast.BinaryExpr{
			Span:  p.spanFromTo(left.NodeSpan(), right.NodeSpan()),
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
}

func (p *parser) makeStep(opTok lexer.Token, operand ast.Expr, prefix bool, span ast.Span) ast.Expr {
	if _, ok := operand.(*ast.Ident); !ok {
		p.addError(fmt.Sprintf("Operador '%s' requer uma variável", opTok.Value), &opTok.Span)
		return nil
	}
	op := ast.OpInc
	if opTok.Type == lexer.TokMinusMinus {
		op = ast.OpDec
	}
	return &ast.StepExpr{Span: span, Op: op, Prefix: prefix, Operand: operand}
}

func (p *parser) parsePrefix() ast.Expr {
	tok := p.current()
	switch tok.Type {
	case lexer.TokMinus, lexer.TokPlus, lexer.TokNot:
		p.advance()
		operand := p.parseExprBP(bpPrefix)
		if operand == nil {
			return nil
		}
		op := ast.OpNeg
		switch tok.Type {
		case lexer.TokPlus:
			op = ast.OpPos
		case lexer.TokNot:
			op = ast.OpNot
		}
		return &ast.UnaryExpr{
			Span:    p.spanFromTo(tok.Span, operand.NodeSpan()),
			Op:      op,
			Operand: operand,
		}

	case lexer.TokPlusPlus, lexer.TokMinusMinus:
		p.advance()
		operand := p.parseExprBP(bpPostfix + 1)
		if operand == nil {
			return nil
		}
		return p.makeStep(tok, operand, true, p.spanFromTo(tok.Span, operand.NodeSpan()))
	}
	return p.parsePrimary()
}

func (p *parser) parsePrimary() ast.Expr {
	tok := p.current()

	switch tok.Type {
	case lexer.TokIntLit:
		p.advance()
		val, err := tok.Int()
		if err != nil {
			p.addError(fmt.Sprintf("Número inteiro inválido: %s", tok.Value), &tok.Span)
			return nil
		}
		return &ast.IntLiteral{Span: tok.Span, Value: val}

	case lexer.TokFloatLit:
		p.advance()
		val, err := tok.Float()
		if err != nil {
			p.addError(fmt.Sprintf("Número real inválido: %s", tok.Value), &tok.Span)
			return nil
		}
		return &ast.FloatLiteral{Span: tok.Span, Value: val}

	case lexer.TokStringLit:
		p.advance()
		return &ast.StrLiteral{Span: tok.Span, Value: tok.Value}

	case lexer.TokTrue:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: true}

	case lexer.TokFalse:
		p.advance()
		return &ast.BoolLiteral{Span: tok.Span, Value: false}

	case lexer.TokIdent:
		switch p.peekAt(1) {
		case lexer.TokLParen:
			return p.parseCallExpr()
		case lexer.TokLBracket:
			return p.parseIndexExpr()
		}
		p.advance()
		return &ast.Ident{Span: tok.Span, Name: tok.Value}

	case lexer.TokLParen:
		p.advance()
		inner := p.parseExpr()
		if inner == nil {
			return nil
		}
		if _, ok := p.expect(lexer.TokRParen); !ok {
			return nil
		}
		return inner

	case lexer.TokLBracket:
		return p.parseListExpr()

	case lexer.TokEOF:
		p.addError("Expressão inválida: fim do arquivo inesperado", &tok.Span)
		return nil

	default:
		p.addError(fmt.Sprintf("Expressão inválida: token inesperado %s", describe(tok)), &tok.Span)
		return nil
	}
}

func (p *parser) parseListExpr() ast.Expr {
	start := p.advance() // consume '['
	var elements []ast.Expr
	for p.peek() != lexer.TokRBracket && p.peek() != lexer.TokEOF {
		if len(elements) > 0 {
			if _, ok := p.expect(lexer.TokComma); !ok {
				return nil
			}
			if p.peek() == lexer.TokRBracket {
				break // trailing comma
			}
		}
		elem := p.parseExpr()
		if elem == nil {
			return nil
		}
		elements = append(elements, elem)
	}
	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	return &ast.ListExpr{
		Span:     p.spanFromTo(start.Span, end.Span),
		Elements: elements,
	}
}

func (p *parser) parseIndexExpr() ast.Expr {
	nameTok := p.advance()
	p.advance() // consume '['
	index := p.parseExpr()
	if index == nil {
		return nil
	}
	end, ok := p.expect(lexer.TokRBracket)
	if !ok {
		return nil
	}
	return &ast.IndexExpr{
		Span:  p.spanFromTo(nameTok.Span, end.Span),
		Name:  nameTok.Value,
		Index: index,
	}
}

func (p *parser) parseCallExpr() ast.Expr {
	nameTok := p.advance()
	if !p.checkCallable(nameTok) {
		return nil
	}
	p.advance() // consume '('

	var args []ast.Expr
	for p.peek() != lexer.TokRParen && p.peek() != lexer.TokEOF {
		if len(args) > 0 {
			if _, ok := p.expect(lexer.TokComma); !ok {
				return nil
			}
		}
		arg := p.parseExpr()
		if arg == nil {
			return nil
		}
		args = append(args, arg)
	}
	end, ok := p.expect(lexer.TokRParen)
	if !ok {
		return nil
	}
	return &ast.CallExpr{
		Span: p.spanFromTo(nameTok.Span, end.Span),
		Name: nameTok.Value,
		Args: args,
	}
}

func (p *parser) checkCallable(nameTok lexer.Token) bool {
	if p.proj.isCallable(nameTok.Value) {
		return true
	}
	p.addDiag(diagnostics.EUnknownFn,
		fmt.Sprintf("Função desconhecida: %s", nameTok.Value),
		&nameTok.Span, p.proj.callHint(nameTok.Value))
	return false
}
