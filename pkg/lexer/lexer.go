// Package lexer implements the Cobral language tokenizer.
package lexer

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
)

// TokenType identifies the type of a lexer token.
type TokenType int

const (
	// Keywords
	TokLet      TokenType = iota // declare
	TokConst                     // declare constante
	TokIf                        // se
	TokElse                      // senao
	TokSwitch                    // escolha
	TokCase                      // caso
	TokDefault                   // padrao
	TokFor                       // para
	TokWhile                     // enquanto
	TokNot                       // nao
	TokAnd                       // e
	TokOr                        // ou
	TokFunction                  // funcao
	TokReturn                    // retorne
	TokBreak                     // pare
	TokImport                    // importe
	TokTrue                      // verdadeiro
	TokFalse                     // falso

	// Literals
	TokIntLit
	TokFloatLit
	TokStringLit

	// Identifiers
	TokIdent

	// Punctuation
	TokLBrace    // {
	TokRBrace    // }
	TokLBracket  // [
	TokRBracket  // ]
	TokLParen    // (
	TokRParen    // )
	TokColon     // :
	TokSemicolon // ;
	TokComma     // ,
	TokEquals    // =

	// Comparison operators
	TokGtEq   // >=
	TokLtEq   // <=
	TokEqEq   // ==
	TokBangEq // !=
	TokGt     // >
	TokLt     // <

	// Arithmetic operators
	TokPlus       // +
	TokPlusPlus   // ++
	TokMinus      // -
	TokMinusMinus // --
	TokStar       // *
	TokSlash      // /
	TokPercent    // %

	// Special
	TokEOF
)

var tokenNames = map[TokenType]string{
	TokLet: "declare", TokConst: "declare constante", TokIf: "se", TokElse: "senao",
	TokSwitch: "escolha", TokCase: "caso", TokDefault: "padrao", TokFor: "para",
	TokWhile: "enquanto", TokNot: "nao", TokAnd: "e", TokOr: "ou", TokFunction: "funcao",
	TokReturn: "retorne", TokBreak: "pare", TokImport: "importe", TokTrue: "verdadeiro",
	TokFalse: "falso", TokIntLit: "número inteiro", TokFloatLit: "número real",
	TokStringLit: "texto", TokIdent: "identificador", TokLBrace: "'{'", TokRBrace: "'}'",
	TokLBracket: "'['", TokRBracket: "']'", TokLParen: "'('", TokRParen: "')'",
	TokColon: "':'", TokSemicolon: "';'", TokComma: "','", TokEquals: "'='",
	TokGtEq: "'>='", TokLtEq: "'<='", TokEqEq: "'=='", TokBangEq: "'!='", TokGt: "'>'",
	TokLt: "'<'", TokPlus: "'+'", TokPlusPlus: "'++'", TokMinus: "'-'",
	TokMinusMinus: "'--'", TokStar: "'*'", TokSlash: "'/'", TokPercent: "'%'",
	TokEOF: "fim do arquivo",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("token(%d)", int(t))
}

// IsKeyword reports whether t is a reserved word.
func (t TokenType) IsKeyword() bool {
	return t >= TokLet && t <= TokFalse
}

// Token represents a single lexer token.
type Token struct {
	Type  TokenType
	Value string
	Span  ast.Span
}

// Int returns the payload of an integer literal.
func (t Token) Int() (int64, error) {
	return strconv.ParseInt(t.Value, 10, 64)
}

// Float returns the payload of a float literal.
func (t Token) Float() (float64, error) {
	return strconv.ParseFloat(t.Value, 64)
}

var keywords = map[string]TokenType{
	"declare":    TokLet,
	"se":         TokIf,
	"senao":      TokElse,
	"escolha":    TokSwitch,
	"caso":       TokCase,
	"padrao":     TokDefault,
	"para":       TokFor,
	"enquanto":   TokWhile,
	"nao":        TokNot,
	"e":          TokAnd,
	"ou":         TokOr,
	"funcao":     TokFunction,
	"retorne":    TokReturn,
	"pare":       TokBreak,
	"importe":    TokImport,
	"verdadeiro": TokTrue,
	"falso":      TokFalse,
}

// Keywords returns the reserved words of the language.
func Keywords() []string {
	out := make([]string, 0, len(keywords)+1)
	for k := range keywords {
		out = append(out, k)
	}
	return append(out, "constante")
}

type scanner struct {
	source   string
	filename string
	pos      int
	line     int
	col      int
}

func newScanner(source, filename string) *scanner {
	return &scanner{
		source:   source,
		filename: filename,
		pos:      0,
		line:     1,
		col:      1,
	}
}

func (s *scanner) atEnd() bool {
	return s.pos >= len(s.source)
}

func (s *scanner) peek() byte {
	if s.atEnd() {
		return 0
	}
	return s.source[s.pos]
}

func (s *scanner) peekAt(offset int) byte {
	p := s.pos + offset
	if p >= len(s.source) {
		return 0
	}
	return s.source[p]
}

func (s *scanner) peekRune() (rune, int) {
	if s.atEnd() {
		return 0, 0
	}
	return utf8.DecodeRuneInString(s.source[s.pos:])
}

// advance consumes one rune and returns its first byte.
func (s *scanner) advance() byte {
	ch := s.source[s.pos]
	_, size := utf8.DecodeRuneInString(s.source[s.pos:])
	s.pos += size
	if ch == '\n' {
		s.line++
		s.col = 1
	} else {
		s.col++
	}
	return ch
}

func (s *scanner) span(startLine, startCol int) ast.Span {
	return ast.Span{
		File:      s.filename,
		StartLine: startLine,
		StartCol:  startCol,
		EndLine:   s.line,
		EndCol:    s.col,
	}
}

func (s *scanner) skipWhitespaceAndComments() error {
	for !s.atEnd() {
		ch := s.peek()
		switch {
		case ch == ' ' || ch == '\t' || ch == '\r' || ch == '\n':
			s.advance()
		case ch == '/' && s.peekAt(1) == '/':
			for !s.atEnd() && s.peek() != '\n' {
				s.advance()
			}
		case ch == '/' && s.peekAt(1) == '*':
			startLine, startCol := s.line, s.col
			s.advance()
			s.advance()
			for {
				if s.atEnd() {
					return s.lexError(startLine, startCol, "Comentário de bloco não terminado")
				}
				if s.peek() == '*' && s.peekAt(1) == '/' {
					s.advance()
					s.advance()
					break
				}
				s.advance()
			}
		default:
			return nil
		}
	}
	return nil
}

func isIdentStart(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func (s *scanner) scanString() (Token, error) {
	startLine, startCol := s.line, s.col
	s.advance() // consume opening "

	var buf strings.Builder
	for !s.atEnd() {
		ch := s.peek()
		if ch == '"' {
			s.advance() // consume closing "
			return Token{
				Type:  TokStringLit,
				Value: buf.String(),
				Span:  s.span(startLine, startCol),
			}, nil
		}
		if ch == '\\' {
			s.advance() // consume backslash
			if s.atEnd() {
				return Token{}, s.lexError(startLine, startCol, "Texto não terminado")
			}
			switch esc := s.peek(); esc {
			case '"':
				buf.WriteByte('"')
				s.advance()
			case '\\':
				buf.WriteByte('\\')
				s.advance()
			case 'n':
				buf.WriteByte('\n')
				s.advance()
			case 't':
				buf.WriteByte('\t')
				s.advance()
			default:
				// unknown escapes are kept literally
				buf.WriteByte('\\')
			}
			continue
		}
		r, size := s.peekRune()
		if r == utf8.RuneError && size == 1 {
			return Token{}, s.lexError(startLine, startCol, "Caractere UTF-8 inválido no texto")
		}
		buf.WriteRune(r)
		s.advance()
	}
	return Token{}, s.lexError(startLine, startCol, "Texto não terminado")
}

func (s *scanner) scanNumber() (Token, error) {
	startLine, startCol := s.line, s.col
	startPos := s.pos
	isFloat := false

	for !s.atEnd() && (isDigit(s.peek()) || s.peek() == '.') {
		if s.peek() == '.' {
			if isFloat {
				for !s.atEnd() && (isDigit(s.peek()) || s.peek() == '.') {
					s.advance()
				}
				return Token{}, s.lexError(startLine, startCol,
					fmt.Sprintf("Número inválido: %s", s.source[startPos:s.pos]))
			}
			isFloat = true
		}
		s.advance()
	}

	text := s.source[startPos:s.pos]
	tok := Token{Type: TokIntLit, Value: text, Span: s.span(startLine, startCol)}
	if isFloat {
		tok.Type = TokFloatLit
		if _, err := tok.Float(); err != nil {
			return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("Número inválido: %s", text))
		}
		return tok, nil
	}
	if _, err := tok.Int(); err != nil {
		return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("Número fora do intervalo: %s", text))
	}
	return tok, nil
}

func (s *scanner) scanWord() string {
	startPos := s.pos
	for !s.atEnd() {
		r, _ := s.peekRune()
		if !isIdentPart(r) {
			break
		}
		s.advance()
	}
	return norm.NFC.String(s.source[startPos:s.pos])
}

func (s *scanner) scanIdentOrKeyword() Token {
	startLine, startCol := s.line, s.col
	text := s.scanWord()

	// "declare" followed by "constante" merges into a single TokConst.
	if text == "declare" {
		save := *s
		if err := s.skipWhitespaceAndComments(); err == nil && !s.atEnd() {
			if r, _ := s.peekRune(); isIdentStart(r) && s.scanWord() == "constante" {
				return Token{
					Type:  TokConst,
					Value: "declare constante",
					Span:  s.span(startLine, startCol),
				}
			}
		}
		*s = save
	}

	if tokType, ok := keywords[text]; ok {
		return Token{
			Type:  tokType,
			Value: text,
			Span:  s.span(startLine, startCol),
		}
	}

	return Token{
		Type:  TokIdent,
		Value: text,
		Span:  s.span(startLine, startCol),
	}
}

func (s *scanner) lexError(line, col int, msg string) error {
	diag := diagnostics.MakeDiag(
		diagnostics.ELex,
		msg,
		&ast.Span{File: s.filename, StartLine: line, StartCol: col, EndLine: line, EndCol: col + 1},
		"",
	)
	return &LexError{Diag: diag}
}

// LexError wraps a diagnostic for lex errors.
type LexError struct {
	Diag diagnostics.Diagnostic
}

func (e *LexError) Error() string {
	return e.Diag.Error()
}

func (s *scanner) nextToken() (Token, error) {
	if err := s.skipWhitespaceAndComments(); err != nil {
		return Token{}, err
	}

	if s.atEnd() {
		return Token{
			Type:  TokEOF,
			Value: "",
			Span:  s.span(s.line, s.col),
		}, nil
	}

	ch := s.peek()
	startLine, startCol := s.line, s.col

	// Single-char tokens
	switch ch {
	case '{':
		s.advance()
		return Token{Type: TokLBrace, Value: "{", Span: s.span(startLine, startCol)}, nil
	case '}':
		s.advance()
		return Token{Type: TokRBrace, Value: "}", Span: s.span(startLine, startCol)}, nil
	case '[':
		s.advance()
		return Token{Type: TokLBracket, Value: "[", Span: s.span(startLine, startCol)}, nil
	case ']':
		s.advance()
		return Token{Type: TokRBracket, Value: "]", Span: s.span(startLine, startCol)}, nil
	case '(':
		s.advance()
		return Token{Type: TokLParen, Value: "(", Span: s.span(startLine, startCol)}, nil
	case ')':
		s.advance()
		return Token{Type: TokRParen, Value: ")", Span: s.span(startLine, startCol)}, nil
	case ':':
		s.advance()
		return Token{Type: TokColon, Value: ":", Span: s.span(startLine, startCol)}, nil
	case ';':
		s.advance()
		return Token{Type: TokSemicolon, Value: ";", Span: s.span(startLine, startCol)}, nil
	case ',':
		s.advance()
		return Token{Type: TokComma, Value: ",", Span: s.span(startLine, startCol)}, nil
	case '*':
		s.advance()
		return Token{Type: TokStar, Value: "*", Span: s.span(startLine, startCol)}, nil
	case '%':
		s.advance()
		return Token{Type: TokPercent, Value: "%", Span: s.span(startLine, startCol)}, nil
	case '/':
		s.advance()
		return Token{Type: TokSlash, Value: "/", Span: s.span(startLine, startCol)}, nil
	}

	// Multi-char tokens
	switch ch {
	case '+':
		s.advance()
		if !s.atEnd() && s.peek() == '+' {
			s.advance()
			return Token{Type: TokPlusPlus, Value: "++", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokPlus, Value: "+", Span: s.span(startLine, startCol)}, nil

	case '-':
		s.advance()
		if !s.atEnd() && s.peek() == '-' {
			s.advance()
			return Token{Type: TokMinusMinus, Value: "--", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokMinus, Value: "-", Span: s.span(startLine, startCol)}, nil

	case '=':
		s.advance()
		if !s.atEnd() && s.peek() == '=' {
			s.advance()
			return Token{Type: TokEqEq, Value: "==", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokEquals, Value: "=", Span: s.span(startLine, startCol)}, nil

	case '!':
		s.advance()
		if !s.atEnd() && s.peek() == '=' {
			s.advance()
			return Token{Type: TokBangEq, Value: "!=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{}, s.lexError(startLine, startCol, "Caractere inesperado '!'")

	case '>':
		s.advance()
		if !s.atEnd() && s.peek() == '=' {
			s.advance()
			return Token{Type: TokGtEq, Value: ">=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokGt, Value: ">", Span: s.span(startLine, startCol)}, nil

	case '<':
		s.advance()
		if !s.atEnd() && s.peek() == '=' {
			s.advance()
			return Token{Type: TokLtEq, Value: "<=", Span: s.span(startLine, startCol)}, nil
		}
		return Token{Type: TokLt, Value: "<", Span: s.span(startLine, startCol)}, nil
	}

	// Numbers
	if isDigit(ch) {
		return s.scanNumber()
	}

	// Strings
	if ch == '"' {
		return s.scanString()
	}

	// Identifiers and keywords
	if r, _ := s.peekRune(); isIdentStart(r) {
		return s.scanIdentOrKeyword(), nil
	}

	r, _ := s.peekRune()
	s.advance()
	return Token{}, s.lexError(startLine, startCol, fmt.Sprintf("Caractere inesperado '%c'", r))
}

// Tokenize breaks source code into a slice of tokens ending with TokEOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := newScanner(source, filename)
	var tokens []Token

	for {
		tok, err := s.nextToken()
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, tok)
		if tok.Type == TokEOF {
			break
		}
	}

	return tokens, nil
}
