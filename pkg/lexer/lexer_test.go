package lexer

import (
	"errors"
	"strings"
	"testing"

	"github.com/thomasrohde/cobral/pkg/diagnostics"
)

// helper to tokenize and fail on error
func mustTokenize(t *testing.T, source string) []Token {
	t.Helper()
	tokens, err := Tokenize(source, "test.cob")
	if err != nil {
		t.Fatalf("unexpected lex error: %v", err)
	}
	return tokens
}

// helper that strips the trailing EOF for easier assertions
func mustTokenizeNoEOF(t *testing.T, source string) []Token {
	t.Helper()
	tokens := mustTokenize(t, source)
	if len(tokens) == 0 {
		t.Fatal("expected at least one token (EOF)")
	}
	if tokens[len(tokens)-1].Type != TokEOF {
		t.Fatal("last token is not EOF")
	}
	return tokens[:len(tokens)-1]
}

func types(tokens []Token) []TokenType {
	out := make([]TokenType, len(tokens))
	for i, tok := range tokens {
		out[i] = tok.Type
	}
	return out
}

func expectTypes(t *testing.T, source string, want ...TokenType) []Token {
	t.Helper()
	tokens := mustTokenizeNoEOF(t, source)
	got := types(tokens)
	if len(got) != len(want) {
		t.Fatalf("%q: got %d tokens %v, want %d %v", source, len(got), got, len(want), want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("%q: token %d: got %v, want %v", source, i, got[i], want[i])
		}
	}
	return tokens
}

func mustFail(t *testing.T, source string) *LexError {
	t.Helper()
	_, err := Tokenize(source, "test.cob")
	if err == nil {
		t.Fatalf("expected lex error for %q", source)
	}
	var le *LexError
	if !errors.As(err, &le) {
		t.Fatalf("expected *LexError, got %T", err)
	}
	if le.Diag.Code != diagnostics.ELex {
		t.Errorf("got code %q, want %q", le.Diag.Code, diagnostics.ELex)
	}
	return le
}

// ---------------------------------------------------------------------------
// Test: empty input produces only EOF
// ---------------------------------------------------------------------------
func TestEmptyInput(t *testing.T) {
	tokens := mustTokenize(t, "")
	if len(tokens) != 1 {
		t.Fatalf("expected 1 token (EOF), got %d", len(tokens))
	}
	if tokens[0].Type != TokEOF {
		t.Errorf("expected TokEOF, got %v", tokens[0].Type)
	}
}

// ---------------------------------------------------------------------------
// Test: all keywords
// ---------------------------------------------------------------------------
func TestKeywords(t *testing.T) {
	tests := []struct {
		keyword  string
		expected TokenType
	}{
		{"declare", TokLet},
		{"se", TokIf},
		{"senao", TokElse},
		{"escolha", TokSwitch},
		{"caso", TokCase},
		{"padrao", TokDefault},
		{"para", TokFor},
		{"enquanto", TokWhile},
		{"nao", TokNot},
		{"e", TokAnd},
		{"ou", TokOr},
		{"funcao", TokFunction},
		{"retorne", TokReturn},
		{"pare", TokBreak},
		{"importe", TokImport},
		{"verdadeiro", TokTrue},
		{"falso", TokFalse},
	}

	for _, tt := range tests {
		t.Run(tt.keyword, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.keyword)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			if tokens[0].Type != tt.expected {
				t.Errorf("expected token type %v, got %v", tt.expected, tokens[0].Type)
			}
			if !tokens[0].Type.IsKeyword() {
				t.Errorf("expected %v to be a keyword", tokens[0].Type)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Test: declare vs declare constante
// ---------------------------------------------------------------------------
func TestDeclareConstanteMerge(t *testing.T) {
	tokens := expectTypes(t, "declare x = 1", TokLet, TokIdent, TokEquals, TokIntLit)
	if tokens[1].Value != "x" {
		t.Errorf("got ident %q", tokens[1].Value)
	}

	tokens = expectTypes(t, "declare constante x = 1", TokConst, TokIdent, TokEquals, TokIntLit)
	if tokens[0].Value != "declare constante" {
		t.Errorf("got value %q", tokens[0].Value)
	}

	// whitespace and comments between the two words are allowed
	expectTypes(t, "declare\n  /* c */ constante PI = 3.14", TokConst, TokIdent, TokEquals, TokFloatLit)
}

func TestConstanteAloneIsIdentifier(t *testing.T) {
	expectTypes(t, "constante", TokIdent)
	expectTypes(t, "declare constantes = 1", TokLet, TokIdent, TokEquals, TokIntLit)
}

// ---------------------------------------------------------------------------
// Test: keyword vs identifier disambiguation
// ---------------------------------------------------------------------------
func TestKeywordVsIdentifier(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected TokenType
	}{
		{"se keyword", "se", TokIf},
		{"sem is ident", "sem", TokIdent},
		{"e keyword", "e", TokAnd},
		{"era is ident", "era", TokIdent},
		{"para keyword", "para", TokFor},
		{"parada is ident", "parada", TokIdent},
		{"pare keyword", "pare", TokBreak},
		{"pares is ident", "pares", TokIdent},
		{"ou keyword", "ou", TokOr},
		{"outro is ident", "outro", TokIdent},
		{"falso keyword", "falso", TokFalse},
		{"falsos is ident", "falsos", TokIdent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.input)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			if tokens[0].Type != tt.expected {
				t.Errorf("expected type %v for %q, got %v", tt.expected, tt.input, tokens[0].Type)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Test: identifiers
// ---------------------------------------------------------------------------
func TestIdentifiers(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"x", "x"},
		{"nome", "nome"},
		{"_privado", "_privado"},
		{"valor123", "valor123"},
		{"ação", "ação"},
		{"número", "número"},
		{"camelCase", "camelCase"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := mustTokenizeNoEOF(t, tt.input)
			if len(tokens) != 1 {
				t.Fatalf("expected 1 token, got %d", len(tokens))
			}
			if tokens[0].Type != TokIdent {
				t.Errorf("expected TokIdent, got %v", tokens[0].Type)
			}
			if tokens[0].Value != tt.expected {
				t.Errorf("expected value %q, got %q", tt.expected, tokens[0].Value)
			}
		})
	}
}

func TestIdentifierNormalization(t *testing.T) {
	// "ação" spelled with combining marks must lex to the composed form.
	decomposed := "ac\u0327a\u0303o"
	tokens := mustTokenizeNoEOF(t, decomposed)
	if len(tokens) != 1 || tokens[0].Value != "ação" {
		t.Fatalf("got %+v, want single ident \"ação\"", tokens)
	}
}

// ---------------------------------------------------------------------------
// Test: numeric literals
// ---------------------------------------------------------------------------
func TestIntegerLiterals(t *testing.T) {
	for _, input := range []string{"0", "1", "42", "1234567890", "007"} {
		t.Run(input, func(t *testing.T) {
			tokens := expectTypes(t, input, TokIntLit)
			if tokens[0].Value != input {
				t.Errorf("got %q", tokens[0].Value)
			}
		})
	}
	tokens := expectTypes(t, "42", TokIntLit)
	if n, err := tokens[0].Int(); err != nil || n != 42 {
		t.Errorf("Int() = %d, %v", n, err)
	}
}

func TestFloatLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  float64
	}{
		{"3.14", 3.14},
		{"0.5", 0.5},
		{"10.0", 10},
		{"2.", 2},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := expectTypes(t, tt.input, TokFloatLit)
			f, err := tokens[0].Float()
			if err != nil {
				t.Fatal(err)
			}
			if f != tt.want {
				t.Errorf("got %v, want %v", f, tt.want)
			}
		})
	}
}

func TestSecondDotIsError(t *testing.T) {
	le := mustFail(t, "3.14.1")
	if !strings.Contains(le.Diag.Message, "3.14.1") {
		t.Errorf("expected literal in message, got %q", le.Diag.Message)
	}
}

func TestIntegerOverflowIsError(t *testing.T) {
	mustFail(t, "99999999999999999999999")
}

// ---------------------------------------------------------------------------
// Test: strings
// ---------------------------------------------------------------------------
func TestStringLiterals(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{`"olá"`, "olá"},
		{`""`, ""},
		{`"com espaço"`, "com espaço"},
		{`"a\"b"`, `a"b`},
		{`"a\\b"`, `a\b`},
		{`"linha\nnova"`, "linha\nnova"},
		{`"tab\taqui"`, "tab\taqui"},
		{`"desconhecido\q"`, `desconhecido\q`},
		{`"🎉"`, "🎉"},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tokens := expectTypes(t, tt.input, TokStringLit)
			if tokens[0].Value != tt.want {
				t.Errorf("got %q, want %q", tokens[0].Value, tt.want)
			}
		})
	}
}

func TestUnterminatedString(t *testing.T) {
	mustFail(t, `"aberto`)
	mustFail(t, `"barra no fim\`)
}

// ---------------------------------------------------------------------------
// Test: operators and delimiters
// ---------------------------------------------------------------------------
func TestSingleCharTokens(t *testing.T) {
	expectTypes(t, "{ } [ ] ( ) : ; , = * / %",
		TokLBrace, TokRBrace, TokLBracket, TokRBracket, TokLParen, TokRParen,
		TokColon, TokSemicolon, TokComma, TokEquals, TokStar, TokSlash, TokPercent)
}

func TestMultiCharOperators(t *testing.T) {
	tests := []struct {
		input    string
		expected []TokenType
	}{
		{"==", []TokenType{TokEqEq}},
		{"!=", []TokenType{TokBangEq}},
		{">=", []TokenType{TokGtEq}},
		{"<=", []TokenType{TokLtEq}},
		{"++", []TokenType{TokPlusPlus}},
		{"--", []TokenType{TokMinusMinus}},
		{"> =", []TokenType{TokGt, TokEquals}},
		{"+ +", []TokenType{TokPlus, TokPlus}},
		{"i++", []TokenType{TokIdent, TokPlusPlus}},
		{"a-b", []TokenType{TokIdent, TokMinus, TokIdent}},
		{"===", []TokenType{TokEqEq, TokEquals}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			expectTypes(t, tt.input, tt.expected...)
		})
	}
}

func TestBangWithoutEquals(t *testing.T) {
	mustFail(t, "!x")
}

// ---------------------------------------------------------------------------
// Test: comments
// ---------------------------------------------------------------------------
func TestComments(t *testing.T) {
	expectTypes(t, "// só comentário", []TokenType{}...)
	expectTypes(t, "x // resto\ny", TokIdent, TokIdent)
	expectTypes(t, "x /* bloco\n com linhas */ y", TokIdent, TokIdent)
	expectTypes(t, "a / b", TokIdent, TokSlash, TokIdent)
	// block comments do not nest
	expectTypes(t, "/* a /* b */ c */", TokIdent, TokStar, TokSlash)
}

func TestUnterminatedBlockComment(t *testing.T) {
	mustFail(t, "x /* sem fim")
}

// ---------------------------------------------------------------------------
// Test: span tracking
// ---------------------------------------------------------------------------
func TestSpanTracking(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, "declare x = 1\n  escrever(x)")
	tests := []struct {
		idx       int
		line, col int
	}{
		{0, 1, 1},  // declare
		{1, 1, 9},  // x
		{2, 1, 11}, // =
		{3, 1, 13}, // 1
		{4, 2, 3},  // escrever
		{5, 2, 11}, // (
	}
	for _, tt := range tests {
		sp := tokens[tt.idx].Span
		if sp.StartLine != tt.line || sp.StartCol != tt.col {
			t.Errorf("token %d (%q): got %d:%d, want %d:%d",
				tt.idx, tokens[tt.idx].Value, sp.StartLine, sp.StartCol, tt.line, tt.col)
		}
		if sp.File != "test.cob" {
			t.Errorf("token %d: got file %q", tt.idx, sp.File)
		}
	}
}

func TestColumnsCountRunes(t *testing.T) {
	tokens := mustTokenizeNoEOF(t, `"ãé" x`)
	if got := tokens[1].Span.StartCol; got != 6 {
		t.Errorf("got col %d, want 6", got)
	}
}

func TestErrorSpanPosition(t *testing.T) {
	le := mustFail(t, "declare x = 1\ndeclare y = @")
	if le.Diag.Span == nil {
		t.Fatal("expected span")
	}
	if le.Diag.Span.StartLine != 2 || le.Diag.Span.StartCol != 13 {
		t.Errorf("got %d:%d, want 2:13", le.Diag.Span.StartLine, le.Diag.Span.StartCol)
	}
	if !strings.Contains(le.Error(), "test.cob:2:13") {
		t.Errorf("Error() should include location, got %q", le.Error())
	}
}

// ---------------------------------------------------------------------------
// Test: complete statements
// ---------------------------------------------------------------------------
func TestTokenizeForLoop(t *testing.T) {
	expectTypes(t, "para (declare i = 0; i < 3; i++) { escrever(i); }",
		TokFor, TokLParen, TokLet, TokIdent, TokEquals, TokIntLit, TokSemicolon,
		TokIdent, TokLt, TokIntLit, TokSemicolon, TokIdent, TokPlusPlus, TokRParen,
		TokLBrace, TokIdent, TokLParen, TokIdent, TokRParen, TokSemicolon, TokRBrace)
}

func TestTokenizeSwitch(t *testing.T) {
	expectTypes(t, `escolha(x){ caso 1: pare; padrao: escrever("d"); }`,
		TokSwitch, TokLParen, TokIdent, TokRParen, TokLBrace,
		TokCase, TokIntLit, TokColon, TokBreak, TokSemicolon,
		TokDefault, TokColon, TokIdent, TokLParen, TokStringLit, TokRParen, TokSemicolon,
		TokRBrace)
}

func TestTokenizeFunctionAndImport(t *testing.T) {
	expectTypes(t, `importe "matematica"
funcao soma(a, b) { retorne a + b; }`,
		TokImport, TokStringLit,
		TokFunction, TokIdent, TokLParen, TokIdent, TokComma, TokIdent, TokRParen,
		TokLBrace, TokReturn, TokIdent, TokPlus, TokIdent, TokSemicolon, TokRBrace)
}

func TestEOFAlwaysLast(t *testing.T) {
	for _, src := range []string{"", "x", "declare x = [1, 2]", "// c"} {
		tokens := mustTokenize(t, src)
		if tokens[len(tokens)-1].Type != TokEOF {
			t.Errorf("%q: last token is %v", src, tokens[len(tokens)-1].Type)
		}
	}
}

func TestTokenTypeString(t *testing.T) {
	if TokSemicolon.String() != "';'" {
		t.Errorf("got %q", TokSemicolon.String())
	}
	if TokenType(999).String() != "token(999)" {
		t.Errorf("got %q", TokenType(999).String())
	}
}

func TestKeywordsList(t *testing.T) {
	kw := Keywords()
	found := false
	for _, k := range kw {
		if k == "constante" {
			found = true
		}
	}
	if !found || len(kw) != 18 {
		t.Errorf("got %d keywords %v", len(kw), kw)
	}
}
