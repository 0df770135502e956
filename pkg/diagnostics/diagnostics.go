// Package diagnostics defines Cobral diagnostic types for lex/parse/lint/runtime errors.
package diagnostics

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"

	"github.com/thomasrohde/cobral/pkg/ast"
)

// Diagnostic code constants.
const (
	ELex             = "E_LEX"
	EParse           = "E_PARSE"
	EConstRedecl     = "E_CONST_REDECL"
	EUnknownFn       = "E_UNKNOWN_FN"
	EImport          = "E_IMPORT"
	EType            = "E_TYPE"
	EArgs            = "E_ARGS"
	ERuntime         = "E_RUNTIME"
	EDivZero         = "E_DIV_ZERO"
	EIndex           = "E_INDEX"
	EUnbound         = "E_UNBOUND"
	EReturn          = "E_RETURN"
	EConstAssign     = "E_CONST_ASSIGN"
	ECond            = "E_COND"
	EFileNotFound    = "E_FILE_NOT_FOUND"
	EFileRead        = "E_FILE_READ"
	EBudget          = "E_BUDGET"
	EInput           = "E_INPUT"
	EIO              = "E_IO"
	EUndefined       = "E_UNDEFINED"
	EIncompatibleCmp = "E_INCOMPATIBLE_CMP"
	WUnused          = "W_UNUSED"
)

// Severity of a diagnostic.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic represents a lex, parse, lint, or runtime diagnostic.
type Diagnostic struct {
	Code     string    `json:"code"`
	Message  string    `json:"message"`
	Span     *ast.Span `json:"span,omitempty"`
	Hint     string    `json:"hint,omitempty"`
	Severity Severity  `json:"severity,omitempty"`
}

// MakeDiag creates a new error Diagnostic.
func MakeDiag(code, message string, span *ast.Span, hint string) Diagnostic {
	return Diagnostic{
		Code:     code,
		Message:  message,
		Span:     span,
		Hint:     hint,
		Severity: SeverityError,
	}
}

// MakeWarning creates a new warning Diagnostic.
func MakeWarning(code, message string, span *ast.Span, hint string) Diagnostic {
	d := MakeDiag(code, message, span, hint)
	d.Severity = SeverityWarning
	return d
}

// IsError reports whether d should fail a check.
func (d Diagnostic) IsError() bool {
	return d.Severity != SeverityWarning
}

func (d Diagnostic) Error() string {
	if d.Span != nil {
		return fmt.Sprintf("%s: %s", d.Span, d.Message)
	}
	return d.Message
}

var (
	errLabel  = color.New(color.FgRed, color.Bold)
	warnLabel = color.New(color.FgYellow, color.Bold)
	arrow     = color.New(color.FgBlue)
	hintLabel = color.New(color.FgCyan)
)

// FormatDiagnostic formats a single diagnostic for display.
func FormatDiagnostic(d Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(d)
		return string(b)
	}
	loc := "<desconhecido>"
	if d.Span != nil {
		loc = d.Span.String()
	}
	label := errLabel.Sprintf("erro[%s]", d.Code)
	if d.Severity == SeverityWarning {
		label = warnLabel.Sprintf("aviso[%s]", d.Code)
	}
	out := fmt.Sprintf("%s: %s\n  %s %s", label, d.Message, arrow.Sprint("-->"), loc)
	if d.Hint != "" {
		out += fmt.Sprintf("\n  %s %s", hintLabel.Sprint("dica:"), d.Hint)
	}
	return out
}

// FormatDiagnostics formats a slice of diagnostics for display.
func FormatDiagnostics(diags []Diagnostic, pretty bool) string {
	if !pretty {
		b, _ := json.Marshal(diags)
		return string(b)
	}
	parts := make([]string, len(diags))
	for i, d := range diags {
		parts[i] = FormatDiagnostic(d, true)
	}
	return strings.Join(parts, "\n\n")
}

// HasErrors reports whether any diagnostic is error-severity.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}
