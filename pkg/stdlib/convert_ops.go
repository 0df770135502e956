package stdlib

import (
	"strconv"
	"strings"

	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
)

// int(x) → inteiro; reals truncate toward zero, texto is parsed
func convInt(args []evaluator.Value) (evaluator.Value, error) {
	switch x := args[0].(type) {
	case evaluator.Integer:
		return x, nil
	case evaluator.Float:
		return evaluator.NewInteger(int64(x.Value)), nil
	case evaluator.String:
		n, err := strconv.ParseInt(strings.TrimSpace(x.Value), 10, 64)
		if err != nil {
			return nil, evaluator.Errorf(diagnostics.EType,
				"Não foi possível converter \"%s\" para inteiro", x.Value)
		}
		return evaluator.NewInteger(n), nil
	}
	return nil, evaluator.Errorf(diagnostics.EType,
		"Não é possível converter %s para inteiro", evaluator.TypeName(args[0]))
}

// real(x) → real; texto is parsed
func convReal(args []evaluator.Value) (evaluator.Value, error) {
	switch x := args[0].(type) {
	case evaluator.Integer:
		return evaluator.NewFloat(float64(x.Value)), nil
	case evaluator.Float:
		return x, nil
	case evaluator.String:
		f, err := strconv.ParseFloat(strings.TrimSpace(x.Value), 64)
		if err != nil {
			return nil, evaluator.Errorf(diagnostics.EType,
				"Não foi possível converter \"%s\" para real", x.Value)
		}
		return evaluator.NewFloat(f), nil
	}
	return nil, evaluator.Errorf(diagnostics.EType,
		"Não é possível converter %s para real", evaluator.TypeName(args[0]))
}
