package stdlib

import (
	"math"

	"github.com/thomasrohde/cobral/pkg/diagnostics"
	"github.com/thomasrohde/cobral/pkg/evaluator"
)

// raiz(x) → real
func mathSqrt(args []evaluator.Value) (evaluator.Value, error) {
	switch x := args[0].(type) {
	case evaluator.Integer:
		return evaluator.NewFloat(math.Sqrt(float64(x.Value))), nil
	case evaluator.Float:
		return evaluator.NewFloat(math.Sqrt(x.Value)), nil
	}
	return nil, evaluator.Errorf(diagnostics.EType,
		"raiz: era esperado um número inteiro ou real, recebeu-se '%s'", evaluator.TypeName(args[0]))
}

// potencia(base, expoente) → inteiro when both are inteiro and expoente >= 0, real otherwise
func mathPow(args []evaluator.Value) (evaluator.Value, error) {
	if b, ok := args[0].(evaluator.Integer); ok {
		if e, ok := args[1].(evaluator.Integer); ok && e.Value >= 0 {
			return evaluator.NewInteger(ipow(b.Value, e.Value)), nil
		}
	}
	b, bok := number(args[0])
	e, eok := number(args[1])
	if !bok || !eok {
		return nil, evaluator.Errorf(diagnostics.EType,
			"Era esperado um número inteiro ou real, recebeu-se '%s' e '%s'.",
			evaluator.Format(args[0]), evaluator.Format(args[1]))
	}
	return evaluator.NewFloat(math.Pow(b, e)), nil
}

// PI() → real
func mathPi([]evaluator.Value) (evaluator.Value, error) {
	return evaluator.NewFloat(math.Pi), nil
}

func number(v evaluator.Value) (float64, bool) {
	switch n := v.(type) {
	case evaluator.Integer:
		return float64(n.Value), true
	case evaluator.Float:
		return n.Value, true
	}
	return 0, false
}

// ipow computes base**exp by squaring; overflow wraps.
func ipow(base, exp int64) int64 {
	result := int64(1)
	for exp > 0 {
		if exp&1 == 1 {
			result *= base
		}
		base *= base
		exp >>= 1
	}
	return result
}
