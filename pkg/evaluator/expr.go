package evaluator

import (
	"cmp"
	"errors"
	"math"

	"github.com/thomasrohde/cobral/pkg/ast"
	"github.com/thomasrohde/cobral/pkg/diagnostics"
)

func (ev *Evaluator) evalExpr(expr ast.Expr) (Result, error) {
	switch e := expr.(type) {
	case *ast.IntLiteral:
		return valueOf(NewInteger(e.Value)), nil
	case *ast.FloatLiteral:
		return valueOf(NewFloat(e.Value)), nil
	case *ast.BoolLiteral:
		return valueOf(NewBoolean(e.Value)), nil
	case *ast.StrLiteral:
		return valueOf(NewString(e.Value)), nil
	case *ast.Ident:
		val, ok := ev.env.Get(e.Name)
		if !ok {
			return Result{}, newError(diagnostics.EUnbound, e.Span, "Variável desconhecida: %s", e.Name)
		}
		return valueOf(val), nil
	case *ast.ListExpr:
		return ev.evalList(e)
	case *ast.IndexExpr:
		return ev.evalIndex(e)
	case *ast.BinaryExpr:
		return ev.evalBinary(e)
	case *ast.UnaryExpr:
		return ev.evalUnary(e)
	case *ast.StepExpr:
		return ev.evalStep(e)
	case *ast.CallExpr:
		return ev.evalCall(e)
	}
	return Result{}, newError(diagnostics.ERuntime, expr.NodeSpan(), "Expressão não suportada: %s", expr.Kind())
}

func (ev *Evaluator) evalList(e *ast.ListExpr) (Result, error) {
	items := make([]Value, 0, len(e.Elements))
	for _, elem := range e.Elements {
		res, err := ev.evalExpr(elem)
		if err != nil || res.Suspend != nil {
			return res, err
		}
		items = append(items, res.Value)
	}
	return valueOf(NewList(items)), nil
}

func (ev *Evaluator) evalIndex(e *ast.IndexExpr) (Result, error) {
	target, ok := ev.env.Get(e.Name)
	if !ok {
		return Result{}, newError(diagnostics.EUnbound, e.Span, "Variável desconhecida: %s", e.Name)
	}
	list, ok := target.(List)
	if !ok {
		return Result{}, newError(diagnostics.EType, e.Span, "A indexação é suportada somente em vetores")
	}
	idx, err := ev.evalExpr(e.Index)
	if err != nil || idx.Suspend != nil {
		return idx, err
	}
	i, err := listIndex(idx.Value, len(list.Items), e.Index.NodeSpan())
	if err != nil {
		return Result{}, err
	}
	return valueOf(list.Items[i]), nil
}

func (ev *Evaluator) evalBinary(e *ast.BinaryExpr) (Result, error) {
	left, err := ev.evalExpr(e.Left)
	if err != nil || left.Suspend != nil {
		return left, err
	}
	right, err := ev.evalExpr(e.Right)
	if err != nil || right.Suspend != nil {
		return right, err
	}

	var val Value
	switch {
	case e.Op.IsLogical():
		val, err = logical(e.Op, left.Value, right.Value, e.Span)
	case e.Op.IsComparison():
		val, err = compare(e.Op, left.Value, right.Value, e.Span)
	default:
		val, err = arithmetic(e.Op, left.Value, right.Value, e.Span)
	}
	if err != nil {
		return Result{}, err
	}
	return valueOf(val), nil
}

func logical(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	l, lok := left.(Boolean)
	r, rok := right.(Boolean)
	if !lok || !rok {
		return nil, newError(diagnostics.EType, span,
			"Operador '%s' requer valores booleanos, recebeu %s e %s", op, TypeName(left), TypeName(right))
	}
	if op == ast.OpAnd {
		return NewBoolean(l.Value && r.Value), nil
	}
	return NewBoolean(l.Value || r.Value), nil
}

func arithmetic(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	if op == ast.OpAdd {
		_, ls := left.(String)
		_, rs := right.(String)
		if ls || rs {
			return NewString(concatPart(left) + concatPart(right)), nil
		}
	}

	switch l := left.(type) {
	case Integer:
		switch r := right.(type) {
		case Integer:
			return intArithmetic(op, l.Value, r.Value, span)
		case Float:
			return floatArithmetic(op, float64(l.Value), r.Value, span)
		}
	case Float:
		switch r := right.(type) {
		case Integer:
			return floatArithmetic(op, l.Value, float64(r.Value), span)
		case Float:
			return floatArithmetic(op, l.Value, r.Value, span)
		}
	}
	return nil, newError(diagnostics.EType, span,
		"Operação inválida entre tipos incompatíveis: %s %s %s", TypeName(left), op, TypeName(right))
}

func concatPart(v Value) string {
	if _, ok := v.(None); ok {
		return ""
	}
	return Format(v)
}

func intArithmetic(op ast.BinaryOp, l, r int64, span ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return NewInteger(l + r), nil
	case ast.OpSub:
		return NewInteger(l - r), nil
	case ast.OpMul:
		return NewInteger(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return nil, newError(diagnostics.EDivZero, span, "Divisão por zero")
		}
		return NewInteger(l / r), nil
	case ast.OpMod:
		if r == 0 {
			return nil, newError(diagnostics.EDivZero, span, "Divisão por zero")
		}
		return NewInteger(l % r), nil
	}
	return nil, newError(diagnostics.EType, span, "Operador inválido: %s", op)
}

func floatArithmetic(op ast.BinaryOp, l, r float64, span ast.Span) (Value, error) {
	switch op {
	case ast.OpAdd:
		return NewFloat(l + r), nil
	case ast.OpSub:
		return NewFloat(l - r), nil
	case ast.OpMul:
		return NewFloat(l * r), nil
	case ast.OpDiv:
		if r == 0 {
			return nil, newError(diagnostics.EDivZero, span, "Divisão por zero")
		}
		return NewFloat(l / r), nil
	case ast.OpMod:
		return nil, newError(diagnostics.EType, span, "Operador '%%' requer valores inteiros")
	}
	return nil, newError(diagnostics.EType, span, "Operador inválido: %s", op)
}

func compare(op ast.BinaryOp, left, right Value, span ast.Span) (Value, error) {
	incompatible := func() error {
		return newError(diagnostics.EType, span,
			"Comparação inválida entre tipos incompatíveis: %s %s %s", TypeName(left), op, TypeName(right))
	}

	if lf, rf, ok := numericPair(left, right); ok {
		if li, lok := left.(Integer); lok {
			if ri, rok := right.(Integer); rok {
				return NewBoolean(ordered(op, cmp.Compare(li.Value, ri.Value))), nil
			}
		}
		if math.IsNaN(lf) || math.IsNaN(rf) {
			return NewBoolean(op == ast.OpNeq), nil
		}
		return NewBoolean(ordered(op, cmp.Compare(lf, rf))), nil
	}

	switch l := left.(type) {
	case String:
		r, ok := right.(String)
		if !ok {
			return nil, incompatible()
		}
		return NewBoolean(ordered(op, cmp.Compare(l.Value, r.Value))), nil
	case Boolean:
		r, ok := right.(Boolean)
		if !ok {
			return nil, incompatible()
		}
		switch op {
		case ast.OpEqEq:
			return NewBoolean(l.Value == r.Value), nil
		case ast.OpNeq:
			return NewBoolean(l.Value != r.Value), nil
		}
		return nil, newError(diagnostics.EType, span, "Operador '%s' não se aplica a valores booleanos", op)
	}
	return nil, incompatible()
}

func numericPair(left, right Value) (float64, float64, bool) {
	l, lok := toFloat(left)
	r, rok := toFloat(right)
	return l, r, lok && rok
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Integer:
		return float64(n.Value), true
	case Float:
		return n.Value, true
	}
	return 0, false
}

func ordered(op ast.BinaryOp, c int) bool {
	switch op {
	case ast.OpEqEq:
		return c == 0
	case ast.OpNeq:
		return c != 0
	case ast.OpLt:
		return c < 0
	case ast.OpGt:
		return c > 0
	case ast.OpLtEq:
		return c <= 0
	case ast.OpGtEq:
		return c >= 0
	}
	return false
}

func (ev *Evaluator) evalUnary(e *ast.UnaryExpr) (Result, error) {
	res, err := ev.evalExpr(e.Operand)
	if err != nil || res.Suspend != nil {
		return res, err
	}
	switch e.Op {
	case ast.OpNot:
		if b, ok := res.Value.(Boolean); ok {
			return valueOf(NewBoolean(!b.Value)), nil
		}
		return Result{}, newError(diagnostics.EType, e.Span, "Operador 'nao' deve ser aplicado a um valor booleano")
	case ast.OpNeg:
		switch n := res.Value.(type) {
		case Integer:
			return valueOf(NewInteger(-n.Value)), nil
		case Float:
			return valueOf(NewFloat(-n.Value)), nil
		}
		return Result{}, newError(diagnostics.EType, e.Span, "Operador '-' deve ser aplicado a um valor numérico")
	case ast.OpPos:
		switch n := res.Value.(type) {
		case Integer:
			if n.Value < 0 {
				return valueOf(NewInteger(-n.Value)), nil
			}
			return valueOf(n), nil
		case Float:
			return valueOf(NewFloat(math.Abs(n.Value))), nil
		}
		return Result{}, newError(diagnostics.EType, e.Span, "Operador '+' deve ser aplicado a um valor numérico")
	}
	return Result{}, newError(diagnostics.EType, e.Span, "Operador inválido: %s", e.Op)
}

// evalStep applies ++ or -- to a variable and yields the updated value for
// both the prefix and postfix forms.
func (ev *Evaluator) evalStep(e *ast.StepExpr) (Result, error) {
	ident, ok := e.Operand.(*ast.Ident)
	if !ok {
		return Result{}, newError(diagnostics.EType, e.Span, "Operador '%s' requer uma variável", e.Op)
	}
	if ev.env.IsConstant(ident.Name) {
		return Result{}, newError(diagnostics.EConstAssign, e.Span,
			"Não é possível atribuir um valor a uma constante: %s", ident.Name)
	}

	delta := int64(1)
	if e.Op == ast.OpDec {
		delta = -1
	}
	var updated Value
	err := ev.env.update(ident.Name, func(cur Value) (Value, error) {
		switch n := cur.(type) {
		case Integer:
			updated = NewInteger(n.Value + delta)
		case Float:
			updated = NewFloat(n.Value + float64(delta))
		default:
			return nil, newError(diagnostics.EType, e.Span,
				"Operador '%s' requer um valor numérico, recebeu %s", e.Op, TypeName(cur))
		}
		return updated, nil
	})
	if errors.Is(err, errUnbound) {
		return Result{}, newError(diagnostics.EUnbound, e.Span, "Variável desconhecida: %s", ident.Name)
	}
	if err != nil {
		return Result{}, err
	}
	return valueOf(updated), nil
}
