// Package evaluator implements the Cobral tree-walking evaluator.
package evaluator

import (
	"math"
	"strconv"
	"strings"
)

// Value is the interface for all Cobral runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	cobValue() // sealed marker
}

// None is the absence of a value.
type None struct{}

func (None) cobValue() {}

// Integer is a 64-bit signed integer.
type Integer struct {
	Value int64
}

func (Integer) cobValue() {}

// Float is a 64-bit floating point number.
type Float struct {
	Value float64
}

func (Float) cobValue() {}

// Boolean is verdadeiro or falso.
type Boolean struct {
	Value bool
}

func (Boolean) cobValue() {}

// String is a UTF-8 string.
type String struct {
	Value string
}

func (String) cobValue() {}

// List is an ordered list of values.
type List struct {
	Items []Value
}

func (List) cobValue() {}

// NewNone creates a None value.
func NewNone() Value {
	return None{}
}

// NewInteger creates an integer value.
func NewInteger(n int64) Value {
	return Integer{Value: n}
}

// NewFloat creates a float value.
func NewFloat(f float64) Value {
	return Float{Value: f}
}

// NewBoolean creates a boolean value.
func NewBoolean(b bool) Value {
	return Boolean{Value: b}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// NewList creates a list value.
func NewList(items []Value) Value {
	return List{Items: items}
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v Value) Value {
	l, ok := v.(List)
	if !ok {
		return v
	}
	items := make([]Value, len(l.Items))
	for i, item := range l.Items {
		items[i] = Clone(item)
	}
	return List{Items: items}
}

// Format renders v the way escrever prints it.
func Format(v Value) string {
	switch val := v.(type) {
	case nil, None:
		return "None"
	case Integer:
		return strconv.FormatInt(val.Value, 10)
	case Float:
		return formatFloat(val.Value)
	case Boolean:
		if val.Value {
			return "verdadeiro"
		}
		return "falso"
	case String:
		return val.Value
	case List:
		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			if s, ok := item.(String); ok {
				parts[i] = strconv.Quote(s.Value)
			} else {
				parts[i] = Format(item)
			}
		}
		return "[" + strings.Join(parts, ", ") + "]"
	}
	return ""
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	case math.IsNaN(f):
		return "NaN"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

// TypeName returns the Portuguese name of v's kind, used in error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Integer:
		return "inteiro"
	case Float:
		return "real"
	case Boolean:
		return "booleano"
	case String:
		return "texto"
	case List:
		return "vetor"
	default:
		return "nulo"
	}
}

// Equal reports whether a and b are the same kind and hold equal values.
func Equal(a, b Value) bool {
	switch av := a.(type) {
	case None:
		_, ok := b.(None)
		return ok
	case Integer:
		bv, ok := b.(Integer)
		return ok && av.Value == bv.Value
	case Float:
		bv, ok := b.(Float)
		return ok && av.Value == bv.Value
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av.Value == bv.Value
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	case List:
		bv, ok := b.(List)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}
