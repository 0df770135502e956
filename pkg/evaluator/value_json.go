package evaluator

import (
	"encoding/json"
	"math"
	"sort"
)

// ValueToJSON marshals a Value to JSON bytes.
// Integers stay integral; non-finite Floats become strings.
func ValueToJSON(v Value) ([]byte, error) {
	return json.Marshal(valueToRaw(v))
}

func valueToRaw(v Value) any {
	switch val := v.(type) {
	case Integer:
		return val.Value
	case Float:
		if math.IsInf(val.Value, 0) || math.IsNaN(val.Value) {
			return formatFloat(val.Value)
		}
		return val.Value
	case Boolean:
		return val.Value
	case String:
		return val.Value
	case List:
		items := make([]any, len(val.Items))
		for i, item := range val.Items {
			items[i] = valueToRaw(item)
		}
		return items
	}
	return nil
}

// BindingsToJSON marshals a name→value map as a JSON object with sorted keys.
func BindingsToJSON(bindings map[string]Value) ([]byte, error) {
	names := make([]string, 0, len(bindings))
	for name := range bindings {
		names = append(names, name)
	}
	sort.Strings(names)

	buf := []byte{'{'}
	for i, name := range names {
		if i > 0 {
			buf = append(buf, ',')
		}
		keyBytes, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf = append(buf, keyBytes...)
		buf = append(buf, ':')
		valBytes, err := ValueToJSON(bindings[name])
		if err != nil {
			return nil, err
		}
		buf = append(buf, valBytes...)
	}
	buf = append(buf, '}')
	return buf, nil
}

// ValueToJSONString is a convenience that returns a string.
func ValueToJSONString(v Value) string {
	b, err := ValueToJSON(v)
	if err != nil {
		return "null"
	}
	return string(b)
}
