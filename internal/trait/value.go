package trait

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is a sealed interface representing a trait property value.
// Only String, Int, Float and Bool implement it.
type Value interface {
	traitValue() // Sealed - only these types implement it
	// Kind returns the name of the concrete scalar kind.
	Kind() string
}

// String is a string property value.
type String string

func (String) traitValue() {}

// Kind implements Value.
func (String) Kind() string { return "string" }

// Int is an integer property value. Always int64.
type Int int64

func (Int) traitValue() {}

// Kind implements Value.
func (Int) Kind() string { return "int" }

// Float is a floating point property value.
type Float float64

func (Float) traitValue() {}

// Kind implements Value.
func (Float) Kind() string { return "float" }

// Bool is a boolean property value.
type Bool bool

func (Bool) traitValue() {}

// Kind implements Value.
func (Bool) Kind() string { return "bool" }

// FromAny converts a Go scalar to a Value.
// Accepts string, bool, all int widths, float32/float64 and Value itself.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case uint32:
		return Int(val), nil
	case float32:
		return Float(val), nil
	case float64:
		return Float(val), nil
	case json.Number:
		return numberValue(val)
	case nil:
		return nil, fmt.Errorf("null is not a valid trait property value")
	default:
		return nil, fmt.Errorf("unsupported trait property type: %T", v)
	}
}

// ToAny returns the plain Go value held by v.
func ToAny(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return int64(val)
	case Float:
		return float64(val)
	case Bool:
		return bool(val)
	default:
		return nil
	}
}

// Format renders v the way it would appear when interpolated into text.
func Format(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Int:
		return strconv.FormatInt(int64(val), 10)
	case Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case Bool:
		return strconv.FormatBool(bool(val))
	default:
		return ""
	}
}

// UnmarshalValue decodes a single JSON scalar into a Value.
// Objects, arrays and null are rejected.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return nil, fmt.Errorf("null is not a valid trait property value")

	case '[', '{':
		return nil, fmt.Errorf("trait property values must be scalars, got %s", string(data[:1]))

	default:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		var n json.Number
		if err := dec.Decode(&n); err != nil {
			return nil, err
		}
		return numberValue(n)
	}
}

// numberValue keeps integral literals as Int. Anything with a fraction or
// exponent is a Float.
func numberValue(n json.Number) (Value, error) {
	s := n.String()
	if !strings.ContainsAny(s, ".eE") {
		if i, err := n.Int64(); err == nil {
			return Int(i), nil
		}
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return Float(f), nil
}

// SameValue reports whether a and b hold the same value. Unlike ==, an
// Int and a Float are the same when they are numerically equal.
func SameValue(a, b Value) bool {
	switch x := a.(type) {
	case Int:
		if y, ok := b.(Float); ok {
			return float64(x) == float64(y)
		}
	case Float:
		if y, ok := b.(Int); ok {
			return float64(x) == float64(y)
		}
	}
	return a == b
}

// MarshalValue encodes a Value as JSON.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Float:
		return marshalFloat(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	default:
		return nil, fmt.Errorf("unknown trait value type: %T", v)
	}
}

// marshalFloat always emits a fraction or exponent so that a Float never
// decodes back as an Int.
func marshalFloat(f float64) ([]byte, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("float %v cannot be represented in JSON", f)
	}
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}
