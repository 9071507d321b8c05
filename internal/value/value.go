// SPDX-License-Identifier: MPL-2.0

package value

import (
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/exp/maps"
)

const (
	// KindNull is the kind of Null.
	KindNull Kind = iota
	// KindBool is the kind of Bool.
	KindBool
	// KindInt is the kind of Int.
	KindInt
	// KindFloat is the kind of Float.
	KindFloat
	// KindString is the kind of String.
	KindString
	// KindList is the kind of List.
	KindList
	// KindMap is the kind of Map.
	KindMap
)

type (
	// Kind identifies the concrete variant of a Value.
	Kind int

	// Value is a node of structured configuration data.
	Value interface {
		Kind() Kind
		isValue()
	}

	// Null is the absent value (YAML `~`, JSON null).
	Null struct{}

	// Bool is a boolean scalar.
	Bool bool

	// Int is an integral number.
	Int int64

	// Float is a floating point number.
	Float float64

	// String is a text scalar.
	String string

	// List is an ordered sequence of values.
	List []Value

	// Map is a mapping from unique string keys to values.
	Map map[string]Value
)

func (Null) Kind() Kind   { return KindNull }
func (Bool) Kind() Kind   { return KindBool }
func (Int) Kind() Kind    { return KindInt }
func (Float) Kind() Kind  { return KindFloat }
func (String) Kind() Kind { return KindString }
func (List) Kind() Kind   { return KindList }
func (Map) Kind() Kind    { return KindMap }

func (Null) isValue()   {}
func (Bool) isValue()   {}
func (Int) isValue()    {}
func (Float) isValue()  {}
func (String) isValue() {}
func (List) isValue()   {}
func (Map) isValue()    {}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindList:
		return "list"
	case KindMap:
		return "map"
	default:
		return "Kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// IsScalar reports whether v is neither a List nor a Map.
func IsScalar(v Value) bool {
	switch v.(type) {
	case List, Map:
		return false
	default:
		return true
	}
}

// Keys returns the keys of m in lexical order.
func (m Map) Keys() []string {
	return slices.Sorted(maps.Keys(m))
}

// Has reports whether key is present, even when it maps to Null.
func (m Map) Has(key string) bool {
	_, ok := m[key]
	return ok
}

// Get returns the value stored at key.
func (m Map) Get(key string) (Value, bool) {
	v, ok := m[key]
	return v, ok
}

// GetString returns the value at key when it is a String.
func (m Map) GetString(key string) (string, bool) {
	s, ok := m[key].(String)
	return string(s), ok
}

// GetList returns the value at key when it is a List.
func (m Map) GetList(key string) (List, bool) {
	l, ok := m[key].(List)
	return l, ok
}

// GetMap returns the value at key when it is a Map.
func (m Map) GetMap(key string) (Map, bool) {
	sub, ok := m[key].(Map)
	return sub, ok
}

// Without returns a shallow copy of m with the given keys removed.
func (m Map) Without(keys ...string) Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Clone returns a deep copy of v. Scalars are immutable and returned as is.
func Clone(v Value) Value {
	switch t := v.(type) {
	case List:
		return t.Clone()
	case Map:
		return t.Clone()
	case nil:
		return Null{}
	default:
		return v
	}
}

// Clone returns a deep copy of l.
func (l List) Clone() List {
	if l == nil {
		return List{}
	}
	out := make(List, len(l))
	for i, item := range l {
		out[i] = Clone(item)
	}
	return out
}

// Clone returns a deep copy of m.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = Clone(v)
	}
	return out
}

// Equal reports whether a and b hold the same data. Int and Float compare by
// numeric value, so 1 and 1.0 are equal.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case Null:
		_, ok := b.(Null)
		return ok
	case Bool:
		y, ok := b.(Bool)
		return ok && x == y
	case Int:
		switch y := b.(type) {
		case Int:
			return x == y
		case Float:
			return float64(x) == float64(y)
		}
		return false
	case Float:
		switch y := b.(type) {
		case Float:
			return x == y
		case Int:
			return float64(x) == float64(y)
		}
		return false
	case String:
		y, ok := b.(String)
		return ok && x == y
	case List:
		y, ok := b.(List)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	case Map:
		y, ok := b.(Map)
		if !ok || len(x) != len(y) {
			return false
		}
		for k, xv := range x {
			yv, found := y[k]
			if !found || !Equal(xv, yv) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	}
	return false
}

// Format renders v as compact flow-style text for diagnostics. Map keys are
// sorted so the output is stable.
func Format(v Value) string {
	var sb strings.Builder
	format(&sb, v)
	return sb.String()
}

func format(sb *strings.Builder, v Value) {
	switch t := v.(type) {
	case Null, nil:
		sb.WriteString("null")
	case Bool:
		sb.WriteString(strconv.FormatBool(bool(t)))
	case Int:
		sb.WriteString(strconv.FormatInt(int64(t), 10))
	case Float:
		sb.WriteString(formatFloat(float64(t)))
	case String:
		sb.WriteString(strconv.Quote(string(t)))
	case List:
		sb.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				sb.WriteString(", ")
			}
			format(sb, item)
		}
		sb.WriteByte(']')
	case Map:
		sb.WriteByte('{')
		for i, k := range t.Keys() {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString(k)
			sb.WriteString(": ")
			format(sb, t[k])
		}
		sb.WriteByte('}')
	default:
		fmt.Fprintf(sb, "%v", t)
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return ".inf"
	case math.IsInf(f, -1):
		return "-.inf"
	case math.IsNaN(f):
		return ".nan"
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}
