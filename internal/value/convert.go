// SPDX-License-Identifier: MPL-2.0

package value

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrStructural is the sentinel error wrapped by StructuralError.
var ErrStructural = errors.New("structural error")

// StructuralError reports data whose shape cannot be used where it was found:
// a non-string mapping key, an unsupported decoder type, or a field that must
// be a mapping but is not.
type StructuralError struct {
	// Path is the dotted location of the offending value ("" for the root).
	Path string
	// Reason describes what is wrong with the value.
	Reason string
}

// Error implements the error interface.
func (e *StructuralError) Error() string {
	if e.Path == "" {
		return "structural error: " + e.Reason
	}
	return fmt.Sprintf("structural error at `%s`: %s", e.Path, e.Reason)
}

// Unwrap returns ErrStructural for errors.Is compatibility.
func (e *StructuralError) Unwrap() error { return ErrStructural }

// JoinPath appends key to a dotted path.
func JoinPath(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

// FromAny converts decoder output (yaml.v3, go-toml, encoding/json) into a Value.
func FromAny(in any) (Value, error) {
	return fromAny("", in)
}

// MapFromAny converts a decoded document that must be a mapping. A nil
// document (an empty file) yields an empty Map.
func MapFromAny(in any) (Map, error) {
	if in == nil {
		return Map{}, nil
	}
	v, err := fromAny("", in)
	if err != nil {
		return nil, err
	}
	m, ok := v.(Map)
	if !ok {
		return nil, &StructuralError{Reason: fmt.Sprintf("expected a mapping at the top level, found %s", v.Kind())}
	}
	return m, nil
}

func fromAny(path string, in any) (Value, error) {
	switch t := in.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return Clone(t), nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case int:
		return Int(t), nil
	case int8:
		return Int(t), nil
	case int16:
		return Int(t), nil
	case int32:
		return Int(t), nil
	case int64:
		return Int(t), nil
	case uint:
		return fromUint(path, uint64(t))
	case uint8:
		return Int(t), nil
	case uint16:
		return Int(t), nil
	case uint32:
		return Int(t), nil
	case uint64:
		return fromUint(path, t)
	case float32:
		return Float(t), nil
	case float64:
		return Float(t), nil
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, &StructuralError{Path: path, Reason: fmt.Sprintf("invalid number %q", t.String())}
		}
		return Float(f), nil
	case time.Time:
		return String(t.Format(time.RFC3339Nano)), nil
	case []any:
		out := make(List, len(t))
		for i, item := range t {
			v, err := fromAny(path+"["+strconv.Itoa(i)+"]", item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case []map[string]any:
		out := make(List, len(t))
		for i, item := range t {
			v, err := fromAny(path+"["+strconv.Itoa(i)+"]", item)
			if err != nil {
				return nil, err
			}
			out[i] = v
		}
		return out, nil
	case map[string]any:
		out := make(Map, len(t))
		for k, item := range t {
			v, err := fromAny(JoinPath(path, k), item)
			if err != nil {
				return nil, err
			}
			out[k] = v
		}
		return out, nil
	case map[any]any:
		out := make(Map, len(t))
		for k, item := range t {
			key, ok := k.(string)
			if !ok {
				return nil, &StructuralError{Path: path, Reason: fmt.Sprintf("mapping key %v is a %T, only string keys are supported", k, k)}
			}
			v, err := fromAny(JoinPath(path, key), item)
			if err != nil {
				return nil, err
			}
			out[key] = v
		}
		return out, nil
	case fmt.Stringer:
		// TOML local dates and times.
		return String(t.String()), nil
	default:
		return nil, &StructuralError{Path: path, Reason: fmt.Sprintf("unsupported value of type %T", in)}
	}
}

func fromUint(path string, u uint64) (Value, error) {
	if u > math.MaxInt64 {
		return nil, &StructuralError{Path: path, Reason: fmt.Sprintf("integer %d overflows int64", u)}
	}
	return Int(int64(u)), nil
}

// ToAny converts v into plain Go data (nil, bool, int64, float64, string,
// []any, map[string]any) accepted by every encoder the module uses.
func ToAny(v Value) any {
	switch t := v.(type) {
	case Bool:
		return bool(t)
	case Int:
		return int64(t)
	case Float:
		return float64(t)
	case String:
		return string(t)
	case List:
		out := make([]any, len(t))
		for i, item := range t {
			out[i] = ToAny(item)
		}
		return out
	case Map:
		return t.ToAny()
	default:
		return nil
	}
}

// ToAny converts m into a map[string]any.
func (m Map) ToAny() map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = ToAny(v)
	}
	return out
}

// Text returns the textual form of a scalar: strings verbatim, numbers and
// booleans in their canonical form, and "" for Null. Lists and maps fall back
// to Format.
func Text(v Value) string {
	switch t := v.(type) {
	case String:
		return string(t)
	case Null, nil:
		return ""
	case List, Map:
		return Format(t)
	default:
		return strings.Trim(Format(t), `"`)
	}
}
