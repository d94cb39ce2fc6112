package usersession

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type (
	// Preferences maps preference names to dynamically typed values. A nil
	// Preferences is absent (rejected by UpdateUserPreferences); an empty one
	// is a valid, empty set.
	Preferences map[string]Value

	// Value is a tagged preference value: a string, bool, int64, float64 or a
	// nested Preferences map. The zero Value is invalid.
	Value struct {
		kind Kind
		s    string
		b    bool
		i    int64
		f    float64
		m    Preferences
	}

	// Kind identifies the type held by a Value.
	Kind uint8
)

const (
	// KindString tags a string value.
	KindString Kind = iota + 1
	// KindBool tags a boolean value.
	KindBool
	// KindInt tags a 64-bit integer value.
	KindInt
	// KindFloat tags a 64-bit floating point value.
	KindFloat
	// KindMap tags a nested Preferences value.
	KindMap
)

// String returns a string Value.
func String(s string) Value { return Value{kind: KindString, s: s} }

// Bool returns a boolean Value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer Value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point Value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Map returns a nested Value. A nil map is stored as an empty one.
func Map(m Preferences) Value {
	if m == nil {
		m = Preferences{}
	}
	return Value{kind: KindMap, m: m}
}

// Kind returns the type tag of v, zero for an invalid Value.
func (v Value) Kind() Kind { return v.kind }

// AsString returns the string held by v.
func (v Value) AsString() (string, bool) { return v.s, v.kind == KindString }

// AsBool returns the boolean held by v.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == KindBool }

// AsInt returns the integer held by v.
func (v Value) AsInt() (int64, bool) { return v.i, v.kind == KindInt }

// AsFloat returns the float held by v.
func (v Value) AsFloat() (float64, bool) { return v.f, v.kind == KindFloat }

// AsMap returns the nested preferences held by v.
func (v Value) AsMap() (Preferences, bool) { return v.m, v.kind == KindMap }

// Interface returns v as a plain Go value: string, bool, int64, float64 or
// map[string]any. It returns nil for an invalid Value.
func (v Value) Interface() any {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return v.b
	case KindInt:
		return v.i
	case KindFloat:
		return v.f
	case KindMap:
		return v.m.Raw()
	default:
		return nil
	}
}

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindMap:
		return "map"
	default:
		return "invalid"
	}
}

// Validate reports whether p can be stored: p must be non-nil, every key must
// be a non-empty document field name (no leading '$', no '.') and every value,
// recursively, must be a valid Value.
func (p Preferences) Validate() error {
	if p == nil {
		return ErrNilPreferences
	}
	return p.validate("")
}

func (p Preferences) validate(prefix string) error {
	for k, v := range p {
		path := prefix + k
		if k == "" {
			return fmt.Errorf("%w: empty preference name under %q", ErrInvalid, prefix)
		}
		if strings.HasPrefix(k, "$") || strings.Contains(k, ".") {
			return fmt.Errorf("%w: preference name %q may not start with '$' or contain '.'", ErrInvalid, path)
		}
		switch v.kind {
		case KindString, KindBool, KindInt, KindFloat:
		case KindMap:
			if err := v.m.validate(path + "."); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: preference %q has no value", ErrInvalid, path)
		}
	}
	return nil
}

// Raw returns p as a map of plain Go values (see Value.Interface). It returns
// nil when p is nil.
func (p Preferences) Raw() map[string]any {
	if p == nil {
		return nil
	}
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v.Interface()
	}
	return out
}

// Clone returns a deep copy of p.
func (p Preferences) Clone() Preferences {
	if p == nil {
		return nil
	}
	out := make(Preferences, len(p))
	for k, v := range p {
		if v.kind == KindMap {
			v.m = v.m.Clone()
		}
		out[k] = v
	}
	return out
}

// ParsePreferences converts decoded JSON or document data into Preferences.
// Accepted values are strings, booleans, Go integer and float types,
// json.Number, Value, nested map[string]any and nested Preferences. A nil raw
// map yields ErrNilPreferences.
func ParsePreferences(raw map[string]any) (Preferences, error) {
	if raw == nil {
		return nil, ErrNilPreferences
	}
	p, err := parseMap(raw, "")
	if err != nil {
		return nil, err
	}
	if err := p.validate(""); err != nil {
		return nil, err
	}
	return p, nil
}

func parseMap(raw map[string]any, prefix string) (Preferences, error) {
	out := make(Preferences, len(raw))
	for k, rv := range raw {
		v, err := parseValue(rv, prefix+k)
		if err != nil {
			return nil, err
		}
		out[k] = v
	}
	return out, nil
}

func parseValue(raw any, path string) (Value, error) {
	switch x := raw.(type) {
	case Value:
		return x, nil
	case string:
		return String(x), nil
	case bool:
		return Bool(x), nil
	case int:
		return Int(int64(x)), nil
	case int8:
		return Int(int64(x)), nil
	case int16:
		return Int(int64(x)), nil
	case int32:
		return Int(int64(x)), nil
	case int64:
		return Int(x), nil
	case uint8:
		return Int(int64(x)), nil
	case uint16:
		return Int(int64(x)), nil
	case uint32:
		return Int(int64(x)), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: preference %q overflows int64", ErrInvalid, path)
		}
		return Int(int64(x)), nil
	case uint64:
		if x > math.MaxInt64 {
			return Value{}, fmt.Errorf("%w: preference %q overflows int64", ErrInvalid, path)
		}
		return Int(int64(x)), nil
	case float32:
		return Float(float64(x)), nil
	case float64:
		return Float(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return Int(i), nil
		}
		f, err := x.Float64()
		if err != nil {
			return Value{}, fmt.Errorf("%w: preference %q: %v", ErrInvalid, path, err)
		}
		return Float(f), nil
	case Preferences:
		if x == nil {
			return Value{}, fmt.Errorf("%w: preference %q is null", ErrInvalid, path)
		}
		return Map(x.Clone()), nil
	case map[string]any:
		if x == nil {
			return Value{}, fmt.Errorf("%w: preference %q is null", ErrInvalid, path)
		}
		m, err := parseMap(x, path+".")
		if err != nil {
			return Value{}, err
		}
		return Map(m), nil
	case nil:
		return Value{}, fmt.Errorf("%w: preference %q is null", ErrInvalid, path)
	default:
		return Value{}, fmt.Errorf("%w: preference %q has unsupported type %T", ErrInvalid, path, raw)
	}
}
