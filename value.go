package vdf

import (
	"fmt"
	"math"
	"strconv"
)

// Kind identifies the concrete type held by a Value.
type Kind uint8

const (
	KindString Kind = iota
	KindInt32
	KindFloat32
	KindInt64
	KindUint64
	KindWideString
	KindMap
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindInt32:
		return "int32"
	case KindFloat32:
		return "float32"
	case KindInt64:
		return "int64"
	case KindUint64:
		return "uint64"
	case KindWideString:
		return "wstring"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(k))
	}
}

// Value is a single node of a decoded tree: a scalar or a nested Map.
// Text-format trees only ever contain string scalars and Maps; the binary
// format adds the numeric and wide-string kinds.
type Value struct {
	kind Kind

	str string // KindString, KindWideString
	i32 int32
	f32 float32
	i64 int64
	u64 uint64
	m   *Map
}

// String creates a string value.
func String(s string) *Value {
	return &Value{kind: KindString, str: s}
}

// WideString creates a wide-string value (binary tag 0x05).
func WideString(s string) *Value {
	return &Value{kind: KindWideString, str: s}
}

// Int32 creates a 32-bit integer value.
func Int32(v int32) *Value {
	return &Value{kind: KindInt32, i32: v}
}

// Float32 creates a 32-bit float value.
func Float32(v float32) *Value {
	return &Value{kind: KindFloat32, f32: v}
}

// Int64 creates a signed 64-bit integer value.
func Int64(v int64) *Value {
	return &Value{kind: KindInt64, i64: v}
}

// Uint64 creates an unsigned 64-bit integer value.
func Uint64(v uint64) *Value {
	return &Value{kind: KindUint64, u64: v}
}

// FromMap wraps a Map as a value.
func FromMap(m *Map) *Value {
	return &Value{kind: KindMap, m: m}
}

// Kind returns the value kind. A nil value reports KindString.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindString
	}
	return v.kind
}

// IsMap returns true if the value is a nested Map.
func (v *Value) IsMap() bool {
	return v != nil && v.kind == KindMap
}

// AsString returns the string value.
func (v *Value) AsString() (string, error) {
	if v == nil {
		return "", fmt.Errorf("vdf: nil value")
	}
	if v.kind != KindString && v.kind != KindWideString {
		return "", fmt.Errorf("vdf: expected string, got %s", v.kind)
	}
	return v.str, nil
}

// AsInt32 returns the int32 value.
func (v *Value) AsInt32() (int32, error) {
	if v == nil {
		return 0, fmt.Errorf("vdf: nil value")
	}
	if v.kind != KindInt32 {
		return 0, fmt.Errorf("vdf: expected int32, got %s", v.kind)
	}
	return v.i32, nil
}

// AsFloat32 returns the float32 value.
func (v *Value) AsFloat32() (float32, error) {
	if v == nil {
		return 0, fmt.Errorf("vdf: nil value")
	}
	if v.kind != KindFloat32 {
		return 0, fmt.Errorf("vdf: expected float32, got %s", v.kind)
	}
	return v.f32, nil
}

// AsInt64 returns the int64 value.
func (v *Value) AsInt64() (int64, error) {
	if v == nil {
		return 0, fmt.Errorf("vdf: nil value")
	}
	if v.kind != KindInt64 {
		return 0, fmt.Errorf("vdf: expected int64, got %s", v.kind)
	}
	return v.i64, nil
}

// AsUint64 returns the uint64 value.
func (v *Value) AsUint64() (uint64, error) {
	if v == nil {
		return 0, fmt.Errorf("vdf: nil value")
	}
	if v.kind != KindUint64 {
		return 0, fmt.Errorf("vdf: expected uint64, got %s", v.kind)
	}
	return v.u64, nil
}

// AsMap returns the nested Map.
func (v *Value) AsMap() (*Map, error) {
	if v == nil {
		return nil, fmt.Errorf("vdf: nil value")
	}
	if v.kind != KindMap {
		return nil, fmt.Errorf("vdf: expected map, got %s", v.kind)
	}
	return v.m, nil
}

// Text coerces any scalar to its text-format literal. Maps have no scalar
// literal and render as an empty string; the text writer handles them
// structurally.
func (v *Value) Text() string {
	if v == nil {
		return ""
	}
	switch v.kind {
	case KindString, KindWideString:
		return v.str
	case KindInt32:
		return strconv.FormatInt(int64(v.i32), 10)
	case KindFloat32:
		return strconv.FormatFloat(float64(v.f32), 'g', -1, 32)
	case KindInt64:
		return strconv.FormatInt(v.i64, 10)
	case KindUint64:
		return strconv.FormatUint(v.u64, 10)
	default:
		return ""
	}
}

// Equal reports deep equality. Float32 values compare by exact bit
// pattern, so NaN equals NaN and +0 differs from -0.
func (v *Value) Equal(other *Value) bool {
	if v == nil || other == nil {
		return v == other
	}
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString, KindWideString:
		return v.str == other.str
	case KindInt32:
		return v.i32 == other.i32
	case KindFloat32:
		return math.Float32bits(v.f32) == math.Float32bits(other.f32)
	case KindInt64:
		return v.i64 == other.i64
	case KindUint64:
		return v.u64 == other.u64
	case KindMap:
		return v.m.Equal(other.m)
	default:
		return false
	}
}
