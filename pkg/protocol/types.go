package protocol

// Core value types for the pnbridge call bridge.
// This package defines the data shared by the codec, the registry and the bridge.

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind identifies which variant a Value holds.
// The numeric values double as the tag bytes on the wire.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindString
	KindReal
	KindArray
)

// String returns the variant name.
func (k Kind) String() string {
	switch k {
	case KindUndefined:
		return "undefined"
	case KindString:
		return "string"
	case KindReal:
		return "real"
	case KindArray:
		return "array"
	default:
		return fmt.Sprintf("kind(%d)", uint8(k))
	}
}

// Valid reports whether k is one of the four known variants.
func (k Kind) Valid() bool {
	return k <= KindArray
}

// Value is a closed tagged union of Undefined, String, Real and Array.
// The zero Value is Undefined.
type Value struct {
	kind  Kind
	str   string
	real  float64
	array []Value
}

// Undefined returns the unit value.
func Undefined() Value {
	return Value{}
}

// NewString returns a String value. Each byte of s is one character.
func NewString(s string) Value {
	return Value{kind: KindString, str: s}
}

// NewReal returns a Real value.
func NewReal(f float64) Value {
	return Value{kind: KindReal, real: f}
}

// NewArray returns an Array value holding elems in order.
// A nil or empty argument list yields an empty array, never Undefined.
func NewArray(elems ...Value) Value {
	if elems == nil {
		elems = []Value{}
	}
	return Value{kind: KindArray, array: elems}
}

// Kind returns the stored variant.
func (v Value) Kind() Kind {
	return v.kind
}

// IsUndefined reports whether v is Undefined.
func (v Value) IsUndefined() bool {
	return v.kind == KindUndefined
}

// AsString returns the string payload and true if v is a String.
func (v Value) AsString() (string, bool) {
	if v.kind != KindString {
		return "", false
	}
	return v.str, true
}

// AsReal returns the number and true if v is a Real.
func (v Value) AsReal() (float64, bool) {
	if v.kind != KindReal {
		return 0, false
	}
	return v.real, true
}

// AsArray returns the elements and true if v is an Array.
// The returned slice is shared with v.
func (v Value) AsArray() ([]Value, bool) {
	if v.kind != KindArray {
		return nil, false
	}
	return v.array, true
}

// ToString is AsString that fails with a *TypeMismatchError.
func (v Value) ToString() (string, error) {
	s, ok := v.AsString()
	if !ok {
		return "", &TypeMismatchError{Want: KindString, Got: v.kind}
	}
	return s, nil
}

// ToReal is AsReal that fails with a *TypeMismatchError.
func (v Value) ToReal() (float64, error) {
	f, ok := v.AsReal()
	if !ok {
		return 0, &TypeMismatchError{Want: KindReal, Got: v.kind}
	}
	return f, nil
}

// ToArray is AsArray that fails with a *TypeMismatchError.
func (v Value) ToArray() ([]Value, error) {
	a, ok := v.AsArray()
	if !ok {
		return nil, &TypeMismatchError{Want: KindArray, Got: v.kind}
	}
	return a, nil
}

// Equal reports structural equality. Reals compare by bit pattern so that
// NaN payloads survive a round trip comparison.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindString:
		return v.str == other.str
	case KindReal:
		return math.Float64bits(v.real) == math.Float64bits(other.real)
	case KindArray:
		if len(v.array) != len(other.array) {
			return false
		}
		for i := range v.array {
			if !v.array[i].Equal(other.array[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

// String renders v for logs and test failures.
func (v Value) String() string {
	var b strings.Builder
	v.format(&b)
	return b.String()
}

func (v Value) format(b *strings.Builder) {
	switch v.kind {
	case KindString:
		b.WriteString(strconv.Quote(v.str))
	case KindReal:
		b.WriteString(strconv.FormatFloat(v.real, 'g', -1, 64))
	case KindArray:
		b.WriteByte('[')
		for i, e := range v.array {
			if i > 0 {
				b.WriteString(", ")
			}
			e.format(b)
		}
		b.WriteByte(']')
	default:
		b.WriteString("undefined")
	}
}

// Reals converts a list of numbers into Real values.
func Reals(fs ...float64) []Value {
	out := make([]Value, len(fs))
	for i, f := range fs {
		out[i] = NewReal(f)
	}
	return out
}
