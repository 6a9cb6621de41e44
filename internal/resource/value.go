package resource

import (
	"math"
	"strconv"
)

// Kind classifies a Value.
type Kind int

const (
	// KindScalar is a string, number, boolean or null leaf.
	KindScalar Kind = iota
	// KindTree is a nested resource tree.
	KindTree
	// KindArray is an ordered sequence of values.
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindTree:
		return "tree"
	case KindArray:
		return "array"
	default:
		return "unknown"
	}
}

// Value is one of Scalar, *Tree or Array. The set is closed: no other type
// implements it.
type Value interface {
	Kind() Kind
	isValue()
}

// ScalarType is the dynamic type carried by a Scalar.
type ScalarType int

const (
	NullType ScalarType = iota
	StringType
	IntType
	FloatType
	BoolType
)

// Scalar is an immutable leaf value. The zero Scalar is null.
type Scalar struct {
	typ ScalarType
	s   string
	i   int64
	f   float64
	b   bool
}

func String(s string) Scalar { return Scalar{typ: StringType, s: s} }

func Int(i int64) Scalar { return Scalar{typ: IntType, i: i} }

func Float(f float64) Scalar { return Scalar{typ: FloatType, f: f} }

func Bool(b bool) Scalar { return Scalar{typ: BoolType, b: b} }

func Null() Scalar { return Scalar{} }

func (Scalar) Kind() Kind { return KindScalar }

func (Scalar) isValue() {}

func (s Scalar) Type() ScalarType { return s.typ }

func (s Scalar) IsNull() bool { return s.typ == NullType }

// Str returns the string payload when s holds a string.
func (s Scalar) Str() (string, bool) {
	return s.s, s.typ == StringType
}

// Number returns s as a float64 when it holds an int or a float.
func (s Scalar) Number() (float64, bool) {
	switch s.typ {
	case IntType:
		return float64(s.i), true
	case FloatType:
		return s.f, true
	default:
		return 0, false
	}
}

// IsNaN reports whether s is a float NaN, which tabular sources use as a
// missing-value marker.
func (s Scalar) IsNaN() bool {
	return s.typ == FloatType && math.IsNaN(s.f)
}

// Interface returns the plain Go value: nil, string, int64, float64 or bool.
func (s Scalar) Interface() any {
	switch s.typ {
	case StringType:
		return s.s
	case IntType:
		return s.i
	case FloatType:
		return s.f
	case BoolType:
		return s.b
	default:
		return nil
	}
}

// Text renders s for text-only containers such as CSV cells. Null renders
// as the empty string.
func (s Scalar) Text() string {
	switch s.typ {
	case StringType:
		return s.s
	case IntType:
		return strconv.FormatInt(s.i, 10)
	case FloatType:
		return strconv.FormatFloat(s.f, 'g', -1, 64)
	case BoolType:
		return strconv.FormatBool(s.b)
	default:
		return ""
	}
}

// Equal compares two scalars. Ints and floats compare numerically; NaN is
// never equal to anything.
func (s Scalar) Equal(o Scalar) bool {
	if a, ok := s.Number(); ok {
		b, ok := o.Number()
		return ok && a == b
	}
	if s.typ != o.typ {
		return false
	}
	switch s.typ {
	case StringType:
		return s.s == o.s
	case BoolType:
		return s.b == o.b
	default:
		return true
	}
}

// Array is an ordered sequence of trees and/or scalars.
type Array []Value

func (Array) Kind() Kind { return KindArray }
func (Array) isValue()   {}

// Equal reports deep structural equality. Trees compare by their data
// fields regardless of key order; metadata is ignored.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Scalar:
		return x.Equal(b.(Scalar))
	case *Tree:
		return x.Equal(b.(*Tree))
	case Array:
		y := b.(Array)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	}
	return false
}

// Clone deep-copies v.
func Clone(v Value) Value {
	switch x := v.(type) {
	case *Tree:
		return x.Clone()
	case Array:
		out := make(Array, len(x))
		for i, e := range x {
			out[i] = Clone(e)
		}
		return out
	default:
		return v
	}
}
