// Package value defines Indu's runtime value representation: the small,
// immutable tagged union shared by the compiler's constant handling and
// the VM's stack and globals table.
package value

import (
	"strconv"
)

// Kind tags which variant of Value is populated.
type Kind int

const (
	KindNil Kind = iota
	KindBoolean
	KindNumber
	KindString
)

// Value is Indu's tagged-union runtime datum: exactly one of Nil,
// Boolean, Number, or String. It is copied by value throughout the
// compiler and VM — there is no heap indirection or reference counting
// because every variant is either empty or already cheap to copy
// (float64, bool, and Go's own immutable, sharable string header).
type Value struct {
	kind   Kind
	number float64
	str    string
	b      bool
}

// Nil is the single nil value.
var Nil = Value{kind: KindNil}

// Bool constructs a Boolean value.
func Bool(b bool) Value { return Value{kind: KindBoolean, b: b} }

// Number constructs a Number value.
func Number(n float64) Value { return Value{kind: KindNumber, number: n} }

// Str constructs a String value.
func Str(s string) Value { return Value{kind: KindString, str: s} }

// Kind reports which variant this Value holds.
func (v Value) Kind() Kind { return v.kind }

// IsNil reports whether v is the Nil value.
func (v Value) IsNil() bool { return v.kind == KindNil }

// AsBoolean returns the underlying bool. Only valid when Kind() == KindBoolean.
func (v Value) AsBoolean() bool { return v.b }

// AsNumber returns the underlying float64. Only valid when Kind() == KindNumber.
func (v Value) AsNumber() float64 { return v.number }

// AsString returns the underlying string. Only valid when Kind() == KindString.
func (v Value) AsString() string { return v.str }

// Truthy implements Indu's truthiness projection: Nil is false, Boolean
// is itself, Number is false only for exactly 0.0, String is false only
// when empty, and everything else is true.
func (v Value) Truthy() bool {
	switch v.kind {
	case KindNil:
		return false
	case KindBoolean:
		return v.b
	case KindNumber:
		return v.number != 0.0
	case KindString:
		return v.str != ""
	default:
		return true
	}
}

// Equal implements structural equality: values of different kinds are
// never equal, values of the same kind compare their payload directly.
func (v Value) Equal(other Value) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case KindNil:
		return true
	case KindBoolean:
		return v.b == other.b
	case KindNumber:
		return v.number == other.number
	case KindString:
		return v.str == other.str
	default:
		return false
	}
}

// TypeName returns the name used in runtime error messages (e.g.
// "+ is not defined for String and Number").
func (v Value) TypeName() string {
	switch v.kind {
	case KindNil:
		return "Nil"
	case KindBoolean:
		return "Boolean"
	case KindNumber:
		return "Number"
	case KindString:
		return "String"
	default:
		return "Unknown"
	}
}

// String renders a Value's display form: numbers without trailing
// zeros, strings unquoted, booleans as true/false, nil as "nil".
func (v Value) String() string {
	switch v.kind {
	case KindNil:
		return "nil"
	case KindBoolean:
		if v.b {
			return "true"
		}
		return "false"
	case KindNumber:
		return strconv.FormatFloat(v.number, 'g', -1, 64)
	case KindString:
		return v.str
	default:
		return "<unknown>"
	}
}
