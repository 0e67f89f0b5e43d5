package matchfilter

import (
	"strconv"
	"strings"

	"CorpusSearch/internal/sensitivity"
)

// Kind tags the variant held by a ConstraintValue.
type Kind uint8

const (
	KindUndefined Kind = iota
	KindBoolean
	KindInt
	KindString
)

func (k Kind) String() string {
	switch k {
	case KindBoolean:
		return "boolean"
	case KindInt:
		return "int"
	case KindString:
		return "string"
	default:
		return "undefined"
	}
}

// ConstraintValue is the result of evaluating a filter node. The zero
// value is undefined.
type ConstraintValue struct {
	kind Kind
	b    bool
	i    int
	s    string
}

func Undefined() ConstraintValue            { return ConstraintValue{} }
func BoolValue(b bool) ConstraintValue      { return ConstraintValue{kind: KindBoolean, b: b} }
func IntValue(i int) ConstraintValue        { return ConstraintValue{kind: KindInt, i: i} }
func StringValue(s string) ConstraintValue  { return ConstraintValue{kind: KindString, s: s} }
func (v ConstraintValue) Kind() Kind        { return v.kind }
func (v ConstraintValue) IsUndefined() bool { return v.kind == KindUndefined }
func (v ConstraintValue) BoolVal() bool     { return v.b }
func (v ConstraintValue) IntVal() int       { return v.i }
func (v ConstraintValue) StringVal() string { return v.s }

// IsTruthy reports whether the value counts as true in a boolean context.
// Ints and strings are always truthy, undefined never is.
func (v ConstraintValue) IsTruthy() bool {
	switch v.kind {
	case KindBoolean:
		return v.b
	case KindInt, KindString:
		return true
	default:
		return false
	}
}

// Equal compares two defined values of the same kind. Strings are compared
// under s.
func (v ConstraintValue) Equal(o ConstraintValue, s sensitivity.Sensitivity) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindBoolean:
		return v.b == o.b
	case KindInt:
		return v.i == o.i
	case KindString:
		return sensitivity.Equal(v.s, o.s, s)
	default:
		return false
	}
}

// Compare orders two ints or two strings. ok is false for any other pair.
func (v ConstraintValue) Compare(o ConstraintValue, s sensitivity.Sensitivity) (c int, ok bool) {
	if v.kind != o.kind {
		return 0, false
	}
	switch v.kind {
	case KindInt:
		switch {
		case v.i < o.i:
			return -1, true
		case v.i > o.i:
			return 1, true
		}
		return 0, true
	case KindString:
		return strings.Compare(sensitivity.Key(v.s, s), sensitivity.Key(o.s, s)), true
	default:
		return 0, false
	}
}

func (v ConstraintValue) String() string {
	switch v.kind {
	case KindBoolean:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.Itoa(v.i)
	case KindString:
		return strconv.Quote(v.s)
	default:
		return "undefined"
	}
}
