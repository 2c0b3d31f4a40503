package types

import (
	"heapstore/pkg/primitives"
	"io"
)

// Field is a single typed value inside a tuple.
//
// Only *IntField and *StringField implement Field; the unexported marker
// method keeps the set closed.
type Field interface {
	// Serialize writes exactly Type().Size() bytes to w.
	Serialize(w io.Writer) error

	// Compare applies op with the receiver on the left-hand side. Fields of a
	// different kind never satisfy a comparison.
	Compare(op primitives.Predicate, other Field) (bool, error)

	Type() Type

	String() string

	Equals(other Field) bool

	Hash() (primitives.HashCode, error)

	isField()
}

func compareOrdered[T int32 | string](a, b T, op primitives.Predicate) bool {
	switch op {
	case primitives.Equals:
		return a == b
	case primitives.LessThan:
		return a < b
	case primitives.GreaterThan:
		return a > b
	case primitives.LessThanOrEqual:
		return a <= b
	case primitives.GreaterThanOrEqual:
		return a >= b
	case primitives.NotEqual:
		return a != b
	default:
		return false
	}
}
