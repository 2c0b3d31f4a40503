// Package types defines the column types a tuple can hold.
//
// The set of field kinds is closed: a Field is either an *IntField or a
// *StringField. Code that needs per-kind behaviour (aggregation, parsing)
// switches on the concrete type rather than probing with Equals.
package types

import (
	"fmt"
	"strings"
)

// Type identifies the kind of a column.
type Type int

const (
	IntType Type = iota
	StringType
)

// StringMaxSize is the fixed number of payload bytes reserved for every
// string field on disk.
const StringMaxSize = 128

// Size returns the on-disk width of a field of this type in bytes.
func (t Type) Size() uint32 {
	switch t {
	case IntType:
		return 4
	case StringType:
		return 4 + StringMaxSize
	default:
		return 0
	}
}

// String returns a string representation of the type
func (t Type) String() string {
	switch t {
	case IntType:
		return "INT_TYPE"
	case StringType:
		return "STRING_TYPE"
	default:
		return "UNKNOWN_TYPE"
	}
}

// ParseType maps a schema type name ("int", "string") to a Type.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "integer", "int_type":
		return IntType, nil
	case "string", "text", "string_type":
		return StringType, nil
	default:
		return 0, fmt.Errorf("unknown column type %q", name)
	}
}
