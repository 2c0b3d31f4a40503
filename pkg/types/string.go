package types

import (
	"encoding/binary"
	"hash/fnv"
	"heapstore/pkg/primitives"
	"io"
	"strings"
)

// StringField represents a string column value. Values longer than
// StringMaxSize bytes are truncated on construction.
type StringField struct {
	Value string
}

// NewStringField creates a new StringField, truncating value to StringMaxSize bytes.
func NewStringField(value string) *StringField {
	if len(value) > StringMaxSize {
		value = value[:StringMaxSize]
	}
	return &StringField{Value: value}
}

// Compare performs a lexicographic comparison. Like is a substring match.
func (s *StringField) Compare(op primitives.Predicate, other Field) (bool, error) {
	otherStringField, ok := other.(*StringField)
	if !ok {
		return false, nil
	}

	if op == primitives.Like {
		return strings.Contains(s.Value, otherStringField.Value), nil
	}
	return compareOrdered(s.Value, otherStringField.Value, op), nil
}

// Serialize writes the string field to the provided writer in binary format.
// The serialization format consists of:
// 1. 4 bytes for the actual string length (big-endian uint32)
// 2. The string bytes
// 3. Zero padding up to StringMaxSize
func (s *StringField) Serialize(w io.Writer) error {
	length := min(len(s.Value), StringMaxSize)

	lengthBytes := make([]byte, 4)
	binary.BigEndian.PutUint32(lengthBytes, uint32(length)) // #nosec G115

	if _, err := w.Write(lengthBytes); err != nil {
		return err
	}

	if _, err := w.Write([]byte(s.Value[:length])); err != nil {
		return err
	}

	padding := make([]byte, StringMaxSize-length)
	_, err := w.Write(padding)
	return err
}

func (s *StringField) Type() Type {
	return StringType
}

func (s *StringField) String() string {
	return s.Value
}

func (s *StringField) Equals(other Field) bool {
	otherStringField, ok := other.(*StringField)
	if !ok {
		return false
	}
	return s.Value == otherStringField.Value
}

func (s *StringField) Hash() (primitives.HashCode, error) {
	h := fnv.New32a()
	h.Write([]byte(s.Value))
	return primitives.HashCode(h.Sum32()), nil
}

func (*StringField) isField() {}
