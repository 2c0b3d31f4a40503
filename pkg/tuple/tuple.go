// Package tuple holds rows, their schemas and their on-page locations.
package tuple

import (
	"fmt"
	"heapstore/pkg/types"
	"io"
	"strings"
)

// Tuple represents a row of data in the database
type Tuple struct {
	TupleDesc *TupleDescription
	fields    []types.Field
	RecordID  *RecordID // nil until the tuple is stored on a page
}

// NewTuple creates a new tuple with the given schema and no field values.
func NewTuple(td *TupleDescription) *Tuple {
	return &Tuple{
		TupleDesc: td,
		fields:    make([]types.Field, td.NumFields()),
	}
}

// SetField stores field at position i. The field's type must match the schema.
func (t *Tuple) SetField(i int, field types.Field) error {
	if i < 0 || i >= len(t.fields) {
		return fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}

	expectedType, _ := t.TupleDesc.TypeAtIndex(i)
	if field.Type() != expectedType {
		return fmt.Errorf("field type mismatch: expected %v, got %v",
			expectedType, field.Type())
	}

	t.fields[i] = field
	return nil
}

// GetField returns the value of the ith field
func (t *Tuple) GetField(i int) (types.Field, error) {
	if i < 0 || i >= len(t.fields) {
		return nil, fmt.Errorf("field index %d out of bounds [0, %d)", i, len(t.fields))
	}
	return t.fields[i], nil
}

// Complete reports an error naming the first field that was never set.
func (t *Tuple) Complete() error {
	for i, f := range t.fields {
		if f == nil {
			name, _ := t.TupleDesc.GetFieldName(i)
			return fmt.Errorf("field %d (%s) is not set", i, name)
		}
	}
	return nil
}

// Serialize writes every field in schema order. Unset fields are an error.
func (t *Tuple) Serialize(w io.Writer) error {
	for i, f := range t.fields {
		if f == nil {
			return fmt.Errorf("field %d is not set", i)
		}
		if err := f.Serialize(w); err != nil {
			return fmt.Errorf("failed to serialize field %d: %w", i, err)
		}
	}
	return nil
}

// Parse reads one tuple with schema td from r.
func Parse(r io.Reader, td *TupleDescription) (*Tuple, error) {
	t := NewTuple(td)
	for i, fieldType := range td.Types {
		f, err := types.ParseField(r, fieldType)
		if err != nil {
			return nil, fmt.Errorf("failed to parse field %d: %w", i, err)
		}
		t.fields[i] = f
	}
	return t, nil
}

// Equals compares field values only; schema names and RecordID are ignored.
func (t *Tuple) Equals(other *Tuple) bool {
	if other == nil || len(t.fields) != len(other.fields) {
		return false
	}
	for i, f := range t.fields {
		o := other.fields[i]
		if f == nil || o == nil {
			if f != o {
				return false
			}
			continue
		}
		if !f.Equals(o) {
			return false
		}
	}
	return true
}

// String returns the fields separated by tabs and terminated by a newline.
func (t *Tuple) String() string {
	parts := make([]string, 0, len(t.fields))
	for _, field := range t.fields {
		if field != nil {
			parts = append(parts, field.String())
		} else {
			parts = append(parts, "null")
		}
	}
	return strings.Join(parts, "\t") + "\n"
}

// CombineTuples concatenates two tuples, as produced by a join.
func CombineTuples(t1, t2 *Tuple) (*Tuple, error) {
	if t1 == nil || t2 == nil {
		return nil, fmt.Errorf("cannot combine nil tuples")
	}

	newTuple := NewTuple(Combine(t1.TupleDesc, t2.TupleDesc))
	copy(newTuple.fields, t1.fields)
	copy(newTuple.fields[len(t1.fields):], t2.fields)
	return newTuple, nil
}

// Clone returns a copy of t that shares field values but not the RecordID.
func (t *Tuple) Clone() *Tuple {
	newTup := NewTuple(t.TupleDesc)
	copy(newTup.fields, t.fields)
	return newTup
}
