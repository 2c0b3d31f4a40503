package query

import (
	"fmt"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// Predicate compares a tuple field to a constant value using a specified operation.
type Predicate struct {
	fieldIndex int
	op         primitives.Predicate
	operand    types.Field
}

func NewPredicate(fieldIndex int, op primitives.Predicate, operand types.Field) *Predicate {
	return &Predicate{
		fieldIndex: fieldIndex,
		op:         op,
		operand:    operand,
	}
}

// Filter reports whether t's field satisfies the comparison.
func (p *Predicate) Filter(t *tuple.Tuple) (bool, error) {
	field, err := t.GetField(p.fieldIndex)
	if err != nil {
		return false, err
	}

	if field == nil {
		return false, nil
	}

	return field.Compare(p.op, p.operand)
}

func (p *Predicate) String() string {
	return fmt.Sprintf("field[%d] %s %s", p.fieldIndex, p.op.String(), p.operand.String())
}

func (p *Predicate) FieldIndex() int {
	return p.fieldIndex
}

func (p *Predicate) Operation() primitives.Predicate {
	return p.op
}

func (p *Predicate) Value() types.Field {
	return p.operand
}
