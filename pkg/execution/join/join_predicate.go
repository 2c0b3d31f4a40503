// Package join implements joins between two child operators.
package join

import (
	"fmt"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
)

// JoinPredicate compares a field of the left tuple with a field of the
// right tuple.
type JoinPredicate struct {
	leftField  int
	rightField int
	op         primitives.Predicate
}

func NewJoinPredicate(leftField, rightField int, op primitives.Predicate) (*JoinPredicate, error) {
	if leftField < 0 || rightField < 0 {
		return nil, fmt.Errorf("field indices must be non-negative")
	}
	return &JoinPredicate{leftField: leftField, rightField: rightField, op: op}, nil
}

// Filter reports whether the pair (t1, t2) satisfies the predicate.
func (jp *JoinPredicate) Filter(t1, t2 *tuple.Tuple) (bool, error) {
	if t1 == nil || t2 == nil {
		return false, fmt.Errorf("cannot compare nil tuples")
	}

	left, err := t1.GetField(jp.leftField)
	if err != nil {
		return false, fmt.Errorf("left tuple: %w", err)
	}
	right, err := t2.GetField(jp.rightField)
	if err != nil {
		return false, fmt.Errorf("right tuple: %w", err)
	}
	if left == nil || right == nil {
		return false, nil
	}
	return left.Compare(jp.op, right)
}

func (jp *JoinPredicate) GetLeftField() int           { return jp.leftField }
func (jp *JoinPredicate) GetRightField() int          { return jp.rightField }
func (jp *JoinPredicate) GetOP() primitives.Predicate { return jp.op }

func (jp *JoinPredicate) String() string {
	return fmt.Sprintf("left[%d] %s right[%d]", jp.leftField, jp.op, jp.rightField)
}
