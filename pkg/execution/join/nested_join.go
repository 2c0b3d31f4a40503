package join

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
)

// NestedLoopJoin pairs every left tuple with every right tuple and emits
// the combined tuple for each pair that satisfies the predicate. The right
// child is rewound once per left tuple.
type NestedLoopJoin struct {
	*iterator.BinaryOperator
	predicate   *JoinPredicate
	tupleDesc   *tuple.TupleDescription
	currentLeft *tuple.Tuple
}

func NewNestedLoopJoin(predicate *JoinPredicate, left, right iterator.DbIterator) (*NestedLoopJoin, error) {
	if predicate == nil {
		return nil, fmt.Errorf("join predicate cannot be nil")
	}

	j := &NestedLoopJoin{predicate: predicate}
	op, err := iterator.NewBinaryOperator(left, right, j.readNext)
	if err != nil {
		return nil, err
	}
	j.BinaryOperator = op
	j.tupleDesc = tuple.Combine(left.GetTupleDesc(), right.GetTupleDesc())
	return j, nil
}

func (j *NestedLoopJoin) readNext() (*tuple.Tuple, error) {
	for {
		if j.currentLeft == nil {
			left, err := j.FetchLeft()
			if err != nil || left == nil {
				return nil, err
			}
			j.currentLeft = left
		}

		right, err := j.FetchRight()
		if err != nil {
			return nil, err
		}
		if right == nil {
			j.currentLeft = nil
			if err := j.RewindRight(); err != nil {
				return nil, fmt.Errorf("failed to rewind right child: %w", err)
			}
			continue
		}

		matches, err := j.predicate.Filter(j.currentLeft, right)
		if err != nil {
			return nil, err
		}
		if matches {
			return tuple.CombineTuples(j.currentLeft, right)
		}
	}
}

func (j *NestedLoopJoin) Rewind() error {
	j.currentLeft = nil
	return j.BinaryOperator.Rewind()
}

func (j *NestedLoopJoin) Close() error {
	j.currentLeft = nil
	return j.BinaryOperator.Close()
}

func (j *NestedLoopJoin) GetTupleDesc() *tuple.TupleDescription {
	return j.tupleDesc
}

func (j *NestedLoopJoin) GetPredicate() *JoinPredicate {
	return j.predicate
}
