package aggregation

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

type countState struct {
	count int64
}

// StringAggregator counts string values. COUNT is the only aggregate
// defined over strings.
type StringAggregator struct {
	aggrField int
	groups    *groupTable[countState]
	tupleDesc *tuple.TupleDescription
}

func NewStringAggregator(td *tuple.TupleDescription, gbField, aField int, op AggregateOp) (*StringAggregator, error) {
	if op != Count {
		return nil, fmt.Errorf("string aggregator only supports COUNT, got %s", op)
	}
	outTD, err := describe(td, gbField, aField, op)
	if err != nil {
		return nil, err
	}

	return &StringAggregator{
		aggrField: aField,
		groups:    newGroupTable[countState](gbField),
		tupleDesc: outTD,
	}, nil
}

func (sa *StringAggregator) GetTupleDesc() *tuple.TupleDescription {
	return sa.tupleDesc
}

func (sa *StringAggregator) Merge(tup *tuple.Tuple) error {
	aggField, err := tup.GetField(sa.aggrField)
	if err != nil {
		return fmt.Errorf("failed to get aggregate field: %w", err)
	}
	if _, ok := aggField.(*types.StringField); !ok {
		return fmt.Errorf("aggregate field is %s, not a string", aggField.Type())
	}

	st, err := sa.groups.stateFor(tup, func() countState { return countState{} })
	if err != nil {
		return err
	}
	st.count++
	return nil
}

func (sa *StringAggregator) Iterator() iterator.DbIterator {
	return resultIterator(sa.tupleDesc, sa.groups, Count, func(st *countState) int32 {
		return int32(st.count)
	})
}
