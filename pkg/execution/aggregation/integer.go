package aggregation

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

type intState struct {
	min, max int32
	sum      int64
	count    int64
}

// IntegerAggregator handles aggregation over integer fields. Sums are
// accumulated in 64 bits and narrowed on output; AVG truncates toward zero.
type IntegerAggregator struct {
	aggrField int
	op        AggregateOp
	groups    *groupTable[intState]
	tupleDesc *tuple.TupleDescription
}

// NewIntegerAggregator aggregates column aField of the input, grouped by
// column gbField (or NoGrouping). td is the input schema.
func NewIntegerAggregator(td *tuple.TupleDescription, gbField, aField int, op AggregateOp) (*IntegerAggregator, error) {
	if op < Min || op > Count {
		return nil, fmt.Errorf("unsupported operation: %v", op)
	}
	outTD, err := describe(td, gbField, aField, op)
	if err != nil {
		return nil, err
	}

	return &IntegerAggregator{
		aggrField: aField,
		op:        op,
		groups:    newGroupTable[intState](gbField),
		tupleDesc: outTD,
	}, nil
}

// describe validates the column indexes against td and builds the output schema.
func describe(td *tuple.TupleDescription, gbField, aField int, op AggregateOp) (*tuple.TupleDescription, error) {
	aggName, err := td.GetFieldName(aField)
	if err != nil {
		return nil, fmt.Errorf("aggregate field: %w", err)
	}

	var groupName string
	var groupType types.Type
	if gbField != NoGrouping {
		if groupName, err = td.GetFieldName(gbField); err != nil {
			return nil, fmt.Errorf("grouping field: %w", err)
		}
		groupType, _ = td.TypeAtIndex(gbField)
	}
	return resultDesc(gbField, groupName, groupType, op, aggName), nil
}

func (ia *IntegerAggregator) GetTupleDesc() *tuple.TupleDescription {
	return ia.tupleDesc
}

func (ia *IntegerAggregator) Merge(tup *tuple.Tuple) error {
	aggField, err := tup.GetField(ia.aggrField)
	if err != nil {
		return fmt.Errorf("failed to get aggregate field: %w", err)
	}

	var v int32
	switch f := aggField.(type) {
	case *types.IntField:
		v = f.Value
	default:
		return fmt.Errorf("aggregate field is %s, not an integer", aggField.Type())
	}

	st, err := ia.groups.stateFor(tup, func() intState { return intState{min: v, max: v} })
	if err != nil {
		return err
	}

	st.min = min(st.min, v)
	st.max = max(st.max, v)
	st.sum += int64(v)
	st.count++
	return nil
}

func (ia *IntegerAggregator) value(st *intState) int32 {
	switch ia.op {
	case Min:
		return st.min
	case Max:
		return st.max
	case Sum:
		return int32(st.sum)
	case Avg:
		return int32(st.sum / st.count)
	default:
		return int32(st.count)
	}
}

func (ia *IntegerAggregator) Iterator() iterator.DbIterator {
	return resultIterator(ia.tupleDesc, ia.groups, ia.op, ia.value)
}

// resultIterator materializes the group results. An ungrouped COUNT over
// no input yields a single 0; other aggregates over no input yield nothing.
func resultIterator[S any](td *tuple.TupleDescription, groups *groupTable[S], op AggregateOp, value func(*S) int32) iterator.DbIterator {
	if groups.empty() {
		if op == Count && groups.groupByField == NoGrouping {
			zero := tuple.NewBuilder(td).AddInt(0).MustBuild()
			return iterator.NewTupleSliceIterator(td, []*tuple.Tuple{zero})
		}
		return iterator.NewTupleSliceIterator(td, nil)
	}

	results, err := groups.results(td, value)
	if err != nil {
		return iterator.NewTupleSliceIterator(td, nil)
	}
	return iterator.NewTupleSliceIterator(td, results)
}
