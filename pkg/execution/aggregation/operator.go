package aggregation

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// AggregateOperator drains its child on Open, folding every tuple into an
// aggregator, and then yields one tuple per group.
type AggregateOperator struct {
	child        iterator.DbIterator
	aggrField    int
	groupByField int
	op           AggregateOp
	aggregator   Aggregator
	newAgg       func() (Aggregator, error)
	results      iterator.DbIterator
}

// NewAggregateOperator aggregates column aField of child with op, grouped by
// column gbField or NoGrouping. The aggregator is chosen by the type of the
// aggregated column.
func NewAggregateOperator(child iterator.DbIterator, aField, gbField int, op AggregateOp) (*AggregateOperator, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}

	td := child.GetTupleDesc()
	aggType, err := td.TypeAtIndex(aField)
	if err != nil {
		return nil, fmt.Errorf("aggregate field: %w", err)
	}

	var newAgg func() (Aggregator, error)
	switch aggType {
	case types.IntType:
		newAgg = func() (Aggregator, error) { return NewIntegerAggregator(td, gbField, aField, op) }
	case types.StringType:
		newAgg = func() (Aggregator, error) { return NewStringAggregator(td, gbField, aField, op) }
	default:
		return nil, fmt.Errorf("cannot aggregate over %s", aggType)
	}

	agg, err := newAgg()
	if err != nil {
		return nil, err
	}

	return &AggregateOperator{
		child:        child,
		aggrField:    aField,
		groupByField: gbField,
		op:           op,
		aggregator:   agg,
		newAgg:       newAgg,
	}, nil
}

func (ao *AggregateOperator) Open() error {
	if err := ao.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}

	agg, err := ao.newAgg()
	if err != nil {
		return err
	}
	ao.aggregator = agg

	if err := iterator.ForEach(ao.child, ao.aggregator.Merge); err != nil {
		return fmt.Errorf("aggregation failed: %w", err)
	}

	ao.results = ao.aggregator.Iterator()
	return ao.results.Open()
}

func (ao *AggregateOperator) HasNext() (bool, error) {
	if ao.results == nil {
		return false, fmt.Errorf("iterator not opened")
	}
	return ao.results.HasNext()
}

func (ao *AggregateOperator) Next() (*tuple.Tuple, error) {
	if ao.results == nil {
		return nil, fmt.Errorf("iterator not opened")
	}
	return ao.results.Next()
}

// Rewind replays the computed groups without re-reading the child.
func (ao *AggregateOperator) Rewind() error {
	if ao.results == nil {
		return fmt.Errorf("iterator not opened")
	}
	return ao.results.Rewind()
}

func (ao *AggregateOperator) Close() error {
	if ao.results != nil {
		ao.results.Close()
		ao.results = nil
	}
	return ao.child.Close()
}

func (ao *AggregateOperator) GetTupleDesc() *tuple.TupleDescription {
	return ao.aggregator.GetTupleDesc()
}

func (ao *AggregateOperator) GetAggregateField() int { return ao.aggrField }
func (ao *AggregateOperator) GetGroupByField() int   { return ao.groupByField }
func (ao *AggregateOperator) GetOp() AggregateOp     { return ao.op }
