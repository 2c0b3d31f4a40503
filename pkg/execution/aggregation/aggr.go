// Package aggregation computes MIN, MAX, SUM, AVG and COUNT over a child
// operator, optionally grouped by one column.
package aggregation

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
	"strings"
)

const (
	// NoGrouping indicates that no grouping field is used in aggregation
	NoGrouping = -1
)

// AggregateOp represents the type of aggregation operation to perform
type AggregateOp int

const (
	Min AggregateOp = iota
	Max
	Sum
	Avg
	Count
)

func (op AggregateOp) String() string {
	switch op {
	case Min:
		return "MIN"
	case Max:
		return "MAX"
	case Sum:
		return "SUM"
	case Avg:
		return "AVG"
	case Count:
		return "COUNT"
	default:
		return "UNKNOWN"
	}
}

// ParseAggregateOp maps a case-insensitive operator name to an AggregateOp.
func ParseAggregateOp(name string) (AggregateOp, error) {
	switch strings.ToUpper(strings.TrimSpace(name)) {
	case "MIN":
		return Min, nil
	case "MAX":
		return Max, nil
	case "SUM":
		return Sum, nil
	case "AVG":
		return Avg, nil
	case "COUNT":
		return Count, nil
	default:
		return 0, fmt.Errorf("unknown aggregate %q", name)
	}
}

// Aggregator interface defines the contract for aggregation operations
type Aggregator interface {
	// Merge folds one input tuple into its group's running value.
	Merge(tup *tuple.Tuple) error

	// Iterator returns the results: (aggregate) or (group, aggregate).
	Iterator() iterator.DbIterator

	GetTupleDesc() *tuple.TupleDescription
}
