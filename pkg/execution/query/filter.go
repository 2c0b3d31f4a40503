package query

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/tuple"
)

// Filter represents a filtering operator that applies a predicate to each tuple
// from its source operator, only returning tuples that satisfy the predicate condition.
type Filter struct {
	*iterator.UnaryOperator
	predicate *Predicate
}

func NewFilter(predicate *Predicate, source iterator.DbIterator) (*Filter, error) {
	if predicate == nil {
		return nil, fmt.Errorf("predicate cannot be nil")
	}

	f := &Filter{predicate: predicate}
	op, err := iterator.NewUnaryOperator(source, f.readNext)
	if err != nil {
		return nil, err
	}
	f.UnaryOperator = op
	return f, nil
}

func (f *Filter) readNext() (*tuple.Tuple, error) {
	for {
		t, err := f.FetchNext()
		if err != nil || t == nil {
			return t, err
		}

		passes, err := f.predicate.Filter(t)
		if err != nil {
			return nil, fmt.Errorf("predicate evaluation failed: %w", err)
		}

		if passes {
			return t, nil
		}
	}
}

func (f *Filter) GetPredicate() *Predicate {
	return f.predicate
}
