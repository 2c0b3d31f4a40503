package iterator

import "heapstore/pkg/tuple"

// Iterate drives iter to exhaustion, handing each tuple to processFunc.
// processFunc returns false to stop early. Nil tuples are skipped.
func Iterate(iter TupleIterator, processFunc func(*tuple.Tuple) (continueLooping bool, err error)) error {
	for {
		hasNext, err := iter.HasNext()
		if err != nil {
			return err
		}
		if !hasNext {
			return nil
		}

		tup, err := iter.Next()
		if err != nil {
			return err
		}
		if tup == nil {
			continue
		}

		shouldContinue, err := processFunc(tup)
		if err != nil {
			return err
		}
		if !shouldContinue {
			return nil
		}
	}
}

// ForEach applies processFunc to every remaining tuple. The iterator must be open.
func ForEach(iter TupleIterator, processFunc func(*tuple.Tuple) error) error {
	return Iterate(iter, func(tup *tuple.Tuple) (bool, error) {
		return true, processFunc(tup)
	})
}

// Count consumes the iterator and returns how many tuples it produced.
func Count(iter TupleIterator) (int, error) {
	count := 0
	err := ForEach(iter, func(*tuple.Tuple) error {
		count++
		return nil
	})
	return count, err
}

// Collect consumes the iterator and returns every tuple in order.
func Collect(iter TupleIterator) ([]*tuple.Tuple, error) {
	var results []*tuple.Tuple
	err := ForEach(iter, func(tup *tuple.Tuple) error {
		results = append(results, tup)
		return nil
	})
	return results, err
}
