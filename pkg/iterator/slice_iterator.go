package iterator

import (
	"fmt"
	"heapstore/pkg/tuple"
)

// TupleSliceIterator is a DbIterator over tuples already held in memory.
// Aggregation emits its results through one, and tests use it as a leaf.
type TupleSliceIterator struct {
	base   *BaseIterator
	td     *tuple.TupleDescription
	tuples []*tuple.Tuple
	pos    int
}

func NewTupleSliceIterator(td *tuple.TupleDescription, tuples []*tuple.Tuple) *TupleSliceIterator {
	it := &TupleSliceIterator{td: td, tuples: tuples}
	it.base = NewBaseIterator(it.readNext)
	return it
}

func (it *TupleSliceIterator) readNext() (*tuple.Tuple, error) {
	if it.pos >= len(it.tuples) {
		return nil, nil
	}
	t := it.tuples[it.pos]
	it.pos++
	return t, nil
}

func (it *TupleSliceIterator) Open() error {
	it.pos = 0
	it.base.MarkOpened()
	return nil
}

func (it *TupleSliceIterator) Rewind() error {
	if !it.base.IsOpened() {
		return fmt.Errorf("iterator not opened")
	}
	it.pos = 0
	return it.base.Rewind()
}

func (it *TupleSliceIterator) Close() error                          { return it.base.Close() }
func (it *TupleSliceIterator) HasNext() (bool, error)                { return it.base.HasNext() }
func (it *TupleSliceIterator) Next() (*tuple.Tuple, error)           { return it.base.Next() }
func (it *TupleSliceIterator) GetTupleDesc() *tuple.TupleDescription { return it.td }
