package iterator

import (
	"fmt"
	"heapstore/pkg/tuple"
)

// ReadNextFunc returns the next tuple from the underlying source, or
// (nil, nil) once the source is exhausted.
type ReadNextFunc func() (*tuple.Tuple, error)

// BaseIterator implements the one-tuple lookahead and open/closed state
// shared by every operator. Operators supply only a ReadNextFunc.
type BaseIterator struct {
	nextTuple    *tuple.Tuple
	opened       bool
	readNextFunc ReadNextFunc
}

// NewBaseIterator creates a base iterator in the closed state.
func NewBaseIterator(readNextFunc ReadNextFunc) *BaseIterator {
	return &BaseIterator{readNextFunc: readNextFunc}
}

// HasNext reports whether another tuple is available without consuming it.
func (it *BaseIterator) HasNext() (bool, error) {
	if !it.opened {
		return false, fmt.Errorf("iterator not opened")
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return false, err
		}
	}
	return it.nextTuple != nil, nil
}

// Next returns the next tuple, or an error once the source is exhausted.
func (it *BaseIterator) Next() (*tuple.Tuple, error) {
	if !it.opened {
		return nil, fmt.Errorf("iterator not opened")
	}

	if it.nextTuple == nil {
		var err error
		it.nextTuple, err = it.readNextFunc()
		if err != nil {
			return nil, err
		}
		if it.nextTuple == nil {
			return nil, fmt.Errorf("no more tuples")
		}
	}

	result := it.nextTuple
	it.nextTuple = nil
	return result, nil
}

// Rewind drops the lookahead tuple. The owner resets its own source.
func (it *BaseIterator) Rewind() error {
	it.nextTuple = nil
	return nil
}

func (it *BaseIterator) Close() error {
	it.nextTuple = nil
	it.opened = false
	return nil
}

// MarkOpened marks the iterator as opened and ready for use.
func (it *BaseIterator) MarkOpened() {
	it.opened = true
	it.nextTuple = nil
}

// IsOpened reports whether MarkOpened was called since the last Close.
func (it *BaseIterator) IsOpened() bool {
	return it.opened
}
