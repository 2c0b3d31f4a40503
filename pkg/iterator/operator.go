package iterator

import (
	"errors"
	"fmt"
	"heapstore/pkg/tuple"
)

// fetch pulls one tuple from child, returning (nil, nil) when it is exhausted.
func fetch(child DbIterator) (*tuple.Tuple, error) {
	hasNext, err := child.HasNext()
	if err != nil || !hasNext {
		return nil, err
	}
	return child.Next()
}

// UnaryOperator carries the lifecycle plumbing of a single-child operator.
// Embedders supply readNext and override GetTupleDesc when they reshape rows.
type UnaryOperator struct {
	base  *BaseIterator
	child DbIterator
}

func NewUnaryOperator(child DbIterator, readNextFunc ReadNextFunc) (*UnaryOperator, error) {
	if child == nil {
		return nil, fmt.Errorf("child operator cannot be nil")
	}
	return &UnaryOperator{child: child, base: NewBaseIterator(readNextFunc)}, nil
}

// FetchNext returns the child's next tuple, or nil when the child is exhausted.
func (u *UnaryOperator) FetchNext() (*tuple.Tuple, error) {
	t, err := fetch(u.child)
	if err != nil {
		return nil, fmt.Errorf("error reading from child: %w", err)
	}
	return t, nil
}

func (u *UnaryOperator) Open() error {
	if err := u.child.Open(); err != nil {
		return fmt.Errorf("failed to open child operator: %w", err)
	}
	u.base.MarkOpened()
	return nil
}

func (u *UnaryOperator) Close() error {
	return errors.Join(u.child.Close(), u.base.Close())
}

func (u *UnaryOperator) Rewind() error {
	if err := u.child.Rewind(); err != nil {
		return fmt.Errorf("failed to rewind child operator: %w", err)
	}
	return u.base.Rewind()
}

func (u *UnaryOperator) GetTupleDesc() *tuple.TupleDescription { return u.child.GetTupleDesc() }
func (u *UnaryOperator) HasNext() (bool, error)                { return u.base.HasNext() }
func (u *UnaryOperator) Next() (*tuple.Tuple, error)           { return u.base.Next() }
func (u *UnaryOperator) GetChild() DbIterator                  { return u.child }

// BinaryOperator is UnaryOperator for two children, used by joins.
type BinaryOperator struct {
	base       *BaseIterator
	leftChild  DbIterator
	rightChild DbIterator
}

func NewBinaryOperator(leftChild, rightChild DbIterator, readNextFunc ReadNextFunc) (*BinaryOperator, error) {
	if leftChild == nil || rightChild == nil {
		return nil, fmt.Errorf("binary operator requires two children")
	}
	return &BinaryOperator{
		leftChild:  leftChild,
		rightChild: rightChild,
		base:       NewBaseIterator(readNextFunc),
	}, nil
}

func (b *BinaryOperator) FetchLeft() (*tuple.Tuple, error) {
	t, err := fetch(b.leftChild)
	if err != nil {
		return nil, fmt.Errorf("error fetching left child tuple: %w", err)
	}
	return t, nil
}

func (b *BinaryOperator) FetchRight() (*tuple.Tuple, error) {
	t, err := fetch(b.rightChild)
	if err != nil {
		return nil, fmt.Errorf("error fetching right child tuple: %w", err)
	}
	return t, nil
}

// RewindRight restarts the right child only. Nested loop joins call it once
// per left tuple.
func (b *BinaryOperator) RewindRight() error {
	return b.rightChild.Rewind()
}

func (b *BinaryOperator) Open() error {
	if err := b.leftChild.Open(); err != nil {
		return fmt.Errorf("failed to open left child: %w", err)
	}
	if err := b.rightChild.Open(); err != nil {
		return fmt.Errorf("failed to open right child: %w", err)
	}
	b.base.MarkOpened()
	return nil
}

func (b *BinaryOperator) Close() error {
	var errs []error
	if err := b.leftChild.Close(); err != nil {
		errs = append(errs, fmt.Errorf("left child close: %w", err))
	}
	if err := b.rightChild.Close(); err != nil {
		errs = append(errs, fmt.Errorf("right child close: %w", err))
	}
	errs = append(errs, b.base.Close())
	return errors.Join(errs...)
}

func (b *BinaryOperator) Rewind() error {
	if err := b.leftChild.Rewind(); err != nil {
		return fmt.Errorf("failed to rewind left child: %w", err)
	}
	if err := b.rightChild.Rewind(); err != nil {
		return fmt.Errorf("failed to rewind right child: %w", err)
	}
	return b.base.Rewind()
}

func (b *BinaryOperator) HasNext() (bool, error)      { return b.base.HasNext() }
func (b *BinaryOperator) Next() (*tuple.Tuple, error) { return b.base.Next() }
func (b *BinaryOperator) GetLeftChild() DbIterator    { return b.leftChild }
func (b *BinaryOperator) GetRightChild() DbIterator   { return b.rightChild }
