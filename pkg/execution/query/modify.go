package query

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// TupleWriter applies tuple changes on behalf of a transaction. The buffer
// pool implements it.
type TupleWriter interface {
	InsertTuple(tid *primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error
	DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple) error
}

var countDesc = tuple.MustTupleDesc([]types.Type{types.IntType}, []string{"count"})

// modifyOperator drains its child once, applying apply to each tuple, and
// then yields a single tuple holding the number of tuples affected.
type modifyOperator struct {
	*iterator.UnaryOperator
	apply   func(*tuple.Tuple) error
	count   int32
	done    bool
	emitted bool
}

func newModifyOperator(child iterator.DbIterator, apply func(*tuple.Tuple) error) (*modifyOperator, error) {
	m := &modifyOperator{apply: apply}
	op, err := iterator.NewUnaryOperator(child, m.readNext)
	if err != nil {
		return nil, err
	}
	m.UnaryOperator = op
	return m, nil
}

func (m *modifyOperator) readNext() (*tuple.Tuple, error) {
	if m.emitted {
		return nil, nil
	}

	if !m.done {
		for {
			t, err := m.FetchNext()
			if err != nil {
				return nil, err
			}
			if t == nil {
				break
			}
			if err := m.apply(t); err != nil {
				return nil, err
			}
			m.count++
		}
		m.done = true
	}

	m.emitted = true
	return tuple.NewBuilder(countDesc).AddInt(m.count).Build()
}

// Rewind replays the count tuple. The child is never drained twice, so
// nothing is inserted or deleted again.
func (m *modifyOperator) Rewind() error {
	m.emitted = false
	return m.UnaryOperator.Rewind()
}

func (m *modifyOperator) GetTupleDesc() *tuple.TupleDescription {
	return countDesc
}

// Insert reads every tuple from its child and inserts it into a table.
type Insert struct {
	*modifyOperator
}

// NewInsert builds an insert of child's tuples into tableID. The child's
// schema must match the table's.
func NewInsert(tid *primitives.TransactionID, child iterator.DbIterator, tableID primitives.TableID, writer TupleWriter) (*Insert, error) {
	if writer == nil {
		return nil, fmt.Errorf("tuple writer cannot be nil")
	}
	m, err := newModifyOperator(child, func(t *tuple.Tuple) error {
		// Insert stamps a new RecordID; leave the child's tuple alone.
		return writer.InsertTuple(tid, tableID, t.Clone())
	})
	if err != nil {
		return nil, err
	}
	return &Insert{m}, nil
}

// Delete reads every tuple from its child and deletes it from the table
// named by its RecordID.
type Delete struct {
	*modifyOperator
}

func NewDelete(tid *primitives.TransactionID, child iterator.DbIterator, writer TupleWriter) (*Delete, error) {
	if writer == nil {
		return nil, fmt.Errorf("tuple writer cannot be nil")
	}
	m, err := newModifyOperator(child, func(t *tuple.Tuple) error {
		return writer.DeleteTuple(tid, t)
	})
	if err != nil {
		return nil, err
	}
	return &Delete{m}, nil
}
