package database

import (
	"fmt"
	"heapstore/pkg/dberror"
	"heapstore/pkg/execution/aggregation"
	"heapstore/pkg/execution/join"
	"heapstore/pkg/execution/query"
	"heapstore/pkg/iterator"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
)

// Condition is a single "column op value" filter, e.g. {"age", ">=", "21"}.
type Condition struct {
	Column string
	Op     string
	Value  string
}

type tableRef struct {
	id primitives.TableID
	td *tuple.TupleDescription
}

func (db *Database) table(name string) (tableRef, error) {
	id, err := db.catalog.GetTableID(name)
	if err != nil {
		return tableRef{}, err
	}
	td, err := db.catalog.GetTupleDesc(id)
	if err != nil {
		return tableRef{}, err
	}
	return tableRef{id: id, td: td}, nil
}

func column(td *tuple.TupleDescription, name string) (int, types.Type, error) {
	i, err := td.FindFieldIndex(name)
	if err != nil {
		return 0, 0, dberror.Newf(dberror.ErrSchemaMismatch, "column", "Database", "%v", err)
	}
	t, _ := td.TypeAtIndex(i)
	return i, t, nil
}

func (c *Condition) predicate(td *tuple.TupleDescription) (*query.Predicate, error) {
	i, t, err := column(td, c.Column)
	if err != nil {
		return nil, err
	}
	op, ok := primitives.ParsePredicate(c.Op)
	if !ok {
		return nil, fmt.Errorf("unknown operator %q", c.Op)
	}
	operand, err := types.ParseText(c.Value, t)
	if err != nil {
		return nil, err
	}
	return query.NewPredicate(i, op, operand), nil
}

// ParseRow converts one text value per column into a tuple of td.
func ParseRow(td *tuple.TupleDescription, values []string) (*tuple.Tuple, error) {
	if len(values) != td.NumFields() {
		return nil, dberror.Newf(dberror.ErrSchemaMismatch, "ParseRow", "Database",
			"expected %d values, got %d", td.NumFields(), len(values))
	}
	b := tuple.NewBuilder(td)
	for i, v := range values {
		t, _ := td.TypeAtIndex(i)
		f, err := types.ParseText(v, t)
		if err != nil {
			name, _ := td.GetFieldName(i)
			return nil, fmt.Errorf("column %s: %w", name, err)
		}
		b.AddField(f)
	}
	return b.Build()
}

func (db *Database) scan(tid *primitives.TransactionID, ref tableRef, where *Condition) (iterator.DbIterator, error) {
	scan, err := query.NewSeqScan(tid, ref.id, db.catalog, db.pageStore)
	if err != nil {
		return nil, err
	}
	if where == nil {
		return scan, nil
	}
	pred, err := where.predicate(ref.td)
	if err != nil {
		return nil, err
	}
	return query.NewFilter(pred, scan)
}

func drain(op iterator.DbIterator) ([]*tuple.Tuple, error) {
	if err := op.Open(); err != nil {
		return nil, err
	}
	defer op.Close()
	return iterator.Collect(op)
}

func affected(op iterator.DbIterator) (int, error) {
	out, err := drain(op)
	if err != nil {
		return 0, err
	}
	if len(out) != 1 {
		return 0, fmt.Errorf("expected a count tuple, got %d tuples", len(out))
	}
	f, err := out[0].GetField(0)
	if err != nil {
		return 0, err
	}
	return int(f.(*types.IntField).Value), nil
}

// Insert adds rows, each given as one text value per column, in one transaction.
func (db *Database) Insert(table string, rows ...[]string) (QueryResult, error) {
	ref, err := db.table(table)
	if err != nil {
		return QueryResult{}, err
	}

	tuples := make([]*tuple.Tuple, 0, len(rows))
	for _, row := range rows {
		t, err := ParseRow(ref.td, row)
		if err != nil {
			return QueryResult{}, err
		}
		tuples = append(tuples, t)
	}

	var n int
	err = db.Update(func(tid *primitives.TransactionID) error {
		child := iterator.NewTupleSliceIterator(ref.td, tuples)
		ins, err := query.NewInsert(tid, child, ref.id, db.pageStore)
		if err != nil {
			return err
		}
		n, err = affected(ins)
		return err
	})
	if err != nil {
		return QueryResult{}, err
	}
	return formatter.FormatDML("INSERT", n), nil
}

// Select returns every row of table matching where (all rows when nil).
func (db *Database) Select(table string, where *Condition) (QueryResult, error) {
	ref, err := db.table(table)
	if err != nil {
		return QueryResult{}, err
	}

	var rows []*tuple.Tuple
	err = db.Update(func(tid *primitives.TransactionID) error {
		op, err := db.scan(tid, ref, where)
		if err != nil {
			return err
		}
		rows, err = drain(op)
		return err
	})
	if err != nil {
		return QueryResult{}, err
	}
	return formatter.FormatTuples(ref.td, rows), nil
}

// Delete removes every row of table matching where.
func (db *Database) Delete(table string, where *Condition) (QueryResult, error) {
	ref, err := db.table(table)
	if err != nil {
		return QueryResult{}, err
	}

	var n int
	err = db.Update(func(tid *primitives.TransactionID) error {
		op, err := db.scan(tid, ref, where)
		if err != nil {
			return err
		}
		del, err := query.NewDelete(tid, op, db.pageStore)
		if err != nil {
			return err
		}
		n, err = affected(del)
		return err
	})
	if err != nil {
		return QueryResult{}, err
	}
	return formatter.FormatDML("DELETE", n), nil
}

// Aggregate computes op over column, grouped by groupBy when it is not empty.
func (db *Database) Aggregate(table, op, col, groupBy string) (QueryResult, error) {
	ref, err := db.table(table)
	if err != nil {
		return QueryResult{}, err
	}
	aggOp, err := aggregation.ParseAggregateOp(op)
	if err != nil {
		return QueryResult{}, err
	}
	aField, _, err := column(ref.td, col)
	if err != nil {
		return QueryResult{}, err
	}
	gField := aggregation.NoGrouping
	if groupBy != "" {
		if gField, _, err = column(ref.td, groupBy); err != nil {
			return QueryResult{}, err
		}
	}

	var (
		rows []*tuple.Tuple
		td   *tuple.TupleDescription
	)
	err = db.Update(func(tid *primitives.TransactionID) error {
		scan, err := db.scan(tid, ref, nil)
		if err != nil {
			return err
		}
		agg, err := aggregation.NewAggregateOperator(scan, aField, gField, aggOp)
		if err != nil {
			return err
		}
		td = agg.GetTupleDesc()
		rows, err = drain(agg)
		return err
	})
	if err != nil {
		return QueryResult{}, err
	}
	return formatter.FormatTuples(td, rows), nil
}

// Join returns the rows of left and right whose leftCol equals rightCol.
func (db *Database) Join(left, right, leftCol, rightCol string) (QueryResult, error) {
	lref, err := db.table(left)
	if err != nil {
		return QueryResult{}, err
	}
	rref, err := db.table(right)
	if err != nil {
		return QueryResult{}, err
	}
	lf, _, err := column(lref.td, leftCol)
	if err != nil {
		return QueryResult{}, err
	}
	rf, _, err := column(rref.td, rightCol)
	if err != nil {
		return QueryResult{}, err
	}
	pred, err := join.NewJoinPredicate(lf, rf, primitives.Equals)
	if err != nil {
		return QueryResult{}, err
	}

	var (
		rows []*tuple.Tuple
		td   *tuple.TupleDescription
	)
	err = db.Update(func(tid *primitives.TransactionID) error {
		ls, err := db.scan(tid, lref, nil)
		if err != nil {
			return err
		}
		rs, err := db.scan(tid, rref, nil)
		if err != nil {
			return err
		}
		j, err := join.NewNestedLoopJoin(pred, ls, rs)
		if err != nil {
			return err
		}
		td = j.GetTupleDesc()
		rows, err = drain(j)
		return err
	})
	if err != nil {
		return QueryResult{}, err
	}
	return formatter.FormatTuples(td, rows), nil
}

// HeapFile returns the heap file backing table.
func (db *Database) HeapFile(table string) (*heap.HeapFile, error) {
	ref, err := db.table(table)
	if err != nil {
		return nil, err
	}
	f, err := db.catalog.GetDbFile(ref.id)
	if err != nil {
		return nil, err
	}
	hf, ok := f.(*heap.HeapFile)
	if !ok {
		return nil, fmt.Errorf("table %s is not stored in a heap file", table)
	}
	return hf, nil
}

// Inspect summarizes every on-disk page of table. It reads the file
// directly, so uncommitted changes are not visible.
func (db *Database) Inspect(table string) ([]heap.PageSummary, error) {
	hf, err := db.HeapFile(table)
	if err != nil {
		return nil, err
	}
	return heap.Inspect(hf)
}
