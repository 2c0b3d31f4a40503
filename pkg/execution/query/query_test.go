package query

import (
	"errors"
	"heapstore/pkg/catalog"
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/memory"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
	"testing"
)

var pointDesc = tuple.MustTupleDesc([]types.Type{types.IntType, types.IntType}, []string{"x", "y"})

type env struct {
	cat     *catalog.Catalog
	store   *memory.PageStore
	tableID primitives.TableID
}

func newEnv(t *testing.T) *env {
	t.Helper()
	cat, err := catalog.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { cat.Close() })

	f, err := cat.CreateTable("points", pointDesc, "x")
	if err != nil {
		t.Fatal(err)
	}
	return &env{cat: cat, store: memory.NewPageStore(cat, 8, 0), tableID: f.GetID()}
}

func points(n int) *iterator.TupleSliceIterator {
	tuples := make([]*tuple.Tuple, n)
	for i := range tuples {
		tuples[i] = tuple.NewBuilder(pointDesc).AddInt(int32(i)).AddInt(int32(i * i)).MustBuild()
	}
	return iterator.NewTupleSliceIterator(pointDesc, tuples)
}

func countOf(t *testing.T, op iterator.DbIterator) int32 {
	t.Helper()
	if err := op.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer op.Close()
	out, err := iterator.Collect(op)
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("expected a single count tuple, got %d", len(out))
	}
	f, _ := out[0].GetField(0)
	return f.(*types.IntField).Value
}

func (e *env) scanAll(t *testing.T, pred *Predicate) []*tuple.Tuple {
	t.Helper()
	var out []*tuple.Tuple
	_, err := transaction.Run(e.store, 1, func(tid *primitives.TransactionID) error {
		var op iterator.DbIterator
		scan, err := NewSeqScan(tid, e.tableID, e.cat, e.store)
		if err != nil {
			return err
		}
		op = scan
		if pred != nil {
			if op, err = NewFilter(pred, scan); err != nil {
				return err
			}
		}
		if err := op.Open(); err != nil {
			return err
		}
		defer op.Close()
		out, err = iterator.Collect(op)
		return err
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return out
}

func TestInsertScanFilterDelete(t *testing.T) {
	e := newEnv(t)

	tid := primitives.NewTransactionID()
	ins, err := NewInsert(tid, points(10), e.tableID, e.store)
	if err != nil {
		t.Fatal(err)
	}
	if n := countOf(t, ins); n != 10 {
		t.Fatalf("insert count = %d, want 10", n)
	}
	if err := e.store.TransactionComplete(tid, true); err != nil {
		t.Fatal(err)
	}

	if got := e.scanAll(t, nil); len(got) != 10 {
		t.Fatalf("scan found %d tuples, want 10", len(got))
	}

	big := NewPredicate(1, primitives.GreaterThan, types.NewIntField(20))
	if got := e.scanAll(t, big); len(got) != 5 {
		t.Errorf("filter y > 20 found %d tuples, want 5", len(got))
	}

	tid = primitives.NewTransactionID()
	scan, _ := NewSeqScan(tid, e.tableID, e.cat, e.store)
	filter, _ := NewFilter(big, scan)
	del, err := NewDelete(tid, filter, e.store)
	if err != nil {
		t.Fatal(err)
	}
	if n := countOf(t, del); n != 5 {
		t.Errorf("delete count = %d, want 5", n)
	}
	if err := e.store.TransactionComplete(tid, true); err != nil {
		t.Fatal(err)
	}

	remaining := e.scanAll(t, nil)
	if len(remaining) != 5 {
		t.Errorf("%d tuples remain, want 5", len(remaining))
	}
}

func TestInsert_RewindDoesNotReinsert(t *testing.T) {
	e := newEnv(t)
	tid := primitives.NewTransactionID()

	ins, _ := NewInsert(tid, points(3), e.tableID, e.store)
	if err := ins.Open(); err != nil {
		t.Fatal(err)
	}
	first, _ := iterator.Collect(ins)
	if err := ins.Rewind(); err != nil {
		t.Fatal(err)
	}
	second, _ := iterator.Collect(ins)
	ins.Close()

	if len(first) != 1 || len(second) != 1 {
		t.Fatal("insert should yield its count tuple again after rewind")
	}
	e.store.TransactionComplete(tid, true)

	if got := e.scanAll(t, nil); len(got) != 3 {
		t.Errorf("found %d tuples, want 3", len(got))
	}
}

func TestInsert_AbortLeavesTableEmpty(t *testing.T) {
	e := newEnv(t)
	tid := primitives.NewTransactionID()

	ins, _ := NewInsert(tid, points(4), e.tableID, e.store)
	countOf(t, ins)
	if err := e.store.TransactionComplete(tid, false); err != nil {
		t.Fatal(err)
	}

	if got := e.scanAll(t, nil); len(got) != 0 {
		t.Errorf("aborted insert left %d tuples", len(got))
	}
}

func TestInsert_SchemaMismatch(t *testing.T) {
	e := newEnv(t)
	tid := primitives.NewTransactionID()
	defer e.store.TransactionComplete(tid, false)

	wrongDesc := tuple.MustTupleDesc([]types.Type{types.StringType}, []string{"s"})
	child := iterator.NewTupleSliceIterator(wrongDesc, []*tuple.Tuple{
		tuple.NewBuilder(wrongDesc).AddString("nope").MustBuild(),
	})
	ins, _ := NewInsert(tid, child, e.tableID, e.store)
	if err := ins.Open(); err != nil {
		t.Fatal(err)
	}
	defer ins.Close()

	_, err := ins.Next()
	if !errors.Is(err, dberror.ErrSchemaMismatch) {
		t.Errorf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSeqScan_Rewind(t *testing.T) {
	e := newEnv(t)
	tid := primitives.NewTransactionID()
	ins, _ := NewInsert(tid, points(6), e.tableID, e.store)
	countOf(t, ins)

	scan, err := NewSeqScan(tid, e.tableID, e.cat, e.store)
	if err != nil {
		t.Fatal(err)
	}
	if err := scan.Open(); err != nil {
		t.Fatal(err)
	}
	defer scan.Close()

	first, _ := iterator.Count(scan)
	if err := scan.Rewind(); err != nil {
		t.Fatal(err)
	}
	second, _ := iterator.Count(scan)
	if first != 6 || second != 6 {
		t.Errorf("counts %d and %d, want 6 both times", first, second)
	}
	e.store.TransactionComplete(tid, true)
}

func TestSeqScan_UnknownTable(t *testing.T) {
	e := newEnv(t)
	_, err := NewSeqScan(primitives.NewTransactionID(), primitives.TableID(7), e.cat, e.store)
	if !errors.Is(err, dberror.ErrTableNotFound) {
		t.Errorf("expected ErrTableNotFound, got %v", err)
	}
}

func TestPredicate(t *testing.T) {
	tup := tuple.NewBuilder(pointDesc).AddInt(3).AddInt(9).MustBuild()
	cases := []struct {
		op   primitives.Predicate
		v    int32
		want bool
	}{
		{primitives.Equals, 9, true},
		{primitives.NotEqual, 9, false},
		{primitives.LessThan, 10, true},
		{primitives.GreaterThanOrEqual, 10, false},
	}
	for _, tc := range cases {
		got, err := NewPredicate(1, tc.op, types.NewIntField(tc.v)).Filter(tup)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Errorf("y %s %d = %v, want %v", tc.op, tc.v, got, tc.want)
		}
	}
}
