package join

import (
	"heapstore/pkg/iterator"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
	"testing"
)

var (
	usersDesc  = tuple.MustTupleDesc([]types.Type{types.IntType, types.StringType}, []string{"id", "name"})
	ordersDesc = tuple.MustTupleDesc([]types.Type{types.IntType, types.IntType}, []string{"user_id", "amount"})
)

func users() iterator.DbIterator {
	return iterator.NewTupleSliceIterator(usersDesc, []*tuple.Tuple{
		tuple.NewBuilder(usersDesc).AddInt(1).AddString("ada").MustBuild(),
		tuple.NewBuilder(usersDesc).AddInt(2).AddString("bob").MustBuild(),
		tuple.NewBuilder(usersDesc).AddInt(3).AddString("cy").MustBuild(),
	})
}

func orders() iterator.DbIterator {
	return iterator.NewTupleSliceIterator(ordersDesc, []*tuple.Tuple{
		tuple.NewBuilder(ordersDesc).AddInt(1).AddInt(10).MustBuild(),
		tuple.NewBuilder(ordersDesc).AddInt(3).AddInt(30).MustBuild(),
		tuple.NewBuilder(ordersDesc).AddInt(1).AddInt(11).MustBuild(),
	})
}

func TestNestedLoopJoin_Equality(t *testing.T) {
	pred, err := NewJoinPredicate(0, 0, primitives.Equals)
	if err != nil {
		t.Fatal(err)
	}
	j, err := NewNestedLoopJoin(pred, users(), orders())
	if err != nil {
		t.Fatal(err)
	}
	if j.GetTupleDesc().NumFields() != 4 {
		t.Fatalf("joined schema has %d fields, want 4", j.GetTupleDesc().NumFields())
	}

	if err := j.Open(); err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	out, err := iterator.Collect(j)
	if err != nil {
		t.Fatal(err)
	}

	want := [][2]int32{{1, 10}, {1, 11}, {3, 30}}
	if len(out) != len(want) {
		t.Fatalf("got %d rows, want %d", len(out), len(want))
	}
	for i, w := range want {
		id, _ := out[i].GetField(0)
		amount, _ := out[i].GetField(3)
		if id.(*types.IntField).Value != w[0] || amount.(*types.IntField).Value != w[1] {
			t.Errorf("row %d = %s", i, out[i])
		}
	}

	if err := j.Rewind(); err != nil {
		t.Fatal(err)
	}
	if n, _ := iterator.Count(j); n != 3 {
		t.Errorf("after rewind got %d rows, want 3", n)
	}
}

func TestNestedLoopJoin_Inequality(t *testing.T) {
	pred, _ := NewJoinPredicate(0, 0, primitives.LessThan)
	j, _ := NewNestedLoopJoin(pred, users(), orders())
	if err := j.Open(); err != nil {
		t.Fatal(err)
	}
	defer j.Close()

	// id 1 < {3}, id 2 < {3}, id 3 < {}
	if n, _ := iterator.Count(j); n != 2 {
		t.Errorf("got %d rows, want 2", n)
	}
}

func TestJoinPredicate_Errors(t *testing.T) {
	if _, err := NewJoinPredicate(-1, 0, primitives.Equals); err == nil {
		t.Error("negative index should fail")
	}
	if _, err := NewNestedLoopJoin(nil, users(), orders()); err == nil {
		t.Error("nil predicate should fail")
	}

	pred, _ := NewJoinPredicate(5, 0, primitives.Equals)
	u := tuple.NewBuilder(usersDesc).AddInt(1).AddString("x").MustBuild()
	o := tuple.NewBuilder(ordersDesc).AddInt(1).AddInt(1).MustBuild()
	if _, err := pred.Filter(u, o); err == nil {
		t.Error("out of range field should fail")
	}
}
