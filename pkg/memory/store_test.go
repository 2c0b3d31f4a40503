package memory

import (
	"errors"
	"fmt"
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

type tableMap map[primitives.TableID]page.DbFile

func (m tableMap) GetDbFile(id primitives.TableID) (page.DbFile, error) {
	f, ok := m[id]
	if !ok {
		return nil, dberror.Newf(dberror.ErrTableNotFound, "GetDbFile", "tableMap", "table %d", uint64(id))
	}
	return f, nil
}

func intDesc() *tuple.TupleDescription {
	return tuple.MustTupleDesc([]types.Type{types.IntType, types.IntType}, []string{"a", "b"})
}

func intTuple(a, b int32) *tuple.Tuple {
	return tuple.NewBuilder(intDesc()).AddInt(a).AddInt(b).MustBuild()
}

type fixture struct {
	file  *heap.HeapFile
	store *PageStore
}

func newFixture(t *testing.T, capacity int, timeout time.Duration) *fixture {
	t.Helper()
	hf, err := heap.NewHeapFile(primitives.Filepath(filepath.Join(t.TempDir(), "t.dat")), intDesc())
	if err != nil {
		t.Fatalf("NewHeapFile failed: %v", err)
	}
	t.Cleanup(func() { hf.Close() })
	return &fixture{
		file:  hf,
		store: NewPageStore(tableMap{hf.GetID(): hf}, capacity, timeout),
	}
}

// smallPages shrinks the page size so a two-int page holds 7 tuples.
func smallPages(t *testing.T) {
	t.Helper()
	if err := page.SetPageSize(64); err != nil {
		t.Fatalf("SetPageSize failed: %v", err)
	}
	t.Cleanup(page.ResetPageSize)
}

func (f *fixture) pid(n int) primitives.PageID {
	return primitives.NewPageID(f.file.GetID(), primitives.PageNumber(n))
}

func (f *fixture) appendEmptyPages(t *testing.T, n int) {
	t.Helper()
	start, _ := f.file.NumPages()
	for i := 0; i < n; i++ {
		hp, err := heap.NewEmptyHeapPage(f.pid(int(start)+i), intDesc())
		if err != nil {
			t.Fatal(err)
		}
		if err := f.file.WritePage(hp); err != nil {
			t.Fatalf("WritePage failed: %v", err)
		}
	}
}

func (f *fixture) diskDigest(t *testing.T, pid primitives.PageID) string {
	t.Helper()
	p, err := f.file.ReadPage(pid)
	if err != nil {
		t.Fatalf("ReadPage(%s) failed: %v", pid, err)
	}
	return heap.DigestHex(p)
}

func (f *fixture) countTuples(t *testing.T) int {
	t.Helper()
	n := 0
	_, err := transaction.Run(f.store, 1, func(tid *primitives.TransactionID) error {
		it := f.file.Iterator(tid, f.store)
		if err := it.Open(); err != nil {
			return err
		}
		defer it.Close()
		for {
			ok, err := it.HasNext()
			if err != nil {
				return err
			}
			if !ok {
				return nil
			}
			if _, err := it.Next(); err != nil {
				return err
			}
			n++
		}
	})
	if err != nil {
		t.Fatalf("scan failed: %v", err)
	}
	return n
}

func TestPageStore_GetPageCachesAndCounts(t *testing.T) {
	f := newFixture(t, 4, 0)
	f.appendEmptyPages(t, 1)
	tid := primitives.NewTransactionID()

	p1, err := f.store.GetPage(tid, f.pid(0), page.ReadOnly)
	if err != nil {
		t.Fatalf("GetPage failed: %v", err)
	}
	p2, _ := f.store.GetPage(tid, f.pid(0), page.ReadOnly)
	if p1 != p2 {
		t.Error("second GetPage should return the cached page")
	}

	stats := f.store.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Resident != 1 || stats.Capacity != 4 {
		t.Errorf("unexpected stats %+v", stats)
	}
	if !f.store.HoldsLock(tid, f.pid(0)) {
		t.Error("tid should hold a lock on page 0")
	}

	f.store.TransactionComplete(tid, true)
	if f.store.HoldsLock(tid, f.pid(0)) {
		t.Error("locks must be released at completion")
	}
	if f.store.ActiveTransactions() != 0 {
		t.Error("bookkeeping must be cleared at completion")
	}
}

func TestPageStore_InvalidPageReference(t *testing.T) {
	f := newFixture(t, 4, 0)
	tid := primitives.NewTransactionID()
	defer f.store.TransactionComplete(tid, false)

	_, err := f.store.GetPage(tid, f.pid(3), page.ReadOnly)
	if !errors.Is(err, dberror.ErrInvalidPageReference) {
		t.Errorf("expected ErrInvalidPageReference, got %v", err)
	}
}

func TestPageStore_InvalidPageReferenceKeepsResidents(t *testing.T) {
	f := newFixture(t, 2, 0)
	f.appendEmptyPages(t, 2)
	tid := primitives.NewTransactionID()
	defer f.store.TransactionComplete(tid, false)

	for i := 0; i < 2; i++ {
		if _, err := f.store.GetPage(tid, f.pid(i), page.ReadOnly); err != nil {
			t.Fatalf("GetPage failed: %v", err)
		}
	}

	_, err := f.store.GetPage(tid, f.pid(5), page.ReadOnly)
	if !errors.Is(err, dberror.ErrInvalidPageReference) {
		t.Fatalf("expected ErrInvalidPageReference, got %v", err)
	}
	st := f.store.Stats()
	if st.Evictions != 0 || st.Resident != 2 {
		t.Errorf("bad reference evicted a page: %+v", st)
	}
}

func TestPageStore_ResidentNeverExceedsCapacity(t *testing.T) {
	f := newFixture(t, 3, 0)
	f.appendEmptyPages(t, 8)

	for round := 0; round < 3; round++ {
		tid := primitives.NewTransactionID()
		for i := 0; i < 8; i++ {
			if _, err := f.store.GetPage(tid, f.pid((i*3+round)%8), page.ReadOnly); err != nil {
				t.Fatalf("GetPage failed: %v", err)
			}
			if r := f.store.Stats().Resident; r > 3 {
				t.Fatalf("resident %d exceeds capacity 3", r)
			}
		}
		f.store.TransactionComplete(tid, true)
	}
	if f.store.Stats().Evictions == 0 {
		t.Error("expected evictions")
	}
}

func TestPageStore_NoStealReturnsResourceExhausted(t *testing.T) {
	smallPages(t)
	f := newFixture(t, 2, 0)
	f.appendEmptyPages(t, 3)
	tid := primitives.NewTransactionID()

	// Seven tuples fill page 0, the eighth lands on page 1.
	for i := int32(0); i < 8; i++ {
		if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(i, i)); err != nil {
			t.Fatalf("InsertTuple %d failed: %v", i, err)
		}
	}

	_, err := f.store.GetPage(tid, f.pid(2), page.ReadOnly)
	if !errors.Is(err, dberror.ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	for _, n := range []int{0, 1} {
		if _, ok := f.store.cache.Peek(f.pid(n)); !ok {
			t.Errorf("dirty page %d was evicted", n)
		}
	}

	if err := f.store.TransactionComplete(tid, false); err != nil {
		t.Fatalf("abort failed: %v", err)
	}

	tid2 := primitives.NewTransactionID()
	defer f.store.TransactionComplete(tid2, true)
	if _, err := f.store.GetPage(tid2, f.pid(2), page.ReadOnly); err != nil {
		t.Errorf("GetPage after abort failed: %v", err)
	}
}

func TestPageStore_CommitForcesPagesToDisk(t *testing.T) {
	f := newFixture(t, 4, 0)
	tid := primitives.NewTransactionID()

	for i := int32(0); i < 20; i++ {
		if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(i, -i)); err != nil {
			t.Fatalf("InsertTuple failed: %v", err)
		}
	}

	cached, ok := f.store.cache.Peek(f.pid(0))
	if !ok || cached.IsDirty() != tid {
		t.Fatal("page 0 should be resident and dirty by tid")
	}
	memDigest := heap.DigestHex(cached)

	if err := f.store.TransactionComplete(tid, true); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if got := f.diskDigest(t, f.pid(0)); got != memDigest {
		t.Errorf("disk digest %s differs from committed in-memory page %s", got, memDigest)
	}
	if cached.IsDirty() != nil {
		t.Error("page should be clean after commit")
	}
	if f.store.HoldsLock(tid, f.pid(0)) {
		t.Error("commit must release locks")
	}
	if n := f.countTuples(t); n != 20 {
		t.Errorf("scan found %d tuples, want 20", n)
	}
}

func TestPageStore_AbortRestoresDiskImage(t *testing.T) {
	f := newFixture(t, 4, 0)

	setup := primitives.NewTransactionID()
	for i := int32(0); i < 5; i++ {
		if err := f.store.InsertTuple(setup, f.file.GetID(), intTuple(i, i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.store.TransactionComplete(setup, true); err != nil {
		t.Fatal(err)
	}
	before := f.diskDigest(t, f.pid(0))

	tid := primitives.NewTransactionID()
	for i := int32(100); i < 110; i++ {
		if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(i, i)); err != nil {
			t.Fatal(err)
		}
	}
	if err := f.store.TransactionComplete(tid, false); err != nil {
		t.Fatalf("abort failed: %v", err)
	}

	if got := f.diskDigest(t, f.pid(0)); got != before {
		t.Error("abort must not touch the disk image")
	}

	reader := primitives.NewTransactionID()
	p, err := f.store.GetPage(reader, f.pid(0), page.ReadOnly)
	if err != nil {
		t.Fatal(err)
	}
	if heap.DigestHex(p) != before {
		t.Error("resident page after abort differs from its pre-transaction disk image")
	}
	f.store.TransactionComplete(reader, true)

	if n := f.countTuples(t); n != 5 {
		t.Errorf("scan found %d tuples after abort, want 5", n)
	}
}

func TestPageStore_SchemaMismatchTouchesNothing(t *testing.T) {
	f := newFixture(t, 4, 0)
	tid := primitives.NewTransactionID()

	bad := tuple.NewBuilder(tuple.MustTupleDesc([]types.Type{types.StringType}, nil)).
		AddString("x").MustBuild()
	err := f.store.InsertTuple(tid, f.file.GetID(), bad)
	if !errors.Is(err, dberror.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if f.store.Stats().Resident != 0 || f.store.ActiveTransactions() != 0 {
		t.Error("no page may be touched before the schema check")
	}
}

func TestPageStore_IncompleteTupleRejected(t *testing.T) {
	f := newFixture(t, 4, 0)
	tid := primitives.NewTransactionID()

	partial := tuple.NewTuple(intDesc())
	if err := partial.SetField(0, types.NewIntField(7)); err != nil {
		t.Fatal(err)
	}
	err := f.store.InsertTuple(tid, f.file.GetID(), partial)
	if !errors.Is(err, dberror.ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
	if f.store.Stats().Resident != 0 || f.store.ActiveTransactions() != 0 {
		t.Error("no page may be touched for an incomplete tuple")
	}
	if n, _ := f.file.NumPages(); n != 0 {
		t.Errorf("incomplete tuple allocated %d pages", n)
	}
	if got := f.countTuples(t); got != 0 {
		t.Errorf("expected empty table, got %d tuples", got)
	}
}

// Pool capacity 2: filling page 0 and inserting once more allocates page 1
// without failing, and page 0 stays resident.
func TestPageStore_CapacityTwoAppendsPage(t *testing.T) {
	smallPages(t)
	f := newFixture(t, 2, 0)
	tid := primitives.NewTransactionID()

	for i := int32(0); i < 7; i++ {
		if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(i, i)); err != nil {
			t.Fatalf("InsertTuple %d failed: %v", i, err)
		}
	}
	if n, _ := f.file.NumPages(); n != 1 {
		t.Fatalf("expected 1 page after filling page 0, got %d", n)
	}

	if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(7, 7)); err != nil {
		t.Fatalf("overflow insert failed: %v", err)
	}
	if n, _ := f.file.NumPages(); n != 2 {
		t.Errorf("expected page 1 to be appended, have %d pages", n)
	}
	if _, ok := f.store.cache.Peek(f.pid(0)); !ok {
		t.Error("page 0 should remain resident")
	}
	if err := f.store.TransactionComplete(tid, true); err != nil {
		t.Fatal(err)
	}
	if n := f.countTuples(t); n != 8 {
		t.Errorf("scan found %d tuples, want 8", n)
	}
}

// A reader blocked on a writer's exclusive lock proceeds once the writer
// commits, and sees the committed tuple.
func TestPageStore_ReaderWaitsForWriterCommit(t *testing.T) {
	f := newFixture(t, 4, 2*time.Second)
	writer := primitives.NewTransactionID()
	if err := f.store.InsertTuple(writer, f.file.GetID(), intTuple(1, 2)); err != nil {
		t.Fatal(err)
	}

	reader := primitives.NewTransactionID()
	got := make(chan error, 1)
	var seen int
	go func() {
		p, err := f.store.GetPage(reader, f.pid(0), page.ReadOnly)
		if err == nil {
			seen = len(p.(*heap.HeapPage).GetTuples())
		}
		got <- err
	}()

	select {
	case err := <-got:
		t.Fatalf("reader should block while writer holds the page, got %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := f.store.TransactionComplete(writer, true); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-got:
		if err != nil {
			t.Fatalf("reader failed: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("reader still blocked after commit")
	}
	if seen != 1 {
		t.Errorf("reader saw %d tuples, want 1", seen)
	}
	f.store.TransactionComplete(reader, true)
}

func TestPageStore_LockTimeout(t *testing.T) {
	f := newFixture(t, 4, 30*time.Millisecond)
	f.appendEmptyPages(t, 1)

	holder := primitives.NewTransactionID()
	if _, err := f.store.GetPage(holder, f.pid(0), page.ReadWrite); err != nil {
		t.Fatal(err)
	}
	defer f.store.TransactionComplete(holder, true)

	waiter := primitives.NewTransactionID()
	_, err := f.store.GetPage(waiter, f.pid(0), page.ReadOnly)
	if !errors.Is(err, dberror.ErrLockTimeout) {
		t.Fatalf("expected ErrLockTimeout, got %v", err)
	}
	if err := f.store.TransactionComplete(waiter, false); err != nil {
		t.Errorf("abort after timeout failed: %v", err)
	}
}

// Deleting every tuple on a page frees its slots for the next insert.
func TestPageStore_InsertReusesFreedSlot(t *testing.T) {
	smallPages(t)
	f := newFixture(t, 4, 0)

	var stored []*tuple.Tuple
	_, err := transaction.Run(f.store, 1, func(tid *primitives.TransactionID) error {
		for i := int32(0); i < 7; i++ {
			if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(i, i)); err != nil {
				return err
			}
		}
		p, err := f.store.GetPage(tid, f.pid(0), page.ReadOnly)
		if err != nil {
			return err
		}
		stored = p.(*heap.HeapPage).GetTuples()
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	_, err = transaction.Run(f.store, 1, func(tid *primitives.TransactionID) error {
		for _, tup := range stored {
			if err := f.store.DeleteTuple(tid, tup); err != nil {
				return err
			}
		}
		return f.store.InsertTuple(tid, f.file.GetID(), intTuple(99, 99))
	})
	if err != nil {
		t.Fatal(err)
	}

	if n, _ := f.file.NumPages(); n != 1 {
		t.Errorf("insert after deletes should reuse page 0, file has %d pages", n)
	}
	hp, err := f.file.ReadHeapPage(f.pid(0))
	if err != nil {
		t.Fatal(err)
	}
	if !hp.IsSlotUsed(0) || hp.GetNumEmptySlots() != hp.NumSlots()-1 {
		t.Error("new tuple should occupy slot 0 only")
	}
}

func TestPageStore_UnsafeReleasePage(t *testing.T) {
	f := newFixture(t, 4, 30*time.Millisecond)
	f.appendEmptyPages(t, 1)

	a := primitives.NewTransactionID()
	if _, err := f.store.GetPage(a, f.pid(0), page.ReadWrite); err != nil {
		t.Fatal(err)
	}
	f.store.UnsafeReleasePage(a, f.pid(0))
	if f.store.HoldsLock(a, f.pid(0)) {
		t.Error("lock should be released")
	}

	b := primitives.NewTransactionID()
	if _, err := f.store.GetPage(b, f.pid(0), page.ReadWrite); err != nil {
		t.Errorf("second transaction should get the page: %v", err)
	}
	f.store.TransactionComplete(a, true)
	f.store.TransactionComplete(b, true)
}

func TestPageStore_FlushAndDiscard(t *testing.T) {
	f := newFixture(t, 4, 0)
	tid := primitives.NewTransactionID()
	if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(4, 2)); err != nil {
		t.Fatal(err)
	}

	if err := f.store.FlushPages(tid); err != nil {
		t.Fatalf("FlushPages failed: %v", err)
	}
	hp, err := f.file.ReadHeapPage(f.pid(0))
	if err != nil {
		t.Fatal(err)
	}
	if len(hp.GetTuples()) != 1 {
		t.Error("FlushPages should write the transaction's page")
	}

	if err := f.store.InsertTuple(tid, f.file.GetID(), intTuple(5, 2)); err != nil {
		t.Fatal(err)
	}
	if err := f.store.FlushAllPages(); err != nil {
		t.Fatalf("FlushAllPages failed: %v", err)
	}
	hp, _ = f.file.ReadHeapPage(f.pid(0))
	if len(hp.GetTuples()) != 2 {
		t.Error("FlushAllPages should write every dirty page")
	}

	f.store.DiscardPage(f.pid(0))
	if f.store.Stats().Resident != 0 {
		t.Error("DiscardPage should drop the page")
	}
	f.store.TransactionComplete(tid, true)
}

func TestPageStore_ConcurrentInserts(t *testing.T) {
	f := newFixture(t, 16, 100*time.Millisecond)
	const workers, perWorker = 4, 10

	var g errgroup.Group
	for w := 0; w < workers; w++ {
		g.Go(func() error {
			for i := 0; i < perWorker; i++ {
				_, err := transaction.Run(f.store, 100, func(tid *primitives.TransactionID) error {
					return f.store.InsertTuple(tid, f.file.GetID(), intTuple(int32(w), int32(i)))
				})
				if err != nil {
					return fmt.Errorf("worker %d insert %d: %w", w, i, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if n := f.countTuples(t); n != workers*perWorker {
		t.Errorf("found %d tuples, want %d", n, workers*perWorker)
	}
	if f.store.ActiveTransactions() != 0 {
		t.Error("all transactions should be complete")
	}
}

func TestPageStore_Close(t *testing.T) {
	f := newFixture(t, 4, 0)
	f.appendEmptyPages(t, 2)
	tid := primitives.NewTransactionID()
	f.store.GetPage(tid, f.pid(0), page.ReadOnly)
	f.store.GetPage(tid, f.pid(1), page.ReadOnly)
	f.store.TransactionComplete(tid, true)

	if err := f.store.Close(); err != nil {
		t.Fatal(err)
	}
	if f.store.Stats().Resident != 0 {
		t.Error("Close should drop resident pages")
	}
}
