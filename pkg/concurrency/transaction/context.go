// Package transaction tracks the lifecycle and page footprint of running
// transactions, and provides a helper that retries a unit of work when it
// loses a lock race.
package transaction

import (
	"fmt"
	"heapstore/pkg/primitives"
	"sync"
	"time"

	"github.com/google/btree"
)

// TransactionStatus represents the current state of a transaction
type TransactionStatus int

const (
	TxActive TransactionStatus = iota
	TxCommitted
	TxAborted
)

func (ts TransactionStatus) String() string {
	switch ts {
	case TxActive:
		return "ACTIVE"
	case TxCommitted:
		return "COMMITTED"
	case TxAborted:
		return "ABORTED"
	default:
		return "UNKNOWN"
	}
}

type TransactionStats struct {
	PagesRead     int
	TuplesWritten int
	TuplesDeleted int
	LockedPages   int
	DirtyPages    int
}

const pageSetDegree = 8

func newPageSet() *btree.BTreeG[primitives.PageID] {
	return btree.NewG(pageSetDegree, primitives.PageID.Less)
}

// TransactionContext records every page a transaction has locked and every
// page it has dirtied. Both sets are ordered by PageID so commit can flush
// in file order.
type TransactionContext struct {
	ID *primitives.TransactionID

	status    TransactionStatus
	startTime time.Time
	endTime   time.Time
	mutex     sync.RWMutex

	heldPages  *btree.BTreeG[primitives.PageID]
	dirtyPages *btree.BTreeG[primitives.PageID]

	pagesRead     int
	tuplesWritten int
	tuplesDeleted int
}

func NewTransactionContext(tid *primitives.TransactionID) *TransactionContext {
	return &TransactionContext{
		ID:         tid,
		status:     TxActive,
		startTime:  time.Now(),
		heldPages:  newPageSet(),
		dirtyPages: newPageSet(),
	}
}

func (tc *TransactionContext) IsActive() bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status == TxActive
}

func (tc *TransactionContext) GetStatus() TransactionStatus {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.status
}

// SetStatus updates the transaction status and stamps the end time once the
// transaction has finished.
func (tc *TransactionContext) SetStatus(status TransactionStatus) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.status = status
	if status != TxActive {
		tc.endTime = time.Now()
	}
}

// RecordPageAccess adds pid to the held set.
func (tc *TransactionContext) RecordPageAccess(pid primitives.PageID) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()

	if _, existed := tc.heldPages.ReplaceOrInsert(pid); !existed {
		tc.pagesRead++
	}
}

// ForgetPage removes pid from the held set after an early release.
func (tc *TransactionContext) ForgetPage(pid primitives.PageID) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.heldPages.Delete(pid)
}

func (tc *TransactionContext) HoldsPage(pid primitives.PageID) bool {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.heldPages.Has(pid)
}

// MarkPageDirty adds pid to the dirtied set.
func (tc *TransactionContext) MarkPageDirty(pid primitives.PageID) {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.dirtyPages.ReplaceOrInsert(pid)
}

// GetDirtyPages returns the dirtied pages in ascending PageID order.
func (tc *TransactionContext) GetDirtyPages() []primitives.PageID {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return collect(tc.dirtyPages)
}

// GetLockedPages returns the held pages in ascending PageID order.
func (tc *TransactionContext) GetLockedPages() []primitives.PageID {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return collect(tc.heldPages)
}

func collect(set *btree.BTreeG[primitives.PageID]) []primitives.PageID {
	out := make([]primitives.PageID, 0, set.Len())
	set.Ascend(func(pid primitives.PageID) bool {
		out = append(out, pid)
		return true
	})
	return out
}

func (tc *TransactionContext) RecordTupleWrite() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesWritten++
}

func (tc *TransactionContext) RecordTupleDelete() {
	tc.mutex.Lock()
	defer tc.mutex.Unlock()
	tc.tuplesDeleted++
}

// GetStatistics returns a snapshot of transaction statistics
func (tc *TransactionContext) GetStatistics() TransactionStats {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	return TransactionStats{
		PagesRead:     tc.pagesRead,
		TuplesWritten: tc.tuplesWritten,
		TuplesDeleted: tc.tuplesDeleted,
		LockedPages:   tc.heldPages.Len(),
		DirtyPages:    tc.dirtyPages.Len(),
	}
}

// Duration returns how long the transaction has been running
func (tc *TransactionContext) Duration() time.Duration {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()
	return tc.durationLocked()
}

func (tc *TransactionContext) durationLocked() time.Duration {
	endTime := tc.endTime
	if endTime.IsZero() {
		endTime = time.Now()
	}
	return endTime.Sub(tc.startTime)
}

func (tc *TransactionContext) String() string {
	tc.mutex.RLock()
	defer tc.mutex.RUnlock()

	return fmt.Sprintf("Transaction %s [Status=%s, Duration=%v, Dirty=%d, Locked=%d]",
		tc.ID.String(), tc.status.String(), tc.durationLocked(),
		tc.dirtyPages.Len(), tc.heldPages.Len())
}
