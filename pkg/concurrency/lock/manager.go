package lock

import (
	"errors"
	"fmt"
	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"sync"
	"time"
)

// DefaultTimeout bounds how long LockPage waits before failing.
const DefaultTimeout = time.Second

// LockManager hands out page locks to transactions.
type LockManager struct {
	mutex     sync.Mutex
	pageLocks map[primitives.PageID]*PageLock
	txPages   map[*primitives.TransactionID]map[primitives.PageID]struct{}
	timeout   time.Duration
}

// NewLockManager creates a lock manager whose waits give up after timeout.
// A non-positive timeout selects DefaultTimeout.
func NewLockManager(timeout time.Duration) *LockManager {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &LockManager{
		pageLocks: make(map[primitives.PageID]*PageLock),
		txPages:   make(map[*primitives.TransactionID]map[primitives.PageID]struct{}),
		timeout:   timeout,
	}
}

func (lm *LockManager) Timeout() time.Duration {
	return lm.timeout
}

// lockFor returns the PageLock for pid, creating it on first use.
func (lm *LockManager) lockFor(pid primitives.PageID) *PageLock {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	pl, ok := lm.pageLocks[pid]
	if !ok {
		pl = NewPageLock()
		lm.pageLocks[pid] = pl
	}
	return pl
}

// LockPage acquires a shared or exclusive lock on pid for tid, blocking up
// to the manager's timeout. On timeout the error matches
// dberror.ErrLockTimeout and tid's existing locks are left untouched.
func (lm *LockManager) LockPage(tid *primitives.TransactionID, pid primitives.PageID, exclusive bool) error {
	if tid == nil {
		return fmt.Errorf("transaction ID cannot be nil")
	}

	mode := SharedLock
	if exclusive {
		mode = ExclusiveLock
	}

	if err := lm.lockFor(pid).Acquire(tid, mode, lm.timeout); err != nil {
		if errors.Is(err, dberror.ErrLockTimeout) {
			logging.WithLock(tid, pid).Debug("lock wait timed out", "mode", mode.String(), "timeout", lm.timeout)
			var dbErr *dberror.DBError
			if errors.As(err, &dbErr) {
				dbErr.Detail = fmt.Sprintf("%s on %s", dbErr.Detail, pid)
			}
		}
		return err
	}

	lm.mutex.Lock()
	pages, ok := lm.txPages[tid]
	if !ok {
		pages = make(map[primitives.PageID]struct{})
		lm.txPages[tid] = pages
	}
	pages[pid] = struct{}{}
	lm.mutex.Unlock()
	return nil
}

// UnlockPage releases tid's lock on pid, if it holds one.
func (lm *LockManager) UnlockPage(tid *primitives.TransactionID, pid primitives.PageID) {
	lm.mutex.Lock()
	pl := lm.pageLocks[pid]
	if pages, ok := lm.txPages[tid]; ok {
		delete(pages, pid)
		if len(pages) == 0 {
			delete(lm.txPages, tid)
		}
	}
	lm.mutex.Unlock()

	if pl != nil {
		pl.Release(tid)
	}
}

// UnlockAllPages releases every lock tid holds.
func (lm *LockManager) UnlockAllPages(tid *primitives.TransactionID) {
	lm.mutex.Lock()
	pages := lm.txPages[tid]
	delete(lm.txPages, tid)
	locks := make([]*PageLock, 0, len(pages))
	for pid := range pages {
		if pl, ok := lm.pageLocks[pid]; ok {
			locks = append(locks, pl)
		}
	}
	lm.mutex.Unlock()

	for _, pl := range locks {
		pl.Release(tid)
	}
}

// HoldsLock reports whether tid holds any lock on pid.
func (lm *LockManager) HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	lm.mutex.Lock()
	pl, ok := lm.pageLocks[pid]
	lm.mutex.Unlock()
	if !ok {
		return false
	}
	_, held := pl.HeldBy(tid)
	return held
}

// LockMode returns the mode tid holds pid in.
func (lm *LockManager) LockMode(tid *primitives.TransactionID, pid primitives.PageID) (LockType, bool) {
	lm.mutex.Lock()
	pl, ok := lm.pageLocks[pid]
	lm.mutex.Unlock()
	if !ok {
		return 0, false
	}
	return pl.HeldBy(tid)
}

// IsPageLocked reports whether any transaction holds pid.
func (lm *LockManager) IsPageLocked(pid primitives.PageID) bool {
	lm.mutex.Lock()
	pl, ok := lm.pageLocks[pid]
	lm.mutex.Unlock()
	return ok && pl.IsLocked()
}

// PagesHeldBy returns the pages tid currently holds, in no particular order.
func (lm *LockManager) PagesHeldBy(tid *primitives.TransactionID) []primitives.PageID {
	lm.mutex.Lock()
	defer lm.mutex.Unlock()

	pages := lm.txPages[tid]
	out := make([]primitives.PageID, 0, len(pages))
	for pid := range pages {
		out = append(out, pid)
	}
	return out
}
