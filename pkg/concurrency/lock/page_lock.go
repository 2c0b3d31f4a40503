package lock

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"sync"
	"time"
)

// PageLock is the lock state of a single page: the set of holders and a
// broadcast channel that is closed every time a holder leaves.
//
// Invariant: either exactly one holder in ExclusiveLock mode, or any number
// of holders all in SharedLock mode.
type PageLock struct {
	mu      sync.Mutex
	holders map[*primitives.TransactionID]LockType
	changed chan struct{}
}

func NewPageLock() *PageLock {
	return &PageLock{
		holders: make(map[*primitives.TransactionID]LockType),
		changed: make(chan struct{}),
	}
}

// Acquire blocks until tid holds the page in at least mode, or until timeout
// elapses. A shared holder asking for exclusive is upgraded in place.
func (pl *PageLock) Acquire(tid *primitives.TransactionID, mode LockType, timeout time.Duration) error {
	var timer *time.Timer

	for {
		pl.mu.Lock()
		if pl.tryGrant(tid, mode) {
			pl.mu.Unlock()
			if timer != nil {
				timer.Stop()
			}
			return nil
		}
		wait := pl.changed
		pl.mu.Unlock()

		if timer == nil {
			timer = time.NewTimer(timeout)
		}

		select {
		case <-wait:
		case <-timer.C:
			return dberror.Newf(dberror.ErrLockTimeout, "Acquire", "PageLock",
				"%s waited %s for %s lock", tid, timeout, mode)
		}
	}
}

// Upgrade converts tid's shared hold into an exclusive one.
func (pl *PageLock) Upgrade(tid *primitives.TransactionID, timeout time.Duration) error {
	return pl.Acquire(tid, ExclusiveLock, timeout)
}

// tryGrant must be called with pl.mu held.
func (pl *PageLock) tryGrant(tid *primitives.TransactionID, mode LockType) bool {
	current, held := pl.holders[tid]
	if held && current.covers(mode) {
		return true
	}

	for other, otherMode := range pl.holders {
		if other == tid {
			continue
		}
		if mode == ExclusiveLock || otherMode == ExclusiveLock {
			return false
		}
	}

	pl.holders[tid] = mode
	return true
}

// Release drops tid's hold, if any, and wakes every waiter.
func (pl *PageLock) Release(tid *primitives.TransactionID) {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if _, held := pl.holders[tid]; !held {
		return
	}
	delete(pl.holders, tid)
	close(pl.changed)
	pl.changed = make(chan struct{})
}

// HeldBy returns the mode tid holds the page in.
func (pl *PageLock) HeldBy(tid *primitives.TransactionID) (LockType, bool) {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	mode, ok := pl.holders[tid]
	return mode, ok
}

func (pl *PageLock) IsLocked() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return len(pl.holders) > 0
}

// Holders returns a snapshot of the current holders.
func (pl *PageLock) Holders() map[*primitives.TransactionID]LockType {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	out := make(map[*primitives.TransactionID]LockType, len(pl.holders))
	for tid, mode := range pl.holders {
		out[tid] = mode
	}
	return out
}
