// Package lock implements page-level strict two-phase locking for heapstore.
//
// # Overview
//
// A transaction acquires locks as it touches pages and releases them all at
// once when it commits or aborts. Two lock modes are supported:
//
//   - [SharedLock]    required to read a page; compatible with other shared locks.
//   - [ExclusiveLock] required to write a page; incompatible with every other lock.
//
// A transaction holding a shared lock may upgrade it to exclusive once no
// other transaction holds the page. The upgrade replaces the shared hold in
// place, so the page is never observed unlocked in between. A transaction
// that already holds exclusive and asks for shared keeps its exclusive lock.
//
// # Waiting
//
// Each page has a [PageLock]. A request that cannot be granted waits on the
// lock's broadcast channel, which is closed and replaced whenever a holder
// leaves. Waiters then re-check their request. Every wait is bounded by a
// deadline; when it passes the request fails with dberror.ErrLockTimeout.
//
// There is no deadlock detector. A cycle of waiters resolves when the first
// of them times out and its caller aborts the transaction, releasing its locks.
//
// # Components
//
// [LockManager] owns one [PageLock] per page, created on first use and kept
// for the lifetime of the manager, and remembers which pages each
// transaction holds so that [LockManager.UnlockAllPages] can release them.
package lock
