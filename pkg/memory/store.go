package memory

import (
	"errors"
	"fmt"
	"heapstore/pkg/concurrency/lock"
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"sync"
	"time"
)

// DefaultPageCount is the buffer pool capacity used when none is configured.
const DefaultPageCount = 50

// TableSource resolves a table id to the file holding its pages.
type TableSource interface {
	GetDbFile(tableID primitives.TableID) (page.DbFile, error)
}

// StoreStats is a point-in-time view of buffer pool activity.
type StoreStats struct {
	Resident  int
	Capacity  int
	Hits      int64
	Misses    int64
	Evictions int64
}

// PageStore manages an in-memory cache of database pages and handles transaction-aware page operations.
// Every page access acquires a page lock first; cache bookkeeping happens
// under a single mutex that is never held while waiting for a lock.
//
// Dirty pages are never evicted (NO-STEAL) and are written to disk when
// their transaction commits (FORCE). Aborts undo by re-reading the
// affected pages from disk.
type PageStore struct {
	tables       TableSource
	mutex        sync.Mutex
	transactions *transaction.TransactionRegistry
	lockManager  *lock.LockManager
	cache        *LRUPageCache

	hits      int64
	misses    int64
	evictions int64
}

// NewPageStore creates a buffer pool of capacity pages whose lock waits give
// up after lockTimeout. Non-positive values select the defaults.
func NewPageStore(tables TableSource, capacity int, lockTimeout time.Duration) *PageStore {
	if capacity <= 0 {
		capacity = DefaultPageCount
	}
	return &PageStore{
		tables:       tables,
		transactions: transaction.NewTransactionRegistry(),
		lockManager:  lock.NewLockManager(lockTimeout),
		cache:        NewLRUPageCache(capacity),
	}
}

// LockManager exposes the page lock table, mainly for inspection.
func (p *PageStore) LockManager() *lock.LockManager {
	return p.lockManager
}

// GetPage locks pid for tid in the mode implied by perm, blocking until the
// lock is granted or the lock timeout elapses, and returns the resident page.
// A page not in the cache is read from its table file, evicting the least
// recently used clean page when the cache is full.
func (p *PageStore) GetPage(tid *primitives.TransactionID, pid primitives.PageID, perm page.Permissions) (page.Page, error) {
	if err := p.lockManager.LockPage(tid, pid, perm == page.ReadWrite); err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", pid, err)
	}
	p.transactions.GetOrCreate(tid).RecordPageAccess(pid)

	p.mutex.Lock()
	defer p.mutex.Unlock()

	if pg, exists := p.cache.Get(pid); exists {
		p.hits++
		return pg, nil
	}
	p.misses++

	dbFile, err := p.tables.GetDbFile(pid.TableID)
	if err != nil {
		return nil, err
	}

	pg, err := dbFile.ReadPage(pid)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s from disk: %w", pid, err)
	}

	// Read before evicting: an invalid reference must leave the cache intact.
	if p.cache.Size() >= p.cache.MaxSize() {
		if err := p.evictPage(); err != nil {
			return nil, err
		}
	}

	if err := p.cache.Put(pid, pg); err != nil {
		return nil, err
	}
	return pg, nil
}

// evictPage implements NO-STEAL: only a clean page may leave the cache, so
// nothing uncommitted ever reaches disk. Must be called with p.mutex held.
func (p *PageStore) evictPage() error {
	victim, ok := p.cache.EvictLRU(func(pg page.Page) bool {
		return pg.IsDirty() == nil
	})
	if !ok {
		return dberror.Newf(dberror.ErrResourceExhausted, "evictPage", "PageStore",
			"all %d resident pages are dirty", p.cache.Size())
	}

	p.evictions++
	logging.WithPage(victim).Debug("evicted page")
	return nil
}

// UnsafeReleasePage drops tid's lock on pid before the transaction ends.
// This breaks strict two-phase locking; callers must already know that no
// other transaction can observe state tid depends on.
func (p *PageStore) UnsafeReleasePage(tid *primitives.TransactionID, pid primitives.PageID) {
	p.lockManager.UnlockPage(tid, pid)
	if ctx := p.transactions.Get(tid); ctx != nil {
		ctx.ForgetPage(pid)
	}
}

// HoldsLock reports whether tid holds any lock on pid.
func (p *PageStore) HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool {
	return p.lockManager.HoldsLock(tid, pid)
}

// InsertTuple adds t to the table on behalf of tid. The table file picks the
// page; every page it modifies is marked dirty and kept resident.
func (p *PageStore) InsertTuple(tid *primitives.TransactionID, tableID primitives.TableID, t *tuple.Tuple) error {
	if t == nil {
		return fmt.Errorf("tuple cannot be nil")
	}

	dbFile, err := p.tables.GetDbFile(tableID)
	if err != nil {
		return err
	}
	if !dbFile.GetTupleDesc().Equals(t.TupleDesc) {
		return dberror.Newf(dberror.ErrSchemaMismatch, "InsertTuple", "PageStore",
			"tuple schema %s does not match table %d", t.TupleDesc, uint64(tableID))
	}
	if err := t.Complete(); err != nil {
		return dberror.Newf(dberror.ErrSchemaMismatch, "InsertTuple", "PageStore",
			"table %d: %v", uint64(tableID), err)
	}

	modifiedPages, err := dbFile.InsertTuple(tid, t, p)
	if err != nil {
		return fmt.Errorf("failed to add tuple: %w", err)
	}

	if err := p.markPagesAsDirty(tid, modifiedPages); err != nil {
		return err
	}
	p.transactions.GetOrCreate(tid).RecordTupleWrite()
	return nil
}

// DeleteTuple removes t, located by its RecordID, on behalf of tid.
func (p *PageStore) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple) error {
	if t == nil {
		return fmt.Errorf("tuple cannot be nil")
	}
	if t.RecordID == nil {
		return fmt.Errorf("tuple has no record ID")
	}

	dbFile, err := p.tables.GetDbFile(t.RecordID.PageID.TableID)
	if err != nil {
		return err
	}

	modifiedPage, err := dbFile.DeleteTuple(tid, t, p)
	if err != nil {
		return fmt.Errorf("failed to delete tuple: %w", err)
	}

	if err := p.markPagesAsDirty(tid, []page.Page{modifiedPage}); err != nil {
		return err
	}
	p.transactions.GetOrCreate(tid).RecordTupleDelete()
	return nil
}

// markPagesAsDirty stamps each page with tid, makes it the resident copy and
// records it in tid's dirty set.
func (p *PageStore) markPagesAsDirty(tid *primitives.TransactionID, pages []page.Page) error {
	ctx := p.transactions.GetOrCreate(tid)

	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pg := range pages {
		pid := pg.GetID()
		pg.MarkDirty(true, tid)
		ctx.MarkPageDirty(pid)

		// A page can be evicted while still clean between the file
		// modifying it and this call; put it back.
		if _, resident := p.cache.Peek(pid); !resident && p.cache.Size() >= p.cache.MaxSize() {
			if err := p.evictPage(); err != nil {
				return err
			}
		}
		if err := p.cache.Put(pid, pg); err != nil {
			return err
		}
	}
	return nil
}

// TransactionComplete ends tid. On commit every page tid dirtied is written
// to disk in page order before any lock is released. On abort those pages
// are reloaded from disk, discarding tid's changes. Either way tid's locks
// and bookkeeping are released.
func (p *PageStore) TransactionComplete(tid *primitives.TransactionID, commit bool) error {
	ctx := p.transactions.Remove(tid)
	defer p.lockManager.UnlockAllPages(tid)

	if ctx == nil {
		return nil
	}

	log := logging.WithTx(tid)
	dirty := ctx.GetDirtyPages()

	if commit {
		if err := p.flushPages(dirty); err != nil {
			// The remaining pages can no longer be trusted in memory.
			p.reloadPages(dirty)
			ctx.SetStatus(transaction.TxAborted)
			log.Error("commit failed, changes discarded", "error", err)
			return fmt.Errorf("commit of %s failed: %w", tid, err)
		}
		ctx.SetStatus(transaction.TxCommitted)
		log.Debug("committed transaction", "dirty_pages", len(dirty), "duration", ctx.Duration())
		return nil
	}

	p.reloadPages(dirty)
	ctx.SetStatus(transaction.TxAborted)
	log.Debug("aborted transaction", "dirty_pages", len(dirty), "duration", ctx.Duration())
	return nil
}

// reloadPages replaces each resident page with its on-disk version. A page
// that cannot be read back is dropped from the cache.
func (p *PageStore) reloadPages(pids []primitives.PageID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	for _, pid := range pids {
		if _, resident := p.cache.Peek(pid); !resident {
			continue
		}

		fresh, err := p.readFromDisk(pid)
		if err != nil {
			logging.WithPage(pid).Error("failed to reload page during abort", "error", err)
			p.cache.Remove(pid)
			continue
		}
		if err := p.cache.Put(pid, fresh); err != nil {
			p.cache.Remove(pid)
		}
	}
}

func (p *PageStore) readFromDisk(pid primitives.PageID) (page.Page, error) {
	dbFile, err := p.tables.GetDbFile(pid.TableID)
	if err != nil {
		return nil, err
	}
	return dbFile.ReadPage(pid)
}

func (p *PageStore) flushPages(pids []primitives.PageID) error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var errs []error
	for _, pid := range pids {
		if err := p.flushPage(pid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// flushPage writes pid to disk if it is resident and dirty. Must be called
// with p.mutex held.
func (p *PageStore) flushPage(pid primitives.PageID) error {
	pg, exists := p.cache.Peek(pid)
	if !exists || pg.IsDirty() == nil {
		return nil
	}

	dbFile, err := p.tables.GetDbFile(pid.TableID)
	if err != nil {
		return err
	}
	if err := dbFile.WritePage(pg); err != nil {
		return fmt.Errorf("failed to flush %s: %w", pid, err)
	}
	pg.MarkDirty(false, nil)
	return nil
}

// FlushPages writes every page tid has dirtied without ending tid.
func (p *PageStore) FlushPages(tid *primitives.TransactionID) error {
	ctx := p.transactions.Get(tid)
	if ctx == nil {
		return nil
	}
	return p.flushPages(ctx.GetDirtyPages())
}

// FlushAllPages writes every dirty resident page, committed or not. It is
// meant for tests and maintenance, since it bypasses NO-STEAL.
func (p *PageStore) FlushAllPages() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var errs []error
	for _, pid := range p.cache.GetAll() {
		if err := p.flushPage(pid); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// DiscardPage drops pid from the cache without writing it back.
func (p *PageStore) DiscardPage(pid primitives.PageID) {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	p.cache.Remove(pid)
}

// Stats returns a snapshot of cache occupancy and hit counters.
func (p *PageStore) Stats() StoreStats {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	return StoreStats{
		Resident:  p.cache.Size(),
		Capacity:  p.cache.MaxSize(),
		Hits:      p.hits,
		Misses:    p.misses,
		Evictions: p.evictions,
	}
}

// ActiveTransactions returns the number of transactions that have touched a
// page and not yet completed.
func (p *PageStore) ActiveTransactions() int {
	return p.transactions.Count()
}

// Close drops every resident page. Uncommitted changes are lost; committed
// ones are already on disk.
func (p *PageStore) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if n := p.transactions.Count(); n > 0 {
		logging.WithComponent("PageStore").Warn("closing with active transactions", "count", n)
	}
	p.cache.Clear()
	return nil
}
