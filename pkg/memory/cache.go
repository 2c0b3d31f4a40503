// Package memory implements the buffer pool: a bounded cache of pages that
// mediates every page access through the lock manager and applies a
// NO-STEAL / FORCE policy at transaction completion.
package memory

import (
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"sync"
)

// PageCache defines the interface for caching database pages in memory.
// It is responsible ONLY for storing and retrieving pages in memory.
// It knows nothing about transactions, locks, or durability.
type PageCache interface {
	// Get retrieves a page and marks it most recently used.
	Get(pid primitives.PageID) (page.Page, bool)

	// Put stores or replaces a page. It fails with ErrResourceExhausted
	// when pid is not resident and the cache is full.
	Put(pid primitives.PageID, p page.Page) error

	Remove(pid primitives.PageID)

	Size() int

	Clear()

	// GetAll returns the resident page ids, most recently used first.
	GetAll() []primitives.PageID
}

const nilSlot = -1

// slot is one arena cell. prev and next are arena indexes, not pointers.
type slot struct {
	pid  primitives.PageID
	page page.Page
	prev int
	next int
}

// LRUPageCache keeps pages in a fixed arena of slots threaded onto a doubly
// linked recency list by index. head is the most recently used slot and tail
// the least. Freed slots are recycled through a free list.
//
// When the cache reaches maximum capacity, Put of a new page returns an
// error instead of evicting; the caller chooses the victim with EvictLRU.
type LRUPageCache struct {
	maxSize int
	index   map[primitives.PageID]int
	slots   []slot
	free    []int
	head    int
	tail    int
	mutex   sync.Mutex
}

// NewLRUPageCache creates a new LRU page cache with the specified maximum size.
func NewLRUPageCache(maxSize int) *LRUPageCache {
	c := &LRUPageCache{
		maxSize: maxSize,
		index:   make(map[primitives.PageID]int, maxSize),
		slots:   make([]slot, maxSize),
		free:    make([]int, 0, maxSize),
		head:    nilSlot,
		tail:    nilSlot,
	}
	for i := maxSize - 1; i >= 0; i-- {
		c.free = append(c.free, i)
	}
	return c
}

func (c *LRUPageCache) unlink(i int) {
	s := &c.slots[i]
	if s.prev != nilSlot {
		c.slots[s.prev].next = s.next
	} else {
		c.head = s.next
	}
	if s.next != nilSlot {
		c.slots[s.next].prev = s.prev
	} else {
		c.tail = s.prev
	}
	s.prev, s.next = nilSlot, nilSlot
}

func (c *LRUPageCache) pushFront(i int) {
	s := &c.slots[i]
	s.prev = nilSlot
	s.next = c.head
	if c.head != nilSlot {
		c.slots[c.head].prev = i
	}
	c.head = i
	if c.tail == nilSlot {
		c.tail = i
	}
}

func (c *LRUPageCache) Get(pid primitives.PageID) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	i, exists := c.index[pid]
	if !exists {
		return nil, false
	}
	c.unlink(i)
	c.pushFront(i)
	return c.slots[i].page, true
}

// Peek returns a resident page without touching its recency.
func (c *LRUPageCache) Peek(pid primitives.PageID) (page.Page, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if i, exists := c.index[pid]; exists {
		return c.slots[i].page, true
	}
	return nil, false
}

func (c *LRUPageCache) Put(pid primitives.PageID, p page.Page) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if i, exists := c.index[pid]; exists {
		c.slots[i].page = p
		c.unlink(i)
		c.pushFront(i)
		return nil
	}

	if len(c.free) == 0 {
		return dberror.Newf(dberror.ErrResourceExhausted, "Put", "LRUPageCache",
			"cache is full (%d pages)", c.maxSize)
	}

	i := c.free[len(c.free)-1]
	c.free = c.free[:len(c.free)-1]
	c.slots[i] = slot{pid: pid, page: p, prev: nilSlot, next: nilSlot}
	c.index[pid] = i
	c.pushFront(i)
	return nil
}

func (c *LRUPageCache) Remove(pid primitives.PageID) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.removeLocked(pid)
}

func (c *LRUPageCache) removeLocked(pid primitives.PageID) {
	i, exists := c.index[pid]
	if !exists {
		return
	}
	c.unlink(i)
	c.slots[i] = slot{prev: nilSlot, next: nilSlot}
	delete(c.index, pid)
	c.free = append(c.free, i)
}

// EvictLRU walks from the least recently used end and removes the first
// page for which evictable returns true.
func (c *LRUPageCache) EvictLRU(evictable func(page.Page) bool) (primitives.PageID, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	for i := c.tail; i != nilSlot; i = c.slots[i].prev {
		if evictable(c.slots[i].page) {
			pid := c.slots[i].pid
			c.removeLocked(pid)
			return pid, true
		}
	}
	return primitives.PageID{}, false
}

func (c *LRUPageCache) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return len(c.index)
}

func (c *LRUPageCache) MaxSize() int {
	return c.maxSize
}

func (c *LRUPageCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	clear(c.index)
	c.free = c.free[:0]
	for i := c.maxSize - 1; i >= 0; i-- {
		c.slots[i] = slot{prev: nilSlot, next: nilSlot}
		c.free = append(c.free, i)
	}
	c.head, c.tail = nilSlot, nilSlot
}

func (c *LRUPageCache) GetAll() []primitives.PageID {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	pids := make([]primitives.PageID, 0, len(c.index))
	for i := c.head; i != nilSlot; i = c.slots[i].next {
		pids = append(pids, c.slots[i].pid)
	}
	return pids
}
