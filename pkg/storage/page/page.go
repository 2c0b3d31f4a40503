package page

import (
	"fmt"
	"heapstore/pkg/primitives"
	"sync/atomic"
)

// DefaultPageSize is the size of each page in bytes (4KB).
const DefaultPageSize = 4096

// MaxPageSize bounds the page size so every slot number of a page fits in
// a primitives.SlotID.
const MaxPageSize = 1 << 30

var pageSize atomic.Int64

func init() {
	pageSize.Store(DefaultPageSize)
}

// Size returns the current process-wide page size in bytes.
func Size() int {
	return int(pageSize.Load())
}

// SetPageSize changes the page size for the whole process. It must only be
// called while no pages are cached and no heap files are open, which in
// practice means at startup or in tests.
func SetPageSize(n int) error {
	if n <= 0 {
		return fmt.Errorf("page size must be positive, got %d", n)
	}
	if n > MaxPageSize {
		return fmt.Errorf("page size %d exceeds maximum %d", n, MaxPageSize)
	}
	pageSize.Store(int64(n))
	return nil
}

// ResetPageSize restores DefaultPageSize.
func ResetPageSize() {
	pageSize.Store(DefaultPageSize)
}

// Permissions is the access level requested when fetching a page.
type Permissions int

const (
	ReadOnly Permissions = iota
	ReadWrite
)

func (p Permissions) String() string {
	if p == ReadWrite {
		return "READ_WRITE"
	}
	return "READ_ONLY"
}

// Page is a page resident in the buffer pool. A page is dirty when a
// transaction has modified it since it was last written to disk.
type Page interface {
	GetID() primitives.PageID

	// IsDirty returns the transaction that last dirtied this page, or nil if clean.
	IsDirty() *primitives.TransactionID

	MarkDirty(dirty bool, tid *primitives.TransactionID)

	// GetPageData serializes the page to exactly Size() bytes.
	GetPageData() []byte
}
