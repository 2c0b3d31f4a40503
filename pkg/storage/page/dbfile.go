package page

import (
	"heapstore/pkg/iterator"
	"heapstore/pkg/primitives"
	"heapstore/pkg/tuple"
)

// PageAccessor is the slice of the buffer pool a DbFile needs to modify
// pages under the caller's transaction. Every page touched through it is
// locked on behalf of tid.
type PageAccessor interface {
	GetPage(tid *primitives.TransactionID, pid primitives.PageID, perm Permissions) (Page, error)

	// UnsafeReleasePage drops tid's lock on pid before the transaction ends.
	UnsafeReleasePage(tid *primitives.TransactionID, pid primitives.PageID)

	HoldsLock(tid *primitives.TransactionID, pid primitives.PageID) bool
}

// DbFile is the on-disk representation of one table.
type DbFile interface {
	// ReadPage reads a page straight from disk, bypassing the buffer pool.
	ReadPage(pid primitives.PageID) (Page, error)

	// WritePage writes p at its position, extending the file when needed.
	WritePage(p Page) error

	// NumPages is the number of whole pages currently in the file.
	NumPages() (primitives.PageNumber, error)

	// InsertTuple stores t in the first page with a free slot, appending a
	// page when none has room. It returns the pages it modified; the caller
	// marks them dirty.
	InsertTuple(tid *primitives.TransactionID, t *tuple.Tuple, pages PageAccessor) ([]Page, error)

	// DeleteTuple frees the slot named by t.RecordID and returns the modified page.
	DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple, pages PageAccessor) (Page, error)

	// Iterator scans every tuple in the file through pages on behalf of tid.
	Iterator(tid *primitives.TransactionID, pages PageAccessor) iterator.DbFileIterator

	GetID() primitives.TableID

	GetTupleDesc() *tuple.TupleDescription

	Close() error
}
