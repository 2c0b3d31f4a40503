package heap

import (
	"fmt"
	"heapstore/pkg/dberror"
	"heapstore/pkg/iterator"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"sync"
)

// HeapFile stores the tuples of one table, unordered, in a single OS file.
//
// Storage layout:
//   - Each page is exactly page.Size() bytes
//   - Pages are numbered sequentially starting from 0
//   - Page offsets are calculated as: pageNo * page.Size()
type HeapFile struct {
	*page.BaseFile
	tupleDesc *tuple.TupleDescription

	// appendMu serializes page appends so concurrent inserters never
	// allocate the same page number.
	appendMu sync.Mutex
}

// NewHeapFile opens or creates the heap file at filename.
func NewHeapFile(filename primitives.Filepath, td *tuple.TupleDescription) (*HeapFile, error) {
	if td == nil {
		return nil, fmt.Errorf("tuple description cannot be nil")
	}

	baseFile, err := page.NewBaseFile(filename)
	if err != nil {
		return nil, err
	}

	return &HeapFile{BaseFile: baseFile, tupleDesc: td}, nil
}

func (hf *HeapFile) GetTupleDesc() *tuple.TupleDescription {
	return hf.tupleDesc
}

// ReadPage reads and decodes a page directly from disk. Callers other than
// the buffer pool and debugging tools should go through the pool instead.
func (hf *HeapFile) ReadPage(pid primitives.PageID) (page.Page, error) {
	return hf.readHeapPage(pid)
}

func (hf *HeapFile) readHeapPage(pid primitives.PageID) (*HeapPage, error) {
	if pid.TableID != hf.GetID() {
		return nil, dberror.Newf(dberror.ErrInvalidPageReference, "ReadPage", "HeapFile",
			"%s does not belong to table %d", pid, uint64(hf.GetID()))
	}

	data, err := hf.ReadPageData(pid.PageNo)
	if err != nil {
		return nil, err
	}
	return NewHeapPage(pid, data, hf.tupleDesc)
}

// WritePage writes p at its page offset and syncs the file.
func (hf *HeapFile) WritePage(p page.Page) error {
	if p == nil {
		return fmt.Errorf("page cannot be nil")
	}
	pid := p.GetID()
	if pid.TableID != hf.GetID() {
		return dberror.Newf(dberror.ErrInvalidPageReference, "WritePage", "HeapFile",
			"%s does not belong to table %d", pid, uint64(hf.GetID()))
	}
	if hp, ok := p.(*HeapPage); ok {
		data, err := hp.serialize()
		if err != nil {
			return fmt.Errorf("failed to serialize %s: %w", pid, err)
		}
		return hf.WritePageData(pid.PageNo, data)
	}
	return hf.WritePageData(pid.PageNo, p.GetPageData())
}

// InsertTuple finds a page with a free slot through the buffer pool and
// inserts t there. Each page is first inspected under a shared lock, and
// only a page with room is upgraded to exclusive. A full page whose lock
// was taken just for the inspection is released again. When no page has
// room, an empty page is appended to the file and used.
func (hf *HeapFile) InsertTuple(tid *primitives.TransactionID, t *tuple.Tuple, pages page.PageAccessor) ([]page.Page, error) {
	if t == nil {
		return nil, fmt.Errorf("tuple cannot be nil")
	}
	if !hf.tupleDesc.Equals(t.TupleDesc) {
		return nil, dberror.Newf(dberror.ErrSchemaMismatch, "InsertTuple", "HeapFile",
			"expected %s, got %s", hf.tupleDesc, t.TupleDesc)
	}
	if err := t.Complete(); err != nil {
		return nil, dberror.Newf(dberror.ErrSchemaMismatch, "InsertTuple", "HeapFile", "%v", err)
	}
	if NumSlotsFor(hf.tupleDesc) == 0 {
		return nil, fmt.Errorf("tuple of %d bytes does not fit on a %d byte page", hf.tupleDesc.GetSize(), page.Size())
	}

	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		pid := primitives.NewPageID(hf.GetID(), pageNo)
		alreadyHeld := pages.HoldsLock(tid, pid)

		p, err := pages.GetPage(tid, pid, page.ReadOnly)
		if err != nil {
			return nil, err
		}

		if asHeapPage(p).GetNumEmptySlots() == 0 {
			if !alreadyHeld {
				pages.UnsafeReleasePage(tid, pid)
			}
			continue
		}

		p, err = pages.GetPage(tid, pid, page.ReadWrite)
		if err != nil {
			return nil, err
		}
		// Another transaction may have filled the page between the two
		// lock acquisitions.
		if err := asHeapPage(p).InsertTuple(t); err != nil {
			continue
		}
		return []page.Page{p}, nil
	}

	pid, err := hf.appendEmptyPage()
	if err != nil {
		return nil, err
	}

	p, err := pages.GetPage(tid, pid, page.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := asHeapPage(p).InsertTuple(t); err != nil {
		return nil, err
	}
	return []page.Page{p}, nil
}

// appendEmptyPage writes a zeroed page at the end of the file so the new
// page number is within the file length before the pool reads it.
func (hf *HeapFile) appendEmptyPage() (primitives.PageID, error) {
	hf.appendMu.Lock()
	defer hf.appendMu.Unlock()

	numPages, err := hf.NumPages()
	if err != nil {
		return primitives.PageID{}, err
	}

	pid := primitives.NewPageID(hf.GetID(), numPages)
	if err := hf.WritePageData(numPages, make([]byte, page.Size())); err != nil {
		return primitives.PageID{}, fmt.Errorf("failed to append page: %w", err)
	}

	logging.WithPage(pid).Debug("appended empty heap page")
	return pid, nil
}

// DeleteTuple frees the slot named by t.RecordID under an exclusive lock on its page.
func (hf *HeapFile) DeleteTuple(tid *primitives.TransactionID, t *tuple.Tuple, pages page.PageAccessor) (page.Page, error) {
	if t == nil || t.RecordID == nil {
		return nil, fmt.Errorf("tuple has no record ID")
	}

	pid := t.RecordID.PageID
	if pid.TableID != hf.GetID() {
		return nil, dberror.Newf(dberror.ErrInvalidPageReference, "DeleteTuple", "HeapFile",
			"%s does not belong to table %d", pid, uint64(hf.GetID()))
	}

	p, err := pages.GetPage(tid, pid, page.ReadWrite)
	if err != nil {
		return nil, err
	}
	if err := asHeapPage(p).DeleteTuple(t); err != nil {
		return nil, err
	}
	return p, nil
}

// Iterator returns a scan over every tuple in the file on behalf of tid.
func (hf *HeapFile) Iterator(tid *primitives.TransactionID, pages page.PageAccessor) iterator.DbFileIterator {
	return NewHeapFileIterator(hf, tid, pages)
}

func asHeapPage(p page.Page) *HeapPage {
	return p.(*HeapPage)
}
