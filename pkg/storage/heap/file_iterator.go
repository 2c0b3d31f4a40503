package heap

import (
	"fmt"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// HeapFileIterator walks a heap file page by page through the buffer pool,
// taking a shared lock on each page it reads. The number of pages is fixed
// when the iterator is opened; pages appended later are not visited.
type HeapFileIterator struct {
	file     *HeapFile
	tid      *primitives.TransactionID
	pages    page.PageAccessor
	numPages primitives.PageNumber
	nextPage primitives.PageNumber
	buffered []*tuple.Tuple
	isOpen   bool
}

func NewHeapFileIterator(file *HeapFile, tid *primitives.TransactionID, pages page.PageAccessor) *HeapFileIterator {
	return &HeapFileIterator{file: file, tid: tid, pages: pages}
}

func (it *HeapFileIterator) Open() error {
	numPages, err := it.file.NumPages()
	if err != nil {
		return err
	}
	it.numPages = numPages
	it.nextPage = 0
	it.buffered = nil
	it.isOpen = true
	return nil
}

func (it *HeapFileIterator) HasNext() (bool, error) {
	if !it.isOpen {
		return false, fmt.Errorf("iterator not opened")
	}

	for len(it.buffered) == 0 {
		if it.nextPage >= it.numPages {
			return false, nil
		}
		if err := it.loadPage(it.nextPage); err != nil {
			return false, err
		}
		it.nextPage++
	}
	return true, nil
}

func (it *HeapFileIterator) Next() (*tuple.Tuple, error) {
	hasNext, err := it.HasNext()
	if err != nil {
		return nil, err
	}
	if !hasNext {
		return nil, fmt.Errorf("no more tuples")
	}

	t := it.buffered[0]
	it.buffered = it.buffered[1:]
	return t, nil
}

// Rewind restarts the scan. The page bound is recomputed.
func (it *HeapFileIterator) Rewind() error {
	return it.Open()
}

func (it *HeapFileIterator) Close() error {
	it.buffered = nil
	it.isOpen = false
	return nil
}

func (it *HeapFileIterator) loadPage(pageNo primitives.PageNumber) error {
	pid := primitives.NewPageID(it.file.GetID(), pageNo)
	p, err := it.pages.GetPage(it.tid, pid, page.ReadOnly)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", pid, err)
	}
	it.buffered = asHeapPage(p).GetTuples()
	return nil
}
