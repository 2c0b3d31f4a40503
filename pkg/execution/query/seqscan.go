// Package query holds the single-table operators: scans, filters and the
// insert/delete sinks.
package query

import (
	"fmt"
	"heapstore/pkg/iterator"
	"heapstore/pkg/memory"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
)

// SequentialScan implements a sequential scan operator that iterates through all tuples in a table.
// Pages are read in file order through the buffer pool under shared locks
// held by the scanning transaction.
type SequentialScan struct {
	base      *iterator.BaseIterator
	tid       *primitives.TransactionID
	tableID   primitives.TableID
	tupleDesc *tuple.TupleDescription
	tables    memory.TableSource
	pages     page.PageAccessor
	fileIter  iterator.DbFileIterator
}

// NewSeqScan creates a scan of tableID on behalf of tid.
func NewSeqScan(tid *primitives.TransactionID, tableID primitives.TableID, tables memory.TableSource, pages page.PageAccessor) (*SequentialScan, error) {
	if tables == nil {
		return nil, fmt.Errorf("table source cannot be nil")
	}
	if pages == nil {
		return nil, fmt.Errorf("page accessor cannot be nil")
	}

	file, err := tables.GetDbFile(tableID)
	if err != nil {
		return nil, err
	}

	ss := &SequentialScan{
		tid:       tid,
		tableID:   tableID,
		tupleDesc: file.GetTupleDesc(),
		tables:    tables,
		pages:     pages,
	}
	ss.base = iterator.NewBaseIterator(ss.readNext)
	return ss, nil
}

func (ss *SequentialScan) readNext() (*tuple.Tuple, error) {
	hasNext, err := ss.fileIter.HasNext()
	if err != nil || !hasNext {
		return nil, err
	}
	return ss.fileIter.Next()
}

// Open creates and opens the file iterator. The page count is fixed here;
// pages appended later are not visited.
func (ss *SequentialScan) Open() error {
	file, err := ss.tables.GetDbFile(ss.tableID)
	if err != nil {
		return fmt.Errorf("failed to get db file for table %d: %w", uint64(ss.tableID), err)
	}

	ss.fileIter = file.Iterator(ss.tid, ss.pages)
	if err := ss.fileIter.Open(); err != nil {
		return fmt.Errorf("failed to open file iterator: %w", err)
	}

	ss.base.MarkOpened()
	return nil
}

func (ss *SequentialScan) Close() error {
	if ss.fileIter != nil {
		ss.fileIter.Close()
		ss.fileIter = nil
	}
	return ss.base.Close()
}

func (ss *SequentialScan) Rewind() error {
	if ss.fileIter == nil {
		return fmt.Errorf("iterator not opened")
	}
	if err := ss.fileIter.Rewind(); err != nil {
		return err
	}
	return ss.base.Rewind()
}

func (ss *SequentialScan) GetTupleDesc() *tuple.TupleDescription {
	return ss.tupleDesc
}

func (ss *SequentialScan) HasNext() (bool, error) {
	return ss.base.HasNext()
}

func (ss *SequentialScan) Next() (*tuple.Tuple, error) {
	return ss.base.Next()
}
