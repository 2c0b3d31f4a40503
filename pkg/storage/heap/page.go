package heap

import (
	"bytes"
	"fmt"
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"sync"
)

// HeapPage is one page of a heap file.
//
// Page layout:
//
//	[header bitmap: ceil(numSlots/8) bytes][slot 0][slot 1]...[slot numSlots-1][zero padding]
//
// Every slot is exactly one tuple wide. Bit i of header byte i/8, counting
// from the least significant bit, is set when slot i holds a tuple.
type HeapPage struct {
	pageID    primitives.PageID
	tupleDesc *tuple.TupleDescription
	header    []byte
	tuples    []*tuple.Tuple
	numSlots  int
	dirtier   *primitives.TransactionID
	mutex     sync.RWMutex
}

// NumSlotsFor returns how many tuples of td fit on one page: each tuple
// costs its width in bytes plus one header bit.
func NumSlotsFor(td *tuple.TupleDescription) int {
	tupleBits := int(td.GetSize())*8 + 1
	return (page.Size() * 8) / tupleBits
}

// HeaderSizeFor returns the bitmap size in bytes for numSlots slots.
func HeaderSizeFor(numSlots int) int {
	return (numSlots + 7) / 8
}

// NewEmptyHeapPage creates a page with every slot free.
func NewEmptyHeapPage(pid primitives.PageID, td *tuple.TupleDescription) (*HeapPage, error) {
	return NewHeapPage(pid, make([]byte, page.Size()), td)
}

// NewHeapPage decodes a page from its on-disk bytes.
func NewHeapPage(pid primitives.PageID, data []byte, td *tuple.TupleDescription) (*HeapPage, error) {
	if len(data) != page.Size() {
		return nil, fmt.Errorf("invalid page data size: expected %d, got %d", page.Size(), len(data))
	}

	numSlots := NumSlotsFor(td)
	hp := &HeapPage{
		pageID:    pid,
		tupleDesc: td,
		numSlots:  numSlots,
		header:    make([]byte, HeaderSizeFor(numSlots)),
		tuples:    make([]*tuple.Tuple, numSlots),
	}

	if err := hp.parsePageData(data); err != nil {
		return nil, err
	}
	return hp, nil
}

func (hp *HeapPage) parsePageData(data []byte) error {
	copy(hp.header, data[:len(hp.header)])

	tupleSize := int(hp.tupleDesc.GetSize())
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			continue
		}
		offset := len(hp.header) + i*tupleSize
		t, err := tuple.Parse(bytes.NewReader(data[offset:offset+tupleSize]), hp.tupleDesc)
		if err != nil {
			return fmt.Errorf("failed to parse tuple in slot %d of %s: %w", i, hp.pageID, err)
		}
		t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(i))
		hp.tuples[i] = t
	}
	return nil
}

func (hp *HeapPage) GetID() primitives.PageID {
	return hp.pageID
}

// IsDirty returns the transaction that last modified this page, or nil.
func (hp *HeapPage) IsDirty() *primitives.TransactionID {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.dirtier
}

func (hp *HeapPage) MarkDirty(dirty bool, tid *primitives.TransactionID) {
	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	if dirty {
		hp.dirtier = tid
	} else {
		hp.dirtier = nil
	}
}

// GetPageData serializes the page. Free slots are written as zeros, so
// decoding the result yields an identical page. InsertTuple only admits
// complete tuples, so serialization cannot fail here; WritePage goes
// through serialize and reports any failure instead.
func (hp *HeapPage) GetPageData() []byte {
	data, _ := hp.serialize()
	return data
}

func (hp *HeapPage) serialize() ([]byte, error) {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	buf := bytes.NewBuffer(make([]byte, 0, page.Size()))
	buf.Write(hp.header)

	var firstErr error
	tupleSize := int(hp.tupleDesc.GetSize())
	empty := make([]byte, tupleSize)
	for i := 0; i < hp.numSlots; i++ {
		if t := hp.tuples[i]; t != nil && hp.isSlotUsed(i) {
			start := buf.Len()
			if err := t.Serialize(buf); err != nil {
				buf.Truncate(start)
				buf.Write(empty)
				if firstErr == nil {
					firstErr = fmt.Errorf("slot %d of %s: %w", i, hp.pageID, err)
				}
			}
			continue
		}
		buf.Write(empty)
	}

	data := buf.Bytes()
	if len(data) < page.Size() {
		data = append(data, make([]byte, page.Size()-len(data))...)
	}
	return data, firstErr
}

// InsertTuple places t in the lowest-numbered free slot and sets its RecordID.
func (hp *HeapPage) InsertTuple(t *tuple.Tuple) error {
	if !hp.tupleDesc.Equals(t.TupleDesc) {
		return dberror.Newf(dberror.ErrSchemaMismatch, "InsertTuple", "HeapPage",
			"expected %s, got %s", hp.tupleDesc, t.TupleDesc)
	}
	if err := t.Complete(); err != nil {
		return dberror.Newf(dberror.ErrSchemaMismatch, "InsertTuple", "HeapPage", "%v", err)
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	slot := hp.findFirstEmptySlot()
	if slot < 0 {
		return fmt.Errorf("%s is full", hp.pageID)
	}

	hp.setSlot(slot, true)
	hp.tuples[slot] = t
	t.RecordID = tuple.NewRecordID(hp.pageID, primitives.SlotID(slot))
	return nil
}

// DeleteTuple frees the slot named by t.RecordID. The slot is not compacted.
func (hp *HeapPage) DeleteTuple(t *tuple.Tuple) error {
	if t.RecordID == nil {
		return fmt.Errorf("tuple has no record ID")
	}
	if t.RecordID.PageID != hp.pageID {
		return fmt.Errorf("tuple %s is not on %s", t.RecordID, hp.pageID)
	}

	hp.mutex.Lock()
	defer hp.mutex.Unlock()

	slot := int(t.RecordID.Slot)
	if slot >= hp.numSlots || !hp.isSlotUsed(slot) {
		return fmt.Errorf("slot %d of %s is already empty", slot, hp.pageID)
	}

	hp.setSlot(slot, false)
	hp.tuples[slot] = nil
	return nil
}

// GetNumEmptySlots returns the count of free slots.
func (hp *HeapPage) GetNumEmptySlots() int {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	count := 0
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			count++
		}
	}
	return count
}

func (hp *HeapPage) NumSlots() int {
	return hp.numSlots
}

// IsSlotUsed reports whether slot i holds a tuple.
func (hp *HeapPage) IsSlotUsed(i int) bool {
	if i < 0 || i >= hp.numSlots {
		return false
	}
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.isSlotUsed(i)
}

// GetTuples returns the stored tuples in slot order.
func (hp *HeapPage) GetTuples() []*tuple.Tuple {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()

	result := make([]*tuple.Tuple, 0, hp.numSlots)
	for _, t := range hp.tuples {
		if t != nil {
			result = append(result, t)
		}
	}
	return result
}

// GetTupleAt returns the tuple in slot i, or nil if the slot is free.
func (hp *HeapPage) GetTupleAt(i int) (*tuple.Tuple, error) {
	if i < 0 || i >= hp.numSlots {
		return nil, fmt.Errorf("slot %d out of range [0, %d)", i, hp.numSlots)
	}
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return hp.tuples[i], nil
}

// Header returns a copy of the occupancy bitmap.
func (hp *HeapPage) Header() []byte {
	hp.mutex.RLock()
	defer hp.mutex.RUnlock()
	return append([]byte(nil), hp.header...)
}

func (hp *HeapPage) GetTupleDesc() *tuple.TupleDescription {
	return hp.tupleDesc
}

func (hp *HeapPage) isSlotUsed(i int) bool {
	return hp.header[i/8]&(1<<(uint(i)%8)) != 0
}

func (hp *HeapPage) setSlot(i int, used bool) {
	if used {
		hp.header[i/8] |= 1 << (uint(i) % 8)
	} else {
		hp.header[i/8] &^= 1 << (uint(i) % 8)
	}
}

func (hp *HeapPage) findFirstEmptySlot() int {
	for i := 0; i < hp.numSlots; i++ {
		if !hp.isSlotUsed(i) {
			return i
		}
	}
	return -1
}
