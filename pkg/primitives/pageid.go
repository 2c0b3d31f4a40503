package primitives

import (
	"cmp"
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// PageID uniquely identifies a page as (table, page number).
//
// PageID is a comparable value type: two PageIDs built from the same table and
// page number are equal with == and can be used directly as map keys.
type PageID struct {
	TableID TableID
	PageNo  PageNumber
}

// NewPageID creates a page id for the given table and page number.
func NewPageID(tableID TableID, pageNo PageNumber) PageID {
	return PageID{TableID: tableID, PageNo: pageNo}
}

// GetTableID returns the table this page belongs to.
func (p PageID) GetTableID() TableID {
	return p.TableID
}

// PageNumber returns the page number within the table.
func (p PageID) PageNumber() PageNumber {
	return p.PageNo
}

// Serialize encodes the id as 16 little-endian bytes.
func (p PageID) Serialize() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(p.TableID))
	binary.LittleEndian.PutUint64(buf[8:16], uint64(p.PageNo))
	return buf
}

// Equals reports whether two page ids refer to the same page.
func (p PageID) Equals(other PageID) bool {
	return p == other
}

// Compare orders page ids by table, then by page number.
func (p PageID) Compare(other PageID) int {
	if c := cmp.Compare(p.TableID, other.TableID); c != 0 {
		return c
	}
	return cmp.Compare(p.PageNo, other.PageNo)
}

// Less reports whether p sorts before other.
func (p PageID) Less(other PageID) bool {
	return p.Compare(other) < 0
}

// HashCode returns an FNV-1a hash of the serialized id.
func (p PageID) HashCode() HashCode {
	h := fnv.New64a()
	_, _ = h.Write(p.Serialize())
	return HashCode(h.Sum64())
}

func (p PageID) String() string {
	return fmt.Sprintf("PageID(table=%d, page=%d)", uint64(p.TableID), uint64(p.PageNo))
}
