package heap

import (
	"encoding/hex"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"

	"github.com/zeebo/blake3"
)

// Digest returns the BLAKE3-256 hash of a page's serialized bytes.
func Digest(p page.Page) [32]byte {
	return blake3.Sum256(p.GetPageData())
}

// DigestHex is Digest rendered as lowercase hex.
func DigestHex(p page.Page) string {
	d := Digest(p)
	return hex.EncodeToString(d[:])
}

// PageSummary describes one on-disk page for inspection tools.
type PageSummary struct {
	PageNo    primitives.PageNumber
	NumSlots  int
	UsedSlots int
	Digest    string
}

// Inspect reads every page of hf directly from disk, bypassing the buffer
// pool and its locks, and summarizes it. It is meant for offline debugging.
func Inspect(hf *HeapFile) ([]PageSummary, error) {
	numPages, err := hf.NumPages()
	if err != nil {
		return nil, err
	}

	summaries := make([]PageSummary, 0, numPages)
	for pageNo := primitives.PageNumber(0); pageNo < numPages; pageNo++ {
		hp, err := hf.readHeapPage(primitives.NewPageID(hf.GetID(), pageNo))
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, PageSummary{
			PageNo:    pageNo,
			NumSlots:  hp.NumSlots(),
			UsedSlots: hp.NumSlots() - hp.GetNumEmptySlots(),
			Digest:    DigestHex(hp),
		})
	}
	return summaries, nil
}

// ReadHeapPage is ReadPage returning the concrete page type, for tools
// that render slot-level detail.
func (hf *HeapFile) ReadHeapPage(pid primitives.PageID) (*HeapPage, error) {
	return hf.readHeapPage(pid)
}
