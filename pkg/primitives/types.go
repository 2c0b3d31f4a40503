package primitives

import "fmt"

// TableID identifies a table. It is derived from the FNV-1a hash of the
// table's backing file path, so it is stable across restarts as long as
// the path does not change.
type TableID uint64

// PageNumber is the zero-based position of a page within its file.
type PageNumber uint64

// SlotID is a tuple slot number within a page.
type SlotID uint32

// ColumnID identifies a column within a tuple description.
type ColumnID int

// HashCode is a hash value computed for fast comparisons or lookups.
type HashCode uint64

// InvalidTableID marks an unset table id.
const InvalidTableID TableID = 0

// String returns a string representation of the TableID.
func (t TableID) String() string {
	return fmt.Sprintf("TableID(%d)", uint64(t))
}

// IsValid reports whether t is a non-zero identifier.
func (t TableID) IsValid() bool {
	return t != InvalidTableID
}
