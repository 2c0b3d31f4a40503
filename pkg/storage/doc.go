// Package storage is the root of heapstore's disk-based storage layer.
//
// Data is organised into fixed-size pages (4 KB unless reconfigured) that
// are read and written as atomic units.
//
// # Sub-packages
//
//   - [heapstore/pkg/storage/page] – the Page and DbFile contracts, the
//     process-wide page size, and BaseFile, which performs raw page I/O.
//   - [heapstore/pkg/storage/heap] – heap files: unordered tables of
//     fixed-width tuples stored in bitmap-slotted pages.
//
// # Page layout
//
// A heap page begins with an occupancy bitmap, one bit per slot, followed
// by the slots themselves. Every slot is exactly one tuple wide, so a
// RecordID is just a page number and a slot index. Pages are only written
// when the transaction that dirtied them commits.
package storage
