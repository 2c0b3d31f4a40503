// Package execution is the root of heapstore's query operators.
//
// Operators follow the iterator (volcano) model: each implements
// iterator.DbIterator and pulls tuples from its children on demand. Every
// operator that reads or writes pages runs on behalf of one transaction
// and touches pages only through the buffer pool.
//
// # Sub-packages
//
//   - [heapstore/pkg/execution/query]       – sequential scan, filter, insert
//     and delete.
//   - [heapstore/pkg/execution/join]        – nested-loop join over a join
//     predicate.
//   - [heapstore/pkg/execution/aggregation] – MIN, MAX, SUM, AVG and COUNT
//     with optional grouping.
package execution
