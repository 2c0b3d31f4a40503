package primitives

import (
	"fmt"
	"sync/atomic"
)

var transactionCounter atomic.Int64

// TransactionID is the token identifying one unit of work. TransactionIDs are
// compared by pointer identity in lock and page bookkeeping; the numeric id is
// only for display.
type TransactionID struct {
	id int64
}

// NewTransactionID allocates a fresh, process-unique transaction id.
func NewTransactionID() *TransactionID {
	return &TransactionID{id: transactionCounter.Add(1)}
}

// ID returns the numeric value of the transaction id.
func (tid *TransactionID) ID() int64 {
	return tid.id
}

func (tid *TransactionID) String() string {
	if tid == nil {
		return "TID-<nil>"
	}
	return fmt.Sprintf("TID-%d", tid.id)
}

// Equals reports whether both ids refer to the same transaction.
func (tid *TransactionID) Equals(other *TransactionID) bool {
	if tid == nil || other == nil {
		return tid == other
	}
	return tid.id == other.id
}
