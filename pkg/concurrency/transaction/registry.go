package transaction

import (
	"heapstore/pkg/primitives"
	"sync"
)

// TransactionRegistry maps live transaction ids to their contexts. A
// context is created on the transaction's first page access and removed
// when the transaction completes.
type TransactionRegistry struct {
	contexts map[*primitives.TransactionID]*TransactionContext
	mutex    sync.RWMutex
}

func NewTransactionRegistry() *TransactionRegistry {
	return &TransactionRegistry{
		contexts: make(map[*primitives.TransactionID]*TransactionContext),
	}
}

// Get returns the context for tid, or nil when tid has not touched a page.
func (tr *TransactionRegistry) Get(tid *primitives.TransactionID) *TransactionContext {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()
	return tr.contexts[tid]
}

func (tr *TransactionRegistry) GetOrCreate(tid *primitives.TransactionID) *TransactionContext {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	ctx, exists := tr.contexts[tid]
	if !exists {
		ctx = NewTransactionContext(tid)
		tr.contexts[tid] = ctx
	}
	return ctx
}

// Remove unregisters tid and returns its context, if it had one.
func (tr *TransactionRegistry) Remove(tid *primitives.TransactionID) *TransactionContext {
	tr.mutex.Lock()
	defer tr.mutex.Unlock()

	ctx := tr.contexts[tid]
	delete(tr.contexts, tid)
	return ctx
}

// GetActive returns all active transaction contexts
func (tr *TransactionRegistry) GetActive() []*TransactionContext {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()

	active := make([]*TransactionContext, 0, len(tr.contexts))
	for _, ctx := range tr.contexts {
		if ctx.IsActive() {
			active = append(active, ctx)
		}
	}
	return active
}

func (tr *TransactionRegistry) Count() int {
	tr.mutex.RLock()
	defer tr.mutex.RUnlock()
	return len(tr.contexts)
}
