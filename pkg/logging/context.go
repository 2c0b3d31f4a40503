package logging

import (
	"heapstore/pkg/primitives"
	"log/slog"
)

// WithTx creates a logger carrying the transaction id.
//
// Example:
//
//	log := logging.WithTx(tid)
//	log.Debug("commit", "pages", n)
func WithTx(tid *primitives.TransactionID) *slog.Logger {
	return GetLogger().With("tx_id", tid.String())
}

// WithTable creates a logger with table context.
func WithTable(tableName string) *slog.Logger {
	return GetLogger().With("table", tableName)
}

// WithPage creates a logger with page context.
// Useful for buffer pool and storage operations.
//
// Example:
//
//	log := logging.WithPage(pid)
//	log.Debug("page evicted")
func WithPage(pid primitives.PageID) *slog.Logger {
	return GetLogger().With("table_id", uint64(pid.TableID), "page_no", uint64(pid.PageNo))
}

// WithLock creates a logger with both transaction and page context.
func WithLock(tid *primitives.TransactionID, pid primitives.PageID) *slog.Logger {
	return GetLogger().With("tx_id", tid.String(), "table_id", uint64(pid.TableID), "page_no", uint64(pid.PageNo))
}

func WithComponent(component string) *slog.Logger {
	return GetLogger().With("component", component)
}

// WithError creates a logger with error context.
func WithError(err error) *slog.Logger {
	return GetLogger().With("error", err.Error())
}
