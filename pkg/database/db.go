// Package database ties the configuration, catalog and buffer pool into one
// handle and offers table-level operations on top of the operators.
package database

import (
	"errors"
	"fmt"
	"heapstore/pkg/catalog"
	"heapstore/pkg/concurrency/transaction"
	"heapstore/pkg/config"
	"heapstore/pkg/logging"
	"heapstore/pkg/memory"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"os"
	"sync/atomic"
)

// MaxAttempts bounds how often a transaction is retried after losing a lock race.
const MaxAttempts = 5

// Database represents the main database engine that coordinates all components
type Database struct {
	cfg       *config.Config
	catalog   *catalog.Catalog
	pageStore *memory.PageStore
	stats     DatabaseStats
}

// DatabaseStats tracks transaction outcomes
type DatabaseStats struct {
	QueriesExecuted atomic.Int64
	Commits         atomic.Int64
	Aborts          atomic.Int64
	ErrorCount      atomic.Int64
}

// DatabaseInfo contains database metadata
type DatabaseInfo struct {
	DataDir         string
	Tables          []string
	QueriesExecuted int64
	Commits         int64
	Aborts          int64
	ErrorCount      int64
	Store           memory.StoreStats
}

// Open sets the process page size, opens the catalog in cfg.DataDir and
// loads cfg.SchemaFile when it exists.
func Open(cfg *config.Config) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := page.SetPageSize(cfg.PageSize); err != nil {
		return nil, err
	}

	cat, err := catalog.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	if cfg.SchemaFile != "" {
		if _, err := os.Stat(cfg.SchemaFile); err == nil {
			if _, err := cat.LoadSchema(cfg.SchemaFile); err != nil {
				cat.Close()
				return nil, fmt.Errorf("failed to load schema: %w", err)
			}
		}
	}

	db := &Database{
		cfg:       cfg,
		catalog:   cat,
		pageStore: memory.NewPageStore(cat, cfg.BufferPages, cfg.LockTimeout),
	}

	logging.WithComponent("database").Info("database opened",
		"data_dir", cat.DataDir(),
		"tables", len(cat.TableNames()),
		"buffer_pages", cfg.BufferPages,
		"page_size", cfg.PageSize)
	return db, nil
}

func (db *Database) Catalog() *catalog.Catalog {
	return db.catalog
}

func (db *Database) Store() *memory.PageStore {
	return db.pageStore
}

func (db *Database) Config() *config.Config {
	return db.cfg
}

// Update runs fn in a transaction, committing on success and retrying on
// lock timeouts up to MaxAttempts times.
func (db *Database) Update(fn func(tid *primitives.TransactionID) error) error {
	db.stats.QueriesExecuted.Add(1)

	attempts, err := transaction.Run(db.pageStore, MaxAttempts, fn)
	if err != nil {
		db.stats.Aborts.Add(int64(attempts))
		db.stats.ErrorCount.Add(1)
		return err
	}
	db.stats.Aborts.Add(int64(attempts - 1))
	db.stats.Commits.Add(1)
	return nil
}

func (db *Database) GetInfo() DatabaseInfo {
	return DatabaseInfo{
		DataDir:         db.catalog.DataDir(),
		Tables:          db.catalog.TableNames(),
		QueriesExecuted: db.stats.QueriesExecuted.Load(),
		Commits:         db.stats.Commits.Load(),
		Aborts:          db.stats.Aborts.Load(),
		ErrorCount:      db.stats.ErrorCount.Load(),
		Store:           db.pageStore.Stats(),
	}
}

// Close drops the buffer pool and closes every table file. Committed data
// is already on disk.
func (db *Database) Close() error {
	err := errors.Join(db.pageStore.Close(), db.catalog.Close())
	logging.WithComponent("database").Info("database closed")
	return err
}
