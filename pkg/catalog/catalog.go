// Package catalog maps table names and ids to their heap files. A Catalog
// is an owned object: open one per data directory, hand it to the buffer
// pool and operators, and close it on shutdown.
package catalog

import (
	"fmt"
	"heapstore/pkg/dberror"
	"heapstore/pkg/logging"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/heap"
	"heapstore/pkg/storage/page"
	"heapstore/pkg/tuple"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// TableFileExt is appended to a table name to form its file name.
const TableFileExt = ".dat"

// tableInfo holds metadata about a table in the catalog
type tableInfo struct {
	name       string
	file       page.DbFile
	primaryKey string
}

// Catalog keeps bidirectional name/id mappings for every table.
// It is safe for concurrent use.
type Catalog struct {
	dataDir     string
	nameToTable map[string]*tableInfo
	idToTable   map[primitives.TableID]*tableInfo
	mutex       sync.RWMutex
}

// Open creates a catalog whose tables live in dataDir, creating the
// directory if needed.
func Open(dataDir string) (*Catalog, error) {
	abs, err := filepath.Abs(dataDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data dir %q: %w", dataDir, err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data dir %q: %w", abs, err)
	}

	return &Catalog{
		dataDir:     abs,
		nameToTable: make(map[string]*tableInfo),
		idToTable:   make(map[primitives.TableID]*tableInfo),
	}, nil
}

func (c *Catalog) DataDir() string {
	return c.dataDir
}

// TablePath returns the file that backs the table called name.
func (c *Catalog) TablePath(name string) primitives.Filepath {
	return primitives.Filepath(filepath.Join(c.dataDir, name+TableFileExt))
}

// AddTable registers file under name. A table already registered with the
// same name or id is replaced.
func (c *Catalog) AddTable(file page.DbFile, name, primaryKey string) error {
	if file == nil {
		return fmt.Errorf("file cannot be nil")
	}
	if name == "" {
		return fmt.Errorf("table name cannot be empty")
	}
	if primaryKey != "" {
		if _, err := file.GetTupleDesc().FindFieldIndex(primaryKey); err != nil {
			return dberror.Newf(dberror.ErrSchemaMismatch, "AddTable", "Catalog",
				"primary key %q is not a column of %s", primaryKey, name)
		}
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()

	if old, ok := c.nameToTable[name]; ok {
		delete(c.idToTable, old.file.GetID())
	}
	if old, ok := c.idToTable[file.GetID()]; ok {
		delete(c.nameToTable, old.name)
	}

	info := &tableInfo{name: name, file: file, primaryKey: primaryKey}
	c.nameToTable[name] = info
	c.idToTable[file.GetID()] = info

	logging.WithTable(name).Debug("registered table", "table_id", uint64(file.GetID()))
	return nil
}

// CreateTable opens (creating if absent) the heap file for name in the data
// directory and registers it.
func (c *Catalog) CreateTable(name string, td *tuple.TupleDescription, primaryKey string) (page.DbFile, error) {
	hf, err := heap.NewHeapFile(c.TablePath(name), td)
	if err != nil {
		return nil, err
	}
	if err := c.AddTable(hf, name, primaryKey); err != nil {
		hf.Close()
		return nil, err
	}
	return hf, nil
}

func (c *Catalog) lookupID(tableID primitives.TableID, op string) (*tableInfo, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, ok := c.idToTable[tableID]
	if !ok {
		return nil, dberror.Newf(dberror.ErrTableNotFound, op, "Catalog", "no table with id %d", uint64(tableID))
	}
	return info, nil
}

func (c *Catalog) GetDbFile(tableID primitives.TableID) (page.DbFile, error) {
	info, err := c.lookupID(tableID, "GetDbFile")
	if err != nil {
		return nil, err
	}
	return info.file, nil
}

func (c *Catalog) GetTupleDesc(tableID primitives.TableID) (*tuple.TupleDescription, error) {
	info, err := c.lookupID(tableID, "GetTupleDesc")
	if err != nil {
		return nil, err
	}
	return info.file.GetTupleDesc(), nil
}

func (c *Catalog) GetTableName(tableID primitives.TableID) (string, error) {
	info, err := c.lookupID(tableID, "GetTableName")
	if err != nil {
		return "", err
	}
	return info.name, nil
}

// GetPrimaryKey returns the primary key column name, or "" if none was declared.
func (c *Catalog) GetPrimaryKey(tableID primitives.TableID) (string, error) {
	info, err := c.lookupID(tableID, "GetPrimaryKey")
	if err != nil {
		return "", err
	}
	return info.primaryKey, nil
}

func (c *Catalog) GetTableID(name string) (primitives.TableID, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	info, ok := c.nameToTable[name]
	if !ok {
		return primitives.InvalidTableID, dberror.Newf(dberror.ErrTableNotFound, "GetTableID", "Catalog",
			"no table named %q", name)
	}
	return info.file.GetID(), nil
}

// TableNames returns the registered table names in sorted order.
func (c *Catalog) TableNames() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return slices.Sorted(maps.Keys(c.nameToTable))
}

// Close closes every table file and empties the catalog.
func (c *Catalog) Close() error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	var firstErr error
	for name, info := range c.nameToTable {
		if err := info.file.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close table %s: %w", name, err)
		}
	}
	clear(c.nameToTable)
	clear(c.idToTable)
	return firstErr
}
