package catalog

import (
	"fmt"
	"heapstore/pkg/tuple"
	"heapstore/pkg/types"
	"os"

	"github.com/hashicorp/hcl"
)

// TableSchema is one table as declared in a schema file:
//
//	table "users" {
//	  column "id"   { type = "int" }
//	  column "name" { type = "string" }
//	  primary_key = "id"
//	}
type TableSchema struct {
	Name       string         `hcl:",key"`
	Columns    []ColumnSchema `hcl:"column"`
	PrimaryKey string         `hcl:"primary_key"`
}

type ColumnSchema struct {
	Name string `hcl:",key"`
	Type string `hcl:"type"`
}

type schemaFile struct {
	Tables []TableSchema `hcl:"table"`
}

// ParseSchema decodes HCL table declarations.
func ParseSchema(src string) ([]TableSchema, error) {
	var sf schemaFile
	if err := hcl.Decode(&sf, src); err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}

	seen := make(map[string]bool, len(sf.Tables))
	for _, ts := range sf.Tables {
		if ts.Name == "" {
			return nil, fmt.Errorf("table without a name")
		}
		if seen[ts.Name] {
			return nil, fmt.Errorf("table %s declared twice", ts.Name)
		}
		seen[ts.Name] = true
		if len(ts.Columns) == 0 {
			return nil, fmt.Errorf("table %s has no columns", ts.Name)
		}
	}
	return sf.Tables, nil
}

// TupleDesc builds the tuple description for the declared columns.
func (ts TableSchema) TupleDesc() (*tuple.TupleDescription, error) {
	fieldTypes := make([]types.Type, len(ts.Columns))
	names := make([]string, len(ts.Columns))

	for i, col := range ts.Columns {
		t, err := types.ParseType(col.Type)
		if err != nil {
			return nil, fmt.Errorf("table %s column %s: %w", ts.Name, col.Name, err)
		}
		fieldTypes[i] = t
		names[i] = col.Name
	}
	return tuple.NewTupleDesc(fieldTypes, names)
}

// LoadSchema creates or opens every table declared in the HCL file at path
// and returns their names in declaration order.
func (c *Catalog) LoadSchema(path string) ([]string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	tables, err := ParseSchema(string(b))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	names := make([]string, 0, len(tables))
	for _, ts := range tables {
		td, err := ts.TupleDesc()
		if err != nil {
			return nil, err
		}
		if _, err := c.CreateTable(ts.Name, td, ts.PrimaryKey); err != nil {
			return nil, fmt.Errorf("table %s: %w", ts.Name, err)
		}
		names = append(names, ts.Name)
	}
	return names, nil
}
