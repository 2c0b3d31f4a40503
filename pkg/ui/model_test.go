package ui

import (
	"heapstore/pkg/config"
	"heapstore/pkg/database"
	"heapstore/pkg/primitives"
	"heapstore/pkg/storage/page"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

const schema = `
table "a" {
  column "id" { type = "int" }
}

table "b" {
  column "id"   { type = "int" }
  column "name" { type = "string" }
}
`

func openDB(t *testing.T) *database.Database {
	t.Helper()
	dir := t.TempDir()
	schemaFile := filepath.Join(dir, "schema.hcl")
	if err := os.WriteFile(schemaFile, []byte(schema), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	cfg.DataDir = filepath.Join(dir, "data")
	cfg.SchemaFile = schemaFile
	cfg.PageSize = 256

	db, err := database.Open(cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		db.Close()
		page.ResetPageSize()
	})
	return db
}

// step applies msg and then runs any returned command synchronously,
// feeding its message back in, until no command is left.
func step(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for msg != nil {
		next, cmd := m.Update(msg)
		m = next.(Model)
		msg = nil
		if cmd != nil {
			msg = cmd()
		}
	}
	return m
}

func TestModelBrowsesPages(t *testing.T) {
	db := openDB(t)
	rows := make([][]string, 0, 70)
	for i := range 70 {
		rows = append(rows, []string{strconv.Itoa(i)})
	}
	if _, err := db.Insert("a", rows...); err != nil {
		t.Fatal(err)
	}

	m := NewModel(db, "a")
	m = step(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = step(t, m, m.Init()())

	if m.lastErr != nil {
		t.Fatalf("load failed: %v", m.lastErr)
	}
	if len(m.pages) < 2 {
		t.Fatalf("expected several pages at a 256 byte page size, got %d", len(m.pages))
	}
	if m.page == nil || m.page.GetID().PageNumber() != 0 {
		t.Fatal("expected page 0 to be loaded")
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyRight})
	if m.pageIdx != 1 || m.page.GetID().PageNumber() != 1 {
		t.Errorf("expected page 1, got idx %d", m.pageIdx)
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	m = step(t, m, tea.KeyMsg{Type: tea.KeyLeft})
	if m.pageIdx != 0 {
		t.Errorf("expected to stay on page 0, got %d", m.pageIdx)
	}

	view := m.View()
	if !strings.Contains(view, "page 1/") || !strings.Contains(view, "#") {
		t.Errorf("view is missing page position or bitmap:\n%s", view)
	}
}

func TestModelSwitchesTables(t *testing.T) {
	db := openDB(t)
	if _, err := db.Insert("b", []string{"7", "seven"}); err != nil {
		t.Fatal(err)
	}

	m := NewModel(db, "")
	m = step(t, m, m.Init()())
	if m.currentTable() != "a" || len(m.pages) != 0 {
		t.Fatalf("expected empty table a first, got %s with %d pages", m.currentTable(), len(m.pages))
	}
	if !strings.Contains(m.View(), "no pages") {
		t.Error("expected empty-table notice")
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.currentTable() != "b" || m.page == nil {
		t.Fatalf("expected table b with a loaded page, got %s", m.currentTable())
	}
	if !strings.Contains(renderTuples(m.page), "seven") {
		t.Error("tuple listing is missing the inserted row")
	}

	m = step(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.currentTable() != "a" {
		t.Errorf("expected wrap-around to a, got %s", m.currentTable())
	}
}

func TestStaleMessagesAreIgnored(t *testing.T) {
	db := openDB(t)
	m := NewModel(db, "a")

	next, _ := m.Update(pageLoadedMsg{table: "b", pageIdx: 0})
	if next.(Model).page != nil {
		t.Error("page from another table was applied")
	}
	next, _ = m.Update(tableLoadedMsg{table: "b", err: os.ErrNotExist})
	if next.(Model).lastErr != nil {
		t.Error("error from another table was applied")
	}
}

func TestRenderBitmap(t *testing.T) {
	db := openDB(t)
	if _, err := db.Insert("a", []string{"1"}, []string{"2"}); err != nil {
		t.Fatal(err)
	}
	hf, err := db.HeapFile("a")
	if err != nil {
		t.Fatal(err)
	}
	hp, err := hf.ReadHeapPage(primitives.NewPageID(hf.GetID(), 0))
	if err != nil {
		t.Fatal(err)
	}

	out := renderBitmap(hp)
	if got := strings.Count(out, "#"); got != 2 {
		t.Errorf("expected 2 used slots, got %d in %q", got, out)
	}
	if got := strings.Count(out, "."); got != hp.NumSlots()-2 {
		t.Errorf("expected %d free slots, got %d", hp.NumSlots()-2, got)
	}
}
