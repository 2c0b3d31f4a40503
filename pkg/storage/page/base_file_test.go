package page

import (
	"bytes"
	"errors"
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"os"
	"path/filepath"
	"testing"
)

func newTestBaseFile(t *testing.T) *BaseFile {
	t.Helper()
	path := primitives.Filepath(filepath.Join(t.TempDir(), "t.dat"))
	bf, err := NewBaseFile(path)
	if err != nil {
		t.Fatalf("NewBaseFile failed: %v", err)
	}
	t.Cleanup(func() { bf.Close() })
	return bf
}

func TestBaseFile_EmptyPath(t *testing.T) {
	if _, err := NewBaseFile(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestBaseFile_WriteReadAndNumPages(t *testing.T) {
	bf := newTestBaseFile(t)

	if n, _ := bf.NumPages(); n != 0 {
		t.Fatalf("expected empty file, got %d pages", n)
	}

	data := bytes.Repeat([]byte{0xAB}, Size())
	if err := bf.WritePageData(1, data); err != nil {
		t.Fatalf("WritePageData failed: %v", err)
	}

	if n, _ := bf.NumPages(); n != 2 {
		t.Errorf("expected 2 pages after writing page 1, got %d", n)
	}

	got, err := bf.ReadPageData(1)
	if err != nil {
		t.Fatalf("ReadPageData failed: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("page contents differ after round trip")
	}

	zero, err := bf.ReadPageData(0)
	if err != nil {
		t.Fatalf("ReadPageData(0) failed: %v", err)
	}
	if !bytes.Equal(zero, make([]byte, Size())) {
		t.Error("expected hole page to read as zeros")
	}
}

func TestBaseFile_ReadBeyondEnd(t *testing.T) {
	bf := newTestBaseFile(t)

	_, err := bf.ReadPageData(0)
	if !errors.Is(err, dberror.ErrInvalidPageReference) {
		t.Errorf("expected ErrInvalidPageReference, got %v", err)
	}
}

func TestBaseFile_PartialTrailingPage(t *testing.T) {
	bf := newTestBaseFile(t)
	if err := os.WriteFile(string(bf.FilePath()), make([]byte, Size()+10), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if n, _ := bf.NumPages(); n != 1 {
		t.Errorf("expected partial page to be ignored, got %d pages", n)
	}
	if _, err := bf.ReadPageData(1); err != nil {
		t.Errorf("partial page below file length should be readable: %v", err)
	}
}

func TestBaseFile_WrongSize(t *testing.T) {
	bf := newTestBaseFile(t)
	if err := bf.WritePageData(0, make([]byte, 10)); err == nil {
		t.Error("expected error for short page data")
	}
}

func TestBaseFile_StableID(t *testing.T) {
	dir := t.TempDir()
	path := primitives.Filepath(filepath.Join(dir, "t.dat"))

	a, err := NewBaseFile(path)
	if err != nil {
		t.Fatalf("NewBaseFile failed: %v", err)
	}
	a.Close()
	b, err := NewBaseFile(path)
	if err != nil {
		t.Fatalf("NewBaseFile failed: %v", err)
	}
	defer b.Close()

	if a.GetID() != b.GetID() {
		t.Error("expected table id to be stable for the same path")
	}
}

func TestSetPageSize(t *testing.T) {
	defer ResetPageSize()

	if err := SetPageSize(0); err == nil {
		t.Error("expected error for zero page size")
	}
	if err := SetPageSize(MaxPageSize + 1); err == nil {
		t.Error("expected error for page size above MaxPageSize")
	}
	if err := SetPageSize(512); err != nil {
		t.Fatalf("SetPageSize failed: %v", err)
	}
	if Size() != 512 {
		t.Errorf("expected 512, got %d", Size())
	}
	ResetPageSize()
	if Size() != DefaultPageSize {
		t.Errorf("expected default size after reset, got %d", Size())
	}
}
