package page

import (
	"errors"
	"fmt"
	"heapstore/pkg/dberror"
	"heapstore/pkg/primitives"
	"io"
	"os"
	"sync"
)

// BaseFile provides the raw page I/O shared by every table file type:
// reading and writing whole pages at page-aligned offsets and reporting
// the page count. All methods are safe for concurrent use.
type BaseFile struct {
	file     *os.File
	tableID  primitives.TableID
	mutex    sync.RWMutex
	filePath primitives.Filepath
}

// NewBaseFile opens (creating if needed) the file at filePath. The table id
// is the hash of the file's absolute path.
func NewBaseFile(filePath primitives.Filepath) (*BaseFile, error) {
	if filePath.IsEmpty() {
		return nil, fmt.Errorf("filePath cannot be empty")
	}

	tableID, err := filePath.AbsHash()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", filePath, err)
	}

	file, err := openFile(filePath)
	if err != nil {
		return nil, err
	}

	return &BaseFile{
		file:     file,
		tableID:  tableID,
		filePath: filePath,
	}, nil
}

func (bf *BaseFile) GetID() primitives.TableID {
	return bf.tableID
}

// FilePath returns the path this file was opened with.
func (bf *BaseFile) FilePath() primitives.Filepath {
	return bf.filePath
}

// Length returns the current file length in bytes.
func (bf *BaseFile) Length() (int64, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()
	return bf.lengthLocked()
}

func (bf *BaseFile) lengthLocked() (int64, error) {
	if bf.file == nil {
		return 0, fmt.Errorf("file is closed")
	}
	fileInfo, err := bf.file.Stat()
	if err != nil {
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	return fileInfo.Size(), nil
}

// NumPages returns floor(fileLength / pageSize). A trailing partial page is
// not counted.
func (bf *BaseFile) NumPages() (primitives.PageNumber, error) {
	length, err := bf.Length()
	if err != nil {
		return 0, err
	}
	return primitives.PageNumber(length / int64(Size())), nil
}

// ReadPageData reads one page worth of bytes at pageNo. Offsets at or past
// the end of the file are ErrInvalidPageReference. A short trailing page is
// zero padded.
func (bf *BaseFile) ReadPageData(pageNo primitives.PageNumber) ([]byte, error) {
	bf.mutex.RLock()
	defer bf.mutex.RUnlock()

	length, err := bf.lengthLocked()
	if err != nil {
		return nil, err
	}

	size := Size()
	offset := int64(pageNo) * int64(size)
	if offset >= length {
		return nil, dberror.Newf(dberror.ErrInvalidPageReference, "ReadPage", "BaseFile",
			"page %d at offset %d is beyond end of %s (%d bytes)", pageNo, offset, bf.filePath, length)
	}

	pageData := make([]byte, size)
	if _, err := bf.file.ReadAt(pageData, offset); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read page %d: %w", pageNo, err)
	}
	return pageData, nil
}

// WritePageData writes exactly one page at pageNo and syncs the file.
// Writing past the end extends the file.
func (bf *BaseFile) WritePageData(pageNo primitives.PageNumber, pageData []byte) error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return fmt.Errorf("file is closed")
	}

	size := Size()
	if len(pageData) != size {
		return fmt.Errorf("invalid page data size: expected %d, got %d", size, len(pageData))
	}

	offset := int64(pageNo) * int64(size)
	if _, err := bf.file.WriteAt(pageData, offset); err != nil {
		return fmt.Errorf("failed to write page data: %w", err)
	}

	if err := bf.file.Sync(); err != nil {
		return fmt.Errorf("failed to sync file: %w", err)
	}
	return nil
}

// Close closes the underlying file handle. Closing twice is a no-op.
func (bf *BaseFile) Close() error {
	bf.mutex.Lock()
	defer bf.mutex.Unlock()

	if bf.file == nil {
		return nil
	}
	err := bf.file.Close()
	bf.file = nil
	return err
}

func openFile(filename primitives.Filepath) (*os.File, error) {
	if err := filename.MkdirAll(0o750); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", filename, err)
	}
	file, err := os.OpenFile(string(filename), os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", filename, err)
	}
	return file, nil
}
