// Package writer provides the low-level file access used when building
// HDF5 files: an os.File opened for read/write plus an end-of-file
// space allocator.
package writer

import (
	"errors"
	"fmt"
	"io"
	"os"
)

// ErrClosed is returned by every operation on a closed FileWriter.
var ErrClosed = errors.New("writer is closed")

// CreateMode specifies the file creation behavior.
type CreateMode int

const (
	// ModeTruncate creates a new file, truncating if it exists.
	ModeTruncate CreateMode = iota

	// ModeExclusive creates a new file, fails if it exists.
	ModeExclusive
)

// FileWriter couples an open file with the allocator that hands out its
// address space. Not safe for concurrent use.
type FileWriter struct {
	file      *os.File
	allocator *Allocator
}

// NewFileWriter creates filename and returns a writer whose first
// allocation lands at reserved (the bytes before it belong to the
// superblock, which is written at a fixed address).
func NewFileWriter(filename string, mode CreateMode, reserved uint64) (*FileWriter, error) {
	var flags int
	switch mode {
	case ModeTruncate:
		flags = os.O_RDWR | os.O_CREATE | os.O_TRUNC
	case ModeExclusive:
		flags = os.O_RDWR | os.O_CREATE | os.O_EXCL
	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}

	f, err := os.OpenFile(filename, flags, 0o666)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}

	return &FileWriter{
		file:      f,
		allocator: NewAllocator(reserved),
	}, nil
}

// Allocate reserves size bytes at the end of the file and returns their address.
func (w *FileWriter) Allocate(size uint64) (uint64, error) {
	if w.file == nil {
		return 0, ErrClosed
	}
	return w.allocator.Allocate(size)
}

// WriteAt implements io.WriterAt. Short writes are reported as errors.
func (w *FileWriter) WriteAt(data []byte, offset int64) (int, error) {
	if w.file == nil {
		return 0, ErrClosed
	}
	if len(data) == 0 {
		return 0, nil
	}

	n, err := w.file.WriteAt(data, offset)
	if err != nil {
		return n, fmt.Errorf("write at address %d failed: %w", offset, err)
	}
	if n != len(data) {
		return n, fmt.Errorf("incomplete write at address %d: wrote %d of %d bytes", offset, n, len(data))
	}
	return n, nil
}

// WriteAtAddress writes data at a file address.
func (w *FileWriter) WriteAtAddress(data []byte, addr uint64) error {
	_, err := w.WriteAt(data, int64(addr)) //nolint:gosec // G115: addresses come from the allocator
	return err
}

// ReadAt implements io.ReaderAt so freshly written metadata can be read back.
func (w *FileWriter) ReadAt(buf []byte, offset int64) (int, error) {
	if w.file == nil {
		return 0, ErrClosed
	}
	return w.file.ReadAt(buf, offset)
}

// EndOfFile returns the address where the next allocation would occur.
func (w *FileWriter) EndOfFile() uint64 {
	return w.allocator.EndOfFile()
}

// Allocator exposes the space allocator for tests and diagnostics.
func (w *FileWriter) Allocator() *Allocator {
	return w.allocator
}

// Flush commits written data to stable storage.
func (w *FileWriter) Flush() error {
	if w.file == nil {
		return ErrClosed
	}
	return w.file.Sync()
}

// Close closes the underlying file. It does not flush; a second call is a no-op.
func (w *FileWriter) Close() error {
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}

var (
	_ io.ReaderAt = (*FileWriter)(nil)
	_ io.WriterAt = (*FileWriter)(nil)
)
