// Package testing provides test utilities for the h5ref packages.
package testing

import (
	"errors"
	"io"
)

// MemFile is an in-memory io.ReaderAt and io.WriterAt. Writes past the
// end grow the file; reads past the end return io.EOF.
type MemFile struct {
	data []byte
}

// NewMemFile returns a MemFile holding data.
func NewMemFile(data []byte) *MemFile {
	return &MemFile{data: data}
}

// Bytes returns the current file contents.
func (m *MemFile) Bytes() []byte {
	return m.data
}

func (m *MemFile) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if end := int(off) + len(p); end > len(m.data) {
		grown := make([]byte, end)
		copy(grown, m.data)
		m.data = grown
	}
	copy(m.data[off:], p)
	return len(p), nil
}

func (m *MemFile) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, errors.New("negative offset")
	}
	if off >= int64(len(m.data)) {
		return 0, io.EOF
	}
	n := copy(p, m.data[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}
