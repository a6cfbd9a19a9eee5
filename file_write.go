package h5ref

import (
	"errors"
	"fmt"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/utils"
	"github.com/scigolib/h5ref/internal/writer"
)

// CreateMode specifies how to create a new HDF5 file.
type CreateMode int

const (
	// CreateTruncate creates a new file, overwriting if it exists.
	CreateTruncate CreateMode = iota

	// CreateExclusive creates a new file, failing if it already exists.
	CreateExclusive
)

// Defaults for FileWriteConfig.
const (
	DefaultRootGroupCapacity  = 1024
	DefaultHeapCollectionSize = core.GlobalHeapMinSize
)

// WriteOption is a functional option for configuring file creation.
type WriteOption func(*FileWriteConfig)

// FileWriteConfig holds configuration for file creation.
type FileWriteConfig struct {
	// RootGroupCapacity is the message space reserved in the root group
	// header. Each link to a dataset named n uses 4+2+1+len(n)+8 bytes.
	RootGroupCapacity uint64
	// HeapCollectionSize is the size of each global heap collection that
	// holds region selections. Values below 4096 are raised to 4096.
	HeapCollectionSize uint64
}

// WithRootGroupCapacity reserves bytes of message space in the root group.
//
// Example:
//
//	fw, err := h5ref.CreateForWrite("many.h5", h5ref.CreateTruncate,
//	    h5ref.WithRootGroupCapacity(8192))
func WithRootGroupCapacity(bytes uint64) WriteOption {
	return func(cfg *FileWriteConfig) {
		cfg.RootGroupCapacity = bytes
	}
}

// WithHeapCollectionSize sets the size of new global heap collections.
func WithHeapCollectionSize(bytes uint64) WriteOption {
	return func(cfg *FileWriteConfig) {
		cfg.HeapCollectionSize = bytes
	}
}

// FileWriter represents an HDF5 file opened for writing.
type FileWriter struct {
	id       int64
	filename string
	writer   *writer.FileWriter
	sb       *core.Superblock
	root     *rootGroup
	heap     *globalHeapWriter
	datasets map[uint64]*datasetInfo
	closed   bool
}

// datasetInfo is what references need to know about a written dataset.
type datasetInfo struct {
	name    string
	address uint64
	kind    core.ReferenceKind
	dims    []uint64
}

// CreateForWrite creates a new HDF5 file and keeps it open for writing.
//
// The file starts with a version 2 superblock followed by an empty root
// group. The superblock is written again by Close with the final
// end-of-file address.
//
// Example:
//
//	fw, err := h5ref.CreateForWrite("refs.h5", h5ref.CreateTruncate)
//	if err != nil {
//	    return err
//	}
//	defer fw.Close()
func CreateForWrite(filename string, mode CreateMode, opts ...WriteOption) (*FileWriter, error) {
	cfg := &FileWriteConfig{
		RootGroupCapacity:  DefaultRootGroupCapacity,
		HeapCollectionSize: DefaultHeapCollectionSize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	fw, err := createFileWriter(filename, mode, cfg)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("create file %q", filename), err)
	}
	return fw, nil
}

func createFileWriter(filename string, mode CreateMode, cfg *FileWriteConfig) (*FileWriter, error) {
	var writerMode writer.CreateMode
	switch mode {
	case CreateTruncate:
		writerMode = writer.ModeTruncate
	case CreateExclusive:
		writerMode = writer.ModeExclusive
	default:
		return nil, fmt.Errorf("invalid create mode: %d", mode)
	}

	w, err := writer.NewFileWriter(filename, writerMode, core.SuperblockSize)
	if err != nil {
		return nil, err
	}

	cleanupOnError := true
	defer func() {
		if cleanupOnError {
			_ = w.Close()
		}
	}()

	root, err := newRootGroup(w, cfg.RootGroupCapacity)
	if err != nil {
		return nil, err
	}

	sb := core.NewSuperblock(root.address)
	if err := sb.WriteTo(w, w.EndOfFile()); err != nil {
		return nil, err
	}

	cleanupOnError = false
	return &FileWriter{
		id:       nextID(),
		filename: filename,
		writer:   w,
		sb:       sb,
		root:     root,
		heap:     newGlobalHeapWriter(w, cfg.HeapCollectionSize),
		datasets: make(map[uint64]*datasetInfo),
	}, nil
}

// ID returns the handle ID.
func (fw *FileWriter) ID() int64 { return fw.id }

// Filename returns the path the file was created at.
func (fw *FileWriter) Filename() string { return fw.filename }

// Close flushes pending heap collections, writes the superblock with the
// final end-of-file address and closes the file. Closing twice is a no-op.
func (fw *FileWriter) Close() error {
	if fw.closed {
		return nil
	}
	fw.closed = true

	err := fw.finish()
	if cerr := fw.writer.Close(); cerr != nil {
		err = errors.Join(err, fmt.Errorf("close file: %w", cerr))
	}
	return utils.WrapError(fmt.Sprintf("close file %q", fw.filename), err)
}

func (fw *FileWriter) finish() error {
	if err := fw.heap.flush(); err != nil {
		return err
	}
	if err := fw.sb.WriteTo(fw.writer, fw.writer.EndOfFile()); err != nil {
		return err
	}
	if err := fw.writer.Flush(); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (fw *FileWriter) checkOpen() error {
	if fw.closed {
		return ErrClosed
	}
	return nil
}
