package h5ref

import (
	"errors"
	"fmt"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/writer"
)

// globalHeapWriter places region selections in global heap collections.
// The current collection stays in memory until it fills up or the file
// closes.
type globalHeapWriter struct {
	w              *writer.FileWriter
	current        *core.GlobalHeapCollection
	collectionSize uint64
}

func newGlobalHeapWriter(w *writer.FileWriter, collectionSize uint64) *globalHeapWriter {
	return &globalHeapWriter{
		w:              w,
		collectionSize: max(collectionSize, core.GlobalHeapMinSize),
	}
}

// add stores data as a new heap object and returns its ID.
func (h *globalHeapWriter) add(data []byte) (core.GlobalHeapID, error) {
	if h.current != nil {
		id, err := h.current.Add(data)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, core.ErrHeapFull) {
			return core.GlobalHeapID{}, err
		}
		if err := h.flush(); err != nil {
			return core.GlobalHeapID{}, fmt.Errorf("flush full collection: %w", err)
		}
	}

	if err := h.newCollection(core.HeapObjectSpace(len(data))); err != nil {
		return core.GlobalHeapID{}, err
	}
	return h.current.Add(data)
}

func (h *globalHeapWriter) newCollection(objectSpace uint64) error {
	size := h.collectionSize
	if need := core.GlobalHeapHeaderSize + objectSpace; need > size {
		size = (need + core.GlobalHeapMinSize - 1) / core.GlobalHeapMinSize * core.GlobalHeapMinSize
	}

	addr, err := h.w.Allocate(size)
	if err != nil {
		return fmt.Errorf("allocate heap collection: %w", err)
	}
	h.current = core.NewGlobalHeapCollection(addr, size)
	return nil
}

// flush writes the current collection, if any, and forgets it.
func (h *globalHeapWriter) flush() error {
	if h.current == nil {
		return nil
	}
	if err := h.w.WriteAtAddress(h.current.Encode(), h.current.Address); err != nil {
		return fmt.Errorf("write heap collection at 0x%X: %w", h.current.Address, err)
	}
	h.current = nil
	return nil
}
