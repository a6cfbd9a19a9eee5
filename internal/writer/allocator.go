package writer

import (
	"fmt"
	"sort"
)

// AllocatedBlock is a contiguous region handed out by the Allocator.
type AllocatedBlock struct {
	Offset uint64
	Size   uint64
}

// Allocator hands out file space at the end of the file. Freed space is
// never reused, so blocks cannot overlap by construction; the block list
// is kept for validation.
type Allocator struct {
	blocks     []AllocatedBlock
	nextOffset uint64
}

// NewAllocator returns an allocator whose first block starts at initialOffset.
func NewAllocator(initialOffset uint64) *Allocator {
	return &Allocator{
		blocks:     make([]AllocatedBlock, 0, 8),
		nextOffset: initialOffset,
	}
}

// Allocate reserves size bytes at the current end of file.
func (a *Allocator) Allocate(size uint64) (uint64, error) {
	if size == 0 {
		return 0, fmt.Errorf("cannot allocate zero bytes")
	}
	if a.nextOffset+size < a.nextOffset {
		return 0, fmt.Errorf("allocation of %d bytes at %d overflows the address space", size, a.nextOffset)
	}

	addr := a.nextOffset
	a.blocks = append(a.blocks, AllocatedBlock{Offset: addr, Size: size})
	a.nextOffset = addr + size
	return addr, nil
}

// IsAllocated reports whether [offset, offset+size) intersects any block.
func (a *Allocator) IsAllocated(offset, size uint64) bool {
	if size == 0 {
		return false
	}
	end := offset + size
	for _, b := range a.blocks {
		if offset < b.Offset+b.Size && b.Offset < end {
			return true
		}
	}
	return false
}

// EndOfFile returns the next allocation address.
func (a *Allocator) EndOfFile() uint64 {
	return a.nextOffset
}

// Blocks returns a copy of all blocks sorted by offset.
func (a *Allocator) Blocks() []AllocatedBlock {
	blocks := make([]AllocatedBlock, len(a.blocks))
	copy(blocks, a.blocks)
	sort.Slice(blocks, func(i, j int) bool {
		return blocks[i].Offset < blocks[j].Offset
	})
	return blocks
}

// ValidateNoOverlaps returns an error if any two blocks overlap.
func (a *Allocator) ValidateNoOverlaps() error {
	blocks := a.Blocks()
	for i := 1; i < len(blocks); i++ {
		prev, cur := blocks[i-1], blocks[i]
		if prev.Offset+prev.Size > cur.Offset {
			return fmt.Errorf("overlap detected: block at %d (size %d) overlaps block at %d",
				prev.Offset, prev.Size, cur.Offset)
		}
	}
	return nil
}
