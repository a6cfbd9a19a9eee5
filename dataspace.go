package h5ref

import (
	"fmt"
	"slices"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/utils"
)

// SelectOp combines a hyperslab with the current selection.
type SelectOp int

// Selection operators.
const (
	// SelectSet replaces the current selection.
	SelectSet SelectOp = iota
	// SelectOr adds to the current selection.
	SelectOr
)

// Unlimited marks a maximum dimension without bound.
const Unlimited = core.Unlimited

// maxSelectionBlocks caps the number of blocks a selection may hold.
const maxSelectionBlocks = 1 << 16

// Dataspace describes the shape of a dataset and carries a selection over it.
// New dataspaces select all elements.
type Dataspace struct {
	id      int64
	dims    []uint64
	maxDims []uint64
	sel     Selection
	closed  bool
}

// CreateSimpleDataspace creates a dataspace with the given extent.
// maxDims may be nil for a fixed extent.
//
// Example:
//
//	space, err := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
//	if err != nil {
//	    return err
//	}
//	defer space.Close()
func CreateSimpleDataspace(dims, maxDims []uint64) (*Dataspace, error) {
	if err := validateDimensions(dims); err != nil {
		return nil, utils.WrapError("create simple dataspace", err)
	}
	if maxDims != nil {
		if len(maxDims) != len(dims) {
			return nil, utils.WrapError("create simple dataspace",
				fmt.Errorf("%w: maxDims rank %d, dims rank %d", ErrShapeMismatch, len(maxDims), len(dims)))
		}
		for i := range dims {
			if maxDims[i] != Unlimited && maxDims[i] < dims[i] {
				return nil, utils.WrapError("create simple dataspace",
					fmt.Errorf("%w: maxDims[%d]=%d smaller than dims[%d]=%d", ErrShapeMismatch, i, maxDims[i], i, dims[i]))
			}
		}
	}

	s := &Dataspace{
		id:      nextID(),
		dims:    slices.Clone(dims),
		maxDims: slices.Clone(maxDims),
	}
	s.sel = Selection{Type: SelectionAll, Dims: s.dims}
	return s, nil
}

func validateDimensions(dims []uint64) error {
	if len(dims) == 0 {
		return fmt.Errorf("%w: dimensions cannot be empty", ErrShapeMismatch)
	}
	if len(dims) > core.MaxRank {
		return fmt.Errorf("%w: rank %d exceeds %d", ErrShapeMismatch, len(dims), core.MaxRank)
	}
	for i, d := range dims {
		if d == 0 {
			return fmt.Errorf("%w: dimension %d cannot be 0", ErrShapeMismatch, i)
		}
	}
	if _, err := utils.TotalElements(dims); err != nil {
		return fmt.Errorf("%w: %w", ErrShapeMismatch, err)
	}
	return nil
}

// ID returns the handle ID.
func (s *Dataspace) ID() int64 { return s.id }

// Rank returns the number of dimensions.
func (s *Dataspace) Rank() int { return len(s.dims) }

// Dims returns a copy of the current extent.
func (s *Dataspace) Dims() []uint64 { return slices.Clone(s.dims) }

// MaxDims returns a copy of the maximum extent, or nil.
func (s *Dataspace) MaxDims() []uint64 { return slices.Clone(s.maxDims) }

// NumPoints returns the number of selected elements.
func (s *Dataspace) NumPoints() uint64 { return s.sel.NumPoints() }

// Selection returns a copy of the current selection.
func (s *Dataspace) Selection() *Selection { return s.sel.clone() }

// Bounds returns the inclusive bounding box of the selection.
func (s *Dataspace) Bounds() (start, end []uint64, err error) {
	return s.sel.Bounds()
}

// SelectAll selects every element.
func (s *Dataspace) SelectAll() error {
	if s.closed {
		return utils.WrapError("select all", ErrClosed)
	}
	s.sel = Selection{Type: SelectionAll, Dims: s.dims}
	return nil
}

// SelectNone clears the selection.
func (s *Dataspace) SelectNone() error {
	if s.closed {
		return utils.WrapError("select none", ErrClosed)
	}
	s.sel = Selection{Type: SelectionNone, Dims: s.dims}
	return nil
}

// SelectHyperslab selects count blocks per dimension, each block elements
// wide, starting at start and spaced stride apart. Nil stride or block
// means 1 in every dimension.
//
// Example (first two elements of a 1-D extent):
//
//	err := space.SelectHyperslab(h5ref.SelectSet, []uint64{0}, nil, []uint64{2}, nil)
func (s *Dataspace) SelectHyperslab(op SelectOp, start, stride, count, block []uint64) error {
	if s.closed {
		return utils.WrapError("select hyperslab", ErrClosed)
	}
	rank := len(s.dims)
	if stride == nil {
		stride = ones(rank)
	}
	if block == nil {
		block = ones(rank)
	}
	if err := utils.ValidateHyperslabBounds(start, stride, count, block, s.dims); err != nil {
		return utils.WrapError("select hyperslab", fmt.Errorf("%w: %w", ErrInvalidSelection, err))
	}
	if _, err := utils.CalculateHyperslabElements(count, block); err != nil {
		return utils.WrapError("select hyperslab", fmt.Errorf("%w: %w", ErrInvalidSelection, err))
	}

	blocks, err := hyperslabBlocks(start, stride, count, block)
	if err != nil {
		return utils.WrapError("select hyperslab", err)
	}

	switch op {
	case SelectSet:
		s.sel = Selection{Type: SelectionHyperslab, Dims: s.dims, Blocks: blocks}
	case SelectOr:
		switch s.sel.Type {
		case SelectionAll:
			return nil
		case SelectionNone:
			s.sel = Selection{Type: SelectionHyperslab, Dims: s.dims, Blocks: blocks}
		default:
			merged, err := unionBlocks(s.sel.Blocks, blocks)
			if err != nil {
				return utils.WrapError("select hyperslab", err)
			}
			s.sel.Blocks = merged
		}
	default:
		return utils.WrapError("select hyperslab", fmt.Errorf("%w: unsupported operator %d", ErrInvalidSelection, op))
	}
	return nil
}

// Close releases the dataspace. Closing twice is a no-op.
func (s *Dataspace) Close() error {
	s.closed = true
	return nil
}

func ones(n int) []uint64 {
	v := make([]uint64, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

// hyperslabBlocks expands a regular hyperslab into its blocks. Along a
// dimension where stride equals block the blocks touch and are stored as
// one.
func hyperslabBlocks(start, stride, count, block []uint64) ([]Block, error) {
	count, block = slices.Clone(count), slices.Clone(block)
	for d := range count {
		if count[d] > 1 && stride[d] == block[d] {
			block[d] *= count[d]
			count[d] = 1
		}
	}

	n := uint64(1)
	for _, c := range count {
		n *= c
		if n > maxSelectionBlocks {
			return nil, fmt.Errorf("%w: more than %d blocks", ErrInvalidSelection, maxSelectionBlocks)
		}
	}

	rank := len(start)
	idx := make([]uint64, rank)
	blocks := make([]Block, 0, n)
	for {
		b := Block{Start: make([]uint64, rank), End: make([]uint64, rank)}
		for d := 0; d < rank; d++ {
			b.Start[d] = start[d] + idx[d]*stride[d]
			b.End[d] = b.Start[d] + block[d] - 1
		}
		blocks = append(blocks, b)

		d := rank - 1
		for ; d >= 0; d-- {
			idx[d]++
			if idx[d] < count[d] {
				break
			}
			idx[d] = 0
		}
		if d < 0 {
			return blocks, nil
		}
	}
}

// unionBlocks adds the blocks of add to have, keeping all blocks disjoint.
func unionBlocks(have, add []Block) ([]Block, error) {
	out := slices.Clone(have)
	for _, nb := range add {
		pieces := []Block{nb}
		for _, e := range out {
			var next []Block
			for _, p := range pieces {
				next = append(next, subtractBlock(p, e)...)
			}
			pieces = next
			if len(pieces) == 0 {
				break
			}
		}
		out = append(out, pieces...)
		if len(out) > maxSelectionBlocks {
			return nil, fmt.Errorf("%w: more than %d blocks", ErrInvalidSelection, maxSelectionBlocks)
		}
	}
	return out, nil
}

// subtractBlock returns a minus b as disjoint blocks.
func subtractBlock(a, b Block) []Block {
	for d := range a.Start {
		if b.End[d] < a.Start[d] || b.Start[d] > a.End[d] {
			return []Block{a}
		}
	}

	var out []Block
	rest := a.clone()
	for d := range rest.Start {
		if rest.Start[d] < b.Start[d] {
			lo := rest.clone()
			lo.End[d] = b.Start[d] - 1
			out = append(out, lo)
			rest.Start[d] = b.Start[d]
		}
		if rest.End[d] > b.End[d] {
			hi := rest.clone()
			hi.Start[d] = b.End[d] + 1
			out = append(out, hi)
			rest.End[d] = b.End[d]
		}
	}
	return out
}
