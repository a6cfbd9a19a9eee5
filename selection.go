package h5ref

import (
	"fmt"
	"slices"
	"strings"

	"github.com/scigolib/h5ref/internal/core"
)

// SelectionType identifies the kind of selection.
type SelectionType int

// Selection kinds.
const (
	SelectionNone SelectionType = iota
	SelectionAll
	SelectionHyperslab
)

func (t SelectionType) String() string {
	switch t {
	case SelectionNone:
		return "none"
	case SelectionAll:
		return "all"
	case SelectionHyperslab:
		return "hyperslab"
	default:
		return fmt.Sprintf("SelectionType(%d)", int(t))
	}
}

// Block is a rectangular region with inclusive corners.
type Block struct {
	Start []uint64
	End   []uint64
}

func (b Block) clone() Block {
	return Block{Start: slices.Clone(b.Start), End: slices.Clone(b.End)}
}

func (b Block) size() uint64 {
	n := uint64(1)
	for d := range b.Start {
		n *= b.End[d] - b.Start[d] + 1
	}
	return n
}

// Selection is a set of elements within an extent. Hyperslab blocks are
// disjoint.
type Selection struct {
	Type   SelectionType
	Dims   []uint64
	Blocks []Block
}

func (s *Selection) clone() *Selection {
	c := &Selection{Type: s.Type, Dims: slices.Clone(s.Dims)}
	for _, b := range s.Blocks {
		c.Blocks = append(c.Blocks, b.clone())
	}
	return c
}

// NumPoints returns the number of selected elements.
func (s *Selection) NumPoints() uint64 {
	switch s.Type {
	case SelectionAll:
		n := uint64(1)
		for _, d := range s.Dims {
			n *= d
		}
		return n
	case SelectionHyperslab:
		var n uint64
		for _, b := range s.Blocks {
			n += b.size()
		}
		return n
	default:
		return 0
	}
}

// Bounds returns the inclusive bounding box of the selection.
func (s *Selection) Bounds() (start, end []uint64, err error) {
	rank := len(s.Dims)
	switch s.Type {
	case SelectionAll:
		start = make([]uint64, rank)
		end = make([]uint64, rank)
		for d, n := range s.Dims {
			end[d] = n - 1
		}
		return start, end, nil
	case SelectionHyperslab:
		if len(s.Blocks) == 0 {
			break
		}
		start = slices.Clone(s.Blocks[0].Start)
		end = slices.Clone(s.Blocks[0].End)
		for _, b := range s.Blocks[1:] {
			for d := range b.Start {
				start[d] = min(start[d], b.Start[d])
				end[d] = max(end[d], b.End[d])
			}
		}
		return start, end, nil
	}
	return nil, nil, fmt.Errorf("%w: nothing selected", ErrInvalidSelection)
}

// Contains reports whether the element at coord is selected.
func (s *Selection) Contains(coord []uint64) bool {
	if len(coord) != len(s.Dims) {
		return false
	}
	switch s.Type {
	case SelectionAll:
		for d, c := range coord {
			if c >= s.Dims[d] {
				return false
			}
		}
		return true
	case SelectionHyperslab:
		for _, b := range s.Blocks {
			if blockContains(b, coord) {
				return true
			}
		}
	}
	return false
}

func blockContains(b Block, coord []uint64) bool {
	for d, c := range coord {
		if c < b.Start[d] || c > b.End[d] {
			return false
		}
	}
	return true
}

func (s *Selection) String() string {
	if s.Type != SelectionHyperslab {
		return s.Type.String()
	}
	parts := make([]string, len(s.Blocks))
	for i, b := range s.Blocks {
		parts[i] = fmt.Sprintf("%v-%v", b.Start, b.End)
	}
	return "hyperslab " + strings.Join(parts, ",")
}

// fitsExtent checks that the selection lies inside dims.
func (s *Selection) fitsExtent(dims []uint64) error {
	if len(s.Dims) != len(dims) {
		return fmt.Errorf("%w: selection rank %d, dataset rank %d", ErrInvalidSelection, len(s.Dims), len(dims))
	}
	switch s.Type {
	case SelectionAll:
		if !slices.Equal(s.Dims, dims) {
			return fmt.Errorf("%w: selection extent %v, dataset extent %v", ErrInvalidSelection, s.Dims, dims)
		}
	case SelectionHyperslab:
		for i, b := range s.Blocks {
			for d := range b.End {
				if b.End[d] >= dims[d] {
					return fmt.Errorf("%w: block %d ends at %d beyond extent %d in dimension %d",
						ErrInvalidSelection, i, b.End[d], dims[d], d)
				}
			}
		}
	}
	return nil
}

// encode converts the selection to its stored form with blocks in
// row-major order of their start corners.
func (s *Selection) encode() *core.SelectionData {
	switch s.Type {
	case SelectionAll:
		return &core.SelectionData{Type: core.SelectionAll}
	case SelectionNone:
		return &core.SelectionData{Type: core.SelectionNone}
	}
	blocks := make([]core.Block, len(s.Blocks))
	for i, b := range s.Blocks {
		blocks[i] = core.Block{Start: b.Start, End: b.End}
	}
	slices.SortFunc(blocks, func(a, b core.Block) int {
		return slices.Compare(a.Start, b.Start)
	})
	return &core.SelectionData{Type: core.SelectionHyperslab, Rank: len(s.Dims), Blocks: blocks}
}

// decodeSelection rebuilds a selection over dims from its stored form.
func decodeSelection(data *core.SelectionData, dims []uint64) (*Selection, error) {
	sel := &Selection{Dims: slices.Clone(dims)}
	switch data.Type {
	case core.SelectionAll:
		sel.Type = SelectionAll
	case core.SelectionNone:
		sel.Type = SelectionNone
	case core.SelectionHyperslab:
		sel.Type = SelectionHyperslab
		if data.Rank != len(dims) {
			return nil, fmt.Errorf("%w: stored rank %d, dataset rank %d", ErrInvalidSelection, data.Rank, len(dims))
		}
		for _, b := range data.Blocks {
			sel.Blocks = append(sel.Blocks, Block{Start: b.Start, End: b.End})
		}
		if err := sel.fitsExtent(dims); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("%w: unsupported stored %s selection", ErrInvalidSelection, data.Type)
	}
	return sel, nil
}
