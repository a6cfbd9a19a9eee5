package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// SelectionType identifies a serialized dataspace selection.
type SelectionType uint32

// Selection types as stored in region references.
const (
	SelectionNone      SelectionType = 0
	SelectionPoints    SelectionType = 1
	SelectionHyperslab SelectionType = 2
	SelectionAll       SelectionType = 3
)

func (t SelectionType) String() string {
	switch t {
	case SelectionNone:
		return "none"
	case SelectionPoints:
		return "points"
	case SelectionHyperslab:
		return "hyperslab"
	case SelectionAll:
		return "all"
	default:
		return fmt.Sprintf("selection type %d", uint32(t))
	}
}

// Block is one hyperslab block with inclusive corner coordinates.
type Block struct {
	Start []uint64
	End   []uint64
}

// SelectionData is the decoded form of a serialized selection.
// Rank is zero for all/none selections, which do not record it.
type SelectionData struct {
	Type   SelectionType
	Rank   int
	Blocks []Block
}

const selectionHeaderSize = 16

// EncodeSelection serializes sel using the version 1 layout:
//
//	type | version | reserved | length | body
//
// A hyperslab body is rank, block count, then start and end coordinates of
// every block as 32-bit values.
func EncodeSelection(sel *SelectionData) ([]byte, error) {
	switch sel.Type {
	case SelectionNone, SelectionAll:
		buf := make([]byte, selectionHeaderSize)
		binary.LittleEndian.PutUint32(buf[0:4], uint32(sel.Type))
		binary.LittleEndian.PutUint32(buf[4:8], 1)
		return buf, nil
	case SelectionHyperslab:
	default:
		return nil, fmt.Errorf("encoding %s selections is not supported", sel.Type)
	}

	if sel.Rank <= 0 || sel.Rank > MaxRank {
		return nil, fmt.Errorf("invalid selection rank: %d", sel.Rank)
	}
	bodyLen := 8 + len(sel.Blocks)*sel.Rank*8
	buf := make([]byte, selectionHeaderSize+bodyLen)
	binary.LittleEndian.PutUint32(buf[0:4], uint32(SelectionHyperslab))
	binary.LittleEndian.PutUint32(buf[4:8], 1)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(bodyLen))      //nolint:gosec // G115: bounded by block count
	binary.LittleEndian.PutUint32(buf[16:20], uint32(sel.Rank))     //nolint:gosec // G115: bounded above
	binary.LittleEndian.PutUint32(buf[20:24], uint32(len(sel.Blocks))) //nolint:gosec // G115: slice length

	off := 24
	for i, b := range sel.Blocks {
		if len(b.Start) != sel.Rank || len(b.End) != sel.Rank {
			return nil, fmt.Errorf("block %d rank mismatch: start=%d end=%d rank=%d", i, len(b.Start), len(b.End), sel.Rank)
		}
		for _, coords := range [][]uint64{b.Start, b.End} {
			for _, c := range coords {
				if c > math.MaxUint32 {
					return nil, fmt.Errorf("block %d coordinate %d does not fit 32 bits", i, c)
				}
				binary.LittleEndian.PutUint32(buf[off:], uint32(c))
				off += 4
			}
		}
	}
	return buf, nil
}

// ParseSelection decodes a version 1 selection and returns it with the
// number of bytes consumed.
func ParseSelection(data []byte) (*SelectionData, int, error) {
	if len(data) < selectionHeaderSize {
		return nil, 0, errors.New("selection too short")
	}
	sel := &SelectionData{Type: SelectionType(binary.LittleEndian.Uint32(data[0:4]))}
	version := binary.LittleEndian.Uint32(data[4:8])
	if version != 1 {
		return nil, 0, fmt.Errorf("unsupported %s selection version: %d", sel.Type, version)
	}
	bodyLen := int(binary.LittleEndian.Uint32(data[12:16]))

	switch sel.Type {
	case SelectionNone, SelectionAll:
		return sel, selectionHeaderSize, nil
	case SelectionHyperslab:
	default:
		return nil, 0, fmt.Errorf("decoding %s selections is not supported", sel.Type)
	}

	if bodyLen < 8 || len(data) < selectionHeaderSize+bodyLen {
		return nil, 0, fmt.Errorf("hyperslab selection truncated: %d bytes", len(data))
	}
	sel.Rank = int(binary.LittleEndian.Uint32(data[16:20]))
	nblocks := int(binary.LittleEndian.Uint32(data[20:24]))
	if sel.Rank <= 0 || sel.Rank > MaxRank {
		return nil, 0, fmt.Errorf("invalid selection rank: %d", sel.Rank)
	}
	if bodyLen != 8+nblocks*sel.Rank*8 {
		return nil, 0, fmt.Errorf("hyperslab length %d does not match %d blocks of rank %d", bodyLen, nblocks, sel.Rank)
	}

	off := 24
	read := func() []uint64 {
		v := make([]uint64, sel.Rank)
		for i := range v {
			v[i] = uint64(binary.LittleEndian.Uint32(data[off:]))
			off += 4
		}
		return v
	}
	sel.Blocks = make([]Block, nblocks)
	for i := range sel.Blocks {
		sel.Blocks[i].Start = read()
		sel.Blocks[i].End = read()
	}
	return sel, selectionHeaderSize + bodyLen, nil
}

// EncodeRegionObject builds the global heap object behind a region
// reference: the target object header address followed by the selection.
func EncodeRegionObject(target uint64, sel *SelectionData) ([]byte, error) {
	encoded, err := EncodeSelection(sel)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 8+len(encoded))
	binary.LittleEndian.PutUint64(buf[0:8], target)
	copy(buf[8:], encoded)
	return buf, nil
}

// ParseRegionObject decodes a region heap object.
func ParseRegionObject(data []byte) (uint64, *SelectionData, error) {
	if len(data) < 8 {
		return 0, nil, errors.New("region object too short")
	}
	sel, _, err := ParseSelection(data[8:])
	if err != nil {
		return 0, nil, fmt.Errorf("region selection: %w", err)
	}
	return binary.LittleEndian.Uint64(data[0:8]), sel, nil
}
