package core

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DataspaceType represents the type of dataspace.
type DataspaceType uint8

// Dataspace type constants define the dimensionality of datasets.
const (
	DataspaceScalar DataspaceType = 0
	DataspaceSimple DataspaceType = 1
	DataspaceNull   DataspaceType = 2
)

// Unlimited marks a maximum dimension that can grow without bound.
const Unlimited uint64 = 0xFFFFFFFFFFFFFFFF

// MaxRank is the largest rank a dataspace message can describe.
const MaxRank = 32

// DataspaceMessage represents HDF5 dataspace message.
type DataspaceMessage struct {
	Version    uint8
	Type       DataspaceType
	Dimensions []uint64
	MaxDims    []uint64
}

// EncodeDataspaceMessage encodes a version 1 dataspace message.
//
// Layout: version | rank | flags | 5 reserved | dims | [max dims].
func EncodeDataspaceMessage(dims, maxDims []uint64) ([]byte, error) {
	if len(dims) > MaxRank {
		return nil, fmt.Errorf("rank %d exceeds maximum %d", len(dims), MaxRank)
	}
	if maxDims != nil && len(maxDims) != len(dims) {
		return nil, fmt.Errorf("maxDims rank %d does not match dims rank %d", len(maxDims), len(dims))
	}
	for i := range maxDims {
		if maxDims[i] != Unlimited && maxDims[i] < dims[i] {
			return nil, fmt.Errorf("maxDims[%d]=%d smaller than dims[%d]=%d", i, maxDims[i], i, dims[i])
		}
	}

	size := 8 + 8*len(dims)
	var flags byte
	if maxDims != nil {
		flags |= 0x01
		size += 8 * len(maxDims)
	}

	buf := make([]byte, size)
	buf[0] = 1
	buf[1] = byte(len(dims))
	buf[2] = flags
	off := 8
	for _, d := range dims {
		binary.LittleEndian.PutUint64(buf[off:], d)
		off += 8
	}
	for _, d := range maxDims {
		binary.LittleEndian.PutUint64(buf[off:], d)
		off += 8
	}
	return buf, nil
}

// ParseDataspaceMessage parses a version 1 or 2 dataspace message.
func ParseDataspaceMessage(data []byte) (*DataspaceMessage, error) {
	if len(data) < 4 {
		return nil, errors.New("dataspace message too short")
	}

	msg := &DataspaceMessage{Version: data[0], Type: DataspaceSimple}
	rank := int(data[1])
	flags := data[2]

	var off int
	switch msg.Version {
	case 1:
		off = 8
		if rank == 0 {
			msg.Type = DataspaceScalar
		}
	case 2:
		off = 4
		msg.Type = DataspaceType(data[3])
	default:
		return nil, fmt.Errorf("unsupported dataspace version: %d", msg.Version)
	}

	need := off + 8*rank
	if flags&0x01 != 0 {
		need += 8 * rank
	}
	if len(data) < need {
		return nil, fmt.Errorf("dataspace message truncated: %d bytes, need %d", len(data), need)
	}

	msg.Dimensions = make([]uint64, rank)
	for i := range msg.Dimensions {
		msg.Dimensions[i] = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	if flags&0x01 != 0 {
		msg.MaxDims = make([]uint64, rank)
		for i := range msg.MaxDims {
			msg.MaxDims[i] = binary.LittleEndian.Uint64(data[off:])
			off += 8
		}
	}
	return msg, nil
}

// TotalElements returns the number of elements in the dataspace.
func (ds *DataspaceMessage) TotalElements() uint64 {
	switch ds.Type {
	case DataspaceNull:
		return 0
	case DataspaceScalar:
		return 1
	}
	total := uint64(1)
	for _, d := range ds.Dimensions {
		total *= d
	}
	return total
}

func (ds *DataspaceMessage) String() string {
	switch ds.Type {
	case DataspaceScalar:
		return "scalar"
	case DataspaceNull:
		return "null"
	}
	return fmt.Sprintf("simple %v", ds.Dimensions)
}
