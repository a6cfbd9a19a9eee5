package core

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DataLayoutClass represents HDF5 data layout class.
type DataLayoutClass uint8

// Data layout class constants.
const (
	LayoutCompact    DataLayoutClass = 0
	LayoutContiguous DataLayoutClass = 1
	LayoutChunked    DataLayoutClass = 2
)

// DataLayoutMessage represents a version 3 data layout message.
type DataLayoutMessage struct {
	Version     uint8
	Class       DataLayoutClass
	DataAddress uint64
	DataSize    uint64
	CompactData []byte
}

// EncodeLayoutMessage encodes a version 3 contiguous layout message.
func EncodeLayoutMessage(dataAddress, dataSize uint64) []byte {
	buf := make([]byte, 2+8+8)
	buf[0] = 3
	buf[1] = byte(LayoutContiguous)
	binary.LittleEndian.PutUint64(buf[2:10], dataAddress)
	binary.LittleEndian.PutUint64(buf[10:18], dataSize)
	return buf
}

// ParseDataLayoutMessage parses a version 3 compact or contiguous layout.
func ParseDataLayoutMessage(data []byte) (*DataLayoutMessage, error) {
	if len(data) < 2 {
		return nil, errors.New("data layout message too short")
	}
	if data[0] != 3 {
		return nil, fmt.Errorf("unsupported data layout version: %d", data[0])
	}

	msg := &DataLayoutMessage{Version: data[0], Class: DataLayoutClass(data[1])}
	switch msg.Class {
	case LayoutContiguous:
		if len(data) < 18 {
			return nil, fmt.Errorf("contiguous layout truncated: %d bytes", len(data))
		}
		msg.DataAddress = binary.LittleEndian.Uint64(data[2:10])
		msg.DataSize = binary.LittleEndian.Uint64(data[10:18])
	case LayoutCompact:
		if len(data) < 4 {
			return nil, fmt.Errorf("compact layout truncated: %d bytes", len(data))
		}
		n := int(binary.LittleEndian.Uint16(data[2:4]))
		if len(data) < 4+n {
			return nil, fmt.Errorf("compact layout data truncated: %d of %d bytes", len(data)-4, n)
		}
		msg.DataSize = uint64(n) //nolint:gosec // G115: n is a 16-bit value
		msg.CompactData = data[4 : 4+n]
	default:
		return nil, fmt.Errorf("unsupported data layout class: %d", msg.Class)
	}
	return msg, nil
}

// IsContiguous reports whether the layout is contiguous.
func (dl *DataLayoutMessage) IsContiguous() bool {
	return dl.Class == LayoutContiguous
}

// IsAllocated reports whether raw data storage exists.
func (dl *DataLayoutMessage) IsAllocated() bool {
	return dl.Class == LayoutCompact || dl.DataAddress != UndefinedAddress
}
