package core

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// LinkInfoMessage describes where a new-style group keeps its links.
// Compact groups store links as header messages and leave both
// addresses undefined.
type LinkInfoMessage struct {
	Flags             uint8
	MaxCreationIndex  uint64
	FractalHeapAddr   uint64
	NameBTreeAddr     uint64
	CreationOrderAddr uint64
}

// NewCompactLinkInfo returns link info for a group with compact storage only.
func NewCompactLinkInfo() *LinkInfoMessage {
	return &LinkInfoMessage{
		FractalHeapAddr:   UndefinedAddress,
		NameBTreeAddr:     UndefinedAddress,
		CreationOrderAddr: UndefinedAddress,
	}
}

// Encode serializes a version 0 link info message.
func (lim *LinkInfoMessage) Encode() []byte {
	size := 2 + 8 + 8
	if lim.Flags&0x01 != 0 {
		size += 8
	}
	if lim.Flags&0x02 != 0 {
		size += 8
	}
	buf := make([]byte, size)
	buf[0] = 0
	buf[1] = lim.Flags
	off := 2
	if lim.Flags&0x01 != 0 {
		binary.LittleEndian.PutUint64(buf[off:], lim.MaxCreationIndex)
		off += 8
	}
	binary.LittleEndian.PutUint64(buf[off:], lim.FractalHeapAddr)
	binary.LittleEndian.PutUint64(buf[off+8:], lim.NameBTreeAddr)
	off += 16
	if lim.Flags&0x02 != 0 {
		binary.LittleEndian.PutUint64(buf[off:], lim.CreationOrderAddr)
	}
	return buf
}

// IsCompact reports whether the group keeps its links in the header.
func (lim *LinkInfoMessage) IsCompact() bool {
	return lim.FractalHeapAddr == UndefinedAddress
}

// ParseLinkInfoMessage parses a version 0 link info message.
func ParseLinkInfoMessage(data []byte) (*LinkInfoMessage, error) {
	if len(data) < 18 {
		return nil, errors.New("link info message too short")
	}
	if data[0] != 0 {
		return nil, fmt.Errorf("unsupported link info version: %d", data[0])
	}
	lim := &LinkInfoMessage{Flags: data[1], CreationOrderAddr: UndefinedAddress}
	off := 2
	need := 18
	if lim.Flags&0x01 != 0 {
		need += 8
	}
	if lim.Flags&0x02 != 0 {
		need += 8
	}
	if len(data) < need {
		return nil, fmt.Errorf("link info message truncated: %d bytes, need %d", len(data), need)
	}
	if lim.Flags&0x01 != 0 {
		lim.MaxCreationIndex = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	lim.FractalHeapAddr = binary.LittleEndian.Uint64(data[off:])
	lim.NameBTreeAddr = binary.LittleEndian.Uint64(data[off+8:])
	off += 16
	if lim.Flags&0x02 != 0 {
		lim.CreationOrderAddr = binary.LittleEndian.Uint64(data[off:])
	}
	return lim, nil
}

// EncodeGroupInfoMessage encodes a version 0 group info message with
// default link phase change and entry estimates.
func EncodeGroupInfoMessage() []byte {
	return []byte{0, 0}
}
