package core

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// LinkType defines the type of link (hard, soft, external).
type LinkType uint8

// Link type constants.
const (
	LinkTypeHard     LinkType = 0
	LinkTypeSoft     LinkType = 1
	LinkTypeExternal LinkType = 64
)

func (lt LinkType) String() string {
	switch lt {
	case LinkTypeHard:
		return "Hard"
	case LinkTypeSoft:
		return "Soft"
	case LinkTypeExternal:
		return "External"
	default:
		return fmt.Sprintf("Unknown(%d)", lt)
	}
}

// Link message flags.
const (
	linkFlagNameLenMask   uint8 = 0x03
	linkFlagCreationOrder uint8 = 0x04
	linkFlagLinkType      uint8 = 0x08
	linkFlagCharSet       uint8 = 0x10
)

// LinkMessage represents a version 1 link message of a compact group.
type LinkMessage struct {
	Type          LinkType
	CreationOrder uint64
	CharSet       uint8 // 0=ASCII, 1=UTF-8
	Name          string
	Address       uint64 // hard links
	Target        string // soft links
}

// EncodeLinkMessage encodes a hard link. The link type field is omitted
// (hard is the default) and the name length uses the narrowest width.
func EncodeLinkMessage(lm *LinkMessage) ([]byte, error) {
	if lm.Type != LinkTypeHard {
		return nil, fmt.Errorf("encoding %s links is not supported", lm.Type)
	}
	if lm.Name == "" {
		return nil, errors.New("link name cannot be empty")
	}

	nameLen := uint64(len(lm.Name))
	code, width := chunkSizeWidth(nameLen)
	flags := code
	size := 2 + width + len(lm.Name) + 8
	if lm.CharSet != 0 {
		flags |= linkFlagCharSet
		size++
	}

	buf := make([]byte, size)
	buf[0] = 1
	buf[1] = flags
	off := 2
	if lm.CharSet != 0 {
		buf[off] = lm.CharSet
		off++
	}
	putUintN(buf[off:], width, nameLen)
	off += width
	off += copy(buf[off:], lm.Name)
	binary.LittleEndian.PutUint64(buf[off:], lm.Address)
	return buf, nil
}

// ParseLinkMessage parses a version 1 link message.
func ParseLinkMessage(data []byte) (*LinkMessage, error) {
	if len(data) < 2 {
		return nil, errors.New("link message too short")
	}
	if data[0] != 1 {
		return nil, fmt.Errorf("unsupported link message version: %d", data[0])
	}

	flags := data[1]
	lm := &LinkMessage{Type: LinkTypeHard}
	off := 2
	need := func(n int) error {
		if off+n > len(data) {
			return fmt.Errorf("link message truncated at offset %d", off)
		}
		return nil
	}

	if flags&linkFlagLinkType != 0 {
		if err := need(1); err != nil {
			return nil, err
		}
		lm.Type = LinkType(data[off])
		off++
	}
	if flags&linkFlagCreationOrder != 0 {
		if err := need(8); err != nil {
			return nil, err
		}
		lm.CreationOrder = binary.LittleEndian.Uint64(data[off:])
		off += 8
	}
	if flags&linkFlagCharSet != 0 {
		if err := need(1); err != nil {
			return nil, err
		}
		lm.CharSet = data[off]
		off++
	}

	width := 1 << (flags & linkFlagNameLenMask)
	if err := need(width); err != nil {
		return nil, err
	}
	nameLen := readUintN(data[off:], width)
	off += width
	if nameLen > uint64(len(data)-off) { //nolint:gosec // G115: off <= len(data)
		return nil, fmt.Errorf("link name length %d exceeds message", nameLen)
	}
	lm.Name = string(data[off : off+int(nameLen)]) //nolint:gosec // G115: bounded above
	off += int(nameLen)                            //nolint:gosec // G115: bounded above

	switch lm.Type {
	case LinkTypeHard:
		if err := need(8); err != nil {
			return nil, err
		}
		lm.Address = binary.LittleEndian.Uint64(data[off:])
	case LinkTypeSoft:
		if err := need(2); err != nil {
			return nil, err
		}
		n := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if err := need(n); err != nil {
			return nil, err
		}
		lm.Target = string(data[off : off+n])
	}
	return lm, nil
}
