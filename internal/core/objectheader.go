package core

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/scigolib/h5ref/internal/utils"
)

// ObjectType identifies the type of HDF5 object (group, dataset).
type ObjectType uint8

// Object type constants identify different HDF5 object types.
const (
	ObjectTypeGroup ObjectType = iota
	ObjectTypeDataset
	ObjectTypeUnknown
)

func (t ObjectType) String() string {
	switch t {
	case ObjectTypeGroup:
		return "group"
	case ObjectTypeDataset:
		return "dataset"
	default:
		return "unknown"
	}
}

// MessageType identifies the type of message in an object header.
type MessageType uint16

// Message type constants identify different types of header messages.
const (
	MsgNil          MessageType = 0x00
	MsgDataspace    MessageType = 0x01
	MsgLinkInfo     MessageType = 0x02
	MsgDatatype     MessageType = 0x03
	MsgFillValue    MessageType = 0x05
	MsgLink         MessageType = 0x06
	MsgDataLayout   MessageType = 0x08
	MsgGroupInfo    MessageType = 0x0A
	MsgContinuation MessageType = 0x10
	MsgSymbolTable  MessageType = 0x11
)

// Object header v2 flag bits.
const (
	ohdrChunkSizeMask   = 0x03
	ohdrTrackCrtOrder   = 0x04
	ohdrStorePhaseAttrs = 0x10
	ohdrStoreTimes      = 0x20
)

var (
	ohdrSignature = []byte("OHDR")
	ochkSignature = []byte("OCHK")
)

// ObjectHeader represents an HDF5 object header containing metadata messages.
type ObjectHeader struct {
	Address  uint64
	Version  uint8
	Flags    uint8
	Type     ObjectType
	Messages []*HeaderMessage
}

// HeaderMessage represents a single message within an object header.
type HeaderMessage struct {
	Type   MessageType
	Flags  uint8
	Offset uint64
	Data   []byte
}

// Find returns the first message of type t, or nil.
func (oh *ObjectHeader) Find(t MessageType) *HeaderMessage {
	for _, m := range oh.Messages {
		if m.Type == t {
			return m
		}
	}
	return nil
}

// ReadObjectHeader reads and verifies a version 2 object header at address,
// following continuation blocks.
func ReadObjectHeader(r io.ReaderAt, address uint64) (*ObjectHeader, error) {
	prefix := make([]byte, 6)
	if _, err := r.ReadAt(prefix, int64(address)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return nil, utils.WrapError("object header read failed", err)
	}
	if string(prefix[:4]) != string(ohdrSignature) {
		return nil, fmt.Errorf("no object header signature at address 0x%X", address)
	}
	if prefix[4] != 2 {
		return nil, fmt.Errorf("unsupported object header version: %d", prefix[4])
	}

	flags := prefix[5]
	headerLen := 6
	if flags&ohdrStoreTimes != 0 {
		headerLen += 16
	}
	if flags&ohdrStorePhaseAttrs != 0 {
		headerLen += 4
	}
	sizeWidth := 1 << (flags & ohdrChunkSizeMask)

	fixed := make([]byte, headerLen+sizeWidth)
	if _, err := r.ReadAt(fixed, int64(address)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return nil, utils.WrapError("object header prefix read failed", err)
	}
	chunkSize := readUintN(fixed[headerLen:], sizeWidth)
	if err := utils.ValidateBufferSize(chunkSize, utils.MaxMetadataSize, "object header chunk"); err != nil {
		return nil, fmt.Errorf("object header at 0x%X: %w", address, err)
	}

	block := make([]byte, uint64(len(fixed))+chunkSize+4)
	if _, err := r.ReadAt(block, int64(address)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return nil, utils.WrapError("object header chunk read failed", err)
	}
	if !VerifyChecksum(block) {
		return nil, fmt.Errorf("object header at 0x%X: %w", address, ErrBadChecksum)
	}

	oh := &ObjectHeader{Address: address, Version: 2, Flags: flags}
	chunkStart := uint64(len(fixed))
	conts, err := oh.parseMessages(block[chunkStart:len(block)-4], address+chunkStart)
	if err != nil {
		return nil, err
	}

	visited := map[uint64]bool{address: true}
	for len(conts) > 0 {
		c := conts[0]
		conts = conts[1:]
		if visited[c.addr] {
			return nil, fmt.Errorf("object header at 0x%X: continuation loop at 0x%X", address, c.addr)
		}
		visited[c.addr] = true
		more, err := oh.readContinuation(r, c)
		if err != nil {
			return nil, err
		}
		conts = append(conts, more...)
	}

	oh.Type = determineObjectType(oh.Messages)
	return oh, nil
}

type continuation struct {
	addr, length uint64
}

func (oh *ObjectHeader) readContinuation(r io.ReaderAt, c continuation) ([]continuation, error) {
	if c.length < 8 {
		return nil, fmt.Errorf("continuation block too small: %d bytes", c.length)
	}
	if err := utils.ValidateBufferSize(c.length, utils.MaxMetadataSize, "continuation block"); err != nil {
		return nil, err
	}
	block := make([]byte, c.length)
	if _, err := r.ReadAt(block, int64(c.addr)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return nil, utils.WrapError("continuation block read failed", err)
	}
	if string(block[:4]) != string(ochkSignature) {
		return nil, fmt.Errorf("no continuation signature at address 0x%X", c.addr)
	}
	if !VerifyChecksum(block) {
		return nil, fmt.Errorf("continuation block at 0x%X: %w", c.addr, ErrBadChecksum)
	}
	return oh.parseMessages(block[4:len(block)-4], c.addr+4)
}

func (oh *ObjectHeader) parseMessages(chunk []byte, base uint64) ([]continuation, error) {
	msgHeader := 4
	if oh.Flags&ohdrTrackCrtOrder != 0 {
		msgHeader += 2
	}

	var conts []continuation
	pos := 0
	for pos+msgHeader <= len(chunk) {
		mtype := MessageType(chunk[pos])
		size := int(binary.LittleEndian.Uint16(chunk[pos+1 : pos+3]))
		mflags := chunk[pos+3]
		dataStart := pos + msgHeader
		if dataStart+size > len(chunk) {
			return nil, fmt.Errorf("message type 0x%02X overruns chunk: %d+%d > %d", mtype, dataStart, size, len(chunk))
		}
		data := chunk[dataStart : dataStart+size]

		switch mtype {
		case MsgNil:
		case MsgContinuation:
			if len(data) < 16 {
				return nil, fmt.Errorf("continuation message too short: %d bytes", len(data))
			}
			conts = append(conts, continuation{
				addr:   binary.LittleEndian.Uint64(data[0:8]),
				length: binary.LittleEndian.Uint64(data[8:16]),
			})
		default:
			oh.Messages = append(oh.Messages, &HeaderMessage{
				Type:   mtype,
				Flags:  mflags,
				Offset: base + uint64(dataStart), //nolint:gosec // G115: dataStart is non-negative
				Data:   append([]byte(nil), data...),
			})
		}
		pos = dataStart + size
	}
	return conts, nil
}

func determineObjectType(messages []*HeaderMessage) ObjectType {
	for _, m := range messages {
		switch m.Type {
		case MsgDataLayout, MsgDatatype:
			return ObjectTypeDataset
		case MsgLinkInfo, MsgGroupInfo, MsgLink, MsgSymbolTable:
			return ObjectTypeGroup
		}
	}
	return ObjectTypeUnknown
}

func readUintN(b []byte, n int) uint64 {
	var v uint64
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v
}

func putUintN(b []byte, n int, v uint64) {
	for i := 0; i < n; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
