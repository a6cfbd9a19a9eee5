package core

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Space allocation times.
const (
	AllocEarly       = 1
	AllocLate        = 2
	AllocIncremental = 3
)

// Fill value write times.
const (
	FillOnAlloc = 0
	FillNever   = 1
	FillIfSet   = 2
)

const fillValueDefined = 0x20

// FillValueMessage represents a version 3 fill value message.
type FillValueMessage struct {
	AllocTime uint8
	FillTime  uint8
	Value     []byte // nil when undefined
}

// DefaultFillValue is late allocation, fill-if-set, with no value defined.
func DefaultFillValue() *FillValueMessage {
	return &FillValueMessage{AllocTime: AllocLate, FillTime: FillIfSet}
}

// Encode serializes the message as version 3.
func (fv *FillValueMessage) Encode() []byte {
	flags := fv.AllocTime&0x03 | (fv.FillTime&0x03)<<2
	if fv.Value == nil {
		return []byte{3, flags}
	}
	buf := make([]byte, 2+4+len(fv.Value))
	buf[0] = 3
	buf[1] = flags | fillValueDefined
	binary.LittleEndian.PutUint32(buf[2:6], uint32(len(fv.Value))) //nolint:gosec // G115: fill values are element-sized
	copy(buf[6:], fv.Value)
	return buf
}

// ParseFillValueMessage parses a version 3 fill value message.
func ParseFillValueMessage(data []byte) (*FillValueMessage, error) {
	if len(data) < 2 {
		return nil, errors.New("fill value message too short")
	}
	if data[0] != 3 {
		return nil, fmt.Errorf("unsupported fill value version: %d", data[0])
	}
	flags := data[1]
	fv := &FillValueMessage{AllocTime: flags & 0x03, FillTime: (flags >> 2) & 0x03}
	if flags&fillValueDefined != 0 {
		if len(data) < 6 {
			return nil, errors.New("fill value size missing")
		}
		n := binary.LittleEndian.Uint32(data[2:6])
		if uint64(len(data)-6) < uint64(n) {
			return nil, fmt.Errorf("fill value truncated: %d of %d bytes", len(data)-6, n)
		}
		fv.Value = data[6 : 6+n]
	}
	return fv, nil
}
