package core

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MessageWriter represents a message that can be written to an object header.
type MessageWriter struct {
	Type  MessageType
	Flags uint8
	Data  []byte
}

// ObjectHeaderWriter builds a single-chunk version 2 object header.
//
// Capacity reserves chunk space beyond the current messages so the header
// can be rewritten in place as messages are added. Unused space is filled
// with a NIL message.
type ObjectHeaderWriter struct {
	Messages []MessageWriter
	Capacity uint64
}

// maxMessageData is the largest payload a 2-byte size field can describe.
const maxMessageData = 0xFFFF

func (ohw *ObjectHeaderWriter) messagesSize() uint64 {
	var n uint64
	for _, m := range ohw.Messages {
		n += 4 + uint64(len(m.Data))
	}
	return n
}

// ChunkSize returns the size of the message chunk: the larger of the
// encoded messages and Capacity.
func (ohw *ObjectHeaderWriter) ChunkSize() uint64 {
	return max(ohw.messagesSize(), ohw.Capacity)
}

func chunkSizeWidth(size uint64) (uint8, int) {
	switch {
	case size <= 0xFF:
		return 0, 1
	case size <= 0xFFFF:
		return 1, 2
	case size <= 0xFFFFFFFF:
		return 2, 4
	default:
		return 3, 8
	}
}

// Size returns the total encoded size: prefix, chunk and checksum.
func (ohw *ObjectHeaderWriter) Size() uint64 {
	chunk := ohw.ChunkSize()
	_, width := chunkSizeWidth(chunk)
	return 6 + uint64(width) + chunk + 4
}

// Fits reports whether a message with dataLen payload bytes can be added
// without growing the header past Capacity.
func (ohw *ObjectHeaderWriter) Fits(dataLen int) bool {
	if ohw.Capacity == 0 {
		return true
	}
	return ohw.messagesSize()+4+uint64(dataLen) <= ohw.Capacity //nolint:gosec // G115: dataLen is a slice length
}

// Encode serializes the object header.
//
// Layout:
//
//	"OHDR" | version 2 | flags | chunk size | messages | NIL padding | checksum
func (ohw *ObjectHeaderWriter) Encode() ([]byte, error) {
	chunk := ohw.ChunkSize()
	code, width := chunkSizeWidth(chunk)

	buf := make([]byte, ohw.Size())
	copy(buf[0:4], ohdrSignature)
	buf[4] = 2
	buf[5] = code
	putUintN(buf[6:], width, chunk)

	pos := 6 + width
	for i, m := range ohw.Messages {
		if len(m.Data) > maxMessageData {
			return nil, fmt.Errorf("message %d (type 0x%02X) too large: %d bytes", i, m.Type, len(m.Data))
		}
		buf[pos] = byte(m.Type)
		binary.LittleEndian.PutUint16(buf[pos+1:pos+3], uint16(len(m.Data))) //nolint:gosec // G115: bounded above
		buf[pos+3] = m.Flags
		copy(buf[pos+4:], m.Data)
		pos += 4 + len(m.Data)
	}

	end := len(buf) - 4
	if gap := end - pos; gap >= 4 {
		if gap-4 > maxMessageData {
			return nil, fmt.Errorf("header padding too large: %d bytes", gap)
		}
		buf[pos] = byte(MsgNil)
		binary.LittleEndian.PutUint16(buf[pos+1:pos+3], uint16(gap-4)) //nolint:gosec // G115: bounded above
	}

	binary.LittleEndian.PutUint32(buf[end:], Checksum(buf[:end]))
	return buf, nil
}

// WriteTo encodes the header and writes it at address.
func (ohw *ObjectHeaderWriter) WriteTo(w io.WriterAt, address uint64) error {
	buf, err := ohw.Encode()
	if err != nil {
		return err
	}
	if _, err := w.WriteAt(buf, int64(address)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return fmt.Errorf("write object header at 0x%X: %w", address, err)
	}
	return nil
}
