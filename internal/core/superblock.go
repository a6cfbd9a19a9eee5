package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/scigolib/h5ref/internal/utils"
)

// HDF5 file signature and supported superblock versions.
const (
	Signature = "\x89HDF\r\n\x1a\n"
	Version2  = 2
	Version3  = 3
)

// UndefinedAddress marks an address field that points nowhere.
const UndefinedAddress uint64 = 0xFFFFFFFFFFFFFFFF

// SuperblockSize is the encoded size of a version 2 superblock with
// 8-byte offsets: 12 fixed bytes, 4 addresses and the checksum.
const SuperblockSize = 12 + 4*8 + 4

// ErrBadChecksum reports a metadata block whose stored checksum does not match.
var ErrBadChecksum = errors.New("metadata checksum mismatch")

// Superblock represents the HDF5 file superblock containing file-level metadata.
// Only little-endian files with 8-byte offsets and lengths are produced.
type Superblock struct {
	Version        uint8
	OffsetSize     uint8
	LengthSize     uint8
	Flags          uint8
	BaseAddress    uint64
	SuperExtension uint64
	EOFAddress     uint64
	RootGroup      uint64
}

// NewSuperblock returns a version 2 superblock for a root group at rootAddr.
func NewSuperblock(rootAddr uint64) *Superblock {
	return &Superblock{
		Version:        Version2,
		OffsetSize:     8,
		LengthSize:     8,
		SuperExtension: UndefinedAddress,
		RootGroup:      rootAddr,
	}
}

// Encode serializes the superblock with eof as end-of-file address.
func (sb *Superblock) Encode(eof uint64) ([]byte, error) {
	if sb.Version != Version2 && sb.Version != Version3 {
		return nil, fmt.Errorf("unsupported superblock version for writing: %d", sb.Version)
	}
	if sb.OffsetSize != 8 || sb.LengthSize != 8 {
		return nil, fmt.Errorf("unsupported offset/length size: %d/%d", sb.OffsetSize, sb.LengthSize)
	}

	buf := make([]byte, SuperblockSize)
	copy(buf[0:8], Signature)
	buf[8] = sb.Version
	buf[9] = sb.OffsetSize
	buf[10] = sb.LengthSize
	buf[11] = sb.Flags
	binary.LittleEndian.PutUint64(buf[12:20], sb.BaseAddress)
	binary.LittleEndian.PutUint64(buf[20:28], sb.SuperExtension)
	binary.LittleEndian.PutUint64(buf[28:36], eof)
	binary.LittleEndian.PutUint64(buf[36:44], sb.RootGroup)
	binary.LittleEndian.PutUint32(buf[44:48], Checksum(buf[:44]))
	return buf, nil
}

// WriteTo writes the superblock at offset 0.
func (sb *Superblock) WriteTo(w io.WriterAt, eof uint64) error {
	buf, err := sb.Encode(eof)
	if err != nil {
		return err
	}
	if _, err := w.WriteAt(buf, 0); err != nil {
		return utils.WrapError("superblock write failed", err)
	}
	sb.EOFAddress = eof
	return nil
}

// ReadSuperblock reads and verifies a version 2 or 3 superblock at offset 0.
func ReadSuperblock(r io.ReaderAt) (*Superblock, error) {
	buf := make([]byte, SuperblockSize)
	n, err := r.ReadAt(buf, 0)
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, utils.WrapError("superblock read failed", err)
	}
	if n < 12 {
		return nil, errors.New("file too small to contain a superblock")
	}
	if string(buf[:8]) != Signature {
		return nil, errors.New("invalid HDF5 signature")
	}

	sb := &Superblock{
		Version:    buf[8],
		OffsetSize: buf[9],
		LengthSize: buf[10],
		Flags:      buf[11],
	}
	if sb.Version != Version2 && sb.Version != Version3 {
		return nil, fmt.Errorf("unsupported superblock version: %d", sb.Version)
	}
	if sb.OffsetSize != 8 || sb.LengthSize != 8 {
		return nil, fmt.Errorf("unsupported offset/length size: %d/%d", sb.OffsetSize, sb.LengthSize)
	}
	if n < SuperblockSize {
		return nil, fmt.Errorf("truncated superblock: %d bytes", n)
	}
	if !VerifyChecksum(buf) {
		return nil, fmt.Errorf("superblock: %w", ErrBadChecksum)
	}

	sb.BaseAddress = binary.LittleEndian.Uint64(buf[12:20])
	sb.SuperExtension = binary.LittleEndian.Uint64(buf[20:28])
	sb.EOFAddress = binary.LittleEndian.Uint64(buf[28:36])
	sb.RootGroup = binary.LittleEndian.Uint64(buf[36:44])
	return sb, nil
}
