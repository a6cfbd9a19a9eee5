package core

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// DatatypeClass represents HDF5 datatype class.
type DatatypeClass uint8

// Datatype class constants. Only the reference class is written.
const (
	DatatypeFixed     DatatypeClass = 0
	DatatypeFloat     DatatypeClass = 1
	DatatypeString    DatatypeClass = 3
	DatatypeCompound  DatatypeClass = 6
	DatatypeReference DatatypeClass = 7
	DatatypeVarLen    DatatypeClass = 9
)

// ReferenceKind is the class bit field of a reference datatype.
type ReferenceKind uint32

// Reference kinds stored in the low bits of the class bit field.
const (
	RefObject        ReferenceKind = 0
	RefDatasetRegion ReferenceKind = 1
)

// Encoded element sizes of the two reference kinds: an object header
// address, or a global heap ID (collection address + object index).
const (
	ObjectRefSize = 8
	RegionRefSize = 12
)

func (k ReferenceKind) String() string {
	switch k {
	case RefObject:
		return "object"
	case RefDatasetRegion:
		return "dataset region"
	default:
		return fmt.Sprintf("reference kind %d", uint32(k))
	}
}

// ElementSize returns the stored size of one reference of kind k.
func (k ReferenceKind) ElementSize() (uint32, error) {
	switch k {
	case RefObject:
		return ObjectRefSize, nil
	case RefDatasetRegion:
		return RegionRefSize, nil
	default:
		return 0, fmt.Errorf("unsupported %s", k)
	}
}

// DatatypeMessage represents HDF5 datatype message.
type DatatypeMessage struct {
	Class         DatatypeClass
	Version       uint8
	Size          uint32
	ClassBitField uint32
	Properties    []byte
}

// NewReferenceDatatype returns the version 1 datatype message for kind.
func NewReferenceDatatype(kind ReferenceKind) (*DatatypeMessage, error) {
	size, err := kind.ElementSize()
	if err != nil {
		return nil, err
	}
	return &DatatypeMessage{
		Class:         DatatypeReference,
		Version:       1,
		Size:          size,
		ClassBitField: uint32(kind),
	}, nil
}

// ParseDatatypeMessage parses a datatype message from header message data.
func ParseDatatypeMessage(data []byte) (*DatatypeMessage, error) {
	if len(data) < 8 {
		return nil, errors.New("datatype message too short")
	}

	classAndVersion := binary.LittleEndian.Uint32(data[0:4])
	return &DatatypeMessage{
		Class:         DatatypeClass(classAndVersion & 0x0F),     //nolint:gosec // G115: masked
		Version:       uint8((classAndVersion >> 4) & 0x0F),      //nolint:gosec // G115: masked
		ClassBitField: (classAndVersion >> 8) & 0x00FFFFFF,
		Size:          binary.LittleEndian.Uint32(data[4:8]),
		Properties:    data[8:],
	}, nil
}

// EncodeDatatypeMessage serializes dt. Reference datatypes have no properties.
func EncodeDatatypeMessage(dt *DatatypeMessage) ([]byte, error) {
	if dt.Class != DatatypeReference {
		return nil, fmt.Errorf("encoding datatype class %d is not supported", dt.Class)
	}
	if dt.Version == 0 || dt.Version > 0x0F {
		return nil, fmt.Errorf("invalid datatype version: %d", dt.Version)
	}

	buf := make([]byte, 8+len(dt.Properties))
	classAndVersion := uint32(dt.Class) | uint32(dt.Version)<<4 | (dt.ClassBitField&0x00FFFFFF)<<8
	binary.LittleEndian.PutUint32(buf[0:4], classAndVersion)
	binary.LittleEndian.PutUint32(buf[4:8], dt.Size)
	copy(buf[8:], dt.Properties)
	return buf, nil
}

// IsReference reports whether dt is a reference datatype.
func (dt *DatatypeMessage) IsReference() bool {
	return dt.Class == DatatypeReference
}

// ReferenceKind returns the reference kind of a reference datatype.
func (dt *DatatypeMessage) ReferenceKind() (ReferenceKind, error) {
	if !dt.IsReference() {
		return 0, fmt.Errorf("datatype class %d is not a reference", dt.Class)
	}
	kind := ReferenceKind(dt.ClassBitField & 0x0F)
	size, err := kind.ElementSize()
	if err != nil {
		return 0, err
	}
	if dt.Size != size {
		return 0, fmt.Errorf("%s reference with element size %d, want %d", kind, dt.Size, size)
	}
	return kind, nil
}

func (dt *DatatypeMessage) String() string {
	if kind, err := dt.ReferenceKind(); err == nil {
		return kind.String() + " reference"
	}
	return fmt.Sprintf("class %d (%d bytes)", dt.Class, dt.Size)
}
