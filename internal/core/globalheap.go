package core

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/scigolib/h5ref/internal/utils"
)

// GlobalHeapSignature is the magic signature for global heap collections.
var GlobalHeapSignature = [4]byte{'G', 'C', 'O', 'L'}

// Global heap collection layout constants.
const (
	GlobalHeapHeaderSize    = 16 // signature, version, reserved, collection size
	GlobalHeapObjHeaderSize = 16 // index, refcount, reserved, object size
	GlobalHeapMinSize       = 4096
	GlobalHeapIDSize        = 12 // collection address + object index
)

// ErrHeapFull reports that an object does not fit the collection.
var ErrHeapFull = errors.New("global heap collection full")

// GlobalHeapCollection represents a global heap collection.
type GlobalHeapCollection struct {
	Address uint64
	Size    uint64
	Objects []GlobalHeapObject
}

// GlobalHeapObject represents a single object in the global heap.
type GlobalHeapObject struct {
	Index uint16
	NRefs uint16
	Data  []byte
}

// GlobalHeapID addresses an object inside a collection.
type GlobalHeapID struct {
	Collection uint64
	Index      uint32
}

// Encode returns the 12-byte on-disk form of the ID.
func (id GlobalHeapID) Encode() []byte {
	buf := make([]byte, GlobalHeapIDSize)
	binary.LittleEndian.PutUint64(buf[0:8], id.Collection)
	binary.LittleEndian.PutUint32(buf[8:12], id.Index)
	return buf
}

// ParseGlobalHeapID decodes a 12-byte heap ID.
func ParseGlobalHeapID(data []byte) (GlobalHeapID, error) {
	if len(data) < GlobalHeapIDSize {
		return GlobalHeapID{}, fmt.Errorf("global heap ID too short: %d bytes", len(data))
	}
	return GlobalHeapID{
		Collection: binary.LittleEndian.Uint64(data[0:8]),
		Index:      binary.LittleEndian.Uint32(data[8:12]),
	}, nil
}

func align8(n uint64) uint64 {
	return (n + 7) &^ 7
}

// HeapObjectSpace returns the bytes an object of n data bytes occupies.
func HeapObjectSpace(n int) uint64 {
	return GlobalHeapObjHeaderSize + align8(uint64(n)) //nolint:gosec // G115: n is a slice length
}

// NewGlobalHeapCollection starts an empty collection of size bytes at address.
// Sizes below GlobalHeapMinSize are raised to it.
func NewGlobalHeapCollection(address, size uint64) *GlobalHeapCollection {
	return &GlobalHeapCollection{Address: address, Size: max(size, GlobalHeapMinSize)}
}

func (gc *GlobalHeapCollection) used() uint64 {
	n := uint64(GlobalHeapHeaderSize)
	for _, obj := range gc.Objects {
		n += HeapObjectSpace(len(obj.Data))
	}
	return n
}

// Free returns the bytes left for new objects.
func (gc *GlobalHeapCollection) Free() uint64 {
	return gc.Size - gc.used()
}

// Add stores data as a new object with refcount 1 and returns its ID.
func (gc *GlobalHeapCollection) Add(data []byte) (GlobalHeapID, error) {
	if HeapObjectSpace(len(data)) > gc.Free() {
		return GlobalHeapID{}, ErrHeapFull
	}
	if len(gc.Objects) >= 0xFFFF {
		return GlobalHeapID{}, ErrHeapFull
	}
	idx := uint16(len(gc.Objects) + 1) //nolint:gosec // G115: bounded above
	gc.Objects = append(gc.Objects, GlobalHeapObject{
		Index: idx,
		NRefs: 1,
		Data:  append([]byte(nil), data...),
	})
	return GlobalHeapID{Collection: gc.Address, Index: uint32(idx)}, nil
}

// Encode serializes the collection. Remaining space becomes the free-space
// object (index 0) whose size field counts its own header.
func (gc *GlobalHeapCollection) Encode() []byte {
	buf := make([]byte, gc.Size)
	copy(buf[0:4], GlobalHeapSignature[:])
	buf[4] = 1
	binary.LittleEndian.PutUint64(buf[8:16], gc.Size)

	off := uint64(GlobalHeapHeaderSize)
	for _, obj := range gc.Objects {
		binary.LittleEndian.PutUint16(buf[off:], obj.Index)
		binary.LittleEndian.PutUint16(buf[off+2:], obj.NRefs)
		binary.LittleEndian.PutUint64(buf[off+8:], uint64(len(obj.Data)))
		copy(buf[off+GlobalHeapObjHeaderSize:], obj.Data)
		off += HeapObjectSpace(len(obj.Data))
	}

	if free := gc.Size - off; free >= GlobalHeapObjHeaderSize {
		binary.LittleEndian.PutUint64(buf[off+8:], free)
	}
	return buf
}

// Object returns the object with the given index.
func (gc *GlobalHeapCollection) Object(index uint32) (*GlobalHeapObject, error) {
	for i := range gc.Objects {
		if uint32(gc.Objects[i].Index) == index {
			return &gc.Objects[i], nil
		}
	}
	return nil, fmt.Errorf("object %d not found in global heap at 0x%X", index, gc.Address)
}

// ReadGlobalHeapCollection reads a collection written with 8-byte lengths.
func ReadGlobalHeapCollection(r io.ReaderAt, address uint64) (*GlobalHeapCollection, error) {
	header := make([]byte, GlobalHeapHeaderSize)
	if _, err := r.ReadAt(header, int64(address)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return nil, fmt.Errorf("read global heap header: %w", err)
	}
	if string(header[0:4]) != string(GlobalHeapSignature[:]) {
		return nil, fmt.Errorf("invalid global heap signature: %q", header[0:4])
	}
	if header[4] != 1 {
		return nil, fmt.Errorf("unsupported global heap version: %d", header[4])
	}
	size := binary.LittleEndian.Uint64(header[8:16])
	if size < GlobalHeapHeaderSize {
		return nil, fmt.Errorf("invalid collection size: %d", size)
	}
	if err := utils.ValidateBufferSize(size, utils.MaxChunkSize, "global heap collection"); err != nil {
		return nil, err
	}

	data := make([]byte, size)
	if _, err := r.ReadAt(data, int64(address)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return nil, fmt.Errorf("read global heap collection: %w", err)
	}

	gc := &GlobalHeapCollection{Address: address, Size: size}
	off := uint64(GlobalHeapHeaderSize)
	for off+GlobalHeapObjHeaderSize <= size {
		idx := binary.LittleEndian.Uint16(data[off:])
		nrefs := binary.LittleEndian.Uint16(data[off+2:])
		objSize := binary.LittleEndian.Uint64(data[off+8:])

		if idx == 0 {
			// free space; its size includes the object header
			break
		}
		start := off + GlobalHeapObjHeaderSize
		if objSize > size-start {
			return nil, fmt.Errorf("global heap object %d extends beyond collection", idx)
		}
		gc.Objects = append(gc.Objects, GlobalHeapObject{
			Index: idx,
			NRefs: nrefs,
			Data:  data[start : start+objSize],
		})
		off = start + align8(objSize)
	}
	return gc, nil
}
