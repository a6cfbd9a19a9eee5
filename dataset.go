package h5ref

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/utils"
)

// Dataset is a reference dataset opened for reading.
type Dataset struct {
	id      int64
	file    *File
	name    string
	address uint64
	dims    []uint64
	kind    core.ReferenceKind
	layout  *core.DataLayoutMessage
	closed  bool
}

func (f *File) openDataset(path string, addr uint64) (*Dataset, error) {
	oh, err := core.ReadObjectHeader(f.osFile, addr)
	if err != nil {
		return nil, err
	}
	if oh.Type != core.ObjectTypeDataset {
		return nil, fmt.Errorf("%w: %q is a %s", ErrTypeMismatch, path, oh.Type)
	}

	msgs := make(map[core.MessageType][]byte)
	for _, t := range []core.MessageType{core.MsgDataspace, core.MsgDatatype, core.MsgDataLayout} {
		m := oh.Find(t)
		if m == nil {
			return nil, fmt.Errorf("dataset %q has no message type 0x%02X", path, t)
		}
		msgs[t] = m.Data
	}

	space, err := core.ParseDataspaceMessage(msgs[core.MsgDataspace])
	if err != nil {
		return nil, err
	}
	dt, err := core.ParseDatatypeMessage(msgs[core.MsgDatatype])
	if err != nil {
		return nil, err
	}
	kind, err := dt.ReferenceKind()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTypeMismatch, err)
	}
	layout, err := core.ParseDataLayoutMessage(msgs[core.MsgDataLayout])
	if err != nil {
		return nil, err
	}

	return &Dataset{
		id:      nextID(),
		file:    f,
		name:    path,
		address: addr,
		dims:    space.Dimensions,
		kind:    kind,
		layout:  layout,
	}, nil
}

// ID returns the handle ID.
func (ds *Dataset) ID() int64 { return ds.id }

// Name returns the path the dataset was opened by.
func (ds *Dataset) Name() string { return ds.name }

// Address returns the object header address, the value object
// references to this dataset hold.
func (ds *Dataset) Address() uint64 { return ds.address }

// Dims returns a copy of the dataset extent.
func (ds *Dataset) Dims() []uint64 { return slices.Clone(ds.dims) }

// Datatype returns the element type.
func (ds *Dataset) Datatype() Datatype { return datatypeOf(ds.kind) }

// ReadObjectRefs reads every element of an object reference dataset.
// Unwritten datasets read as null references.
func (ds *Dataset) ReadObjectRefs() ([]ObjectRef, error) {
	raw, err := ds.readRaw(core.RefObject)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("read dataset %q", ds.name), err)
	}
	refs := make([]ObjectRef, len(raw)/core.ObjectRefSize)
	for i := range refs {
		refs[i] = ObjectRef(binary.LittleEndian.Uint64(raw[i*core.ObjectRefSize:]))
	}
	return refs, nil
}

// ReadRegionRefs reads every element of a region reference dataset.
func (ds *Dataset) ReadRegionRefs() ([]RegionRef, error) {
	raw, err := ds.readRaw(core.RefDatasetRegion)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("read dataset %q", ds.name), err)
	}
	refs := make([]RegionRef, len(raw)/core.RegionRefSize)
	for i := range refs {
		id, err := core.ParseGlobalHeapID(raw[i*core.RegionRefSize:])
		if err != nil {
			return nil, utils.WrapError(fmt.Sprintf("read dataset %q", ds.name), err)
		}
		refs[i] = RegionRef{Collection: id.Collection, Index: id.Index}
	}
	return refs, nil
}

func (ds *Dataset) readRaw(want core.ReferenceKind) ([]byte, error) {
	if ds.closed {
		return nil, ErrClosed
	}
	if ds.file.closed {
		return nil, fmt.Errorf("file: %w", ErrClosed)
	}
	if ds.kind != want {
		return nil, fmt.Errorf("%w: dataset holds %s references, not %s", ErrTypeMismatch, ds.kind, want)
	}

	elemSize, err := want.ElementSize()
	if err != nil {
		return nil, err
	}
	size, err := utils.StorageSize(ds.dims, uint64(elemSize))
	if err != nil {
		return nil, err
	}
	if err := utils.ValidateBufferSize(size, utils.MaxChunkSize, "dataset"); err != nil {
		return nil, fmt.Errorf("dataset too large: %w", err)
	}

	switch {
	case !ds.layout.IsAllocated():
		return make([]byte, size), nil
	case ds.layout.Class == core.LayoutCompact:
		if uint64(len(ds.layout.CompactData)) != size {
			return nil, fmt.Errorf("compact data holds %d bytes, want %d", len(ds.layout.CompactData), size)
		}
		return ds.layout.CompactData, nil
	}

	if ds.layout.DataSize != size {
		return nil, fmt.Errorf("stored data size %d, want %d", ds.layout.DataSize, size)
	}
	if ds.layout.DataAddress > ds.file.size || size > ds.file.size-ds.layout.DataAddress {
		return nil, fmt.Errorf("data at 0x%X (%d bytes) extends beyond end of file (%d bytes)",
			ds.layout.DataAddress, size, ds.file.size)
	}
	buf := make([]byte, size)
	if _, err := ds.file.osFile.ReadAt(buf, int64(ds.layout.DataAddress)); err != nil { //nolint:gosec // G115: HDF5 addresses fit in int64
		return nil, fmt.Errorf("read data at 0x%X: %w", ds.layout.DataAddress, err)
	}
	return buf, nil
}

// Close releases the dataset handle. Closing twice is a no-op.
func (ds *Dataset) Close() error {
	ds.closed = true
	return nil
}
