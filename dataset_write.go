package h5ref

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/utils"
)

// Header message flag marking a message as constant.
const msgFlagConstant = 0x01

// DatasetWriter provides write access to a reference dataset.
type DatasetWriter struct {
	id        int64
	fw        *FileWriter
	info      *datasetInfo
	elemSize  uint64
	dataSize  uint64
	header    *core.ObjectHeaderWriter
	layoutIdx int
	dataAddr  uint64
	closed    bool
}

// CreateDataset creates a dataset in the root group with the extent of
// space. Storage is contiguous and allocated on first write.
//
// Example:
//
//	space, _ := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
//	ds, err := fw.CreateDataset("/testDs", h5ref.ObjectReference, space)
func (fw *FileWriter) CreateDataset(name string, dtype Datatype, space *Dataspace) (*DatasetWriter, error) {
	dw, err := fw.createDataset(name, dtype, space)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("create dataset %q", name), err)
	}
	return dw, nil
}

func (fw *FileWriter) createDataset(name string, dtype Datatype, space *Dataspace) (*DatasetWriter, error) {
	if err := fw.checkOpen(); err != nil {
		return nil, err
	}
	if space == nil || space.closed {
		return nil, fmt.Errorf("dataspace: %w", ErrClosed)
	}
	link, err := linkName(name)
	if err != nil {
		return nil, err
	}
	if err := fw.root.checkRoom(link); err != nil {
		return nil, err
	}
	if space.maxDims != nil && !slices.Equal(space.maxDims, space.dims) {
		return nil, fmt.Errorf("%w: contiguous datasets cannot grow (maxDims %v)", ErrShapeMismatch, space.maxDims)
	}

	kind, err := dtype.referenceKind()
	if err != nil {
		return nil, err
	}
	dt, err := core.NewReferenceDatatype(kind)
	if err != nil {
		return nil, err
	}
	dtData, err := core.EncodeDatatypeMessage(dt)
	if err != nil {
		return nil, fmt.Errorf("encode datatype: %w", err)
	}
	spaceData, err := core.EncodeDataspaceMessage(space.dims, space.maxDims)
	if err != nil {
		return nil, fmt.Errorf("encode dataspace: %w", err)
	}
	dataSize, err := utils.StorageSize(space.dims, uint64(dt.Size))
	if err != nil {
		return nil, err
	}

	header := &core.ObjectHeaderWriter{Messages: []core.MessageWriter{
		{Type: core.MsgDataspace, Data: spaceData},
		{Type: core.MsgDatatype, Flags: msgFlagConstant, Data: dtData},
		{Type: core.MsgFillValue, Flags: msgFlagConstant, Data: core.DefaultFillValue().Encode()},
		{Type: core.MsgDataLayout, Data: core.EncodeLayoutMessage(core.UndefinedAddress, dataSize)},
	}}

	addr, err := fw.writer.Allocate(header.Size())
	if err != nil {
		return nil, fmt.Errorf("allocate object header: %w", err)
	}
	if err := header.WriteTo(fw.writer, addr); err != nil {
		return nil, err
	}
	if err := fw.root.link(fw.writer, link, addr); err != nil {
		return nil, err
	}

	info := &datasetInfo{
		name:    name,
		address: addr,
		kind:    kind,
		dims:    slices.Clone(space.dims),
	}
	fw.datasets[addr] = info

	return &DatasetWriter{
		id:        nextID(),
		fw:        fw,
		info:      info,
		elemSize:  uint64(dt.Size),
		dataSize:  dataSize,
		header:    header,
		layoutIdx: len(header.Messages) - 1,
		dataAddr:  core.UndefinedAddress,
	}, nil
}

// ID returns the handle ID.
func (dw *DatasetWriter) ID() int64 { return dw.id }

// Name returns the dataset path.
func (dw *DatasetWriter) Name() string { return dw.info.name }

// Address returns the file address of the dataset's object header.
func (dw *DatasetWriter) Address() uint64 { return dw.info.address }

// Datatype returns the element type.
func (dw *DatasetWriter) Datatype() Datatype { return datatypeOf(dw.info.kind) }

// Dims returns a copy of the dataset extent.
func (dw *DatasetWriter) Dims() []uint64 { return slices.Clone(dw.info.dims) }

// Write stores the whole dataset. data must be []ObjectRef for object
// reference datasets or []RegionRef for region reference datasets, with
// one element per dataset element in row-major order.
//
// Example:
//
//	ref, _ := fw.CreateObjectRef("/testDs")
//	err := ds.Write([]h5ref.ObjectRef{ref, ref, ref})
func (dw *DatasetWriter) Write(data any) error {
	if err := dw.write(data); err != nil {
		return utils.WrapError(fmt.Sprintf("write dataset %q", dw.info.name), err)
	}
	return nil
}

func (dw *DatasetWriter) write(data any) error {
	if dw.closed {
		return ErrClosed
	}
	if err := dw.fw.checkOpen(); err != nil {
		return fmt.Errorf("file: %w", err)
	}

	buf, err := dw.encode(data)
	if err != nil {
		return err
	}

	if dw.dataAddr == core.UndefinedAddress {
		addr, err := dw.fw.writer.Allocate(dw.dataSize)
		if err != nil {
			return fmt.Errorf("allocate data: %w", err)
		}
		dw.header.Messages[dw.layoutIdx].Data = core.EncodeLayoutMessage(addr, dw.dataSize)
		if err := dw.header.WriteTo(dw.fw.writer, dw.info.address); err != nil {
			return fmt.Errorf("update layout: %w", err)
		}
		dw.dataAddr = addr
	}

	if err := dw.fw.writer.WriteAtAddress(buf, dw.dataAddr); err != nil {
		return fmt.Errorf("write data: %w", err)
	}
	return nil
}

func (dw *DatasetWriter) encode(data any) ([]byte, error) {
	n := dw.dataSize / dw.elemSize
	buf := make([]byte, dw.dataSize)

	switch refs := data.(type) {
	case []ObjectRef:
		if dw.info.kind != core.RefObject {
			return nil, fmt.Errorf("%w: object references written to %s dataset", ErrTypeMismatch, datatypeOf(dw.info.kind))
		}
		if uint64(len(refs)) != n {
			return nil, fmt.Errorf("%w: %d references for %d elements", ErrShapeMismatch, len(refs), n)
		}
		for i, r := range refs {
			binary.LittleEndian.PutUint64(buf[i*core.ObjectRefSize:], uint64(r))
		}
	case []RegionRef:
		if dw.info.kind != core.RefDatasetRegion {
			return nil, fmt.Errorf("%w: region references written to %s dataset", ErrTypeMismatch, datatypeOf(dw.info.kind))
		}
		if uint64(len(refs)) != n {
			return nil, fmt.Errorf("%w: %d references for %d elements", ErrShapeMismatch, len(refs), n)
		}
		for i, r := range refs {
			copy(buf[i*core.RegionRefSize:], r.heapID().Encode())
		}
	default:
		return nil, fmt.Errorf("%w: cannot write %T to %s dataset", ErrTypeMismatch, data, datatypeOf(dw.info.kind))
	}
	return buf, nil
}

// Close releases the dataset handle. Closing twice is a no-op.
func (dw *DatasetWriter) Close() error {
	dw.closed = true
	return nil
}
