package h5ref

import (
	"fmt"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/utils"
)

// ObjectRef refers to an object by the address of its object header.
type ObjectRef uint64

// IsNull reports whether the reference points nowhere.
func (r ObjectRef) IsNull() bool { return r == 0 }

// RegionRef refers to a dataset plus a selection of its elements. The
// target and selection live in a global heap object.
type RegionRef struct {
	Collection uint64
	Index      uint32
}

// IsNull reports whether the reference points nowhere.
func (r RegionRef) IsNull() bool { return r.Collection == 0 && r.Index == 0 }

func (r RegionRef) heapID() core.GlobalHeapID {
	return core.GlobalHeapID{Collection: r.Collection, Index: r.Index}
}

// CreateObjectRef returns a reference to the object at path. The object
// must already exist in the file.
func (fw *FileWriter) CreateObjectRef(path string) (ObjectRef, error) {
	if err := fw.checkOpen(); err != nil {
		return 0, utils.WrapError(fmt.Sprintf("create object reference %q", path), err)
	}
	addr, err := fw.root.lookup(path)
	if err != nil {
		return 0, utils.WrapError(fmt.Sprintf("create object reference %q", path), err)
	}
	return ObjectRef(addr), nil
}

// CreateRegionRef returns a reference to the elements of dataset path
// selected in space. The selection must lie inside the dataset's extent.
//
// Example:
//
//	_ = space.SelectHyperslab(h5ref.SelectSet, []uint64{0}, nil, []uint64{2}, nil)
//	ref, err := fw.CreateRegionRef("/testDs", space)
func (fw *FileWriter) CreateRegionRef(path string, space *Dataspace) (RegionRef, error) {
	ref, err := fw.createRegionRef(path, space)
	if err != nil {
		return RegionRef{}, utils.WrapError(fmt.Sprintf("create region reference %q", path), err)
	}
	return ref, nil
}

func (fw *FileWriter) createRegionRef(path string, space *Dataspace) (RegionRef, error) {
	if err := fw.checkOpen(); err != nil {
		return RegionRef{}, err
	}
	if space == nil || space.closed {
		return RegionRef{}, fmt.Errorf("dataspace: %w", ErrClosed)
	}

	addr, err := fw.root.lookup(path)
	if err != nil {
		return RegionRef{}, err
	}
	target, ok := fw.datasets[addr]
	if !ok {
		return RegionRef{}, fmt.Errorf("%w: %q is not a dataset", ErrNotFound, path)
	}
	if err := space.sel.fitsExtent(target.dims); err != nil {
		return RegionRef{}, err
	}

	obj, err := core.EncodeRegionObject(addr, space.sel.encode())
	if err != nil {
		return RegionRef{}, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}
	id, err := fw.heap.add(obj)
	if err != nil {
		return RegionRef{}, fmt.Errorf("store selection: %w", err)
	}
	return RegionRef{Collection: id.Collection, Index: id.Index}, nil
}
