package h5ref

import (
	"errors"
	"fmt"
	"os"

	"github.com/scigolib/h5ref/internal/core"
	"github.com/scigolib/h5ref/internal/utils"
)

// File represents an HDF5 file opened for reading.
type File struct {
	id     int64
	osFile *os.File
	size   uint64
	sb     *core.Superblock
	links  map[string]uint64
	order  []string
	closed bool
}

// Open opens an HDF5 file for reading and loads its root group.
// Only compact root groups are supported.
func Open(filename string) (*File, error) {
	f, err := openFile(filename)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("open file %q", filename), err)
	}
	return f, nil
}

func openFile(filename string) (*File, error) {
	osFile, err := os.Open(filename) //nolint:gosec // G304: opening user-named files is the point
	if err != nil {
		return nil, err
	}

	info, err := osFile.Stat()
	if err != nil {
		_ = osFile.Close()
		return nil, err
	}

	sb, err := core.ReadSuperblock(osFile)
	if err != nil {
		_ = osFile.Close()
		return nil, err
	}

	file := &File{
		id:     nextID(),
		osFile: osFile,
		size:   uint64(info.Size()), //nolint:gosec // G115: file sizes are non-negative
		sb:     sb,
		links:  make(map[string]uint64),
	}
	if err := file.loadRoot(); err != nil {
		_ = osFile.Close()
		return nil, fmt.Errorf("root group: %w", err)
	}
	return file, nil
}

func (f *File) loadRoot() error {
	oh, err := core.ReadObjectHeader(f.osFile, f.sb.RootGroup)
	if err != nil {
		return err
	}
	if oh.Type != core.ObjectTypeGroup {
		return fmt.Errorf("object at 0x%X is a %s", f.sb.RootGroup, oh.Type)
	}

	if msg := oh.Find(core.MsgLinkInfo); msg != nil {
		info, err := core.ParseLinkInfoMessage(msg.Data)
		if err != nil {
			return err
		}
		if !info.IsCompact() {
			return errors.New("dense link storage is not supported")
		}
	} else if oh.Find(core.MsgSymbolTable) != nil {
		return errors.New("symbol table groups are not supported")
	}

	for _, msg := range oh.Messages {
		if msg.Type != core.MsgLink {
			continue
		}
		lm, err := core.ParseLinkMessage(msg.Data)
		if err != nil {
			return err
		}
		if lm.Type != core.LinkTypeHard {
			continue
		}
		f.links[lm.Name] = lm.Address
		f.order = append(f.order, lm.Name)
	}
	return nil
}

// ID returns the handle ID.
func (f *File) ID() int64 { return f.id }

// Superblock returns the parsed superblock.
func (f *File) Superblock() *core.Superblock { return f.sb }

// Datasets returns the paths of the hard links in the root group in
// the order they were created.
func (f *File) Datasets() []string {
	paths := make([]string, len(f.order))
	for i, name := range f.order {
		paths[i] = "/" + name
	}
	return paths
}

// Dataset opens the dataset at path.
func (f *File) Dataset(path string) (*Dataset, error) {
	ds, err := f.dataset(path)
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("open dataset %q", path), err)
	}
	return ds, nil
}

func (f *File) dataset(path string) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	name, err := linkName(path)
	if err != nil {
		return nil, err
	}
	addr, ok := f.links[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, path)
	}
	return f.openDataset(path, addr)
}

// pathOf returns the root-level path linking to addr.
func (f *File) pathOf(addr uint64) (string, bool) {
	for _, name := range f.order {
		if f.links[name] == addr {
			return "/" + name, true
		}
	}
	return "", false
}

// Dereference opens the dataset an object reference points at.
func (f *File) Dereference(ref ObjectRef) (*Dataset, error) {
	ds, err := f.dereference(uint64(ref))
	if err != nil {
		return nil, utils.WrapError(fmt.Sprintf("dereference object 0x%X", uint64(ref)), err)
	}
	return ds, nil
}

func (f *File) dereference(addr uint64) (*Dataset, error) {
	if f.closed {
		return nil, ErrClosed
	}
	if addr == 0 {
		return nil, fmt.Errorf("%w: null reference", ErrNotFound)
	}
	path, ok := f.pathOf(addr)
	if !ok {
		return nil, fmt.Errorf("%w: no link to object 0x%X", ErrNotFound, addr)
	}
	return f.openDataset(path, addr)
}

// ResolveRegion opens the dataset a region reference points at and
// returns the referenced selection.
func (f *File) ResolveRegion(ref RegionRef) (*Dataset, *Selection, error) {
	ds, sel, err := f.resolveRegion(ref)
	if err != nil {
		return nil, nil, utils.WrapError(fmt.Sprintf("resolve region %d@0x%X", ref.Index, ref.Collection), err)
	}
	return ds, sel, nil
}

func (f *File) resolveRegion(ref RegionRef) (*Dataset, *Selection, error) {
	if f.closed {
		return nil, nil, ErrClosed
	}
	if ref.IsNull() {
		return nil, nil, fmt.Errorf("%w: null reference", ErrNotFound)
	}

	gc, err := core.ReadGlobalHeapCollection(f.osFile, ref.Collection)
	if err != nil {
		return nil, nil, err
	}
	obj, err := gc.Object(ref.Index)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	addr, stored, err := core.ParseRegionObject(obj.Data)
	if err != nil {
		return nil, nil, err
	}

	ds, err := f.dereference(addr)
	if err != nil {
		return nil, nil, err
	}
	sel, err := decodeSelection(stored, ds.dims)
	if err != nil {
		return nil, nil, err
	}
	return ds, sel, nil
}

// Close closes the file. Closing twice is a no-op.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	return utils.WrapError("close file", f.osFile.Close())
}
