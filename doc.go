// Package h5ref writes and reads HDF5 files holding object and
// dataset-region references.
//
// It covers the small slice of HDF5 needed to create reference datasets in
// the root group of a new file, point them at other datasets, and resolve
// them again:
//
//	fw, err := h5ref.CreateForWrite("refs.h5", h5ref.CreateTruncate)
//	if err != nil {
//	    return err
//	}
//	defer fw.Close()
//
//	space, _ := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
//	defer space.Close()
//
//	ds, _ := fw.CreateDataset("/refs", h5ref.ObjectReference, space)
//	ref, _ := fw.CreateObjectRef("/refs")
//	_ = ds.Write([]h5ref.ObjectRef{ref, ref, ref})
//	_ = ds.Close()
//
// Files use superblock version 2 and version 2 object headers, both
// protected by lookup3 checksums. Region references store their
// selection in a global heap collection.
package h5ref
