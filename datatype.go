package h5ref

import (
	"fmt"

	"github.com/scigolib/h5ref/internal/core"
)

// Datatype selects the element type of a dataset.
type Datatype int

// Supported element types.
const (
	// ObjectReference elements hold the address of an object header (8 bytes).
	ObjectReference Datatype = iota + 1
	// RegionReference elements point at a dataset plus a selection
	// stored in the global heap (12 bytes).
	RegionReference
)

func (dt Datatype) String() string {
	switch dt {
	case ObjectReference:
		return "object reference"
	case RegionReference:
		return "region reference"
	default:
		return fmt.Sprintf("Datatype(%d)", int(dt))
	}
}

func (dt Datatype) referenceKind() (core.ReferenceKind, error) {
	switch dt {
	case ObjectReference:
		return core.RefObject, nil
	case RegionReference:
		return core.RefDatasetRegion, nil
	default:
		return 0, fmt.Errorf("%w: unsupported %s", ErrTypeMismatch, dt)
	}
}

func datatypeOf(kind core.ReferenceKind) Datatype {
	if kind == core.RefDatasetRegion {
		return RegionReference
	}
	return ObjectReference
}
