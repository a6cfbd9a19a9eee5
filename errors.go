package h5ref

import (
	"errors"
	"io"

	"github.com/scigolib/h5ref/internal/utils"
)

// Errors returned by handle operations. Match them with errors.Is.
var (
	ErrClosed           = errors.New("handle is closed")
	ErrNotFound         = errors.New("object not found")
	ErrExists           = errors.New("object already exists")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrTypeMismatch     = errors.New("datatype mismatch")
	ErrInvalidSelection = errors.New("invalid selection")
)

// FormatTrace writes err as an error stack, one frame per call layer,
// outermost first:
//
//	H5REF-DIAG: Error detected in h5ref:
//	  #000: create region reference "/testDs"
//	  #001: invalid selection
func FormatTrace(w io.Writer, err error) {
	utils.PrintStack(w, err)
}
