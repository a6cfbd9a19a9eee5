package utils

import (
	"errors"
	"fmt"
	"io"
	"strings"
)

// H5Error represents a structured HDF5 error.
// Each layer of a failed call adds one H5Error so the chain reads like
// the library's error stack, outermost call first.
type H5Error struct {
	Context string
	Cause   error
}

// Error implements the error interface.
func (e *H5Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Context, e.Cause)
}

// Unwrap provides compatibility with errors.Unwrap().
func (e *H5Error) Unwrap() error {
	return e.Cause
}

// WrapError creates a contextual error.
func WrapError(context string, cause error) error {
	if cause == nil {
		return nil
	}
	return &H5Error{
		Context: context,
		Cause:   cause,
	}
}

// Frames flattens an error chain into stack frames.
// H5Error layers contribute their context; the innermost non-H5Error
// contributes its full message.
func Frames(err error) []string {
	var frames []string
	for err != nil {
		if h5, ok := err.(*H5Error); ok {
			frames = append(frames, h5.Context)
			err = h5.Cause
			continue
		}
		next := errors.Unwrap(err)
		if next == nil {
			frames = append(frames, err.Error())
			break
		}
		// fmt.Errorf("prefix: %w") layers keep only their own prefix.
		msg := err.Error()
		prefix := strings.TrimSuffix(strings.TrimSuffix(msg, next.Error()), ": ")
		if prefix == msg || prefix == "" {
			frames = append(frames, msg)
			break
		}
		frames = append(frames, prefix)
		err = next
	}
	return frames
}

// PrintStack writes the formatted error stack of err to w.
//
// Output format:
//
//	H5REF-DIAG: Error detected in h5ref:
//	  #000: create dataset
//	  #001: allocate data: writer is closed
func PrintStack(w io.Writer, err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(w, "H5REF-DIAG: Error detected in h5ref:")
	for i, frame := range Frames(err) {
		fmt.Fprintf(w, "  #%03d: %s\n", i, frame)
	}
}
