// Package selfref runs the reference self-check: it writes a dataset of
// references that all point back at the dataset itself, printing the
// status of every library call.
package selfref

import (
	"errors"
	"fmt"

	"github.com/scigolib/h5ref"
	"github.com/scigolib/h5ref/internal/logging"
)

// FailStatus is printed for a failed call.
const FailStatus = -1

// StepError reports the first call that failed.
type StepError struct {
	Label  string
	Status int64
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("%s: %d", e.Label, e.Status)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Run executes the call sequence for cfg. Each call prints "<label>:
// <status>"; the first failure prints the library trace and is returned
// as a *StepError. Handles still open at that point are released before
// Run returns.
func Run(cfg Config, log *logging.Logger) error {
	return run(cfg, log, hooks{})
}

// hooks lets tests fail a step after its call succeeded and observe
// releases.
type hooks struct {
	fail     func(label string) error
	released func(name string)
}

func run(cfg Config, log *logging.Logger, h hooks) (err error) {
	if err := cfg.Validate(); err != nil {
		return err
	}

	sc := scope{released: h.released}
	defer func() {
		if cerr := sc.Close(); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}()

	r := reporter{log: log, fail: h.fail}

	fw, err := h5ref.CreateForWrite(cfg.Path, h5ref.CreateTruncate)
	if err := r.step("create fileId", id(fw), err); err != nil {
		return err
	}
	fileGuard := sc.acquire("file", fw.Close)

	space, err := h5ref.CreateSimpleDataspace([]uint64{cfg.Length}, nil)
	if err := r.step("spaceId", id(space), err); err != nil {
		return err
	}
	sc.acquire("spaceId", space.Close)

	dtype := h5ref.ObjectReference
	if cfg.Kind == RegionRefs {
		dtype = h5ref.RegionReference
	}
	ds, err := fw.CreateDataset(cfg.Dataset, dtype, space)
	if err := r.step("dsId", id(ds), err); err != nil {
		return err
	}
	dsGuard := sc.acquire("dsId", ds.Close)

	refSpace, err := h5ref.CreateSimpleDataspace([]uint64{cfg.Length}, nil)
	if err := r.step("refSpaceId", id(refSpace), err); err != nil {
		return err
	}
	sc.acquire("refSpaceId", refSpace.Close)

	var data any
	switch cfg.Kind {
	case RegionRefs:
		err = space.SelectHyperslab(h5ref.SelectSet, []uint64{cfg.Start}, nil, []uint64{cfg.Count}, nil)
		if err := r.step("hyperslab ires a", 0, err); err != nil {
			return err
		}
		refs := make([]h5ref.RegionRef, cfg.Length)
		for i := range refs {
			refs[i], err = fw.CreateRegionRef(cfg.Dataset, space)
			if err := r.step(refLabel(i), 0, err); err != nil {
				return err
			}
		}
		data = refs
	default:
		refs := make([]h5ref.ObjectRef, cfg.Length)
		for i := range refs {
			refs[i], err = fw.CreateObjectRef(cfg.Dataset)
			if err := r.step(refLabel(i), 0, err); err != nil {
				return err
			}
		}
		data = refs
	}

	if err := r.step("ref write ires", 0, ds.Write(data)); err != nil {
		return err
	}
	if err := r.step("close dsId ires", 0, dsGuard.Release()); err != nil {
		return err
	}
	return r.step("file close ires", 0, fileGuard.Release())
}

// refLabel names the i-th reference step: a, b, c, ...
func refLabel(i int) string {
	if i < 26 {
		return fmt.Sprintf("ref create ires %c", 'a'+i)
	}
	return fmt.Sprintf("ref create ires %d", i)
}

type handle interface {
	ID() int64
}

// id returns the handle ID, or 0 when the creation failed.
func id[H handle](h H) int64 {
	var zero H
	if any(h) == any(zero) {
		return 0
	}
	return h.ID()
}

type reporter struct {
	log  *logging.Logger
	fail func(label string) error
}

// step prints the status line for one call. On failure it prints the
// failure status and the library's trace, and returns a *StepError.
func (r reporter) step(label string, status int64, err error) error {
	if err == nil && r.fail != nil {
		err = r.fail(label)
	}
	if err == nil {
		r.log.Out("%s: %d", label, status)
		return nil
	}
	r.log.Fail("%s: %d", label, FailStatus)
	r.log.Fail("bad ires: %d", FailStatus)
	h5ref.FormatTrace(r.log.TraceWriter(), err)
	return &StepError{Label: label, Status: FailStatus, Err: err}
}
