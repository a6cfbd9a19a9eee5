package selfref

import (
	"fmt"

	"github.com/scigolib/h5ref"
	"github.com/scigolib/h5ref/internal/logging"
)

// Verify reopens the file written by Run and checks that every stored
// reference resolves to the dataset holding it. Region references must
// also select [Start, Start+Count).
func Verify(cfg Config, log *logging.Logger) error {
	r := reporter{log: log}
	err := verify(cfg, log)
	if err != nil {
		return r.step("verify", 0, err)
	}
	return nil
}

func verify(cfg Config, log *logging.Logger) (err error) {
	f, err := h5ref.Open(cfg.Path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	ds, err := f.Dataset(cfg.Dataset)
	if err != nil {
		return err
	}
	defer ds.Close()

	if dims := ds.Dims(); len(dims) != 1 || dims[0] != cfg.Length {
		return fmt.Errorf("%s: shape %v, want [%d]", cfg.Dataset, dims, cfg.Length)
	}

	switch cfg.Kind {
	case RegionRefs:
		refs, err := ds.ReadRegionRefs()
		if err != nil {
			return err
		}
		for i, ref := range refs {
			target, sel, err := f.ResolveRegion(ref)
			if err != nil {
				return fmt.Errorf("reference %d: %w", i, err)
			}
			name := target.Name()
			_ = target.Close()
			if err := checkTarget(cfg, i, name); err != nil {
				return err
			}
			start, end, err := sel.Bounds()
			if err != nil {
				return fmt.Errorf("reference %d: %w", i, err)
			}
			if sel.NumPoints() != cfg.Count || start[0] != cfg.Start || end[0] != cfg.Start+cfg.Count-1 {
				return fmt.Errorf("reference %d: selection %s, want %d-%d", i, sel, cfg.Start, cfg.Start+cfg.Count-1)
			}
			log.Out("deref %d: %s", i, name)
			log.Out("region %d: %d-%d", i, start[0], end[0])
		}
	default:
		refs, err := ds.ReadObjectRefs()
		if err != nil {
			return err
		}
		for i, ref := range refs {
			target, err := f.Dereference(ref)
			if err != nil {
				return fmt.Errorf("reference %d: %w", i, err)
			}
			name := target.Name()
			_ = target.Close()
			if err := checkTarget(cfg, i, name); err != nil {
				return err
			}
			log.Out("deref %d: %s", i, name)
		}
	}
	return nil
}

func checkTarget(cfg Config, i int, name string) error {
	if name != cfg.Dataset {
		return fmt.Errorf("reference %d points at %s, want %s", i, name, cfg.Dataset)
	}
	return nil
}
