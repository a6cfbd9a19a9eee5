// Command h5refdump lists the reference datasets of an HDF5 file and
// resolves every element. With --hex it dumps raw bytes instead.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/scigolib/h5ref"
)

func makeApp(stdout, stderr io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "h5refdump"
	app.Usage = "Show the references stored in an HDF5 file"
	app.UsageText = "h5refdump [--hex [--offset N] [--length N]] <file.h5>"
	app.Writer = stdout
	app.ErrWriter = stderr
	app.HideVersion = true
	app.Flags = []cli.Flag{
		&cli.BoolFlag{
			Name:  "hex",
			Usage: "Dump raw bytes instead of resolving references",
		},
		&cli.Int64Flag{
			Name:  "offset",
			Usage: "Offset in file to start dumping from",
		},
		&cli.IntFlag{
			Name:  "length",
			Usage: "Number of bytes to dump",
			Value: 128,
		},
	}
	app.Action = func(c *cli.Context) error {
		if c.Args().Len() != 1 {
			return errors.New("expected exactly one file")
		}
		if c.Bool("hex") {
			return hexDump(c.App.Writer, c.Args().First(), c.Int64("offset"), c.Int("length"))
		}
		return dumpRefs(c.App.Writer, c.Args().First())
	}
	app.ExitErrHandler = func(c *cli.Context, err error) {
		if err == nil {
			return
		}
		fmt.Fprintln(c.App.ErrWriter, "error:", err)
		h5ref.FormatTrace(c.App.ErrWriter, err)
	}
	return app
}

func dumpRefs(w io.Writer, path string) (err error) {
	f, err := h5ref.Open(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	for _, name := range f.Datasets() {
		ds, err := f.Dataset(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %s %v\n", name, ds.Datatype(), ds.Dims())
		err = dumpDataset(w, f, ds)
		_ = ds.Close()
		if err != nil {
			return err
		}
	}
	return nil
}

func dumpDataset(w io.Writer, f *h5ref.File, ds *h5ref.Dataset) error {
	switch ds.Datatype() {
	case h5ref.RegionReference:
		refs, err := ds.ReadRegionRefs()
		if err != nil {
			return err
		}
		for i, ref := range refs {
			if ref.IsNull() {
				fmt.Fprintf(w, "  [%d] null\n", i)
				continue
			}
			target, sel, err := f.ResolveRegion(ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  [%d] -> %s %s\n", i, target.Name(), sel)
			_ = target.Close()
		}
	default:
		refs, err := ds.ReadObjectRefs()
		if err != nil {
			return err
		}
		for i, ref := range refs {
			if ref.IsNull() {
				fmt.Fprintf(w, "  [%d] null\n", i)
				continue
			}
			target, err := f.Dereference(ref)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, "  [%d] -> %s\n", i, target.Name())
			_ = target.Close()
		}
	}
	return nil
}

func hexDump(w io.Writer, path string, offset int64, length int) error {
	f, err := os.Open(path) //nolint:gosec // G304: dumping user-named files is the point
	if err != nil {
		return fmt.Errorf("open: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat: %w", err)
	}
	size := info.Size()
	if offset < 0 || offset >= size {
		return fmt.Errorf("invalid offset: %d (file size: %d)", offset, size)
	}
	if length < 1 {
		return fmt.Errorf("invalid length: %d", length)
	}

	buf := make([]byte, min(int64(length), size-offset))
	n, err := f.ReadAt(buf, offset)
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read at %d: %w", offset, err)
	}

	fmt.Fprintf(w, "Dumping %d bytes at offset 0x%x (%d) of %s (size: %d bytes):\n", n, offset, offset, path, size)
	for i := 0; i < n; i += 16 {
		chunk := buf[i:min(i+16, n)]
		fmt.Fprintf(w, "%08x: ", offset+int64(i))
		for j := 0; j < 16; j++ {
			if j < len(chunk) {
				fmt.Fprintf(w, "%02x ", chunk[j])
			} else {
				fmt.Fprint(w, "   ")
			}
			if j == 7 {
				fmt.Fprint(w, " ")
			}
		}
		fmt.Fprint(w, " |")
		for _, b := range chunk {
			if b >= 32 && b <= 126 {
				fmt.Fprintf(w, "%c", b)
			} else {
				fmt.Fprint(w, ".")
			}
		}
		fmt.Fprintln(w, "|")
	}
	return nil
}

func main() {
	if err := makeApp(os.Stdout, os.Stderr).Run(os.Args); err != nil {
		os.Exit(1)
	}
}
