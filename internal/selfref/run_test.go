package selfref

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scigolib/h5ref"
	"github.com/scigolib/h5ref/internal/logging"
)

func newLogger(t *testing.T) (*logging.Logger, *bytes.Buffer) {
	t.Helper()
	prev := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = prev })

	var out bytes.Buffer
	log := logging.NewLogger(&out, &bytes.Buffer{}, false)
	return &log, &out
}

func labels(t *testing.T, output string) []string {
	t.Helper()
	line := regexp.MustCompile(`^(.+): (-?\d+)$`)
	var got []string
	for _, l := range strings.Split(strings.TrimSuffix(output, "\n"), "\n") {
		m := line.FindStringSubmatch(l)
		require.NotNil(t, m, "unexpected line %q", l)
		got = append(got, m[1])
	}
	return got
}

func TestRun_ObjectRefs(t *testing.T) {
	log, out := newLogger(t)
	path := filepath.Join(t.TempDir(), "refs.h5")

	require.NoError(t, Run(DefaultConfig(path), log))

	assert.Equal(t, []string{
		"create fileId", "spaceId", "dsId", "refSpaceId",
		"ref create ires a", "ref create ires b", "ref create ires c",
		"ref write ires", "close dsId ires", "file close ires",
	}, labels(t, out.String()))
	assert.Regexp(t, `(?m)^create fileId: [1-9]\d*$`, out.String())
	assert.Regexp(t, `(?m)^dsId: [1-9]\d*$`, out.String())
	assert.Contains(t, out.String(), "ref write ires: 0\n")

	f, err := h5ref.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.Dataset("/testDs")
	require.NoError(t, err)
	refs, err := ds.ReadObjectRefs()
	require.NoError(t, err)
	require.Len(t, refs, 3)
	for _, ref := range refs {
		assert.Equal(t, ds.Address(), uint64(ref))
	}
}

func TestRun_RegionRefs(t *testing.T) {
	log, out := newLogger(t)
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "region.h5"))
	cfg.Kind = RegionRefs

	require.NoError(t, Run(cfg, log))
	assert.Equal(t, []string{
		"create fileId", "spaceId", "dsId", "refSpaceId", "hyperslab ires a",
		"ref create ires a", "ref create ires b", "ref create ires c",
		"ref write ires", "close dsId ires", "file close ires",
	}, labels(t, out.String()))

	out.Reset()
	cfg.Verify = true
	require.NoError(t, Verify(cfg, log))
	assert.Equal(t,
		"deref 0: /testDs\nregion 0: 0-1\n"+
			"deref 1: /testDs\nregion 1: 0-1\n"+
			"deref 2: /testDs\nregion 2: 0-1\n",
		out.String())
}

func TestRun_Overwrites(t *testing.T) {
	log, _ := newLogger(t)
	path := filepath.Join(t.TempDir(), "again.h5")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte{0xFF}, 10000), 0o600))

	require.NoError(t, Run(DefaultConfig(path), log))
	require.NoError(t, Run(DefaultConfig(path), log))
	require.NoError(t, Verify(DefaultConfig(path), log))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Less(t, info.Size(), int64(10000))
}

func TestRun_LongerPlan(t *testing.T) {
	log, out := newLogger(t)
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "long.h5"))
	cfg.Kind = RegionRefs
	cfg.Length, cfg.Start, cfg.Count = 30, 4, 10

	require.NoError(t, Run(cfg, log))
	assert.Contains(t, out.String(), "ref create ires z: 0\n")
	assert.Contains(t, out.String(), "ref create ires 29: 0\n")

	out.Reset()
	require.NoError(t, Verify(cfg, log))
	assert.Contains(t, out.String(), "region 29: 4-13\n")
}

func TestRun_CreateFails(t *testing.T) {
	log, out := newLogger(t)
	path := filepath.Join(t.TempDir(), "missing", "refs.h5")

	err := Run(DefaultConfig(path), log)
	require.Error(t, err)

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	assert.Equal(t, "create fileId", stepErr.Label)
	assert.Equal(t, int64(FailStatus), stepErr.Status)
	assert.Equal(t, "create fileId: -1", stepErr.Error())
	assert.ErrorIs(t, err, os.ErrNotExist)

	assert.True(t, strings.HasPrefix(out.String(),
		"create fileId: -1\nbad ires: -1\nH5REF-DIAG: Error detected in h5ref:\n  #000: create file "))
	assert.NoFileExists(t, path)
}

func TestRun_InvalidConfig(t *testing.T) {
	log, out := newLogger(t)
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "x.h5"))
	cfg.Length = 0

	err := Run(cfg, log)
	require.ErrorContains(t, err, "length must be positive")
	assert.Empty(t, out.String())
}

func TestVerify_WrongKind(t *testing.T) {
	log, out := newLogger(t)
	cfg := DefaultConfig(filepath.Join(t.TempDir(), "kind.h5"))
	require.NoError(t, Run(cfg, log))

	out.Reset()
	cfg.Kind = RegionRefs
	err := Verify(cfg, log)
	require.Error(t, err)
	assert.ErrorIs(t, err, h5ref.ErrTypeMismatch)
	assert.True(t, strings.HasPrefix(out.String(), "verify: -1\nbad ires: -1\n"))
}

func TestVerify_MissingFile(t *testing.T) {
	log, _ := newLogger(t)
	err := Verify(DefaultConfig(filepath.Join(t.TempDir(), "none.h5")), log)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestScope_ReleasesInReverse(t *testing.T) {
	var order []string
	sc := scope{released: func(name string) { order = append(order, name) }}
	sc.acquire("file", func() error { return nil })
	early := sc.acquire("dataset", func() error { return nil })
	sc.acquire("space", func() error { return errors.New("boom") })

	require.NoError(t, early.Release())
	require.NoError(t, early.Release())

	err := sc.Close()
	require.EqualError(t, err, "boom")
	assert.Equal(t, []string{"dataset", "space", "file"}, order)
	require.NoError(t, sc.Close())
}

func TestRun_FailureReleasesHandles(t *testing.T) {
	tests := []struct {
		label    string
		kind     RefKind
		released []string
	}{
		{"success", ObjectRefs, []string{"dsId", "file", "refSpaceId", "spaceId"}},
		{"dsId", ObjectRefs, []string{"spaceId", "file"}},
		{"refSpaceId", ObjectRefs, []string{"dsId", "spaceId", "file"}},
		{"hyperslab ires a", RegionRefs, []string{"refSpaceId", "dsId", "spaceId", "file"}},
		{"ref create ires b", ObjectRefs, []string{"refSpaceId", "dsId", "spaceId", "file"}},
		{"ref create ires c", RegionRefs, []string{"refSpaceId", "dsId", "spaceId", "file"}},
		{"ref write ires", ObjectRefs, []string{"refSpaceId", "dsId", "spaceId", "file"}},
		{"close dsId ires", ObjectRefs, []string{"dsId", "refSpaceId", "spaceId", "file"}},
		{"file close ires", ObjectRefs, []string{"dsId", "file", "refSpaceId", "spaceId"}},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			log, out := newLogger(t)
			cfg := DefaultConfig(filepath.Join(t.TempDir(), "fail.h5"))
			cfg.Kind = tt.kind
			injected := errors.New("injected")

			var released []string
			err := run(cfg, log, hooks{
				fail: func(label string) error {
					if label == tt.label {
						return injected
					}
					return nil
				},
				released: func(name string) { released = append(released, name) },
			})

			assert.Equal(t, tt.released, released)

			if tt.label == "success" {
				require.NoError(t, err)
			} else {
				var stepErr *StepError
				require.ErrorAs(t, err, &stepErr)
				assert.Equal(t, tt.label, stepErr.Label)
				assert.ErrorIs(t, err, injected)
				assert.Contains(t, out.String(), tt.label+": -1\nbad ires: -1\n")
			}

			// The file handle was closed, so the superblock is final.
			f, err := h5ref.Open(cfg.Path)
			require.NoError(t, err)
			require.NoError(t, f.Close())
		})
	}
}

func TestRefLabel(t *testing.T) {
	assert.Equal(t, "ref create ires a", refLabel(0))
	assert.Equal(t, "ref create ires c", refLabel(2))
	assert.Equal(t, "ref create ires 26", refLabel(26))
}
