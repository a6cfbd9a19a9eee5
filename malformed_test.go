package h5ref_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/scigolib/h5ref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadObjectRefs_TooLarge(t *testing.T) {
	path := filepath.Join(t.TempDir(), "huge.h5")

	fw, err := h5ref.CreateForWrite(path, h5ref.CreateTruncate)
	require.NoError(t, err)
	space, err := h5ref.CreateSimpleDataspace([]uint64{1 << 28}, nil)
	require.NoError(t, err)
	_, err = fw.CreateDataset("/huge", h5ref.ObjectReference, space)
	require.NoError(t, err)
	require.NoError(t, fw.Close())

	f, err := h5ref.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.Dataset("/huge")
	require.NoError(t, err)
	_, err = ds.ReadObjectRefs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset too large")
}

func TestReadObjectRefs_TruncatedData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cut.h5")
	writeSelfRefs(t, path, h5ref.ObjectReference)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-8))

	f, err := h5ref.Open(path)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.Dataset("/testDs")
	require.NoError(t, err)
	_, err = ds.ReadObjectRefs()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "extends beyond end of file")
}

func TestDataset_CorruptChunkSize(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flags.h5")
	writeSelfRefs(t, path, h5ref.ObjectReference)

	f, err := h5ref.Open(path)
	require.NoError(t, err)
	ds, err := f.Dataset("/testDs")
	require.NoError(t, err)
	addr := ds.Address()
	require.NoError(t, f.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[addr+5] = 0x03
	for i := addr + 6; i < addr+14; i++ {
		data[i] = 0xFF
	}
	require.NoError(t, os.WriteFile(path, data, 0o600))

	f, err = h5ref.Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.Dataset("/testDs")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds maximum")
}
