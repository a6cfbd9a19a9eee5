package core

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	h5test "github.com/scigolib/h5ref/internal/testing"
)

func TestGlobalHeapCollection_AddAndEncode(t *testing.T) {
	gc := NewGlobalHeapCollection(0x1000, 0)
	assert.Equal(t, uint64(GlobalHeapMinSize), gc.Size)

	id1, err := gc.Add([]byte("first"))
	require.NoError(t, err)
	id2, err := gc.Add([]byte("second object"))
	require.NoError(t, err)
	assert.Equal(t, GlobalHeapID{Collection: 0x1000, Index: 1}, id1)
	assert.Equal(t, GlobalHeapID{Collection: 0x1000, Index: 2}, id2)

	buf := gc.Encode()
	require.Len(t, buf, GlobalHeapMinSize)
	assert.Equal(t, "GCOL", string(buf[0:4]))
	assert.Equal(t, byte(1), buf[4])
	assert.Equal(t, uint64(GlobalHeapMinSize), binary.LittleEndian.Uint64(buf[8:16]))

	// object 1: header at 16, 5 bytes padded to 8
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[16:18]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(buf[18:20]))
	assert.Equal(t, uint64(5), binary.LittleEndian.Uint64(buf[24:32]))
	assert.Equal(t, "first", string(buf[32:37]))

	// free space follows object 2 (16 + 16) and counts its own header
	freeAt := 16 + 16 + 8 + 16 + 16
	assert.Equal(t, uint16(0), binary.LittleEndian.Uint16(buf[freeAt:]))
	assert.Equal(t, uint64(GlobalHeapMinSize-freeAt), binary.LittleEndian.Uint64(buf[freeAt+8:]))
	assert.Equal(t, gc.Free(), uint64(GlobalHeapMinSize-freeAt))
}

func TestGlobalHeapCollection_ReadBack(t *testing.T) {
	gc := NewGlobalHeapCollection(64, 8192)
	_, err := gc.Add([]byte{1, 2, 3})
	require.NoError(t, err)
	_, err = gc.Add(nil)
	require.NoError(t, err)
	_, err = gc.Add([]byte("eight..."))
	require.NoError(t, err)

	f := h5test.NewMemFile(nil)
	_, err = f.WriteAt(gc.Encode(), 64)
	require.NoError(t, err)

	got, err := ReadGlobalHeapCollection(f, 64)
	require.NoError(t, err)
	assert.Equal(t, uint64(8192), got.Size)
	require.Len(t, got.Objects, 3)

	obj, err := got.Object(3)
	require.NoError(t, err)
	assert.Equal(t, []byte("eight..."), obj.Data)

	empty, err := got.Object(2)
	require.NoError(t, err)
	assert.Empty(t, empty.Data)

	_, err = got.Object(9)
	require.Error(t, err)
}

func TestGlobalHeapCollection_Full(t *testing.T) {
	gc := NewGlobalHeapCollection(0, GlobalHeapMinSize)
	big := make([]byte, GlobalHeapMinSize-GlobalHeapHeaderSize-GlobalHeapObjHeaderSize)
	_, err := gc.Add(big)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gc.Free())

	_, err = gc.Add([]byte{1})
	require.ErrorIs(t, err, ErrHeapFull)

	// an exactly full collection has no free-space object
	f := h5test.NewMemFile(nil)
	_, err = f.WriteAt(gc.Encode(), 0)
	require.NoError(t, err)
	got, err := ReadGlobalHeapCollection(f, 0)
	require.NoError(t, err)
	assert.Len(t, got.Objects, 1)
}

func TestReadGlobalHeapCollection_Errors(t *testing.T) {
	buf := NewGlobalHeapCollection(0, 0).Encode()

	bad := append([]byte(nil), buf...)
	bad[0] = 'X'
	_, err := ReadGlobalHeapCollection(h5test.NewMemFile(bad), 0)
	require.Error(t, err)

	bad = append([]byte(nil), buf...)
	bad[4] = 2
	_, err = ReadGlobalHeapCollection(h5test.NewMemFile(bad), 0)
	require.Error(t, err)

	_, err = ReadGlobalHeapCollection(h5test.NewMemFile(buf[:8]), 0)
	require.Error(t, err)
}

func TestGlobalHeapID(t *testing.T) {
	id := GlobalHeapID{Collection: 0xABCDEF, Index: 7}
	data := id.Encode()
	require.Len(t, data, GlobalHeapIDSize)

	got, err := ParseGlobalHeapID(data)
	require.NoError(t, err)
	assert.Equal(t, id, got)

	_, err = ParseGlobalHeapID(data[:11])
	require.Error(t, err)
}
