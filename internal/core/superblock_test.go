package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	h5test "github.com/scigolib/h5ref/internal/testing"
)

func TestSuperblock_RoundTrip(t *testing.T) {
	f := h5test.NewMemFile(nil)
	sb := NewSuperblock(48)

	require.NoError(t, sb.WriteTo(f, 4096))
	require.Len(t, f.Bytes(), SuperblockSize)
	assert.Equal(t, Signature, string(f.Bytes()[:8]))
	assert.Equal(t, byte(2), f.Bytes()[8])

	got, err := ReadSuperblock(f)
	require.NoError(t, err)
	assert.Equal(t, uint8(Version2), got.Version)
	assert.Equal(t, uint64(48), got.RootGroup)
	assert.Equal(t, uint64(4096), got.EOFAddress)
	assert.Equal(t, UndefinedAddress, got.SuperExtension)
}

func TestSuperblock_RewriteUpdatesEOF(t *testing.T) {
	f := h5test.NewMemFile(nil)
	sb := NewSuperblock(48)
	require.NoError(t, sb.WriteTo(f, 0))
	require.NoError(t, sb.WriteTo(f, 8192))

	got, err := ReadSuperblock(f)
	require.NoError(t, err)
	assert.Equal(t, uint64(8192), got.EOFAddress)
}

func TestSuperblock_ReadErrors(t *testing.T) {
	valid, err := NewSuperblock(48).Encode(100)
	require.NoError(t, err)

	tests := []struct {
		name    string
		mutate  func(b []byte) []byte
		wantErr string
	}{
		{"bad signature", func(b []byte) []byte { b[1] = 'X'; return b }, "invalid HDF5 signature"},
		{"bad version", func(b []byte) []byte { b[8] = 0; return b }, "unsupported superblock version"},
		{"bad checksum", func(b []byte) []byte { b[40] ^= 1; return b }, "checksum mismatch"},
		{"too small", func(b []byte) []byte { return b[:6] }, "too small"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := append([]byte(nil), valid...)
			_, err := ReadSuperblock(h5test.NewMemFile(tt.mutate(b)))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSuperblock_EncodeRejectsOtherSizes(t *testing.T) {
	sb := NewSuperblock(48)
	sb.OffsetSize = 4
	_, err := sb.Encode(0)
	require.Error(t, err)
}
