package h5ref_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/scigolib/h5ref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateSimpleDataspace(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
	require.NoError(t, err)
	defer space.Close()

	assert.Positive(t, space.ID())
	assert.Equal(t, 1, space.Rank())
	assert.Equal(t, []uint64{3}, space.Dims())
	assert.Nil(t, space.MaxDims())
	assert.Equal(t, uint64(3), space.NumPoints())
	assert.Equal(t, h5ref.SelectionAll, space.Selection().Type)

	other, err := h5ref.CreateSimpleDataspace([]uint64{3}, []uint64{h5ref.Unlimited})
	require.NoError(t, err)
	defer other.Close()
	assert.NotEqual(t, space.ID(), other.ID())
	assert.Equal(t, []uint64{h5ref.Unlimited}, other.MaxDims())
}

func TestCreateSimpleDataspace_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		dims    []uint64
		maxDims []uint64
	}{
		{"empty", nil, nil},
		{"zero dim", []uint64{3, 0}, nil},
		{"rank mismatch", []uint64{3}, []uint64{3, 3}},
		{"max below dims", []uint64{3}, []uint64{2}},
		{"overflow", []uint64{1 << 40, 1 << 40}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h5ref.CreateSimpleDataspace(tt.dims, tt.maxDims)
			require.ErrorIs(t, err, h5ref.ErrShapeMismatch)
		})
	}
}

func TestSelectHyperslab_FirstTwo(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
	require.NoError(t, err)

	require.NoError(t, space.SelectHyperslab(h5ref.SelectSet, []uint64{0}, nil, []uint64{2}, nil))
	assert.Equal(t, uint64(2), space.NumPoints())

	start, end, err := space.Bounds()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, start)
	assert.Equal(t, []uint64{1}, end)

	sel := space.Selection()
	assert.True(t, sel.Contains([]uint64{1}))
	assert.False(t, sel.Contains([]uint64{2}))
}

func TestSelectHyperslab_StrideAndBlock(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{10, 4}, nil)
	require.NoError(t, err)

	err = space.SelectHyperslab(h5ref.SelectSet,
		[]uint64{1, 0}, []uint64{4, 2}, []uint64{2, 2}, []uint64{2, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(8), space.NumPoints())

	want := []h5ref.Block{
		{Start: []uint64{1, 0}, End: []uint64{2, 0}},
		{Start: []uint64{1, 2}, End: []uint64{2, 2}},
		{Start: []uint64{5, 0}, End: []uint64{6, 0}},
		{Start: []uint64{5, 2}, End: []uint64{6, 2}},
	}
	if diff := cmp.Diff(want, space.Selection().Blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
}

func TestSelectHyperslab_Or(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{10}, nil)
	require.NoError(t, err)

	require.NoError(t, space.SelectHyperslab(h5ref.SelectSet, []uint64{0}, nil, []uint64{4}, nil))
	// overlaps elements 2..3
	require.NoError(t, space.SelectHyperslab(h5ref.SelectOr, []uint64{2}, nil, []uint64{4}, nil))
	assert.Equal(t, uint64(6), space.NumPoints())

	start, end, err := space.Bounds()
	require.NoError(t, err)
	assert.Equal(t, []uint64{0}, start)
	assert.Equal(t, []uint64{5}, end)

	// fully covered: no change
	require.NoError(t, space.SelectHyperslab(h5ref.SelectOr, []uint64{1}, nil, []uint64{2}, nil))
	assert.Equal(t, uint64(6), space.NumPoints())
}

func TestSelectHyperslab_Or2D(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{4, 4}, nil)
	require.NoError(t, err)

	require.NoError(t, space.SelectHyperslab(h5ref.SelectSet, []uint64{0, 0}, nil, []uint64{1, 1}, []uint64{3, 3}))
	require.NoError(t, space.SelectHyperslab(h5ref.SelectOr, []uint64{1, 1}, nil, []uint64{1, 1}, []uint64{3, 3}))
	// 9 + 9 - 4 overlapping
	assert.Equal(t, uint64(14), space.NumPoints())
	assert.True(t, space.Selection().Contains([]uint64{3, 3}))
	assert.False(t, space.Selection().Contains([]uint64{0, 3}))
}

func TestSelectAllNone(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{2, 3}, nil)
	require.NoError(t, err)

	require.NoError(t, space.SelectNone())
	assert.Equal(t, uint64(0), space.NumPoints())
	_, _, err = space.Bounds()
	require.ErrorIs(t, err, h5ref.ErrInvalidSelection)

	// OR onto none behaves like SET
	require.NoError(t, space.SelectHyperslab(h5ref.SelectOr, []uint64{1, 1}, nil, []uint64{1, 2}, nil))
	assert.Equal(t, uint64(2), space.NumPoints())

	require.NoError(t, space.SelectAll())
	assert.Equal(t, uint64(6), space.NumPoints())
	// OR onto all keeps all
	require.NoError(t, space.SelectHyperslab(h5ref.SelectOr, []uint64{0, 0}, nil, []uint64{1, 1}, nil))
	assert.Equal(t, h5ref.SelectionAll, space.Selection().Type)
}

func TestSelectHyperslab_Invalid(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
	require.NoError(t, err)

	tests := []struct {
		name                        string
		start, stride, count, block []uint64
	}{
		{"past extent", []uint64{2}, nil, []uint64{2}, nil},
		{"zero count", []uint64{0}, nil, []uint64{0}, nil},
		{"rank mismatch", []uint64{0, 0}, nil, []uint64{1}, nil},
		{"stride below block", []uint64{0}, []uint64{1}, []uint64{2}, []uint64{2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := space.SelectHyperslab(h5ref.SelectSet, tt.start, tt.stride, tt.count, tt.block)
			require.ErrorIs(t, err, h5ref.ErrInvalidSelection)
		})
	}

	assert.Equal(t, uint64(3), space.NumPoints(), "failed selections leave the old one")
}

func TestDataspace_Closed(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
	require.NoError(t, err)
	require.NoError(t, space.Close())
	require.NoError(t, space.Close())

	require.ErrorIs(t, space.SelectAll(), h5ref.ErrClosed)
	require.ErrorIs(t, space.SelectNone(), h5ref.ErrClosed)
	require.ErrorIs(t, space.SelectHyperslab(h5ref.SelectSet, []uint64{0}, nil, []uint64{1}, nil), h5ref.ErrClosed)
}

func TestSelectHyperslab_TouchingBlocksMerge(t *testing.T) {
	space, err := h5ref.CreateSimpleDataspace([]uint64{3}, nil)
	require.NoError(t, err)

	require.NoError(t, space.SelectHyperslab(h5ref.SelectSet, []uint64{0}, nil, []uint64{2}, nil))
	want := []h5ref.Block{{Start: []uint64{0}, End: []uint64{1}}}
	if diff := cmp.Diff(want, space.Selection().Blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, "hyperslab [0]-[1]", space.Selection().String())

	grid, err := h5ref.CreateSimpleDataspace([]uint64{4, 4}, nil)
	require.NoError(t, err)
	require.NoError(t, grid.SelectHyperslab(h5ref.SelectSet,
		[]uint64{0, 0}, []uint64{1, 3}, []uint64{3, 2}, nil))
	want = []h5ref.Block{
		{Start: []uint64{0, 0}, End: []uint64{2, 0}},
		{Start: []uint64{0, 3}, End: []uint64{2, 3}},
	}
	if diff := cmp.Diff(want, grid.Selection().Blocks); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, uint64(6), grid.NumPoints())
}
