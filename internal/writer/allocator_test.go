package writer

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocator_Sequential(t *testing.T) {
	a := NewAllocator(48)

	first, err := a.Allocate(100)
	require.NoError(t, err)
	second, err := a.Allocate(24)
	require.NoError(t, err)

	require.Equal(t, uint64(48), first)
	require.Equal(t, uint64(148), second)
	require.Equal(t, uint64(172), a.EndOfFile())
	require.Equal(t, []AllocatedBlock{{Offset: 48, Size: 100}, {Offset: 148, Size: 24}}, a.Blocks())
	require.NoError(t, a.ValidateNoOverlaps())
}

func TestAllocator_Errors(t *testing.T) {
	a := NewAllocator(0)
	_, err := a.Allocate(0)
	require.Error(t, err)

	b := NewAllocator(math.MaxUint64 - 4)
	_, err = b.Allocate(16)
	require.Error(t, err)
}

func TestAllocator_IsAllocated(t *testing.T) {
	a := NewAllocator(100)
	_, err := a.Allocate(50)
	require.NoError(t, err)

	require.True(t, a.IsAllocated(120, 10))
	require.True(t, a.IsAllocated(90, 20))
	require.False(t, a.IsAllocated(150, 10), "adjacent range does not overlap")
	require.False(t, a.IsAllocated(0, 100))
	require.False(t, a.IsAllocated(120, 0))
}

func TestAllocator_ValidateNoOverlaps_Detects(t *testing.T) {
	a := NewAllocator(0)
	a.blocks = []AllocatedBlock{{Offset: 0, Size: 10}, {Offset: 5, Size: 10}}
	require.Error(t, a.ValidateNoOverlaps())
}
