package gwatch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDr7SlotZero_RejectsUnsupportedSizes(t *testing.T) {
	for _, size := range []int{1, 2, 3, 5, 6, 7, 16} {
		_, _, err := dr7SlotZero(size)
		assert.Error(t, err, "size %d should be rejected", size)
	}
}

func TestDr7SlotZero_FourBytes(t *testing.T) {
	set, clear, err := dr7SlotZero(4)
	require.NoError(t, err)

	assert.NotZero(t, set&1, "L0 must be set")
	assert.Equal(t, uint64(0b11), (set>>16)&0b11, "RW0 must request read+write")
	assert.Equal(t, uint64(0b11), (set>>18)&0b11, "LEN0 must encode 4 bytes")
	assert.NotZero(t, clear, "clear mask must cover L0/RW0/LEN0")
}

func TestDr7SlotZero_EightBytes(t *testing.T) {
	set, _, err := dr7SlotZero(8)
	require.NoError(t, err)

	assert.Equal(t, uint64(0b10), (set>>18)&0b11, "LEN0 must encode 8 bytes")
}

func TestMaskForSize(t *testing.T) {
	m4, err := maskForSize(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFF), m4)

	m8, err := maskForSize(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xFFFFFFFFFFFFFFFF), m8)

	_, err = maskForSize(5)
	assert.Error(t, err)
}

func TestValidSize(t *testing.T) {
	assert.True(t, validSize(4))
	assert.True(t, validSize(8))
	assert.False(t, validSize(5))
	assert.False(t, validSize(0))
}
