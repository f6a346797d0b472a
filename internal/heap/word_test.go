package heap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPack(t *testing.T) {
	tests := []struct {
		name  string
		size  uint32
		alloc bool
		want  uint64
	}{
		{"free block", 64, false, 64},
		{"allocated block", 64, true, 65},
		{"minimum block", 32, true, 33},
		{"epilogue", 0, true, 1},
		{"large block", 1 << 20, false, 1 << 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := pack(tt.size, tt.alloc)
			assert.Equal(t, tt.want, w)
			assert.Equal(t, tt.size, sizeOf(w))
			assert.Equal(t, tt.alloc, allocOf(w))
		})
	}
}

func TestSizeOfMasksLowBits(t *testing.T) {
	// All alignment bits below DSize are stripped, not just the alloc bit.
	assert.Equal(t, uint32(64), sizeOf(64|0xf))
	assert.Equal(t, uint32(0), sizeOf(0xf))
}

func TestAdjust(t *testing.T) {
	tests := []struct {
		size uint32
		want uint32
	}{
		{1, 32},
		{15, 32},
		{16, 32},
		{17, 48},
		{32, 48},
		{40, 64},
		{48, 64},
		{100, 128},
		{112, 128},
		{113, 144},
		{3000, 3024},
	}

	for _, tt := range tests {
		got := adjust(tt.size)
		assert.Equal(t, tt.want, got, "adjust(%d)", tt.size)
		assert.Zero(t, got%DSize, "adjust(%d) must stay double-word aligned", tt.size)
		assert.GreaterOrEqual(t, got, MinBlockSize, "adjust(%d) must meet the minimum block", tt.size)
		assert.GreaterOrEqual(t, got-DSize, tt.size, "adjust(%d) must cover the payload", tt.size)
	}
}
