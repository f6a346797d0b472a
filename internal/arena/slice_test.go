package arena

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultSliceArenaConfig(t *testing.T) {
	config := DefaultSliceArenaConfig()

	assert.Equal(t, uint32(64*1024*1024), config.MaxSize)
	assert.Equal(t, uint32(4096), config.InitialCapacity)
}

func TestSliceArena_Extend(t *testing.T) {
	a := NewSliceArena(nil)

	addr, err := a.Extend(64)
	require.NoError(t, err)
	assert.Equal(t, uint32(0), addr)
	assert.Equal(t, uint32(64), a.Hi())

	addr, err = a.Extend(32)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), addr, "extension must begin at the old end")
	assert.Equal(t, uint32(96), a.Hi())
	assert.Equal(t, uint32(0), a.Lo())
}

func TestSliceArena_ExtendZero(t *testing.T) {
	a := NewSliceArena(nil)

	_, err := a.Extend(0)
	require.Error(t, err)

	var arenaErr *ArenaError
	assert.ErrorAs(t, err, &arenaErr)
	assert.Equal(t, "extend", arenaErr.Op)
}

func TestSliceArena_ExtendBeyondCap(t *testing.T) {
	a := NewSliceArena(&SliceArenaConfig{MaxSize: 100})

	_, err := a.Extend(64)
	require.NoError(t, err)

	_, err = a.Extend(64)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfMemory))
	assert.Equal(t, uint32(64), a.Hi(), "failed extend must not consume")

	// The remaining room is still usable.
	addr, err := a.Extend(36)
	require.NoError(t, err)
	assert.Equal(t, uint32(64), addr)
	assert.Equal(t, uint32(100), a.Hi())
}

func TestSliceArena_Words(t *testing.T) {
	a := NewSliceArena(nil)
	_, err := a.Extend(64)
	require.NoError(t, err)

	require.NoError(t, a.WriteWord(8, 0xdeadbeefcafef00d))
	w, err := a.ReadWord(8)
	require.NoError(t, err)
	assert.Equal(t, uint64(0xdeadbeefcafef00d), w)

	// New bytes are zeroed.
	w, err = a.ReadWord(16)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), w)
}

func TestSliceArena_Bytes(t *testing.T) {
	a := NewSliceArena(nil)
	_, err := a.Extend(64)
	require.NoError(t, err)

	payload := []byte{1, 2, 3, 4, 5}
	require.NoError(t, a.Write(10, payload))

	got, err := a.Read(10, 5)
	require.NoError(t, err)
	assert.Equal(t, payload, got)

	// Reads copy: mutating the result does not touch the arena.
	got[0] = 99
	again, err := a.Read(10, 5)
	require.NoError(t, err)
	assert.Equal(t, payload, again)
}

func TestSliceArena_Bounds(t *testing.T) {
	a := NewSliceArena(nil)
	_, err := a.Extend(32)
	require.NoError(t, err)

	tests := []struct {
		name string
		run  func() error
	}{
		{"read word past end", func() error { _, err := a.ReadWord(28); return err }},
		{"write word past end", func() error { return a.WriteWord(32, 1) }},
		{"read past end", func() error { _, err := a.Read(30, 4); return err }},
		{"write past end", func() error { return a.Write(30, []byte{1, 2, 3, 4}) }},
		{"overflowing range", func() error { _, err := a.Read(^uint32(0)-1, 8); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run()
			require.Error(t, err)

			var arenaErr *ArenaError
			assert.ErrorAs(t, err, &arenaErr)
		})
	}
}

func TestSliceArena_Stats(t *testing.T) {
	a := NewSliceArena(&SliceArenaConfig{MaxSize: 64})

	_, err := a.Extend(32)
	require.NoError(t, err)
	_, err = a.Extend(64)
	require.Error(t, err)

	stats := a.GetStats()
	assert.Equal(t, uint64(1), stats["extend_count"])
	assert.Equal(t, uint64(32), stats["extend_bytes"])
	assert.Equal(t, uint64(1), stats["failed_extend"])
}
