package arena

import (
	"encoding/binary"
	"fmt"
	"sync/atomic"
)

// SliceArenaConfig holds configuration options for a SliceArena
type SliceArenaConfig struct {
	// MaxSize caps the total region size in bytes. Extend calls that would
	// exceed it fail with ErrOutOfMemory. Zero means unlimited.
	MaxSize uint32
	// InitialCapacity pre-reserves backing capacity without growing the
	// visible region.
	InitialCapacity uint32
}

// DefaultSliceArenaConfig returns a SliceArenaConfig with sensible defaults
func DefaultSliceArenaConfig() *SliceArenaConfig {
	return &SliceArenaConfig{
		MaxSize:         64 * 1024 * 1024, // 64MB
		InitialCapacity: 4096,
	}
}

// SliceArena is an in-process Arena backed by an append-grown byte slice.
type SliceArena struct {
	mem     []byte
	maxSize uint32

	extendCount atomic.Uint64
	extendBytes atomic.Uint64
	failCount   atomic.Uint64
}

// NewSliceArena creates a SliceArena. A nil config uses defaults.
func NewSliceArena(config *SliceArenaConfig) *SliceArena {
	if config == nil {
		config = DefaultSliceArenaConfig()
	}
	return &SliceArena{
		mem:     make([]byte, 0, config.InitialCapacity),
		maxSize: config.MaxSize,
	}
}

// Extend grows the region by n bytes and returns the old end address.
func (a *SliceArena) Extend(n uint32) (uint32, error) {
	if n == 0 {
		return 0, &ArenaError{Op: "extend", Size: n, Message: "zero-byte extension"}
	}
	old := uint32(len(a.mem))
	if uint64(old)+uint64(n) > uint64(^uint32(0)) {
		a.failCount.Add(1)
		return 0, fmt.Errorf("extend %d bytes at 0x%x: %w", n, old, ErrOutOfMemory)
	}
	if a.maxSize != 0 && old+n > a.maxSize {
		a.failCount.Add(1)
		return 0, fmt.Errorf("extend %d bytes at 0x%x (cap 0x%x): %w", n, old, a.maxSize, ErrOutOfMemory)
	}
	a.mem = append(a.mem, make([]byte, n)...)
	a.extendCount.Add(1)
	a.extendBytes.Add(uint64(n))
	return old, nil
}

func (a *SliceArena) Lo() uint32 { return 0 }

func (a *SliceArena) Hi() uint32 { return uint32(len(a.mem)) }

func (a *SliceArena) ReadWord(addr uint32) (uint64, error) {
	if err := checkRange("read_word", addr, 8, a.Hi()); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(a.mem[addr:]), nil
}

func (a *SliceArena) WriteWord(addr uint32, w uint64) error {
	if err := checkRange("write_word", addr, 8, a.Hi()); err != nil {
		return err
	}
	binary.LittleEndian.PutUint64(a.mem[addr:], w)
	return nil
}

func (a *SliceArena) Read(addr, n uint32) ([]byte, error) {
	if err := checkRange("read", addr, n, a.Hi()); err != nil {
		return nil, err
	}
	out := make([]byte, n)
	copy(out, a.mem[addr:addr+n])
	return out, nil
}

func (a *SliceArena) Write(addr uint32, data []byte) error {
	if err := checkRange("write", addr, uint32(len(data)), a.Hi()); err != nil {
		return err
	}
	copy(a.mem[addr:], data)
	return nil
}

// GetStats returns arena growth statistics
func (a *SliceArena) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"size":          a.Hi(),
		"max_size":      a.maxSize,
		"extend_count":  a.extendCount.Load(),
		"extend_bytes":  a.extendBytes.Load(),
		"failed_extend": a.failCount.Load(),
	}
}
