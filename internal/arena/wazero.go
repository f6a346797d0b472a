package arena

import (
	"context"
	"fmt"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// wasmPageSize is the wasm linear memory page granularity.
const wasmPageSize = 64 * 1024

// WazeroArenaConfig holds configuration options for a WazeroArena
type WazeroArenaConfig struct {
	// MinPages is the initial linear memory size in 64KiB pages.
	MinPages uint32
	// MaxPages caps linear memory growth. Zero leaves the memory unbounded.
	MaxPages uint32
}

// DefaultWazeroArenaConfig returns a WazeroArenaConfig with sensible defaults
func DefaultWazeroArenaConfig() *WazeroArenaConfig {
	return &WazeroArenaConfig{
		MinPages: 1,
		MaxPages: 1024, // 64MB
	}
}

// WazeroArena is an Arena backed by a wazero wasm linear memory. The memory
// grows in whole pages; the arena tracks a byte-granular break below the
// page boundary so Extend behaves like sbrk.
type WazeroArena struct {
	mem api.Memory
	brk uint32

	runtime wazero.Runtime // owned when built via NewWazeroArena, else nil
	module  api.Module
}

// NewWazeroArenaFromMemory wraps an existing linear memory, for callers that
// already host a module. The break starts at zero regardless of the current
// memory size; pages below it are treated as unclaimed arena space.
func NewWazeroArenaFromMemory(mem api.Memory) *WazeroArena {
	return &WazeroArena{mem: mem}
}

// minimalMemoryModule returns a wasm module carrying nothing but an exported
// linear memory with the given limits.
func minimalMemoryModule(minPages, maxPages uint32) []byte {
	mod := []byte{
		0x00, 0x61, 0x73, 0x6d, // magic
		0x01, 0x00, 0x00, 0x00, // version
	}

	limits := []byte{0x00}
	limits = append(limits, uleb128(minPages)...)
	if maxPages != 0 {
		limits = []byte{0x01}
		limits = append(limits, uleb128(minPages)...)
		limits = append(limits, uleb128(maxPages)...)
	}

	memSec := append([]byte{0x01}, limits...) // one memory
	mod = append(mod, 0x05)
	mod = append(mod, uleb128(uint32(len(memSec)))...)
	mod = append(mod, memSec...)

	expSec := []byte{0x01, 0x06}
	expSec = append(expSec, []byte("memory")...)
	expSec = append(expSec, 0x02, 0x00) // memory index 0
	mod = append(mod, 0x07)
	mod = append(mod, uleb128(uint32(len(expSec)))...)
	mod = append(mod, expSec...)

	return mod
}

func uleb128(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// NewWazeroArena instantiates a fresh wazero runtime hosting a memory-only
// module and returns an arena over its linear memory. Close releases the
// runtime. A nil config uses defaults.
func NewWazeroArena(ctx context.Context, config *WazeroArenaConfig) (*WazeroArena, error) {
	if config == nil {
		config = DefaultWazeroArenaConfig()
	}
	if config.MinPages == 0 {
		config.MinPages = 1
	}

	rt := wazero.NewRuntime(ctx)
	mod, err := rt.Instantiate(ctx, minimalMemoryModule(config.MinPages, config.MaxPages))
	if err != nil {
		rt.Close(ctx)
		return nil, fmt.Errorf("instantiate memory module: %w", err)
	}
	mem := mod.Memory()
	if mem == nil {
		rt.Close(ctx)
		return nil, &ArenaError{Op: "init", Message: "module exports no memory"}
	}

	return &WazeroArena{mem: mem, runtime: rt, module: mod}, nil
}

// Close releases the owned wazero runtime, if any.
func (a *WazeroArena) Close(ctx context.Context) error {
	if a.runtime == nil {
		return nil
	}
	return a.runtime.Close(ctx)
}

// Extend grows the region by n bytes and returns the old break.
func (a *WazeroArena) Extend(n uint32) (uint32, error) {
	if n == 0 {
		return 0, &ArenaError{Op: "extend", Size: n, Message: "zero-byte extension"}
	}
	old := a.brk
	if old > ^uint32(0)-n {
		return 0, fmt.Errorf("extend %d bytes at 0x%x: %w", n, old, ErrOutOfMemory)
	}
	want := old + n
	if have := a.mem.Size(); want > have {
		deltaPages := (want - have + wasmPageSize - 1) / wasmPageSize
		if _, ok := a.mem.Grow(deltaPages); !ok {
			return 0, fmt.Errorf("grow %d pages at 0x%x: %w", deltaPages, have, ErrOutOfMemory)
		}
	}
	a.brk = want
	return old, nil
}

func (a *WazeroArena) Lo() uint32 { return 0 }

func (a *WazeroArena) Hi() uint32 { return a.brk }

func (a *WazeroArena) ReadWord(addr uint32) (uint64, error) {
	if err := checkRange("read_word", addr, 8, a.brk); err != nil {
		return 0, err
	}
	w, ok := a.mem.ReadUint64Le(addr)
	if !ok {
		return 0, &ArenaError{Op: "read_word", Address: addr, Size: 8, Limit: a.mem.Size(), Message: "linear memory read failed"}
	}
	return w, nil
}

func (a *WazeroArena) WriteWord(addr uint32, w uint64) error {
	if err := checkRange("write_word", addr, 8, a.brk); err != nil {
		return err
	}
	if !a.mem.WriteUint64Le(addr, w) {
		return &ArenaError{Op: "write_word", Address: addr, Size: 8, Limit: a.mem.Size(), Message: "linear memory write failed"}
	}
	return nil
}

func (a *WazeroArena) Read(addr, n uint32) ([]byte, error) {
	if err := checkRange("read", addr, n, a.brk); err != nil {
		return nil, err
	}
	view, ok := a.mem.Read(addr, n)
	if !ok {
		return nil, &ArenaError{Op: "read", Address: addr, Size: n, Limit: a.mem.Size(), Message: "linear memory read failed"}
	}
	out := make([]byte, n)
	copy(out, view)
	return out, nil
}

func (a *WazeroArena) Write(addr uint32, data []byte) error {
	if err := checkRange("write", addr, uint32(len(data)), a.brk); err != nil {
		return err
	}
	if !a.mem.Write(addr, data) {
		return &ArenaError{Op: "write", Address: addr, Size: uint32(len(data)), Limit: a.mem.Size(), Message: "linear memory write failed"}
	}
	return nil
}
