// Package segalloc provides a segregated-fit heap allocator over a
// growable linear arena.
//
// The allocator manages a single contiguous region obtained from an
// sbrk-style Arena and exposes the classical three-operation interface:
// Allocate, Free, Reallocate. Blocks carry boundary tags (header and
// mirrored footer words); free blocks are threaded onto segregated
// doubly-linked free lists indexed by size class, searched first-fit.
// Freed blocks coalesce with free neighbors immediately, so no two
// adjacent free blocks exist between operations.
//
// Core Types:
//   - Heap: one allocator instance over one arena
//   - Config: heap configuration (debug level, self-checking)
//   - Stats: operation counter snapshot
//
// Arenas:
//   - Arena: the consumed sbrk-style interface
//   - SliceArena: in-process byte-slice backing with a capacity cap
//   - WazeroArena: wasm linear memory backing via wazero
//
// Diagnostics:
//   - (*Heap).Check: read-only structural validation
//   - (*Heap).Dump: block-by-block heap listing
//
// Example usage:
//
//	import "github.com/seglab/segalloc/pkg/segalloc"
//
//	a := segalloc.NewSliceArena(nil)
//	h, err := segalloc.New(a, nil)
//	if err != nil {
//		// arena could not satisfy the initial carve
//	}
//	p, err := h.Allocate(100)
//	q, err := h.Reallocate(p, 200)
//	err = h.Free(q)
//
// Every payload address returned is aligned to segalloc.DSize. The heap is
// single-threaded: callers serialize operations themselves.
package segalloc

import (
	"context"

	"github.com/seglab/segalloc/internal/arena"
	"github.com/seglab/segalloc/internal/heap"
)

// Core allocator types
type (
	// Heap is one allocator instance over one arena
	Heap = heap.Heap

	// Config holds configuration options for a Heap
	Config = heap.Config

	// Stats is a point-in-time snapshot of heap counters
	Stats = heap.Stats

	// DebugLevel defines the level of debug information
	DebugLevel = heap.DebugLevel

	// HeapError represents a failed heap operation
	HeapError = heap.HeapError

	// CheckError represents a structural violation found by Check
	CheckError = heap.CheckError
)

// Arena types
type (
	// Arena is the consumed sbrk-style backing-store interface
	Arena = arena.Arena

	// ArenaError represents arena access errors
	ArenaError = arena.ArenaError

	// SliceArena is an in-process Arena backed by a byte slice
	SliceArena = arena.SliceArena

	// SliceArenaConfig holds configuration options for a SliceArena
	SliceArenaConfig = arena.SliceArenaConfig

	// WazeroArena is an Arena backed by a wazero wasm linear memory
	WazeroArena = arena.WazeroArena

	// WazeroArenaConfig holds configuration options for a WazeroArena
	WazeroArenaConfig = arena.WazeroArenaConfig
)

// Alignment and sizing constants
const (
	// WSize is the header/footer word size in bytes
	WSize = heap.WSize

	// DSize is the payload alignment unit in bytes
	DSize = heap.DSize

	// MinBlockSize is the smallest legal block size in bytes
	MinBlockSize = heap.MinBlockSize

	// NumSizeClasses is the number of segregated free lists
	NumSizeClasses = heap.NumSizeClasses
)

// Debug levels
const (
	DebugOff     = heap.DebugOff
	DebugInfo    = heap.DebugInfo
	DebugVerbose = heap.DebugVerbose
	DebugTrace   = heap.DebugTrace
)

// ErrOutOfMemory is returned when the arena cannot grow
var ErrOutOfMemory = heap.ErrOutOfMemory

// New initializes a heap on the given arena. A nil config uses defaults.
func New(a Arena, config *Config) (*Heap, error) {
	return heap.New(a, config)
}

// DefaultConfig returns a heap Config with sensible defaults
func DefaultConfig() *Config {
	return heap.DefaultConfig()
}

// NewSliceArena creates a byte-slice arena. A nil config uses defaults.
func NewSliceArena(config *SliceArenaConfig) *SliceArena {
	return arena.NewSliceArena(config)
}

// DefaultSliceArenaConfig returns a SliceArenaConfig with sensible defaults
func DefaultSliceArenaConfig() *SliceArenaConfig {
	return arena.DefaultSliceArenaConfig()
}

// NewWazeroArena creates an arena over a fresh wazero linear memory.
// A nil config uses defaults. Close it to release the wazero runtime.
func NewWazeroArena(ctx context.Context, config *WazeroArenaConfig) (*WazeroArena, error) {
	return arena.NewWazeroArena(ctx, config)
}

// DefaultWazeroArenaConfig returns a WazeroArenaConfig with sensible defaults
func DefaultWazeroArenaConfig() *WazeroArenaConfig {
	return arena.DefaultWazeroArenaConfig()
}
