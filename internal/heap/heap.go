package heap

import (
	"github.com/seglab/segalloc/internal/arena"
)

// Heap is a segregated-fit allocator over a contiguous arena. Blocks carry
// boundary tags (a header word mirrored by a footer word); free blocks are
// threaded onto one of NumSizeClasses doubly-linked lists whose heads live
// in the arena itself. The heap is single-threaded and non-reentrant: one
// operation at a time, no suspension, no cancellation.
//
// Layout after New:
//
//	[ pad | prologue hdr+ftr (DSize, alloc) |
//	  head-array block (allocated, K head words) |
//	  regular blocks ... | epilogue hdr (0, alloc) ]
//
// The prologue and epilogue are sentinel allocated blocks that remove the
// edge cases from coalescing and walking. The head-array block is carved as
// a self-allocated block so a forward walk steps over it naturally.
type Heap struct {
	arena  arena.Arena
	config *Config

	prologue uint32 // prologue payload address
	heads    uint32 // address of the first free-list head word

	// lastMissSize remembers the adjusted size of the most recent request
	// that found no fit, so an identical request skips the search and goes
	// straight to extension. Cleared when a block of that size is freed.
	lastMissSize uint32

	stats heapStats
}

// New initializes a heap on the given arena: sentinel blocks and the
// free-list head array are carved from the first two extensions. If either
// extension fails, no partial state is observable and the error is
// returned. A nil config uses defaults.
func New(a arena.Arena, config *Config) (*Heap, error) {
	if config == nil {
		config = DefaultConfig()
	}

	base, err := a.Extend(4 * WSize)
	if err != nil {
		return nil, &HeapError{Op: "init", Message: "initial arena extension failed", Err: err}
	}
	if base%DSize != 0 {
		return nil, &HeapError{Op: "init", Address: base, Message: "arena base is not double-word aligned"}
	}

	h := &Heap{
		arena:    a,
		config:   config,
		prologue: base + 2*WSize,
		heads:    base + 4*WSize,
	}

	// Alignment pad, prologue header/footer, initial epilogue.
	if err := a.WriteWord(base, 0); err != nil {
		return nil, err
	}
	if err := a.WriteWord(base+WSize, pack(DSize, true)); err != nil {
		return nil, err
	}
	if err := a.WriteWord(base+2*WSize, pack(DSize, true)); err != nil {
		return nil, err
	}
	if err := a.WriteWord(base+3*WSize, pack(0, true)); err != nil {
		return nil, err
	}

	// The head array is a permanently allocated block whose header lands on
	// the epilogue just written. Its payload holds the K list heads.
	headBlockSize := NumSizeClasses*WSize + DSize
	if _, err := a.Extend(headBlockSize); err != nil {
		return nil, &HeapError{Op: "init", Message: "head-array arena extension failed", Err: err}
	}
	if err := h.setTags(h.heads, pack(headBlockSize, true)); err != nil {
		return nil, err
	}
	for i := 0; i < NumSizeClasses; i++ {
		if err := h.setListHead(i, nullAddr); err != nil {
			return nil, err
		}
	}
	// Fresh epilogue past the head array.
	if err := a.WriteWord(h.heads+headBlockSize-WSize, pack(0, true)); err != nil {
		return nil, err
	}

	h.debugf(DebugInfo, "heap initialized: base=0x%x heads=0x%x hi=0x%x", base, h.heads, a.Hi())
	return h, nil
}

// extendHeap grows the arena by the given number of words (rounded up to an
// even count), stamps the new bytes as one free block over the old epilogue,
// writes a fresh epilogue, and coalesces the block with a free tail
// predecessor. The merged block is inserted into its free list; its payload
// address is returned.
func (h *Heap) extendHeap(words uint32) (uint32, error) {
	if words%2 != 0 {
		words++
	}
	size := words * WSize

	bp, err := h.arena.Extend(size)
	if err != nil {
		return nullAddr, err
	}
	h.stats.extendCount.Add(1)
	h.stats.extendBytes.Add(uint64(size))

	// The old epilogue header becomes the new block's header.
	if err := h.setTags(bp, pack(size, false)); err != nil {
		return nullAddr, err
	}
	if err := h.arena.WriteWord(bp+size-WSize, pack(0, true)); err != nil {
		return nullAddr, err
	}

	h.debugf(DebugVerbose, "extend: +%d bytes at 0x%x, hi=0x%x", size, bp, h.arena.Hi())
	return h.coalesce(bp)
}

// place installs an allocated block of asize bytes at the start of the free
// block at bp, unlinking it from its list. When the remainder is at least a
// minimum block it is split off, stamped free, and reinserted; otherwise
// the whole block is consumed. The allocated half is always the low half.
func (h *Heap) place(bp, asize uint32) error {
	csize, err := h.blockSize(bp)
	if err != nil {
		return err
	}
	if err := h.unlinkFree(bp); err != nil {
		return err
	}

	if csize-asize >= MinBlockSize {
		if err := h.setTags(bp, pack(asize, true)); err != nil {
			return err
		}
		tail := bp + asize
		if err := h.setTags(tail, pack(csize-asize, false)); err != nil {
			return err
		}
		return h.insertFree(tail)
	}
	return h.setTags(bp, pack(csize, true))
}

// coalesce merges the free block at bp with free neighbors, guided by the
// alloc bits of the adjacent boundary tags. The block must carry free tags
// but not yet be on any list; the merged block is inserted and its payload
// address returned.
func (h *Heap) coalesce(bp uint32) (uint32, error) {
	prevFooter, err := h.arena.ReadWord(bp - DSize)
	if err != nil {
		return nullAddr, err
	}
	size, err := h.blockSize(bp)
	if err != nil {
		return nullAddr, err
	}
	next := bp + size
	nextHeader, err := h.hdr(next)
	if err != nil {
		return nullAddr, err
	}

	prevAlloc := allocOf(prevFooter)
	nextAlloc := allocOf(nextHeader)

	switch {
	case prevAlloc && nextAlloc:
		if err := h.insertFree(bp); err != nil {
			return nullAddr, err
		}
		return bp, nil

	case prevAlloc && !nextAlloc:
		if err := h.unlinkFree(next); err != nil {
			return nullAddr, err
		}
		size += sizeOf(nextHeader)
		if err := h.setTags(bp, pack(size, false)); err != nil {
			return nullAddr, err
		}
		h.debugf(DebugTrace, "coalesce: 0x%x absorbed next, size=%d", bp, size)
		if err := h.insertFree(bp); err != nil {
			return nullAddr, err
		}
		return bp, nil

	case !prevAlloc && nextAlloc:
		prev := bp - sizeOf(prevFooter)
		if err := h.unlinkFree(prev); err != nil {
			return nullAddr, err
		}
		size += sizeOf(prevFooter)
		if err := h.setTags(prev, pack(size, false)); err != nil {
			return nullAddr, err
		}
		h.debugf(DebugTrace, "coalesce: 0x%x absorbed by prev 0x%x, size=%d", bp, prev, size)
		if err := h.insertFree(prev); err != nil {
			return nullAddr, err
		}
		return prev, nil

	default:
		prev := bp - sizeOf(prevFooter)
		if err := h.unlinkFree(prev); err != nil {
			return nullAddr, err
		}
		if err := h.unlinkFree(next); err != nil {
			return nullAddr, err
		}
		size += sizeOf(prevFooter) + sizeOf(nextHeader)
		if err := h.setTags(prev, pack(size, false)); err != nil {
			return nullAddr, err
		}
		h.debugf(DebugTrace, "coalesce: 0x%x merged both neighbors into 0x%x, size=%d", bp, prev, size)
		if err := h.insertFree(prev); err != nil {
			return nullAddr, err
		}
		return prev, nil
	}
}

// Allocate reserves size bytes and returns the payload address, aligned to
// DSize. A zero size returns the null address with no error and no state
// change. When no free block fits, the arena is extended by exactly the
// adjusted size; extension failure returns ErrOutOfMemory with the heap
// unchanged.
func (h *Heap) Allocate(size uint32) (uint32, error) {
	if size == 0 {
		return nullAddr, nil
	}
	asize := adjust(size)

	if h.lastMissSize == asize {
		h.stats.stickySkips.Add(1)
	} else {
		bp, err := h.findFit(asize)
		if err != nil {
			return nullAddr, &HeapError{Op: "allocate", Size: size, Message: "free-list search failed", Err: err}
		}
		if bp != nullAddr {
			if err := h.place(bp, asize); err != nil {
				return nullAddr, &HeapError{Op: "allocate", Address: bp, Size: size, Message: "placement failed", Err: err}
			}
			h.recordAlloc(bp, size)
			h.stats.fitHits.Add(1)
			if err := h.postCheck("allocate"); err != nil {
				return nullAddr, err
			}
			return bp, nil
		}
	}

	h.lastMissSize = asize
	bp, err := h.extendHeap(asize / WSize)
	if err != nil {
		return nullAddr, &HeapError{Op: "allocate", Size: size, Message: "arena extension failed", Err: err}
	}
	if err := h.place(bp, asize); err != nil {
		return nullAddr, &HeapError{Op: "allocate", Address: bp, Size: size, Message: "placement failed", Err: err}
	}
	h.recordAlloc(bp, size)
	if err := h.postCheck("allocate"); err != nil {
		return nullAddr, err
	}
	return bp, nil
}

// Free releases the block at bp. Freeing the null address is a no-op.
// Passing any other address not returned by Allocate or Reallocate is
// undefined behavior; the heap does not attempt to detect it.
func (h *Heap) Free(bp uint32) error {
	if bp == nullAddr {
		return nil
	}
	size, err := h.blockSize(bp)
	if err != nil {
		return &HeapError{Op: "free", Address: bp, Message: "header read failed", Err: err}
	}
	if err := h.setTags(bp, pack(size, false)); err != nil {
		return &HeapError{Op: "free", Address: bp, Message: "tag write failed", Err: err}
	}
	// A block of the sticky-miss size is available again.
	if size == h.lastMissSize {
		h.lastMissSize = 0
	}
	if _, err := h.coalesce(bp); err != nil {
		return &HeapError{Op: "free", Address: bp, Message: "coalesce failed", Err: err}
	}
	h.stats.freeCount.Add(1)
	h.stats.subLive(size)
	return h.postCheck("free")
}

// Reallocate resizes the allocation at bp to size bytes, preserving the
// first min(old payload, new payload) bytes. It shrinks in place, grows in
// place when the block abuts the epilogue or a large enough free neighbor,
// and otherwise relocates. On failure the original block is intact and
// ErrOutOfMemory is returned.
func (h *Heap) Reallocate(bp, size uint32) (uint32, error) {
	if size == 0 {
		return nullAddr, h.Free(bp)
	}
	if bp == nullAddr {
		return h.Allocate(size)
	}

	asize := adjust(size)
	old, err := h.blockSize(bp)
	if err != nil {
		return nullAddr, &HeapError{Op: "reallocate", Address: bp, Message: "header read failed", Err: err}
	}
	h.stats.reallocCount.Add(1)

	// Shrink in place, splitting off a free tail when one fits.
	if asize <= old {
		if old-asize >= MinBlockSize {
			if err := h.setTags(bp, pack(asize, true)); err != nil {
				return nullAddr, err
			}
			tail := bp + asize
			if err := h.setTags(tail, pack(old-asize, false)); err != nil {
				return nullAddr, err
			}
			if _, err := h.coalesce(tail); err != nil {
				return nullAddr, err
			}
			h.stats.subLive(old - asize)
		}
		if err := h.postCheck("reallocate"); err != nil {
			return nullAddr, err
		}
		return bp, nil
	}

	next := bp + old
	nextHeader, err := h.hdr(next)
	if err != nil {
		return nullAddr, &HeapError{Op: "reallocate", Address: bp, Message: "neighbor read failed", Err: err}
	}

	// Grow in place at the heap tail: extend by the shortfall and move the
	// epilogue; no copy, no new block.
	if sizeOf(nextHeader) == 0 {
		delta := asize - old
		if _, err := h.arena.Extend(delta); err != nil {
			return nullAddr, &HeapError{Op: "reallocate", Address: bp, Size: size, Message: "arena extension failed", Err: err}
		}
		h.stats.extendCount.Add(1)
		h.stats.extendBytes.Add(uint64(delta))
		if err := h.setTags(bp, pack(asize, true)); err != nil {
			return nullAddr, err
		}
		if err := h.arena.WriteWord(bp+asize-WSize, pack(0, true)); err != nil {
			return nullAddr, err
		}
		h.recordRegrow(size, delta)
		if err := h.postCheck("reallocate"); err != nil {
			return nullAddr, err
		}
		return bp, nil
	}

	// Grow in place by absorbing a free right neighbor that closes the gap.
	if !allocOf(nextHeader) && old+sizeOf(nextHeader) >= asize {
		if err := h.unlinkFree(next); err != nil {
			return nullAddr, err
		}
		combined := old + sizeOf(nextHeader)
		if combined-asize >= MinBlockSize {
			if err := h.setTags(bp, pack(asize, true)); err != nil {
				return nullAddr, err
			}
			tail := bp + asize
			if err := h.setTags(tail, pack(combined-asize, false)); err != nil {
				return nullAddr, err
			}
			// The absorbed neighbor's right neighbor is allocated, so the
			// remainder has no one to merge with.
			if err := h.insertFree(tail); err != nil {
				return nullAddr, err
			}
			h.recordRegrow(size, asize-old)
		} else {
			if err := h.setTags(bp, pack(combined, true)); err != nil {
				return nullAddr, err
			}
			h.recordRegrow(size, combined-old)
		}
		if err := h.postCheck("reallocate"); err != nil {
			return nullAddr, err
		}
		return bp, nil
	}

	// Relocate: allocate, copy the surviving payload, free the old block.
	newBp, err := h.Allocate(size)
	if err != nil {
		return nullAddr, err
	}
	n := min(size, old-DSize)
	data, err := h.arena.Read(bp, n)
	if err != nil {
		return nullAddr, &HeapError{Op: "reallocate", Address: bp, Size: n, Message: "payload read failed", Err: err}
	}
	if err := h.arena.Write(newBp, data); err != nil {
		return nullAddr, &HeapError{Op: "reallocate", Address: newBp, Size: n, Message: "payload write failed", Err: err}
	}
	if err := h.Free(bp); err != nil {
		return nullAddr, err
	}
	if err := h.postCheck("reallocate"); err != nil {
		return nullAddr, err
	}
	return newBp, nil
}

// recordAlloc updates counters for a completed placement at bp.
func (h *Heap) recordAlloc(bp, requested uint32) {
	h.stats.allocCount.Add(1)
	h.stats.bytesRequested.Add(uint64(requested))
	if blockSize, err := h.blockSize(bp); err == nil {
		h.stats.addLive(blockSize)
	}
}

// recordRegrow updates counters for an in-place growth by delta block bytes.
func (h *Heap) recordRegrow(requested, delta uint32) {
	h.stats.bytesRequested.Add(uint64(requested))
	h.stats.addLive(delta)
}

// postCheck runs the consistency checker when the config asks for it.
func (h *Heap) postCheck(op string) error {
	if !h.config.CheckAfterOp {
		return nil
	}
	if err := h.Check(false); err != nil {
		return &HeapError{Op: op, Message: "consistency check failed", Err: err}
	}
	return nil
}
