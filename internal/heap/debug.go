package heap

import (
	"fmt"
	"io"
)

// DebugLevel defines the level of debug information
type DebugLevel int

const (
	// DebugOff disables all debug output
	DebugOff DebugLevel = iota
	// DebugInfo logs lifecycle events (heap initialization)
	DebugInfo
	// DebugVerbose logs per-operation information, including heap growth
	DebugVerbose
	// DebugTrace logs everything including coalescing decisions
	DebugTrace
)

// debugf writes a debug line when the configured level admits it.
func (h *Heap) debugf(level DebugLevel, format string, args ...interface{}) {
	if h.config.DebugLevel < level || h.config.DebugOutput == nil {
		return
	}
	fmt.Fprintf(h.config.DebugOutput, "heap: "+format+"\n", args...)
}

// Dump writes a block-by-block picture of the heap: every block from the
// prologue to the epilogue with its address, size, and alloc state, then
// the contents of each free list. Read-only.
func (h *Heap) Dump(w io.Writer) error {
	fmt.Fprintf(w, "heap [0x%x, 0x%x) prologue=0x%x heads=0x%x\n",
		h.arena.Lo(), h.arena.Hi(), h.prologue, h.heads)

	bp := h.prologue
	for {
		hw, err := h.hdr(bp)
		if err != nil {
			return err
		}
		size := sizeOf(hw)
		if size == 0 {
			fmt.Fprintf(w, "  0x%08x  epilogue\n", bp)
			break
		}
		state := "free "
		if allocOf(hw) {
			state = "alloc"
		}
		switch {
		case bp == h.prologue:
			fmt.Fprintf(w, "  0x%08x  %s size=%-8d prologue\n", bp, state, size)
		case bp == h.heads:
			fmt.Fprintf(w, "  0x%08x  %s size=%-8d free-list heads\n", bp, state, size)
		case allocOf(hw):
			fmt.Fprintf(w, "  0x%08x  %s size=%-8d\n", bp, state, size)
		default:
			fmt.Fprintf(w, "  0x%08x  %s size=%-8d class=%d\n", bp, state, size, sizeClass(size))
		}
		bp += size
	}

	for i := 0; i < NumSizeClasses; i++ {
		head, err := h.listHead(i)
		if err != nil {
			return err
		}
		if head == nullAddr {
			continue
		}
		fmt.Fprintf(w, "  class %d:", i)
		for bp := head; bp != nullAddr; {
			size, err := h.blockSize(bp)
			if err != nil {
				return err
			}
			fmt.Fprintf(w, " 0x%x(%d)", bp, size)
			bp, err = h.linkNext(bp)
			if err != nil {
				return err
			}
		}
		fmt.Fprintln(w)
	}
	return nil
}
