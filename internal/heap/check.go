package heap

import "fmt"

// Check walks the heap read-only and validates its structure: sentinel
// tags, header/footer mirroring, payload alignment, maximal coalescing,
// and the segregated free lists (membership, class assignment, link
// symmetry). It returns a CheckError describing the first violation found,
// or nil. With verbose set, each block is reported on the debug writer as
// it is visited.
func (h *Heap) Check(verbose bool) error {
	// Prologue tags.
	pw, err := h.hdr(h.prologue)
	if err != nil {
		return err
	}
	pf, err := h.ftr(h.prologue)
	if err != nil {
		return err
	}
	if pw != pack(DSize, true) || pf != pack(DSize, true) {
		return &CheckError{Kind: "bad_prologue", Address: h.prologue,
			Message: fmt.Sprintf("prologue tags hdr=0x%x ftr=0x%x", pw, pf)}
	}

	// Forward walk: every block between prologue and epilogue.
	freeBlocks := make(map[uint32]uint32) // payload -> size
	prevFree := false
	bp := h.prologue + DSize
	for {
		hw, err := h.hdr(bp)
		if err != nil {
			return &CheckError{Kind: "walk_escaped_heap", Address: bp, Message: err.Error()}
		}
		size := sizeOf(hw)
		if size == 0 {
			if !allocOf(hw) {
				return &CheckError{Kind: "bad_epilogue", Address: bp,
					Message: fmt.Sprintf("epilogue header 0x%x", hw)}
			}
			break
		}

		if verbose && h.config.DebugOutput != nil {
			fmt.Fprintf(h.config.DebugOutput, "check: block 0x%x size=%d alloc=%t\n", bp, size, allocOf(hw))
		}
		if bp%DSize != 0 {
			return &CheckError{Kind: "misaligned_payload", Address: bp,
				Message: fmt.Sprintf("payload not %d-byte aligned", DSize)}
		}
		if size%DSize != 0 || size < MinBlockSize {
			return &CheckError{Kind: "bad_block_size", Address: bp,
				Message: fmt.Sprintf("block size %d", size)}
		}
		fw, err := h.ftr(bp)
		if err != nil {
			return err
		}
		if fw != hw {
			return &CheckError{Kind: "header_footer_mismatch", Address: bp,
				Message: fmt.Sprintf("hdr=0x%x ftr=0x%x", hw, fw)}
		}
		if bp == h.heads && !allocOf(hw) {
			return &CheckError{Kind: "heads_block_free", Address: bp,
				Message: "free-list head array block must stay allocated"}
		}
		if !allocOf(hw) {
			if prevFree {
				return &CheckError{Kind: "adjacent_free_blocks", Address: bp,
					Message: "uncoalesced neighbor to the left"}
			}
			freeBlocks[bp] = size
			prevFree = true
		} else {
			prevFree = false
		}
		bp += size
	}

	// Tiling: the epilogue header is the final heap word, so the epilogue
	// payload address must equal the heap's upper bound.
	if bp != h.arena.Hi() {
		return &CheckError{Kind: "tiling", Address: bp,
			Message: fmt.Sprintf("walk ended at 0x%x, heap ends at 0x%x", bp, h.arena.Hi())}
	}

	// Free-list walk: every node must be a free block of the right class,
	// linked symmetrically, and every free block must appear exactly once.
	seen := make(map[uint32]bool)
	for i := 0; i < NumSizeClasses; i++ {
		head, err := h.listHead(i)
		if err != nil {
			return err
		}
		prev := nullAddr
		for node := head; node != nullAddr; {
			size, ok := freeBlocks[node]
			if !ok {
				return &CheckError{Kind: "freelist_membership", Address: node,
					Message: fmt.Sprintf("class %d lists a non-free or unknown block", i)}
			}
			if seen[node] {
				return &CheckError{Kind: "freelist_duplicate", Address: node,
					Message: "block appears on more than one list position"}
			}
			seen[node] = true
			if sizeClass(size) != i {
				return &CheckError{Kind: "freelist_class", Address: node,
					Message: fmt.Sprintf("size %d belongs on class %d, found on %d", size, sizeClass(size), i)}
			}
			nodePrev, err := h.linkPrev(node)
			if err != nil {
				return err
			}
			if nodePrev != prev {
				return &CheckError{Kind: "link_asymmetry", Address: node,
					Message: fmt.Sprintf("prev link 0x%x, expected 0x%x", nodePrev, prev)}
			}
			prev = node
			node, err = h.linkNext(node)
			if err != nil {
				return err
			}
		}
	}
	for bp := range freeBlocks {
		if !seen[bp] {
			return &CheckError{Kind: "freelist_membership", Address: bp,
				Message: "free block is on no free list"}
		}
	}
	return nil
}
