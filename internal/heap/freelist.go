package heap

// Segregated free lists. The K list heads live inside the arena, in the
// payload of the permanently allocated head-array block carved at init.
// Each free block embeds its prev link in its first payload word and its
// next link in the second; address 0 is the null link (offset 0 is the
// alignment pad, never a payload).

const nullAddr uint32 = 0

// headAddr returns the arena address of the list head for class i.
func (h *Heap) headAddr(i int) uint32 {
	return h.heads + uint32(i)*WSize
}

func (h *Heap) listHead(i int) (uint32, error) {
	w, err := h.arena.ReadWord(h.headAddr(i))
	if err != nil {
		return 0, err
	}
	return uint32(w), nil
}

func (h *Heap) setListHead(i int, bp uint32) error {
	return h.arena.WriteWord(h.headAddr(i), uint64(bp))
}

func (h *Heap) linkPrev(bp uint32) (uint32, error) {
	w, err := h.arena.ReadWord(bp)
	if err != nil {
		return 0, err
	}
	return uint32(w), nil
}

func (h *Heap) linkNext(bp uint32) (uint32, error) {
	w, err := h.arena.ReadWord(bp + WSize)
	if err != nil {
		return 0, err
	}
	return uint32(w), nil
}

func (h *Heap) setLinkPrev(bp, target uint32) error {
	return h.arena.WriteWord(bp, uint64(target))
}

func (h *Heap) setLinkNext(bp, target uint32) error {
	return h.arena.WriteWord(bp+WSize, uint64(target))
}

// insertFree splices the free block at bp onto the head of its class list.
// The block's header must already carry its final size with the alloc bit
// clear.
func (h *Heap) insertFree(bp uint32) error {
	size, err := h.blockSize(bp)
	if err != nil {
		return err
	}
	i := sizeClass(size)

	old, err := h.listHead(i)
	if err != nil {
		return err
	}
	if err := h.setLinkPrev(bp, nullAddr); err != nil {
		return err
	}
	if err := h.setLinkNext(bp, old); err != nil {
		return err
	}
	if old != nullAddr {
		if err := h.setLinkPrev(old, bp); err != nil {
			return err
		}
	}
	return h.setListHead(i, bp)
}

// unlinkFree removes the free block at bp from its class list in O(1) by
// patching its neighbors; no list scan is needed.
func (h *Heap) unlinkFree(bp uint32) error {
	size, err := h.blockSize(bp)
	if err != nil {
		return err
	}
	i := sizeClass(size)

	prev, err := h.linkPrev(bp)
	if err != nil {
		return err
	}
	next, err := h.linkNext(bp)
	if err != nil {
		return err
	}

	if prev == nullAddr {
		if err := h.setListHead(i, next); err != nil {
			return err
		}
	} else {
		if err := h.setLinkNext(prev, next); err != nil {
			return err
		}
	}
	if next != nullAddr {
		return h.setLinkPrev(next, prev)
	}
	return nil
}

// findFit scans the class for asize and then every higher class, returning
// the first block large enough, or nullAddr if every list is exhausted.
func (h *Heap) findFit(asize uint32) (uint32, error) {
	for i := sizeClass(asize); i < NumSizeClasses; i++ {
		bp, err := h.listHead(i)
		if err != nil {
			return 0, err
		}
		for bp != nullAddr {
			size, err := h.blockSize(bp)
			if err != nil {
				return 0, err
			}
			if size >= asize {
				return bp, nil
			}
			bp, err = h.linkNext(bp)
			if err != nil {
				return 0, err
			}
		}
	}
	return nullAddr, nil
}
