package heap

// Boundary-tag accessors. A block is addressed by its payload pointer bp;
// the header word sits one word below it and the footer one word below the
// end of the block. Every neighbor lookup reads a word outside the current
// block's payload, so all of these go through the bounds-checked arena.

// hdr reads the header word of the block at bp.
func (h *Heap) hdr(bp uint32) (uint64, error) {
	return h.arena.ReadWord(bp - WSize)
}

// setHdr writes the header word of the block at bp.
func (h *Heap) setHdr(bp uint32, w uint64) error {
	return h.arena.WriteWord(bp-WSize, w)
}

// ftr reads the footer word of the block at bp, locating it via the header.
func (h *Heap) ftr(bp uint32) (uint64, error) {
	hw, err := h.hdr(bp)
	if err != nil {
		return 0, err
	}
	return h.arena.ReadWord(bp + sizeOf(hw) - DSize)
}

// setFtr writes the footer word of the block at bp. The header must already
// hold the block's current size.
func (h *Heap) setFtr(bp uint32, w uint64) error {
	hw, err := h.hdr(bp)
	if err != nil {
		return err
	}
	return h.arena.WriteWord(bp+sizeOf(hw)-DSize, w)
}

// setTags stamps header and footer with the same word.
func (h *Heap) setTags(bp uint32, w uint64) error {
	if err := h.setHdr(bp, w); err != nil {
		return err
	}
	return h.setFtr(bp, w)
}

// blockSize returns the size recorded in the header of the block at bp.
func (h *Heap) blockSize(bp uint32) (uint32, error) {
	hw, err := h.hdr(bp)
	if err != nil {
		return 0, err
	}
	return sizeOf(hw), nil
}

// blockAlloc reports the alloc bit in the header of the block at bp.
func (h *Heap) blockAlloc(bp uint32) (bool, error) {
	hw, err := h.hdr(bp)
	if err != nil {
		return false, err
	}
	return allocOf(hw), nil
}

// nextBlock returns the payload pointer of the block following bp.
func (h *Heap) nextBlock(bp uint32) (uint32, error) {
	size, err := h.blockSize(bp)
	if err != nil {
		return 0, err
	}
	return bp + size, nil
}

// prevBlock returns the payload pointer of the block preceding bp, read
// from the previous block's footer. The prologue guarantees that footer
// exists for every regular block.
func (h *Heap) prevBlock(bp uint32) (uint32, error) {
	fw, err := h.arena.ReadWord(bp - DSize)
	if err != nil {
		return 0, err
	}
	return bp - sizeOf(fw), nil
}
