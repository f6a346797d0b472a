package heap

// Payload accessors. The arena is not exposed by the heap, so callers that
// want to read or write the bytes of an allocation go through these. Both
// refuse accesses past the block's payload capacity; they do not attempt
// to detect stale or invented addresses beyond that.

// PayloadSize returns the usable payload capacity of the block at bp.
func (h *Heap) PayloadSize(bp uint32) (uint32, error) {
	size, err := h.blockSize(bp)
	if err != nil {
		return 0, &HeapError{Op: "payload_size", Address: bp, Message: "header read failed", Err: err}
	}
	return size - DSize, nil
}

// ReadPayload copies n bytes out of the allocation at bp.
func (h *Heap) ReadPayload(bp, n uint32) ([]byte, error) {
	capacity, err := h.PayloadSize(bp)
	if err != nil {
		return nil, err
	}
	if n > capacity {
		return nil, &HeapError{Op: "read_payload", Address: bp, Size: n,
			Message: "read past payload capacity"}
	}
	data, err := h.arena.Read(bp, n)
	if err != nil {
		return nil, &HeapError{Op: "read_payload", Address: bp, Size: n, Message: "arena read failed", Err: err}
	}
	return data, nil
}

// WritePayload copies data into the allocation at bp.
func (h *Heap) WritePayload(bp uint32, data []byte) error {
	capacity, err := h.PayloadSize(bp)
	if err != nil {
		return err
	}
	if uint32(len(data)) > capacity {
		return &HeapError{Op: "write_payload", Address: bp, Size: uint32(len(data)),
			Message: "write past payload capacity"}
	}
	if err := h.arena.Write(bp, data); err != nil {
		return &HeapError{Op: "write_payload", Address: bp, Size: uint32(len(data)), Message: "arena write failed", Err: err}
	}
	return nil
}
