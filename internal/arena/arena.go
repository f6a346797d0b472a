package arena

import (
	"errors"
	"fmt"
	"math"
)

// ErrOutOfMemory is returned by Extend when the backing store cannot grow.
// A failed Extend never consumes address space: Hi() is unchanged.
var ErrOutOfMemory = errors.New("arena: out of memory")

// ArenaError represents arena access errors
type ArenaError struct {
	Op      string
	Address uint32
	Size    uint32
	Limit   uint32
	Message string
}

func (e *ArenaError) Error() string {
	return fmt.Sprintf("arena error [%s]: %s (addr=0x%x, size=%d, limit=0x%x)",
		e.Op, e.Message, e.Address, e.Size, e.Limit)
}

// Arena is a contiguous byte region growable only at its high end, in the
// manner of sbrk. Addresses are offsets from the start of the region.
// Word accessors read and write 8-byte little-endian values.
type Arena interface {
	// Extend grows the region by n bytes and returns the address where the
	// new bytes begin, which equals the old Hi(). On failure it returns
	// ErrOutOfMemory (possibly wrapped) and the region is unchanged.
	Extend(n uint32) (uint32, error)

	// Lo returns the lowest valid address (always 0 for these arenas).
	Lo() uint32

	// Hi returns the exclusive upper bound of the region.
	Hi() uint32

	// ReadWord reads the 8-byte word at addr.
	ReadWord(addr uint32) (uint64, error)

	// WriteWord writes the 8-byte word at addr.
	WriteWord(addr uint32, w uint64) error

	// Read copies n bytes starting at addr.
	Read(addr, n uint32) ([]byte, error)

	// Write copies data into the region starting at addr.
	Write(addr uint32, data []byte) error
}

// checkRange validates an [addr, addr+n) access against an exclusive limit.
func checkRange(op string, addr, n, hi uint32) error {
	if n > 0 && addr > math.MaxUint32-n {
		return &ArenaError{
			Op:      op,
			Address: addr,
			Size:    n,
			Limit:   hi,
			Message: "address + size overflows 32-bit address space",
		}
	}
	if addr+n > hi {
		return &ArenaError{
			Op:      op,
			Address: addr,
			Size:    n,
			Limit:   hi,
			Message: "access beyond arena bounds",
		}
	}
	return nil
}
