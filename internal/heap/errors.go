package heap

import (
	"fmt"

	"github.com/seglab/segalloc/internal/arena"
)

// ErrOutOfMemory is returned by Allocate and Reallocate when the arena
// cannot grow. The heap is unchanged when it is returned.
var ErrOutOfMemory = arena.ErrOutOfMemory

// HeapError represents a failed heap operation
type HeapError struct {
	Op      string
	Address uint32
	Size    uint32
	Message string
	Err     error
}

func (e *HeapError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("heap error [%s]: %s (addr=0x%x, size=%d): %v",
			e.Op, e.Message, e.Address, e.Size, e.Err)
	}
	return fmt.Sprintf("heap error [%s]: %s (addr=0x%x, size=%d)",
		e.Op, e.Message, e.Address, e.Size)
}

// Unwrap returns the underlying error if any
func (e *HeapError) Unwrap() error { return e.Err }

// CheckError represents the first structural violation found by Check
type CheckError struct {
	Kind    string
	Address uint32
	Message string
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("heap check failed [%s] at 0x%x: %s", e.Kind, e.Address, e.Message)
}
