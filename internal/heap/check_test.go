package heap

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheck_CleanHeap(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Allocate(100)
	require.NoError(t, err)
	_, err = h.Allocate(200)
	require.NoError(t, err)
	require.NoError(t, h.Free(p))

	require.NoError(t, h.Check(false))
	require.NoError(t, h.Check(true))
}

func TestCheck_HeaderFooterMismatch(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Allocate(100)
	require.NoError(t, err)

	// Smash the footer without touching the header.
	size, err := h.blockSize(p)
	require.NoError(t, err)
	require.NoError(t, h.arena.WriteWord(p+size-DSize, pack(size, false)))

	err = h.Check(false)
	require.Error(t, err)
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "header_footer_mismatch", checkErr.Kind)
	assert.Equal(t, p, checkErr.Address)
}

func TestCheck_BadEpilogue(t *testing.T) {
	h := newTestHeap(t, 0)

	require.NoError(t, h.arena.WriteWord(h.arena.Hi()-WSize, pack(0, false)))

	err := h.Check(false)
	require.Error(t, err)
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "bad_epilogue", checkErr.Kind)
}

func TestCheck_AdjacentFreeBlocks(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Allocate(40)
	require.NoError(t, err)
	q, err := h.Allocate(40)
	require.NoError(t, err)

	// Clear both alloc bits behind the allocator's back: two adjacent
	// free blocks that never coalesced.
	for _, bp := range []uint32{p, q} {
		size, err := h.blockSize(bp)
		require.NoError(t, err)
		require.NoError(t, h.setTags(bp, pack(size, false)))
	}

	err = h.Check(false)
	require.Error(t, err)
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "adjacent_free_blocks", checkErr.Kind)
}

func TestCheck_FreeBlockOffList(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Allocate(40)
	require.NoError(t, err)
	_, err = h.Allocate(40)
	require.NoError(t, err)

	// Free tags, but never inserted.
	size, err := h.blockSize(p)
	require.NoError(t, err)
	require.NoError(t, h.setTags(p, pack(size, false)))

	err = h.Check(false)
	require.Error(t, err)
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "freelist_membership", checkErr.Kind)
	assert.Equal(t, p, checkErr.Address)
}

func TestCheck_LinkAsymmetry(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Allocate(40)
	require.NoError(t, err)
	_, err = h.Allocate(40)
	require.NoError(t, err)
	require.NoError(t, h.Free(p))

	// Corrupt the freed block's prev link.
	require.NoError(t, h.setLinkPrev(p, 0xdead0))

	err = h.Check(false)
	require.Error(t, err)
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "link_asymmetry", checkErr.Kind)
}

func TestCheck_WrongClassList(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Allocate(40)
	require.NoError(t, err)
	_, err = h.Allocate(40)
	require.NoError(t, err)
	require.NoError(t, h.Free(p))

	// Move the freed block (class 0 by size) onto the largest class head.
	require.NoError(t, h.setListHead(0, nullAddr))
	require.NoError(t, h.setListHead(NumSizeClasses-1, p))

	err = h.Check(false)
	require.Error(t, err)
	var checkErr *CheckError
	require.ErrorAs(t, err, &checkErr)
	assert.Equal(t, "freelist_class", checkErr.Kind)
}

func TestCheckAfterOp(t *testing.T) {
	config := DefaultConfig()
	config.CheckAfterOp = true

	a := arenaForTest(t, 0)
	h, err := New(a, config)
	require.NoError(t, err)

	p, err := h.Allocate(100)
	require.NoError(t, err)
	// Guard allocation so p does not abut the epilogue: otherwise the next
	// extension would coalesce across the smashed footer and re-stamp p.
	_, err = h.Allocate(100)
	require.NoError(t, err)

	// Smash the footer; the very next operation notices.
	size, err := h.blockSize(p)
	require.NoError(t, err)
	require.NoError(t, h.arena.WriteWord(p+size-DSize, pack(size, false)))

	_, err = h.Allocate(100)
	require.Error(t, err)
	var checkErr *CheckError
	assert.ErrorAs(t, err, &checkErr)
}

func TestDump(t *testing.T) {
	h := newTestHeap(t, 0)

	p, err := h.Allocate(100)
	require.NoError(t, err)
	_, err = h.Allocate(200)
	require.NoError(t, err)
	require.NoError(t, h.Free(p))

	var buf bytes.Buffer
	require.NoError(t, h.Dump(&buf))
	out := buf.String()

	assert.Contains(t, out, "prologue")
	assert.Contains(t, out, "free-list heads")
	assert.Contains(t, out, "epilogue")
	assert.Contains(t, out, "free ")
	assert.Contains(t, out, "class 1:")
	assert.Equal(t, 1, strings.Count(out, "epilogue"))
}
