package heap

import "sync/atomic"

// heapStats tracks operation counters for a Heap. The heap itself is
// single-threaded; the counters are atomics so that observers (debug HTTP
// handlers, test harnesses) can read them while a workload runs.
type heapStats struct {
	allocCount   atomic.Uint64
	freeCount    atomic.Uint64
	reallocCount atomic.Uint64
	extendCount  atomic.Uint64
	extendBytes  atomic.Uint64

	fitHits     atomic.Uint64 // placements satisfied from a free list
	stickySkips atomic.Uint64 // searches skipped by the last-miss hint

	bytesRequested atomic.Uint64
	bytesLive      atomic.Uint64 // block bytes currently allocated
	peakLive       atomic.Uint64
}

func (s *heapStats) addLive(n uint32) {
	current := s.bytesLive.Add(uint64(n))
	for {
		peak := s.peakLive.Load()
		if current <= peak || s.peakLive.CompareAndSwap(peak, current) {
			break
		}
	}
}

func (s *heapStats) subLive(n uint32) {
	s.bytesLive.Add(^uint64(n - 1))
}

// Stats is a point-in-time snapshot of heap counters
type Stats struct {
	AllocCount     uint64
	FreeCount      uint64
	ReallocCount   uint64
	ExtendCount    uint64
	ExtendBytes    uint64
	FitHits        uint64
	StickySkips    uint64
	BytesRequested uint64
	BytesLive      uint64
	PeakLive       uint64
}

// Stats returns a snapshot of the heap's counters.
func (h *Heap) Stats() Stats {
	return Stats{
		AllocCount:     h.stats.allocCount.Load(),
		FreeCount:      h.stats.freeCount.Load(),
		ReallocCount:   h.stats.reallocCount.Load(),
		ExtendCount:    h.stats.extendCount.Load(),
		ExtendBytes:    h.stats.extendBytes.Load(),
		FitHits:        h.stats.fitHits.Load(),
		StickySkips:    h.stats.stickySkips.Load(),
		BytesRequested: h.stats.bytesRequested.Load(),
		BytesLive:      h.stats.bytesLive.Load(),
		PeakLive:       h.stats.peakLive.Load(),
	}
}

// GetStats returns heap statistics
func (h *Heap) GetStats() map[string]interface{} {
	return map[string]interface{}{
		"alloc_count":     h.stats.allocCount.Load(),
		"free_count":      h.stats.freeCount.Load(),
		"realloc_count":   h.stats.reallocCount.Load(),
		"extend_count":    h.stats.extendCount.Load(),
		"extend_bytes":    h.stats.extendBytes.Load(),
		"fit_hits":        h.stats.fitHits.Load(),
		"sticky_skips":    h.stats.stickySkips.Load(),
		"bytes_requested": h.stats.bytesRequested.Load(),
		"bytes_live":      h.stats.bytesLive.Load(),
		"peak_live":       h.stats.peakLive.Load(),
		"heap_lo":         h.arena.Lo(),
		"heap_hi":         h.arena.Hi(),
	}
}
