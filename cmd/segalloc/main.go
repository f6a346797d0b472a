package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/seglab/segalloc/pkg/segalloc"
)

type liveBlock struct {
	addr    uint32
	size    uint32
	pattern byte
}

func main() {
	var (
		arenaKind  = flag.String("arena", "slice", "arena backing: slice or wazero")
		ops        = flag.Int("ops", 10000, "number of workload operations")
		seed       = flag.Int64("seed", 1, "workload random seed")
		maxReq     = flag.Uint("max-request", 4096, "largest single request in bytes")
		checkEvery = flag.Int("check-every", 128, "run the consistency checker every N ops (0 disables)")
		dump       = flag.Bool("dump", false, "dump the heap after the workload")
		verbose    = flag.Bool("v", false, "verbose heap debug output")
	)
	flag.Parse()

	ctx := context.Background()

	var backing segalloc.Arena
	switch *arenaKind {
	case "slice":
		backing = segalloc.NewSliceArena(nil)
	case "wazero":
		wa, err := segalloc.NewWazeroArena(ctx, nil)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to create wazero arena: %v\n", err)
			os.Exit(1)
		}
		defer wa.Close(ctx)
		backing = wa
	default:
		fmt.Fprintf(os.Stderr, "unknown arena kind %q\n", *arenaKind)
		os.Exit(1)
	}

	config := segalloc.DefaultConfig()
	config.DebugOutput = os.Stderr
	if *verbose {
		config.DebugLevel = segalloc.DebugVerbose
	}

	h, err := segalloc.New(backing, config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize heap: %v\n", err)
		os.Exit(1)
	}

	if err := run(h, *ops, *seed, uint32(*maxReq), *checkEvery); err != nil {
		fmt.Fprintf(os.Stderr, "workload failed: %v\n", err)
		os.Exit(1)
	}

	printStats(h.GetStats())
	if *dump {
		if err := h.Dump(os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "dump failed: %v\n", err)
			os.Exit(1)
		}
	}
}

// run drives a random allocate/free/reallocate trace against the heap,
// filling each payload with a per-block pattern and verifying it before
// the block is released or moved.
func run(h *segalloc.Heap, ops int, seed int64, maxReq uint32, checkEvery int) error {
	rng := rand.New(rand.NewSource(seed))
	var live []liveBlock

	for i := 0; i < ops; i++ {
		switch r := rng.Intn(100); {
		case r < 45 || len(live) == 0:
			size := uint32(rng.Intn(int(maxReq))) + 1
			addr, err := h.Allocate(size)
			if err != nil {
				return fmt.Errorf("op %d: allocate(%d): %w", i, size, err)
			}
			b := liveBlock{addr: addr, size: size, pattern: byte(rng.Intn(255) + 1)}
			if err := fill(h, b); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			live = append(live, b)

		case r < 80:
			j := rng.Intn(len(live))
			b := live[j]
			if err := verify(h, b); err != nil {
				return fmt.Errorf("op %d: before free: %w", i, err)
			}
			if err := h.Free(b.addr); err != nil {
				return fmt.Errorf("op %d: free(0x%x): %w", i, b.addr, err)
			}
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]

		default:
			j := rng.Intn(len(live))
			b := live[j]
			if err := verify(h, b); err != nil {
				return fmt.Errorf("op %d: before realloc: %w", i, err)
			}
			newSize := uint32(rng.Intn(int(maxReq))) + 1
			addr, err := h.Reallocate(b.addr, newSize)
			if err != nil {
				return fmt.Errorf("op %d: reallocate(0x%x, %d): %w", i, b.addr, newSize, err)
			}
			nb := liveBlock{addr: addr, size: newSize, pattern: b.pattern}
			if surviving := min(b.size, newSize); surviving > 0 {
				if err := verifyPrefix(h, nb, surviving); err != nil {
					return fmt.Errorf("op %d: after realloc: %w", i, err)
				}
			}
			if err := fill(h, nb); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
			live[j] = nb
		}

		if checkEvery > 0 && i%checkEvery == 0 {
			if err := h.Check(false); err != nil {
				return fmt.Errorf("op %d: %w", i, err)
			}
		}
	}
	return h.Check(false)
}

func fill(h *segalloc.Heap, b liveBlock) error {
	data := make([]byte, b.size)
	for i := range data {
		data[i] = b.pattern
	}
	if err := h.WritePayload(b.addr, data); err != nil {
		return fmt.Errorf("fill 0x%x: %w", b.addr, err)
	}
	return nil
}

func verify(h *segalloc.Heap, b liveBlock) error {
	return verifyPrefix(h, b, b.size)
}

func verifyPrefix(h *segalloc.Heap, b liveBlock, n uint32) error {
	data, err := h.ReadPayload(b.addr, n)
	if err != nil {
		return fmt.Errorf("read 0x%x: %w", b.addr, err)
	}
	for i, v := range data {
		if v != b.pattern {
			return fmt.Errorf("payload 0x%x corrupted at +%d: got 0x%02x want 0x%02x",
				b.addr, i, v, b.pattern)
		}
	}
	return nil
}

func printStats(stats map[string]interface{}) {
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Printf("%-18s %v\n", k, stats[k])
	}
}
