// Command sortbench measures the gudasort engine against a host-side
// parallel sort baseline and verifies the results agree.
package main

import (
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sort"
	"time"
	"unsafe"

	"github.com/LynnColeArt/gudasort"
	"github.com/LynnColeArt/gudasort/device"
	"github.com/intel/forGoParallel/parallel"
	"github.com/intel/forGoParallel/psort"
)

const recordSize = 16

func main() {
	var (
		n    = flag.Int("n", 1<<20, "Number of records to sort")
		runs = flag.Int("runs", 5, "Timed runs per sorter")
		seed = flag.Int64("seed", 1, "Random seed for key generation")
	)
	flag.Parse()

	ctx := device.NewContext()
	defer ctx.Close()

	info := ctx.Device()
	lim := ctx.Limits()
	fmt.Println("=== gudasort benchmark ===")
	fmt.Printf("Device: %s (%d cores, %s)\n", info.Name, info.Cores, info.SIMD)
	fmt.Printf("Limits: workgroup %d, local memory %d bytes\n", lim.MaxWorkgroupSize, lim.MaxLocalMemory)

	trait := gudasort.Uint32Keys(recordSize, 0)
	eng, err := gudasort.NewEngine(ctx, trait, *n)
	if err != nil {
		log.Fatalf("Engine construction failed: %v", err)
	}
	defer eng.Close()
	fmt.Printf("Plan: mode=%s buckets=%d sortGroup=%d\n\n",
		eng.Plan().Mode, eng.Plan().NumBuckets, eng.Plan().SortGroupSize)

	rng := rand.New(rand.NewSource(*seed))
	keys := make([]uint32, *n)
	for i := range keys {
		keys[i] = rng.Uint32()
	}

	// Host baseline: stable parallel sort of (key, payload) pairs.
	baseKeys := make([]uint32, *n)
	basePayloads := make([]uint32, *n)
	copy(baseKeys, keys)
	for i := range basePayloads {
		basePayloads[i] = uint32(i)
	}
	start := time.Now()
	psort.StableSort(keyedSorter{keys: baseKeys, payloads: basePayloads})
	baselineTime := time.Since(start)
	fmt.Printf("psort baseline: %v\n", baselineTime)

	data, err := ctx.NewBuffer(*n, recordSize)
	if err != nil {
		log.Fatalf("Buffer allocation failed: %v", err)
	}
	defer ctx.Free(data)

	var best time.Duration
	for run := 0; run < *runs; run++ {
		fillRecords(data.Bytes(), keys)
		start := time.Now()
		if err := eng.Sort(data); err != nil {
			log.Fatalf("Sort failed: %v", err)
		}
		elapsed := time.Since(start)
		if best == 0 || elapsed < best {
			best = elapsed
		}
		if err := verify(data.Bytes(), baseKeys); err != nil {
			log.Fatalf("Run %d: %v", run, err)
		}
	}

	rate := float64(*n) * float64(recordSize) / best.Seconds() / (1 << 20)
	fmt.Printf("engine best of %d: %v (%.1f MB/s)\n", *runs, best, rate)
	fmt.Printf("speedup vs baseline: %.2fx\n", baselineTime.Seconds()/best.Seconds())
}

// fillRecords packs keys into records, tagging payloads with the original
// index.
func fillRecords(raw []byte, keys []uint32) {
	for i, k := range keys {
		rec := raw[i*recordSize : (i+1)*recordSize]
		*(*uint32)(unsafe.Pointer(&rec[0])) = k
		*(*uint32)(unsafe.Pointer(&rec[4])) = uint32(i)
	}
}

// verify checks the engine's key order against the baseline's.
func verify(raw []byte, wantKeys []uint32) error {
	for i, want := range wantKeys {
		got := *(*uint32)(unsafe.Pointer(&raw[i*recordSize]))
		if got != want {
			return fmt.Errorf("key mismatch at %d: engine %d, baseline %d", i, got, want)
		}
	}
	return nil
}

// keyedSorter stable-sorts parallel key and payload slices by key, breaking
// ties by payload.
type keyedSorter struct {
	keys, payloads []uint32
}

func (s keyedSorter) Assign(source psort.StableSorter) func(i, j, len int) {
	src := source.(keyedSorter)
	return func(i, j, len int) {
		parallel.Do(func() {
			copy(s.keys[i:i+len], src.keys[j:j+len])
		}, func() {
			copy(s.payloads[i:i+len], src.payloads[j:j+len])
		})
	}
}

func (s keyedSorter) Len() int {
	return len(s.keys)
}

func (s keyedSorter) Less(i, j int) bool {
	if s.keys[i] != s.keys[j] {
		return s.keys[i] < s.keys[j]
	}
	return s.payloads[i] < s.payloads[j]
}

func (s keyedSorter) NewTemp() psort.StableSorter {
	return keyedSorter{
		keys:     make([]uint32, len(s.keys)),
		payloads: make([]uint32, len(s.payloads)),
	}
}

func (s keyedSorter) SequentialSort(i, j int) {
	sort.Stable(keyedSorter{
		keys:     s.keys[i:j],
		payloads: s.payloads[i:j],
	})
}

func (s keyedSorter) Swap(i, j int) {
	s.keys[i], s.keys[j] = s.keys[j], s.keys[i]
	s.payloads[i], s.payloads[j] = s.payloads[j], s.payloads[i]
}
