package gudasort

import (
	"bytes"
	"math/rand"
	"testing"
	"unsafe"

	"github.com/LynnColeArt/gudasort/device"
)

const testRecordSize = 16

// makeRecords packs keys into test records, tagging each payload with the
// record's original position so tests can check that payloads travel with
// their keys.
func makeRecords(keys []uint32) []byte {
	data := make([]byte, len(keys)*testRecordSize)
	for i, k := range keys {
		rec := data[i*testRecordSize : (i+1)*testRecordSize]
		*(*uint32)(unsafe.Pointer(&rec[0])) = k
		*(*uint32)(unsafe.Pointer(&rec[4])) = uint32(i)
	}
	return data
}

func recordKey(data []byte, i int) uint32 {
	return *(*uint32)(unsafe.Pointer(&data[i*testRecordSize]))
}

func recordPayload(data []byte, i int) uint32 {
	return *(*uint32)(unsafe.Pointer(&data[i*testRecordSize+4]))
}

// checkSorted verifies keys are non-decreasing and that the (key, payload)
// multiset is a permutation of the input: no record lost, duplicated, or
// separated from its payload.
func checkSorted(t *testing.T, input, output []byte) {
	t.Helper()
	n := len(input) / testRecordSize
	for i := 1; i < n; i++ {
		if recordKey(output, i-1) > recordKey(output, i) {
			t.Fatalf("keys out of order at %d: %d > %d", i, recordKey(output, i-1), recordKey(output, i))
		}
	}
	seen := make(map[uint64]int, n)
	for i := 0; i < n; i++ {
		seen[uint64(recordKey(input, i))<<32|uint64(recordPayload(input, i))]++
	}
	for i := 0; i < n; i++ {
		id := uint64(recordKey(output, i))<<32 | uint64(recordPayload(output, i))
		seen[id]--
		if seen[id] < 0 {
			t.Fatalf("record (key=%d payload=%d) appears more often in output than input",
				recordKey(output, i), recordPayload(output, i))
		}
	}
}

// sortThrough runs keys through a fresh engine on ctx and returns the sorted
// raw records.
func sortThrough(t *testing.T, ctx device.Context, keys []uint32) []byte {
	t.Helper()
	trait := Uint32Keys(testRecordSize, 0)
	eng := NewEngineOrFail(t, ctx, trait, len(keys))
	defer eng.Close()

	data := NewBufferOrFail(t, ctx, len(keys), testRecordSize)
	defer ctx.Free(data)

	input := makeRecords(keys)
	copy(data.Bytes(), input)
	SortOrFail(t, eng, data)

	output := make([]byte, len(input))
	copy(output, data.Bytes())
	checkSorted(t, input, output)
	return output
}

func TestSortExample(t *testing.T) {
	// N = 8 with keys in [0, 9]: small enough for the short-list path.
	ctx := device.NewContext()
	defer ctx.Close()

	keys := []uint32{5, 1, 4, 2, 8, 3, 7, 6}
	trait := Uint32Keys(testRecordSize, 0)
	eng := NewEngineOrFail(t, ctx, trait, len(keys))
	defer eng.Close()
	if eng.Plan().Mode != ShortList {
		t.Fatalf("expected ShortList mode for N=8, got %v", eng.Plan().Mode)
	}

	out := sortThrough(t, ctx, keys)
	want := []uint32{1, 2, 3, 4, 5, 6, 7, 8}
	for i, w := range want {
		if recordKey(out, i) != w {
			t.Errorf("key[%d] = %d, want %d", i, recordKey(out, i), w)
		}
		// Payload i was the original index; key w sat at position payload.
		if keys[recordPayload(out, i)] != w {
			t.Errorf("payload detached from key %d: came from position %d holding %d",
				w, recordPayload(out, i), keys[recordPayload(out, i)])
		}
	}
}

func TestSortRandomBothModes(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()
	rng := rand.New(rand.NewSource(42))

	// Default limits give maxLocal = 32768/16/2 = 1024 records.
	for _, n := range []int{1, 2, 7, 100, 1023, 1024, 1025, 5000, 20000} {
		keys := make([]uint32, n)
		for i := range keys {
			keys[i] = rng.Uint32()
		}
		sortThrough(t, ctx, keys)
	}
}

func TestSortThresholdModes(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()
	trait := Uint32Keys(testRecordSize, 0)

	maxLocal := ctx.Limits().MaxLocalMemory / testRecordSize / 2
	for _, tc := range []struct {
		n    int
		mode Mode
	}{
		{maxLocal, ShortList},
		{maxLocal + 1, Bucketed},
	} {
		eng := NewEngineOrFail(t, ctx, trait, tc.n)
		if eng.Plan().Mode != tc.mode {
			t.Errorf("N=%d: mode = %v, want %v", tc.n, eng.Plan().Mode, tc.mode)
		}
		eng.Close()

		keys := make([]uint32, tc.n)
		for i := range keys {
			keys[i] = uint32(tc.n - i)
		}
		sortThrough(t, ctx, keys)
	}
}

func TestSortEmptyIsNoOp(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()
	eng := NewEngineOrFail(t, ctx, Uint32Keys(testRecordSize, 0), 0)
	defer eng.Close()

	data := NewBufferOrFail(t, ctx, 0, testRecordSize)
	defer ctx.Free(data)
	if err := eng.Sort(data); err != nil {
		t.Fatalf("Sort of empty buffer failed: %v", err)
	}
}

func TestSortIdempotent(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()
	rng := rand.New(rand.NewSource(7))

	for _, n := range []int{64, 5000} {
		keys := make([]uint32, n)
		for i := range keys {
			keys[i] = rng.Uint32() % 1000
		}
		trait := Uint32Keys(testRecordSize, 0)
		eng := NewEngineOrFail(t, ctx, trait, n)

		data := NewBufferOrFail(t, ctx, n, testRecordSize)
		copy(data.Bytes(), makeRecords(keys))
		SortOrFail(t, eng, data)

		first := make([]byte, len(data.Bytes()))
		copy(first, data.Bytes())

		SortOrFail(t, eng, data)
		if !bytes.Equal(first, data.Bytes()) {
			t.Errorf("N=%d: sorting a sorted buffer changed it", n)
		}
		ctx.Free(data)
		eng.Close()
	}
}

func TestSortIdempotentDuplicateKeys(t *testing.T) {
	// Only 50 distinct keys over 5000 records, so every bucket holds many
	// equal-key records whose scatter order varies run to run. The byte
	// tie-break makes the sorted output a function of the multiset alone,
	// so every re-sort must reproduce the exact same bytes.
	ctx := device.NewContext()
	defer ctx.Close()
	rng := rand.New(rand.NewSource(13))

	const n = 5000
	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = rng.Uint32() % 50
	}
	eng := NewEngineOrFail(t, ctx, Uint32Keys(testRecordSize, 0), n)
	defer eng.Close()

	data := NewBufferOrFail(t, ctx, n, testRecordSize)
	defer ctx.Free(data)
	copy(data.Bytes(), makeRecords(keys))

	SortOrFail(t, eng, data)
	first := make([]byte, len(data.Bytes()))
	copy(first, data.Bytes())

	for round := 0; round < 50; round++ {
		SortOrFail(t, eng, data)
		if !bytes.Equal(first, data.Bytes()) {
			t.Fatalf("round %d: re-sorting a sorted buffer changed it", round)
		}
	}
}

func TestSortAllEqualKeys(t *testing.T) {
	// Every element routes to bucket 0; the degenerate range must not
	// divide by zero and the result must still be fully sorted.
	ctx := device.NewContext()
	defer ctx.Close()

	keys := make([]uint32, 3000)
	for i := range keys {
		keys[i] = 7
	}
	sortThrough(t, ctx, keys)
}

func TestSortSkewedDistribution(t *testing.T) {
	// Over 90% of keys collide into one bucket, overfilling it far past
	// the plan's target bucket size. Correctness must hold regardless.
	ctx := device.NewContext()
	defer ctx.Close()
	rng := rand.New(rand.NewSource(99))

	const n = 8192
	keys := make([]uint32, n)
	for i := range keys {
		if i%16 == 0 {
			keys[i] = rng.Uint32()
		} else {
			keys[i] = 1 << 20
		}
	}
	sortThrough(t, ctx, keys)
}

func TestSortFloatKeys(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()
	rng := rand.New(rand.NewSource(3))

	const n = 5000
	const recSize = 8
	trait := Float32Keys(recSize, 0)
	eng := NewEngineOrFail(t, ctx, trait, n)
	defer eng.Close()

	data := NewBufferOrFail(t, ctx, n, recSize)
	defer ctx.Free(data)
	raw := data.Bytes()
	for i := 0; i < n; i++ {
		*(*float32)(unsafe.Pointer(&raw[i*recSize])) = (rng.Float32() - 0.5) * 2e6
	}
	SortOrFail(t, eng, data)

	for i := 1; i < n; i++ {
		prev := *(*float32)(unsafe.Pointer(&raw[(i-1)*recSize]))
		cur := *(*float32)(unsafe.Pointer(&raw[i*recSize]))
		if prev > cur {
			t.Fatalf("float keys out of order at %d: %v > %v", i, prev, cur)
		}
	}
}

func TestSortInt64Keys(t *testing.T) {
	ctx := device.NewContext()
	defer ctx.Close()
	rng := rand.New(rand.NewSource(11))

	const n = 4000
	const recSize = 16
	trait := Int64Keys(recSize, 0)
	eng := NewEngineOrFail(t, ctx, trait, n)
	defer eng.Close()

	data := NewBufferOrFail(t, ctx, n, recSize)
	defer ctx.Free(data)
	raw := data.Bytes()
	for i := 0; i < n; i++ {
		*(*int64)(unsafe.Pointer(&raw[i*recSize])) = rng.Int63() - (1 << 62)
	}
	SortOrFail(t, eng, data)

	for i := 1; i < n; i++ {
		prev := *(*int64)(unsafe.Pointer(&raw[(i-1)*recSize]))
		cur := *(*int64)(unsafe.Pointer(&raw[i*recSize]))
		if prev > cur {
			t.Fatalf("int64 keys out of order at %d: %d > %d", i, prev, cur)
		}
	}
}

func BenchmarkSortBucketed(b *testing.B) {
	ctx := device.NewContext()
	defer ctx.Close()
	rng := rand.New(rand.NewSource(1))

	const n = 1 << 16
	trait := Uint32Keys(testRecordSize, 0)
	eng, err := NewEngine(ctx, trait, n)
	if err != nil {
		b.Fatal(err)
	}
	defer eng.Close()

	keys := make([]uint32, n)
	for i := range keys {
		keys[i] = rng.Uint32()
	}
	input := makeRecords(keys)
	data, err := ctx.NewBuffer(n, testRecordSize)
	if err != nil {
		b.Fatal(err)
	}
	defer ctx.Free(data)

	b.SetBytes(int64(len(input)))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		b.StopTimer()
		copy(data.Bytes(), input)
		b.StartTimer()
		if err := eng.Sort(data); err != nil {
			b.Fatal(err)
		}
	}
}
