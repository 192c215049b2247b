package device

import (
	"sync/atomic"
)

// CounterArray is an array of atomic uint32 counters backed by a device
// buffer. It implements the parallel-partition primitive "compute a bin,
// fetch-and-increment that bin's counter, use the previous value as a dense
// rank within the bin": many threads hitting the same bin each observe a
// distinct rank, and afterwards each counter holds its bin's population.
type CounterArray struct {
	counts []uint32
}

// Counters views a buffer of 4-byte elements as an atomic counter array.
func Counters(b Buffer) CounterArray {
	return CounterArray{counts: Uint32s(b)}
}

// Len returns the number of counters.
func (c CounterArray) Len() int {
	return len(c.counts)
}

// Inc atomically increments counter i and returns its previous value.
func (c CounterArray) Inc(i int) uint32 {
	return atomic.AddUint32(&c.counts[i], 1) - 1
}

// Load atomically reads counter i.
func (c CounterArray) Load(i int) uint32 {
	return atomic.LoadUint32(&c.counts[i])
}

// Store sets counter i. Only safe once the incrementing phase has finished.
func (c CounterArray) Store(i int, v uint32) {
	c.counts[i] = v
}
